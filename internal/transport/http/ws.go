package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/openhearth/calendard/internal/app"
	"github.com/openhearth/calendard/internal/domain"
)

// EntityAuthorizer resolves entities and checks mutation
// capabilities.
type EntityAuthorizer interface {
	Get(entityID string) (domain.Calendar, error)
	Authorize(entityID string, cap domain.Capability) error
}

// wsCommand is one inbound frame. Fields beyond ID and Type are
// command specific.
type wsCommand struct {
	ID       int    `json:"id"`
	Type     string `json:"type"`
	EntityID string `json:"entity_id"`
	Start    string `json:"start"`
	End      string `json:"end"`
	UID      string `json:"uid"`
}

type wsError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// wsResult is the outbound frame answering a command by id.
type wsResult struct {
	ID      int      `json:"id"`
	Type    string   `json:"type"`
	Success bool     `json:"success"`
	Result  any      `json:"result,omitempty"`
	Error   *wsError `json:"error,omitempty"`
}

// WSHandler serves the WebSocket command endpoint. One goroutine per
// connection reads commands and answers each with a result frame
// carrying the command id.
type WSHandler struct {
	upgrader   websocket.Upgrader
	authorizer EntityAuthorizer
	querier    EventQuerier
	logger     *slog.Logger
}

func NewWSHandler(authorizer EntityAuthorizer, querier EventQuerier, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		authorizer: authorizer,
		querier:    querier,
		logger:     logger,
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("websocket read failed", "error", err)
			}
			return
		}

		var cmd wsCommand
		if err := json.Unmarshal(payload, &cmd); err != nil {
			h.send(conn, failure(cmd.ID, codeInvalidFormat, "malformed command: "+err.Error()))
			continue
		}
		h.send(conn, h.handleCommand(r, cmd))
	}
}

func (h *WSHandler) send(conn *websocket.Conn, res wsResult) {
	if err := conn.WriteJSON(res); err != nil {
		h.logger.Warn("websocket write failed", "error", err)
	}
}

func (h *WSHandler) handleCommand(r *http.Request, cmd wsCommand) wsResult {
	switch cmd.Type {
	case "calendar/event/list":
		return h.listEvents(r, cmd)
	case "calendar/event/create":
		return h.mutationError(cmd, domain.CapabilityCreateEvent)
	case "calendar/event/update":
		return h.mutationError(cmd, domain.CapabilityUpdateEvent)
	case "calendar/event/delete":
		return h.mutationError(cmd, domain.CapabilityDeleteEvent)
	}
	return failure(cmd.ID, codeUnknownCommand, fmt.Sprintf("unknown command %q", cmd.Type))
}

func (h *WSHandler) listEvents(r *http.Request, cmd wsCommand) wsResult {
	if cmd.EntityID == "" {
		return failure(cmd.ID, codeInvalidFormat, "entity_id is required")
	}
	start, err := time.Parse(time.RFC3339, cmd.Start)
	if err != nil {
		return failure(cmd.ID, codeInvalidFormat, "invalid start: "+err.Error())
	}
	end, err := time.Parse(time.RFC3339, cmd.End)
	if err != nil {
		return failure(cmd.ID, codeInvalidFormat, "invalid end: "+err.Error())
	}
	if !end.After(start) {
		return failure(cmd.ID, string(domain.RuleNonPositiveRange), "end must be after start")
	}
	if _, err := h.authorizer.Get(cmd.EntityID); err != nil {
		return commandFailure(cmd.ID, err)
	}

	result, err := h.querier.Query(r.Context(), []string{cmd.EntityID}, domain.Range{Start: start, End: end})
	if err != nil {
		return commandFailure(cmd.ID, err)
	}

	var events []domain.Event
	if len(result.Entities) > 0 {
		events = result.Entities[0].Events
	}
	return wsResult{
		ID:      cmd.ID,
		Type:    "result",
		Success: true,
		Result:  map[string]any{"events": app.ToAPI(events)},
	}
}

// mutationError authorizes a write command and reports the reason it
// cannot run. Every registered calendar is backed by a read-only
// store, so an authorized write still answers not_supported.
func (h *WSHandler) mutationError(cmd wsCommand, cap domain.Capability) wsResult {
	if cmd.EntityID == "" {
		return failure(cmd.ID, codeInvalidFormat, "entity_id is required")
	}
	err := h.authorizer.Authorize(cmd.EntityID, cap)
	if err == nil {
		err = fmt.Errorf("%w: %s", domain.ErrNotSupported, cmd.Type)
	}
	return commandFailure(cmd.ID, err)
}

func failure(id int, code, msg string) wsResult {
	return wsResult{
		ID:    id,
		Type:  "result",
		Error: &wsError{Code: code, Message: msg},
	}
}

func commandFailure(id int, err error) wsResult {
	switch {
	case errors.Is(err, domain.ErrEntityNotFound):
		return failure(id, codeNotFound, err.Error())
	case errors.Is(err, domain.ErrNotSupported):
		return failure(id, codeNotSupported, err.Error())
	default:
		return failure(id, codeInternalError, err.Error())
	}
}
