package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openhearth/calendard/internal/app"
	"github.com/openhearth/calendard/internal/domain"
)

// CalendarLister exposes the registered calendars in registration
// order.
type CalendarLister interface {
	List() []domain.Calendar
}

// EventQuerier runs a range query across one or more entities.
type EventQuerier interface {
	Query(ctx context.Context, entityIDs []string, rng domain.Range) (app.QueryResult, error)
}

type calendarListItem struct {
	EntityID string `json:"entity_id"`
	Name     string `json:"name"`
}

// HandleListCalendars serves GET /api/calendars: every registered
// calendar, in registration order.
func HandleListCalendars(calendars CalendarLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		items := make([]calendarListItem, 0)
		for _, cal := range calendars.List() {
			items = append(items, calendarListItem{EntityID: cal.EntityID, Name: cal.Name})
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(items)
	}
}

// HandleCalendarEvents serves GET /api/calendars/{entity_id}: the
// events of one calendar overlapping the start/end query parameters,
// both RFC 3339 timestamps and start strictly before end.
func HandleCalendarEvents(querier EventQuerier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		entityID := strings.TrimPrefix(r.URL.Path, "/api/calendars/")
		if entityID == "" || strings.Contains(entityID, "/") {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		q := r.URL.Query()
		if q.Get("start") == "" || q.Get("end") == "" {
			writeError(w, http.StatusBadRequest, codeMissingField, "start and end parameters are required")
			return
		}
		start, err := parseQueryTime(q.Get("start"), "start")
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidFormat, err.Error())
			return
		}
		end, err := parseQueryTime(q.Get("end"), "end")
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidFormat, err.Error())
			return
		}
		if !end.After(start) {
			writeError(w, http.StatusBadRequest, string(domain.RuleNonPositiveRange), "end must be after start")
			return
		}

		result, err := querier.Query(r.Context(), []string{entityID}, domain.Range{Start: start, End: end})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		var events []domain.Event
		if len(result.Entities) > 0 {
			events = result.Entities[0].Events
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(app.ToAPI(events))
	}
}

func parseQueryTime(raw, field string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s parameter: %v", field, err)
	}
	return t, nil
}
