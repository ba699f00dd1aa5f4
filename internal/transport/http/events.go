package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/openhearth/calendard/internal/app"
	"github.com/openhearth/calendard/internal/clock"
)

// entityIDList accepts either a single string or a list of strings,
// matching the loose target syntax of service calls.
type entityIDList []string

func (l *entityIDList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*l = entityIDList{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return errors.New("entity_id must be a string or a list of strings")
	}
	*l = entityIDList(many)
	return nil
}

type getEventsRequest struct {
	EntityID entityIDList `json:"entity_id"`
	app.RangeRequest
}

type entityEventsResponse struct {
	Events []app.APIEvent `json:"events"`
}

// getEventsResponse marshals the per-entity results as a JSON object
// whose keys appear in request order. A plain map would re-sort them.
type getEventsResponse struct {
	entities []app.EntityEvents
}

func (r getEventsResponse) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, ent := range r.entities {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(ent.EntityID)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(entityEventsResponse{Events: app.ToAPI(ent.Events)})
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// HandleGetEvents serves POST /api/calendar/get_events: the service
// call form of a range query. The body names one or more entities and
// exactly one range shape; the response maps each requested entity to
// its overlapping events.
func HandleGetEvents(resolver *app.RangeResolver, querier EventQuerier, clk clock.Clock) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req getEventsRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body: "+err.Error())
			return
		}
		if len(req.EntityID) == 0 {
			writeError(w, http.StatusBadRequest, codeMissingField, "entity_id is required")
			return
		}

		rng, err := resolver.Resolve(req.RangeRequest, clk.Now())
		if err != nil {
			writeServiceError(w, err)
			return
		}

		result, err := querier.Query(r.Context(), req.EntityID, rng)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(getEventsResponse{entities: result.Entities})
	}
}
