package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/openhearth/calendard/internal/app"
)

// IntentHandler answers a spoken get-events request.
type IntentHandler interface {
	GetEvents(ctx context.Context, calendarName, token string) (app.IntentResponse, error)
}

type intentRequest struct {
	Calendar string `json:"calendar"`
	Range    string `json:"range"`
}

// HandleIntentGetEvents serves POST /api/intent/get_events: the voice
// pipeline's entry point. The body names a calendar by its spoken name
// and a relative range token ("today" or "week").
func HandleIntentGetEvents(svc IntentHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req intentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body: "+err.Error())
			return
		}
		if req.Calendar == "" {
			writeError(w, http.StatusBadRequest, codeMissingField, "calendar is required")
			return
		}
		if req.Range == "" {
			req.Range = app.RangeTokenToday
		}

		resp, err := svc.GetEvents(r.Context(), req.Calendar, req.Range)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
