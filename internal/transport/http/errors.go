package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/openhearth/calendard/internal/domain"
)

const (
	codeMethodNotAllowed   = "method_not_allowed"
	codeNotFound           = "not_found"
	codeNotSupported       = "not_supported"
	codeInvalidRequestBody = "invalid_request_body"
	codeInvalidFormat      = "invalid_format"
	codeMissingField       = "missing_required_field"
	codeUnknownRangeToken  = "unknown_range_token"
	codeUnknownCommand     = "unknown_command"
	codeForbidden          = "forbidden"
	codeInternalError      = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeMessage writes the legacy single-field error body used by the
// read endpoints.
func writeMessage(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": msg})
}

// writeServiceError maps service errors onto HTTP responses.
// Validation failures carry their rule as the error code; a store
// failure keeps the legacy "Error reading events" body.
func writeServiceError(w http.ResponseWriter, err error) {
	if verr, ok := domain.AsValidationError(err); ok {
		writeError(w, http.StatusBadRequest, string(verr.Rule), verr.Error())
		return
	}

	switch {
	case errors.Is(err, domain.ErrUnknownRangeToken):
		writeError(w, http.StatusBadRequest, codeUnknownRangeToken, err.Error())
	case errors.Is(err, domain.ErrEntityNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, domain.ErrNotSupported):
		writeError(w, http.StatusBadRequest, codeNotSupported, err.Error())
	default:
		var serr *domain.StoreError
		if errors.As(err, &serr) {
			writeMessage(w, http.StatusInternalServerError, "Error reading events: "+serr.Err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
