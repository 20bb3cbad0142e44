package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"viaggi/internal/core"
	"viaggi/internal/keypad"
	"viaggi/internal/log"
	"viaggi/internal/session"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	// State is the calculator after the keys that were accepted, when a
	// later key in the same request was rejected.
	State *keypad.State `json:"state,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

// statusClientClosedRequest marks a request the client gave up on. Nothing
// reads the answer, but logs and metrics stay out of the 5xx range.
const statusClientClosedRequest = 499

type errorMapping struct {
	target error
	status int
	code   string
}

// Keypad errors keep their own message so the form can show it verbatim.
var errorMappings = []errorMapping{
	{keypad.ErrZeroAmount, http.StatusUnprocessableEntity, "zero_amount"},
	{keypad.ErrInvalidAmount, http.StatusUnprocessableEntity, "invalid_amount"},
	{keypad.ErrDivisionByZero, http.StatusUnprocessableEntity, "division_by_zero"},
	{keypad.ErrOverflow, http.StatusUnprocessableEntity, "overflow"},
	{keypad.ErrUnknownToken, http.StatusBadRequest, "unknown_key"},
	{session.ErrSessionNotFound, http.StatusNotFound, "session_not_found"},
	{core.ErrEmptyTrip, http.StatusBadRequest, "empty_trip"},
	{core.ErrInvalidKind, http.StatusBadRequest, "invalid_kind"},
	{core.ErrEmptyDescription, http.StatusUnprocessableEntity, "invalid_expense"},
	{core.ErrEmptyCategory, http.StatusUnprocessableEntity, "invalid_expense"},
	{core.ErrDescriptionLong, http.StatusUnprocessableEntity, "invalid_expense"},
	{core.ErrInvalidDate, http.StatusUnprocessableEntity, "invalid_expense"},
	{core.ErrInvalidDay, http.StatusUnprocessableEntity, "invalid_expense"},
	{core.ErrInvalidMonth, http.StatusUnprocessableEntity, "invalid_expense"},
}

// classify maps a service error onto a status and a stable code.
func classify(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	if errors.Is(err, context.Canceled) {
		return statusClientClosedRequest, "client_closed_request"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, "timeout"
	}
	return http.StatusInternalServerError, "internal_error"
}

// writeServiceError answers with the mapped status. Unexpected errors are
// logged and hidden behind a generic message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, state *keypad.State) {
	status, code := classify(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed", log.FieldError, err)
		msg = "internal error"
	}
	if errors.Is(err, session.ErrSessionNotFound) {
		msg = session.ErrSessionNotFound.Error()
	}
	writeJSON(w, status, errorResponse{Error: msg, Code: code, State: state})
}
