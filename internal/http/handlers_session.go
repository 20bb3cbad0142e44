package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"viaggi/internal/core"
	"viaggi/internal/keypad"
	"viaggi/internal/log"
	"viaggi/internal/middleware/trace"
	"viaggi/internal/services"
	"viaggi/internal/session"
)

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req openSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	kind, err := core.ParseKind(req.Kind)
	if err != nil {
		writeServiceError(w, r, err, nil)
		return
	}

	snap, err := s.sessions.Open(r.Context(), session.OpenRequest{
		TripID: sanitizeInput(req.TripID),
		Kind:   kind,
		Seed:   sanitizeInput(req.Seed),
	})
	if err != nil {
		writeServiceError(w, r, err, nil)
		return
	}
	w.Header().Set("Location", "/api/sessions/"+snap.ID)
	writeJSON(w, http.StatusCreated, newSessionResponse(snap))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := s.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(snap))
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Close(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePressKeys applies the keys in order. Every key is parsed before any
// is applied; a key the engine rejects stops the batch and the response
// carries the state reached before it.
func (s *Server) handlePressKeys(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req pressKeysRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if len(req.Keys) == 0 {
		writeError(w, r, http.StatusBadRequest, "bad_request", "keys must not be empty")
		return
	}

	keys, err := keypad.ParseTokens(req.Keys, s.sessions.Engine().Options().Separator)
	if err != nil {
		writeServiceError(w, r, err, nil)
		return
	}

	state, err := s.sessions.Press(r.Context(), id, keys...)
	if err != nil {
		var partial *keypad.State
		if !errors.Is(err, session.ErrSessionNotFound) {
			partial = &state
		}
		log.FromContext(r.Context()).InfoContext(r.Context(), "Key rejected",
			log.FieldSessionID, id, log.FieldError, err)
		writeServiceError(w, r, err, partial)
		return
	}

	writeJSON(w, http.StatusOK, stateResponse{ID: id, Display: state.Display, State: state})
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, span := trace.Start(r.Context(), "expense.commit", attribute.String("session.id", id))
	defer span.End()

	var req commitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	var date core.Date
	if req.Date != "" {
		d, err := core.ParseDate(req.Date)
		if err != nil {
			writeServiceError(w, r, err, nil)
			return
		}
		date = d
	}

	res, err := s.expenses.Commit(ctx, services.CommitRequest{
		SessionID:   id,
		Date:        date,
		Description: sanitizeInput(req.Description),
		Category:    sanitizeInput(req.Category),
		PaidBy:      sanitizeInput(req.PaidBy),
		SplitWith:   sanitizeAll(req.SplitWith),
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeServiceError(w, r, err, nil)
		return
	}

	span.SetAttributes(
		attribute.String("expense.ref", res.Ref),
		attribute.String("trip.id", res.Expense.TripID),
		attribute.Int64("expense.amount_cents", res.Expense.Amount.Cents),
	)
	writeJSON(w, http.StatusCreated, commitResponse{
		Ref:       res.Ref,
		Committed: res.Amount.String(),
		Expense:   newExpenseResponse(res.Expense),
	})
}
