package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"viaggi/internal/core"
	"viaggi/internal/services"
)

// handleListExpenses serves a trip's expenses, filtered by kind, category,
// payer and description text and ordered by ?sort=date|amount|description
// and ?order=asc|desc.
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "trip")
	q := r.URL.Query()

	var query services.ListQuery
	if v := q.Get("kind"); v != "" {
		kind, err := core.ParseKind(v)
		if err != nil {
			writeServiceError(w, r, err, nil)
			return
		}
		query.Filter.Kind = kind
	}
	query.Filter.Category = sanitizeInput(q.Get("category"))
	query.Filter.PaidBy = sanitizeInput(q.Get("paid_by"))
	query.Filter.Search = sanitizeInput(q.Get("q"))

	field, err := core.ParseSortField(q.Get("sort"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_sort", err.Error())
		return
	}
	query.Sort = field

	switch order := strings.ToLower(q.Get("order")); order {
	case "", "asc":
	case "desc":
		query.Descending = true
	default:
		writeError(w, r, http.StatusBadRequest, "invalid_order", "order must be asc or desc")
		return
	}

	expenses, err := s.trips.ListExpenses(r.Context(), tripID, query)
	if err != nil {
		writeServiceError(w, r, err, nil)
		return
	}
	out := expenseListResponse{TripID: tripID, Count: len(expenses), Expenses: make([]expenseResponse, 0, len(expenses))}
	for _, e := range expenses {
		out.Expenses = append(out.Expenses, newExpenseResponse(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.trips.Summary(r.Context(), chi.URLParam(r, "trip"))
	if err != nil {
		writeServiceError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, newSummaryResponse(sum))
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.trips.Categories(r.Context())
	if err != nil {
		writeServiceError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"categories": cats})
}
