package http

import (
	"net/http"

	applog "famspese/internal/log"
	"famspese/internal/middleware/bearer"
)

func (s *Server) handleCreatePlannedExpense(w http.ResponseWriter, r *http.Request) {
	var req plannedExpenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	entry, err := req.toPlannedExpense()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	ctx := r.Context()
	memberID := bearer.MemberID(ctx)
	created, err := s.expenses.CreatePlannedExpense(ctx, memberID, entry)
	if err != nil {
		s.writeServiceError(w, r, applog.OpCreate, err)
		return
	}
	view, err := s.expenses.GetPlannedExpense(ctx, memberID, created.ID)
	if err != nil {
		s.writeServiceError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPlannedExpenseResponse(view))
}

func (s *Server) handleGetPlannedExpense(w http.ResponseWriter, r *http.Request) {
	view, err := s.expenses.GetPlannedExpense(r.Context(), bearer.MemberID(r.Context()), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlannedExpenseResponse(view))
}

func (s *Server) handleUpdatePlannedExpense(w http.ResponseWriter, r *http.Request) {
	var req plannedExpenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	entry, err := req.toPlannedExpense()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	entry.ID = r.PathValue("id")

	ctx := r.Context()
	memberID := bearer.MemberID(ctx)
	if _, err := s.expenses.UpdatePlannedExpense(ctx, memberID, entry); err != nil {
		s.writeServiceError(w, r, applog.OpUpdate, err)
		return
	}
	view, err := s.expenses.GetPlannedExpense(ctx, memberID, entry.ID)
	if err != nil {
		s.writeServiceError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlannedExpenseResponse(view))
}

func (s *Server) handleDeletePlannedExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.expenses.DeletePlannedExpense(r.Context(), bearer.MemberID(r.Context()), r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, applog.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEntryPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := s.expenses.EntryPayments(r.Context(), bearer.MemberID(r.Context()), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, applog.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"payments": toPaymentResponses(payments)})
}
