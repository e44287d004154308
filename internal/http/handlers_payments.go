package http

import (
	"fmt"
	"net/http"
	"strings"

	applog "famspese/internal/log"
	"famspese/internal/middleware/bearer"
	"famspese/internal/services"
)

// handleListPayments lists a plan's payments, or the caller's own payments
// when plan_id is absent.
func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	planID := strings.TrimSpace(r.URL.Query().Get("plan_id"))
	payments, err := s.expenses.ListPayments(r.Context(), bearer.MemberID(r.Context()), planID)
	if err != nil {
		s.writeServiceError(w, r, applog.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"payments": toPaymentResponses(payments)})
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	payment, err := req.toPayment()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	created, err := s.expenses.CreatePayment(r.Context(), bearer.MemberID(r.Context()), payment)
	if err != nil {
		s.writeServiceError(w, r, applog.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentResponse(created))
}

// handleBatchPayments answers {"payments": {entry id: [...]}} for up to
// services.MaxBatchIDs planned expense ids.
func (s *Server) handleBatchPayments(w http.ResponseWriter, r *http.Request) {
	ids := splitIDs(r.URL.Query().Get("planned_expense_ids"))
	if len(ids) == 0 {
		writeError(w, http.StatusBadRequest, "planned_expense_ids is required")
		return
	}
	if len(ids) > services.MaxBatchIDs {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("too many ids (max %d)", services.MaxBatchIDs))
		return
	}

	byEntry, err := s.expenses.BatchPayments(r.Context(), bearer.MemberID(r.Context()), ids)
	if err != nil {
		s.writeServiceError(w, r, applog.OpList, err)
		return
	}
	out := make(map[string][]paymentResponse, len(byEntry))
	for id, payments := range byEntry {
		out[id] = toPaymentResponses(payments)
	}
	writeJSON(w, http.StatusOK, map[string]any{"payments": out})
}

func (s *Server) handleGetPayment(w http.ResponseWriter, r *http.Request) {
	payment, err := s.expenses.GetPayment(r.Context(), bearer.MemberID(r.Context()), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(payment))
}

func (s *Server) handleUpdatePayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	payment, err := req.toPayment()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	payment.ID = r.PathValue("id")

	updated, err := s.expenses.UpdatePayment(r.Context(), bearer.MemberID(r.Context()), payment)
	if err != nil {
		s.writeServiceError(w, r, applog.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(updated))
}

func (s *Server) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	if err := s.expenses.DeletePayment(r.Context(), bearer.MemberID(r.Context()), r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, applog.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
