package http

import (
	"net/http"
	"strings"

	applog "famspese/internal/log"
	"famspese/internal/middleware/bearer"
)

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.plans.ListPlans(r.Context(), bearer.MemberID(r.Context()), queryBool(r, "include_hidden"))
	if err != nil {
		s.writeServiceError(w, r, applog.OpList, err)
		return
	}
	out := make([]planResponse, 0, len(plans))
	for _, p := range plans {
		out = append(out, toPlanResponse(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"plans": out})
}

func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	plan, err := req.toPlan()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	created, err := s.plans.CreatePlan(r.Context(), bearer.MemberID(r.Context()), plan)
	if err != nil {
		s.writeServiceError(w, r, applog.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPlanResponse(created))
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.plans.GetPlan(r.Context(), bearer.MemberID(r.Context()), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanResponse(plan))
}

func (s *Server) handleUpdatePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	plan, err := req.toPlan()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	plan.ID = r.PathValue("id")

	updated, err := s.plans.UpdatePlan(r.Context(), bearer.MemberID(r.Context()), plan)
	if err != nil {
		s.writeServiceError(w, r, applog.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanResponse(updated))
}

func (s *Server) handleDeletePlan(w http.ResponseWriter, r *http.Request) {
	if err := s.plans.DeletePlan(r.Context(), bearer.MemberID(r.Context()), r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, applog.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAddPlanMember accepts {"member_id": ...} or {"email": ...}.
func (s *Server) handleAddPlanMember(w http.ResponseWriter, r *http.Request) {
	var req addMemberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ref := strings.TrimSpace(req.MemberID)
	if ref == "" {
		ref = strings.TrimSpace(req.Email)
	}
	if ref == "" {
		writeError(w, http.StatusUnprocessableEntity, "member_id or email is required")
		return
	}

	plan, err := s.plans.AddMember(r.Context(), bearer.MemberID(r.Context()), r.PathValue("id"), ref)
	if err != nil {
		s.writeServiceError(w, r, applog.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanResponse(plan))
}

func (s *Server) handlePlanSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.plans.Summary(r.Context(), bearer.MemberID(r.Context()), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, applog.OpSummary, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryResponse(summary))
}

func (s *Server) handleListPlannedExpenses(w http.ResponseWriter, r *http.Request) {
	views, err := s.expenses.ListPlannedExpenses(r.Context(), bearer.MemberID(r.Context()), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, applog.OpList, err)
		return
	}
	out := make([]plannedExpenseResponse, 0, len(views))
	for _, v := range views {
		out = append(out, toPlannedExpenseResponse(v))
	}
	writeJSON(w, http.StatusOK, map[string]any{"planned_expenses": out})
}
