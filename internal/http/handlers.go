package http

import (
	"context"
	"net/http"
	"time"

	"famspese/internal/core"
	applog "famspese/internal/log"
	"famspese/internal/middleware/bearer"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).String(),
	})
}

// handleReady checks the store and reports cache and rate limiter state.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if err := s.store.Ping(ctx); err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
		checks["store"] = "failed"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	stats := s.subcategoryCache.Stats()
	checks["cache"] = map[string]any{
		"subcategory_entries": s.subcategoryCache.Size(),
		"hits":                stats.Hits,
		"misses":              stats.Misses,
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	member, err := s.accounts.Register(r.Context(), req.Email, sanitizeInput(req.DisplayName), req.Password)
	if err != nil {
		s.writeServiceError(w, r, applog.OpCreate, err)
		return
	}
	s.writeSession(w, r, http.StatusCreated, member)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	member, err := s.accounts.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeServiceError(w, r, applog.OpRead, err)
		return
	}
	s.writeSession(w, r, http.StatusOK, member)
}

// writeSession issues a token for the member and answers {member, token}.
func (s *Server) writeSession(w http.ResponseWriter, r *http.Request, status int, member core.Member) {
	token, err := s.tokens.Generate(member)
	if err != nil {
		s.writeServiceError(w, r, applog.OpCreate, err)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Session issued", applog.FieldMemberID, member.ID)
	writeJSON(w, status, authResponse{Member: toMemberResponse(member), Token: token})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	member, err := s.store.GetMember(r.Context(), bearer.MemberID(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, toMemberResponse(member))
}
