package http

import (
	"net/http"
	"strconv"
	"strings"

	applog "famspese/internal/log"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.ListCategories(r.Context())
	if err != nil {
		s.writeServiceError(w, r, applog.OpList, err)
		return
	}
	out := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		if c.IsActive {
			out = append(out, toCategoryResponse(c))
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": out})
}

// handleListSubcategories answers {"subcategories": [...]} for
// ?category_id=. A missing or malformed id yields an empty list so form
// selects can always be filled; store failures are reported as errors.
func (s *Server) handleListSubcategories(w http.ResponseWriter, r *http.Request) {
	empty := map[string]any{"subcategories": []subcategoryResponse{}}

	raw := strings.TrimSpace(r.URL.Query().Get("category_id"))
	categoryID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || categoryID <= 0 {
		writeJSON(w, http.StatusOK, empty)
		return
	}

	key := strconv.FormatInt(categoryID, 10)
	if cached, ok := s.subcategoryCache.Get(key); ok {
		writeJSON(w, http.StatusOK, map[string]any{"subcategories": cached})
		return
	}

	subs, err := s.store.SubcategoriesByCategory(r.Context(), categoryID)
	if err != nil {
		s.writeServiceError(w, r, applog.OpList, err)
		return
	}
	out := make([]subcategoryResponse, 0, len(subs))
	for _, sub := range subs {
		out = append(out, subcategoryResponse{ID: sub.ID, Name: sub.Name})
	}
	s.subcategoryCache.Set(key, out)
	writeJSON(w, http.StatusOK, map[string]any{"subcategories": out})
}
