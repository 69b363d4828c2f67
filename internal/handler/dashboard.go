package handler

import (
	"net/http"
	"time"

	"camdash/internal/filter"
	"camdash/internal/logger"
	"camdash/internal/render"
)

// DashboardHandler renders the page for GET /. The query string carries the
// filter selection.
func DashboardHandler(renderer *render.Renderer, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, ok := stateFrom(w, r)
		if !ok {
			return
		}
		st.EnsureLoaded(r.Context())
		st.ApplyFilters(filter.ParseSelection(r.URL.Query()))

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		if err := renderer.Page(w, st.View(time.Now())); err != nil {
			logger.Error("Failed to render dashboard: %v", err)
			http.Error(w, "Failed to render page", http.StatusInternalServerError)
		}
	}
}
