package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"camdash/internal/dto"
	"camdash/internal/logger"
	"camdash/internal/model"
)

// ActivityLister reads the activity journal.
type ActivityLister interface {
	Recent(ctx context.Context, filter *dto.ActivityFilter) ([]model.Activity, error)
	Summary(ctx context.Context) (map[model.ActivityKind]int, error)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "error": message})
}

// ActivityHandler handles GET /api/activity with optional kind, since
// (RFC 3339) and limit query parameters.
func ActivityHandler(journal ActivityLister, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := &dto.ActivityFilter{Kind: model.ActivityKind(q.Get("kind"))}

		if raw := q.Get("limit"); raw != "" {
			limit, err := strconv.Atoi(raw)
			if err != nil || limit < 1 {
				writeJSONError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			filter.Limit = limit
		}
		if raw := q.Get("since"); raw != "" {
			since, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				writeJSONError(w, http.StatusBadRequest, "since must be an RFC 3339 timestamp")
				return
			}
			filter.Since = since
		}

		entries, err := journal.Recent(r.Context(), filter)
		if err != nil {
			logger.Error("Failed to list activity: %v", err)
			writeJSONError(w, http.StatusInternalServerError, "failed to list activity")
			return
		}
		if entries == nil {
			entries = []model.Activity{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":  true,
			"total":    len(entries),
			"activity": entries,
		})
	}
}

// ActivitySummaryHandler handles GET /api/activity/summary.
func ActivitySummaryHandler(journal ActivityLister, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := journal.Summary(r.Context())
		if err != nil {
			logger.Error("Failed to summarise activity: %v", err)
			writeJSONError(w, http.StatusInternalServerError, "failed to summarise activity")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "counts": counts})
	}
}
