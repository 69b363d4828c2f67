package handler

import (
	"net/http"

	"camdash/internal/service/progress"
)

// Counter reports a live count.
type Counter interface {
	Count() int
}

// ClientCounter reports connected websocket clients.
type ClientCounter interface {
	ClientCount() int
}

// SnapshotSource exposes the shared download progress.
type SnapshotSource interface {
	Snapshot() progress.Snapshot
}

// HealthHandler reports liveness along with a few counters.
func HealthHandler(sessions Counter, clients ClientCounter, downloads SnapshotSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":            "ok",
			"sessions":          sessions.Count(),
			"websocket_clients": clients.ClientCount(),
			"download":          downloads.Snapshot().State,
		})
	}
}

// DownloadProgressHandler handles GET /api/download/progress.
func DownloadProgressHandler(downloads SnapshotSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, downloads.Snapshot())
	}
}
