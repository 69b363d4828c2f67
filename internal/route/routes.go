package route

import (
	"net/http"
	"net/url"

	"camdash/internal/config"
	"camdash/internal/handler"
	"camdash/internal/logger"
	"camdash/internal/metrics"
	"camdash/internal/middleware"
	"camdash/internal/render"
	"camdash/internal/service/hub"
	"camdash/internal/session"
)

// Deps are the collaborators the routes are built from.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	Renderer *render.Renderer
	Sessions *session.Store
	Hub      *hub.Hub
	Monitor  handler.SnapshotSource
	Journal  handler.ActivityLister
	Backend  *url.URL
	Metrics  *metrics.Metrics // nil disables /metrics
}

// SetupRoutes registers the page, its form actions, the JSON and websocket
// endpoints and the image proxy, and wraps the mux with logging and sessions.
func SetupRoutes(deps Deps) http.Handler {
	mux := http.NewServeMux()

	// Static files
	mux.Handle("GET /static/", render.Static())

	// Snapshot and reference images live on the camera server
	images := handler.ImageProxyHandler(deps.Backend, deps.Logger)
	mux.Handle("GET /cameras/", images)
	mux.Handle("GET /data/referencias/", images)

	// Page
	mux.HandleFunc("GET /{$}", handler.DashboardHandler(deps.Renderer, deps.Logger))
	mux.HandleFunc("GET /export/marked.csv", handler.ExportHandler())

	// Page actions
	mux.HandleFunc("POST /actions/refresh", handler.RefreshHandler())
	mux.HandleFunc("POST /actions/filters/clear", handler.ClearFiltersHandler())
	mux.HandleFunc("POST /actions/mark/{id}", handler.MarkHandler())
	mux.HandleFunc("POST /actions/note/save", handler.SaveNoteHandler())
	mux.HandleFunc("POST /actions/unmark/{id}", handler.UnmarkHandler())
	mux.HandleFunc("POST /actions/preview/{id}", handler.PreviewHandler())
	mux.HandleFunc("POST /actions/zoom", handler.ZoomHandler())
	mux.HandleFunc("POST /actions/modal/close", handler.CloseModalHandler())
	mux.HandleFunc("POST /actions/modal/close-all", handler.CloseAllModalsHandler())
	mux.HandleFunc("POST /actions/download/start", handler.StartDownloadHandler())

	mux.HandleFunc("POST /actions/vision/auto-learn", handler.AutoLearnHandler())
	mux.HandleFunc("POST /actions/vision/analyze", handler.AnalyzeHandler())
	mux.HandleFunc("POST /actions/vision/compare/{id}", handler.CompareHandler())
	mux.HandleFunc("POST /actions/vision/promote", handler.PromoteHandler())
	mux.HandleFunc("POST /actions/report/close", handler.CloseReportHandler())
	mux.HandleFunc("POST /actions/report/problems", handler.ReportProblemsHandler())

	mux.HandleFunc("POST /actions/references/open", handler.OpenCurationHandler())
	mux.HandleFunc("POST /actions/references/toggle/{baseID}", handler.ToggleCurationHandler())
	mux.HandleFunc("POST /actions/references/group", handler.CurationGroupHandler())
	mux.HandleFunc("POST /actions/references/filter", handler.FilterCurationHandler())
	mux.HandleFunc("POST /actions/references/view-mode", handler.CurationModeHandler())
	mux.HandleFunc("POST /actions/references/save", handler.SaveCurationHandler())
	mux.HandleFunc("POST /actions/references/viewer", handler.OpenViewerHandler())
	mux.HandleFunc("POST /actions/references/viewer/filter", handler.FilterViewerHandler())
	mux.HandleFunc("POST /actions/references/delete", handler.DeleteReferenceHandler())
	mux.HandleFunc("POST /actions/references/clear", handler.ClearReferencesHandler())

	mux.HandleFunc("POST /actions/review/open", handler.OpenReviewHandler())
	mux.HandleFunc("POST /actions/review/resolve", handler.ResolveReviewHandler())

	// API endpoints
	mux.HandleFunc("GET /ws/progress", handler.ProgressWebsocketHandler(deps.Hub, deps.Logger))
	mux.HandleFunc("GET /api/download/progress", handler.DownloadProgressHandler(deps.Monitor))
	mux.HandleFunc("GET /api/activity", handler.ActivityHandler(deps.Journal, deps.Logger))
	mux.HandleFunc("GET /api/activity/summary", handler.ActivitySummaryHandler(deps.Journal, deps.Logger))
	mux.HandleFunc("GET /health", handler.HealthHandler(deps.Sessions, deps.Hub, deps.Monitor))

	// Log endpoints
	mux.HandleFunc("GET /logs/{level}", handler.ShowLogsHandler(deps.Config))
	mux.HandleFunc("POST /logs/{level}/clear", handler.ClearLogsHandler(deps.Logger))

	var recorder middleware.RequestRecorder
	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics.Handler())
		recorder = deps.Metrics
	}

	// Apply middleware
	return middleware.Chain(mux,
		middleware.LoggingMiddleware(deps.Logger, recorder),
		middleware.SameOriginMiddleware(),
		middleware.SessionMiddleware(deps.Sessions),
	)
}
