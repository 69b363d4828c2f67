// Package app wires the dashboard server together.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"camdash/internal/apiclient"
	"camdash/internal/config"
	"camdash/internal/dashboard"
	"camdash/internal/export"
	"camdash/internal/logger"
	"camdash/internal/metrics"
	"camdash/internal/model"
	"camdash/internal/render"
	"camdash/internal/repository/sqlite"
	"camdash/internal/route"
	"camdash/internal/service/hub"
	"camdash/internal/service/journal"
	"camdash/internal/service/progress"
	"camdash/internal/service/vision"
	"camdash/internal/session"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config   *config.Config
	logger   *logger.Logger
	metrics  *metrics.Metrics
	backend  *apiclient.Client
	db       *sqlite.DB
	journal  *journal.Journal
	status   *vision.StatusCache
	exporter *export.Exporter
	monitor  *progress.Monitor
	hub      *hub.Hub
	sessions *session.Store
	renderer *render.Renderer
}

// NewApp builds every shared service. Close releases the database.
func NewApp(cfg *config.Config, log *logger.Logger) (*App, error) {
	backend, err := apiclient.New(apiclient.Config{
		BaseURL:        cfg.BackendURL,
		DefaultTimeout: cfg.RequestTimeout,
	})
	if err != nil {
		return nil, err
	}

	renderer, err := render.NewRenderer()
	if err != nil {
		return nil, err
	}

	db, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	a := &App{
		config:   cfg,
		logger:   log,
		backend:  backend,
		db:       db,
		journal:  journal.New(sqlite.NewActivityRepository(db), log),
		status:   vision.NewStatusCache(backend, cfg.VisionStatusTTL),
		exporter: export.New(cfg.Locale),
		hub:      hub.NewHub(log),
		renderer: renderer,
	}

	if cfg.MetricsEnabled {
		m, err := metrics.NewMetrics()
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		a.metrics = m
		backend.SetObserver(m.ObserveBackend)
		a.hub.OnCount(m.SetWebsocketClients)
	}

	a.sessions = session.NewStore(cfg.SessionTTL, a.newState)
	a.monitor = progress.New(backend, log, func(context.Context) { a.sessions.MarkStale() }, cfg.RefreshDelay)
	a.monitor.Subscribe(a.hub.BroadcastSnapshot)
	a.monitor.Subscribe(a.downloadFinished)
	if a.metrics != nil {
		a.sessions.OnChange(a.metrics.SetActiveSessions)
	}

	return a, nil
}

// newState creates the dashboard of a new browser session.
func (a *App) newState() *dashboard.State {
	deps := dashboard.Deps{
		Backend:         a.backend,
		Status:          a.status,
		Downloader:      a.monitor,
		Exporter:        a.exporter,
		Recorder:        a.journal,
		Logger:          a.logger,
		SaveConcurrency: a.config.SaveConcurrency,
	}
	if a.metrics != nil {
		deps.OnSaved = a.metrics.ReferencesSaved
		deps.OnResolved = func(r vision.Resolution) { a.metrics.ReviewResolved(string(r)) }
	}
	return dashboard.New(deps)
}

// downloadFinished records each run once, on its first terminal snapshot.
func (a *App) downloadFinished(s progress.Snapshot) {
	if !s.State.Terminal() || s.Reload {
		return
	}
	if a.metrics != nil {
		a.metrics.DownloadFinished(string(s.State))
	}
	a.journal.Record(context.Background(), model.ActivityDownload, "all", s.Message)
}

// Handler returns the HTTP surface of the dashboard.
func (a *App) Handler() http.Handler {
	return route.SetupRoutes(route.Deps{
		Config:   a.config,
		Logger:   a.logger,
		Renderer: a.renderer,
		Sessions: a.sessions,
		Hub:      a.hub,
		Monitor:  a.monitor,
		Journal:  a.journal,
		Backend:  a.backend.BaseURL(),
		Metrics:  a.metrics,
	})
}

// Run serves until ctx is cancelled, then shuts the server down gracefully.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Start background services
	go a.hub.Run(ctx)

	server := &http.Server{
		Addr:              a.config.Addr(),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	fmt.Printf("📹 Camera Dashboard\n")
	fmt.Printf("📍 URL: http://localhost:%d\n", a.config.Port)
	fmt.Printf("🔌 Backend: %s\n", a.config.BackendURL)
	fmt.Printf("🗄️  Activity: %s\n", a.config.DBPath)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	a.monitor.Close()
	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

// Close releases the database.
func (a *App) Close() error {
	a.sessions.Flush()
	return a.db.Close()
}
