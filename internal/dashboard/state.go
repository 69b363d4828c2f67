// Package dashboard holds the state of one browser session and the user
// workflows that change it. Every exported method takes the session lock, so
// two requests of the same user never interleave.
package dashboard

import (
	"context"
	"sync"
	"sync/atomic"

	"camdash/internal/apiclient"
	"camdash/internal/export"
	"camdash/internal/filter"
	"camdash/internal/logger"
	"camdash/internal/modal"
	"camdash/internal/model"
	"camdash/internal/service/progress"
	"camdash/internal/service/vision"
)

// Downloader is the shared download progress monitor.
type Downloader interface {
	Start(ctx context.Context) error
	Close()
	Snapshot() progress.Snapshot
}

// Deps are the collaborators shared by every session.
type Deps struct {
	Backend         apiclient.Backend
	Status          *vision.StatusCache
	Downloader      Downloader
	Exporter        *export.Exporter
	Recorder        vision.Recorder
	Logger          *logger.Logger
	SaveConcurrency int
	OnSaved         func(saved, failed int)
	OnResolved      func(vision.Resolution)
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, model.ActivityKind, string, string) {}

// State is the dashboard of one browser session.
type State struct {
	mu   sync.Mutex
	deps Deps

	cameras   []model.Camera
	stores    []string
	stats     model.Stats
	selection filter.Selection

	modals *modal.Controller
	vision *vision.Panel

	noteTarget *model.Camera
	preview    *model.Camera
	zoomURL    string

	notices []Notification
	loaded  bool
	stale   atomic.Bool
}

// New creates an empty, not yet loaded session state.
func New(deps Deps) *State {
	if deps.Recorder == nil {
		deps.Recorder = nopRecorder{}
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewDiscard()
	}
	if deps.Exporter == nil {
		deps.Exporter = export.New("")
	}

	s := &State{
		deps:      deps,
		selection: filter.Default(),
		modals:    modal.New(),
		vision: vision.NewPanel(deps.Backend, deps.Status, deps.Logger, vision.Options{
			SaveConcurrency: deps.SaveConcurrency,
			Recorder:        deps.Recorder,
			OnSaved:         deps.OnSaved,
			OnResolved:      deps.OnResolved,
		}),
	}

	s.modals.OnClose(modal.Note, func() { s.noteTarget = nil })
	s.modals.OnClose(modal.ImagePreview, func() { s.preview = nil })
	s.modals.OnClose(modal.ImageZoom, func() { s.zoomURL = "" })
	s.modals.OnClose(modal.ReferencePicker, s.vision.CloseCuration)
	s.modals.OnClose(modal.ReferenceViewer, s.vision.CloseViewer)
	s.modals.OnClose(modal.Comparison, s.vision.ClearComparison)
	s.modals.OnClose(modal.ReviewQueue, s.vision.CloseReview)
	s.modals.OnClose(modal.Download, func() {
		if deps.Downloader != nil {
			deps.Downloader.Close()
		}
	})
	return s
}

func (s *State) notify(level Level, text string) {
	s.notices = append(s.notices, Notification{Level: level, Text: text})
}

func (s *State) fail(err error, fallback string) {
	n := Describe(err, fallback)
	if n.Level == LevelError {
		s.deps.Logger.Warning("%s: %v", fallback, err)
	}
	s.notices = append(s.notices, n)
}

// Notify queues a notification for the next render.
func (s *State) Notify(level Level, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notify(level, text)
}

// Drain returns and clears the pending notifications.
func (s *State) Drain() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drain()
}

func (s *State) drain() []Notification {
	out := s.notices
	s.notices = nil
	return out
}

// MarkStale asks for a full reload on the next request. It does not take the
// session lock and is safe to call from any goroutine.
func (s *State) MarkStale() {
	s.stale.Store(true)
}

// Init loads every subsystem in sequence: stores, cameras, stats, vision
// status and the score cache. A failing step is reported and the rest still
// run; previously loaded data of the failing step is kept.
func (s *State) Init(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.init(ctx)
}

func (s *State) init(ctx context.Context) {
	s.loadStores(ctx)
	s.loadCameras(ctx)
	s.loadStats(ctx)
	if _, err := s.vision.CheckStatus(ctx); err != nil {
		s.deps.Logger.Warning("vision status unavailable: %v", err)
	}
	if err := s.vision.LoadScores(ctx); err != nil {
		s.deps.Logger.Warning("score cache unavailable: %v", err)
	}
	s.loaded = true
	s.stale.Store(false)
}

// EnsureLoaded runs Init on first use and after MarkStale.
func (s *State) EnsureLoaded(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded || s.stale.Load() {
		s.init(ctx)
	}
}

func (s *State) loadStores(ctx context.Context) {
	stores, err := s.deps.Backend.Stores(ctx)
	if err != nil {
		s.fail(err, "Failed to load stores")
		return
	}
	s.stores = stores
}

func (s *State) loadCameras(ctx context.Context) bool {
	cameras, err := s.deps.Backend.Cameras(ctx)
	if err != nil {
		s.fail(err, "Failed to load cameras")
		return false
	}
	s.cameras = cameras
	return true
}

func (s *State) loadStats(ctx context.Context) bool {
	stats, err := s.deps.Backend.Stats(ctx)
	if err != nil {
		s.fail(err, "Failed to load statistics")
		return false
	}
	s.stats = stats
	return true
}

// Refresh reloads the camera list and the header counters.
func (s *State) Refresh(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	okCameras := s.loadCameras(ctx)
	okStats := s.loadStats(ctx)
	if okCameras && okStats {
		s.notify(LevelSuccess, "Dashboard updated")
	}
}

// Cameras returns the current camera list.
func (s *State) Cameras() []model.Camera {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cameras
}

// Stats returns the header counters.
func (s *State) Stats() model.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Selection returns the current filter selection.
func (s *State) Selection() filter.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

// Filtered returns the cameras passing the current filters.
func (s *State) Filtered() []model.Camera {
	s.mu.Lock()
	defer s.mu.Unlock()
	return filter.Apply(s.cameras, s.selection, s.vision.Scores())
}

// ApplyFilters replaces the filter selection.
func (s *State) ApplyFilters(sel filter.Selection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = sel
}

// ClearFilters restores the default selection.
func (s *State) ClearFilters() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = filter.Default()
}

// IsOpen reports whether a dialog is open.
func (s *State) IsOpen(k modal.Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modals.IsOpen(k)
}

// CloseModal closes one dialog and drops the state it owned.
func (s *State) CloseModal(k modal.Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modals.Close(k)
}

// CloseAll closes every dialog.
func (s *State) CloseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modals.CloseAll()
}

// camera resolves a card reference, which may be a version id or a base id.
func (s *State) camera(ref string) (model.Camera, bool) {
	if c, ok := model.FindByID(s.cameras, ref); ok {
		return c, true
	}
	return model.FindLatestByBaseID(s.cameras, ref)
}
