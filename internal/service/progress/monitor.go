// Package progress follows a backend bulk download through its event stream.
package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"camdash/internal/logger"
	"camdash/internal/model"
	"camdash/internal/sse"
)

// State of a download run.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateRunning    State = "running"
	StateDone       State = "done"
	StateErrored    State = "errored"
)

// Terminal reports whether the run is over.
func (s State) Terminal() bool {
	return s == StateDone || s == StateErrored
}

// ErrAlreadyRunning is returned by Start while a run is in flight.
var ErrAlreadyRunning = errors.New("download already in progress")

// Snapshot is what listeners and the dashboard display.
type Snapshot struct {
	State     State  `json:"state"`
	Percent   int    `json:"percent"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
	Success   int    `json:"success"`
	Failed    int    `json:"failed"`
	Current   string `json:"current,omitempty"`
	Message   string `json:"message,omitempty"`
	// Reload is set once the post-download refresh has run.
	Reload bool `json:"reload,omitempty"`
}

// Listener receives every state change.
type Listener func(Snapshot)

// Streamer is the part of the backend the monitor needs.
type Streamer interface {
	StartDownload(ctx context.Context) error
	DownloadStream(ctx context.Context) (io.ReadCloser, error)
}

// Monitor runs at most one download at a time.
type Monitor struct {
	backend      Streamer
	logger       *logger.Logger
	refresh      func(context.Context)
	refreshDelay time.Duration

	// pub serializes snapshot changes with their broadcast so listeners see
	// them in the order they were applied. It is taken before mu.
	pub       sync.Mutex
	mu        sync.Mutex
	snap      Snapshot
	listeners []Listener
	run       *run
}

// run owns one stream. close is idempotent and, once called, no further event
// of the stream is handled.
type run struct {
	body   io.ReadCloser
	cancel context.CancelFunc
	once   sync.Once
	closed chan struct{}
	done   chan struct{}
}

func (r *run) close() bool {
	closedNow := false
	r.once.Do(func() {
		closedNow = true
		close(r.closed)
		r.cancel()
		if r.body != nil {
			_ = r.body.Close()
		}
	})
	return closedNow
}

func (r *run) isClosed() bool {
	select {
	case <-r.closed:
		return true
	default:
		return false
	}
}

// New creates a monitor. refresh runs refreshDelay after a successful run and
// may be nil.
func New(backend Streamer, log *logger.Logger, refresh func(context.Context), refreshDelay time.Duration) *Monitor {
	return &Monitor{
		backend:      backend,
		logger:       log,
		refresh:      refresh,
		refreshDelay: refreshDelay,
		snap:         Snapshot{State: StateIdle},
	}
}

// Subscribe registers a listener for all future snapshots.
func (m *Monitor) Subscribe(fn Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Snapshot returns the current display state.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

// Done is closed when the current run's goroutine has exited, including the
// delayed refresh. It is nil when no run was ever started.
func (m *Monitor) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.run == nil {
		return nil
	}
	return m.run.done
}

// apply stores s and returns the listeners to notify. The caller holds pub
// and mu.
func (m *Monitor) apply(s Snapshot) []Listener {
	m.snap = s
	return append([]Listener(nil), m.listeners...)
}

func broadcast(listeners []Listener, s Snapshot) {
	for _, fn := range listeners {
		fn(s)
	}
}

func (m *Monitor) set(s Snapshot) {
	m.pub.Lock()
	defer m.pub.Unlock()

	m.mu.Lock()
	listeners := m.apply(s)
	m.mu.Unlock()
	broadcast(listeners, s)
}

// setFor applies s only while r is the current run and still open.
func (m *Monitor) setFor(r *run, s Snapshot) bool {
	m.pub.Lock()
	defer m.pub.Unlock()

	m.mu.Lock()
	if m.run != r || r.isClosed() {
		m.mu.Unlock()
		return false
	}
	listeners := m.apply(s)
	m.mu.Unlock()
	broadcast(listeners, s)
	return true
}

// end closes r and applies the snapshot next derives from the current one, as
// one step. It does nothing when r was already closed.
func (m *Monitor) end(r *run, next func(prev Snapshot) Snapshot) bool {
	m.pub.Lock()
	defer m.pub.Unlock()

	m.mu.Lock()
	if !r.close() {
		m.mu.Unlock()
		return false
	}
	s := next(m.snap)
	listeners := m.apply(s)
	m.mu.Unlock()
	broadcast(listeners, s)
	return true
}

// Start asks the backend to begin a download and follows its stream in the
// background. The stream outlives ctx's cancellation; use Close to stop it.
func (m *Monitor) Start(ctx context.Context) error {
	m.pub.Lock()
	m.mu.Lock()
	if m.snap.State == StateConnecting || m.snap.State == StateRunning {
		m.mu.Unlock()
		m.pub.Unlock()
		return ErrAlreadyRunning
	}
	listeners := m.apply(Snapshot{State: StateConnecting})
	m.mu.Unlock()
	broadcast(listeners, Snapshot{State: StateConnecting})
	m.pub.Unlock()

	if err := m.backend.StartDownload(ctx); err != nil {
		m.logger.Warning("download start rejected: %v", err)
		m.set(Snapshot{State: StateIdle})
		return fmt.Errorf("failed to start download: %w", err)
	}

	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	body, err := m.backend.DownloadStream(streamCtx)
	if err != nil {
		cancel()
		m.logger.Error("download stream could not be opened: %v", err)
		m.set(Snapshot{State: StateErrored, Message: "Lost connection to the download progress feed"})
		return fmt.Errorf("failed to open download stream: %w", err)
	}

	r := &run{
		body:   body,
		cancel: cancel,
		closed: make(chan struct{}),
		done:   make(chan struct{}),
	}
	m.pub.Lock()
	m.mu.Lock()
	m.run = r
	listeners = m.apply(Snapshot{State: StateRunning})
	m.mu.Unlock()
	broadcast(listeners, Snapshot{State: StateRunning})
	m.pub.Unlock()

	go m.follow(context.WithoutCancel(ctx), r)
	return nil
}

// Close stops following the stream. It is safe to call any number of times
// and never fires a listener once the run has already ended.
func (m *Monitor) Close() {
	m.mu.Lock()
	r := m.run
	m.mu.Unlock()
	if r == nil {
		return
	}
	idle := func(Snapshot) Snapshot { return Snapshot{State: StateIdle} }
	if m.end(r, idle) {
		m.logger.Info("download monitor dismissed")
	}
}

func (m *Monitor) follow(ctx context.Context, r *run) {
	defer close(r.done)

	dec := sse.NewDecoder(r.body)
	for {
		ev, err := dec.Next()
		if r.isClosed() {
			return
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			m.fail(r, err)
			return
		}

		var msg model.DownloadEvent
		if err := json.Unmarshal([]byte(ev.Data), &msg); err != nil {
			m.logger.Warning("ignoring malformed progress event: %v", err)
			continue
		}

		if msg.Done {
			m.finish(ctx, r, msg)
			return
		}
		m.progress(r, msg)
	}
}

func (m *Monitor) progress(r *run, msg model.DownloadEvent) {
	m.setFor(r, Snapshot{
		State:     StateRunning,
		Percent:   msg.Progress,
		Total:     msg.Total,
		Completed: msg.Completed(),
		Success:   msg.Success,
		Failed:    msg.Failed,
		Current:   msg.Current,
	})
}

func (m *Monitor) fail(r *run, err error) {
	errored := func(prev Snapshot) Snapshot {
		prev.State = StateErrored
		prev.Message = "Lost connection to the download progress feed"
		return prev
	}
	if m.end(r, errored) {
		m.logger.Error("download progress stream failed: %v", err)
	}
}

func (m *Monitor) finish(ctx context.Context, r *run, msg model.DownloadEvent) {
	var final Snapshot
	done := func(prev Snapshot) Snapshot {
		final = Snapshot{
			State:     StateDone,
			Percent:   100,
			Total:     prev.Total,
			Completed: msg.Completed(),
			Success:   msg.Success,
			Failed:    msg.Failed,
			Message:   fmt.Sprintf("Download finished: %d succeeded, %d failed", msg.Success, msg.Failed),
		}
		return final
	}
	if !m.end(r, done) {
		return
	}
	m.logger.Info("download finished: %d ok, %d failed", msg.Success, msg.Failed)

	if m.refresh == nil {
		return
	}
	if m.refreshDelay > 0 {
		t := time.NewTimer(m.refreshDelay)
		defer t.Stop()
		<-t.C
	}
	m.refresh(ctx)

	final.Reload = true
	m.pub.Lock()
	defer m.pub.Unlock()
	m.mu.Lock()
	// A new run may have started while we were waiting.
	if m.run != r || m.snap.State != StateDone {
		m.mu.Unlock()
		return
	}
	listeners := m.apply(final)
	m.mu.Unlock()
	broadcast(listeners, final)
}
