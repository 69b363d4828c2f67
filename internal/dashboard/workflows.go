package dashboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"camdash/internal/export"
	"camdash/internal/modal"
	"camdash/internal/model"
	"camdash/internal/service/progress"
)

// BeginMark opens the note dialog for a camera.
func (s *State) BeginMark(ref string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.camera(ref)
	if !ok {
		s.notify(LevelError, "Camera not found")
		return
	}
	s.noteTarget = &c
	s.modals.Open(modal.Note)
}

// SaveNote marks the camera of the open note dialog as bad. On failure the
// dialog stays open so the note is not lost.
func (s *State) SaveNote(ctx context.Context, note string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.noteTarget == nil {
		s.notify(LevelWarning, "No camera selected")
		return
	}
	target := *s.noteTarget
	note = strings.TrimSpace(note)

	// Marks are kept per physical slot, so every version of it shows as marked.
	if err := s.deps.Backend.Mark(ctx, target.BaseID, note); err != nil {
		s.fail(err, "Failed to mark camera")
		return
	}
	s.deps.Recorder.Record(ctx, model.ActivityMark, target.Label(), note)
	s.modals.Close(modal.Note)
	s.notify(LevelSuccess, "Camera marked as bad")
	s.loadCameras(ctx)
	s.loadStats(ctx)
}

// Unmark clears the bad flag of a camera.
func (s *State) Unmark(ctx context.Context, ref string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.camera(ref)
	if !ok {
		s.notify(LevelError, "Camera not found")
		return
	}
	if err := s.deps.Backend.Unmark(ctx, c.BaseID); err != nil {
		s.fail(err, "Failed to unmark camera")
		return
	}
	s.deps.Recorder.Record(ctx, model.ActivityUnmark, c.Label(), "")
	s.notify(LevelSuccess, "Mark removed")
	s.loadCameras(ctx)
	s.loadStats(ctx)
}

// Preview opens the large image dialog of a camera.
func (s *State) Preview(ref string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.camera(ref)
	if !ok {
		s.notify(LevelError, "Camera not found")
		return
	}
	s.preview = &c
	s.modals.Open(modal.ImagePreview)
}

// Zoom opens the full screen viewer on one of our own image URLs.
func (s *State) Zoom(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Only same-origin paths are accepted.
	if !strings.HasPrefix(url, "/") || strings.HasPrefix(url, "//") {
		s.notify(LevelError, "Invalid image")
		return
	}
	s.zoomURL = url
	s.modals.Open(modal.ImageZoom)
}

// Export builds the CSV of marked cameras. It returns the file content and
// name; on failure a notification is queued and the error returned.
func (s *State) Export(ctx context.Context, now time.Time) ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.deps.Backend.ExportMarked(ctx)
	if err != nil {
		s.fail(err, "Failed to export marked cameras")
		return nil, "", err
	}

	var buf bytes.Buffer
	if err := s.deps.Exporter.Write(&buf, rows); err != nil {
		s.fail(err, "Failed to export marked cameras")
		return nil, "", err
	}
	s.deps.Recorder.Record(ctx, model.ActivityExport, "marked", fmt.Sprintf("%d rows", len(rows)))
	return buf.Bytes(), export.FileName(now), nil
}

// StartDownload opens the progress dialog and asks the backend to fetch new
// snapshots. When the backend refuses, the dialog is closed again.
func (s *State) StartDownload(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.deps.Downloader == nil {
		s.notify(LevelError, "Downloads are not available")
		return
	}

	s.modals.Open(modal.Download)
	err := s.deps.Downloader.Start(ctx)
	switch {
	case err == nil:
		s.deps.Recorder.Record(ctx, model.ActivityDownload, "all", "started")
	case errors.Is(err, progress.ErrAlreadyRunning):
		s.notify(LevelInfo, "A download is already in progress")
	case s.deps.Downloader.Snapshot().State == progress.StateErrored:
		// The feed could not be opened; the dialog shows the failure state.
		s.fail(err, "Lost connection to the download progress feed")
	default:
		s.modals.Close(modal.Download)
		s.fail(err, "Failed to start download")
	}
}
