package dashboard

import (
	"context"
	"fmt"

	"camdash/internal/modal"
	"camdash/internal/model"
	"camdash/internal/score"
	"camdash/internal/service/vision"
)

// AutoLearn turns the latest image of every slot into its reference.
func (s *State) AutoLearn(ctx context.Context, confirmed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	learned, err := s.vision.AutoLearn(ctx, confirmed)
	if err != nil {
		s.fail(err, "Failed to learn references")
		return
	}
	s.notify(LevelSuccess, fmt.Sprintf("%d references learned", learned))
}

// Analyze scores every camera against its reference and shows the report.
func (s *State) Analyze(ctx context.Context, mode model.AnalysisMode) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, err := s.vision.AnalyzeAll(ctx, mode)
	if err != nil {
		s.fail(err, "Failed to analyze cameras")
		return
	}
	s.loadCameras(ctx)
	s.notify(LevelSuccess, fmt.Sprintf("Analysis finished: %d cameras analyzed", report.Analyzed))
}

// CloseReport dismisses the analysis report.
func (s *State) CloseReport() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vision.DismissReport()
}

// ReportProblems narrows the grid to the problems bucket of the last report.
func (s *State) ReportProblems() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.vision.DismissReport()
	s.selection.Quality = string(score.Problems)
	s.notify(LevelWarning, "Showing cameras with problems")
}

// OpenReviewFromReport dismisses the report and opens the review queue.
func (s *State) OpenReviewFromReport(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.vision.DismissReport()
	s.openReview(ctx)
}

// Compare scores one camera against its reference and opens the comparison.
func (s *State) Compare(ctx context.Context, ref string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.camera(ref)
	if !ok {
		s.fail(vision.ErrUnknownCamera, "Camera not found")
		return
	}
	if _, err := s.vision.Compare(ctx, c); err != nil {
		s.fail(err, "Failed to compare images")
		return
	}
	s.modals.Open(modal.Comparison)
}

// PromoteComparison makes the compared image the new reference.
func (s *State) PromoteComparison(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cv := s.vision.Comparison()
	if cv == nil {
		s.notify(LevelWarning, "No comparison open")
		return
	}
	if err := s.vision.Promote(ctx, cv.Camera); err != nil {
		s.fail(err, "Failed to save reference")
		return
	}
	s.modals.Close(modal.Comparison)
	s.notify(LevelSuccess, "Reference saved for "+cv.Camera.Label())
}

// OpenCuration opens the manual reference picker.
func (s *State) OpenCuration() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.vision.OpenCuration(s.cameras)
	s.modals.Open(modal.ReferencePicker)
}

// ToggleCuration flips one candidate of the picker.
func (s *State) ToggleCuration(baseID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vision.Toggle(baseID)
}

// CurationGroup selects or clears every visible image of a store.
func (s *State) CurationGroup(store string, selectAll bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if selectAll {
		s.vision.SelectGroup(store)
		return
	}
	s.vision.ClearGroup(store)
}

// FilterCuration narrows the picker. The selection is kept.
func (s *State) FilterCuration(store, position string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vision.SetCurationFilter(store, position)
}

// SetCurationMode switches the picker layout.
func (s *State) SetCurationMode(mode vision.ViewMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vision.SetViewMode(mode)
}

// SaveCuration saves the selected images as references. The picker closes
// once at least one image was saved.
func (s *State) SaveCuration(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.vision.SaveSelection(ctx)
	if err != nil {
		s.fail(err, "Failed to save references")
		return
	}
	switch {
	case res.Failed == 0:
		s.notify(LevelSuccess, fmt.Sprintf("%d references saved", res.Saved))
	case res.Saved == 0:
		s.notify(LevelError, fmt.Sprintf("No reference saved, %d failed", res.Failed))
	default:
		s.notify(LevelWarning, fmt.Sprintf("%d references saved, %d failed", res.Saved, res.Failed))
	}
	if res.Saved > 0 {
		s.modals.Close(modal.ReferencePicker)
	}
}

// OpenViewer lists the saved references.
func (s *State) OpenViewer(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.vision.OpenViewer(ctx); err != nil {
		s.fail(err, "Failed to load references")
		return
	}
	s.modals.Open(modal.ReferenceViewer)
}

// FilterViewer narrows the reference listing.
func (s *State) FilterViewer(store, position string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vision.SetViewerFilter(store, position)
}

// DeleteReference removes the reference of one slot.
func (s *State) DeleteReference(ctx context.Context, loja string, position model.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.vision.DeleteReference(ctx, loja, position); err != nil {
		s.fail(err, "Failed to delete reference")
		return
	}
	s.notify(LevelSuccess, fmt.Sprintf("Reference removed: %s - %s", loja, position))
}

// ClearReferences removes every saved reference.
func (s *State) ClearReferences(ctx context.Context, confirmed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.vision.Status().ReferencesCount == 0 {
		s.notify(LevelInfo, "There are no references to remove")
		return
	}
	deleted, err := s.vision.ClearReferences(ctx, confirmed)
	if err != nil {
		s.fail(err, "Failed to remove references")
		return
	}
	s.modals.Close(modal.ReferenceViewer)
	s.notify(LevelSuccess, fmt.Sprintf("%d references removed", deleted))
}

// OpenReview builds the review queue. An empty queue is reported and the
// dialog stays closed.
func (s *State) OpenReview(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openReview(ctx)
}

func (s *State) openReview(ctx context.Context) {
	n, err := s.vision.OpenReview(ctx, s.cameras)
	if err != nil {
		s.fail(err, "Failed to load the review queue")
		return
	}
	if n == 0 {
		s.notify(LevelSuccess, "No suspicious cameras to review")
		return
	}
	s.modals.Open(modal.ReviewQueue)
}

// Resolve settles one review entry. The dialog closes with the last entry.
func (s *State) Resolve(ctx context.Context, baseID string, r vision.Resolution) {
	s.mu.Lock()
	defer s.mu.Unlock()

	remaining, err := s.vision.Resolve(ctx, baseID, r)
	if err != nil {
		s.fail(err, "Failed to resolve review entry")
		return
	}
	switch r {
	case vision.ResolvePromote:
		s.notify(LevelSuccess, "Reference updated")
	case vision.ResolveDelete:
		s.notify(LevelSuccess, "Reference removed")
	}
	if remaining == 0 && s.modals.IsOpen(modal.ReviewQueue) {
		s.modals.Close(modal.ReviewQueue)
		s.notify(LevelSuccess, "Review finished")
	}
}
