package dashboard

import (
	"time"

	"camdash/internal/filter"
	"camdash/internal/modal"
	"camdash/internal/model"
	"camdash/internal/render"
)

// View projects the state into the page model and consumes the pending
// notifications.
func (s *State) View(now time.Time) render.Page {
	s.mu.Lock()
	defer s.mu.Unlock()

	scores := s.vision.Scores()
	filtered := filter.Apply(s.cameras, s.selection, scores)
	status := s.vision.Status()

	page := render.Page{
		Stats:   render.NewStatsView(s.stats, now),
		Filters: render.NewFilterBar(s.selection, s.stores),
		Grid:    render.BuildGrid(filtered, len(s.cameras), s.selection, scores),
		Vision: render.VisionBar{
			Available:       status.Available,
			ReferencesCount: status.ReferencesCount,
			CanAnalyze:      status.Available && status.ReferencesCount > 0,
		},
		Open:       make(map[modal.Kind]bool),
		ZoomURL:    s.zoomURL,
		Report:     s.vision.Report(),
		Comparison: s.vision.Comparison(),
		Curation:   s.vision.CurationView(),
		Viewer:     s.vision.ViewerView(),
		Review:     s.vision.ReviewQueue(),
		Positions:  model.Positions,
		Query:      s.selection.Values().Encode(),
	}

	for _, k := range s.modals.Active() {
		page.Open[k] = true
	}
	if s.noteTarget != nil {
		page.Note = &render.NoteDialog{
			CameraID: s.noteTarget.ID,
			Label:    s.noteTarget.Label(),
			Note:     s.noteTarget.Note(),
		}
	}
	if s.preview != nil {
		card := render.NewCard(*s.preview, s.selection, scores)
		page.Preview = &card
	}
	if s.deps.Downloader != nil {
		page.Progress = s.deps.Downloader.Snapshot()
	}
	for _, n := range s.drain() {
		page.Notices = append(page.Notices, render.Notice{Level: string(n.Level), Text: n.Text})
	}
	return page
}
