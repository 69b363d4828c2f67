package render

import (
	"fmt"
	"time"

	"camdash/internal/filter"
	"camdash/internal/modal"
	"camdash/internal/model"
	"camdash/internal/score"
	"camdash/internal/service/progress"
	"camdash/internal/service/vision"
)

// Notice is a transient notification shown once at the top of the page.
type Notice struct {
	Level string
	Text  string
}

// StatsView is the header counters block.
type StatsView struct {
	TotalCameras int
	TotalStores  int
	MarkedBad    int
	MarkedOK     int
	LastUpdate   string
	TotalSizeMB  string
}

// NewStatsView formats the backend counters relative to now.
func NewStatsView(s model.Stats, now time.Time) StatsView {
	v := StatsView{
		TotalCameras: s.TotalCameras,
		TotalStores:  s.TotalStores,
		MarkedBad:    s.MarkedBad,
		MarkedOK:     s.MarkedOK,
		LastUpdate:   "Never",
		TotalSizeMB:  fmt.Sprintf("%.1f MB", s.TotalSizeMB),
	}
	if t, ok := s.LastUpdateTime(); ok {
		v.LastUpdate = TimeAgo(t, now)
	}
	return v
}

// TimeAgo renders a past instant the way the header shows the last update.
func TimeAgo(t, now time.Time) string {
	diff := now.Sub(t)
	minutes := int(diff / time.Minute)
	hours := minutes / 60
	days := hours / 24

	switch {
	case minutes < 1:
		return "Just now"
	case minutes < 60:
		return fmt.Sprintf("%d min ago", minutes)
	case hours < 24:
		return fmt.Sprintf("%dh ago", hours)
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	}
	return t.Format("02/01/2006")
}

// Option is one entry of a select input.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// FilterBar is the filter form with its current values.
type FilterBar struct {
	Selection filter.Selection
	Versions  []Option
	Stores    []Option
	Qualities []Option
	Statuses  []Option
	Positions []Option
}

// NewFilterBar builds the select options for the current selection.
func NewFilterBar(sel filter.Selection, stores []string) FilterBar {
	opts := func(current string, pairs ...string) []Option {
		out := make([]Option, 0, len(pairs)/2)
		for i := 0; i+1 < len(pairs); i += 2 {
			out = append(out, Option{Value: pairs[i], Label: pairs[i+1], Selected: pairs[i] == current})
		}
		return out
	}

	bar := FilterBar{
		Selection: sel,
		Versions:  opts(sel.Version, filter.VersionLatest, "Latest only", filter.VersionAll, "All versions"),
		Statuses:  opts(sel.Status, filter.All, "All", filter.StatusOK, "OK", filter.StatusBad, "Marked bad"),
	}

	bar.Stores = append(bar.Stores, Option{Value: filter.All, Label: "All stores", Selected: sel.Store == filter.All})
	for _, s := range stores {
		bar.Stores = append(bar.Stores, Option{Value: s, Label: s, Selected: sel.Store == s})
	}

	bar.Qualities = append(bar.Qualities, Option{Value: filter.All, Label: "All", Selected: sel.Quality == filter.All})
	for _, b := range append(append([]score.Bucket(nil), score.Scored...), score.NotAnalyzed) {
		bar.Qualities = append(bar.Qualities, Option{Value: string(b), Label: b.Label(), Selected: sel.Quality == string(b)})
	}

	bar.Positions = append(bar.Positions, Option{Value: filter.All, Label: "All", Selected: sel.Position == filter.All})
	for _, p := range model.Positions {
		bar.Positions = append(bar.Positions, Option{Value: string(p), Label: string(p), Selected: sel.Position == string(p)})
	}
	return bar
}

// VisionBar is the image comparison toolbar.
type VisionBar struct {
	Available       bool
	ReferencesCount int
	CanAnalyze      bool
}

// NoteDialog is the "mark as bad" form.
type NoteDialog struct {
	CameraID string
	Label    string
	Note     string
}

// Page is everything the dashboard template needs for one render.
type Page struct {
	Stats      StatsView
	Filters    FilterBar
	Grid       Grid
	Vision     VisionBar
	Notices    []Notice
	Open       map[modal.Kind]bool
	Note       *NoteDialog
	Preview    *Card
	ZoomURL    string
	Progress   progress.Snapshot
	Report     *vision.Report
	Comparison *vision.ComparisonView
	Curation   vision.CurationView
	Viewer     vision.ViewerView
	Review     []vision.ReviewEntry
	Positions  []model.Position
	// Query is the encoded filter selection carried by every form.
	Query string
}

// IsOpen is used by the template to toggle dialogs.
func (p Page) IsOpen(kind string) bool {
	return p.Open[modal.Kind(kind)]
}

// ProgressActive reports whether the download dialog should show a live bar.
func (p Page) ProgressActive() bool {
	return p.Progress.State == progress.StateConnecting || p.Progress.State == progress.StateRunning
}
