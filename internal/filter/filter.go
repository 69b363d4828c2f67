// Package filter narrows the camera list according to the dashboard filter bar.
package filter

import (
	"net/url"
	"strings"

	"camdash/internal/model"
	"camdash/internal/score"
)

// All is the wildcard value accepted by every selector.
const All = "all"

// Version selector values.
const (
	VersionLatest = "latest"
	VersionAll    = All
)

// Status selector values.
const (
	StatusOK  = "ok"
	StatusBad = "bad"
)

// Selection holds the current value of every filter input.
type Selection struct {
	Version  string
	Store    string
	Quality  string
	Status   string
	Position string
	Search   string
}

// Default is the selection after "clear filters": latest versions, nothing else restricted.
func Default() Selection {
	return Selection{
		Version:  VersionLatest,
		Store:    All,
		Quality:  All,
		Status:   All,
		Position: All,
	}
}

// ParseSelection reads a selection from query or form values. Missing or unknown
// values fall back to the defaults.
func ParseSelection(v url.Values) Selection {
	sel := Default()

	if version := v.Get("version"); version == VersionAll {
		sel.Version = VersionAll
	}
	if store := v.Get("store"); store != "" {
		sel.Store = store
	}
	if quality := v.Get("quality"); quality != "" {
		if _, ok := score.ParseBucket(quality); ok {
			sel.Quality = quality
		}
	}
	switch status := v.Get("status"); status {
	case StatusOK, StatusBad:
		sel.Status = status
	}
	if position := v.Get("position"); position != "" {
		if _, err := model.ParsePosition(position); err == nil {
			sel.Position = position
		}
	}
	sel.Search = strings.TrimSpace(v.Get("q"))

	return sel
}

// Values encodes the selection, omitting defaults, so it can be carried across redirects.
func (s Selection) Values() url.Values {
	v := url.Values{}
	if s.Version == VersionAll {
		v.Set("version", VersionAll)
	}
	if s.Store != "" && s.Store != All {
		v.Set("store", s.Store)
	}
	if s.Quality != "" && s.Quality != All {
		v.Set("quality", s.Quality)
	}
	if s.Status != "" && s.Status != All {
		v.Set("status", s.Status)
	}
	if s.Position != "" && s.Position != All {
		v.Set("position", s.Position)
	}
	if s.Search != "" {
		v.Set("q", s.Search)
	}
	return v
}

// PositionActive reports whether a specific position is selected.
func (s Selection) PositionActive() bool {
	return s.Position != "" && s.Position != All
}

// Apply returns the cameras matching every selector. The input slice is not modified
// and no camera is synthesized; the relative order of the input is preserved.
func Apply(cameras []model.Camera, sel Selection, scores model.ScoreCache) []model.Camera {
	search := strings.ToLower(strings.TrimSpace(sel.Search))

	out := make([]model.Camera, 0, len(cameras))
	for _, c := range cameras {
		if matches(c, sel, scores, search) {
			out = append(out, c)
		}
	}
	return out
}

func matches(c model.Camera, sel Selection, scores model.ScoreCache, search string) bool {
	if sel.Version == VersionLatest && !c.IsLatest {
		return false
	}

	if sel.Store != "" && sel.Store != All && c.Loja != sel.Store {
		return false
	}

	if sel.Quality != "" && sel.Quality != All {
		bucket, ok := score.ParseBucket(sel.Quality)
		if !ok {
			return false
		}
		v, scored := scores.Score(c.BaseID)
		if !score.Matches(bucket, v, scored) {
			return false
		}
	}

	if sel.Status == StatusOK && c.Marked {
		return false
	}
	if sel.Status == StatusBad && !c.Marked {
		return false
	}

	if sel.Position != "" && sel.Position != All && string(c.Position) != sel.Position {
		return false
	}

	// Quick search narrows by store name on top of the store selector.
	if search != "" && !strings.Contains(strings.ToLower(c.Loja), search) {
		return false
	}

	return true
}
