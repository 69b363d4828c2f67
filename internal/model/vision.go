package model

import "sort"

// AnalysisMode selects how the backend compares an image with its reference.
type AnalysisMode string

const (
	// ModeComplete detects any change in the scene.
	ModeComplete AnalysisMode = "complete"
	// ModeStructural only considers camera position and angle.
	ModeStructural AnalysisMode = "structural"
)

// ParseAnalysisMode maps user input to a mode, defaulting to ModeComplete.
func ParseAnalysisMode(s string) AnalysisMode {
	if AnalysisMode(s) == ModeStructural {
		return ModeStructural
	}
	return ModeComplete
}

// ScoreRecord is one entry of the backend's analysis cache.
type ScoreRecord struct {
	FinalScore     float64 `json:"final_score"`
	SSIMScore      float64 `json:"ssim_score"`
	HistogramScore float64 `json:"histogram_score"`
	Status         string  `json:"status"`
	Summary        string  `json:"summary"`
	AnalyzedAt     string  `json:"analyzed_at,omitempty"`
}

// ScoreCache maps a camera base id to its latest analysis.
type ScoreCache map[string]ScoreRecord

// Score looks up the final score of a base id.
func (c ScoreCache) Score(baseID string) (float64, bool) {
	if c == nil {
		return 0, false
	}
	rec, ok := c[baseID]
	if !ok {
		return 0, false
	}
	return rec.FinalScore, true
}

// VisionStatus reports whether image comparison is available on the backend.
type VisionStatus struct {
	Available       bool `json:"vision_available"`
	ReferencesCount int  `json:"references_count"`
}

// AnalysisResult is one scored camera of a batch analysis.
type AnalysisResult struct {
	Loja     string   `json:"loja"`
	Position Position `json:"position"`
	Filename string   `json:"filename"`
	Score    float64  `json:"score"`
	Status   string   `json:"status"`
}

// SkippedAnalysis explains why a camera was left out of a batch analysis.
type SkippedAnalysis struct {
	Loja     string   `json:"loja"`
	Position Position `json:"position"`
	Reason   string   `json:"reason"`
}

// AnalysisSummary is the outcome of a batch analysis.
type AnalysisSummary struct {
	Analyzed       int               `json:"analyzed"`
	Skipped        int               `json:"skipped"`
	Results        []AnalysisResult  `json:"results"`
	SkippedDetails []SkippedAnalysis `json:"skipped_details"`
}

// Comparison is the result of scoring one image against its reference.
type Comparison struct {
	FinalScore     float64 `json:"final_score"`
	SSIMScore      float64 `json:"ssim_score"`
	HistogramScore float64 `json:"histogram_score"`
	Status         string  `json:"status"`
	Summary        string  `json:"summary"`
}

// Reference is a saved baseline image for a store slot.
type Reference struct {
	Loja     string   `json:"loja"`
	Position Position `json:"position"`
	Path     string   `json:"path,omitempty"`
	Size     int64    `json:"size,omitempty"`
}

// ReferenceImagePath is where the backend serves the baseline image of a slot.
func ReferenceImagePath(loja string, position Position) string {
	return "data/referencias/" + loja + "_" + string(position) + ".jpg"
}

// ReferenceIndex is the nested store -> position listing returned by the backend.
type ReferenceIndex map[string]map[string]Reference

// Flatten turns the nested listing into a slice ordered by store then position.
func (idx ReferenceIndex) Flatten() []Reference {
	refs := make([]Reference, 0, len(idx))
	for loja, positions := range idx {
		for pos, info := range positions {
			refs = append(refs, Reference{Loja: loja, Position: Position(pos), Path: info.Path, Size: info.Size})
		}
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Loja != refs[j].Loja {
			return refs[i].Loja < refs[j].Loja
		}
		return refs[i].Position < refs[j].Position
	})
	return refs
}
