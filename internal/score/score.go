// Package score defines the quality buckets shared by the camera filter and the
// vision analysis report. Both must classify a score identically.
package score

import (
	"fmt"

	"camdash/internal/model"
)

// Bucket is a quality class derived from a similarity score in [0, 100].
type Bucket string

const (
	Excellent   Bucket = "excellent"
	Good        Bucket = "good"
	Attention   Bucket = "attention"
	Problems    Bucket = "problems"
	Critical    Bucket = "critical"
	NotAnalyzed Bucket = "not_analyzed"
)

// Lower bounds of each bucket. A bucket spans [its bound, the next higher bound).
const (
	ThresholdExcellent = 90.0
	ThresholdGood      = 85.0
	ThresholdAttention = 70.0
	ThresholdProblems  = 50.0
)

// Scored lists the buckets that hold a score, best first.
var Scored = []Bucket{Excellent, Good, Attention, Problems, Critical}

// Classify returns the single bucket a score belongs to.
func Classify(v float64) Bucket {
	switch {
	case v >= ThresholdExcellent:
		return Excellent
	case v >= ThresholdGood:
		return Good
	case v >= ThresholdAttention:
		return Attention
	case v >= ThresholdProblems:
		return Problems
	default:
		return Critical
	}
}

// Of classifies the cached score of a base id, or NotAnalyzed when there is none.
func Of(cache model.ScoreCache, baseID string) Bucket {
	v, ok := cache.Score(baseID)
	if !ok {
		return NotAnalyzed
	}
	return Classify(v)
}

// Matches reports whether a possibly missing score satisfies a bucket selector.
func Matches(b Bucket, v float64, ok bool) bool {
	if b == NotAnalyzed {
		return !ok
	}
	return ok && Classify(v) == b
}

// ParseBucket validates a bucket name.
func ParseBucket(s string) (Bucket, bool) {
	switch b := Bucket(s); b {
	case Excellent, Good, Attention, Problems, Critical, NotAnalyzed:
		return b, true
	}
	return "", false
}

// Label is the human readable range of a bucket.
func (b Bucket) Label() string {
	switch b {
	case Excellent:
		return "Excellent (≥90%)"
	case Good:
		return "Good (85-89%)"
	case Attention:
		return "Attention (70-84%)"
	case Problems:
		return "Problems (50-69%)"
	case Critical:
		return "Critical (<50%)"
	}
	return "Not analyzed"
}

// BadgeClass buckets a score into the three colours used on cards and comparisons.
func BadgeClass(v float64) string {
	switch {
	case v >= ThresholdGood:
		return "high"
	case v >= ThresholdAttention:
		return "medium"
	default:
		return "low"
	}
}

// NeedsReview reports whether a score belongs in the reference review queue:
// anything in the problems or critical buckets. Negative scores mark failed
// comparisons and are excluded.
func NeedsReview(v float64) bool {
	return v >= 0 && v < ThresholdAttention
}

// Suspicious reports whether a score is below the good threshold.
func Suspicious(v float64) bool {
	return v < ThresholdGood
}

// Format renders a score as a percentage with at most one decimal.
func Format(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d%%", int64(v))
	}
	return fmt.Sprintf("%.1f%%", v)
}
