package vision

import (
	"sort"

	"camdash/internal/model"
	"camdash/internal/score"
)

// BucketCount is one tile of the analysis report.
type BucketCount struct {
	Bucket score.Bucket
	Label  string
	Count  int
}

// Report summarises a batch analysis. It uses the same buckets as the
// camera filter so that "filter to problems" shows the cameras counted here.
type Report struct {
	Mode     model.AnalysisMode
	Analyzed int
	Skipped  int
	Buckets  []BucketCount
	// Critical and Problems list the affected slots, worst first.
	Critical []model.AnalysisResult
	Problems []model.AnalysisResult
	// Suspicious counts results below the good threshold.
	Suspicious int
	// Issues counts results in the problems and critical buckets.
	Issues         int
	SkippedDetails []model.SkippedAnalysis
}

// NewReport classifies every result of a batch analysis.
func NewReport(mode model.AnalysisMode, summary model.AnalysisSummary) *Report {
	counts := make(map[score.Bucket]int, len(score.Scored))
	r := &Report{
		Mode:           mode,
		Analyzed:       summary.Analyzed,
		Skipped:        summary.Skipped,
		SkippedDetails: summary.SkippedDetails,
	}

	for _, res := range summary.Results {
		b := score.Classify(res.Score)
		counts[b]++
		switch b {
		case score.Critical:
			r.Critical = append(r.Critical, res)
		case score.Problems:
			r.Problems = append(r.Problems, res)
		}
		if score.Suspicious(res.Score) {
			r.Suspicious++
		}
	}

	for _, b := range score.Scored {
		r.Buckets = append(r.Buckets, BucketCount{Bucket: b, Label: b.Label(), Count: counts[b]})
	}
	r.Issues = counts[score.Problems] + counts[score.Critical]

	byScore := func(list []model.AnalysisResult) {
		sort.SliceStable(list, func(i, j int) bool { return list[i].Score < list[j].Score })
	}
	byScore(r.Critical)
	byScore(r.Problems)
	return r
}

// Count returns the tally of one bucket.
func (r *Report) Count(b score.Bucket) int {
	for _, bc := range r.Buckets {
		if bc.Bucket == b {
			return bc.Count
		}
	}
	return 0
}

// AllGood reports whether nothing needs a second look.
func (r *Report) AllGood() bool {
	return r.Suspicious == 0
}
