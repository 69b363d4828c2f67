// Package vision drives the reference-image workflows of the dashboard:
// learning references, batch analysis, single comparisons, manual curation,
// the reference viewer and the review queue.
//
// A Panel belongs to one dashboard session and is not safe for concurrent
// use; the session serialises access. Every backend failure leaves the
// panel's state as it was before the call.
package vision

import (
	"context"
	"errors"
	"fmt"

	"camdash/internal/apiclient"
	"camdash/internal/logger"
	"camdash/internal/model"
	"camdash/internal/score"
)

var (
	ErrVisionUnavailable = errors.New("image comparison is not available")
	ErrNotConfirmed      = errors.New("auto-learn requires confirmation")
	ErrNoReferences      = errors.New("no references saved yet")
	ErrNoReference       = errors.New("no reference for this camera")
	ErrNothingSelected   = errors.New("no reference selected")
	ErrUnknownCamera     = errors.New("unknown camera")
)

// Backend is the subset of the API used by the panel.
type Backend interface {
	VisionCache(ctx context.Context) (model.ScoreCache, error)
	AutoLearn(ctx context.Context) (int, error)
	AnalyzeAll(ctx context.Context, mode model.AnalysisMode) (model.AnalysisSummary, error)
	Compare(ctx context.Context, loja string, position model.Position, imagePath string) (model.Comparison, error)
	SetReference(ctx context.Context, loja string, position model.Position, imagePath string) error
	DeleteReference(ctx context.Context, loja string, position model.Position) error
	References(ctx context.Context) (model.ReferenceIndex, error)
	ClearReferences(ctx context.Context) (int, error)
}

// Recorder is told about reference mutations for the activity journal and metrics.
type Recorder interface {
	Record(ctx context.Context, kind model.ActivityKind, subject, detail string)
}

// Options tunes a Panel.
type Options struct {
	SaveConcurrency int
	Recorder        Recorder
	// OnSaved is called after a manual save batch with its counts.
	OnSaved func(saved, failed int)
	// OnResolved is called for every resolved review queue entry.
	OnResolved func(Resolution)
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, model.ActivityKind, string, string) {}

// Panel holds the vision state of one session.
type Panel struct {
	backend Backend
	status  *StatusCache
	logger  *logger.Logger
	opts    Options

	current model.VisionStatus
	scores  model.ScoreCache

	report     *Report
	comparison *ComparisonView
	curation   Curation
	viewer     Viewer
	review     []ReviewEntry
}

// NewPanel creates a panel sharing the given status cache.
func NewPanel(backend Backend, status *StatusCache, log *logger.Logger, opts Options) *Panel {
	if opts.SaveConcurrency < 1 {
		opts.SaveConcurrency = 1
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	return &Panel{
		backend:  backend,
		status:   status,
		logger:   log,
		opts:     opts,
		scores:   model.ScoreCache{},
		curation: newCuration(),
		viewer:   newViewer(),
	}
}

// CheckStatus refreshes the capability flag, from the shared cache when fresh.
func (p *Panel) CheckStatus(ctx context.Context) (model.VisionStatus, error) {
	st, err := p.status.Get(ctx)
	if err != nil {
		return p.current, fmt.Errorf("failed to check vision status: %w", err)
	}
	p.current = st
	return st, nil
}

// refreshStatus drops the shared cache entry and fetches it again. Failures
// keep the previous status.
func (p *Panel) refreshStatus(ctx context.Context) {
	p.status.Invalidate()
	if _, err := p.CheckStatus(ctx); err != nil {
		p.logger.Warning("vision status refresh failed: %v", err)
	}
}

// Status is the last known capability flag.
func (p *Panel) Status() model.VisionStatus {
	return p.current
}

// Available reports whether vision actions should be enabled.
func (p *Panel) Available() bool {
	return p.current.Available
}

// Scores is the local copy of the backend score cache.
func (p *Panel) Scores() model.ScoreCache {
	return p.scores
}

// LoadScores replaces the local score cache wholesale.
func (p *Panel) LoadScores(ctx context.Context) error {
	cache, err := p.backend.VisionCache(ctx)
	if err != nil {
		return fmt.Errorf("failed to load score cache: %w", err)
	}
	p.scores = cache
	return nil
}

// AutoLearn turns the latest image of every slot into its reference.
func (p *Panel) AutoLearn(ctx context.Context, confirmed bool) (int, error) {
	if !confirmed {
		return 0, ErrNotConfirmed
	}
	if !p.Available() {
		return 0, ErrVisionUnavailable
	}

	learned, err := p.backend.AutoLearn(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to learn references: %w", err)
	}
	p.opts.Recorder.Record(ctx, model.ActivityAutoLearn, "all", fmt.Sprintf("%d references learned", learned))

	p.refreshStatus(ctx)
	if err := p.LoadScores(ctx); err != nil {
		p.logger.Warning("score cache reload after auto-learn failed: %v", err)
	}
	return learned, nil
}

// AnalyzeAll runs a batch analysis and keeps its report for display. The
// caller refreshes the camera list afterwards.
func (p *Panel) AnalyzeAll(ctx context.Context, mode model.AnalysisMode) (*Report, error) {
	if !p.Available() {
		return nil, ErrVisionUnavailable
	}
	if p.current.ReferencesCount == 0 {
		return nil, ErrNoReferences
	}

	summary, err := p.backend.AnalyzeAll(ctx, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze cameras: %w", err)
	}
	if err := p.LoadScores(ctx); err != nil {
		p.logger.Warning("score cache reload after analysis failed: %v", err)
	}

	p.report = NewReport(mode, summary)
	p.opts.Recorder.Record(ctx, model.ActivityAnalyze, string(mode),
		fmt.Sprintf("%d analyzed, %d skipped, %d issues", summary.Analyzed, summary.Skipped, p.report.Issues))
	return p.report, nil
}

// Report is the last analysis report, nil once dismissed.
func (p *Panel) Report() *Report {
	return p.report
}

// DismissReport clears the transient analysis report.
func (p *Panel) DismissReport() {
	p.report = nil
}

// ComparisonView is a side-by-side comparison of a camera with its reference.
type ComparisonView struct {
	Camera       model.Camera
	Result       model.Comparison
	ScoreText    string
	ScoreClass   string
	CurrentURL   string
	ReferenceURL string
}

// Compare scores one camera against its reference.
func (p *Panel) Compare(ctx context.Context, cam model.Camera) (*ComparisonView, error) {
	if !p.Available() {
		return nil, ErrVisionUnavailable
	}

	res, err := p.backend.Compare(ctx, cam.Loja, cam.Position, cam.Path)
	if err != nil {
		if apiclient.IsNotFound(err) && apiclient.Message(err) == referenceNotFound {
			return nil, ErrNoReference
		}
		return nil, fmt.Errorf("failed to compare %s: %w", cam.Label(), err)
	}

	p.comparison = &ComparisonView{
		Camera:       cam,
		Result:       res,
		ScoreText:    score.Format(res.FinalScore),
		ScoreClass:   score.BadgeClass(res.FinalScore),
		CurrentURL:   "/" + cam.Path,
		ReferenceURL: "/" + model.ReferenceImagePath(cam.Loja, cam.Position),
	}
	if err := p.LoadScores(ctx); err != nil {
		p.logger.Warning("score cache reload after comparison failed: %v", err)
	}
	return p.comparison, nil
}

// referenceNotFound is the backend's message when a slot has no reference.
const referenceNotFound = "Referência não encontrada"

// Comparison is the open comparison, if any.
func (p *Panel) Comparison() *ComparisonView {
	return p.comparison
}

// ClearComparison drops the comparison when its modal closes.
func (p *Panel) ClearComparison() {
	p.comparison = nil
}

// Promote makes the camera's current image the reference of its slot.
func (p *Panel) Promote(ctx context.Context, cam model.Camera) error {
	if err := p.backend.SetReference(ctx, cam.Loja, cam.Position, cam.Path); err != nil {
		return fmt.Errorf("failed to promote %s: %w", cam.Label(), err)
	}
	p.opts.Recorder.Record(ctx, model.ActivityReferenceSet, cam.Label(), cam.Path)
	p.refreshStatus(ctx)
	return nil
}
