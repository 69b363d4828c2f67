package vision

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"camdash/internal/apiclient"
	"camdash/internal/apiclient/apiclienttest"
	"camdash/internal/logger"
	"camdash/internal/model"
	"camdash/internal/score"
)

var ctx = context.Background()

func cam(loja string, pos model.Position, latest bool) model.Camera {
	base := loja + "_" + string(pos)
	id := base + "_1"
	if latest {
		id = base + "_2"
	}
	return model.Camera{
		ID:       id,
		BaseID:   base,
		Loja:     loja,
		Position: pos,
		Path:     "cameras/" + id + ".jpg",
		IsLatest: latest,
	}
}

type recordedActivity struct {
	kind    model.ActivityKind
	subject string
}

type fakeRecorder struct {
	entries []recordedActivity
}

func (f *fakeRecorder) Record(_ context.Context, kind model.ActivityKind, subject, _ string) {
	f.entries = append(f.entries, recordedActivity{kind, subject})
}

// newPanel returns a panel whose status says vision is available with refs references.
func newPanel(t *testing.T, refs int, opts Options) (*Panel, *apiclienttest.MockBackend) {
	t.Helper()
	backend := &apiclienttest.MockBackend{}
	backend.On("VisionStatus", mock.Anything).
		Return(model.VisionStatus{Available: true, ReferencesCount: refs}, nil).Maybe()

	p := NewPanel(backend, NewStatusCache(backend, time.Minute), logger.NewDiscard(), opts)
	_, err := p.CheckStatus(ctx)
	require.NoError(t, err)
	return p, backend
}

func TestStatusCache(t *testing.T) {
	backend := &apiclienttest.MockBackend{}
	backend.On("VisionStatus", mock.Anything).Return(model.VisionStatus{}, apiclient.ErrUnavailable).Once()
	backend.On("VisionStatus", mock.Anything).Return(model.VisionStatus{Available: true, ReferencesCount: 2}, nil).Twice()

	c := NewStatusCache(backend, time.Minute)

	_, err := c.Get(ctx)
	require.Error(t, err)
	_, ok := c.Peek()
	assert.False(t, ok, "failures are not cached")

	st, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.ReferencesCount)

	_, err = c.Get(ctx)
	require.NoError(t, err)

	c.Invalidate()
	_, err = c.Get(ctx)
	require.NoError(t, err)

	backend.AssertNumberOfCalls(t, "VisionStatus", 3)
}

func TestAutoLearn_Guards(t *testing.T) {
	p, backend := newPanel(t, 0, Options{})

	_, err := p.AutoLearn(ctx, false)
	assert.ErrorIs(t, err, ErrNotConfirmed)

	p.current.Available = false
	_, err = p.AutoLearn(ctx, true)
	assert.ErrorIs(t, err, ErrVisionUnavailable)

	backend.AssertNotCalled(t, "AutoLearn", mock.Anything)
}

func TestAutoLearn_RefreshesStatusAndScores(t *testing.T) {
	rec := &fakeRecorder{}
	p, backend := newPanel(t, 0, Options{Recorder: rec})
	backend.On("AutoLearn", mock.Anything).Return(6, nil).Once()
	backend.On("VisionCache", mock.Anything).Return(model.ScoreCache{"lojaA_P1": {FinalScore: 99}}, nil).Once()

	n, err := p.AutoLearn(ctx, true)

	require.NoError(t, err)
	assert.Equal(t, 6, n)
	_, ok := p.Scores().Score("lojaA_P1")
	assert.True(t, ok)
	backend.AssertNumberOfCalls(t, "VisionStatus", 2)
	require.Len(t, rec.entries, 1)
	assert.Equal(t, model.ActivityAutoLearn, rec.entries[0].kind)
}

func TestAnalyzeAll_Guards(t *testing.T) {
	p, backend := newPanel(t, 0, Options{})

	_, err := p.AnalyzeAll(ctx, model.ModeComplete)
	assert.ErrorIs(t, err, ErrNoReferences)

	p.current.Available = false
	_, err = p.AnalyzeAll(ctx, model.ModeComplete)
	assert.ErrorIs(t, err, ErrVisionUnavailable)

	backend.AssertNotCalled(t, "AnalyzeAll", mock.Anything, mock.Anything)
}

func TestAnalyzeAll_BuildsReport(t *testing.T) {
	p, backend := newPanel(t, 6, Options{})
	summary := model.AnalysisSummary{
		Analyzed: 6,
		Skipped:  1,
		Results: []model.AnalysisResult{
			{Loja: "a", Position: model.P1, Score: 95},
			{Loja: "b", Position: model.P1, Score: 87},
			{Loja: "c", Position: model.P1, Score: 84.9},
			{Loja: "d", Position: model.P1, Score: 70},
			{Loja: "e", Position: model.P1, Score: 60},
			{Loja: "f", Position: model.P1, Score: 10},
		},
		SkippedDetails: []model.SkippedAnalysis{{Loja: "g", Position: model.P2, Reason: "Sem referência"}},
	}
	backend.On("AnalyzeAll", mock.Anything, model.ModeStructural).Return(summary, nil).Once()
	backend.On("VisionCache", mock.Anything).Return(model.ScoreCache{"e_P1": {FinalScore: 60}}, nil).Once()

	report, err := p.AnalyzeAll(ctx, model.ModeStructural)

	require.NoError(t, err)
	assert.Same(t, report, p.Report())
	assert.Equal(t, model.ModeStructural, report.Mode)
	assert.Equal(t, 1, report.Count(score.Excellent))
	assert.Equal(t, 1, report.Count(score.Good))
	assert.Equal(t, 2, report.Count(score.Attention))
	assert.Equal(t, 1, report.Count(score.Problems))
	assert.Equal(t, 1, report.Count(score.Critical))
	assert.Equal(t, 4, report.Suspicious)
	assert.Equal(t, 2, report.Issues)
	assert.False(t, report.AllGood())
	require.Len(t, report.Critical, 1)
	assert.Equal(t, "f", report.Critical[0].Loja)

	total := 0
	for _, b := range report.Buckets {
		total += b.Count
	}
	assert.Equal(t, len(summary.Results), total, "every result lands in exactly one bucket")
	assert.Equal(t, score.Problems, score.Of(p.Scores(), "e_P1"))

	p.DismissReport()
	assert.Nil(t, p.Report())
}

func TestAnalyzeAll_FailureKeepsPreviousReport(t *testing.T) {
	p, backend := newPanel(t, 1, Options{})
	p.report = &Report{Analyzed: 3}
	p.scores = model.ScoreCache{"x": {FinalScore: 1}}
	backend.On("AnalyzeAll", mock.Anything, model.ModeComplete).
		Return(model.AnalysisSummary{}, &apiclient.BackendError{Status: 500}).Once()

	_, err := p.AnalyzeAll(ctx, model.ModeComplete)

	require.Error(t, err)
	assert.Equal(t, 3, p.Report().Analyzed)
	assert.Len(t, p.Scores(), 1)
	backend.AssertNotCalled(t, "VisionCache", mock.Anything)
}

func TestCompare(t *testing.T) {
	p, backend := newPanel(t, 1, Options{})
	a := cam("lojaA", model.P2, true)
	b := cam("lojaB", model.P1, true)
	backend.On("Compare", mock.Anything, "lojaA", model.P2, a.Path).
		Return(model.Comparison{FinalScore: 72.25, SSIMScore: 0.8, Summary: "moved"}, nil).Once()
	backend.On("Compare", mock.Anything, "lojaB", model.P1, b.Path).
		Return(model.Comparison{}, &apiclient.BackendError{Status: 404, Message: "Referência não encontrada"}).Once()
	backend.On("VisionCache", mock.Anything).Return(model.ScoreCache{}, nil).Once()

	view, err := p.Compare(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, "72.2%", view.ScoreText)
	assert.Equal(t, "medium", view.ScoreClass)
	assert.Equal(t, "/data/referencias/lojaA_P2.jpg", view.ReferenceURL)
	assert.Equal(t, "/"+a.Path, view.CurrentURL)

	_, err = p.Compare(ctx, b)
	assert.ErrorIs(t, err, ErrNoReference)
	assert.Same(t, view, p.Comparison(), "a failed comparison keeps the open one")

	p.ClearComparison()
	assert.Nil(t, p.Comparison())
}

func TestPromote(t *testing.T) {
	rec := &fakeRecorder{}
	p, backend := newPanel(t, 1, Options{Recorder: rec})
	c := cam("lojaA", model.P1, true)
	backend.On("SetReference", mock.Anything, "lojaA", model.P1, c.Path).Return(nil).Once()

	require.NoError(t, p.Promote(ctx, c))
	assert.Equal(t, []recordedActivity{{model.ActivityReferenceSet, "lojaA - P1"}}, rec.entries)
	backend.AssertExpectations(t)
}

func TestCuration_SelectionAndLayouts(t *testing.T) {
	p, _ := newPanel(t, 0, Options{})
	cameras := []model.Camera{
		cam("lojaB", model.P1, true),
		cam("lojaA", model.P1, true),
		cam("lojaA", model.P1, false),
		cam("lojaA", model.P2, true),
	}

	p.OpenCuration(cameras)
	view := p.CurationView()
	assert.Equal(t, ViewGrid, view.Mode)
	assert.Len(t, view.Items, 3, "only latest images are candidates")
	assert.Equal(t, []string{"lojaA", "lojaB"}, view.Stores)

	p.Toggle("lojaA_P1")
	p.Toggle("unknown")
	assert.Equal(t, 1, p.SelectedCount())
	p.Toggle("lojaA_P1")
	assert.Zero(t, p.SelectedCount())

	p.SetViewMode(ViewByStore)
	p.SelectGroup("lojaA")
	view = p.CurationView()
	require.Len(t, view.Groups, 2)
	assert.Equal(t, "lojaA", view.Groups[0].Store)
	assert.Equal(t, 2, view.Groups[0].Selected)
	assert.True(t, view.Groups[0].AllSelected)
	assert.False(t, view.Groups[1].AllSelected)
	assert.Empty(t, view.Items)

	p.SetCurationFilter("lojaA", "P2")
	view = p.CurationView()
	require.Len(t, view.Groups, 1)
	require.Len(t, view.Groups[0].Items, 1)
	assert.Equal(t, 2, view.SelectedCount, "filtering keeps hidden selections")

	p.ClearGroup("lojaA")
	assert.Zero(t, p.SelectedCount())

	p.SetCurationFilter("lojaZ", "")
	assert.True(t, p.CurationView().Empty)

	p.OpenCuration(cameras)
	assert.Equal(t, ViewByStore, p.CurationView().Mode, "view mode survives reopening")
	assert.Zero(t, p.SelectedCount())
}

func TestSaveSelection_PartialFailureAndConcurrencyCap(t *testing.T) {
	var saved, failed int
	p, backend := newPanel(t, 0, Options{
		SaveConcurrency: 2,
		OnSaved:         func(s, f int) { saved, failed = s, f },
	})

	var cameras []model.Camera
	for _, loja := range []string{"a", "b", "c", "d", "e"} {
		cameras = append(cameras, cam(loja, model.P1, true))
	}
	p.OpenCuration(cameras)
	for _, c := range cameras {
		p.Toggle(c.BaseID)
	}

	var inFlight, peak atomic.Int32
	track := func(mock.Arguments) {
		n := inFlight.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
	}
	backend.On("SetReference", mock.Anything, "c", model.P1, mock.Anything).Run(track).Return(errors.New("disk full"))
	backend.On("SetReference", mock.Anything, mock.Anything, model.P1, mock.Anything).Run(track).Return(nil)

	res, err := p.SaveSelection(ctx)

	require.NoError(t, err)
	assert.Equal(t, SaveResult{Saved: 4, Failed: 1}, res)
	assert.Equal(t, 4, saved)
	assert.Equal(t, 1, failed)
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, 1, p.SelectedCount(), "only the failed item stays selected")
	assert.True(t, p.IsSelected("c_P1"))
	backend.AssertNumberOfCalls(t, "SetReference", 5)
}

func TestSaveSelection_NothingSelected(t *testing.T) {
	p, backend := newPanel(t, 0, Options{})
	p.OpenCuration([]model.Camera{cam("a", model.P1, true)})

	_, err := p.SaveSelection(ctx)

	assert.ErrorIs(t, err, ErrNothingSelected)
	backend.AssertNotCalled(t, "SetReference", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestViewer(t *testing.T) {
	p, backend := newPanel(t, 3, Options{})
	backend.On("References", mock.Anything).Return(model.ReferenceIndex{
		"lojaB": {"P1": {Path: "x"}},
		"lojaA": {"P2": {Path: "y"}, "P1": {Path: "z"}},
	}, nil).Once()
	backend.On("DeleteReference", mock.Anything, "lojaA", model.P1).Return(nil).Once()
	backend.On("DeleteReference", mock.Anything, "lojaB", model.P1).Return(apiclient.ErrUnavailable).Once()
	backend.On("ClearReferences", mock.Anything).Return(2, nil).Once()

	require.NoError(t, p.OpenViewer(ctx))
	view := p.ViewerView()
	assert.Equal(t, 3, view.Total)
	assert.Equal(t, []string{"lojaA", "lojaB"}, view.Stores)
	assert.Equal(t, "/data/referencias/lojaA_P1.jpg", view.Items[0].ImageURL)

	p.SetViewerFilter("", "P1")
	assert.Len(t, p.ViewerView().Items, 2)

	require.NoError(t, p.DeleteReference(ctx, "lojaA", model.P1))
	assert.Len(t, p.ViewerView().Items, 1)

	require.Error(t, p.DeleteReference(ctx, "lojaB", model.P1))
	assert.Len(t, p.ViewerView().Items, 1, "failed delete keeps the entry")

	_, err := p.ClearReferences(ctx, false)
	assert.ErrorIs(t, err, ErrNotConfirmed)

	p.scores = model.ScoreCache{"lojaB_P1": {FinalScore: 40}}
	n, err := p.ClearReferences(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Zero(t, p.ViewerView().Total)
	assert.Empty(t, p.Scores())
}

func TestViewer_LoadFailureKeepsListing(t *testing.T) {
	p, backend := newPanel(t, 1, Options{})
	p.viewer.refs = []model.Reference{{Loja: "a", Position: model.P1}}
	backend.On("References", mock.Anything).Return(nil, apiclient.ErrUnavailable).Once()

	require.Error(t, p.OpenViewer(ctx))
	assert.Equal(t, 1, p.ViewerView().Total)
}
