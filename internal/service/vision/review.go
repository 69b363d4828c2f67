package vision

import (
	"context"
	"fmt"
	"sort"

	"camdash/internal/model"
	"camdash/internal/score"
)

// Resolution is how a review queue entry is settled.
type Resolution string

const (
	// ResolvePromote replaces the reference with the current image.
	ResolvePromote Resolution = "promote"
	// ResolveKeep keeps the existing reference and only dismisses the entry.
	ResolveKeep Resolution = "keep"
	// ResolveDelete removes the reference of the slot.
	ResolveDelete Resolution = "delete"
)

// ParseResolution validates a resolution name.
func ParseResolution(s string) (Resolution, bool) {
	switch r := Resolution(s); r {
	case ResolvePromote, ResolveKeep, ResolveDelete:
		return r, true
	}
	return "", false
}

// ReviewEntry is one camera whose score suggests a stale reference.
type ReviewEntry struct {
	BaseID       string
	Camera       model.Camera
	Analysis     model.ScoreRecord
	ScoreText    string
	Critical     bool
	CurrentURL   string
	ReferenceURL string
}

// OpenReview rebuilds the queue from a fresh copy of the score cache and
// returns its length. Entries whose camera is no longer listed are skipped.
func (p *Panel) OpenReview(ctx context.Context, cameras []model.Camera) (int, error) {
	cache, err := p.backend.VisionCache(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load score cache: %w", err)
	}
	p.scores = cache

	queue := make([]ReviewEntry, 0)
	for baseID, rec := range cache {
		if !score.NeedsReview(rec.FinalScore) {
			continue
		}
		cam, ok := model.FindLatestByBaseID(cameras, baseID)
		if !ok {
			continue
		}
		queue = append(queue, ReviewEntry{
			BaseID:       baseID,
			Camera:       cam,
			Analysis:     rec,
			ScoreText:    score.Format(rec.FinalScore),
			Critical:     score.Classify(rec.FinalScore) == score.Critical,
			CurrentURL:   "/" + cam.Path,
			ReferenceURL: "/" + model.ReferenceImagePath(cam.Loja, cam.Position),
		})
	}
	sort.Slice(queue, func(i, j int) bool {
		if queue[i].Analysis.FinalScore != queue[j].Analysis.FinalScore {
			return queue[i].Analysis.FinalScore < queue[j].Analysis.FinalScore
		}
		return queue[i].BaseID < queue[j].BaseID
	})
	p.review = queue
	return len(queue), nil
}

// ReviewQueue returns the pending entries.
func (p *Panel) ReviewQueue() []ReviewEntry {
	return p.review
}

// CloseReview empties the queue.
func (p *Panel) CloseReview() {
	p.review = nil
}

// Resolve settles one entry and removes it from the queue. It returns the
// number of entries left. Resolving an entry that is not queued does nothing.
// On a backend failure the entry stays queued.
func (p *Panel) Resolve(ctx context.Context, baseID string, r Resolution) (int, error) {
	idx := -1
	for i, e := range p.review {
		if e.BaseID == baseID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return len(p.review), nil
	}
	entry := p.review[idx]
	cam := entry.Camera

	switch r {
	case ResolvePromote:
		if err := p.backend.SetReference(ctx, cam.Loja, cam.Position, cam.Path); err != nil {
			return len(p.review), fmt.Errorf("failed to promote %s: %w", cam.Label(), err)
		}
		p.opts.Recorder.Record(ctx, model.ActivityReferenceSet, cam.Label(), "review queue")
		p.status.Invalidate()
	case ResolveDelete:
		if err := p.backend.DeleteReference(ctx, cam.Loja, cam.Position); err != nil {
			return len(p.review), fmt.Errorf("failed to delete reference %s: %w", cam.Label(), err)
		}
		p.forgetReference(cam.Loja, cam.Position)
		p.opts.Recorder.Record(ctx, model.ActivityReferenceDelete, cam.Label(), "review queue")
		p.status.Invalidate()
	case ResolveKeep:
		p.opts.Recorder.Record(ctx, model.ActivityReviewKeep, cam.Label(), entry.ScoreText)
	default:
		return len(p.review), fmt.Errorf("unknown resolution %q", r)
	}

	p.review = append(p.review[:idx], p.review[idx+1:]...)
	if p.opts.OnResolved != nil {
		p.opts.OnResolved(r)
	}
	return len(p.review), nil
}
