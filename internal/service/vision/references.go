package vision

import (
	"context"
	"fmt"
	"sort"

	"camdash/internal/filter"
	"camdash/internal/model"
)

// Viewer is the reference browser state.
type Viewer struct {
	refs     []model.Reference
	Store    string
	Position string
}

func newViewer() Viewer {
	return Viewer{Store: filter.All, Position: filter.All}
}

// ViewerItem is one saved reference as rendered.
type ViewerItem struct {
	Reference model.Reference
	ImageURL  string
}

// ViewerView is what the reference browser renders.
type ViewerView struct {
	Total    int
	Stores   []string
	Store    string
	Position string
	Items    []ViewerItem
}

// OpenViewer loads the saved references. On failure the previous listing is kept.
func (p *Panel) OpenViewer(ctx context.Context) error {
	idx, err := p.backend.References(ctx)
	if err != nil {
		return fmt.Errorf("failed to load references: %w", err)
	}
	p.viewer = newViewer()
	p.viewer.refs = idx.Flatten()
	return nil
}

// CloseViewer drops the listing.
func (p *Panel) CloseViewer() {
	p.viewer = newViewer()
}

// SetViewerFilter narrows the listing.
func (p *Panel) SetViewerFilter(store, position string) {
	if store == "" {
		store = filter.All
	}
	if position == "" {
		position = filter.All
	}
	p.viewer.Store = store
	p.viewer.Position = position
}

// ViewerView renders the filtered listing.
func (p *Panel) ViewerView() ViewerView {
	v := ViewerView{
		Total:    len(p.viewer.refs),
		Store:    p.viewer.Store,
		Position: p.viewer.Position,
	}
	seen := map[string]bool{}
	for _, ref := range p.viewer.refs {
		if !seen[ref.Loja] {
			seen[ref.Loja] = true
			v.Stores = append(v.Stores, ref.Loja)
		}
		if v.Store != filter.All && ref.Loja != v.Store {
			continue
		}
		if v.Position != filter.All && string(ref.Position) != v.Position {
			continue
		}
		v.Items = append(v.Items, ViewerItem{
			Reference: ref,
			ImageURL:  "/" + model.ReferenceImagePath(ref.Loja, ref.Position),
		})
	}
	sort.Strings(v.Stores)
	return v
}

// DeleteReference removes one reference and drops it from the listing.
func (p *Panel) DeleteReference(ctx context.Context, loja string, position model.Position) error {
	if err := p.backend.DeleteReference(ctx, loja, position); err != nil {
		return fmt.Errorf("failed to delete reference %s - %s: %w", loja, position, err)
	}
	p.forgetReference(loja, position)
	p.opts.Recorder.Record(ctx, model.ActivityReferenceDelete, loja+" - "+string(position), "")
	p.refreshStatus(ctx)
	return nil
}

func (p *Panel) forgetReference(loja string, position model.Position) {
	kept := p.viewer.refs[:0]
	for _, ref := range p.viewer.refs {
		if ref.Loja == loja && ref.Position == position {
			continue
		}
		kept = append(kept, ref)
	}
	p.viewer.refs = kept
}

// ClearReferences removes every reference. The backend drops its score
// cache along with them, so the local copy is emptied too.
func (p *Panel) ClearReferences(ctx context.Context, confirmed bool) (int, error) {
	if !confirmed {
		return 0, ErrNotConfirmed
	}
	deleted, err := p.backend.ClearReferences(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to clear references: %w", err)
	}
	p.viewer.refs = nil
	p.scores = model.ScoreCache{}
	p.opts.Recorder.Record(ctx, model.ActivityReferenceClear, "all", fmt.Sprintf("%d removed", deleted))
	p.refreshStatus(ctx)
	return deleted, nil
}
