package vision

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"camdash/internal/filter"
	"camdash/internal/model"
)

// ViewMode selects how the curation picker lays out its candidates.
type ViewMode string

const (
	ViewGrid    ViewMode = "grid"
	ViewByStore ViewMode = "by-store"
)

// ParseViewMode defaults to the flat grid.
func ParseViewMode(s string) ViewMode {
	if ViewMode(s) == ViewByStore {
		return ViewByStore
	}
	return ViewGrid
}

// Curation is the manual reference picker state. It is rebuilt every time
// the picker opens.
type Curation struct {
	candidates []model.Camera
	selected   map[string]bool
	Store      string
	Position   string
	Mode       ViewMode
}

func newCuration() Curation {
	return Curation{
		selected: map[string]bool{},
		Store:    filter.All,
		Position: filter.All,
		Mode:     ViewGrid,
	}
}

// CurationItem is one selectable image.
type CurationItem struct {
	Camera   model.Camera
	Selected bool
	ImageURL string
}

// CurationGroup is one store section in by-store mode.
type CurationGroup struct {
	Store       string
	Items       []CurationItem
	Selected    int
	AllSelected bool
}

// CurationView is what the picker renders.
type CurationView struct {
	Mode          ViewMode
	Stores        []string
	Store         string
	Position      string
	SelectedCount int
	// Items is filled in grid mode, Groups in by-store mode.
	Items  []CurationItem
	Groups []CurationGroup
	Empty  bool
}

// SaveResult counts a manual save batch. Successes are never rolled back.
type SaveResult struct {
	Saved  int
	Failed int
}

// Layout arranges filtered candidates for one view mode.
type Layout func(items []CurationItem) CurationView

var layouts = map[ViewMode]Layout{
	ViewGrid: func(items []CurationItem) CurationView {
		return CurationView{Mode: ViewGrid, Items: items}
	},
	ViewByStore: func(items []CurationItem) CurationView {
		var groups []CurationGroup
		index := map[string]int{}
		for _, it := range items {
			i, ok := index[it.Camera.Loja]
			if !ok {
				i = len(groups)
				index[it.Camera.Loja] = i
				groups = append(groups, CurationGroup{Store: it.Camera.Loja})
			}
			groups[i].Items = append(groups[i].Items, it)
			if it.Selected {
				groups[i].Selected++
			}
		}
		for i := range groups {
			groups[i].AllSelected = groups[i].Selected == len(groups[i].Items)
		}
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].Store < groups[j].Store })
		return CurationView{Mode: ViewByStore, Groups: groups}
	},
}

// OpenCuration starts a fresh selection over the latest image of every slot.
func (p *Panel) OpenCuration(cameras []model.Camera) {
	c := newCuration()
	c.Mode = p.curation.Mode
	for _, cam := range cameras {
		if cam.IsLatest {
			c.candidates = append(c.candidates, cam)
		}
	}
	p.curation = c
}

// CloseCuration forgets the selection.
func (p *Panel) CloseCuration() {
	mode := p.curation.Mode
	p.curation = newCuration()
	p.curation.Mode = mode
}

// Toggle flips one candidate in or out of the selection.
func (p *Panel) Toggle(baseID string) {
	if _, ok := p.candidate(baseID); !ok {
		return
	}
	if p.curation.selected[baseID] {
		delete(p.curation.selected, baseID)
		return
	}
	p.curation.selected[baseID] = true
}

// SelectGroup selects every visible candidate of a store.
func (p *Panel) SelectGroup(store string) {
	for _, cam := range p.visible() {
		if cam.Loja == store {
			p.curation.selected[cam.BaseID] = true
		}
	}
}

// ClearGroup deselects every candidate of a store.
func (p *Panel) ClearGroup(store string) {
	for _, cam := range p.curation.candidates {
		if cam.Loja == store {
			delete(p.curation.selected, cam.BaseID)
		}
	}
}

// SetCurationFilter narrows the visible candidates. The selection is kept.
func (p *Panel) SetCurationFilter(store, position string) {
	if store == "" {
		store = filter.All
	}
	if position == "" {
		position = filter.All
	}
	p.curation.Store = store
	p.curation.Position = position
}

// SetViewMode switches between the flat grid and the per-store layout.
func (p *Panel) SetViewMode(mode ViewMode) {
	p.curation.Mode = mode
}

// SelectedCount is the size of the selection.
func (p *Panel) SelectedCount() int {
	return len(p.curation.selected)
}

// IsSelected reports whether a base id is selected.
func (p *Panel) IsSelected(baseID string) bool {
	return p.curation.selected[baseID]
}

func (p *Panel) candidate(baseID string) (model.Camera, bool) {
	for _, cam := range p.curation.candidates {
		if cam.BaseID == baseID {
			return cam, true
		}
	}
	return model.Camera{}, false
}

func (p *Panel) visible() []model.Camera {
	var out []model.Camera
	for _, cam := range p.curation.candidates {
		if p.curation.Store != filter.All && cam.Loja != p.curation.Store {
			continue
		}
		if p.curation.Position != filter.All && string(cam.Position) != p.curation.Position {
			continue
		}
		out = append(out, cam)
	}
	return out
}

// CurationView renders the picker with the current view mode.
func (p *Panel) CurationView() CurationView {
	visible := p.visible()
	items := make([]CurationItem, 0, len(visible))
	for _, cam := range visible {
		items = append(items, CurationItem{
			Camera:   cam,
			Selected: p.curation.selected[cam.BaseID],
			ImageURL: "/" + cam.Path,
		})
	}

	layout, ok := layouts[p.curation.Mode]
	if !ok {
		layout = layouts[ViewGrid]
	}
	view := layout(items)
	view.Store = p.curation.Store
	view.Position = p.curation.Position
	view.SelectedCount = len(p.curation.selected)
	view.Empty = len(items) == 0

	seen := map[string]bool{}
	for _, cam := range p.curation.candidates {
		if !seen[cam.Loja] {
			seen[cam.Loja] = true
			view.Stores = append(view.Stores, cam.Loja)
		}
	}
	sort.Strings(view.Stores)
	return view
}

// SaveSelection creates one reference per selected candidate, at most
// SaveConcurrency at a time. Saved items leave the selection; failed ones stay
// selected so the user can retry them.
func (p *Panel) SaveSelection(ctx context.Context) (SaveResult, error) {
	if len(p.curation.selected) == 0 {
		return SaveResult{}, ErrNothingSelected
	}

	var targets []model.Camera
	for _, cam := range p.curation.candidates {
		if p.curation.selected[cam.BaseID] {
			targets = append(targets, cam)
		}
	}

	var (
		mu     sync.Mutex
		result SaveResult
		saved  []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.SaveConcurrency)
	for _, cam := range targets {
		g.Go(func() error {
			err := p.backend.SetReference(gctx, cam.Loja, cam.Position, cam.Path)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				p.logger.Warning("saving reference %s failed: %v", cam.Label(), err)
				result.Failed++
				return nil
			}
			result.Saved++
			saved = append(saved, cam.BaseID)
			return nil
		})
	}
	// Per-item failures are counted above, never returned.
	_ = g.Wait()

	for _, id := range saved {
		delete(p.curation.selected, id)
	}
	if p.opts.OnSaved != nil {
		p.opts.OnSaved(result.Saved, result.Failed)
	}
	if result.Saved > 0 {
		p.opts.Recorder.Record(ctx, model.ActivityReferenceSet, "manual",
			fmt.Sprintf("%d saved, %d failed", result.Saved, result.Failed))
		p.refreshStatus(ctx)
	}
	return result, nil
}
