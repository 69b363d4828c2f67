// Package render projects filtered cameras into view models and HTML.
// The view models carry every presentation decision so they can be tested
// without a browser.
package render

import (
	"fmt"
	"sort"

	"camdash/internal/filter"
	"camdash/internal/model"
	"camdash/internal/score"
)

// Grid is the camera area of the dashboard.
type Grid struct {
	Rows []StoreRow
	// ResultsCount is the number of store rows, not the number of cameras.
	ResultsCount int
	// Empty is set when the backend returned no cameras at all.
	Empty bool
	// NoResults is set when cameras exist but none passes the filters.
	NoResults bool
}

// StoreRow holds one store and its three camera slots.
type StoreRow struct {
	Store string
	Slots [3]Slot
}

// Slot is one position column of a store row.
type Slot struct {
	Position    model.Position
	Dimmed      bool
	Highlighted bool
	Card        *Card
}

// Filled reports whether the slot holds a camera.
func (s Slot) Filled() bool {
	return s.Card != nil
}

// BuildGrid groups the filtered cameras by store and position. total is the size of
// the unfiltered camera list and decides between the empty and no-results states.
func BuildGrid(filtered []model.Camera, total int, sel filter.Selection, scores model.ScoreCache) Grid {
	if len(filtered) == 0 {
		return Grid{Empty: total == 0, NoResults: total > 0}
	}

	groups := make(map[string]map[model.Position]model.Camera)
	for _, c := range filtered {
		slots, ok := groups[c.Loja]
		if !ok {
			slots = make(map[model.Position]model.Camera, len(model.Positions))
			groups[c.Loja] = slots
		}
		current, taken := slots[c.Position]
		if !taken || prefer(c, current) {
			slots[c.Position] = c
		}
	}

	stores := make([]string, 0, len(groups))
	for store := range groups {
		stores = append(stores, store)
	}
	sort.Strings(stores)

	grid := Grid{Rows: make([]StoreRow, 0, len(stores))}
	for _, store := range stores {
		row := StoreRow{Store: store}
		for i, pos := range model.Positions {
			slot := Slot{Position: pos}
			if sel.PositionActive() {
				slot.Dimmed = string(pos) != sel.Position
				slot.Highlighted = string(pos) == sel.Position
			}
			if c, ok := groups[store][pos]; ok {
				card := NewCard(c, sel, scores)
				slot.Card = &card
			}
			row.Slots[i] = slot
		}
		grid.Rows = append(grid.Rows, row)
	}
	grid.ResultsCount = len(grid.Rows)

	return grid
}

// prefer decides whether candidate replaces current in a slot. The latest version
// always wins; between two older versions the newer snapshot wins, and equal
// timestamps fall back to the greater id so the outcome never depends on input order.
func prefer(candidate, current model.Camera) bool {
	if candidate.IsLatest != current.IsLatest {
		return candidate.IsLatest
	}
	if candidate.Timestamp != current.Timestamp {
		return candidate.Timestamp > current.Timestamp
	}
	return candidate.ID > current.ID
}

// Badge is a small label over a card image.
type Badge struct {
	Text  string
	Class string
}

// Card is the view model of one camera.
type Card struct {
	ID          string
	BaseID      string
	Store       string
	Position    model.Position
	ImageURL    string
	Alt         string
	Marked      bool
	Note        string
	Updated     string
	PositionTag Badge
	MarkedTag   *Badge
	VersionTag  *Badge
	ScoreTag    *Badge
	OnlineTag   *Badge
	Metadata    []MetadataLine
	CanCompare  bool
	ShowUnmark  bool
	SizeKB      string
}

// MetadataLine is one labelled device attribute.
type MetadataLine struct {
	Label string
	Value string
	Small bool
}

// NewCard builds the card of a camera.
func NewCard(c model.Camera, sel filter.Selection, scores model.ScoreCache) Card {
	card := Card{
		ID:          c.ID,
		BaseID:      c.BaseID,
		Store:       c.Loja,
		Position:    c.Position,
		ImageURL:    "/" + c.Path,
		Alt:         c.Label(),
		Marked:      c.Marked,
		Note:        c.Note(),
		Updated:     c.ModifiedReadable,
		PositionTag: Badge{Text: string(c.Position), Class: "camera-badge"},
		ShowUnmark:  c.Marked,
		SizeKB:      fmt.Sprintf("%.1f KB", c.SizeKB()),
	}

	if c.Marked {
		card.MarkedTag = &Badge{Text: "⚠️ Bad", Class: "camera-badge marked-badge"}
	}

	// Old versions are only flagged when the user asked to see every version.
	if !c.IsLatest && sel.Version == filter.VersionAll {
		card.VersionTag = &Badge{Text: "📚 Old", Class: "camera-badge version-badge"}
	}

	if v, ok := scores.Score(c.BaseID); ok {
		card.ScoreTag = &Badge{Text: score.Format(v), Class: "camera-score " + score.BadgeClass(v)}
		card.CanCompare = true
	}

	if c.Online != nil {
		if *c.Online {
			card.OnlineTag = &Badge{Text: "🟢 Online", Class: "online-badge online"}
		} else {
			card.OnlineTag = &Badge{Text: "🔴 Offline", Class: "online-badge offline"}
		}
	}

	card.Metadata = metadataLines(c.Metadata)

	return card
}

func metadataLines(m *model.Metadata) []MetadataLine {
	if m == nil {
		return nil
	}
	var lines []MetadataLine
	add := func(label, value string, small bool) {
		if value != "" {
			lines = append(lines, MetadataLine{Label: label, Value: value, Small: small})
		}
	}
	add("Place", m.Lugar, false)
	add("Area", m.Area, false)
	add("Local IP", m.IPLocal, false)
	add("Internet IP", m.IPInternet, false)
	add("Version", m.VersaoSistema, false)
	if m.TemperaturaCPU != "" {
		add("CPU", m.TemperaturaCPU+"°C", false)
	}
	add("UUID", m.UUID, true)
	return lines
}
