package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"camdash/internal/filter"
	"camdash/internal/model"
)

func camera(id, loja string, pos model.Position, latest bool, ts float64) model.Camera {
	return model.Camera{
		ID:        id,
		BaseID:    loja + "_" + string(pos),
		Loja:      loja,
		Position:  pos,
		Path:      "cameras/" + loja + "/" + id + ".jpg",
		IsLatest:  latest,
		Timestamp: ts,
	}
}

func TestBuildGrid_GroupsByStoreAndPosition(t *testing.T) {
	cameras := []model.Camera{
		camera("b2", "B", model.P2, true, 1),
		camera("a3", "A", model.P3, true, 1),
		camera("a1", "A", model.P1, true, 1),
	}

	grid := BuildGrid(cameras, len(cameras), filter.Default(), nil)

	require.Len(t, grid.Rows, 2)
	assert.Equal(t, 2, grid.ResultsCount, "counter reports stores, not cameras")
	assert.False(t, grid.Empty)
	assert.False(t, grid.NoResults)

	a := grid.Rows[0]
	assert.Equal(t, "A", a.Store)
	assert.True(t, a.Slots[0].Filled())
	assert.False(t, a.Slots[1].Filled())
	assert.True(t, a.Slots[2].Filled())

	b := grid.Rows[1]
	assert.Equal(t, "B", b.Store)
	assert.False(t, b.Slots[0].Filled())
	assert.True(t, b.Slots[1].Filled())
	assert.False(t, b.Slots[2].Filled())

	for i, pos := range model.Positions {
		assert.Equal(t, pos, a.Slots[i].Position)
	}
}

func TestBuildGrid_LatestWinsSlot(t *testing.T) {
	latest := camera("x-new", "X", model.P1, true, 100)
	older := camera("x-old", "X", model.P1, false, 50)

	sel := filter.Default()
	sel.Version = filter.VersionAll

	for _, order := range [][]model.Camera{{latest, older}, {older, latest}} {
		filtered := filter.Apply(order, sel, nil)
		grid := BuildGrid(filtered, len(order), sel, nil)

		require.Len(t, grid.Rows, 1)
		require.True(t, grid.Rows[0].Slots[0].Filled())
		assert.Equal(t, "x-new", grid.Rows[0].Slots[0].Card.ID)
	}
}

func TestBuildGrid_NonLatestTieBreakIsDeterministic(t *testing.T) {
	a := camera("x-1", "X", model.P1, false, 10)
	b := camera("x-2", "X", model.P1, false, 20)
	c := camera("x-3", "X", model.P1, false, 20)

	sel := filter.Default()
	sel.Version = filter.VersionAll

	for _, order := range [][]model.Camera{{a, b, c}, {c, b, a}, {b, a, c}} {
		grid := BuildGrid(order, len(order), sel, nil)
		assert.Equal(t, "x-3", grid.Rows[0].Slots[0].Card.ID, "newest timestamp wins, then greatest id")
	}
}

func TestBuildGrid_EmptyStates(t *testing.T) {
	grid := BuildGrid(nil, 0, filter.Default(), nil)
	assert.True(t, grid.Empty)
	assert.False(t, grid.NoResults)
	assert.Zero(t, grid.ResultsCount)

	grid = BuildGrid(nil, 4, filter.Default(), nil)
	assert.False(t, grid.Empty)
	assert.True(t, grid.NoResults, "filters hid every camera")
	assert.Empty(t, grid.Rows)
}

func TestBuildGrid_PositionFilterDimsOtherSlots(t *testing.T) {
	cameras := []model.Camera{camera("a2", "A", model.P2, true, 1)}

	sel := filter.Default()
	sel.Position = "P2"
	grid := BuildGrid(cameras, 1, sel, nil)

	require.Len(t, grid.Rows, 1)
	slots := grid.Rows[0].Slots
	assert.True(t, slots[0].Dimmed)
	assert.False(t, slots[1].Dimmed)
	assert.True(t, slots[1].Highlighted)
	assert.True(t, slots[2].Dimmed)

	grid = BuildGrid(cameras, 1, filter.Default(), nil)
	for _, s := range grid.Rows[0].Slots {
		assert.False(t, s.Dimmed)
		assert.False(t, s.Highlighted)
	}
}

func TestNewCard_Badges(t *testing.T) {
	online := false
	c := camera("a1-old", "A", model.P1, false, 1)
	c.Marked = true
	c.MarkInfo = &model.MarkInfo{Note: "lens covered"}
	c.Online = &online
	c.Metadata = &model.Metadata{Lugar: "Entrance", TemperaturaCPU: "51"}

	scores := model.ScoreCache{"A_P1": {FinalScore: 72.25}}

	sel := filter.Default()
	sel.Version = filter.VersionAll
	card := NewCard(c, sel, scores)

	require.NotNil(t, card.MarkedTag)
	require.NotNil(t, card.VersionTag)
	require.NotNil(t, card.ScoreTag)
	require.NotNil(t, card.OnlineTag)
	assert.Equal(t, "72.2%", card.ScoreTag.Text)
	assert.Contains(t, card.ScoreTag.Class, "medium")
	assert.Contains(t, card.OnlineTag.Class, "offline")
	assert.True(t, card.CanCompare)
	assert.True(t, card.ShowUnmark)
	assert.Equal(t, "lens covered", card.Note)
	assert.Equal(t, "/cameras/A/a1-old.jpg", card.ImageURL)
	assert.Equal(t, []MetadataLine{
		{Label: "Place", Value: "Entrance"},
		{Label: "CPU", Value: "51°C"},
	}, card.Metadata)

	card = NewCard(c, filter.Default(), nil)
	assert.Nil(t, card.VersionTag, "old-version badge only shows when every version is listed")
	assert.Nil(t, card.ScoreTag)
	assert.False(t, card.CanCompare)
}

func TestNewCard_UnknownOnlineState(t *testing.T) {
	card := NewCard(camera("a1", "A", model.P1, true, 1), filter.Default(), nil)
	assert.Nil(t, card.OnlineTag)
	assert.Nil(t, card.MarkedTag)
	assert.Empty(t, card.Note)
}
