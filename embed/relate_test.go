package embed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDot(t *testing.T) {
	assert.Equal(t, 11.0, dot([]float64{1, 2, 3}, []float64{3, 1, 2}))
	assert.Equal(t, 0.0, dot(nil, []float64{1}))
	assert.Equal(t, 3.0, dot([]float64{3, 9}, []float64{1}), "extra dimensions are ignored")
}

func TestRelate(t *testing.T) {
	items := []Item{
		{ID: "1", Title: "fed cuts rates", Vec: []float64{1, 0}},
		{ID: "2", Title: "fed holds rates", Vec: []float64{0.9, 0.1}},
		{ID: "3", Title: "cup final", Vec: []float64{0, 1}},
		{ID: "4", Title: "unembedded", Vec: nil},
	}

	rel := Relate(items, 2)

	// Pairs over the three embedded items: 1-2 (0.9), 1-3 (0), 2-3 (0.1).
	assert.Equal(t, 3, rel.Stats.Items)
	assert.Equal(t, 3, rel.Stats.Pairs)
	assert.InDelta(t, (0.9+0+0.1)/3, rel.Stats.Mean, 1e-9)
	assert.InDelta(t, 0.1, rel.Stats.Median, 1e-9)
	assert.InDelta(t, 0.0, rel.Stats.Min, 1e-9)
	assert.InDelta(t, 0.9, rel.Stats.Max, 1e-9)

	require.Len(t, rel.Neighbors, 2)
	assert.Equal(t, "1", rel.Neighbors[0].AID)
	assert.Equal(t, "2", rel.Neighbors[0].BID)
	assert.InDelta(t, 0.9, rel.Neighbors[0].Score, 1e-9)
	assert.Equal(t, "2", rel.Neighbors[1].AID)
	assert.Equal(t, "3", rel.Neighbors[1].BID)
}

func TestRelateEmpty(t *testing.T) {
	rel := Relate(nil, 0)
	assert.Equal(t, 0, rel.Stats.Pairs)
	assert.Empty(t, rel.Neighbors)

	rel = Relate([]Item{{ID: "1", Vec: []float64{1}}}, 0)
	assert.Equal(t, 1, rel.Stats.Items)
	assert.Equal(t, 0, rel.Stats.Pairs)
}
