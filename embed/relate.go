package embed

import (
	"math"
	"sort"
)

// DefaultTopK is how many neighbor pairs Relate keeps by default.
const DefaultTopK = 50

// Item is one embedded event title.
type Item struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	Vec   []float64 `json:"-"`
}

// Neighbor is a pair of events and the dot product of their title vectors.
type Neighbor struct {
	AID    string  `json:"a_id"`
	ATitle string  `json:"a_title"`
	BID    string  `json:"b_id"`
	BTitle string  `json:"b_title"`
	Score  float64 `json:"score"`
}

// Stats summarizes the pairwise similarity distribution.
type Stats struct {
	Items  int     `json:"items"`
	Pairs  int     `json:"pairs"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Std    float64 `json:"std"`
}

// Relation is the relatedness artifact: distribution stats plus the most
// similar event pairs.
type Relation struct {
	Stats     Stats      `json:"stats"`
	Neighbors []Neighbor `json:"neighbors"`
}

// Relate computes dot products over every distinct pair of items and
// returns the topK highest-scoring pairs with distribution stats. Items
// without a vector are skipped.
func Relate(items []Item, topK int) Relation {
	if topK <= 0 {
		topK = DefaultTopK
	}

	embedded := make([]Item, 0, len(items))
	for _, it := range items {
		if len(it.Vec) > 0 {
			embedded = append(embedded, it)
		}
	}

	var pairs []Neighbor
	for i := 0; i < len(embedded); i++ {
		for j := i + 1; j < len(embedded); j++ {
			pairs = append(pairs, Neighbor{
				AID:    embedded[i].ID,
				ATitle: embedded[i].Title,
				BID:    embedded[j].ID,
				BTitle: embedded[j].Title,
				Score:  dot(embedded[i].Vec, embedded[j].Vec),
			})
		}
	}

	rel := Relation{Stats: pairStats(embedded, pairs)}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Score > pairs[j].Score })
	if len(pairs) > topK {
		pairs = pairs[:topK]
	}
	rel.Neighbors = pairs
	return rel
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

func pairStats(embedded []Item, pairs []Neighbor) Stats {
	stats := Stats{Items: len(embedded), Pairs: len(pairs)}
	if len(pairs) == 0 {
		return stats
	}

	scores := make([]float64, len(pairs))
	stats.Min, stats.Max = pairs[0].Score, pairs[0].Score
	var sum float64
	for i, p := range pairs {
		scores[i] = p.Score
		sum += p.Score
		if p.Score < stats.Min {
			stats.Min = p.Score
		}
		if p.Score > stats.Max {
			stats.Max = p.Score
		}
	}
	stats.Mean = sum / float64(len(scores))

	var sq float64
	for _, s := range scores {
		d := s - stats.Mean
		sq += d * d
	}
	stats.Std = math.Sqrt(sq / float64(len(scores)))

	sort.Float64s(scores)
	mid := len(scores) / 2
	if len(scores)%2 == 1 {
		stats.Median = scores[mid]
	} else {
		stats.Median = (scores[mid-1] + scores[mid]) / 2
	}
	return stats
}
