package scoring

import "context"

// Event is the slice of an event summary that scoring needs.
type Event struct {
	ID     string
	Title  string
	Volume float64
}

// ScoreEvents scores every event that clears the volume threshold and has
// no score yet, and returns existing merged with the new results. Events
// with no reported volume are scored; only a known volume below minVolume
// excludes one. The input map is not modified.
func (s *Scorer) ScoreEvents(ctx context.Context, events []Event, existing map[string]int, minVolume float64) map[string]int {
	merged := make(map[string]int, len(existing)+len(events))
	for id, score := range existing {
		merged[id] = score
	}

	ids := make([]string, 0, len(events))
	titles := make([]string, 0, len(events))
	for _, ev := range events {
		if ev.Volume > 0 && ev.Volume < minVolume {
			continue
		}
		if _, done := merged[ev.ID]; done {
			continue
		}
		ids = append(ids, ev.ID)
		titles = append(titles, ev.Title)
	}
	if len(titles) == 0 {
		return merged
	}

	s.logger.Info("scoring events", "count", len(titles), "min_volume", minVolume)
	scores := s.ScoreTitles(ctx, titles)
	for i, id := range ids {
		merged[id] = scores[i]
	}
	return merged
}
