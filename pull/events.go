package pull

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/marketmole/polymarket-data/client"
)

// PullEvents fetches every Gamma event, drops the excluded slugs, and
// writes the summaries to events.json sorted by creation date descending.
func (p *Puller) PullEvents(ctx context.Context) ([]EventSummary, error) {
	p.logger.Info("pulling events", "run_id", p.runID, "exclude", strings.Join(p.excludeKeywords, ","))

	events, err := p.client.ListAllEvents(ctx, client.ListEventsParams{OmitMarkets: true})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	summaries := make([]EventSummary, 0, len(events))
	for _, ev := range events {
		if p.slugExcluded(ev.Slug) {
			continue
		}
		summaries = append(summaries, summarize(ev))
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return createdKey(summaries[i]) > createdKey(summaries[j])
	})

	path := filepath.Join(p.dataDir, EventsFile)
	if err := WriteJSON(path, summaries); err != nil {
		return nil, err
	}
	p.logger.Info("saved events", "count", len(summaries), "path", path)
	return summaries, nil
}

func (p *Puller) slugExcluded(slug string) bool {
	slug = strings.ToLower(slug)
	for _, kw := range p.excludeKeywords {
		if kw != "" && strings.Contains(slug, kw) {
			return true
		}
	}
	return false
}

func summarize(ev client.Event) EventSummary {
	s := EventSummary{
		ID:     ev.ID,
		Title:  ev.Title,
		Slug:   ev.Slug,
		Volume: ev.Volume,
	}
	if ev.CreatedAt != nil {
		day := ev.CreatedAt.Format("2006-01-02")
		s.CreatedAt = &day
	}
	return s
}

func createdKey(s EventSummary) string {
	if s.CreatedAt == nil {
		return ""
	}
	return *s.CreatedAt
}
