package client

import (
	"context"
	"net/url"
)

// DefaultEventPageSize is the largest page Gamma serves for /events.
const DefaultEventPageSize = 500

// ListEventsParams mirrors the documented /events query parameters. Zero
// values are omitted from the request; tri-state flags use *bool (see Bool).
type ListEventsParams struct {
	Limit         int
	Offset        int
	Order         string
	Ascending     *bool
	IDs           []string
	TagID         int
	ExcludeTagIDs []int
	Slugs         []string
	TagSlug       string
	RelatedTags   *bool
	Active        *bool
	Archived      *bool
	Featured      *bool
	CYOM          *bool
	IncludeChat   *bool
	IncludeTemplate *bool
	Recurrence    string
	Closed        *bool
	LiquidityMin  float64
	LiquidityMax  float64
	VolumeMin     float64
	VolumeMax     float64
	StartDateMin  string
	StartDateMax  string
	EndDateMin    string
	EndDateMax    string

	// OmitMarkets skips parsing embedded markets, which also avoids the
	// per-token history lookups they trigger under an as-of reference.
	OmitMarkets bool
}

func (p ListEventsParams) query() url.Values {
	q := newQuery()
	q.setInt("limit", p.Limit)
	q.setInt("offset", p.Offset)
	q.set("order", p.Order)
	q.setBool("ascending", p.Ascending)
	q.setRepeated("id", p.IDs)
	q.setInt("tag_id", p.TagID)
	q.setRepeatedInts("exclude_tag_id", p.ExcludeTagIDs)
	q.setRepeated("slug", p.Slugs)
	q.set("tag_slug", p.TagSlug)
	q.setBool("related_tags", p.RelatedTags)
	q.setBool("active", p.Active)
	q.setBool("archived", p.Archived)
	q.setBool("featured", p.Featured)
	q.setBool("cyom", p.CYOM)
	q.setBool("include_chat", p.IncludeChat)
	q.setBool("include_template", p.IncludeTemplate)
	q.set("recurrence", p.Recurrence)
	q.setBool("closed", p.Closed)
	q.setFloat("liquidity_min", p.LiquidityMin)
	q.setFloat("liquidity_max", p.LiquidityMax)
	q.setFloat("volume_min", p.VolumeMin)
	q.setFloat("volume_max", p.VolumeMax)
	q.set("start_date_min", p.StartDateMin)
	q.set("start_date_max", p.StartDateMax)
	q.set("end_date_min", p.EndDateMin)
	q.set("end_date_max", p.EndDateMax)
	return q.Values
}

func (c *Client) listEventsRaw(ctx context.Context, params ListEventsParams) ([]map[string]any, error) {
	v, err := c.getAny(ctx, c.gammaBase, "/events", params.query(), nil)
	if err != nil {
		return nil, err
	}
	return asObjectList(v), nil
}

// ListEvents fetches one page of events. Under an as-of reference, events
// created after the reference are dropped from the result.
func (c *Client) ListEvents(ctx context.Context, params ListEventsParams) ([]Event, error) {
	rows, err := c.listEventsRaw(ctx, params)
	if err != nil {
		return nil, err
	}
	return c.eventsFromRows(ctx, rows, params.OmitMarkets)
}

// ListAllEvents pages through /events until a page comes back shorter than
// the page size. A full page always triggers another request; server-side
// totals are never consulted. Page length is judged before as-of filtering
// so a historical reference cannot cut the walk short.
func (c *Client) ListAllEvents(ctx context.Context, params ListEventsParams) ([]Event, error) {
	pageSize := params.Limit
	if pageSize <= 0 {
		pageSize = DefaultEventPageSize
	}
	params.Limit = pageSize
	offset := params.Offset

	var all []Event
	for {
		params.Offset = offset
		rows, err := c.listEventsRaw(ctx, params)
		if err != nil {
			return nil, err
		}
		events, err := c.eventsFromRows(ctx, rows, params.OmitMarkets)
		if err != nil {
			return nil, err
		}
		all = append(all, events...)
		if len(rows) < pageSize {
			return all, nil
		}
		offset += pageSize
	}
}

func (c *Client) eventsFromRows(ctx context.Context, rows []map[string]any, omitMarkets bool) ([]Event, error) {
	rows = filterVisible(c.asOf, rows, eventCreatedKeys)
	events := make([]Event, 0, len(rows))
	for _, raw := range rows {
		ev, err := c.eventFromRaw(ctx, raw, !omitMarkets)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

// GetEvent fetches a single event by id, with markets parsed in. Missing or
// not-yet-visible events come back nil, not as an error.
func (c *Client) GetEvent(ctx context.Context, eventID string) (*Event, error) {
	return c.getEvent(ctx, "/events/"+url.PathEscape(eventID))
}

// GetEventBySlug fetches a single event by slug.
func (c *Client) GetEventBySlug(ctx context.Context, slug string) (*Event, error) {
	return c.getEvent(ctx, "/events/slug/"+url.PathEscape(slug))
}

func (c *Client) getEvent(ctx context.Context, path string) (*Event, error) {
	v, err := c.getAny(ctx, c.gammaBase, path, nil, nil)
	if err != nil {
		return nil, err
	}
	raw := asObject(v)
	if raw == nil || !visible(c.asOf, raw, eventCreatedKeys) {
		return nil, nil
	}
	ev, err := c.eventFromRaw(ctx, raw, true)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// EventMarkets returns the event's markets, re-fetching the event when they
// were not parsed in.
func (c *Client) EventMarkets(ctx context.Context, event *Event) ([]Market, error) {
	if event == nil {
		return nil, nil
	}
	if event.Markets != nil {
		return event.Markets, nil
	}
	fetched, err := c.GetEvent(ctx, event.ID)
	if err != nil || fetched == nil {
		return nil, err
	}
	return fetched.Markets, nil
}
