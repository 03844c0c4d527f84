package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// APIError is a non-2xx response from one of the REST bases. 400 and 404
// never become an APIError; they read as empty results.
type APIError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *APIError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("polymarket: status %d from %s: %s", e.StatusCode, e.URL, body)
}

// IsRetryable reports whether a caller-side retry could help: server errors
// and rate limits.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// newAPIError drains an unconsumed non-2xx response into an APIError.
func newAPIError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &APIError{
		StatusCode: resp.StatusCode,
		URL:        resp.Request.URL.String(),
		Body:       string(body),
	}
}

// getJSON issues a GET against base+path and decodes the body into out with
// number fidelity preserved. It reports found=false with no error when the
// endpoint answered 400 or 404, which the upstream APIs use for missing ids.
func (c *Client) getJSON(ctx context.Context, base, path string, query url.Values, headers map[string]string, out any) (bool, error) {
	u := strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, fmt.Errorf("build request for %s: %w", u, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("GET %s: %w", u, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("read response from %s: %w", u, err)
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return false, &APIError{StatusCode: resp.StatusCode, URL: u, Body: string(body)}
	}

	if out == nil {
		return true, nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return false, fmt.Errorf("decode response from %s: %w", u, err)
	}
	return true, nil
}

// getAny is getJSON into an untyped value; missing ids come back as nil.
func (c *Client) getAny(ctx context.Context, base, path string, query url.Values, headers map[string]string) (any, error) {
	var v any
	found, err := c.getJSON(ctx, base, path, query, headers, &v)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return v, nil
}

// asObject narrows an untyped payload to a JSON object, nil otherwise.
func asObject(v any) map[string]any {
	obj, _ := v.(map[string]any)
	return obj
}

// asObjectList narrows an untyped payload to a list of JSON objects.
// Non-object elements are skipped; a non-list payload yields nil.
func asObjectList(v any) []map[string]any {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

// queryBuilder collects query parameters, dropping null/absent values
// entirely instead of serializing them empty.
type queryBuilder struct {
	url.Values
}

func newQuery() queryBuilder {
	return queryBuilder{url.Values{}}
}

func (q queryBuilder) set(key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

func (q queryBuilder) setInt(key string, value int) {
	if value != 0 {
		q.Set(key, strconv.Itoa(value))
	}
}

func (q queryBuilder) setInt64(key string, value int64) {
	if value != 0 {
		q.Set(key, strconv.FormatInt(value, 10))
	}
}

func (q queryBuilder) setFloat(key string, value float64) {
	if value != 0 {
		q.Set(key, strconv.FormatFloat(value, 'f', -1, 64))
	}
}

func (q queryBuilder) setBool(key string, value *bool) {
	if value != nil {
		q.Set(key, strconv.FormatBool(*value))
	}
}

// setRepeated adds one key=value pair per element, the convention Gamma uses
// for multi-valued filters.
func (q queryBuilder) setRepeated(key string, values []string) {
	for _, v := range values {
		q.Add(key, v)
	}
}

func (q queryBuilder) setRepeatedInts(key string, values []int) {
	for _, v := range values {
		q.Add(key, strconv.Itoa(v))
	}
}

// setJoined comma-joins values into a single parameter, the convention the
// Data API uses.
func (q queryBuilder) setJoined(key string, values []string) {
	if len(values) > 0 {
		q.Set(key, strings.Join(values, ","))
	}
}

func (q queryBuilder) setJoinedInts(key string, values []int) {
	if len(values) == 0 {
		return
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	q.Set(key, strings.Join(parts, ","))
}
