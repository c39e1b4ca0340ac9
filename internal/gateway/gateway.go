// Package gateway is the dashboard-side client of the proxy: one operation
// per metric, none of which ever fails outward. Failures come back as a
// tagged result with an empty envelope plus one notification, so rendering
// code has a single happy path and can still tell a failure from a
// genuinely empty result.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/AngeloGiacco/less-crap-netlify-analytics/internal/analytics"
	"github.com/AngeloGiacco/less-crap-netlify-analytics/internal/pkg/notify"
)

// Per-metric result limits, matching what the dashboard renders.
const (
	sourcesLimit  = 10
	pagesLimit    = 15
	notFoundLimit = 15
)

// MetricResult is the tagged outcome of one metric fetch. Envelope.Data is
// never nil: on any failure it is empty and Failed carries the reason.
// Stale marks a response that resolved after Invalidate() superseded it;
// callers must discard stale results instead of rendering them.
type MetricResult struct {
	Envelope analytics.Envelope
	Failed   bool
	Reason   string
	Stale    bool
}

// Gateway posts metric queries to the proxy.
type Gateway struct {
	proxyURL   string
	timezone   string
	httpClient *http.Client
	notifier   notify.Notifier
	generation atomic.Int64
}

// New creates a gateway against proxyURL (the server root, no path).
// timezone may be empty; the proxy then falls back to its own zone.
func New(proxyURL, timezone string, notifier notify.Notifier) *Gateway {
	return &Gateway{
		proxyURL:   strings.TrimRight(proxyURL, "/"),
		timezone:   timezone,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		notifier:   notifier,
	}
}

// Invalidate bumps the generation counter. Call it when the user changes
// the time-range selection; every in-flight fetch started before the bump
// comes back marked Stale.
func (g *Gateway) Invalidate() {
	g.generation.Add(1)
}

func (g *Gateway) PageViews(ctx context.Context, rng analytics.TimeRange) MetricResult {
	return g.fetch(ctx, analytics.EndpointPageViews, rng, nil)
}

func (g *Gateway) Visitors(ctx context.Context, rng analytics.TimeRange) MetricResult {
	return g.fetch(ctx, analytics.EndpointVisitors, rng, nil)
}

func (g *Gateway) Countries(ctx context.Context, rng analytics.TimeRange) MetricResult {
	return g.fetch(ctx, analytics.EndpointCountries, rng, nil)
}

func (g *Gateway) Sources(ctx context.Context, rng analytics.TimeRange) MetricResult {
	return g.fetch(ctx, analytics.EndpointSources, rng, map[string]int{"limit": sourcesLimit})
}

func (g *Gateway) Pages(ctx context.Context, rng analytics.TimeRange) MetricResult {
	return g.fetch(ctx, analytics.EndpointPages, rng, map[string]int{"limit": pagesLimit})
}

func (g *Gateway) NotFound(ctx context.Context, rng analytics.TimeRange) MetricResult {
	return g.fetch(ctx, analytics.EndpointNotFound, rng, map[string]int{"limit": notFoundLimit})
}

func (g *Gateway) Bandwidth(ctx context.Context, rng analytics.TimeRange) MetricResult {
	return g.fetch(ctx, analytics.EndpointBandwidth, rng, nil)
}

type queryBody struct {
	Endpoint  string         `json:"endpoint"`
	Params    map[string]int `json:"params,omitempty"`
	TimeRange string         `json:"timeRange,omitempty"`
}

func (g *Gateway) fetch(ctx context.Context, endpoint string, rng analytics.TimeRange, params map[string]int) MetricResult {
	token := g.generation.Load()

	result, reason := g.post(ctx, endpoint, rng, params)
	if reason != "" {
		g.notifier.Error(fmt.Sprintf("Failed to load %s data: %s", strings.TrimPrefix(endpoint, "/"), reason))
		return MetricResult{
			Envelope: analytics.EmptyEnvelope(),
			Failed:   true,
			Reason:   reason,
			Stale:    token != g.generation.Load(),
		}
	}
	return MetricResult{
		Envelope: result,
		Stale:    token != g.generation.Load(),
	}
}

// post does the HTTP round trip and the second-pass validation. It returns
// a non-empty reason instead of an error on any failure.
func (g *Gateway) post(ctx context.Context, endpoint string, rng analytics.TimeRange, params map[string]int) (analytics.Envelope, string) {
	body, err := json.Marshal(queryBody{Endpoint: endpoint, Params: params, TimeRange: string(rng)})
	if err != nil {
		return analytics.EmptyEnvelope(), "could not encode request"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.proxyURL+"/api/query", bytes.NewReader(body))
	if err != nil {
		return analytics.EmptyEnvelope(), "could not build request"
	}
	req.Header.Set("Content-Type", "application/json")
	if g.timezone != "" {
		req.Header.Set("X-Client-Timezone", g.timezone)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return analytics.EmptyEnvelope(), "proxy unreachable"
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return analytics.EmptyEnvelope(), "could not read response"
	}

	if resp.StatusCode != http.StatusOK {
		var failure struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &failure) == nil && failure.Error != "" {
			return analytics.EmptyEnvelope(), fmt.Sprintf("proxy returned %d: %s", resp.StatusCode, failure.Error)
		}
		return analytics.EmptyEnvelope(), fmt.Sprintf("proxy returned %d", resp.StatusCode)
	}

	// Second-pass validation: a 200 body without a data property is as bad
	// as a failed request.
	var probe struct {
		Data *[]json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil || probe.Data == nil {
		return analytics.EmptyEnvelope(), "malformed response body"
	}
	if *probe.Data == nil {
		return analytics.Envelope{Data: []json.RawMessage{}}, ""
	}
	return analytics.Envelope{Data: *probe.Data}, ""
}
