// Package upstream is the only place the analytics provider credential
// lives. It issues authenticated calls against the provider API and maps
// failures into a small taxonomy the proxy handler can translate to HTTP.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrUpstreamUnreachable marks transport-level failures: DNS, refused
// connections, timeouts. It never carries provider response detail.
var ErrUpstreamUnreachable = errors.New("upstream unreachable")

// UpstreamError is a non-2xx response from the provider. Body is captured
// as raw text because the provider does not always answer with JSON.
type UpstreamError struct {
	Status     int
	StatusText string
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned %d %s", e.Status, e.StatusText)
}

const maxErrorBodyLen = 4 << 10

// Client calls the analytics provider for one configured site. The token
// is write-once at construction and is never logged or echoed.
type Client struct {
	baseURL    string
	siteID     string
	token      string
	httpClient *http.Client
}

// New builds a provider client. baseURL is the API root without the site
// segment, e.g. https://analytics.services.netlify.com/v2.
func New(baseURL, siteID, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		siteID:     siteID,
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Fetch performs exactly one GET against the given endpoint with the given
// query and returns the raw JSON body on any 2xx. Retry policy, if wanted,
// belongs to the caller.
func (c *Client) Fetch(ctx context.Context, endpoint string, query url.Values) (json.RawMessage, error) {
	u := fmt.Sprintf("%s/%s%s?%s", c.baseURL, url.PathEscape(c.siteID), endpoint, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))
		return nil, &UpstreamError{
			Status:     resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
			Body:       string(snippet),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upstream body: %w", err)
	}
	return json.RawMessage(body), nil
}
