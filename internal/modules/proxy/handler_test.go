package proxy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/AngeloGiacco/less-crap-netlify-analytics/internal/config"
	"github.com/AngeloGiacco/less-crap-netlify-analytics/internal/pkg/response"
	"github.com/AngeloGiacco/less-crap-netlify-analytics/internal/upstream"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeFetcher struct {
	lastEndpoint string
	lastQuery    url.Values
	body         json.RawMessage
	err          error
}

func (f *fakeFetcher) Fetch(ctx context.Context, endpoint string, query url.Values) (json.RawMessage, error) {
	f.lastEndpoint = endpoint
	f.lastQuery = query
	if f.err != nil {
		return nil, f.err
	}
	return f.body, nil
}

func newTestRouter(cfg *config.AppConfig, fetcher Fetcher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) { response.MethodNotAllowed(c, http.MethodPost) })

	svc := NewService(fetcher, nil, time.Minute, logger)
	NewHandler(cfg, svc, logger).RegisterRoutes(r.Group("/api"))
	return r
}

func configuredApp() *config.AppConfig {
	return &config.AppConfig{
		Upstream: config.UpstreamConfig{Token: "tok", SiteID: "site"},
	}
}

func postQuery(r *gin.Engine, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestQuerySuccessNormalizesBandwidth(t *testing.T) {
	fetcher := &fakeFetcher{body: json.RawMessage(`{"start":1,"end":2,"siteBandwidth":5}`)}
	r := newTestRouter(configuredApp(), fetcher)

	w := postQuery(r, `{"endpoint":"/bandwidth","timeRange":"7d"}`, map[string]string{TimezoneHeader: "Europe/Paris"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[{"start":1,"end":2,"siteBandwidth":5}]}`, w.Body.String())
	assert.Equal(t, "/bandwidth", fetcher.lastEndpoint)
	assert.Equal(t, "Europe/Paris", fetcher.lastQuery.Get("timezone"))
}

func TestQueryWindowMatchesRange(t *testing.T) {
	fetcher := &fakeFetcher{body: json.RawMessage(`{"data":[]}`)}
	r := newTestRouter(configuredApp(), fetcher)

	w := postQuery(r, `{"endpoint":"/pageviews","timeRange":"7d"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	from := mustInt(t, fetcher.lastQuery.Get("from"))
	to := mustInt(t, fetcher.lastQuery.Get("to"))
	assert.Equal(t, int64(604800000), to-from)
}

func TestQueryPassesLimitParam(t *testing.T) {
	fetcher := &fakeFetcher{body: json.RawMessage(`{"data":[]}`)}
	r := newTestRouter(configuredApp(), fetcher)

	w := postQuery(r, `{"endpoint":"/ranking/sources","params":{"limit":10}}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "10", fetcher.lastQuery.Get("limit"))
}

func TestQueryBadRequests(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"empty object", `{}`},
		{"bogus range", `{"endpoint":"/pageviews","timeRange":"bogus"}`},
		{"unknown endpoint", `{"endpoint":"/admin/secrets"}`},
		{"not json", `{nope`},
		{"bad param type", `{"endpoint":"/pageviews","params":{"limit":[1]}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter(configuredApp(), &fakeFetcher{body: json.RawMessage(`{"data":[]}`)})
			w := postQuery(r, tc.body, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestQueryMethodNotAllowed(t *testing.T) {
	r := newTestRouter(configuredApp(), &fakeFetcher{})

	req := httptest.NewRequest(http.MethodGet, "/api/query", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, http.MethodPost, w.Header().Get("Allow"))
	assert.JSONEq(t, `{"error":"Method Not Allowed"}`, w.Body.String())
}

func TestQueryMissingConfiguration(t *testing.T) {
	cfg := &config.AppConfig{}
	r := newTestRouter(cfg, &fakeFetcher{})

	w := postQuery(r, `{"endpoint":"/pageviews"}`, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Server configuration error"}`, w.Body.String())
}

func TestQueryForwardsUpstreamStatus(t *testing.T) {
	fetcher := &fakeFetcher{err: &upstream.UpstreamError{
		Status:     http.StatusTooManyRequests,
		StatusText: "Too Many Requests",
		Body:       "slow down",
	}}
	r := newTestRouter(configuredApp(), fetcher)

	w := postQuery(r, `{"endpoint":"/visitors"}`, nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	var body struct {
		Error   string `json:"error"`
		Status  int    `json:"status"`
		Details string `json:"details"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Too Many Requests", body.Error)
	assert.Equal(t, http.StatusTooManyRequests, body.Status)
	assert.Equal(t, "slow down", body.Details)
}

func TestQueryUnreachableUpstreamIsGeneric500(t *testing.T) {
	fetcher := &fakeFetcher{err: upstream.ErrUpstreamUnreachable}
	r := newTestRouter(configuredApp(), fetcher)

	w := postQuery(r, `{"endpoint":"/visitors"}`, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal proxy error"}`, w.Body.String())
	assert.NotContains(t, w.Body.String(), "tok")
}

func mustInt(t *testing.T, s string) int64 {
	t.Helper()
	n, err := strconv.ParseInt(s, 10, 64)
	require.NoError(t, err)
	return n
}
