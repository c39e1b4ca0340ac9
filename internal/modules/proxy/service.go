package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/AngeloGiacco/less-crap-netlify-analytics/internal/analytics"
	"go.uber.org/zap"
)

const cacheKeyPrefix = "analytics:query:"

// Fetcher is the slice of the upstream client the service needs.
type Fetcher interface {
	Fetch(ctx context.Context, endpoint string, query url.Values) (json.RawMessage, error)
}

// Cache is the slice of the redis wrapper the service needs. pkgredis.Client
// satisfies it.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Service executes one metric query end to end: resolve the window, build
// the upstream query, call the provider, normalize the body. Normalized
// envelopes are cached in redis keyed by endpoint, symbolic range,
// timezone and extras, so repeated dashboard loads inside the TTL never
// touch the provider.
type Service struct {
	fetcher Fetcher
	cache   Cache
	ttl     time.Duration
	logger  *zap.Logger
}

// NewService wires the query service. cache may be nil (no caching).
func NewService(fetcher Fetcher, cache Cache, ttl time.Duration, logger *zap.Logger) *Service {
	return &Service{fetcher: fetcher, cache: cache, ttl: ttl, logger: logger}
}

// Query returns the normalized envelope for one endpoint and range.
func (s *Service) Query(ctx context.Context, endpoint string, rng analytics.TimeRange, timezone string, extras map[string]string) (json.RawMessage, error) {
	tz := analytics.ResolveTimezone(timezone)
	key := cacheKey(endpoint, rng, tz, extras)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, key); err == nil && cached != "" {
			return json.RawMessage(cached), nil
		}
	}

	window := analytics.Resolve(rng, time.Now())
	query := analytics.BuildQuery(window, tz, extras)

	raw, err := s.fetcher.Fetch(ctx, endpoint, query)
	if err != nil {
		return nil, err
	}
	normalized := analytics.Normalize(endpoint, raw)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, string(normalized), s.ttl); err != nil {
			s.logger.Warn("cache write failed", zap.String("endpoint", endpoint), zap.Error(err))
		}
	}
	return normalized, nil
}

func cacheKey(endpoint string, rng analytics.TimeRange, tz string, extras map[string]string) string {
	keys := make([]string, 0, len(extras))
	for k := range extras {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(cacheKeyPrefix)
	fmt.Fprintf(&b, "%s|%s|%s", endpoint, rng, tz)
	for _, k := range keys {
		fmt.Fprintf(&b, "|%s=%s", k, extras[k])
	}
	return b.String()
}
