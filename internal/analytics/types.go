package analytics

import "encoding/json"

// Upstream endpoint paths, relative to the site segment of the provider API.
const (
	EndpointPageViews = "/pageviews"
	EndpointVisitors  = "/visitors"
	EndpointCountries = "/ranking/countries"
	EndpointSources   = "/ranking/sources"
	EndpointPages     = "/ranking/pages"
	EndpointNotFound  = "/ranking/not_found"
	EndpointBandwidth = "/bandwidth"
)

// knownEndpoints is the full set of upstream paths the proxy will forward.
// Anything else is rejected before a credentialed call is made.
var knownEndpoints = map[string]struct{}{
	EndpointPageViews: {},
	EndpointVisitors:  {},
	EndpointCountries: {},
	EndpointSources:   {},
	EndpointPages:     {},
	EndpointNotFound:  {},
	EndpointBandwidth: {},
}

// KnownEndpoint reports whether path is one of the supported upstream paths.
func KnownEndpoint(path string) bool {
	_, ok := knownEndpoints[path]
	return ok
}

// Envelope is the uniform response shape every endpoint normalizes into.
// An empty result is {"data": []}, never null and never a missing field.
type Envelope struct {
	Data []json.RawMessage `json:"data"`
}

// EmptyEnvelope returns an envelope holding a non-nil empty slice so it
// marshals as {"data":[]}.
func EmptyEnvelope() Envelope {
	return Envelope{Data: []json.RawMessage{}}
}

// TimeSeriesPoint is one [timestampMillis, count] pair as produced upstream,
// chronological order preserved.
type TimeSeriesPoint [2]int64

// RankingEntry is a row from one of the ranking endpoints. CountryName is
// only populated for the countries endpoint.
type RankingEntry struct {
	Resource    string `json:"resource"`
	Count       int64  `json:"count"`
	CountryName string `json:"country_name,omitempty"`
}

// BandwidthRecord is the single-record payload of the bandwidth endpoint.
type BandwidthRecord struct {
	Start            int64 `json:"start"`
	End              int64 `json:"end"`
	SiteBandwidth    int64 `json:"siteBandwidth"`
	AccountBandwidth int64 `json:"accountBandwidth"`
}
