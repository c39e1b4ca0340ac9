package proxy

import "encoding/json"

// queryRequest is the inbound body of POST /api/query. TimeRange is a
// pointer so "absent" (defaulted) and "present but bogus" (rejected) can
// be told apart. Params values may be strings or numbers.
type queryRequest struct {
	Endpoint  *string                    `json:"endpoint"`
	Params    map[string]json.RawMessage `json:"params"`
	TimeRange *string                    `json:"timeRange"`
}
