package analytics

import (
	"fmt"
	"net/url"
	"time"
)

// BuildQuery composes the upstream query parameter set for one endpoint
// call: the resolved window as from/to, the timezone, then every extra
// parameter. Extras are applied after the reserved keys, so a caller that
// supplies from/to/timezone inside extras wins (last write). Encoding the
// returned values percent-escapes every key and value.
func BuildQuery(w Window, timezone string, extras map[string]string) url.Values {
	q := url.Values{}
	q.Set("from", fmt.Sprintf("%d", w.From))
	q.Set("to", fmt.Sprintf("%d", w.To))
	q.Set("timezone", ResolveTimezone(timezone))
	for k, v := range extras {
		q.Set(k, v)
	}
	return q
}

// ResolveTimezone prefers a caller-supplied IANA zone name and falls back
// to the zone the process runs in. The fallback is best effort; it can
// differ from what a browser would have sent.
func ResolveTimezone(tz string) string {
	if tz != "" {
		return tz
	}
	if name := time.Local.String(); name != "" && name != "Local" {
		return name
	}
	return "UTC"
}
