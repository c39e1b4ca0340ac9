// Package export serializes fetched result sets to CSV. Failures never
// propagate as errors: the exporter reports through the notification side
// channel and simply produces no output, mirroring how the dashboard
// surfaces export problems to the user.
package export

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/AngeloGiacco/less-crap-netlify-analytics/internal/pkg/notify"
)

// Kind selects column order and per-field formatting. It is declared by
// the caller, never inferred from the data.
type Kind string

const (
	KindBandwidth Kind = "bandwidth"
	KindCountries Kind = "countries"
	KindSources   Kind = "sources"
	KindPages     Kind = "pages"
	KindNotFound  Kind = "not_found"
	KindPageViews Kind = "pageviews"
	KindVisitors  Kind = "visitors"
)

// Filename returns the download name for a kind.
func (k Kind) Filename() string { return string(k) + ".csv" }

// Exporter writes kind-shaped CSVs.
type Exporter struct {
	notifier notify.Notifier
}

func New(notifier notify.Notifier) *Exporter {
	return &Exporter{notifier: notifier}
}

// Export serializes records into w and reports the outcome through the
// notifier. records is decoded JSON: a bare array, a {data: [...]}
// envelope, or a one-element array holding such an envelope. The return
// value says whether anything was written; no branch returns an error.
func (e *Exporter) Export(w io.Writer, kind Kind, records interface{}) bool {
	rows := unwrap(records)
	if !exportable(rows) {
		e.notifier.Error("No data to export")
		return false
	}

	csv, ok := serialize(kind, rows)
	if !ok {
		e.notifier.Error("Data is not in an exportable shape")
		return false
	}

	if _, err := io.WriteString(w, csv); err != nil {
		e.notifier.Error("Export failed: could not write " + kind.Filename())
		return false
	}
	e.notifier.Success("Exported " + kind.Filename())
	return true
}

// SaveTo writes <kind>.csv under dir.
func (e *Exporter) SaveTo(dir string, kind Kind, records interface{}) bool {
	path := filepath.Join(dir, kind.Filename())
	f, err := os.Create(path)
	if err != nil {
		e.notifier.Error("Export failed: could not create " + kind.Filename())
		return false
	}
	defer f.Close()
	return e.Export(f, kind, records)
}

// unwrap peels one envelope level: bare envelope, [envelope], or an
// already-bare array.
func unwrap(records interface{}) []interface{} {
	switch v := records.(type) {
	case map[string]interface{}:
		if data, ok := v["data"].([]interface{}); ok {
			return data
		}
		return nil
	case []interface{}:
		if len(v) == 1 {
			if m, ok := v[0].(map[string]interface{}); ok {
				if data, ok := m["data"].([]interface{}); ok {
					return data
				}
			}
		}
		return v
	default:
		return nil
	}
}

// exportable requires a non-empty array whose first element is a non-empty
// object or array.
func exportable(rows []interface{}) bool {
	if len(rows) == 0 {
		return false
	}
	switch first := rows[0].(type) {
	case map[string]interface{}:
		return len(first) > 0
	case []interface{}:
		return len(first) > 0
	default:
		return false
	}
}

func serialize(kind Kind, rows []interface{}) (string, bool) {
	switch kind {
	case KindBandwidth:
		return serializeColumns(rows, []string{"siteBandwidth", "accountBandwidth", "start", "end"}, bandwidthField)
	case KindNotFound, KindSources, KindPages:
		return serializeColumns(rows, []string{"resource", "count"}, plainField)
	case KindCountries:
		columns := []string{"resource", "country_name", "count"}
		if first, ok := rows[0].(map[string]interface{}); ok {
			if _, present := first["country_name"]; !present {
				columns = []string{"resource", "count"}
			}
		}
		return serializeColumns(rows, columns, plainField)
	case KindPageViews, KindVisitors:
		return serializePairs(rows)
	default:
		return serializeFallback(rows)
	}
}

type fieldFormatter func(column string, value interface{}) string

func serializeColumns(rows []interface{}, columns []string, format fieldFormatter) (string, bool) {
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, joinFields(columns))

	for _, row := range rows {
		obj, ok := row.(map[string]interface{})
		if !ok {
			continue
		}
		fields := make([]string, 0, len(columns))
		for _, col := range columns {
			fields = append(fields, format(col, obj[col]))
		}
		lines = append(lines, joinFields(fields))
	}
	return strings.Join(lines, "\n"), true
}

// serializePairs handles the time-series kinds: each record is a
// [timestamp, value] pair whose fields were already rendered by the
// caller; the exporter only joins them.
func serializePairs(rows []interface{}) (string, bool) {
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, joinFields([]string{"Date", "Count"}))

	for _, row := range rows {
		pair, ok := row.([]interface{})
		if !ok || len(pair) < 2 {
			continue
		}
		lines = append(lines, joinFields([]string{plainValue(pair[0]), plainValue(pair[1])}))
	}
	return strings.Join(lines, "\n"), true
}

// serializeFallback is the last resort for array-of-objects data of no
// declared kind. Column order is the sorted key set of the first record:
// Go maps carry no insertion order, so sorting stands in for it.
func serializeFallback(rows []interface{}) (string, bool) {
	first, ok := rows[0].(map[string]interface{})
	if !ok {
		return "", false
	}
	columns := make([]string, 0, len(first))
	for k := range first {
		columns = append(columns, k)
	}
	sort.Strings(columns)
	return serializeColumns(rows, columns, plainField)
}

func plainField(_ string, value interface{}) string { return plainValue(value) }

func bandwidthField(column string, value interface{}) string {
	switch column {
	case "siteBandwidth", "accountBandwidth":
		return HumanBytes(toFloat(value))
	case "start", "end":
		return formatTimestamp(value)
	default:
		return plainValue(value)
	}
}

func formatTimestamp(value interface{}) string {
	f := toFloat(value)
	if math.IsNaN(f) {
		return plainValue(value)
	}
	return time.UnixMilli(int64(f)).Format("1/2/2006, 3:04:05 PM")
}

func plainValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

func toFloat(value interface{}) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return math.NaN()
	}
}

// joinFields escapes and comma-joins one row. A field is quoted when it
// contains a comma or a double quote; embedded quotes are doubled.
func joinFields(fields []string) string {
	escaped := make([]string, len(fields))
	for i, f := range fields {
		if strings.ContainsAny(f, `",`) {
			escaped[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
		} else {
			escaped[i] = f
		}
	}
	return strings.Join(escaped, ",")
}

var byteUnits = []string{"Bytes", "KB", "MB", "GB", "TB", "PB", "EB", "ZB", "YB"}

// HumanBytes renders a byte count with binary (1024-based) units, rounded
// to two decimals. Zero and anything unparseable render as "0 Bytes".
func HumanBytes(bytes float64) string {
	if bytes == 0 || math.IsNaN(bytes) || bytes < 0 {
		return "0 Bytes"
	}
	i := int(math.Floor(math.Log(bytes) / math.Log(1024)))
	if i < 0 {
		i = 0
	}
	if i >= len(byteUnits) {
		i = len(byteUnits) - 1
	}
	value := bytes / math.Pow(1024, float64(i))
	rounded := math.Round(value*100) / 100
	return strconv.FormatFloat(rounded, 'f', -1, 64) + " " + byteUnits[i]
}
