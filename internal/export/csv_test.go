package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	successes []string
	errors    []string
}

func (n *recordingNotifier) Success(msg string) { n.successes = append(n.successes, msg) }
func (n *recordingNotifier) Error(msg string)   { n.errors = append(n.errors, msg) }

func decode(t *testing.T, raw string) interface{} {
	t.Helper()
	var v interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func exportString(t *testing.T, kind Kind, raw string) (string, *recordingNotifier, bool) {
	t.Helper()
	n := &recordingNotifier{}
	var buf bytes.Buffer
	ok := New(n).Export(&buf, kind, decode(t, raw))
	return buf.String(), n, ok
}

func TestExportBandwidthHumanizesAndStamps(t *testing.T) {
	out, n, ok := exportString(t, KindBandwidth,
		`[{"siteBandwidth":1536,"accountBandwidth":0,"start":0,"end":1000}]`)
	require.True(t, ok)
	require.Len(t, n.successes, 1)

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "siteBandwidth,accountBandwidth,start,end", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "1.5 KB,0 Bytes,"), "row: %s", lines[1])
	// Locale date-times contain a comma, so both stamps arrive quoted.
	assert.Equal(t, 2, strings.Count(lines[1], `"1/`))
}

func TestExportSources(t *testing.T) {
	out, _, ok := exportString(t, KindSources, `[{"resource":"(direct)","count":3}]`)
	require.True(t, ok)
	assert.Equal(t, "resource,count\n(direct),3", out)
}

func TestExportUnwrapsEnvelope(t *testing.T) {
	bare := `{"data":[{"resource":"/a","count":1}]}`
	wrapped := `[{"data":[{"resource":"/a","count":1}]}]`

	for _, raw := range []string{bare, wrapped} {
		out, _, ok := exportString(t, KindPages, raw)
		require.True(t, ok)
		assert.Equal(t, "resource,count\n/a,1", out)
	}
}

func TestExportCountriesColumnDependsOnFirstRecord(t *testing.T) {
	out, _, ok := exportString(t, KindCountries,
		`[{"resource":"US","country_name":"United States","count":9}]`)
	require.True(t, ok)
	assert.Equal(t, "resource,country_name,count\nUS,United States,9", out)

	out, _, ok = exportString(t, KindCountries, `[{"resource":"US","count":9}]`)
	require.True(t, ok)
	assert.Equal(t, "resource,count\nUS,9", out)
}

func TestExportPairsJoinOnly(t *testing.T) {
	out, _, ok := exportString(t, KindPageViews, `[["1/1/2024, 12:00:00 AM",5],["1/2/2024, 12:00:00 AM",7]]`)
	require.True(t, ok)

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Date,Count", lines[0])
	assert.Equal(t, `"1/1/2024, 12:00:00 AM",5`, lines[1])
}

func TestExportFallbackSortedKeys(t *testing.T) {
	out, _, ok := exportString(t, Kind("mystery"), `[{"b":2,"a":1,"c":3}]`)
	require.True(t, ok)
	assert.Equal(t, "a,b,c\n1,2,3", out)
}

func TestExportEmptyInputNotifiesOnce(t *testing.T) {
	cases := []string{`[]`, `{"data":[]}`, `[{}]`, `[1,2,3]`, `null`}
	for _, raw := range cases {
		t.Run(raw, func(t *testing.T) {
			out, n, ok := exportString(t, KindSources, raw)
			assert.False(t, ok)
			assert.Empty(t, out)
			assert.Len(t, n.errors, 1)
			assert.Empty(t, n.successes)
		})
	}
}

func TestExportEscapingRoundTrip(t *testing.T) {
	out, _, ok := exportString(t, KindSources, `[{"resource":"a,b","count":1},{"resource":"say \"hi\"","count":2}]`)
	require.True(t, ok)

	lines := strings.Split(out, "\n")
	assert.Equal(t, `"a,b",1`, lines[1])
	assert.Equal(t, `"say ""hi""",2`, lines[2])

	// Unquote-then-split recovers the original string.
	quoted := strings.SplitN(lines[1], `",`, 2)[0]
	recovered := strings.ReplaceAll(strings.TrimPrefix(quoted, `"`), `""`, `"`)
	assert.Equal(t, "a,b", recovered)
}

func TestExportMissingValuesSerializeEmpty(t *testing.T) {
	out, _, ok := exportString(t, KindSources, `[{"resource":"/x"}]`)
	require.True(t, ok)
	assert.Equal(t, "resource,count\n/x,", out)
}

func TestSaveToWritesKindNamedFile(t *testing.T) {
	dir := t.TempDir()
	n := &recordingNotifier{}
	ok := New(n).SaveTo(dir, KindNotFound, decode(t, `[{"resource":"/gone","count":4}]`))
	require.True(t, ok)

	content, err := os.ReadFile(filepath.Join(dir, "not_found.csv"))
	require.NoError(t, err)
	assert.Equal(t, "resource,count\n/gone,4", string(content))
}

func TestHumanBytes(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0 Bytes"},
		{512, "512 Bytes"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{1048576, "1 MB"},
		{1073741824, "1 GB"},
		{1127428915.2, "1.05 GB"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HumanBytes(tc.in), "input %v", tc.in)
	}
}
