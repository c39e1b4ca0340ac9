package analytics

import "time"

// TimeRange is a symbolic dashboard range selection.
type TimeRange string

const (
	Range7d  TimeRange = "7d"
	Range30d TimeRange = "30d"
	Range3m  TimeRange = "3m"
	Range1y  TimeRange = "1y"

	// DefaultRange applies when the caller supplies nothing.
	DefaultRange = Range30d
)

// rangeOffsets maps each symbolic range to its width in milliseconds.
var rangeOffsets = map[TimeRange]int64{
	Range7d:  604800000,
	Range30d: 2592000000,
	Range3m:  7776000000,
	Range1y:  31536000000,
}

// ValidRange reports whether r is one of the four recognized symbols.
func ValidRange(r TimeRange) bool {
	_, ok := rangeOffsets[r]
	return ok
}

// Window is a concrete [From, To] pair in epoch milliseconds.
type Window struct {
	From int64
	To   int64
}

// Resolve maps a symbolic range and a reference instant to a concrete
// window. It is total: an unrecognized or empty symbol resolves the same
// as DefaultRange. Validation of caller input, when wanted, happens in the
// request handler, not here.
func Resolve(r TimeRange, now time.Time) Window {
	offset, ok := rangeOffsets[r]
	if !ok {
		offset = rangeOffsets[DefaultRange]
	}
	to := now.UnixMilli()
	return Window{From: to - offset, To: to}
}
