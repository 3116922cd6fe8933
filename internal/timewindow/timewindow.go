// Package timewindow resolves symbolic or explicit time ranges into
// absolute millisecond intervals.
//
// The chat store records createdAt in seconds on some rows and in
// milliseconds on others. Filtering therefore tests a stored value both as
// milliseconds and as seconds; display and ordering use the magnitude
// heuristic in ToMillis.
package timewindow

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/chatwise-tools/chatwise-mcp/internal/apperr"
)

const (
	// MillisThreshold separates millisecond values from second values.
	// Anything larger is already in milliseconds.
	MillisThreshold int64 = 1_000_000_000_000

	// FarFuture is the open upper bound used by the "all" window.
	FarFuture int64 = 9_999_999_999_999
)

// Names accepted by ForName.
const (
	Last7Days  = "7d"
	Last30Days = "30d"
	Last60Days = "60d"
	Last90Days = "90d"
	All        = "all"
)

var windowDays = map[string]int{
	Last7Days:  7,
	Last30Days: 30,
	Last60Days: 60,
	Last90Days: 90,
}

// Window is an inclusive interval in milliseconds since the epoch.
type Window struct {
	StartMs int64 `json:"start"`
	EndMs   int64 `json:"end"`
}

// Everything returns the window covering all timestamps.
func Everything() Window {
	return Window{StartMs: 0, EndMs: FarFuture}
}

// ForName resolves a symbolic window relative to now. An empty name means
// "all".
func ForName(name string, now time.Time) (Window, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == All {
		return Everything(), nil
	}
	days, ok := windowDays[name]
	if !ok {
		return Window{}, apperr.InvalidArgument("timewindow", "unknown time window %q (want 7d, 30d, 60d, 90d or all)", name)
	}
	end := now.UnixMilli()
	return Window{StartMs: end - int64(days)*24*60*60*1000, EndMs: end}, nil
}

// Explicit builds a window from absolute millisecond bounds.
func Explicit(startMs, endMs int64) (Window, error) {
	if startMs > endMs {
		return Window{}, apperr.InvalidArgument("timewindow", "time window start %d is after end %d", startMs, endMs)
	}
	return Window{StartMs: startMs, EndMs: endMs}, nil
}

// Parse decodes a time window argument: absent or null means "all", a JSON
// string is a symbolic name and a JSON object must carry numeric "start"
// and "end" fields.
func Parse(raw json.RawMessage, now time.Time) (Window, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Everything(), nil
	}

	switch raw[0] {
	case '"':
		var name string
		if err := json.Unmarshal(raw, &name); err != nil {
			return Window{}, apperr.InvalidArgument("timewindow", "malformed time window: %v", err)
		}
		return ForName(name, now)
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return Window{}, apperr.InvalidArgument("timewindow", "malformed time window: %v", err)
		}
		start, err := numberField(obj, "start")
		if err != nil {
			return Window{}, err
		}
		end, err := numberField(obj, "end")
		if err != nil {
			return Window{}, err
		}
		return Explicit(start, end)
	default:
		return Window{}, apperr.InvalidArgument("timewindow", "time window must be a name or {start, end}, got %s", raw)
	}
}

func numberField(obj map[string]json.RawMessage, key string) (int64, error) {
	v, ok := obj[key]
	if !ok {
		return 0, apperr.InvalidArgument("timewindow", "time window is missing %q", key)
	}
	var f float64
	if err := json.Unmarshal(v, &f); err != nil {
		return 0, apperr.InvalidArgument("timewindow", "time window %q must be numeric, got %s", key, v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, apperr.InvalidArgument("timewindow", "time window %q must be finite", key)
	}
	return int64(f), nil
}

// Contains reports whether ts falls inside w when read as milliseconds or
// when read as seconds.
func (w Window) Contains(ts int64) bool {
	if w.containsMillis(ts) {
		return true
	}
	if ts > math.MaxInt64/1000 || ts < math.MinInt64/1000 {
		return false
	}
	return w.containsMillis(ts * 1000)
}

func (w Window) containsMillis(ms int64) bool {
	return ms >= w.StartMs && ms <= w.EndMs
}

// SecondsBounds returns the inclusive bounds a seconds-valued timestamp
// must satisfy to fall inside w once converted to milliseconds.
func (w Window) SecondsBounds() (lo, hi int64) {
	return ceilDiv(w.StartMs, 1000), floorDiv(w.EndMs, 1000)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func ceilDiv(a, b int64) int64 {
	return -floorDiv(-a, b)
}

// ToMillis converts a stored timestamp into milliseconds using the
// magnitude heuristic.
func ToMillis(ts int64) int64 {
	if ts > MillisThreshold {
		return ts
	}
	return ts * 1000
}

// HumanLayout is the display format for stored timestamps (UTC).
const HumanLayout = "2006-01-02 15:04:05"

// Format renders a stored timestamp as a UTC date-time.
func Format(ts int64) string {
	return time.UnixMilli(ToMillis(ts)).UTC().Format(HumanLayout)
}
