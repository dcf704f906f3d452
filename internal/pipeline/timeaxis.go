package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"annotation-insights/internal/model"
)

// Layouts accepted for date-like strings. Layouts without a zone read as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"2006-01",
	"2006",
}

// ParseTime interprets a date-like value. Numbers are epoch milliseconds.
// Anything unparseable is reported as absent, never as an error.
func ParseTime(v interface{}) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		if val.IsZero() {
			return time.Time{}, false
		}
		return val.UTC(), true
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
	case float64:
		return time.UnixMilli(int64(val)).UTC(), true
	case int64:
		return time.UnixMilli(val).UTC(), true
	case int:
		return time.UnixMilli(int64(val)).UTC(), true
	case json.Number:
		if ms, err := val.Int64(); err == nil {
			return time.UnixMilli(ms).UTC(), true
		}
	}
	return time.Time{}, false
}

// ResolveTimestamp places a result on the time axis.
func ResolveTimestamp(result model.AnnotationResult, assets map[int]model.Asset, axis model.TimeAxisConfig) (time.Time, bool) {
	switch axis.Type {
	case model.TimeAxisDefault, "":
		return ParseTime(result.Timestamp)
	case model.TimeAxisEvent:
		asset, ok := assets[result.AssetID]
		if !ok || asset.EventTimestamp == "" {
			return time.Time{}, false
		}
		return ParseTime(asset.EventTimestamp)
	case model.TimeAxisSchema:
		if result.SchemaID != axis.SchemaID {
			return time.Time{}, false
		}
		raw, ok := ExtractValue(result.Value, axis.FieldKey)
		if !ok {
			return time.Time{}, false
		}
		return ParseTime(raw)
	}
	return time.Time{}, false
}

// timeWindow is an inclusive, possibly half-open time range.
type timeWindow struct {
	start, end       time.Time
	hasStart, hasEnd bool
}

// newTimeWindow builds the window of a time frame. A nil or disabled frame
// admits everything. An end date without a time of day covers that whole day.
func newTimeWindow(tf *model.TimeFrame) (timeWindow, error) {
	var w timeWindow
	if tf == nil || !tf.Enabled {
		return w, nil
	}
	if tf.StartDate != "" {
		t, ok := ParseTime(tf.StartDate)
		if !ok {
			return w, fmt.Errorf("%w: start date %q", ErrInvalidTimeFrame, tf.StartDate)
		}
		w.start, w.hasStart = t, true
	}
	if tf.EndDate != "" {
		t, ok := ParseTime(tf.EndDate)
		if !ok {
			return w, fmt.Errorf("%w: end date %q", ErrInvalidTimeFrame, tf.EndDate)
		}
		if isDateOnly(tf.EndDate) {
			t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		w.end, w.hasEnd = t, true
	}
	if w.hasStart && w.hasEnd && w.end.Before(w.start) {
		return w, fmt.Errorf("%w: end date before start date", ErrInvalidTimeFrame)
	}
	return w, nil
}

func isDateOnly(s string) bool {
	s = strings.TrimSpace(s)
	return len(s) == len("2006-01-02") && !strings.ContainsAny(s, "T:")
}

func (w timeWindow) Contains(t time.Time) bool {
	if w.hasStart && t.Before(w.start) {
		return false
	}
	if w.hasEnd && t.After(w.end) {
		return false
	}
	return true
}

func (w timeWindow) active() bool {
	return w.hasStart || w.hasEnd
}

// InTimeFrame reports whether a timestamp falls inside a time frame.
// A disabled frame contains everything; an invalid one nothing.
func InTimeFrame(t time.Time, tf *model.TimeFrame) bool {
	w, err := newTimeWindow(tf)
	if err != nil {
		return false
	}
	return w.Contains(t)
}
