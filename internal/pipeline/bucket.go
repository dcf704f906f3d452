package pipeline

import (
	"fmt"
	"time"

	"annotation-insights/internal/model"
)

// BucketStart truncates t to the start of its interval, in UTC.
func BucketStart(t time.Time, interval model.Interval) (time.Time, error) {
	t = t.UTC()
	y, m, d := t.Date()
	switch interval {
	case model.IntervalDay:
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	case model.IntervalWeek:
		day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		// Monday is day zero of an ISO week.
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset), nil
	case model.IntervalMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC), nil
	case model.IntervalQuarter:
		q := (int(m)-1)/3*3 + 1
		return time.Date(y, time.Month(q), 1, 0, 0, 0, 0, time.UTC), nil
	case model.IntervalYear:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownInterval, interval)
}

// nextBucket returns the start of the bucket after the one starting at start.
func nextBucket(start time.Time, interval model.Interval) time.Time {
	switch interval {
	case model.IntervalDay:
		return start.AddDate(0, 0, 1)
	case model.IntervalWeek:
		return start.AddDate(0, 0, 7)
	case model.IntervalMonth:
		return start.AddDate(0, 1, 0)
	case model.IntervalQuarter:
		return start.AddDate(0, 3, 0)
	case model.IntervalYear:
		return start.AddDate(1, 0, 0)
	}
	return start
}

// BucketLabel renders the label of the bucket starting at start.
func BucketLabel(start time.Time, interval model.Interval) string {
	switch interval {
	case model.IntervalDay:
		return start.Format("2006-01-02")
	case model.IntervalWeek:
		year, week := start.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case model.IntervalMonth:
		return start.Format("2006-01")
	case model.IntervalQuarter:
		return fmt.Sprintf("%d-Q%d", start.Year(), (int(start.Month())-1)/3+1)
	case model.IntervalYear:
		return start.Format("2006")
	}
	return start.Format(time.RFC3339)
}

// ValidInterval reports whether interval is one of the supported widths.
func ValidInterval(interval model.Interval) bool {
	_, err := BucketStart(time.Unix(0, 0), interval)
	return err == nil
}
