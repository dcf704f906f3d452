package pipeline

import (
	"fmt"
	"sort"
	"time"

	"annotation-insights/internal/model"
)

// TimelineOptions configures AggregateTimeline.
type TimelineOptions struct {
	TimeAxis model.TimeAxisConfig
	Interval model.Interval
	FillGaps bool // emit empty points between the first and last bucket
}

type timeBucket struct {
	start  time.Time
	docs   map[int]struct{}
	series map[string]*fieldAccumulator
	status *statusBucket
}

func newTimeBucket(start time.Time) *timeBucket {
	return &timeBucket{
		start:  start,
		docs:   make(map[int]struct{}),
		series: make(map[string]*fieldAccumulator),
	}
}

// timeline is the bucket set of one aggregation, keyed by bucket start (ms).
type timeline struct {
	interval model.Interval
	buckets  map[int64]*timeBucket
	// every point carries a status breakdown, empty if no pool asset fell in it
	monitoring bool
}

func newTimeline(interval model.Interval) *timeline {
	return &timeline{interval: interval, buckets: make(map[int64]*timeBucket)}
}

func (tl *timeline) bucket(t time.Time) *timeBucket {
	// interval is validated before a timeline is built
	start, _ := BucketStart(t, tl.interval)
	key := start.UnixMilli()
	b, ok := tl.buckets[key]
	if !ok {
		b = newTimeBucket(start)
		tl.buckets[key] = b
	}
	return b
}

// AggregateTimeline buckets results by time. Each point counts the distinct
// assets of its bucket and carries per-series statistics for every numeric
// field of the result's schema. Failed results and results without a
// resolvable timestamp are skipped. Points are sorted by bucket start.
func AggregateTimeline(results []model.AnnotationResult, schemas []model.Schema, assets map[int]model.Asset, opts TimelineOptions) ([]model.ChartDataPoint, error) {
	tl, err := buildTimeline(results, schemas, assets, opts)
	if err != nil {
		return nil, err
	}
	return tl.points(opts.FillGaps), nil
}

func buildTimeline(results []model.AnnotationResult, schemas []model.Schema, assets map[int]model.Asset, opts TimelineOptions) (*timeline, error) {
	if err := validateTimeline(opts); err != nil {
		return nil, err
	}
	window, err := newTimeWindow(opts.TimeAxis.TimeFrame)
	if err != nil {
		return nil, err
	}
	numeric := numericFieldsBySchema(schemas)
	tl := newTimeline(opts.Interval)

	for _, r := range results {
		if r.Failed() {
			continue
		}
		ts, ok := ResolveTimestamp(r, assets, opts.TimeAxis)
		if !ok || !window.Contains(ts) {
			continue
		}
		b := tl.bucket(ts)
		b.docs[r.AssetID] = struct{}{}
		for _, f := range numeric[r.SchemaID] {
			v, ok := ExtractNumber(r.Value, f.field.Key)
			if !ok {
				continue
			}
			acc, ok := b.series[f.series]
			if !ok {
				acc = newFieldAccumulator()
				b.series[f.series] = acc
			}
			acc.add(v)
		}
	}
	return tl, nil
}

func validateTimeline(opts TimelineOptions) error {
	if !ValidInterval(opts.Interval) {
		return fmt.Errorf("%w: %q", ErrUnknownInterval, opts.Interval)
	}
	switch opts.TimeAxis.Type {
	case model.TimeAxisDefault, model.TimeAxisEvent, model.TimeAxisSchema, "":
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownTimeAxis, opts.TimeAxis.Type)
}

func (tl *timeline) points(fillGaps bool) []model.ChartDataPoint {
	keys := make([]int64, 0, len(tl.buckets))
	for k := range tl.buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	if fillGaps && len(keys) > 1 {
		last := tl.buckets[keys[len(keys)-1]].start
		for t := nextBucket(tl.buckets[keys[0]].start, tl.interval); t.Before(last); t = nextBucket(t, tl.interval) {
			if _, ok := tl.buckets[t.UnixMilli()]; !ok {
				tl.buckets[t.UnixMilli()] = newTimeBucket(t)
				keys = append(keys, t.UnixMilli())
			}
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	}

	points := make([]model.ChartDataPoint, 0, len(keys))
	for _, k := range keys {
		b := tl.buckets[k]
		p := model.ChartDataPoint{
			Timestamp:  k,
			DateString: BucketLabel(b.start, tl.interval),
			Documents:  sortedIDs(b.docs),
			Values:     make(map[string]float64, len(b.series)),
			Stats:      make(map[string]model.FieldStats, len(b.series)),
		}
		p.Count = len(p.Documents)
		for series, acc := range b.series {
			st := acc.stats()
			p.Stats[series] = st
			p.Values[series] = st.Avg
		}
		if b.status != nil {
			p.Monitoring = b.status.counts()
		} else if tl.monitoring {
			p.Monitoring = (&statusBucket{}).counts()
		}
		points = append(points, p)
	}
	return points
}
