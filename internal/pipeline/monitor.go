package pipeline

import (
	"sort"
	"time"

	"annotation-insights/internal/model"
)

// AssetStatus is the annotation coverage of one asset.
type AssetStatus int

const (
	AssetPending   AssetStatus = iota // no results, or a failed result
	AssetPartial                      // some but not all expected schemas
	AssetAnnotated                    // every expected schema, no failures
)

func (s AssetStatus) String() string {
	switch s {
	case AssetPending:
		return "pending"
	case AssetPartial:
		return "partial"
	case AssetAnnotated:
		return "annotated"
	}
	return "unknown"
}

// ClassifyAsset derives an asset's status from its results. With no expected
// schemas, any successful result counts as annotated.
func ClassifyAsset(results []model.AnnotationResult, expectedSchemaIDs []int) AssetStatus {
	if len(results) == 0 {
		return AssetPending
	}
	covered := make(map[int]struct{})
	for _, r := range results {
		if r.Failed() {
			return AssetPending
		}
		covered[r.SchemaID] = struct{}{}
	}
	if len(expectedSchemaIDs) == 0 {
		return AssetAnnotated
	}
	hits := 0
	for _, id := range expectedSchemaIDs {
		if _, ok := covered[id]; ok {
			hits++
		}
	}
	switch {
	case hits == len(expectedSchemaIDs):
		return AssetAnnotated
	case hits > 0:
		return AssetPartial
	}
	return AssetPending
}

type statusBucket struct {
	annotated, partial int
	pending            map[int]struct{}
}

func (s *statusBucket) counts() *model.MonitoringCounts {
	pending := sortedIDs(s.pending)
	return &model.MonitoringCounts{
		AnnotatedCount:  s.annotated,
		PartialCount:    s.partial,
		PendingCount:    len(pending),
		TotalAssetCount: s.annotated + s.partial + len(pending),
		PendingAssetIDs: pending,
	}
}

// MonitoringOptions configures AggregateMonitoring.
type MonitoringOptions struct {
	TimelineOptions
	ExpectedSchemaIDs []int
}

// AggregateMonitoring is AggregateTimeline plus a status breakdown of every
// asset in pool, including assets that have no results at all.
//
// An asset is placed at the earliest timestamp of its results; assets without
// a resolvable result timestamp fall back to their event timestamp, then to
// their creation time. Assets that still have no time are left out.
func AggregateMonitoring(results []model.AnnotationResult, schemas []model.Schema, pool []model.Asset, opts MonitoringOptions) ([]model.ChartDataPoint, error) {
	assets := make(map[int]model.Asset, len(pool))
	for _, a := range pool {
		assets[a.ID] = a
	}
	tl, err := buildTimeline(results, schemas, assets, opts.TimelineOptions)
	if err != nil {
		return nil, err
	}
	window, err := newTimeWindow(opts.TimeAxis.TimeFrame)
	if err != nil {
		return nil, err
	}

	byAsset := make(map[int][]model.AnnotationResult)
	for _, r := range results {
		byAsset[r.AssetID] = append(byAsset[r.AssetID], r)
	}

	ids := make([]int, 0, len(assets))
	for id := range assets {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		asset := assets[id]
		own := byAsset[id]
		ts, ok := assetTime(asset, own, assets, opts.TimeAxis)
		if !ok || !window.Contains(ts) {
			continue
		}
		b := tl.bucket(ts)
		if b.status == nil {
			b.status = &statusBucket{pending: make(map[int]struct{})}
		}
		switch ClassifyAsset(own, opts.ExpectedSchemaIDs) {
		case AssetAnnotated:
			b.status.annotated++
		case AssetPartial:
			b.status.partial++
		case AssetPending:
			b.status.pending[id] = struct{}{}
		}
	}

	tl.monitoring = true
	return tl.points(opts.FillGaps), nil
}

func assetTime(asset model.Asset, results []model.AnnotationResult, assets map[int]model.Asset, axis model.TimeAxisConfig) (time.Time, bool) {
	var earliest time.Time
	found := false
	for _, r := range results {
		ts, ok := ResolveTimestamp(r, assets, axis)
		if !ok {
			continue
		}
		if !found || ts.Before(earliest) {
			earliest, found = ts, true
		}
	}
	if found {
		return earliest, true
	}
	if ts, ok := ParseTime(asset.EventTimestamp); ok {
		return ts, true
	}
	return ParseTime(asset.CreatedAt)
}
