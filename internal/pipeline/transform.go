package pipeline

import (
	"annotation-insights/internal/model"
)

// FilterStats counts what the time-frame filter saw.
type FilterStats struct {
	Total         int
	Failed        int
	WithTimestamp int
	InTimeFrame   int
}

// FilterByTimeFrame keeps the results inside the axis time frame. With no
// active frame every result is kept, even one without a timestamp; with one,
// results that cannot be placed on the axis are dropped. Failed results are
// kept so monitoring can see them.
func FilterByTimeFrame(results []model.AnnotationResult, assets map[int]model.Asset, axis model.TimeAxisConfig) ([]model.AnnotationResult, FilterStats, error) {
	stats := FilterStats{Total: len(results)}
	window, err := newTimeWindow(axis.TimeFrame)
	if err != nil {
		return nil, stats, err
	}

	kept := make([]model.AnnotationResult, 0, len(results))
	for _, r := range results {
		if r.Failed() {
			stats.Failed++
		}
		ts, ok := ResolveTimestamp(r, assets, axis)
		if ok {
			stats.WithTimestamp++
		}
		if !window.active() {
			stats.InTimeFrame++
			kept = append(kept, r)
			continue
		}
		if ok && window.Contains(ts) {
			stats.InTimeFrame++
			kept = append(kept, r)
		}
	}
	return kept, stats, nil
}

// monitoringPool returns the assets a monitoring run accounts for.
func monitoringPool(ds *model.Dataset, cfg *model.MonitoringConfig) []model.Asset {
	if cfg == nil || len(cfg.AssetIDs) == 0 {
		return ds.Assets
	}
	byID := ds.AssetsByID()
	pool := make([]model.Asset, 0, len(cfg.AssetIDs))
	for _, id := range cfg.AssetIDs {
		if a, ok := byID[id]; ok {
			pool = append(pool, a)
		} else {
			// unknown to the dataset, still pending
			pool = append(pool, model.Asset{ID: id})
		}
	}
	return pool
}
