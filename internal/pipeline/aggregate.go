package pipeline

import (
	"math"
	"sort"

	"annotation-insights/internal/model"
)

// fieldAccumulator keeps the running statistics of one series.
type fieldAccumulator struct {
	min, max, sum float64
	count         int
}

func newFieldAccumulator() *fieldAccumulator {
	return &fieldAccumulator{min: math.Inf(1), max: math.Inf(-1)}
}

func (a *fieldAccumulator) add(v float64) {
	a.count++
	a.sum += v
	if v < a.min {
		a.min = v
	}
	if v > a.max {
		a.max = v
	}
}

// stats reports the accumulated statistics. avg is sum/count, clamped into
// [min, max] so float rounding can never break min <= avg <= max.
func (a *fieldAccumulator) stats() model.FieldStats {
	if a.count == 0 {
		return model.FieldStats{}
	}
	avg := a.sum / float64(a.count)
	avg = math.Max(a.min, math.Min(a.max, avg))
	return model.FieldStats{Min: a.min, Max: a.max, Avg: avg, Sum: a.sum, Count: a.count}
}

// mergeFieldStats combines the statistics of two disjoint sample sets.
func mergeFieldStats(a, b model.FieldStats) model.FieldStats {
	if a.Count == 0 {
		return b
	}
	if b.Count == 0 {
		return a
	}
	out := model.FieldStats{
		Min:   math.Min(a.Min, b.Min),
		Max:   math.Max(a.Max, b.Max),
		Sum:   a.Sum + b.Sum,
		Count: a.Count + b.Count,
	}
	out.Avg = math.Max(out.Min, math.Min(out.Max, out.Sum/float64(out.Count)))
	return out
}

// SortGroupedPoints orders grouped output. The default is descending by
// total count; ties fall back to ascending value so output is deterministic.
func SortGroupedPoints(points []model.GroupedDataPoint, order model.GroupOrder) []model.GroupedDataPoint {
	sort.SliceStable(points, func(i, j int) bool {
		a, b := points[i], points[j]
		switch order {
		case model.OrderValueAsc:
			return a.ValueString < b.ValueString
		case model.OrderValueDesc:
			return a.ValueString > b.ValueString
		case model.OrderCountDesc, "":
		}
		if a.TotalCount != b.TotalCount {
			return a.TotalCount > b.TotalCount
		}
		return a.ValueString < b.ValueString
	})
	return points
}

// ValidGroupOrder reports whether order is supported.
func ValidGroupOrder(order model.GroupOrder) bool {
	switch order {
	case model.OrderCountDesc, model.OrderValueAsc, model.OrderValueDesc, "":
		return true
	}
	return false
}

func sortedIDs(set map[int]struct{}) []int {
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
