package pipeline

import (
	"fmt"
	"strconv"

	"annotation-insights/internal/model"
)

// SourceAll is the source key used when sources are aggregated.
const SourceAll = "all"

// sourceUnknown keys assets without a source.
const sourceUnknown = "unknown"

// GroupOptions configures AggregateGrouped.
type GroupOptions struct {
	SchemaID         int
	FieldKey         string
	AggregateSources bool
	Aliases          *AliasResolver
	Order            model.GroupOrder
	TopN             int // keep the first N groups after ordering; 0 keeps all
}

type groupBucket struct {
	counts map[string]int
	docs   map[string]map[int]struct{}
}

// AggregateGrouped buckets results of one schema by the canonical value of
// one field. A result adds one to each of its distinct labels, per source.
//
// When the schema or field cannot be resolved it returns an empty, non-nil
// slice together with ErrSchemaNotFound or ErrFieldNotFound so callers can
// show a message instead of failing.
func AggregateGrouped(results []model.AnnotationResult, schemas []model.Schema, assets map[int]model.Asset, opts GroupOptions) ([]model.GroupedDataPoint, error) {
	empty := []model.GroupedDataPoint{}
	schema, ok := schemasByID(schemas)[opts.SchemaID]
	if !ok {
		return empty, fmt.Errorf("%w: %d", ErrSchemaNotFound, opts.SchemaID)
	}
	fieldType, ok := ResolveFieldType(schema, opts.FieldKey)
	if !ok {
		return empty, fmt.Errorf("%w: %q in schema %q", ErrFieldNotFound, opts.FieldKey, schema.Name)
	}

	buckets := make(map[string]*groupBucket)
	for _, r := range results {
		if r.SchemaID != opts.SchemaID || r.Failed() {
			continue
		}
		source := sourceKey(assets, r.AssetID, opts.AggregateSources)
		v, present := ExtractValue(r.Value, opts.FieldKey)
		for _, label := range canonicalLabels(opts.Aliases, v, present, fieldType) {
			b, ok := buckets[label]
			if !ok {
				b = &groupBucket{counts: make(map[string]int), docs: make(map[string]map[int]struct{})}
				buckets[label] = b
			}
			b.counts[source]++
			if b.docs[source] == nil {
				b.docs[source] = make(map[int]struct{})
			}
			b.docs[source][r.AssetID] = struct{}{}
		}
	}

	points := make([]model.GroupedDataPoint, 0, len(buckets))
	grand := 0
	for label, b := range buckets {
		p := model.GroupedDataPoint{
			ValueString:     label,
			SourceCounts:    b.counts,
			SourceDocuments: make(map[string][]int, len(b.docs)),
			SchemeName:      schema.Name,
		}
		for source, n := range b.counts {
			p.TotalCount += n
			p.SourceDocuments[source] = sortedIDs(b.docs[source])
		}
		grand += p.TotalCount
		points = append(points, p)
	}
	for i := range points {
		if grand > 0 {
			points[i].Percentage = float64(points[i].TotalCount) / float64(grand) * 100
		}
	}

	points = SortGroupedPoints(points, opts.Order)
	if opts.TopN > 0 && len(points) > opts.TopN {
		points = points[:opts.TopN]
	}
	return points, nil
}

func sourceKey(assets map[int]model.Asset, assetID int, aggregate bool) string {
	if aggregate {
		return SourceAll
	}
	if a, ok := assets[assetID]; ok && a.SourceID != nil {
		return strconv.Itoa(*a.SourceID)
	}
	return sourceUnknown
}
