package pipeline

import (
	"fmt"
	"sort"

	"annotation-insights/internal/model"
)

// AllGroup names the single group produced when splitting is disabled.
const AllGroup = "all"

// AliasResolver canonicalizes raw category labels.
type AliasResolver struct {
	canonical map[string]string
}

// NewAliasResolver inverts a canonical -> raw labels map. A raw label listed
// under two different canonical labels is rejected with ErrAmbiguousAlias.
func NewAliasResolver(aliases map[string][]string) (*AliasResolver, error) {
	r := &AliasResolver{canonical: make(map[string]string)}
	names := make([]string, 0, len(aliases))
	for name := range aliases {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, raw := range aliases[name] {
			if prev, ok := r.canonical[raw]; ok && prev != name {
				return nil, fmt.Errorf("%w: %q maps to %q and %q", ErrAmbiguousAlias, raw, prev, name)
			}
			r.canonical[raw] = name
		}
	}
	return r, nil
}

// Canonical returns the canonical label of raw, or raw itself when no alias
// matches. A nil resolver is the identity.
func (r *AliasResolver) Canonical(raw string) string {
	if r == nil {
		return raw
	}
	if name, ok := r.canonical[raw]; ok {
		return name
	}
	return raw
}

// ApplyAmbiguityResolution canonicalizes a single label against an alias map.
func ApplyAmbiguityResolution(raw string, aliases map[string][]string) (string, error) {
	r, err := NewAliasResolver(aliases)
	if err != nil {
		return "", err
	}
	return r.Canonical(raw), nil
}

// canonicalLabels resolves the distinct canonical labels of one field value.
func canonicalLabels(r *AliasResolver, value interface{}, present bool, fieldType model.FieldType) []string {
	raw := CategoryLabels(value, present, fieldType)
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		c := r.Canonical(l)
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// ApplySplitting partitions results by the canonical value of the split
// field. The split field is read from results of the split schema; every
// result of an asset follows that asset into its groups, so one asset can sit
// in several groups when the field is an array. Assets without a split result
// land in LabelNA. Disabled splitting yields a single AllGroup.
func ApplySplitting(results []model.AnnotationResult, schemas []model.Schema, cfg *model.VariableSplittingConfig) (map[string][]model.AnnotationResult, error) {
	return SplitByMembership(results, results, schemas, cfg)
}

// SplitByMembership is ApplySplitting with group membership read from a
// separate result set. Execute passes the whole dataset as membership so
// that a time frame narrows what is aggregated without moving assets
// between groups.
func SplitByMembership(results, membership []model.AnnotationResult, schemas []model.Schema, cfg *model.VariableSplittingConfig) (map[string][]model.AnnotationResult, error) {
	if cfg == nil || !cfg.Enabled {
		return map[string][]model.AnnotationResult{AllGroup: results}, nil
	}
	schema, ok := schemasByID(schemas)[cfg.SchemaID]
	if !ok {
		return nil, fmt.Errorf("%w: split schema %d", ErrSchemaNotFound, cfg.SchemaID)
	}
	fieldType, ok := ResolveFieldType(schema, cfg.FieldKey)
	if !ok {
		return nil, fmt.Errorf("%w: %q in schema %q", ErrFieldNotFound, cfg.FieldKey, schema.Name)
	}
	aliases, err := NewAliasResolver(cfg.ValueAliases)
	if err != nil {
		return nil, err
	}

	assetGroups := make(map[int][]string)
	for _, r := range membership {
		if r.SchemaID != cfg.SchemaID || r.Failed() {
			continue
		}
		v, present := ExtractValue(r.Value, cfg.FieldKey)
		for _, label := range canonicalLabels(aliases, v, present, fieldType) {
			assetGroups[r.AssetID] = appendUnique(assetGroups[r.AssetID], label)
		}
	}

	groups := make(map[string][]model.AnnotationResult)
	for _, r := range results {
		names, ok := assetGroups[r.AssetID]
		if !ok {
			names = []string{LabelNA}
		}
		for _, name := range names {
			groups[name] = append(groups[name], r)
		}
	}
	return groups, nil
}

// VisibleGroups returns the group names to process, sorted. An empty visible
// list keeps every group.
func VisibleGroups(groups map[string][]model.AnnotationResult, visible []string) []string {
	var names []string
	if len(visible) == 0 {
		names = make([]string, 0, len(groups))
		for name := range groups {
			names = append(names, name)
		}
	} else {
		for _, name := range visible {
			if _, ok := groups[name]; ok {
				names = appendUnique(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
