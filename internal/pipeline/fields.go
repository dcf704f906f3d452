package pipeline

import (
	"sort"
	"strings"

	"annotation-insights/internal/model"
	"annotation-insights/pkg/utils"
)

// ExtractValue resolves a dotted field key against an annotation value.
//
// The hierarchical path is tried first. Arrays met on the way are treated as
// arrays of objects and the rest of the path is collected from every element.
// When the hierarchical path yields nothing, the last path segment is looked up
// as a flat top-level key, which covers values produced without their nesting
// wrapper. Missing keys and explicit nulls are both reported as absent.
func ExtractValue(value map[string]interface{}, fieldKey string) (interface{}, bool) {
	if value == nil || fieldKey == "" {
		return nil, false
	}
	segments := strings.Split(fieldKey, ".")
	if v, ok := walkValue(value, segments); ok {
		return v, true
	}
	if len(segments) > 1 {
		if v, ok := value[segments[len(segments)-1]]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func walkValue(node interface{}, segments []string) (interface{}, bool) {
	if len(segments) == 0 {
		return node, node != nil
	}
	switch n := node.(type) {
	case map[string]interface{}:
		child, ok := n[segments[0]]
		if !ok || child == nil {
			return nil, false
		}
		return walkValue(child, segments[1:])
	case []interface{}:
		if len(n) == 0 {
			// an empty parent array reads as an empty array, not as absent
			return []interface{}{}, true
		}
		var collected []interface{}
		for _, elem := range n {
			v, ok := walkValue(elem, segments)
			if !ok {
				continue
			}
			if arr, isArr := v.([]interface{}); isArr {
				collected = append(collected, arr...)
			} else {
				collected = append(collected, v)
			}
		}
		if len(collected) == 0 {
			return nil, false
		}
		return collected, true
	}
	return nil, false
}

// ExtractNumber extracts a field and converts it to float64.
func ExtractNumber(value map[string]interface{}, fieldKey string) (float64, bool) {
	raw, ok := ExtractValue(value, fieldKey)
	if !ok {
		return 0, false
	}
	return utils.ToFloat(raw)
}

// ResolveFieldType resolves the declared type of a dotted field key in a
// schema's output contract, with the same flat fallback as ExtractValue.
func ResolveFieldType(schema model.Schema, fieldKey string) (model.FieldType, bool) {
	if fieldKey == "" {
		return model.FieldUnknown, false
	}
	segments := strings.Split(fieldKey, ".")
	if node, ok := schemaNode(schema.OutputContract, segments); ok {
		return nodeType(node)
	}
	if len(segments) > 1 {
		if node, ok := schemaNode(schema.OutputContract, segments[len(segments)-1:]); ok {
			return nodeType(node)
		}
	}
	return model.FieldUnknown, false
}

func schemaNode(root map[string]interface{}, segments []string) (map[string]interface{}, bool) {
	current := root
	for _, seg := range segments {
		props := childProperties(current)
		if props == nil {
			return nil, false
		}
		next, ok := props[seg].(map[string]interface{})
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, current != nil
}

// childProperties returns the properties of an object node, looking through
// the items of an array-of-object node.
func childProperties(node map[string]interface{}) map[string]interface{} {
	if node == nil {
		return nil
	}
	if props, ok := node["properties"].(map[string]interface{}); ok {
		return props
	}
	if items, ok := node["items"].(map[string]interface{}); ok {
		if props, ok := items["properties"].(map[string]interface{}); ok {
			return props
		}
	}
	return nil
}

func nodeType(node map[string]interface{}) (model.FieldType, bool) {
	tag := typeTag(node["type"])
	if tag == "" {
		if _, ok := node["properties"]; ok {
			return model.FieldObject, true
		}
		if _, ok := node["items"]; ok {
			return model.FieldArray, true
		}
		return model.FieldUnknown, false
	}
	t, err := model.ParseFieldType(tag)
	if err != nil {
		return model.FieldUnknown, false
	}
	return t, true
}

// typeTag reads a JSON-schema type, which is either a string or a list such
// as ["string", "null"].
func typeTag(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case []interface{}:
		for _, item := range t {
			if s, ok := item.(string); ok && s != "null" {
				return s
			}
		}
	}
	return ""
}

// TargetKeys flattens a schema into its leaf fields, sorted by key.
// Arrays are leaves themselves; arrays of objects also expose their children.
func TargetKeys(schema model.Schema) []model.TargetKey {
	var keys []model.TargetKey
	collectTargetKeys(childProperties(schema.OutputContract), "", &keys)
	sort.Slice(keys, func(i, j int) bool { return keys[i].Key < keys[j].Key })
	return keys
}

func collectTargetKeys(props map[string]interface{}, prefix string, keys *[]model.TargetKey) {
	for name, raw := range props {
		node, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}
		t, ok := nodeType(node)
		if !ok {
			continue
		}
		switch t {
		case model.FieldObject:
			collectTargetKeys(childProperties(node), key, keys)
		case model.FieldArray:
			*keys = append(*keys, model.TargetKey{Key: key, Name: displayName(node, name), Type: t})
			if items, ok := node["items"].(map[string]interface{}); ok {
				collectTargetKeys(childProperties(items), key, keys)
			}
		case model.FieldString, model.FieldInteger, model.FieldNumber, model.FieldBoolean:
			*keys = append(*keys, model.TargetKey{Key: key, Name: displayName(node, name), Type: t})
		case model.FieldUnknown:
		}
	}
}

func displayName(node map[string]interface{}, fallback string) string {
	if title, ok := node["title"].(string); ok && title != "" {
		return title
	}
	return fallback
}

// seriesField is a numeric field of a schema together with its series key.
type seriesField struct {
	series string
	field  model.TargetKey
}

// numericFieldsBySchema resolves every numeric field once per schema.
func numericFieldsBySchema(schemas []model.Schema) map[int][]seriesField {
	out := make(map[int][]seriesField, len(schemas))
	for _, s := range schemas {
		for _, k := range TargetKeys(s) {
			if !k.Type.IsNumeric() {
				continue
			}
			out[s.ID] = append(out[s.ID], seriesField{series: SeriesKey(s, k.Key), field: k})
		}
	}
	return out
}

// SeriesKey names the plotted series of a schema field, e.g. "Sentiment_score".
func SeriesKey(schema model.Schema, fieldKey string) string {
	return schema.Name + "_" + fieldKey
}

func schemasByID(schemas []model.Schema) map[int]model.Schema {
	byID := make(map[int]model.Schema, len(schemas))
	for _, s := range schemas {
		byID[s.ID] = s
	}
	return byID
}
