package pipeline

import (
	"encoding/json"
	"fmt"

	"annotation-insights/internal/model"
	"annotation-insights/pkg/utils"
)

// Sentinel category labels.
const (
	LabelNA         = "N/A"
	LabelEmptyArray = "Empty Array"
)

// CategoryLabels turns a field value into the raw category labels it
// belongs to. Arrays explode into one label per element; an absent value is
// LabelNA. Labels are not canonicalized here.
func CategoryLabels(value interface{}, present bool, fieldType model.FieldType) []string {
	if !present || value == nil {
		return []string{LabelNA}
	}
	if items, ok := value.([]interface{}); ok {
		if len(items) == 0 {
			return []string{LabelEmptyArray}
		}
		labels := make([]string, 0, len(items))
		for _, item := range items {
			labels = append(labels, elementLabel(item))
		}
		return labels
	}
	if fieldType == model.FieldArray {
		// a scalar where the schema promises an array is a single element
		return []string{elementLabel(value)}
	}
	return []string{scalarLabel(value)}
}

func scalarLabel(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return LabelNA
	case string:
		return val
	case bool:
		if val {
			return "True"
		}
		return "False"
	case float64:
		return utils.FormatFloat(val)
	case json.Number:
		return val.String()
	case map[string]interface{}, []interface{}:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
	return fmt.Sprint(v)
}

// elementLabel names one array element. Objects prefer their name, title or
// value key.
func elementLabel(v interface{}) string {
	if obj, ok := v.(map[string]interface{}); ok {
		for _, key := range []string{"name", "title", "value"} {
			if inner, ok := obj[key]; ok && inner != nil {
				return scalarLabel(inner)
			}
		}
	}
	return scalarLabel(v)
}
