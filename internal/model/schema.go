package model

import (
	"encoding/json"
	"fmt"
)

// FieldType is the primitive kind of a schema field.
type FieldType int

const (
	FieldUnknown FieldType = iota
	FieldString
	FieldInteger
	FieldNumber
	FieldBoolean
	FieldArray
	FieldObject
)

// ParseFieldType maps a JSON-schema "type" tag onto a FieldType.
func ParseFieldType(tag string) (FieldType, error) {
	switch tag {
	case "string":
		return FieldString, nil
	case "integer":
		return FieldInteger, nil
	case "number":
		return FieldNumber, nil
	case "boolean":
		return FieldBoolean, nil
	case "array":
		return FieldArray, nil
	case "object":
		return FieldObject, nil
	default:
		return FieldUnknown, fmt.Errorf("unknown field type %q", tag)
	}
}

func (t FieldType) String() string {
	switch t {
	case FieldString:
		return "string"
	case FieldInteger:
		return "integer"
	case FieldNumber:
		return "number"
	case FieldBoolean:
		return "boolean"
	case FieldArray:
		return "array"
	case FieldObject:
		return "object"
	case FieldUnknown:
		return "unknown"
	}
	return "unknown"
}

// IsNumeric reports whether min/max/avg statistics apply to the type.
func (t FieldType) IsNumeric() bool {
	return t == FieldInteger || t == FieldNumber
}

func (t FieldType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *FieldType) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err != nil {
		return err
	}
	parsed, err := ParseFieldType(tag)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Schema is an annotation schema as served by the upstream API.
type Schema struct {
	ID             int                    `json:"id"`
	Name           string                 `json:"name"`
	Description    string                 `json:"description,omitempty"`
	OutputContract map[string]interface{} `json:"output_contract"` // nested JSON-schema object
}

// TargetKey is one leaf field reachable from a schema.
type TargetKey struct {
	Key  string    `json:"key"` // dotted path, e.g. document.topics
	Name string    `json:"name"`
	Type FieldType `json:"type"`
}
