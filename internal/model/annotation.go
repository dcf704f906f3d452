package model

import (
	"encoding/json"
	"fmt"
)

// ResultStatus is the outcome of applying one schema to one asset.
type ResultStatus string

const (
	StatusSuccess ResultStatus = "success"
	StatusFailure ResultStatus = "failure"
)

// AnnotationResult is one schema's output attached to one asset.
type AnnotationResult struct {
	ID             int                    `json:"id"`
	AssetID        int                    `json:"asset_id"`
	SchemaID       int                    `json:"schema_id"`
	RunID          int                    `json:"run_id,omitempty"`
	Value          map[string]interface{} `json:"value"`
	Status         ResultStatus           `json:"status"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Timestamp      string                 `json:"timestamp"`
	Justifications []Justification        `json:"justifications,omitempty"`
}

// Failed reports whether the annotation run failed for this result.
func (r AnnotationResult) Failed() bool {
	return r.Status == StatusFailure
}

// JustificationKind tags the evidence payload of a Justification.
type JustificationKind string

const (
	JustificationTextSpans     JustificationKind = "text_spans"
	JustificationImageRegions  JustificationKind = "image_regions"
	JustificationAudioSegments JustificationKind = "audio_segments"
	JustificationReasoning     JustificationKind = "reasoning"
)

type TextSpan struct {
	Start int    `json:"start_char_offset"`
	End   int    `json:"end_char_offset"`
	Text  string `json:"text_snippet,omitempty"`
}

type ImageRegion struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Label  string  `json:"label,omitempty"`
}

type AudioSegment struct {
	StartSeconds float64 `json:"start_time"`
	EndSeconds   float64 `json:"end_time"`
	Transcript   string  `json:"transcript_snippet,omitempty"`
}

// Justification explains one field of an annotation. Exactly one of the
// evidence slices is set, selected by Kind; reasoning-only justifications
// carry no evidence.
type Justification struct {
	Kind          JustificationKind `json:"kind"`
	FieldName     string            `json:"field_name,omitempty"`
	Reasoning     string            `json:"reasoning,omitempty"`
	TextSpans     []TextSpan        `json:"text_spans,omitempty"`
	ImageRegions  []ImageRegion     `json:"image_regions,omitempty"`
	AudioSegments []AudioSegment    `json:"audio_segments,omitempty"`
}

func (j *Justification) UnmarshalJSON(data []byte) error {
	type plain Justification
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	switch p.Kind {
	case JustificationTextSpans:
		if len(p.TextSpans) == 0 {
			return fmt.Errorf("justification %q: text_spans is empty", p.Kind)
		}
		p.ImageRegions, p.AudioSegments = nil, nil
	case JustificationImageRegions:
		if len(p.ImageRegions) == 0 {
			return fmt.Errorf("justification %q: image_regions is empty", p.Kind)
		}
		p.TextSpans, p.AudioSegments = nil, nil
	case JustificationAudioSegments:
		if len(p.AudioSegments) == 0 {
			return fmt.Errorf("justification %q: audio_segments is empty", p.Kind)
		}
		p.TextSpans, p.ImageRegions = nil, nil
	case JustificationReasoning:
		if p.Reasoning == "" {
			return fmt.Errorf("justification %q: reasoning is empty", p.Kind)
		}
		p.TextSpans, p.ImageRegions, p.AudioSegments = nil, nil, nil
	default:
		return fmt.Errorf("unknown justification kind %q", p.Kind)
	}
	*j = Justification(p)
	return nil
}

// Dataset is the immutable input of one aggregation run.
type Dataset struct {
	Schemas []Schema           `json:"schemas"`
	Assets  []Asset            `json:"assets"`
	Results []AnnotationResult `json:"results"`
}

// AssetsByID indexes the dataset's assets.
func (d *Dataset) AssetsByID() map[int]Asset {
	byID := make(map[int]Asset, len(d.Assets))
	for _, a := range d.Assets {
		byID[a.ID] = a
	}
	return byID
}

// SchemaByID returns the schema with the given id.
func (d *Dataset) SchemaByID(id int) (Schema, bool) {
	for _, s := range d.Schemas {
		if s.ID == id {
			return s, true
		}
	}
	return Schema{}, false
}
