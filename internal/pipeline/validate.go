package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"annotation-insights/internal/model"
)

// ValidateSpec checks a run spec before anything is loaded. Every problem
// found is reported, joined into one error wrapping ErrInvalidSpec.
func ValidateSpec(spec *model.RunSpec) error {
	if spec == nil {
		return fmt.Errorf("%w: run spec is required", ErrInvalidSpec)
	}
	var errs []error

	switch spec.Kind {
	case model.RunTimeline, model.RunMonitoring, model.RunGrouped:
	default:
		errs = append(errs, fmt.Errorf("unknown run kind %q", spec.Kind))
	}

	if spec.Dataset == nil && spec.Source == nil {
		errs = append(errs, ErrNoDataset)
	}
	if spec.Source != nil {
		errs = append(errs, validateSource(spec.Source)...)
	}

	if spec.Interval != "" && !ValidInterval(spec.Interval) {
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownInterval, spec.Interval))
	}
	errs = append(errs, validateTimeAxis(spec.TimeAxis)...)

	if spec.Kind == model.RunGrouped {
		errs = append(errs, validateGrouping(spec.Grouping)...)
	}
	if spec.Kind == model.RunMonitoring && spec.Splitting != nil && spec.Splitting.Enabled {
		errs = append(errs, errors.New("splitting is not supported for monitoring runs"))
	}
	if spec.Splitting != nil && spec.Splitting.Enabled {
		if spec.Splitting.FieldKey == "" {
			errs = append(errs, errors.New("splitting field key is required"))
		}
		if _, err := NewAliasResolver(spec.Splitting.ValueAliases); err != nil {
			errs = append(errs, fmt.Errorf("splitting: %w", err))
		}
	}

	if spec.Export != nil {
		switch strings.ToLower(filepath.Ext(spec.Export.File)) {
		case ".csv", ".json":
		default:
			errs = append(errs, fmt.Errorf("export file %q must end in .csv or .json", spec.Export.File))
		}
		if filepath.Base(spec.Export.File) != spec.Export.File {
			errs = append(errs, fmt.Errorf("export file %q must be a bare file name", spec.Export.File))
		}
	}
	if spec.JobTimeout != "" {
		if _, err := time.ParseDuration(spec.JobTimeout); err != nil {
			errs = append(errs, fmt.Errorf("invalid job timeout %q: %w", spec.JobTimeout, err))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidSpec, errors.Join(errs...))
}

func validateSource(src *model.Source) []error {
	switch strings.ToLower(src.Type) {
	case "json":
		if src.URL == "" {
			return []error{errors.New("json source needs a url or file path")}
		}
	case "api":
	default:
		return []error{fmt.Errorf("unknown source type %q", src.Type)}
	}
	return nil
}

func validateTimeAxis(axis model.TimeAxisConfig) []error {
	var errs []error
	switch axis.Type {
	case model.TimeAxisDefault, model.TimeAxisEvent, "":
	case model.TimeAxisSchema:
		if axis.SchemaID == 0 || axis.FieldKey == "" {
			errs = append(errs, errors.New("schema time axis needs schemaId and fieldKey"))
		}
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownTimeAxis, axis.Type))
	}
	if _, err := newTimeWindow(axis.TimeFrame); err != nil {
		errs = append(errs, err)
	}
	return errs
}

func validateGrouping(g *model.GroupingConfig) []error {
	if g == nil {
		return []error{errors.New("grouped runs need a grouping config")}
	}
	var errs []error
	if g.FieldKey == "" {
		errs = append(errs, errors.New("grouping field key is required"))
	}
	if !ValidGroupOrder(g.Order) {
		errs = append(errs, fmt.Errorf("unknown group order %q", g.Order))
	}
	if g.TopN < 0 {
		errs = append(errs, fmt.Errorf("topN must not be negative, got %d", g.TopN))
	}
	if _, err := NewAliasResolver(g.ValueAliases); err != nil {
		errs = append(errs, fmt.Errorf("grouping: %w", err))
	}
	return errs
}
