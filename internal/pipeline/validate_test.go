package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"annotation-insights/internal/model"
)

func validSpec() model.RunSpec {
	return model.RunSpec{
		Kind:     model.RunTimeline,
		Source:   &model.Source{Type: "json", URL: "testdata/dataset.json"},
		Interval: model.IntervalWeek,
		TimeAxis: model.TimeAxisConfig{Type: model.TimeAxisDefault},
	}
}

func TestValidateSpec(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *model.RunSpec)
		wantErr string
	}{
		{name: "valid", mutate: func(s *model.RunSpec) {}},
		{name: "inline dataset", mutate: func(s *model.RunSpec) {
			s.Source = nil
			s.Dataset = &model.Dataset{}
		}},
		{name: "unknown kind", mutate: func(s *model.RunSpec) { s.Kind = "heatmap" }, wantErr: `unknown run kind "heatmap"`},
		{name: "no data", mutate: func(s *model.RunSpec) { s.Source = nil }, wantErr: ErrNoDataset.Error()},
		{name: "json without url", mutate: func(s *model.RunSpec) { s.Source.URL = "" }, wantErr: "json source needs a url"},
		{name: "unknown source", mutate: func(s *model.RunSpec) { s.Source.Type = "kafka" }, wantErr: `unknown source type "kafka"`},
		{name: "unknown interval", mutate: func(s *model.RunSpec) { s.Interval = "hour" }, wantErr: ErrUnknownInterval.Error()},
		{name: "unknown axis", mutate: func(s *model.RunSpec) { s.TimeAxis.Type = "upload" }, wantErr: ErrUnknownTimeAxis.Error()},
		{name: "schema axis without field", mutate: func(s *model.RunSpec) {
			s.TimeAxis = model.TimeAxisConfig{Type: model.TimeAxisSchema, SchemaID: 2}
		}, wantErr: "schema time axis needs schemaId and fieldKey"},
		{name: "reversed frame", mutate: func(s *model.RunSpec) {
			s.TimeAxis.TimeFrame = &model.TimeFrame{Enabled: true, StartDate: "2024-02-01", EndDate: "2024-01-01"}
		}, wantErr: "end date before start date"},
		{name: "grouped without grouping", mutate: func(s *model.RunSpec) { s.Kind = model.RunGrouped }, wantErr: "grouped runs need a grouping config"},
		{name: "grouping problems", mutate: func(s *model.RunSpec) {
			s.Kind = model.RunGrouped
			s.Grouping = &model.GroupingConfig{SchemaID: 2, Order: "random", TopN: -1}
		}, wantErr: "grouping field key is required"},
		{name: "ambiguous grouping aliases", mutate: func(s *model.RunSpec) {
			s.Kind = model.RunGrouped
			s.Grouping = &model.GroupingConfig{SchemaID: 2, FieldKey: "country", ValueAliases: map[string][]string{"A": {"x"}, "B": {"x"}}}
		}, wantErr: ErrAmbiguousAlias.Error()},
		{name: "monitoring with splitting", mutate: func(s *model.RunSpec) {
			s.Kind = model.RunMonitoring
			s.Splitting = &model.VariableSplittingConfig{Enabled: true, SchemaID: 2, FieldKey: "country"}
		}, wantErr: "splitting is not supported for monitoring runs"},
		{name: "disabled splitting is ignored", mutate: func(s *model.RunSpec) {
			s.Splitting = &model.VariableSplittingConfig{Enabled: false}
		}},
		{name: "splitting without field", mutate: func(s *model.RunSpec) {
			s.Splitting = &model.VariableSplittingConfig{Enabled: true, SchemaID: 2}
		}, wantErr: "splitting field key is required"},
		{name: "export extension", mutate: func(s *model.RunSpec) { s.Export = &model.Export{File: "out.xlsx"} }, wantErr: "must end in .csv or .json"},
		{name: "export path", mutate: func(s *model.RunSpec) { s.Export = &model.Export{File: "../out.csv"} }, wantErr: "must be a bare file name"},
		{name: "job timeout", mutate: func(s *model.RunSpec) { s.JobTimeout = "soon" }, wantErr: `invalid job timeout "soon"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validSpec()
			tt.mutate(&spec)
			err := ValidateSpec(&spec)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidSpec)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidateSpecReportsEverything(t *testing.T) {
	spec := model.RunSpec{Kind: "pie", Interval: "decade"}
	err := ValidateSpec(&spec)
	assert.ErrorIs(t, err, ErrInvalidSpec)
	assert.ErrorIs(t, err, ErrNoDataset)
	assert.ErrorIs(t, err, ErrUnknownInterval)
	assert.ErrorContains(t, err, `unknown run kind "pie"`)
}

func TestValidateSpecNil(t *testing.T) {
	assert.ErrorIs(t, ValidateSpec(nil), ErrInvalidSpec)
}
