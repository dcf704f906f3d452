package model

// Interval is the width of a timeline bucket.
type Interval string

const (
	IntervalDay     Interval = "day"
	IntervalWeek    Interval = "week" // ISO week, starts Monday
	IntervalMonth   Interval = "month"
	IntervalQuarter Interval = "quarter"
	IntervalYear    Interval = "year"
)

// TimeAxisType selects where a result's timestamp comes from.
type TimeAxisType string

const (
	TimeAxisDefault TimeAxisType = "default" // the result's own timestamp
	TimeAxisEvent   TimeAxisType = "event"   // the asset's event timestamp
	TimeAxisSchema  TimeAxisType = "schema"  // a date-like field of the result value
)

// TimeFrame restricts results to an inclusive [StartDate, EndDate] window.
// Dates are strings in any format the time resolver accepts; an empty bound is open.
type TimeFrame struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	StartDate string `json:"startDate,omitempty" yaml:"start_date"`
	EndDate   string `json:"endDate,omitempty" yaml:"end_date"`
}

// TimeAxisConfig selects how each result is placed on the time axis.
type TimeAxisConfig struct {
	Type      TimeAxisType `json:"type" yaml:"type"`
	SchemaID  int          `json:"schemaId,omitempty" yaml:"schema_id"`
	FieldKey  string       `json:"fieldKey,omitempty" yaml:"field_key"`
	TimeFrame *TimeFrame   `json:"timeFrame,omitempty" yaml:"time_frame"`
}

// VariableSplittingConfig partitions results by the canonical value of one field.
type VariableSplittingConfig struct {
	Enabled       bool                `json:"enabled" yaml:"enabled"`
	SchemaID      int                 `json:"schemaId" yaml:"schema_id"`
	FieldKey      string              `json:"fieldKey" yaml:"field_key"`
	VisibleSplits []string            `json:"visibleSplits,omitempty" yaml:"visible_splits"` // empty = all groups
	ValueAliases  map[string][]string `json:"valueAliases,omitempty" yaml:"value_aliases"`   // canonical -> raw labels
}

// GroupOrder selects the ordering of grouped output.
type GroupOrder string

const (
	OrderCountDesc GroupOrder = "count_desc"
	OrderValueAsc  GroupOrder = "value_asc"
	OrderValueDesc GroupOrder = "value_desc"
)

// GroupingConfig configures categorical aggregation.
type GroupingConfig struct {
	SchemaID         int                 `json:"schemaId" yaml:"schema_id"`
	FieldKey         string              `json:"fieldKey" yaml:"field_key"`
	AggregateSources bool                `json:"aggregateSources" yaml:"aggregate_sources"`
	Order            GroupOrder          `json:"order,omitempty" yaml:"order"`
	TopN             int                 `json:"topN,omitempty" yaml:"top_n"`
	ValueAliases     map[string][]string `json:"valueAliases,omitempty" yaml:"value_aliases"`
}

// MonitoringConfig enables status accounting over a candidate asset pool.
type MonitoringConfig struct {
	ExpectedSchemaIDs []int `json:"expectedSchemaIds" yaml:"expected_schema_ids"`
	AssetIDs          []int `json:"assetIds,omitempty" yaml:"asset_ids"` // empty = every asset in the dataset
}

// RunKind names the aggregation a run performs.
type RunKind string

const (
	RunTimeline   RunKind = "timeline"
	RunGrouped    RunKind = "grouped"
	RunMonitoring RunKind = "monitoring"
)

// Source points at a dataset to ingest.
type Source struct {
	Type  string `json:"type"`            // json, api
	URL   string `json:"url"`             // file path or http(s) URL
	RunID int    `json:"run_id,omitempty"` // upstream annotation run filter for api sources
}

// Export defines export targets
type Export struct {
	File string `json:"file"` // e.g. timeline.csv, grouped.json
}

// RunSpec is the body of POST /api/v1/runs and POST /api/v1/analyze
type RunSpec struct {
	Kind       RunKind                  `json:"kind"`
	Source     *Source                  `json:"source,omitempty"`  // ingest from here
	Dataset    *Dataset                 `json:"dataset,omitempty"` // or use this inline dataset
	TimeAxis   TimeAxisConfig           `json:"timeAxis"`
	Interval   Interval                 `json:"interval,omitempty"`
	FillGaps   bool                     `json:"fillGaps,omitempty"`
	Splitting  *VariableSplittingConfig `json:"splitting,omitempty"`
	Grouping   *GroupingConfig          `json:"grouping,omitempty"`
	Monitoring *MonitoringConfig        `json:"monitoring,omitempty"`
	Export     *Export                  `json:"export,omitempty"`
	JobTimeout string                   `json:"jobTimeout,omitempty"` // e.g. "5m"
}
