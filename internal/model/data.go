package model

// FieldStats summarises the numeric samples of one series in one bucket.
type FieldStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	Sum   float64 `json:"sum"`
	Count int     `json:"count"`
}

// MonitoringCounts is the per-bucket asset status breakdown.
type MonitoringCounts struct {
	AnnotatedCount  int   `json:"annotatedCount"`
	PartialCount    int   `json:"partialCount"`
	PendingCount    int   `json:"pendingCount"`
	TotalAssetCount int   `json:"totalAssetCount"`
	PendingAssetIDs []int `json:"pendingAssetIds"`
}

// ChartDataPoint is one time bucket of a timeline.
type ChartDataPoint struct {
	Timestamp  int64                 `json:"timestamp"` // bucket start, epoch ms
	DateString string                `json:"dateString"`
	Count      int                   `json:"count"` // distinct assets
	Documents  []int                 `json:"documents"`
	Values     map[string]float64    `json:"values"` // series key -> plotted value (mean)
	Stats      map[string]FieldStats `json:"stats"`
	Monitoring *MonitoringCounts     `json:"monitoring,omitempty"`
}

// GroupedDataPoint is one categorical bucket.
type GroupedDataPoint struct {
	ValueString     string           `json:"valueString"`
	TotalCount      int              `json:"totalCount"`
	Percentage      float64          `json:"percentage"`
	SourceCounts    map[string]int   `json:"sourceCounts"`
	SourceDocuments map[string][]int `json:"sourceDocuments"`
	SchemeName      string           `json:"schemeName"`
}

// SplitOutput is the aggregation of one split group.
type SplitOutput struct {
	Name     string             `json:"name"`
	Results  int                `json:"results"`
	Timeline []ChartDataPoint   `json:"timeline,omitempty"`
	Grouped  []GroupedDataPoint `json:"grouped,omitempty"`
}

// RunOutput is everything a run produces.
type RunOutput struct {
	RunID   string        `json:"run_id,omitempty"`
	Kind    RunKind       `json:"kind"`
	Splits  []SplitOutput `json:"splits"`
	Summary RunSummary    `json:"summary"`
	Message string        `json:"message,omitempty"` // inline notice, e.g. schema not found
	Export  *ExportResult `json:"export,omitempty"`
}

// ExportResult represents the result of an export operation
type ExportResult struct {
	Type        string `json:"type"` // "csv", "json"
	Path        string `json:"path"`
	DownloadURL string `json:"download_url,omitempty"`
	RecordCount int    `json:"record_count"`
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
}
