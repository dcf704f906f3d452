package model

import "time"

// Run statuses, in the order a run moves through them.
const (
	RunPending     = "pending"
	RunLoading     = "loading"
	RunAggregating = "aggregating"
	RunExporting   = "exporting"
	RunCompleted   = "completed"
	RunFailed      = "failed"
	RunRetrying    = "retrying"
)

// SeriesSummary holds overall statistics of one numeric series across all buckets.
type SeriesSummary struct {
	Min   float64 `json:"overall_min"`
	Max   float64 `json:"overall_max"`
	Avg   float64 `json:"overall_avg"`
	Sum   float64 `json:"overall_sum"`
	Count int     `json:"overall_count"`
}

// RunSummary describes what happened to the input of a run.
type RunSummary struct {
	TotalResults       int                      `json:"total_results_considered"`
	WithTimestamp      int                      `json:"results_with_timestamp"`
	InTimeFrame        int                      `json:"results_in_time_frame"`
	FailedResults      int                      `json:"failed_results"`
	SplitCount         int                      `json:"split_count"`
	Series             map[string]SeriesSummary `json:"series,omitempty"`
	ProcessingDuration time.Duration            `json:"processing_duration"`
}

// Run is a stored run record.
type Run struct {
	ID        string    `json:"id"`
	Spec      RunSpec   `json:"spec"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RunLog is one persisted log line of a run.
type RunLog struct {
	Stage     string                 `json:"stage"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// RunError is one persisted error of a run.
type RunError struct {
	Message   string    `json:"error_message"`
	CreatedAt time.Time `json:"created_at"`
}
