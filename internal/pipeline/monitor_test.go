package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"annotation-insights/internal/model"
)

func TestClassifyAsset(t *testing.T) {
	ok1 := result(1, 1, 1, "2024-01-01", nil)
	ok2 := result(2, 1, 2, "2024-01-01", nil)
	bad := failed(result(3, 1, 3, "2024-01-01", nil))

	tests := []struct {
		name     string
		results  []model.AnnotationResult
		expected []int
		want     AssetStatus
	}{
		{"no results", nil, []int{1, 2}, AssetPending},
		{"all expected", []model.AnnotationResult{ok1, ok2}, []int{1, 2}, AssetAnnotated},
		{"some expected", []model.AnnotationResult{ok1}, []int{1, 2}, AssetPartial},
		{"only unexpected", []model.AnnotationResult{ok2}, []int{1, 5}, AssetPending},
		{"a failure wins", []model.AnnotationResult{ok1, ok2, bad}, []int{1, 2}, AssetPending},
		{"nothing expected", []model.AnnotationResult{ok2}, nil, AssetAnnotated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyAsset(tt.results, tt.expected))
		})
	}
	assert.Equal(t, "partial", AssetPartial.String())
}

func TestAggregateMonitoring(t *testing.T) {
	pool := []model.Asset{
		{ID: 1},
		{ID: 2},
		{ID: 3, CreatedAt: "2024-01-10"},
		{ID: 4},
		{ID: 5}, // no time at all
	}
	results := []model.AnnotationResult{
		result(1, 1, 1, "2024-01-05", obj("score", 1.0)),
		result(2, 1, 2, "2024-01-06", obj("country", "DE")),
		result(3, 2, 1, "2024-01-06", obj("score", 3.0)),
		failed(result(4, 4, 1, "2024-02-02", nil)),
	}
	opts := MonitoringOptions{TimelineOptions: monthly, ExpectedSchemaIDs: []int{1, 2}}

	points, err := AggregateMonitoring(results, []model.Schema{sentimentSchema(), profileSchema()}, pool, opts)
	require.NoError(t, err)
	require.Len(t, points, 2)

	jan := points[0]
	assert.Equal(t, "2024-01", jan.DateString)
	assert.Equal(t, 2, jan.Count)
	require.NotNil(t, jan.Monitoring)
	assert.Equal(t, model.MonitoringCounts{
		AnnotatedCount:  1,
		PartialCount:    1,
		PendingCount:    1,
		TotalAssetCount: 3,
		PendingAssetIDs: []int{3},
	}, *jan.Monitoring)
	assert.Equal(t, 2.0, jan.Values["Sentiment_score"])

	feb := points[1]
	assert.Equal(t, "2024-02", feb.DateString)
	assert.Equal(t, 0, feb.Count, "failed results are not plotted")
	require.NotNil(t, feb.Monitoring)
	assert.Equal(t, []int{4}, feb.Monitoring.PendingAssetIDs)
	assert.Equal(t, 1, feb.Monitoring.TotalAssetCount)
}

func TestAggregateMonitoringFillGaps(t *testing.T) {
	pool := []model.Asset{
		{ID: 1, EventTimestamp: "2024-01-03"},
		{ID: 2, EventTimestamp: "2024-03-03"},
	}
	opts := MonitoringOptions{TimelineOptions: monthly}
	opts.FillGaps = true

	points, err := AggregateMonitoring(nil, nil, pool, opts)
	require.NoError(t, err)
	require.Len(t, points, 3)
	for _, p := range points {
		require.NotNil(t, p.Monitoring, p.DateString)
	}
	assert.Equal(t, 1, points[0].Monitoring.PendingCount)
	assert.Equal(t, 0, points[1].Monitoring.TotalAssetCount)
	assert.NotNil(t, points[1].Monitoring.PendingAssetIDs)
	assert.Equal(t, []int{2}, points[2].Monitoring.PendingAssetIDs)
}

func TestAggregateMonitoringTimeFrame(t *testing.T) {
	pool := []model.Asset{{ID: 1}, {ID: 2}}
	results := []model.AnnotationResult{
		result(1, 1, 1, "2023-12-20", nil),
		result(2, 1, 1, "2024-01-05", nil),
		result(3, 2, 1, "2024-03-01", nil),
	}
	opts := MonitoringOptions{TimelineOptions: monthly}
	opts.TimeAxis.TimeFrame = &model.TimeFrame{Enabled: true, StartDate: "2024-01-01", EndDate: "2024-02-29"}

	points, err := AggregateMonitoring(results, []model.Schema{sentimentSchema()}, pool, opts)
	require.NoError(t, err)

	// asset 1 sits at its earliest result, which is outside the frame
	require.Len(t, points, 1)
	assert.Equal(t, "2024-01", points[0].DateString)
	assert.Equal(t, []int{1}, points[0].Documents)
	assert.Equal(t, 0, points[0].Monitoring.TotalAssetCount)
}
