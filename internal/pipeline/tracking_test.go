package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"annotation-insights/internal/model"
)

func TestTracker(t *testing.T) {
	tr := NewTracker("run-1")
	tr.StartStage(StageLoad)
	tr.CompleteStage(StageLoad, 12)
	tr.StartStage(StageAggregate)
	tr.FailStage(StageAggregate, errors.New("boom"))
	assert.Zero(t, tr.CompleteStage("never-started", 1))

	stages := tr.Stages()
	require.Len(t, stages, 2)
	assert.Equal(t, StageLoad, stages[0].Stage)
	assert.Equal(t, "completed", stages[0].Status)
	assert.Equal(t, 12, stages[0].Records)
	assert.NotNil(t, stages[0].EndTime)
	assert.Equal(t, "failed", stages[1].Status)
	assert.Equal(t, "boom", stages[1].Error)
	assert.GreaterOrEqual(t, int64(tr.Elapsed()), int64(stages[0].Duration))
}

func TestSummarizeSeries(t *testing.T) {
	splits := []model.SplitOutput{
		{Name: "a", Timeline: []model.ChartDataPoint{
			{Stats: map[string]model.FieldStats{"S_x": {Min: 1, Max: 3, Avg: 2, Sum: 4, Count: 2}}},
			{Stats: map[string]model.FieldStats{"S_x": {Min: 0, Max: 0, Avg: 0, Sum: 0, Count: 1}}},
		}},
		{Name: "b", Timeline: []model.ChartDataPoint{
			{Stats: map[string]model.FieldStats{"S_x": {Min: 5, Max: 5, Avg: 5, Sum: 5, Count: 1}, "S_y": {Min: 1, Max: 1, Avg: 1, Sum: 1, Count: 1}}},
		}},
	}

	got := SummarizeSeries(splits)
	assert.Equal(t, map[string]model.SeriesSummary{
		"S_x": {Min: 0, Max: 5, Avg: 2.25, Sum: 9, Count: 4},
		"S_y": {Min: 1, Max: 1, Avg: 1, Sum: 1, Count: 1},
	}, got)

	assert.Nil(t, SummarizeSeries([]model.SplitOutput{{Name: "g", Grouped: []model.GroupedDataPoint{{ValueString: "a"}}}}))
}
