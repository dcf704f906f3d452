package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"annotation-insights/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "insights.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testSpec() model.RunSpec {
	return model.RunSpec{
		Kind:     model.RunGrouped,
		Source:   &model.Source{Type: "api", RunID: 4},
		Interval: model.IntervalWeek,
		Grouping: &model.GroupingConfig{
			SchemaID:     2,
			FieldKey:     "country",
			ValueAliases: map[string][]string{"United States": {"USA"}},
		},
	}
}

func TestRunLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.SaveRun(ctx, "run-1", testSpec()))

	run, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.RunPending, run.Status)
	assert.Equal(t, testSpec(), run.Spec)
	assert.False(t, run.CreatedAt.IsZero())

	require.NoError(t, s.UpdateRunStatus(ctx, "run-1", model.RunAggregating))
	run, err = s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.RunAggregating, run.Status)
	assert.False(t, run.UpdatedAt.Before(run.CreatedAt))

	assert.ErrorIs(t, s.UpdateRunStatus(ctx, "missing", model.RunFailed), ErrNotFound)
	_, err = s.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListRuns(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)

	require.NoError(t, s.SaveRun(ctx, "a", testSpec()))
	require.NoError(t, s.SaveRun(ctx, "b", testSpec()))

	runs, err = s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	ids := []string{runs[0].ID, runs[1].ID}
	assert.ElementsMatch(t, []string{"a", "b"}, ids)
	assert.Nil(t, runs[0].Spec.Grouping, "listing leaves specs out")
}

func TestRunLogsAndErrors(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.SaveRun(ctx, "run-1", testSpec()))

	require.NoError(t, s.SaveRunLog(ctx, "run-1", "load", "info", "Dataset loaded", map[string]interface{}{"results": 3}))
	require.NoError(t, s.SaveRunLog(ctx, "run-1", "aggregate", "info", "Aggregation completed", nil))
	require.NoError(t, s.SaveRunLog(ctx, "run-2", "load", "info", "other run", nil))

	logs, err := s.GetRunLogs(ctx, "run-1", "")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "Dataset loaded", logs[0].Message)
	assert.Equal(t, map[string]interface{}{"results": float64(3)}, logs[0].Details)
	assert.Nil(t, logs[1].Details)

	logs, err = s.GetRunLogs(ctx, "run-1", "aggregate")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "aggregate", logs[0].Stage)

	require.NoError(t, s.SaveRunError(ctx, "run-1", errors.New("boom")))
	require.NoError(t, s.SaveRunError(ctx, "run-1", nil))
	errs, err := s.GetRunErrors(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "boom", errs[0].Message)
}

func TestRunOutput(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.GetRunOutput(ctx, "run-1")
	assert.ErrorIs(t, err, ErrNotFound)

	out := &model.RunOutput{
		RunID: "run-1",
		Kind:  model.RunGrouped,
		Splits: []model.SplitOutput{{
			Name:    "all",
			Results: 2,
			Grouped: []model.GroupedDataPoint{{
				ValueString:     "DE",
				TotalCount:      2,
				Percentage:      100,
				SourceCounts:    map[string]int{"all": 2},
				SourceDocuments: map[string][]int{"all": {1, 2}},
				SchemeName:      "Profile",
			}},
		}},
		Summary: model.RunSummary{TotalResults: 2, InTimeFrame: 2, SplitCount: 1},
	}
	require.NoError(t, s.SaveRunOutput(ctx, "run-1", out))
	out.Message = "replaced"
	require.NoError(t, s.SaveRunOutput(ctx, "run-1", out))

	got, err := s.GetRunOutput(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, out, got)
}

func TestResetAndDeleteRun(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.SaveRun(ctx, "run-1", testSpec()))
	require.NoError(t, s.SaveRunLog(ctx, "run-1", "load", "info", "loaded", nil))
	require.NoError(t, s.SaveRunError(ctx, "run-1", errors.New("boom")))
	require.NoError(t, s.SaveRunOutput(ctx, "run-1", &model.RunOutput{Kind: model.RunTimeline}))

	assert.ErrorIs(t, s.ResetRun(ctx, "run-1"), ErrRunInProgress, "pending runs are not reset")
	require.NoError(t, s.UpdateRunStatus(ctx, "run-1", model.RunFailed))

	require.NoError(t, s.ResetRun(ctx, "run-1"))
	run, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.RunRetrying, run.Status)
	logs, err := s.GetRunLogs(ctx, "run-1", "")
	require.NoError(t, err)
	assert.Empty(t, logs)
	errs, err := s.GetRunErrors(ctx, "run-1")
	require.NoError(t, err)
	assert.Empty(t, errs)
	_, err = s.GetRunOutput(ctx, "run-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.ResetRun(ctx, "run-1"), ErrRunInProgress, "a claimed run cannot be claimed again")
	assert.ErrorIs(t, s.ResetRun(ctx, "nope"), ErrNotFound)

	require.NoError(t, s.DeleteRun(ctx, "run-1"))
	_, err = s.GetRun(ctx, "run-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteRun(ctx, "run-1"), ErrNotFound)
}

func TestResetRunConcurrentClaims(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.SaveRun(ctx, "run-1", testSpec()))
	require.NoError(t, s.UpdateRunStatus(ctx, "run-1", model.RunCompleted))

	const claims = 8
	var (
		wg   sync.WaitGroup
		won  atomic.Int32
		busy atomic.Int32
	)
	for i := 0; i < claims; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			switch err := s.ResetRun(ctx, "run-1"); {
			case err == nil:
				won.Add(1)
			case errors.Is(err, ErrRunInProgress):
				busy.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), won.Load())
	assert.Equal(t, int32(claims-1), busy.Load())
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "insights.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveRun(ctx, "run-1", testSpec()))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	run, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.ID)
}
