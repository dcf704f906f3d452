package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"annotation-insights/internal/model"
)

// DefaultInterval is used when a spec names no interval.
const DefaultInterval = model.IntervalDay

// Stage names recorded in run logs.
const (
	StageLoad      = "load"
	StageAggregate = "aggregate"
	StageExport    = "export"
)

// Recorder persists the progress of a run.
type Recorder interface {
	UpdateRunStatus(ctx context.Context, runID, status string) error
	SaveRunLog(ctx context.Context, runID, stage, level, message string, details map[string]interface{}) error
	SaveRunError(ctx context.Context, runID string, runErr error) error
	SaveRunOutput(ctx context.Context, runID string, out *model.RunOutput) error
}

// Runner executes runs: load, aggregate, export, record.
type Runner struct {
	Logger   *zap.Logger
	Recorder Recorder // optional
	Loader   *Loader
	Exporter *Exporter // optional; specs with an export fail without one

	DefaultInterval   model.Interval
	MaxParallelSplits int
	JobTimeout        time.Duration
}

// Run executes spec as run runID. Status transitions, logs, errors and the
// output are handed to the Recorder as they happen.
func (r *Runner) Run(ctx context.Context, runID string, spec model.RunSpec) (out *model.RunOutput, err error) {
	log := r.logger().With(zap.String("run_id", runID), zap.String("kind", string(spec.Kind)))
	tracker := NewTracker(runID)

	defer func() {
		if err != nil {
			log.Error("Run failed", zap.Error(err))
			r.status(ctx, runID, model.RunFailed)
			if r.Recorder != nil {
				if rerr := r.Recorder.SaveRunError(context.WithoutCancel(ctx), runID, err); rerr != nil {
					log.Warn("Failed to record run error", zap.Error(rerr))
				}
			}
		}
	}()

	if err := ValidateSpec(&spec); err != nil {
		return nil, err
	}
	if spec.Interval == "" {
		spec.Interval = r.defaultInterval()
	}

	timeout := r.JobTimeout
	if spec.JobTimeout != "" {
		// validated above
		timeout, _ = time.ParseDuration(spec.JobTimeout)
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	// --- LOAD ---
	r.status(ctx, runID, model.RunLoading)
	tracker.StartStage(StageLoad)
	ds, err := r.loader().Load(ctx, &spec)
	if err != nil {
		tracker.FailStage(StageLoad, err)
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	d := tracker.CompleteStage(StageLoad, len(ds.Results))
	r.logStage(ctx, log, runID, StageLoad, "Dataset loaded", map[string]interface{}{
		"schemas":     len(ds.Schemas),
		"assets":      len(ds.Assets),
		"results":     len(ds.Results),
		"duration_ms": d.Milliseconds(),
	})

	// --- AGGREGATE ---
	r.status(ctx, runID, model.RunAggregating)
	tracker.StartStage(StageAggregate)
	out, err = Execute(ctx, &spec, ds, r.MaxParallelSplits)
	if err != nil {
		tracker.FailStage(StageAggregate, err)
		return nil, fmt.Errorf("aggregate: %w", err)
	}
	out.RunID = runID
	d = tracker.CompleteStage(StageAggregate, out.Summary.InTimeFrame)
	r.logStage(ctx, log, runID, StageAggregate, "Aggregation completed", map[string]interface{}{
		"splits":          len(out.Splits),
		"results_in_time": out.Summary.InTimeFrame,
		"failed_results":  out.Summary.FailedResults,
		"duration_ms":     d.Milliseconds(),
	})
	if out.Message != "" {
		r.logStage(ctx, log, runID, StageAggregate, out.Message, nil)
	}

	// --- EXPORT ---
	if spec.Export != nil {
		r.status(ctx, runID, model.RunExporting)
		if r.Exporter == nil {
			return nil, errors.New("export requested but no output directory is configured")
		}
		tracker.StartStage(StageExport)
		res := r.Exporter.Export(runID, out, spec.Export.File)
		out.Export = &res
		if !res.Success {
			exportErr := errors.New(res.Error)
			tracker.FailStage(StageExport, exportErr)
			return nil, fmt.Errorf("export: %w", exportErr)
		}
		d = tracker.CompleteStage(StageExport, res.RecordCount)
		r.logStage(ctx, log, runID, StageExport, "Export completed", map[string]interface{}{
			"path":         res.Path,
			"record_count": res.RecordCount,
			"duration_ms":  d.Milliseconds(),
		})
	}

	out.Summary.ProcessingDuration = tracker.Elapsed()
	if r.Recorder != nil {
		if err := r.Recorder.SaveRunOutput(ctx, runID, out); err != nil {
			return nil, fmt.Errorf("save output: %w", err)
		}
	}
	r.status(ctx, runID, model.RunCompleted)
	log.Info("Run completed", zap.Duration("duration", out.Summary.ProcessingDuration))
	return out, nil
}

// Analyze validates, loads and aggregates spec without recording anything.
// Exports are not written.
func (r *Runner) Analyze(ctx context.Context, spec model.RunSpec) (*model.RunOutput, error) {
	if err := ValidateSpec(&spec); err != nil {
		return nil, err
	}
	if spec.Interval == "" {
		spec.Interval = r.defaultInterval()
	}
	ds, err := r.loader().Load(ctx, &spec)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	return Execute(ctx, &spec, ds, r.MaxParallelSplits)
}

// Execute aggregates a loaded dataset according to spec. It has no side
// effects; splits are aggregated concurrently, at most parallel at a time
// (unbounded when parallel <= 0).
func Execute(ctx context.Context, spec *model.RunSpec, ds *model.Dataset, parallel int) (*model.RunOutput, error) {
	if ds == nil {
		return nil, ErrNoDataset
	}
	interval := spec.Interval
	if interval == "" {
		interval = DefaultInterval
	}

	start := time.Now()
	assets := ds.AssetsByID()
	filtered, fstats, err := FilterByTimeFrame(ds.Results, assets, spec.TimeAxis)
	if err != nil {
		return nil, err
	}
	out := &model.RunOutput{
		Kind: spec.Kind,
		Summary: model.RunSummary{
			TotalResults:  fstats.Total,
			WithTimestamp: fstats.WithTimestamp,
			InTimeFrame:   fstats.InTimeFrame,
			FailedResults: fstats.Failed,
		},
	}

	groups, err := SplitByMembership(filtered, ds.Results, ds.Schemas, spec.Splitting)
	if err != nil {
		return nil, err
	}
	var visible []string
	if spec.Splitting != nil && spec.Splitting.Enabled {
		visible = spec.Splitting.VisibleSplits
	}
	names := VisibleGroups(groups, visible)
	out.Splits = make([]model.SplitOutput, len(names))
	out.Summary.SplitCount = len(names)

	tl := TimelineOptions{TimeAxis: spec.TimeAxis, Interval: interval, FillGaps: spec.FillGaps}
	var grouping GroupOptions
	if spec.Kind == model.RunGrouped {
		if spec.Grouping == nil {
			return nil, errors.New("grouped runs need a grouping config")
		}
		aliases, err := NewAliasResolver(spec.Grouping.ValueAliases)
		if err != nil {
			return nil, err
		}
		grouping = GroupOptions{
			SchemaID:         spec.Grouping.SchemaID,
			FieldKey:         spec.Grouping.FieldKey,
			AggregateSources: spec.Grouping.AggregateSources,
			Aliases:          aliases,
			Order:            spec.Grouping.Order,
			TopN:             spec.Grouping.TopN,
		}
	}

	var expected []int
	if spec.Monitoring != nil {
		expected = spec.Monitoring.ExpectedSchemaIDs
	}

	var (
		mu       sync.Mutex
		notFound error
	)
	g, gctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results := groups[name]
			split := model.SplitOutput{Name: name, Results: len(results)}
			switch spec.Kind {
			case model.RunTimeline:
				points, err := AggregateTimeline(results, ds.Schemas, assets, tl)
				if err != nil {
					return err
				}
				split.Timeline = points
			case model.RunMonitoring:
				// monitoring is never split and windows by itself, so assets
				// annotated outside the frame are not mistaken for pending
				points, err := AggregateMonitoring(ds.Results, ds.Schemas, monitoringPool(ds, spec.Monitoring), MonitoringOptions{
					TimelineOptions:   tl,
					ExpectedSchemaIDs: expected,
				})
				if err != nil {
					return err
				}
				split.Timeline = points
			case model.RunGrouped:
				points, err := AggregateGrouped(results, ds.Schemas, assets, grouping)
				if errors.Is(err, ErrSchemaNotFound) || errors.Is(err, ErrFieldNotFound) {
					mu.Lock()
					notFound = err
					mu.Unlock()
				} else if err != nil {
					return err
				}
				split.Grouped = points
			default:
				return fmt.Errorf("unknown run kind %q", spec.Kind)
			}
			out.Splits[i] = split
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if notFound != nil {
		out.Message = notFoundMessage(notFound)
	}
	out.Summary.Series = SummarizeSeries(out.Splits)
	out.Summary.ProcessingDuration = time.Since(start)
	return out, nil
}

func notFoundMessage(err error) string {
	if errors.Is(err, ErrSchemaNotFound) {
		return "Schema not found: " + err.Error()
	}
	return "Field not found: " + err.Error()
}

func (r *Runner) status(ctx context.Context, runID, status string) {
	if r.Recorder == nil {
		return
	}
	if err := r.Recorder.UpdateRunStatus(context.WithoutCancel(ctx), runID, status); err != nil {
		r.logger().Warn("Failed to update run status",
			zap.String("run_id", runID), zap.String("status", status), zap.Error(err))
	}
}

func (r *Runner) logStage(ctx context.Context, log *zap.Logger, runID, stage, msg string, details map[string]interface{}) {
	log.Info(msg, zap.String("stage", stage), zap.Any("details", details))
	if r.Recorder == nil {
		return
	}
	if err := r.Recorder.SaveRunLog(ctx, runID, stage, "info", msg, details); err != nil {
		log.Warn("Failed to record run log", zap.Error(err))
	}
}

func (r *Runner) loader() *Loader {
	if r.Loader != nil {
		return r.Loader
	}
	return &Loader{Logger: r.Logger}
}

func (r *Runner) defaultInterval() model.Interval {
	if r.DefaultInterval != "" {
		return r.DefaultInterval
	}
	return DefaultInterval
}

func (r *Runner) logger() *zap.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return zap.NewNop()
}
