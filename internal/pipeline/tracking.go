package pipeline

import (
	"sort"
	"sync"
	"time"

	"annotation-insights/internal/model"
)

// StageMetrics times one stage of a run.
type StageMetrics struct {
	Stage     string        `json:"stage"`
	StartTime time.Time     `json:"start_time"`
	EndTime   *time.Time    `json:"end_time,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
	Records   int           `json:"records"`
	Status    string        `json:"status"` // running, completed, failed
	Error     string        `json:"error,omitempty"`
}

// Tracker collects stage metrics of a single run.
type Tracker struct {
	RunID string
	start time.Time

	mu     sync.Mutex
	stages map[string]*StageMetrics
	order  []string
}

func NewTracker(runID string) *Tracker {
	return &Tracker{
		RunID:  runID,
		start:  time.Now(),
		stages: make(map[string]*StageMetrics),
	}
}

func (t *Tracker) StartStage(stage string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.stages[stage]; !ok {
		t.order = append(t.order, stage)
	}
	t.stages[stage] = &StageMetrics{Stage: stage, StartTime: time.Now(), Status: "running"}
}

func (t *Tracker) CompleteStage(stage string, records int) time.Duration {
	return t.finish(stage, records, nil)
}

func (t *Tracker) FailStage(stage string, err error) time.Duration {
	return t.finish(stage, 0, err)
}

func (t *Tracker) finish(stage string, records int, err error) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.stages[stage]
	if !ok {
		return 0
	}
	end := time.Now()
	m.EndTime = &end
	m.Duration = end.Sub(m.StartTime)
	m.Records = records
	m.Status = "completed"
	if err != nil {
		m.Status = "failed"
		m.Error = err.Error()
	}
	return m.Duration
}

// Stages returns a snapshot of every stage in start order.
func (t *Tracker) Stages() []StageMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]StageMetrics, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, *t.stages[name])
	}
	return out
}

func (t *Tracker) Elapsed() time.Duration {
	return time.Since(t.start)
}

// SummarizeSeries folds the per-bucket stats of every split into overall
// per-series statistics.
func SummarizeSeries(splits []model.SplitOutput) map[string]model.SeriesSummary {
	merged := make(map[string]model.FieldStats)
	for _, s := range splits {
		for _, p := range s.Timeline {
			for series, st := range p.Stats {
				if prev, ok := merged[series]; ok {
					merged[series] = mergeFieldStats(prev, st)
				} else {
					merged[series] = st
				}
			}
		}
	}
	if len(merged) == 0 {
		return nil
	}
	out := make(map[string]model.SeriesSummary, len(merged))
	for series, st := range merged {
		out[series] = model.SeriesSummary{Min: st.Min, Max: st.Max, Avg: st.Avg, Sum: st.Sum, Count: st.Count}
	}
	return out
}

// seriesNames lists the series of a timeline, sorted.
func seriesNames(points []model.ChartDataPoint) []string {
	set := make(map[string]struct{})
	for _, p := range points {
		for k := range p.Stats {
			set[k] = struct{}{}
		}
	}
	names := make([]string, 0, len(set))
	for k := range set {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
