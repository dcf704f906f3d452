package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"annotation-insights/internal/model"
)

func timelineOutput() *model.RunOutput {
	return &model.RunOutput{
		Kind: model.RunMonitoring,
		Splits: []model.SplitOutput{{
			Name:    AllGroup,
			Results: 3,
			Timeline: []model.ChartDataPoint{
				{
					Timestamp:  ms(2024, 1, 1),
					DateString: "2024-01",
					Count:      2,
					Documents:  []int{1, 2},
					Values:     map[string]float64{"Sentiment_score": 0.5},
					Stats:      map[string]model.FieldStats{"Sentiment_score": {Min: 0.25, Max: 0.75, Avg: 0.5, Sum: 1, Count: 2}},
					Monitoring: &model.MonitoringCounts{AnnotatedCount: 1, PendingCount: 1, TotalAssetCount: 2, PendingAssetIDs: []int{3}},
				},
				{
					Timestamp:  ms(2024, 2, 1),
					DateString: "2024-02",
					Values:     map[string]float64{},
					Stats:      map[string]model.FieldStats{},
				},
			},
		}},
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestExportTimelineCSV(t *testing.T) {
	dir := t.TempDir()
	res := NewExporter(dir).Export("run-1", timelineOutput(), "timeline.csv")

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "csv", res.Type)
	assert.Equal(t, filepath.Join(dir, "run-1", "timeline.csv"), res.Path)
	assert.Equal(t, "/api/v1/download/run-1/timeline.csv", res.DownloadURL)
	assert.Equal(t, 2, res.RecordCount)

	rows := readCSV(t, res.Path)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{
		"split", "timestamp", "date", "count",
		"Sentiment_score", "Sentiment_score_min", "Sentiment_score_max", "Sentiment_score_avg", "Sentiment_score_count",
		"annotated", "partial", "pending", "total_assets",
	}, rows[0])
	assert.Equal(t, []string{"all", "1704067200000", "2024-01", "2", "0.5", "0.25", "0.75", "0.5", "2", "1", "0", "1", "2"}, rows[1])
	assert.Equal(t, []string{"all", "1706745600000", "2024-02", "0", "", "", "", "", "", "0", "0", "0", "0"}, rows[2])
}

func TestExportGroupedCSV(t *testing.T) {
	out := &model.RunOutput{
		Kind: model.RunGrouped,
		Splits: []model.SplitOutput{{
			Name: AllGroup,
			Grouped: []model.GroupedDataPoint{
				{ValueString: "DE", TotalCount: 3, Percentage: 75, SourceCounts: map[string]int{"8": 1, "7": 2}, SchemeName: "Profile"},
				{ValueString: "FR", TotalCount: 1, Percentage: 25, SourceCounts: map[string]int{"7": 1}, SchemeName: "Profile"},
			},
		}},
	}
	res := NewExporter(t.TempDir()).Export("run-2", out, "grouped.csv")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 2, res.RecordCount)

	rows := readCSV(t, res.Path)
	assert.Equal(t, [][]string{
		{"split", "value", "total_count", "percentage", "schema", "sources"},
		{"all", "DE", "3", "75.00", "Profile", "7:2;8:1"},
		{"all", "FR", "1", "25.00", "Profile", "7:1"},
	}, rows)
}

func TestExportJSON(t *testing.T) {
	res := NewExporter(t.TempDir()).Export("run-3", timelineOutput(), "timeline.json")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "json", res.Type)
	assert.Equal(t, 2, res.RecordCount)

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	var doc struct {
		ExportInfo struct {
			RunID       string `json:"run_id"`
			RecordCount int    `json:"record_count"`
			ExportType  string `json:"export_type"`
		} `json:"export_info"`
		Data []model.SplitOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "run-3", doc.ExportInfo.RunID)
	assert.Equal(t, 2, doc.ExportInfo.RecordCount)
	assert.Equal(t, "monitoring", doc.ExportInfo.ExportType)
	require.Len(t, doc.Data, 1)
	assert.Equal(t, []int{3}, doc.Data[0].Timeline[0].Monitoring.PendingAssetIDs)
}

func TestExportUnsupported(t *testing.T) {
	res := NewExporter(t.TempDir()).Export("run-4", timelineOutput(), "timeline.xml")
	assert.False(t, res.Success)
	assert.Equal(t, "unknown", res.Type)
	assert.Contains(t, res.Error, "unsupported export type")
	assert.Empty(t, res.DownloadURL)
}
