package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"annotation-insights/internal/model"
	"annotation-insights/pkg/utils"
)

// Exporter writes run outputs under the output directory, one directory per run.
type Exporter struct {
	Output *utils.OutputManager
}

func NewExporter(outputDir string) *Exporter {
	return &Exporter{Output: utils.NewOutputManager(outputDir)}
}

// Export writes out to fileName. The format follows the extension.
func (e *Exporter) Export(runID string, out *model.RunOutput, fileName string) model.ExportResult {
	result := model.ExportResult{Type: e.Output.GetFileType(fileName)}

	path, err := e.Output.GetOutputFilePath(runID, fileName)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Path = path

	var count int
	switch result.Type {
	case "csv":
		count, err = exportCSV(path, out)
	case "json":
		count, err = exportJSON(path, runID, out)
	default:
		err = fmt.Errorf("unsupported export type for %q", fileName)
	}
	result.RecordCount = count
	result.Success = err == nil
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.DownloadURL = e.Output.GetDownloadURL(runID, fileName)
	return result
}

func exportCSV(path string, out *model.RunOutput) (int, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	var rows [][]string
	if out.Kind == model.RunGrouped {
		rows = groupedRows(out.Splits)
	} else {
		rows = timelineRows(out.Splits)
	}
	if err := writer.WriteAll(rows); err != nil {
		return 0, fmt.Errorf("failed to write rows: %w", err)
	}
	return len(rows) - 1, nil
}

func timelineRows(splits []model.SplitOutput) [][]string {
	var all []model.ChartDataPoint
	monitoring := false
	for _, s := range splits {
		all = append(all, s.Timeline...)
		for _, p := range s.Timeline {
			if p.Monitoring != nil {
				monitoring = true
			}
		}
	}
	series := seriesNames(all)

	header := []string{"split", "timestamp", "date", "count"}
	for _, name := range series {
		header = append(header, name, name+"_min", name+"_max", name+"_avg", name+"_count")
	}
	if monitoring {
		header = append(header, "annotated", "partial", "pending", "total_assets")
	}

	rows := [][]string{header}
	for _, s := range splits {
		for _, p := range s.Timeline {
			row := []string{s.Name, strconv.FormatInt(p.Timestamp, 10), p.DateString, strconv.Itoa(p.Count)}
			for _, name := range series {
				st, ok := p.Stats[name]
				if !ok {
					row = append(row, "", "", "", "", "")
					continue
				}
				row = append(row,
					utils.FormatFloat(p.Values[name]),
					utils.FormatFloat(st.Min),
					utils.FormatFloat(st.Max),
					utils.FormatFloat(st.Avg),
					strconv.Itoa(st.Count))
			}
			if monitoring {
				m := p.Monitoring
				if m == nil {
					m = &model.MonitoringCounts{}
				}
				row = append(row,
					strconv.Itoa(m.AnnotatedCount),
					strconv.Itoa(m.PartialCount),
					strconv.Itoa(m.PendingCount),
					strconv.Itoa(m.TotalAssetCount))
			}
			rows = append(rows, row)
		}
	}
	return rows
}

func groupedRows(splits []model.SplitOutput) [][]string {
	rows := [][]string{{"split", "value", "total_count", "percentage", "schema", "sources"}}
	for _, s := range splits {
		for _, p := range s.Grouped {
			sources := make([]string, 0, len(p.SourceCounts))
			for src, n := range p.SourceCounts {
				sources = append(sources, fmt.Sprintf("%s:%d", src, n))
			}
			sort.Strings(sources)
			rows = append(rows, []string{
				s.Name,
				p.ValueString,
				strconv.Itoa(p.TotalCount),
				strconv.FormatFloat(p.Percentage, 'f', 2, 64),
				p.SchemeName,
				strings.Join(sources, ";"),
			})
		}
	}
	return rows
}

func exportJSON(path, runID string, out *model.RunOutput) (int, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	count := 0
	for _, s := range out.Splits {
		count += len(s.Timeline) + len(s.Grouped)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	exportData := map[string]interface{}{
		"export_info": map[string]interface{}{
			"run_id":       runID,
			"exported_at":  time.Now().UTC(),
			"record_count": count,
			"export_type":  string(out.Kind),
		},
		"summary": out.Summary,
		"data":    out.Splits,
	}
	if err := encoder.Encode(exportData); err != nil {
		return 0, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return count, nil
}
