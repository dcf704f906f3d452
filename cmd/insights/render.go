package main

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"annotation-insights/internal/model"
	"annotation-insights/internal/pipeline"
	"annotation-insights/pkg/utils"
)

var (
	accent      = lipgloss.Color("#8BC34A")
	muted       = lipgloss.Color("#6B7280")
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(accent)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	noteStyle   = lipgloss.NewStyle().Foreground(muted).Italic(true)
)

func newTable(headers []string, rows [][]string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(muted)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func renderOutput(w io.Writer, out *model.RunOutput) {
	if out.Message != "" {
		fmt.Fprintln(w, noteStyle.Render(out.Message))
	}
	for _, split := range out.Splits {
		title := fmt.Sprintf("%s (%d results)", split.Name, split.Results)
		fmt.Fprintln(w, titleStyle.Render(title))
		if out.Kind == model.RunGrouped {
			fmt.Fprintln(w, groupedTable(split.Grouped).Render())
		} else {
			fmt.Fprintln(w, timelineTable(split.Timeline).Render())
		}
	}
	s := out.Summary
	fmt.Fprintln(w, noteStyle.Render(fmt.Sprintf(
		"%d results, %d with timestamp, %d in time frame, %d failed",
		s.TotalResults, s.WithTimestamp, s.InTimeFrame, s.FailedResults)))
}

func timelineTable(points []model.ChartDataPoint) *table.Table {
	series := map[string]struct{}{}
	monitoring := false
	for _, p := range points {
		for k := range p.Values {
			series[k] = struct{}{}
		}
		monitoring = monitoring || p.Monitoring != nil
	}
	names := make([]string, 0, len(series))
	for k := range series {
		names = append(names, k)
	}
	sort.Strings(names)

	headers := []string{"bucket", "count"}
	headers = append(headers, names...)
	if monitoring {
		headers = append(headers, "annotated", "partial", "pending")
	}

	rows := make([][]string, 0, len(points))
	for _, p := range points {
		row := []string{p.DateString, strconv.Itoa(p.Count)}
		for _, name := range names {
			st, ok := p.Stats[name]
			if !ok {
				row = append(row, "")
				continue
			}
			row = append(row, fmt.Sprintf("%s [%s..%s]",
				utils.FormatFloat(round(st.Avg)), utils.FormatFloat(st.Min), utils.FormatFloat(st.Max)))
		}
		if monitoring {
			m := p.Monitoring
			if m == nil {
				m = &model.MonitoringCounts{}
			}
			row = append(row, strconv.Itoa(m.AnnotatedCount), strconv.Itoa(m.PartialCount), strconv.Itoa(m.PendingCount))
		}
		rows = append(rows, row)
	}
	return newTable(headers, rows)
}

func groupedTable(points []model.GroupedDataPoint) *table.Table {
	rows := make([][]string, 0, len(points))
	for _, p := range points {
		sources := make([]string, 0, len(p.SourceCounts))
		for src, n := range p.SourceCounts {
			sources = append(sources, fmt.Sprintf("%s=%d", src, n))
		}
		sort.Strings(sources)
		rows = append(rows, []string{
			p.ValueString,
			strconv.Itoa(p.TotalCount),
			strconv.FormatFloat(p.Percentage, 'f', 1, 64) + "%",
			strings.Join(sources, " "),
		})
	}
	return newTable([]string{"value", "count", "share", "sources"}, rows)
}

func renderKeys(w io.Writer, schemas []model.Schema) {
	for _, s := range schemas {
		fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%s (#%d)", s.Name, s.ID)))
		var rows [][]string
		for _, k := range pipeline.TargetKeys(s) {
			rows = append(rows, []string{k.Key, k.Name, k.Type.String()})
		}
		fmt.Fprintln(w, newTable([]string{"key", "name", "type"}, rows).Render())
	}
}

func round(f float64) float64 {
	return math.Round(f*100) / 100
}
