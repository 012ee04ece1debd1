// Package tui renders the car price app for a terminal.
package tui

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/linechart"
	tslc "github.com/NimbleMarkets/ntcharts/linechart/timeserieslinechart"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"carprice/pipeline"
)

const (
	DefaultWidth = 72
	chartHeight  = 10
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).MarginTop(1)
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	chartLineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	chartAxisStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	chartLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// RenderDataset draws the dataset section: the preview table, the shape lines and
// one chart per target column. A missing column gets a placeholder line and the
// other charts still render.
func RenderDataset(snap *pipeline.Snapshot, previewRows, width int) string {
	if width <= 0 {
		width = DefaultWidth
	}
	var b strings.Builder
	b.WriteString(headingStyle.Render("📊 Dataset Mobil"))
	b.WriteString("\n")

	if snap.Err != nil {
		msg := pipeline.LoadMessage(snap.Path, snap.Err)
		if errors.Is(snap.Err, pipeline.ErrDatasetNotFound) {
			b.WriteString(warningStyle.Render(msg))
		} else {
			b.WriteString(errorStyle.Render(msg))
		}
		b.WriteString("\n")
		b.WriteString(infoStyle.Render(pipeline.EmptyMessage(snap.Path)))
		b.WriteString("\n")
		return b.String()
	}

	ds := snap.Dataset
	b.WriteString(previewTable(ds.Header, ds.Head(previewRows)))
	b.WriteString("\n")
	b.WriteString(ds.ShapeMessage())
	b.WriteString("\n")
	b.WriteString(ds.CleanMessage())
	b.WriteString("\n")

	if ds.Empty() {
		b.WriteString(infoStyle.Render(pipeline.EmptyMessage(snap.Path)))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(titleStyle.Render("📈 Visualisasi Fitur Kunci"))
	b.WriteString("\n")
	for _, column := range pipeline.TargetColumns {
		b.WriteString(titleStyle.Render(pipeline.ChartTitle(column)))
		b.WriteString("\n")
		xs, ys, ok := ds.Series(column)
		if !ok || len(xs) == 0 {
			b.WriteString(infoStyle.Render(ds.MissingColumnMessage(column)))
			b.WriteString("\n")
			continue
		}
		b.WriteString(renderChart(xs, ys, width, chartHeight))
		b.WriteString("\n")
	}
	return b.String()
}

func previewTable(header []string, rows [][]string) string {
	if len(header) == 0 {
		return ""
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers(header...).
		Rows(rows...)
	return t.String()
}

// renderChart draws ys against their row positions. Row positions are mapped onto
// seconds since the epoch so the time-series chart can place them.
func renderChart(xs, ys []float64, width, height int) string {
	start := time.Unix(int64(xs[0]), 0)
	end := time.Unix(int64(xs[len(xs)-1]), 0)
	if !end.After(start) {
		end = start.Add(time.Second)
	}
	lo, hi := ys[0], ys[0]
	for _, v := range ys {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	if lo == hi {
		lo, hi = lo-1, hi+1
	}

	chart := tslc.New(width, height)
	chart.SetXStep(xStep(len(xs), width))
	chart.SetYStep(2)
	chart.SetStyle(chartLineStyle)
	chart.AxisStyle = chartAxisStyle
	chart.LabelStyle = chartLabelStyle
	chart.SetTimeRange(start, end)
	chart.SetViewTimeRange(start, end)
	chart.SetYRange(lo, hi)
	chart.SetViewYRange(lo, hi)
	chart.Model.XLabelFormatter = indexLabelFormatter()
	for i := range xs {
		chart.Push(tslc.TimePoint{Time: time.Unix(int64(xs[i]), 0), Value: ys[i]})
	}
	chart.DrawBraille()
	return chart.View()
}

func indexLabelFormatter() linechart.LabelFormatter {
	return func(_ int, v float64) string {
		return strconv.Itoa(int(v))
	}
}

// xStep keeps roughly one x label per eight columns.
func xStep(points, width int) int {
	labels := max(width/8, 1)
	return max(points/labels, 1)
}
