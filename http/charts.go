package http

import (
	"errors"
	"io"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	chartWidth  = 640
	chartHeight = 280
)

var chartColor = drawing.ColorFromHex("1f77b4")

// renderLineChart draws one series as SVG. xs are row positions.
func renderLineChart(w io.Writer, title string, xs, ys []float64) error {
	if len(xs) == 0 || len(xs) != len(ys) {
		return errors.New("no points to draw")
	}
	// a single point needs a second one to give the x axis a width
	if len(xs) == 1 {
		xs = []float64{xs[0], xs[0] + 1}
		ys = []float64{ys[0], ys[0]}
	}

	yAxis := chart.YAxis{}
	lo, hi := ys[0], ys[0]
	for _, v := range ys {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	if lo == hi {
		yAxis.Range = &chart.ContinuousRange{Min: lo - 1, Max: hi + 1}
	}

	ch := chart.Chart{
		Title:      title,
		Width:      chartWidth,
		Height:     chartHeight,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      chart.XAxis{Name: "index"},
		YAxis:      yAxis,
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    title,
				XValues: xs,
				YValues: ys,
				Style:   chart.Style{StrokeColor: chartColor, StrokeWidth: 1.5},
			},
		},
	}
	return ch.Render(chart.SVG, w)
}
