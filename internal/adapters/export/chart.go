// Package export renders ladder data as PNG charts and xlsx workbooks.
package export

import (
	"bytes"
	"fmt"

	"github.com/okian/rally/internal/domain/rating"
	"github.com/okian/rally/internal/domain/types"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	chartWidth  = 800
	chartHeight = 400
)

var (
	muColor           = drawing.ColorFromHex("1f77b4")
	conservativeColor = drawing.ColorFromHex("ff7f0e")
)

// RatingChart draws mu and the conservative estimate against the match
// sequence. Fewer than two points renders a placeholder.
func RatingChart(name string, points []types.RatingPoint) ([]byte, error) {
	if len(points) < 2 {
		return placeholder(fmt.Sprintf("No matches yet for %s", name))
	}

	xs := make([]float64, len(points))
	mus := make([]float64, len(points))
	cons := make([]float64, len(points))
	for i, p := range points {
		xs[i] = float64(p.Seq)
		mus[i] = p.Mu
		cons[i] = rating.Belief{Mu: p.Mu, Sigma: p.Sigma}.Conservative()
	}

	graph := chart.Chart{
		Title:  name,
		Width:  chartWidth,
		Height: chartHeight,
		XAxis: chart.XAxis{
			Name:           "Match",
			ValueFormatter: func(v interface{}) string { return fmt.Sprintf("%.0f", v) },
		},
		YAxis: chart.YAxis{Name: "Skill"},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "mu",
				XValues: xs,
				YValues: mus,
				Style:   chart.Style{StrokeColor: muColor, StrokeWidth: 2, DotWidth: 3, DotColor: muColor},
			},
			chart.ContinuousSeries{
				Name:    "mu - 3 sigma",
				XValues: xs,
				YValues: cons,
				Style:   chart.Style{StrokeColor: conservativeColor, StrokeWidth: 2, StrokeDashArray: []float64{5, 3}},
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}
	return buf.Bytes(), nil
}

func placeholder(msg string) ([]byte, error) {
	graph := chart.Chart{
		Width:  chartWidth / 2,
		Height: chartHeight / 2,
		Elements: []chart.Renderable{
			func(r chart.Renderer, cb chart.Box, _ chart.Style) {
				r.SetFontColor(drawing.ColorBlack)
				r.SetFontSize(12.0)
				tb := r.MeasureText(msg)
				r.Text(msg, (cb.Width()-tb.Width())/2, (cb.Height()+tb.Height())/2)
			},
		},
	}
	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}
	return buf.Bytes(), nil
}
