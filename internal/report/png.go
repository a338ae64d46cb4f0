package report

import (
	"errors"
	"fmt"
	"io"
	"math"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"chartdeck/internal/chart"
)

const (
	pngWidth  = 800
	pngHeight = 400
	plotWidth = 680
)

// ErrNothingToDraw is returned for charts without plotted data.
var ErrNothingToDraw = errors.New("chart has no data to draw")

// correlationRamp runs from -1 (blue) to +1 (red).
var correlationRamp = []string{"313695", "4575b4", "74add1", "abd9e9", "e0f3f8", "ffffbf", "fee090", "fdae61", "f46d43", "d73027", "a50026"}

// RenderChartPNG draws a report chart as a static PNG: histograms and top
// value charts as bars, the correlation matrix as a dot matrix.
func RenderChartPNG(c Chart, w io.Writer) error {
	switch c.Type {
	case chart.Histogram:
		bars := make([]gochart.Value, len(c.Bins))
		for i, b := range c.Bins {
			bars[i] = gochart.Value{Value: float64(b.Count), Label: b.Label()}
		}
		return renderBars(c.Title, bars, w)
	case chart.Bar:
		bars := make([]gochart.Value, len(c.Counts))
		for i, vc := range c.Counts {
			bars[i] = gochart.Value{Value: float64(vc.Count), Label: vc.Value}
		}
		return renderBars(c.Title, bars, w)
	case chart.Heatmap:
		if c.Correlation == nil {
			return ErrNothingToDraw
		}
		return renderMatrix(c.Title, c.Correlation, w)
	}
	return fmt.Errorf("%w: %s", chart.ErrUnsupportedType, c.Type)
}

func renderBars(title string, bars []gochart.Value, w io.Writer) error {
	if len(bars) == 0 {
		return ErrNothingToDraw
	}
	top := 0.0
	for _, b := range bars {
		top = math.Max(top, b.Value)
	}
	if top == 0 {
		top = 1
	}
	slot := plotWidth / len(bars)
	if slot < 4 {
		slot = 4
	}
	graph := gochart.BarChart{
		Title:      title,
		TitleStyle: gochart.Style{FontSize: chart.TitleFontSize},
		Background: gochart.Style{Padding: gochart.Box{
			Top:    chart.DefaultMargin.Top,
			Left:   chart.DefaultMargin.Left,
			Right:  chart.DefaultMargin.Right,
			Bottom: chart.DefaultMargin.Bottom,
		}},
		Width:      pngWidth,
		Height:     pngHeight,
		BarWidth:   slot * 7 / 10,
		BarSpacing: slot - slot*7/10,
		XAxis:      gochart.Style{FontSize: chart.FontSize - 4},
		YAxis: gochart.YAxis{
			Style: gochart.Style{FontSize: chart.FontSize - 2},
			Range: &gochart.ContinuousRange{Min: 0, Max: top * 1.1},
		},
		Bars: bars,
	}
	if err := graph.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("failed to render %q: %w", title, err)
	}
	return nil
}

// matrixCell is one dot of the correlation matrix.
type matrixCell struct {
	x, y  float64
	color drawing.Color
}

// matrixSeries draws a filled dot per cell.
type matrixSeries struct {
	cells []matrixCell
}

func (ms matrixSeries) GetName() string {
	return "correlation"
}

func (ms matrixSeries) GetStyle() gochart.Style {
	return gochart.Style{}
}

func (ms matrixSeries) GetYAxis() gochart.YAxisType {
	return gochart.YAxisPrimary
}

func (ms matrixSeries) Len() int {
	return len(ms.cells)
}

func (ms matrixSeries) Validate() error {
	return nil
}

func (ms matrixSeries) Render(r gochart.Renderer, canvasBox gochart.Box, xrange, yrange gochart.Range, defaults gochart.Style) {
	if len(ms.cells) == 0 {
		return
	}
	cellW := xrange.Translate(1) - xrange.Translate(0)
	cellH := yrange.Translate(1) - yrange.Translate(0)
	radius := cellW
	if cellH < radius {
		radius = cellH
	}
	radius = radius/2 - 4
	if radius > 24 {
		radius = 24
	}
	if radius < 2 {
		radius = 2
	}

	const steps = 32
	for _, c := range ms.cells {
		cx := canvasBox.Left + xrange.Translate(c.x)
		cy := canvasBox.Bottom - yrange.Translate(c.y)
		r.SetFillColor(c.color)
		for i := 0; i <= steps; i++ {
			angle := 2 * math.Pi * float64(i) / float64(steps)
			px := cx + int(float64(radius)*math.Cos(angle))
			py := cy + int(float64(radius)*math.Sin(angle))
			if i == 0 {
				r.MoveTo(px, py)
			} else {
				r.LineTo(px, py)
			}
		}
		r.Close()
		r.Fill()
		r.SetStrokeColor(drawing.Color{R: 255, G: 255, B: 255, A: 120})
		r.SetStrokeWidth(1)
		r.Stroke()
	}
}

// rampColor maps a correlation in [-1, 1] onto the ramp.
func rampColor(v float64) drawing.Color {
	idx := int(math.Round((v + 1) / 2 * float64(len(correlationRamp)-1)))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(correlationRamp) {
		idx = len(correlationRamp) - 1
	}
	return drawing.ColorFromHex(correlationRamp[idx])
}

func renderMatrix(title string, corr *Correlation, w io.Writer) error {
	n := len(corr.Columns)
	if n == 0 {
		return ErrNothingToDraw
	}

	ticks := make([]gochart.Tick, n)
	for i, name := range corr.Columns {
		ticks[i] = gochart.Tick{Value: float64(i), Label: name}
	}

	ms := matrixSeries{}
	for row := range corr.Matrix {
		for col, v := range corr.Matrix[row] {
			if !v.Valid() {
				continue
			}
			// first column at the top
			ms.cells = append(ms.cells, matrixCell{
				x:     float64(col),
				y:     float64(n - 1 - row),
				color: rampColor(float64(v)),
			})
		}
	}

	yTicks := make([]gochart.Tick, n)
	for i, name := range corr.Columns {
		yTicks[i] = gochart.Tick{Value: float64(n - 1 - i), Label: name}
	}

	grid := gochart.Style{StrokeColor: drawing.Color{R: 230, G: 230, B: 230, A: 255}, StrokeWidth: 1}
	graph := gochart.Chart{
		Title:      title,
		TitleStyle: gochart.Style{FontSize: chart.TitleFontSize, FontColor: drawing.ColorBlack},
		Background: gochart.Style{Padding: gochart.Box{Top: chart.DefaultMargin.Top, Left: 110, Right: 40, Bottom: 80}},
		Width:      pngWidth,
		Height:     pngWidth * 3 / 4,
		XAxis: gochart.XAxis{
			Style:          gochart.Style{FontSize: chart.FontSize - 1},
			Ticks:          ticks,
			Range:          &gochart.ContinuousRange{Min: -0.5, Max: float64(n) - 0.5},
			GridMajorStyle: grid,
		},
		YAxis: gochart.YAxis{
			Style:          gochart.Style{FontSize: chart.FontSize - 1},
			Ticks:          yTicks,
			Range:          &gochart.ContinuousRange{Min: -0.5, Max: float64(n) - 0.5},
			GridMajorStyle: grid,
		},
		Series: []gochart.Series{ms},
	}
	if err := graph.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("failed to render %q: %w", title, err)
	}
	return nil
}
