package report

import (
	"fmt"
	"math"

	"chartdeck/internal/chart"
	"chartdeck/internal/dataset"
)

// Limits on automatically generated charts.
const (
	maxAutoColumns    = 3
	maxBarCardinality = 20
	barTopValues      = 10
)

// Chart is an automatically generated report chart and the data it plots.
type Chart struct {
	Type        chart.Type           `json:"type"`
	Title       string               `json:"title"`
	Column      string               `json:"column,omitempty"`
	Bins        []chart.Bin          `json:"bins,omitempty"`
	Counts      []dataset.ValueCount `json:"counts,omitempty"`
	Correlation *Correlation         `json:"correlation,omitempty"`

	Figure *chart.Figure `json:"-"`
}

// AutoCharts picks histograms for the first numeric columns, top-value bars
// for the first low-cardinality categorical columns, and a correlation
// heatmap when there are at least two numeric columns.
func AutoCharts(ds *dataset.Dataset, b *chart.Builder) ([]Chart, error) {
	out := []Chart{}
	numeric := ds.Numeric()

	for _, c := range firstN(numeric, maxAutoColumns) {
		if c.Unique() <= 1 {
			continue
		}
		cfg := chart.Config{Type: chart.Histogram, XColumn: c.Name}
		fig, err := b.Build(ds, cfg)
		if err != nil {
			return nil, fmt.Errorf("histogram of %s: %w", c.Name, err)
		}
		out = append(out, Chart{
			Type:   chart.Histogram,
			Title:  fig.Title,
			Column: c.Name,
			Bins:   chart.Bins(c.Floats(), chart.DefaultBins),
			Figure: fig,
		})
	}

	for _, c := range firstN(ds.Categorical(), maxAutoColumns) {
		if c.Unique() > maxBarCardinality {
			continue
		}
		counts := c.ValueCounts()
		if len(counts) > barTopValues {
			counts = counts[:barTopValues]
		}
		fig, err := topValuesFigure(b, c.Name, counts)
		if err != nil {
			return nil, fmt.Errorf("top values of %s: %w", c.Name, err)
		}
		out = append(out, Chart{
			Type:   chart.Bar,
			Title:  fig.Title,
			Column: c.Name,
			Counts: counts,
			Figure: fig,
		})
	}

	if len(numeric) > 1 {
		corr := correlate(numeric)
		out = append(out, Chart{
			Type:        chart.Heatmap,
			Title:       "Correlation Matrix",
			Correlation: corr,
			Figure:      b.Matrix(corr.table(), "Correlation Matrix"),
		})
	}
	return out, nil
}

func topValuesFigure(b *chart.Builder, column string, counts []dataset.ValueCount) (*chart.Figure, error) {
	labels := make([]any, len(counts))
	values := make([]any, len(counts))
	for i, vc := range counts {
		labels[i] = vc.Value
		values[i] = float64(vc.Count)
	}
	countColumn := "count"
	if column == countColumn {
		countColumn = "frequency"
	}
	ds, err := dataset.New(
		&dataset.Column{Name: column, Kind: dataset.KindText, Values: labels},
		&dataset.Column{Name: countColumn, Kind: dataset.KindNumeric, Values: values},
	)
	if err != nil {
		return nil, err
	}
	return b.Build(ds, chart.Config{
		Type:       chart.Bar,
		XColumn:    column,
		YColumn:    countColumn,
		Title:      "Top Values in " + column,
		HideLegend: true,
	})
}

// table converts the matrix into a chart table; undefined cells stay NaN.
func (c *Correlation) table() *chart.Table {
	t := &chart.Table{Columns: c.Columns, Index: c.Columns, Values: make([][]float64, len(c.Matrix))}
	for i, row := range c.Matrix {
		t.Values[i] = make([]float64, len(row))
		for j, v := range row {
			if v.Valid() {
				t.Values[i][j] = float64(v)
			} else {
				t.Values[i][j] = math.NaN()
			}
		}
	}
	return t
}

func firstN(cols []*dataset.Column, n int) []*dataset.Column {
	if len(cols) > n {
		return cols[:n]
	}
	return cols
}
