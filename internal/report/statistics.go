package report

import (
	"math"

	"chartdeck/internal/dataset"
	"chartdeck/internal/stats"
)

const topValues = 5

// StatRows are the descriptive statistics in display order.
var StatRows = []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"}

// NumericStats describes one numeric column.
type NumericStats struct {
	Column string `json:"column"`
	Count  int    `json:"count"`
	Mean   Number `json:"mean"`
	Std    Number `json:"std"`
	Min    Number `json:"min"`
	Q1     Number `json:"25%"`
	Median Number `json:"50%"`
	Q3     Number `json:"75%"`
	Max    Number `json:"max"`
}

// Value returns the statistic named by one of StatRows.
func (s NumericStats) Value(stat string) Number {
	switch stat {
	case "count":
		return Number(s.Count)
	case "mean":
		return s.Mean
	case "std":
		return s.Std
	case "min":
		return s.Min
	case "25%":
		return s.Q1
	case "50%":
		return s.Median
	case "75%":
		return s.Q3
	case "max":
		return s.Max
	}
	return Number(math.NaN())
}

// CategoricalStats describes one text or category column.
type CategoricalStats struct {
	Column        string               `json:"column"`
	UniqueValues  int                  `json:"unique_values"`
	TopValues     []dataset.ValueCount `json:"top_values"`
	MissingValues int                  `json:"missing_values"`
}

// Correlation is a symmetric Pearson correlation matrix.
type Correlation struct {
	Columns []string   `json:"columns"`
	Matrix  [][]Number `json:"matrix"`
}

// Statistics is the content of the statistics section.
type Statistics struct {
	Numeric      []NumericStats     `json:"numeric_stats"`
	Categorical  []CategoricalStats `json:"categorical_stats"`
	Correlations *Correlation       `json:"correlations,omitempty"`
}

// Describe computes the statistics section.
func Describe(ds *dataset.Dataset) *Statistics {
	s := &Statistics{
		Numeric:     []NumericStats{},
		Categorical: []CategoricalStats{},
	}

	numeric := ds.Numeric()
	for _, c := range numeric {
		d := stats.Describe(c.Floats())
		s.Numeric = append(s.Numeric, NumericStats{
			Column: c.Name,
			Count:  d.Count,
			Mean:   Number(d.Mean),
			Std:    Number(d.Std),
			Min:    Number(d.Min),
			Q1:     Number(d.Q1),
			Median: Number(d.Median),
			Q3:     Number(d.Q3),
			Max:    Number(d.Max),
		})
	}

	for _, c := range ds.Categorical() {
		counts := c.ValueCounts()
		if len(counts) > topValues {
			counts = counts[:topValues]
		}
		s.Categorical = append(s.Categorical, CategoricalStats{
			Column:        c.Name,
			UniqueValues:  c.Unique(),
			TopValues:     counts,
			MissingValues: c.MissingCount(),
		})
	}

	if len(numeric) > 1 {
		s.Correlations = correlate(numeric)
	}
	return s
}

// correlate builds the Pearson matrix using pairwise complete rows.
func correlate(cols []*dataset.Column) *Correlation {
	corr := &Correlation{
		Columns: make([]string, len(cols)),
		Matrix:  make([][]Number, len(cols)),
	}
	for i, c := range cols {
		corr.Columns[i] = c.Name
		corr.Matrix[i] = make([]Number, len(cols))
	}
	for i := range cols {
		for j := i; j < len(cols); j++ {
			r := Number(pairwisePearson(cols[i], cols[j]))
			corr.Matrix[i][j] = r
			corr.Matrix[j][i] = r
		}
	}
	return corr
}

func pairwisePearson(a, b *dataset.Column) float64 {
	xs := make([]float64, 0, a.Len())
	ys := make([]float64, 0, a.Len())
	for i := 0; i < a.Len(); i++ {
		x, okx := a.Float(i)
		y, oky := b.Float(i)
		if okx && oky {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	return stats.Pearson(xs, ys)
}
