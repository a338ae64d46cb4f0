package dataset

import (
	"math"

	"chartdeck/internal/stats"
)

// ColumnSummary describes one column for the data inspector.
type ColumnSummary struct {
	Name          string   `json:"name"`
	Kind          Kind     `json:"kind"`
	NullCount     int      `json:"null_count"`
	UniqueCount   int      `json:"unique_count"`
	IsNumeric     bool     `json:"is_numeric"`
	IsCategorical bool     `json:"is_categorical"`
	IsDatetime    bool     `json:"is_datetime"`
	Min           *float64 `json:"min,omitempty"`
	Max           *float64 `json:"max,omitempty"`
	Mean          *float64 `json:"mean,omitempty"`
	Median        *float64 `json:"median,omitempty"`
	Std           *float64 `json:"std,omitempty"`
}

// ColumnInfo summarises every column in order.
func ColumnInfo(d *Dataset) []ColumnSummary {
	out := make([]ColumnSummary, 0, d.Cols())
	for _, c := range d.Columns() {
		s := ColumnSummary{
			Name:          c.Name,
			Kind:          c.Kind,
			NullCount:     c.MissingCount(),
			UniqueCount:   c.Unique(),
			IsNumeric:     c.Kind == KindNumeric,
			IsCategorical: c.Kind == KindCategory,
			IsDatetime:    c.Kind == KindDatetime,
		}
		if s.IsNumeric {
			desc := stats.Describe(c.Floats())
			s.Min = finite(desc.Min)
			s.Max = finite(desc.Max)
			s.Mean = finite(desc.Mean)
			s.Median = finite(desc.Median)
			s.Std = finite(desc.Std)
		}
		out = append(out, s)
	}
	return out
}

func finite(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// Preview is a JSON-friendly view of the first rows of a dataset.
type Preview struct {
	Rows    int             `json:"rows"`
	Cols    int             `json:"cols"`
	Columns []ColumnSummary `json:"columns"`
	Head    [][]string      `json:"head"`
}

// NewPreview summarises d and includes up to limit formatted rows.
func NewPreview(d *Dataset, limit int) Preview {
	head := d.Head(limit)
	rows := make([][]string, head.Rows())
	for i := range rows {
		row := make([]string, head.Cols())
		for j, c := range head.Columns() {
			row[j] = c.Label(i)
		}
		rows[i] = row
	}
	return Preview{
		Rows:    d.Rows(),
		Cols:    d.Cols(),
		Columns: ColumnInfo(d),
		Head:    rows,
	}
}
