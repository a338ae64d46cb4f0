package chart

import (
	"fmt"
	"math"
	"sort"
	"time"

	"chartdeck/internal/dataset"
	"chartdeck/internal/stats"
)

// Table is a labelled matrix: Values[row][col] with rows keyed by Index and
// columns by Columns. Empty cells are NaN.
type Table struct {
	Columns []string    `json:"columns"`
	Index   []string    `json:"index"`
	Values  [][]float64 `json:"-"`
}

// At returns the cell for column key x and row key y.
func (t *Table) At(x, y string) (float64, bool) {
	ci, ri := -1, -1
	for i, c := range t.Columns {
		if c == x {
			ci = i
			break
		}
	}
	for i, r := range t.Index {
		if r == y {
			ri = i
			break
		}
	}
	if ci < 0 || ri < 0 || math.IsNaN(t.Values[ri][ci]) {
		return 0, false
	}
	return t.Values[ri][ci], true
}

// Bounds returns the smallest and largest finite cells.
func (t *Table) Bounds() (float64, float64, bool) {
	var cells []float64
	for _, row := range t.Values {
		for _, v := range row {
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				cells = append(cells, v)
			}
		}
	}
	if len(cells) == 0 {
		return 0, 0, false
	}
	lo, hi := stats.Bounds(cells)
	return lo, hi, true
}

// Pivot averages z over every (y, x) pair. Rows missing x or y are dropped,
// missing z values are skipped, keys are sorted, and rows or columns left
// without any value are removed.
func Pivot(ds *dataset.Dataset, x, y, z string) (*Table, error) {
	xc, err := column(ds, FieldX, x, false)
	if err != nil {
		return nil, err
	}
	yc, err := column(ds, FieldY, y, false)
	if err != nil {
		return nil, err
	}
	zc, err := column(ds, FieldZ, z, true)
	if err != nil {
		return nil, err
	}

	rows := make([]int, 0, ds.Rows())
	for i := 0; i < ds.Rows(); i++ {
		if !xc.IsMissing(i) && !yc.IsMissing(i) {
			rows = append(rows, i)
		}
	}

	xKeys := sortedKeys(xc, rows)
	yKeys := sortedKeys(yc, rows)
	xPos := positions(xKeys)
	yPos := positions(yKeys)

	sums := make([][]float64, len(yKeys))
	counts := make([][]int, len(yKeys))
	for r := range sums {
		sums[r] = make([]float64, len(xKeys))
		counts[r] = make([]int, len(xKeys))
	}
	for _, i := range rows {
		v, ok := zc.Float(i)
		if !ok {
			continue
		}
		r, c := yPos[yc.Label(i)], xPos[xc.Label(i)]
		sums[r][c] += v
		counts[r][c]++
	}

	t := &Table{Columns: xKeys, Index: yKeys, Values: make([][]float64, len(yKeys))}
	for r := range sums {
		t.Values[r] = make([]float64, len(xKeys))
		for c := range sums[r] {
			if counts[r][c] == 0 {
				t.Values[r][c] = math.NaN()
			} else {
				t.Values[r][c] = sums[r][c] / float64(counts[r][c])
			}
		}
	}
	return t.compact(), nil
}

// compact drops rows and columns that hold no value.
func (t *Table) compact() *Table {
	keepCol := make([]bool, len(t.Columns))
	keepRow := make([]bool, len(t.Index))
	for r, row := range t.Values {
		for c, v := range row {
			if !math.IsNaN(v) {
				keepRow[r] = true
				keepCol[c] = true
			}
		}
	}

	out := &Table{}
	for c, k := range keepCol {
		if k {
			out.Columns = append(out.Columns, t.Columns[c])
		}
	}
	for r, k := range keepRow {
		if !k {
			continue
		}
		out.Index = append(out.Index, t.Index[r])
		row := make([]float64, 0, len(out.Columns))
		for c, kc := range keepCol {
			if kc {
				row = append(row, t.Values[r][c])
			}
		}
		out.Values = append(out.Values, row)
	}
	return out
}

func positions(keys []string) map[string]int {
	m := make(map[string]int, len(keys))
	for i, k := range keys {
		m[k] = i
	}
	return m
}

// sortedKeys returns the distinct labels of col over rows in value order.
func sortedKeys(col *dataset.Column, rows []int) []string {
	type key struct {
		label string
		value any
	}
	seen := make(map[string]bool)
	var keys []key
	for _, i := range rows {
		label := col.Label(i)
		if seen[label] {
			continue
		}
		seen[label] = true
		keys = append(keys, key{label: label, value: col.Values[i]})
	}
	sort.Slice(keys, func(i, j int) bool { return lessCell(keys[i].value, keys[j].value) })

	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.label
	}
	return out
}

func lessCell(a, b any) bool {
	switch x := a.(type) {
	case float64:
		if y, ok := b.(float64); ok {
			return x < y
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Before(y)
		}
	case string:
		if y, ok := b.(string); ok {
			return x < y
		}
	}
	return dataset.FormatCell(a) < dataset.FormatCell(b)
}

// Bin is one equal-width histogram bucket.
type Bin struct {
	Lo    float64 `json:"lo"`
	Hi    float64 `json:"hi"`
	Count int     `json:"count"`
}

// Label formats the bucket bounds.
func (b Bin) Label() string {
	return fmt.Sprintf("%s-%s", formatNum(b.Lo), formatNum(b.Hi))
}

// DefaultBins is the histogram bin count when none is configured.
const DefaultBins = 30

// Bins splits values into n equal-width buckets from min to max; the last
// bucket is closed. A constant sample yields a single bucket. Infinite and
// NaN values are not counted.
func Bins(values []float64, n int) []Bin {
	values = stats.Finite(values)
	if len(values) == 0 {
		return nil
	}
	if n <= 0 {
		n = DefaultBins
	}
	lo, hi := stats.Bounds(values)
	if lo == hi {
		return []Bin{{Lo: lo, Hi: hi, Count: len(values)}}
	}

	width := (hi - lo) / float64(n)
	bins := make([]Bin, n)
	for i := range bins {
		bins[i] = Bin{Lo: lo + float64(i)*width, Hi: lo + float64(i+1)*width}
	}
	bins[n-1].Hi = hi
	for _, v := range values {
		idx := int((v - lo) / width)
		if idx < 0 {
			idx = 0
		}
		if idx >= n {
			idx = n - 1
		}
		bins[idx].Count++
	}
	return bins
}

func formatNum(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return fmt.Sprintf("%.0f", f)
	}
	return fmt.Sprintf("%.4g", f)
}
