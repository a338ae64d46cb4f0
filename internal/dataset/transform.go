package dataset

import (
	"fmt"
	"math"
	"strings"
	"time"

	"chartdeck/internal/stats"
)

// Cleaning operations accepted by Clean.
const (
	CleanDropNulls            = "drop_nulls"
	CleanFillNumericNulls     = "fill_numeric_nulls"
	CleanFillCategoricalNulls = "fill_categorical_nulls"
	CleanRemoveDuplicates     = "remove_duplicates"
	CleanStripWhitespace      = "strip_whitespace"
)

// UnknownLabel replaces missing categorical cells in fill_categorical_nulls.
const UnknownLabel = "Unknown"

// Clean applies the named operations in order.
func Clean(d *Dataset, ops []string) (*Dataset, error) {
	out := d
	for _, op := range ops {
		switch op {
		case CleanDropNulls:
			out = dropNulls(out)
		case CleanFillNumericNulls:
			out = mapColumns(out, func(c *Column) *Column {
				if c.Kind != KindNumeric {
					return c
				}
				vals := c.Floats()
				if len(vals) == 0 || len(vals) == c.Len() {
					return c
				}
				return fillMissing(c, stats.Median(vals))
			})
		case CleanFillCategoricalNulls:
			out = mapColumns(out, func(c *Column) *Column {
				if !c.Kind.Categorical() || c.MissingCount() == 0 {
					return c
				}
				return fillMissing(c, UnknownLabel)
			})
		case CleanRemoveDuplicates:
			out = removeDuplicates(out)
		case CleanStripWhitespace:
			out = mapColumns(out, func(c *Column) *Column {
				if !c.Kind.Categorical() {
					return c
				}
				nc := c.clone()
				for i, v := range nc.Values {
					if s, ok := v.(string); ok {
						nc.Values[i] = strings.TrimSpace(s)
					}
				}
				return nc
			})
		default:
			return nil, fmt.Errorf("%w: cleaning operation %q", ErrInvalidOperation, op)
		}
	}
	return out, nil
}

func dropNulls(d *Dataset) *Dataset {
	rows := make([]int, 0, d.Rows())
	for i := 0; i < d.Rows(); i++ {
		complete := true
		for _, c := range d.Columns() {
			if c.IsMissing(i) {
				complete = false
				break
			}
		}
		if complete {
			rows = append(rows, i)
		}
	}
	return d.take(rows)
}

func removeDuplicates(d *Dataset) *Dataset {
	seen := make(map[string]struct{}, d.Rows())
	rows := make([]int, 0, d.Rows())
	for i := 0; i < d.Rows(); i++ {
		k := d.rowKey(i)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		rows = append(rows, i)
	}
	return d.take(rows)
}

func fillMissing(c *Column, value any) *Column {
	nc := c.clone()
	for i, v := range nc.Values {
		if v == nil {
			nc.Values[i] = value
		}
	}
	return nc
}

func mapColumns(d *Dataset, fn func(*Column) *Column) *Dataset {
	cols := make([]*Column, d.Cols())
	for i, c := range d.Columns() {
		cols[i] = fn(c)
	}
	return mustNew(cols...)
}

// Derivation describes a computed column.
type Derivation struct {
	Name      string   `json:"name" yaml:"name"`
	Operation string   `json:"operation" yaml:"operation"`
	Columns   []string `json:"columns" yaml:"columns"`
	Bins      int      `json:"bins,omitempty" yaml:"bins,omitempty"`
}

// Derivation operations.
const (
	DeriveSum         = "sum"
	DeriveMean        = "mean"
	DeriveMultiply    = "multiply"
	DeriveConcatenate = "concatenate"
	DeriveBin         = "bin"
)

// DefaultBins is the bin count used by the bin derivation when none is given.
const DefaultBins = 5

// Derive appends (or replaces) one column per derivation, in order, so
// later derivations may use earlier results.
func Derive(d *Dataset, derivations []Derivation) (*Dataset, error) {
	out := d
	for _, dv := range derivations {
		col, err := derive(out, dv)
		if err != nil {
			return nil, fmt.Errorf("derive %q: %w", dv.Name, err)
		}
		out = out.withColumn(col)
	}
	return out, nil
}

func derive(d *Dataset, dv Derivation) (*Column, error) {
	if dv.Name == "" {
		return nil, fmt.Errorf("%w: derived column needs a name", ErrInvalidOperation)
	}
	if len(dv.Columns) == 0 {
		return nil, fmt.Errorf("%w: no source columns", ErrInvalidOperation)
	}

	sources := make([]*Column, len(dv.Columns))
	for i, name := range dv.Columns {
		col, ok := d.Column(name)
		if !ok {
			return nil, columnErr(name, ErrUnknownColumn)
		}
		sources[i] = col
	}

	if dv.Operation == DeriveConcatenate {
		vals := make([]any, d.Rows())
		parts := make([]string, len(sources))
		for i := range vals {
			for j, c := range sources {
				parts[j] = c.Label(i)
			}
			vals[i] = strings.Join(parts, " ")
		}
		return &Column{Name: dv.Name, Kind: KindText, Values: vals}, nil
	}

	for _, c := range sources {
		if c.Kind != KindNumeric {
			return nil, columnErr(c.Name, ErrNotNumeric)
		}
	}

	switch dv.Operation {
	case DeriveSum:
		return rowwise(dv.Name, sources, d.Rows(), func(xs []float64) any { return stats.Sum(xs) }), nil
	case DeriveMean:
		return rowwise(dv.Name, sources, d.Rows(), func(xs []float64) any {
			if len(xs) == 0 {
				return nil
			}
			return stats.Mean(xs)
		}), nil
	case DeriveMultiply:
		return rowwise(dv.Name, sources, d.Rows(), func(xs []float64) any {
			p := 1.0
			for _, x := range xs {
				p *= x
			}
			return p
		}), nil
	case DeriveBin:
		bins := dv.Bins
		if bins <= 0 {
			bins = DefaultBins
		}
		return binColumn(dv.Name, sources[0], bins), nil
	default:
		return nil, fmt.Errorf("%w: derivation %q", ErrInvalidOperation, dv.Operation)
	}
}

// rowwise reduces the non-missing source cells of every row.
func rowwise(name string, sources []*Column, rows int, reduce func([]float64) any) *Column {
	vals := make([]any, rows)
	xs := make([]float64, 0, len(sources))
	for i := 0; i < rows; i++ {
		xs = xs[:0]
		for _, c := range sources {
			if f, ok := c.Float(i); ok {
				xs = append(xs, f)
			}
		}
		vals[i] = reduce(xs)
	}
	return &Column{Name: name, Kind: KindNumeric, Values: vals}
}

// binColumn assigns each finite value the index of its equal-width bin over
// [min, max]; the last bin is closed. Infinite values stay missing.
func binColumn(name string, src *Column, bins int) *Column {
	lo, hi := stats.Bounds(stats.Finite(src.Floats()))
	vals := make([]any, src.Len())
	width := (hi - lo) / float64(bins)
	for i := range vals {
		f, ok := src.Float(i)
		if !ok || math.IsNaN(lo) || math.IsInf(f, 0) {
			continue
		}
		idx := 0
		if width > 0 {
			idx = int((f - lo) / width)
			if idx < 0 {
				idx = 0
			}
			if idx >= bins {
				idx = bins - 1
			}
		}
		vals[i] = float64(idx)
	}
	return &Column{Name: name, Kind: KindNumeric, Values: vals}
}

// Convert changes the kind of a column. Cells that cannot be represented
// in the target kind become missing.
func Convert(d *Dataset, name string, kind Kind) (*Dataset, error) {
	col, ok := d.Column(name)
	if !ok {
		return nil, columnErr(name, ErrUnknownColumn)
	}

	vals := make([]any, col.Len())
	for i, v := range col.Values {
		if v == nil {
			continue
		}
		label := FormatCell(v)
		switch kind {
		case KindNumeric:
			if f, ok := v.(float64); ok {
				vals[i] = f
			} else if f, ok := parseNumber(label); ok {
				vals[i] = f
			}
		case KindDatetime:
			if t, ok := v.(time.Time); ok {
				vals[i] = t
			} else if t, ok := parseTime(label); ok {
				vals[i] = t
			}
		case KindText, KindCategory:
			vals[i] = label
		default:
			return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidOperation, kind)
		}
	}
	return d.withColumn(&Column{Name: name, Kind: kind, Values: vals}), nil
}

// Select keeps the named columns in the given order.
func Select(d *Dataset, names []string) (*Dataset, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: select needs at least one column", ErrInvalidOperation)
	}
	cols := make([]*Column, 0, len(names))
	for _, name := range names {
		col, ok := d.Column(name)
		if !ok {
			return nil, columnErr(name, ErrUnknownColumn)
		}
		cols = append(cols, col)
	}
	out, err := New(cols...)
	if err != nil {
		return nil, err
	}
	return out, nil
}
