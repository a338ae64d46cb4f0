// Package dataset holds the in-memory tabular data every other component
// works from, together with its loaders, transforms and exporters.
package dataset

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Kind is the inferred type of a column.
type Kind string

const (
	KindNumeric  Kind = "numeric"
	KindText     Kind = "text"
	KindCategory Kind = "category"
	KindDatetime Kind = "datetime"
)

// Categorical reports whether values of this kind are labels.
func (k Kind) Categorical() bool {
	return k == KindText || k == KindCategory
}

// ParseKind accepts the kind names used by the conversion API.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(s)) {
	case KindNumeric:
		return KindNumeric, nil
	case KindText, "string":
		return KindText, nil
	case KindCategory:
		return KindCategory, nil
	case KindDatetime:
		return KindDatetime, nil
	}
	return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidOperation, s)
}

// Column is a named, typed vector of cells. A cell is float64 for numeric
// columns, time.Time for datetime columns, string otherwise, or nil when
// missing.
type Column struct {
	Name   string
	Kind   Kind
	Values []any
}

// Len returns the number of cells.
func (c *Column) Len() int { return len(c.Values) }

// IsMissing reports whether cell i is missing.
func (c *Column) IsMissing(i int) bool { return c.Values[i] == nil }

// Float returns cell i as a number when the column is numeric.
func (c *Column) Float(i int) (float64, bool) {
	f, ok := c.Values[i].(float64)
	return f, ok
}

// Floats returns the non-missing numeric cells in row order.
func (c *Column) Floats() []float64 {
	out := make([]float64, 0, len(c.Values))
	for _, v := range c.Values {
		if f, ok := v.(float64); ok {
			out = append(out, f)
		}
	}
	return out
}

// Label formats cell i for display; missing cells format as "".
func (c *Column) Label(i int) string {
	return FormatCell(c.Values[i])
}

// MissingCount returns the number of missing cells.
func (c *Column) MissingCount() int {
	n := 0
	for _, v := range c.Values {
		if v == nil {
			n++
		}
	}
	return n
}

// Unique returns the number of distinct non-missing cells.
func (c *Column) Unique() int {
	seen := make(map[string]struct{}, len(c.Values))
	for _, v := range c.Values {
		if v == nil {
			continue
		}
		seen[cellKey(v)] = struct{}{}
	}
	return len(seen)
}

// ValueCount is one entry of a frequency table.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// ValueCounts returns the frequency of each distinct non-missing cell,
// most frequent first; ties keep first-appearance order.
func (c *Column) ValueCounts() []ValueCount {
	index := make(map[string]int)
	var counts []ValueCount
	for _, v := range c.Values {
		if v == nil {
			continue
		}
		k := cellKey(v)
		if i, ok := index[k]; ok {
			counts[i].Count++
			continue
		}
		index[k] = len(counts)
		counts = append(counts, ValueCount{Value: FormatCell(v), Count: 1})
	}
	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Count > counts[j].Count })
	return counts
}

// Distinct returns the labels of distinct non-missing cells in first-appearance order.
func (c *Column) Distinct() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, v := range c.Values {
		if v == nil {
			continue
		}
		k := cellKey(v)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, FormatCell(v))
	}
	return out
}

func (c *Column) clone() *Column {
	vals := make([]any, len(c.Values))
	copy(vals, c.Values)
	return &Column{Name: c.Name, Kind: c.Kind, Values: vals}
}

// Dataset is an ordered set of equally long columns. Operations return new
// datasets and never modify the receiver.
type Dataset struct {
	cols  []*Column
	index map[string]int
	rows  int
}

// New assembles a dataset, checking names are unique and lengths agree.
func New(cols ...*Column) (*Dataset, error) {
	d := &Dataset{index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if _, dup := d.index[c.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrShape, c.Name)
		}
		if i == 0 {
			d.rows = c.Len()
		} else if c.Len() != d.rows {
			return nil, fmt.Errorf("%w: column %q has %d rows, want %d", ErrShape, c.Name, c.Len(), d.rows)
		}
		d.index[c.Name] = i
		d.cols = append(d.cols, c)
	}
	return d, nil
}

func mustNew(cols ...*Column) *Dataset {
	d, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return d
}

// Rows returns the number of rows.
func (d *Dataset) Rows() int { return d.rows }

// Cols returns the number of columns.
func (d *Dataset) Cols() int { return len(d.cols) }

// Size is the number of cells.
func (d *Dataset) Size() int { return d.rows * len(d.cols) }

// Columns returns the columns in order. Callers must not modify them.
func (d *Dataset) Columns() []*Column { return d.cols }

// Names returns the column names in order.
func (d *Dataset) Names() []string {
	out := make([]string, len(d.cols))
	for i, c := range d.cols {
		out[i] = c.Name
	}
	return out
}

// Column looks a column up by name.
func (d *Dataset) Column(name string) (*Column, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return d.cols[i], true
}

// Numeric returns the numeric columns in order.
func (d *Dataset) Numeric() []*Column {
	return d.ofKind(func(k Kind) bool { return k == KindNumeric })
}

// Categorical returns the text and category columns in order.
func (d *Dataset) Categorical() []*Column {
	return d.ofKind(Kind.Categorical)
}

// Datetime returns the datetime columns in order.
func (d *Dataset) Datetime() []*Column {
	return d.ofKind(func(k Kind) bool { return k == KindDatetime })
}

func (d *Dataset) ofKind(match func(Kind) bool) []*Column {
	var out []*Column
	for _, c := range d.cols {
		if match(c.Kind) {
			out = append(out, c)
		}
	}
	return out
}

// MissingCount is the number of missing cells across all columns.
func (d *Dataset) MissingCount() int {
	n := 0
	for _, c := range d.cols {
		n += c.MissingCount()
	}
	return n
}

// Row returns the cells of row i.
func (d *Dataset) Row(i int) []any {
	out := make([]any, len(d.cols))
	for j, c := range d.cols {
		out[j] = c.Values[i]
	}
	return out
}

func (d *Dataset) rowKey(i int) string {
	var b strings.Builder
	for _, c := range d.cols {
		b.WriteString(cellKey(c.Values[i]))
		b.WriteByte(0x1f)
	}
	return b.String()
}

// DuplicateRows counts rows identical to an earlier row.
func (d *Dataset) DuplicateRows() int {
	seen := make(map[string]struct{}, d.rows)
	n := 0
	for i := 0; i < d.rows; i++ {
		k := d.rowKey(i)
		if _, ok := seen[k]; ok {
			n++
			continue
		}
		seen[k] = struct{}{}
	}
	return n
}

// take builds a dataset from the given rows, in the given order.
func (d *Dataset) take(rows []int) *Dataset {
	cols := make([]*Column, len(d.cols))
	for j, c := range d.cols {
		vals := make([]any, len(rows))
		for k, r := range rows {
			vals[k] = c.Values[r]
		}
		cols[j] = &Column{Name: c.Name, Kind: c.Kind, Values: vals}
	}
	return mustNew(cols...)
}

// withColumn returns a copy with col appended, or replacing the column of
// the same name in place.
func (d *Dataset) withColumn(col *Column) *Dataset {
	cols := make([]*Column, len(d.cols))
	copy(cols, d.cols)
	if i, ok := d.index[col.Name]; ok {
		cols[i] = col
	} else {
		cols = append(cols, col)
	}
	return mustNew(cols...)
}

// Head returns the first n rows.
func (d *Dataset) Head(n int) *Dataset {
	if n < 0 {
		n = 0
	}
	if n > d.rows {
		n = d.rows
	}
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return d.take(rows)
}

// FormatCell renders a cell for display and export.
func FormatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		return x
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprint(x)
	}
}

func cellKey(v any) string {
	switch x := v.(type) {
	case nil:
		return "\x00"
	case float64:
		return "f" + strconv.FormatFloat(x, 'g', -1, 64)
	case time.Time:
		return "t" + x.UTC().Format(time.RFC3339Nano)
	case string:
		return "s" + x
	default:
		return "?" + fmt.Sprint(x)
	}
}
