package dataset

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// FilterType names a row predicate.
type FilterType string

const (
	FilterEquals   FilterType = "equals"
	FilterContains FilterType = "contains"
	FilterRange    FilterType = "range"
	FilterIn       FilterType = "in"
	FilterNotNull  FilterType = "not_null"
	FilterNull     FilterType = "null"
)

// Filter is a predicate on one column. Value holds a scalar for equals and
// contains, a [min, max] pair for range and a list for in.
type Filter struct {
	Type  FilterType `json:"type" yaml:"type"`
	Value any        `json:"value,omitempty" yaml:"value,omitempty"`
}

// ApplyFilters keeps the rows matching every filter. Filters naming columns
// absent from the dataset are skipped.
func ApplyFilters(d *Dataset, filters map[string]Filter) (*Dataset, error) {
	names := make([]string, 0, len(filters))
	for name := range filters {
		names = append(names, name)
	}
	sort.Strings(names)

	type check struct {
		col   *Column
		match func(i int) bool
	}
	var checks []check
	for _, name := range names {
		col, ok := d.Column(name)
		if !ok {
			continue
		}
		match, err := compileFilter(col, filters[name])
		if err != nil {
			return nil, columnErr(name, err)
		}
		checks = append(checks, check{col: col, match: match})
	}

	rows := make([]int, 0, d.Rows())
	for i := 0; i < d.Rows(); i++ {
		keep := true
		for _, c := range checks {
			if !c.match(i) {
				keep = false
				break
			}
		}
		if keep {
			rows = append(rows, i)
		}
	}
	return d.take(rows), nil
}

func compileFilter(col *Column, f Filter) (func(int) bool, error) {
	switch f.Type {
	case FilterNotNull:
		return func(i int) bool { return !col.IsMissing(i) }, nil
	case FilterNull:
		return col.IsMissing, nil
	case FilterEquals:
		want, err := coerce(col.Kind, f.Value)
		if err != nil {
			return nil, err
		}
		key := cellKey(want)
		return func(i int) bool { return !col.IsMissing(i) && cellKey(col.Values[i]) == key }, nil
	case FilterContains:
		s, ok := f.Value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: contains needs a string value", ErrInvalidOperation)
		}
		needle := strings.ToLower(s)
		return func(i int) bool {
			return !col.IsMissing(i) && strings.Contains(strings.ToLower(col.Label(i)), needle)
		}, nil
	case FilterIn:
		items, ok := toSlice(f.Value)
		if !ok {
			return nil, fmt.Errorf("%w: in needs a list value", ErrInvalidOperation)
		}
		set := make(map[string]struct{}, len(items))
		for _, item := range items {
			v, err := coerce(col.Kind, item)
			if err != nil {
				continue
			}
			set[cellKey(v)] = struct{}{}
		}
		return func(i int) bool {
			if col.IsMissing(i) {
				return false
			}
			_, ok := set[cellKey(col.Values[i])]
			return ok
		}, nil
	case FilterRange:
		return compileRange(col, f.Value)
	default:
		return nil, fmt.Errorf("%w: filter type %q", ErrInvalidOperation, f.Type)
	}
}

func compileRange(col *Column, value any) (func(int) bool, error) {
	bounds, ok := toSlice(value)
	if !ok || len(bounds) != 2 {
		return nil, fmt.Errorf("%w: range needs a [min, max] value", ErrInvalidOperation)
	}
	switch col.Kind {
	case KindNumeric:
		lo, ok1 := toFloat(bounds[0])
		hi, ok2 := toFloat(bounds[1])
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("%w: range bounds must be numbers", ErrInvalidOperation)
		}
		return func(i int) bool {
			f, ok := col.Float(i)
			return ok && f >= lo && f <= hi
		}, nil
	case KindDatetime:
		lo, ok1 := toTime(bounds[0])
		hi, ok2 := toTime(bounds[1])
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("%w: range bounds must be dates", ErrInvalidOperation)
		}
		return func(i int) bool {
			t, ok := col.Values[i].(time.Time)
			return ok && !t.Before(lo) && !t.After(hi)
		}, nil
	default:
		lo, ok1 := bounds[0].(string)
		hi, ok2 := bounds[1].(string)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("%w: range bounds must be strings for %s columns", ErrInvalidOperation, col.Kind)
		}
		return func(i int) bool {
			s, ok := col.Values[i].(string)
			return ok && s >= lo && s <= hi
		}, nil
	}
}

// coerce converts a filter operand to the cell representation of kind.
func coerce(kind Kind, v any) (any, error) {
	switch kind {
	case KindNumeric:
		if f, ok := toFloat(v); ok {
			return f, nil
		}
	case KindDatetime:
		if t, ok := toTime(v); ok {
			return t, nil
		}
	default:
		switch x := v.(type) {
		case string:
			return x, nil
		case float64:
			return strconv.FormatFloat(x, 'f', -1, 64), nil
		case json.Number:
			return x.String(), nil
		case int:
			return strconv.Itoa(x), nil
		case bool:
			return strconv.FormatBool(x), nil
		}
	}
	return nil, fmt.Errorf("%w: cannot compare %v with a %s column", ErrInvalidOperation, v, kind)
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		return parseNumber(x)
	}
	return 0, false
}

func toTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		return parseTime(x)
	}
	return time.Time{}, false
}

func toSlice(v any) ([]any, bool) {
	switch x := v.(type) {
	case []any:
		return x, true
	case []string:
		out := make([]any, len(x))
		for i, s := range x {
			out[i] = s
		}
		return out, true
	case []float64:
		out := make([]any, len(x))
		for i, f := range x {
			out[i] = f
		}
		return out, true
	case []int:
		out := make([]any, len(x))
		for i, n := range x {
			out[i] = n
		}
		return out, true
	}
	return nil, false
}
