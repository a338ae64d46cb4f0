package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// naTokens are the cell texts read as missing.
var naTokens = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

// datetimeLayouts are tried in order when inferring datetime columns.
var datetimeLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	time.RFC3339,
	time.RFC3339Nano,
	"2006/01/02",
	"2006/01/02 15:04:05",
}

// IsNA reports whether a raw cell text denotes a missing value.
func IsNA(s string) bool {
	_, ok := naTokens[s]
	return ok
}

// Format returns the lower-case extension of filename without the dot.
func Format(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

// Load reads a dataset from r, choosing the decoder by filename extension.
func Load(filename string, r io.Reader) (*Dataset, error) {
	switch ext := Format(filename); ext {
	case "csv":
		return readCSV(r)
	case "xlsx", "xls":
		return readExcel(r)
	default:
		return nil, fmt.Errorf("%w: %q (expected csv, xlsx or xls)", ErrUnsupportedFormat, ext)
	}
}

func readCSV(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: csv: %v", ErrParse, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: csv: no header row", ErrParse)
	}
	// strip a UTF-8 byte order mark from the first header
	if len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	}
	return FromRecords(records[0], records[1:])
}

func readExcel(r io.Reader) (*Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: excel: %v", ErrParse, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: excel: workbook has no sheets", ErrParse)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: excel: sheet %q: %v", ErrParse, sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: excel: sheet %q is empty", ErrParse, sheets[0])
	}
	return FromRecords(rows[0], rows[1:])
}

// FromRecords builds a dataset from a header and string rows, inferring a
// kind for every column. Short rows are padded with missing cells; blank or
// repeated header names are made unique.
func FromRecords(header []string, records [][]string) (*Dataset, error) {
	width := len(header)
	for _, rec := range records {
		if len(rec) > width {
			width = len(rec)
		}
	}
	if width == 0 {
		return nil, fmt.Errorf("%w: no columns", ErrParse)
	}

	names := uniqueNames(header, width)
	cols := make([]*Column, width)
	raw := make([]string, len(records))
	for j := 0; j < width; j++ {
		for i, rec := range records {
			if j < len(rec) {
				raw[i] = rec[j]
			} else {
				raw[i] = ""
			}
		}
		cols[j] = inferColumn(names[j], raw)
	}
	return New(cols...)
}

func uniqueNames(header []string, width int) []string {
	names := make([]string, width)
	used := make(map[string]bool, width)
	suffix := make(map[string]int)
	for j := 0; j < width; j++ {
		name := ""
		if j < len(header) {
			name = strings.TrimSpace(header[j])
		}
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(j)
		}
		base := name
		for used[name] {
			suffix[base]++
			name = base + "." + strconv.Itoa(suffix[base])
		}
		used[name] = true
		names[j] = name
	}
	return names
}

// inferColumn picks numeric, then datetime, then text.
func inferColumn(name string, raw []string) *Column {
	if vals, ok := parseAll(raw, parseNumber); ok {
		return &Column{Name: name, Kind: KindNumeric, Values: vals}
	}
	if vals, ok := parseAll(raw, parseTime); ok {
		return &Column{Name: name, Kind: KindDatetime, Values: vals}
	}
	vals := make([]any, len(raw))
	for i, s := range raw {
		if !IsNA(s) {
			vals[i] = s
		}
	}
	return &Column{Name: name, Kind: KindText, Values: vals}
}

// parseAll converts every non-missing cell with parse. An all-missing column
// always succeeds, so it is inferred as numeric.
func parseAll[T any](raw []string, parse func(string) (T, bool)) ([]any, bool) {
	vals := make([]any, len(raw))
	for i, s := range raw {
		if IsNA(s) {
			continue
		}
		v, ok := parse(s)
		if !ok {
			return nil, false
		}
		vals[i] = v
	}
	return vals, true
}

func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		var numErr *strconv.NumError
		// out-of-range values still parse to ±Inf
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return f, true
		}
		return 0, false
	}
	return f, true
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
