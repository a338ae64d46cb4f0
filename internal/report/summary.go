package report

import (
	"fmt"
	"time"

	"chartdeck/internal/dataset"
)

// Approximate in-memory cell sizes used for the memory estimate.
const (
	indexBytes  = 128
	numberBytes = 8
	stringBytes = 49
	nilBytes    = 16
)

// ColumnTypes counts columns per kind group.
type ColumnTypes struct {
	Numeric     int `json:"numeric"`
	Categorical int `json:"categorical"`
	Datetime    int `json:"datetime"`
}

// Summary is the content of the summary section.
type Summary struct {
	TotalRows     int         `json:"total_rows"`
	TotalColumns  int         `json:"total_columns"`
	MemoryUsage   string      `json:"memory_usage"`
	MissingValues int         `json:"missing_values"`
	DuplicateRows int         `json:"duplicate_rows"`
	ColumnTypes   ColumnTypes `json:"column_types"`
	Completeness  float64     `json:"completeness"`
	Uniqueness    float64     `json:"uniqueness"`
}

// CompletenessLabel formats completeness as a percentage with one decimal.
func (s *Summary) CompletenessLabel() string {
	return fmt.Sprintf("%.1f%%", s.Completeness)
}

// UniquenessLabel formats uniqueness as a percentage with one decimal.
func (s *Summary) UniquenessLabel() string {
	return fmt.Sprintf("%.1f%%", s.Uniqueness)
}

// Summarize computes the summary section.
func Summarize(ds *dataset.Dataset) (*Summary, error) {
	total := ds.Size()
	if total == 0 {
		return nil, ErrEmptyDataset
	}

	missing := ds.MissingCount()
	distinct := 0
	for _, c := range ds.Columns() {
		distinct += c.Unique()
	}

	return &Summary{
		TotalRows:     ds.Rows(),
		TotalColumns:  ds.Cols(),
		MemoryUsage:   fmt.Sprintf("%.2f MB", float64(memoryEstimate(ds))/1024/1024),
		MissingValues: missing,
		DuplicateRows: ds.DuplicateRows(),
		ColumnTypes: ColumnTypes{
			Numeric:     len(ds.Numeric()),
			Categorical: len(ds.Categorical()),
			Datetime:    len(ds.Datetime()),
		},
		Completeness: float64(total-missing) * 100 / float64(total),
		Uniqueness:   float64(distinct) * 100 / float64(total),
	}, nil
}

// memoryEstimate approximates the footprint of ds in bytes.
func memoryEstimate(ds *dataset.Dataset) int {
	n := indexBytes
	for _, c := range ds.Columns() {
		for _, v := range c.Values {
			switch x := v.(type) {
			case float64, time.Time:
				n += numberBytes
			case string:
				n += numberBytes + stringBytes + len(x)
			default:
				n += numberBytes + nilBytes
			}
		}
	}
	return n
}
