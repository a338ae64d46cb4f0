package report

import (
	"fmt"
	"strings"

	"chartdeck/internal/dataset"
	"chartdeck/internal/stats"
)

// Severity grades an insight.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Insight categories.
const (
	InsightDataQuality    = "data_quality"
	InsightColumnAnalysis = "column_analysis"
	InsightOutliers       = "outliers"
)

// Thresholds for the insight heuristics.
const (
	missingThreshold     = 10.0
	cardinalityThreshold = 0.5
)

// Insight is one observation about the data.
type Insight struct {
	Type        string   `json:"type"`
	Severity    Severity `json:"severity"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
}

func percent(n, of int) float64 {
	return float64(n) * 100 / float64(of)
}

// Insights runs the data-quality and column heuristics over ds.
func Insights(ds *dataset.Dataset) []Insight {
	out := []Insight{}
	rows := ds.Rows()
	if rows == 0 {
		return out
	}

	var highMissing []string
	for _, c := range ds.Columns() {
		if percent(c.MissingCount(), rows) > missingThreshold {
			highMissing = append(highMissing, c.Name)
		}
	}
	if len(highMissing) > 0 {
		out = append(out, Insight{
			Type:        InsightDataQuality,
			Severity:    SeverityWarning,
			Title:       "High Missing Values",
			Description: "Columns with >10% missing values: " + strings.Join(highMissing, ", "),
		})
	}

	if dup := ds.DuplicateRows(); dup > 0 {
		out = append(out, Insight{
			Type:        InsightDataQuality,
			Severity:    SeverityInfo,
			Title:       "Duplicate Rows",
			Description: fmt.Sprintf("Found %d duplicate rows (%.1f%%)", dup, percent(dup, rows)),
		})
	}

	for _, c := range ds.Numeric() {
		if c.Unique() == 1 {
			out = append(out, Insight{
				Type:        InsightColumnAnalysis,
				Severity:    SeverityInfo,
				Title:       "Constant Column: " + c.Name,
				Description: fmt.Sprintf("Column '%s' has only one unique value", c.Name),
			})
		}
		if n := stats.Outliers(c.Floats()); n > 0 {
			out = append(out, Insight{
				Type:        InsightOutliers,
				Severity:    SeverityInfo,
				Title:       "Outliers in " + c.Name,
				Description: fmt.Sprintf("Found %d potential outliers (%.1f%%)", n, percent(n, rows)),
			})
		}
	}

	for _, c := range ds.Categorical() {
		unique := c.Unique()
		switch {
		case unique == rows:
			out = append(out, Insight{
				Type:        InsightColumnAnalysis,
				Severity:    SeverityInfo,
				Title:       "Unique Column: " + c.Name,
				Description: fmt.Sprintf("Column '%s' has all unique values (potential identifier)", c.Name),
			})
		case float64(unique) > float64(rows)*cardinalityThreshold:
			out = append(out, Insight{
				Type:        InsightColumnAnalysis,
				Severity:    SeverityInfo,
				Title:       "High Cardinality: " + c.Name,
				Description: fmt.Sprintf("Column '%s' has %d unique values (%.1f%%)", c.Name, unique, percent(unique, rows)),
			})
		}
	}
	return out
}
