package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chartdeck/internal/chart"
	"chartdeck/internal/dataset"
)

func col(name string, kind dataset.Kind, values ...any) *dataset.Column {
	return &dataset.Column{Name: name, Kind: kind, Values: values}
}

func mustDataset(t *testing.T, cols ...*dataset.Column) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New(cols...)
	require.NoError(t, err)
	return ds
}

// employees has two numeric and two categorical columns, no duplicates.
func employees(t *testing.T) *dataset.Dataset {
	return mustDataset(t,
		col("name", dataset.KindText, "ann", "bob", "cid", "dee", "eve", "fay"),
		col("dept", dataset.KindText, "ops", "dev", "dev", "ops", "dev", "hr"),
		col("salary", dataset.KindNumeric, 50.0, 60.0, 65.0, 52.0, 70.0, 300.0),
		col("age", dataset.KindNumeric, 30.0, 35.0, 41.0, 29.0, 45.0, 50.0),
	)
}

func newTestGenerator(options ...Option) *Generator {
	fixed := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	return NewGenerator(chart.NewBuilder(), append([]Option{WithClock(func() time.Time { return fixed })}, options...)...)
}

func TestCompleteness(t *testing.T) {
	ds := mustDataset(t,
		col("a", dataset.KindNumeric, 1.0, 2.0, 3.0, 4.0, 5.0),
		col("b", dataset.KindText, "x", "y", nil, "z", "w"),
	)
	s, err := Summarize(ds)
	require.NoError(t, err)
	assert.Equal(t, 90.0, s.Completeness)
	assert.Equal(t, "90.0%", s.CompletenessLabel())
	assert.Equal(t, 5, s.TotalRows)
	assert.Equal(t, 2, s.TotalColumns)
	assert.Equal(t, 1, s.MissingValues)
	assert.Equal(t, 0, s.DuplicateRows)
	assert.Equal(t, ColumnTypes{Numeric: 1, Categorical: 1}, s.ColumnTypes)
	assert.Equal(t, 90.0, s.Uniqueness, "5 + 4 distinct over 10 cells")
	assert.True(t, strings.HasSuffix(s.MemoryUsage, " MB"))
}

func TestSummarizeEmpty(t *testing.T) {
	_, err := Summarize(mustDataset(t))
	assert.ErrorIs(t, err, ErrEmptyDataset)
}

func TestHighMissingInsight(t *testing.T) {
	ids := make([]any, 20)
	scores := make([]any, 20)
	for i := range ids {
		ids[i] = fmt.Sprintf("id-%02d", i)
		scores[i] = float64(i % 7)
	}
	scores[0], scores[5], scores[9] = nil, nil, nil

	insights := Insights(mustDataset(t,
		col("id", dataset.KindText, ids...),
		col("score", dataset.KindNumeric, scores...),
	))

	var missing []Insight
	for _, in := range insights {
		if in.Title == "High Missing Values" {
			missing = append(missing, in)
		}
		assert.NotEqual(t, "Duplicate Rows", in.Title)
	}
	require.Len(t, missing, 1)
	assert.Equal(t, SeverityWarning, missing[0].Severity)
	assert.Equal(t, InsightDataQuality, missing[0].Type)
	assert.Equal(t, "Columns with >10% missing values: score", missing[0].Description)
}

func TestInsightHeuristics(t *testing.T) {
	ds := mustDataset(t,
		col("code", dataset.KindText, "a", "b", "c", "d", "a", "a"),
		col("flag", dataset.KindNumeric, 1.0, 1.0, 1.0, 1.0, 1.0, 1.0),
		col("value", dataset.KindNumeric, 10.0, 11.0, 12.0, 13.0, 10.5, 100.0),
	)
	byTitle := map[string]Insight{}
	for _, in := range Insights(ds) {
		byTitle[in.Title] = in
	}

	assert.Equal(t, "Column 'flag' has only one unique value", byTitle["Constant Column: flag"].Description)
	assert.Equal(t, "Found 1 potential outliers (16.7%)", byTitle["Outliers in value"].Description)
	assert.Equal(t, "Column 'code' has 4 unique values (66.7%)", byTitle["High Cardinality: code"].Description)
	assert.NotContains(t, byTitle, "Duplicate Rows")

	dup := mustDataset(t,
		col("k", dataset.KindText, "a", "a", "b", "c"),
		col("v", dataset.KindNumeric, 1.0, 1.0, 2.0, 3.0),
	)
	byTitle = map[string]Insight{}
	for _, in := range Insights(dup) {
		byTitle[in.Title] = in
	}
	assert.Equal(t, "Found 1 duplicate rows (25.0%)", byTitle["Duplicate Rows"].Description)

	unique := mustDataset(t, col("id", dataset.KindText, "x", "y", "z"))
	insights := Insights(unique)
	require.Len(t, insights, 1)
	assert.Equal(t, "Unique Column: id", insights[0].Title)
	assert.Equal(t, "Column 'id' has all unique values (potential identifier)", insights[0].Description)
}

func TestDescribe(t *testing.T) {
	st := Describe(employees(t))
	require.Len(t, st.Numeric, 2)

	salary := st.Numeric[0]
	assert.Equal(t, "salary", salary.Column)
	assert.Equal(t, 6, salary.Count)
	assert.InDelta(t, 99.5, float64(salary.Mean), 1e-9)
	assert.InDelta(t, 62.5, float64(salary.Median), 1e-9)
	assert.Equal(t, Number(50), salary.Min)
	assert.Equal(t, Number(300), salary.Value("max"))

	require.Len(t, st.Categorical, 2)
	dept := st.Categorical[1]
	assert.Equal(t, "dept", dept.Column)
	assert.Equal(t, 3, dept.UniqueValues)
	assert.Equal(t, dataset.ValueCount{Value: "dev", Count: 3}, dept.TopValues[0])

	require.NotNil(t, st.Correlations)
	assert.Equal(t, []string{"salary", "age"}, st.Correlations.Columns)
	assert.InDelta(t, 1.0, float64(st.Correlations.Matrix[0][0]), 1e-9)
	assert.Equal(t, st.Correlations.Matrix[0][1], st.Correlations.Matrix[1][0])

	single := Describe(mustDataset(t, col("v", dataset.KindNumeric, 1.0)))
	assert.Nil(t, single.Correlations)
	assert.False(t, single.Numeric[0].Std.Valid())
}

func TestAutoChartsWithInfiniteValues(t *testing.T) {
	ds := mustDataset(t,
		col("x", dataset.KindNumeric, 1.0, 2.0, math.Inf(1), 4.0),
		col("y", dataset.KindNumeric, 2.0, 1.0, 3.0, math.Inf(-1)),
	)

	charts, err := AutoCharts(ds, chart.NewBuilder())
	require.NoError(t, err)
	require.Len(t, charts, 3)
	total := 0
	for _, b := range charts[0].Bins {
		total += b.Count
	}
	assert.Equal(t, 3, total)

	r := newTestGenerator().Generate(context.Background(), ds, Config{Sections: []SectionName{SectionCharts}})
	require.Len(t, r.Sections, 1)
	assert.Empty(t, r.Sections[0].Error)
}

func TestAutoCharts(t *testing.T) {
	ds := mustDataset(t,
		col("constant", dataset.KindNumeric, 1.0, 1.0, 1.0),
		col("x", dataset.KindNumeric, 1.0, 2.0, 3.0),
		col("y", dataset.KindNumeric, 3.0, 1.0, 2.0),
		col("group", dataset.KindText, "a", "b", "a"),
	)
	charts, err := AutoCharts(ds, chart.NewBuilder())
	require.NoError(t, err)

	var titles []string
	for _, c := range charts {
		titles = append(titles, c.Title)
		assert.NotNil(t, c.Figure, c.Title)
	}
	assert.Equal(t, []string{
		"Distribution of x",
		"Distribution of y",
		"Top Values in group",
		"Correlation Matrix",
	}, titles)
	assert.Len(t, charts[0].Bins, chart.DefaultBins)
	assert.Equal(t, []dataset.ValueCount{{Value: "a", Count: 2}, {Value: "b", Count: 1}}, charts[2].Counts)
	assert.Len(t, charts[3].Correlation.Columns, 3)
}

func TestAutoChartsSkipsHighCardinality(t *testing.T) {
	values := make([]any, 25)
	for i := range values {
		values[i] = fmt.Sprintf("v%d", i)
	}
	charts, err := AutoCharts(mustDataset(t, col("label", dataset.KindText, values...)), chart.NewBuilder())
	require.NoError(t, err)
	assert.Empty(t, charts)
}

type stubNarrator struct {
	text  string
	err   error
	panic bool
	got   NarrativeInput
}

func (s *stubNarrator) Narrate(_ context.Context, in NarrativeInput) (string, error) {
	if s.panic {
		panic("narrator exploded")
	}
	s.got = in
	return s.text, s.err
}

func TestGenerateSections(t *testing.T) {
	g := newTestGenerator()
	r := g.Generate(context.Background(), employees(t), Config{})

	assert.Equal(t, DefaultTitle, r.Metadata.Title)
	assert.Equal(t, [2]int{6, 4}, r.Metadata.DataShape)
	assert.Equal(t, 2024, r.Metadata.GeneratedAt.Year())

	var names []SectionName
	for _, s := range r.Sections {
		names = append(names, s.Name)
		assert.False(t, s.Failed(), s.Error)
	}
	assert.Equal(t, DefaultSections, names)

	summary, ok := r.Section(SectionSummary)
	require.True(t, ok)
	assert.Equal(t, "Data Summary", summary.Title)
	assert.NotEmpty(t, r.Charts())

	r = g.Generate(context.Background(), employees(t), Config{
		Title:    "Staff",
		Sections: []SectionName{"insights", "bogus", "summary", "insights"},
	})
	names = nil
	for _, s := range r.Sections {
		names = append(names, s.Name)
	}
	assert.Equal(t, []SectionName{SectionInsights, SectionSummary}, names)
	assert.Equal(t, "Staff", r.Metadata.Title)
	assert.Nil(t, r.Charts())
}

func TestGenerateIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	cfg := Config{Sections: []SectionName{SectionSummary, SectionNarrative, SectionInsights}}

	r := newTestGenerator().Generate(ctx, employees(t), cfg)
	narrative, _ := r.Section(SectionNarrative)
	assert.Equal(t, ErrNarratorDisabled.Error(), narrative.Error)
	summary, _ := r.Section(SectionSummary)
	assert.False(t, summary.Failed())
	insights, _ := r.Section(SectionInsights)
	assert.False(t, insights.Failed())

	r = newTestGenerator(WithNarrator(&stubNarrator{panic: true})).Generate(ctx, employees(t), cfg)
	narrative, _ = r.Section(SectionNarrative)
	assert.Contains(t, narrative.Error, "narrator exploded")
	insights, _ = r.Section(SectionInsights)
	assert.False(t, insights.Failed())

	r = newTestGenerator().Generate(ctx, mustDataset(t), Config{Sections: []SectionName{SectionSummary, SectionStatistics}})
	summary, _ = r.Section(SectionSummary)
	assert.Equal(t, ErrEmptyDataset.Error(), summary.Error)
	statistics, _ := r.Section(SectionStatistics)
	assert.False(t, statistics.Failed())
}

func TestGenerateNarrative(t *testing.T) {
	n := &stubNarrator{text: "## Overview\nSalaries are **skewed**."}
	g := newTestGenerator(WithNarrator(n))
	require.True(t, g.NarrativeEnabled())

	r := g.Generate(context.Background(), employees(t), Config{Title: "Staff", Sections: []SectionName{SectionNarrative}})
	s, ok := r.Section(SectionNarrative)
	require.True(t, ok)
	assert.False(t, s.Failed())
	assert.Equal(t, n.text, s.Narrative)
	assert.Equal(t, "Staff", n.got.Title)
	assert.Equal(t, 6, n.got.Summary.TotalRows)
	assert.Len(t, n.got.Columns, 4)

	failing := newTestGenerator(WithNarrator(&stubNarrator{err: errors.New("quota exceeded")}))
	r = failing.Generate(context.Background(), employees(t), Config{Sections: []SectionName{SectionNarrative}})
	assert.Equal(t, "quota exceeded", r.Sections[0].Error)
}

func TestRenderHTML(t *testing.T) {
	n := &stubNarrator{text: "Salaries are **skewed**."}
	r := newTestGenerator(WithNarrator(n)).Generate(context.Background(), employees(t), Config{
		Title:    "Staff <Report>",
		Notes:    "# Notes\nReviewed by <b>ops</b>.",
		Sections: []SectionName{SectionSummary, SectionStatistics, SectionCharts, SectionInsights, SectionNarrative},
	})
	r.Sections = append(r.Sections, Section{Name: "broken", Title: "Broken", Error: "boom"})

	html, err := r.HTML()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
	assert.Contains(t, html, "<style>")
	assert.NotContains(t, html, "<script")
	assert.Contains(t, html, "Staff &lt;Report&gt;")
	assert.Contains(t, html, "Data Shape: 6 rows × 4 columns")
	assert.Contains(t, html, "<h1 id=\"notes\">Notes</h1>")
	assert.NotContains(t, html, "<b>ops</b>")

	assert.Contains(t, html, "<h2>Data Summary</h2>")
	assert.Contains(t, html, "<strong>Total Rows:</strong> 6")
	assert.Contains(t, html, "<strong>Completeness:</strong> 100.0%")

	assert.Contains(t, html, "<th>salary</th>")
	for _, stat := range StatRows {
		assert.Contains(t, html, "<tr><td>"+stat+"</td>")
	}
	assert.Contains(t, html, "<td>99.50</td>")

	assert.Contains(t, html, "<h2>Data Visualizations</h2>")
	assert.Contains(t, html, `<div class="insight info">`)
	assert.Contains(t, html, "<strong>skewed</strong>")
	assert.Contains(t, html, `<div class="insight error">Error: boom</div>`)
}

func TestRenderChartPNG(t *testing.T) {
	charts, err := AutoCharts(employees(t), chart.NewBuilder())
	require.NoError(t, err)
	require.NotEmpty(t, charts)

	for _, c := range charts {
		t.Run(c.Title, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, RenderChartPNG(c, &buf))
			assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))
		})
	}

	assert.ErrorIs(t, RenderChartPNG(Chart{Type: chart.Bar}, &bytes.Buffer{}), ErrNothingToDraw)
	assert.ErrorIs(t, RenderChartPNG(Chart{Type: chart.Pie}, &bytes.Buffer{}), chart.ErrUnsupportedType)
}

func TestNumberJSON(t *testing.T) {
	st := NumericStats{Column: "v", Count: 1, Mean: 2.5, Std: Number(math.NaN())}
	data, err := json.Marshal(st)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"mean":2.5`)
	assert.Contains(t, string(data), `"std":null`)

	var back NumericStats
	require.NoError(t, json.Unmarshal(data, &back))
	assert.False(t, back.Std.Valid())
	assert.Equal(t, Number(2.5), back.Mean)
}
