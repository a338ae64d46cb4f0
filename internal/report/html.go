package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed templates/report.html.tmpl
var templateFS embed.FS

var reportTemplate = template.Must(template.ParseFS(templateFS, "templates/report.html.tmpl"))

// markdown renders notes and narratives; raw HTML in the source is escaped.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

type metric struct {
	Label string
	Value string
}

type metricGroup struct {
	Title   string
	Metrics []metric
}

type statsRow struct {
	Stat   string
	Values []string
}

type statsTable struct {
	Columns []string
	Rows    []statsRow
}

type sectionView struct {
	Title     string
	Error     string
	Groups    []metricGroup
	Stats     *statsTable
	Insights  []Insight
	Narrative template.HTML
}

type pageView struct {
	Title       string
	GeneratedAt string
	Shape       string
	Notes       template.HTML
	Sections    []sectionView
}

// MarkdownToHTML converts markdown to an HTML fragment.
func MarkdownToHTML(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("failed to convert markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// RenderHTML writes r as a self-contained HTML document with inline CSS.
func RenderHTML(w io.Writer, r *Report) error {
	caser := cases.Title(language.English)
	view := pageView{
		Title:       r.Metadata.Title,
		GeneratedAt: r.Metadata.GeneratedAt.Format(time.RFC3339),
		Shape:       fmt.Sprintf("%d rows × %d columns", r.Metadata.DataShape[0], r.Metadata.DataShape[1]),
	}
	if strings.TrimSpace(r.Notes) != "" {
		notes, err := MarkdownToHTML(r.Notes)
		if err != nil {
			return err
		}
		view.Notes = notes
	}

	for i := range r.Sections {
		s := &r.Sections[i]
		v := sectionView{Title: s.Title, Error: s.Error}
		if v.Title == "" {
			v.Title = caser.String(string(s.Name))
		}
		if !s.Failed() {
			switch s.Name {
			case SectionSummary:
				v.Groups = summaryGroups(s.Summary, caser)
			case SectionStatistics:
				v.Stats = numericTable(s.Statistics)
			case SectionInsights:
				v.Insights = s.Insights
			case SectionNarrative:
				narrative, err := MarkdownToHTML(s.Narrative)
				if err != nil {
					return err
				}
				v.Narrative = narrative
			}
		}
		view.Sections = append(view.Sections, v)
	}

	return reportTemplate.Execute(w, view)
}

// HTML renders r to a string.
func (r *Report) HTML() (string, error) {
	var buf bytes.Buffer
	if err := RenderHTML(&buf, r); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func humanize(key string, caser cases.Caser) string {
	return caser.String(strings.ReplaceAll(key, "_", " "))
}

func summaryGroups(s *Summary, caser cases.Caser) []metricGroup {
	if s == nil {
		return nil
	}
	itoa := strconv.Itoa
	return []metricGroup{
		{Title: "Key Metrics", Metrics: []metric{
			{humanize("total_rows", caser), itoa(s.TotalRows)},
			{humanize("total_columns", caser), itoa(s.TotalColumns)},
			{humanize("memory_usage", caser), s.MemoryUsage},
			{humanize("missing_values", caser), itoa(s.MissingValues)},
			{humanize("duplicate_rows", caser), itoa(s.DuplicateRows)},
		}},
		{Title: "Column Types", Metrics: []metric{
			{humanize("numeric", caser), itoa(s.ColumnTypes.Numeric)},
			{humanize("categorical", caser), itoa(s.ColumnTypes.Categorical)},
			{humanize("datetime", caser), itoa(s.ColumnTypes.Datetime)},
		}},
		{Title: "Data Quality", Metrics: []metric{
			{humanize("completeness", caser), s.CompletenessLabel()},
			{humanize("uniqueness", caser), s.UniquenessLabel()},
		}},
	}
}

// numericTable lays the describe output out with one row per statistic.
func numericTable(st *Statistics) *statsTable {
	if st == nil || len(st.Numeric) == 0 {
		return nil
	}
	t := &statsTable{}
	for _, n := range st.Numeric {
		t.Columns = append(t.Columns, n.Column)
	}
	for _, stat := range StatRows {
		row := statsRow{Stat: stat}
		for _, n := range st.Numeric {
			row.Values = append(row.Values, formatStat(stat, n.Value(stat)))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func formatStat(stat string, v Number) string {
	if !v.Valid() {
		return "N/A"
	}
	if stat == "count" {
		return strconv.Itoa(int(v))
	}
	return fmt.Sprintf("%.2f", float64(v))
}
