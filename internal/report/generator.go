package report

import (
	"context"
	"fmt"
	"time"

	"chartdeck/internal/chart"
	"chartdeck/internal/dataset"
	"chartdeck/internal/logger"
)

// NarrativeInput is what a narrator sees of the data.
type NarrativeInput struct {
	Title    string                  `json:"title"`
	Summary  *Summary                `json:"summary"`
	Columns  []dataset.ColumnSummary `json:"columns"`
	Insights []Insight               `json:"insights"`
}

// Narrator writes a markdown commentary for a report.
type Narrator interface {
	Narrate(ctx context.Context, in NarrativeInput) (string, error)
}

// Generator produces reports. Sections fail independently.
type Generator struct {
	builder  *chart.Builder
	narrator Narrator
	now      func() time.Time
	log      *logger.Logger
}

// Option customises a Generator.
type Option func(*Generator)

// WithNarrator enables the narrative section.
func WithNarrator(n Narrator) Option {
	return func(g *Generator) { g.narrator = n }
}

// WithClock replaces the time source for generated_at.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// NewGenerator creates a Generator drawing charts with b.
func NewGenerator(b *chart.Builder, options ...Option) *Generator {
	g := &Generator{
		builder: b,
		now:     time.Now,
		log:     logger.WithComponent("report"),
	}
	for _, o := range options {
		o(g)
	}
	return g
}

// NarrativeEnabled reports whether a narrator is configured.
func (g *Generator) NarrativeEnabled() bool { return g.narrator != nil }

// Generate builds the configured sections in order. A section that fails
// or panics records its error and the remaining sections still run.
func (g *Generator) Generate(ctx context.Context, ds *dataset.Dataset, cfg Config) *Report {
	r := &Report{
		Metadata: Metadata{
			GeneratedAt: g.now().UTC().Round(0),
			DataShape:   [2]int{ds.Rows(), ds.Cols()},
			Title:       cfg.title(),
		},
		Notes:    cfg.Notes,
		Sections: []Section{},
	}

	for _, name := range cfg.sections() {
		s := Section{Name: name, Title: name.Title()}
		if err := g.run(ctx, ds, r.Metadata.Title, &s); err != nil {
			s.Error = err.Error()
			g.log.Warn("Report section failed", map[string]interface{}{
				"section": string(name),
				"error":   err.Error(),
			})
		}
		r.Sections = append(r.Sections, s)
	}

	g.log.Info("Report generated", map[string]interface{}{
		"title":    r.Metadata.Title,
		"sections": len(r.Sections),
		"rows":     ds.Rows(),
	})
	return r
}

func (g *Generator) run(ctx context.Context, ds *dataset.Dataset, title string, s *Section) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()

	switch s.Name {
	case SectionSummary:
		s.Summary, err = Summarize(ds)
	case SectionStatistics:
		s.Statistics = Describe(ds)
	case SectionCharts:
		s.Charts, err = AutoCharts(ds, g.builder)
	case SectionInsights:
		s.Insights = Insights(ds)
	case SectionNarrative:
		s.Narrative, err = g.narrate(ctx, ds, title)
	default:
		err = fmt.Errorf("unknown section %q", s.Name)
	}
	return err
}

func (g *Generator) narrate(ctx context.Context, ds *dataset.Dataset, title string) (string, error) {
	if g.narrator == nil {
		return "", ErrNarratorDisabled
	}
	summary, err := Summarize(ds)
	if err != nil {
		return "", err
	}
	return g.narrator.Narrate(ctx, NarrativeInput{
		Title:    title,
		Summary:  summary,
		Columns:  dataset.ColumnInfo(ds),
		Insights: Insights(ds),
	})
}
