// Package report builds data reports from a dataset and renders them to HTML.
package report

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"time"
)

// SectionName identifies a report section.
type SectionName string

const (
	SectionSummary    SectionName = "summary"
	SectionStatistics SectionName = "statistics"
	SectionCharts     SectionName = "charts"
	SectionInsights   SectionName = "insights"
	SectionNarrative  SectionName = "narrative"
)

// DefaultTitle is used when a configuration has no title.
const DefaultTitle = "Data Analysis Report"

// DefaultSections are generated when a configuration names none.
var DefaultSections = []SectionName{SectionSummary, SectionStatistics, SectionCharts}

var sectionTitles = map[SectionName]string{
	SectionSummary:    "Data Summary",
	SectionStatistics: "Statistical Analysis",
	SectionCharts:     "Data Visualizations",
	SectionInsights:   "Key Insights",
	SectionNarrative:  "Analyst Narrative",
}

// Known reports whether n is a section the generator can produce.
func (n SectionName) Known() bool {
	_, ok := sectionTitles[n]
	return ok
}

// Title is the heading of the section.
func (n SectionName) Title() string {
	return sectionTitles[n]
}

var (
	// ErrEmptyDataset is the summary failure for a dataset without cells.
	ErrEmptyDataset = errors.New("dataset is empty")
	// ErrNarratorDisabled is the narrative failure when no narrator is configured.
	ErrNarratorDisabled = errors.New("narrative generation is not configured")
)

// Config selects what a report contains.
type Config struct {
	Title    string        `json:"title,omitempty" yaml:"title,omitempty"`
	Sections []SectionName `json:"sections,omitempty" yaml:"sections,omitempty"`
	Notes    string        `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// sections resolves the configured sections: defaults when none, unknown
// names dropped, duplicates collapsed in first-seen order.
func (c Config) sections() []SectionName {
	requested := c.Sections
	if len(requested) == 0 {
		requested = DefaultSections
	}
	seen := make(map[SectionName]bool, len(requested))
	out := make([]SectionName, 0, len(requested))
	for _, s := range requested {
		if !s.Known() || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func (c Config) title() string {
	if c.Title == "" {
		return DefaultTitle
	}
	return c.Title
}

// Metadata describes when and from what a report was generated.
type Metadata struct {
	GeneratedAt time.Time `json:"generated_at"`
	DataShape   [2]int    `json:"data_shape"`
	Title       string    `json:"title"`
}

// Section holds the content of one section, or the error that stopped it.
type Section struct {
	Name       SectionName `json:"name"`
	Title      string      `json:"title"`
	Error      string      `json:"error,omitempty"`
	Summary    *Summary    `json:"summary,omitempty"`
	Statistics *Statistics `json:"statistics,omitempty"`
	Charts     []Chart     `json:"charts,omitempty"`
	Insights   []Insight   `json:"insights,omitempty"`
	Narrative  string      `json:"narrative,omitempty"`
}

// Failed reports whether the section could not be generated.
func (s *Section) Failed() bool { return s.Error != "" }

// Report is the generated document.
type Report struct {
	Metadata Metadata  `json:"metadata"`
	Notes    string    `json:"notes,omitempty"`
	Sections []Section `json:"sections"`
}

// Section returns the named section if it was generated.
func (r *Report) Section(name SectionName) (*Section, bool) {
	for i := range r.Sections {
		if r.Sections[i].Name == name {
			return &r.Sections[i], true
		}
	}
	return nil, false
}

// Charts returns the charts of the charts section, if any.
func (r *Report) Charts() []Chart {
	s, ok := r.Section(SectionCharts)
	if !ok {
		return nil
	}
	return s.Charts
}

// Number is a float that encodes NaN and infinities as JSON null.
type Number float64

func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, f, 'g', -1, 64), nil
}

func (n *Number) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*n = Number(math.NaN())
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// Valid reports whether the number is finite.
func (n Number) Valid() bool {
	f := float64(n)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
