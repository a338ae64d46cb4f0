// Package dashboard persists named dashboards as JSON documents.
package dashboard

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"chartdeck/internal/chart"
	"chartdeck/internal/dataset"
)

const (
	// FormatVersion is written into every saved dashboard.
	FormatVersion = "1.0"
	// DefaultName names a freshly created dashboard.
	DefaultName = "New Dashboard"
)

// Layout is the grid the charts are arranged on.
type Layout struct {
	Type string `json:"type"`
	Rows int    `json:"rows"`
	Cols int    `json:"cols"`
	Gap  int    `json:"gap"`
}

// DefaultLayout is a 3x2 grid with a 10px gap.
var DefaultLayout = Layout{Type: "grid", Rows: 3, Cols: 2, Gap: 10}

// ChartEntry is one chart of a dashboard. Figure is rebuilt from Config
// against the current dataset and never persisted.
type ChartEntry struct {
	ID     string        `json:"id"`
	Type   chart.Type    `json:"type"`
	Config chart.Config  `json:"config"`
	Figure *chart.Figure `json:"-"`
}

// Metadata describes a saved dashboard.
type Metadata struct {
	Name         string    `json:"name"`
	CreatedAt    Timestamp `json:"created_at"`
	LastModified Timestamp `json:"last_modified"`
	Version      string    `json:"version"`
	Description  string    `json:"description,omitempty"`
}

// Dashboard is the persisted document.
type Dashboard struct {
	Layout   Layout                    `json:"layout"`
	Charts   []ChartEntry              `json:"charts"`
	Filters  map[string]dataset.Filter `json:"filters"`
	Metadata Metadata                  `json:"metadata"`
}

// New returns an empty dashboard created at now.
func New(now time.Time) *Dashboard {
	ts := NewTimestamp(now)
	return &Dashboard{
		Layout:  DefaultLayout,
		Charts:  []ChartEntry{},
		Filters: map[string]dataset.Filter{},
		Metadata: Metadata{
			Name:         DefaultName,
			CreatedAt:    ts,
			LastModified: ts,
			Version:      FormatVersion,
		},
	}
}

// AddChart appends a chart built from cfg. The id is chart_<n> where n is
// the chart count after adding, so ids can repeat after removals.
func (d *Dashboard) AddChart(cfg chart.Config, fig *chart.Figure) ChartEntry {
	entry := ChartEntry{
		ID:     fmt.Sprintf("chart_%d", len(d.Charts)+1),
		Type:   cfg.Type,
		Config: cfg,
		Figure: fig,
	}
	d.Charts = append(d.Charts, entry)
	return entry
}

// RemoveChart drops the first chart with the given id.
func (d *Dashboard) RemoveChart(id string) bool {
	for i, c := range d.Charts {
		if c.ID == id {
			d.Charts = append(d.Charts[:i], d.Charts[i+1:]...)
			return true
		}
	}
	return false
}

// Chart returns the first chart with the given id.
func (d *Dashboard) Chart(id string) (*ChartEntry, bool) {
	for i := range d.Charts {
		if d.Charts[i].ID == id {
			return &d.Charts[i], true
		}
	}
	return nil, false
}

// Render applies the dashboard filters to ds and rebuilds every figure.
// Charts that no longer build keep a nil figure; their errors are joined.
func (d *Dashboard) Render(ds *dataset.Dataset, b *chart.Builder) error {
	filtered, err := dataset.ApplyFilters(ds, d.Filters)
	if err != nil {
		return fmt.Errorf("apply dashboard filters: %w", err)
	}

	var errs []error
	for i := range d.Charts {
		c := &d.Charts[i]
		fig, err := b.Build(filtered, c.Config)
		if err != nil {
			c.Figure = nil
			errs = append(errs, fmt.Errorf("%s: %w", c.ID, err))
			continue
		}
		c.Figure = fig
	}
	return errors.Join(errs...)
}

// Figures returns the rendered figures in chart order, skipping unbuilt ones.
func (d *Dashboard) Figures() []*chart.Figure {
	figs := make([]*chart.Figure, 0, len(d.Charts))
	for _, c := range d.Charts {
		if c.Figure != nil {
			figs = append(figs, c.Figure)
		}
	}
	return figs
}

// HTML renders the dashboard against ds as one page. Charts that fail to
// build are left out of the page and reported in the returned error.
func (d *Dashboard) HTML(w io.Writer, ds *dataset.Dataset, b *chart.Builder) error {
	renderErr := d.Render(ds, b)
	if err := chart.RenderPage(w, d.title(), d.Figures()...); err != nil {
		return err
	}
	return renderErr
}

func (d *Dashboard) title() string {
	if strings.TrimSpace(d.Metadata.Name) == "" {
		return DefaultName
	}
	return d.Metadata.Name
}
