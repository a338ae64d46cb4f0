package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"chartdeck/internal/chart"
	"chartdeck/internal/dataset"
)

// chartFile is the YAML layout accepted by `chartdeck chart --config`.
type chartFile struct {
	Title   string                    `yaml:"title"`
	Charts  []chart.Config            `yaml:"charts"`
	Filters map[string]dataset.Filter `yaml:"filters"`
}

type chartOptions struct {
	configPath    string
	output        string
	saveDashboard string
	single        chart.Config
}

func newChartCmd(g *globalOptions) *cobra.Command {
	opts := &chartOptions{}
	cmd := &cobra.Command{
		Use:   "chart <data-file>",
		Short: "Render charts from a data file into an HTML page",
		Long: `Render one or more charts against a CSV or Excel file.

Charts come either from a YAML file (title, charts, filters) or from the
--type/--x/--y flags for a single chart. With --save-dashboard the charts
are also saved as a dashboard.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChart(cmd, g, opts, args[0])
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "YAML file with title, charts and filters")
	f.StringVarP(&opts.output, "output", "o", "charts.html", `output file, "-" for stdout`)
	f.StringVar(&opts.saveDashboard, "save-dashboard", "", "save the charts as a dashboard with this name")
	f.StringVar((*string)(&opts.single.Type), "type", "", "chart type for a single chart")
	f.StringVar(&opts.single.XColumn, "x", "", "x column")
	f.StringVar(&opts.single.YColumn, "y", "", "y column")
	f.StringVar(&opts.single.ColorColumn, "color", "", "color column")
	f.StringVar(&opts.single.Title, "title", "", "chart title")
	return cmd
}

func (o *chartOptions) charts() (*chartFile, error) {
	if o.configPath != "" {
		var cf chartFile
		if err := readYAML(o.configPath, &cf); err != nil {
			return nil, err
		}
		if len(cf.Charts) == 0 {
			return nil, fmt.Errorf("%s: no charts defined", o.configPath)
		}
		return &cf, nil
	}
	if o.single.Type == "" {
		return nil, errors.New("either --config or --type is required")
	}
	return &chartFile{Title: o.single.Title, Charts: []chart.Config{o.single}}, nil
}

func runChart(cmd *cobra.Command, g *globalOptions, opts *chartOptions, dataPath string) error {
	cf, err := opts.charts()
	if err != nil {
		return err
	}
	ds, err := loadDataFile(dataPath)
	if err != nil {
		return err
	}
	a, err := g.loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	d := a.Dashboards.NewDefault()
	if cf.Title != "" {
		d.Metadata.Name = cf.Title
	}
	for name, f := range cf.Filters {
		d.Filters[name] = f
	}
	for _, c := range cf.Charts {
		d.AddChart(c, nil)
	}

	var buf bytes.Buffer
	renderErr := d.HTML(&buf, ds, a.Builder)
	if renderErr != nil && buf.Len() == 0 {
		return renderErr
	}

	stdout := func(b []byte) error {
		_, err := cmd.OutOrStdout().Write(b)
		return err
	}
	if err := writeOutput(opts.output, buf.Bytes(), stdout); err != nil {
		return err
	}
	status := cmd.OutOrStdout()
	if opts.output == "-" {
		status = cmd.ErrOrStderr()
	}
	failures := reportChartErrors(status, renderErr)
	if opts.output != "-" {
		fmt.Fprintf(status, "Wrote %d chart(s) to %s\n", len(d.Figures()), opts.output)
	}

	if opts.saveDashboard != "" {
		if err := a.Dashboards.Save(cmd.Context(), opts.saveDashboard, d); err != nil {
			return err
		}
		fmt.Fprintf(status, "Saved dashboard %s\n", colorBold.Sprint(opts.saveDashboard))
	}

	if failures > 0 {
		return &exitCodeError{code: ExitPartialFailure, msg: fmt.Sprintf("%d chart(s) failed", failures)}
	}
	return nil
}

// reportChartErrors prints one line per chart that did not render.
func reportChartErrors(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	var parts []error
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		parts = joined.Unwrap()
	} else {
		parts = []error{err}
	}
	for _, e := range parts {
		fmt.Fprintf(w, "  %s %v\n", colorRed.Sprint("✗"), e)
	}
	return len(parts)
}
