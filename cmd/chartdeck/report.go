package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"chartdeck/internal/report"
)

var (
	colorRed    = color.New(color.FgRed)
	colorYellow = color.New(color.FgYellow)
	colorGreen  = color.New(color.FgGreen)
	colorBold   = color.New(color.Bold)
)

type reportOptions struct {
	configPath string
	title      string
	sections   []string
	output     string
	jsonOut    bool
	pngDir     string
}

func newReportCmd(g *globalOptions) *cobra.Command {
	opts := &reportOptions{}
	cmd := &cobra.Command{
		Use:   "report <data-file>",
		Short: "Generate an HTML data report",
		Long: `Generate a data report for a CSV or Excel file.

Sections default to summary, statistics and charts. The narrative section
needs OPENAI_API_KEY. A YAML config may set title, sections and notes;
flags override it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, g, opts, args[0])
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "YAML report configuration")
	f.StringVar(&opts.title, "title", "", "report title")
	f.StringSliceVar(&opts.sections, "sections", nil, "sections to generate (summary,statistics,charts,insights,narrative)")
	f.StringVarP(&opts.output, "output", "o", "report.html", `output file, "-" for stdout`)
	f.BoolVar(&opts.jsonOut, "json", false, "write the report as JSON instead of HTML")
	f.StringVar(&opts.pngDir, "png-dir", "", "also write report charts as PNG files into this directory")
	return cmd
}

func runReport(cmd *cobra.Command, g *globalOptions, opts *reportOptions, dataPath string) error {
	var cfg report.Config
	if opts.configPath != "" {
		if err := readYAML(opts.configPath, &cfg); err != nil {
			return err
		}
	}
	if opts.title != "" {
		cfg.Title = opts.title
	}
	if len(opts.sections) > 0 {
		cfg.Sections = make([]report.SectionName, len(opts.sections))
		for i, s := range opts.sections {
			cfg.Sections[i] = report.SectionName(strings.TrimSpace(s))
		}
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

	r := a.Generator.Generate(cmd.Context(), ds, cfg)

	var out []byte
	if opts.jsonOut {
		out, err = json.MarshalIndent(r, "", "  ")
	} else {
		var buf bytes.Buffer
		err = report.RenderHTML(&buf, r)
		out = buf.Bytes()
	}
	if err != nil {
		return err
	}
	stdout := func(b []byte) error {
		_, err := cmd.OutOrStdout().Write(b)
		return err
	}
	if err := writeOutput(opts.output, out, stdout); err != nil {
		return err
	}

	// status lines go to stderr when the report itself is on stdout
	status := cmd.OutOrStdout()
	if opts.output == "-" {
		status = cmd.ErrOrStderr()
	}

	if opts.pngDir != "" {
		if err := writeChartPNGs(status, opts.pngDir, r.Charts()); err != nil {
			return err
		}
	}

	failed := printReportSummary(status, r)
	if opts.output != "-" {
		fmt.Fprintf(status, "Report written to %s\n", opts.output)
	}
	if failed > 0 {
		return &exitCodeError{code: ExitPartialFailure, msg: fmt.Sprintf("%d section(s) failed", failed)}
	}
	return nil
}

// printReportSummary lists each section and the insights, returning the
// number of failed sections.
func printReportSummary(w io.Writer, r *report.Report) int {
	failed := 0
	colorBold.Fprintf(w, "%s\n", r.Metadata.Title)
	fmt.Fprintf(w, "  %d rows × %d columns\n", r.Metadata.DataShape[0], r.Metadata.DataShape[1])
	for _, s := range r.Sections {
		if s.Failed() {
			failed++
			fmt.Fprintf(w, "  %s %s: %s\n", colorRed.Sprint("✗"), s.Title, s.Error)
			continue
		}
		fmt.Fprintf(w, "  %s %s\n", colorGreen.Sprint("✓"), s.Title)
		for _, in := range s.Insights {
			fmt.Fprintf(w, "      %s %s\n", severityLabel(in.Severity), in.Description)
		}
	}
	return failed
}

func severityLabel(s report.Severity) string {
	label := "[" + strings.ToUpper(string(s)) + "]"
	switch s {
	case report.SeverityError:
		return colorRed.Sprint(label)
	case report.SeverityWarning:
		return colorYellow.Sprint(label)
	default:
		return label
	}
}

func writeChartPNGs(w io.Writer, dir string, charts []report.Chart) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	for i, c := range charts {
		var buf bytes.Buffer
		if err := report.RenderChartPNG(c, &buf); err != nil {
			fmt.Fprintf(w, "  %s chart %d (%s): %v\n", colorYellow.Sprint("skipped"), i, c.Title, err)
			continue
		}
		name := filepath.Join(dir, fmt.Sprintf("chart_%02d_%s.png", i+1, c.Type))
		if err := os.WriteFile(name, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}
