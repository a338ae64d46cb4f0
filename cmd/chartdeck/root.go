package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"chartdeck/internal/app"
	"chartdeck/internal/config"
	"chartdeck/internal/logger"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	noColor       bool
	verbose       bool
	storageRoot   string
	dashboardsDir string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:   "chartdeck",
		Short: "Build charts, dashboards and data reports from tabular files",
		Long: `chartdeck turns CSV and Excel files into interactive charts, dashboards
saved as JSON documents, and self-contained HTML data reports.

The same dashboards directory is shared with the chartdeck HTTP service;
storage settings are read from the environment (STORAGE_BACKEND,
STORAGE_ROOT, DASHBOARDS_DIR, GCS_BUCKET) and can be overridden by flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if opts.noColor {
				color.NoColor = true
			}
			if opts.verbose {
				logger.GetGlobalLogger().SetLevel(logger.DEBUG)
			} else {
				logger.GetGlobalLogger().SetLevel(logger.WARN)
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVar(&opts.storageRoot, "storage-root", "", "root directory of local storage (overrides STORAGE_ROOT)")
	flags.StringVar(&opts.dashboardsDir, "dashboards-dir", "", "dashboards directory inside storage (overrides DASHBOARDS_DIR)")

	cmd.AddCommand(newReportCmd(opts))
	cmd.AddCommand(newChartCmd(opts))
	cmd.AddCommand(newDashboardsCmd(opts))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// loadApp reads configuration, applies flag overrides and builds the
// components. The caller closes the result.
func (o *globalOptions) loadApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	if o.storageRoot != "" {
		cfg.StorageRoot = o.storageRoot
	}
	if o.dashboardsDir != "" {
		cfg.DashboardsDir = o.dashboardsDir
	}
	return app.New(ctx, cfg)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "chartdeck "+config.GetVersion())
		},
	}
}
