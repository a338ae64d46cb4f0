package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"chartdeck/internal/app"
	"chartdeck/internal/dashboard"
)

func newDashboardsCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "dashboards",
		Aliases: []string{"dashboard"},
		Short:   "Manage saved dashboards",
		Long: `Commands for listing, inspecting, copying, exporting and importing the
dashboards saved by the chartdeck service.`,
	}
	cmd.AddCommand(
		newDashboardsListCmd(g),
		newDashboardsInfoCmd(g),
		newDashboardsDeleteCmd(g),
		newDashboardsDuplicateCmd(g),
		newDashboardsExportCmd(g),
		newDashboardsImportCmd(g),
		newDashboardsRenderCmd(g),
	)
	return cmd
}

// withApp runs fn with components built from the configuration.
func withApp(cmd *cobra.Command, g *globalOptions, fn func(*app.App) error) error {
	a, err := g.loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func newDashboardsListCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved dashboards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, g, func(a *app.App) error {
				names, err := a.Dashboards.List(cmd.Context())
				if err != nil {
					return err
				}
				if len(names) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No dashboards saved.")
					return nil
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, colorBold.Sprint("NAME")+"\t"+colorBold.Sprint("CHARTS")+"\t"+colorBold.Sprint("LAST MODIFIED"))
				for _, name := range names {
					info, err := a.Dashboards.Info(cmd.Context(), name)
					if err != nil {
						fmt.Fprintf(tw, "%s\t%s\t\n", name, colorRed.Sprint("unreadable"))
						continue
					}
					fmt.Fprintf(tw, "%s\t%d\t%s\n", name, info.ChartCount, info.Metadata.LastModified.Format("2006-01-02 15:04:05"))
				}
				return tw.Flush()
			})
		},
	}
}

func newDashboardsInfoCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info <name>",
		Short: "Show details of a saved dashboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, func(a *app.App) error {
				info, err := a.Dashboards.Info(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				colorBold.Fprintf(w, "%s\n", info.Name)
				fmt.Fprintf(w, "  Charts:        %d\n", info.ChartCount)
				fmt.Fprintf(w, "  Filters:       %t\n", info.HasFilters)
				fmt.Fprintf(w, "  Created:       %s\n", info.Metadata.CreatedAt.Format("2006-01-02 15:04:05"))
				fmt.Fprintf(w, "  Last modified: %s\n", info.Metadata.LastModified.Format("2006-01-02 15:04:05"))
				fmt.Fprintf(w, "  Version:       %s\n", info.Metadata.Version)
				if info.Metadata.Description != "" {
					fmt.Fprintf(w, "  Description:   %s\n", info.Metadata.Description)
				}
				return nil
			})
		},
	}
}

func newDashboardsDeleteCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a saved dashboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, func(a *app.App) error {
				ok, err := a.Dashboards.Delete(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%w: %s", dashboard.ErrNotFound, args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func newDashboardsDuplicateCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "duplicate <source> <target>",
		Short: "Copy a saved dashboard under a new name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, func(a *app.App) error {
				ok, err := a.Dashboards.Duplicate(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%w: %s", dashboard.ErrNotFound, args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Copied %s to %s\n", args[0], args[1])
				return nil
			})
		},
	}
}

func newDashboardsExportCmd(g *globalOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export <name>",
		Short: "Write a saved dashboard as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, func(a *app.App) error {
				data, err := a.Dashboards.Export(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return writeOutput(output, append(data, '\n'), func(b []byte) error {
					_, err := cmd.OutOrStdout().Write(b)
					return err
				})
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "-", `output file, "-" for stdout`)
	return cmd
}

func newDashboardsImportCmd(g *globalOptions) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a dashboard JSON document",
		Long: `Import a dashboard JSON document. The name defaults to the file name
without its extension.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer f.Close()
			return withApp(cmd, g, func(a *app.App) error {
				d, err := a.Dashboards.Import(cmd.Context(), f, name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %s (%d charts)\n", colorBold.Sprint(name), len(d.Charts))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "dashboard name")
	return cmd
}

func newDashboardsRenderCmd(g *globalOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "render <name> <data-file>",
		Short: "Render a saved dashboard against a data file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := loadDataFile(args[1])
			if err != nil {
				return err
			}
			return withApp(cmd, g, func(a *app.App) error {
				d, err := a.Dashboards.Load(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				var buf bytes.Buffer
				renderErr := d.HTML(&buf, ds, a.Builder)
				if renderErr != nil && buf.Len() == 0 {
					return renderErr
				}
				if err := writeOutput(output, buf.Bytes(), func(b []byte) error {
					_, err := cmd.OutOrStdout().Write(b)
					return err
				}); err != nil {
					return err
				}
				if n := reportChartErrors(cmd.ErrOrStderr(), renderErr); n > 0 {
					return &exitCodeError{code: ExitPartialFailure, msg: fmt.Sprintf("%d chart(s) failed", n)}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "dashboard.html", `output file, "-" for stdout`)
	return cmd
}
