// Package plans holds the plan geometry import and the plan-to-real matcher
// commands.
package plans

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/cityinfra/trafficcontrol/internal/application/planimport"
	"github.com/cityinfra/trafficcontrol/internal/application/planmatch"
	"github.com/cityinfra/trafficcontrol/internal/domain/device"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/repository"
	"github.com/cityinfra/trafficcontrol/internal/interfaces/cli/app"
)

func NewImportCommand(flags *app.Flags) *cobra.Command {
	var opts planimport.Options

	cmd := &cobra.Command{
		Use:   "import-plan-geometries",
		Short: "Update plan locations from a CSV export",
		Long: `Read a CSV of diary numbers and WKT geometries, validate every row and
update the matching plans. Each rejected row is tagged and written to a
per-tag report.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.Init(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			f, err := os.Open(opts.FilePath)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", opts.FilePath, err)
			}
			defer f.Close()

			var sink planimport.ReportSink
			if !opts.NoCSV {
				if sink, err = a.ReportSink(ctx); err != nil {
					return err
				}
			}

			log := a.Logger.Named("planimport")
			importer := planimport.NewImporter(
				repository.NewPlanEnvelopeRepository(a.DB, log),
				a.Spatial,
				a.Tx,
				sink,
				repository.NewRunLogRepository(a.DB),
				a.Config.Spatial.ComparePrecision,
				log,
			)

			var report *planimport.Report
			err = a.Exclusive(ctx, "import-plan-geometries", time.Hour, func(ctx context.Context) error {
				report, err = importer.Import(ctx, f, opts)
				return err
			})
			if err != nil {
				return err
			}
			printImportSummary(cmd, report)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.FilePath, "file", "", "CSV file to import (required)")
	cmd.Flags().StringVar(&opts.OutputDir, "output-dir", "plan_geometry_import_results", "Directory for the result reports")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Validate and report without updating plans")
	cmd.Flags().BoolVar(&opts.NoCSV, "no-csv", false, "Skip writing the result reports")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func printImportSummary(cmd *cobra.Command, r *planimport.Report) {
	out := cmd.OutOrStdout()
	if r.DryRun {
		fmt.Fprintln(out, "DRY RUN: no plans were updated")
	}
	fmt.Fprintf(out, "Rows:    %d\n", r.Summary.TotalRows)
	fmt.Fprintf(out, "Updated: %d\n", r.Summary.Updated)
	fmt.Fprintf(out, "Skipped: %d\n", r.Skipped())
	fmt.Fprintf(out, "Errors:  %d\n", r.Summary.Errors)

	breakdown := r.Breakdown()
	tags := make([]string, 0, len(breakdown))
	for t := range breakdown {
		tags = append(tags, string(t))
	}
	sort.Strings(tags)
	for _, t := range tags {
		fmt.Fprintf(out, "  %-28s %d\n", t, breakdown[planimport.ResultType(t)])
	}
	for _, f := range r.Files {
		fmt.Fprintf(out, "Report: %s\n", f)
	}
}

func NewMatchCommand(flags *app.Flags) *cobra.Command {
	var (
		family string
		opts   planmatch.Options
	)

	cmd := &cobra.Command{
		Use:   "map-plans-to-reals",
		Short: "Link unplanned reals to the nearest unclaimed plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := device.ParseFamily(family)
			if err != nil {
				return err
			}
			opts.Family = f

			a, err := app.Init(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if !cmd.Flags().Changed("radius") {
				opts.Radius = a.Config.Spatial.MatchRadius
			}
			sink, err := a.ReportSink(ctx)
			if err != nil {
				return err
			}

			matcher := planmatch.NewMatcher(
				repository.NewMatchRepository(a.DB),
				a.Spatial,
				a.Tx,
				sink,
				repository.NewRunLogRepository(a.DB),
				a.Logger.Named("planmatch"),
			)

			var report *planmatch.Report
			err = a.Exclusive(ctx, "map-plans-to-reals:"+f.String(), time.Hour, func(ctx context.Context) error {
				report, err = matcher.Run(ctx, opts)
				return err
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if report.DryRun {
				fmt.Fprintln(out, "DRY RUN: pass --update to link the reals")
			}
			fmt.Fprintf(out, "Family:    %s\n", report.Family)
			fmt.Fprintf(out, "Passes:    %d\n", report.Passes)
			fmt.Fprintf(out, "Mapped:    %d\n", len(report.Mapped))
			fmt.Fprintf(out, "Skipped:   %d\n", len(report.Skipped))
			fmt.Fprintf(out, "Unmatched: %d\n", len(report.Unmatched))
			if report.File != "" {
				fmt.Fprintf(out, "Report:    %s\n", report.File)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&family, "family", "", fmt.Sprintf("Device family %v (required)", planmatch.SupportedFamilies))
	cmd.Flags().Float64Var(&opts.Radius, "radius", 2, "Match radius in meters")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "Write the links; without it the run is a dry run")
	cmd.Flags().StringVar(&opts.OutputDir, "output-dir", "plan_real_mapping_results", "Directory for the result report")
	_ = cmd.MarkFlagRequired("family")

	return cmd
}
