package zones

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cityinfra/trafficcontrol/internal/application/zoneenrich"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/repository"
	"github.com/cityinfra/trafficcontrol/internal/interfaces/cli/app"
)

func NewCommand(flags *app.Flags) *cobra.Command {
	var opts zoneenrich.Options

	cmd := &cobra.Command{
		Use:   "enrich-parking-zones",
		Short: "Rewrite parking zone additional sign texts",
		Long: `Parse the free text of parking zone additional signs and rewrite it in
the bilingual form. Without --update only the reports are produced.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.Init(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			sink, err := a.ReportSink(ctx)
			if err != nil {
				return err
			}

			enricher := zoneenrich.NewEnricher(
				repository.NewAdditionalSignRepository(a.DB),
				a.Tx,
				sink,
				repository.NewRunLogRepository(a.DB),
				a.Config.Server.AdminBaseURL,
				a.Logger.Named("zoneenrich"),
			)

			var report *zoneenrich.Report
			err = a.Exclusive(ctx, "enrich-parking-zones", 30*time.Minute, func(ctx context.Context) error {
				report, err = enricher.Run(ctx, opts)
				return err
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !opts.Update {
				fmt.Fprintln(out, "DRY RUN: pass --update to write the texts")
			}
			fmt.Fprintf(out, "Updates: %d\n", len(report.Updates))
			fmt.Fprintf(out, "Errors:  %d\n", len(report.Errors))
			for _, f := range report.Files {
				fmt.Fprintf(out, "Report:  %s\n", f)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "Write the rewritten texts to the database")
	cmd.Flags().BoolVar(&opts.IncludeAll, "include-all", false, "Also process signs whose text was already rewritten")
	cmd.Flags().StringVar(&opts.OutputDir, "output-dir", "parking_zone_update_results", "Directory for the result reports")

	return cmd
}

