package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/cityinfra/trafficcontrol/internal/interfaces/cli/app"
	"github.com/cityinfra/trafficcontrol/internal/interfaces/cli/devices"
	"github.com/cityinfra/trafficcontrol/internal/interfaces/cli/migrate"
	"github.com/cityinfra/trafficcontrol/internal/interfaces/cli/plans"
	"github.com/cityinfra/trafficcontrol/internal/interfaces/cli/users"
	"github.com/cityinfra/trafficcontrol/internal/interfaces/cli/worker"
	"github.com/cityinfra/trafficcontrol/internal/interfaces/cli/zones"
	"github.com/cityinfra/trafficcontrol/internal/shared/version"
)

func main() {
	var flags app.Flags

	rootCmd := &cobra.Command{
		Use:          "cityinfra",
		Short:        "City infrastructure traffic control tools",
		Long:         `Batch commands and the scheduled worker for the traffic control device registry.`,
		Version:      version.String(),
		SilenceUsage: true,
	}
	flags.Bind(rootCmd)

	rootCmd.AddCommand(
		migrate.NewCommand(&flags),
		plans.NewImportCommand(&flags),
		plans.NewMatchCommand(&flags),
		zones.NewCommand(&flags),
		users.NewNotifyCommand(&flags),
		users.NewReportCommand(&flags),
		users.NewReactivateCommand(&flags),
		devices.NewCommand(&flags),
		worker.NewCommand(&flags),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
