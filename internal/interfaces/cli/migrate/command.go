package migrate

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cityinfra/trafficcontrol/internal/infrastructure/migration"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/permission"
	"github.com/cityinfra/trafficcontrol/internal/interfaces/cli/app"
)

const scriptsRoot = "./internal/infrastructure/migration/scripts"

var (
	tool  string
	steps int
	name  string
)

func NewCommand(flags *app.Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tools",
		Long:  `Install the PostGIS extension scripts and bring every table up to date.`,
	}

	cmd.PersistentFlags().StringVar(&tool, "tool", migration.ToolGoose, "Script runner for postgres (goose, golang-migrate, auto)")

	cmd.AddCommand(
		newUpCommand(flags),
		newDownCommand(flags),
		newStatusCommand(flags),
		newCreateCommand(),
	)

	return cmd
}

func newUpCommand(flags *app.Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Run all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.Init(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			manager, err := migration.NewManager(a.DB, tool, scriptsRoot)
			if err != nil {
				return err
			}
			if err := manager.Migrate(a.DB); err != nil {
				return err
			}

			// casbin_rule exists only after the adapter has run once.
			enforcer, err := permission.NewEnforcer(a.DB, a.Config.Permission.ModelPath, a.Logger)
			if err != nil {
				return err
			}
			if err := permission.SeedDefaultPolicies(enforcer, a.Logger); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migrations applied with %s\n", manager.GetStrategy().GetName())
			return nil
		},
	}
}

func newDownCommand(flags *app.Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Rollback migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.Init(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			manager, err := migration.NewManager(a.DB, tool, scriptsRoot)
			if err != nil {
				return err
			}
			switch s := manager.GetStrategy().(type) {
			case *migration.GooseStrategy:
				return s.MigrateDown(a.DB, steps)
			case *migration.GolangMigrateStrategy:
				return s.MigrateDown(a.DB, steps)
			default:
				return fmt.Errorf("down migration is not supported with %s", s.GetName())
			}
		},
	}

	cmd.Flags().IntVarP(&steps, "steps", "n", 1, "Number of migrations to rollback")
	return cmd
}

func newStatusCommand(flags *app.Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.Init(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			manager, err := migration.NewManager(a.DB, tool, scriptsRoot)
			if err != nil {
				return err
			}
			s, ok := manager.GetStrategy().(*migration.GooseStrategy)
			if !ok {
				return fmt.Errorf("status check is only supported with goose strategy")
			}

			version, err := s.GetVersion(a.DB)
			if err != nil {
				return fmt.Errorf("failed to get migration version: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nMigration Status:\n")
			fmt.Fprintf(cmd.OutOrStdout(), "  Environment:     %s\n", flags.Env)
			fmt.Fprintf(cmd.OutOrStdout(), "  Current Version: %d\n", version)
			return s.Status(a.DB)
		},
	}
}

func newCreateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new goose migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := migration.NewGooseStrategy(filepath.Join(scriptsRoot, "goose"), "postgres")
			if err := s.Create(name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migration '%s' created\n", name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Name of the migration (required)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
