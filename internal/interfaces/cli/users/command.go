// Package users holds the account maintenance commands.
package users

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	userApp "github.com/cityinfra/trafficcontrol/internal/application/user"
	"github.com/cityinfra/trafficcontrol/internal/application/user/dto"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/email"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/repository"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/template"
	"github.com/cityinfra/trafficcontrol/internal/interfaces/cli/app"
	apperrors "github.com/cityinfra/trafficcontrol/internal/shared/errors"
)

// NewService wires the user application service for a command or the worker.
func NewService(a *app.App) (*userApp.ServiceDDD, *repository.UserRepositoryImpl, error) {
	catalog, err := template.NewCatalog()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load mail templates: %w", err)
	}
	log := a.Logger.Named("users")
	users := repository.NewUserRepository(a.DB, log)
	svc := userApp.NewServiceDDD(
		users,
		email.NewSMTPSender(a.Config.Email, log),
		catalog,
		a.Tx,
		a.Config.Inactivity,
		log,
	)
	return svc, users, nil
}

func NewNotifyCommand(flags *app.Flags) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "notify-inactive-users",
		Short: "Warn inactive users and deactivate expired accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.Init(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			svc, _, err := NewService(a)
			if err != nil {
				return err
			}

			var summary *dto.NotifySummary
			err = a.Exclusive(cmd.Context(), "inactivity-notify", time.Hour, func(ctx context.Context) error {
				summary, err = svc.NotifyInactiveUsers(ctx, dryRun)
				return err
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if summary.DryRun {
				fmt.Fprintln(out, "DRY RUN: no emails sent and no accounts changed")
			}
			fmt.Fprintf(out, "Processed:   %d\n", summary.Processed)
			fmt.Fprintf(out, "Notified:    %d\n", summary.Notified)
			fmt.Fprintf(out, "Deactivated: %d\n", summary.Deactivated)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would happen without sending or writing")
	return cmd
}

func NewReportCommand(flags *app.Flags) *cobra.Command {
	var req dto.ReportRequest

	cmd := &cobra.Command{
		Use:   "report-deactivated-users",
		Short: "Mail admins the accounts deactivated in a month",
		Long: `Send the administrators a list of the accounts deactivated during one
business month. Defaults to the previous month. Nothing is sent when no
account was deactivated.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.Init(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			svc, _, err := NewService(a)
			if err != nil {
				return err
			}

			res, err := svc.ReportDeactivatedUsers(cmd.Context(), req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Month:      %d/%d\n", int(res.Month), res.Year)
			fmt.Fprintf(out, "Users:      %d\n", res.Users)
			fmt.Fprintf(out, "Recipients: %d\n", res.Recipients)
			fmt.Fprintf(out, "Sent:       %t\n", res.Sent)
			return nil
		},
	}

	cmd.Flags().IntVar(&req.Month, "month", 0, "Month to report, 1-12 (default: previous month)")
	cmd.Flags().IntVar(&req.Year, "year", 0, "Year of the month (default: current year)")
	cmd.Flags().BoolVar(&req.DryRun, "dry-run", false, "Build the report without sending it")
	return cmd
}

func NewReactivateCommand(flags *app.Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "reactivate-user USERNAME",
		Short: "Reactivate a deactivated account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.Init(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			svc, users, err := NewService(a)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			u, err := users.GetByUsername(ctx, args[0])
			if err != nil {
				return err
			}
			if u == nil {
				return apperrors.New(apperrors.KindNotFound, "user not found", args[0])
			}
			if err := svc.Reactivate(ctx, u); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %s is active\n", u.Username)
			return nil
		},
	}
}
