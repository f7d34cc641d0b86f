// Package worker runs the scheduled jobs until interrupted.
package worker

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cityinfra/trafficcontrol/internal/application/user/dto"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/permission"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/scheduler"
	"github.com/cityinfra/trafficcontrol/internal/interfaces/cli/app"
	"github.com/cityinfra/trafficcontrol/internal/interfaces/cli/users"
)

const (
	jobGroupSync  = "permission-group-sync"
	groupSyncCron = "*/15 * * * *"
)

func NewCommand(flags *app.Flags) *cobra.Command {
	var runNow bool

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the scheduled user maintenance jobs",
		Long: `Run the daily inactivity pass, the monthly deactivation report and the
permission group sync on their cron schedules. With Redis configured only one
worker runs a given job at a time.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.Init(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			log := a.Logger.Named("worker")
			svc, _, err := users.NewService(a)
			if err != nil {
				return err
			}
			enforcer, err := permission.NewEnforcer(a.DB, a.Config.Permission.ModelPath, log)
			if err != nil {
				return err
			}
			groupSync := scheduler.BatchJobFunc(permission.NewGroupSync(a.DB, enforcer, log).SyncAll)

			notify := scheduler.BatchJobFunc(func(ctx context.Context) (int, error) {
				s, err := svc.NotifyInactiveUsers(ctx, false)
				if err != nil {
					return 0, err
				}
				return s.Processed, nil
			})
			report := scheduler.BatchJobFunc(func(ctx context.Context) (int, error) {
				r, err := svc.ReportDeactivatedUsers(ctx, dto.ReportRequest{})
				if err != nil {
					return 0, err
				}
				return r.Users, nil
			})

			manager, err := scheduler.NewSchedulerManager(a.RunLock(), log)
			if err != nil {
				return fmt.Errorf("failed to create scheduler: %w", err)
			}
			cfg := a.Config.Inactivity
			if err := manager.RegisterUserJobs(cfg.NotifyCron, cfg.ReportCron, notify, report); err != nil {
				return fmt.Errorf("failed to register user jobs: %w", err)
			}
			if err := manager.RegisterCronJob(jobGroupSync, groupSyncCron, 5*time.Minute, groupSync); err != nil {
				return fmt.Errorf("failed to register group sync: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			manager.RunNow(ctx, jobGroupSync, groupSync)
			if runNow {
				manager.RunNow(ctx, scheduler.JobInactivityNotify, notify)
			}

			manager.Start()
			log.Infow("worker started")
			<-ctx.Done()

			log.Infow("shutting down worker...")
			return manager.Stop()
		},
	}

	cmd.Flags().BoolVar(&runNow, "run-now", false, "Run the inactivity pass once before waiting for the schedule")
	return cmd
}
