package user

import (
	"context"

	"github.com/cityinfra/trafficcontrol/internal/application/user/dto"
	"github.com/cityinfra/trafficcontrol/internal/application/user/usecases"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/persistence/models"
	"github.com/cityinfra/trafficcontrol/internal/shared/config"
	"github.com/cityinfra/trafficcontrol/internal/shared/logger"
)

// ServiceDDD groups the account lifecycle use cases behind one facade.
type ServiceDDD struct {
	notifyUC   *usecases.NotifyInactiveUsersUseCase
	reportUC   *usecases.ReportDeactivatedUsersUseCase
	activityUC *usecases.HandleUserActivityUseCase
	users      usecases.UserStore
	logger     logger.Interface
}

func NewServiceDDD(
	users usecases.UserStore,
	mailer usecases.Mailer,
	renderer usecases.Renderer,
	tx usecases.Transactor,
	cfg config.InactivityConfig,
	logger logger.Interface,
) *ServiceDDD {
	return &ServiceDDD{
		notifyUC:   usecases.NewNotifyInactiveUsersUseCase(users, mailer, renderer, tx, cfg, logger),
		reportUC:   usecases.NewReportDeactivatedUsersUseCase(users, mailer, renderer, logger),
		activityUC: usecases.NewHandleUserActivityUseCase(users, logger),
		users:      users,
		logger:     logger,
	}
}

func (s *ServiceDDD) NotifyInactiveUsers(ctx context.Context, dryRun bool) (*dto.NotifySummary, error) {
	return s.notifyUC.Execute(ctx, dryRun)
}

func (s *ServiceDDD) ReportDeactivatedUsers(ctx context.Context, req dto.ReportRequest) (*dto.ReportResult, error) {
	return s.reportUC.Execute(ctx, req)
}

// RecordActivity must be called after a user row was saved with the given
// changed columns.
func (s *ServiceDDD) RecordActivity(ctx context.Context, u *models.UserModel, changed []string) error {
	return s.activityUC.Execute(ctx, u, changed)
}

// Reactivate switches an account back on and clears its inactivity state.
func (s *ServiceDDD) Reactivate(ctx context.Context, u *models.UserModel) error {
	if u.IsActive {
		return nil
	}
	if err := s.users.UpdateFields(ctx, u, map[string]any{"is_active": true}); err != nil {
		return err
	}
	u.IsActive = true
	s.logger.Infow("user reactivated", "username", u.Username)
	return s.activityUC.Execute(ctx, u, []string{"is_active"})
}
