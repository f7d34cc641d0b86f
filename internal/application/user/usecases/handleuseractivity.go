package usecases

import (
	"context"

	userDomain "github.com/cityinfra/trafficcontrol/internal/domain/user"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/persistence/models"
	"github.com/cityinfra/trafficcontrol/internal/shared/biztime"
	"github.com/cityinfra/trafficcontrol/internal/shared/logger"
)

// HandleUserActivityUseCase clears the inactivity state of a user whose
// activity columns were written or who was switched back on.
type HandleUserActivityUseCase struct {
	users  UserStore
	now    Clock
	logger logger.Interface
}

func NewHandleUserActivityUseCase(users UserStore, logger logger.Interface) *HandleUserActivityUseCase {
	return &HandleUserActivityUseCase{users: users, now: biztime.NowUTC, logger: logger}
}

func (uc *HandleUserActivityUseCase) SetClock(now Clock) {
	uc.now = now
}

// Execute runs after u was saved with changed columns. A reactivation that
// did not write reactivated_at is stamped now, so a stamp from an earlier
// reactivation cannot push the user straight back into the warning stages.
func (uc *HandleUserActivityUseCase) Execute(ctx context.Context, u *models.UserModel, changed []string) error {
	r := userDomain.OnActivity(changed, u.IsActive)
	if !r.ClearStatus {
		return nil
	}
	if r.SetReactivatedAt {
		now := uc.now()
		if err := uc.users.UpdateFields(ctx, u, map[string]any{"reactivated_at": now}); err != nil {
			return err
		}
		u.ReactivatedAt = &now
	}

	if err := uc.users.DeleteDeactivationStatus(ctx, u.ID); err != nil {
		return err
	}
	uc.logger.Debugw("deactivation status cleared", "username", u.Username)
	return nil
}
