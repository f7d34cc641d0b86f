package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cityinfra/trafficcontrol/internal/infrastructure/persistence/models"
	"github.com/cityinfra/trafficcontrol/internal/shared/constants"
	"github.com/cityinfra/trafficcontrol/internal/shared/db"
	"github.com/cityinfra/trafficcontrol/internal/shared/logger"
)

type UserRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewUserRepository(gdb *gorm.DB, logger logger.Interface) *UserRepositoryImpl {
	return &UserRepositoryImpl{db: gdb, logger: logger}
}

func (r *UserRepositoryImpl) tx(ctx context.Context) *gorm.DB {
	return db.GetTxFromContext(ctx, r.db)
}

func (r *UserRepositoryImpl) Create(ctx context.Context, u *models.UserModel) error {
	if err := r.tx(ctx).Create(u).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *UserRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.UserModel, error) {
	return firstOrNil[models.UserModel](r.tx(ctx).Where("id = ?", id), "user")
}

func (r *UserRepositoryImpl) GetByUsername(ctx context.Context, username string) (*models.UserModel, error) {
	return firstOrNil[models.UserModel](r.tx(ctx).Where("username = ?", username), "user")
}

// UpdateFields writes the named columns of u.
func (r *UserRepositoryImpl) UpdateFields(ctx context.Context, u *models.UserModel, fields map[string]any) error {
	if err := r.tx(ctx).Model(u).Updates(fields).Error; err != nil {
		r.logger.Errorw("failed to update user", "user_id", u.ID, "error", err)
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// ListActive returns active users other than the anonymous placeholder.
func (r *UserRepositoryImpl) ListActive(ctx context.Context) ([]*models.UserModel, error) {
	var users []*models.UserModel
	err := r.tx(ctx).
		Where("is_active = ?", true).
		Where("username <> ?", constants.AnonymousUsername).
		Order("username").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active users: %w", err)
	}
	return users, nil
}

// AdminEmails returns up to limit addresses of active users who receive
// administrator notifications.
func (r *UserRepositoryImpl) AdminEmails(ctx context.Context, limit int) ([]string, error) {
	var emails []string
	err := r.tx(ctx).Model(&models.UserModel{}).
		Where("is_active = ? AND receives_admin_notification_emails = ?", true, true).
		Where("email <> ''").
		Order("email").
		Limit(limit).
		Pluck("email", &emails).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list admin emails: %w", err)
	}
	return emails, nil
}

func (r *UserRepositoryImpl) GetDeactivationStatus(ctx context.Context, userID uuid.UUID) (*models.UserDeactivationStatusModel, error) {
	var s models.UserDeactivationStatusModel
	if err := r.tx(ctx).Where("user_id = ?", userID).First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get deactivation status: %w", err)
	}
	return &s, nil
}

func (r *UserRepositoryImpl) SaveDeactivationStatus(ctx context.Context, s *models.UserDeactivationStatusModel) error {
	if err := r.tx(ctx).Save(s).Error; err != nil {
		return fmt.Errorf("failed to save deactivation status: %w", err)
	}
	return nil
}

func (r *UserRepositoryImpl) DeleteDeactivationStatus(ctx context.Context, userID uuid.UUID) error {
	if err := r.tx(ctx).Where("user_id = ?", userID).Delete(&models.UserDeactivationStatusModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete deactivation status: %w", err)
	}
	return nil
}

// DeactivatedUser is a row of the monthly deactivation report.
type DeactivatedUser struct {
	Username      string
	Email         string
	FirstName     string
	LastName      string
	DeactivatedAt time.Time
}

// DeactivatedBetween lists users deactivated in [from, to).
func (r *UserRepositoryImpl) DeactivatedBetween(ctx context.Context, from, to time.Time) ([]DeactivatedUser, error) {
	var rows []DeactivatedUser
	err := r.tx(ctx).Table(constants.TableUserDeactivationStatuses+" s").
		Select("u.username, u.email, u.first_name, u.last_name, s.deactivated_at").
		Joins("JOIN "+constants.TableUsers+" u ON u.id = s.user_id").
		Where("s.deactivated_at >= ? AND s.deactivated_at < ?", from, to).
		Order("s.deactivated_at").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list deactivated users: %w", err)
	}
	return rows, nil
}
