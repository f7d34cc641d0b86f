package permission

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/cityinfra/trafficcontrol/internal/infrastructure/persistence/models"
	"github.com/cityinfra/trafficcontrol/internal/shared/logger"
)

// GroupSync mirrors user group memberships into casbin role assignments.
type GroupSync struct {
	db       *gorm.DB
	enforcer *Enforcer
	logger   logger.Interface
}

func NewGroupSync(db *gorm.DB, enforcer *Enforcer, logger logger.Interface) *GroupSync {
	return &GroupSync{db: db, enforcer: enforcer, logger: logger}
}

// SyncAll rewrites the roles of every active user.
func (s *GroupSync) SyncAll(ctx context.Context) (int, error) {
	var users []models.UserModel
	if err := s.db.WithContext(ctx).
		Preload("Groups").
		Where("is_active = ?", true).
		Find(&users).Error; err != nil {
		return 0, fmt.Errorf("failed to load users: %w", err)
	}

	for i := range users {
		if err := s.syncUser(&users[i]); err != nil {
			return i, err
		}
	}
	s.logger.Infow("user groups synced to casbin", "users", len(users))
	return len(users), nil
}

func (s *GroupSync) syncUser(u *models.UserModel) error {
	roles := make([]string, 0, len(u.Groups))
	for _, g := range u.Groups {
		roles = append(roles, g.Name)
	}
	if err := s.enforcer.replaceRoles(u.ID.String(), roles); err != nil {
		return fmt.Errorf("sync roles for %s: %w", u.Username, err)
	}
	return nil
}
