package usecases

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cityinfra/trafficcontrol/internal/infrastructure/email"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/persistence/models"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/repository"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/template"
)

// UserStore is the persistence the inactivity use cases need.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.UserModel, error)
	ListActive(ctx context.Context) ([]*models.UserModel, error)
	UpdateFields(ctx context.Context, u *models.UserModel, fields map[string]any) error
	AdminEmails(ctx context.Context, limit int) ([]string, error)
	GetDeactivationStatus(ctx context.Context, userID uuid.UUID) (*models.UserDeactivationStatusModel, error)
	SaveDeactivationStatus(ctx context.Context, s *models.UserDeactivationStatusModel) error
	DeleteDeactivationStatus(ctx context.Context, userID uuid.UUID) error
	DeactivatedBetween(ctx context.Context, from, to time.Time) ([]repository.DeactivatedUser, error)
}

// Mailer delivers one message and returns the number of recipients.
type Mailer interface {
	Send(ctx context.Context, msg email.Message) (int, error)
}

// Renderer produces a localized mail from a named template.
type Renderer interface {
	Render(name, preferred string, data any) (template.Rendered, error)
}

type Transactor interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Clock returns the current time. Tests pin it.
type Clock func() time.Time
