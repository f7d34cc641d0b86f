package deviceio

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cityinfra/trafficcontrol/internal/application/audit"
	"github.com/cityinfra/trafficcontrol/internal/application/device/usecases"
	"github.com/cityinfra/trafficcontrol/internal/application/permission"
	"github.com/cityinfra/trafficcontrol/internal/domain/device"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/persistence/models"
	apperrors "github.com/cityinfra/trafficcontrol/internal/shared/errors"
)

// PlanRows is the plan storage the codec reads from.
type PlanRows[PP any] interface {
	Active(ctx context.Context) ([]PP, error)
	ActiveNow(ctx context.Context, now time.Time) ([]PP, error)
	GetByID(ctx context.Context, id uuid.UUID) (PP, error)
	Replaces(ctx context.Context, id uuid.UUID) (*uuid.UUID, error)
}

// PlanWriter is the lifecycle service of one family.
type PlanWriter[PP any] interface {
	Create(ctx context.Context, u *models.UserModel, row PP, replaces *uuid.UUID) error
	Update(ctx context.Context, u *models.UserModel, row PP, replaces usecases.ReplacesField) error
}

// planStore routes plan writes through the lifecycle service so replaces
// cells take part in the replacement chain.
type planStore[P any] struct {
	rows   PlanRows[*P]
	writer PlanWriter[*P]
	common func(*P) *models.DeviceCommon
}

func (s *planStore[P]) List(ctx context.Context) ([]*P, error) { return s.rows.Active(ctx) }

// InEffect leaves out plans that have been replaced.
func (s *planStore[P]) InEffect(ctx context.Context, at time.Time) ([]*P, error) {
	return s.rows.ActiveNow(ctx, at)
}

func (s *planStore[P]) Get(ctx context.Context, id uuid.UUID) (*P, error) {
	row, err := s.rows.GetByID(ctx, id)
	if err != nil || row == nil || !s.common(row).IsActive {
		return nil, err
	}
	return row, nil
}

func (s *planStore[P]) Create(ctx context.Context, u *models.UserModel, row *P, replaces *uuid.UUID) error {
	return s.writer.Create(ctx, u, row, replaces)
}

func (s *planStore[P]) Update(ctx context.Context, u *models.UserModel, row *P, replaces usecases.ReplacesField) error {
	return s.writer.Update(ctx, u, row, replaces)
}

func (s *planStore[P]) Replaces(ctx context.Context, id uuid.UUID) (*uuid.UUID, error) {
	return s.rows.Replaces(ctx, id)
}

// RealRows is the real storage of one family.
type RealRows[RP any] interface {
	Active(ctx context.Context) ([]RP, error)
	GetByID(ctx context.Context, id uuid.UUID) (RP, error)
	Create(ctx context.Context, row RP) error
	Save(ctx context.Context, row RP) error
}

// realStore writes reals directly, applying the same permission and audit
// steps the lifecycle service applies to plans.
type realStore[R any] struct {
	rows   RealRows[*R]
	object string
	common func(*R) *models.DeviceCommon
	authz  usecases.Authorizer
	bounds usecases.BoundsChecker
	audit  AuditRecorder
}

func (s *realStore[R]) List(ctx context.Context) ([]*R, error) { return s.rows.Active(ctx) }

func (s *realStore[R]) InEffect(ctx context.Context, at time.Time) ([]*R, error) {
	rows, err := s.rows.Active(ctx)
	if err != nil {
		return nil, err
	}
	out := rows[:0]
	for _, r := range rows {
		c := s.common(r)
		if device.IsInEffect(c.Lifecycle, c.ValidityPeriodStart, c.ValidityPeriodEnd, at) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *realStore[R]) Get(ctx context.Context, id uuid.UUID) (*R, error) {
	row, err := s.rows.GetByID(ctx, id)
	if err != nil || row == nil || !s.common(row).IsActive {
		return nil, err
	}
	return row, nil
}

func (s *realStore[R]) checkLocation(row *R) error {
	loc := s.common(row).Location
	if loc.IsZero() {
		return apperrors.New(apperrors.KindMissingRequiredField, "location is required", "location")
	}
	if !s.bounds.WithinProjectionBounds(loc) {
		return apperrors.New(apperrors.KindGeometryOutOfBounds, "Geometry is outside valid projection boundaries", loc.String())
	}
	return nil
}

func (s *realStore[R]) authorize(ctx context.Context, u *models.UserModel, action string, row *R) error {
	if s.authz == nil || u == nil {
		return nil
	}
	c := s.common(row)
	return s.authz.AuthorizeMutation(ctx, u, s.object, action, c.Location, c.ResponsibleEntityID)
}

func (s *realStore[R]) Create(ctx context.Context, u *models.UserModel, row *R, _ *uuid.UUID) error {
	if err := s.checkLocation(row); err != nil {
		return err
	}
	if err := s.authorize(ctx, u, permission.ActionCreate, row); err != nil {
		return err
	}
	c := s.common(row)
	if c.Lifecycle == 0 {
		c.Lifecycle = device.LifecycleActive
	}
	c.IsActive = true
	c.CreatedByID, c.UpdatedByID = actor(u), actor(u)
	if err := s.rows.Create(ctx, row); err != nil {
		return err
	}
	return s.record(ctx, u, audit.ActionCreate, c.ID, nil, row)
}

func (s *realStore[R]) Update(ctx context.Context, u *models.UserModel, row *R, _ usecases.ReplacesField) error {
	if err := s.checkLocation(row); err != nil {
		return err
	}
	c := s.common(row)
	before, err := s.rows.GetByID(ctx, c.ID)
	if err != nil {
		return err
	}
	if before == nil {
		return apperrors.New(apperrors.KindNotFound, s.object+" not found", c.ID.String())
	}
	if err := s.authorize(ctx, u, permission.ActionUpdate, before); err != nil {
		return err
	}
	if err := s.authorize(ctx, u, permission.ActionUpdate, row); err != nil {
		return err
	}

	prev := s.common(before)
	c.CreatedAt, c.CreatedByID = prev.CreatedAt, prev.CreatedByID
	c.IsActive, c.DeletedAt, c.DeletedByID = prev.IsActive, prev.DeletedAt, prev.DeletedByID
	c.UpdatedByID = actor(u)
	if err := s.rows.Save(ctx, row); err != nil {
		return err
	}
	return s.record(ctx, u, audit.ActionUpdate, c.ID, before, row)
}

func (s *realStore[R]) record(ctx context.Context, u *models.UserModel, action audit.Action, id uuid.UUID, before, after any) error {
	if s.audit == nil {
		return nil
	}
	return s.audit.Record(ctx, audit.Entry{
		Actor:      actor(u),
		Action:     action,
		ObjectType: s.object,
		ObjectID:   id.String(),
		Before:     before,
		After:      after,
	})
}

// existsIn turns a nil-when-missing getter into an existence check. A nil
// getter disables the check.
func existsIn[M any](get func(context.Context, uuid.UUID) (*M, error)) func(context.Context, uuid.UUID) (bool, error) {
	if get == nil {
		return nil
	}
	return func(ctx context.Context, id uuid.UUID) (bool, error) {
		m, err := get(ctx, id)
		return m != nil, err
	}
}
