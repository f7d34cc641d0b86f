// Package usecases implements the plan lifecycle shared by every device
// family: create, update, replace, unreplace and soft delete, keeping the
// reals that point at a plan coherent with its replacement chain.
package usecases

import (
	"context"

	"github.com/google/uuid"

	"github.com/cityinfra/trafficcontrol/internal/application/audit"
	"github.com/cityinfra/trafficcontrol/internal/application/permission"
	"github.com/cityinfra/trafficcontrol/internal/domain/device"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/persistence/models"
	"github.com/cityinfra/trafficcontrol/internal/shared/biztime"
	apperrors "github.com/cityinfra/trafficcontrol/internal/shared/errors"
	"github.com/cityinfra/trafficcontrol/internal/shared/geo"
	"github.com/cityinfra/trafficcontrol/internal/shared/logger"
)

// PlanStore is the per-family plan storage the service works on.
type PlanStore[PP any] interface {
	Family() device.Family
	GetByID(ctx context.Context, id uuid.UUID) (PP, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (PP, error)
	Create(ctx context.Context, row PP) error
	Save(ctx context.Context, row PP) error
	ReplacedBy(ctx context.Context, id uuid.UUID) (*uuid.UUID, error)
	Replaces(ctx context.Context, id uuid.UUID) (*uuid.UUID, error)
	InsertEdge(ctx context.Context, oldID, newID uuid.UUID) error
	DeleteEdgesTo(ctx context.Context, id uuid.UUID) (int64, error)
	EdgeCount(ctx context.Context) (int64, error)
	RepointReals(ctx context.Context, from uuid.UUID, to *uuid.UUID, actor *uuid.UUID) (int64, error)
}

type Transactor interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type AuditRecorder interface {
	Record(ctx context.Context, e audit.Entry) error
}

// Authorizer gates a mutation on one device.
type Authorizer interface {
	AuthorizeMutation(ctx context.Context, u *models.UserModel, object, action string, location geo.Geometry, entityID *uuid.UUID) error
}

// BoundsChecker reports whether a geometry lies inside the projection's
// valid area.
type BoundsChecker interface {
	WithinProjectionBounds(g geo.Geometry) bool
}

// ReplacesField carries the optional "replaces" input of an update. Set
// false leaves the chain alone; Set with a nil ID unreplaces.
type ReplacesField struct {
	Set bool
	ID  *uuid.UUID
}

// LifecycleService is generic over the plan row of one family.
type LifecycleService[P any, PP interface {
	*P
	models.PlanRecord
}] struct {
	family device.Family
	plans  PlanStore[PP]
	tx     Transactor
	audit  AuditRecorder
	authz  Authorizer
	bounds BoundsChecker
	logger logger.Interface
}

// NewLifecycleService builds the service. A nil authz skips permission
// checks, which batch commands running as the system rely on.
func NewLifecycleService[P any, PP interface {
	*P
	models.PlanRecord
}](plans PlanStore[PP], tx Transactor, recorder AuditRecorder, authz Authorizer, bounds BoundsChecker, logger logger.Interface) *LifecycleService[P, PP] {
	return &LifecycleService[P, PP]{
		family: plans.Family(),
		plans:  plans,
		tx:     tx,
		audit:  recorder,
		authz:  authz,
		bounds: bounds,
		logger: logger.Named(plans.Family().PlanObject()),
	}
}

func (s *LifecycleService[P, PP]) Family() device.Family { return s.family }

func actorID(u *models.UserModel) *uuid.UUID {
	if u == nil {
		return nil
	}
	id := u.ID
	return &id
}

func (s *LifecycleService[P, PP]) checkLocation(c *models.PlanCommon) error {
	if c.Location.IsZero() {
		return apperrors.New(apperrors.KindMissingRequiredField, "location is required", "location")
	}
	if !s.bounds.WithinProjectionBounds(c.Location) {
		return apperrors.New(apperrors.KindGeometryOutOfBounds, "Geometry is outside valid projection boundaries", c.Location.String())
	}
	return nil
}

func (s *LifecycleService[P, PP]) authorize(ctx context.Context, u *models.UserModel, action string, row PP) error {
	if s.authz == nil || u == nil {
		return nil
	}
	c := row.Common()
	return s.authz.AuthorizeMutation(ctx, u, s.family.PlanObject(), action, c.Location, c.ResponsibleEntityID)
}

// Create inserts row and, when replaces is set, makes row the successor of
// that plan. Everything happens in one transaction.
func (s *LifecycleService[P, PP]) Create(ctx context.Context, u *models.UserModel, row PP, replaces *uuid.UUID) error {
	c := row.Common()
	if err := s.checkLocation(c); err != nil {
		return err
	}
	if err := s.authorize(ctx, u, permission.ActionCreate, row); err != nil {
		return err
	}

	return s.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		var old PP
		if replaces != nil {
			var err error
			if old, err = s.plans.GetForUpdate(ctx, *replaces); err != nil {
				return err
			}
			if old == nil {
				return apperrors.New(apperrors.KindReplacedPlanMissing, "replaced plan does not exist", replaces.String())
			}
		}

		if c.Lifecycle == 0 {
			c.Lifecycle = device.LifecycleActive
		}
		c.IsActive = true
		c.DeletedAt, c.DeletedByID = nil, nil
		c.CreatedByID = actorID(u)
		c.UpdatedByID = actorID(u)
		if err := s.plans.Create(ctx, row); err != nil {
			if apperrors.IsDuplicateError(err) {
				return apperrors.NewConflictError("source_name and source_id must be unique", err.Error())
			}
			return err
		}
		if err := s.record(ctx, u, audit.ActionCreate, c.ID, nil, row, ""); err != nil {
			return err
		}

		if old != nil {
			if err := s.replace(ctx, u, old, row); err != nil {
				return err
			}
		}
		s.logger.Infow("plan created", "id", c.ID, "replaces", replaces)
		return nil
	})
}

// Update writes row over the stored plan with the same id. replaces is
// handled before the remaining fields are applied.
func (s *LifecycleService[P, PP]) Update(ctx context.Context, u *models.UserModel, row PP, replaces ReplacesField) error {
	c := row.Common()
	if err := s.checkLocation(c); err != nil {
		return err
	}

	return s.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		before, err := s.plans.GetForUpdate(ctx, c.ID)
		if err != nil {
			return err
		}
		if before == nil {
			return apperrors.New(apperrors.KindNotFound, s.family.PlanObject()+" not found", c.ID.String())
		}
		if err := s.authorize(ctx, u, permission.ActionUpdate, before); err != nil {
			return err
		}
		if err := s.authorize(ctx, u, permission.ActionUpdate, row); err != nil {
			return err
		}

		if replaces.Set {
			if replaces.ID != nil {
				old, err := s.plans.GetForUpdate(ctx, *replaces.ID)
				if err != nil {
					return err
				}
				if old == nil {
					return apperrors.New(apperrors.KindReplacedPlanMissing, "replaced plan does not exist", replaces.ID.String())
				}
				if err := s.replace(ctx, u, old, row); err != nil {
					return err
				}
			} else if err := s.unreplace(ctx, c.ID); err != nil {
				return err
			}
		}

		prev := before.Common()
		c.CreatedAt, c.CreatedByID = prev.CreatedAt, prev.CreatedByID
		c.IsActive, c.DeletedAt, c.DeletedByID = prev.IsActive, prev.DeletedAt, prev.DeletedByID
		c.UpdatedByID = actorID(u)
		if err := s.plans.Save(ctx, row); err != nil {
			if apperrors.IsDuplicateError(err) {
				return apperrors.NewConflictError("source_name and source_id must be unique", err.Error())
			}
			return err
		}
		return s.record(ctx, u, audit.ActionUpdate, c.ID, before, row, "")
	})
}

// Replace makes newID the successor of oldID.
func (s *LifecycleService[P, PP]) Replace(ctx context.Context, u *models.UserModel, oldID, newID uuid.UUID) error {
	return s.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		old, err := s.plans.GetForUpdate(ctx, oldID)
		if err != nil {
			return err
		}
		if old == nil {
			return apperrors.New(apperrors.KindReplacedPlanMissing, "replaced plan does not exist", oldID.String())
		}
		newRow, err := s.plans.GetForUpdate(ctx, newID)
		if err != nil {
			return err
		}
		if newRow == nil {
			return apperrors.New(apperrors.KindNotFound, s.family.PlanObject()+" not found", newID.String())
		}
		if err := s.authorize(ctx, u, permission.ActionUpdate, newRow); err != nil {
			return err
		}
		return s.replace(ctx, u, old, newRow)
	})
}

// replace runs inside a transaction with both rows locked.
func (s *LifecycleService[P, PP]) replace(ctx context.Context, u *models.UserModel, old, newRow PP) error {
	oldID, newID := old.Common().ID, newRow.Common().ID

	successor, err := s.plans.ReplacedBy(ctx, oldID)
	if err != nil {
		return err
	}
	if successor != nil {
		return apperrors.New(apperrors.KindAlreadyReplaced, "plan is already replaced", oldID.String())
	}
	if oldID == newID {
		return apperrors.New(apperrors.KindSelfReplacement, "plan cannot replace itself", oldID.String())
	}
	cycle, err := s.reaches(ctx, oldID, newID)
	if err != nil {
		return err
	}
	if cycle {
		return apperrors.New(apperrors.KindReplacementCycle, "replacement would create a cycle", newID.String())
	}

	current, err := s.plans.Replaces(ctx, newID)
	if err != nil {
		return err
	}
	if current != nil {
		if err := s.unreplace(ctx, newID); err != nil {
			return err
		}
	}

	if err := s.plans.InsertEdge(ctx, oldID, newID); err != nil {
		return err
	}
	moved, err := s.plans.RepointReals(ctx, oldID, &newID, actorID(u))
	if err != nil {
		return err
	}
	s.logger.Infow("plan replaced", "old_id", oldID, "new_id", newID, "reals_moved", moved)
	return s.record(ctx, u, audit.ActionUpdate, newID, nil, nil, "replaces "+oldID.String())
}

// reaches walks the predecessors of from and reports whether target is one
// of them. The walk is bounded by the number of edges.
func (s *LifecycleService[P, PP]) reaches(ctx context.Context, from, target uuid.UUID) (bool, error) {
	limit, err := s.plans.EdgeCount(ctx)
	if err != nil {
		return false, err
	}
	cur := from
	for i := int64(0); i <= limit; i++ {
		prev, err := s.plans.Replaces(ctx, cur)
		if err != nil {
			return false, err
		}
		if prev == nil {
			return false, nil
		}
		if *prev == target {
			return true, nil
		}
		cur = *prev
	}
	return true, nil
}

// Unreplace removes the edge that makes id a successor.
func (s *LifecycleService[P, PP]) Unreplace(ctx context.Context, u *models.UserModel, id uuid.UUID) error {
	return s.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		row, err := s.plans.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if row == nil {
			return apperrors.New(apperrors.KindNotFound, s.family.PlanObject()+" not found", id.String())
		}
		if err := s.authorize(ctx, u, permission.ActionUpdate, row); err != nil {
			return err
		}
		if err := s.unreplace(ctx, id); err != nil {
			return err
		}
		return s.record(ctx, u, audit.ActionUpdate, id, nil, nil, "unreplace")
	})
}

func (s *LifecycleService[P, PP]) unreplace(ctx context.Context, id uuid.UUID) error {
	n, err := s.plans.DeleteEdgesTo(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.New(apperrors.KindNotReplacing, "plan does not replace another plan", id.String())
	}
	return nil
}

// SoftDelete deactivates the plan. Reals pointing at it move back to the plan
// it replaced, or are unlinked when it replaced nothing.
func (s *LifecycleService[P, PP]) SoftDelete(ctx context.Context, u *models.UserModel, id uuid.UUID) error {
	return s.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		row, err := s.plans.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if row == nil {
			return apperrors.New(apperrors.KindNotFound, s.family.PlanObject()+" not found", id.String())
		}
		c := row.Common()
		if !c.IsActive {
			return nil
		}
		if err := s.authorize(ctx, u, permission.ActionDelete, row); err != nil {
			return err
		}
		before := *row

		prev, err := s.plans.Replaces(ctx, id)
		if err != nil {
			return err
		}
		if _, err := s.plans.RepointReals(ctx, id, prev, actorID(u)); err != nil {
			return err
		}
		if prev != nil {
			if err := s.unreplace(ctx, id); err != nil {
				return err
			}
		}

		now := biztime.NowUTC()
		c.IsActive = false
		c.DeletedAt = &now
		c.DeletedByID = actorID(u)
		c.UpdatedByID = actorID(u)
		if err := s.plans.Save(ctx, row); err != nil {
			return err
		}
		s.logger.Infow("plan soft deleted", "id", id, "restored_to", prev)
		return s.record(ctx, u, audit.ActionDelete, id, before, row, "")
	})
}

// ReplacementChain returns id followed by the plans it transitively replaces.
func (s *LifecycleService[P, PP]) ReplacementChain(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	limit, err := s.plans.EdgeCount(ctx)
	if err != nil {
		return nil, err
	}
	chain := []uuid.UUID{id}
	cur := id
	for i := int64(0); i < limit; i++ {
		prev, err := s.plans.Replaces(ctx, cur)
		if err != nil {
			return nil, err
		}
		if prev == nil {
			break
		}
		chain = append(chain, *prev)
		cur = *prev
	}
	return chain, nil
}

func (s *LifecycleService[P, PP]) record(ctx context.Context, u *models.UserModel, action audit.Action, id uuid.UUID, before, after any, note string) error {
	if s.audit == nil {
		return nil
	}
	return s.audit.Record(ctx, audit.Entry{
		Actor:      actorID(u),
		Action:     action,
		ObjectType: s.family.PlanObject(),
		ObjectID:   id.String(),
		Before:     before,
		After:      after,
		Note:       note,
	})
}
