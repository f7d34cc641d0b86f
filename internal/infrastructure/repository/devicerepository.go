package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cityinfra/trafficcontrol/internal/domain/device"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/persistence/models"
	"github.com/cityinfra/trafficcontrol/internal/shared/db"
	apperrors "github.com/cityinfra/trafficcontrol/internal/shared/errors"
	"github.com/cityinfra/trafficcontrol/internal/shared/logger"
)

// PlanPtr constrains a pointer to a family plan row.
type PlanPtr[P any] interface {
	*P
	models.PlanRecord
}

// PlanRepositoryImpl stores the plans of one device family together with
// their replacement edges and the reals pointing at them.
type PlanRepositoryImpl[P any, PP PlanPtr[P]] struct {
	db     *gorm.DB
	family device.Family
	logger logger.Interface
}

func NewPlanRepository[P any, PP PlanPtr[P]](gdb *gorm.DB, logger logger.Interface) *PlanRepositoryImpl[P, PP] {
	return &PlanRepositoryImpl[P, PP]{
		db:     gdb,
		family: PP(new(P)).Family(),
		logger: logger,
	}
}

func (r *PlanRepositoryImpl[P, PP]) Family() device.Family { return r.family }

func (r *PlanRepositoryImpl[P, PP]) tx(ctx context.Context) *gorm.DB {
	return db.GetTxFromContext(ctx, r.db)
}

// ActiveScope keeps plans that are not soft deleted.
func (r *PlanRepositoryImpl[P, PP]) ActiveScope() func(*gorm.DB) *gorm.DB {
	return db.Active()
}

// CurrentScope keeps active plans that are not the old side of an edge.
func (r *PlanRepositoryImpl[P, PP]) CurrentScope() func(*gorm.DB) *gorm.DB {
	sub := fmt.Sprintf("id NOT IN (SELECT old_id FROM %s)", r.family.ReplacementTable())
	return func(q *gorm.DB) *gorm.DB {
		return q.Scopes(db.Active()).Where(sub)
	}
}

func (r *PlanRepositoryImpl[P, PP]) Active(ctx context.Context) ([]PP, error) {
	var rows []PP
	if err := r.tx(ctx).Scopes(r.ActiveScope()).Order("created_at").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list active %s: %w", r.family.PlanObject(), err)
	}
	return rows, nil
}

func (r *PlanRepositoryImpl[P, PP]) Current(ctx context.Context) ([]PP, error) {
	var rows []PP
	if err := r.tx(ctx).Scopes(r.CurrentScope()).Order("created_at").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list current %s: %w", r.family.PlanObject(), err)
	}
	return rows, nil
}

// ActiveNow keeps current plans in effect at now.
func (r *PlanRepositoryImpl[P, PP]) ActiveNow(ctx context.Context, now time.Time) ([]PP, error) {
	var rows []PP
	err := r.tx(ctx).
		Scopes(r.CurrentScope(), InEffectAt("", now)).
		Order("created_at").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list %s in effect: %w", r.family.PlanObject(), err)
	}
	return rows, nil
}

// InEffectAt keeps rows in an active lifecycle whose validity window contains
// t. alias qualifies the columns when the table is aliased.
func InEffectAt(alias string, t time.Time) func(*gorm.DB) *gorm.DB {
	lifecycle := "lifecycle"
	if alias != "" {
		lifecycle = alias + "." + lifecycle
	}
	return func(q *gorm.DB) *gorm.DB {
		return db.ValidAtAlias(alias, t)(q.Where(lifecycle+" IN ?", device.ActiveLifecycles))
	}
}

// GetByID returns nil when no row has id, soft deleted rows included.
func (r *PlanRepositoryImpl[P, PP]) GetByID(ctx context.Context, id uuid.UUID) (PP, error) {
	return r.get(r.tx(ctx), id)
}

// GetForUpdate is GetByID with a row lock held until the transaction ends.
func (r *PlanRepositoryImpl[P, PP]) GetForUpdate(ctx context.Context, id uuid.UUID) (PP, error) {
	return r.get(db.ForUpdate(r.tx(ctx)), id)
}

func (r *PlanRepositoryImpl[P, PP]) get(q *gorm.DB, id uuid.UUID) (PP, error) {
	row := PP(new(P))
	if err := q.Where("id = ?", id).First(row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get plan", "family", r.family, "id", id, "error", err)
		return nil, fmt.Errorf("failed to get %s: %w", r.family.PlanObject(), err)
	}
	return row, nil
}

func (r *PlanRepositoryImpl[P, PP]) Create(ctx context.Context, row PP) error {
	if err := r.tx(ctx).Create(row).Error; err != nil {
		r.logger.Errorw("failed to create plan", "family", r.family, "error", err)
		return fmt.Errorf("failed to create %s: %w", r.family.PlanObject(), err)
	}
	return nil
}

// Save writes every column of row.
func (r *PlanRepositoryImpl[P, PP]) Save(ctx context.Context, row PP) error {
	if err := r.tx(ctx).Save(row).Error; err != nil {
		r.logger.Errorw("failed to save plan", "family", r.family, "id", row.Common().ID, "error", err)
		return fmt.Errorf("failed to save %s: %w", r.family.PlanObject(), err)
	}
	return nil
}

// ReplacedBy returns the plan that supersedes id, if any.
func (r *PlanRepositoryImpl[P, PP]) ReplacedBy(ctx context.Context, id uuid.UUID) (*uuid.UUID, error) {
	return r.edgeEnd(ctx, "old_id", "new_id", id)
}

// Replaces returns the plan that id supersedes, if any.
func (r *PlanRepositoryImpl[P, PP]) Replaces(ctx context.Context, id uuid.UUID) (*uuid.UUID, error) {
	return r.edgeEnd(ctx, "new_id", "old_id", id)
}

func (r *PlanRepositoryImpl[P, PP]) edgeEnd(ctx context.Context, match, pick string, id uuid.UUID) (*uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.tx(ctx).Table(r.family.ReplacementTable()).
		Where(match+" = ?", id).
		Limit(1).
		Pluck(pick, &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", r.family.ReplacementTable(), err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return &ids[0], nil
}

func (r *PlanRepositoryImpl[P, PP]) InsertEdge(ctx context.Context, oldID, newID uuid.UUID) error {
	edge := map[string]any{
		"id":         uuid.New(),
		"old_id":     oldID,
		"new_id":     newID,
		"created_at": time.Now().UTC(),
	}
	if err := r.tx(ctx).Table(r.family.ReplacementTable()).Create(edge).Error; err != nil {
		if apperrors.IsDuplicateError(err) {
			return apperrors.New(apperrors.KindAlreadyReplaced, "plan is already part of a replacement", oldID.String())
		}
		return fmt.Errorf("failed to insert replacement edge: %w", err)
	}
	return nil
}

// DeleteEdgesTo removes the edges whose new side is id and returns how many
// were removed.
func (r *PlanRepositoryImpl[P, PP]) DeleteEdgesTo(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.tx(ctx).Table(r.family.ReplacementTable()).Where("new_id = ?", id).Delete(map[string]any{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete replacement edge: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// EdgeCount bounds chain walks.
func (r *PlanRepositoryImpl[P, PP]) EdgeCount(ctx context.Context) (int64, error) {
	var n int64
	if err := r.tx(ctx).Table(r.family.ReplacementTable()).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count replacement edges: %w", err)
	}
	return n, nil
}

// RepointReals moves every real pointing at from to to. A nil to unlinks.
func (r *PlanRepositoryImpl[P, PP]) RepointReals(ctx context.Context, from uuid.UUID, to *uuid.UUID, actor *uuid.UUID) (int64, error) {
	col := r.family.PlanColumn()
	res := r.tx(ctx).Table(r.family.RealTable()).
		Where(col+" = ?", from).
		Updates(map[string]any{
			col:             to,
			"updated_at":    time.Now().UTC(),
			"updated_by_id": actor,
		})
	if res.Error != nil {
		if apperrors.IsDuplicateError(res.Error) && to != nil {
			return 0, apperrors.New(apperrors.KindDuplicatePlanLink, "another real already points at the plan", to.String())
		}
		return 0, fmt.Errorf("failed to repoint %s: %w", r.family.RealObject(), res.Error)
	}
	return res.RowsAffected, nil
}

// RealIDsFor returns the reals that point at planID.
func (r *PlanRepositoryImpl[P, PP]) RealIDsFor(ctx context.Context, planID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.tx(ctx).Table(r.family.RealTable()).
		Where(r.family.PlanColumn()+" = ?", planID).
		Order("created_at").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list %s for plan: %w", r.family.RealObject(), err)
	}
	return ids, nil
}
