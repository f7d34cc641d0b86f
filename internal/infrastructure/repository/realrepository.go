package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cityinfra/trafficcontrol/internal/domain/device"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/persistence/models"
	"github.com/cityinfra/trafficcontrol/internal/shared/db"
	apperrors "github.com/cityinfra/trafficcontrol/internal/shared/errors"
	"github.com/cityinfra/trafficcontrol/internal/shared/logger"
)

// RealPtr constrains a pointer to a family real row.
type RealPtr[R any] interface {
	*R
	models.RealRecord
}

type RealRepositoryImpl[R any, RP RealPtr[R]] struct {
	db     *gorm.DB
	family device.Family
	logger logger.Interface
}

func NewRealRepository[R any, RP RealPtr[R]](gdb *gorm.DB, logger logger.Interface) *RealRepositoryImpl[R, RP] {
	return &RealRepositoryImpl[R, RP]{
		db:     gdb,
		family: RP(new(R)).Family(),
		logger: logger,
	}
}

func (r *RealRepositoryImpl[R, RP]) tx(ctx context.Context) *gorm.DB {
	return db.GetTxFromContext(ctx, r.db)
}

func (r *RealRepositoryImpl[R, RP]) GetByID(ctx context.Context, id uuid.UUID) (RP, error) {
	row := RP(new(R))
	if err := r.tx(ctx).Where("id = ?", id).First(row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get %s: %w", r.family.RealObject(), err)
	}
	return row, nil
}

func (r *RealRepositoryImpl[R, RP]) Active(ctx context.Context) ([]RP, error) {
	var rows []RP
	if err := r.tx(ctx).Scopes(db.Active()).Order("created_at").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list active %s: %w", r.family.RealObject(), err)
	}
	return rows, nil
}

func (r *RealRepositoryImpl[R, RP]) Create(ctx context.Context, row RP) error {
	if err := r.tx(ctx).Create(row).Error; err != nil {
		return r.mapWriteError("create", err)
	}
	return nil
}

func (r *RealRepositoryImpl[R, RP]) Save(ctx context.Context, row RP) error {
	if err := r.tx(ctx).Save(row).Error; err != nil {
		return r.mapWriteError("save", err)
	}
	return nil
}

func (r *RealRepositoryImpl[R, RP]) mapWriteError(op string, err error) error {
	if apperrors.IsDuplicateError(err) {
		// the unique index name embeds the column in both dialects
		if strings.Contains(err.Error(), r.family.PlanColumn()) {
			return apperrors.New(apperrors.KindDuplicatePlanLink,
				fmt.Sprintf("%s is already linked to another %s", r.family.PlanObject(), r.family.RealObject()), err.Error())
		}
		return apperrors.NewConflictError("source_name and source_id must be unique", err.Error())
	}
	r.logger.Errorw("failed to write real", "family", r.family, "op", op, "error", err)
	return fmt.Errorf("failed to %s %s: %w", op, r.family.RealObject(), err)
}
