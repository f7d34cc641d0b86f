package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cityinfra/trafficcontrol/internal/infrastructure/persistence/models"
	"github.com/cityinfra/trafficcontrol/internal/shared/db"
)

// ReferenceRepositoryImpl resolves the lookup tables devices point at.
type ReferenceRepositoryImpl struct {
	db *gorm.DB
}

func NewReferenceRepository(gdb *gorm.DB) *ReferenceRepositoryImpl {
	return &ReferenceRepositoryImpl{db: gdb}
}

func firstOrNil[T any](q *gorm.DB, what string) (*T, error) {
	var row T
	if err := q.First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get %s: %w", what, err)
	}
	return &row, nil
}

func (r *ReferenceRepositoryImpl) OwnerByName(ctx context.Context, nameFi string) (*models.OwnerModel, error) {
	return firstOrNil[models.OwnerModel](db.GetTxFromContext(ctx, r.db).Where("name_fi = ?", nameFi), "owner")
}

func (r *ReferenceRepositoryImpl) OwnerByID(ctx context.Context, id uuid.UUID) (*models.OwnerModel, error) {
	return firstOrNil[models.OwnerModel](db.GetTxFromContext(ctx, r.db).Where("id = ?", id), "owner")
}

func (r *ReferenceRepositoryImpl) DeviceTypeByCode(ctx context.Context, code string) (*models.DeviceTypeModel, error) {
	return firstOrNil[models.DeviceTypeModel](db.GetTxFromContext(ctx, r.db).Where("code = ?", code), "device type")
}

func (r *ReferenceRepositoryImpl) DeviceTypeByID(ctx context.Context, id uuid.UUID) (*models.DeviceTypeModel, error) {
	return firstOrNil[models.DeviceTypeModel](db.GetTxFromContext(ctx, r.db).Where("id = ?", id), "device type")
}

// DeviceTypesByID loads the device types in ids keyed by id.
func (r *ReferenceRepositoryImpl) DeviceTypesByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.DeviceTypeModel, error) {
	out := make(map[uuid.UUID]*models.DeviceTypeModel, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []*models.DeviceTypeModel
	if err := db.GetTxFromContext(ctx, r.db).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load device types: %w", err)
	}
	for _, dt := range rows {
		out[dt.ID] = dt
	}
	return out, nil
}

func (r *ReferenceRepositoryImpl) MountTypeByCode(ctx context.Context, code string) (*models.MountTypeModel, error) {
	return firstOrNil[models.MountTypeModel](db.GetTxFromContext(ctx, r.db).Where("code = ?", code), "mount type")
}

func (r *ReferenceRepositoryImpl) MountTypeByID(ctx context.Context, id uuid.UUID) (*models.MountTypeModel, error) {
	return firstOrNil[models.MountTypeModel](db.GetTxFromContext(ctx, r.db).Where("id = ?", id), "mount type")
}

func (r *ReferenceRepositoryImpl) ResponsibleEntityByName(ctx context.Context, name string) (*models.ResponsibleEntityModel, error) {
	return firstOrNil[models.ResponsibleEntityModel](db.GetTxFromContext(ctx, r.db).Where("name = ?", name), "responsible entity")
}

func (r *ReferenceRepositoryImpl) ResponsibleEntityByID(ctx context.Context, id uuid.UUID) (*models.ResponsibleEntityModel, error) {
	return firstOrNil[models.ResponsibleEntityModel](db.GetTxFromContext(ctx, r.db).Where("id = ?", id), "responsible entity")
}
