package deviceio

import (
	"context"

	"github.com/google/uuid"

	"github.com/cityinfra/trafficcontrol/internal/domain/device"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/persistence/models"
)

// Lookups resolves the reference tables by natural key and by id.
type Lookups interface {
	OwnerByName(ctx context.Context, nameFi string) (*models.OwnerModel, error)
	OwnerByID(ctx context.Context, id uuid.UUID) (*models.OwnerModel, error)
	DeviceTypeByCode(ctx context.Context, code string) (*models.DeviceTypeModel, error)
	DeviceTypeByID(ctx context.Context, id uuid.UUID) (*models.DeviceTypeModel, error)
	MountTypeByCode(ctx context.Context, code string) (*models.MountTypeModel, error)
	MountTypeByID(ctx context.Context, id uuid.UUID) (*models.MountTypeModel, error)
	ResponsibleEntityByName(ctx context.Context, name string) (*models.ResponsibleEntityModel, error)
	ResponsibleEntityByID(ctx context.Context, id uuid.UUID) (*models.ResponsibleEntityModel, error)
}

// resolve adapts a lookup returning a row into one returning the row's id.
func resolve[M any](get func(context.Context, string) (*M, error), id func(*M) uuid.UUID) func(context.Context, string) (*uuid.UUID, error) {
	return func(ctx context.Context, key string) (*uuid.UUID, error) {
		m, err := get(ctx, key)
		if err != nil || m == nil {
			return nil, err
		}
		v := id(m)
		return &v, nil
	}
}

func keyOf[M any](get func(context.Context, uuid.UUID) (*M, error), key func(*M) string) func(context.Context, uuid.UUID) (string, error) {
	return func(ctx context.Context, id uuid.UUID) (string, error) {
		m, err := get(ctx, id)
		if err != nil || m == nil {
			return "", err
		}
		return key(m), nil
	}
}

func ownerColumn[T any](l Lookups, field func(*T) **uuid.UUID) Column[T] {
	return lookupColumn("owner__name_fi", field,
		resolve(l.OwnerByName, func(m *models.OwnerModel) uuid.UUID { return m.ID }),
		keyOf(l.OwnerByID, func(m *models.OwnerModel) string { return m.NameFi }))
}

func responsibleEntityColumn[T any](l Lookups, field func(*T) **uuid.UUID) Column[T] {
	return lookupColumn("responsible_entity__name", field,
		resolve(l.ResponsibleEntityByName, func(m *models.ResponsibleEntityModel) uuid.UUID { return m.ID }),
		keyOf(l.ResponsibleEntityByID, func(m *models.ResponsibleEntityModel) string { return m.Name }))
}

func mountTypeColumn[T any](l Lookups, field func(*T) **uuid.UUID) Column[T] {
	return lookupColumn("mount_type__code", field,
		resolve(l.MountTypeByCode, func(m *models.MountTypeModel) uuid.UUID { return m.ID }),
		keyOf(l.MountTypeByID, func(m *models.MountTypeModel) string { return m.Code }))
}

// deviceTypeColumn also rejects types whose target model belongs to another family.
func deviceTypeColumn[T any](l Lookups, family device.Family, field func(*T) **uuid.UUID) Column[T] {
	byCode := func(ctx context.Context, code string) (*uuid.UUID, error) {
		dt, err := l.DeviceTypeByCode(ctx, code)
		if err != nil || dt == nil {
			return nil, err
		}
		if err := device.ValidateRelation(dt.TargetModel, family); err != nil {
			return nil, err
		}
		return &dt.ID, nil
	}
	return lookupColumn("device_type__code", field, byCode,
		keyOf(l.DeviceTypeByID, func(m *models.DeviceTypeModel) string { return m.Code }))
}
