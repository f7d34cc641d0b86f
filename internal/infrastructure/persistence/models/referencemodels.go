package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/cityinfra/trafficcontrol/internal/domain/device"
	"github.com/cityinfra/trafficcontrol/internal/shared/constants"
)

// OwnerModel is the organization owning a device.
type OwnerModel struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	NameFi string    `gorm:"size:254;not null;uniqueIndex"`
	NameEn string    `gorm:"size:254"`
}

func (OwnerModel) TableName() string { return constants.TableOwners }

func (o *OwnerModel) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

type MountTypeModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Code        string    `gorm:"size:20;not null;uniqueIndex"`
	Description string    `gorm:"size:254"`
}

func (MountTypeModel) TableName() string { return constants.TableMountTypes }

func (m *MountTypeModel) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// DeviceTypeModel is a traffic control device type. ContentSchema is only
// set for additional sign types.
type DeviceTypeModel struct {
	ID            uuid.UUID          `gorm:"type:uuid;primaryKey"`
	Code          string             `gorm:"size:32;not null;uniqueIndex"`
	LegacyCode    *string            `gorm:"size:32;index"`
	Description   string             `gorm:"size:254"`
	Value         string             `gorm:"size:50"`
	Unit          string             `gorm:"size:50"`
	Size          string             `gorm:"size:50"`
	TargetModel   device.TargetModel `gorm:"size:32;index"`
	ContentSchema datatypes.JSON
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (DeviceTypeModel) TableName() string { return constants.TableDeviceTypes }

func (d *DeviceTypeModel) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// BeforeSave enforces the schema and target model rules.
func (d *DeviceTypeModel) BeforeSave(*gorm.DB) error {
	return device.ValidateDeviceTypeSchema(d.TargetModel, d.ContentSchema)
}

// MatchesCode reports whether code equals this type's code or legacy code.
func (d *DeviceTypeModel) MatchesCode(code string) bool {
	if code == "" {
		return false
	}
	return d.Code == code || (d.LegacyCode != nil && *d.LegacyCode == code)
}
