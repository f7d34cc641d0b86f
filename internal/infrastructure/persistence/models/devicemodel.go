package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cityinfra/trafficcontrol/internal/domain/device"
	"github.com/cityinfra/trafficcontrol/internal/shared/geo"
)

// DeviceCommon holds the columns shared by every plan and real device row.
type DeviceCommon struct {
	ID                  uuid.UUID        `gorm:"type:uuid;primaryKey"`
	Location            geo.Geometry     `gorm:"type:geometry"`
	DeviceTypeID        *uuid.UUID       `gorm:"type:uuid;index"`
	OwnerID             *uuid.UUID       `gorm:"type:uuid;index"`
	ResponsibleEntityID *uuid.UUID       `gorm:"type:uuid;index"`
	Lifecycle           device.Lifecycle `gorm:"not null"`
	ValidityPeriodStart *time.Time
	ValidityPeriodEnd   *time.Time
	SourceName          *string `gorm:"size:254;uniqueIndex:,composite:source"`
	SourceID            *string `gorm:"size:64;uniqueIndex:,composite:source"`
	IsActive            bool    `gorm:"not null;index"`
	DeletedAt           *time.Time
	DeletedByID         *uuid.UUID `gorm:"type:uuid"`
	CreatedAt           time.Time
	CreatedByID         *uuid.UUID `gorm:"type:uuid"`
	UpdatedAt           time.Time
	UpdatedByID         *uuid.UUID `gorm:"type:uuid"`
}

func (d *DeviceCommon) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// Device exposes the common columns of any device row.
func (d *DeviceCommon) Device() *DeviceCommon { return d }

// PlanCommon is DeviceCommon plus the plan envelope reference.
type PlanCommon struct {
	DeviceCommon
	PlanID *uuid.UUID `gorm:"type:uuid;index"`
}

func (p *PlanCommon) Common() *PlanCommon { return p }

// RealCommon is DeviceCommon plus the installation details.
type RealCommon struct {
	DeviceCommon
	InstallationDate   *time.Time
	InstallationStatus *device.InstallationStatus `gorm:"size:16"`
	Condition          *device.Condition
}

func (r *RealCommon) Common() *RealCommon { return r }

// PlanRecord is implemented by every *<Family>PlanModel.
type PlanRecord interface {
	Common() *PlanCommon
	Family() device.Family
}

// RealRecord is implemented by every *<Family>RealModel.
type RealRecord interface {
	Common() *RealCommon
	Family() device.Family
	PlanRef() *uuid.UUID
	SetPlanRef(id *uuid.UUID)
}

// ReplacementEdge marks OldID as superseded by NewID. Each plan is on each
// side of at most one edge.
type ReplacementEdge struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	OldID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	NewID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	CreatedAt time.Time
}

func (e *ReplacementEdge) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
