package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cityinfra/trafficcontrol/internal/domain/organization"
	"github.com/cityinfra/trafficcontrol/internal/shared/constants"
	apperrors "github.com/cityinfra/trafficcontrol/internal/shared/errors"
	"github.com/cityinfra/trafficcontrol/internal/shared/geo"
)

// ResponsibleEntityModel is a node of the organization tree.
type ResponsibleEntityModel struct {
	ID        uuid.UUID          `gorm:"type:uuid;primaryKey"`
	Name      string             `gorm:"size:254;not null;uniqueIndex"`
	Level     organization.Level `gorm:"not null"`
	ParentID  *uuid.UUID         `gorm:"type:uuid;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ResponsibleEntityModel) TableName() string { return constants.TableResponsibleEntities }

func (r *ResponsibleEntityModel) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// BeforeSave rejects a parent below this node's level.
func (r *ResponsibleEntityModel) BeforeSave(tx *gorm.DB) error {
	if !r.Level.IsValid() {
		return apperrors.Newf(apperrors.KindInvalidEnumValue, "invalid organization level %d", int(r.Level))
	}
	if r.ParentID == nil {
		return nil
	}
	var parent ResponsibleEntityModel
	if err := tx.Session(&gorm.Session{NewDB: true}).Select("level").First(&parent, "id = ?", *r.ParentID).Error; err != nil {
		return err
	}
	return organization.ValidateParentLevel(parent.Level, r.Level)
}

// OperationalAreaModel is a named polygon scoping write access.
type OperationalAreaModel struct {
	ID        uuid.UUID    `gorm:"type:uuid;primaryKey"`
	Name      string       `gorm:"size:256;not null;uniqueIndex"`
	AreaType  string       `gorm:"size:64"`
	Location  geo.Geometry `gorm:"type:geometry"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (OperationalAreaModel) TableName() string { return constants.TableOperationalAreas }

func (o *OperationalAreaModel) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
