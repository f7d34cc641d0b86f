package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/cityinfra/trafficcontrol/internal/shared/constants"
	"github.com/cityinfra/trafficcontrol/internal/shared/geo"
)

// PlanModel is the decision-bearing envelope that device plans belong to.
type PlanModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name           string    `gorm:"size:512"`
	DecisionID     string    `gorm:"size:254"`
	DiaryNumber    string    `gorm:"size:254;index"`
	DrawingNumbers datatypes.JSONSlice[string]
	DecisionDate   *time.Time
	DecisionURL    string       `gorm:"size:500"`
	Location       geo.Geometry `gorm:"type:geometry"`
	// DeriveLocation recomputes Location from the plan's devices when set.
	DeriveLocation bool
	SourceName     *string `gorm:"size:254;uniqueIndex:idx_plans_source"`
	SourceID       *string `gorm:"size:64;uniqueIndex:idx_plans_source"`
	IsActive       bool    `gorm:"not null;index"`
	DeletedAt      *time.Time
	DeletedByID    *uuid.UUID `gorm:"type:uuid"`
	CreatedAt      time.Time
	CreatedByID    *uuid.UUID `gorm:"type:uuid"`
	UpdatedAt      time.Time
	UpdatedByID    *uuid.UUID `gorm:"type:uuid"`
}

// TableName specifies the table name for GORM
func (PlanModel) TableName() string {
	return constants.TablePlans
}

func (p *PlanModel) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
