package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cityinfra/trafficcontrol/internal/shared/constants"
)

// UserModel represents the database persistence model for users
type UserModel struct {
	ID                              uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username                        string    `gorm:"size:150;not null;uniqueIndex"`
	Email                           string    `gorm:"size:254;index"`
	FirstName                       string    `gorm:"size:150"`
	LastName                        string    `gorm:"size:150"`
	PreferredLanguage               string    `gorm:"size:8;default:fi"`
	IsActive                        bool      `gorm:"not null;default:true;index"`
	IsStaff                         bool
	IsSuperuser                     bool
	BypassOperationalArea           bool
	BypassResponsibleEntity         bool
	ReceivesAdminNotificationEmails bool
	LastLogin                       *time.Time
	LastAPIUse                      *time.Time `gorm:"column:last_api_use"`
	ReactivatedAt                   *time.Time
	DateJoined                      time.Time

	OperationalAreas    []OperationalAreaModel   `gorm:"many2many:user_operational_areas;joinForeignKey:UserID;joinReferences:OperationalAreaID"`
	ResponsibleEntities []ResponsibleEntityModel `gorm:"many2many:user_responsible_entities;joinForeignKey:UserID;joinReferences:ResponsibleEntityID"`
	Groups              []GroupModel             `gorm:"many2many:user_groups;joinForeignKey:UserID;joinReferences:GroupID"`
}

// TableName specifies the table name for GORM
func (UserModel) TableName() string {
	return constants.TableUsers
}

// BeforeCreate hook for GORM
func (u *UserModel) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.DateJoined.IsZero() {
		u.DateJoined = time.Now().UTC()
	}
	return nil
}

// GroupModel bundles grants shared by its members.
type GroupModel struct {
	ID                  uuid.UUID                `gorm:"type:uuid;primaryKey"`
	Name                string                   `gorm:"size:150;not null;uniqueIndex"`
	OperationalAreas    []OperationalAreaModel   `gorm:"many2many:group_operational_areas;joinForeignKey:GroupID;joinReferences:OperationalAreaID"`
	ResponsibleEntities []ResponsibleEntityModel `gorm:"many2many:group_responsible_entities;joinForeignKey:GroupID;joinReferences:ResponsibleEntityID"`
}

func (GroupModel) TableName() string { return constants.TableGroups }

func (g *GroupModel) BeforeCreate(*gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

// UserDeactivationStatusModel records which inactivity notices a user has
// been sent. The row is removed when the user becomes active again.
type UserDeactivationStatusModel struct {
	ID                  uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID              uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	OneMonthEmailSentAt *time.Time
	OneWeekEmailSentAt  *time.Time
	OneDayEmailSentAt   *time.Time
	DeactivatedAt       *time.Time `gorm:"index"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (UserDeactivationStatusModel) TableName() string { return constants.TableUserDeactivationStatuses }

func (s *UserDeactivationStatusModel) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
