package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/cityinfra/trafficcontrol/internal/shared/constants"
)

// AuditLogEntryModel is an append-only record of a device mutation.
type AuditLogEntryModel struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ActorID    *uuid.UUID `gorm:"type:uuid;index"`
	Action     string     `gorm:"size:16;not null;index"`
	ObjectType string     `gorm:"size:64;not null;index:idx_audit_object"`
	ObjectID   string     `gorm:"size:64;not null;index:idx_audit_object"`
	Before     datatypes.JSON
	After      datatypes.JSON
	Note       string    `gorm:"type:text"`
	Timestamp  time.Time `gorm:"not null;index"`
}

func (AuditLogEntryModel) TableName() string { return constants.TableAuditLogEntries }

func (a *AuditLogEntryModel) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// PlanGeometryImportLogModel keeps the outcome of one plan geometry import.
type PlanGeometryImportLogModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	StartTime time.Time
	EndTime   *time.Time
	FilePath  string `gorm:"size:1024"`
	OutputDir string `gorm:"size:1024"`
	DryRun    bool
	Results   datatypes.JSON
}

func (PlanGeometryImportLogModel) TableName() string { return constants.TablePlanGeometryImportLogs }

func (l *PlanGeometryImportLogModel) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// ParkingZoneUpdateInfoModel keeps the outcome of one enricher run.
type ParkingZoneUpdateInfoModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	StartTime      time.Time
	EndTime        *time.Time
	UpdateInfos    datatypes.JSON
	UpdateErrors   datatypes.JSON
	DatabaseUpdate bool
}

func (ParkingZoneUpdateInfoModel) TableName() string { return constants.TableParkingZoneUpdateInfos }

func (p *ParkingZoneUpdateInfoModel) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// PlanRealMappingLogModel keeps the outcome of one matcher run.
type PlanRealMappingLogModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Family    string    `gorm:"size:32;not null;index"`
	StartTime time.Time
	EndTime   *time.Time
	DryRun    bool
	Radius    float64
	Passes    int
	Mapped    int
	Skipped   int
	Payload   datatypes.JSON
}

func (PlanRealMappingLogModel) TableName() string { return constants.TablePlanRealMappingLogs }

func (p *PlanRealMappingLogModel) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
