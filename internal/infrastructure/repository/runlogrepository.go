package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/cityinfra/trafficcontrol/internal/infrastructure/persistence/models"
	"github.com/cityinfra/trafficcontrol/internal/shared/db"
)

// RunLogRepositoryImpl persists the outcome rows of batch commands and the
// audit trail of device mutations. Both are append-only.
type RunLogRepositoryImpl struct {
	db *gorm.DB
}

func NewRunLogRepository(gdb *gorm.DB) *RunLogRepositoryImpl {
	return &RunLogRepositoryImpl{db: gdb}
}

func (r *RunLogRepositoryImpl) create(ctx context.Context, row any, what string) error {
	if err := db.GetTxFromContext(ctx, r.db).Create(row).Error; err != nil {
		return fmt.Errorf("failed to write %s: %w", what, err)
	}
	return nil
}

func (r *RunLogRepositoryImpl) AppendAudit(ctx context.Context, e *models.AuditLogEntryModel) error {
	return r.create(ctx, e, "audit log entry")
}

func (r *RunLogRepositoryImpl) SaveImportLog(ctx context.Context, l *models.PlanGeometryImportLogModel) error {
	return r.create(ctx, l, "plan geometry import log")
}

func (r *RunLogRepositoryImpl) SaveParkingZoneUpdateInfo(ctx context.Context, p *models.ParkingZoneUpdateInfoModel) error {
	return r.create(ctx, p, "parking zone update info")
}

func (r *RunLogRepositoryImpl) SaveMappingLog(ctx context.Context, p *models.PlanRealMappingLogModel) error {
	return r.create(ctx, p, "plan real mapping log")
}
