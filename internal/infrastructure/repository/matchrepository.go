package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cityinfra/trafficcontrol/internal/domain/device"
	"github.com/cityinfra/trafficcontrol/internal/shared/constants"
	"github.com/cityinfra/trafficcontrol/internal/shared/db"
	apperrors "github.com/cityinfra/trafficcontrol/internal/shared/errors"
	"github.com/cityinfra/trafficcontrol/internal/shared/geo"
)

// MatchRow is a plan or real of any family flattened with the codes the
// matcher compares.
type MatchRow struct {
	ID                   uuid.UUID
	Location             geo.Geometry
	CreatedAt            time.Time
	DecisionID           string
	DeviceTypeCode       string
	DeviceTypeLegacyCode string
	MountTypeCode        string
	ParentCode           string
	ParentLegacyCode     string
}

// MatchRepositoryImpl serves the plan to real matcher across families.
type MatchRepositoryImpl struct {
	db *gorm.DB
}

func NewMatchRepository(gdb *gorm.DB) *MatchRepositoryImpl {
	return &MatchRepositoryImpl{db: gdb}
}

// selectRows builds the flattened query over table aliased d. parentTable
// is the traffic sign table additional signs hang from.
func (r *MatchRepositoryImpl) selectRows(ctx context.Context, f device.Family, table, parentTable string, isPlan bool) *gorm.DB {
	cols := []string{
		"d.id", "d.location", "d.created_at",
		"COALESCE(dt.code, '') AS device_type_code",
		"COALESCE(dt.legacy_code, '') AS device_type_legacy_code",
	}
	q := db.GetTxFromContext(ctx, r.db).Table(table + " d").
		Joins("LEFT JOIN " + constants.TableDeviceTypes + " dt ON dt.id = d.device_type_id")

	if isPlan {
		cols = append(cols, "COALESCE(pe.decision_id, '') AS decision_id")
		q = q.Joins("LEFT JOIN " + constants.TablePlans + " pe ON pe.id = d.plan_id")
	}
	if f == device.FamilyMount {
		cols = append(cols, "COALESCE(mt.code, '') AS mount_type_code")
		q = q.Joins("LEFT JOIN " + constants.TableMountTypes + " mt ON mt.id = d.mount_type_id")
	}
	if f == device.FamilyAdditionalSign {
		cols = append(cols,
			"COALESCE(pdt.code, '') AS parent_code",
			"COALESCE(pdt.legacy_code, '') AS parent_legacy_code")
		q = q.
			Joins("LEFT JOIN " + parentTable + " p ON p.id = d.parent_id").
			Joins("LEFT JOIN " + constants.TableDeviceTypes + " pdt ON pdt.id = p.device_type_id")
	}
	return q.Select(strings.Join(cols, ", ")).Where("d.is_active = ?", true)
}

// UnlinkedReals returns reals in effect at now that point at no plan.
func (r *MatchRepositoryImpl) UnlinkedReals(ctx context.Context, f device.Family, now time.Time) ([]MatchRow, error) {
	var rows []MatchRow
	err := r.selectRows(ctx, f, f.RealTable(), device.FamilyTrafficSign.RealTable(), false).
		Where("d."+f.PlanColumn()+" IS NULL").
		Scopes(InEffectAt("d", now)).
		Order("d.created_at").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list unlinked %s: %w", f.RealObject(), err)
	}
	return rows, nil
}

// UnclaimedPlans returns current plans no real points at, narrowed by scope.
func (r *MatchRepositoryImpl) UnclaimedPlans(ctx context.Context, f device.Family, scope func(*gorm.DB) *gorm.DB) ([]MatchRow, error) {
	var rows []MatchRow
	claimed := fmt.Sprintf("SELECT %[1]s FROM %[2]s WHERE %[1]s IS NOT NULL", f.PlanColumn(), f.RealTable())
	replaced := fmt.Sprintf("SELECT old_id FROM %s", f.ReplacementTable())
	err := r.selectRows(ctx, f, f.PlanTable(), device.FamilyTrafficSign.PlanTable(), true).
		Where("d.id NOT IN (" + claimed + ")").
		Where("d.id NOT IN (" + replaced + ")").
		Scopes(scope).
		Order("d.created_at").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list unclaimed %s: %w", f.PlanObject(), err)
	}
	return rows, nil
}

// Link points the real at the plan.
func (r *MatchRepositoryImpl) Link(ctx context.Context, f device.Family, realID, planID uuid.UUID) error {
	res := db.GetTxFromContext(ctx, r.db).Table(f.RealTable()).
		Where("id = ?", realID).
		Updates(map[string]any{f.PlanColumn(): planID, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		if apperrors.IsDuplicateError(res.Error) {
			return apperrors.New(apperrors.KindDuplicatePlanLink, "plan already linked", planID.String())
		}
		return fmt.Errorf("failed to link %s: %w", f.RealObject(), res.Error)
	}
	return nil
}
