package usecases

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cityinfra/trafficcontrol/internal/domain/device"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/persistence/models"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/repository"
	apperrors "github.com/cityinfra/trafficcontrol/internal/shared/errors"
	"github.com/cityinfra/trafficcontrol/internal/shared/logger"
)

// PlanLifecycle is the part of LifecycleService that works on plan ids
// alone, so one family can be picked at run time.
type PlanLifecycle interface {
	Family() device.Family
	Replace(ctx context.Context, u *models.UserModel, oldID, newID uuid.UUID) error
	Unreplace(ctx context.Context, u *models.UserModel, id uuid.UUID) error
	SoftDelete(ctx context.Context, u *models.UserModel, id uuid.UUID) error
	ReplacementChain(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error)
}

// Lifecycles holds the service of every device family.
type Lifecycles map[device.Family]PlanLifecycle

// NewLifecycles builds one service per family on gdb.
func NewLifecycles(gdb *gorm.DB, tx Transactor, recorder AuditRecorder, authz Authorizer, bounds BoundsChecker, log logger.Interface) Lifecycles {
	b := lifecycleBuilder{db: gdb, tx: tx, audit: recorder, authz: authz, bounds: bounds, logger: log}
	l := Lifecycles{}
	for _, s := range []PlanLifecycle{
		build[models.BarrierPlanModel](b),
		build[models.MountPlanModel](b),
		build[models.RoadMarkingPlanModel](b),
		build[models.SignpostPlanModel](b),
		build[models.TrafficLightPlanModel](b),
		build[models.TrafficSignPlanModel](b),
		build[models.AdditionalSignPlanModel](b),
		build[models.FurnitureSignpostPlanModel](b),
	} {
		l[s.Family()] = s
	}
	return l
}

// For returns the service of f.
func (l Lifecycles) For(f device.Family) (PlanLifecycle, error) {
	s, ok := l[f]
	if !ok {
		return nil, apperrors.Newf(apperrors.KindInvalidEnumValue, "unknown device family %q", f)
	}
	return s, nil
}

// Typed returns the service of P's family with its row type.
func Typed[P any, PP interface {
	*P
	models.PlanRecord
}](l Lifecycles) *LifecycleService[P, PP] {
	s, _ := l[PP(new(P)).Family()].(*LifecycleService[P, PP])
	return s
}

type lifecycleBuilder struct {
	db     *gorm.DB
	tx     Transactor
	audit  AuditRecorder
	authz  Authorizer
	bounds BoundsChecker
	logger logger.Interface
}

func build[P any, PP interface {
	*P
	models.PlanRecord
}](b lifecycleBuilder) *LifecycleService[P, PP] {
	plans := repository.NewPlanRepository[P, PP](b.db, b.logger)
	return NewLifecycleService[P, PP](plans, b.tx, b.audit, b.authz, b.bounds, b.logger)
}
