package deviceio

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/cityinfra/trafficcontrol/internal/application/device/usecases"
	"github.com/cityinfra/trafficcontrol/internal/domain/device"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/persistence/models"
	"github.com/cityinfra/trafficcontrol/internal/shared/geo"
)

type (
	signPlan = models.TrafficSignPlanModel
	signReal = models.TrafficSignRealModel
)

// RealLinks lists the reals pointing at a plan.
type RealLinks interface {
	RealIDsFor(ctx context.Context, planID uuid.UUID) ([]uuid.UUID, error)
}

// SignPlanRows is the traffic sign plan repository.
type SignPlanRows interface {
	PlanRows[*signPlan]
	RealLinks
}

// TrafficSignStores are the repositories the traffic sign codecs work on.
type TrafficSignStores struct {
	Plans      SignPlanRows
	PlanWriter PlanWriter[*signPlan]
	Reals      RealRows[*signReal]
	MountPlans RealLinks
	MountPlan  func(ctx context.Context, id uuid.UUID) (*models.MountPlanModel, error)
	MountReal  func(ctx context.Context, id uuid.UUID) (*models.MountRealModel, error)
	Envelope   func(ctx context.Context, id uuid.UUID) (*models.PlanModel, error)
	Authz      usecases.Authorizer
}

// TrafficSigns holds the plan and real codecs of the traffic sign family.
type TrafficSigns struct {
	Plans *Codec[signPlan]
	Reals *Codec[signReal]

	plans      SignPlanRows
	mountPlans RealLinks
}

func NewTrafficSigns(stores TrafficSignStores, deps Deps) *TrafficSigns {
	planCommon := func(p *signPlan) *models.DeviceCommon { return &p.DeviceCommon }
	realCommon := func(r *signReal) *models.DeviceCommon { return &r.DeviceCommon }

	planCols := append(signColumns(deps, planCommon, func(p *signPlan) *models.TrafficSignAttrs { return &p.TrafficSignAttrs }),
		refColumn("mount_plan__id", func(p *signPlan) **uuid.UUID { return &p.MountPlanID }, existsIn(stores.MountPlan)),
		refColumn("plan__id", func(p *signPlan) **uuid.UUID { return &p.PlanID }, existsIn(stores.Envelope)),
	)
	realCols := append(signColumns(deps, realCommon, func(r *signReal) *models.TrafficSignAttrs { return &r.TrafficSignAttrs }),
		textColumn("legacy_code", func(r *signReal) *string { return &r.LegacyCode }),
		refColumn("traffic_sign_plan__id", func(r *signReal) **uuid.UUID { return &r.TrafficSignPlanID }, existsIn(stores.Plans.GetByID)),
		refColumn("mount_real__id", func(r *signReal) **uuid.UUID { return &r.MountRealID }, existsIn(stores.MountReal)),
		textColumn("installation_id", func(r *signReal) *string { return &r.InstallationID }),
		textColumn("permit_decision_id", func(r *signReal) *string { return &r.PermitDecisionID }),
		textColumn("manufacturer", func(r *signReal) *string { return &r.Manufacturer }),
		textColumn("attachment_url", func(r *signReal) *string { return &r.AttachmentURL }),
		dateColumn("installation_date", func(r *signReal) **time.Time { return &r.InstallationDate }),
		optEnumColumn("installation_status", func(r *signReal) **device.InstallationStatus { return &r.InstallationStatus }, device.ParseInstallationStatus),
		optEnumColumn("condition", func(r *signReal) **device.Condition { return &r.Condition }, device.ParseCondition),
	)

	family := device.FamilyTrafficSign
	return &TrafficSigns{
		Plans: newCodec(family.PlanObject(), planCols, planCommon,
			Store[signPlan](&planStore[signPlan]{rows: stores.Plans, writer: stores.PlanWriter, common: planCommon}), deps),
		Reals: newCodec(family.RealObject(), realCols, realCommon,
			Store[signReal](&realStore[signReal]{rows: stores.Reals, object: family.RealObject(), common: realCommon, authz: stores.Authz, bounds: deps.Bounds, audit: deps.Audit}), deps),
		plans:      stores.Plans,
		mountPlans: stores.MountPlans,
	}
}

func signColumns[T any](deps Deps, dev func(*T) *models.DeviceCommon, attrs func(*T) *models.TrafficSignAttrs) []Column[T] {
	l := deps.Lookups
	return []Column[T]{
		idColumn(func(r *T) *uuid.UUID { return &dev(r).ID }),
		ownerColumn(l, func(r *T) **uuid.UUID { return &dev(r).OwnerID }),
		responsibleEntityColumn(l, func(r *T) **uuid.UUID { return &dev(r).ResponsibleEntityID }),
		enumColumn("lifecycle", func(r *T) *device.Lifecycle { return &dev(r).Lifecycle }, device.ParseLifecycle, device.LifecycleActive),
		locationColumn(func(r *T) *geo.Geometry { return &dev(r).Location }, deps.SRID, deps.Bounds),
		textColumn("road_name", func(r *T) *string { return &attrs(r).RoadName }),
		textColumn("lane_number", func(r *T) *string { return &attrs(r).LaneNumber }),
		deviceTypeColumn(l, device.FamilyTrafficSign, func(r *T) **uuid.UUID { return &dev(r).DeviceTypeID }),
		intColumn("direction", func(r *T) *int { return &attrs(r).Direction }),
		optIntColumn("height", func(r *T) **int { return &attrs(r).Height }),
		mountTypeColumn(l, func(r *T) **uuid.UUID { return &attrs(r).MountTypeID }),
		optFloatColumn("value", func(r *T) **float64 { return &attrs(r).Value }),
		optEnumColumn("size", func(r *T) **device.Size { return &attrs(r).Size }, device.ParseSize),
		optEnumColumn("reflection_class", func(r *T) **device.Reflection { return &attrs(r).ReflectionClass }, device.ParseReflection),
		optEnumColumn("surface_class", func(r *T) **device.Surface { return &attrs(r).SurfaceClass }, device.ParseSurface),
		textColumn("txt", func(r *T) *string { return &attrs(r).Txt }),
		dateColumn("validity_period_start", func(r *T) **time.Time { return &dev(r).ValidityPeriodStart }),
		dateColumn("validity_period_end", func(r *T) **time.Time { return &dev(r).ValidityPeriodEnd }),
	}
}

// ExportAsRealTemplate writes the active plans in the real schema so the
// file can be filled in and imported as reals. id is the plan's existing
// real, if any, and mount_real__id the first real of the plan's mount.
func (s *TrafficSigns) ExportAsRealTemplate(ctx context.Context, w io.Writer, format Format) (int, error) {
	plans, err := s.plans.Active(ctx)
	if err != nil {
		return 0, err
	}

	reals := make([]*signReal, 0, len(plans))
	for _, p := range plans {
		r := &signReal{TrafficSignAttrs: p.TrafficSignAttrs}
		r.DeviceCommon = p.DeviceCommon
		r.ID = uuid.Nil
		planID := p.ID
		r.TrafficSignPlanID = &planID

		if r.ID, err = firstReal(ctx, s.plans, p.ID); err != nil {
			return 0, err
		}
		if p.MountPlanID != nil && s.mountPlans != nil {
			mount, err := firstReal(ctx, s.mountPlans, *p.MountPlanID)
			if err != nil {
				return 0, err
			}
			if mount != uuid.Nil {
				r.MountRealID = &mount
			}
		}
		reals = append(reals, r)
	}

	if err := s.Reals.writeRows(ctx, w, format, reals); err != nil {
		return 0, err
	}
	return len(reals), nil
}

func firstReal(ctx context.Context, links RealLinks, planID uuid.UUID) (uuid.UUID, error) {
	ids, err := links.RealIDsFor(ctx, planID)
	if err != nil || len(ids) == 0 {
		return uuid.Nil, err
	}
	return ids[0], nil
}
