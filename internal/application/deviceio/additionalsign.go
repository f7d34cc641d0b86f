package deviceio

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/cityinfra/trafficcontrol/internal/application/device/usecases"
	"github.com/cityinfra/trafficcontrol/internal/domain/device"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/persistence/models"
	"github.com/cityinfra/trafficcontrol/internal/shared/geo"
)

type (
	addPlan = models.AdditionalSignPlanModel
	addReal = models.AdditionalSignRealModel
)

// AdditionalSignStores are the repositories the additional sign codecs work on.
// ParentPlan and ParentReal resolve the traffic sign a row is attached to.
type AdditionalSignStores struct {
	Plans      PlanRows[*addPlan]
	PlanWriter PlanWriter[*addPlan]
	Reals      RealRows[*addReal]
	ParentPlan func(ctx context.Context, id uuid.UUID) (*signPlan, error)
	ParentReal func(ctx context.Context, id uuid.UUID) (*signReal, error)
	Envelope   func(ctx context.Context, id uuid.UUID) (*models.PlanModel, error)
	Authz      usecases.Authorizer
}

// AdditionalSigns holds the plan and real codecs of the additional sign family.
type AdditionalSigns struct {
	Plans *Codec[addPlan]
	Reals *Codec[addReal]
}

func NewAdditionalSigns(stores AdditionalSignStores, deps Deps) *AdditionalSigns {
	planCommon := func(p *addPlan) *models.DeviceCommon { return &p.DeviceCommon }
	realCommon := func(r *addReal) *models.DeviceCommon { return &r.DeviceCommon }

	planCols := append(additionalSignColumns(deps, planCommon, func(p *addPlan) *models.AdditionalSignAttrs { return &p.AdditionalSignAttrs }),
		refColumn("parent__id", func(p *addPlan) **uuid.UUID { return &p.ParentID }, existsIn(stores.ParentPlan)),
		refColumn("plan__id", func(p *addPlan) **uuid.UUID { return &p.PlanID }, existsIn(stores.Envelope)),
	)
	realCols := append(additionalSignColumns(deps, realCommon, func(r *addReal) *models.AdditionalSignAttrs { return &r.AdditionalSignAttrs }),
		refColumn("parent__id", func(r *addReal) **uuid.UUID { return &r.ParentID }, existsIn(stores.ParentReal)),
		refColumn("additional_sign_plan__id", func(r *addReal) **uuid.UUID { return &r.AdditionalSignPlanID }, existsIn(stores.Plans.GetByID)),
		textColumn("manufacturer", func(r *addReal) *string { return &r.Manufacturer }),
		textColumn("attachment_url", func(r *addReal) *string { return &r.AttachmentURL }),
		dateColumn("installation_date", func(r *addReal) **time.Time { return &r.InstallationDate }),
		optEnumColumn("installation_status", func(r *addReal) **device.InstallationStatus { return &r.InstallationStatus }, device.ParseInstallationStatus),
		optEnumColumn("condition", func(r *addReal) **device.Condition { return &r.Condition }, device.ParseCondition),
	)

	family := device.FamilyAdditionalSign
	return &AdditionalSigns{
		Plans: newCodec(family.PlanObject(), planCols, planCommon,
			Store[addPlan](&planStore[addPlan]{rows: stores.Plans, writer: stores.PlanWriter, common: planCommon}), deps),
		Reals: newCodec(family.RealObject(), realCols, realCommon,
			Store[addReal](&realStore[addReal]{rows: stores.Reals, object: family.RealObject(), common: realCommon, authz: stores.Authz, bounds: deps.Bounds, audit: deps.Audit}), deps),
	}
}

func additionalSignColumns[T any](deps Deps, dev func(*T) *models.DeviceCommon, attrs func(*T) *models.AdditionalSignAttrs) []Column[T] {
	l := deps.Lookups
	return []Column[T]{
		idColumn(func(r *T) *uuid.UUID { return &dev(r).ID }),
		ownerColumn(l, func(r *T) **uuid.UUID { return &dev(r).OwnerID }),
		responsibleEntityColumn(l, func(r *T) **uuid.UUID { return &dev(r).ResponsibleEntityID }),
		enumColumn("lifecycle", func(r *T) *device.Lifecycle { return &dev(r).Lifecycle }, device.ParseLifecycle, device.LifecycleActive),
		locationColumn(func(r *T) *geo.Geometry { return &dev(r).Location }, deps.SRID, deps.Bounds),
		textColumn("road_name", func(r *T) *string { return &attrs(r).RoadName }),
		textColumn("lane_number", func(r *T) *string { return &attrs(r).LaneNumber }),
		deviceTypeColumn(l, device.FamilyAdditionalSign, func(r *T) **uuid.UUID { return &dev(r).DeviceTypeID }),
		intColumn("direction", func(r *T) *int { return &attrs(r).Direction }),
		optIntColumn("height", func(r *T) **int { return &attrs(r).Height }),
		optEnumColumn("size", func(r *T) **device.Size { return &attrs(r).Size }, device.ParseSize),
		intColumn("color", func(r *T) *int { return &attrs(r).Color }),
		mountTypeColumn(l, func(r *T) **uuid.UUID { return &attrs(r).MountTypeID }),
		textColumn("additional_information", func(r *T) *string { return &attrs(r).AdditionalInformation }),
		jsonColumn("content_s", func(r *T) *datatypes.JSON { return &attrs(r).ContentS }),
		boolColumn("missing_content", func(r *T) *bool { return &attrs(r).MissingContent }),
		dateColumn("validity_period_start", func(r *T) **time.Time { return &dev(r).ValidityPeriodStart }),
		dateColumn("validity_period_end", func(r *T) **time.Time { return &dev(r).ValidityPeriodEnd }),
	}
}
