package models

import "github.com/cityinfra/trafficcontrol/internal/domain/device"

// FamilyModels returns zero values of the plan, real and replacement rows of f.
func FamilyModels(f device.Family) (plan PlanRecord, realRow RealRecord, replacement any) {
	switch f {
	case device.FamilyBarrier:
		return &BarrierPlanModel{}, &BarrierRealModel{}, &BarrierPlanReplacementModel{}
	case device.FamilyMount:
		return &MountPlanModel{}, &MountRealModel{}, &MountPlanReplacementModel{}
	case device.FamilyRoadMarking:
		return &RoadMarkingPlanModel{}, &RoadMarkingRealModel{}, &RoadMarkingPlanReplacementModel{}
	case device.FamilySignpost:
		return &SignpostPlanModel{}, &SignpostRealModel{}, &SignpostPlanReplacementModel{}
	case device.FamilyTrafficLight:
		return &TrafficLightPlanModel{}, &TrafficLightRealModel{}, &TrafficLightPlanReplacementModel{}
	case device.FamilyTrafficSign:
		return &TrafficSignPlanModel{}, &TrafficSignRealModel{}, &TrafficSignPlanReplacementModel{}
	case device.FamilyAdditionalSign:
		return &AdditionalSignPlanModel{}, &AdditionalSignRealModel{}, &AdditionalSignPlanReplacementModel{}
	case device.FamilyFurnitureSignpost:
		return &FurnitureSignpostPlanModel{}, &FurnitureSignpostRealModel{}, &FurnitureSignpostPlanReplacementModel{}
	}
	return nil, nil, nil
}

// AllModels lists every table managed by AutoMigrate, parents first.
func AllModels() []any {
	out := []any{
		&OwnerModel{},
		&MountTypeModel{},
		&DeviceTypeModel{},
		&ResponsibleEntityModel{},
		&OperationalAreaModel{},
		&GroupModel{},
		&UserModel{},
		&UserDeactivationStatusModel{},
		&PlanModel{},
	}
	for _, f := range device.Families {
		plan, realRow, replacement := FamilyModels(f)
		out = append(out, plan, realRow, replacement)
	}
	return append(out,
		&AuditLogEntryModel{},
		&PlanGeometryImportLogModel{},
		&ParkingZoneUpdateInfoModel{},
		&PlanRealMappingLogModel{},
	)
}
