// Package device holds the vocabulary shared by every traffic control device
// family: family descriptors, enums, validity windows and device type rules.
package device

import (
	apperrors "github.com/cityinfra/trafficcontrol/internal/shared/errors"
)

// Family identifies one device kind. Every family has a plan table, a real
// table and a replacement edge table derived from its name.
type Family string

const (
	FamilyBarrier           Family = "barrier"
	FamilyMount             Family = "mount"
	FamilyRoadMarking       Family = "road_marking"
	FamilySignpost          Family = "signpost"
	FamilyTrafficLight      Family = "traffic_light"
	FamilyTrafficSign       Family = "traffic_sign"
	FamilyAdditionalSign    Family = "additional_sign"
	FamilyFurnitureSignpost Family = "furniture_signpost"
)

// Families lists every family in a stable order.
var Families = []Family{
	FamilyBarrier,
	FamilyMount,
	FamilyRoadMarking,
	FamilySignpost,
	FamilyTrafficLight,
	FamilyTrafficSign,
	FamilyAdditionalSign,
	FamilyFurnitureSignpost,
}

func (f Family) String() string { return string(f) }

func (f Family) IsValid() bool {
	for _, known := range Families {
		if f == known {
			return true
		}
	}
	return false
}

// ParseFamily accepts the family name as used on the command line.
func ParseFamily(s string) (Family, error) {
	f := Family(s)
	if !f.IsValid() {
		return "", apperrors.Newf(apperrors.KindInvalidEnumValue, "unknown device family %q", s)
	}
	return f, nil
}

func (f Family) PlanTable() string        { return string(f) + "_plans" }
func (f Family) RealTable() string        { return string(f) + "_reals" }
func (f Family) ReplacementTable() string { return string(f) + "_plan_replacements" }

// PlanColumn is the column on the real table pointing at its plan.
func (f Family) PlanColumn() string { return string(f) + "_plan_id" }

// PlanObject and RealObject name the family in permission checks and audit rows.
func (f Family) PlanObject() string { return string(f) + "_plan" }
func (f Family) RealObject() string { return string(f) + "_real" }

// TargetModel is the device type target a family accepts. Mounts and
// furniture signposts carry no device type restriction.
func (f Family) TargetModel() TargetModel {
	switch f {
	case FamilyBarrier:
		return TargetBarrier
	case FamilyRoadMarking:
		return TargetRoadMarking
	case FamilySignpost:
		return TargetSignpost
	case FamilyTrafficLight:
		return TargetTrafficLight
	case FamilyTrafficSign:
		return TargetTrafficSign
	case FamilyAdditionalSign:
		return TargetAdditionalSign
	}
	return ""
}
