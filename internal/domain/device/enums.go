package device

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	apperrors "github.com/cityinfra/trafficcontrol/internal/shared/errors"
)

// enumNames maps enum values to the names used in exports and imports.
type enumNames[T cmp.Ordered] map[T]string

func (n enumNames[T]) name(v T) string {
	if s, ok := n[v]; ok {
		return s
	}
	return fmt.Sprint(v)
}

func (n enumNames[T]) parse(s string) (T, error) {
	s = strings.TrimSpace(s)
	for v, name := range n {
		if name == s {
			return v, nil
		}
	}
	var zero T
	return zero, apperrors.Newf(apperrors.KindInvalidEnumValue,
		"Value '%s' is invalid. Valid values are %s", s, strings.Join(n.valid(), ", "))
}

func (n enumNames[T]) valid() []string {
	keys := make([]T, 0, len(n))
	for k := range n {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, n[k])
	}
	return out
}

type Lifecycle int

const (
	LifecycleActive              Lifecycle = 3
	LifecycleTemporarilyActive   Lifecycle = 4
	LifecycleTemporarilyInactive Lifecycle = 5
	LifecycleInactive            Lifecycle = 6
)

var lifecycleNames = enumNames[Lifecycle]{
	LifecycleActive:              "ACTIVE",
	LifecycleTemporarilyActive:   "TEMPORARILY_ACTIVE",
	LifecycleTemporarilyInactive: "TEMPORARILY_INACTIVE",
	LifecycleInactive:            "INACTIVE",
}

// ActiveLifecycles are the lifecycles a device is in effect with.
var ActiveLifecycles = []Lifecycle{LifecycleActive, LifecycleTemporarilyActive}

func (l Lifecycle) String() string { return lifecycleNames.name(l) }

func (l Lifecycle) IsValid() bool {
	_, ok := lifecycleNames[l]
	return ok
}

func (l Lifecycle) IsActive() bool {
	return slices.Contains(ActiveLifecycles, l)
}

func ParseLifecycle(s string) (Lifecycle, error) { return lifecycleNames.parse(s) }

type InstallationStatus string

const (
	InstallationInUse   InstallationStatus = "IN_USE"
	InstallationCovered InstallationStatus = "COVERED"
	InstallationFallen  InstallationStatus = "FALLEN"
	InstallationMissing InstallationStatus = "MISSING"
	InstallationOther   InstallationStatus = "OTHER"
)

var installationStatusNames = enumNames[InstallationStatus]{
	InstallationInUse:   "IN_USE",
	InstallationCovered: "COVERED",
	InstallationFallen:  "FALLEN",
	InstallationMissing: "MISSING",
	InstallationOther:   "OTHER",
}

func (s InstallationStatus) String() string { return string(s) }

func ParseInstallationStatus(s string) (InstallationStatus, error) {
	return installationStatusNames.parse(s)
}

type Condition int

const (
	ConditionVeryBad  Condition = 1
	ConditionBad      Condition = 2
	ConditionAverage  Condition = 3
	ConditionGood     Condition = 4
	ConditionVeryGood Condition = 5
)

var conditionNames = enumNames[Condition]{
	ConditionVeryBad:  "VERY_BAD",
	ConditionBad:      "BAD",
	ConditionAverage:  "AVERAGE",
	ConditionGood:     "GOOD",
	ConditionVeryGood: "VERY_GOOD",
}

func (c Condition) String() string { return conditionNames.name(c) }

func ParseCondition(s string) (Condition, error) { return conditionNames.parse(s) }

// TargetModel restricts which family a device type may be attached to.
type TargetModel string

const (
	TargetBarrier        TargetModel = "barrier"
	TargetRoadMarking    TargetModel = "road_marking"
	TargetSignpost       TargetModel = "signpost"
	TargetTrafficLight   TargetModel = "traffic_light"
	TargetTrafficSign    TargetModel = "traffic_sign"
	TargetAdditionalSign TargetModel = "additional_sign"
	TargetOther          TargetModel = "other"
)

var targetModelNames = enumNames[TargetModel]{
	TargetBarrier:        "BARRIER",
	TargetRoadMarking:    "ROAD_MARKING",
	TargetSignpost:       "SIGNPOST",
	TargetTrafficLight:   "TRAFFIC_LIGHT",
	TargetTrafficSign:    "TRAFFIC_SIGN",
	TargetAdditionalSign: "ADDITIONAL_SIGN",
	TargetOther:          "OTHER",
}

func (t TargetModel) String() string { return targetModelNames.name(t) }

func ParseTargetModel(s string) (TargetModel, error) { return targetModelNames.parse(s) }

// Size, Reflection and Surface describe a sign face.
type Size string

const (
	SizeSmall  Size = "S"
	SizeMedium Size = "M"
	SizeLarge  Size = "L"
)

var sizeNames = enumNames[Size]{SizeSmall: "SMALL", SizeMedium: "MEDIUM", SizeLarge: "LARGE"}

func (s Size) String() string { return sizeNames.name(s) }

func ParseSize(s string) (Size, error) { return sizeNames.parse(s) }

type Reflection string

const (
	ReflectionR1 Reflection = "R1"
	ReflectionR2 Reflection = "R2"
	ReflectionR3 Reflection = "R3"
)

var reflectionNames = enumNames[Reflection]{ReflectionR1: "R1", ReflectionR2: "R2", ReflectionR3: "R3"}

func (r Reflection) String() string { return reflectionNames.name(r) }

func ParseReflection(s string) (Reflection, error) { return reflectionNames.parse(s) }

type Surface string

const (
	SurfaceConvex Surface = "CONVEX"
	SurfaceFlat   Surface = "FLAT"
)

var surfaceNames = enumNames[Surface]{SurfaceConvex: "CONVEX", SurfaceFlat: "FLAT"}

func (s Surface) String() string { return surfaceNames.name(s) }

func ParseSurface(s string) (Surface, error) { return surfaceNames.parse(s) }
