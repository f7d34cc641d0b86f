package models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/cityinfra/trafficcontrol/internal/domain/device"
)

// Barrier

type BarrierAttrs struct {
	RoadName       string `gorm:"size:254"`
	Material       string `gorm:"size:64"`
	IsElectric     bool
	Length         *float64
	Reflective     bool
	LaneNumber     string `gorm:"size:8"`
	AdditionalInfo string `gorm:"type:text"`
}

type BarrierPlanModel struct {
	PlanCommon
	BarrierAttrs
}

func (BarrierPlanModel) TableName() string     { return device.FamilyBarrier.PlanTable() }
func (BarrierPlanModel) Family() device.Family { return device.FamilyBarrier }

type BarrierRealModel struct {
	RealCommon
	BarrierAttrs
	BarrierPlanID *uuid.UUID `gorm:"type:uuid;uniqueIndex"`
}

func (BarrierRealModel) TableName() string           { return device.FamilyBarrier.RealTable() }
func (BarrierRealModel) Family() device.Family       { return device.FamilyBarrier }
func (r *BarrierRealModel) PlanRef() *uuid.UUID      { return r.BarrierPlanID }
func (r *BarrierRealModel) SetPlanRef(id *uuid.UUID) { r.BarrierPlanID = id }

type BarrierPlanReplacementModel struct{ ReplacementEdge }

func (BarrierPlanReplacementModel) TableName() string { return device.FamilyBarrier.ReplacementTable() }

// Mount

type MountAttrs struct {
	MountTypeID  *uuid.UUID `gorm:"type:uuid;index"`
	Height       *float64
	Material     string `gorm:"size:64"`
	Diameter     *float64
	IsFoldable   bool
	ElectricAccu bool
	Txt          string `gorm:"size:254"`
}

type MountPlanModel struct {
	PlanCommon
	MountAttrs
}

func (MountPlanModel) TableName() string     { return device.FamilyMount.PlanTable() }
func (MountPlanModel) Family() device.Family { return device.FamilyMount }

type MountRealModel struct {
	RealCommon
	MountAttrs
	MountPlanID *uuid.UUID `gorm:"type:uuid;uniqueIndex"`
}

func (MountRealModel) TableName() string           { return device.FamilyMount.RealTable() }
func (MountRealModel) Family() device.Family       { return device.FamilyMount }
func (r *MountRealModel) PlanRef() *uuid.UUID      { return r.MountPlanID }
func (r *MountRealModel) SetPlanRef(id *uuid.UUID) { r.MountPlanID = id }

type MountPlanReplacementModel struct{ ReplacementEdge }

func (MountPlanReplacementModel) TableName() string { return device.FamilyMount.ReplacementTable() }

// Road marking

type RoadMarkingAttrs struct {
	RoadName      string `gorm:"size:254"`
	ValueText     string `gorm:"size:254"`
	Color         int
	Material      string `gorm:"size:64"`
	IsGrinded     bool
	IsRaised      bool
	LaneNumber    string     `gorm:"size:8"`
	SymbolText    string     `gorm:"size:254"`
	AmountText    string     `gorm:"size:254"`
	TrafficSignID *uuid.UUID `gorm:"type:uuid;index"`
}

type RoadMarkingPlanModel struct {
	PlanCommon
	RoadMarkingAttrs
}

func (RoadMarkingPlanModel) TableName() string     { return device.FamilyRoadMarking.PlanTable() }
func (RoadMarkingPlanModel) Family() device.Family { return device.FamilyRoadMarking }

type RoadMarkingRealModel struct {
	RealCommon
	RoadMarkingAttrs
	RoadMarkingPlanID *uuid.UUID `gorm:"type:uuid;uniqueIndex"`
}

func (RoadMarkingRealModel) TableName() string           { return device.FamilyRoadMarking.RealTable() }
func (RoadMarkingRealModel) Family() device.Family       { return device.FamilyRoadMarking }
func (r *RoadMarkingRealModel) PlanRef() *uuid.UUID      { return r.RoadMarkingPlanID }
func (r *RoadMarkingRealModel) SetPlanRef(id *uuid.UUID) { r.RoadMarkingPlanID = id }

type RoadMarkingPlanReplacementModel struct{ ReplacementEdge }

func (RoadMarkingPlanReplacementModel) TableName() string {
	return device.FamilyRoadMarking.ReplacementTable()
}

// Signpost

type SignpostAttrs struct {
	Txt          string `gorm:"size:254"`
	Height       *int
	Direction    int
	MountTypeID  *uuid.UUID   `gorm:"type:uuid"`
	Size         *device.Size `gorm:"size:1"`
	TargetTxt    string       `gorm:"size:254"`
	DistanceText string       `gorm:"size:254"`
}

type SignpostPlanModel struct {
	PlanCommon
	SignpostAttrs
}

func (SignpostPlanModel) TableName() string     { return device.FamilySignpost.PlanTable() }
func (SignpostPlanModel) Family() device.Family { return device.FamilySignpost }

type SignpostRealModel struct {
	RealCommon
	SignpostAttrs
	SignpostPlanID *uuid.UUID `gorm:"type:uuid;uniqueIndex"`
}

func (SignpostRealModel) TableName() string           { return device.FamilySignpost.RealTable() }
func (SignpostRealModel) Family() device.Family       { return device.FamilySignpost }
func (r *SignpostRealModel) PlanRef() *uuid.UUID      { return r.SignpostPlanID }
func (r *SignpostRealModel) SetPlanRef(id *uuid.UUID) { r.SignpostPlanID = id }

type SignpostPlanReplacementModel struct{ ReplacementEdge }

func (SignpostPlanReplacementModel) TableName() string { return device.FamilySignpost.ReplacementTable() }

// Traffic light

type TrafficLightAttrs struct {
	Direction   int
	Type        string `gorm:"size:32"`
	Txt         string `gorm:"size:254"`
	Height      *float64
	VehicleType string `gorm:"size:32"`
	PushButton  bool
	SoundBeacon bool
	LaneNumber  string     `gorm:"size:8"`
	RoadName    string     `gorm:"size:254"`
	MountTypeID *uuid.UUID `gorm:"type:uuid"`
}

type TrafficLightPlanModel struct {
	PlanCommon
	TrafficLightAttrs
}

func (TrafficLightPlanModel) TableName() string     { return device.FamilyTrafficLight.PlanTable() }
func (TrafficLightPlanModel) Family() device.Family { return device.FamilyTrafficLight }

type TrafficLightRealModel struct {
	RealCommon
	TrafficLightAttrs
	TrafficLightPlanID *uuid.UUID `gorm:"type:uuid;uniqueIndex"`
}

func (TrafficLightRealModel) TableName() string           { return device.FamilyTrafficLight.RealTable() }
func (TrafficLightRealModel) Family() device.Family       { return device.FamilyTrafficLight }
func (r *TrafficLightRealModel) PlanRef() *uuid.UUID      { return r.TrafficLightPlanID }
func (r *TrafficLightRealModel) SetPlanRef(id *uuid.UUID) { r.TrafficLightPlanID = id }

type TrafficLightPlanReplacementModel struct{ ReplacementEdge }

func (TrafficLightPlanReplacementModel) TableName() string {
	return device.FamilyTrafficLight.ReplacementTable()
}

// Traffic sign

type TrafficSignAttrs struct {
	RoadName        string `gorm:"size:254"`
	LaneNumber      string `gorm:"size:8"`
	Direction       int
	Height          *int
	MountTypeID     *uuid.UUID `gorm:"type:uuid"`
	Value           *float64
	Size            *device.Size       `gorm:"size:1"`
	ReflectionClass *device.Reflection `gorm:"size:2"`
	SurfaceClass    *device.Surface    `gorm:"size:6"`
	Txt             string             `gorm:"size:254"`
}

type TrafficSignPlanModel struct {
	PlanCommon
	TrafficSignAttrs
	MountPlanID *uuid.UUID `gorm:"type:uuid;index"`
}

func (TrafficSignPlanModel) TableName() string     { return device.FamilyTrafficSign.PlanTable() }
func (TrafficSignPlanModel) Family() device.Family { return device.FamilyTrafficSign }

type TrafficSignRealModel struct {
	RealCommon
	TrafficSignAttrs
	TrafficSignPlanID *uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	MountRealID       *uuid.UUID `gorm:"type:uuid;index"`
	LegacyCode        string     `gorm:"size:32"`
	InstallationID    string     `gorm:"size:254"`
	PermitDecisionID  string     `gorm:"size:254"`
	Manufacturer      string     `gorm:"size:254"`
	AttachmentURL     string     `gorm:"size:500"`
}

func (TrafficSignRealModel) TableName() string           { return device.FamilyTrafficSign.RealTable() }
func (TrafficSignRealModel) Family() device.Family       { return device.FamilyTrafficSign }
func (r *TrafficSignRealModel) PlanRef() *uuid.UUID      { return r.TrafficSignPlanID }
func (r *TrafficSignRealModel) SetPlanRef(id *uuid.UUID) { r.TrafficSignPlanID = id }

type TrafficSignPlanReplacementModel struct{ ReplacementEdge }

func (TrafficSignPlanReplacementModel) TableName() string {
	return device.FamilyTrafficSign.ReplacementTable()
}

// Additional sign

type AdditionalSignAttrs struct {
	ParentID              *uuid.UUID `gorm:"type:uuid;index"`
	AdditionalInformation string     `gorm:"type:text"`
	ContentS              datatypes.JSON
	MissingContent        bool
	Height                *int
	Size                  *device.Size `gorm:"size:1"`
	Direction             int
	Color                 int
	RoadName              string     `gorm:"size:254"`
	LaneNumber            string     `gorm:"size:8"`
	MountTypeID           *uuid.UUID `gorm:"type:uuid"`
}

type AdditionalSignPlanModel struct {
	PlanCommon
	AdditionalSignAttrs
}

func (AdditionalSignPlanModel) TableName() string     { return device.FamilyAdditionalSign.PlanTable() }
func (AdditionalSignPlanModel) Family() device.Family { return device.FamilyAdditionalSign }

type AdditionalSignRealModel struct {
	RealCommon
	AdditionalSignAttrs
	AdditionalSignPlanID *uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	AttachmentURL        string     `gorm:"size:500"`
	Manufacturer         string     `gorm:"size:254"`
}

func (AdditionalSignRealModel) TableName() string           { return device.FamilyAdditionalSign.RealTable() }
func (AdditionalSignRealModel) Family() device.Family       { return device.FamilyAdditionalSign }
func (r *AdditionalSignRealModel) PlanRef() *uuid.UUID      { return r.AdditionalSignPlanID }
func (r *AdditionalSignRealModel) SetPlanRef(id *uuid.UUID) { r.AdditionalSignPlanID = id }

// validateContent checks content against the content schema of deviceTypeID.
func (a *AdditionalSignAttrs) validateContent(tx *gorm.DB, deviceTypeID *uuid.UUID) error {
	var raw datatypes.JSON
	if deviceTypeID != nil {
		var dt DeviceTypeModel
		err := tx.Session(&gorm.Session{NewDB: true}).Select("content_schema").First(&dt, "id = ?", *deviceTypeID).Error
		if err != nil {
			return err
		}
		raw = dt.ContentSchema
	}
	schema, err := device.CompileContentSchema(raw)
	if err != nil {
		return err
	}
	return device.ValidateContent(schema, a.ContentS, a.MissingContent)
}

func (m *AdditionalSignPlanModel) BeforeSave(tx *gorm.DB) error {
	return m.validateContent(tx, m.DeviceTypeID)
}

func (m *AdditionalSignRealModel) BeforeSave(tx *gorm.DB) error {
	return m.validateContent(tx, m.DeviceTypeID)
}

type AdditionalSignPlanReplacementModel struct{ ReplacementEdge }

func (AdditionalSignPlanReplacementModel) TableName() string {
	return device.FamilyAdditionalSign.ReplacementTable()
}

// Furniture signpost

type FurnitureSignpostAttrs struct {
	Direction       int
	Txt             string `gorm:"size:254"`
	TextContentFi   string `gorm:"size:254"`
	TextContentSw   string `gorm:"size:254"`
	TextContentEn   string `gorm:"size:254"`
	ArrowDirection  *int
	PictogramSymbol string     `gorm:"size:64"`
	MountTypeID     *uuid.UUID `gorm:"type:uuid"`
}

type FurnitureSignpostPlanModel struct {
	PlanCommon
	FurnitureSignpostAttrs
}

func (FurnitureSignpostPlanModel) TableName() string {
	return device.FamilyFurnitureSignpost.PlanTable()
}
func (FurnitureSignpostPlanModel) Family() device.Family { return device.FamilyFurnitureSignpost }

type FurnitureSignpostRealModel struct {
	RealCommon
	FurnitureSignpostAttrs
	FurnitureSignpostPlanID *uuid.UUID `gorm:"type:uuid;uniqueIndex"`
}

func (FurnitureSignpostRealModel) TableName() string {
	return device.FamilyFurnitureSignpost.RealTable()
}
func (FurnitureSignpostRealModel) Family() device.Family       { return device.FamilyFurnitureSignpost }
func (r *FurnitureSignpostRealModel) PlanRef() *uuid.UUID      { return r.FurnitureSignpostPlanID }
func (r *FurnitureSignpostRealModel) SetPlanRef(id *uuid.UUID) { r.FurnitureSignpostPlanID = id }

type FurnitureSignpostPlanReplacementModel struct{ ReplacementEdge }

func (FurnitureSignpostPlanReplacementModel) TableName() string {
	return device.FamilyFurnitureSignpost.ReplacementTable()
}
