package deviceio

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/cityinfra/trafficcontrol/internal/application/device/usecases"
	"github.com/cityinfra/trafficcontrol/internal/domain/device"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/persistence/models"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/repository"
	apperrors "github.com/cityinfra/trafficcontrol/internal/shared/errors"
	"github.com/cityinfra/trafficcontrol/internal/shared/logger"
)

const parkingZoneSchema = `{
	"type": "object",
	"properties": {
		"zone": {"type": "string"},
		"limit": {"type": "string"},
		"unit": {"type": "string", "enum": ["min", "h"]}
	},
	"required": ["zone", "limit", "unit"]
}`

type additionalFixture struct {
	*fixture
	plans  *repository.PlanRepositoryImpl[addPlan, *addPlan]
	reals  *repository.RealRepositoryImpl[addReal, *addReal]
	codecs *AdditionalSigns
}

func newAdditionalFixture(t *testing.T) *additionalFixture {
	t.Helper()
	f := newFixture(t)
	log := logger.NewNop()
	require.NoError(t, f.gdb.Create(&models.DeviceTypeModel{
		Code:          "H20.72",
		Description:   "Parking zone",
		TargetModel:   device.TargetAdditionalSign,
		ContentSchema: datatypes.JSON(parkingZoneSchema),
	}).Error)

	lifecycles := usecases.NewLifecycles(f.gdb, f.deps.Tx, f.deps.Audit, nil, projectionBounds, log)
	af := &additionalFixture{
		fixture: f,
		plans:   repository.NewPlanRepository[addPlan](f.gdb, log),
		reals:   repository.NewRealRepository[addReal](f.gdb, log),
	}
	af.codecs = NewAdditionalSigns(AdditionalSignStores{
		Plans:      af.plans,
		PlanWriter: usecases.Typed[addPlan](lifecycles),
		Reals:      af.reals,
		ParentPlan: f.plans.GetByID,
		ParentReal: f.reals.GetByID,
		Envelope:   repository.NewPlanEnvelopeRepository(f.gdb, log).GetByID,
	}, f.deps)
	return af
}

func TestAdditionalSigns_ImportPlans(t *testing.T) {
	af := newAdditionalFixture(t)
	ctx := context.Background()
	parent := af.createPlan(t, "50")

	data := csvFile(
		"location,device_type__code,parent__id,additional_information,content_s,missing_content",
		`SRID=3879;POINT Z (25496000 6673000 0),H20.72,`+parent.ID.String()+`,"text: 1 20 min","{""zone"": ""1"", ""limit"": ""20"", ""unit"": ""min""}",false`,
		`SRID=3879;POINT Z (25496100 6673100 0),H20.72,,text:,,true`,
	)
	report, err := af.codecs.Plans.Import(ctx, nil, data, ImportOptions{FileName: "additional.csv"})
	require.NoError(t, err)
	require.False(t, report.HasErrors(), "%+v", report.Rows)
	assert.Equal(t, map[string]int{RowNew: 2}, report.Counts())

	withContent, err := af.plans.GetByID(ctx, uuid.MustParse(report.Rows[0].ID))
	require.NoError(t, err)
	require.NotNil(t, withContent)
	assert.Equal(t, parent.ID, *withContent.ParentID)
	assert.False(t, withContent.MissingContent)
	assert.JSONEq(t, `{"zone": "1", "limit": "20", "unit": "min"}`, string(withContent.ContentS))

	var buf bytes.Buffer
	n, err := af.codecs.Plans.Export(ctx, &buf, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	rows := readCSV(t, buf.Bytes())
	byID := map[string]map[string]string{}
	for _, row := range rows {
		byID[row["id"]] = row
	}
	assert.Equal(t, `{"zone":"1","limit":"20","unit":"min"}`, byID[report.Rows[0].ID]["content_s"])
	assert.Equal(t, "false", byID[report.Rows[0].ID]["missing_content"])
	assert.Equal(t, "", byID[report.Rows[1].ID]["content_s"])
	assert.Equal(t, "true", byID[report.Rows[1].ID]["missing_content"])

	report, err = af.codecs.Plans.Import(ctx, nil, buf.Bytes(), ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{RowSkipped: 2}, report.Counts())
}

func TestAdditionalSigns_ContentErrorsWriteNothing(t *testing.T) {
	tests := []struct {
		name    string
		content string
		missing string
		kind    apperrors.Kind
	}{
		{"unit outside the enum", `"{""zone"": ""1"", ""limit"": ""20"", ""unit"": ""days""}"`, "false", apperrors.KindContentSchemaMismatch},
		{"required key absent", `"{""zone"": ""1""}"`, "false", apperrors.KindContentSchemaMismatch},
		{"no content and not missing", "", "false", apperrors.KindContentSchemaMismatch},
		{"content while missing", `"{""zone"": ""1"", ""limit"": ""20"", ""unit"": ""h""}"`, "true", apperrors.KindMissingContentConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			af := newAdditionalFixture(t)
			ctx := context.Background()
			data := csvFile(
				"location,device_type__code,content_s,missing_content",
				"SRID=3879;POINT Z (25496000 6673000 0),H20.72,,true",
				"SRID=3879;POINT Z (25496100 6673100 0),H20.72,"+tt.content+","+tt.missing,
			)

			for _, codec := range []interface {
				Import(context.Context, *models.UserModel, []byte, ImportOptions) (*ImportReport, error)
			}{af.codecs.Plans, af.codecs.Reals} {
				report, err := codec.Import(ctx, nil, data, ImportOptions{})
				require.NoError(t, err)
				require.True(t, report.HasErrors())
				require.Len(t, report.Rows[1].Errors, 1)
				assert.Equal(t, tt.kind, report.Rows[1].Errors[0].Kind)
			}

			plans, err := af.plans.Active(ctx)
			require.NoError(t, err)
			assert.Empty(t, plans)
			reals, err := af.reals.Active(ctx)
			require.NoError(t, err)
			assert.Empty(t, reals)
		})
	}
}

func TestAdditionalSigns_ImportReals(t *testing.T) {
	af := newAdditionalFixture(t)
	ctx := context.Background()
	parent := af.createReal(t, af.createPlan(t, "50").ID)

	data := csvFile(
		"location,device_type__code,parent__id,missing_content,installation_status,manufacturer",
		"SRID=3879;POINT Z (25496000 6673000 0),H20.72,"+parent.ID.String()+",true,IN_USE,Acme",
		"SRID=3879;POINT Z (25496000 6673000 0),C32,,true,,",
		"SRID=3879;POINT Z (0 0 0),H20.72,,true,,",
	)
	report, err := af.codecs.Reals.Import(ctx, nil, data, ImportOptions{})
	require.NoError(t, err)
	require.True(t, report.HasErrors())
	assert.Equal(t, RowNew, report.Rows[0].Status)
	assert.Equal(t, apperrors.KindDeviceTypeUnsupported, report.Rows[1].Errors[0].Kind)
	assert.Equal(t, apperrors.KindGeometryOutOfBounds, report.Rows[2].Errors[0].Kind)

	report, err = af.codecs.Reals.Import(ctx, nil, csvFile(
		"location,device_type__code,parent__id,missing_content,installation_status,manufacturer",
		"SRID=3879;POINT Z (25496000 6673000 0),H20.72,"+parent.ID.String()+",true,IN_USE,Acme",
	), ImportOptions{})
	require.NoError(t, err)
	require.False(t, report.HasErrors(), "%+v", report.Rows)

	r, err := af.reals.GetByID(ctx, uuid.MustParse(report.Rows[0].ID))
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, parent.ID, *r.ParentID)
	assert.True(t, r.MissingContent)
	assert.Equal(t, "Acme", r.Manufacturer)
	assert.Equal(t, device.InstallationInUse, *r.InstallationStatus)
}
