package deviceio

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cityinfra/trafficcontrol/internal/application/audit"
	"github.com/cityinfra/trafficcontrol/internal/application/device/usecases"
	"github.com/cityinfra/trafficcontrol/internal/domain/device"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/persistence/models"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/persistence/testdb"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/repository"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/spatial"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/virusscan"
	"github.com/cityinfra/trafficcontrol/internal/shared/db"
	apperrors "github.com/cityinfra/trafficcontrol/internal/shared/errors"
	"github.com/cityinfra/trafficcontrol/internal/shared/geo"
	"github.com/cityinfra/trafficcontrol/internal/shared/logger"
)

var projectionBounds = spatial.NewPlanar(3879, spatial.Bounds{MinX: 25440000, MinY: 6630000, MaxX: 25571000, MaxY: 6720000})

type fakeScanner struct {
	scanFn func(files []virusscan.File) ([]virusscan.ScanError, error)
}

func (s *fakeScanner) Scan(_ context.Context, files []virusscan.File) ([]virusscan.ScanError, error) {
	return s.scanFn(files)
}

type fakeGate struct {
	rowsFn   func(object string, ids []*uuid.UUID) error
	entityFn func(id *uuid.UUID) error
}

func (g *fakeGate) CheckImportRows(_ context.Context, _ *models.UserModel, object string, ids []*uuid.UUID) error {
	if g.rowsFn == nil {
		return nil
	}
	return g.rowsFn(object, ids)
}

func (g *fakeGate) CheckResponsibleEntity(_ context.Context, _ *models.UserModel, id *uuid.UUID) error {
	if g.entityFn == nil {
		return nil
	}
	return g.entityFn(id)
}

type fixture struct {
	gdb       *gorm.DB
	plans     *repository.PlanRepositoryImpl[signPlan, *signPlan]
	reals     *repository.RealRepositoryImpl[signReal, *signReal]
	lifecycle *usecases.LifecycleService[signPlan, *signPlan]
	owner     *models.OwnerModel
	entity    *models.ResponsibleEntityModel
	signType  *models.DeviceTypeModel
	deps      Deps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := testdb.Open(t)
	log := logger.NewNop()
	ctx := context.Background()

	f := &fixture{
		gdb:      gdb,
		plans:    repository.NewPlanRepository[signPlan](gdb, log),
		reals:    repository.NewRealRepository[signReal](gdb, log),
		owner:    &models.OwnerModel{NameFi: "Helsingin kaupunki", NameEn: "City of Helsinki"},
		entity:   &models.ResponsibleEntityModel{Name: "KYMP", Level: 10},
		signType: &models.DeviceTypeModel{Code: "C32", Description: "Speed limit", TargetModel: device.TargetTrafficSign},
	}
	require.NoError(t, gdb.WithContext(ctx).Create(f.owner).Error)
	require.NoError(t, gdb.WithContext(ctx).Create(f.entity).Error)
	require.NoError(t, gdb.WithContext(ctx).Create(f.signType).Error)

	tx := db.NewTransactionManager(gdb)
	recorder := audit.NewRecorder(repository.NewRunLogRepository(gdb))
	f.lifecycle = usecases.NewLifecycleService[signPlan](f.plans, tx, recorder, nil, projectionBounds, log)
	f.deps = Deps{
		Lookups: repository.NewReferenceRepository(gdb),
		Tx:      tx,
		Audit:   recorder,
		Bounds:  projectionBounds,
		SRID:    3879,
		Logger:  log,
	}
	return f
}

func (f *fixture) codecs() *TrafficSigns {
	log := logger.NewNop()
	mountPlans := repository.NewPlanRepository[models.MountPlanModel](f.gdb, log)
	return NewTrafficSigns(TrafficSignStores{
		Plans:      f.plans,
		PlanWriter: f.lifecycle,
		Reals:      f.reals,
		MountPlans: mountPlans,
		MountPlan:  mountPlans.GetByID,
		MountReal:  repository.NewRealRepository[models.MountRealModel](f.gdb, log).GetByID,
		Envelope:   repository.NewPlanEnvelopeRepository(f.gdb, log).GetByID,
	}, f.deps)
}

func (f *fixture) createPlan(t *testing.T, txt string) *signPlan {
	t.Helper()
	p := &signPlan{}
	p.Location = geo.MustParseEWKT("SRID=3879;POINT Z (25496000 6673000 0)")
	p.OwnerID = &f.owner.ID
	p.ResponsibleEntityID = &f.entity.ID
	p.DeviceTypeID = &f.signType.ID
	size := device.SizeMedium
	p.Size = &size
	p.Txt = txt
	require.NoError(t, f.lifecycle.Create(context.Background(), nil, p, nil))
	return p
}

func (f *fixture) createReal(t *testing.T, planID uuid.UUID) *signReal {
	t.Helper()
	r := &signReal{TrafficSignPlanID: &planID}
	r.Location = geo.MustParseEWKT("SRID=3879;POINT Z (25496000 6673000 0)")
	r.Lifecycle = device.LifecycleActive
	r.IsActive = true
	require.NoError(t, f.reals.Create(context.Background(), r))
	return r
}

func readCSV(t *testing.T, data []byte) []map[string]string {
	t.Helper()
	recs, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, recs)
	var out []map[string]string
	for _, rec := range recs[1:] {
		row := map[string]string{}
		for i, h := range recs[0] {
			row[h] = rec[i]
		}
		out = append(out, row)
	}
	return out
}

func csvFile(lines ...string) []byte {
	return []byte(strings.Join(lines, "\n") + "\n")
}

func TestExport_TrafficSignPlans(t *testing.T) {
	f := newFixture(t)
	p := f.createPlan(t, "50")

	var buf bytes.Buffer
	n, err := f.codecs().Plans.Export(context.Background(), &buf, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rows := readCSV(t, buf.Bytes())
	require.Len(t, rows, 1)
	assert.Equal(t, p.ID.String(), rows[0]["id"])
	assert.Equal(t, "Helsingin kaupunki", rows[0]["owner__name_fi"])
	assert.Equal(t, "KYMP", rows[0]["responsible_entity__name"])
	assert.Equal(t, "C32", rows[0]["device_type__code"])
	assert.Equal(t, "ACTIVE", rows[0]["lifecycle"])
	assert.Equal(t, "MEDIUM", rows[0]["size"])
	assert.Equal(t, "50", rows[0]["txt"])
	assert.Equal(t, "SRID=3879;POINT Z (25496000 6673000 0)", rows[0]["location"])
	assert.Equal(t, "", rows[0]["replaces"])
}

func TestImport_RoundTripIsUnchanged(t *testing.T) {
	for _, format := range []Format{FormatCSV, FormatXLSX} {
		t.Run(string(format), func(t *testing.T) {
			f := newFixture(t)
			f.createPlan(t, "50")
			f.createPlan(t, "60")
			codec := f.codecs().Plans

			var buf bytes.Buffer
			_, err := codec.Export(context.Background(), &buf, format)
			require.NoError(t, err)

			report, err := codec.Import(context.Background(), nil, buf.Bytes(), ImportOptions{Format: format})
			require.NoError(t, err)
			assert.False(t, report.HasErrors())
			assert.Equal(t, map[string]int{RowSkipped: 2}, report.Counts())
		})
	}
}

func TestImport_CreatesAndUpdatesPlans(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	existing := f.createPlan(t, "50")

	data := csvFile(
		"id,owner__name_fi,lifecycle,location,device_type__code,size,txt",
		existing.ID.String()+",Helsingin kaupunki,TEMPORARILY_ACTIVE,SRID=3879;POINT Z (25496000 6673000 0),C32,MEDIUM,80",
		",Helsingin kaupunki,,POINT (25496100 6673100),C32,LARGE,30",
	)
	report, err := f.codecs().Plans.Import(ctx, nil, data, ImportOptions{FileName: "signs.csv"})
	require.NoError(t, err)
	require.False(t, report.HasErrors(), "%+v", report.Rows)
	assert.Equal(t, RowUpdate, report.Rows[0].Status)
	assert.Equal(t, RowNew, report.Rows[1].Status)

	updated, err := f.plans.GetByID(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "80", updated.Txt)
	assert.Equal(t, device.LifecycleTemporarilyActive, updated.Lifecycle)
	assert.Equal(t, existing.CreatedAt.Unix(), updated.CreatedAt.Unix())

	created, err := f.plans.GetByID(ctx, uuid.MustParse(report.Rows[1].ID))
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, device.LifecycleActive, created.Lifecycle)
	assert.Equal(t, "SRID=3879;POINT Z (25496100 6673100 0)", created.Location.String())
	assert.Equal(t, device.SizeLarge, *created.Size)

	var audits int64
	require.NoError(t, f.gdb.Model(&models.AuditLogEntryModel{}).Where("object_type = ?", "traffic_sign_plan").Count(&audits).Error)
	assert.Equal(t, int64(3), audits)
}

func TestImport_RowErrorsWriteNothing(t *testing.T) {
	tests := []struct {
		name     string
		row      string
		column   string
		wantKind apperrors.Kind
	}{
		{"unknown owner", ",Nobody,ACTIVE,POINT (25496100 6673100),C32", "owner__name_fi", apperrors.KindForeignKeyLookupMissing},
		{"unknown device type", ",Helsingin kaupunki,ACTIVE,POINT (25496100 6673100),X99", "device_type__code", apperrors.KindForeignKeyLookupMissing},
		{"bad lifecycle", ",Helsingin kaupunki,BOGUS,POINT (25496100 6673100),C32", "lifecycle", apperrors.KindInvalidEnumValue},
		{"missing location", ",Helsingin kaupunki,ACTIVE,,C32", "location", apperrors.KindMissingRequiredField},
		{"location outside projection", ",Helsingin kaupunki,ACTIVE,POINT (1 1),C32", "location", apperrors.KindGeometryOutOfBounds},
		{"bad id", "nope,Helsingin kaupunki,ACTIVE,POINT (25496100 6673100),C32", "id", apperrors.KindInvalidEnumValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			data := csvFile(
				"id,owner__name_fi,lifecycle,location,device_type__code",
				",Helsingin kaupunki,ACTIVE,POINT (25496100 6673100),C32",
				tt.row,
			)
			report, err := f.codecs().Plans.Import(context.Background(), nil, data, ImportOptions{})
			require.NoError(t, err)
			require.True(t, report.HasErrors())
			assert.Equal(t, RowNew, report.Rows[0].Status)
			require.Len(t, report.Rows[1].Errors, 1)
			assert.Equal(t, tt.column, report.Rows[1].Errors[0].Column)
			assert.Equal(t, tt.wantKind, report.Rows[1].Errors[0].Kind)

			plans, err := f.plans.Active(context.Background())
			require.NoError(t, err)
			assert.Empty(t, plans)
		})
	}
}

func TestImport_DeviceTypeOfAnotherFamily(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.gdb.Create(&models.DeviceTypeModel{Code: "H20.72", TargetModel: device.TargetAdditionalSign}).Error)

	data := csvFile("location,device_type__code", "POINT (25496100 6673100),H20.72")
	report, err := f.codecs().Plans.Import(context.Background(), nil, data, ImportOptions{})
	require.NoError(t, err)
	require.True(t, report.HasErrors())
	assert.Equal(t, apperrors.KindDeviceTypeUnsupported, report.Rows[0].Errors[0].Kind)
}

func TestImport_DryRunRollsBack(t *testing.T) {
	f := newFixture(t)
	data := csvFile("location,txt", "POINT (25496100 6673100),50")

	report, err := f.codecs().Plans.Import(context.Background(), nil, data, ImportOptions{DryRun: true})
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, map[string]int{RowNew: 1}, report.Counts())

	plans, err := f.plans.Active(context.Background())
	require.NoError(t, err)
	assert.Empty(t, plans)
}

func TestImport_ReplacesGoesThroughLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	old := f.createPlan(t, "50")
	r := f.createReal(t, old.ID)

	data := csvFile("location,txt,replaces", "POINT (25496100 6673100),60,"+old.ID.String())
	report, err := f.codecs().Plans.Import(ctx, nil, data, ImportOptions{})
	require.NoError(t, err)
	require.False(t, report.HasErrors(), "%+v", report.Rows)
	newID := uuid.MustParse(report.Rows[0].ID)

	successor, err := f.plans.ReplacedBy(ctx, old.ID)
	require.NoError(t, err)
	require.NotNil(t, successor)
	assert.Equal(t, newID, *successor)

	moved, err := f.reals.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, newID, *moved.TrafficSignPlanID)

	// clearing the cell unreplaces
	var buf bytes.Buffer
	_, err = f.codecs().Plans.Export(ctx, &buf, FormatCSV)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), old.ID.String())

	data = csvFile("id,replaces", newID.String()+",")
	report, err = f.codecs().Plans.Import(ctx, nil, data, ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, RowUpdate, report.Rows[0].Status)
	prev, err := f.plans.Replaces(ctx, newID)
	require.NoError(t, err)
	assert.Nil(t, prev)
}

func TestImport_VirusScan(t *testing.T) {
	f := newFixture(t)
	f.deps.Scanner = &fakeScanner{scanFn: func(files []virusscan.File) ([]virusscan.ScanError, error) {
		require.Len(t, files, 1)
		assert.Equal(t, "signs.csv", files[0].Name)
		return []virusscan.ScanError{{Detail: "signs.csv is infected", Viruses: []string{"Eicar-Test-Signature"}}}, nil
	}}
	user := &models.UserModel{ID: uuid.New(), Username: "importer"}

	_, err := f.codecs().Plans.Import(context.Background(), user, csvFile("location", "POINT (25496100 6673100)"), ImportOptions{FileName: "signs.csv"})
	assert.True(t, apperrors.IsKind(err, apperrors.KindVirusScanFailure))

	var entry models.AuditLogEntryModel
	require.NoError(t, f.gdb.Where("action = ?", "access").First(&entry).Error)
	assert.Equal(t, "virusscan", entry.Note)
	assert.Equal(t, user.ID, *entry.ActorID)
	assert.Contains(t, string(entry.After), "Eicar-Test-Signature")

	plans, err := f.plans.Active(context.Background())
	require.NoError(t, err)
	assert.Empty(t, plans)
}

func TestImport_PermissionGate(t *testing.T) {
	f := newFixture(t)
	existing := f.createPlan(t, "50")
	user := &models.UserModel{ID: uuid.New(), Username: "editor"}

	var gotObject string
	var gotIDs []*uuid.UUID
	f.deps.Gate = &fakeGate{
		rowsFn: func(object string, ids []*uuid.UUID) error {
			gotObject, gotIDs = object, ids
			return nil
		},
		entityFn: func(*uuid.UUID) error {
			return apperrors.New(apperrors.KindResponsibleEntityDenied, "denied")
		},
	}

	data := csvFile("id,txt", existing.ID.String()+",70")
	_, err := f.codecs().Plans.Import(context.Background(), user, data, ImportOptions{})
	assert.True(t, apperrors.IsKind(err, apperrors.KindResponsibleEntityDenied))
	assert.Equal(t, "traffic_sign_plan", gotObject)
	require.Len(t, gotIDs, 1)
	assert.Equal(t, f.entity.ID, *gotIDs[0])

	unchanged, err := f.plans.GetByID(context.Background(), existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "50", unchanged.Txt)
}

func TestImport_RealReferencesMustExist(t *testing.T) {
	f := newFixture(t)
	data := csvFile("location,traffic_sign_plan__id", "POINT (25496100 6673100),"+uuid.NewString())

	report, err := f.codecs().Reals.Import(context.Background(), nil, data, ImportOptions{})
	require.NoError(t, err)
	require.True(t, report.HasErrors())
	assert.Equal(t, "traffic_sign_plan__id", report.Rows[0].Errors[0].Column)
	assert.Equal(t, apperrors.KindForeignKeyLookupMissing, report.Rows[0].Errors[0].Kind)
}

func TestImport_Reals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.createPlan(t, "50")

	data := csvFile(
		"location,traffic_sign_plan__id,condition,installation_status,installation_date",
		"POINT (25496100 6673100),"+p.ID.String()+",GOOD,IN_USE,2024-05-02",
	)
	report, err := f.codecs().Reals.Import(ctx, nil, data, ImportOptions{})
	require.NoError(t, err)
	require.False(t, report.HasErrors(), "%+v", report.Rows)

	r, err := f.reals.GetByID(ctx, uuid.MustParse(report.Rows[0].ID))
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, p.ID, *r.TrafficSignPlanID)
	assert.Equal(t, device.ConditionGood, *r.Condition)
	assert.Equal(t, device.InstallationInUse, *r.InstallationStatus)
	assert.Equal(t, "2024-05-02", r.InstallationDate.Format(dateLayout))
	assert.True(t, r.IsActive)
}

func TestExportAsRealTemplate(t *testing.T) {
	f := newFixture(t)
	linked := f.createPlan(t, "50")
	unlinked := f.createPlan(t, "60")
	r := f.createReal(t, linked.ID)

	codecs := f.codecs()
	var buf bytes.Buffer
	n, err := codecs.ExportAsRealTemplate(context.Background(), &buf, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rows := readCSV(t, buf.Bytes())
	require.Len(t, rows, 2)
	byPlan := map[string]map[string]string{}
	for _, row := range rows {
		byPlan[row["traffic_sign_plan__id"]] = row
	}
	assert.Equal(t, r.ID.String(), byPlan[linked.ID.String()]["id"])
	assert.Equal(t, "", byPlan[unlinked.ID.String()]["id"])
	assert.Equal(t, "60", byPlan[unlinked.ID.String()]["txt"])
	assert.Equal(t, "C32", byPlan[unlinked.ID.String()]["device_type__code"])
	assert.Equal(t, codecs.Reals.Headers(), append([]string{}, csvHeader(t, buf.Bytes())...))
}

func TestRealStore_RejectsLocationOutsideProjection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	store := &realStore[signReal]{
		rows:   f.reals,
		object: device.FamilyTrafficSign.RealObject(),
		common: func(r *signReal) *models.DeviceCommon { return &r.DeviceCommon },
		bounds: projectionBounds,
	}

	tests := []struct {
		name string
		ewkt string
		kind apperrors.Kind
	}{
		{"origin", "SRID=3879;POINT Z (0 0 0)", apperrors.KindGeometryOutOfBounds},
		{"east of the area", "SRID=3879;POINT Z (25600000 6673000 0)", apperrors.KindGeometryOutOfBounds},
		{"no location", "", apperrors.KindMissingRequiredField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &signReal{}
			if tt.ewkt != "" {
				r.Location = geo.MustParseEWKT(tt.ewkt)
			}
			assert.Equal(t, tt.kind, apperrors.KindOf(store.Create(ctx, nil, r, nil)))

			existing := f.createReal(t, f.createPlan(t, "50").ID)
			moved := *existing
			moved.Location = r.Location
			assert.Equal(t, tt.kind, apperrors.KindOf(store.Update(ctx, nil, &moved, usecases.ReplacesField{})))

			stored, err := f.reals.GetByID(ctx, existing.ID)
			require.NoError(t, err)
			assert.Equal(t, existing.Location.String(), stored.Location.String())
		})
	}

	reals, err := f.reals.Active(ctx)
	require.NoError(t, err)
	assert.Len(t, reals, len(tests))
}

func TestImport_RealOutsideProjectionWritesNothing(t *testing.T) {
	f := newFixture(t)
	p := f.createPlan(t, "50")

	data := csvFile(
		"location,traffic_sign_plan__id",
		"SRID=3879;POINT Z (25496100 6673100 0),"+p.ID.String(),
		"SRID=3879;POINT Z (100 100 0),",
	)
	report, err := f.codecs().Reals.Import(context.Background(), nil, data, ImportOptions{})
	require.NoError(t, err)
	require.True(t, report.HasErrors())
	assert.Equal(t, RowNew, report.Rows[0].Status)
	require.Len(t, report.Rows[1].Errors, 1)
	assert.Equal(t, "location", report.Rows[1].Errors[0].Column)
	assert.Equal(t, apperrors.KindGeometryOutOfBounds, report.Rows[1].Errors[0].Kind)

	reals, err := f.reals.Active(context.Background())
	require.NoError(t, err)
	assert.Empty(t, reals)
}

func TestExportInEffect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	past, future := now.AddDate(0, -1, 0), now.AddDate(0, 1, 0)

	open := f.createPlan(t, "open")
	running := f.createPlan(t, "running")
	running.ValidityPeriodStart, running.ValidityPeriodEnd = &past, &future
	require.NoError(t, f.plans.Save(ctx, running))
	ended := f.createPlan(t, "ended")
	ended.ValidityPeriodEnd = &past
	require.NoError(t, f.plans.Save(ctx, ended))
	notYet := f.createPlan(t, "not yet")
	notYet.ValidityPeriodStart = &future
	require.NoError(t, f.plans.Save(ctx, notYet))
	inactive := f.createPlan(t, "inactive")
	inactive.Lifecycle = device.LifecycleInactive
	require.NoError(t, f.plans.Save(ctx, inactive))
	temporary := f.createPlan(t, "temporary")
	temporary.Lifecycle = device.LifecycleTemporarilyActive
	require.NoError(t, f.plans.Save(ctx, temporary))

	replaced := f.createPlan(t, "replaced")
	successor := &signPlan{}
	successor.Location = geo.MustParseEWKT("SRID=3879;POINT Z (25496000 6673000 0)")
	successor.Txt = "successor"
	require.NoError(t, f.lifecycle.Create(ctx, nil, successor, &replaced.ID))

	codecs := f.codecs()
	var buf bytes.Buffer
	n, err := codecs.Plans.ExportInEffect(ctx, &buf, FormatCSV, now)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	var txts []string
	for _, row := range readCSV(t, buf.Bytes()) {
		txts = append(txts, row["txt"])
	}
	assert.ElementsMatch(t, []string{open.Txt, running.Txt, temporary.Txt, successor.Txt}, txts)

	inEffect := f.createReal(t, open.ID)
	stale := f.createReal(t, ended.ID)
	stale.ValidityPeriodEnd = &past
	require.NoError(t, f.reals.Save(ctx, stale))

	buf.Reset()
	n, err = codecs.Reals.ExportInEffect(ctx, &buf, FormatCSV, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	rows := readCSV(t, buf.Bytes())
	require.Len(t, rows, 1)
	assert.Equal(t, inEffect.ID.String(), rows[0]["id"])
}

func csvHeader(t *testing.T, data []byte) []string {
	t.Helper()
	rec, err := csv.NewReader(bytes.NewReader(data)).Read()
	require.NoError(t, err)
	return rec
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{"": FormatCSV, "CSV": FormatCSV, "signs.xlsx": FormatXLSX, "xlsx": FormatXLSX}
	for in, want := range tests {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("ods")
	assert.Error(t, err)
}
