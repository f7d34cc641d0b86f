// Package planimport updates plan envelope geometries from a QGIS CSV export
// matched by diary number, and reports every row's outcome.
package planimport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/cityinfra/trafficcontrol/internal/domain/plan"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/persistence/models"
	"github.com/cityinfra/trafficcontrol/internal/shared/biztime"
	"github.com/cityinfra/trafficcontrol/internal/shared/geo"
	"github.com/cityinfra/trafficcontrol/internal/shared/logger"
)

type PlanStore interface {
	FindActiveByDiaryNumber(ctx context.Context, diary string) (*models.PlanModel, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.PlanModel, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
}

// Spatial is the part of the spatial adapter the importer needs.
type Spatial interface {
	SRID() int
	Equals(ctx context.Context, a, b geo.Geometry) (bool, error)
	Validate(ctx context.Context, g geo.Geometry) (bool, string, error)
	WithinProjectionBounds(g geo.Geometry) bool
}

type Transactor interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type ReportSink interface {
	Put(ctx context.Context, dir, name string, data []byte) (string, error)
}

type LogStore interface {
	SaveImportLog(ctx context.Context, l *models.PlanGeometryImportLogModel) error
}

type Options struct {
	FilePath  string
	OutputDir string
	DryRun    bool
	NoCSV     bool
}

type Importer struct {
	plans     PlanStore
	spatial   Spatial
	tx        Transactor
	sink      ReportSink
	logs      LogStore
	precision int
	logger    logger.Interface
}

// NewImporter builds an importer. precision is the EWKT digit count at which
// geometries count as unchanged; sink may be nil when reports are disabled.
func NewImporter(plans PlanStore, spatial Spatial, tx Transactor, sink ReportSink, logs LogStore, precision int, log logger.Interface) *Importer {
	return &Importer{
		plans:     plans,
		spatial:   spatial,
		tx:        tx,
		sink:      sink,
		logs:      logs,
		precision: precision,
		logger:    log,
	}
}

// Import runs the whole pipeline over r. Row problems never fail the run;
// only store, sink and read errors do.
func (im *Importer) Import(ctx context.Context, r io.Reader, opts Options) (*Report, error) {
	start := biztime.NowUTC()
	im.logger.Infow("starting plan geometry import", "file", opts.FilePath, "dry_run", opts.DryRun)

	results, err := im.parseRows(r)
	if err != nil {
		return nil, err
	}

	if err := im.validateAndMatch(ctx, results); err != nil {
		return nil, err
	}

	var updated int
	if opts.DryRun {
		updated = countType(results, ResultSuccess)
	} else {
		err := im.tx.RunInTransaction(ctx, func(ctx context.Context) error {
			n, err := im.applyUpdates(ctx, results)
			updated = n
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("apply plan updates: %w", err)
		}
	}

	report := &Report{
		DryRun:  opts.DryRun,
		Results: results,
		Summary: Summary{TotalRows: len(results), Updated: updated, Errors: len(results) - updated},
	}

	if !opts.NoCSV && im.sink != nil && len(results) > 0 {
		files, err := im.writeReports(ctx, opts.OutputDir, results)
		if err != nil {
			return nil, err
		}
		report.Files = files
	}

	if err := im.saveLog(ctx, report, opts, start); err != nil {
		return nil, err
	}

	im.logger.Infow("plan geometry import finished",
		"total_rows", report.Summary.TotalRows,
		"updated", report.Summary.Updated,
		"errors", report.Summary.Errors)
	return report, nil
}

func (im *Importer) parseGeometry(wkt string) (geo.Geometry, error) {
	g, err := geo.ParseEWKT(wkt)
	if err != nil {
		return geo.Geometry{}, err
	}
	if g.SRID() == 0 {
		return g.WithSRID(im.spatial.SRID())
	}
	return g, nil
}

func (im *Importer) validateAndMatch(ctx context.Context, results []*Result) error {
	for _, res := range results {
		if res.ResultType != "" {
			continue
		}
		ok, err := im.validateGeometry(ctx, res)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		im.matchPlan(ctx, res)
	}
	return nil
}

func (im *Importer) validateGeometry(ctx context.Context, res *Result) (bool, error) {
	g := res.geometry
	if name := g.TypeName(); name != "MultiPolygon" {
		res.fail(ResultInvalidGeometryType, "Expected MultiPolygon, got "+name)
		return false, nil
	}
	if g.IsEmpty() {
		res.fail(ResultEmptyGeometry, "Geometry is empty")
		return false, nil
	}

	g3, err := geo.PromoteTo3D(g, 0)
	if err != nil {
		res.fail(ResultInvalidGeometryType, "Failed to convert to 3D: "+err.Error())
		return false, nil
	}
	res.geometry = g3

	valid, reason, err := im.spatial.Validate(ctx, g3)
	if err != nil {
		return false, fmt.Errorf("validate geometry on row %d: %w", res.RowNumber, err)
	}
	if !valid {
		res.fail(ResultInvalidTopology, "Geometry has topology errors: "+reason)
		return false, nil
	}
	if !im.spatial.WithinProjectionBounds(g3) {
		res.fail(ResultInvalidBounds, "Geometry is outside valid projection boundaries")
		return false, nil
	}
	return true, nil
}

func (im *Importer) matchPlan(ctx context.Context, res *Result) {
	p, err := im.plans.FindActiveByDiaryNumber(ctx, res.Diaari)
	if err != nil {
		res.fail(ResultPlanNotFound, "Error querying Plan: "+err.Error())
		return
	}
	if p == nil {
		res.fail(ResultPlanNotFound, "No active Plan found with diary_number: "+res.Diaari)
		return
	}
	res.PlanID = p.ID.String()

	if res.DecisionID != "" && p.DecisionID != res.DecisionID {
		res.fail(ResultDecisionIDMismatch, fmt.Sprintf(
			"CSV decision_id '%s' does not match Plan decision_id '%s'", res.DecisionID, p.DecisionID))
		return
	}

	if incoming := plan.ParseDrawingNumbers(res.Piirustusnumero); len(incoming) > 0 {
		if !plan.CanMerge(incoming, p.DrawingNumbers) {
			res.fail(ResultDrawingNumberMismatch, fmt.Sprintf(
				"CSV piirustusnumero '%s' not found in Plan drawing_numbers %s",
				strings.TrimSpace(res.Piirustusnumero), listString(p.DrawingNumbers)))
			return
		}
		res.drawingNumbers = incoming
		res.mergeDrawings = true
	}

	res.ResultType = ResultSuccess
}

func (im *Importer) applyUpdates(ctx context.Context, results []*Result) (int, error) {
	updated := 0
	for _, res := range results {
		if res.ResultType != ResultSuccess {
			continue
		}
		changed, err := im.applyUpdate(ctx, res)
		if err != nil {
			return 0, err
		}
		if changed {
			updated++
		}
	}
	return updated, nil
}

func (im *Importer) applyUpdate(ctx context.Context, res *Result) (bool, error) {
	id, err := uuid.Parse(res.PlanID)
	if err != nil {
		return false, fmt.Errorf("row %d: %w", res.RowNumber, err)
	}
	p, err := im.plans.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if p == nil {
		return false, fmt.Errorf("plan %s disappeared during import", id)
	}

	fields, changes, err := im.buildChanges(ctx, p, res)
	if err != nil {
		return false, err
	}
	res.UpdateDetails = &UpdateDetails{
		CSVRow:        res.RowNumber,
		PlanID:        res.PlanID,
		DiaryNumber:   res.Diaari,
		FieldsChanged: changes,
	}

	if len(fields) == 0 {
		res.ResultType = ResultSkippedNoChanges
		res.ErrorMessage = "Location geometry matches existing Plan, no update needed"
		return false, nil
	}

	fields["updated_at"] = biztime.NowUTC()
	if err := im.plans.UpdateFields(ctx, id, fields); err != nil {
		return false, err
	}
	return true, nil
}

func (im *Importer) buildChanges(ctx context.Context, p *models.PlanModel, res *Result) (map[string]any, []FieldChange, error) {
	fields := map[string]any{}
	changes := []FieldChange{}

	same, err := im.sameGeometry(ctx, p.Location, res.geometry)
	if err != nil {
		return nil, nil, err
	}
	if !same {
		old := "None"
		if !p.Location.IsZero() {
			old = p.Location.String()
		}
		fields["location"] = res.geometry
		changes = append(changes, FieldChange{Field: "location", OldValue: old, NewValue: res.geometry.String()})
	}

	if p.DeriveLocation {
		fields["derive_location"] = false
		changes = append(changes, FieldChange{Field: "derive_location", OldValue: "True", NewValue: "False"})
	}

	if res.mergeDrawings {
		old := []string(p.DrawingNumbers)
		merged := plan.MergeDrawingNumbers(old, res.drawingNumbers)
		if !plan.SameSet(merged, old) {
			fields["drawing_numbers"] = datatypes.NewJSONSlice(merged)
			changes = append(changes, FieldChange{Field: "drawing_numbers", OldValue: listString(old), NewValue: listString(merged)})
		}
	}
	return fields, changes, nil
}

// sameGeometry treats geometries as equal when the store says so or when
// they agree at the configured precision.
func (im *Importer) sameGeometry(ctx context.Context, current, incoming geo.Geometry) (bool, error) {
	if current.IsZero() || incoming.IsZero() {
		return false, nil
	}
	if current.EqualAt(incoming, im.precision) {
		return true, nil
	}
	eq, err := im.spatial.Equals(ctx, current, incoming)
	if err != nil {
		im.logger.Warnw("geometry comparison failed", "error", err)
		return false, nil
	}
	return eq, nil
}

func (im *Importer) saveLog(ctx context.Context, report *Report, opts Options, start time.Time) error {
	payload, err := json.Marshal(struct {
		Summary Summary   `json:"summary"`
		Results []*Result `json:"results"`
	}{report.Summary, report.Results})
	if err != nil {
		return fmt.Errorf("marshal import results: %w", err)
	}
	end := biztime.NowUTC()
	entry := &models.PlanGeometryImportLogModel{
		StartTime: start,
		EndTime:   &end,
		FilePath:  opts.FilePath,
		OutputDir: opts.OutputDir,
		DryRun:    opts.DryRun,
		Results:   datatypes.JSON(payload),
	}
	if err := im.logs.SaveImportLog(ctx, entry); err != nil {
		return err
	}
	report.LogID = entry.ID.String()
	return nil
}

func countType(results []*Result, t ResultType) int {
	n := 0
	for _, r := range results {
		if r.ResultType == t {
			n++
		}
	}
	return n
}

// listString renders a list the way operators know it from the legacy reports.
func listString(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = "'" + s + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
