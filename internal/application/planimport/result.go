package planimport

import (
	"github.com/cityinfra/trafficcontrol/internal/shared/geo"
)

// ResultType tags the outcome of one CSV row.
type ResultType string

const (
	ResultMissingDiaryNumber    ResultType = "missing_diary_number"
	ResultDuplicateDiaryNumber  ResultType = "duplicate_diary_number"
	ResultEmptyGeometry         ResultType = "empty_geometry"
	ResultInvalidWKT            ResultType = "invalid_wkt"
	ResultInvalidGeometryType   ResultType = "invalid_geometry_type"
	ResultInvalidTopology       ResultType = "invalid_geometry_topology"
	ResultInvalidBounds         ResultType = "invalid_geometry_bounds"
	ResultPlanNotFound          ResultType = "plan_not_found"
	ResultDecisionIDMismatch    ResultType = "decision_id_mismatch"
	ResultDrawingNumberMismatch ResultType = "drawing_number_mismatch"
	ResultSuccess               ResultType = "success"
	ResultSkippedNoChanges      ResultType = "skipped_no_changes"
)

// IsError reports whether the row was rejected.
func (t ResultType) IsError() bool {
	return t != ResultSuccess && t != ResultSkippedNoChanges
}

// reportFiles maps each tag to its report file, in output order.
var reportFiles = []struct {
	Type ResultType
	File string
}{
	{ResultSuccess, "plans_updated.csv"},
	{ResultSkippedNoChanges, "plans_skipped_no_changes.csv"},
	{ResultPlanNotFound, "plans_not_found.csv"},
	{ResultMissingDiaryNumber, "missing_diary_number.csv"},
	{ResultDuplicateDiaryNumber, "duplicate_diary_number.csv"},
	{ResultInvalidWKT, "invalid_geometries.csv"},
	{ResultInvalidGeometryType, "invalid_geometry_type.csv"},
	{ResultInvalidTopology, "invalid_geometry_topology.csv"},
	{ResultInvalidBounds, "invalid_geometry_bounds.csv"},
	{ResultEmptyGeometry, "empty_geometry.csv"},
	{ResultDecisionIDMismatch, "decision_id_mismatch.csv"},
	{ResultDrawingNumberMismatch, "drawing_number_mismatch.csv"},
}

type FieldChange struct {
	Field    string `json:"field"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}

type UpdateDetails struct {
	CSVRow        int           `json:"csv_row"`
	PlanID        string        `json:"plan_id"`
	DiaryNumber   string        `json:"diary_number"`
	FieldsChanged []FieldChange `json:"fields_changed"`
}

// Result is the outcome of one row. Geometry and drawing numbers are working
// state and stay out of the persisted payload.
type Result struct {
	RowNumber       int            `json:"row_number"`
	Diaari          string         `json:"diaari"`
	FID             string         `json:"fid"`
	Piirustusnumero string         `json:"piirustusnumero"`
	DecisionID      string         `json:"decision_id"`
	ResultType      ResultType     `json:"result_type"`
	ErrorMessage    string         `json:"error_message,omitempty"`
	PlanID          string         `json:"plan_id,omitempty"`
	UpdateDetails   *UpdateDetails `json:"update_details,omitempty"`

	geometry       geo.Geometry
	drawingNumbers []string
	mergeDrawings  bool
}

func (r *Result) fail(t ResultType, msg string) {
	r.ResultType = t
	r.ErrorMessage = msg
}

type Summary struct {
	TotalRows int `json:"total_rows"`
	Updated   int `json:"updated"`
	Errors    int `json:"errors"`
}

// Report is everything one run produced.
type Report struct {
	LogID   string    `json:"log_id"`
	DryRun  bool      `json:"dry_run"`
	Summary Summary   `json:"summary"`
	Results []*Result `json:"results"`
	Files   []string  `json:"files,omitempty"`
}

// Breakdown counts rejected rows per tag.
func (r *Report) Breakdown() map[ResultType]int {
	out := map[ResultType]int{}
	for _, res := range r.Results {
		if res.ResultType.IsError() {
			out[res.ResultType]++
		}
	}
	return out
}

// Skipped counts rows that matched without changes.
func (r *Report) Skipped() int {
	n := 0
	for _, res := range r.Results {
		if res.ResultType == ResultSkippedNoChanges {
			n++
		}
	}
	return n
}
