package planimport

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/cityinfra/trafficcontrol/internal/shared/geo"
)

var baseColumns = []string{
	"row_number", "diaari", "fid", "piirustusnumero", "decision_id",
	"result_type", "error_message", "plan_id",
}

// writeReports renders all_results.csv, one file per result tag that
// occurred, and detailed variants for matched rows.
func (im *Importer) writeReports(ctx context.Context, dir string, results []*Result) ([]string, error) {
	var files []string
	put := func(name string, rows []*Result, detailed bool) error {
		data, err := renderCSV(rows, detailed)
		if err != nil {
			return fmt.Errorf("render %s: %w", name, err)
		}
		loc, err := im.sink.Put(ctx, dir, name, data)
		if err != nil {
			return err
		}
		files = append(files, loc)
		return nil
	}

	if err := put("all_results.csv", results, false); err != nil {
		return nil, err
	}

	byType := make(map[ResultType][]*Result)
	for _, r := range results {
		byType[r.ResultType] = append(byType[r.ResultType], r)
	}
	for _, rf := range reportFiles {
		rows := byType[rf.Type]
		if len(rows) == 0 {
			continue
		}
		if err := put(rf.File, rows, false); err != nil {
			return nil, err
		}
		if rf.Type == ResultSuccess || rf.Type == ResultSkippedNoChanges {
			detailed := strings.TrimSuffix(rf.File, ".csv") + "_detailed.csv"
			if err := put(detailed, rows, true); err != nil {
				return nil, err
			}
		}
	}

	im.logger.Infow("import reports written", "dir", dir, "files", len(files))
	return files, nil
}

func renderCSV(rows []*Result, detailed bool) ([]byte, error) {
	withChanges := false
	for _, r := range rows {
		if r.ResultType == ResultSuccess || r.ResultType == ResultSkippedNoChanges {
			withChanges = true
			break
		}
	}

	header := append([]string(nil), baseColumns...)
	if withChanges {
		header = append(header, "fields_changed")
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, r := range rows {
		rec := []string{
			strconv.Itoa(r.RowNumber), r.Diaari, r.FID, r.Piirustusnumero, r.DecisionID,
			string(r.ResultType), r.ErrorMessage, r.PlanID,
		}
		if withChanges {
			rec = append(rec, formatChanges(r.UpdateDetails, detailed))
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func formatChanges(d *UpdateDetails, detailed bool) string {
	if d == nil {
		return ""
	}
	if len(d.FieldsChanged) == 0 {
		return "No changes"
	}
	sep := "; "
	if detailed {
		sep = " | "
	}
	parts := make([]string, 0, len(d.FieldsChanged))
	for _, c := range d.FieldsChanged {
		oldV, newV := c.OldValue, c.NewValue
		if c.Field == "location" && !detailed {
			oldV, newV = summarizeLocation(oldV), summarizeLocation(newV)
		}
		parts = append(parts, fmt.Sprintf("%s: %s → %s", c.Field, oldV, newV))
	}
	return strings.Join(parts, sep)
}

// summarizeLocation shortens an EWKT value to its type and polygon count.
func summarizeLocation(ewkt string) string {
	if ewkt == "" || ewkt == "None" {
		return "None"
	}
	g, err := geo.ParseEWKT(ewkt)
	if err != nil {
		return ewkt
	}
	return fmt.Sprintf("%s (%d polygons)", g.TypeName(), g.NumPolygons())
}
