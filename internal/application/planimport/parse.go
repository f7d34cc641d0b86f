package planimport

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

const utf8BOM = "\ufeff"

// parseRows reads the semicolon-delimited input and runs the per-row checks
// that need no database: diary presence, duplicates and WKT syntax.
func (im *Importer) parseRows(r io.Reader) ([]*Result, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && string(head) == utf8BOM {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	get := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	seen := make(map[string]struct{})
	var results []*Result
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", row, err)
		}

		res := &Result{
			RowNumber:       row,
			Diaari:          strings.TrimSpace(get(rec, "diaari")),
			FID:             get(rec, "fid"),
			Piirustusnumero: get(rec, "piirustusnumero"),
			DecisionID:      get(rec, "decision_id"),
		}
		results = append(results, res)

		if res.Diaari == "" {
			res.fail(ResultMissingDiaryNumber, "Missing diary number in CSV")
			continue
		}
		if _, dup := seen[res.Diaari]; dup {
			res.fail(ResultDuplicateDiaryNumber, "Duplicate diary number: "+res.Diaari)
			continue
		}
		seen[res.Diaari] = struct{}{}

		wkt := strings.TrimSpace(get(rec, "wkt_geom"))
		if strings.Contains(strings.ToUpper(wkt), "EMPTY") {
			res.fail(ResultEmptyGeometry, "Geometry is EMPTY")
			continue
		}
		g, err := im.parseGeometry(wkt)
		if err != nil {
			res.fail(ResultInvalidWKT, "Invalid WKT: "+err.Error())
			continue
		}
		res.geometry = g
	}
	return results, nil
}
