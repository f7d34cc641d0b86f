package deviceio

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "github.com/cityinfra/trafficcontrol/internal/shared/errors"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts a format name or a file name ending in one.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(s)
	switch {
	case s == "" || s == "csv" || strings.HasSuffix(s, ".csv"):
		return FormatCSV, nil
	case s == "xlsx" || strings.HasSuffix(s, ".xlsx"):
		return FormatXLSX, nil
	}
	return "", apperrors.Newf(apperrors.KindInvalidEnumValue, "unsupported format %q, use csv or xlsx", s)
}

// table is a header plus rows, every cell trimmed.
type table struct {
	header []string
	rows   [][]string
}

func (t *table) index() map[string]int {
	idx := make(map[string]int, len(t.header))
	for i, h := range t.header {
		idx[h] = i
	}
	return idx
}

func readTable(data []byte, format Format) (*table, error) {
	var records [][]string
	switch format {
	case FormatXLSX:
		f, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, apperrors.New(apperrors.KindMissingRequiredField, "file is not a readable xlsx workbook", err.Error())
		}
		defer f.Close()
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, apperrors.New(apperrors.KindMissingRequiredField, "workbook has no sheets")
		}
		if records, err = f.GetRows(sheets[0]); err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
		}
	default:
		r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\ufeff"))))
		r.FieldsPerRecord = -1
		for {
			rec, err := r.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, apperrors.New(apperrors.KindMissingRequiredField, "file is not valid CSV", err.Error())
			}
			records = append(records, rec)
		}
	}

	if len(records) == 0 {
		return nil, apperrors.New(apperrors.KindMissingRequiredField, "file has no header row")
	}
	t := &table{header: trimAll(records[0])}
	for _, rec := range records[1:] {
		rec = trimAll(rec)
		if isBlank(rec) {
			continue
		}
		// short xlsx rows omit trailing empty cells
		for len(rec) < len(t.header) {
			rec = append(rec, "")
		}
		t.rows = append(t.rows, rec)
	}
	return t, nil
}

func writeTable(w io.Writer, t *table, format Format, sheet string) error {
	if format == FormatXLSX {
		f := excelize.NewFile()
		defer f.Close()
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return err
		}
		for i, rec := range append([][]string{t.header}, t.rows...) {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				return err
			}
			values := make([]any, len(rec))
			for j, v := range rec {
				values[j] = v
			}
			if err := f.SetSheetRow(sheet, cell, &values); err != nil {
				return err
			}
		}
		_, err := f.WriteTo(w)
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(t.header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.rows); err != nil {
		return err
	}
	return cw.Error()
}

func trimAll(rec []string) []string {
	out := make([]string, len(rec))
	for i, v := range rec {
		out[i] = strings.TrimSpace(v)
	}
	return out
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if v != "" {
			return false
		}
	}
	return true
}
