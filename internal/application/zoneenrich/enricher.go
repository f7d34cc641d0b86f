// Package zoneenrich rewrites parking zone additional sign texts into their
// canonical bilingual form and fills in the structured content they imply.
package zoneenrich

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/cityinfra/trafficcontrol/internal/domain/device"
	"github.com/cityinfra/trafficcontrol/internal/domain/parkingzone"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/persistence/models"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/repository"
	"github.com/cityinfra/trafficcontrol/internal/shared/biztime"
	"github.com/cityinfra/trafficcontrol/internal/shared/logger"
)

const (
	updatesFile = "parking_zone_updates.csv"
	errorsFile  = "parking_zone_update_errors.csv"
)

type SignStore interface {
	ActiveRealsByCodes(ctx context.Context, codes []string) ([]repository.ParkingSignRow, error)
	UpdateContent(ctx context.Context, id uuid.UUID, info string, content datatypes.JSON) error
}

type Transactor interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type ReportSink interface {
	Put(ctx context.Context, dir, name string, data []byte) (string, error)
}

type LogStore interface {
	SaveParkingZoneUpdateInfo(ctx context.Context, p *models.ParkingZoneUpdateInfoModel) error
}

// UpdateInfo is the proposed rewrite of one sign.
type UpdateInfo struct {
	AdditionalSignID         string            `json:"additional_sign_id"`
	Location                 string            `json:"location"`
	DeviceTypeCode           string            `json:"device_type_code"`
	OldAdditionalInformation string            `json:"old_additional_information"`
	NewAdditionalInformation string            `json:"new_additional_information"`
	StreetsmartLink          string            `json:"streetsmart_link"`
	AdminLink                string            `json:"admin_link"`
	ContentSchema            map[string]string `json:"content_schema"`
	Errors                   []string          `json:"errors"`
}

type Options struct {
	Update    bool
	OutputDir string
	// IncludeAll disables the default exclusion of already rewritten texts.
	IncludeAll bool
}

type Report struct {
	LogID   string       `json:"log_id"`
	Updates []UpdateInfo `json:"updates"`
	Errors  []UpdateInfo `json:"errors"`
	Files   []string     `json:"files,omitempty"`
}

type Enricher struct {
	signs        SignStore
	tx           Transactor
	sink         ReportSink
	logs         LogStore
	adminBaseURL string
	logger       logger.Interface
}

func NewEnricher(signs SignStore, tx Transactor, sink ReportSink, logs LogStore, adminBaseURL string, log logger.Interface) *Enricher {
	return &Enricher{
		signs:        signs,
		tx:           tx,
		sink:         sink,
		logs:         logs,
		adminBaseURL: strings.TrimRight(adminBaseURL, "/"),
		logger:       log,
	}
}

// AdminLink points at the admin change page of the sign.
func (e *Enricher) AdminLink(id string) string {
	return fmt.Sprintf("%s/traffic_control/additionalsignreal/%s/change/", e.adminBaseURL, id)
}

// BuildUpdateInfos computes the rewrite of every selected sign without
// touching the store. Successes and failures come back sorted by device
// type code.
func (e *Enricher) BuildUpdateInfos(ctx context.Context, includeAll bool) ([]UpdateInfo, []UpdateInfo, error) {
	rows, err := e.signs.ActiveRealsByCodes(ctx, parkingzone.SupportedCodes())
	if err != nil {
		return nil, nil, err
	}

	var ok, failed []UpdateInfo
	for _, row := range rows {
		if !includeAll && parkingzone.ExcludedByDefault(row.AdditionalInformation) {
			continue
		}
		info := e.buildInfo(row)
		if len(info.Errors) > 0 {
			failed = append(failed, info)
		} else {
			ok = append(ok, info)
		}
	}
	byCode := func(a, b UpdateInfo) int { return strings.Compare(a.DeviceTypeCode, b.DeviceTypeCode) }
	slices.SortStableFunc(ok, byCode)
	slices.SortStableFunc(failed, byCode)
	return ok, failed, nil
}

func (e *Enricher) buildInfo(row repository.ParkingSignRow) UpdateInfo {
	info := UpdateInfo{
		AdditionalSignID:         row.ID.String(),
		Location:                 row.Location.String(),
		DeviceTypeCode:           row.DeviceTypeCode,
		OldAdditionalInformation: row.AdditionalInformation,
		StreetsmartLink:          row.AttachmentURL,
		AdminLink:                e.AdminLink(row.ID.String()),
		Errors:                   []string{},
	}

	res := parkingzone.Enrich(row.DeviceTypeCode, row.AdditionalInformation)
	if !res.OK() {
		info.Errors = res.Errors
		return info
	}
	info.NewAdditionalInformation = res.Text
	if wantsContent(row) && len(res.Content) > 0 {
		if err := validateContent(row.ContentSchema, res.Content); err != nil {
			info.NewAdditionalInformation = ""
			info.Errors = []string{err.Error()}
			return info
		}
		info.ContentSchema = res.Content
	}
	return info
}

// wantsContent reports whether the sign may receive structured content: it
// has none, is flagged as missing it, and its type defines a schema.
func wantsContent(row repository.ParkingSignRow) bool {
	return isNull(row.ContentS) && row.MissingContent && !isNull(row.ContentSchema)
}

func validateContent(rawSchema []byte, content map[string]string) error {
	schema, err := device.CompileContentSchema(rawSchema)
	if err != nil {
		return err
	}
	data, err := json.Marshal(content)
	if err != nil {
		return err
	}
	return schema.Validate(data)
}

func isNull(raw []byte) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null"
}

// Commit writes the successful rewrites in one transaction.
func (e *Enricher) Commit(ctx context.Context, updates []UpdateInfo) error {
	return e.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, u := range updates {
			id, err := uuid.Parse(u.AdditionalSignID)
			if err != nil {
				return err
			}
			var content datatypes.JSON
			if u.ContentSchema != nil {
				raw, err := json.Marshal(u.ContentSchema)
				if err != nil {
					return err
				}
				content = raw
			}
			if err := e.signs.UpdateContent(ctx, id, u.NewAdditionalInformation, content); err != nil {
				return err
			}
		}
		return nil
	})
}

// Run builds the rewrites, commits them when opts.Update is set, writes the
// CSV reports and records the run.
func (e *Enricher) Run(ctx context.Context, opts Options) (*Report, error) {
	start := biztime.NowUTC()

	updates, failures, err := e.BuildUpdateInfos(ctx, opts.IncludeAll)
	if err != nil {
		return nil, err
	}
	report := &Report{Updates: updates, Errors: failures}
	e.logger.Infow("parking zone update infos built", "updates", len(updates), "errors", len(failures))

	if opts.Update {
		if err := e.Commit(ctx, updates); err != nil {
			return nil, fmt.Errorf("commit parking zone updates: %w", err)
		}
	}

	if e.sink != nil {
		for _, f := range []struct {
			name  string
			infos []UpdateInfo
		}{{updatesFile, updates}, {errorsFile, failures}} {
			data, err := renderCSV(f.infos)
			if err != nil {
				return nil, err
			}
			loc, err := e.sink.Put(ctx, opts.OutputDir, f.name, data)
			if err != nil {
				return nil, err
			}
			report.Files = append(report.Files, loc)
		}
	}

	if err := e.saveLog(ctx, report, opts.Update, start); err != nil {
		return nil, err
	}
	return report, nil
}

func (e *Enricher) saveLog(ctx context.Context, report *Report, committed bool, start time.Time) error {
	infos, err := json.Marshal(nonNil(report.Updates))
	if err != nil {
		return err
	}
	errs, err := json.Marshal(nonNil(report.Errors))
	if err != nil {
		return err
	}
	end := biztime.NowUTC()
	row := &models.ParkingZoneUpdateInfoModel{
		StartTime:      start,
		EndTime:        &end,
		UpdateInfos:    infos,
		UpdateErrors:   errs,
		DatabaseUpdate: committed,
	}
	if err := e.logs.SaveParkingZoneUpdateInfo(ctx, row); err != nil {
		return err
	}
	report.LogID = row.ID.String()
	return nil
}

func nonNil(infos []UpdateInfo) []UpdateInfo {
	if infos == nil {
		return []UpdateInfo{}
	}
	return infos
}

func renderCSV(infos []UpdateInfo) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = ';'
	header := []string{
		"additional_sign_id", "location", "device_type_code", "old_additional_information",
		"new_additional_information", "streetsmart_link", "admin_link", "errors",
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, u := range infos {
		rec := []string{
			u.AdditionalSignID, u.Location, u.DeviceTypeCode, u.OldAdditionalInformation,
			u.NewAdditionalInformation, u.StreetsmartLink, u.AdminLink, strings.Join(u.Errors, ";"),
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
