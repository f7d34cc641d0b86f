// Package deviceio imports and exports device rows as CSV or XLSX
// spreadsheets, one column per field. Enums travel by name and foreign keys
// by the referenced row's natural key.
package deviceio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cityinfra/trafficcontrol/internal/application/audit"
	"github.com/cityinfra/trafficcontrol/internal/application/device/usecases"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/persistence/models"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/virusscan"
	apperrors "github.com/cityinfra/trafficcontrol/internal/shared/errors"
	"github.com/cityinfra/trafficcontrol/internal/shared/logger"
)

// Row statuses of an import.
const (
	RowNew     = "new"
	RowUpdate  = "update"
	RowSkipped = "skipped_unchanged"
	RowInvalid = "error"
)

const replacesColumn = "replaces"

// Store reads and writes the rows of one device table.
type Store[T any] interface {
	List(ctx context.Context) ([]*T, error)
	InEffect(ctx context.Context, at time.Time) ([]*T, error)
	Get(ctx context.Context, id uuid.UUID) (*T, error)
	Create(ctx context.Context, u *models.UserModel, row *T, replaces *uuid.UUID) error
	Update(ctx context.Context, u *models.UserModel, row *T, replaces usecases.ReplacesField) error
}

// chainStore is a Store whose rows form replacement chains.
type chainStore interface {
	Replaces(ctx context.Context, id uuid.UUID) (*uuid.UUID, error)
}

type Scanner interface {
	Scan(ctx context.Context, files []virusscan.File) ([]virusscan.ScanError, error)
}

// ImportGate authorizes an import before anything is written.
type ImportGate interface {
	CheckImportRows(ctx context.Context, u *models.UserModel, object string, entityIDs []*uuid.UUID) error
	CheckResponsibleEntity(ctx context.Context, u *models.UserModel, entityID *uuid.UUID) error
}

type Transactor interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type AuditRecorder interface {
	Record(ctx context.Context, e audit.Entry) error
}

// RowError is one failed cell or row.
type RowError struct {
	Column  string         `json:"column,omitempty"`
	Kind    apperrors.Kind `json:"kind,omitempty"`
	Message string         `json:"message"`
}

type RowResult struct {
	Row    int        `json:"row"`
	ID     string     `json:"id,omitempty"`
	Status string     `json:"status"`
	Errors []RowError `json:"errors,omitempty"`
}

// ImportReport lists the outcome of every data row. Nothing was written when
// it has errors or is a dry run.
type ImportReport struct {
	Object string      `json:"object"`
	DryRun bool        `json:"dry_run"`
	Rows   []RowResult `json:"rows"`
}

func (r *ImportReport) HasErrors() bool {
	return slices.ContainsFunc(r.Rows, func(row RowResult) bool { return row.Status == RowInvalid })
}

// Counts returns the number of rows per status.
func (r *ImportReport) Counts() map[string]int {
	out := map[string]int{}
	for _, row := range r.Rows {
		out[row.Status]++
	}
	return out
}

type ImportOptions struct {
	FileName string
	Format   Format
	DryRun   bool
}

var errDryRun = errors.New("dry run")

// Codec moves rows of T between a store and spreadsheets.
type Codec[T any] struct {
	object  string
	columns []Column[T]
	common  func(*T) *models.DeviceCommon
	store   Store[T]
	scanner Scanner
	gate    ImportGate
	tx      Transactor
	audit   AuditRecorder
	logger  logger.Interface
}

// Deps are the collaborators shared by every codec. Scanner, Gate and Audit
// may be nil.
type Deps struct {
	Lookups Lookups
	Scanner Scanner
	Gate    ImportGate
	Tx      Transactor
	Audit   AuditRecorder
	Bounds  usecases.BoundsChecker
	SRID    int
	Logger  logger.Interface
}

func newCodec[T any](object string, columns []Column[T], common func(*T) *models.DeviceCommon, store Store[T], deps Deps) *Codec[T] {
	if chain, ok := store.(chainStore); ok {
		columns = append(columns, Column[T]{
			Name: replacesColumn,
			Export: func(ctx context.Context, row *T) (string, error) {
				id := common(row).ID
				if id == uuid.Nil {
					return "", nil
				}
				prev, err := chain.Replaces(ctx, id)
				if err != nil || prev == nil {
					return "", err
				}
				return prev.String(), nil
			},
			// routed through the store, see Import
			Import: func(context.Context, *T, string) error { return nil },
		})
	}
	return &Codec[T]{
		object:  object,
		columns: columns,
		common:  common,
		store:   store,
		scanner: deps.Scanner,
		gate:    deps.Gate,
		tx:      deps.Tx,
		audit:   deps.Audit,
		logger:  deps.Logger.Named("deviceio." + object),
	}
}

func (c *Codec[T]) Object() string { return c.object }

// Headers returns the column names in export order.
func (c *Codec[T]) Headers() []string {
	out := make([]string, len(c.columns))
	for i, col := range c.columns {
		out[i] = col.Name
	}
	return out
}

// Export writes every active row.
func (c *Codec[T]) Export(ctx context.Context, w io.Writer, format Format) (int, error) {
	rows, err := c.store.List(ctx)
	if err != nil {
		return 0, err
	}
	if err := c.writeRows(ctx, w, format, rows); err != nil {
		return 0, err
	}
	c.logger.Infow("devices exported", "rows", len(rows), "format", format)
	return len(rows), nil
}

// ExportInEffect writes the rows in an active lifecycle whose validity
// window contains at.
func (c *Codec[T]) ExportInEffect(ctx context.Context, w io.Writer, format Format, at time.Time) (int, error) {
	rows, err := c.store.InEffect(ctx, at)
	if err != nil {
		return 0, err
	}
	if err := c.writeRows(ctx, w, format, rows); err != nil {
		return 0, err
	}
	c.logger.Infow("devices in effect exported", "rows", len(rows), "format", format, "at", at)
	return len(rows), nil
}

func (c *Codec[T]) writeRows(ctx context.Context, w io.Writer, format Format, rows []*T) error {
	t := &table{header: c.Headers()}
	for _, row := range rows {
		rec, err := c.record(ctx, row)
		if err != nil {
			return err
		}
		t.rows = append(t.rows, rec)
	}
	return writeTable(w, t, format, c.object)
}

func (c *Codec[T]) record(ctx context.Context, row *T) ([]string, error) {
	rec := make([]string, len(c.columns))
	for i, col := range c.columns {
		v, err := col.Export(ctx, row)
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", col.Name, err)
		}
		rec[i] = v
	}
	return rec, nil
}

// pending is a validated row waiting to be written.
type pending[T any] struct {
	result   *RowResult
	row      *T
	exists   bool
	current  *uuid.UUID
	replaces usecases.ReplacesField
	newPrev  *uuid.UUID
}

// Import scans the file, validates every row, authorizes the import and then
// writes the changed rows in one transaction. Row problems are reported, not
// returned; a dry run rolls the transaction back.
func (c *Codec[T]) Import(ctx context.Context, u *models.UserModel, data []byte, opts ImportOptions) (*ImportReport, error) {
	if err := c.scan(ctx, u, data, opts.FileName); err != nil {
		return nil, err
	}

	t, err := readTable(data, opts.Format)
	if err != nil {
		return nil, err
	}

	report := &ImportReport{Object: c.object, DryRun: opts.DryRun, Rows: make([]RowResult, len(t.rows))}
	rows := make([]*pending[T], 0, len(t.rows))
	idx := t.index()
	for i, rec := range t.rows {
		report.Rows[i] = RowResult{Row: i + 1}
		p, err := c.prepare(ctx, &report.Rows[i], idx, rec)
		if err != nil {
			return nil, err
		}
		if p != nil {
			rows = append(rows, p)
		}
	}
	if report.HasErrors() {
		c.logger.Warnw("import rejected", "file", opts.FileName, "counts", report.Counts())
		return report, nil
	}

	if err := c.authorize(ctx, u, rows); err != nil {
		return nil, err
	}

	err = c.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, p := range rows {
			if err := c.write(ctx, u, p); err != nil {
				return err
			}
		}
		if opts.DryRun {
			return errDryRun
		}
		return nil
	})
	switch {
	case err == nil, errors.Is(err, errDryRun):
	case apperrors.GetAppError(err) != nil && report.HasErrors():
		c.logger.Warnw("import rolled back", "file", opts.FileName, "error", err)
		return report, nil
	default:
		return nil, err
	}

	c.logger.Infow("import finished", "file", opts.FileName, "dry_run", opts.DryRun, "counts", report.Counts())
	return report, nil
}

// scan rejects infected uploads and records each finding in the audit log.
func (c *Codec[T]) scan(ctx context.Context, u *models.UserModel, data []byte, name string) error {
	if c.scanner == nil {
		return nil
	}
	found, err := c.scanner.Scan(ctx, []virusscan.File{{Name: name, Data: data}})
	if err != nil {
		return err
	}
	if len(found) == 0 {
		return nil
	}

	details := make([]string, 0, len(found))
	for _, f := range found {
		details = append(details, f.Detail)
		if c.audit == nil {
			continue
		}
		if err := c.audit.Record(ctx, audit.Entry{
			Actor:      actor(u),
			Action:     audit.ActionAccess,
			ObjectType: c.object,
			After:      f,
			Note:       "virusscan",
		}); err != nil {
			c.logger.Errorw("failed to audit virus scan finding", "error", err)
		}
	}
	c.logger.Warnw("import blocked by virus scan", "file", name, "findings", details)
	return apperrors.New(apperrors.KindVirusScanFailure, "Virus scan failed", strings.Join(details, "; "))
}

// prepare applies one record onto a new or loaded row. It returns nil for
// rows that failed or are unchanged.
func (c *Codec[T]) prepare(ctx context.Context, res *RowResult, idx map[string]int, rec []string) (*pending[T], error) {
	cell := func(name string) (string, bool) {
		i, ok := idx[name]
		if !ok {
			return "", false
		}
		return rec[i], true
	}
	fail := func(col string, err error) {
		res.Status = RowInvalid
		e := RowError{Column: col, Message: err.Error()}
		if appErr := apperrors.GetAppError(err); appErr != nil {
			e.Kind, e.Message = appErr.Kind, appErr.Message
		}
		res.Errors = append(res.Errors, e)
	}

	p := &pending[T]{result: res}
	var id uuid.UUID
	if v, _ := cell("id"); v != "" {
		var err error
		if id, err = parseUUID(v); err != nil {
			fail("id", err)
			return nil, nil
		}
		existing, err := c.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			p.row, p.exists = existing, true
		}
	}
	if p.row == nil {
		p.row = new(T)
		c.common(p.row).ID = id
	}

	var before []string
	if p.exists {
		var err error
		if before, err = c.record(ctx, p.row); err != nil {
			return nil, err
		}
		if re := c.common(p.row).ResponsibleEntityID; re != nil {
			cur := *re
			p.current = &cur
		}
	}

	for _, col := range c.columns {
		v, ok := cell(col.Name)
		if !ok {
			continue
		}
		if err := col.Import(ctx, p.row, v); err != nil {
			if apperrors.GetAppError(err) == nil {
				return nil, err
			}
			fail(col.Name, err)
		}
	}
	if v, ok := cell(replacesColumn); ok && c.replacesSupported() {
		if v != "" {
			prev, err := parseUUID(v)
			if err != nil {
				fail(replacesColumn, err)
			} else {
				p.newPrev = &prev
			}
		}
		if p.exists && v != before[slices.Index(c.Headers(), replacesColumn)] {
			p.replaces = usecases.ReplacesField{Set: true, ID: p.newPrev}
		}
	}
	if res.Status == RowInvalid {
		return nil, nil
	}

	if !p.exists {
		res.Status = RowNew
		return p, nil
	}
	res.ID = c.common(p.row).ID.String()
	after, err := c.record(ctx, p.row)
	if err != nil {
		return nil, err
	}
	if slices.Equal(before, after) && !p.replaces.Set {
		res.Status = RowSkipped
		return nil, nil
	}
	res.Status = RowUpdate
	return p, nil
}

func (c *Codec[T]) replacesSupported() bool {
	_, ok := c.store.(chainStore)
	return ok
}

// authorize runs the import gate over the target and the current
// responsible entity of every row.
func (c *Codec[T]) authorize(ctx context.Context, u *models.UserModel, rows []*pending[T]) error {
	if c.gate == nil || u == nil {
		return nil
	}
	targets := make([]*uuid.UUID, len(rows))
	for i, p := range rows {
		targets[i] = c.common(p.row).ResponsibleEntityID
	}
	if err := c.gate.CheckImportRows(ctx, u, c.object, targets); err != nil {
		return err
	}
	if u.IsSuperuser || u.BypassResponsibleEntity {
		return nil
	}
	for _, p := range rows {
		if !p.exists {
			continue
		}
		if p.current == nil {
			return apperrors.New(apperrors.KindForbidden,
				"You do not have a permission to modify devices without a responsible entity.", p.result.ID)
		}
		if err := c.gate.CheckResponsibleEntity(ctx, u, p.current); err != nil {
			return err
		}
	}
	return nil
}

func (c *Codec[T]) write(ctx context.Context, u *models.UserModel, p *pending[T]) error {
	var err error
	if p.exists {
		err = c.store.Update(ctx, u, p.row, p.replaces)
	} else {
		err = c.store.Create(ctx, u, p.row, p.newPrev)
	}
	if err != nil {
		res := p.result
		res.Status = RowInvalid
		e := RowError{Message: err.Error()}
		if appErr := apperrors.GetAppError(err); appErr != nil {
			e.Kind, e.Message = appErr.Kind, appErr.Message
		}
		res.Errors = append(res.Errors, e)
		return err
	}
	p.result.ID = c.common(p.row).ID.String()
	return nil
}

func actor(u *models.UserModel) *uuid.UUID {
	if u == nil {
		return nil
	}
	id := u.ID
	return &id
}
