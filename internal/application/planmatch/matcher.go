// Package planmatch links reals that lack a plan pointer to the nearest
// unclaimed plan of their family.
package planmatch

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/cityinfra/trafficcontrol/internal/domain/device"
	"github.com/cityinfra/trafficcontrol/internal/domain/plan"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/persistence/models"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/repository"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/spatial"
	"github.com/cityinfra/trafficcontrol/internal/shared/biztime"
	apperrors "github.com/cityinfra/trafficcontrol/internal/shared/errors"
	"github.com/cityinfra/trafficcontrol/internal/shared/logger"
)

// SupportedFamilies are the families the matcher knows how to compare.
var SupportedFamilies = []device.Family{
	device.FamilyMount,
	device.FamilyTrafficSign,
	device.FamilyAdditionalSign,
}

type MatchStore interface {
	UnlinkedReals(ctx context.Context, f device.Family, now time.Time) ([]repository.MatchRow, error)
	UnclaimedPlans(ctx context.Context, f device.Family, scope func(*gorm.DB) *gorm.DB) ([]repository.MatchRow, error)
	Link(ctx context.Context, f device.Family, realID, planID uuid.UUID) error
}

type Transactor interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type ReportSink interface {
	Put(ctx context.Context, dir, name string, data []byte) (string, error)
}

type LogStore interface {
	SaveMappingLog(ctx context.Context, l *models.PlanRealMappingLogModel) error
}

type Options struct {
	Family    device.Family
	Radius    float64
	Update    bool
	OutputDir string
}

// Mapping is one real linked, or proposed to be linked, to a plan.
type Mapping struct {
	RealID         string  `json:"real_id"`
	RealLocation   string  `json:"real_location"`
	PlanID         string  `json:"pi_id"`
	PlanLocation   string  `json:"pi_location"`
	Distance       float64 `json:"pi_distance"`
	Count          int     `json:"pi_count"`
	Frequency      int     `json:"pi_frequency"`
	DeviceTypeCode string  `json:"device_type_code,omitempty"`
	MountTypeCode  string  `json:"mount_type_code,omitempty"`
	ParentCode     string  `json:"parent_code,omitempty"`
}

type Report struct {
	LogID   string    `json:"log_id"`
	Family  string    `json:"family"`
	DryRun  bool      `json:"dry_run"`
	Radius  float64   `json:"radius"`
	Passes  int       `json:"passes"`
	Mapped  []Mapping `json:"mapped"`
	Skipped []string  `json:"skipped"`
	// Unmatched reals had no candidate plan at all.
	Unmatched []string `json:"unmatched"`
	// Contested lists, per plan id, every real that had it as a candidate.
	Contested map[string][]string `json:"contested"`
	File      string              `json:"file,omitempty"`
}

type Matcher struct {
	store   MatchStore
	spatial spatial.Adapter
	tx      Transactor
	sink    ReportSink
	logs    LogStore
	logger  logger.Interface
}

func NewMatcher(store MatchStore, sp spatial.Adapter, tx Transactor, sink ReportSink, logs LogStore, log logger.Interface) *Matcher {
	return &Matcher{store: store, spatial: sp, tx: tx, sink: sink, logs: logs, logger: log}
}

type candidate struct {
	row      repository.MatchRow
	distance float64
}

type pass struct {
	mapped     map[uuid.UUID]candidate
	skipped    []uuid.UUID
	unmatched  []uuid.UUID
	candidates map[uuid.UUID][]uuid.UUID
	contested  map[uuid.UUID][]uuid.UUID
	reals      map[uuid.UUID]repository.MatchRow
	order      []uuid.UUID
}

// Run matches the family's unlinked reals. Without Update nothing is written
// except the run log, and a single pass is made.
func (m *Matcher) Run(ctx context.Context, opts Options) (*Report, error) {
	if !slices.Contains(SupportedFamilies, opts.Family) {
		return nil, apperrors.NewValidationError("family not supported by the matcher", opts.Family.String())
	}
	if opts.Radius <= 0 {
		return nil, apperrors.NewValidationError("radius must be positive", strconv.FormatFloat(opts.Radius, 'f', -1, 64))
	}

	start := biztime.NowUTC()
	m.logger.Infow("starting plan to real matching", "family", opts.Family, "radius", opts.Radius, "update", opts.Update)

	report := &Report{
		Family:    opts.Family.String(),
		DryRun:    !opts.Update,
		Radius:    opts.Radius,
		Contested: map[string][]string{},
	}
	var (
		mapped    []mappedPair
		skipped   []uuid.UUID
		unmatched []uuid.UUID
	)
	for {
		p, err := m.pass(ctx, opts)
		if err != nil {
			return nil, err
		}
		report.Passes++
		if report.Passes == 1 {
			for planID, realIDs := range p.contested {
				report.Contested[planID.String()] = uuidStrings(realIDs)
			}
		}

		if opts.Update {
			if err := m.apply(ctx, opts.Family, p); err != nil {
				return nil, err
			}
		}
		for _, id := range p.order {
			if c, ok := p.mapped[id]; ok {
				mapped = append(mapped, mappedPair{real: p.reals[id], plan: c})
			}
		}
		skipped = p.skipped
		unmatched = p.unmatched

		if !opts.Update || !needsAnotherPass(p) {
			break
		}
		m.logger.Infow("claims freed candidates of skipped reals, running again", "pass", report.Passes)
	}

	report.Mapped = buildMappings(mapped)
	report.Skipped = uuidStrings(skipped)
	report.Unmatched = uuidStrings(unmatched)

	if m.sink != nil && len(report.Mapped) > 0 {
		data, err := renderCSV(opts.Family, report.Mapped)
		if err != nil {
			return nil, err
		}
		name := fmt.Sprintf("%s_plan_real_mapping.csv", opts.Family)
		loc, err := m.sink.Put(ctx, opts.OutputDir, name, data)
		if err != nil {
			return nil, err
		}
		report.File = loc
	}

	if err := m.saveLog(ctx, report, start); err != nil {
		return nil, err
	}

	m.logger.Infow("plan to real matching finished",
		"family", opts.Family,
		"passes", report.Passes,
		"mapped", len(report.Mapped),
		"skipped", len(report.Skipped))
	return report, nil
}

type mappedPair struct {
	real repository.MatchRow
	plan candidate
}

func (m *Matcher) pass(ctx context.Context, opts Options) (*pass, error) {
	reals, err := m.store.UnlinkedReals(ctx, opts.Family, biztime.NowUTC())
	if err != nil {
		return nil, err
	}

	p := &pass{
		mapped:     map[uuid.UUID]candidate{},
		candidates: map[uuid.UUID][]uuid.UUID{},
		contested:  map[uuid.UUID][]uuid.UUID{},
		reals:      map[uuid.UUID]repository.MatchRow{},
	}
	found := map[uuid.UUID][]candidate{}
	claimants := map[uuid.UUID][]uuid.UUID{}

	for _, r := range reals {
		if opts.Family == device.FamilyMount && r.MountTypeCode == "" {
			continue
		}
		cands, err := m.candidates(ctx, opts.Family, r, opts.Radius)
		if err != nil {
			return nil, err
		}
		if len(cands) == 0 {
			p.unmatched = append(p.unmatched, r.ID)
			continue
		}
		p.reals[r.ID] = r
		p.order = append(p.order, r.ID)
		found[r.ID] = cands
		for _, c := range cands {
			p.candidates[r.ID] = append(p.candidates[r.ID], c.row.ID)
			claimants[c.row.ID] = append(claimants[c.row.ID], r.ID)
		}
	}
	for planID, realIDs := range claimants {
		if len(realIDs) > 1 {
			p.contested[planID] = realIDs
		}
	}

	for _, realID := range p.order {
		cands := found[realID]
		if opts.Update {
			cands = slices.DeleteFunc(slices.Clone(cands), func(c candidate) bool {
				return len(claimants[c.row.ID]) > 1
			})
		}
		if best, ok := bestMatch(cands); ok {
			p.mapped[realID] = best
		} else {
			p.skipped = append(p.skipped, realID)
		}
	}
	return p, nil
}

// candidates returns the unclaimed plans within radius of r that pass the
// family's code filter, with their distance to r.
func (m *Matcher) candidates(ctx context.Context, f device.Family, r repository.MatchRow, radius float64) ([]candidate, error) {
	if r.Location.IsEmpty() {
		return nil, nil
	}
	pred := m.spatial.DWithin("d.location", r.Location, radius)
	plans, err := m.store.UnclaimedPlans(ctx, f, pred.Scope)
	if err != nil {
		return nil, err
	}

	var out []candidate
	for _, pl := range plans {
		if !pred.Match(pl.Location) || !codesMatch(f, r, pl) {
			continue
		}
		d, err := m.spatial.Distance(ctx, r.Location, pl.Location)
		if err != nil {
			return nil, err
		}
		out = append(out, candidate{row: pl, distance: d})
	}
	return out, nil
}

func codesMatch(f device.Family, r, pl repository.MatchRow) bool {
	either := func(code, a, b string) bool {
		return code != "" && (code == a || code == b)
	}
	switch f {
	case device.FamilyMount:
		return pl.MountTypeCode == r.MountTypeCode
	case device.FamilyTrafficSign:
		return either(pl.DeviceTypeCode, r.DeviceTypeCode, r.DeviceTypeLegacyCode)
	case device.FamilyAdditionalSign:
		return either(pl.DeviceTypeCode, r.DeviceTypeCode, r.DeviceTypeLegacyCode) &&
			either(pl.ParentCode, r.ParentCode, r.ParentLegacyCode)
	}
	return false
}

// bestMatch picks the closest plan. Among equally close plans the newest
// wins, and remaining ties go to the latest decision.
func bestMatch(cands []candidate) (candidate, bool) {
	if len(cands) == 0 {
		return candidate{}, false
	}
	sorted := slices.Clone(cands)
	slices.SortStableFunc(sorted, func(a, b candidate) int {
		if a.distance != b.distance {
			if a.distance < b.distance {
				return -1
			}
			return 1
		}
		return b.row.CreatedAt.Compare(a.row.CreatedAt)
	})

	closest := sorted[0].distance
	n := 1
	for n < len(sorted) && sorted[n].distance == closest {
		n++
	}
	if n == 1 {
		return sorted[0], true
	}
	ties := sorted[:n]
	slices.SortStableFunc(ties, func(a, b candidate) int {
		return plan.ParseDecisionID(b.row.DecisionID).Compare(plan.ParseDecisionID(a.row.DecisionID))
	})
	return ties[0], true
}

func (m *Matcher) apply(ctx context.Context, f device.Family, p *pass) error {
	if len(p.mapped) == 0 {
		return nil
	}
	return m.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, realID := range p.order {
			c, ok := p.mapped[realID]
			if !ok {
				continue
			}
			if err := m.store.Link(ctx, f, realID, c.row.ID); err != nil {
				return fmt.Errorf("link real %s to plan %s: %w", realID, c.row.ID, err)
			}
		}
		return nil
	})
}

// needsAnotherPass reports whether a skipped real shared a candidate with a
// real that was just linked, since that plan may now be free of contention.
func needsAnotherPass(p *pass) bool {
	if len(p.mapped) == 0 {
		return false
	}
	touched := map[uuid.UUID]struct{}{}
	for realID := range p.mapped {
		for _, planID := range p.candidates[realID] {
			touched[planID] = struct{}{}
		}
	}
	for _, realID := range p.skipped {
		for _, planID := range p.candidates[realID] {
			if _, ok := touched[planID]; ok {
				return true
			}
		}
	}
	return false
}

// buildMappings fills in how often each plan was chosen and how many rows
// share that count.
func buildMappings(pairs []mappedPair) []Mapping {
	counts := map[uuid.UUID]int{}
	for _, pr := range pairs {
		counts[pr.plan.row.ID]++
	}
	freq := map[int]int{}
	for _, c := range counts {
		freq[c]++
	}

	out := make([]Mapping, 0, len(pairs))
	for _, pr := range pairs {
		c := counts[pr.plan.row.ID]
		out = append(out, Mapping{
			RealID:         pr.real.ID.String(),
			RealLocation:   pr.real.Location.String(),
			PlanID:         pr.plan.row.ID.String(),
			PlanLocation:   pr.plan.row.Location.String(),
			Distance:       pr.plan.distance,
			Count:          c,
			Frequency:      freq[c] * c,
			DeviceTypeCode: pr.real.DeviceTypeCode,
			MountTypeCode:  pr.real.MountTypeCode,
			ParentCode:     pr.real.ParentCode,
		})
	}
	return out
}

func renderCSV(f device.Family, rows []Mapping) ([]byte, error) {
	header := []string{"real_id", "real_location", "pi_id", "pi_location", "pi_distance", "pi_count", "pi_frequency"}
	switch f {
	case device.FamilyTrafficSign:
		header = append(header, "code")
	case device.FamilyAdditionalSign:
		header = append(header, "code", "parent_code")
	case device.FamilyMount:
		header = append(header, "mount_type")
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = ';'
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, r := range rows {
		rec := []string{
			r.RealID, r.RealLocation, r.PlanID, r.PlanLocation,
			strconv.FormatFloat(r.Distance, 'f', -1, 64),
			strconv.Itoa(r.Count), strconv.Itoa(r.Frequency),
		}
		switch f {
		case device.FamilyTrafficSign:
			rec = append(rec, r.DeviceTypeCode)
		case device.FamilyAdditionalSign:
			rec = append(rec, r.DeviceTypeCode, r.ParentCode)
		case device.FamilyMount:
			rec = append(rec, r.MountTypeCode)
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func (m *Matcher) saveLog(ctx context.Context, report *Report, start time.Time) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal mapping report: %w", err)
	}
	end := biztime.NowUTC()
	entry := &models.PlanRealMappingLogModel{
		Family:    report.Family,
		StartTime: start,
		EndTime:   &end,
		DryRun:    report.DryRun,
		Radius:    report.Radius,
		Passes:    report.Passes,
		Mapped:    len(report.Mapped),
		Skipped:   len(report.Skipped),
		Payload:   datatypes.JSON(payload),
	}
	if err := m.logs.SaveMappingLog(ctx, entry); err != nil {
		return err
	}
	report.LogID = entry.ID.String()
	return nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}
