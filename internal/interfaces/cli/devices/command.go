// Package devices exposes the device spreadsheet import and export and the
// plan lifecycle commands of every device family.
package devices

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cityinfra/trafficcontrol/internal/application/audit"
	"github.com/cityinfra/trafficcontrol/internal/application/device/usecases"
	"github.com/cityinfra/trafficcontrol/internal/application/deviceio"
	"github.com/cityinfra/trafficcontrol/internal/application/permission"
	"github.com/cityinfra/trafficcontrol/internal/domain/device"
	permInfra "github.com/cityinfra/trafficcontrol/internal/infrastructure/permission"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/persistence/models"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/repository"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/virusscan"
	"github.com/cityinfra/trafficcontrol/internal/interfaces/cli/app"
	"github.com/cityinfra/trafficcontrol/internal/shared/biztime"
	apperrors "github.com/cityinfra/trafficcontrol/internal/shared/errors"
)

var (
	object   string
	format   string
	output   string
	username string
)

func NewCommand(flags *app.Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "Export, import and replace device plans and reals",
	}

	cmd.PersistentFlags().StringVar(&object, "object", device.FamilyTrafficSign.PlanObject(),
		fmt.Sprintf("Object to import or export (%s)", strings.Join(codecObjects, ", ")))
	cmd.PersistentFlags().StringVar(&format, "format", "", "csv or xlsx (default: from the file name, else csv)")
	cmd.PersistentFlags().StringVar(&username, "user", "", "Act as this user; without it the command runs as the system")

	cmd.AddCommand(
		newExportCommand(flags),
		newRealTemplateCommand(flags),
		newImportCommand(flags),
		newReplaceCommand(flags),
		newUnreplaceCommand(flags),
		newDeleteCommand(flags),
		newChainCommand(flags),
	)
	return cmd
}

var codecObjects = []string{
	device.FamilyTrafficSign.PlanObject(),
	device.FamilyTrafficSign.RealObject(),
	device.FamilyAdditionalSign.PlanObject(),
	device.FamilyAdditionalSign.RealObject(),
}

type env struct {
	app        *app.App
	lifecycles usecases.Lifecycles
	signs      *deviceio.TrafficSigns
	additional *deviceio.AdditionalSigns
	user       *models.UserModel
}

func setup(ctx context.Context, flags *app.Flags) (*env, error) {
	a, err := app.Init(flags)
	if err != nil {
		return nil, err
	}

	e, err := build(ctx, a)
	if err != nil {
		a.Close()
		return nil, err
	}
	return e, nil
}

func build(ctx context.Context, a *app.App) (*env, error) {
	log := a.Logger.Named("devices")

	enforcer, err := permInfra.NewEnforcer(a.DB, a.Config.Permission.ModelPath, log)
	if err != nil {
		return nil, err
	}
	engine := permission.NewEngine(repository.NewGrantRepository(a.DB), a.Spatial, enforcer, log)
	recorder := audit.NewRecorder(repository.NewRunLogRepository(a.DB))

	lifecycles := usecases.NewLifecycles(a.DB, a.Tx, recorder, engine, a.Spatial, log)

	plans := repository.NewPlanRepository[models.TrafficSignPlanModel](a.DB, log)
	reals := repository.NewRealRepository[models.TrafficSignRealModel](a.DB, log)
	mountPlans := repository.NewPlanRepository[models.MountPlanModel](a.DB, log)
	envelopes := repository.NewPlanEnvelopeRepository(a.DB, log)
	deps := deviceio.Deps{
		Lookups: repository.NewReferenceRepository(a.DB),
		Gate:    engine,
		Tx:      a.Tx,
		Audit:   recorder,
		Bounds:  a.Spatial,
		SRID:    a.Spatial.SRID(),
		Logger:  log,
	}
	if a.Config.ClamAV.BaseURL != "" {
		deps.Scanner = virusscan.NewClamAVClient(a.Config.ClamAV, log)
	}

	signs := deviceio.NewTrafficSigns(deviceio.TrafficSignStores{
		Plans:      plans,
		PlanWriter: usecases.Typed[models.TrafficSignPlanModel](lifecycles),
		Reals:      reals,
		MountPlans: mountPlans,
		MountPlan:  mountPlans.GetByID,
		MountReal:  repository.NewRealRepository[models.MountRealModel](a.DB, log).GetByID,
		Envelope:   envelopes.GetByID,
		Authz:      engine,
	}, deps)
	additional := deviceio.NewAdditionalSigns(deviceio.AdditionalSignStores{
		Plans:      repository.NewPlanRepository[models.AdditionalSignPlanModel](a.DB, log),
		PlanWriter: usecases.Typed[models.AdditionalSignPlanModel](lifecycles),
		Reals:      repository.NewRealRepository[models.AdditionalSignRealModel](a.DB, log),
		ParentPlan: plans.GetByID,
		ParentReal: reals.GetByID,
		Envelope:   envelopes.GetByID,
		Authz:      engine,
	}, deps)

	e := &env{app: a, lifecycles: lifecycles, signs: signs, additional: additional}
	if username != "" {
		e.user, err = repository.NewUserRepository(a.DB, log).GetByUsername(ctx, username)
		if err != nil {
			return nil, err
		}
		if e.user == nil || !e.user.IsActive {
			return nil, apperrors.New(apperrors.KindNotFound, "user not found", username)
		}
	}
	return e, nil
}

// codec picks the plan or real codec named by --object.
func (e *env) codec() (codec, error) {
	switch object {
	case device.FamilyTrafficSign.PlanObject():
		return e.signs.Plans, nil
	case device.FamilyTrafficSign.RealObject():
		return e.signs.Reals, nil
	case device.FamilyAdditionalSign.PlanObject():
		return e.additional.Plans, nil
	case device.FamilyAdditionalSign.RealObject():
		return e.additional.Reals, nil
	default:
		return nil, apperrors.New(apperrors.KindInvalidEnumValue, "unsupported object", object)
	}
}

type codec interface {
	Export(ctx context.Context, w io.Writer, f deviceio.Format) (int, error)
	ExportInEffect(ctx context.Context, w io.Writer, f deviceio.Format, at time.Time) (int, error)
	Import(ctx context.Context, u *models.UserModel, data []byte, opts deviceio.ImportOptions) (*deviceio.ImportReport, error)
}

func resolveFormat(fileName string) (deviceio.Format, error) {
	if format != "" {
		return deviceio.ParseFormat(format)
	}
	return deviceio.ParseFormat(filepath.Ext(fileName))
}

// writeTo sends w's output to --output or stdout.
func writeTo(cmd *cobra.Command, fn func(w io.Writer) (int, error)) (int, error) {
	if output == "" {
		return fn(cmd.OutOrStdout())
	}
	f, err := os.Create(output)
	if err != nil {
		return 0, err
	}
	bw := bufio.NewWriter(f)
	n, err := fn(bw)
	if err == nil {
		err = bw.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}

func newExportCommand(flags *app.Flags) *cobra.Command {
	var inEffect bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export active devices",
		Long: `Export every device that is not soft deleted. With --in-effect only
devices in an active lifecycle whose validity window contains today are
written, and replaced plans are left out.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := setup(ctx, flags)
			if err != nil {
				return err
			}
			defer e.app.Close()

			c, err := e.codec()
			if err != nil {
				return err
			}
			f, err := resolveFormat(output)
			if err != nil {
				return err
			}
			n, err := writeTo(cmd, func(w io.Writer) (int, error) {
				if inEffect {
					return c.ExportInEffect(ctx, w, f, biztime.NowUTC())
				}
				return c.Export(ctx, w, f)
			})
			if err != nil {
				return err
			}
			e.app.Logger.Infow("devices exported", "object", object, "rows", n, "format", f, "in_effect", inEffect)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().BoolVar(&inEffect, "in-effect", false, "Only export devices in effect today")
	return cmd
}

func newRealTemplateCommand(flags *app.Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export-real-template",
		Short: "Export active traffic sign plans as a real import template",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := setup(ctx, flags)
			if err != nil {
				return err
			}
			defer e.app.Close()

			f, err := resolveFormat(output)
			if err != nil {
				return err
			}
			n, err := writeTo(cmd, func(w io.Writer) (int, error) { return e.signs.ExportAsRealTemplate(ctx, w, f) })
			if err != nil {
				return err
			}
			e.app.Logger.Infow("real template exported", "rows", n, "format", f)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

func newImportCommand(flags *app.Flags) *cobra.Command {
	var (
		file   string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import devices from a csv or xlsx file",
		Long: `Validate every row first and write nothing when any row fails. Rows
that equal the stored device are skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", file, err)
			}

			e, err := setup(ctx, flags)
			if err != nil {
				return err
			}
			defer e.app.Close()

			c, err := e.codec()
			if err != nil {
				return err
			}
			f, err := resolveFormat(file)
			if err != nil {
				return err
			}

			report, err := c.Import(ctx, e.user, data, deviceio.ImportOptions{
				FileName: filepath.Base(file),
				Format:   f,
				DryRun:   dryRun,
			})
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)
			if report.HasErrors() {
				return fmt.Errorf("import of %s failed, nothing was written", file)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "File to import (required)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate and roll back")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func printReport(w io.Writer, r *deviceio.ImportReport) {
	if r.DryRun {
		fmt.Fprintln(w, "DRY RUN: changes were rolled back")
	}
	counts := r.Counts()
	for _, status := range []string{deviceio.RowNew, deviceio.RowUpdate, deviceio.RowSkipped, deviceio.RowInvalid} {
		fmt.Fprintf(w, "%-18s %d\n", status, counts[status])
	}
	for _, row := range r.Rows {
		for _, e := range row.Errors {
			fmt.Fprintf(w, "row %d %s: %s (%s)\n", row.Row, e.Column, e.Message, e.Kind)
		}
	}
}

// lifecycleCommand runs fn on the plan lifecycle named by --family.
func lifecycleCommand(flags *app.Flags, use, short string, fn func(cmd *cobra.Command, e *env, s usecases.PlanLifecycle) error) *cobra.Command {
	var family string

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := device.ParseFamily(family)
			if err != nil {
				return err
			}
			e, err := setup(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer e.app.Close()

			s, err := e.lifecycles.For(f)
			if err != nil {
				return err
			}
			return fn(cmd, e, s)
		},
	}
	cmd.Flags().StringVar(&family, "family", device.FamilyTrafficSign.String(),
		fmt.Sprintf("Device family (%s)", strings.Join(familyNames(), ", ")))
	return cmd
}

func familyNames() []string {
	out := make([]string, len(device.Families))
	for i, f := range device.Families {
		out[i] = f.String()
	}
	return out
}

func parseIDFlag(name, v string) (uuid.UUID, error) {
	id, err := uuid.Parse(v)
	if err != nil {
		return uuid.Nil, apperrors.New(apperrors.KindInvalidEnumValue, "--"+name+" is not a valid UUID", v)
	}
	return id, nil
}

func newReplaceCommand(flags *app.Flags) *cobra.Command {
	var oldID, newID string

	cmd := lifecycleCommand(flags, "replace", "Make one plan the successor of another",
		func(cmd *cobra.Command, e *env, s usecases.PlanLifecycle) error {
			oldUUID, err := parseIDFlag("old", oldID)
			if err != nil {
				return err
			}
			newUUID, err := parseIDFlag("new", newID)
			if err != nil {
				return err
			}
			if err := s.Replace(cmd.Context(), e.user, oldUUID, newUUID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s replaced by %s\n", s.Family().PlanObject(), oldUUID, newUUID)
			return nil
		})
	cmd.Flags().StringVar(&oldID, "old", "", "Plan being replaced (required)")
	cmd.Flags().StringVar(&newID, "new", "", "Replacing plan (required)")
	_ = cmd.MarkFlagRequired("old")
	_ = cmd.MarkFlagRequired("new")
	return cmd
}

func newUnreplaceCommand(flags *app.Flags) *cobra.Command {
	var id string

	cmd := lifecycleCommand(flags, "unreplace", "Detach a plan from the plan it replaces",
		func(cmd *cobra.Command, e *env, s usecases.PlanLifecycle) error {
			planID, err := parseIDFlag("id", id)
			if err != nil {
				return err
			}
			if err := s.Unreplace(cmd.Context(), e.user, planID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s no longer replaces a plan\n", s.Family().PlanObject(), planID)
			return nil
		})
	cmd.Flags().StringVar(&id, "id", "", "Replacing plan (required)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newDeleteCommand(flags *app.Flags) *cobra.Command {
	var id string

	cmd := lifecycleCommand(flags, "delete", "Soft delete a plan and hand its reals back to the plan it replaced",
		func(cmd *cobra.Command, e *env, s usecases.PlanLifecycle) error {
			planID, err := parseIDFlag("id", id)
			if err != nil {
				return err
			}
			if err := s.SoftDelete(cmd.Context(), e.user, planID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s deleted\n", s.Family().PlanObject(), planID)
			return nil
		})
	cmd.Flags().StringVar(&id, "id", "", "Plan to delete (required)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newChainCommand(flags *app.Flags) *cobra.Command {
	var id string

	cmd := lifecycleCommand(flags, "chain", "Print a plan and the plans it transitively replaces",
		func(cmd *cobra.Command, _ *env, s usecases.PlanLifecycle) error {
			planID, err := parseIDFlag("id", id)
			if err != nil {
				return err
			}
			chain, err := s.ReplacementChain(cmd.Context(), planID)
			if err != nil {
				return err
			}
			for _, p := range chain {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		})
	cmd.Flags().StringVar(&id, "id", "", "Newest plan of the chain (required)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
