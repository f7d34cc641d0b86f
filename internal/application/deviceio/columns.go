package deviceio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/cityinfra/trafficcontrol/internal/application/device/usecases"
	apperrors "github.com/cityinfra/trafficcontrol/internal/shared/errors"
	"github.com/cityinfra/trafficcontrol/internal/shared/geo"
)

const dateLayout = "2006-01-02"

// Column maps one spreadsheet column onto a field of T.
type Column[T any] struct {
	Name   string
	Export func(ctx context.Context, row *T) (string, error)
	Import func(ctx context.Context, row *T, value string) error
}

func textColumn[T any](name string, field func(*T) *string) Column[T] {
	return Column[T]{
		Name:   name,
		Export: func(_ context.Context, row *T) (string, error) { return *field(row), nil },
		Import: func(_ context.Context, row *T, v string) error {
			*field(row) = v
			return nil
		},
	}
}

func intColumn[T any](name string, field func(*T) *int) Column[T] {
	return Column[T]{
		Name:   name,
		Export: func(_ context.Context, row *T) (string, error) { return strconv.Itoa(*field(row)), nil },
		Import: func(_ context.Context, row *T, v string) error {
			if v == "" {
				*field(row) = 0
				return nil
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return invalidValue(v, "a whole number")
			}
			*field(row) = n
			return nil
		},
	}
}

func optIntColumn[T any](name string, field func(*T) **int) Column[T] {
	return Column[T]{
		Name: name,
		Export: func(_ context.Context, row *T) (string, error) {
			if p := *field(row); p != nil {
				return strconv.Itoa(*p), nil
			}
			return "", nil
		},
		Import: func(_ context.Context, row *T, v string) error {
			if v == "" {
				*field(row) = nil
				return nil
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return invalidValue(v, "a whole number")
			}
			*field(row) = &n
			return nil
		},
	}
}

func optFloatColumn[T any](name string, field func(*T) **float64) Column[T] {
	return Column[T]{
		Name: name,
		Export: func(_ context.Context, row *T) (string, error) {
			if p := *field(row); p != nil {
				return strconv.FormatFloat(*p, 'f', -1, 64), nil
			}
			return "", nil
		},
		Import: func(_ context.Context, row *T, v string) error {
			if v == "" {
				*field(row) = nil
				return nil
			}
			f, err := strconv.ParseFloat(strings.Replace(v, ",", ".", 1), 64)
			if err != nil {
				return invalidValue(v, "a number")
			}
			*field(row) = &f
			return nil
		},
	}
}

func dateColumn[T any](name string, field func(*T) **time.Time) Column[T] {
	return Column[T]{
		Name: name,
		Export: func(_ context.Context, row *T) (string, error) {
			if p := *field(row); p != nil {
				return p.Format(dateLayout), nil
			}
			return "", nil
		},
		Import: func(_ context.Context, row *T, v string) error {
			if v == "" {
				*field(row) = nil
				return nil
			}
			t, err := time.Parse(dateLayout, v)
			if err != nil {
				return invalidValue(v, "a date (YYYY-MM-DD)")
			}
			*field(row) = &t
			return nil
		},
	}
}

func boolColumn[T any](name string, field func(*T) *bool) Column[T] {
	return Column[T]{
		Name:   name,
		Export: func(_ context.Context, row *T) (string, error) { return strconv.FormatBool(*field(row)), nil },
		Import: func(_ context.Context, row *T, v string) error {
			if v == "" {
				*field(row) = false
				return nil
			}
			b, err := strconv.ParseBool(strings.ToLower(v))
			if err != nil {
				return invalidValue(v, "true or false")
			}
			*field(row) = b
			return nil
		},
	}
}

// jsonColumn holds a JSON document as its compact text.
func jsonColumn[T any](name string, field func(*T) *datatypes.JSON) Column[T] {
	return Column[T]{
		Name: name,
		Export: func(_ context.Context, row *T) (string, error) {
			raw := *field(row)
			if len(raw) == 0 || string(raw) == "null" {
				return "", nil
			}
			var buf bytes.Buffer
			if err := json.Compact(&buf, raw); err != nil {
				return "", err
			}
			return buf.String(), nil
		},
		Import: func(_ context.Context, row *T, v string) error {
			if v == "" {
				*field(row) = nil
				return nil
			}
			if !json.Valid([]byte(v)) {
				return invalidValue(v, "a JSON document")
			}
			*field(row) = datatypes.JSON(v)
			return nil
		},
	}
}

// enumColumn renders E by name. An empty cell takes def.
func enumColumn[T any, E fmt.Stringer](name string, field func(*T) *E, parse func(string) (E, error), def E) Column[T] {
	return Column[T]{
		Name:   name,
		Export: func(_ context.Context, row *T) (string, error) { return (*field(row)).String(), nil },
		Import: func(_ context.Context, row *T, v string) error {
			if v == "" {
				*field(row) = def
				return nil
			}
			e, err := parse(v)
			if err != nil {
				return err
			}
			*field(row) = e
			return nil
		},
	}
}

func optEnumColumn[T any, E fmt.Stringer](name string, field func(*T) **E, parse func(string) (E, error)) Column[T] {
	return Column[T]{
		Name: name,
		Export: func(_ context.Context, row *T) (string, error) {
			if p := *field(row); p != nil {
				return (*p).String(), nil
			}
			return "", nil
		},
		Import: func(_ context.Context, row *T, v string) error {
			if v == "" {
				*field(row) = nil
				return nil
			}
			e, err := parse(v)
			if err != nil {
				return err
			}
			*field(row) = &e
			return nil
		},
	}
}

func idColumn[T any](field func(*T) *uuid.UUID) Column[T] {
	return Column[T]{
		Name: "id",
		Export: func(_ context.Context, row *T) (string, error) {
			if id := *field(row); id != uuid.Nil {
				return id.String(), nil
			}
			return "", nil
		},
		// id is resolved before the other columns
		Import: func(context.Context, *T, string) error { return nil },
	}
}

// refColumn holds the id of another device. A non-nil exists rejects ids
// that do not resolve.
func refColumn[T any](name string, field func(*T) **uuid.UUID, exists func(context.Context, uuid.UUID) (bool, error)) Column[T] {
	return Column[T]{
		Name: name,
		Export: func(_ context.Context, row *T) (string, error) {
			if p := *field(row); p != nil {
				return p.String(), nil
			}
			return "", nil
		},
		Import: func(ctx context.Context, row *T, v string) error {
			if v == "" {
				*field(row) = nil
				return nil
			}
			id, err := parseUUID(v)
			if err != nil {
				return err
			}
			if exists != nil {
				ok, err := exists(ctx, id)
				if err != nil {
					return err
				}
				if !ok {
					return apperrors.New(apperrors.KindForeignKeyLookupMissing, fmt.Sprintf("%s %s does not exist", name, id))
				}
			}
			*field(row) = &id
			return nil
		},
	}
}

// lookupColumn holds a foreign key rendered by the referenced row's natural key.
func lookupColumn[T any](name string, field func(*T) **uuid.UUID, byKey func(context.Context, string) (*uuid.UUID, error), keyOf func(context.Context, uuid.UUID) (string, error)) Column[T] {
	return Column[T]{
		Name: name,
		Export: func(ctx context.Context, row *T) (string, error) {
			p := *field(row)
			if p == nil {
				return "", nil
			}
			return keyOf(ctx, *p)
		},
		Import: func(ctx context.Context, row *T, v string) error {
			if v == "" {
				*field(row) = nil
				return nil
			}
			id, err := byKey(ctx, v)
			if err != nil {
				return err
			}
			if id == nil {
				return apperrors.New(apperrors.KindForeignKeyLookupMissing, fmt.Sprintf("%s '%s' does not exist", name, v))
			}
			*field(row) = id
			return nil
		},
	}
}

// locationColumn renders EWKT. Imported geometries without an SRID get srid
// and 2D input is lifted to z=0. Geometries outside bounds are rejected.
func locationColumn[T any](field func(*T) *geo.Geometry, srid int, bounds usecases.BoundsChecker) Column[T] {
	return Column[T]{
		Name: "location",
		Export: func(_ context.Context, row *T) (string, error) {
			if g := *field(row); !g.IsZero() {
				return g.String(), nil
			}
			return "", nil
		},
		Import: func(_ context.Context, row *T, v string) error {
			if v == "" {
				return apperrors.New(apperrors.KindMissingRequiredField, "location is required")
			}
			g, err := geo.ParseEWKT(v)
			if err != nil {
				return err
			}
			if g.SRID() == 0 {
				if g, err = g.WithSRID(srid); err != nil {
					return err
				}
			}
			if !g.Is3D() {
				if g, err = geo.PromoteTo3D(g, 0); err != nil {
					return err
				}
			}
			if !bounds.WithinProjectionBounds(g) {
				return apperrors.New(apperrors.KindGeometryOutOfBounds, "Geometry is outside valid projection boundaries", v)
			}
			*field(row) = g
			return nil
		},
	}
}

func parseUUID(v string) (uuid.UUID, error) {
	id, err := uuid.Parse(v)
	if err != nil {
		return uuid.Nil, apperrors.New(apperrors.KindInvalidEnumValue, fmt.Sprintf("Value '%s' is not a valid UUID.", v))
	}
	return id, nil
}

func invalidValue(v, want string) error {
	return apperrors.New(apperrors.KindInvalidEnumValue, fmt.Sprintf("Value '%s' is not %s.", v, want))
}
