// Package geo wraps go-geom geometries as a database value. Geometries are
// stored as hex EWKB, which PostGIS accepts for geometry columns and SQLite
// keeps as text.
package geo

import (
	"database/sql/driver"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkbhex"
	"github.com/twpayne/go-geom/encoding/wkt"

	apperrors "github.com/cityinfra/trafficcontrol/internal/shared/errors"
)

// Geometry is a nullable geometry value. The zero value is SQL NULL.
type Geometry struct {
	g geom.T
}

// New wraps g.
func New(g geom.T) Geometry {
	return Geometry{g: g}
}

// T returns the wrapped go-geom value.
func (g Geometry) T() geom.T { return g.g }

// IsZero reports whether the geometry is NULL.
func (g Geometry) IsZero() bool { return g.g == nil }

// IsEmpty reports whether the geometry is NULL or has no coordinates.
func (g Geometry) IsEmpty() bool { return g.g == nil || len(g.g.FlatCoords()) == 0 }

func (g Geometry) SRID() int {
	if g.g == nil {
		return 0
	}
	return g.g.SRID()
}

// Is3D reports whether the geometry carries z coordinates.
func (g Geometry) Is3D() bool {
	if g.g == nil {
		return false
	}
	l := g.g.Layout()
	return l == geom.XYZ || l == geom.XYZM
}

// TypeName returns the OGC type name, e.g. "MultiPolygon".
func (g Geometry) TypeName() string {
	switch g.g.(type) {
	case *geom.Point:
		return "Point"
	case *geom.LineString:
		return "LineString"
	case *geom.LinearRing:
		return "LinearRing"
	case *geom.Polygon:
		return "Polygon"
	case *geom.MultiPoint:
		return "MultiPoint"
	case *geom.MultiLineString:
		return "MultiLineString"
	case *geom.MultiPolygon:
		return "MultiPolygon"
	case *geom.GeometryCollection:
		return "GeometryCollection"
	case nil:
		return ""
	}
	return fmt.Sprintf("%T", g.g)
}

// NumPolygons returns the member count of a MultiPolygon, 1 for a Polygon and 0 otherwise.
func (g Geometry) NumPolygons() int {
	switch t := g.g.(type) {
	case *geom.MultiPolygon:
		return t.NumPolygons()
	case *geom.Polygon:
		return 1
	}
	return 0
}

// EWKT renders the geometry with at most precision decimal digits. A negative
// precision keeps every digit.
func (g Geometry) EWKT(precision int) string {
	if g.g == nil {
		return ""
	}
	var (
		s   string
		err error
	)
	if precision >= 0 {
		s, err = wkt.Marshal(g.g, wkt.EncodeOptionWithMaxDecimalDigits(precision))
	} else {
		s, err = wkt.Marshal(g.g)
	}
	if err != nil {
		return ""
	}
	if srid := g.g.SRID(); srid != 0 {
		return "SRID=" + strconv.Itoa(srid) + ";" + s
	}
	return s
}

func (g Geometry) String() string {
	return g.EWKT(-1)
}

// EqualAt reports whether both geometries render to the same EWKT at the given precision.
func (g Geometry) EqualAt(other Geometry, precision int) bool {
	if g.IsZero() || other.IsZero() {
		return g.IsZero() == other.IsZero()
	}
	return g.EWKT(precision) == other.EWKT(precision)
}

// Bounds returns min x, min y, max x, max y.
func (g Geometry) Bounds() (float64, float64, float64, float64) {
	if g.IsEmpty() {
		return math.NaN(), math.NaN(), math.NaN(), math.NaN()
	}
	b := g.g.Bounds()
	return b.Min(0), b.Min(1), b.Max(0), b.Max(1)
}

// Value implements driver.Valuer.
func (g Geometry) Value() (driver.Value, error) {
	if g.g == nil {
		return nil, nil
	}
	s, err := ewkbhex.Encode(g.g, binary.LittleEndian)
	if err != nil {
		return nil, fmt.Errorf("encode geometry: %w", err)
	}
	return s, nil
}

// Scan implements sql.Scanner.
func (g *Geometry) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case nil:
		g.g = nil
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("cannot scan %T into geometry", src)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		g.g = nil
		return nil
	}
	t, err := ewkbhex.Decode(s)
	if err != nil {
		// Some stores hand back text; accept EWKT as well.
		parsed, perr := ParseEWKT(s)
		if perr != nil {
			return fmt.Errorf("decode geometry: %w", err)
		}
		*g = parsed
		return nil
	}
	g.g = t
	return nil
}

// MarshalJSON renders the geometry as an EWKT string.
func (g Geometry) MarshalJSON() ([]byte, error) {
	if g.g == nil {
		return []byte("null"), nil
	}
	return json.Marshal(g.String())
}

// UnmarshalJSON accepts an EWKT string or null.
func (g *Geometry) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == nil || *s == "" {
		g.g = nil
		return nil
	}
	parsed, err := ParseEWKT(*s)
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// ParseEWKT parses WKT with an optional "SRID=n;" prefix.
func ParseEWKT(text string) (Geometry, error) {
	text = strings.TrimSpace(text)
	srid := 0
	if len(text) >= 5 && strings.EqualFold(text[:5], "SRID=") {
		head, body, ok := strings.Cut(text[5:], ";")
		if !ok {
			return Geometry{}, apperrors.New(apperrors.KindInvalidEwkt, "missing ';' after SRID", text)
		}
		n, err := strconv.Atoi(strings.TrimSpace(head))
		if err != nil {
			return Geometry{}, apperrors.New(apperrors.KindInvalidEwkt, "invalid SRID", head)
		}
		srid = n
		text = body
	}
	t, err := wkt.Unmarshal(strings.ToUpper(strings.TrimSpace(text)))
	if err != nil {
		return Geometry{}, apperrors.New(apperrors.KindInvalidGeometry, "invalid WKT", err.Error())
	}
	t, err = setSRID(t, srid)
	if err != nil {
		return Geometry{}, err
	}
	return Geometry{g: t}, nil
}

// MustParseEWKT is ParseEWKT for literals known to be valid.
func MustParseEWKT(text string) Geometry {
	g, err := ParseEWKT(text)
	if err != nil {
		panic(err)
	}
	return g
}

// WithSRID returns a copy of g tagged with srid.
func (g Geometry) WithSRID(srid int) (Geometry, error) {
	if g.g == nil {
		return g, nil
	}
	t, err := setSRID(g.g, srid)
	if err != nil {
		return Geometry{}, err
	}
	return Geometry{g: t}, nil
}

func setSRID(t geom.T, srid int) (geom.T, error) {
	switch v := t.(type) {
	case *geom.Point:
		return v.SetSRID(srid), nil
	case *geom.LineString:
		return v.SetSRID(srid), nil
	case *geom.LinearRing:
		return v.SetSRID(srid), nil
	case *geom.Polygon:
		return v.SetSRID(srid), nil
	case *geom.MultiPoint:
		return v.SetSRID(srid), nil
	case *geom.MultiLineString:
		return v.SetSRID(srid), nil
	case *geom.MultiPolygon:
		return v.SetSRID(srid), nil
	case *geom.GeometryCollection:
		return v.SetSRID(srid), nil
	}
	return nil, apperrors.New(apperrors.KindInvalidGeometry, "unsupported geometry type", fmt.Sprintf("%T", t))
}
