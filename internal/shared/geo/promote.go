package geo

import (
	"github.com/twpayne/go-geom"

	apperrors "github.com/cityinfra/trafficcontrol/internal/shared/errors"
)

// PromoteTo3D returns g with every coordinate rewritten as (x, y, z). An
// existing z is overwritten; m values are dropped.
func PromoteTo3D(g Geometry, z float64) (Geometry, error) {
	if g.g == nil {
		return g, nil
	}
	stride := g.g.Stride()
	flat := lift(g.g.FlatCoords(), stride, z)
	scale := func(ends []int) []int {
		out := make([]int, len(ends))
		for i, e := range ends {
			out[i] = e / stride * 3
		}
		return out
	}

	var out geom.T
	switch t := g.g.(type) {
	case *geom.Point:
		out = geom.NewPointFlat(geom.XYZ, flat)
	case *geom.LineString:
		out = geom.NewLineStringFlat(geom.XYZ, flat)
	case *geom.LinearRing:
		out = geom.NewLinearRingFlat(geom.XYZ, flat)
	case *geom.Polygon:
		out = geom.NewPolygonFlat(geom.XYZ, flat, scale(t.Ends()))
	case *geom.MultiPoint:
		out = geom.NewMultiPointFlat(geom.XYZ, flat)
	case *geom.MultiLineString:
		out = geom.NewMultiLineStringFlat(geom.XYZ, flat, scale(t.Ends()))
	case *geom.MultiPolygon:
		endss := make([][]int, len(t.Endss()))
		for i, ends := range t.Endss() {
			endss[i] = scale(ends)
		}
		out = geom.NewMultiPolygonFlat(geom.XYZ, flat, endss)
	default:
		return Geometry{}, apperrors.New(apperrors.KindInvalidGeometry, "cannot promote geometry to 3D", g.TypeName())
	}
	return New(out).WithSRID(g.SRID())
}

func lift(flat []float64, stride int, z float64) []float64 {
	if stride == 0 {
		return nil
	}
	n := len(flat) / stride
	out := make([]float64, 0, n*3)
	for i := 0; i < n; i++ {
		c := flat[i*stride : (i+1)*stride]
		out = append(out, c[0], c[1], z)
	}
	return out
}
