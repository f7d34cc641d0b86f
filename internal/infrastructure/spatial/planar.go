package spatial

import (
	"context"
	"math"

	"github.com/twpayne/go-geom"

	"github.com/cityinfra/trafficcontrol/internal/shared/geo"
)

const eps = 1e-9

type pt struct{ x, y float64 }

type ring []pt

type polygon []ring // exterior first, then holes

// Planar evaluates predicates in process with Cartesian geometry. It is exact
// for a projected SRID such as EPSG:3879 and ignores z like PostGIS does.
type Planar struct {
	srid   int
	bounds Bounds
}

func NewPlanar(srid int, bounds Bounds) *Planar {
	return &Planar{srid: srid, bounds: bounds}
}

func (p *Planar) SRID() int { return p.srid }

func (p *Planar) Within(_ context.Context, g, area geo.Geometry) (bool, error) {
	return within(g, area), nil
}

func (p *Planar) Distance(_ context.Context, a, b geo.Geometry) (float64, error) {
	return distance(a, b), nil
}

func (p *Planar) Equals(_ context.Context, a, b geo.Geometry) (bool, error) {
	if a.IsEmpty() || b.IsEmpty() {
		return a.IsEmpty() == b.IsEmpty(), nil
	}
	if sameVertices(a, b) {
		return true, nil
	}
	if len(polygons(a)) > 0 && len(polygons(b)) > 0 {
		return within(a, b) && within(b, a), nil
	}
	return false, nil
}

func (p *Planar) Validate(_ context.Context, g geo.Geometry) (bool, string, error) {
	reason := invalidReason(g)
	return reason == "", reason, nil
}

func (p *Planar) WithinProjectionBounds(g geo.Geometry) bool {
	return p.bounds.Contains(g)
}

func (p *Planar) DWithin(_ string, ref geo.Geometry, meters float64) Predicate {
	return Predicate{
		Scope: passThrough,
		Match: func(g geo.Geometry) bool {
			if g.IsEmpty() || ref.IsEmpty() {
				return false
			}
			return distance(g, ref) <= meters+eps
		},
	}
}

// decomposition

func toPts(flat []float64, stride int) []pt {
	out := make([]pt, 0, len(flat)/stride)
	for i := 0; i+1 < len(flat); i += stride {
		out = append(out, pt{flat[i], flat[i+1]})
	}
	return out
}

func polygonOf(p *geom.Polygon) polygon {
	out := make(polygon, 0, p.NumLinearRings())
	for i := 0; i < p.NumLinearRings(); i++ {
		lr := p.LinearRing(i)
		out = append(out, toPts(lr.FlatCoords(), lr.Stride()))
	}
	return out
}

func polygons(g geo.Geometry) []polygon {
	switch t := g.T().(type) {
	case *geom.Polygon:
		return []polygon{polygonOf(t)}
	case *geom.MultiPolygon:
		out := make([]polygon, 0, t.NumPolygons())
		for i := 0; i < t.NumPolygons(); i++ {
			out = append(out, polygonOf(t.Polygon(i)))
		}
		return out
	}
	return nil
}

func vertices(g geo.Geometry) []pt {
	if g.IsZero() {
		return nil
	}
	return toPts(g.T().FlatCoords(), g.T().Stride())
}

// paths returns every polyline of g; a point yields a single-vertex path.
func paths(g geo.Geometry) [][]pt {
	switch t := g.T().(type) {
	case *geom.Point, *geom.MultiPoint:
		var out [][]pt
		for _, v := range vertices(g) {
			out = append(out, []pt{v})
		}
		return out
	case *geom.LineString:
		return [][]pt{toPts(t.FlatCoords(), t.Stride())}
	case *geom.LinearRing:
		return [][]pt{toPts(t.FlatCoords(), t.Stride())}
	case *geom.MultiLineString:
		var out [][]pt
		for i := 0; i < t.NumLineStrings(); i++ {
			ls := t.LineString(i)
			out = append(out, toPts(ls.FlatCoords(), ls.Stride()))
		}
		return out
	}
	var out [][]pt
	for _, poly := range polygons(g) {
		for _, r := range poly {
			out = append(out, r)
		}
	}
	return out
}

// predicates

func within(g, area geo.Geometry) bool {
	if g.IsEmpty() || area.IsEmpty() {
		return false
	}
	areas := polygons(area)
	if len(areas) == 0 {
		return false
	}

	switch g.T().(type) {
	case *geom.Point, *geom.MultiPoint:
		for _, v := range vertices(g) {
			if !anyPolygon(areas, func(a polygon) bool { return pointIn(v, a, false) }) {
				return false
			}
		}
		return true
	}

	parts := polygons(g)
	if len(parts) == 0 {
		for _, path := range paths(g) {
			parts = append(parts, polygon{path})
		}
	}
	for _, part := range parts {
		if !anyPolygon(areas, func(a polygon) bool { return partWithin(part, a) }) {
			return false
		}
	}
	return true
}

func anyPolygon(ps []polygon, fn func(polygon) bool) bool {
	for _, p := range ps {
		if fn(p) {
			return true
		}
	}
	return false
}

func partWithin(part, area polygon) bool {
	for _, r := range part {
		for _, v := range r {
			if !pointIn(v, area, true) {
				return false
			}
		}
	}
	for _, r := range part {
		for i := 0; i+1 < len(r); i++ {
			for _, ar := range area {
				for j := 0; j+1 < len(ar); j++ {
					if properCross(r[i], r[i+1], ar[j], ar[j+1]) {
						return false
					}
				}
			}
		}
	}
	// a hole of the area strictly inside the part leaves the part uncovered
	if len(part) > 0 && len(part[0]) >= 4 && part[0][0] == part[0][len(part[0])-1] {
		for _, hole := range area[1:] {
			for _, v := range hole {
				if pointIn(v, polygon{part[0]}, false) {
					return false
				}
			}
		}
	}
	return true
}

// pointIn tests p against a polygon with holes. Boundary points count as
// inside only when allowBoundary is set.
func pointIn(p pt, poly polygon, allowBoundary bool) bool {
	if len(poly) == 0 {
		return false
	}
	if onRing(p, poly[0]) {
		return allowBoundary
	}
	if !rayCast(p, poly[0]) {
		return false
	}
	for _, hole := range poly[1:] {
		if onRing(p, hole) {
			return allowBoundary
		}
		if rayCast(p, hole) {
			return false
		}
	}
	return true
}

func rayCast(p pt, r ring) bool {
	in := false
	for i, j := 0, len(r)-1; i < len(r); j, i = i, i+1 {
		a, b := r[i], r[j]
		if (a.y > p.y) != (b.y > p.y) && p.x < (b.x-a.x)*(p.y-a.y)/(b.y-a.y)+a.x {
			in = !in
		}
	}
	return in
}

func onRing(p pt, r ring) bool {
	for i := 0; i+1 < len(r); i++ {
		if pointSegDist(p, r[i], r[i+1]) <= eps {
			return true
		}
	}
	return false
}

func distance(a, b geo.Geometry) float64 {
	if a.IsEmpty() || b.IsEmpty() {
		return math.Inf(1)
	}
	for _, v := range vertices(a) {
		if anyPolygon(polygons(b), func(p polygon) bool { return pointIn(v, p, true) }) {
			return 0
		}
	}
	for _, v := range vertices(b) {
		if anyPolygon(polygons(a), func(p polygon) bool { return pointIn(v, p, true) }) {
			return 0
		}
	}

	best := math.Inf(1)
	for _, pa := range paths(a) {
		for _, pb := range paths(b) {
			if d := pathDist(pa, pb); d < best {
				best = d
			}
		}
	}
	return best
}

func pathDist(a, b []pt) float64 {
	segs := func(p []pt) [][2]pt {
		if len(p) == 1 {
			return [][2]pt{{p[0], p[0]}}
		}
		out := make([][2]pt, 0, len(p)-1)
		for i := 0; i+1 < len(p); i++ {
			out = append(out, [2]pt{p[i], p[i+1]})
		}
		return out
	}
	best := math.Inf(1)
	for _, s := range segs(a) {
		for _, t := range segs(b) {
			if d := segDist(s[0], s[1], t[0], t[1]); d < best {
				best = d
			}
		}
	}
	return best
}

func segDist(a, b, c, d pt) float64 {
	if intersects(a, b, c, d) {
		return 0
	}
	return math.Min(
		math.Min(pointSegDist(a, c, d), pointSegDist(b, c, d)),
		math.Min(pointSegDist(c, a, b), pointSegDist(d, a, b)),
	)
}

func pointSegDist(p, a, b pt) float64 {
	dx, dy := b.x-a.x, b.y-a.y
	if dx == 0 && dy == 0 {
		return math.Hypot(p.x-a.x, p.y-a.y)
	}
	t := ((p.x-a.x)*dx + (p.y-a.y)*dy) / (dx*dx + dy*dy)
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(p.x-(a.x+t*dx), p.y-(a.y+t*dy))
}

func orient(a, b, c pt) int {
	v := (b.x-a.x)*(c.y-a.y) - (b.y-a.y)*(c.x-a.x)
	switch {
	case v > eps:
		return 1
	case v < -eps:
		return -1
	}
	return 0
}

func onSegment(p, a, b pt) bool {
	return math.Min(a.x, b.x)-eps <= p.x && p.x <= math.Max(a.x, b.x)+eps &&
		math.Min(a.y, b.y)-eps <= p.y && p.y <= math.Max(a.y, b.y)+eps
}

func intersects(a, b, c, d pt) bool {
	o1, o2, o3, o4 := orient(a, b, c), orient(a, b, d), orient(c, d, a), orient(c, d, b)
	if o1 != o2 && o3 != o4 {
		return true
	}
	return (o1 == 0 && onSegment(c, a, b)) || (o2 == 0 && onSegment(d, a, b)) ||
		(o3 == 0 && onSegment(a, c, d)) || (o4 == 0 && onSegment(b, c, d))
}

// properCross is an intersection at a point interior to both segments.
func properCross(a, b, c, d pt) bool {
	o1, o2, o3, o4 := orient(a, b, c), orient(a, b, d), orient(c, d, a), orient(c, d, b)
	return o1*o2 < 0 && o3*o4 < 0
}

func sameVertices(a, b geo.Geometry) bool {
	if a.TypeName() != b.TypeName() {
		return false
	}
	va, vb := vertices(a), vertices(b)
	if len(va) != len(vb) {
		return false
	}
	for i := range va {
		if math.Abs(va[i].x-vb[i].x) > eps || math.Abs(va[i].y-vb[i].y) > eps {
			return false
		}
	}
	return true
}

// validity

func invalidReason(g geo.Geometry) string {
	if g.IsZero() {
		return "Null geometry"
	}
	switch t := g.T().(type) {
	case *geom.LineString:
		if t.NumCoords() < 2 {
			return "Too few points in geometry component"
		}
		return ""
	case *geom.Point, *geom.MultiPoint, *geom.MultiLineString:
		return ""
	}
	for _, poly := range polygons(g) {
		for _, r := range poly {
			if len(r) < 4 {
				return "Too few points in geometry component"
			}
			if r[0] != r[len(r)-1] {
				return "Ring not closed"
			}
			if selfIntersects(r) {
				return "Ring Self-intersection"
			}
		}
		for i := 0; i < len(poly); i++ {
			for j := i + 1; j < len(poly); j++ {
				if ringsCross(poly[i], poly[j]) {
					return "Self-intersection"
				}
			}
		}
		for _, hole := range poly[1:] {
			if !pointIn(hole[0], polygon{poly[0]}, true) {
				return "Hole lies outside shell"
			}
		}
	}
	return ""
}

func selfIntersects(r ring) bool {
	n := len(r) - 1 // segment count
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			adjacent := j == i+1 || (i == 0 && j == n-1)
			if adjacent {
				if orient(r[i], r[i+1], r[j+1]) == 0 && j == i+1 && onSegment(r[j+1], r[i], r[i+1]) {
					return true // spike folding back on itself
				}
				continue
			}
			if intersects(r[i], r[i+1], r[j], r[j+1]) {
				return true
			}
		}
	}
	return false
}

func ringsCross(a, b ring) bool {
	for i := 0; i+1 < len(a); i++ {
		for j := 0; j+1 < len(b); j++ {
			if properCross(a[i], a[i+1], b[j], b[j+1]) {
				return true
			}
		}
	}
	return false
}
