package spatial

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/cityinfra/trafficcontrol/internal/shared/db"
	"github.com/cityinfra/trafficcontrol/internal/shared/geo"
)

// PostGIS delegates every predicate to the database, on the transaction
// carried by the context when there is one.
type PostGIS struct {
	db     *gorm.DB
	srid   int
	bounds Bounds
}

func NewPostGIS(gdb *gorm.DB, srid int, bounds Bounds) *PostGIS {
	return &PostGIS{db: gdb, srid: srid, bounds: bounds}
}

func (p *PostGIS) SRID() int { return p.srid }

func (p *PostGIS) scalar(ctx context.Context, fn string, a, b geo.Geometry, dst any) error {
	q := fmt.Sprintf("SELECT %s(ST_GeomFromEWKT(?), ST_GeomFromEWKT(?))", fn)
	if err := db.GetTxFromContext(ctx, p.db).Raw(q, a.String(), b.String()).Scan(dst).Error; err != nil {
		return fmt.Errorf("%s: %w", fn, err)
	}
	return nil
}

func (p *PostGIS) Within(ctx context.Context, g, area geo.Geometry) (bool, error) {
	if g.IsEmpty() || area.IsEmpty() {
		return false, nil
	}
	var ok bool
	err := p.scalar(ctx, "ST_Within", g, area, &ok)
	return ok, err
}

func (p *PostGIS) Distance(ctx context.Context, a, b geo.Geometry) (float64, error) {
	var d float64
	err := p.scalar(ctx, "ST_Distance", a, b, &d)
	return d, err
}

func (p *PostGIS) Equals(ctx context.Context, a, b geo.Geometry) (bool, error) {
	if a.IsEmpty() || b.IsEmpty() {
		return a.IsEmpty() == b.IsEmpty(), nil
	}
	var ok bool
	err := p.scalar(ctx, "ST_Equals", a, b, &ok)
	return ok, err
}

func (p *PostGIS) Validate(ctx context.Context, g geo.Geometry) (bool, string, error) {
	var res struct {
		Valid  bool
		Reason string
	}
	err := db.GetTxFromContext(ctx, p.db).
		Raw("SELECT ST_IsValid(g) AS valid, ST_IsValidReason(g) AS reason FROM (SELECT ST_GeomFromEWKT(?) AS g) AS t", g.String()).
		Scan(&res).Error
	if err != nil {
		return false, "", fmt.Errorf("ST_IsValid: %w", err)
	}
	if res.Valid {
		return true, "", nil
	}
	return false, res.Reason, nil
}

func (p *PostGIS) WithinProjectionBounds(g geo.Geometry) bool {
	return p.bounds.Contains(g)
}

func (p *PostGIS) DWithin(column string, ref geo.Geometry, meters float64) Predicate {
	ewkt := ref.String()
	return Predicate{
		Scope: func(q *gorm.DB) *gorm.DB {
			return q.Where(fmt.Sprintf("ST_DWithin(%s, ST_GeomFromEWKT(?), ?)", column), ewkt, meters)
		},
		Match: matchAll,
	}
}
