// Package spatial exposes the spatial predicates the core needs from the
// store. PostGIS evaluates them in SQL; Planar evaluates them in process for
// SQLite deployments and tests.
package spatial

import (
	"context"

	"gorm.io/gorm"

	"github.com/cityinfra/trafficcontrol/internal/shared/config"
	"github.com/cityinfra/trafficcontrol/internal/shared/geo"
)

// Predicate is a distance filter. Scope narrows a query in the store and
// Match re-checks a loaded geometry. Either may be a pass-through.
type Predicate struct {
	Scope func(*gorm.DB) *gorm.DB
	Match func(geo.Geometry) bool
}

// Adapter is the contract over a spatial store.
type Adapter interface {
	SRID() int
	Within(ctx context.Context, g, area geo.Geometry) (bool, error)
	Distance(ctx context.Context, a, b geo.Geometry) (float64, error)
	Equals(ctx context.Context, a, b geo.Geometry) (bool, error)
	// Validate checks topological validity and returns the reason when invalid.
	Validate(ctx context.Context, g geo.Geometry) (bool, string, error)
	WithinProjectionBounds(g geo.Geometry) bool
	DWithin(column string, ref geo.Geometry, meters float64) Predicate
}

// Bounds is the valid extent of the configured projection.
type Bounds struct {
	MinX, MinY, MaxX, MaxY float64
}

func BoundsFromConfig(cfg config.BoundsConfig) Bounds {
	return Bounds{MinX: cfg.MinX, MinY: cfg.MinY, MaxX: cfg.MaxX, MaxY: cfg.MaxY}
}

// Contains reports whether the whole geometry lies inside the bounds.
func (b Bounds) Contains(g geo.Geometry) bool {
	if g.IsEmpty() {
		return false
	}
	minX, minY, maxX, maxY := g.Bounds()
	return minX >= b.MinX && minY >= b.MinY && maxX <= b.MaxX && maxY <= b.MaxY
}

// New returns the adapter matching the database dialect.
func New(db *gorm.DB, cfg config.SpatialConfig) Adapter {
	bounds := BoundsFromConfig(cfg.Bounds)
	if db != nil && db.Dialector.Name() == "postgres" {
		return NewPostGIS(db, cfg.SRID, bounds)
	}
	return NewPlanar(cfg.SRID, bounds)
}

// passThrough leaves a query untouched.
func passThrough(db *gorm.DB) *gorm.DB { return db }

func matchAll(geo.Geometry) bool { return true }
