package db

import (
	"time"

	"gorm.io/gorm"
)

// Active keeps rows that have not been soft deleted.
func Active() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("is_active = ?", true)
	}
}

// ActiveAlias is Active for a joined or aliased table.
func ActiveAlias(alias string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(alias+".is_active = ?", true)
	}
}

// ValidAt keeps rows whose validity window contains t. A missing bound is open.
func ValidAt(t time.Time) func(*gorm.DB) *gorm.DB {
	return ValidAtAlias("", t)
}

// ValidAtAlias is ValidAt for a joined or aliased table.
func ValidAtAlias(alias string, t time.Time) func(*gorm.DB) *gorm.DB {
	start, end := "validity_period_start", "validity_period_end"
	if alias != "" {
		start, end = alias+"."+start, alias+"."+end
	}
	return func(db *gorm.DB) *gorm.DB {
		return db.
			Where(start+" IS NULL OR "+start+" <= ?", t).
			Where(end+" IS NULL OR "+end+" >= ?", t)
	}
}
