// Package biztime holds the business timezone. Everything is stored in UTC;
// the business timezone only decides where days and months begin.
package biztime

import (
	"fmt"
	"sync"
	"time"
)

// DefaultTimezone is used when no timezone is configured.
const DefaultTimezone = "Europe/Helsinki"

var (
	loc     *time.Location
	locOnce sync.Once
	locErr  error
)

// Init sets the business timezone. Only the first call has an effect.
func Init(tz string) error {
	locOnce.Do(func() {
		if tz == "" {
			tz = DefaultTimezone
		}
		loc, locErr = time.LoadLocation(tz)
	})
	return locErr
}

// MustInit is Init that panics on an unknown timezone.
func MustInit(tz string) {
	if err := Init(tz); err != nil {
		panic(fmt.Sprintf("biztime: unknown timezone %q: %v", tz, err))
	}
}

// Location returns the business timezone, initializing the default on first use.
func Location() *time.Location {
	if err := Init(""); err != nil {
		panic(fmt.Sprintf("biztime: %v", err))
	}
	return loc
}

func NowUTC() time.Time {
	return time.Now().UTC()
}

// StartOfDayUTC returns midnight of t's business day, in UTC.
func StartOfDayUTC(t time.Time) time.Time {
	b := t.In(Location())
	return time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, Location()).UTC()
}

// MonthWindowUTC returns the half-open interval [first day, first day of next month)
// of the given business month.
func MonthWindowUTC(year int, month time.Month) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, Location())
	return start.UTC(), start.AddDate(0, 1, 0).UTC()
}

// PreviousMonth returns the business month before the one containing t.
func PreviousMonth(t time.Time) (int, time.Month) {
	b := t.In(Location())
	prev := time.Date(b.Year(), b.Month(), 1, 0, 0, 0, 0, Location()).AddDate(0, -1, 0)
	return prev.Year(), prev.Month()
}
