// Package user holds the account rules consulted by the inactivity pipeline.
package user

import (
	"time"
)

// Activity is the set of timestamps that count as account activity.
type Activity struct {
	LastLogin     *time.Time
	LastAPIUse    *time.Time // date precision, stored at midnight
	ReactivatedAt *time.Time
	DateJoined    *time.Time
}

// MostRecent returns the latest known activity. ok is false when no
// timestamp is set. LastAPIUse counts from midnight of its day in loc.
func (a Activity) MostRecent(loc *time.Location) (latest time.Time, ok bool) {
	consider := func(t *time.Time) {
		if t == nil {
			return
		}
		if !ok || t.After(latest) {
			latest, ok = *t, true
		}
	}
	consider(a.LastLogin)
	if a.LastAPIUse != nil {
		d := a.LastAPIUse.In(loc)
		midnight := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
		consider(&midnight)
	}
	consider(a.ReactivatedAt)
	consider(a.DateJoined)
	return latest, ok
}

// DaysInactive counts whole days between the latest activity and now.
func DaysInactive(latest, now time.Time) int {
	return int(now.Sub(latest) / (24 * time.Hour))
}

// Stage is the action the pipeline takes for an inactive account.
type Stage int

const (
	StageNone Stage = iota
	StageOneMonthWarning
	StageOneWeekWarning
	StageOneDayWarning
	StageDeactivate
)

func (s Stage) String() string {
	switch s {
	case StageOneMonthWarning:
		return "one_month"
	case StageOneWeekWarning:
		return "one_week"
	case StageOneDayWarning:
		return "one_day"
	case StageDeactivate:
		return "deactivate"
	}
	return "none"
}

// Template is the notification template sent at this stage.
func (s Stage) Template() string {
	if s == StageDeactivate {
		return "deactivation_notice"
	}
	return "inactive_warning_" + s.String()
}

// Thresholds are inactivity day counts at which each stage starts.
type Thresholds struct {
	OneMonthWarning int
	OneWeekWarning  int
	OneDayWarning   int
	Deactivate      int
}

func DefaultThresholds() Thresholds {
	return Thresholds{OneMonthWarning: 150, OneWeekWarning: 173, OneDayWarning: 179, Deactivate: 180}
}

// StageFor picks the most severe stage reached after days of inactivity.
func (th Thresholds) StageFor(days int) Stage {
	switch {
	case days >= th.Deactivate:
		return StageDeactivate
	case days >= th.OneDayWarning:
		return StageOneDayWarning
	case days >= th.OneWeekWarning:
		return StageOneWeekWarning
	case days >= th.OneMonthWarning:
		return StageOneMonthWarning
	}
	return StageNone
}

// ActivityFields are the user columns whose change counts as renewed activity.
var ActivityFields = []string{"last_login", "last_api_use", "reactivated_at"}

// Reactivation is the outcome of an account change for the inactivity state.
type Reactivation struct {
	ClearStatus      bool
	SetReactivatedAt bool
}

// OnActivity decides what a saved account change means for the inactivity
// state: reactivating an account or renewing any activity timestamp clears
// the warning state. A reactivation that does not write reactivated_at itself
// gets a fresh stamp, replacing one left by an earlier reactivation.
func OnActivity(changed []string, isActive bool) Reactivation {
	has := func(name string) bool {
		for _, c := range changed {
			if c == name {
				return true
			}
		}
		return false
	}
	if has("is_active") && isActive {
		return Reactivation{
			ClearStatus:      true,
			SetReactivatedAt: !has("reactivated_at"),
		}
	}
	for _, f := range ActivityFields {
		if has(f) {
			return Reactivation{ClearStatus: true}
		}
	}
	return Reactivation{}
}
