package device

import "time"

// IsValidAt reports whether t falls inside the validity window. A missing
// bound leaves that side open; both bounds are inclusive.
func IsValidAt(start, end *time.Time, t time.Time) bool {
	if start != nil && start.After(t) {
		return false
	}
	if end != nil && end.Before(t) {
		return false
	}
	return true
}

// IsInEffect combines the lifecycle filter with the validity window.
func IsInEffect(l Lifecycle, start, end *time.Time, t time.Time) bool {
	return l.IsActive() && IsValidAt(start, end, t)
}
