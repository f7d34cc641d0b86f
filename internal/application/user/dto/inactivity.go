package dto

import "time"

// NotifySummary counts what one inactivity run did.
type NotifySummary struct {
	Processed   int  `json:"processed"`
	Notified    int  `json:"notified"`
	Deactivated int  `json:"deactivated"`
	DryRun      bool `json:"dry_run"`
}

// ReportRequest selects the business month to report. Zero Month means the
// previous month; zero Year means the current year.
type ReportRequest struct {
	Month  int  `flag:"month" validate:"omitempty,min=1,max=12"`
	Year   int  `flag:"year" validate:"omitempty,gte=2000"`
	DryRun bool `flag:"dry-run"`
}

type ReportResult struct {
	Year       int        `json:"year"`
	Month      time.Month `json:"month"`
	From       time.Time  `json:"from"`
	To         time.Time  `json:"to"`
	Users      int        `json:"users"`
	Recipients int        `json:"recipients"`
	Sent       bool       `json:"sent"`
}
