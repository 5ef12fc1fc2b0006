// Package models defines the domain types shared by the adjustment engine and its callers.
package models

import "time"

// DateRange is the raw value of a record's date property as returned by the remote service.
// End is empty when the range is a single point in time.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end,omitempty"`
}

// Record is a page of the remote database. The engine never owns it; it only reads the date
// range and conditionally rewrites it.
type Record struct {
	ID   string     `json:"id"`
	Date *DateRange `json:"date,omitempty"`
}

// Tally counts per-record outcomes of a shift pass.
type Tally struct {
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Total returns the number of records the tally accounts for.
func (t Tally) Total() int {
	return t.Updated + t.Skipped + t.Failed
}

// Outcome is the auditable summary of one adjustment run.
type Outcome struct {
	TotalMatched      int       `json:"total_matched"`
	Updated           int       `json:"updated"`
	Skipped           int       `json:"skipped"`
	Failed            int       `json:"failed"`
	HoursApplied      int       `json:"hours_applied"`
	CutoffDate        time.Time `json:"cutoff_date"`
	FilterDescription string    `json:"filter_description"`
}
