package models

import (
	"fmt"
	"strings"
)

// Summary renders the outcome as the multi-line message returned to operators.
func (o Outcome) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Operation completed: updated %d records from %s.\n", o.Updated, o.CutoffDate.Format("2006-01-02"))
	fmt.Fprintf(&b, "Filters applied: %s\n", o.FilterDescription)
	fmt.Fprintf(&b, "Total filtered records: %d\n", o.TotalMatched)
	fmt.Fprintf(&b, "Records updated: %d\n", o.Updated)
	fmt.Fprintf(&b, "Records skipped: %d\n", o.Skipped)
	fmt.Fprintf(&b, "Failed updates: %d\n", o.Failed)
	fmt.Fprintf(&b, "Adjustment applied: %d hours", o.HoursApplied)
	return b.String()
}
