package shift

import (
	"fmt"
	"strings"
	"time"
)

// Layouts accepted for record dates and cutoffs, offset-bearing variants first.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseNaive parses an ISO-8601 date or datetime and discards any offset, keeping the
// wall-clock fields as written. The result is always in UTC so arithmetic ignores DST.
func ParseNaive(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range naiveLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// FormatNaive renders t without offset. Sub-second precision is written as microseconds
// only when present.
func FormatNaive(t time.Time) string {
	if t.Nanosecond() != 0 {
		return t.Format("2006-01-02T15:04:05.000000")
	}
	return t.Format("2006-01-02T15:04:05")
}

// MaxShiftHours bounds the magnitude of a shift; anything larger cannot land inside
// the four-digit year range the remote accepts.
const MaxShiftHours = 10000 * 366 * 24

// ShiftHours moves a naive timestamp by a signed number of hours. Whole days go
// through AddDate so large shifts never overflow a time.Duration.
func ShiftHours(t time.Time, hours int) time.Time {
	return t.AddDate(0, 0, hours/24).Add(time.Duration(hours%24) * time.Hour)
}

// inYearRange reports whether t can be written as a four-digit year.
func inYearRange(t time.Time) bool {
	return t.Year() >= 1 && t.Year() <= 9999
}
