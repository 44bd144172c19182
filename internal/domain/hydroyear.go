package domain

import (
	"fmt"
	"strings"
	"time"
)

// HydroKey identifies one model run: a hydrological year plus the lowercase
// three-letter month name.
type HydroKey struct {
	Year  int
	Month string
}

// HydroKeyFor buckets a calendar date per [HydroDate].
func HydroKeyFor(d time.Time) HydroKey {
	month, year := HydroDate(d)
	return HydroKey{Year: year, Month: month}
}

func (k HydroKey) String() string {
	return fmt.Sprintf("%d_%s", k.Year, k.Month)
}

// HydroDate locates a calendar date in the hydrological-year accounting used
// for satellite scenes. The date first snaps to the nearest month start
// (days before the 15th snap to the previous month), then the month is
// assigned to a hydrological year: September through December belong to the
// next calendar year's hydrological year, January through August to their
// own.
//
// The returned month is the lowercase three-letter name ("sep", "oct", ...)
// used in the output directory layout.
func HydroDate(d time.Time) (month string, hydroYear int) {
	if d.Day() < 15 {
		d = d.AddDate(0, -1, 0)
	}
	d = time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)

	month = strings.ToLower(d.Format("Jan"))
	if d.Month() >= time.September {
		return month, d.Year() + 1
	}
	return month, d.Year()
}
