package parser

import (
	"math"
	"time"
)

// DateSystem is the workbook's serial-date epoch. Most workbooks use the
// 1900 system; files created on classic Mac Excel declare the 1904 system
// via the date1904 workbook property.
type DateSystem int

const (
	// Date1900 counts days such that serial 1 is 1900-01-01.
	Date1900 DateSystem = iota
	// Date1904 counts days such that serial 1 is 1904-01-02.
	Date1904
)

// SerialToTime converts a serial number to a calendar value: the integer
// part is a day count from the system's epoch, the fraction is time-of-day
// as a fraction of 24h, rounded to the nearest millisecond.
//
// It reports false for serials that have no calendar form, so callers can
// fall back to a plain number: negative serials, and serial 60 under the
// 1900 system. Excel treats 1900 as a leap year (it is not) and spends
// serial 60 on the nonexistent 1900-02-29; serials above 60 are therefore
// shifted back one day.
func SerialToTime(serial float64, system DateSystem) (time.Time, bool) {
	if serial < 0 {
		return time.Time{}, false
	}
	var base time.Time
	switch system {
	case Date1904:
		base = time.Date(1904, 1, 1, 0, 0, 0, 0, time.UTC)
	default:
		if serial == 60 {
			return time.Time{}, false
		}
		base = time.Date(1899, 12, 31, 0, 0, 0, 0, time.UTC)
		if serial > 60 {
			base = base.AddDate(0, 0, -1)
		}
	}
	days := math.Trunc(serial)
	millis := math.Round((serial - days) * 86400000)
	t := base.AddDate(0, 0, int(days)).Add(time.Duration(millis) * time.Millisecond)
	return t, true
}
