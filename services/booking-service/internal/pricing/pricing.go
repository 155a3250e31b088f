// Package pricing computes the demand-sensitive price for a consultation
// slot. Factors are multiplicative and compound in a fixed order:
// day-of-week, then time-of-day, then lead time. No caps or floors are
// applied; compounding is unbounded in this version.
package pricing

import (
	"math"
	"time"

	"github.com/vetsync/vetsync/libs/clock"
)

const (
	weekendFactor = 1.15
	fridayFactor  = 1.10
	eveningFactor = 1.20
	sameDayFactor = 1.30
	nextDayFactor = 1.10

	eveningStartHour = 15
)

// Quote returns the surcharge-adjusted price for booking a slot on the
// given date ("YYYY-MM-DD") and time ("HH:MM AM/PM"), rounded half-up to
// cents. now anchors the lead-time factor. Malformed date/time strings
// are a caller precondition; the corresponding factor is simply skipped
// rather than failing the quote.
func Quote(basePrice float64, date, timeOfDay string, now time.Time) float64 {
	price := basePrice

	if wd, err := clock.Weekday(date); err == nil {
		switch wd {
		case time.Saturday, time.Sunday:
			price *= weekendFactor
		case time.Friday:
			price *= fridayFactor
		}
	}

	if hour, err := clock.Hour24(timeOfDay); err == nil && hour >= eveningStartHour {
		price *= eveningFactor
	}

	if lead, err := clock.LeadDays(date, now); err == nil {
		switch {
		case lead <= 0:
			price *= sameDayFactor
		case lead == 1:
			price *= nextDayFactor
		}
	}

	return math.Round(price*100) / 100
}
