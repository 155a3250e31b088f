// Package slots decides which candidate appointment times are open for a
// vet on a date, given the full set of existing appointments.
package slots

import "github.com/vetsync/vetsync/services/booking-service/internal/model"

// Catalog is the fixed clinic-wide list of candidate start times. It is a
// configuration constant, not derived from any vet's declared hours.
var Catalog = []string{
	"09:00 AM",
	"10:00 AM",
	"11:00 AM",
	"02:00 PM",
	"03:00 PM",
	"04:00 PM",
}

// IsTaken reports whether the exact (date, time, vet) slot is occupied by
// a non-cancelled appointment. Cancelled appointments never block, so a
// freed slot can be rebooked.
func IsTaken(appts []model.Appointment, vetID, date, timeOfDay string) bool {
	for _, a := range appts {
		if a.Vet.ID == vetID && a.Date == date && a.Time == timeOfDay && a.Blocks() {
			return true
		}
	}
	return false
}

// Free returns the catalog times not taken for (date, vet), in catalog
// order. The booking flow filters only against appointments; weekly
// availability and blocked calendar time stay on the display path.
func Free(appts []model.Appointment, vetID, date string) []string {
	free := make([]string, 0, len(Catalog))
	for _, t := range Catalog {
		if !IsTaken(appts, vetID, date, t) {
			free = append(free, t)
		}
	}
	return free
}

// Resolve picks the slot for a suggested time: the suggestion itself when
// free, otherwise the first free catalog time after the suggestion's
// position, otherwise the first free time scanning the whole catalog.
// ok is false when the vet's day is fully booked.
func Resolve(appts []model.Appointment, vetID, date, suggested string) (resolved string, ok bool) {
	if !IsTaken(appts, vetID, date, suggested) {
		return suggested, true
	}

	start := 0
	for i, t := range Catalog {
		if t == suggested {
			start = i + 1
			break
		}
	}
	for _, t := range Catalog[start:] {
		if !IsTaken(appts, vetID, date, t) {
			return t, true
		}
	}
	for _, t := range Catalog[:start] {
		if !IsTaken(appts, vetID, date, t) {
			return t, true
		}
	}
	return "", false
}
