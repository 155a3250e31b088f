// Package schedule models a vet's recurring weekly open hours and the
// day-view that clinic calendars render. It deliberately knows nothing
// about appointment occupancy; the slots package owns taken-ness.
package schedule

import (
	"sort"

	"github.com/vetsync/vetsync/libs/clock"
	"github.com/vetsync/vetsync/services/booking-service/internal/model"
)

// Slots returns the open intervals for a weekday name, ordered ascending
// by start time. Missing or empty day means unavailable.
func Slots(av model.WeeklyAvailability, weekday string) []model.TimeSlot {
	if av == nil {
		return nil
	}
	return av[weekday]
}

// AddSlot inserts a slot into the day's sequence and keeps it sorted
// ascending by start time. Lexical comparison is valid for zero-padded
// 24-hour "HH:MM" strings. Overlap prevention is the caller's job.
func AddSlot(av model.WeeklyAvailability, weekday string, slot model.TimeSlot) model.WeeklyAvailability {
	if av == nil {
		av = model.WeeklyAvailability{}
	}
	day := append([]model.TimeSlot{}, av[weekday]...)
	day = append(day, slot)
	sort.SliceStable(day, func(i, j int) bool { return day[i].Start < day[j].Start })
	av[weekday] = day
	return av
}

// RemoveSlot removes the slot matching the exact (start, end) pair.
// Whole-slot granularity only; no partial-overlap splitting.
func RemoveSlot(av model.WeeklyAvailability, weekday string, slot model.TimeSlot) model.WeeklyAvailability {
	if av == nil {
		return nil
	}
	day := av[weekday]
	kept := day[:0:0]
	for _, s := range day {
		if s.Start == slot.Start && s.End == slot.End {
			continue
		}
		kept = append(kept, s)
	}
	if len(kept) == 0 {
		delete(av, weekday)
		return av
	}
	av[weekday] = kept
	return av
}

// DayView is the display-path schedule for one vet on one date: the
// recurring open windows for that weekday plus the calendar entries
// (appointments and blocked periods) pinned to the date.
type DayView struct {
	Date    string                `json:"date"`
	Weekday string                `json:"weekday"`
	Windows []model.TimeSlot      `json:"windows"`
	Events  []model.CalendarEvent `json:"events,omitempty"`
}

// Day builds the display-filtered view used by schedule calendars. This
// is intentionally a separate path from the booking-flow candidate list,
// which ignores weekly windows and blocked time.
func Day(vet model.Vet, date string) (DayView, error) {
	wd, err := clock.Weekday(date)
	if err != nil {
		return DayView{}, err
	}
	view := DayView{
		Date:    date,
		Weekday: wd.String(),
		Windows: Slots(vet.Availability, wd.String()),
	}
	for _, ev := range vet.Schedule {
		if ev.Date == date {
			view.Events = append(view.Events, ev)
		}
	}
	return view, nil
}
