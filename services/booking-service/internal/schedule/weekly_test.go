package schedule

import (
	"sort"
	"testing"

	"github.com/vetsync/vetsync/services/booking-service/internal/model"
)

func TestAddSlotKeepsDaySorted(t *testing.T) {
	inserts := []model.TimeSlot{
		{Start: "13:00", End: "16:00"},
		{Start: "08:00", End: "12:00"},
		{Start: "17:00", End: "19:00"},
		{Start: "09:30", End: "10:30"},
	}

	var av model.WeeklyAvailability
	for _, s := range inserts {
		av = AddSlot(av, "Monday", s)
		day := Slots(av, "Monday")
		if !sort.SliceIsSorted(day, func(i, j int) bool { return day[i].Start < day[j].Start }) {
			t.Fatalf("day not sorted after inserting %v: %v", s, day)
		}
	}
	if got := len(Slots(av, "Monday")); got != len(inserts) {
		t.Fatalf("expected %d slots, got %d", len(inserts), got)
	}
}

func TestRemoveSlotMatchesExactPair(t *testing.T) {
	av := model.WeeklyAvailability{}
	av = AddSlot(av, "Friday", model.TimeSlot{Start: "08:00", End: "12:00"})
	av = AddSlot(av, "Friday", model.TimeSlot{Start: "13:00", End: "16:00"})

	// Partial overlap must not remove anything.
	av = RemoveSlot(av, "Friday", model.TimeSlot{Start: "08:00", End: "11:00"})
	if got := len(Slots(av, "Friday")); got != 2 {
		t.Fatalf("partial match removed a slot: %d left", got)
	}

	av = RemoveSlot(av, "Friday", model.TimeSlot{Start: "08:00", End: "12:00"})
	day := Slots(av, "Friday")
	if len(day) != 1 || day[0].Start != "13:00" {
		t.Fatalf("exact removal failed: %v", day)
	}
}

func TestSlotsEmptyDayMeansUnavailable(t *testing.T) {
	av := model.WeeklyAvailability{
		"Tuesday": {{Start: "09:00", End: "17:00"}},
	}
	if got := Slots(av, "Wednesday"); len(got) != 0 {
		t.Fatalf("expected no slots for Wednesday, got %v", got)
	}
	if got := Slots(nil, "Tuesday"); got != nil {
		t.Fatalf("expected nil slots for nil availability, got %v", got)
	}
}

func TestDayCombinesWindowsAndEvents(t *testing.T) {
	vet := model.Vet{
		ID: "v1",
		Availability: model.WeeklyAvailability{
			"Monday": {{Start: "09:00", End: "17:00"}},
		},
		Schedule: []model.CalendarEvent{
			{ID: "e1", Date: "2026-03-16", Title: "Surgery", Type: model.EventBlocked},
			{ID: "e2", Date: "2026-03-17", Title: "10:00 AM - Buddy", Type: model.EventAppointment},
		},
	}

	// 2026-03-16 is a Monday.
	view, err := Day(vet, "2026-03-16")
	if err != nil {
		t.Fatalf("Day: %v", err)
	}
	if view.Weekday != "Monday" {
		t.Fatalf("weekday = %s, want Monday", view.Weekday)
	}
	if len(view.Windows) != 1 {
		t.Fatalf("expected 1 window, got %v", view.Windows)
	}
	if len(view.Events) != 1 || view.Events[0].ID != "e1" {
		t.Fatalf("expected only the same-date event, got %v", view.Events)
	}
}
