package followup

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/vetsync/vetsync/services/booking-service/internal/model"
	"github.com/vetsync/vetsync/services/booking-service/internal/slots"
	"github.com/vetsync/vetsync/services/booking-service/internal/storage"
)

func testBooker(t *testing.T) (*AutoBooker, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	store.Seed([]model.Vet{
		{ID: "vet-1", Name: "Dr. Sarah Chen"},
		{ID: "vet-2", Name: "Dr. Miguel Torres"},
	}, []model.Pet{
		{ID: "pet-1", Name: "Biscuit", Breed: "Beagle", Age: 4},
	})
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAutoBooker(store, log), store
}

func completedAppointment() model.Appointment {
	return model.Appointment{
		ID:     "appt-0",
		Pet:    model.Pet{ID: "pet-1", Name: "Biscuit"},
		Vet:    model.Vet{ID: "vet-1", Name: "Dr. Sarah Chen"},
		Type:   model.ConsultInPerson,
		Date:   "2026-09-01",
		Time:   "09:00 AM",
		Status: model.StatusCompleted,
	}
}

func occupy(t *testing.T, store *storage.MemoryStore, vetID, date string, times ...string) {
	t.Helper()
	for _, ts := range times {
		_, err := store.ReserveSlot(context.Background(), model.Appointment{
			Pet:    model.Pet{ID: "other-pet"},
			Vet:    model.Vet{ID: vetID},
			Date:   date,
			Time:   ts,
			Status: model.StatusUpcoming,
		})
		if err != nil {
			t.Fatalf("seed appointment at %s: %v", ts, err)
		}
	}
}

func TestBookUsesSuggestedSlotWhenFree(t *testing.T) {
	booker, _ := testBooker(t)

	fu := model.FollowUp{Date: "2026-09-15", Time: "10:00 AM", Reason: "Suture check"}
	got, err := booker.Book(context.Background(), completedAppointment(), fu)
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if got.Time != "10:00 AM" {
		t.Errorf("time = %q, want suggested 10:00 AM", got.Time)
	}
	if got.Vet.ID != "vet-1" {
		t.Errorf("vet = %q, want treating vet-1", got.Vet.ID)
	}
	if got.UserNotes != "Suture check" {
		t.Errorf("user notes = %q", got.UserNotes)
	}
}

func TestBookFallsForwardWhenSuggestedTaken(t *testing.T) {
	booker, store := testBooker(t)
	occupy(t, store, "vet-1", "2026-09-15", "10:00 AM")

	fu := model.FollowUp{Date: "2026-09-15", Time: "10:00 AM", Reason: "Suture check"}
	got, err := booker.Book(context.Background(), completedAppointment(), fu)
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if got.Time != "11:00 AM" {
		t.Errorf("time = %q, want next open 11:00 AM", got.Time)
	}
}

func TestBookWrapsToEarlierSlot(t *testing.T) {
	booker, store := testBooker(t)
	occupy(t, store, "vet-1", "2026-09-15", "02:00 PM", "03:00 PM", "04:00 PM")

	fu := model.FollowUp{Date: "2026-09-15", Time: "02:00 PM", Reason: "Recheck"}
	got, err := booker.Book(context.Background(), completedAppointment(), fu)
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if got.Time != "09:00 AM" {
		t.Errorf("time = %q, want wrapped 09:00 AM", got.Time)
	}
}

func TestBookFullDayReturnsNoSlot(t *testing.T) {
	booker, store := testBooker(t)
	occupy(t, store, "vet-1", "2026-09-15", slots.Catalog...)

	fu := model.FollowUp{Date: "2026-09-15", Time: "10:00 AM", Reason: "Recheck"}
	_, err := booker.Book(context.Background(), completedAppointment(), fu)
	if !errors.Is(err, ErrNoSlotAvailable) {
		t.Fatalf("err = %v, want ErrNoSlotAvailable", err)
	}

	appts, _ := store.ListAppointments(context.Background())
	for _, a := range appts {
		if a.Pet.ID == "pet-1" {
			t.Errorf("unexpected appointment booked at %s %s", a.Date, a.Time)
		}
	}
}

func TestBookRedirectsToReferredVet(t *testing.T) {
	booker, store := testBooker(t)

	fu := model.FollowUp{
		Date:            "2026-09-15",
		Time:            "09:00 AM",
		Reason:          "Cardiology workup",
		ReferredVetName: "dr. miguel torres",
	}
	got, err := booker.Book(context.Background(), completedAppointment(), fu)
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if got.Vet.ID != "vet-2" {
		t.Errorf("vet = %q, want referred vet-2", got.Vet.ID)
	}

	refs, _ := store.ListReferrals(context.Background())
	if len(refs) != 1 {
		t.Fatalf("referrals = %d, want 1", len(refs))
	}
	if refs[0].FromVetID != "vet-1" || refs[0].ToVetID != "vet-2" || refs[0].PetID != "pet-1" {
		t.Errorf("referral = %+v", refs[0])
	}
}

func TestBookUnknownReferralFallsBackToTreatingVet(t *testing.T) {
	booker, store := testBooker(t)

	fu := model.FollowUp{
		Date:            "2026-09-15",
		Time:            "09:00 AM",
		Reason:          "Recheck",
		ReferredVetName: "Dr. Nobody",
	}
	got, err := booker.Book(context.Background(), completedAppointment(), fu)
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if got.Vet.ID != "vet-1" {
		t.Errorf("vet = %q, want treating vet-1", got.Vet.ID)
	}
	refs, _ := store.ListReferrals(context.Background())
	if len(refs) != 0 {
		t.Errorf("referrals = %d, want none for unmatched name", len(refs))
	}
}

func TestBookIsInPersonAfterVirtualConsult(t *testing.T) {
	booker, _ := testBooker(t)

	completed := completedAppointment()
	completed.Type = model.ConsultVirtual

	fu := model.FollowUp{Date: "2026-09-15", Time: "09:00 AM", Reason: "Recheck"}
	got, err := booker.Book(context.Background(), completed, fu)
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if got.Type != model.ConsultInPerson {
		t.Errorf("type = %q, want In-Person", got.Type)
	}
}

func TestBookAlwaysStartsPending(t *testing.T) {
	booker, _ := testBooker(t)

	fu := model.FollowUp{Date: "2026-09-15", Time: "09:00 AM", Reason: "Recheck"}
	got, err := booker.Book(context.Background(), completedAppointment(), fu)
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if got.Status != model.StatusPending {
		t.Errorf("status = %q, want Pending", got.Status)
	}
}
