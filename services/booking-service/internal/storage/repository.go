// Package storage is the injected record store behind the scheduling
// core: per-entity get/save/update operations with a Postgres
// implementation and an in-memory one for tests and demos.
package storage

import (
	"context"
	"errors"

	"github.com/vetsync/vetsync/services/booking-service/internal/model"
)

var (
	// ErrNotFound marks a referenced vet/pet/appointment absent from the
	// record store.
	ErrNotFound = errors.New("record not found")

	// ErrSlotConflict marks an atomic reserve that lost to an existing
	// non-cancelled appointment on the same (vet, date, time).
	ErrSlotConflict = errors.New("time slot already booked")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
func IsConflict(err error) bool { return errors.Is(err, ErrSlotConflict) }

type VetStore interface {
	ListVets(ctx context.Context) ([]model.Vet, error)
	GetVet(ctx context.Context, id string) (model.Vet, error)
	// UpdateVetAvailability replaces the vet's recurring weekly hours.
	UpdateVetAvailability(ctx context.Context, vetID string, av model.WeeklyAvailability) (model.Vet, error)
	AddCalendarEvent(ctx context.Context, vetID string, ev model.CalendarEvent) (model.Vet, error)
	RemoveCalendarEvent(ctx context.Context, vetID, eventID string) (model.Vet, error)
}

type PetStore interface {
	ListPets(ctx context.Context) ([]model.Pet, error)
	GetPet(ctx context.Context, id string) (model.Pet, error)
	SavePet(ctx context.Context, pet model.Pet) (model.Pet, error)
}

type AppointmentStore interface {
	ListAppointments(ctx context.Context) ([]model.Appointment, error)
	GetAppointment(ctx context.Context, id string) (model.Appointment, error)
	// ReserveSlot atomically inserts the draft if no non-cancelled
	// appointment holds (vet, date, time), assigning the id. Returns
	// ErrSlotConflict when the slot is already held; there is no separate
	// check-then-write window.
	ReserveSlot(ctx context.Context, draft model.Appointment) (model.Appointment, error)
	// UpdateAppointment replaces the whole record. Moving it onto an
	// occupied slot returns ErrSlotConflict.
	UpdateAppointment(ctx context.Context, appt model.Appointment) (model.Appointment, error)
}

type ReferralStore interface {
	SaveReferral(ctx context.Context, ref model.Referral) (model.Referral, error)
	ListReferrals(ctx context.Context) ([]model.Referral, error)
}

// Store is the full record-store surface the booking service depends on.
type Store interface {
	VetStore
	PetStore
	AppointmentStore
	ReferralStore
}
