// Package followup converts the suggestion emitted with a consultation
// note into a real Pending appointment, including the referral hand-off
// when the suggestion names a different practitioner.
package followup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vetsync/vetsync/libs/clock"
	"github.com/vetsync/vetsync/services/booking-service/internal/model"
	"github.com/vetsync/vetsync/services/booking-service/internal/slots"
	"github.com/vetsync/vetsync/services/booking-service/internal/storage"
)

// ErrNoSlotAvailable means the target vet's day is fully booked. Callers
// treat it as a soft outcome: the consultation note still lands, only the
// follow-up is skipped.
var ErrNoSlotAvailable = errors.New("no open slot on requested date")

type AutoBooker struct {
	store storage.Store
	log   *slog.Logger
	now   func() time.Time
}

func NewAutoBooker(store storage.Store, log *slog.Logger) *AutoBooker {
	return &AutoBooker{store: store, log: log, now: time.Now}
}

// Book books the suggested follow-up for the pet on the completed
// appointment. The target vet is the referred practitioner when the
// suggestion names one that exists, otherwise the treating vet. The
// booked appointment always starts Pending; staff confirm it like any
// other request.
func (b *AutoBooker) Book(ctx context.Context, completed model.Appointment, fu model.FollowUp) (model.Appointment, error) {
	target, err := b.resolveVet(ctx, completed, fu)
	if err != nil {
		return model.Appointment{}, err
	}

	// Follow-ups are always in-person regardless of how the original
	// consult happened; the vet needs the animal in the room.
	draft := model.Appointment{
		Pet:       completed.Pet,
		Vet:       target,
		Type:      model.ConsultInPerson,
		Date:      fu.Date,
		Status:    model.StatusPending,
		Service:   "Follow-Up Visit",
		UserNotes: fu.Reason,
	}

	// A concurrent booking can take the resolved slot between Resolve and
	// ReserveSlot; on conflict re-resolve against fresh records. Bounded
	// by the catalog size since each retry burns at least one slot.
	for range slots.Catalog {
		appts, err := b.store.ListAppointments(ctx)
		if err != nil {
			return model.Appointment{}, err
		}
		timeOfDay, ok := slots.Resolve(appts, target.ID, fu.Date, fu.Time)
		if !ok {
			return model.Appointment{}, fmt.Errorf("vet %s on %s: %w", target.ID, fu.Date, ErrNoSlotAvailable)
		}
		draft.Time = timeOfDay

		booked, err := b.store.ReserveSlot(ctx, draft)
		if storage.IsConflict(err) {
			continue
		}
		if err != nil {
			return model.Appointment{}, err
		}
		if timeOfDay != fu.Time {
			b.log.Info("follow-up moved off suggested slot",
				"pet_id", completed.Pet.ID, "vet_id", target.ID,
				"suggested", fu.Time, "booked", timeOfDay)
		}
		return booked, nil
	}
	return model.Appointment{}, fmt.Errorf("vet %s on %s: %w", target.ID, fu.Date, ErrNoSlotAvailable)
}

// resolveVet picks the follow-up's vet. Referred names match
// case-insensitively against the roster; an unknown name falls back to
// the treating vet rather than failing the booking. A successful
// redirect also writes a referral record.
func (b *AutoBooker) resolveVet(ctx context.Context, completed model.Appointment, fu model.FollowUp) (model.Vet, error) {
	name := strings.TrimSpace(fu.ReferredVetName)
	if name == "" {
		return completed.Vet, nil
	}

	vets, err := b.store.ListVets(ctx)
	if err != nil {
		return model.Vet{}, err
	}
	for _, v := range vets {
		if !strings.EqualFold(v.Name, name) {
			continue
		}
		if v.ID == completed.Vet.ID {
			return v, nil
		}
		ref := model.Referral{
			PetID:     completed.Pet.ID,
			FromVetID: completed.Vet.ID,
			ToVetID:   v.ID,
			Reason:    fu.Reason,
			Date:      b.now().UTC().Format(clock.DateLayout),
		}
		if _, err := b.store.SaveReferral(ctx, ref); err != nil {
			// The referral record is bookkeeping; the booking proceeds.
			b.log.Error("save referral", "pet_id", completed.Pet.ID, "to_vet_id", v.ID, "error", err)
		}
		return v, nil
	}

	b.log.Warn("referred vet not found, booking with treating vet",
		"referred_name", name, "vet_id", completed.Vet.ID)
	return completed.Vet, nil
}
