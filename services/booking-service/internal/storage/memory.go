package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/vetsync/vetsync/services/booking-service/internal/model"
)

// MemoryStore is an in-process Store used by tests and local demos. Its
// ReserveSlot performs the occupancy check and the insert under one lock,
// giving the same reserve-if-free guarantee as the Postgres partial
// unique index.
type MemoryStore struct {
	mu           sync.RWMutex
	vets         map[string]model.Vet
	pets         map[string]model.Pet
	appointments map[string]model.Appointment
	referrals    map[string]model.Referral
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		vets:         map[string]model.Vet{},
		pets:         map[string]model.Pet{},
		appointments: map[string]model.Appointment{},
		referrals:    map[string]model.Referral{},
	}
}

// Seed loads fixture vets and pets, assigning ids where missing.
func (s *MemoryStore) Seed(vets []model.Vet, pets []model.Pet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range vets {
		if v.ID == "" {
			v.ID = uuid.NewString()
		}
		s.vets[v.ID] = v
	}
	for _, p := range pets {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		s.pets[p.ID] = p
	}
}

func (s *MemoryStore) ListVets(_ context.Context) ([]model.Vet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Vet, 0, len(s.vets))
	for _, v := range s.vets {
		out = append(out, v)
	}
	return out, nil
}

func (s *MemoryStore) GetVet(_ context.Context, id string) (model.Vet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vets[id]
	if !ok {
		return model.Vet{}, ErrNotFound
	}
	return v, nil
}

func (s *MemoryStore) UpdateVetAvailability(_ context.Context, vetID string, av model.WeeklyAvailability) (model.Vet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vets[vetID]
	if !ok {
		return model.Vet{}, ErrNotFound
	}
	v.Availability = av
	s.vets[vetID] = v
	return v, nil
}

func (s *MemoryStore) AddCalendarEvent(_ context.Context, vetID string, ev model.CalendarEvent) (model.Vet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vets[vetID]
	if !ok {
		return model.Vet{}, ErrNotFound
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	v.Schedule = append(v.Schedule, ev)
	s.vets[vetID] = v
	return v, nil
}

func (s *MemoryStore) RemoveCalendarEvent(_ context.Context, vetID, eventID string) (model.Vet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vets[vetID]
	if !ok {
		return model.Vet{}, ErrNotFound
	}
	kept := v.Schedule[:0:0]
	for _, ev := range v.Schedule {
		if ev.ID != eventID {
			kept = append(kept, ev)
		}
	}
	v.Schedule = kept
	s.vets[vetID] = v
	return v, nil
}

func (s *MemoryStore) ListPets(_ context.Context) ([]model.Pet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Pet, 0, len(s.pets))
	for _, p := range s.pets {
		out = append(out, p)
	}
	return out, nil
}

func (s *MemoryStore) GetPet(_ context.Context, id string) (model.Pet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pets[id]
	if !ok {
		return model.Pet{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) SavePet(_ context.Context, pet model.Pet) (model.Pet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pet.ID == "" {
		pet.ID = uuid.NewString()
	}
	s.pets[pet.ID] = pet
	return pet, nil
}

func (s *MemoryStore) ListAppointments(_ context.Context) ([]model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Appointment, 0, len(s.appointments))
	for _, a := range s.appointments {
		out = append(out, a)
	}
	return out, nil
}

func (s *MemoryStore) GetAppointment(_ context.Context, id string) (model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.appointments[id]
	if !ok {
		return model.Appointment{}, ErrNotFound
	}
	return a, nil
}

func (s *MemoryStore) ReserveSlot(_ context.Context, draft model.Appointment) (model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.slotHeldLocked(draft.Vet.ID, draft.Date, draft.Time, "") {
		return model.Appointment{}, ErrSlotConflict
	}
	draft.ID = uuid.NewString()
	s.appointments[draft.ID] = draft
	return draft, nil
}

func (s *MemoryStore) UpdateAppointment(_ context.Context, appt model.Appointment) (model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.appointments[appt.ID]; !ok {
		return model.Appointment{}, ErrNotFound
	}
	if appt.Blocks() && s.slotHeldLocked(appt.Vet.ID, appt.Date, appt.Time, appt.ID) {
		return model.Appointment{}, ErrSlotConflict
	}
	s.appointments[appt.ID] = appt
	return appt, nil
}

func (s *MemoryStore) slotHeldLocked(vetID, date, timeOfDay, excludeID string) bool {
	for _, a := range s.appointments {
		if a.ID == excludeID {
			continue
		}
		if a.Vet.ID == vetID && a.Date == date && a.Time == timeOfDay && a.Blocks() {
			return true
		}
	}
	return false
}

func (s *MemoryStore) SaveReferral(_ context.Context, ref model.Referral) (model.Referral, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ref.ID == "" {
		ref.ID = uuid.NewString()
	}
	s.referrals[ref.ID] = ref
	return ref, nil
}

func (s *MemoryStore) ListReferrals(_ context.Context) ([]model.Referral, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Referral, 0, len(s.referrals))
	for _, r := range s.referrals {
		out = append(out, r)
	}
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
