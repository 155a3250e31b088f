package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vetsync/vetsync/libs/db"
	"github.com/vetsync/vetsync/services/booking-service/internal/model"
)

// PostgresStore persists the clinic record store in Postgres. The
// appointments table carries a partial unique index on
// (vet_id, date, time) WHERE status <> 'Cancelled', which is what makes
// ReserveSlot atomic: two concurrent bookings for the same slot cannot
// both commit.
type PostgresStore struct {
	pool *db.Pool
}

func NewPostgresStore(pool *db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) ListVets(ctx context.Context) ([]model.Vet, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, specialty, COALESCE(clinic_id, ''), COALESCE(clinic_name, ''), COALESCE(location, ''),
			services, schedule, weekly_availability
		FROM vets
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vets []model.Vet
	for rows.Next() {
		v, err := scanVet(rows)
		if err != nil {
			return nil, err
		}
		vets = append(vets, v)
	}
	return vets, rows.Err()
}

func (s *PostgresStore) GetVet(ctx context.Context, id string) (model.Vet, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, specialty, COALESCE(clinic_id, ''), COALESCE(clinic_name, ''), COALESCE(location, ''),
			services, schedule, weekly_availability
		FROM vets
		WHERE id = $1
	`, id)
	v, err := scanVet(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Vet{}, fmt.Errorf("vet %s: %w", id, ErrNotFound)
	}
	return v, err
}

func (s *PostgresStore) UpdateVetAvailability(ctx context.Context, vetID string, av model.WeeklyAvailability) (model.Vet, error) {
	raw, err := json.Marshal(av)
	if err != nil {
		return model.Vet{}, err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE vets
		SET weekly_availability = $2, updated_at = now()
		WHERE id = $1
	`, vetID, raw)
	if err != nil {
		return model.Vet{}, err
	}
	if tag.RowsAffected() == 0 {
		return model.Vet{}, fmt.Errorf("vet %s: %w", vetID, ErrNotFound)
	}
	return s.GetVet(ctx, vetID)
}

func (s *PostgresStore) AddCalendarEvent(ctx context.Context, vetID string, ev model.CalendarEvent) (model.Vet, error) {
	v, err := s.GetVet(ctx, vetID)
	if err != nil {
		return model.Vet{}, err
	}
	v.Schedule = append(v.Schedule, ev)
	return s.saveSchedule(ctx, v)
}

func (s *PostgresStore) RemoveCalendarEvent(ctx context.Context, vetID, eventID string) (model.Vet, error) {
	v, err := s.GetVet(ctx, vetID)
	if err != nil {
		return model.Vet{}, err
	}
	kept := v.Schedule[:0:0]
	for _, ev := range v.Schedule {
		if ev.ID != eventID {
			kept = append(kept, ev)
		}
	}
	v.Schedule = kept
	return s.saveSchedule(ctx, v)
}

func (s *PostgresStore) saveSchedule(ctx context.Context, v model.Vet) (model.Vet, error) {
	raw, err := json.Marshal(v.Schedule)
	if err != nil {
		return model.Vet{}, err
	}
	_, err = s.pool.Exec(ctx, `
		UPDATE vets
		SET schedule = $2, updated_at = now()
		WHERE id = $1
	`, v.ID, raw)
	if err != nil {
		return model.Vet{}, err
	}
	return v, nil
}

func (s *PostgresStore) ListPets(ctx context.Context) ([]model.Pet, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, breed, age, COALESCE(owner_id, '')
		FROM pets
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pets []model.Pet
	for rows.Next() {
		var p model.Pet
		if err := rows.Scan(&p.ID, &p.Name, &p.Breed, &p.Age, &p.OwnerID); err != nil {
			return nil, err
		}
		pets = append(pets, p)
	}
	return pets, rows.Err()
}

func (s *PostgresStore) GetPet(ctx context.Context, id string) (model.Pet, error) {
	var p model.Pet
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, breed, age, COALESCE(owner_id, '')
		FROM pets
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Breed, &p.Age, &p.OwnerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Pet{}, fmt.Errorf("pet %s: %w", id, ErrNotFound)
	}
	return p, err
}

func (s *PostgresStore) SavePet(ctx context.Context, pet model.Pet) (model.Pet, error) {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO pets (name, breed, age, owner_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, pet.Name, pet.Breed, pet.Age, pet.OwnerID).Scan(&pet.ID)
	return pet, err
}

func (s *PostgresStore) ListAppointments(ctx context.Context) ([]model.Appointment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, pet, vet, type, date, time, status,
			COALESCE(service, ''), COALESCE(price, 0), notes,
			COALESCE(user_notes, ''), attachments, prescriptions
		FROM appointments
		ORDER BY date, time
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, a)
	}
	return appts, rows.Err()
}

func (s *PostgresStore) GetAppointment(ctx context.Context, id string) (model.Appointment, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, pet, vet, type, date, time, status,
			COALESCE(service, ''), COALESCE(price, 0), notes,
			COALESCE(user_notes, ''), attachments, prescriptions
		FROM appointments
		WHERE id = $1
	`, id)
	a, err := scanAppointment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Appointment{}, fmt.Errorf("appointment %s: %w", id, ErrNotFound)
	}
	return a, err
}

func (s *PostgresStore) ReserveSlot(ctx context.Context, draft model.Appointment) (model.Appointment, error) {
	cols, err := appointmentColumns(draft)
	if err != nil {
		return model.Appointment{}, err
	}
	err = s.pool.QueryRow(ctx, `
		INSERT INTO appointments
			(pet, vet, vet_id, type, date, time, status, service, price, notes, user_notes, attachments, prescriptions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`, cols.pet, cols.vet, draft.Vet.ID, draft.Type, draft.Date, draft.Time, draft.Status,
		draft.Service, draft.Price, cols.notes, draft.UserNotes, cols.attachments, cols.prescriptions,
	).Scan(&draft.ID)
	if isUniqueViolation(err) {
		return model.Appointment{}, fmt.Errorf("%s %s for vet %s: %w", draft.Date, draft.Time, draft.Vet.ID, ErrSlotConflict)
	}
	return draft, err
}

func (s *PostgresStore) UpdateAppointment(ctx context.Context, appt model.Appointment) (model.Appointment, error) {
	cols, err := appointmentColumns(appt)
	if err != nil {
		return model.Appointment{}, err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE appointments
		SET pet = $2, vet = $3, vet_id = $4, type = $5, date = $6, time = $7, status = $8,
			service = $9, price = $10, notes = $11, user_notes = $12, attachments = $13,
			prescriptions = $14, updated_at = now()
		WHERE id = $1
	`, appt.ID, cols.pet, cols.vet, appt.Vet.ID, appt.Type, appt.Date, appt.Time, appt.Status,
		appt.Service, appt.Price, cols.notes, appt.UserNotes, cols.attachments, cols.prescriptions)
	if isUniqueViolation(err) {
		return model.Appointment{}, fmt.Errorf("%s %s for vet %s: %w", appt.Date, appt.Time, appt.Vet.ID, ErrSlotConflict)
	}
	if err != nil {
		return model.Appointment{}, err
	}
	if tag.RowsAffected() == 0 {
		return model.Appointment{}, fmt.Errorf("appointment %s: %w", appt.ID, ErrNotFound)
	}
	return appt, nil
}

func (s *PostgresStore) SaveReferral(ctx context.Context, ref model.Referral) (model.Referral, error) {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO referrals (pet_id, from_vet_id, to_vet_id, reason, date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, ref.PetID, ref.FromVetID, ref.ToVetID, ref.Reason, ref.Date).Scan(&ref.ID)
	return ref, err
}

func (s *PostgresStore) ListReferrals(ctx context.Context) ([]model.Referral, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, pet_id, from_vet_id, to_vet_id, COALESCE(reason, ''), date
		FROM referrals
		ORDER BY date DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []model.Referral
	for rows.Next() {
		var r model.Referral
		if err := rows.Scan(&r.ID, &r.PetID, &r.FromVetID, &r.ToVetID, &r.Reason, &r.Date); err != nil {
			return nil, err
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

type appointmentJSON struct {
	pet           []byte
	vet           []byte
	notes         []byte
	attachments   []byte
	prescriptions []byte
}

func appointmentColumns(a model.Appointment) (appointmentJSON, error) {
	var cols appointmentJSON
	var err error
	if cols.pet, err = json.Marshal(a.Pet); err != nil {
		return cols, err
	}
	if cols.vet, err = json.Marshal(a.Vet); err != nil {
		return cols, err
	}
	if a.Notes != nil {
		if cols.notes, err = json.Marshal(a.Notes); err != nil {
			return cols, err
		}
	}
	if a.Attachments != nil {
		if cols.attachments, err = json.Marshal(a.Attachments); err != nil {
			return cols, err
		}
	}
	if a.Prescriptions != nil {
		if cols.prescriptions, err = json.Marshal(a.Prescriptions); err != nil {
			return cols, err
		}
	}
	return cols, nil
}

func scanVet(row pgx.Row) (model.Vet, error) {
	var v model.Vet
	var services, schedule, availability []byte
	if err := row.Scan(&v.ID, &v.Name, &v.Specialty, &v.ClinicID, &v.ClinicName, &v.Location,
		&services, &schedule, &availability); err != nil {
		return model.Vet{}, err
	}
	if len(services) > 0 {
		if err := json.Unmarshal(services, &v.Services); err != nil {
			return model.Vet{}, err
		}
	}
	if len(schedule) > 0 {
		if err := json.Unmarshal(schedule, &v.Schedule); err != nil {
			return model.Vet{}, err
		}
	}
	if len(availability) > 0 {
		if err := json.Unmarshal(availability, &v.Availability); err != nil {
			return model.Vet{}, err
		}
	}
	return v, nil
}

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var a model.Appointment
	var pet, vet, notes, attachments, prescriptions []byte
	if err := row.Scan(&a.ID, &pet, &vet, &a.Type, &a.Date, &a.Time, &a.Status,
		&a.Service, &a.Price, &notes, &a.UserNotes, &attachments, &prescriptions); err != nil {
		return model.Appointment{}, err
	}
	if err := json.Unmarshal(pet, &a.Pet); err != nil {
		return model.Appointment{}, err
	}
	if err := json.Unmarshal(vet, &a.Vet); err != nil {
		return model.Appointment{}, err
	}
	if len(notes) > 0 {
		if err := json.Unmarshal(notes, &a.Notes); err != nil {
			return model.Appointment{}, err
		}
	}
	if len(attachments) > 0 {
		if err := json.Unmarshal(attachments, &a.Attachments); err != nil {
			return model.Appointment{}, err
		}
	}
	if len(prescriptions) > 0 {
		if err := json.Unmarshal(prescriptions, &a.Prescriptions); err != nil {
			return model.Appointment{}, err
		}
	}
	return a, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ Store = (*PostgresStore)(nil)
