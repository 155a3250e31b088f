// Package jobs is the durable reminder queue: one row per pending send,
// claimed with FOR UPDATE SKIP LOCKED so replicas never double-send.
package jobs

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/vetsync/vetsync/libs/db"
	otelx "github.com/vetsync/vetsync/libs/otel"
)

type Job struct {
	ID            int64
	AppointmentID string
	OwnerID       string
	PetName       string
	VetName       string
	Date          string
	Time          string
	Window        string
	SendAt        time.Time
	Traceparent   string
	Tracestate    string
	Attempts      int
	MaxAttempts   int
	NextRunAt     time.Time
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert enqueues a reminder. The (appointment_id, reminder_window)
// unique key makes replayed reminder.requested events harmless.
func (r *Repository) Insert(ctx context.Context, job Job) error {
	traceparent, tracestate := otelx.TraceContextStrings(ctx)
	_, err := r.pool.Exec(ctx, `
		INSERT INTO reminder_jobs
			(appointment_id, owner_id, pet_name, vet_name, date, time, reminder_window, send_at, next_run_at, traceparent, tracestate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8, $9, $10)
		ON CONFLICT (appointment_id, reminder_window) DO UPDATE
		SET date = EXCLUDED.date,
		    time = EXCLUDED.time,
		    send_at = EXCLUDED.send_at,
		    next_run_at = EXCLUDED.send_at,
		    status = 'pending',
		    attempts = 0,
		    updated_at = now()
	`, job.AppointmentID, job.OwnerID, job.PetName, job.VetName, job.Date, job.Time,
		job.Window, job.SendAt.UTC(), traceparent, tracestate)
	return err
}

// CancelForAppointment drops the pending reminders of a cancelled or
// completed appointment.
func (r *Repository) CancelForAppointment(ctx context.Context, appointmentID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE reminder_jobs
		SET status = 'cancelled', updated_at = now()
		WHERE appointment_id = $1 AND status = 'pending'
	`, appointmentID)
	return err
}

func (r *Repository) FetchDue(ctx context.Context, tx pgx.Tx, limit int) ([]Job, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, appointment_id, COALESCE(owner_id, ''), pet_name, vet_name, date, time,
			reminder_window, send_at, traceparent, tracestate, attempts, max_attempts, next_run_at
		FROM reminder_jobs
		WHERE status = 'pending' AND next_run_at <= now()
		ORDER BY next_run_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var due []Job
	for rows.Next() {
		var j Job
		if err := rows.Scan(&j.ID, &j.AppointmentID, &j.OwnerID, &j.PetName, &j.VetName,
			&j.Date, &j.Time, &j.Window, &j.SendAt, &j.Traceparent, &j.Tracestate,
			&j.Attempts, &j.MaxAttempts, &j.NextRunAt); err != nil {
			return nil, err
		}
		due = append(due, j)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return due, nil
}

func (r *Repository) MarkSent(ctx context.Context, tx pgx.Tx, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		UPDATE reminder_jobs
		SET status = 'sent', updated_at = now()
		WHERE id = ANY($1)
	`, ids)
	return err
}

func (r *Repository) MarkFailed(ctx context.Context, tx pgx.Tx, id int64, attempts int, maxAttempts int, nextRunAt time.Time, lastError string) error {
	status := "pending"
	if attempts >= maxAttempts {
		status = "failed"
	}
	_, err := tx.Exec(ctx, `
		UPDATE reminder_jobs
		SET attempts = $2,
		    status = $3,
		    next_run_at = $4,
		    last_error = $5,
		    updated_at = now()
		WHERE id = $1
	`, id, attempts, status, nextRunAt, lastError)
	return err
}
