// Package storage keeps the audit trail of reminders that went out (or
// failed to), one row per channel per attempt.
package storage

import (
	"context"

	"github.com/vetsync/vetsync/libs/db"
)

type Notification struct {
	AppointmentID string
	OwnerID       string
	Channel       string
	Recipient     string
	Window        string
	Status        string
	Detail        string
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, n Notification) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications (appointment_id, owner_id, channel, recipient, reminder_window, status, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, n.AppointmentID, n.OwnerID, n.Channel, n.Recipient, n.Window, n.Status, n.Detail)
	return err
}
