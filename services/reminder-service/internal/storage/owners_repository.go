package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/vetsync/vetsync/libs/db"
)

// OwnerDirectory reads owner contact details from the shared owners
// table. An unknown owner id resolves to empty contacts rather than an
// error; the caller decides whether that is a problem.
type OwnerDirectory struct {
	pool *db.Pool
}

func NewOwnerDirectory(pool *db.Pool) *OwnerDirectory {
	return &OwnerDirectory{pool: pool}
}

func (d *OwnerDirectory) Lookup(ctx context.Context, ownerID string) (string, string, error) {
	if ownerID == "" {
		return "", "", nil
	}
	var email, phone string
	err := d.pool.QueryRow(ctx, `
		SELECT COALESCE(email, ''), COALESCE(phone, '')
		FROM owners
		WHERE id = $1
	`, ownerID).Scan(&email, &phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", "", nil
		}
		return "", "", err
	}
	return email, phone, nil
}
