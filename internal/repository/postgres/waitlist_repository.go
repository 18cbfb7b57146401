package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type WaitlistRepository struct {
	db DBTX
}

func NewWaitlistRepository(db DBTX) *WaitlistRepository {
	return &WaitlistRepository{db: db}
}

// InsertIfAbsent adds email and reports whether a new row was created.
// Concurrent inserts of the same address resolve through the unique index.
func (r *WaitlistRepository) InsertIfAbsent(ctx context.Context, email string) (bool, error) {
	query :=
		`INSERT INTO waitlist (email)
		 VALUES ($1)
		 ON CONFLICT (email) DO NOTHING
		 RETURNING id
		 `

	var id string
	err := r.db.QueryRowContext(ctx, query, email).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("db error: %w", err)
	}

	return true, nil
}

func (r *WaitlistRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM waitlist`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
