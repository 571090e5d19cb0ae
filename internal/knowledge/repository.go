package knowledge

import (
	"context"
	"database/sql"
	"time"
)

// Repository is the read-only persistence contract the call engine needs.
type Repository interface {
	// ListActiveByHotel returns the hotel's non-expired entries ordered by
	// creation time, oldest first. The order is part of the contract: the
	// injector's output must be stable across identical calls.
	ListActiveByHotel(ctx context.Context, hotelID string, now time.Time) ([]Entry, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) ListActiveByHotel(ctx context.Context, hotelID string, now time.Time) ([]Entry, error) {
	const q = `
SELECT id, hotel_id, question, answer, COALESCE(category, ''), expires_at, created_at, updated_at
FROM knowledge_entries
WHERE hotel_id = $1
  AND (expires_at IS NULL OR expires_at > $2)
ORDER BY created_at ASC
`
	rows, err := r.db.QueryContext(ctx, q, hotelID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID,
			&e.HotelID,
			&e.Question,
			&e.Answer,
			&e.Category,
			&e.ExpiresAt,
			&e.CreatedAt,
			&e.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
