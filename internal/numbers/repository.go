package numbers

import (
	"context"
	"database/sql"
	"errors"
)

var ErrNotFound = errors.New("numbers: not found")

// Repository is the read-only persistence contract the call engine needs.
type Repository interface {
	GetByNumber(ctx context.Context, e164 string) (PhoneNumber, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) GetByNumber(ctx context.Context, e164 string) (PhoneNumber, error) {
	const q = `
SELECT id, phone_number, COALESCE(friendly_name, ''), country_code, twilio_sid,
       hotel_id, COALESCE(assistant_id::text, ''), is_active, created_at, updated_at
FROM phone_numbers
WHERE phone_number = $1
`
	var n PhoneNumber
	if err := r.db.QueryRowContext(ctx, q, e164).Scan(
		&n.ID,
		&n.Number,
		&n.FriendlyName,
		&n.CountryCode,
		&n.TwilioSID,
		&n.HotelID,
		&n.AssistantID,
		&n.IsActive,
		&n.CreatedAt,
		&n.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return PhoneNumber{}, ErrNotFound
		}
		return PhoneNumber{}, err
	}
	return n, nil
}
