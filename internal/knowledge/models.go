package knowledge

import "time"

// Entry is one question/answer pair in a hotel's knowledge base.
//
// Multi-tenant invariant: HotelID is required on every row; an entry must
// never surface in a call resolved to a different hotel.
type Entry struct {
	ID      string `json:"id" db:"id"`
	HotelID string `json:"hotel_id" db:"hotel_id"`

	Question string `json:"question" db:"question"`
	Answer   string `json:"answer" db:"answer"`

	// Category is an optional free-text tag.
	Category string `json:"category,omitempty" db:"category"`

	// ExpiresAt marks time-sensitive entries (weekly specials, events).
	// Nil means the entry never expires.
	ExpiresAt *time.Time `json:"expires_at,omitempty" db:"expires_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ActiveAt reports whether the entry is visible at the given time.
func (e Entry) ActiveAt(now time.Time) bool {
	return e.ExpiresAt == nil || e.ExpiresAt.After(now)
}
