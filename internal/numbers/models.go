package numbers

import "time"

// PhoneNumber maps a carrier-assigned number to exactly one hotel and at
// most one assistant.
//
// Invariant: every active call session's hotel_id equals the owning
// PhoneNumber's hotel_id. The resolver enforces this before any transport
// is accepted.
type PhoneNumber struct {
	ID string `json:"id" db:"id"`

	// Number is E.164, e.g. +14155551234.
	Number       string `json:"phone_number" db:"phone_number"`
	FriendlyName string `json:"friendly_name,omitempty" db:"friendly_name"`
	CountryCode  string `json:"country_code" db:"country_code"`

	// TwilioSID is Twilio's incoming-phone-number resource SID.
	TwilioSID string `json:"twilio_sid" db:"twilio_sid"`

	HotelID     string `json:"hotel_id" db:"hotel_id"`
	AssistantID string `json:"assistant_id,omitempty" db:"assistant_id"`

	IsActive bool `json:"is_active" db:"is_active"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
