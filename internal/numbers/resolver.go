package numbers

import (
	"context"
	"errors"
	"fmt"

	"hotelvoice/internal/assistants"
)

// Resolution is the (hotel, assistant) pair a dialed number maps to.
type Resolution struct {
	Number    PhoneNumber
	Assistant assistants.Assistant
}

// ErrUnknownNumber: the dialed number has no PhoneNumber row, the row is
// inactive, or no assistant is assigned. All three reject before any
// media transport is accepted; carrier streaming handshakes are expensive.
var ErrUnknownNumber = errors.New("numbers: no route for dialed number")

// TenantMismatchError reports a PhoneNumber whose assistant belongs to a
// different hotel. This is a data-integrity failure and must fail closed.
type TenantMismatchError struct {
	Number          string
	NumberHotelID   string
	AssistantHotelID string
}

func (e *TenantMismatchError) Error() string {
	return fmt.Sprintf("numbers: tenant mismatch for %s: number hotel %s, assistant hotel %s",
		e.Number, e.NumberHotelID, e.AssistantHotelID)
}

// Resolver maps a dialed number to its hotel and assistant configuration.
type Resolver struct {
	Numbers    Repository
	Assistants assistants.Repository
}

func NewResolver(numbers Repository, asst assistants.Repository) *Resolver {
	return &Resolver{Numbers: numbers, Assistants: asst}
}

// ResolveDialed looks up the dialed number and returns the configuration
// snapshot a new call session binds to.
//
// Failure modes:
//   - ErrUnknownNumber: no mapping (reject before accept)
//   - *TenantMismatchError: assistant owned by a different hotel (fail closed)
func (r *Resolver) ResolveDialed(ctx context.Context, dialed string) (Resolution, error) {
	n, err := r.Numbers.GetByNumber(ctx, dialed)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Resolution{}, ErrUnknownNumber
		}
		return Resolution{}, fmt.Errorf("numbers: lookup %s: %w", dialed, err)
	}
	if !n.IsActive || n.AssistantID == "" {
		return Resolution{}, ErrUnknownNumber
	}

	a, err := r.Assistants.GetByID(ctx, n.AssistantID)
	if err != nil {
		if errors.Is(err, assistants.ErrNotFound) {
			return Resolution{}, ErrUnknownNumber
		}
		return Resolution{}, fmt.Errorf("numbers: load assistant %s: %w", n.AssistantID, err)
	}
	if !a.IsActive {
		return Resolution{}, ErrUnknownNumber
	}

	// Isolation check: the number and its assistant must share a hotel.
	if a.HotelID != n.HotelID {
		return Resolution{}, &TenantMismatchError{
			Number:           n.Number,
			NumberHotelID:    n.HotelID,
			AssistantHotelID: a.HotelID,
		}
	}

	return Resolution{Number: n, Assistant: a.WithDefaults()}, nil
}
