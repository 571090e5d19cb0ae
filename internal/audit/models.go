package audit

import "time"

// Event is an immutable, append-only audit log record.
//
// Invariants:
// - Events are never updated or deleted.
// - hotel_id is required for tenancy isolation.
// - Audit writes are best-effort; do not block call flows on audit failures.
//
// Storage recommendation (Postgres):
// - Table audit_events with an INSERT-only policy.
// - Optional: trigger to prevent UPDATE/DELETE.
// - Optional: partition by time for retention.

type Event struct {
	ID      string `json:"id" db:"id"`
	HotelID string `json:"hotel_id" db:"hotel_id"`

	// Type indicates the business category of the audit record.
	Type EventType `json:"type" db:"type"`

	// ActorUserID is the authenticated user causing the event (if applicable).
	// Carrier-driven events have no actor.
	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	// ActorRole may include hidden roles.
	ActorRole string `json:"actor_role,omitempty" db:"actor_role"`

	// Target identifiers (optional, depending on the event type).
	StreamSID   string `json:"stream_sid,omitempty" db:"stream_sid"`
	CallSID     string `json:"call_sid,omitempty" db:"call_sid"`
	AssistantID string `json:"assistant_id,omitempty" db:"assistant_id"`
	ToolName    string `json:"tool_name,omitempty" db:"tool_name"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeSessionOpened   EventType = "session_opened"
	EventTypeSessionClosed   EventType = "session_closed"
	EventTypeToolInvoked     EventType = "tool_invoked"
	EventTypeCallTransferred EventType = "call_transferred"
	EventTypeOperatorHangup  EventType = "operator_hangup"
)
