package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.

type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs internal audit information.
//
// IMPORTANT:
// - Audit is internal-only. Do not expose these records to tenant users by default.
// - Callers should treat audit logging as best-effort.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.HotelID == "" {
		return ErrInvalidEvent
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// LogSessionOpened records the start of a live call session.
func (s *Service) LogSessionOpened(ctx context.Context, hotelID, streamSID, callSID, assistantID string) error {
	return s.Append(ctx, Event{
		HotelID:     hotelID,
		Type:        EventTypeSessionOpened,
		StreamSID:   streamSID,
		CallSID:     callSID,
		AssistantID: assistantID,
		Message:     "call session opened",
	})
}

// LogSessionClosed records the end of a live call session.
func (s *Service) LogSessionClosed(ctx context.Context, hotelID, streamSID, callSID, reason string) error {
	return s.Append(ctx, Event{
		HotelID:   hotelID,
		Type:      EventTypeSessionClosed,
		StreamSID: streamSID,
		CallSID:   callSID,
		Message:   reason,
	})
}

// LogToolInvoked records a reasoning-stage tool execution on a call.
func (s *Service) LogToolInvoked(ctx context.Context, hotelID, streamSID, callSID, toolName, outcome string) error {
	return s.Append(ctx, Event{
		HotelID:   hotelID,
		Type:      EventTypeToolInvoked,
		StreamSID: streamSID,
		CallSID:   callSID,
		ToolName:  toolName,
		Message:   outcome,
	})
}

// LogCallTransferred records a tool-driven handoff to a human.
func (s *Service) LogCallTransferred(ctx context.Context, hotelID, streamSID, callSID, target string) error {
	return s.Append(ctx, Event{
		HotelID:   hotelID,
		Type:      EventTypeCallTransferred,
		StreamSID: streamSID,
		CallSID:   callSID,
		Message:   "call transferred to " + target,
	})
}

// LogOperatorHangup records a human operator terminating a live call.
func (s *Service) LogOperatorHangup(ctx context.Context, hotelID, actorUserID, actorRole, streamSID, callSID string) error {
	return s.Append(ctx, Event{
		HotelID:     hotelID,
		Type:        EventTypeOperatorHangup,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		StreamSID:   streamSID,
		CallSID:     callSID,
		Message:     "call terminated by operator",
	})
}
