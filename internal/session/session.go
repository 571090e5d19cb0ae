// Package session tracks live call sessions. The registry is the single
// authority on which streams are active: the carrier event path and the
// tool-dispatch path both race to close sessions, and the registry makes
// that race safe.
package session

import (
	"fmt"
	"sync"
	"time"
)

// Session is the transient state of one live call. It is created when
// the carrier's start event arrives and destroyed on stream stop, a
// tool-requested hangup, or fatal pipeline error. Only the registry
// mutates it.
type Session struct {
	StreamSID   string
	CallSID     string
	HotelID     string
	AssistantID string
	PhoneNumber string
	From        string
	StartedAt   time.Time

	mu       sync.Mutex
	shutdown func()
	once     sync.Once
}

// SetShutdown installs the pipeline-release hook. Called once by the
// telephony bridge after assembly; the hook runs at most once no matter
// how many paths close the session.
func (s *Session) SetShutdown(fn func()) {
	s.mu.Lock()
	s.shutdown = fn
	s.mu.Unlock()
}

func (s *Session) release() {
	s.once.Do(func() {
		s.mu.Lock()
		fn := s.shutdown
		s.mu.Unlock()
		if fn != nil {
			fn()
		}
	})
}

// Summary is the read-only view of a session exposed to operators.
type Summary struct {
	StreamSID   string    `json:"stream_sid"`
	CallSID     string    `json:"call_sid"`
	HotelID     string    `json:"hotel_id"`
	AssistantID string    `json:"assistant_id"`
	PhoneNumber string    `json:"phone_number"`
	From        string    `json:"from"`
	StartedAt   time.Time `json:"started_at"`
}

// DuplicateSessionError reports an open for a stream id that is already
// registered. A duplicate start event is a protocol anomaly, so the open
// is rejected rather than returning the existing session.
type DuplicateSessionError struct {
	StreamSID string
}

func (e *DuplicateSessionError) Error() string {
	return fmt.Sprintf("session: stream %s already active", e.StreamSID)
}

// Registry holds at most one Session per stream id.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Open registers a new session. Fails with DuplicateSessionError if the
// stream id is already present.
func (r *Registry) Open(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.StreamSID]; ok {
		return &DuplicateSessionError{StreamSID: s.StreamSID}
	}
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now()
	}
	r.sessions[s.StreamSID] = s
	return nil
}

// Close removes the session and releases its pipeline resources. Closing
// an absent stream id is a no-op: the carrier-stop and tool-end paths may
// both arrive, and whichever lands second must do nothing.
func (r *Registry) Close(streamSID string) {
	r.mu.Lock()
	s, ok := r.sessions[streamSID]
	if ok {
		delete(r.sessions, streamSID)
	}
	r.mu.Unlock()
	if ok {
		s.release()
	}
}

// Lookup returns the live session for a stream id.
func (r *Registry) Lookup(streamSID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[streamSID]
	return s, ok
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Active returns operator-facing summaries of every live session. When
// hotelID is non-empty, only that hotel's calls are included.
func (r *Registry) Active(hotelID string) []Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Summary, 0, len(r.sessions))
	for _, s := range r.sessions {
		if hotelID != "" && s.HotelID != hotelID {
			continue
		}
		out = append(out, Summary{
			StreamSID:   s.StreamSID,
			CallSID:     s.CallSID,
			HotelID:     s.HotelID,
			AssistantID: s.AssistantID,
			PhoneNumber: s.PhoneNumber,
			From:        s.From,
			StartedAt:   s.StartedAt,
		})
	}
	return out
}
