package session

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestOpenAndLookup(t *testing.T) {
	r := NewRegistry()
	s := &Session{StreamSID: "MZ1", CallSID: "CA1", HotelID: "h1", AssistantID: "a1"}

	if err := r.Open(s); err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, ok := r.Lookup("MZ1")
	if !ok || got.CallSID != "CA1" {
		t.Fatalf("Lookup = %+v, %v", got, ok)
	}
	if got.StartedAt.IsZero() {
		t.Fatal("StartedAt not stamped")
	}
}

func TestOpenDuplicateRejected(t *testing.T) {
	r := NewRegistry()
	if err := r.Open(&Session{StreamSID: "MZ1"}); err != nil {
		t.Fatalf("first Open: %v", err)
	}

	err := r.Open(&Session{StreamSID: "MZ1"})
	var dup *DuplicateSessionError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateSessionError, got %v", err)
	}
	if dup.StreamSID != "MZ1" {
		t.Fatalf("StreamSID = %q", dup.StreamSID)
	}
	if r.Len() != 1 {
		t.Fatalf("Len = %d, want 1", r.Len())
	}
}

func TestCloseIdempotent(t *testing.T) {
	r := NewRegistry()
	s := &Session{StreamSID: "MZ1"}
	released := 0
	s.SetShutdown(func() { released++ })
	if err := r.Open(s); err != nil {
		t.Fatalf("Open: %v", err)
	}

	// Carrier stop and tool end-call both close; second must be a no-op.
	r.Close("MZ1")
	r.Close("MZ1")

	if released != 1 {
		t.Fatalf("shutdown ran %d times, want 1", released)
	}
	if _, ok := r.Lookup("MZ1"); ok {
		t.Fatal("session still present after close")
	}
}

func TestCloseUnknownIsNoop(t *testing.T) {
	r := NewRegistry()
	r.Close("never-opened")
	if r.Len() != 0 {
		t.Fatalf("Len = %d", r.Len())
	}
}

func TestConcurrentCloseReleasesOnce(t *testing.T) {
	r := NewRegistry()
	s := &Session{StreamSID: "MZ1"}
	var mu sync.Mutex
	released := 0
	s.SetShutdown(func() {
		mu.Lock()
		released++
		mu.Unlock()
	})
	if err := r.Open(s); err != nil {
		t.Fatalf("Open: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Close("MZ1")
		}()
	}
	wg.Wait()

	if released != 1 {
		t.Fatalf("shutdown ran %d times, want 1", released)
	}
}

func TestActiveFiltersByHotel(t *testing.T) {
	r := NewRegistry()
	now := time.Now()
	for _, s := range []*Session{
		{StreamSID: "MZ1", HotelID: "h1", StartedAt: now},
		{StreamSID: "MZ2", HotelID: "h2", StartedAt: now},
		{StreamSID: "MZ3", HotelID: "h1", StartedAt: now},
	} {
		if err := r.Open(s); err != nil {
			t.Fatalf("Open %s: %v", s.StreamSID, err)
		}
	}

	if all := r.Active(""); len(all) != 3 {
		t.Fatalf("Active(\"\") = %d, want 3", len(all))
	}
	h1 := r.Active("h1")
	if len(h1) != 2 {
		t.Fatalf("Active(h1) = %d, want 2", len(h1))
	}
	for _, s := range h1 {
		if s.HotelID != "h1" {
			t.Fatalf("leaked session from hotel %q", s.HotelID)
		}
	}
}
