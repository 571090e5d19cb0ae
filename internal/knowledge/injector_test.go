package knowledge

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestFormatContext_UnderLimit(t *testing.T) {
	entries := []Entry{
		{Question: "What time is checkout?", Answer: "Checkout is at 11am."},
		{Question: "Is there a pool?", Answer: "Yes, open 7am to 10pm.", Category: "amenities"},
	}
	got := FormatContext(entries)

	want := "Q: What time is checkout?\nA: Checkout is at 11am.\n\n[amenities]\nQ: Is there a pool?\nA: Yes, open 7am to 10pm."
	if got != want {
		t.Fatalf("unexpected context:\n%q\nwant:\n%q", got, want)
	}
	if strings.Contains(got, TruncationMarker) {
		t.Fatalf("unexpected truncation marker")
	}
}

func TestFormatContext_TruncatesAtCeiling(t *testing.T) {
	long := strings.Repeat("x", 9000)
	var entries []Entry
	for i := 0; i < 10; i++ {
		entries = append(entries, Entry{Question: "q", Answer: long})
	}

	got := FormatContext(entries)
	if len(got) > MaxContextChars {
		t.Fatalf("context exceeds ceiling: %d chars", len(got))
	}
	if !strings.HasSuffix(got, TruncationMarker) {
		t.Fatalf("expected truncation marker suffix")
	}
}

func TestFormatContext_TruncatesOnRuneBoundary(t *testing.T) {
	// Fill with 2-byte runes so a byte-offset cut would land mid-rune.
	long := strings.Repeat("é", 30000)
	entries := []Entry{
		{Question: "q", Answer: long},
		{Question: "q", Answer: long},
	}

	got := FormatContext(entries)
	if len(got) > MaxContextChars {
		t.Fatalf("context exceeds ceiling: %d chars", len(got))
	}
	if !strings.HasSuffix(got, TruncationMarker) {
		t.Fatalf("expected truncation marker suffix")
	}
	if !utf8.ValidString(got) {
		t.Fatalf("truncated context is not valid UTF-8")
	}
}

func TestFormatContext_Empty(t *testing.T) {
	if got := FormatContext(nil); got != "" {
		t.Fatalf("expected empty context, got %q", got)
	}
}

func TestInjector_FiltersExpiredAndForeignEntries(t *testing.T) {
	repo := NewMemoryRepo()
	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	repo.Put(Entry{HotelID: "hotel-1", Question: "pool?", Answer: "yes", CreatedAt: now.Add(-3 * time.Minute)})
	repo.Put(Entry{HotelID: "hotel-1", Question: "brunch this week?", Answer: "special menu", ExpiresAt: &future, CreatedAt: now.Add(-2 * time.Minute)})
	repo.Put(Entry{HotelID: "hotel-1", Question: "old event?", Answer: "gone", ExpiresAt: &past, CreatedAt: now.Add(-1 * time.Minute)})
	repo.Put(Entry{HotelID: "hotel-2", Question: "other tenant", Answer: "must not leak", CreatedAt: now})

	inj := NewInjector(repo)
	got, err := inj.ContextFor(context.Background(), "hotel-1")
	if err != nil {
		t.Fatalf("context: %v", err)
	}

	if !strings.Contains(got, "pool?") || !strings.Contains(got, "brunch this week?") {
		t.Fatalf("missing active entries: %q", got)
	}
	if strings.Contains(got, "old event?") {
		t.Fatalf("expired entry leaked: %q", got)
	}
	if strings.Contains(got, "other tenant") || strings.Contains(got, "must not leak") {
		t.Fatalf("cross-hotel entry leaked: %q", got)
	}
}

func TestInjector_RequiresHotelID(t *testing.T) {
	inj := NewInjector(NewMemoryRepo())
	if _, err := inj.ContextFor(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty hotel id")
	}
}

func TestSearch_RanksByOverlap(t *testing.T) {
	entries := []Entry{
		{Question: "What time is checkout?", Answer: "11am"},
		{Question: "Is the pool heated?", Answer: "Yes", Category: "amenities"},
		{Question: "Do you allow pets?", Answer: "Dogs under 25lb"},
	}

	got := Search(entries, "what are the pool hours", 2)
	if len(got) == 0 || got[0].Answer != "Yes" {
		t.Fatalf("expected pool entry first, got %+v", got)
	}

	if got := Search(entries, "", 2); got != nil {
		t.Fatalf("expected no matches for empty question, got %+v", got)
	}
	if got := Search(entries, "completely unrelated topic", 2); got != nil {
		t.Fatalf("expected no matches, got %+v", got)
	}
}
