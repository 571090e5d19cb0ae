package knowledge

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxContextChars caps the knowledge context injected into a reasoning
// stage (roughly 12.5k tokens, safe for every supported model's window).
const MaxContextChars = 50000

// TruncationMarker is appended whenever the context was cut, so the
// reasoning stage and operators can detect silent data loss.
const TruncationMarker = "\n[... knowledge truncated]"

// Injector formats a hotel's knowledge base into reasoning-stage context.
//
// The context is computed once per call at pipeline assembly; knowledge
// edits take effect on the next call, never mid-call.
type Injector struct {
	repo Repository
	now  func() time.Time
}

func NewInjector(repo Repository) *Injector {
	return &Injector{repo: repo, now: time.Now}
}

// Load returns the hotel's active entries in stable (creation) order.
func (i *Injector) Load(ctx context.Context, hotelID string) ([]Entry, error) {
	if hotelID == "" {
		return nil, fmt.Errorf("knowledge: hotel id is required")
	}
	return i.repo.ListActiveByHotel(ctx, hotelID, i.now().UTC())
}

// ContextFor loads and formats the hotel's knowledge in one step.
func (i *Injector) ContextFor(ctx context.Context, hotelID string) (string, error) {
	entries, err := i.Load(ctx, hotelID)
	if err != nil {
		return "", err
	}
	return FormatContext(entries), nil
}

// FormatContext renders entries as "Q: … A: …" pairs and enforces the
// size ceiling. Output is at most MaxContextChars characters and ends
// with TruncationMarker iff the full rendering exceeded the ceiling.
func FormatContext(entries []Entry) string {
	if len(entries) == 0 {
		return ""
	}

	var b strings.Builder
	for idx, e := range entries {
		if idx > 0 {
			b.WriteString("\n\n")
		}
		if e.Category != "" {
			fmt.Fprintf(&b, "[%s]\n", e.Category)
		}
		fmt.Fprintf(&b, "Q: %s\nA: %s", e.Question, e.Answer)
	}

	s := b.String()
	if len(s) <= MaxContextChars {
		return s
	}
	// Back up to a rune boundary so the cut never emits invalid UTF-8.
	cut := MaxContextChars - len(TruncationMarker)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + TruncationMarker
}

// Search scores entries against a caller question by word overlap and
// returns the best matches, preserving creation order among equal scores.
// It serves the in-call knowledge lookup function from the snapshot
// loaded at assembly time.
func Search(entries []Entry, question string, limit int) []Entry {
	if limit <= 0 || len(entries) == 0 {
		return nil
	}

	qWords := tokenize(question)
	if len(qWords) == 0 {
		return nil
	}

	type scored struct {
		entry Entry
		score int
		order int
	}
	var matches []scored
	for idx, e := range entries {
		words := tokenize(e.Question + " " + e.Category)
		score := 0
		for w := range qWords {
			if _, ok := words[w]; ok {
				score++
			}
		}
		if score > 0 {
			matches = append(matches, scored{entry: e, score: score, order: idx})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].order < matches[j].order
	})

	if len(matches) == 0 {
		return nil
	}
	if len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]Entry, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.entry)
	}
	return out
}

// stopwords that carry no signal in guest questions.
var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "is": {}, "are": {}, "do": {}, "does": {},
	"what": {}, "when": {}, "where": {}, "how": {}, "i": {}, "you": {},
	"to": {}, "of": {}, "in": {}, "at": {}, "for": {}, "my": {}, "your": {},
}

func tokenize(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	}) {
		if _, skip := stopwords[w]; skip {
			continue
		}
		out[w] = struct{}{}
	}
	return out
}
