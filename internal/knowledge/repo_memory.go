package knowledge

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is a simple in-memory repository useful for tests.
// It is not intended for production use.
type MemoryRepo struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Put(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

func (r *MemoryRepo) ListActiveByHotel(ctx context.Context, hotelID string, now time.Time) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Entry
	for _, e := range r.entries {
		if e.HotelID != hotelID {
			continue
		}
		if !e.ActiveAt(now) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
