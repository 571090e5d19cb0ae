package tools

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is a simple in-memory repository useful for tests.
// It is not intended for production use.
type MemoryRepo struct {
	mu   sync.Mutex
	rows []Tool
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Put(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, t)
}

func (r *MemoryRepo) ListActive(ctx context.Context, assistantID string) ([]Tool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Tool
	for _, t := range r.rows {
		if t.AssistantID == assistantID && t.IsActive {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
