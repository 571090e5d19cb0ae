package assistants

import (
	"context"
	"sync"
)

// MemoryRepo is a simple in-memory repository useful for tests.
// It is not intended for production use.
type MemoryRepo struct {
	mu   sync.Mutex
	rows map[string]Assistant
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{rows: make(map[string]Assistant)}
}

func (r *MemoryRepo) Put(a Assistant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[a.ID] = a
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Assistant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.rows[id]
	if !ok {
		return Assistant{}, ErrNotFound
	}
	return a, nil
}
