package numbers

import (
	"context"
	"sync"
)

// MemoryRepo is a simple in-memory repository useful for tests.
// It is not intended for production use.
type MemoryRepo struct {
	mu   sync.Mutex
	rows map[string]PhoneNumber // keyed by E.164 number
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{rows: make(map[string]PhoneNumber)}
}

func (r *MemoryRepo) Put(n PhoneNumber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[n.Number] = n
}

func (r *MemoryRepo) GetByNumber(ctx context.Context, e164 string) (PhoneNumber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.rows[e164]
	if !ok {
		return PhoneNumber{}, ErrNotFound
	}
	return n, nil
}
