package history

import (
	"context"
	"sync"

	"marketsense/internal/model"
)

// DefaultSize is how many answers a MemoryRepository keeps when no size is
// given.
const DefaultSize = 20

// Repository defines the standard interface for the recent checks log.
type Repository interface {
	Record(ctx context.Context, answer model.Answer) error
	Recent(ctx context.Context, limit int) ([]model.Answer, error)
}

// MemoryRepository keeps the most recent answers in a fixed-size ring.
// Older answers are overwritten once the ring is full.
type MemoryRepository struct {
	mu      sync.RWMutex
	entries []model.Answer
	next    int
	count   int
}

// NewMemoryRepository creates a MemoryRepository holding up to size answers.
func NewMemoryRepository(size int) *MemoryRepository {
	if size <= 0 {
		size = DefaultSize
	}
	return &MemoryRepository{entries: make([]model.Answer, size)}
}

// Record stores an answer, evicting the oldest one when full.
func (r *MemoryRepository) Record(ctx context.Context, answer model.Answer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[r.next] = answer
	r.next = (r.next + 1) % len(r.entries)
	if r.count < len(r.entries) {
		r.count++
	}
	return nil
}

// Recent returns up to limit answers, newest first. A non-positive limit
// returns everything kept.
func (r *MemoryRepository) Recent(ctx context.Context, limit int) ([]model.Answer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 || limit > r.count {
		limit = r.count
	}
	out := make([]model.Answer, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (r.next - i + len(r.entries)) % len(r.entries)
		out = append(out, r.entries[idx])
	}
	return out, nil
}

// Len returns how many answers are kept.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}
