package repository

import (
	"context"
	"fmt"
	"sync"

	"neurostate/internal/domain"
)

// MemoryProfileRepository se usa cuando no hay DATABASE_URL y en tests.
type MemoryProfileRepository struct {
	mu    sync.RWMutex
	items map[string]ProfileRecord
}

func NewMemoryProfileRepository() *MemoryProfileRepository {
	return &MemoryProfileRepository{items: make(map[string]ProfileRecord)}
}

func (r *MemoryProfileRepository) Upsert(_ context.Context, rec ProfileRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[rec.UserID] = rec
	return nil
}

func (r *MemoryProfileRepository) GetByUserID(_ context.Context, userID string) (ProfileRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.items[userID]
	if !ok {
		return ProfileRecord{}, fmt.Errorf("%w: no profile for %s", domain.ErrUserNotFound, userID)
	}
	return rec, nil
}
