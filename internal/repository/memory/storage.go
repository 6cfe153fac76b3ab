package memory

import (
	"context"
	"sync"
	"time"

	"github.com/NathiDhliso/ReelApps-sub001/internal/core/port"
	"github.com/NathiDhliso/ReelApps-sub001/internal/repository"
)

type entry struct {
	value     string
	expiresAt time.Time
}

// StorageRepository is an in-process port.KeyValueStore used in tests and
// single-node development setups. Expired entries are dropped lazily on read.
type StorageRepository struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// NewStorageRepository constructs an empty in-memory store.
func NewStorageRepository() *StorageRepository {
	return &StorageRepository{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// WithClock overrides the clock (primarily for tests).
func (r *StorageRepository) WithClock(now func() time.Time) *StorageRepository {
	if now != nil {
		r.now = now
	}
	return r
}

// Get fetches a value, returning repository.ErrNotFound for absent or expired keys.
func (r *StorageRepository) Get(_ context.Context, key string) (string, error) {
	r.mu.RLock()
	e, ok := r.entries[key]
	r.mu.RUnlock()

	if !ok {
		return "", repository.ErrNotFound
	}
	if !e.expiresAt.IsZero() && !e.expiresAt.After(r.now()) {
		r.mu.Lock()
		delete(r.entries, key)
		r.mu.Unlock()
		return "", repository.ErrNotFound
	}
	return e.value, nil
}

// Set stores a value with the given TTL. A non-positive TTL stores without expiry.
func (r *StorageRepository) Set(_ context.Context, key, value string, ttl time.Duration) error {
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = r.now().Add(ttl)
	}

	r.mu.Lock()
	r.entries[key] = e
	r.mu.Unlock()
	return nil
}

// Remove deletes a key. Removing an absent key is not an error.
func (r *StorageRepository) Remove(_ context.Context, key string) error {
	r.mu.Lock()
	delete(r.entries, key)
	r.mu.Unlock()
	return nil
}

var _ port.KeyValueStore = (*StorageRepository)(nil)
