package port

import (
	"context"
	"time"
)

// KeyValueStore is the single storage capability injected wherever the
// subsystem touches persisted browsing-context state (tokens, cookies).
// Get returns repository.ErrNotFound for absent keys. Implementations are
// process-wide per-origin shared state; concurrent writers are last-write-wins,
// like uncoordinated browser tabs.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Remove(ctx context.Context, key string) error
}
