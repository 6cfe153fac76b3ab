package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/NathiDhliso/ReelApps-sub001/internal/core/port"
	"github.com/NathiDhliso/ReelApps-sub001/internal/repository"
)

// StorageRepository implements port.KeyValueStore on Redis strings. Keys are
// namespaced per origin so sibling deployments sharing a Redis do not collide.
type StorageRepository struct {
	client *redis.Client
	prefix string
}

// NewStorageRepository constructs a key-value store with an optional key prefix.
func NewStorageRepository(client *redis.Client, prefix string) *StorageRepository {
	return &StorageRepository{client: client, prefix: prefix}
}

// Get fetches a value, returning repository.ErrNotFound for absent keys.
func (r *StorageRepository) Get(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, r.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", repository.ErrNotFound
		}
		return "", fmt.Errorf("redis get: %w", err)
	}
	return value, nil
}

// Set stores a value with the given TTL. A non-positive TTL stores without expiry.
func (r *StorageRepository) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Remove deletes a key. Removing an absent key is not an error.
func (r *StorageRepository) Remove(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (r *StorageRepository) key(key string) string {
	if r.prefix == "" {
		return key
	}
	return fmt.Sprintf("%s:%s", r.prefix, key)
}

var _ port.KeyValueStore = (*StorageRepository)(nil)
