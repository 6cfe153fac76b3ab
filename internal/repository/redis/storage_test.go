package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"

	"github.com/NathiDhliso/ReelApps-sub001/internal/repository"
)

func newStorageTestRedis(t *testing.T) (*red.Client, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := red.NewClient(&red.Options{Addr: server.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	return client, server
}

func TestStorageRepository_SetAndGet(t *testing.T) {
	client, server := newStorageTestRedis(t)
	repo := NewStorageRepository(client, "sso")

	ctx := context.Background()
	ttl := 24 * time.Hour

	if err := repo.Set(ctx, "sso_token", "token-value", ttl); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	value, err := repo.Get(ctx, "sso_token")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if value != "token-value" {
		t.Fatalf("expected token-value, got %s", value)
	}

	remaining := server.TTL("sso:sso_token")
	if remaining <= 0 || remaining > ttl {
		t.Fatalf("expected ttl within (0, %v], got %v", ttl, remaining)
	}
}

func TestStorageRepository_GetMiss(t *testing.T) {
	client, _ := newStorageTestRedis(t)
	repo := NewStorageRepository(client, "sso")

	_, err := repo.Get(context.Background(), "absent")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStorageRepository_Remove(t *testing.T) {
	client, _ := newStorageTestRedis(t)
	repo := NewStorageRepository(client, "sso")

	ctx := context.Background()
	if err := repo.Set(ctx, "sso_token", "token-value", 0); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if err := repo.Remove(ctx, "sso_token"); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}

	if _, err := repo.Get(ctx, "sso_token"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after removal, got %v", err)
	}

	// Removing again is a no-op, not an error.
	if err := repo.Remove(ctx, "sso_token"); err != nil {
		t.Fatalf("second Remove returned error: %v", err)
	}
}

func TestStorageRepository_PrefixIsolation(t *testing.T) {
	client, _ := newStorageTestRedis(t)
	first := NewStorageRepository(client, "app-one")
	second := NewStorageRepository(client, "app-two")

	ctx := context.Background()
	if err := first.Set(ctx, "sso_token", "one", 0); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	if _, err := second.Get(ctx, "sso_token"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected prefix isolation, got %v", err)
	}
}
