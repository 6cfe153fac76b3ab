package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/NathiDhliso/ReelApps-sub001/internal/repository"
)

func TestStorageRepository_SetAndGet(t *testing.T) {
	repo := NewStorageRepository()
	ctx := context.Background()

	if err := repo.Set(ctx, "sso_token", "token-value", 0); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	value, err := repo.Get(ctx, "sso_token")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if value != "token-value" {
		t.Fatalf("expected token-value, got %s", value)
	}
}

func TestStorageRepository_GetMiss(t *testing.T) {
	repo := NewStorageRepository()

	_, err := repo.Get(context.Background(), "absent")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStorageRepository_Overwrite(t *testing.T) {
	repo := NewStorageRepository()
	ctx := context.Background()

	if err := repo.Set(ctx, "sso_token", "first", 0); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if err := repo.Set(ctx, "sso_token", "second", 0); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	value, err := repo.Get(ctx, "sso_token")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if value != "second" {
		t.Fatalf("expected second, got %s", value)
	}
}

func TestStorageRepository_Expiry(t *testing.T) {
	current := time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC)
	repo := NewStorageRepository().WithClock(func() time.Time { return current })
	ctx := context.Background()

	if err := repo.Set(ctx, "sso_token", "token-value", time.Hour); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	if _, err := repo.Get(ctx, "sso_token"); err != nil {
		t.Fatalf("Get before expiry returned error: %v", err)
	}

	current = current.Add(time.Hour + time.Second)

	if _, err := repo.Get(ctx, "sso_token"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}
}

func TestStorageRepository_Remove(t *testing.T) {
	repo := NewStorageRepository()
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

	if err := repo.Remove(ctx, "sso_token"); err != nil {
		t.Fatalf("second Remove returned error: %v", err)
	}
}
