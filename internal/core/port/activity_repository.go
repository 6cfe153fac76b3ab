package port

import (
	"context"
	"time"

	"github.com/NathiDhliso/ReelApps-sub001/internal/core/domain"
)

// ActivityRepository persists session activity records, one row per user.
type ActivityRepository interface {
	// Upsert inserts or replaces the record keyed by user id.
	Upsert(ctx context.Context, record domain.SessionActivityRecord) error
	// GetByUser fetches the record for a user, returning repository.ErrNotFound when absent.
	GetByUser(ctx context.Context, userID string) (*domain.SessionActivityRecord, error)
	// InvalidateAllForUser marks every active record for the user inactive except
	// the one bound to exceptSessionID, returning how many records changed.
	InvalidateAllForUser(ctx context.Context, userID, exceptSessionID string, at time.Time) (int, error)
}
