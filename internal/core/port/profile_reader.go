package port

import (
	"context"

	"github.com/NathiDhliso/ReelApps-sub001/internal/core/domain"
)

// ProfileReader fetches the user profile backing role resolution. Profiles are
// owned by an external collaborator; this port only reads them.
type ProfileReader interface {
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
}
