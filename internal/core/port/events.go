package port

import (
	"context"

	"github.com/NathiDhliso/ReelApps-sub001/internal/core/domain"
)

// EventPublisher publishes domain events to the message bus.
type EventPublisher interface {
	PublishUserLoggedIn(ctx context.Context, event domain.UserLoggedInEvent) error
	PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error
	PublishSessionsInvalidated(ctx context.Context, event domain.SessionsInvalidatedEvent) error
}
