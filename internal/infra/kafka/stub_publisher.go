package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/NathiDhliso/ReelApps-sub001/internal/core/domain"
	"github.com/NathiDhliso/ReelApps-sub001/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, userID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("user_id", userID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishUserLoggedIn logs sso.user.logged_in events.
func (p *StubPublisher) PublishUserLoggedIn(_ context.Context, event domain.UserLoggedInEvent) error {
	payload := map[string]any{
		"user_id":    event.UserID,
		"email":      event.Email,
		"session_id": event.SessionID,
		"logged_at":  event.LoggedAt,
		"ip_address": event.IPAddress,
		"user_agent": event.UserAgent,
		"refreshed":  event.Refreshed,
		"metadata":   event.Metadata,
	}
	p.logEvent("sso.user.logged_in", event.UserID, event.LoggedAt, payload)
	return nil
}

// PublishPasswordChanged logs sso.user.password.changed events.
func (p *StubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	payload := map[string]any{
		"user_id":           event.UserID,
		"changed_at":        event.ChangedAt,
		"sessions_revoked":  event.SessionsRevoked,
		"notification_sent": event.NotificationSent,
		"metadata":          event.Metadata,
	}
	p.logEvent("sso.user.password.changed", event.UserID, event.ChangedAt, payload)
	return nil
}

// PublishSessionsInvalidated logs sso.sessions.invalidated events.
func (p *StubPublisher) PublishSessionsInvalidated(_ context.Context, event domain.SessionsInvalidatedEvent) error {
	payload := map[string]any{
		"user_id":          event.UserID,
		"kept_session_id":  event.KeptSessionID,
		"invalidated_at":   event.InvalidatedAt,
		"records_affected": event.RecordsAffected,
		"reason":           event.Reason,
		"metadata":         event.Metadata,
	}
	p.logEvent("sso.sessions.invalidated", event.UserID, event.InvalidatedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
