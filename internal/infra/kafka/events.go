package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/NathiDhliso/ReelApps-sub001/internal/core/domain"
	"github.com/NathiDhliso/ReelApps-sub001/internal/core/port"
	"github.com/NathiDhliso/ReelApps-sub001/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	UserID    string           `json:"user_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, userID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		UserID:    userID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishUserLoggedIn publishes sso.user.logged_in events.
func (p *EventPublisher) PublishUserLoggedIn(ctx context.Context, event domain.UserLoggedInEvent) error {
	payload := struct {
		UserID    string         `json:"user_id"`
		Email     string         `json:"email"`
		SessionID string         `json:"session_id,omitempty"`
		LoggedAt  time.Time      `json:"logged_at"`
		IPAddress *string        `json:"ip_address,omitempty"`
		UserAgent *string        `json:"user_agent,omitempty"`
		Refreshed bool           `json:"refreshed"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{
		UserID:    event.UserID,
		Email:     event.Email,
		SessionID: event.SessionID,
		LoggedAt:  event.LoggedAt.UTC(),
		IPAddress: event.IPAddress,
		UserAgent: event.UserAgent,
		Refreshed: event.Refreshed,
		Metadata:  event.Metadata,
	}

	return p.publish(ctx, event.EventID, "sso.user.logged_in", event.UserID, event.LoggedAt, payload)
}

// PublishPasswordChanged publishes sso.user.password.changed events.
func (p *EventPublisher) PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error {
	payload := struct {
		UserID           string         `json:"user_id"`
		ChangedAt        time.Time      `json:"changed_at"`
		SessionsRevoked  int            `json:"sessions_revoked"`
		NotificationSent bool           `json:"notification_sent"`
		Metadata         map[string]any `json:"metadata,omitempty"`
	}{
		UserID:           event.UserID,
		ChangedAt:        event.ChangedAt.UTC(),
		SessionsRevoked:  event.SessionsRevoked,
		NotificationSent: event.NotificationSent,
		Metadata:         event.Metadata,
	}

	return p.publish(ctx, event.EventID, "sso.user.password.changed", event.UserID, event.ChangedAt, payload)
}

// PublishSessionsInvalidated publishes sso.sessions.invalidated events.
func (p *EventPublisher) PublishSessionsInvalidated(ctx context.Context, event domain.SessionsInvalidatedEvent) error {
	payload := struct {
		UserID          string         `json:"user_id"`
		KeptSessionID   string         `json:"kept_session_id,omitempty"`
		InvalidatedAt   time.Time      `json:"invalidated_at"`
		RecordsAffected int            `json:"records_affected"`
		Reason          string         `json:"reason,omitempty"`
		Metadata        map[string]any `json:"metadata,omitempty"`
	}{
		UserID:          event.UserID,
		KeptSessionID:   event.KeptSessionID,
		InvalidatedAt:   event.InvalidatedAt.UTC(),
		RecordsAffected: event.RecordsAffected,
		Reason:          event.Reason,
		Metadata:        event.Metadata,
	}

	return p.publish(ctx, event.EventID, "sso.sessions.invalidated", event.UserID, event.InvalidatedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
