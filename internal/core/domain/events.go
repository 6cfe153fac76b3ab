package domain

import "time"

// UserLoggedInEvent represents the payload for sso.user.logged_in messages.
type UserLoggedInEvent struct {
	EventID   string
	UserID    string
	Email     string
	SessionID string
	LoggedAt  time.Time
	IPAddress *string
	UserAgent *string
	Refreshed bool
	Metadata  map[string]any
}

// PasswordChangedEvent represents the payload for sso.user.password.changed messages.
type PasswordChangedEvent struct {
	EventID          string
	UserID           string
	ChangedAt        time.Time
	SessionsRevoked  int
	NotificationSent bool
	Metadata         map[string]any
}

// SessionsInvalidatedEvent represents the payload for sso.sessions.invalidated
// messages, emitted when every session other than the current one is revoked.
type SessionsInvalidatedEvent struct {
	EventID         string
	UserID          string
	KeptSessionID   string
	InvalidatedAt   time.Time
	RecordsAffected int
	Reason          string
	Metadata        map[string]any
}
