package domain

import "time"

// SSOUser is the identity payload carried inside a session descriptor. The
// provider access and refresh tokens travel with it so a subdomain can restore
// the underlying Identity Provider session without sharing a cookie jar.
type SSOUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	Role         Role           `json:"role"`
	Profile      map[string]any `json:"profile,omitempty"`
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
}

// SessionDescriptor is the portable description of an authenticated session.
// Descriptors are immutable once minted: a refresh produces a new descriptor
// via Refreshed, never an in-place mutation.
type SessionDescriptor struct {
	User      SSOUser   `json:"user"`
	ExpiresAt time.Time `json:"expiresAt"`
	Domain    string    `json:"domain"`
	Subdomain string    `json:"subdomain,omitempty"`
}

// IsUsable reports whether the descriptor may still establish a session at the
// supplied moment. Expiry is strict: a descriptor expiring exactly now is unusable.
func (d SessionDescriptor) IsUsable(at time.Time) bool {
	return d.ExpiresAt.After(at)
}

// Refreshed mints a new descriptor carrying rotated provider tokens and a new
// expiry. The receiver is left untouched.
func (d SessionDescriptor) Refreshed(accessToken, refreshToken string, expiresAt time.Time) SessionDescriptor {
	next := d
	next.User.AccessToken = accessToken
	next.User.RefreshToken = refreshToken
	next.ExpiresAt = expiresAt
	return next
}

// SessionActivityRecord is the authoritative, revocable record of session
// validity persisted per user. There is at most one row per user (upsert
// semantics); records are never deleted, only invalidated.
type SessionActivityRecord struct {
	UserID        string
	LastActivity  time.Time
	ExpiresAt     time.Time
	IsActive      bool
	IPAddress     *string
	UserAgent     *string
	SessionID     string
	InvalidatedAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsCurrent reports whether the record still vouches for a live session.
func (r SessionActivityRecord) IsCurrent(at time.Time) bool {
	if !r.IsActive {
		return false
	}
	return r.ExpiresAt.After(at)
}

// Invalidate marks the record inactive and timestamps the invalidation,
// preserving the audit trail. Returns true when the record changed state.
func (r *SessionActivityRecord) Invalidate(at time.Time) bool {
	if !r.IsActive {
		return false
	}
	r.IsActive = false
	r.InvalidatedAt = &at
	r.UpdatedAt = at
	return true
}
