package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NathiDhliso/ReelApps-sub001/internal/core/domain"
	"github.com/NathiDhliso/ReelApps-sub001/internal/core/port"
	"github.com/NathiDhliso/ReelApps-sub001/internal/infra/logger"
	"github.com/NathiDhliso/ReelApps-sub001/internal/infra/security"
	"github.com/NathiDhliso/ReelApps-sub001/internal/repository"
)

// ErrNoAuthenticatedUser is returned by operations that require an
// established provider session when none exists.
var ErrNoAuthenticatedUser = errors.New("no authenticated user")

// genericResetMessage is returned for every password reset request, found
// account or not, so responses cannot be used to enumerate addresses.
const genericResetMessage = "If an account with that email exists, a password reset link has been sent."

// ClientMeta carries request-scoped client attributes recorded alongside
// session activity.
type ClientMeta struct {
	IPAddress string
	UserAgent string
}

// SessionSecurityReport is the outcome of a session diagnostic check.
type SessionSecurityReport struct {
	IsValid         bool     `json:"isValid"`
	Reasons         []string `json:"reasons"`
	Recommendations []string `json:"recommendations"`
}

// finalize derives validity from the collected findings.
func (r SessionSecurityReport) finalize() SessionSecurityReport {
	r.IsValid = len(r.Reasons) == 0
	return r
}

// SecureAuthFlows hardens the provider's credential operations: session
// fixation defense on login, enumeration-safe password reset, and global
// session invalidation on password change.
type SecureAuthFlows struct {
	idp              port.IdentityProvider
	activity         port.ActivityRepository
	events           port.EventPublisher
	validator        *security.PasswordValidator
	logger           *zap.Logger
	now              func() time.Time
	activityTTL      time.Duration
	resetRedirectURL string

	mu               sync.Mutex
	currentSessionID string
}

// NewSecureAuthFlows constructs a SecureAuthFlows.
func NewSecureAuthFlows(
	idp port.IdentityProvider,
	activity port.ActivityRepository,
	events port.EventPublisher,
	validator *security.PasswordValidator,
	activityTTL time.Duration,
	resetRedirectURL string,
	log *zap.Logger,
) *SecureAuthFlows {
	if validator == nil {
		validator = security.DefaultPasswordValidator()
	}
	if activityTTL <= 0 {
		activityTTL = 7 * 24 * time.Hour
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &SecureAuthFlows{
		idp:              idp,
		activity:         activity,
		events:           events,
		validator:        validator,
		logger:           log,
		now:              time.Now,
		activityTTL:      activityTTL,
		resetRedirectURL: resetRedirectURL,
	}
}

// WithClock overrides the clock (primarily for tests).
func (f *SecureAuthFlows) WithClock(now func() time.Time) *SecureAuthFlows {
	if now != nil {
		f.now = now
	}
	return f
}

// SecureLogin authenticates credentials and immediately rotates the issued
// tokens to defeat session fixation. A failed rotation is logged but does not
// fail the login; the original session is kept.
func (f *SecureAuthFlows) SecureLogin(ctx context.Context, email, password string, meta ClientMeta) (*port.ProviderSession, error) {
	session, err := f.idp.SignInWithPassword(ctx, email, password)
	if err != nil {
		f.logger.Info("login rejected",
			zap.String("email", logger.MaskEmail(email)),
			zap.Error(err),
		)
		return nil, err
	}

	rotated := false
	refreshed, err := f.idp.RefreshSession(ctx)
	if err != nil {
		f.logger.Warn("post-login token rotation failed, keeping issued session",
			zap.String("user_id", session.User.ID),
			zap.Error(err),
		)
	} else if refreshed != nil {
		session = refreshed
		rotated = true
	}

	f.recordActivity(ctx, session.User.ID, meta)

	if f.events != nil {
		event := domain.UserLoggedInEvent{
			EventID:   uuid.NewString(),
			UserID:    session.User.ID,
			Email:     session.User.Email,
			SessionID: f.CurrentSessionID(),
			LoggedAt:  f.now(),
			Refreshed: rotated,
		}
		if meta.IPAddress != "" {
			ip := meta.IPAddress
			event.IPAddress = &ip
		}
		if meta.UserAgent != "" {
			ua := meta.UserAgent
			event.UserAgent = &ua
		}
		if err := f.events.PublishUserLoggedIn(ctx, event); err != nil {
			f.logger.Warn("publish login event failed", zap.Error(err))
		}
	}

	f.logger.Info("secure login completed",
		zap.String("user_id", session.User.ID),
		zap.String("email", logger.MaskEmail(email)),
		zap.String("ip", logger.MaskIP(meta.IPAddress)),
	)

	return session, nil
}

// SecurePasswordReset requests a reset email and always returns the same
// message regardless of whether the address is registered. Provider failures
// are logged, never surfaced.
func (f *SecureAuthFlows) SecurePasswordReset(ctx context.Context, email string) string {
	if err := f.idp.ResetPasswordForEmail(ctx, email, f.resetRedirectURL); err != nil {
		f.logger.Warn("password reset request failed",
			zap.String("email", logger.MaskEmail(email)),
			zap.Error(err),
		)
	} else {
		f.logger.Info("password reset requested",
			zap.String("email", logger.MaskEmail(email)),
		)
	}

	return genericResetMessage
}

// SecurePasswordUpdate changes the password of the authenticated user and
// invalidates every other session: activity records for other sessions are
// flagged, the provider signs out all sessions except the current one, and a
// fresh activity record is written for this session.
func (f *SecureAuthFlows) SecurePasswordUpdate(ctx context.Context, newPassword string, meta ClientMeta) error {
	user, err := f.idp.GetUser(ctx)
	if err != nil || user == nil {
		return ErrNoAuthenticatedUser
	}

	if err := f.validator.Validate(newPassword); err != nil {
		return err
	}

	if _, err := f.idp.UpdateUser(ctx, newPassword); err != nil {
		f.logger.Warn("password update failed",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
		return err
	}

	now := f.now()

	keptSessionID := f.CurrentSessionID()

	invalidated := 0
	if f.activity != nil {
		invalidated, err = f.activity.InvalidateAllForUser(ctx, user.ID, keptSessionID, now)
		if err != nil {
			f.logger.Warn("invalidate session records failed",
				zap.String("user_id", user.ID),
				zap.Error(err),
			)
		}
	}

	if err := f.idp.SignOut(ctx, port.SignOutOthers); err != nil {
		f.logger.Warn("sign out other sessions failed",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
	}

	f.recordActivity(ctx, user.ID, meta)

	if f.events != nil {
		if err := f.events.PublishPasswordChanged(ctx, domain.PasswordChangedEvent{
			EventID:         uuid.NewString(),
			UserID:          user.ID,
			ChangedAt:       now,
			SessionsRevoked: invalidated,
		}); err != nil {
			f.logger.Warn("publish password changed event failed", zap.Error(err))
		}
		if err := f.events.PublishSessionsInvalidated(ctx, domain.SessionsInvalidatedEvent{
			EventID:         uuid.NewString(),
			UserID:          user.ID,
			KeptSessionID:   keptSessionID,
			InvalidatedAt:   now,
			RecordsAffected: invalidated,
			Reason:          "password_changed",
		}); err != nil {
			f.logger.Warn("publish sessions invalidated event failed", zap.Error(err))
		}
	}

	f.logger.Info("password updated, other sessions invalidated",
		zap.String("user_id", user.ID),
		zap.Int("invalidated", invalidated),
	)

	return nil
}

// ValidateSessionSecurity inspects the current session and its activity
// record and reports anomalies with recommendations. It never errors. The
// report is valid only when no finding was recorded; any reason, including a
// missing activity record or a changed user agent, marks it invalid.
func (f *SecureAuthFlows) ValidateSessionSecurity(ctx context.Context, currentUserAgent string) SessionSecurityReport {
	report := SessionSecurityReport{
		Reasons:         []string{},
		Recommendations: []string{},
	}

	session, err := f.idp.GetSession(ctx)
	if err != nil || session == nil {
		report.Reasons = append(report.Reasons, "no active session")
		report.Recommendations = append(report.Recommendations, "sign in again")
		return report.finalize()
	}

	now := f.now()
	if !session.ExpiresAt.IsZero() && !session.ExpiresAt.After(now) {
		report.Reasons = append(report.Reasons, "session has expired")
		report.Recommendations = append(report.Recommendations, "sign in again")
	}

	if f.activity == nil {
		return report.finalize()
	}

	record, err := f.activity.GetByUser(ctx, session.User.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			report.Reasons = append(report.Reasons, "no session activity record")
			report.Recommendations = append(report.Recommendations, "sign out and sign in again to register this session")
		} else {
			f.logger.Warn("session activity lookup failed",
				zap.String("user_id", session.User.ID),
				zap.Error(err),
			)
		}
		return report.finalize()
	}

	if !record.IsActive {
		report.Reasons = append(report.Reasons, "session was invalidated")
		report.Recommendations = append(report.Recommendations, "sign in again")
	}

	if !record.ExpiresAt.IsZero() && !record.ExpiresAt.After(now) {
		report.Reasons = append(report.Reasons, "session activity record has expired")
		report.Recommendations = append(report.Recommendations, "sign in again")
	}

	if record.UserAgent != nil && currentUserAgent != "" && !strings.EqualFold(*record.UserAgent, currentUserAgent) {
		report.Reasons = append(report.Reasons, "user agent changed since login")
		report.Recommendations = append(report.Recommendations, "verify this is your device; consider signing out everywhere")
	}

	return report.finalize()
}

// CurrentSessionID returns the identifier assigned to this context's
// activity record, if one has been written.
func (f *SecureAuthFlows) CurrentSessionID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.currentSessionID
}

// recordActivity upserts the per-user activity row. One row per user; a new
// login overwrites the previous session's record rather than appending.
// Failures are logged only, activity tracking must not break auth.
func (f *SecureAuthFlows) recordActivity(ctx context.Context, userID string, meta ClientMeta) {
	if f.activity == nil {
		return
	}

	now := f.now()
	sessionID := uuid.NewString()

	record := domain.SessionActivityRecord{
		UserID:       userID,
		LastActivity: now,
		ExpiresAt:    now.Add(f.activityTTL),
		IsActive:     true,
		SessionID:    sessionID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if meta.IPAddress != "" {
		ip := meta.IPAddress
		record.IPAddress = &ip
	}
	if meta.UserAgent != "" {
		ua := meta.UserAgent
		record.UserAgent = &ua
	}

	if err := f.activity.Upsert(ctx, record); err != nil {
		f.logger.Warn("session activity upsert failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return
	}

	f.mu.Lock()
	f.currentSessionID = sessionID
	f.mu.Unlock()
}
