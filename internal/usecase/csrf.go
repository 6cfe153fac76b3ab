package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/NathiDhliso/ReelApps-sub001/internal/core/port"
	"github.com/NathiDhliso/ReelApps-sub001/internal/infra/config"
	"github.com/NathiDhliso/ReelApps-sub001/internal/infra/security"
	"github.com/NathiDhliso/ReelApps-sub001/internal/repository"
)

const (
	defaultCSRFTokenLength  = 32
	defaultCSRFMaxAge       = 8 * time.Hour
	defaultCSRFRotationLead = 5 * time.Minute
)

// CSRFGuard implements the double-submit cookie defense: it generates, stores,
// rotates, and validates anti-forgery tokens, and can wrap an Identity Provider
// client so every state-changing call asserts a token first.
//
// Wrapping only protects client-side orchestration. True CSRF protection still
// requires the server to reject requests lacking a valid header; the HTTP
// middleware in transport/http provides that half.
type CSRFGuard struct {
	cfg     config.CSRFSettings
	storage port.KeyValueStore
	logger  *zap.Logger
	now     func() time.Time

	mu   sync.Mutex
	stop chan struct{}
}

// NewCSRFGuard constructs a guard backed by the injected storage capability.
func NewCSRFGuard(cfg config.CSRFSettings, storage port.KeyValueStore, logger *zap.Logger) *CSRFGuard {
	if cfg.CookieName == "" {
		cfg.CookieName = "XSRF-TOKEN"
	}
	if cfg.HeaderName == "" {
		cfg.HeaderName = "X-CSRF-TOKEN"
	}
	if cfg.TokenLength <= 0 {
		cfg.TokenLength = defaultCSRFTokenLength
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = defaultCSRFMaxAge
	}
	if cfg.RotationLead <= 0 || cfg.RotationLead >= cfg.MaxAge {
		cfg.RotationLead = defaultCSRFRotationLead
		if cfg.RotationLead >= cfg.MaxAge {
			cfg.RotationLead = cfg.MaxAge / 2
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CSRFGuard{
		cfg:     cfg,
		storage: storage,
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock overrides the clock used by the guard (primarily for tests).
func (g *CSRFGuard) WithClock(now func() time.Time) *CSRFGuard {
	if now != nil {
		g.now = now
	}
	return g
}

// Initialize generates a fresh token, stores it under the configured cookie
// name, and (re)starts the rotation schedule. Calling it again overwrites the
// token and resets the schedule.
func (g *CSRFGuard) Initialize(ctx context.Context) (string, error) {
	token, err := security.GenerateHexToken(g.cfg.TokenLength)
	if err != nil {
		return "", err
	}

	if err := g.storage.Set(ctx, g.cfg.CookieName, token, g.cfg.MaxAge); err != nil {
		return "", err
	}

	g.restartRotation()

	g.logger.Debug("csrf token issued",
		zap.String("cookie", g.cfg.CookieName),
		zap.String("token_hash", security.HashToken(token)),
	)

	return token, nil
}

// Token reads the current token without side effects. Returns "" when absent.
func (g *CSRFGuard) Token(ctx context.Context) (string, error) {
	token, err := g.storage.Get(ctx, g.cfg.CookieName)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return token, nil
}

// Validate compares the cookie and request tokens. It fails closed: a missing
// token or a length mismatch is false, never an error. The comparison
// accumulates XOR over every byte so its duration does not depend on where a
// mismatch occurs.
func (g *CSRFGuard) Validate(cookieToken, requestToken string) bool {
	if cookieToken == "" || requestToken == "" {
		g.logger.Warn("csrf validation failed: missing token")
		return false
	}

	if len(cookieToken) != len(requestToken) {
		g.logger.Warn("csrf validation failed: token length mismatch")
		return false
	}

	var mismatch byte
	for i := 0; i < len(cookieToken); i++ {
		mismatch |= cookieToken[i] ^ requestToken[i]
	}

	if mismatch != 0 {
		g.logger.Warn("csrf validation failed: token mismatch")
		return false
	}

	return true
}

// Wrap returns a new Identity Provider client whose state-changing methods
// assert a token exists (regenerating one when absent) before delegating. The
// original client is never mutated.
func (g *CSRFGuard) Wrap(provider port.IdentityProvider) port.IdentityProvider {
	return &csrfProtectedProvider{guard: g, next: provider}
}

// Teardown stops the rotation schedule and clears the stored token.
func (g *CSRFGuard) Teardown(ctx context.Context) error {
	g.mu.Lock()
	if g.stop != nil {
		close(g.stop)
		g.stop = nil
	}
	g.mu.Unlock()

	if err := g.storage.Remove(ctx, g.cfg.CookieName); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return nil
}

// CookieName exposes the configured cookie name for transport adapters.
func (g *CSRFGuard) CookieName() string { return g.cfg.CookieName }

// HeaderName exposes the configured header name for transport adapters.
func (g *CSRFGuard) HeaderName() string { return g.cfg.HeaderName }

func (g *CSRFGuard) restartRotation() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.stop != nil {
		close(g.stop)
	}

	stop := make(chan struct{})
	g.stop = stop

	interval := g.cfg.MaxAge - g.cfg.RotationLead
	go g.rotateAfter(interval, stop)
}

func (g *CSRFGuard) rotateAfter(interval time.Duration, stop chan struct{}) {
	timer := time.NewTimer(interval)
	defer timer.Stop()

	select {
	case <-timer.C:
		if _, err := g.Initialize(context.Background()); err != nil {
			g.logger.Warn("csrf token rotation failed", zap.Error(err))
		}
	case <-stop:
	}
}

func (g *CSRFGuard) ensureToken(ctx context.Context, operation string) {
	token, err := g.Token(ctx)
	if err != nil {
		g.logger.Warn("csrf token lookup failed", zap.String("operation", operation), zap.Error(err))
		return
	}
	if token != "" {
		return
	}

	g.logger.Warn("no csrf token present, regenerating", zap.String("operation", operation))
	if _, err := g.Initialize(ctx); err != nil {
		g.logger.Warn("csrf token regeneration failed", zap.String("operation", operation), zap.Error(err))
	}
}

// csrfProtectedProvider decorates an Identity Provider client, asserting a
// token ahead of every state-changing call and passing reads straight through.
type csrfProtectedProvider struct {
	guard *CSRFGuard
	next  port.IdentityProvider
}

func (p *csrfProtectedProvider) SignInWithPassword(ctx context.Context, email, password string) (*port.ProviderSession, error) {
	p.guard.ensureToken(ctx, "sign_in_with_password")
	return p.next.SignInWithPassword(ctx, email, password)
}

func (p *csrfProtectedProvider) SignUp(ctx context.Context, email, password string) (*port.ProviderSession, error) {
	p.guard.ensureToken(ctx, "sign_up")
	return p.next.SignUp(ctx, email, password)
}

func (p *csrfProtectedProvider) SignOut(ctx context.Context, scope port.SignOutScope) error {
	p.guard.ensureToken(ctx, "sign_out")
	return p.next.SignOut(ctx, scope)
}

func (p *csrfProtectedProvider) GetSession(ctx context.Context) (*port.ProviderSession, error) {
	return p.next.GetSession(ctx)
}

func (p *csrfProtectedProvider) RefreshSession(ctx context.Context) (*port.ProviderSession, error) {
	return p.next.RefreshSession(ctx)
}

func (p *csrfProtectedProvider) SetSession(ctx context.Context, accessToken, refreshToken string) (*port.ProviderSession, error) {
	return p.next.SetSession(ctx, accessToken, refreshToken)
}

func (p *csrfProtectedProvider) GetUser(ctx context.Context) (*port.ProviderUser, error) {
	return p.next.GetUser(ctx)
}

func (p *csrfProtectedProvider) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	p.guard.ensureToken(ctx, "reset_password_for_email")
	return p.next.ResetPasswordForEmail(ctx, email, redirectTo)
}

func (p *csrfProtectedProvider) UpdateUser(ctx context.Context, newPassword string) (*port.ProviderUser, error) {
	p.guard.ensureToken(ctx, "update_user")
	return p.next.UpdateUser(ctx, newPassword)
}

var _ port.IdentityProvider = (*csrfProtectedProvider)(nil)
