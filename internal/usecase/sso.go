package usecase

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/NathiDhliso/ReelApps-sub001/internal/core/domain"
	"github.com/NathiDhliso/ReelApps-sub001/internal/core/port"
	"github.com/NathiDhliso/ReelApps-sub001/internal/infra/config"
	"github.com/NathiDhliso/ReelApps-sub001/internal/infra/logger"
	"github.com/NathiDhliso/ReelApps-sub001/internal/infra/security"
	"github.com/NathiDhliso/ReelApps-sub001/internal/repository"
)

// SSOState tracks where a browsing context sits in the bootstrap lifecycle.
type SSOState int

const (
	StateUnauthenticated SSOState = iota
	StateAuthenticating
	StateAuthenticated
	StatePendingRedirect
)

// String implements fmt.Stringer for log output.
func (s SSOState) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StatePendingRedirect:
		return "pending_redirect"
	default:
		return "unauthenticated"
	}
}

// SSOManager orchestrates cross-domain session bootstrap: domain detection,
// token transport via URL parameter or storage, redirect-based bootstrap on
// subdomains, and role-based application authorization.
//
// Every failure path resolves to "no session" rather than an error crossing a
// domain boundary; callers observe nil and the redirect side effect.
type SSOManager struct {
	cfg       config.SSOSettings
	idp       port.IdentityProvider
	profiles  port.ProfileReader
	codec     SessionTokenCodec
	storage   port.KeyValueStore
	navigator port.Navigator
	policy    domain.AccessPolicy
	logger    *zap.Logger
	now       func() time.Time

	mu           sync.Mutex
	state        SSOState
	initializing bool
	redirected   bool
}

// NewSSOManager constructs an SSOManager.
func NewSSOManager(
	cfg config.SSOSettings,
	idp port.IdentityProvider,
	profiles port.ProfileReader,
	storage port.KeyValueStore,
	navigator port.Navigator,
	log *zap.Logger,
) *SSOManager {
	if cfg.TokenParam == "" {
		cfg.TokenParam = "sso_token"
	}
	if cfg.SessionCookieName == "" {
		cfg.SessionCookieName = "reelapps-session"
	}
	if cfg.EntryPath == "" {
		cfg.EntryPath = "/auth/sso"
	}
	if cfg.ReturnURLParam == "" {
		cfg.ReturnURLParam = "return_url"
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &SSOManager{
		cfg:       cfg,
		idp:       idp,
		profiles:  profiles,
		storage:   storage,
		navigator: navigator,
		policy:    domain.DefaultAccessPolicy(),
		logger:    log,
		now:       time.Now,
	}
}

// WithAccessPolicy overrides the static role/app table.
func (m *SSOManager) WithAccessPolicy(policy domain.AccessPolicy) *SSOManager {
	m.policy = policy
	return m
}

// WithClock overrides the clock (primarily for tests).
func (m *SSOManager) WithClock(now func() time.Time) *SSOManager {
	if now != nil {
		m.now = now
	}
	return m
}

// State reports the current lifecycle state of this browsing context.
func (m *SSOManager) State() SSOState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// InitializeSSO establishes a session for the browsing context at the given
// URL. On the main domain it wraps the provider's active session, if any. On a
// subdomain it consumes a token from the URL (stripping it in place) or from
// storage, and when neither is usable triggers a redirect to the main domain's
// SSO entry point. The redirect is the side effect; the return is nil.
//
// Only one initialization runs at a time per manager; overlapping calls return
// nil immediately.
func (m *SSOManager) InitializeSSO(ctx context.Context, current *url.URL) *domain.SessionDescriptor {
	if current == nil {
		return nil
	}

	m.mu.Lock()
	if m.initializing {
		m.mu.Unlock()
		m.logger.Debug("sso initialization already in flight, skipping")
		return nil
	}
	if m.redirected {
		m.mu.Unlock()
		m.logger.Debug("sso already redirected in this browsing context, skipping")
		return nil
	}
	m.initializing = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.initializing = false
		m.mu.Unlock()
	}()

	hostname := current.Hostname()
	if m.isSubdomain(hostname) {
		return m.initializeOnSubdomain(ctx, current)
	}

	session, err := m.idp.GetSession(ctx)
	if err != nil {
		m.logger.Warn("provider session lookup failed", zap.Error(err))
		m.setState(StateUnauthenticated)
		return nil
	}
	if session == nil {
		m.logger.Debug("no active session on main domain")
		m.setState(StateUnauthenticated)
		return nil
	}

	descriptor := m.mintDescriptor(ctx, session, hostname)
	m.setState(StateAuthenticated)
	return descriptor
}

func (m *SSOManager) initializeOnSubdomain(ctx context.Context, current *url.URL) *domain.SessionDescriptor {
	token := m.tokenFromURL(current)
	if token == "" {
		token = m.tokenFromStorage(ctx)
	}

	if token != "" {
		m.setState(StateAuthenticating)
		descriptor := m.ValidateSSOToken(ctx, token)
		if descriptor != nil {
			m.setState(StateAuthenticated)
			return descriptor
		}
		m.setState(StateUnauthenticated)
	}

	m.redirectToEntry(current)
	return nil
}

// ValidateSSOToken decodes and verifies a transported token, restoring the
// underlying provider session on success. Fails closed: a malformed token, a
// past expiry, or a provider rejection all yield nil.
func (m *SSOManager) ValidateSSOToken(ctx context.Context, token string) *domain.SessionDescriptor {
	descriptor, err := m.codec.Decode(token)
	if err != nil {
		m.logger.Warn("sso token rejected",
			zap.String("token_hash", security.HashToken(token)),
			zap.Error(err),
		)
		return nil
	}

	if !descriptor.IsUsable(m.now()) {
		m.logger.Info("sso token expired",
			zap.String("user_id", descriptor.User.ID),
			zap.Time("expires_at", descriptor.ExpiresAt),
		)
		return nil
	}

	established, err := m.idp.SetSession(ctx, descriptor.User.AccessToken, descriptor.User.RefreshToken)
	if err != nil {
		m.logger.Warn("provider session restore failed",
			zap.String("user_id", descriptor.User.ID),
			zap.Error(err),
		)
		return nil
	}

	// The provider rotates the pair when the transported access token has
	// lapsed; the descriptor handed on must carry the live tokens.
	if established != nil && established.AccessToken != "" && established.AccessToken != descriptor.User.AccessToken {
		refreshed := descriptor.Refreshed(established.AccessToken, established.RefreshToken, descriptor.ExpiresAt)
		descriptor = &refreshed
	}

	m.logger.Info("sso session restored",
		zap.String("user_id", descriptor.User.ID),
		zap.String("subdomain", descriptor.Subdomain),
	)
	return descriptor
}

// GenerateSSOToken encodes the descriptor for transport.
func (m *SSOManager) GenerateSSOToken(descriptor domain.SessionDescriptor) (string, error) {
	return m.codec.Encode(descriptor)
}

// AppURL returns the target application URL with the transport parameter
// appended, without navigating.
func (m *SSOManager) AppURL(appURL string, descriptor domain.SessionDescriptor) (string, error) {
	token, err := m.codec.Encode(descriptor)
	if err != nil {
		return "", err
	}

	separator := "?"
	if strings.Contains(appURL, "?") {
		separator = "&"
	}
	return appURL + separator + m.cfg.TokenParam + "=" + url.QueryEscape(token), nil
}

// NavigateToApp performs a full navigation to the target application carrying
// the session token. The transition is one-way: once the navigator commits it
// cannot be cancelled by the caller.
func (m *SSOManager) NavigateToApp(appURL string, descriptor domain.SessionDescriptor) error {
	target, err := m.AppURL(appURL, descriptor)
	if err != nil {
		return err
	}

	m.logger.Info("navigating to app with sso token", zap.String("app_url", appURL))
	return m.navigator.Navigate(target)
}

// HasAppAccess reports whether the role may reach the given application.
func (m *SSOManager) HasAppAccess(role domain.Role, appID string) bool {
	return m.policy.HasAccess(role, appID)
}

// AllowedApps lists the applications the role may reach.
func (m *SSOManager) AllowedApps(role domain.Role) []string {
	return m.policy.AllowedApps(role)
}

// ExtractSubdomain returns the leftmost label of a hostname that is a proper
// subdomain of the main domain, else the empty string.
func (m *SSOManager) ExtractSubdomain(hostname string) string {
	if hostname == m.cfg.MainDomain {
		return ""
	}

	parts := strings.Split(hostname, ".")
	if len(parts) > 2 && strings.HasSuffix(hostname, "."+m.cfg.MainDomain) {
		return parts[0]
	}

	return ""
}

// ClearSession removes the transported token from storage and resets the
// lifecycle state. The provider session itself is torn down by the caller.
func (m *SSOManager) ClearSession(ctx context.Context) {
	if err := m.storage.Remove(ctx, m.cfg.TokenParam); err != nil && !errors.Is(err, repository.ErrNotFound) {
		m.logger.Warn("remove stored sso token failed", zap.Error(err))
	}
	if err := m.storage.Remove(ctx, m.cfg.SessionCookieName); err != nil && !errors.Is(err, repository.ErrNotFound) {
		m.logger.Warn("remove session cookie failed", zap.Error(err))
	}
	m.setState(StateUnauthenticated)
}

// ResetState clears the single-flight and redirect guards, allowing a fresh
// bootstrap attempt in this browsing context.
func (m *SSOManager) ResetState() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initializing = false
	m.redirected = false
	m.state = StateUnauthenticated
}

// MintDescriptor wraps an established provider session into a descriptor for
// the given hostname, fetching the profile for role resolution and persisting
// the transport token. Used on the main domain after login and at the entry point.
func (m *SSOManager) MintDescriptor(ctx context.Context, session *port.ProviderSession, hostname string) *domain.SessionDescriptor {
	return m.mintDescriptor(ctx, session, hostname)
}

func (m *SSOManager) mintDescriptor(ctx context.Context, session *port.ProviderSession, hostname string) *domain.SessionDescriptor {
	role := domain.RoleCandidate
	var snapshot map[string]any

	if m.profiles != nil {
		profile, err := m.profiles.GetProfile(ctx, session.User.ID)
		if err != nil {
			m.logger.Warn("could not fetch user profile",
				zap.String("user_id", session.User.ID),
				zap.Error(err),
			)
		} else if profile != nil {
			if profile.Role != "" {
				role = profile.Role
			}
			snapshot = profile.Snapshot
		}
	}

	descriptor := domain.SessionDescriptor{
		User: domain.SSOUser{
			ID:           session.User.ID,
			Email:        session.User.Email,
			Role:         role,
			Profile:      snapshot,
			AccessToken:  session.AccessToken,
			RefreshToken: session.RefreshToken,
		},
		ExpiresAt: session.ExpiresAt,
		Domain:    hostname,
		Subdomain: m.ExtractSubdomain(hostname),
	}

	m.storeToken(ctx, descriptor)

	m.logger.Info("sso session minted",
		zap.String("user_id", descriptor.User.ID),
		zap.String("email", logger.MaskEmail(descriptor.User.Email)),
		zap.String("role", string(descriptor.User.Role)),
		zap.String("domain", descriptor.Domain),
		zap.String("subdomain", descriptor.Subdomain),
	)

	return &descriptor
}

func (m *SSOManager) storeToken(ctx context.Context, descriptor domain.SessionDescriptor) {
	token, err := m.codec.Encode(descriptor)
	if err != nil {
		m.logger.Warn("encode sso token failed", zap.Error(err))
		return
	}

	if err := m.storage.Set(ctx, m.cfg.TokenParam, token, m.cfg.TokenTTL); err != nil {
		m.logger.Warn("persist sso token failed", zap.Error(err))
	}
	// Mirror into the shared-domain session cookie so sibling subdomains can
	// bootstrap without a round trip through the entry point.
	if err := m.storage.Set(ctx, m.cfg.SessionCookieName, token, m.cfg.TokenTTL); err != nil {
		m.logger.Warn("persist session cookie failed", zap.Error(err))
	}
}

// tokenFromURL reads the transport parameter and strips it from the URL in
// place so it cannot leak through referrers or bookmarks.
func (m *SSOManager) tokenFromURL(current *url.URL) string {
	query := current.Query()
	token := query.Get(m.cfg.TokenParam)
	if token == "" {
		return ""
	}

	query.Del(m.cfg.TokenParam)
	current.RawQuery = query.Encode()
	return token
}

func (m *SSOManager) tokenFromStorage(ctx context.Context) string {
	token, err := m.storage.Get(ctx, m.cfg.TokenParam)
	if err == nil && token != "" {
		return token
	}
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		m.logger.Warn("read stored sso token failed", zap.Error(err))
	}

	token, err = m.storage.Get(ctx, m.cfg.SessionCookieName)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			m.logger.Warn("read session cookie failed", zap.Error(err))
		}
		return ""
	}
	return token
}

func (m *SSOManager) redirectToEntry(current *url.URL) {
	if strings.Contains(current.Path, m.cfg.EntryPath) {
		m.logger.Debug("already on sso entry path, not redirecting")
		return
	}

	// A return_url that itself nests a return_url means we are already inside
	// a bounce; stop rather than loop.
	if nested := current.Query().Get(m.cfg.ReturnURLParam); nested != "" {
		decoded, err := url.QueryUnescape(nested)
		if err != nil || strings.Contains(decoded, m.cfg.ReturnURLParam+"=") {
			m.logger.Warn("potential redirect loop detected, stopping redirect")
			return
		}
	}

	entry := url.URL{
		Scheme:   "https",
		Host:     m.cfg.EntryHostPrefix + m.cfg.MainDomain,
		Path:     m.cfg.EntryPath,
		RawQuery: m.cfg.ReturnURLParam + "=" + url.QueryEscape(current.String()),
	}

	m.mu.Lock()
	m.redirected = true
	m.state = StatePendingRedirect
	m.mu.Unlock()

	m.logger.Info("redirecting to sso entry point", zap.String("entry", entry.String()))
	if err := m.navigator.Navigate(entry.String()); err != nil {
		m.logger.Error("sso redirect failed", zap.Error(err))
	}
}

func (m *SSOManager) isSubdomain(hostname string) bool {
	return hostname != m.cfg.MainDomain && strings.HasSuffix(hostname, "."+m.cfg.MainDomain)
}

func (m *SSOManager) setState(state SSOState) {
	m.mu.Lock()
	m.state = state
	m.mu.Unlock()
}
