package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/NathiDhliso/ReelApps-sub001/internal/core/domain"
	"github.com/NathiDhliso/ReelApps-sub001/internal/core/port"
	"github.com/NathiDhliso/ReelApps-sub001/internal/infra/config"
)

// ErrNoSession is returned by session-scoped calls when no session is held.
var ErrNoSession = errors.New("identity: no session")

// Error is a non-2xx response from the Identity Provider.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("identity provider: status %d: %s", e.Status, e.Message)
}

// Client talks to a GoTrue-compatible Identity Provider over REST and holds
// the session it last established. It implements both port.IdentityProvider
// and port.ProfileReader.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger

	mu      sync.RWMutex
	session *port.ProviderSession
}

// NewClient constructs a Client from settings.
func NewClient(cfg config.IdentitySettings, log *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     log,
	}
}

type userPayload struct {
	ID       string         `json:"id"`
	Email    string         `json:"email"`
	Metadata map[string]any `json:"user_metadata"`
}

type sessionPayload struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    int64       `json:"expires_in"`
	ExpiresAt    int64       `json:"expires_at"`
	User         userPayload `json:"user"`
}

type errorPayload struct {
	Message          string `json:"msg"`
	ErrorDescription string `json:"error_description"`
	Error            string `json:"error"`
}

// SignInWithPassword exchanges credentials for a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*port.ProviderSession, error) {
	var out sessionPayload
	err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", map[string]string{
		"email":    email,
		"password": password,
	}, &out, "")
	if err != nil {
		return nil, err
	}

	session := c.toSession(out)
	c.setSession(session)
	return session, nil
}

// SignUp registers a new user. Depending on provider settings the response may
// or may not include a session.
func (c *Client) SignUp(ctx context.Context, email, password string) (*port.ProviderSession, error) {
	var out sessionPayload
	err := c.do(ctx, http.MethodPost, "/auth/v1/signup", map[string]string{
		"email":    email,
		"password": password,
	}, &out, "")
	if err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		// Email confirmation pending; there is a user but no session yet.
		return nil, nil
	}

	session := c.toSession(out)
	c.setSession(session)
	return session, nil
}

// SignOut revokes sessions per scope. The locally held session is dropped
// unless only other sessions are targeted.
func (c *Client) SignOut(ctx context.Context, scope port.SignOutScope) error {
	token := c.accessToken()
	if token == "" {
		return ErrNoSession
	}

	path := "/auth/v1/logout?scope=" + url.QueryEscape(string(scope))
	if err := c.do(ctx, http.MethodPost, path, nil, nil, token); err != nil {
		return err
	}

	if scope != port.SignOutOthers {
		c.setSession(nil)
	}
	return nil
}

// GetSession returns the held session, refreshing it first when expired.
// Returns (nil, nil) when no session is held.
func (c *Client) GetSession(ctx context.Context) (*port.ProviderSession, error) {
	c.mu.RLock()
	session := c.session
	c.mu.RUnlock()

	if session == nil {
		return nil, nil
	}
	if !session.ExpiresAt.IsZero() && !session.ExpiresAt.After(time.Now()) {
		return c.RefreshSession(ctx)
	}

	copied := *session
	return &copied, nil
}

// RefreshSession exchanges the held refresh token for a new token pair.
func (c *Client) RefreshSession(ctx context.Context) (*port.ProviderSession, error) {
	c.mu.RLock()
	session := c.session
	c.mu.RUnlock()

	if session == nil || session.RefreshToken == "" {
		return nil, ErrNoSession
	}

	refreshed, err := c.refreshWith(ctx, session.RefreshToken)
	if err != nil {
		return nil, err
	}

	c.setSession(refreshed)
	return refreshed, nil
}

// SetSession installs an externally transported token pair. An expired access
// token is exchanged via the refresh token; a live one is validated against
// the provider before being accepted.
func (c *Client) SetSession(ctx context.Context, accessToken, refreshToken string) (*port.ProviderSession, error) {
	if accessToken == "" || refreshToken == "" {
		return nil, &Error{Status: http.StatusBadRequest, Message: "access and refresh tokens are required"}
	}

	if expired(accessToken) {
		session, err := c.refreshWith(ctx, refreshToken)
		if err != nil {
			return nil, err
		}
		c.setSession(session)
		return session, nil
	}

	user, err := c.fetchUser(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	session := &port.ProviderSession{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    tokenExpiry(accessToken),
		User:         *user,
	}
	c.setSession(session)
	return session, nil
}

// GetUser fetches the user behind the held session.
func (c *Client) GetUser(ctx context.Context) (*port.ProviderUser, error) {
	token := c.accessToken()
	if token == "" {
		return nil, ErrNoSession
	}
	return c.fetchUser(ctx, token)
}

// ResetPasswordForEmail asks the provider to send a reset email.
func (c *Client) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	path := "/auth/v1/recover"
	if redirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(redirectTo)
	}
	return c.do(ctx, http.MethodPost, path, map[string]string{"email": email}, nil, "")
}

// UpdateUser changes the authenticated user's password.
func (c *Client) UpdateUser(ctx context.Context, newPassword string) (*port.ProviderUser, error) {
	token := c.accessToken()
	if token == "" {
		return nil, ErrNoSession
	}

	var out userPayload
	err := c.do(ctx, http.MethodPut, "/auth/v1/user", map[string]string{
		"password": newPassword,
	}, &out, token)
	if err != nil {
		return nil, err
	}

	return &port.ProviderUser{ID: out.ID, Email: out.Email, Metadata: out.Metadata}, nil
}

// GetProfile reads the profiles row for a user through the provider's REST
// data API.
func (c *Client) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	token := c.accessToken()
	path := "/rest/v1/profiles?select=*&user_id=eq." + url.QueryEscape(userID)

	var rows []map[string]any
	if err := c.do(ctx, http.MethodGet, path, nil, &rows, token); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &Error{Status: http.StatusNotFound, Message: "profile not found"}
	}

	row := rows[0]
	profile := &domain.Profile{UserID: userID, Snapshot: row}
	if role, ok := row["role"].(string); ok {
		profile.Role = domain.Role(role)
	}
	return profile, nil
}

func (c *Client) refreshWith(ctx context.Context, refreshToken string) (*port.ProviderSession, error) {
	var out sessionPayload
	err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=refresh_token", map[string]string{
		"refresh_token": refreshToken,
	}, &out, "")
	if err != nil {
		return nil, err
	}
	return c.toSession(out), nil
}

func (c *Client) fetchUser(ctx context.Context, accessToken string) (*port.ProviderUser, error) {
	var out userPayload
	if err := c.do(ctx, http.MethodGet, "/auth/v1/user", nil, &out, accessToken); err != nil {
		return nil, err
	}
	return &port.ProviderUser{ID: out.ID, Email: out.Email, Metadata: out.Metadata}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, bearer string) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{Status: resp.StatusCode, Message: errorMessage(payload, resp.StatusCode)}
	}

	if out != nil && len(payload) > 0 {
		if err := json.Unmarshal(payload, out); err != nil {
			return fmt.Errorf("identity: decode response: %w", err)
		}
	}
	return nil
}

func errorMessage(payload []byte, status int) string {
	var parsed errorPayload
	if err := json.Unmarshal(payload, &parsed); err == nil {
		switch {
		case parsed.Message != "":
			return parsed.Message
		case parsed.ErrorDescription != "":
			return parsed.ErrorDescription
		case parsed.Error != "":
			return parsed.Error
		}
	}
	return http.StatusText(status)
}

func (c *Client) toSession(payload sessionPayload) *port.ProviderSession {
	expiresAt := time.Unix(payload.ExpiresAt, 0)
	if payload.ExpiresAt == 0 && payload.ExpiresIn > 0 {
		expiresAt = time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	}

	return &port.ProviderSession{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		ExpiresAt:    expiresAt,
		User: port.ProviderUser{
			ID:       payload.User.ID,
			Email:    payload.User.Email,
			Metadata: payload.User.Metadata,
		},
	}
}

func (c *Client) setSession(session *port.ProviderSession) {
	c.mu.Lock()
	c.session = session
	c.mu.Unlock()
}

func (c *Client) accessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return ""
	}
	return c.session.AccessToken
}

// tokenExpiry peeks at the exp claim without verifying the signature. The
// provider remains the authority; this only decides refresh-before-use.
func tokenExpiry(accessToken string) time.Time {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

func expired(accessToken string) bool {
	exp := tokenExpiry(accessToken)
	return !exp.IsZero() && !exp.After(time.Now())
}

var _ port.IdentityProvider = (*Client)(nil)
var _ port.ProfileReader = (*Client)(nil)
