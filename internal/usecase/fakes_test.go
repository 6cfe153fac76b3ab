package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/NathiDhliso/ReelApps-sub001/internal/core/domain"
	"github.com/NathiDhliso/ReelApps-sub001/internal/core/port"
	"github.com/NathiDhliso/ReelApps-sub001/internal/repository"
)

type fakeProvider struct {
	mu    sync.Mutex
	calls []string

	signInSession *port.ProviderSession
	signInErr     error

	refreshSession *port.ProviderSession
	refreshErr     error

	session    *port.ProviderSession
	sessionErr error

	setSessionResult *port.ProviderSession
	setSessionErr    error
	lastSetAccess    string
	lastSetRefresh   string

	user    *port.ProviderUser
	userErr error

	updateErr error
	resetErr  error

	signOutErr error
	lastScope  port.SignOutScope
}

func (f *fakeProvider) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeProvider) callOrder() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeProvider) SignInWithPassword(_ context.Context, _, _ string) (*port.ProviderSession, error) {
	f.record("sign_in")
	return f.signInSession, f.signInErr
}

func (f *fakeProvider) SignUp(_ context.Context, _, _ string) (*port.ProviderSession, error) {
	f.record("sign_up")
	return f.signInSession, f.signInErr
}

func (f *fakeProvider) SignOut(_ context.Context, scope port.SignOutScope) error {
	f.record("sign_out")
	f.lastScope = scope
	return f.signOutErr
}

func (f *fakeProvider) GetSession(_ context.Context) (*port.ProviderSession, error) {
	f.record("get_session")
	return f.session, f.sessionErr
}

func (f *fakeProvider) RefreshSession(_ context.Context) (*port.ProviderSession, error) {
	f.record("refresh_session")
	return f.refreshSession, f.refreshErr
}

func (f *fakeProvider) SetSession(_ context.Context, accessToken, refreshToken string) (*port.ProviderSession, error) {
	f.record("set_session")
	f.lastSetAccess = accessToken
	f.lastSetRefresh = refreshToken
	if f.setSessionErr != nil {
		return nil, f.setSessionErr
	}
	if f.setSessionResult != nil {
		return f.setSessionResult, nil
	}
	return &port.ProviderSession{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (f *fakeProvider) GetUser(_ context.Context) (*port.ProviderUser, error) {
	f.record("get_user")
	return f.user, f.userErr
}

func (f *fakeProvider) ResetPasswordForEmail(_ context.Context, _, _ string) error {
	f.record("reset_password")
	return f.resetErr
}

func (f *fakeProvider) UpdateUser(_ context.Context, _ string) (*port.ProviderUser, error) {
	f.record("update_user")
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return f.user, nil
}

type storedValue struct {
	value     string
	expiresAt time.Time
}

type fakeStorage struct {
	mu      sync.Mutex
	entries map[string]storedValue
	setErr  error
	getErr  error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{entries: map[string]storedValue{}}
}

func (s *fakeStorage) Get(_ context.Context, key string) (string, error) {
	if s.getErr != nil {
		return "", s.getErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return "", repository.ErrNotFound
	}
	return entry.value, nil
}

func (s *fakeStorage) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := storedValue{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	s.entries[key] = entry
	return nil
}

func (s *fakeStorage) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *fakeStorage) value(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	return entry.value, ok
}

type fakeNavigator struct {
	mu      sync.Mutex
	targets []string
	err     error
}

func (n *fakeNavigator) Navigate(targetURL string) error {
	n.mu.Lock()
	n.targets = append(n.targets, targetURL)
	n.mu.Unlock()
	return n.err
}

func (n *fakeNavigator) lastTarget() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.targets) == 0 {
		return ""
	}
	return n.targets[len(n.targets)-1]
}

type fakeActivityRepo struct {
	mu sync.Mutex

	upserted  []domain.SessionActivityRecord
	upsertErr error

	record *domain.SessionActivityRecord
	getErr error

	invalidated     int
	invalidateErr   error
	lastExceptID    string
	invalidateCalls int
}

func (r *fakeActivityRepo) Upsert(_ context.Context, record domain.SessionActivityRecord) error {
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.mu.Lock()
	r.upserted = append(r.upserted, record)
	r.mu.Unlock()
	return nil
}

func (r *fakeActivityRepo) GetByUser(_ context.Context, _ string) (*domain.SessionActivityRecord, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	if r.record == nil {
		return nil, repository.ErrNotFound
	}
	return r.record, nil
}

func (r *fakeActivityRepo) InvalidateAllForUser(_ context.Context, _, exceptSessionID string, _ time.Time) (int, error) {
	r.mu.Lock()
	r.invalidateCalls++
	r.lastExceptID = exceptSessionID
	r.mu.Unlock()
	if r.invalidateErr != nil {
		return 0, r.invalidateErr
	}
	return r.invalidated, nil
}

func (r *fakeActivityRepo) lastUpserted() (domain.SessionActivityRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.upserted) == 0 {
		return domain.SessionActivityRecord{}, false
	}
	return r.upserted[len(r.upserted)-1], true
}

type fakeEvents struct {
	mu          sync.Mutex
	logins      []domain.UserLoggedInEvent
	changes     []domain.PasswordChangedEvent
	invalidated []domain.SessionsInvalidatedEvent
}

func (e *fakeEvents) PublishUserLoggedIn(_ context.Context, event domain.UserLoggedInEvent) error {
	e.mu.Lock()
	e.logins = append(e.logins, event)
	e.mu.Unlock()
	return nil
}

func (e *fakeEvents) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	e.mu.Lock()
	e.changes = append(e.changes, event)
	e.mu.Unlock()
	return nil
}

func (e *fakeEvents) PublishSessionsInvalidated(_ context.Context, event domain.SessionsInvalidatedEvent) error {
	e.mu.Lock()
	e.invalidated = append(e.invalidated, event)
	e.mu.Unlock()
	return nil
}

type fakeProfiles struct {
	profile *domain.Profile
	err     error
}

func (p *fakeProfiles) GetProfile(_ context.Context, _ string) (*domain.Profile, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.profile, nil
}
