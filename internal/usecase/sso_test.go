package usecase

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/NathiDhliso/ReelApps-sub001/internal/core/domain"
	"github.com/NathiDhliso/ReelApps-sub001/internal/core/port"
	"github.com/NathiDhliso/ReelApps-sub001/internal/infra/config"
)

func testSSOSettings() config.SSOSettings {
	return config.SSOSettings{
		MainDomain:      "reelapps.co.za",
		EntryHostPrefix: "www.",
	}
}

func newTestSSOManager(t *testing.T, provider *fakeProvider, profiles *fakeProfiles) (*SSOManager, *fakeStorage, *fakeNavigator) {
	t.Helper()
	storage := newFakeStorage()
	navigator := &fakeNavigator{}
	manager := NewSSOManager(testSSOSettings(), provider, profiles, storage, navigator, zaptest.NewLogger(t))
	return manager, storage, navigator
}

func providerSession(expiresAt time.Time) *port.ProviderSession {
	return &port.ProviderSession{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		ExpiresAt:    expiresAt,
		User:         port.ProviderUser{ID: "user-1", Email: "user@reelapps.co.za"},
	}
}

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url %q: %v", raw, err)
	}
	return u
}

func TestInitializeSSOOnMainDomain(t *testing.T) {
	provider := &fakeProvider{session: providerSession(time.Now().Add(time.Hour))}
	profiles := &fakeProfiles{profile: &domain.Profile{UserID: "user-1", Role: domain.RoleRecruiter}}
	manager, storage, _ := newTestSSOManager(t, provider, profiles)

	descriptor := manager.InitializeSSO(context.Background(), mustParse(t, "https://reelapps.co.za/dashboard"))
	if descriptor == nil {
		t.Fatal("expected descriptor on main domain with active session")
	}

	if descriptor.User.Role != domain.RoleRecruiter {
		t.Fatalf("expected recruiter role from profile, got %s", descriptor.User.Role)
	}
	if descriptor.Domain != "reelapps.co.za" || descriptor.Subdomain != "" {
		t.Fatalf("unexpected domain fields: %q / %q", descriptor.Domain, descriptor.Subdomain)
	}
	if manager.State() != StateAuthenticated {
		t.Fatalf("expected authenticated state, got %v", manager.State())
	}

	if _, ok := storage.value("sso_token"); !ok {
		t.Fatal("token not mirrored into sso_token storage key")
	}
	if _, ok := storage.value("reelapps-session"); !ok {
		t.Fatal("token not mirrored into shared session cookie key")
	}
}

func TestInitializeSSOMainDomainWithoutSession(t *testing.T) {
	provider := &fakeProvider{}
	manager, _, navigator := newTestSSOManager(t, provider, &fakeProfiles{})

	descriptor := manager.InitializeSSO(context.Background(), mustParse(t, "https://reelapps.co.za/"))
	if descriptor != nil {
		t.Fatal("expected nil without a provider session")
	}
	if navigator.lastTarget() != "" {
		t.Fatal("main domain must never redirect")
	}
	if manager.State() != StateUnauthenticated {
		t.Fatalf("expected unauthenticated state, got %v", manager.State())
	}
}

func TestInitializeSSOOnSubdomainWithURLToken(t *testing.T) {
	provider := &fakeProvider{}
	manager, _, _ := newTestSSOManager(t, provider, &fakeProfiles{})

	token, err := manager.GenerateSSOToken(testDescriptor(time.Now().Add(time.Hour)))
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	current := mustParse(t, "https://reelcv.reelapps.co.za/profile?tab=skills")
	query := current.Query()
	query.Set("sso_token", token)
	current.RawQuery = query.Encode()

	descriptor := manager.InitializeSSO(context.Background(), current)
	if descriptor == nil {
		t.Fatal("expected descriptor from URL token")
	}

	if provider.lastSetAccess != "access-token" || provider.lastSetRefresh != "refresh-token" {
		t.Fatal("provider session was not restored from the token")
	}

	if current.Query().Get("sso_token") != "" {
		t.Fatal("token must be stripped from the URL")
	}
	if current.Query().Get("tab") != "skills" {
		t.Fatal("unrelated query parameters must survive the strip")
	}
	if manager.State() != StateAuthenticated {
		t.Fatalf("expected authenticated state, got %v", manager.State())
	}
}

func TestInitializeSSOOnSubdomainWithStoredToken(t *testing.T) {
	provider := &fakeProvider{}
	manager, storage, navigator := newTestSSOManager(t, provider, &fakeProfiles{})

	token, err := manager.GenerateSSOToken(testDescriptor(time.Now().Add(time.Hour)))
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if err := storage.Set(context.Background(), "sso_token", token, time.Hour); err != nil {
		t.Fatalf("seed storage: %v", err)
	}

	descriptor := manager.InitializeSSO(context.Background(), mustParse(t, "https://reelcv.reelapps.co.za/"))
	if descriptor == nil {
		t.Fatal("expected descriptor from stored token")
	}
	if navigator.lastTarget() != "" {
		t.Fatal("no redirect expected when a stored token is usable")
	}
}

func TestInitializeSSOOnSubdomainExpiredTokenRedirects(t *testing.T) {
	provider := &fakeProvider{}
	manager, _, navigator := newTestSSOManager(t, provider, &fakeProfiles{})

	token, err := manager.GenerateSSOToken(testDescriptor(time.Now().Add(-time.Minute)))
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	current := mustParse(t, "https://reelcv.reelapps.co.za/profile?sso_token=" + url.QueryEscape(token))

	descriptor := manager.InitializeSSO(context.Background(), current)
	if descriptor != nil {
		t.Fatal("expired token must not produce a session")
	}

	target := navigator.lastTarget()
	if target == "" {
		t.Fatal("expected redirect to the entry point")
	}
	if !strings.HasPrefix(target, "https://www.reelapps.co.za/auth/sso?return_url=") {
		t.Fatalf("unexpected redirect target: %s", target)
	}
	if manager.State() != StatePendingRedirect {
		t.Fatalf("expected pending redirect state, got %v", manager.State())
	}
}

func TestInitializeSSOOnSubdomainNoTokenRedirectsWithReturnURL(t *testing.T) {
	provider := &fakeProvider{}
	manager, _, navigator := newTestSSOManager(t, provider, &fakeProfiles{})

	current := mustParse(t, "https://reelhunter.reelapps.co.za/pipeline?view=week")

	if descriptor := manager.InitializeSSO(context.Background(), current); descriptor != nil {
		t.Fatal("expected nil without any token")
	}

	target := mustParse(t, navigator.lastTarget())
	if target.Host != "www.reelapps.co.za" || target.Path != "/auth/sso" {
		t.Fatalf("unexpected entry target: %s", navigator.lastTarget())
	}
	returned := target.Query().Get("return_url")
	if returned != "https://reelhunter.reelapps.co.za/pipeline?view=week" {
		t.Fatalf("return_url does not round trip: %q", returned)
	}
}

func TestInitializeSSOSkipsSecondAttemptAfterRedirect(t *testing.T) {
	provider := &fakeProvider{}
	manager, _, navigator := newTestSSOManager(t, provider, &fakeProfiles{})

	current := mustParse(t, "https://reelcv.reelapps.co.za/")
	manager.InitializeSSO(context.Background(), current)
	manager.InitializeSSO(context.Background(), current)

	navigator.mu.Lock()
	count := len(navigator.targets)
	navigator.mu.Unlock()
	if count != 1 {
		t.Fatalf("expected exactly one redirect, got %d", count)
	}
}

func TestInitializeSSOResetStateAllowsRetry(t *testing.T) {
	provider := &fakeProvider{}
	manager, _, navigator := newTestSSOManager(t, provider, &fakeProfiles{})

	current := mustParse(t, "https://reelcv.reelapps.co.za/")
	manager.InitializeSSO(context.Background(), current)
	manager.ResetState()
	manager.InitializeSSO(context.Background(), current)

	navigator.mu.Lock()
	count := len(navigator.targets)
	navigator.mu.Unlock()
	if count != 2 {
		t.Fatalf("expected redirect after reset, got %d navigations", count)
	}
}

func TestInitializeSSONestedReturnURLStopsRedirect(t *testing.T) {
	provider := &fakeProvider{}
	manager, _, navigator := newTestSSOManager(t, provider, &fakeProfiles{})

	nested := "https://reelcv.reelapps.co.za/?return_url=" + url.QueryEscape("https://www.reelapps.co.za/auth/sso?return_url=x")
	manager.InitializeSSO(context.Background(), mustParse(t, nested))

	if navigator.lastTarget() != "" {
		t.Fatalf("nested return_url must stop the redirect, got %s", navigator.lastTarget())
	}
}

func TestInitializeSSOEntryPathDoesNotRedirect(t *testing.T) {
	provider := &fakeProvider{}
	manager, _, navigator := newTestSSOManager(t, provider, &fakeProfiles{})

	manager.InitializeSSO(context.Background(), mustParse(t, "https://sub.reelapps.co.za/auth/sso"))
	if navigator.lastTarget() != "" {
		t.Fatal("the entry path itself must never bounce")
	}
}

func TestValidateSSOTokenFailsClosed(t *testing.T) {
	provider := &fakeProvider{setSessionErr: context.DeadlineExceeded}
	manager, _, _ := newTestSSOManager(t, provider, &fakeProfiles{})

	if d := manager.ValidateSSOToken(context.Background(), "garbage"); d != nil {
		t.Fatal("malformed token must yield nil")
	}

	good, err := manager.GenerateSSOToken(testDescriptor(time.Now().Add(time.Hour)))
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if d := manager.ValidateSSOToken(context.Background(), good); d != nil {
		t.Fatal("provider rejection must yield nil")
	}
}

func TestValidateSSOTokenAdoptsRotatedTokens(t *testing.T) {
	provider := &fakeProvider{setSessionResult: &port.ProviderSession{
		AccessToken:  "rotated-access",
		RefreshToken: "rotated-refresh",
	}}
	manager, _, _ := newTestSSOManager(t, provider, &fakeProfiles{})

	expiresAt := time.Now().Add(time.Hour).Truncate(time.Second)
	token, err := manager.GenerateSSOToken(testDescriptor(expiresAt))
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	descriptor := manager.ValidateSSOToken(context.Background(), token)
	if descriptor == nil {
		t.Fatal("valid token must yield a descriptor")
	}
	if descriptor.User.AccessToken != "rotated-access" {
		t.Fatalf("access token not adopted: %s", descriptor.User.AccessToken)
	}
	if descriptor.User.RefreshToken != "rotated-refresh" {
		t.Fatalf("refresh token not adopted: %s", descriptor.User.RefreshToken)
	}
	if !descriptor.ExpiresAt.Equal(expiresAt) {
		t.Fatalf("transport window must be preserved: %v", descriptor.ExpiresAt)
	}
}

func TestAppURLAppendsToken(t *testing.T) {
	manager, _, _ := newTestSSOManager(t, &fakeProvider{}, &fakeProfiles{})
	descriptor := testDescriptor(time.Now().Add(time.Hour))

	plain, err := manager.AppURL("https://reelcv.reelapps.co.za/", descriptor)
	if err != nil {
		t.Fatalf("app url: %v", err)
	}
	if !strings.Contains(plain, "/?sso_token=") {
		t.Fatalf("expected ? separator: %s", plain)
	}

	withQuery, err := manager.AppURL("https://reelcv.reelapps.co.za/?tab=skills", descriptor)
	if err != nil {
		t.Fatalf("app url: %v", err)
	}
	if !strings.Contains(withQuery, "&sso_token=") {
		t.Fatalf("expected & separator: %s", withQuery)
	}
}

func TestNavigateToApp(t *testing.T) {
	manager, _, navigator := newTestSSOManager(t, &fakeProvider{}, &fakeProfiles{})

	if err := manager.NavigateToApp("https://reelskills.reelapps.co.za/", testDescriptor(time.Now().Add(time.Hour))); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if !strings.HasPrefix(navigator.lastTarget(), "https://reelskills.reelapps.co.za/?sso_token=") {
		t.Fatalf("unexpected navigation target: %s", navigator.lastTarget())
	}
}

func TestHasAppAccess(t *testing.T) {
	manager, _, _ := newTestSSOManager(t, &fakeProvider{}, &fakeProfiles{})

	cases := []struct {
		role domain.Role
		app  string
		want bool
	}{
		{domain.RoleCandidate, "reelcv", true},
		{domain.RoleCandidate, "reelskills", true},
		{domain.RoleCandidate, "reelhunter", false},
		{domain.RoleRecruiter, "reelhunter", true},
		{domain.RoleRecruiter, "reelcv", false},
		{domain.RoleAdmin, "reelcv", true},
		{domain.RoleAdmin, "reelhunter", true},
		{domain.RoleAdmin, "unknown-app", false},
		{domain.Role("ghost"), "reelcv", false},
	}

	for _, tc := range cases {
		if got := manager.HasAppAccess(tc.role, tc.app); got != tc.want {
			t.Errorf("HasAppAccess(%s, %s) = %v, want %v", tc.role, tc.app, got, tc.want)
		}
	}
}

func TestAllowedApps(t *testing.T) {
	manager, _, _ := newTestSSOManager(t, &fakeProvider{}, &fakeProfiles{})

	admin := manager.AllowedApps(domain.RoleAdmin)
	if len(admin) != 5 {
		t.Fatalf("expected all five apps for admin, got %v", admin)
	}

	unknown := manager.AllowedApps(domain.Role("ghost"))
	if unknown == nil || len(unknown) != 0 {
		t.Fatalf("unknown role must get an empty non-nil slice, got %#v", unknown)
	}
}

func TestExtractSubdomain(t *testing.T) {
	manager, _, _ := newTestSSOManager(t, &fakeProvider{}, &fakeProfiles{})

	cases := map[string]string{
		"reelapps.co.za":          "",
		"reelcv.reelapps.co.za":   "reelcv",
		"deep.sub.reelapps.co.za": "deep",
		"evilreelapps.co.za":      "",
		"other.example.com":       "",
	}

	for hostname, want := range cases {
		if got := manager.ExtractSubdomain(hostname); got != want {
			t.Errorf("ExtractSubdomain(%s) = %q, want %q", hostname, got, want)
		}
	}
}

func TestClearSession(t *testing.T) {
	provider := &fakeProvider{session: providerSession(time.Now().Add(time.Hour))}
	manager, storage, _ := newTestSSOManager(t, provider, &fakeProfiles{})

	if d := manager.InitializeSSO(context.Background(), mustParse(t, "https://reelapps.co.za/")); d == nil {
		t.Fatal("setup: expected a session")
	}

	manager.ClearSession(context.Background())

	if _, ok := storage.value("sso_token"); ok {
		t.Fatal("sso_token survived ClearSession")
	}
	if _, ok := storage.value("reelapps-session"); ok {
		t.Fatal("session cookie survived ClearSession")
	}
	if manager.State() != StateUnauthenticated {
		t.Fatalf("expected unauthenticated state, got %v", manager.State())
	}
}
