package usecase

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/NathiDhliso/ReelApps-sub001/internal/infra/config"
)

func newTestGuard(t *testing.T, cfg config.CSRFSettings) (*CSRFGuard, *fakeStorage) {
	t.Helper()
	storage := newFakeStorage()
	guard := NewCSRFGuard(cfg, storage, zaptest.NewLogger(t))
	return guard, storage
}

func TestCSRFGuardInitializeStoresToken(t *testing.T) {
	guard, storage := newTestGuard(t, config.CSRFSettings{})
	defer guard.Teardown(context.Background())

	token, err := guard.Initialize(context.Background())
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}

	// 32 random bytes hex encoded
	if len(token) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(token))
	}

	stored, ok := storage.value(guard.CookieName())
	if !ok {
		t.Fatal("token not persisted under cookie name")
	}
	if stored != token {
		t.Fatal("stored token differs from returned token")
	}

	fetched, err := guard.Token(context.Background())
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if fetched != token {
		t.Fatal("Token() did not return the stored value")
	}
}

func TestCSRFGuardTokenWhenAbsent(t *testing.T) {
	guard, _ := newTestGuard(t, config.CSRFSettings{})

	token, err := guard.Token(context.Background())
	if err != nil {
		t.Fatalf("expected nil error for absent token, got %v", err)
	}
	if token != "" {
		t.Fatalf("expected empty token, got %q", token)
	}
}

func TestCSRFGuardValidate(t *testing.T) {
	guard, _ := newTestGuard(t, config.CSRFSettings{})

	base := "00112233445566778899aabbccddeeff"

	flipFirst := "10" + base[2:]
	flipLast := base[:len(base)-1] + "0"

	cases := []struct {
		name    string
		cookie  string
		request string
		want    bool
	}{
		{"matching tokens", base, base, true},
		{"missing cookie", "", base, false},
		{"missing header", base, "", false},
		{"both missing", "", "", false},
		{"length mismatch", base, base[:10], false},
		{"first byte differs", base, flipFirst, false},
		{"last byte differs", base, flipLast, false},
	}

	for _, tc := range cases {
		if got := guard.Validate(tc.cookie, tc.request); got != tc.want {
			t.Errorf("%s: Validate() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestCSRFGuardTeardownRemovesToken(t *testing.T) {
	guard, storage := newTestGuard(t, config.CSRFSettings{})

	if _, err := guard.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	if err := guard.Teardown(context.Background()); err != nil {
		t.Fatalf("teardown: %v", err)
	}

	if _, ok := storage.value(guard.CookieName()); ok {
		t.Fatal("token still present after teardown")
	}
}

func TestCSRFGuardRotation(t *testing.T) {
	guard, storage := newTestGuard(t, config.CSRFSettings{
		MaxAge:       80 * time.Millisecond,
		RotationLead: 40 * time.Millisecond,
	})
	defer guard.Teardown(context.Background())

	first, err := guard.Initialize(context.Background())
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		current, _ := storage.value(guard.CookieName())
		if current != "" && current != first {
			return
		}
		select {
		case <-deadline:
			t.Fatal("token was not rotated before deadline")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestCSRFWrapRegeneratesMissingToken(t *testing.T) {
	guard, storage := newTestGuard(t, config.CSRFSettings{})
	defer guard.Teardown(context.Background())

	provider := &fakeProvider{}
	wrapped := guard.Wrap(provider)

	if _, ok := storage.value(guard.CookieName()); ok {
		t.Fatal("expected no token before first call")
	}

	if _, err := wrapped.SignInWithPassword(context.Background(), "user@reelapps.co.za", "pw"); err != nil {
		t.Fatalf("sign in through wrapper: %v", err)
	}

	if _, ok := storage.value(guard.CookieName()); !ok {
		t.Fatal("state-changing call did not regenerate the token")
	}

	order := provider.callOrder()
	if len(order) != 1 || order[0] != "sign_in" {
		t.Fatalf("unexpected delegate calls: %v", order)
	}
}

func TestCSRFWrapPassesReadsThrough(t *testing.T) {
	guard, storage := newTestGuard(t, config.CSRFSettings{})

	provider := &fakeProvider{}
	wrapped := guard.Wrap(provider)

	if _, err := wrapped.GetSession(context.Background()); err != nil {
		t.Fatalf("get session: %v", err)
	}

	if _, ok := storage.value(guard.CookieName()); ok {
		t.Fatal("read-only call should not mint a token")
	}
}
