package usecase

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/NathiDhliso/ReelApps-sub001/internal/core/domain"
)

func testDescriptor(expiresAt time.Time) domain.SessionDescriptor {
	return domain.SessionDescriptor{
		User: domain.SSOUser{
			ID:           "user-1",
			Email:        "user@reelapps.co.za",
			Role:         domain.RoleCandidate,
			AccessToken:  "access-token",
			RefreshToken: "refresh-token",
		},
		ExpiresAt: expiresAt,
		Domain:    "reelcv.reelapps.co.za",
		Subdomain: "reelcv",
	}
}

func TestSessionTokenCodecRoundTrip(t *testing.T) {
	codec := SessionTokenCodec{}
	original := testDescriptor(time.Now().Add(time.Hour).UTC().Truncate(time.Second))

	token, err := codec.Encode(original)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := base64.StdEncoding.DecodeString(token); err != nil {
		t.Fatalf("token is not valid base64: %v", err)
	}

	decoded, err := codec.Decode(token)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if decoded.User.ID != original.User.ID || decoded.User.Email != original.User.Email {
		t.Fatalf("user mismatch: got %+v want %+v", decoded.User, original.User)
	}
	if decoded.User.Role != original.User.Role {
		t.Fatalf("role mismatch: got %s want %s", decoded.User.Role, original.User.Role)
	}
	if decoded.User.AccessToken != original.User.AccessToken || decoded.User.RefreshToken != original.User.RefreshToken {
		t.Fatal("token pair did not survive the round trip")
	}
	if !decoded.ExpiresAt.Equal(original.ExpiresAt) {
		t.Fatalf("expires_at mismatch: got %v want %v", decoded.ExpiresAt, original.ExpiresAt)
	}
	if decoded.Domain != original.Domain || decoded.Subdomain != original.Subdomain {
		t.Fatalf("domain mismatch: got %s/%s", decoded.Domain, decoded.Subdomain)
	}
}

func TestSessionTokenCodecDecodeMalformed(t *testing.T) {
	codec := SessionTokenCodec{}

	cases := map[string]string{
		"empty":          "",
		"not base64":     "!!!not-base64!!!",
		"not json":       base64.StdEncoding.EncodeToString([]byte("plain text")),
		"missing tokens": base64.StdEncoding.EncodeToString([]byte(`{"user":{"id":"user-1"}}`)),
		"missing expiry": base64.StdEncoding.EncodeToString([]byte(`{"user":{"id":"u","accessToken":"a","refreshToken":"r"}}`)),
	}

	for name, token := range cases {
		if _, err := codec.Decode(token); !errors.Is(err, ErrMalformedToken) {
			t.Errorf("%s: expected ErrMalformedToken, got %v", name, err)
		}
	}
}

func TestSessionTokenCodecDecodeKeepsExpiredDescriptors(t *testing.T) {
	codec := SessionTokenCodec{}
	expired := testDescriptor(time.Now().Add(-time.Hour))

	token, err := codec.Encode(expired)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := codec.Decode(token)
	if err != nil {
		t.Fatalf("decode should not enforce expiry: %v", err)
	}
	if decoded.IsUsable(time.Now()) {
		t.Fatal("expired descriptor reported usable")
	}
}
