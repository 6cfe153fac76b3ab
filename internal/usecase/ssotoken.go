package usecase

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/NathiDhliso/ReelApps-sub001/internal/core/domain"
)

var (
	// ErrMalformedToken indicates the token could not be parsed into a session descriptor.
	ErrMalformedToken = errors.New("sso token malformed")
	// ErrExpiredToken indicates the descriptor embedded in the token has expired.
	ErrExpiredToken = errors.New("sso token expired")
)

// SessionTokenCodec converts session descriptors to and from the opaque string
// carried between domains.
//
// The wire format is base64 over the JSON serialization of the descriptor. It
// is neither signed nor encrypted: anyone who can read a token can forge or
// replay the session it describes. The subdomains are trusted to receive these
// tokens only over TLS-protected redirects.
type SessionTokenCodec struct{}

// Encode serializes the descriptor deterministically into an opaque token.
func (SessionTokenCodec) Encode(descriptor domain.SessionDescriptor) (string, error) {
	payload, err := json.Marshal(descriptor)
	if err != nil {
		return "", fmt.Errorf("marshal session descriptor: %w", err)
	}
	return base64.StdEncoding.EncodeToString(payload), nil
}

// Decode is the inverse of Encode. Structural failures yield ErrMalformedToken;
// expiry is not checked here, callers that gate on it use IsUsable.
func (SessionTokenCodec) Decode(token string) (*domain.SessionDescriptor, error) {
	if token == "" {
		return nil, ErrMalformedToken
	}

	payload, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	var descriptor domain.SessionDescriptor
	if err := json.Unmarshal(payload, &descriptor); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	if descriptor.User.ID == "" || descriptor.User.AccessToken == "" || descriptor.User.RefreshToken == "" {
		return nil, ErrMalformedToken
	}
	if descriptor.ExpiresAt.IsZero() {
		return nil, ErrMalformedToken
	}

	return &descriptor, nil
}
