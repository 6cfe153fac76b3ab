package port

import (
	"context"
	"time"
)

// SignOutScope controls which sessions a sign-out request targets.
type SignOutScope string

const (
	// SignOutGlobal terminates every session for the user.
	SignOutGlobal SignOutScope = "global"
	// SignOutLocal terminates only the current session.
	SignOutLocal SignOutScope = "local"
	// SignOutOthers terminates every session except the current one.
	SignOutOthers SignOutScope = "others"
)

// ProviderUser is the Identity Provider's view of an authenticated user.
type ProviderUser struct {
	ID       string
	Email    string
	Metadata map[string]any
}

// ProviderSession carries the token pair issued by the Identity Provider.
type ProviderSession struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         ProviderUser
}

// IdentityProvider is the external authentication collaborator. Implementations
// talk to the real provider over the network; the interface exists so flows can
// be exercised without one.
type IdentityProvider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*ProviderSession, error)
	SignUp(ctx context.Context, email, password string) (*ProviderSession, error)
	SignOut(ctx context.Context, scope SignOutScope) error
	GetSession(ctx context.Context) (*ProviderSession, error)
	RefreshSession(ctx context.Context) (*ProviderSession, error)
	SetSession(ctx context.Context, accessToken, refreshToken string) (*ProviderSession, error)
	GetUser(ctx context.Context) (*ProviderUser, error)
	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error
	UpdateUser(ctx context.Context, newPassword string) (*ProviderUser, error)
}
