package garden

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Logger is satisfied by glog.Logger and *slog.Logger
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Identity holds the attributes of an identity
type Identity interface {
	ID() string
	Username() string
	Email() string
	Role() string
}

// LoginPayload is what the login form provides
type LoginPayload interface {
	GetIdentifier() string
	GetPassword() string
	GetExtendedSession() bool
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetContextKey() string
	GetTokenExpiration() int
	GetExtendedTokenDuration() int
	GetTokenLookup() string
	GetAuthScheme() string
	GetIssuer() string
	GetAudience() []string
	GetRejectedRouteKey() string
	GetRejectedRouteDefault() string
	GetLoginPath() string
	GetResolveTimeout() time.Duration
	GetSecureCookies() bool
}

// Authenticator exchanges credentials for a signed session token
type Authenticator interface {
	Login(ctx context.Context, payload LoginPayload) (string, error)
}

// IdentityProvider ensure we have a store to retrieve auth identity
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error)
}

// TokenValidator turns a raw token into claims
type TokenValidator interface {
	Validate(tokenString string) (AuthClaims, error)
}

// UserFinder loads users by id
type UserFinder interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
}
