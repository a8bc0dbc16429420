package garden

import (
	"context"
	"time"
)

// Auther logs identities in and mints their session tokens
type Auther struct {
	provider IdentityProvider
	tokens   TokenService
	cfg      Config
	logger   Logger
}

var _ Authenticator = (*Auther)(nil)

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider IdentityProvider, tokens TokenService, cfg Config) *Auther {
	return &Auther{
		provider: provider,
		tokens:   tokens,
		cfg:      cfg,
		logger:   defaultLogger(),
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// TokenService returns the TokenService used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokens
}

// Login verifies the payload credentials and returns a signed token
func (s *Auther) Login(ctx context.Context, payload LoginPayload) (string, error) {
	identity, err := s.provider.VerifyIdentity(ctx, payload.GetIdentifier(), payload.GetPassword())
	if err != nil {
		s.logger.Info("login verify identity failed", "identifier", payload.GetIdentifier(), "error", err)
		return "", err
	}

	return s.IssueToken(identity, payload.GetExtendedSession())
}

// IssueToken mints a token for an already verified identity
func (s *Auther) IssueToken(identity Identity, extended bool) (string, error) {
	return s.tokens.Generate(identity, TokenTTL(s.cfg, extended))
}

// TokenTTL is the session lifetime for cfg
func TokenTTL(cfg Config, extended bool) time.Duration {
	ttl := 24 * time.Hour
	if cfg.GetTokenExpiration() > 0 {
		ttl = time.Duration(cfg.GetTokenExpiration()) * time.Hour
	}
	if extended && cfg.GetExtendedTokenDuration() > 0 {
		ttl = time.Duration(cfg.GetExtendedTokenDuration()) * time.Hour
	}
	return ttl
}
