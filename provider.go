package garden

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/goliatone/go-garden/cache"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// DefaultLookupTimeout bounds a single session lookup
const DefaultLookupTimeout = 5 * time.Second

// PendingSession is a session whose resolution may still be in flight.
// The session field is written once, before done is closed.
type PendingSession struct {
	done    chan struct{}
	session Session
}

func newPendingSession() *PendingSession {
	return &PendingSession{done: make(chan struct{})}
}

// ResolvedSession returns an already resolved pending session
func ResolvedSession(s Session) *PendingSession {
	p := newPendingSession()
	p.resolve(s)
	return p
}

func (p *PendingSession) resolve(s Session) {
	p.session = s
	close(p.done)
}

// Done is closed once the session is resolved
func (p *PendingSession) Done() <-chan struct{} {
	return p.done
}

// Current returns the resolved session or a loading one, never blocks
func (p *PendingSession) Current() Session {
	select {
	case <-p.done:
		return p.session
	default:
		return LoadingSession()
	}
}

// Wait blocks until resolution or until ctx ends, in which case the
// session is reported as loading.
func (p *PendingSession) Wait(ctx context.Context) Session {
	select {
	case <-p.done:
		return p.session
	default:
	}

	select {
	case <-p.done:
		return p.session
	case <-ctx.Done():
		return LoadingSession()
	}
}

// SessionProvider resolves session tokens into sessions
type SessionProvider struct {
	tokens        TokenValidator
	users         UserFinder
	cache         cache.Store
	group         singleflight.Group
	lookupTimeout time.Duration
	logger        Logger
}

// SessionProviderOption configures a SessionProvider
type SessionProviderOption func(*SessionProvider)

// WithSessionCache sets the cache consulted before the users store
func WithSessionCache(store cache.Store) SessionProviderOption {
	return func(p *SessionProvider) {
		if store != nil {
			p.cache = store
		}
	}
}

// WithLookupTimeout bounds each lookup
func WithLookupTimeout(d time.Duration) SessionProviderOption {
	return func(p *SessionProvider) {
		if d > 0 {
			p.lookupTimeout = d
		}
	}
}

// WithProviderLogger sets the provider logger
func WithProviderLogger(l Logger) SessionProviderOption {
	return func(p *SessionProvider) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewSessionProvider creates a provider validating tokens with tokens and
// loading users from users.
func NewSessionProvider(tokens TokenValidator, users UserFinder, opts ...SessionProviderOption) *SessionProvider {
	p := &SessionProvider{
		tokens:        tokens,
		users:         users,
		cache:         cache.Nop{},
		lookupTimeout: DefaultLookupTimeout,
		logger:        defaultLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Resolve starts resolving token and returns immediately. An empty token
// resolves synchronously to an unauthenticated session. Lookups are detached
// from ctx cancellation so an abandoned request still warms the cache.
func (p *SessionProvider) Resolve(ctx context.Context, token string) *PendingSession {
	if token == "" {
		return ResolvedSession(UnauthenticatedSession())
	}

	pending := newPendingSession()
	detached := context.WithoutCancel(ctx)

	go func() {
		v, _, _ := p.group.Do(token, func() (any, error) {
			lctx, cancel := context.WithTimeout(detached, p.lookupTimeout)
			defer cancel()
			return p.lookup(lctx, token), nil
		})

		s, ok := v.(Session)
		if !ok {
			s = UnauthenticatedSession()
		}
		pending.resolve(s)
	}()

	return pending
}

// Forget evicts the cached session for token
func (p *SessionProvider) Forget(ctx context.Context, token string) {
	if token == "" {
		return
	}
	if err := p.cache.Delete(ctx, cacheKey(token)); err != nil {
		p.logger.Warn("failed to evict session", "error", err)
	}
}

func (p *SessionProvider) lookup(ctx context.Context, token string) Session {
	claims, err := p.tokens.Validate(token)
	if err != nil {
		p.logger.Debug("session token rejected", "error", err)
		return UnauthenticatedSession()
	}

	key := cacheKey(token)
	if entry, ok := p.cache.Get(ctx, key); ok {
		if user, err := userFromEntry(entry); err == nil {
			return AuthenticatedSession(user)
		}
	}

	id, err := uuid.Parse(claims.UserID())
	if err != nil {
		p.logger.Debug("session token carries invalid user id", "uid", claims.UserID())
		return UnauthenticatedSession()
	}

	user, err := p.users.GetByID(ctx, id)
	if err != nil {
		p.logger.Info("session user lookup failed", "user_id", id.String(), "error", err)
		return UnauthenticatedSession()
	}

	if err := p.cache.Set(ctx, key, entryFromUser(user)); err != nil {
		p.logger.Warn("failed to cache session", "user_id", id.String(), "error", err)
	}

	return AuthenticatedSession(user)
}

func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func entryFromUser(u *User) cache.Entry {
	return cache.Entry{
		UserID:    u.ID.String(),
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		Role:      u.Role,
	}
}

func userFromEntry(e *cache.Entry) (*User, error) {
	id, err := uuid.Parse(e.UserID)
	if err != nil {
		return nil, err
	}
	return &User{
		ID:        id,
		Username:  e.Username,
		Email:     e.Email,
		FirstName: e.FirstName,
		Role:      e.Role,
	}, nil
}
