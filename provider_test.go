package garden_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goliatone/go-garden"
	"github.com/goliatone/go-garden/cache"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTokens() *garden.TokenServiceImpl {
	return garden.NewTokenService([]byte(testSigningKey), "go-garden", []string{"garden-web"}, garden.NopLogger())
}

func mintToken(t *testing.T, tokens *garden.TokenServiceImpl, user *garden.User) string {
	t.Helper()
	token, err := tokens.Generate(garden.NewIdentityFromUser(user), time.Hour)
	require.NoError(t, err)
	return token
}

func waitSession(t *testing.T, p *garden.PendingSession) garden.Session {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s := p.Wait(ctx)
	require.False(t, s.Loading(), "session did not resolve")
	return s
}

func TestSessionProvider_EmptyTokenResolvesImmediately(t *testing.T) {
	finder := &MockUserFinder{}
	p := garden.NewSessionProvider(newTokens(), finder)

	pending := p.Resolve(context.Background(), "")
	select {
	case <-pending.Done():
	default:
		t.Fatal("empty token should resolve synchronously")
	}
	assert.Equal(t, garden.SessionUnauthenticated, pending.Current().State())
	finder.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestSessionProvider_ValidTokenAuthenticates(t *testing.T) {
	tokens := newTokens()
	user := &garden.User{ID: uuid.New(), Username: "rosa", Email: "rosa@example.com", Role: garden.RoleMember}

	finder := &MockUserFinder{}
	finder.On("GetByID", mock.Anything, user.ID).Return(user, nil).Once()

	p := garden.NewSessionProvider(tokens, finder, garden.WithSessionCache(cache.NewMemory(time.Minute, 0)))
	token := mintToken(t, tokens, user)

	s := waitSession(t, p.Resolve(context.Background(), token))
	got, ok := s.User()
	require.True(t, ok)
	assert.Equal(t, user.ID, got.ID)

	// second resolution is served from the cache
	s = waitSession(t, p.Resolve(context.Background(), token))
	got, ok = s.User()
	require.True(t, ok)
	assert.Equal(t, "rosa", got.Username)
	assert.Equal(t, garden.RoleMember, got.Role)

	finder.AssertExpectations(t)
}

func TestSessionProvider_ForgetEvictsCache(t *testing.T) {
	tokens := newTokens()
	user := &garden.User{ID: uuid.New(), Username: "rosa"}

	finder := &MockUserFinder{}
	finder.On("GetByID", mock.Anything, user.ID).Return(user, nil).Twice()

	p := garden.NewSessionProvider(tokens, finder, garden.WithSessionCache(cache.NewMemory(time.Minute, 0)))
	token := mintToken(t, tokens, user)

	waitSession(t, p.Resolve(context.Background(), token))
	p.Forget(context.Background(), token)
	waitSession(t, p.Resolve(context.Background(), token))

	finder.AssertExpectations(t)
}

func TestSessionProvider_RejectsInvalidTokens(t *testing.T) {
	tokens := newTokens()
	other := garden.NewTokenService([]byte("another-signing-key-0123456789abcdef"), "go-garden", []string{"garden-web"}, garden.NopLogger())
	user := &garden.User{ID: uuid.New()}

	finder := &MockUserFinder{}
	p := garden.NewSessionProvider(tokens, finder)

	for name, token := range map[string]string{
		"garbage":   "not-a-jwt",
		"wrong key": mintToken(t, other, user),
	} {
		t.Run(name, func(t *testing.T) {
			s := waitSession(t, p.Resolve(context.Background(), token))
			assert.Equal(t, garden.SessionUnauthenticated, s.State())
		})
	}
	finder.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestSessionProvider_MissingUser(t *testing.T) {
	tokens := newTokens()
	user := &garden.User{ID: uuid.New()}

	finder := &MockUserFinder{}
	finder.On("GetByID", mock.Anything, user.ID).Return(nil, garden.ErrIdentityNotFound)

	p := garden.NewSessionProvider(tokens, finder)
	s := waitSession(t, p.Resolve(context.Background(), mintToken(t, tokens, user)))
	assert.Equal(t, garden.SessionUnauthenticated, s.State())
}

func TestSessionProvider_LookupSurvivesRequestCancel(t *testing.T) {
	tokens := newTokens()
	user := &garden.User{ID: uuid.New()}

	finder := &MockUserFinder{}
	finder.On("GetByID", mock.Anything, user.ID).Return(user, nil).Run(func(args mock.Arguments) {
		ctx := args.Get(0).(context.Context)
		assert.NoError(t, ctx.Err())
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := garden.NewSessionProvider(tokens, finder)
	s := waitSession(t, p.Resolve(ctx, mintToken(t, tokens, user)))
	assert.Equal(t, garden.SessionAuthenticated, s.State())
}

type blockingFinder struct {
	user    *garden.User
	calls   atomic.Int32
	release chan struct{}
}

func (f *blockingFinder) GetByID(ctx context.Context, id uuid.UUID) (*garden.User, error) {
	f.calls.Add(1)
	select {
	case <-f.release:
		return f.user, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestSessionProvider_CoalescesConcurrentLookups(t *testing.T) {
	tokens := newTokens()
	user := &garden.User{ID: uuid.New()}
	finder := &blockingFinder{user: user, release: make(chan struct{})}

	p := garden.NewSessionProvider(tokens, finder)
	token := mintToken(t, tokens, user)

	pending := make([]*garden.PendingSession, 10)
	for i := range pending {
		pending[i] = p.Resolve(context.Background(), token)
	}

	for _, ps := range pending {
		assert.True(t, ps.Current().Loading())
	}

	// let every resolver join the in flight lookup
	time.Sleep(50 * time.Millisecond)
	close(finder.release)

	var wg sync.WaitGroup
	for _, ps := range pending {
		wg.Add(1)
		go func(ps *garden.PendingSession) {
			defer wg.Done()
			assert.Equal(t, garden.SessionAuthenticated, waitSession(t, ps).State())
		}(ps)
	}
	wg.Wait()

	assert.Equal(t, int32(1), finder.calls.Load())
}

func TestSessionProvider_LookupTimeout(t *testing.T) {
	tokens := newTokens()
	user := &garden.User{ID: uuid.New()}
	finder := &blockingFinder{user: user, release: make(chan struct{})}

	p := garden.NewSessionProvider(tokens, finder, garden.WithLookupTimeout(20*time.Millisecond))
	s := waitSession(t, p.Resolve(context.Background(), mintToken(t, tokens, user)))
	assert.Equal(t, garden.SessionUnauthenticated, s.State())
}

func TestPendingSession_WaitHonoursContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	validator := garden.TokenValidatorFunc(func(string) (garden.AuthClaims, error) {
		<-release
		return nil, errors.New("never")
	})
	p := garden.NewSessionProvider(validator, &MockUserFinder{})

	pending := p.Resolve(context.Background(), "token")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	s := pending.Wait(ctx)
	assert.True(t, s.Loading())
	assert.Less(t, time.Since(start), time.Second)
}

func TestResolvedSession(t *testing.T) {
	user := &garden.User{ID: uuid.New()}
	p := garden.ResolvedSession(garden.AuthenticatedSession(user))

	assert.Equal(t, garden.GuardAllow, garden.Decide(p.Current()))
	assert.Equal(t, garden.GuardAllow, garden.Decide(p.Wait(context.Background())))
}
