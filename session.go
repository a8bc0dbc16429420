package garden

import (
	"context"
	"encoding/json"
)

// SessionState is the resolution state of a request session
type SessionState int

const (
	// SessionLoading resolution has not finished, the zero value
	SessionLoading SessionState = iota
	// SessionUnauthenticated resolution finished without a user
	SessionUnauthenticated
	// SessionAuthenticated resolution finished with a user
	SessionAuthenticated
)

func (s SessionState) String() string {
	switch s {
	case SessionLoading:
		return "loading"
	case SessionUnauthenticated:
		return "unauthenticated"
	case SessionAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Session is the auth state consumers read: a user, or none, or not known yet.
type Session struct {
	state SessionState
	user  *User
}

// LoadingSession is a session still being resolved
func LoadingSession() Session {
	return Session{state: SessionLoading}
}

// UnauthenticatedSession is a resolved session without user
func UnauthenticatedSession() Session {
	return Session{state: SessionUnauthenticated}
}

// AuthenticatedSession is a resolved session for user. A nil user
// yields an unauthenticated session.
func AuthenticatedSession(user *User) Session {
	if user == nil {
		return UnauthenticatedSession()
	}
	return Session{state: SessionAuthenticated, user: user}
}

// State returns the variant tag
func (s Session) State() SessionState {
	return s.state
}

// Loading reports whether the session is still resolving
func (s Session) Loading() bool {
	return s.state == SessionLoading
}

// User returns the session user, only present when authenticated
func (s Session) User() (*User, bool) {
	if s.state != SessionAuthenticated || s.user == nil {
		return nil, false
	}
	return s.user, true
}

type sessionJSON struct {
	Loading       bool   `json:"loading"`
	Authenticated bool   `json:"authenticated"`
	User          *User  `json:"user"`
	State         string `json:"state"`
}

// MarshalJSON renders the {user, loading} shape
func (s Session) MarshalJSON() ([]byte, error) {
	user, ok := s.User()
	return json.Marshal(sessionJSON{
		Loading:       s.Loading(),
		Authenticated: ok,
		User:          user,
		State:         s.state.String(),
	})
}

// GuardDecision is what the route guard does with a session
type GuardDecision int

const (
	// GuardWait render the waiting indicator
	GuardWait GuardDecision = iota
	// GuardRedirect send the client to the login path
	GuardRedirect
	// GuardAllow render the protected content
	GuardAllow
)

func (d GuardDecision) String() string {
	switch d {
	case GuardWait:
		return "wait"
	case GuardRedirect:
		return "redirect"
	case GuardAllow:
		return "allow"
	default:
		return "unknown"
	}
}

// Decide maps a session to exactly one guard outcome. Loading always
// waits, whatever user the session may carry.
func Decide(s Session) GuardDecision {
	if s.Loading() {
		return GuardWait
	}
	if _, ok := s.User(); !ok {
		return GuardRedirect
	}
	return GuardAllow
}

var sessionCtxKey = &contextKey{"session"}
var pendingCtxKey = &contextKey{"pending_session"}

type contextKey struct {
	name string
}

// WithSession sets the resolved Session in the given context
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey, s)
}

// SessionFromContext returns the session stored in ctx. Without one
// the returned session is loading.
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionCtxKey).(Session)
	return s, ok
}

// UserFromContext finds the user from the context.
func UserFromContext(ctx context.Context) (*User, bool) {
	s, ok := SessionFromContext(ctx)
	if !ok {
		return nil, false
	}
	return s.User()
}

// WithPendingSession stores the pending session in ctx
func WithPendingSession(ctx context.Context, p *PendingSession) context.Context {
	return context.WithValue(ctx, pendingCtxKey, p)
}

// PendingSessionFromContext returns the pending session stored in ctx
func PendingSessionFromContext(ctx context.Context) (*PendingSession, bool) {
	p, ok := ctx.Value(pendingCtxKey).(*PendingSession)
	return p, ok && p != nil
}
