package garden

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	// TemplateUserKey is the locals and view key for the signed in user
	TemplateUserKey = "current_user"
	// PendingSessionKey is the locals key for the in flight session
	PendingSessionKey = "pending_session"
)

// GetPendingSession returns the pending session started by Provide
func GetPendingSession(c *fiber.Ctx) (*PendingSession, bool) {
	if p, ok := c.Locals(PendingSessionKey).(*PendingSession); ok && p != nil {
		return p, true
	}
	return PendingSessionFromContext(c.UserContext())
}

// CurrentSession reads the session without waiting. Requests that never
// went through Provide are unauthenticated.
func CurrentSession(c *fiber.Ctx) Session {
	p, ok := GetPendingSession(c)
	if !ok {
		return UnauthenticatedSession()
	}
	return p.Current()
}

// AwaitSession waits up to budget for the session to resolve
func AwaitSession(c *fiber.Ctx, budget time.Duration) Session {
	p, ok := GetPendingSession(c)
	if !ok {
		return UnauthenticatedSession()
	}

	ctx := c.UserContext()
	if budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}
	return p.Wait(ctx)
}

// GetCurrentUser returns the user the guard attached to the request
func GetCurrentUser(c *fiber.Ctx) (*User, bool) {
	if u, ok := c.Locals(TemplateUserKey).(*User); ok && u != nil {
		return u, true
	}
	return UserFromContext(c.UserContext())
}
