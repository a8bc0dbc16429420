package garden_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-garden"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func runCtx(t *testing.T, handlers ...fiber.Handler) {
	t.Helper()
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/", handlers...)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestCurrentSession_WithoutProvide(t *testing.T) {
	runCtx(t, func(c *fiber.Ctx) error {
		_, ok := garden.GetPendingSession(c)
		assert.False(t, ok)
		assert.Equal(t, garden.SessionUnauthenticated, garden.CurrentSession(c).State())
		assert.Equal(t, garden.SessionUnauthenticated, garden.AwaitSession(c, time.Millisecond).State())

		_, ok = garden.GetCurrentUser(c)
		assert.False(t, ok)
		return c.SendStatus(fiber.StatusNoContent)
	})
}

func TestAwaitSession(t *testing.T) {
	user := testUser(garden.RoleMember)
	release := make(chan struct{})

	provide := func(c *fiber.Ctx) error {
		validator := garden.TokenValidatorFunc(func(string) (garden.AuthClaims, error) {
			<-release
			return &garden.JWTClaims{UID: user.ID.String()}, nil
		})
		finder := &MockUserFinder{}
		finder.On("GetByID", mock.Anything, user.ID).Return(user, nil)
		pending := garden.NewSessionProvider(validator, finder).Resolve(c.UserContext(), "token")
		c.Locals(garden.PendingSessionKey, pending)
		return c.Next()
	}

	runCtx(t, provide, func(c *fiber.Ctx) error {
		assert.True(t, garden.CurrentSession(c).Loading())
		assert.True(t, garden.AwaitSession(c, 5*time.Millisecond).Loading())

		close(release)
		s := garden.AwaitSession(c, time.Second)
		if got, ok := s.User(); assert.True(t, ok) {
			assert.Equal(t, user.ID, got.ID)
		}
		assert.Equal(t, garden.SessionAuthenticated, garden.CurrentSession(c).State())
		return c.SendStatus(fiber.StatusNoContent)
	})
}

func TestGetCurrentUser_FromUserContext(t *testing.T) {
	user := testUser(garden.RoleMember)

	runCtx(t, func(c *fiber.Ctx) error {
		c.SetUserContext(garden.WithSession(c.UserContext(), garden.AuthenticatedSession(user)))
		got, ok := garden.GetCurrentUser(c)
		assert.True(t, ok)
		assert.Same(t, user, got)

		other := testUser(garden.RoleAdmin)
		c.Locals(garden.TemplateUserKey, other)
		got, ok = garden.GetCurrentUser(c)
		assert.True(t, ok)
		assert.Same(t, other, got)
		return c.SendStatus(fiber.StatusNoContent)
	})
}
