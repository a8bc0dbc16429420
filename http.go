package garden

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/goliatone/go-garden/middleware/jwtware"
)

// LoadingView is the view rendered while a session resolves
const LoadingView = "loading"

// SessionAuthenticator logs users in and issues tokens for identities
// verified elsewhere, e.g. right after registration.
type SessionAuthenticator interface {
	Authenticator
	IssueToken(identity Identity, extended bool) (string, error)
}

// RouteAuthenticator ties sessions to HTTP requests: it resolves the
// session cookie, gates routes and manages the cookie lifecycle.
type RouteAuthenticator struct {
	auth                   SessionAuthenticator
	sessions               *SessionProvider
	cfg                    Config
	extractors             []jwtware.JWTExtractor
	cookieDuration         time.Duration
	extendedCookieDuration time.Duration
	Logger                 Logger
	LoadingView            string
}

func NewHTTPAuthenticator(auther SessionAuthenticator, sessions *SessionProvider, cfg Config) *RouteAuthenticator {
	return &RouteAuthenticator{
		cfg:                    cfg,
		auth:                   auther,
		sessions:               sessions,
		extractors:             jwtware.GetExtractors(cfg.GetTokenLookup(), cfg.GetAuthScheme()),
		Logger:                 defaultLogger(),
		cookieDuration:         TokenTTL(cfg, false),
		extendedCookieDuration: TokenTTL(cfg, true),
		LoadingView:            LoadingView,
	}
}

func (a *RouteAuthenticator) WithLogger(l Logger) *RouteAuthenticator {
	if l != nil {
		a.Logger = l
	}
	return a
}

func (a RouteAuthenticator) GetCookieDuration() time.Duration {
	return a.cookieDuration
}

func (a RouteAuthenticator) GetExtendedCookieDuration() time.Duration {
	return a.extendedCookieDuration
}

// Provide starts resolving the request session and exposes it to the
// rest of the chain. It never blocks.
func (a *RouteAuthenticator) Provide() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, _ := jwtware.ExtractRawTokenFromContext(c, a.extractors)
		// fasthttp reuses request buffers once the handler returns
		pending := a.sessions.Resolve(c.UserContext(), utils.CopyString(raw))

		c.Locals(PendingSessionKey, pending)
		c.SetUserContext(WithPendingSession(c.UserContext(), pending))
		return c.Next()
	}
}

// Guard gates the next handler on the request session: loading renders
// the waiting page, no user redirects to login, a user passes through.
// Unsafe methods get a 503 while loading so the client can resend them.
func (a *RouteAuthenticator) Guard() fiber.Handler {
	return func(c *fiber.Ctx) error {
		session := a.Session(c)

		switch Decide(session) {
		case GuardWait:
			if !isSafeMethod(c.Method()) {
				c.Set(fiber.HeaderRetryAfter, "1")
				c.Set(fiber.HeaderCacheControl, "no-store")
				return ErrSessionLoading
			}
			return a.renderLoading(c)
		case GuardRedirect:
			return a.redirectToLogin(c)
		}

		user, _ := session.User()
		c.Locals(TemplateUserKey, user)
		c.SetUserContext(WithSession(c.UserContext(), session))
		return c.Next()
	}
}

func (a *RouteAuthenticator) renderLoading(c *fiber.Ctx) error {
	a.Logger.Debug("session still resolving", "path", c.Path())

	c.Set(fiber.HeaderRetryAfter, "1")
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Status(fiber.StatusOK).Render(a.LoadingView, fiber.Map{
		"page":    a.LoadingView,
		"title":   "Loading",
		"path":    c.Path(),
		"refresh": 1,
	})
}

func (a *RouteAuthenticator) redirectToLogin(c *fiber.Ctx) error {
	a.Logger.Info("unauthenticated request, redirecting to login", "path", c.OriginalURL())

	statusCode := fiber.StatusSeeOther
	if isSafeMethod(c.Method()) {
		a.SetRedirect(c)
		statusCode = fiber.StatusFound
	}
	return c.Redirect(a.cfg.GetLoginPath(), statusCode)
}

func isSafeMethod(method string) bool {
	return method == fiber.MethodGet || method == fiber.MethodHead
}

// Login verifies the payload and sets the session cookie
func (a *RouteAuthenticator) Login(c *fiber.Ctx, payload LoginPayload) error {
	token, err := a.auth.Login(c.UserContext(), payload)
	if err != nil {
		return err
	}

	duration := a.cookieDuration
	if payload.GetExtendedSession() {
		duration = a.extendedCookieDuration
	}

	a.setCookieToken(c, token, duration)
	return nil
}

// SignIn sets the session cookie for an identity verified by the caller
func (a *RouteAuthenticator) SignIn(c *fiber.Ctx, identity Identity) error {
	token, err := a.auth.IssueToken(identity, false)
	if err != nil {
		return err
	}
	a.setCookieToken(c, token, a.cookieDuration)
	return nil
}

// Logout clears the session cookie and evicts the cached session
func (a *RouteAuthenticator) Logout(c *fiber.Ctx) {
	if raw, err := jwtware.ExtractRawTokenFromContext(c, a.extractors); err == nil {
		a.sessions.Forget(c.UserContext(), raw)
	}
	a.cookieDel(c, a.cfg.GetContextKey())
}

// GetRedirectOrDefault returns the remembered rejected route, if it is a
// local path, or the configured default. The cookie is consumed.
func (a *RouteAuthenticator) GetRedirectOrDefault(c *fiber.Ctx) string {
	rejectedRoute := a.cfg.GetRejectedRouteKey()

	r := utils.CopyString(c.Cookies(rejectedRoute))
	if r == "" || !IsLocalPath(r) {
		r = a.cfg.GetRejectedRouteDefault()
	}
	if r == "" {
		r = "/"
	}
	a.cookieDel(c, rejectedRoute)
	return r
}

// SetRedirect remembers the current URL so login can return to it
func (a *RouteAuthenticator) SetRedirect(c *fiber.Ctx) {
	rejectedRoute := a.cfg.GetRejectedRouteKey()

	a.Logger.Debug("setting redirect cookie", "key", rejectedRoute, "path", c.OriginalURL())

	c.Cookie(&fiber.Cookie{
		Name:     rejectedRoute,
		Value:    c.OriginalURL(),
		Expires:  time.Now().Add(time.Minute * 5),
		HTTPOnly: true,
		Secure:   a.cfg.GetSecureCookies(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (a *RouteAuthenticator) setCookieToken(c *fiber.Ctx, val string, duration time.Duration) {
	c.Cookie(&fiber.Cookie{
		Name:     a.cfg.GetContextKey(),
		Value:    val,
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   a.cfg.GetSecureCookies(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (a *RouteAuthenticator) cookieDel(c *fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   a.cfg.GetSecureCookies(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// Session waits for the request session within the resolve budget
func (a *RouteAuthenticator) Session(c *fiber.Ctx) Session {
	return AwaitSession(c, a.cfg.GetResolveTimeout())
}
