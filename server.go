package garden

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-garden/cache"
	"github.com/goliatone/go-garden/middleware/csrf"
	"github.com/goliatone/go-garden/middleware/ratelimit"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// ErrorView is rendered by the error handler
const ErrorView = "error"

// Server is the wired HTTP application
type Server struct {
	App      *fiber.App
	Auth     *RouteAuthenticator
	Sessions *SessionProvider
	Routes   *RouteTable
	Pages    *PageRenderer

	opts     *Options
	repo     RepositoryManager
	views    fiber.Views
	store    cache.Store
	routes   []RouteEntry
	limiter  *ratelimit.Limiter
	activity ActivitySink
	logger   Logger
}

// ServerOption configures a Server
type ServerOption func(*Server)

// WithViews replaces the embedded django views
func WithViews(v fiber.Views) ServerOption {
	return func(s *Server) {
		s.views = v
	}
}

// WithCacheStore sets the session cache
func WithCacheStore(store cache.Store) ServerOption {
	return func(s *Server) {
		s.store = store
	}
}

// WithSessionProvider replaces the token backed session provider
func WithSessionProvider(p *SessionProvider) ServerOption {
	return func(s *Server) {
		s.Sessions = p
	}
}

// WithRoutes replaces the default route table entries
func WithRoutes(entries ...RouteEntry) ServerOption {
	return func(s *Server) {
		s.routes = entries
	}
}

// WithServerActivitySink receives audit events, they are logged by default
func WithServerActivitySink(sink ActivitySink) ServerOption {
	return func(s *Server) {
		s.activity = sink
	}
}

func WithServerLogger(l Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer wires the authentication stack, the route table and the
// pages on a fiber app.
func NewServer(opts *Options, repo RepositoryManager, options ...ServerOption) (*Server, error) {
	s := &Server{
		opts:   opts,
		repo:   repo,
		store:  cache.Nop{},
		routes: DefaultRoutes(),
		logger: defaultLogger(),
	}
	for _, opt := range options {
		opt(s)
	}

	if s.activity == nil {
		s.activity = LogActivitySink(s.logger)
	}

	if err := repo.Validate(); err != nil {
		return nil, err
	}

	table, err := NewRouteTable(s.routes...)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "route table")
	}
	s.Routes = table

	if s.views == nil {
		s.views = NewViewEngine(false)
	}

	tokens := NewTokenService([]byte(opts.Auth.SigningKey), opts.Auth.Issuer, opts.Auth.Audience, s.logger)
	if s.Sessions == nil {
		validator := NewRotatingValidator(tokens, opts.Auth.Issuer, opts.Auth.Audience, s.logger, opts.Auth.PreviousSigningKeys...)
		s.Sessions = NewSessionProvider(validator, repo.Users(),
			WithSessionCache(s.store),
			WithLookupTimeout(opts.Auth.LookupTimeout),
			WithProviderLogger(s.logger),
		)
	}

	identities := NewUserProvider(repo.Users()).WithLogger(s.logger)
	auther := NewAuthenticator(identities, tokens, opts.Auth).WithLogger(s.logger)
	s.Auth = NewHTTPAuthenticator(auther, s.Sessions, opts.Auth).WithLogger(s.logger)

	s.Pages = NewPageRenderer(table, repo.Catalog(), repo.Gardens(),
		WithAppName(opts.Server.AppName),
		WithPageLogger(s.logger),
	)

	s.App = fiber.New(fiber.Config{
		AppName:               opts.Server.AppName,
		Views:                 s.views,
		ErrorHandler:          s.errorHandler,
		DisableStartupMessage: true,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          15 * time.Second,
	})

	s.routesSetup()
	return s, nil
}

func (s *Server) routesSetup() {
	app := s.App

	app.Use(requestid.New())
	app.Use(s.accessLog)
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))

	app.Get("/healthz", s.health)
	app.Use("/assets", filesystem.New(filesystem.Config{
		Root:   AssetsFS(),
		MaxAge: 3600,
	}))

	app.Use(s.Auth.Provide())

	if s.opts.CSRF.Enabled {
		app.Use(csrf.New(csrf.Config{
			SecureKey:  []byte(s.opts.CSRF.SecureKey),
			Expiration: s.opts.CSRF.Expiration,
		}))
	}

	var limit fiber.Handler
	if s.opts.RateLimit.Enabled {
		s.limiter = ratelimit.New(rate.Limit(s.opts.RateLimit.Rate), s.opts.RateLimit.Burst)
		limit = s.limiter.Handler()
	}

	controller := NewAuthController(
		WithRegistrar(NewRegistrar(s.repo, s.opts.Auth.PhoneRegion)),
		WithRouteAuthenticator(s.Auth),
		WithPages(s.Pages),
		WithControllerLogger(s.logger),
		WithDebug(strings.EqualFold(s.opts.Log.Level, "debug")),
		WithHashidUserIDs(s.opts.Auth.HashidUserIDs),
		WithActivitySink(s.activity),
	)
	RegisterAuthRoutes(app, controller, limit)

	guard := s.Auth.Guard()
	NewGardenController(s.repo.Gardens(), s.Pages).
		WithLogger(s.logger).
		WithActivitySink(s.activity).
		Register(app, guard)

	s.Routes.Mount(app, guard, s.Pages.Handler)
}

func (s *Server) health(c *fiber.Ctx) error {
	if err := s.repo.DB().PingContext(c.UserContext()); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) accessLog(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		status = StatusCode(asRichError(err))
	}

	s.logger.Info("request",
		"method", c.Method(),
		"path", c.Path(),
		"status", status,
		"latency", time.Since(start).String(),
		"request_id", c.Locals(requestid.ConfigDefault.ContextKey),
	)
	return err
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	richErr := asRichError(err)
	code := StatusCode(richErr)

	message := richErr.Message
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request failed",
			"path", c.Path(),
			"error", err,
			"category", richErr.Category,
			"text_code", richErr.TextCode,
		)
		message = utils.StatusMessage(code)
	}

	c.Status(code)
	if rerr := c.Render(ErrorView, fiber.Map{
		"page":      ErrorView,
		"title":     utils.StatusMessage(code),
		"status":    code,
		"message":   message,
		"text_code": richErr.TextCode,
		"path":      c.Path(),
	}); rerr != nil {
		return c.Status(code).SendString(message)
	}
	return nil
}

// asRichError classifies err, mapping fiber errors by their status
func asRichError(err error) *errors.Error {
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return errors.Wrap(err, categoryForStatus(fe.Code), fe.Message).WithCode(fe.Code)
	}

	return errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
		WithCode(errors.CodeInternal)
}

func categoryForStatus(code int) errors.Category {
	switch code {
	case fiber.StatusUnauthorized:
		return errors.CategoryAuth
	case fiber.StatusForbidden:
		return errors.CategoryAuthz
	case fiber.StatusNotFound:
		return errors.CategoryNotFound
	case fiber.StatusMethodNotAllowed:
		return errors.CategoryMethodNotAllowed
	case fiber.StatusConflict:
		return errors.CategoryConflict
	case fiber.StatusTooManyRequests:
		return errors.CategoryRateLimit
	case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity:
		return errors.CategoryBadInput
	}
	if code >= fiber.StatusInternalServerError {
		return errors.CategoryInternal
	}
	return errors.CategoryHandler
}

// Listen serves on the configured address until Shutdown
func (s *Server) Listen() error {
	s.logger.Info("server listening", "address", s.opts.Server.Address)
	return s.App.Listen(s.opts.Server.Address)
}

// Shutdown stops accepting connections and waits for in flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	defer s.Close()
	return s.App.ShutdownWithContext(ctx)
}

// Close releases background workers
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Close()
	}
}

// NewSessionCache builds the session cache for opts. The returned close
// function releases its resources.
func NewSessionCache(ctx context.Context, opts CacheOptions) (cache.Store, func() error, error) {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}

	switch opts.Driver {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr: opts.RedisAddr,
			DB:   opts.RedisDB,
		})
		store := cache.NewRedis(client, opts.RedisPrefix, ttl)
		if err := store.Ping(ctx); err != nil {
			client.Close()
			return nil, nil, errors.Wrap(err, errors.CategoryExternal, "redis session cache")
		}
		return store, client.Close, nil
	case "none":
		return cache.Nop{}, func() error { return nil }, nil
	default:
		store := cache.NewMemory(ttl, opts.Size)
		return store, store.Close, nil
	}
}
