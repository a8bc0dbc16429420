package garden

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	gconfig "github.com/goliatone/go-config/config"
	"github.com/goliatone/go-garden/cache"
)

const (
	// EnvPrefix prefixes every environment override
	EnvPrefix = "GARDEN_"
	// EnvDelimiter separates nested keys in environment names
	EnvDelimiter = "__"
)

// Options is the application configuration
type Options struct {
	Server    ServerOptions    `koanf:"server"`
	Auth      AuthOptions      `koanf:"auth"`
	Database  DatabaseOptions  `koanf:"database"`
	Cache     CacheOptions     `koanf:"cache"`
	RateLimit RateLimitOptions `koanf:"rate_limit"`
	CSRF      CSRFOptions      `koanf:"csrf"`
	Log       LogOptions       `koanf:"log"`
}

type ServerOptions struct {
	Address         string        `koanf:"address"`
	AppName         string        `koanf:"app_name"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Seed            bool          `koanf:"seed"`
}

// AuthOptions implements Config
type AuthOptions struct {
	SigningKey            string        `koanf:"signing_key"`
	PreviousSigningKeys   []string      `koanf:"previous_signing_keys"`
	ContextKey            string        `koanf:"context_key"`
	TokenExpiration       int           `koanf:"token_expiration"`
	ExtendedTokenDuration int           `koanf:"extended_token_duration"`
	TokenLookup           string        `koanf:"token_lookup"`
	AuthScheme            string        `koanf:"auth_scheme"`
	Issuer                string        `koanf:"issuer"`
	Audience              []string      `koanf:"audience"`
	RejectedRouteKey      string        `koanf:"rejected_route_key"`
	RejectedRouteDefault  string        `koanf:"rejected_route_default"`
	LoginPath             string        `koanf:"login_path"`
	ResolveTimeout        time.Duration `koanf:"resolve_timeout"`
	LookupTimeout         time.Duration `koanf:"lookup_timeout"`
	SecureCookies         bool          `koanf:"secure_cookies"`
	HashidUserIDs         bool          `koanf:"hashid_user_ids"`
	PhoneRegion           string        `koanf:"phone_region"`
}

type DatabaseOptions struct {
	DSN   string `koanf:"dsn"`
	Debug bool   `koanf:"debug"`
}

type CacheOptions struct {
	Driver      string        `koanf:"driver"`
	TTL         time.Duration `koanf:"ttl"`
	RedisAddr   string        `koanf:"redis_addr"`
	RedisDB     int           `koanf:"redis_db"`
	RedisPrefix string        `koanf:"redis_prefix"`
	Size        int           `koanf:"size"`
}

type RateLimitOptions struct {
	Enabled bool    `koanf:"enabled"`
	Rate    float64 `koanf:"rate"`
	Burst   int     `koanf:"burst"`
}

type CSRFOptions struct {
	Enabled    bool          `koanf:"enabled"`
	SecureKey  string        `koanf:"secure_key"`
	Expiration time.Duration `koanf:"expiration"`
}

type LogOptions struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// DefaultOptions returns a configuration usable for local development,
// the signing key excepted.
func DefaultOptions() *Options {
	return &Options{
		Server: ServerOptions{
			Address:         ":8572",
			AppName:         "garden",
			ShutdownTimeout: 10 * time.Second,
		},
		Auth: AuthOptions{
			ContextKey:            "garden_session",
			TokenExpiration:       24,
			ExtendedTokenDuration: 24 * 7,
			TokenLookup:           "cookie:garden_session,header:Authorization",
			AuthScheme:            "Bearer",
			Issuer:                "go-garden",
			Audience:              []string{"garden-web"},
			RejectedRouteKey:      "garden_rejected_route",
			RejectedRouteDefault:  "/",
			LoginPath:             "/login",
			ResolveTimeout:        1500 * time.Millisecond,
			LookupTimeout:         DefaultLookupTimeout,
			SecureCookies:         true,
			PhoneRegion:           "US",
		},
		Database: DatabaseOptions{
			DSN: "file:garden.db?cache=shared",
		},
		Cache: CacheOptions{
			Driver: "memory",
			TTL:    cache.DefaultTTL,
			Size:   cache.DefaultSize,
		},
		RateLimit: RateLimitOptions{
			Enabled: true,
			Rate:    1,
			Burst:   5,
		},
		CSRF: CSRFOptions{
			Enabled:    true,
			Expiration: 24 * time.Hour,
		},
		Log: LogOptions{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadOptions layers path (optional, yaml, json or toml) and the
// GARDEN_ environment on top of the defaults and validates the result.
// Environment keys use "__" between sections, GARDEN_AUTH__SIGNING_KEY
// sets auth.signing_key. Values of the form @file://path are replaced by
// the content of path, relative to the working directory.
func LoadOptions(path string) (*Options, error) {
	loaders := []gconfig.LoaderBuilder[*Options]{
		gconfig.EnvProvider[*Options](EnvPrefix, EnvDelimiter, gconfig.DefaultOrderFile+1),
	}
	if path != "" {
		loaders = append(loaders, gconfig.FileProvider[*Options](path, gconfig.DefaultOrderFile))
	}

	container, err := gconfig.New(DefaultOptions(),
		gconfig.WithoutDefualtConfigPath[*Options](),
		gconfig.WithLoader(loaders...),
	)
	if err != nil {
		return nil, err
	}

	if err := container.Load(context.Background()); err != nil {
		return nil, err
	}

	return container.Raw(), nil
}

// Validate checks the whole configuration
func (o Options) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.Server),
		validation.Field(&o.Auth),
		validation.Field(&o.Database),
		validation.Field(&o.Cache),
		validation.Field(&o.RateLimit),
		validation.Field(&o.CSRF),
		validation.Field(&o.Log),
	)
}

func (s ServerOptions) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Address, validation.Required),
	)
}

func (a AuthOptions) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.SigningKey, validation.Required, validation.Length(32, 0)),
		validation.Field(&a.ContextKey, validation.Required),
		validation.Field(&a.TokenExpiration, validation.Required, validation.Min(1)),
		validation.Field(&a.LoginPath, validation.Required, localPath),
		validation.Field(&a.RejectedRouteDefault, localPath),
		validation.Field(&a.ResolveTimeout, validation.Required),
	)
}

func (d DatabaseOptions) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.DSN, validation.Required),
	)
}

func (c CacheOptions) Validate() error {
	addrRules := []validation.Rule{}
	if c.Driver == "redis" {
		addrRules = append(addrRules, validation.Required)
	}
	return validation.ValidateStruct(&c,
		validation.Field(&c.Driver, validation.In("memory", "redis", "none")),
		validation.Field(&c.RedisAddr, addrRules...),
		validation.Field(&c.Size, validation.Min(0)),
	)
}

func (r RateLimitOptions) Validate() error {
	if !r.Enabled {
		return nil
	}
	return validation.ValidateStruct(&r,
		validation.Field(&r.Rate, validation.Required, validation.Min(0.001)),
		validation.Field(&r.Burst, validation.Required, validation.Min(1)),
	)
}

func (c CSRFOptions) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.SecureKey, validation.Length(32, 0)),
	)
}

func (l LogOptions) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In("trace", "debug", "info", "warn", "error")),
		validation.Field(&l.Format, validation.In("text", "json", "pretty")),
	)
}

var localPath = validation.NewStringRule(IsLocalPath, "must be a local path")

// IsLocalPath reports whether p is a same-origin absolute path
func IsLocalPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !strings.HasPrefix(p, "/\\")
}

func (a AuthOptions) GetSigningKey() string            { return a.SigningKey }
func (a AuthOptions) GetContextKey() string            { return a.ContextKey }
func (a AuthOptions) GetTokenExpiration() int          { return a.TokenExpiration }
func (a AuthOptions) GetExtendedTokenDuration() int    { return a.ExtendedTokenDuration }
func (a AuthOptions) GetTokenLookup() string           { return a.TokenLookup }
func (a AuthOptions) GetAuthScheme() string            { return a.AuthScheme }
func (a AuthOptions) GetIssuer() string                { return a.Issuer }
func (a AuthOptions) GetAudience() []string            { return a.Audience }
func (a AuthOptions) GetRejectedRouteKey() string      { return a.RejectedRouteKey }
func (a AuthOptions) GetRejectedRouteDefault() string  { return a.RejectedRouteDefault }
func (a AuthOptions) GetLoginPath() string             { return a.LoginPath }
func (a AuthOptions) GetResolveTimeout() time.Duration { return a.ResolveTimeout }
func (a AuthOptions) GetSecureCookies() bool           { return a.SecureCookies }

var _ Config = AuthOptions{}
