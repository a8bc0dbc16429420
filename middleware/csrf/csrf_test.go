package csrf

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSecureKey() []byte {
	return []byte("0123456789abcdef0123456789abcdef")
}

func newTestApp(cfg Config) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(New(cfg))
	app.Get("/form", func(c *fiber.Ctx) error {
		return c.SendString(c.Locals(DefaultContextKey).(string))
	})
	app.Get("/field", func(c *fiber.Ctx) error {
		return c.SendString(c.Locals(DefaultFieldKey).(string))
	})
	app.Post("/form", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func fetchToken(t *testing.T, app *fiber.App) string {
	t.Helper()
	res, err := app.Test(httptest.NewRequest(http.MethodGet, "/form", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.NotEmpty(t, raw)
	return string(raw)
}

func postForm(t *testing.T, app *fiber.App, values url.Values) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/form", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	res, err := app.Test(req)
	require.NoError(t, err)
	return res
}

func TestStatelessTokenValidationSuccess(t *testing.T) {
	app := newTestApp(Config{SecureKey: newTestSecureKey()})
	token := fetchToken(t, app)

	res := postForm(t, app, url.Values{DefaultFormFieldName: {token}})
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestStatelessTokenFromHeader(t *testing.T) {
	app := newTestApp(Config{SecureKey: newTestSecureKey()})
	token := fetchToken(t, app)

	req := httptest.NewRequest(http.MethodPost, "/form", nil)
	req.Header.Set(DefaultHeaderName, token)
	res, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestStatelessTokenValidationMismatch(t *testing.T) {
	app := newTestApp(Config{SecureKey: newTestSecureKey()})

	res := postForm(t, app, url.Values{DefaultFormFieldName: {"invalid-token"}})
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
}

func TestStatelessTokenMissing(t *testing.T) {
	app := newTestApp(Config{SecureKey: newTestSecureKey()})

	res := postForm(t, app, url.Values{"name": {"fern"}})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestStatelessTokenSignedWithOtherKey(t *testing.T) {
	issuer := newTestApp(Config{SecureKey: newTestSecureKey()})
	token := fetchToken(t, issuer)

	verifier := newTestApp(Config{SecureKey: []byte("fedcba9876543210fedcba9876543210")})
	res := postForm(t, verifier, url.Values{DefaultFormFieldName: {token}})
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
}

func TestStatelessTokenBoundToSession(t *testing.T) {
	owner := "alice"
	app := newTestApp(Config{
		SecureKey:  newTestSecureKey(),
		SessionKey: func(c *fiber.Ctx) string { return owner },
	})
	token := fetchToken(t, app)

	owner = "mallory"
	res := postForm(t, app, url.Values{DefaultFormFieldName: {token}})
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
}

func TestStatelessTokenSessionKeyWithColons(t *testing.T) {
	app := newTestApp(Config{
		SecureKey:  newTestSecureKey(),
		SessionKey: func(c *fiber.Ctx) string { return "csrf_ip_2001:db8::1" },
	})
	token := fetchToken(t, app)

	res := postForm(t, app, url.Values{DefaultFormFieldName: {token}})
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestStatelessTokenExpired(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	cfg := Config{
		SecureKey:  newTestSecureKey(),
		Expiration: time.Hour,
		now:        func() time.Time { return now },
	}
	app := newTestApp(cfg)
	token := fetchToken(t, app)

	now = now.Add(2 * time.Hour)
	var captured error
	cfg.ErrorHandler = func(c *fiber.Ctx, err error) error {
		captured = err
		return c.SendStatus(fiber.StatusForbidden)
	}
	app = newTestApp(cfg)

	res := postForm(t, app, url.Values{DefaultFormFieldName: {token}})
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	assert.ErrorIs(t, captured, ErrTokenExpired)
}

func TestFieldLocal(t *testing.T) {
	app := newTestApp(Config{SecureKey: newTestSecureKey()})

	res, err := app.Test(httptest.NewRequest(http.MethodGet, "/field", nil))
	require.NoError(t, err)
	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	assert.Contains(t, string(raw), `<input type="hidden" name="_token" value="`)
}

func TestNextSkips(t *testing.T) {
	app := newTestApp(Config{
		SecureKey: newTestSecureKey(),
		Next:      func(c *fiber.Ctx) bool { return true },
	})

	res := postForm(t, app, url.Values{})
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestShortSecureKeyPanics(t *testing.T) {
	assert.Panics(t, func() {
		New(Config{SecureKey: []byte("short")})
	})
}

func TestGetExtractors(t *testing.T) {
	assert.Len(t, getExtractors("", "_token", "X-CSRF-Token"), 2)
	assert.Len(t, getExtractors("form:_csrf", "_token", "X-CSRF-Token"), 1)
	assert.Len(t, getExtractors("form:a, header:B, query:c", "_token", "X-CSRF-Token"), 2)
}
