package jwtware_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-garden/middleware/jwtware"
)

func extractApp(lookup string) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	extractors := jwtware.GetExtractors(lookup, "Bearer")
	handler := func(c *fiber.Ctx) error {
		raw, err := jwtware.ExtractRawTokenFromContext(c, extractors)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).SendString(err.Error())
		}
		return c.SendString(raw)
	}
	app.Get("/t", handler)
	app.Get("/t/:token", handler)
	return app
}

func body(t *testing.T, res *http.Response) string {
	t.Helper()
	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return string(raw)
}

func TestExtract_Header(t *testing.T) {
	app := extractApp("header:Authorization")

	req := httptest.NewRequest(http.MethodGet, "/t", nil)
	req.Header.Set("Authorization", "Bearer abc.def.ghi")
	res, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "abc.def.ghi", body(t, res))
}

func TestExtract_HeaderWrongScheme(t *testing.T) {
	app := extractApp("header:Authorization")

	req := httptest.NewRequest(http.MethodGet, "/t", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	res, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, jwtware.ErrJWTMissingOrMalformed.Error(), body(t, res))
}

func TestExtract_CookieBeforeHeader(t *testing.T) {
	app := extractApp("cookie:garden_session,header:Authorization")

	req := httptest.NewRequest(http.MethodGet, "/t", nil)
	req.AddCookie(&http.Cookie{Name: "garden_session", Value: "from-cookie"})
	req.Header.Set("Authorization", "Bearer from-header")
	res, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, "from-cookie", body(t, res))
}

func TestExtract_FallsBackToHeader(t *testing.T) {
	app := extractApp("cookie:garden_session,header:Authorization")

	req := httptest.NewRequest(http.MethodGet, "/t", nil)
	req.Header.Set("Authorization", "Bearer from-header")
	res, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, "from-header", body(t, res))
}

func TestExtract_QueryAndParam(t *testing.T) {
	app := extractApp("query:auth_token,param:token")

	res, err := app.Test(httptest.NewRequest(http.MethodGet, "/t?auth_token=q-token", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "q-token", body(t, res))

	res, err = app.Test(httptest.NewRequest(http.MethodGet, "/t/p-token", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "p-token", body(t, res))
}

func TestExtract_Missing(t *testing.T) {
	app := extractApp("cookie:garden_session")

	res, err := app.Test(httptest.NewRequest(http.MethodGet, "/t", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestGetExtractors_SkipsUnknownSources(t *testing.T) {
	extractors := jwtware.GetExtractors("form:token, cookie:a ,header:, bogus")
	assert.Len(t, extractors, 1)
}

func TestGetExtractors_DefaultLookup(t *testing.T) {
	extractors := jwtware.GetExtractors("")
	assert.Len(t, extractors, 1)
}
