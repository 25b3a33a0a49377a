package webserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjo163/storefront/config"
	"github.com/bjo163/storefront/internal/apptest"
	"github.com/bjo163/storefront/internal/domain"
)

var registerOnce sync.Once

func newTestServer(t *testing.T) (*Server, http.Handler) {
	registerOnce.Do(func() {
		ApiGET("/ping", func(c echo.Context) error { return Ok(c, "pong") })
		UserGET("/whoami", func(c echo.Context) error { return Ok(c, GetIdentity(c)) })
		AdminGET("/secret", func(c echo.Context) error { return Ok(c, "granted") })
	})
	a := apptest.NewApp(t)
	require.NoError(t, a.Gate().Grant(context.Background(), "admin-1", domain.RoleAdmin))
	s := NewServer(a)
	return s, s.Echo()
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	var out ErrorResponse
	require.NoError(t, jsoniter.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func get(path string) *http.Request {
	return httptest.NewRequest(http.MethodGet, path, nil)
}

func TestPublicRoute(t *testing.T) {
	_, h := newTestServer(t)
	rec := apptest.Do(t, h, get("/api/ping"), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":"pong"}`, rec.Body.String())
}

func TestUserRouteRequiresToken(t *testing.T) {
	_, h := newTestServer(t)

	rec := apptest.Do(t, h, get("/api/whoami"), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "UNAUTHORIZED", body.Code)
	assert.Equal(t, map[string]interface{}{"redirect": "/auth"}, body.Details)

	req := get("/api/whoami")
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = apptest.Do(t, h, req, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_TOKEN", decodeError(t, rec).Code)

	rec = apptest.Do(t, h, get("/api/whoami"), "u-1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"user_id":"u-1","email":"u-1@example.com"}}`, rec.Body.String())
}

func TestAdminRouteAppliesGate(t *testing.T) {
	_, h := newTestServer(t)

	rec := apptest.Do(t, h, get("/api/secret"), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, map[string]interface{}{"redirect": "/auth"}, decodeError(t, rec).Details)

	rec = apptest.Do(t, h, get("/api/secret"), "u-1")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "FORBIDDEN", body.Code)
	assert.Equal(t, map[string]interface{}{"redirect": "/"}, body.Details)

	rec = apptest.Do(t, h, get("/api/secret"), "admin-1")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	_, h := newTestServer(t)
	rec := apptest.Do(t, h, get("/api/nope"), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Code)
}

func TestParsePagination(t *testing.T) {
	e := echo.New()
	cases := map[string][2]int{
		"/":                      {1, 20},
		"/?page=3&page_size=50":  {3, 50},
		"/?page=0&perPage=10":    {1, 10},
		"/?page=x&page_size=999": {1, 20},
	}
	for target, want := range cases {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
		page, size := ParsePagination(c)
		assert.Equal(t, want[0], page, target)
		assert.Equal(t, want[1], size, target)
	}
}

func TestStartRefusesDefaultSecret(t *testing.T) {
	s, _ := newTestServer(t)
	s.appCtx.Config().Auth.JwtSecret = config.DefaultJwtSecret

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Start(ctx), config.ErrInsecureSecret)
}
