// Package apptest builds a fully wired Application on an in-memory database
// for HTTP handler tests.
package apptest

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bjo163/storefront/config"
	"github.com/bjo163/storefront/internal/app"
	"github.com/bjo163/storefront/internal/auth"
	"github.com/bjo163/storefront/internal/dbtest"
	"github.com/bjo163/storefront/internal/storage"
)

const Secret = "test-secret"

// NewApp returns an Application with services on a fresh database and images
// stored under a temporary directory.
func NewApp(t testing.TB) *app.Application {
	t.Helper()
	cfg := config.DefaultAppConfig()
	cfg.System.Workdir = t.TempDir()
	cfg.Auth.JwtSecret = Secret
	cfg.Logger.FileEnable = false

	store, err := storage.NewLocalStore(cfg.GetStorageDir(), cfg.Storage.PublicURL)
	require.NoError(t, err)

	a := app.NewApplication(cfg)
	a.OverrideDB(dbtest.Open(t))
	a.OverrideStore(store)
	a.InitServices()
	return a
}

// Token signs a bearer token for userID
func Token(t testing.TB, userID string) string {
	t.Helper()
	token, err := auth.IssueToken(Secret, userID, userID+"@example.com", time.Hour)
	require.NoError(t, err)
	return token
}

// Do serves req on h, adding a bearer token when userID is not empty
func Do(t testing.TB, h http.Handler, req *http.Request, userID string) *httptest.ResponseRecorder {
	t.Helper()
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+Token(t, userID))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
