package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, 8080, cfg.Web.Port)
	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Equal(t, 365, cfg.Jobs.AdminLogRetentionDays)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	cfile := filepath.Join(dir, "storefront.yml")
	content := []byte(`
system:
  workdir: /tmp/sf
web:
  port: 9000
database:
  type: postgres
  name: shop
storage:
  type: sftp
  sftp:
    host: files.internal
`)
	require.NoError(t, os.WriteFile(cfile, content, 0o644))

	t.Setenv("STOREFRONT_WEB_PORT", "9100")
	t.Setenv("STOREFRONT_DB_DEBUG", "true")
	t.Setenv("STOREFRONT_WEB_CORS_ORIGINS", "https://a.example,https://b.example")

	cfg, err := LoadConfig(cfile)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/sf", cfg.System.Workdir)
	assert.Equal(t, 9100, cfg.Web.Port)
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, "shop", cfg.Database.Name)
	assert.True(t, cfg.Database.Debug)
	assert.Equal(t, "files.internal", cfg.Storage.SFTP.Host)
	assert.Equal(t, 22, cfg.Storage.SFTP.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Web.CorsOrigins)
	assert.Equal(t, "/tmp/sf/storage", cfg.GetStorageDir())
}

func TestInvalidEnvIntIgnored(t *testing.T) {
	t.Setenv("STOREFRONT_WEB_PORT", "not-a-port")
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Web.Port)
}

func TestCheckSecret(t *testing.T) {
	cfg := DefaultAppConfig()
	assert.ErrorIs(t, cfg.Auth.CheckSecret(), ErrInsecureSecret)

	cfg.Auth.JwtSecret = "  "
	assert.ErrorIs(t, cfg.Auth.CheckSecret(), ErrInsecureSecret)

	cfg.Auth.JwtSecret = "6f1c0e0b9d2a"
	assert.NoError(t, cfg.Auth.CheckSecret())
}
