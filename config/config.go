package config

import (
	"os"
	"path"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// DBConfig Database configuration
type DBConfig struct {
	Type     string `yaml:"type"` // postgres or sqlite
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Passwd   string `yaml:"passwd"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConn  int    `yaml:"max_conn"`
	IdleConn int    `yaml:"idle_conn"`
	Debug    bool   `yaml:"debug"`
}

// SysConfig System configuration
type SysConfig struct {
	Appid    string `yaml:"appid"`
	Location string `yaml:"location"`
	Workdir  string `yaml:"workdir"`
	Debug    bool   `yaml:"debug"`
}

// WebConfig Web server configuration
type WebConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	CorsOrigins []string `yaml:"cors_origins"`
	BodyLimit   string   `yaml:"body_limit"`
}

// LogConfig Logging configuration
type LogConfig struct {
	Mode       string `yaml:"mode"`
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

// DefaultJwtSecret is the placeholder secret shipped in the defaults and the
// sample config. The server refuses to run with it.
const DefaultJwtSecret = "change-me"

var ErrInsecureSecret = errors.New("auth.jwt_secret is empty or still the default; set STOREFRONT_JWT_SECRET")

// AuthConfig Bearer token verification. Tokens are issued by the identity
// provider; this service only checks the signature.
type AuthConfig struct {
	JwtSecret      string `yaml:"jwt_secret"`
	TokenTTLHours  int    `yaml:"token_ttl_hours"`
	BootstrapAdmin string `yaml:"bootstrap_admin"` // user id granted the admin role at startup
}

// SFTPConfig remote object storage over SFTP. The server is verified with
// either a known_hosts file or a pinned authorized_keys style host key.
type SFTPConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	User       string `yaml:"user"`
	Passwd     string `yaml:"passwd"`
	Dir        string `yaml:"dir"`
	KnownHosts string `yaml:"known_hosts"`
	HostKey    string `yaml:"host_key"`
}

// StorageConfig Object storage for uploaded images
type StorageConfig struct {
	Type      string     `yaml:"type"` // local or sftp
	Root      string     `yaml:"root"`
	PublicURL string     `yaml:"public_url"`
	SFTP      SFTPConfig `yaml:"sftp"`
}

// CatalogConfig Catalog listing bounds. max_limit caps an explicit page
// size; listings without a limit return every match.
type CatalogConfig struct {
	MaxLimit int `yaml:"max_limit"`
}

// JobsConfig Periodic maintenance jobs
type JobsConfig struct {
	AdminLogRetentionDays int    `yaml:"admin_log_retention_days"`
	OrphanSweepSpec       string `yaml:"orphan_sweep_spec"`
}

// AppConfig Application configuration
type AppConfig struct {
	System   SysConfig     `yaml:"system"`
	Web      WebConfig     `yaml:"web"`
	Database DBConfig      `yaml:"database"`
	Logger   LogConfig     `yaml:"logger"`
	Auth     AuthConfig    `yaml:"auth"`
	Storage  StorageConfig `yaml:"storage"`
	Catalog  CatalogConfig `yaml:"catalog"`
	Jobs     JobsConfig    `yaml:"jobs"`
}

// CheckSecret rejects a token secret anyone could know
func (c *AuthConfig) CheckSecret() error {
	s := strings.TrimSpace(c.JwtSecret)
	if s == "" || s == DefaultJwtSecret {
		return ErrInsecureSecret
	}
	return nil
}

func (c *AppConfig) GetLogDir() string {
	return path.Join(c.System.Workdir, "logs")
}

func (c *AppConfig) GetDataDir() string {
	return path.Join(c.System.Workdir, "data")
}

func (c *AppConfig) GetStorageDir() string {
	if c.Storage.Root != "" {
		return c.Storage.Root
	}
	return path.Join(c.System.Workdir, "storage")
}

// DefaultAppConfig returns a configuration that runs a single node with an
// embedded sqlite database and local image storage.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		System: SysConfig{
			Appid:    "Storefront",
			Location: "Asia/Kolkata",
			Workdir:  "/var/storefront",
			Debug:    true,
		},
		Web: WebConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			CorsOrigins: []string{"*"},
			BodyLimit:   "16M",
		},
		Database: DBConfig{
			Type:     "sqlite",
			Host:     "127.0.0.1",
			Port:     5432,
			Name:     "storefront.db",
			User:     "postgres",
			Passwd:   "postgres",
			SSLMode:  "disable",
			MaxConn:  100,
			IdleConn: 10,
			Debug:    false,
		},
		Logger: LogConfig{
			Mode:       "development",
			FileEnable: true,
			Filename:   "/var/storefront/logs/storefront.log",
		},
		Auth: AuthConfig{
			JwtSecret:     DefaultJwtSecret,
			TokenTTLHours: 24,
		},
		Storage: StorageConfig{
			Type:      "local",
			PublicURL: "http://127.0.0.1:8080/storage",
			SFTP: SFTPConfig{
				Port: 22,
				Dir:  "/srv/storefront",
			},
		},
		Catalog: CatalogConfig{
			MaxLimit: 1000,
		},
		Jobs: JobsConfig{
			AdminLogRetentionDays: 365,
			OrphanSweepSpec:       "@every 1h",
		},
	}
}

// LoadConfig reads cfile (when it exists) over the defaults, then applies
// environment overrides. A .env file next to the working directory is loaded
// first so that overrides can live there in development.
func LoadConfig(cfile string) (*AppConfig, error) {
	_ = godotenv.Load()

	cfg := DefaultAppConfig()
	if cfile != "" {
		if _, err := os.Stat(cfile); err == nil {
			data, err := os.ReadFile(cfile)
			if err != nil {
				return nil, err
			}
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *AppConfig) {
	setEnvValue("STOREFRONT_SYSTEM_WORKER_DIR", &cfg.System.Workdir)
	setEnvValue("STOREFRONT_SYSTEM_LOCATION", &cfg.System.Location)
	setEnvBoolValue("STOREFRONT_SYSTEM_DEBUG", &cfg.System.Debug)

	setEnvValue("STOREFRONT_WEB_HOST", &cfg.Web.Host)
	setEnvIntValue("STOREFRONT_WEB_PORT", &cfg.Web.Port)
	if v := os.Getenv("STOREFRONT_WEB_CORS_ORIGINS"); v != "" {
		cfg.Web.CorsOrigins = strings.Split(v, ",")
	}

	setEnvValue("STOREFRONT_DB_TYPE", &cfg.Database.Type)
	setEnvValue("STOREFRONT_DB_HOST", &cfg.Database.Host)
	setEnvIntValue("STOREFRONT_DB_PORT", &cfg.Database.Port)
	setEnvValue("STOREFRONT_DB_NAME", &cfg.Database.Name)
	setEnvValue("STOREFRONT_DB_USER", &cfg.Database.User)
	setEnvValue("STOREFRONT_DB_PWD", &cfg.Database.Passwd)
	setEnvValue("STOREFRONT_DB_SSL_MODE", &cfg.Database.SSLMode)
	setEnvBoolValue("STOREFRONT_DB_DEBUG", &cfg.Database.Debug)

	setEnvValue("STOREFRONT_LOGGER_MODE", &cfg.Logger.Mode)
	setEnvBoolValue("STOREFRONT_LOGGER_FILE_ENABLE", &cfg.Logger.FileEnable)
	setEnvValue("STOREFRONT_LOGGER_FILENAME", &cfg.Logger.Filename)

	setEnvValue("STOREFRONT_JWT_SECRET", &cfg.Auth.JwtSecret)
	setEnvIntValue("STOREFRONT_TOKEN_TTL_HOURS", &cfg.Auth.TokenTTLHours)
	setEnvValue("STOREFRONT_BOOTSTRAP_ADMIN", &cfg.Auth.BootstrapAdmin)

	setEnvValue("STOREFRONT_STORAGE_TYPE", &cfg.Storage.Type)
	setEnvValue("STOREFRONT_STORAGE_ROOT", &cfg.Storage.Root)
	setEnvValue("STOREFRONT_STORAGE_PUBLIC_URL", &cfg.Storage.PublicURL)
	setEnvValue("STOREFRONT_SFTP_HOST", &cfg.Storage.SFTP.Host)
	setEnvIntValue("STOREFRONT_SFTP_PORT", &cfg.Storage.SFTP.Port)
	setEnvValue("STOREFRONT_SFTP_USER", &cfg.Storage.SFTP.User)
	setEnvValue("STOREFRONT_SFTP_PWD", &cfg.Storage.SFTP.Passwd)
	setEnvValue("STOREFRONT_SFTP_DIR", &cfg.Storage.SFTP.Dir)
	setEnvValue("STOREFRONT_SFTP_KNOWN_HOSTS", &cfg.Storage.SFTP.KnownHosts)
	setEnvValue("STOREFRONT_SFTP_HOST_KEY", &cfg.Storage.SFTP.HostKey)
}

func setEnvValue(name string, val *string) {
	var evalue = os.Getenv(name)
	if evalue != "" {
		*val = evalue
	}
}

func setEnvBoolValue(name string, val *bool) {
	var evalue = os.Getenv(name)
	if evalue != "" {
		*val = cast.ToBool(evalue)
	}
}

func setEnvIntValue(name string, val *int) {
	var evalue = os.Getenv(name)
	if evalue == "" {
		return
	}
	if p, err := cast.ToIntE(evalue); err == nil {
		*val = p
	}
}
