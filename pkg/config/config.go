package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// EnvProduction is the environment name in which development-only switches are refused.
const EnvProduction = "production"

// Config holds all configuration for aihub.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3443"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	Version  string `yaml:"-"`                                      // Set at load time, not from config

	// TLS configuration (optional - if both provided, server uses HTTPS)
	TLSCertPath string `yaml:"tls_cert_path" env:"TLS_CERT_PATH" env-default:""`
	TLSKeyPath  string `yaml:"tls_key_path" env:"TLS_KEY_PATH" env-default:""`

	// RequestTimeout bounds every API request, including storage and object-store calls.
	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT" env-default:"15s"`

	// CookieDomain is the domain for auth cookies (optional).
	// If empty, it will be auto-derived from BaseURL.
	CookieDomain string `yaml:"cookie_domain" env:"COOKIE_DOMAIN" env-default:""`

	Auth          AuthConfig          `yaml:"auth"`
	OAuth         OAuthConfig         `yaml:"oauth"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Storage       StorageConfig       `yaml:"storage"`
	Cache         CacheConfig         `yaml:"cache"`
	Logging       LoggingConfig       `yaml:"logging"`
	Observability ObservabilityConfig `yaml:"observability"`

	// SessionSecret signs the OAuth state cookie and the CSRF token.
	SessionSecret string `yaml:"-" env:"SESSION_SECRET"` // Secret - not in YAML
}

// OAuthConfig holds OAuth client configuration for the identity provider.
type OAuthConfig struct {
	// ClientID is the OAuth client ID registered with the identity provider.
	ClientID string `yaml:"client_id" env:"OAUTH_CLIENT_ID" env-default:"aihub"`
	// AuthServerURL is the identity provider base URL (authorize and token endpoints).
	AuthServerURL string `yaml:"auth_server_url" env:"AUTH_SERVER_URL" env-default:""`
}

// AuthConfig holds authentication-related configuration.
type AuthConfig struct {
	// EnableVerification controls whether JWT tokens are validated.
	// Set to false for local development without an identity provider.
	EnableVerification bool `yaml:"enable_verification" env:"AUTH_ENABLE_VERIFICATION" env-default:"true"`

	// JWKSEndpointsStr is a comma-separated list of issuer=jwks_url pairs.
	// Format: "issuer1=url1,issuer2=url2"
	JWKSEndpointsStr string `yaml:"jwks_endpoints" env:"JWKS_ENDPOINTS" env-default:""`

	// JWKSEndpoints is the parsed map from JWKSEndpointsStr (not from config file).
	JWKSEndpoints map[string]string `yaml:"-"`

	// Audience, when set, is required in the aud claim of every verified token.
	Audience string `yaml:"audience" env:"AUTH_AUDIENCE" env-default:""`

	// AllowedDomain is the organization email domain accepted at sign-in.
	AllowedDomain string `yaml:"allowed_domain" env:"AUTH_ALLOWED_DOMAIN" env-default:""`

	// AllowedEmailsStr is a comma-separated list of individually allowed addresses.
	AllowedEmailsStr string `yaml:"allowed_emails" env:"AUTH_ALLOWED_EMAILS" env-default:""`

	// AllowedEmails is the parsed list from AllowedEmailsStr (not from config file).
	AllowedEmails []string `yaml:"-"`

	// AllowRoleOverride enables the view-role cookie outside production.
	// Never honored when Env is production.
	AllowRoleOverride bool `yaml:"allow_role_override" env:"AUTH_ALLOW_ROLE_OVERRIDE" env-default:"false"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"aihub"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"aihub"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// RedisConfig holds Redis configuration. Redis is optional; an empty host disables it.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// StorageConfig selects and configures the blob store used for uploads.
type StorageConfig struct {
	// Backend is "local" or "s3".
	Backend      string        `yaml:"backend" env:"STORAGE_BACKEND" env-default:"local"`
	LocalDir     string        `yaml:"local_dir" env:"STORAGE_LOCAL_DIR" env-default:"./data/uploads"`
	SignedURLTTL time.Duration `yaml:"signed_url_ttl" env:"STORAGE_SIGNED_URL_TTL" env-default:"15m"`

	// SigningKey signs local download URLs.
	SigningKey string `yaml:"-" env:"UPLOAD_SIGNING_KEY"` // Secret - not in YAML

	S3Endpoint  string `yaml:"s3_endpoint" env:"S3_ENDPOINT" env-default:""`
	S3Bucket    string `yaml:"s3_bucket" env:"S3_BUCKET" env-default:"submissions"`
	S3Region    string `yaml:"s3_region" env:"S3_REGION" env-default:"us-east-1"`
	S3UseSSL    bool   `yaml:"s3_use_ssl" env:"S3_USE_SSL" env-default:"true"`
	S3AccessKey string `yaml:"s3_access_key" env:"S3_ACCESS_KEY" env-default:""`
	S3SecretKey string `yaml:"-" env:"S3_SECRET_KEY"` // Secret - not in YAML

	// UploadsPerMinute limits uploads per user when Redis is configured. 0 disables the limit.
	UploadsPerMinute int `yaml:"uploads_per_minute" env:"UPLOADS_PER_MINUTE" env-default:"10"`
}

// CacheConfig holds cache TTLs.
type CacheConfig struct {
	LeaderboardTTL time.Duration `yaml:"leaderboard_ttl" env:"CACHE_LEADERBOARD_TTL" env-default:"60s"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	// File enables rotating file output in addition to stderr when non-empty.
	File       string `yaml:"file" env:"LOG_FILE" env-default:""`
	MaxSizeMB  int    `yaml:"max_size_mb" env:"LOG_MAX_SIZE_MB" env-default:"50"`
	MaxBackups int    `yaml:"max_backups" env:"LOG_MAX_BACKUPS" env-default:"7"`
	MaxAgeDays int    `yaml:"max_age_days" env:"LOG_MAX_AGE_DAYS" env-default:"14"`
}

// ObservabilityConfig controls metrics and tracing.
type ObservabilityConfig struct {
	MetricsEnabled bool   `yaml:"metrics_enabled" env:"METRICS_ENABLED" env-default:"true"`
	TracingEnabled bool   `yaml:"tracing_enabled" env:"TRACING_ENABLED" env-default:"false"`
	ServiceName    string `yaml:"service_name" env:"OTEL_SERVICE_NAME" env-default:"aihub"`
	ServerTiming   bool   `yaml:"server_timing" env:"SERVER_TIMING" env-default:"true"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
// Secrets (PGPASSWORD, SESSION_SECRET, UPLOAD_SIGNING_KEY, S3_SECRET_KEY,
// REDIS_PASSWORD) must come from environment variables (yaml:"-" fields).
func Load(version string) (*Config, error) {
	return LoadFile("config.yaml", version)
}

// LoadFile is Load with an explicit config path.
func LoadFile(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	cfg.parseComplexFields()

	if err := cfg.validateTLS(); err != nil {
		return nil, fmt.Errorf("invalid TLS configuration: %w", err)
	}

	if err := cfg.validateStorage(); err != nil {
		return nil, fmt.Errorf("invalid storage configuration: %w", err)
	}

	cfg.resolveServiceHosts()

	// Use HTTPS scheme if TLS is configured
	if cfg.BaseURL == "" {
		scheme := "http"
		if cfg.TLSCertPath != "" {
			scheme = "https"
		}
		cfg.BaseURL = (&url.URL{
			Scheme: scheme,
			Host:   "localhost:" + cfg.Port,
		}).String()
	}

	return cfg, nil
}

// RoleOverrideAllowed reports whether the view-role cookie may be honored.
func (c *Config) RoleOverrideAllowed() bool {
	return c.Auth.AllowRoleOverride && c.Env != EnvProduction
}

func (c *Config) parseComplexFields() {
	c.Auth.JWKSEndpoints = parseJWKSEndpoints(c.Auth.JWKSEndpointsStr)
	c.Auth.AllowedEmails = parseList(c.Auth.AllowedEmailsStr)
	c.Auth.AllowedDomain = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c.Auth.AllowedDomain), "@"))
}

// validateTLS ensures TLS configuration is valid if provided.
// Both cert and key must be provided together, and files must exist.
func (c *Config) validateTLS() error {
	certSet := c.TLSCertPath != ""
	keySet := c.TLSKeyPath != ""

	if certSet != keySet {
		return fmt.Errorf("both tls_cert_path and tls_key_path must be provided together")
	}

	if certSet {
		if _, err := os.Stat(c.TLSCertPath); err != nil {
			return fmt.Errorf("TLS cert file does not exist: %w", err)
		}
		if _, err := os.Stat(c.TLSKeyPath); err != nil {
			return fmt.Errorf("TLS key file does not exist: %w", err)
		}
	}

	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case "local":
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("storage.local_dir is required for the local backend")
		}
	case "s3":
		if c.Storage.S3Endpoint == "" || c.Storage.S3Bucket == "" {
			return fmt.Errorf("storage.s3_endpoint and storage.s3_bucket are required for the s3 backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Storage.SignedURLTTL <= 0 {
		return fmt.Errorf("storage.signed_url_ttl must be positive")
	}
	return nil
}

// parseJWKSEndpoints parses the JWKS endpoints string into a map.
// Format: "issuer1=url1,issuer2=url2"
func parseJWKSEndpoints(value string) map[string]string {
	endpoints := make(map[string]string)
	if value == "" {
		return endpoints
	}

	pairs := strings.Split(value, ",")
	for _, pair := range pairs {
		parts := strings.Split(pair, "=")
		if len(parts) == 2 {
			endpoints[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return endpoints
}

func parseList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		item = strings.ToLower(strings.TrimSpace(item))
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// ConnectionString returns a PostgreSQL connection URL.
func (c *DatabaseConfig) ConnectionString() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     c.Database,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}
