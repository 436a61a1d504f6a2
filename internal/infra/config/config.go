package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Piezometry PiezometryConfig `yaml:"piezometry"`
	Auth       AuthConfig       `yaml:"auth"`
	Export     ExportConfig     `yaml:"export"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address        string          `yaml:"address"`
	ReadTimeout    time.Duration   `yaml:"readTimeout"`
	WriteTimeout   time.Duration   `yaml:"writeTimeout"`
	AllowedOrigins []string        `yaml:"allowedOrigins"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
	Retry          RetryConfig     `yaml:"retry"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// RetryConfig configures best-effort retries for idempotent requests.
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseBackoff time.Duration `yaml:"baseBackoff"`
	Exclude     []string      `yaml:"exclude"`
}

// PiezometryConfig controls the classification service and its data sources.
type PiezometryConfig struct {
	APIBaseURL       string         `yaml:"apiBaseUrl"`
	APITimeout       time.Duration  `yaml:"apiTimeout"`
	Timezone         string         `yaml:"timezone"`
	DateLayout       string         `yaml:"dateLayout"`
	ExportDateLayout string         `yaml:"exportDateLayout"`
	CacheTTL         time.Duration  `yaml:"cacheTtl"`
	Valkey           ValkeyConfig   `yaml:"valkey"`
	Postgres         PostgresConfig `yaml:"postgres"`
}

// ValkeyConfig contains connection information for the reading cache.
type ValkeyConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Prefix  string `yaml:"prefix"`
}

// PostgresConfig contains DSN and pooling settings for the corporate views.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	Schema   string `yaml:"schema"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// AuthConfig controls single sign-on and session cookies.
type AuthConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Secret     string        `yaml:"secret"`
	SessionTTL time.Duration `yaml:"sessionTtl"`
	CookieName string        `yaml:"cookieName"`
	OIDC       OIDCConfig    `yaml:"oidc"`
}

// OIDCConfig holds the identity provider settings.
type OIDCConfig struct {
	IssuerURL            string   `yaml:"issuerUrl"`
	ClientID             string   `yaml:"clientId"`
	ClientSecret         string   `yaml:"clientSecret"`
	RedirectURL          string   `yaml:"redirectUrl"`
	Scopes               []string `yaml:"scopes"`
	UsernameClaim        string   `yaml:"usernameClaim"`
	LogoutURL            string   `yaml:"logoutUrl"`
	PostLoginRedirectURL string   `yaml:"postLoginRedirectUrl"`
}

// ExportConfig controls archiving of CSV exports.
type ExportConfig struct {
	S3 S3Config `yaml:"s3"`
	// Memory keeps archives in process when S3 is disabled. Local development only.
	Memory bool `yaml:"memory"`
}

// S3Config configures the S3-compatible export bucket.
type S3Config struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
}

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = parseBool(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.Burst = parsed
		}
	}
	if v := os.Getenv("HTTP_RETRY_ENABLED"); v != "" {
		cfg.HTTP.Retry.Enabled = parseBool(v)
	}
	if v := os.Getenv("HTTP_RETRY_MAX_ATTEMPTS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.Retry.MaxAttempts = parsed
		}
	}
	if v := os.Getenv("HTTP_RETRY_BASE_BACKOFF"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.HTTP.Retry.BaseBackoff = parsed
		}
	}

	if v := os.Getenv("PIEZOMETRY_API_BASE_URL"); v != "" {
		cfg.Piezometry.APIBaseURL = v
	}
	if v := os.Getenv("PIEZOMETRY_API_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Piezometry.APITimeout = parsed
		}
	}
	if v := os.Getenv("PIEZOMETRY_TIMEZONE"); v != "" {
		cfg.Piezometry.Timezone = v
	}
	if v := os.Getenv("PIEZOMETRY_DATE_LAYOUT"); v != "" {
		cfg.Piezometry.DateLayout = v
	}
	if v := os.Getenv("PIEZOMETRY_CACHE_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Piezometry.CacheTTL = parsed
		}
	}
	if v := os.Getenv("PIEZOMETRY_VALKEY_ENABLED"); v != "" {
		cfg.Piezometry.Valkey.Enabled = parseBool(v)
	}
	if v := os.Getenv("PIEZOMETRY_VALKEY_ADDR"); v != "" {
		cfg.Piezometry.Valkey.Addr = v
	}
	if v := os.Getenv("PIEZOMETRY_POSTGRES_DSN"); v != "" {
		cfg.Piezometry.Postgres.DSN = v
	}
	if v := os.Getenv("PIEZOMETRY_POSTGRES_SCHEMA"); v != "" {
		cfg.Piezometry.Postgres.Schema = v
	}
	if v := os.Getenv("PIEZOMETRY_POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Piezometry.Postgres.MaxConns = int32(parsed)
		}
	}

	if v := os.Getenv("AUTH_ENABLED"); v != "" {
		cfg.Auth.Enabled = parseBool(v)
	}
	if v := os.Getenv("AUTH_SECRET"); v != "" {
		cfg.Auth.Secret = v
	}
	if v := os.Getenv("AUTH_SESSION_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Auth.SessionTTL = parsed
		}
	}
	if v := os.Getenv("OIDC_ISSUER_URL"); v != "" {
		cfg.Auth.OIDC.IssuerURL = v
	}
	if v := os.Getenv("OIDC_CLIENT_ID"); v != "" {
		cfg.Auth.OIDC.ClientID = v
	}
	if v := os.Getenv("OIDC_CLIENT_SECRET"); v != "" {
		cfg.Auth.OIDC.ClientSecret = v
	}
	if v := os.Getenv("OIDC_REDIRECT_URL"); v != "" {
		cfg.Auth.OIDC.RedirectURL = v
	}
	if v := os.Getenv("OIDC_LOGOUT_URL"); v != "" {
		cfg.Auth.OIDC.LogoutURL = v
	}
	if v := os.Getenv("OIDC_POST_LOGIN_REDIRECT_URL"); v != "" {
		cfg.Auth.OIDC.PostLoginRedirectURL = v
	}

	if v := os.Getenv("EXPORT_MEMORY_ENABLED"); v != "" {
		cfg.Export.Memory = parseBool(v)
	}
	if v := os.Getenv("EXPORT_S3_ENABLED"); v != "" {
		cfg.Export.S3.Enabled = parseBool(v)
	}
	if v := os.Getenv("EXPORT_S3_ENDPOINT"); v != "" {
		cfg.Export.S3.Endpoint = v
	}
	if v := os.Getenv("EXPORT_S3_ACCESS_KEY"); v != "" {
		cfg.Export.S3.AccessKey = v
	}
	if v := os.Getenv("EXPORT_S3_SECRET_KEY"); v != "" {
		cfg.Export.S3.SecretKey = v
	}
	if v := os.Getenv("EXPORT_S3_BUCKET"); v != "" {
		cfg.Export.S3.Bucket = v
	}
	if v := os.Getenv("EXPORT_S3_REGION"); v != "" {
		cfg.Export.S3.Region = v
	}
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 120,
				Burst:             40,
			},
			Retry: RetryConfig{
				Enabled:     true,
				MaxAttempts: 3,
				BaseBackoff: 150 * time.Millisecond,
				Exclude: []string{
					"/api/piezometry/export",
				},
			},
		},
		Piezometry: PiezometryConfig{
			APIBaseURL:       "http://localhost:5000/api",
			APITimeout:       15 * time.Second,
			Timezone:         "Europe/Madrid",
			DateLayout:       "2/1/2006",
			CacheTTL:         5 * time.Minute,
			Valkey: ValkeyConfig{
				Prefix: "piezometry",
			},
			Postgres: PostgresConfig{
				Schema:   "sdew",
				MaxConns: 4,
			},
		},
		Auth: AuthConfig{
			SessionTTL: 8 * time.Hour,
			CookieName: "hydrotwin_session",
		},
		Export: ExportConfig{
			S3: S3Config{
				Bucket: "piezometry-exports",
			},
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if strings.TrimSpace(c.Piezometry.APIBaseURL) == "" && strings.TrimSpace(c.Piezometry.Postgres.DSN) == "" {
		return errors.New("piezometry.apiBaseUrl or piezometry.postgres.dsn must be set")
	}
	if c.Piezometry.Timezone != "" {
		if _, err := time.LoadLocation(c.Piezometry.Timezone); err != nil {
			return fmt.Errorf("piezometry.timezone: %w", err)
		}
	}
	if c.Piezometry.CacheTTL < 0 {
		return errors.New("piezometry.cacheTtl cannot be negative")
	}
	if c.Piezometry.Valkey.Enabled && strings.TrimSpace(c.Piezometry.Valkey.Addr) == "" {
		return errors.New("piezometry.valkey.addr cannot be empty when valkey cache is enabled")
	}
	if c.Auth.Enabled {
		if strings.TrimSpace(c.Auth.Secret) == "" {
			return errors.New("auth.secret cannot be empty when auth is enabled")
		}
		if strings.TrimSpace(c.Auth.OIDC.IssuerURL) == "" || strings.TrimSpace(c.Auth.OIDC.ClientID) == "" {
			return errors.New("auth.oidc.issuerUrl and auth.oidc.clientId are required when auth is enabled")
		}
		if strings.TrimSpace(c.Auth.OIDC.RedirectURL) == "" {
			return errors.New("auth.oidc.redirectUrl cannot be empty when auth is enabled")
		}
	}
	if c.Auth.SessionTTL < 0 {
		return errors.New("auth.sessionTtl cannot be negative")
	}
	if c.Export.S3.Enabled {
		if strings.TrimSpace(c.Export.S3.Endpoint) == "" || strings.TrimSpace(c.Export.S3.Bucket) == "" {
			return errors.New("export.s3.endpoint and export.s3.bucket are required when s3 export is enabled")
		}
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if c.HTTP.Retry.Enabled {
		if c.HTTP.Retry.MaxAttempts <= 0 {
			return errors.New("http.retry.maxAttempts must be positive")
		}
		if c.HTTP.Retry.BaseBackoff <= 0 {
			return errors.New("http.retry.baseBackoff must be positive")
		}
	}
	return nil
}

// Location resolves the configured timezone, UTC when unset.
func (c PiezometryConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func parseBool(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
