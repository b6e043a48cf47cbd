// Package config provides configuration loading for the storefront binary.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
)

// Identity drivers.
const (
	IdentityLocal = "local"
	IdentityOIDC  = "oidc"
	IdentityNone  = "none"
)

// Config is the complete storefront configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Identity IdentityConfig `yaml:"identity"`
	Checkout CheckoutConfig `yaml:"checkout"`
	Session  SessionConfig  `yaml:"session"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr   string `yaml:"addr"`
	WebDir string `yaml:"web_dir"`
}

// StorageConfig selects the durable client storage backend.
type StorageConfig struct {
	// Driver is one of memory, postgres, redis.
	Driver        string        `yaml:"driver"`
	DatabaseURL   string        `yaml:"database_url"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	RedisPrefix   string        `yaml:"redis_prefix"`
	RedisTTL      time.Duration `yaml:"redis_ttl"`
}

// IdentityConfig selects the membership identity provider.
type IdentityConfig struct {
	// Driver is one of local, oidc, none.
	Driver       string        `yaml:"driver"`
	SessionTTL   time.Duration `yaml:"session_ttl"`
	OTPTTL       time.Duration `yaml:"otp_ttl"`
	Issuer       string        `yaml:"issuer"`
	ClientID     string        `yaml:"client_id"`
	ClientSecret string        `yaml:"client_secret"`
	RedirectURL  string        `yaml:"redirect_url"`
}

// CheckoutConfig configures order numbering.
type CheckoutConfig struct {
	BrandCode string `yaml:"brand_code"`
}

// SessionConfig configures client session lifetime.
type SessionConfig struct {
	IdleTTL       time.Duration `yaml:"idle_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	SecureCookies bool          `yaml:"secure_cookies"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a Config that runs entirely in memory.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:   ":8080",
			WebDir: "web",
		},
		Storage: StorageConfig{
			Driver:      StorageMemory,
			RedisPrefix: "storefront:",
		},
		Identity: IdentityConfig{
			Driver:     IdentityLocal,
			SessionTTL: 24 * time.Hour,
			OTPTTL:     5 * time.Minute,
		},
		Checkout: CheckoutConfig{
			BrandCode: "UCS",
		},
		Session: SessionConfig{
			IdleTTL:       2 * time.Hour,
			SweepInterval: 5 * time.Minute,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadFromFile loads configuration from a YAML file over the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Load reads path when non-empty, then applies environment overrides.
func Load(path string, getenv func(string) string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = LoadFromFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(getenv); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from environment variables that are set.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	str("ADDR", &c.Server.Addr)
	str("WEB_DIR", &c.Server.WebDir)
	str("STORAGE_DRIVER", &c.Storage.Driver)
	str("DATABASE_URL", &c.Storage.DatabaseURL)
	str("REDIS_ADDR", &c.Storage.RedisAddr)
	str("REDIS_PASSWORD", &c.Storage.RedisPassword)
	str("IDENTITY_DRIVER", &c.Identity.Driver)
	str("OIDC_ISSUER", &c.Identity.Issuer)
	str("OIDC_CLIENT_ID", &c.Identity.ClientID)
	str("OIDC_CLIENT_SECRET", &c.Identity.ClientSecret)
	str("OIDC_REDIRECT_URL", &c.Identity.RedirectURL)
	str("BRAND_CODE", &c.Checkout.BrandCode)
	str("LOG_LEVEL", &c.Log.Level)

	if v := getenv("SECURE_COOKIES"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SECURE_COOKIES: %w", err)
		}
		c.Session.SecureCookies = b
	}
	if v := getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REDIS_DB: %w", err)
		}
		c.Storage.RedisDB = n
	}
	if v := getenv("SESSION_IDLE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SESSION_IDLE_TTL: %w", err)
		}
		c.Session.IdleTTL = d
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageMemory:
	case StoragePostgres:
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("storage.database_url is required for the postgres driver")
		}
	case StorageRedis:
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("storage.redis_addr is required for the redis driver")
		}
		if c.Storage.RedisDB < 0 {
			return fmt.Errorf("storage.redis_db must not be negative")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	switch c.Identity.Driver {
	case IdentityLocal, IdentityNone:
	case IdentityOIDC:
		if c.Identity.Issuer == "" || c.Identity.ClientID == "" {
			return fmt.Errorf("identity.issuer and identity.client_id are required for the oidc driver")
		}
	default:
		return fmt.Errorf("unknown identity driver %q", c.Identity.Driver)
	}

	if c.Checkout.BrandCode == "" {
		return fmt.Errorf("checkout.brand_code is required")
	}
	if c.Session.IdleTTL <= 0 {
		return fmt.Errorf("session.idle_ttl must be positive")
	}
	if c.Session.SweepInterval <= 0 {
		return fmt.Errorf("session.sweep_interval must be positive")
	}
	return nil
}
