// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	API      APIConfig      `yaml:"api"`
	Session  SessionConfig  `yaml:"session"`
	Server   ServerConfig   `yaml:"server"`
	Redis    RedisConfig    `yaml:"redis"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// APIConfig describes the upstream CTF platform.
type APIConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	CacheBust bool          `yaml:"cache_bust"`
	UserAgent string        `yaml:"user_agent"`
}

type SessionConfig struct {
	Backend string `yaml:"backend"` // file, redis, postgres, memory
	File    string `yaml:"file"`
	Key     string `yaml:"key"`
}

type ServerConfig struct {
	Port                 string        `yaml:"port"`
	JWTSecret            string        `yaml:"jwt_secret"`
	CookieName           string        `yaml:"cookie_name"`
	SessionTTL           time.Duration `yaml:"session_ttl"`
	NotificationInterval time.Duration `yaml:"notification_interval"`
	SecureCookies        bool          `yaml:"secure_cookies"`
}

type RedisConfig struct {
	URL string `yaml:"url"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

const (
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

func Default() *Config {
	sessionFile := "session.json"
	if home, err := os.UserHomeDir(); err == nil {
		sessionFile = filepath.Join(home, ".ctfctl", "session.json")
	}
	return &Config{
		API: APIConfig{
			BaseURL:   "http://localhost:8080/api",
			Timeout:   10 * time.Second,
			CacheBust: true,
			UserAgent: "ctf-portal",
		},
		Session: SessionConfig{
			Backend: BackendFile,
			File:    sessionFile,
			Key:     "ctf_user",
		},
		Server: ServerConfig{
			Port:                 ":3000",
			CookieName:           "portal_session",
			SessionTTL:           24 * time.Hour,
			NotificationInterval: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file named by
// CTF_CONFIG, an optional .env file, and finally environment variables.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CTF_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	// .env is optional; a missing file is not an error
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("CTF_API_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("CTF_API_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid CTF_API_TIMEOUT: %w", err)
		}
		c.API.Timeout = d
	}
	if v := os.Getenv("CTF_API_CACHE_BUST"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid CTF_API_CACHE_BUST: %w", err)
		}
		c.API.CacheBust = b
	}
	if v := os.Getenv("CTF_SESSION_BACKEND"); v != "" {
		c.Session.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("CTF_SESSION_FILE"); v != "" {
		c.Session.File = v
	}
	if v := os.Getenv("CTF_REDIS_URL"); v != "" {
		c.Redis.URL = v
	}
	if v := os.Getenv("CTF_DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("CTF_SERVER_PORT"); v != "" {
		if !strings.HasPrefix(v, ":") {
			v = ":" + v
		}
		c.Server.Port = v
	}
	if v := os.Getenv("CTF_JWT_SECRET"); v != "" {
		c.Server.JWTSecret = v
	}
	if v := os.Getenv("CTF_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}

// Validate checks the settings every entry point depends on.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api base url is required")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api timeout must be positive, got %s", c.API.Timeout)
	}
	switch c.Session.Backend {
	case BackendFile:
		if c.Session.File == "" {
			return fmt.Errorf("session file path is required for the file backend")
		}
	case BackendRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("redis url is required for the redis session backend")
		}
	case BackendPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("database url is required for the postgres session backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown session backend %q", c.Session.Backend)
	}
	return nil
}

// ValidateServer adds the checks that only the portal needs.
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Server.JWTSecret == "" {
		return fmt.Errorf("server jwt secret is required (set CTF_JWT_SECRET)")
	}
	if c.Session.Backend != BackendRedis && c.Session.Backend != BackendPostgres {
		return fmt.Errorf("portal sessions need the redis or postgres backend, got %q", c.Session.Backend)
	}
	return nil
}
