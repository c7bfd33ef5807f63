package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is stripped from environment variables before they are mapped
// onto config keys. VA_WATSON__API_KEY sets watson.api_key.
const EnvPrefix = "VA_"

type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Log        LogConfig        `koanf:"log"`
	Assistant  AssistantConfig  `koanf:"assistant"`
	Watson     WatsonConfig     `koanf:"watson"`
	Session    SessionConfig    `koanf:"session"`
	Lightspeed LightspeedConfig `koanf:"lightspeed"`
	Platform   PlatformConfig   `koanf:"platform"`
	Tracing    TracingConfig    `koanf:"tracing"`
}

type ServerConfig struct {
	Port    int           `koanf:"port"`
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`
}

type LogConfig struct {
	Level string `koanf:"level"` // debug, info, warn, error
}

type AssistantConfig struct {
	Type string `koanf:"type"` // echo, watson
}

type WatsonConfig struct {
	APIURL        string        `koanf:"api_url"`
	APIKey        string        `koanf:"api_key"`
	IAMURL        string        `koanf:"iam_url"`
	AssistantID   string        `koanf:"assistant_id"`
	EnvironmentID string        `koanf:"environment_id"`
	Version       string        `koanf:"version"`
	Draft         bool          `koanf:"draft"`
	Timeout       time.Duration `koanf:"timeout"`
}

type SessionConfig struct {
	Storage       string        `koanf:"storage"` // memory, sqlite, file, redis
	TTL           time.Duration `koanf:"ttl"`
	SQLitePath    string        `koanf:"sqlite_path"`
	FilePath      string        `koanf:"file_path"`
	RedisAddr     string        `koanf:"redis_addr"`
	RedisPassword string        `koanf:"redis_password"`
	RedisDB       int           `koanf:"redis_db"`
}

type LightspeedConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`
	Command string `koanf:"command"`
	Param   string `koanf:"param"`
}

type PlatformConfig struct {
	Request         string        `koanf:"request"` // platform, sa, dev
	Proxy           string        `koanf:"proxy"`
	Timeout         time.Duration `koanf:"timeout"`
	SAClientID      string        `koanf:"sa_id"`
	SAClientSecret  string        `koanf:"sa_secret"`
	SATokenURL      string        `koanf:"sa_token_url"`
	DevOfflineToken string        `koanf:"dev_offline_token"`
	DevRefreshURL   string        `koanf:"dev_refresh_url"`
}

type TracingConfig struct {
	Enabled bool `koanf:"enabled"`
}

const ssoTokenURL = "https://sso.redhat.com/auth/realms/redhat-external/protocol/openid-connect/token"

var defaults = map[string]any{
	"server.port":              5000,
	"server.base_url":          "/api/virtual-assistant/v2",
	"server.timeout":           "30s",
	"log.level":                "info",
	"assistant.type":           "echo",
	"watson.iam_url":           "https://iam.cloud.ibm.com/identity/token",
	"watson.version":           "2024-08-25",
	"watson.timeout":           "20s",
	"session.storage":          "memory",
	"session.ttl":              "24h",
	"session.sqlite_path":      "./data/sessions.db",
	"session.file_path":        "./data/sessions",
	"session.redis_addr":       "localhost:6379",
	"lightspeed.command":       "lightspeed",
	"lightspeed.param":         "rhel",
	"platform.request":         "platform",
	"platform.timeout":         "30s",
	"platform.sa_token_url":    ssoTokenURL,
	"platform.dev_refresh_url": ssoTokenURL,
}

// Load reads path (if it exists) and then environment variables, which take
// precedence over the file. An empty path skips the file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	for key, val := range defaults {
		if err := k.Set(key, val); err != nil {
			return nil, err
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			// File not found is OK, we'll use env vars
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("load %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, err
	}

	// HTTPS_PROXY is honoured without the prefix, matching other platform services.
	if !k.Exists("platform.proxy") {
		if proxy := os.Getenv("HTTPS_PROXY"); proxy != "" {
			_ = k.Set("platform.proxy", proxy)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	cfg.Server.BaseURL = "/" + strings.Trim(cfg.Server.BaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that every selected backend has the settings it needs.
func (c *Config) Validate() error {
	var errs []error

	switch c.Assistant.Type {
	case "echo":
	case "watson":
		if c.Watson.APIURL == "" {
			errs = append(errs, errors.New("watson.api_url is required"))
		}
		if c.Watson.APIKey == "" {
			errs = append(errs, errors.New("watson.api_key is required"))
		}
		if c.Watson.EnvironmentID == "" {
			errs = append(errs, errors.New("watson.environment_id is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("assistant.type %q must be echo or watson", c.Assistant.Type))
	}

	switch c.Session.Storage {
	case "memory":
	case "sqlite":
		if c.Session.SQLitePath == "" {
			errs = append(errs, errors.New("session.sqlite_path is required"))
		}
	case "file":
		if c.Session.FilePath == "" {
			errs = append(errs, errors.New("session.file_path is required"))
		}
	case "redis":
		if c.Session.RedisAddr == "" {
			errs = append(errs, errors.New("session.redis_addr is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("session.storage %q must be memory, sqlite, file or redis", c.Session.Storage))
	}

	if c.Lightspeed.Enabled && c.Lightspeed.URL == "" {
		errs = append(errs, errors.New("lightspeed.url is required when lightspeed is enabled"))
	}

	switch c.Platform.Request {
	case "platform":
	case "sa":
		if c.Platform.SAClientID == "" || c.Platform.SAClientSecret == "" {
			errs = append(errs, errors.New("platform.sa_id and platform.sa_secret are required"))
		}
	case "dev":
		if c.Platform.DevOfflineToken == "" {
			errs = append(errs, errors.New("platform.dev_offline_token is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("platform.request %q must be platform, sa or dev", c.Platform.Request))
	}

	return errors.Join(errs...)
}
