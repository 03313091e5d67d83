package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"liveness-playground/internal/platform/errors"
)

const (
	DefaultPath = ".config.yaml"
	envPrefix   = "PLAYGROUND_"
)

// Loader reads the YAML config file, then applies environment overrides.
type Loader struct {
	path      string
	useDotEnv bool
	lookupEnv func(string) (string, bool)
}

func NewLoader() *Loader {
	return &Loader{
		path:      DefaultPath,
		useDotEnv: true,
		lookupEnv: os.LookupEnv,
	}
}

// WithPath overrides the config file location.
func (l *Loader) WithPath(path string) *Loader {
	if path != "" {
		l.path = path
	}
	return l
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithEnv replaces the environment lookup (useful for tests).
func (l *Loader) WithEnv(lookup func(string) (string, bool)) *Loader {
	if lookup != nil {
		l.lookupEnv = lookup
	}
	return l
}

// Result captures the loaded configuration and where it came from.
type Result struct {
	Config *Config
	Path   string
}

// Load builds the configuration. A missing file is not an error: defaults
// plus environment overrides are used instead.
func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		// .env is optional
		_ = godotenv.Load()
	}

	cfg := DefaultConfig()
	source := "defaults"

	data, err := os.ReadFile(l.path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(errors.KindConfig, "config.load", "failed to parse "+l.path, err)
		}
		source = l.path
	case !os.IsNotExist(err):
		return nil, errors.Wrap(errors.KindConfig, "config.load", "failed to read "+l.path, err)
	}

	if err := l.applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := l.validate(cfg); err != nil {
		return nil, err
	}

	return &Result{Config: cfg, Path: source}, nil
}

func (l *Loader) env(key string) (string, bool) {
	value, ok := l.lookupEnv(envPrefix + key)
	if !ok || strings.TrimSpace(value) == "" {
		return "", false
	}
	return strings.TrimSpace(value), true
}

func (l *Loader) applyEnv(cfg *Config) error {
	if v, ok := l.env("SERVER_IP"); ok {
		cfg.Server.IP = v
	}
	if v, ok := l.env("SERVER_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(errors.KindConfig, "config.env", "invalid "+envPrefix+"SERVER_PORT", err)
		}
		cfg.Server.Port = port
	}
	if v, ok := l.env("LOG_LEVEL"); ok {
		cfg.Log.Level = v
	}
	if v, ok := l.env("SAAS_URL"); ok {
		cfg.SaaS.URL = v
	}
	if v, ok := l.env("SAAS_API_KEY"); ok {
		cfg.SaaS.APIKey = v
	}
	if v, ok := l.env("SAAS_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrap(errors.KindConfig, "config.env", "invalid "+envPrefix+"SAAS_TIMEOUT", err)
		}
		cfg.SaaS.Timeout = d
	}
	if v, ok := l.env("REGISTRY_STORE"); ok {
		cfg.Registry.Store = v
	}
	if v, ok := l.env("REDIS_ADDR"); ok {
		cfg.Registry.Redis.Addr = v
	}
	return nil
}

func (l *Loader) validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return errors.Newf(errors.KindConfig, "config.validate", "invalid server port: %d", cfg.Server.Port)
	}
	if cfg.SDK.Timeout <= 0 {
		return errors.New(errors.KindConfig, "config.validate", "sdk timeout must be positive")
	}
	if cfg.Server.SessionTTL < 0 {
		return errors.New(errors.KindConfig, "config.validate", "session ttl must not be negative")
	}
	if cfg.SaaS.Timeout < 0 {
		return errors.New(errors.KindConfig, "config.validate", "saas timeout must not be negative")
	}
	switch strings.ToLower(cfg.Registry.Store) {
	case "", "memory", "sqlite":
	case "redis":
		if cfg.Registry.Redis.Addr == "" {
			return errors.New(errors.KindConfig, "config.validate", "redis registry requires an address")
		}
	default:
		return errors.New(errors.KindConfig, "config.validate", fmt.Sprintf("unknown registry store %q", cfg.Registry.Store))
	}
	return nil
}
