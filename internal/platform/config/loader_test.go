package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) (string, bool) { return "", false }

func TestLoader_Load(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), ".config.yaml")

	configContent := `
server:
  ip: "127.0.0.1"
  port: 9090
log:
  log_level: "DEBUG"
saas:
  url: "https://saas.test/liveness"
  timeout: 15s
sdk:
  timeout: 5s
  endpoints:
    - tag: local
      url: http://localhost:9000
`
	require.NoError(t, os.WriteFile(configFile, []byte(configContent), 0o644))

	res, err := NewLoader().WithPath(configFile).WithDotEnv(false).WithEnv(noEnv).Load()
	require.NoError(t, err)

	cfg := res.Config
	assert.Equal(t, configFile, res.Path)
	assert.Equal(t, "127.0.0.1", cfg.Server.IP)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "DEBUG", cfg.Log.Level)
	assert.Equal(t, 15*time.Second, cfg.SaaS.Timeout)
	assert.Equal(t, 5*time.Second, cfg.SDK.Timeout)
	require.Len(t, cfg.SDK.Endpoints, 1)
	assert.Equal(t, "local", cfg.SDK.Endpoints[0].Tag)
	// untouched sections keep their defaults
	assert.Equal(t, "memory", cfg.Registry.Store)
	assert.Contains(t, cfg.Ingest.AllowedFormats, "webp")
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	res, err := NewLoader().
		WithPath(filepath.Join(t.TempDir(), "absent.yaml")).
		WithDotEnv(false).
		WithEnv(noEnv).
		Load()
	require.NoError(t, err)
	assert.Equal(t, "defaults", res.Path)
	assert.Equal(t, 8080, res.Config.Server.Port)
	assert.Equal(t, 10*time.Second, res.Config.SDK.Timeout)
}

func TestLoader_EnvOverrides(t *testing.T) {
	env := map[string]string{
		"PLAYGROUND_SERVER_PORT":  "7000",
		"PLAYGROUND_SAAS_API_KEY": "secret",
		"PLAYGROUND_SAAS_TIMEOUT": "2m",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	res, err := NewLoader().
		WithPath(filepath.Join(t.TempDir(), "absent.yaml")).
		WithDotEnv(false).
		WithEnv(lookup).
		Load()
	require.NoError(t, err)
	assert.Equal(t, 7000, res.Config.Server.Port)
	assert.Equal(t, "secret", res.Config.SaaS.APIKey)
	assert.Equal(t, 2*time.Minute, res.Config.SaaS.Timeout)

	env["PLAYGROUND_SERVER_PORT"] = "not-a-port"
	_, err = NewLoader().WithPath(filepath.Join(t.TempDir(), "absent.yaml")).WithDotEnv(false).WithEnv(lookup).Load()
	assert.Error(t, err)
}

func TestLoader_Validate(t *testing.T) {
	loader := NewLoader()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"invalid server port", func(c *Config) { c.Server.Port = 70000 }, true},
		{"zero sdk timeout", func(c *Config) { c.SDK.Timeout = 0 }, true},
		{"negative saas timeout", func(c *Config) { c.SaaS.Timeout = -time.Second }, true},
		{"unknown store", func(c *Config) { c.Registry.Store = "etcd" }, true},
		{"redis without addr", func(c *Config) { c.Registry.Store = "redis" }, true},
		{"redis with addr", func(c *Config) {
			c.Registry.Store = "redis"
			c.Registry.Redis.Addr = "localhost:6379"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := loader.validate(cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
