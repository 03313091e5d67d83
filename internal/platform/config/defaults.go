package config

import "time"

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			IP:         "0.0.0.0",
			Port:       8080,
			StaticDir:  "./web",
			SessionTTL: 30 * time.Minute,
		},
		Log: LogConfig{
			Level: "INFO",
			Dir:   "data/logs",
			File:  "playground.log",
		},
		SaaS: SaaSConfig{
			URL:     "https://api.identity-platform.example/v1/liveness/passive",
			Timeout: 60 * time.Second,
		},
		SDK: SDKConfig{
			Timeout: 10 * time.Second,
		},
		Ingest: IngestConfig{
			MaxFileSize:    10 * 1024 * 1024,
			MaxWidth:       8192,
			MaxHeight:      8192,
			MaxPixels:      40_000_000,
			AllowedFormats: []string{"jpg", "jpeg", "png", "bmp", "gif", "webp"},
		},
		Registry: RegistryConfig{
			Store: "memory",
			SQLite: RegistrySQLiteStore{
				DSN: "data/endpoints.db",
			},
			Redis: RegistryRedisStore{
				Prefix: "playground:endpoint:",
			},
		},
		Previews: PreviewConfig{
			MaxThumbnailEdge: 512,
		},
	}
}
