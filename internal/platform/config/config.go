package config

import "time"

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	SaaS     SaaSConfig     `yaml:"saas"`
	SDK      SDKConfig      `yaml:"sdk"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Registry RegistryConfig `yaml:"registry"`
	Previews PreviewConfig  `yaml:"previews"`
}

type ServerConfig struct {
	IP        string `yaml:"ip"`
	Port      int    `yaml:"port"`
	StaticDir string `yaml:"static_dir"`
	// SessionTTL is how long an untouched caller session is kept.
	SessionTTL time.Duration `yaml:"session_ttl"`
}

type LogConfig struct {
	Level string `yaml:"log_level"`
	Dir   string `yaml:"log_dir"`
	File  string `yaml:"log_file"`
}

// SaaSConfig points at the hosted liveness service. APIKey is only a
// fallback: callers normally pass their own key with each request.
type SaaSConfig struct {
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

type SDKConfig struct {
	Timeout   time.Duration    `yaml:"timeout"`
	Endpoints []EndpointConfig `yaml:"endpoints"`
}

// EndpointConfig seeds the SDK endpoint registry on start.
type EndpointConfig struct {
	Tag     string            `yaml:"tag"`
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers,omitempty"`
}

type IngestConfig struct {
	MaxFileSize    int64    `yaml:"max_file_size"`
	MaxWidth       int      `yaml:"max_width"`
	MaxHeight      int      `yaml:"max_height"`
	MaxPixels      int64    `yaml:"max_pixels"`
	AllowedFormats []string `yaml:"allowed_formats"`
}

type RegistryConfig struct {
	Store  string              `yaml:"store"`
	SQLite RegistrySQLiteStore `yaml:"sqlite,omitempty"`
	Redis  RegistryRedisStore  `yaml:"redis,omitempty"`
}

type RegistrySQLiteStore struct {
	DSN string `yaml:"dsn"`
}

type RegistryRedisStore struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

type PreviewConfig struct {
	MaxThumbnailEdge int `yaml:"max_thumbnail_edge"`
}
