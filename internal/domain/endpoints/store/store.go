package store

import (
	"context"
	stderrors "errors"
	"time"
)

// ErrNotFound is returned by Get for an unknown tag.
var ErrNotFound = stderrors.New("endpoint not found")

// Record is one persisted SDK endpoint. Position keeps registry order.
type Record struct {
	Tag       string            `json:"tag"`
	URL       string            `json:"url"`
	Headers   map[string]string `json:"headers,omitempty"`
	Position  int               `json:"position"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// Store persists the endpoint list.
type Store interface {
	// Put inserts or replaces the record with the same tag.
	Put(ctx context.Context, rec Record) error
	Get(ctx context.Context, tag string) (Record, error)
	Remove(ctx context.Context, tag string) error
	// List returns all records ordered by Position.
	List(ctx context.Context) ([]Record, error)
	Close(ctx context.Context) error
}

// Config selects and tunes a driver.
type Config struct {
	Driver string
	SQLite *SQLiteConfig
	Redis  *RedisConfig
}

type SQLiteConfig struct {
	DSN string
}

type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}
