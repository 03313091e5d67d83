package store

import (
	"gorm.io/gorm"

	"liveness-playground/internal/platform/errors"
	"liveness-playground/internal/platform/storage"
)

const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Dependencies carries handles opened elsewhere.
type Dependencies struct {
	SQLiteDB *gorm.DB
}

// New creates a store for cfg.Driver. The sqlite driver opens cfg.SQLite.DSN
// itself when no handle is supplied.
func New(cfg Config, deps Dependencies) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverMemory
	}

	switch driver {
	case DriverMemory:
		return NewMemory(), nil
	case DriverSQLite:
		db := deps.SQLiteDB
		owned := false
		if db == nil {
			if cfg.SQLite == nil || cfg.SQLite.DSN == "" {
				return nil, errors.New(errors.KindConfig, "endpoint_store.new", "sqlite driver requires a dsn or database handle")
			}
			var err error
			if db, err = storage.Open(cfg.SQLite.DSN); err != nil {
				return nil, err
			}
			owned = true
		}
		return NewSQLite(db, owned)
	case DriverRedis:
		return NewRedis(cfg)
	default:
		return nil, errors.Newf(errors.KindConfig, "endpoint_store.new", "unsupported endpoint store driver: %s", driver)
	}
}
