package storage

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"liveness-playground/internal/platform/errors"
	"liveness-playground/internal/platform/storage/migrations"
)

// SDKEndpoint is the persisted form of one registered SDK endpoint.
type SDKEndpoint struct {
	ID        uint           `gorm:"primaryKey"`
	Tag       string         `gorm:"type:varchar(64);uniqueIndex;not null"`
	URL       string         `gorm:"type:varchar(2048);not null"`
	Headers   datatypes.JSON `gorm:""`
	Position  int            `gorm:"index;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (SDKEndpoint) TableName() string {
	return "sdk_endpoints"
}

// Open opens the SQLite database at dsn and applies pending migrations.
// Plain file paths get their parent directory created.
func Open(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, errors.New(errors.KindStorage, "storage.open", "sqlite dsn is required")
	}
	if !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, errors.Wrap(errors.KindStorage, "storage.open", "create data directory", err)
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "storage.open", "open database", err)
	}

	manager := NewMigrationManager(db)
	manager.AddMigration(&migrations.Migration001SDKEndpoints{})
	if err := manager.RunMigrations(); err != nil {
		return nil, err
	}
	return db, nil
}

// AppliedMigrations lists the migrations recorded in db, newest first.
func AppliedMigrations(db *gorm.DB) ([]MigrationRecord, error) {
	return NewMigrationManager(db).History()
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrap(errors.KindStorage, "storage.close", "get sql handle", err)
	}
	return sqlDB.Close()
}
