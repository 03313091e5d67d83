package storage

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liveness-playground/internal/platform/storage/migrations"
)

func TestOpen_AppliesMigrationsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "endpoints.db")

	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Create(&SDKEndpoint{Tag: "a", URL: "http://a", Position: 1}).Error)
	require.NoError(t, Close(db))

	db, err = Open(path)
	require.NoError(t, err)
	defer Close(db)

	var count int64
	require.NoError(t, db.Model(&SDKEndpoint{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	manager := NewMigrationManager(db)
	history, err := manager.History()
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "001_sdk_endpoints", history[0].Version)
}

func TestMigrationManager_SkipsApplied(t *testing.T) {
	dsn := fmt.Sprintf("file:migrate-%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := Open(dsn)
	require.NoError(t, err)
	defer Close(db)

	manager := NewMigrationManager(db)
	manager.AddMigration(&migrations.Migration001SDKEndpoints{})
	require.NoError(t, manager.RunMigrations())

	applied, err := AppliedMigrations(db)
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.Equal(t, "001_sdk_endpoints", applied[0].Version)
	assert.Equal(t, "Create sdk_endpoints table", applied[0].Name)
	assert.False(t, applied[0].AppliedAt.IsZero())
}

func TestOpen_RequiresDSN(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}
