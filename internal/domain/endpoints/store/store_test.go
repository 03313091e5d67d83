package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liveness-playground/internal/platform/storage"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, Record{Tag: "second", URL: "http://b:8080", Position: 2}))
	require.NoError(t, s.Put(ctx, Record{Tag: "first", URL: "http://a:8080", Position: 1, Headers: map[string]string{"X-Key": "v"}}))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "first", list[0].Tag)
	assert.Equal(t, "second", list[1].Tag)
	assert.Equal(t, map[string]string{"X-Key": "v"}, list[0].Headers)

	got, err := s.Get(ctx, "first")
	require.NoError(t, err)
	assert.Equal(t, "http://a:8080", got.URL)
	created := got.CreatedAt

	require.NoError(t, s.Put(ctx, Record{Tag: "first", URL: "http://a:9090", Position: 1}))
	got, err = s.Get(ctx, "first")
	require.NoError(t, err)
	assert.Equal(t, "http://a:9090", got.URL)
	assert.Nil(t, got.Headers)
	assert.WithinDuration(t, created, got.CreatedAt, time.Second)

	list, err = s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, s.Remove(ctx, "first"))
	require.NoError(t, s.Remove(ctx, "first"))
	_, err = s.Get(ctx, "first")
	assert.ErrorIs(t, err, ErrNotFound)

	list, err = s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "second", list[0].Tag)

	assert.Error(t, s.Put(ctx, Record{URL: "http://no-tag"}))
}

func TestMemoryStore(t *testing.T) {
	s := NewMemory()
	exerciseStore(t, s)
	assert.NoError(t, s.Close(context.Background()))
}

func TestSQLiteStore(t *testing.T) {
	dsn := fmt.Sprintf("file:endpoints-%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := storage.Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close(db) })

	s, err := NewSQLite(db, false)
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)

	s, err := NewRedis(Config{Redis: &RedisConfig{Addr: mr.Addr(), Prefix: "test:"}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })

	exerciseStore(t, s)
	assert.True(t, mr.Exists("test:second"))
}

func TestNew(t *testing.T) {
	s, err := New(Config{}, Dependencies{})
	require.NoError(t, err)
	assert.IsType(t, &memoryStore{}, s)

	path := filepath.Join(t.TempDir(), "endpoints.db")
	s, err = New(Config{Driver: DriverSQLite, SQLite: &SQLiteConfig{DSN: path}}, Dependencies{})
	require.NoError(t, err)
	require.NoError(t, s.Put(context.Background(), Record{Tag: "a", URL: "http://a"}))
	require.NoError(t, s.Close(context.Background()))

	_, err = New(Config{Driver: DriverSQLite}, Dependencies{})
	assert.Error(t, err)

	_, err = New(Config{Driver: DriverRedis}, Dependencies{})
	assert.Error(t, err)

	_, err = New(Config{Driver: "etcd"}, Dependencies{})
	assert.Error(t, err)
}
