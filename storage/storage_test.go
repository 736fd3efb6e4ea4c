package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/leeforge/globaltree/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseBackend(t *testing.T, b Backend) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := b.Get(ctx, "global-tree-config")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.Set(ctx, "global-tree-config", `{"app":{"debug":true}}`))
	v, ok, err := b.Get(ctx, "global-tree-config")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"app":{"debug":true}}`, v)

	require.NoError(t, b.Set(ctx, "global-tree-config", `{}`))
	v, _, _ = b.Get(ctx, "global-tree-config")
	assert.Equal(t, `{}`, v)

	require.NoError(t, b.Delete(ctx, "global-tree-config"))
	_, ok, err = b.Get(ctx, "global-tree-config")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.Delete(ctx, "never-set"))
}

func TestMemoryBackend(t *testing.T) {
	exerciseBackend(t, NewMemory())
}

func TestFileBackend(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	b, err := NewFile(dir)
	require.NoError(t, err)
	exerciseBackend(t, b)

	require.NoError(t, b.Set(context.Background(), "a/b key", "x"))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "key is escaped into a single file and no temp files remain")
}

func TestSQLiteBackend(t *testing.T) {
	b, err := NewSQLite(t.TempDir())
	require.NoError(t, err)
	defer b.Close()
	exerciseBackend(t, b)
}

func TestSQLiteBackend_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.db")
	b, err := NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, b.Set(context.Background(), "k", "persisted"))
	require.NoError(t, b.Close())

	b, err = NewSQLite(path)
	require.NoError(t, err)
	defer b.Close()
	v, ok, err := b.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "persisted", v)
}

func TestSQLiteBackend_OpenFailure(t *testing.T) {
	orig := openDB
	defer func() { openDB = orig }()
	openDB = func(driver, dsn string) (*sql.DB, error) {
		return nil, errors.New("disk on fire")
	}

	_, err := NewSQLite(t.TempDir())
	assert.ErrorContains(t, err, "disk on fire")
}

func TestRedisBackend(t *testing.T) {
	host := os.Getenv("GLOBALTREE_TEST_REDIS_HOST")
	if host == "" {
		t.Skip("GLOBALTREE_TEST_REDIS_HOST not set")
	}
	b, err := NewRedis(context.Background(), RedisConfig{Host: host, Port: "6379", KeyPrefix: "globaltree-test:"})
	require.NoError(t, err)
	defer b.Close()
	exerciseBackend(t, b)
}

func TestRedisConfig_RedactsPassword(t *testing.T) {
	cfg := RedisConfig{Host: "localhost", Port: "6379", Password: "secret"}
	assert.Equal(t, "localhost:6379", cfg.Addr())
	assert.NotContains(t, cfg.String(), "secret")
	assert.Contains(t, RedisConfig{}.String(), "<empty>")
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	b, err := Open(ctx, Config{Driver: DriverMemory})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, b)

	b, err = Open(ctx, Config{Driver: "FILE", Path: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &File{}, b)

	b, err = Open(ctx, Config{Driver: DriverSQLite, Path: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, b)
	b.Close()

	_, err = Open(ctx, Config{Driver: "etcd"})
	assert.True(t, errors.Is(err, apperrors.ErrInvalid))
}
