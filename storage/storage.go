// Package storage provides the string key-value slots the settings store
// persists into.
package storage

import (
	"context"
	"strings"

	apperrors "github.com/leeforge/globaltree/errors"
)

// Backend is a string key-value store. Get reports ok=false for a missing key.
type Backend interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Config selects and configures a backend.
type Config struct {
	Driver string      `mapstructure:"driver" json:"driver" yaml:"driver" default:"file" validate:"oneof=memory file sqlite redis"`
	Path   string      `mapstructure:"path" json:"path" yaml:"path" default:"data"`
	Redis  RedisConfig `mapstructure:"redis" json:"redis" yaml:"redis"`
}

// Open builds the backend named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Backend, error) {
	switch strings.ToLower(cfg.Driver) {
	case DriverMemory:
		return NewMemory(), nil
	case DriverFile, "":
		return NewFile(cfg.Path)
	case DriverSQLite:
		return NewSQLite(cfg.Path)
	case DriverRedis:
		return NewRedis(ctx, cfg.Redis)
	default:
		return nil, apperrors.NewInvalid("storage.driver", cfg.Driver, "expected memory, file, sqlite or redis")
	}
}
