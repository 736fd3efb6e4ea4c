package storage

import (
	"context"
	"errors"
	"fmt"

	redis "github.com/go-redis/redis/v8"
)

type RedisConfig struct {
	Host      string `mapstructure:"host" json:"host" yaml:"host" default:"localhost"`
	Port      string `mapstructure:"port" json:"port" yaml:"port" default:"6379"`
	Password  string `mapstructure:"password" json:"password" yaml:"password"`
	DB        int    `mapstructure:"db" json:"db" yaml:"db"`
	KeyPrefix string `mapstructure:"key-prefix" json:"keyPrefix" yaml:"key-prefix" default:"globaltree:"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// String describes the connection without leaking the password.
func (c RedisConfig) String() string {
	return fmt.Sprintf("addr=%s db=%d password=%s", c.Addr(), c.DB, redactedPassword(c.Password))
}

func redactedPassword(password string) string {
	if password == "" {
		return "<empty>"
	}
	return "[REDACTED]"
}

// Redis stores keys in a Redis server under KeyPrefix.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis connects and pings the server.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping (%s): %w", cfg, err)
	}
	return &Redis{client: client, prefix: cfg.KeyPrefix}, nil
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, r.prefix+key, value, 0).Err()
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}

var _ Backend = (*Redis)(nil)
