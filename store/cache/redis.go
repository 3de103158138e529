package cache

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisConfig holds the Redis connection configuration.
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
}

// DefaultRedisConfig returns the default Redis configuration.
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Host:         "localhost",
		Port:         6379,
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// RedisConfigFromEnv creates Redis config from environment variables.
// Environment variables:
//   - MINDMAP_REDIS_HOST: Redis host (default: localhost)
//   - MINDMAP_REDIS_PORT: Redis port (default: 6379)
//   - MINDMAP_REDIS_PASSWORD: Redis password (default: "")
//   - MINDMAP_REDIS_DB: Redis DB number (default: 0)
func RedisConfigFromEnv() *RedisConfig {
	config := DefaultRedisConfig()

	if host := os.Getenv("MINDMAP_REDIS_HOST"); host != "" {
		config.Host = host
	}
	if port := os.Getenv("MINDMAP_REDIS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Port = p
		}
	}
	if password := os.Getenv("MINDMAP_REDIS_PASSWORD"); password != "" {
		config.Password = password
	}
	if db := os.Getenv("MINDMAP_REDIS_DB"); db != "" {
		if d, err := strconv.Atoi(db); err == nil {
			config.DB = d
		}
	}

	return config
}

// redisBackend implements Backend over a go-redis client.
type redisBackend struct {
	client *redis.Client
}

// NewRedisBackends connects to Redis and returns two backends pointed at the
// same logical database: one for text (JSON) payloads and one for binary
// payloads. The split keeps the two payload kinds on separate connection
// pools, matching the store's text/binary encoding paths.
func NewRedisBackends(config *RedisConfig) (text, binary Backend, err error) {
	if config == nil {
		config = DefaultRedisConfig()
	}

	newClient := func() *redis.Client {
		return redis.NewClient(&redis.Options{
			Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
			Password:     config.Password,
			DB:           config.DB,
			PoolSize:     config.PoolSize,
			MinIdleConns: config.MinIdleConns,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			PoolTimeout:  4 * time.Second,
		})
	}

	textClient := newClient()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := textClient.Ping(ctx).Err(); err != nil {
		return nil, nil, errors.Wrap(err, "failed to connect to Redis")
	}

	slog.Info("redis cache connected", "host", config.Host, "port", config.Port, "db", config.DB)

	return &redisBackend{client: textClient}, &redisBackend{client: newClient()}, nil
}

func (r *redisBackend) SetEx(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.SetEx(ctx, key, value, ttl).Err()
}

func (r *redisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (r *redisBackend) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

func (r *redisBackend) Keys(ctx context.Context, pattern string) ([]string, error) {
	return r.client.Keys(ctx, pattern).Result()
}

func (r *redisBackend) FlushDB(ctx context.Context) error {
	return r.client.FlushDB(ctx).Err()
}

func (r *redisBackend) Info(ctx context.Context) (map[string]string, error) {
	raw, err := r.client.Info(ctx).Result()
	if err != nil {
		return nil, err
	}
	return parseRedisInfo(raw), nil
}

func (r *redisBackend) DBSize(ctx context.Context) (int64, error) {
	return r.client.DBSize(ctx).Result()
}

func (r *redisBackend) Close() error {
	return r.client.Close()
}

// parseRedisInfo parses the INFO command's "field:value" line format.
func parseRedisInfo(raw string) map[string]string {
	info := make(map[string]string)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		field, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		info[field] = value
	}
	return info
}
