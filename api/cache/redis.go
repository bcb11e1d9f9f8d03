package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"SongBracket/api/config"

	"github.com/redis/go-redis/v9"
)

var Client *redis.Client

var ErrNotInitialized = errors.New("redis client not initialized")

// Init connects using REDIS_URL when set, else the plain address.
func Init(ctx context.Context, cfg config.Redis) error {
	var client *redis.Client
	if cfg.URL != "" {
		opt, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return fmt.Errorf("failed to parse REDIS_URL: %w", err)
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Username: cfg.Username,
			Password: cfg.Password,
		})
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	Client = client
	return nil
}

func Close() error {
	if Client == nil {
		return nil
	}
	err := Client.Close()
	Client = nil
	return err
}

// Get returns "" and no error on a miss.
func Get(ctx context.Context, key string) (string, error) {
	if Client == nil {
		return "", ErrNotInitialized
	}
	val, err := Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return val, err
}

func Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if Client == nil {
		return ErrNotInitialized
	}
	return Client.Set(ctx, key, value, ttl).Err()
}

func Delete(ctx context.Context, keys ...string) error {
	if Client == nil || len(keys) == 0 {
		return nil
	}
	return Client.Del(ctx, keys...).Err()
}

func DeleteByPrefix(ctx context.Context, prefix string) error {
	if Client == nil {
		return nil
	}

	var cursor uint64
	for {
		keys, next, err := Client.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := Client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Remember is a read-through helper: a cached JSON value wins, otherwise
// load runs and its result is stored for ttl. Cache failures never fail
// the call.
func Remember[T any](ctx context.Context, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	if raw, err := Get(ctx, key); err == nil && raw != "" {
		var cached T
		if json.Unmarshal([]byte(raw), &cached) == nil {
			return cached, nil
		}
	}
	val, err := load(ctx)
	if err != nil {
		return val, err
	}
	if Client != nil {
		if raw, err := json.Marshal(val); err == nil {
			_ = Set(ctx, key, raw, ttl)
		}
	}
	return val, nil
}
