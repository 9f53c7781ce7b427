// Package store provides the live key-value market store backed by redis.
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dnldd/breakout/shared"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	// pingTimeout bounds the startup connectivity check.
	pingTimeout = 5 * time.Second
)

// RedisConfig represents the configuration for the redis store.
type RedisConfig struct {
	// Addr is the redis address, e.g. "localhost:6379".
	Addr string
	// Password is the redis password, may be empty.
	Password string
	// DB is the redis database index.
	DB int
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config has sane inputs.
func (cfg *RedisConfig) Validate() error {
	var errs error

	if cfg.Addr == "" {
		errs = errors.Join(errs, fmt.Errorf("redis address cannot be an empty string"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// RedisStore is the live market store.
type RedisStore struct {
	cfg    *RedisConfig
	client *goredis.Client
}

// Ensure the redis store implements the MarketStore interface.
var _ shared.MarketStore = (*RedisStore)(nil)

// NewRedisStore initializes a new redis store and pings the server.
func NewRedisStore(cfg *RedisConfig) (*RedisStore, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating redis config: %v", err)
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	err = client.Ping(ctx).Err()
	if err != nil {
		return nil, fmt.Errorf("pinging redis at %s: %v", cfg.Addr, err)
	}

	cfg.Logger.Info().Msgf("connected to redis at %s", cfg.Addr)

	return &RedisStore{cfg: cfg, client: client}, nil
}

// PushFront prepends the provided values to the list at the key.
func (s *RedisStore) PushFront(ctx context.Context, key string, values ...string) error {
	args := make([]interface{}, len(values))
	for idx := range values {
		args[idx] = values[idx]
	}

	err := s.client.LPush(ctx, key, args...).Err()
	if err != nil {
		return fmt.Errorf("pushing to list %s: %v", key, err)
	}

	return nil
}

// Trim bounds the list at the key to the provided length.
func (s *RedisStore) Trim(ctx context.Context, key string, length int64) error {
	err := s.client.LTrim(ctx, key, 0, length-1).Err()
	if err != nil {
		return fmt.Errorf("trimming list %s: %v", key, err)
	}

	return nil
}

// Range reads list entries at the key between the provided indices.
func (s *RedisStore) Range(ctx context.Context, key string, start int64, stop int64) ([]string, error) {
	values, err := s.client.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("reading list %s: %v", key, err)
	}

	return values, nil
}

// AddToSet adds the provided member to the sorted set at the key.
func (s *RedisStore) AddToSet(ctx context.Context, key string, score float64, member string) error {
	err := s.client.ZAdd(ctx, key, goredis.Z{Score: score, Member: member}).Err()
	if err != nil {
		return fmt.Errorf("adding to sorted set %s: %v", key, err)
	}

	return nil
}

// RangeByScore reads sorted set members at the key with scores between the
// provided bounds, inclusive.
func (s *RedisStore) RangeByScore(ctx context.Context, key string, min float64, max float64) ([]string, error) {
	members, err := s.client.ZRangeByScore(ctx, key, &goredis.ZRangeBy{
		Min: strconv.FormatFloat(min, 'f', -1, 64),
		Max: strconv.FormatFloat(max, 'f', -1, 64),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("reading sorted set %s: %v", key, err)
	}

	return members, nil
}

// RemoveByScoreRange removes sorted set members at the key with scores
// between the provided bounds, inclusive.
func (s *RedisStore) RemoveByScoreRange(ctx context.Context, key string, min float64, max float64) error {
	err := s.client.ZRemRangeByScore(ctx, key,
		strconv.FormatFloat(min, 'f', -1, 64),
		strconv.FormatFloat(max, 'f', -1, 64)).Err()
	if err != nil {
		return fmt.Errorf("pruning sorted set %s: %v", key, err)
	}

	return nil
}

// Set stores the provided value at the key with an expiry.
func (s *RedisStore) Set(ctx context.Context, key string, value string, expiry time.Duration) error {
	err := s.client.Set(ctx, key, value, expiry).Err()
	if err != nil {
		return fmt.Errorf("setting key %s: %v", key, err)
	}

	return nil
}

// Get reads the value at the key.
func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", shared.ErrKeyNotFound
		}
		return "", fmt.Errorf("getting key %s: %v", key, err)
	}

	return value, nil
}

// Close closes the redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
