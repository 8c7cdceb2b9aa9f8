// Package store caches eTims reference-data lookups in Redis.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "etims:lookup:"

// globEscaper quotes the SCAN MATCH metacharacters a username may contain.
var globEscaper = strings.NewReplacer(`\`, `\\`, "*", `\*`, "?", `\?`, "[", `\[`, "]", `\]`)

// Options configures the Redis connection and entry lifetime.
type Options struct {
	Addr     string
	DB       int
	Password string
	TTL      time.Duration
}

// RedisStore is a read-through cache for code lists, classifications,
// branches and taxpayer info. It implements etims.LookupCache.
type RedisStore struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(opts Options, logger *zap.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		DB:       opts.DB,
		Password: opts.Password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return newRedisStore(rdb, opts.TTL, logger), nil
}

func newRedisStore(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisStore{redis: rdb, ttl: ttl, logger: logger}
}

// LookupKey builds the cache key for a lookup: the scope, endpoint and a
// digest of the validated request body.
func LookupKey(scope, endpoint string, request []byte) string {
	sum := sha256.Sum256(request)
	return keyPrefix + scope + ":" + endpoint + ":" + hex.EncodeToString(sum[:])
}

// Get returns a cached lookup response.
func (s *RedisStore) Get(ctx context.Context, scope, endpoint string, request []byte) (json.RawMessage, bool, error) {
	data, err := s.redis.Get(ctx, LookupKey(scope, endpoint, request)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return json.RawMessage(data), true, nil
}

// Set stores a lookup response for the configured TTL.
func (s *RedisStore) Set(ctx context.Context, scope, endpoint string, request []byte, data json.RawMessage) error {
	key := LookupKey(scope, endpoint, request)
	if err := s.redis.Set(ctx, key, []byte(data), s.ttl).Err(); err != nil {
		return err
	}
	s.logger.Debug("store.lookup_cached", zap.String("endpoint", endpoint), zap.Duration("ttl", s.ttl))
	return nil
}

// Invalidate removes every cached lookup for scope. The SDK calls it after
// writes that change reference data.
func (s *RedisStore) Invalidate(ctx context.Context, scope string) (int, error) {
	var (
		cursor  uint64
		removed int
	)
	pattern := keyPrefix + globEscaper.Replace(scope) + ":*"
	for {
		keys, next, err := s.redis.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return removed, err
		}
		if len(keys) > 0 {
			n, err := s.redis.Del(ctx, keys...).Result()
			if err != nil {
				return removed, err
			}
			removed += int(n)
		}
		if next == 0 {
			return removed, nil
		}
		cursor = next
	}
}

// HealthCheck pings Redis.
func (s *RedisStore) HealthCheck(ctx context.Context) error {
	if s.redis == nil {
		return fmt.Errorf("redis not initialized")
	}
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}
