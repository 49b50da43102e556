package cacheinfra

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/singleflight"
)

// redisCommands is the subset of redis.Cmdable the adapter uses.
type redisCommands interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

const scanBatch = 256

// redisService stores msgpack encoded values in Redis. Every command runs under a
// short timeout so an unreachable server surfaces quickly as an error.
type redisService struct {
	client    redisCommands
	ttl       time.Duration
	opTimeout time.Duration
	group     singleflight.Group
}

// NewRedisClient opens a client from cfg. URL wins over Addr.
func NewRedisClient(cfg RedisConfig) (*redis.Client, error) {
	if cfg.URL != "" {
		opt, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, &ConfigError{Field: "Redis.URL", Message: err.Error()}
		}
		return redis.NewClient(opt), nil
	}

	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	}), nil
}

// NewRedisService creates a Redis backed cache service on an existing client.
// A zero opTimeout uses DefaultOpTimeout.
func NewRedisService(client redisCommands, ttl, opTimeout time.Duration) (*redisService, error) {
	if client == nil {
		return nil, &ConfigError{Field: "Redis", Message: "client cannot be nil"}
	}
	if ttl <= 0 {
		return nil, &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}
	if opTimeout < 0 {
		return nil, &ConfigError{Field: "Redis.OpTimeout", Message: "must be non-negative"}
	}
	if opTimeout == 0 {
		opTimeout = DefaultOpTimeout
	}

	return &redisService{
		client:    client,
		ttl:       ttl,
		opTimeout: opTimeout,
	}, nil
}

// leaderGone wraps the error of a shared load that failed because the caller running
// it was cancelled. Callers still waiting on the key run the load again.
type leaderGone struct{ err error }

func (e *leaderGone) Error() string { return e.err.Error() }
func (e *leaderGone) Unwrap() error { return e.err }

// GetOrFetch reads key from Redis and decodes it into the result type of fetchFn. On a
// miss it runs fetchFn once per key across concurrent callers and stores the result.
// Redis errors other than a miss are returned without calling fetchFn.
//
// Each caller waits under its own ctx: a cancelled caller returns ctx.Err(), and the
// others retry instead of inheriting its cancellation.
func (s *redisService) GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error) {
	if err := validateFetchFn(fetchFn); err != nil {
		return nil, err
	}
	typ := resultType(fetchFn)

	for {
		ch := s.group.DoChan(key, func() (any, error) {
			v, err := s.loadOrFetch(ctx, key, typ, fetchFn)
			if err != nil && ctx.Err() != nil {
				return nil, &leaderGone{err: err}
			}
			return v, err
		})

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-ch:
			var gone *leaderGone
			if errors.As(res.Err, &gone) {
				if ctx.Err() != nil {
					return nil, gone.err
				}
				continue
			}
			return res.Val, res.Err
		}
	}
}

func (s *redisService) loadOrFetch(ctx context.Context, key string, typ reflect.Type, fetchFn any) (any, error) {
	value, hit, err := s.load(ctx, key, typ)
	if err != nil {
		return nil, err
	}
	if hit {
		return value, nil
	}

	result, err := callFetch(ctx, fetchFn)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, result)
	return result, nil
}

func (s *redisService) load(ctx context.Context, key string, typ reflect.Type) (any, bool, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	data, err := s.client.Get(opCtx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %q: %w", key, err)
	}

	ptr := reflect.New(typ)
	if err := msgpack.Unmarshal(data, ptr.Interface()); err != nil {
		// an entry written by an older shape is treated as a miss and overwritten
		return nil, false, nil
	}
	return ptr.Elem().Interface(), true, nil
}

// store is best effort: a value that cannot be written is still returned to the caller.
func (s *redisService) store(ctx context.Context, key string, value any) {
	payload, err := msgpack.Marshal(value)
	if err != nil {
		return
	}
	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opTimeout)
	defer cancel()
	_ = s.client.Set(opCtx, key, payload, s.ttl).Err()
}

// Delete removes a single entry.
func (s *redisService) Delete(ctx context.Context, key string) error {
	return s.InvalidateKeys(ctx, []string{key})
}

// DeleteByPrefix removes every key starting with prefix, scanning in batches.
func (s *redisService) DeleteByPrefix(ctx context.Context, prefix string) error {
	match := escapeGlob(prefix) + "*"
	var cursor uint64
	for {
		opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
		keys, next, err := s.client.Scan(opCtx, cursor, match, scanBatch).Result()
		cancel()
		if err != nil {
			return fmt.Errorf("redis scan %q: %w", match, err)
		}
		if err := s.InvalidateKeys(ctx, keys); err != nil {
			return err
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// InvalidateKeys removes the given entries in one command.
func (s *redisService) InvalidateKeys(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	if err := s.client.Del(opCtx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
