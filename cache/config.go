package cache

import (
	"time"

	"github.com/goliatone/go-book-catalog/internal/cacheinfra"
)

// Backend names a cache implementation.
type Backend = cacheinfra.Backend

const (
	BackendMemory = cacheinfra.BackendMemory
	BackendRedis  = cacheinfra.BackendRedis
	BackendNone   = cacheinfra.BackendNone
)

// Config exposes cache configuration options for consumers of the cache package.
type Config struct {
	Backend              Backend
	Capacity             int
	NumShards            int
	TTL                  time.Duration
	EvictionPercentage   int
	EarlyRefresh         *EarlyRefreshConfig
	MissingRecordStorage bool
	EvictionInterval     time.Duration
	Redis                *RedisConfig
}

// EarlyRefreshConfig mirrors the underlying sturdyc early refresh options.
type EarlyRefreshConfig struct {
	MinAsyncRefreshTime time.Duration
	MaxAsyncRefreshTime time.Duration
	SyncRefreshTime     time.Duration
	RetryBaseDelay      time.Duration
}

// RedisConfig holds the Redis connection settings. URL wins over Addr.
type RedisConfig struct {
	URL       string
	Addr      string
	Password  string
	DB        int
	OpTimeout time.Duration
}

// DefaultConfig returns the in-memory configuration: 10000 entries, 1 minute TTL.
func DefaultConfig() Config {
	return convertFromInternal(cacheinfra.DefaultConfig())
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	return c.toInternal().Validate()
}

// NewCacheService constructs the backend selected by cfg.Backend. The close function
// releases connections held by remote backends and is safe to call for in-memory ones.
func NewCacheService(cfg Config) (CacheService, func() error, error) {
	svc, closeFn, err := cacheinfra.New(cfg.toInternal())
	if err != nil {
		return nil, nil, err
	}
	return svc, closeFn, nil
}

func (c Config) toInternal() cacheinfra.Config {
	var early *cacheinfra.EarlyRefreshConfig
	if c.EarlyRefresh != nil {
		early = &cacheinfra.EarlyRefreshConfig{
			MinAsyncRefreshTime: c.EarlyRefresh.MinAsyncRefreshTime,
			MaxAsyncRefreshTime: c.EarlyRefresh.MaxAsyncRefreshTime,
			SyncRefreshTime:     c.EarlyRefresh.SyncRefreshTime,
			RetryBaseDelay:      c.EarlyRefresh.RetryBaseDelay,
		}
	}

	var rc *cacheinfra.RedisConfig
	if c.Redis != nil {
		rc = &cacheinfra.RedisConfig{
			URL:       c.Redis.URL,
			Addr:      c.Redis.Addr,
			Password:  c.Redis.Password,
			DB:        c.Redis.DB,
			OpTimeout: c.Redis.OpTimeout,
		}
	}

	return cacheinfra.Config{
		Backend:              c.Backend,
		Capacity:             c.Capacity,
		NumShards:            c.NumShards,
		TTL:                  c.TTL,
		EvictionPercentage:   c.EvictionPercentage,
		EarlyRefresh:         early,
		MissingRecordStorage: c.MissingRecordStorage,
		EvictionInterval:     c.EvictionInterval,
		Redis:                rc,
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	var early *EarlyRefreshConfig
	if cfg.EarlyRefresh != nil {
		early = &EarlyRefreshConfig{
			MinAsyncRefreshTime: cfg.EarlyRefresh.MinAsyncRefreshTime,
			MaxAsyncRefreshTime: cfg.EarlyRefresh.MaxAsyncRefreshTime,
			SyncRefreshTime:     cfg.EarlyRefresh.SyncRefreshTime,
			RetryBaseDelay:      cfg.EarlyRefresh.RetryBaseDelay,
		}
	}

	var rc *RedisConfig
	if cfg.Redis != nil {
		rc = &RedisConfig{
			URL:       cfg.Redis.URL,
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			OpTimeout: cfg.Redis.OpTimeout,
		}
	}

	return Config{
		Backend:              cfg.Backend,
		Capacity:             cfg.Capacity,
		NumShards:            cfg.NumShards,
		TTL:                  cfg.TTL,
		EvictionPercentage:   cfg.EvictionPercentage,
		EarlyRefresh:         early,
		MissingRecordStorage: cfg.MissingRecordStorage,
		EvictionInterval:     cfg.EvictionInterval,
		Redis:                rc,
	}
}
