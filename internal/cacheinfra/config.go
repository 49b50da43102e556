package cacheinfra

import (
	"time"

	"github.com/viccon/sturdyc"
)

// Backend names the cache implementation selected at startup.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendRedis  Backend = "redis"
	BackendNone   Backend = "none"
)

// DefaultOpTimeout bounds every remote cache command.
const DefaultOpTimeout = 150 * time.Millisecond

// Config selects and sizes a cache backend. Capacity, NumShards and
// EvictionPercentage only apply to the memory backend.
type Config struct {
	Backend Backend // empty means BackendMemory

	Capacity           int
	NumShards          int
	EvictionPercentage int // 1..100, share of entries dropped when Capacity is reached

	// TTL bounds how long a read can stay stale when an invalidation is missed.
	TTL time.Duration

	EarlyRefresh         *EarlyRefreshConfig // nil disables early refreshes
	MissingRecordStorage bool                // remember keys whose fetch returned sturdyc.ErrNotFound
	EvictionInterval     time.Duration       // zero keeps the sturdyc default

	// Redis is required when Backend is BackendRedis.
	Redis *RedisConfig
}

// EarlyRefreshConfig mirrors sturdyc.WithEarlyRefreshes.
type EarlyRefreshConfig struct {
	MinAsyncRefreshTime time.Duration
	MaxAsyncRefreshTime time.Duration
	SyncRefreshTime     time.Duration
	RetryBaseDelay      time.Duration
}

// RedisConfig holds the connection settings of the Redis backend. URL wins over Addr.
type RedisConfig struct {
	URL      string
	Addr     string
	Password string
	DB       int
	// OpTimeout bounds each Redis command. Zero uses DefaultOpTimeout.
	OpTimeout time.Duration
}

// DefaultConfig returns the in-memory configuration used when nothing else is set.
func DefaultConfig() Config {
	return Config{
		Backend:            BackendMemory,
		Capacity:           10000,
		NumShards:          64,
		TTL:                time.Minute,
		EvictionPercentage: 10,
	}
}

// sturdycOptions returns the optional sturdyc settings. The sizing fields are
// positional arguments of sturdyc.New and are not part of it.
func (c Config) sturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option
	if er := c.EarlyRefresh; er != nil {
		options = append(options, sturdyc.WithEarlyRefreshes(
			er.MinAsyncRefreshTime, er.MaxAsyncRefreshTime, er.SyncRefreshTime, er.RetryBaseDelay,
		))
	}
	if c.MissingRecordStorage {
		options = append(options, sturdyc.WithMissingRecordStorage())
	}
	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}
	return options
}

// Validate reports the first invalid field for the selected backend.
func (c Config) Validate() error {
	switch c.Backend {
	case "", BackendMemory:
		return c.validateMemory()
	case BackendRedis:
		return c.validateRedis()
	case BackendNone:
		return nil
	default:
		return &ConfigError{Field: "Backend", Message: "must be one of memory, redis, none"}
	}
}

func (c Config) validateMemory() error {
	switch {
	case c.Capacity <= 0:
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	case c.NumShards <= 0:
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	case c.TTL <= 0:
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	case c.EvictionPercentage < 1 || c.EvictionPercentage > 100:
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}

	if er := c.EarlyRefresh; er != nil {
		durations := []struct {
			field string
			value time.Duration
		}{
			{"MinAsyncRefreshTime", er.MinAsyncRefreshTime},
			{"MaxAsyncRefreshTime", er.MaxAsyncRefreshTime},
			{"SyncRefreshTime", er.SyncRefreshTime},
			{"RetryBaseDelay", er.RetryBaseDelay},
		}
		for _, d := range durations {
			if d.value < 0 {
				return &ConfigError{Field: "EarlyRefresh." + d.field, Message: "must be non-negative"}
			}
		}
	}
	return nil
}

func (c Config) validateRedis() error {
	r := c.Redis
	switch {
	case c.TTL <= 0:
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	case r == nil:
		return &ConfigError{Field: "Redis", Message: "is required for the redis backend"}
	case r.URL == "" && r.Addr == "":
		return &ConfigError{Field: "Redis.Addr", Message: "either URL or Addr must be set"}
	case r.DB < 0:
		return &ConfigError{Field: "Redis.DB", Message: "must be non-negative"}
	case r.OpTimeout < 0:
		return &ConfigError{Field: "Redis.OpTimeout", Message: "must be non-negative"}
	}
	return nil
}

// ConfigError names the cache setting that failed validation.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "cache config: " + e.Field + " " + e.Message
}
