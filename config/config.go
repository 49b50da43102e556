// Package config loads the process configuration from .env files and the environment.
//
// Every variable carries the CATALOG_ prefix. Values already present in the environment
// win over the ones found in .env files.
package config

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-book-catalog/cache"
	"github.com/goliatone/go-book-catalog/store"
	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every variable name.
const EnvPrefix = "CATALOG_"

// Config is the full process configuration.
type Config struct {
	HTTP      HTTPConfig
	DB        DBConfig
	Cache     cache.Config
	Log       LogConfig
	Telemetry TelemetryConfig
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr            string
	MaxPageSize     int
	ShutdownTimeout time.Duration
}

// DBConfig selects the storage driver and the startup schema steps.
type DBConfig struct {
	Driver string
	DSN    string
	// Reset drops and recreates the schema on startup.
	Reset bool
	// SeedFile is a JSON catalog loaded after the schema is created. Empty skips seeding.
	SeedFile string
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string
	Format string
}

// TelemetryConfig configures OpenTelemetry. Metrics are always exported for Prometheus
// scraping on /metrics.
type TelemetryConfig struct {
	ServiceName string
	// TraceExporter is "none" or "stdout".
	TraceExporter string
}

// Default returns a configuration that runs locally on SQLite with the in-memory cache.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:            ":8080",
			MaxPageSize:     100,
			ShutdownTimeout: 10 * time.Second,
		},
		DB: DBConfig{
			Driver: store.DriverSQLite,
			DSN:    "file:catalog.db?_foreign_keys=on",
		},
		Cache: cache.DefaultConfig(),
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Telemetry: TelemetryConfig{
			ServiceName:   "booklibrary",
			TraceExporter: "none",
		},
	}
}

// Load reads the given .env files (".env" when none are given), then the environment,
// and validates the result. Missing files are skipped.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, &ConfigError{Field: f, Message: err.Error()}
		}
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds the configuration from lookup, applied on top of Default.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	env := &envReader{lookup: lookup, errs: validation.Errors{}}

	env.string("HTTP_ADDR", &cfg.HTTP.Addr)
	env.int("MAX_PAGE_SIZE", &cfg.HTTP.MaxPageSize)
	env.duration("SHUTDOWN_TIMEOUT", &cfg.HTTP.ShutdownTimeout)

	env.string("DB_DRIVER", &cfg.DB.Driver)
	env.string("DB_DSN", &cfg.DB.DSN)
	env.bool("DB_RESET", &cfg.DB.Reset)
	env.string("DB_SEED_FILE", &cfg.DB.SeedFile)

	var backend string
	if env.string("CACHE_BACKEND", &backend) {
		cfg.Cache.Backend = cache.Backend(strings.ToLower(backend))
	}
	env.int("CACHE_CAPACITY", &cfg.Cache.Capacity)
	env.duration("CACHE_TTL", &cfg.Cache.TTL)

	var redis cache.RedisConfig
	set := env.string("REDIS_URL", &redis.URL)
	set = env.string("REDIS_ADDR", &redis.Addr) || set
	set = env.string("REDIS_PASSWORD", &redis.Password) || set
	set = env.int("REDIS_DB", &redis.DB) || set
	set = env.duration("CACHE_OP_TIMEOUT", &redis.OpTimeout) || set
	if set || cfg.Cache.Backend == cache.BackendRedis {
		cfg.Cache.Redis = &redis
	}

	env.string("LOG_LEVEL", &cfg.Log.Level)
	env.string("LOG_FORMAT", &cfg.Log.Format)

	env.string("SERVICE_NAME", &cfg.Telemetry.ServiceName)
	env.string("TRACE_EXPORTER", &cfg.Telemetry.TraceExporter)

	if len(env.errs) > 0 {
		return Config{}, env.errs
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every section and reports the failures keyed by section.
func (c Config) Validate() error {
	return validation.Errors{
		"http":      c.HTTP.Validate(),
		"db":        c.DB.Validate(),
		"cache":     c.Cache.Validate(),
		"log":       c.Log.Validate(),
		"telemetry": c.Telemetry.Validate(),
	}.Filter()
}

func (c HTTPConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.MaxPageSize, validation.Required, validation.Min(1)),
		validation.Field(&c.ShutdownTimeout, validation.Min(time.Duration(0))),
	)
}

func (c DBConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Driver,
			validation.Required,
			validation.In(store.DriverSQLite, "sqlite3", store.DriverPostgres, store.DriverPgx),
		),
		validation.Field(&c.DSN, validation.Required),
	)
}

func (c LogConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Level, validation.Required, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.Format, validation.Required, validation.In("json", "text")),
	)
}

func (c TelemetryConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.ServiceName, validation.Required),
		validation.Field(&c.TraceExporter, validation.Required, validation.In("none", "stdout")),
	)
}

// NewLogger builds the slog logger described by c, writing to w.
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// ConfigError reports a configuration source that could not be read.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

// envReader reads prefixed variables and collects parse failures by variable name.
type envReader struct {
	lookup func(string) (string, bool)
	errs   validation.Errors
}

func (r *envReader) raw(key string) (string, bool) {
	v, ok := r.lookup(EnvPrefix + key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (r *envReader) fail(key, message string) {
	r.errs[EnvPrefix+key] = errors.New(message)
}

func (r *envReader) string(key string, dst *string) bool {
	v, ok := r.raw(key)
	if ok {
		*dst = v
	}
	return ok
}

func (r *envReader) int(key string, dst *int) bool {
	v, ok := r.raw(key)
	if !ok {
		return false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, "must be an integer")
		return false
	}
	*dst = n
	return true
}

func (r *envReader) bool(key string, dst *bool) bool {
	v, ok := r.raw(key)
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(key, "must be true or false")
		return false
	}
	*dst = b
	return true
}

func (r *envReader) duration(key string, dst *time.Duration) bool {
	v, ok := r.raw(key)
	if !ok {
		return false
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(key, "must be a duration such as 30s or 1m")
		return false
	}
	*dst = d
	return true
}
