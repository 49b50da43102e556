package di

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/goliatone/go-book-catalog/cache"
	"github.com/goliatone/go-book-catalog/catalog"
	"github.com/goliatone/go-book-catalog/config"
	"github.com/goliatone/go-book-catalog/httpapi"
	"github.com/goliatone/go-book-catalog/model"
	"github.com/goliatone/go-book-catalog/repositorycache"
	"github.com/goliatone/go-book-catalog/service"
	"github.com/goliatone/go-book-catalog/store"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Container wires the catalog from a config.Config. It owns the database handle and
// the cache service unless they were supplied through options.
type Container struct {
	config        config.Config
	logger        *slog.Logger
	meter         metric.Meter
	tracer        trace.Tracer
	db            *bun.DB
	cacheService  cache.CacheService
	keySerializer cache.KeySerializer
	closers       []func() error

	purgers []func(context.Context) error
	catalog *catalog.Catalog
}

// Option customises a Container.
type Option func(*Container)

// WithLogger sets the logger passed to every component.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDB uses an already opened database instead of opening cfg.DB. The container
// does not close it.
func WithDB(db *bun.DB) Option {
	return func(c *Container) {
		c.db = db
	}
}

// WithCacheService uses svc instead of building the backend named by cfg.Cache.
func WithCacheService(svc cache.CacheService) Option {
	return func(c *Container) {
		c.cacheService = svc
	}
}

// WithMeter sets the meter used for cache fallback metrics.
func WithMeter(meter metric.Meter) Option {
	return func(c *Container) {
		if meter != nil {
			c.meter = meter
		}
	}
}

// WithTracer sets the tracer used by the entity services.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Container) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// NewContainer validates cfg and builds the storage, cache, repository and service
// layers. Call Close to release what the container opened.
func NewContainer(cfg config.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Container{
		config: cfg,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		meter:  otel.Meter("github.com/goliatone/go-book-catalog"),
		tracer: otel.Tracer("github.com/goliatone/go-book-catalog"),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.db == nil {
		db, err := store.Open(cfg.DB.Driver, cfg.DB.DSN)
		if err != nil {
			return nil, err
		}
		c.db = db
		c.closers = append(c.closers, db.Close)
	}

	if c.cacheService == nil {
		svc, closeFn, err := cache.NewCacheService(cfg.Cache)
		if err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("cache: %w", err)
		}
		c.cacheService = svc
		c.closers = append([]func() error{closeFn}, c.closers...)
	}
	c.keySerializer = keySerializerFor(cfg.Cache.Backend)

	repos := catalog.Repositories{
		Authors:    NewCachedRepository[*model.Author](c, store.NewRepository(c.db, func() *model.Author { return new(model.Author) })),
		Categories: NewCachedRepository[*model.Category](c, store.NewRepository(c.db, func() *model.Category { return new(model.Category) })),
		Books:      NewCachedRepository[*model.Book](c, store.NewRepository(c.db, func() *model.Book { return new(model.Book) })),
	}
	c.catalog = catalog.New(repos,
		service.WithLogger(c.logger),
		service.WithTracer(c.tracer),
	)

	return c, nil
}

// NewCachedRepository decorates base with the container's cache service and key
// serializer, and registers it so Prepare can purge it after a schema reset.
//
// Since Go methods cannot have type parameters, this is provided as a package-level function.
func NewCachedRepository[T repositorycache.Identifiable](c *Container, base store.Repository[T]) *repositorycache.CachedRepository[T] {
	repo := repositorycache.New(base, c.cacheService, c.keySerializer,
		repositorycache.WithLogger(c.logger),
		repositorycache.WithMeter(c.meter),
	)
	c.purgers = append(c.purgers, repo.Purge)
	return repo
}

// keySerializerFor hashes argument segments for remote backends, whose keys travel over
// the wire and may hit length limits.
func keySerializerFor(backend cache.Backend) cache.KeySerializer {
	if backend == cache.BackendRedis {
		return cache.NewHashedKeySerializer()
	}
	return cache.NewDefaultKeySerializer()
}

// Prepare creates the schema and loads the seed file. With DB.Reset the tables are dropped
// first and every cached entry is purged, since ids are handed out again. Seeding only
// runs on an empty catalog.
func (c *Container) Prepare(ctx context.Context) error {
	if err := store.CreateSchema(ctx, c.db, c.config.DB.Reset); err != nil {
		return err
	}

	if c.config.DB.Reset {
		for _, purge := range c.purgers {
			if err := purge(ctx); err != nil {
				c.logger.WarnContext(ctx, "cache purge failed", "error", err)
			}
		}
	}

	if c.config.DB.SeedFile == "" {
		return nil
	}

	existing, err := c.db.NewSelect().Model((*model.Author)(nil)).Count(ctx)
	if err != nil {
		return fmt.Errorf("seed: count authors: %w", err)
	}
	if existing > 0 {
		c.logger.InfoContext(ctx, "catalog not empty, skipping seed", "file", c.config.DB.SeedFile)
		return nil
	}

	f, err := os.Open(c.config.DB.SeedFile)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	defer f.Close()

	res, err := store.Seed(ctx, c.db, f)
	if err != nil {
		return err
	}
	c.logger.InfoContext(ctx, "catalog seeded",
		"file", c.config.DB.SeedFile,
		"authors", res.Authors,
		"categories", res.Categories,
		"books", res.Books,
	)
	return nil
}

// Handler returns the HTTP API. /readyz pings the database.
func (c *Container) Handler() http.Handler {
	return httpapi.New(c.catalog, httpapi.Config{
		Logger:      c.logger,
		MaxPageSize: c.config.HTTP.MaxPageSize,
		Ready:       c.db.PingContext,
	})
}

// Close releases the cache backend and the database, when the container opened them.
func (c *Container) Close() error {
	var errs []error
	for _, closeFn := range c.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

// Catalog returns the entity services.
func (c *Container) Catalog() *catalog.Catalog {
	return c.catalog
}

// DB returns the database handle.
func (c *Container) DB() *bun.DB {
	return c.db
}

// CacheService returns the shared cache service.
func (c *Container) CacheService() cache.CacheService {
	return c.cacheService
}

// KeySerializer returns the shared key serializer.
func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keySerializer
}

// Config returns the configuration the container was built from.
func (c *Container) Config() config.Config {
	return c.config
}

// Logger returns the logger shared by every component.
func (c *Container) Logger() *slog.Logger {
	return c.logger
}
