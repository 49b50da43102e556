package repositorycache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/goliatone/go-book-catalog/cache"
	"github.com/goliatone/go-book-catalog/model"
	"github.com/goliatone/go-book-catalog/store"
	"github.com/puzpuzpuz/xsync/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "github.com/goliatone/go-book-catalog/repositorycache"

// Interface assertion to ensure CachedRepository implements store.Repository
var _ store.Repository[*model.Book] = (*CachedRepository[*model.Book])(nil)

// Identifiable is the part of an entity the decorator needs for targeted invalidation.
type Identifiable interface {
	EntityID() int64
}

// CachedRepository decorates a base repository with read-through caching.
type CachedRepository[T Identifiable] struct {
	base          store.Repository[T]
	cache         cache.CacheService
	keySerializer cache.KeySerializer
	namespace     string
	keyRegistry   *xsync.MapOf[string, struct{}] // keys read through this decorator
	logger        *slog.Logger
	fallbacks     metric.Int64Counter
}

// Option configures a CachedRepository.
type Option func(*options)

type options struct {
	namespace string
	logger    *slog.Logger
	meter     metric.Meter
}

// WithNamespace overrides the key namespace derived from the entity type name.
func WithNamespace(namespace string) Option {
	return func(o *options) {
		o.namespace = namespace
	}
}

// WithLogger sets the logger used for fallback and invalidation warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMeter sets the meter that owns the fallback counter.
func WithMeter(meter metric.Meter) Option {
	return func(o *options) {
		o.meter = meter
	}
}

// New creates a new CachedRepository that wraps the base repository with caching
func New[T Identifiable](base store.Repository[T], cacheService cache.CacheService, keySerializer cache.KeySerializer, opts ...Option) *CachedRepository[T] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.namespace == "" {
		o.namespace = namespaceFor[T]()
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.meter == nil {
		o.meter = otel.Meter(instrumentationName)
	}

	fallbacks, err := o.meter.Int64Counter(
		"repositorycache.fallbacks",
		metric.WithDescription("Reads served from storage because the cache was unavailable"),
		metric.WithUnit("{read}"),
	)
	if err != nil {
		fallbacks = noop.Int64Counter{}
	}

	return &CachedRepository[T]{
		base:          base,
		cache:         cacheService,
		keySerializer: keySerializer,
		namespace:     o.namespace,
		keyRegistry:   xsync.NewMapOf[string, struct{}](),
		logger:        o.logger.With("cache_namespace", o.namespace),
		fallbacks:     fallbacks,
	}
}

// Namespace returns the prefix shared by every key of this repository.
func (c *CachedRepository[T]) Namespace() string {
	return c.namespace
}

// GetByID retrieves a record by ID, with caching
func (c *CachedRepository[T]) GetByID(ctx context.Context, id int64) (T, error) {
	return read(ctx, c, "GetByID", c.key("GetByID", id), func(ctx context.Context) (T, error) {
		return c.base.GetByID(ctx, id)
	})
}

// List retrieves the records matching q, with caching
func (c *CachedRepository[T]) List(ctx context.Context, q store.Query) ([]T, error) {
	return read(ctx, c, "List", c.key("List", q), func(ctx context.Context) ([]T, error) {
		return c.base.List(ctx, q)
	})
}

// Count returns the number of records matching f, with caching
func (c *CachedRepository[T]) Count(ctx context.Context, f store.Filter) (int, error) {
	return read(ctx, c, "Count", c.key("Count", f), func(ctx context.Context) (int, error) {
		return c.base.Count(ctx, f)
	})
}

// Create passes through to the base repository and drops every cached listing.
func (c *CachedRepository[T]) Create(ctx context.Context, record T) (T, error) {
	result, err := c.base.Create(ctx, record)
	if err == nil {
		c.invalidateAfterCreate(ctx)
	}
	return result, err
}

// Update passes through to the base repository and drops the record's entry and every
// cached listing.
func (c *CachedRepository[T]) Update(ctx context.Context, record T) (T, error) {
	result, err := c.base.Update(ctx, record)
	if err == nil {
		c.invalidateRecord(ctx, record.EntityID())
	}
	return result, err
}

// Delete passes through to the base repository and drops the record's entry and every
// cached listing.
func (c *CachedRepository[T]) Delete(ctx context.Context, record T) error {
	err := c.base.Delete(ctx, record)
	if err == nil {
		c.invalidateRecord(ctx, record.EntityID())
	}
	return err
}

// Purge removes every key of the namespace from the backend, including keys written by
// other processes sharing it.
func (c *CachedRepository[T]) Purge(ctx context.Context) error {
	if err := c.cache.DeleteByPrefix(ctx, c.namespace+cache.KeySeparator); err != nil {
		return err
	}
	c.keyRegistry.Clear()
	return nil
}

func read[R any, T Identifiable](ctx context.Context, c *CachedRepository[T], op, key string, fetch cache.FetchFn[R]) (R, error) {
	if CacheBypassed(ctx) {
		return fetch(ctx)
	}

	c.trackKey(key)
	result, err := cache.GetOrFetch(ctx, c.cache, key, fetch)
	if err == nil {
		return result, nil
	}
	if !cache.IsUnavailable(err) && !errors.Is(err, cache.ErrInvalidResultType) {
		return result, err
	}

	c.logger.WarnContext(ctx, "cache read failed, falling back to storage",
		"operation", op, "key", key, "error", err)
	c.fallbacks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("namespace", c.namespace),
		attribute.String("operation", op),
	))
	return fetch(ctx)
}

func (c *CachedRepository[T]) key(method string, args ...any) string {
	return c.namespace + cache.KeySeparator + c.keySerializer.SerializeKey(method, args...)
}

// trackKey registers a cache key in the key registry for later invalidation
func (c *CachedRepository[T]) trackKey(key string) {
	c.keyRegistry.Store(key, struct{}{})
}

func (c *CachedRepository[T]) invalidateAfterCreate(ctx context.Context) {
	c.invalidate(ctx, nil, c.key("List"), c.key("Count"))
}

func (c *CachedRepository[T]) invalidateRecord(ctx context.Context, id int64) {
	c.invalidate(ctx, []string{c.key("GetByID", id)}, c.key("List"), c.key("Count"))
}

// invalidate removes exact plus every tracked key under one of the prefixes. A key matches
// a prefix when it equals it or continues with a separator.
func (c *CachedRepository[T]) invalidate(ctx context.Context, exact []string, prefixes ...string) {
	keys := append([]string(nil), exact...)
	c.keyRegistry.Range(func(key string, _ struct{}) bool {
		for _, p := range prefixes {
			if key == p || strings.HasPrefix(key, p+cache.KeySeparator) {
				keys = append(keys, key)
				break
			}
		}
		return true
	})
	if len(keys) == 0 {
		return
	}

	if err := c.cache.InvalidateKeys(ctx, keys); err != nil {
		// keep the keys tracked so the next write retries them
		c.logger.WarnContext(ctx, "cache invalidation failed", "keys", len(keys), "error", err)
		return
	}
	for _, key := range keys {
		c.keyRegistry.Delete(key)
	}
}
