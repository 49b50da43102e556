// Package repositorycache provides a read-through caching decorator for store repositories.
//
// # Overview
//
// CachedRepository wraps a store.Repository and intercepts read operations to serve them
// from a cache.CacheService. Write operations go to the base repository and, when they
// succeed, remove the cached reads they may have made stale.
//
// # Basic Usage
//
//	base := store.NewRepository(db, func() *model.Book { return new(model.Book) })
//	svc, closeCache, err := cache.NewCacheService(cache.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer closeCache()
//
//	books := repositorycache.New[*model.Book](base, svc, cache.NewDefaultKeySerializer(),
//		repositorycache.WithLogger(logger),
//	)
//
//	book, err := books.GetByID(ctx, 1)
//	page, err := books.List(ctx, store.Query{Filter: filter, Limit: 25})
//
// # Keys
//
// Every key has the form "<namespace>::<serialized call>". The namespace defaults to the
// snake_case name of the entity type ("book" for *model.Book). The serialized call is built
// by the KeySerializer from the method name and the full query shape, so List calls with
// different filters or page windows never share an entry.
//
// # Invalidation
//
// The decorator records every key it reads in an in-process registry.
//
//   - Create drops all tracked List and Count keys of the namespace.
//   - Update and Delete also drop the GetByID key of the written record.
//
// Invalidation errors are logged and never fail the write. Keys written by another process
// sharing a remote backend are not tracked here; they expire with the TTL. Purge clears the
// whole namespace on the backend when a hard reset is needed.
//
// # Availability
//
// When the backend fails (cache.IsUnavailable) the read is served from storage, a warning
// is logged and the "repositorycache.fallbacks" counter is incremented. Storage errors are
// returned unchanged and are never cached.
//
// # Bypass
//
// Reads with a context from WithoutCache skip the cache entirely. The catalog services use
// it for the existence and uniqueness checks that run before a write.
package repositorycache
