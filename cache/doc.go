// Package cache provides the read-through caching contract used by the catalog repositories.
//
// # Overview
//
// The package exports two interfaces and their default implementations:
//
//   - CacheService: get-or-compute, single key removal, prefix removal and bulk removal
//   - KeySerializer: builds stable cache keys from a method name and the query arguments
//
// Backends are selected through Config.Backend:
//
//   - memory: in-process sturdyc cache (default)
//   - redis: shared Redis cache, values encoded with msgpack
//   - none: every read misses
//
// # Basic Usage
//
//	svc, closeFn, err := cache.NewCacheService(cache.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer closeFn()
//
//	serializer := cache.NewDefaultKeySerializer()
//	key := serializer.SerializeKey("GetByID", int64(42))
//
//	book, err := cache.GetOrFetch(ctx, svc, key, func(ctx context.Context) (*model.Book, error) {
//		return repo.GetByID(ctx, 42)
//	})
//
// # Errors
//
// GetOrFetch returns errors produced by the fetch function unchanged. Errors raised by the
// backend itself (a timeout, a refused connection) come back as *UnavailableError, so
// callers can choose to read the source directly instead of failing:
//
//	if cache.IsUnavailable(err) {
//		return repo.GetByID(ctx, 42)
//	}
//
// # Key Serialization Strategy
//
// The default key serializer uses reflection to handle various Go types:
//
//   - Strings: Go-quoted, so separators inside a value stay inside its segment
//   - Numbers and bools: strconv formatting
//   - time.Time: RFC3339Nano with its offset, since the calendar date depends on it
//   - Values implementing Keyer: their CacheKey() result, quoted
//   - Pointers: dereferenced, nil becomes "nil"
//   - Slices/arrays: recursive serialization of elements
//   - Maps: sorted key-value pairs for deterministic output
//   - Structs: exported fields with name:value pairs
//   - Function pointers: %p formatting, stable only within one process
//
// Query filters should therefore be plain structs rather than closures. Remote backends
// with key length limits can use NewHashedKeySerializer, which keeps the method segment
// and replaces the arguments with an xxhash digest.
//
// # Staleness
//
// Entries live for Config.TTL (one minute by default). Repository decorators remove the
// affected keys after every write, so TTL only bounds staleness when an invalidation is
// missed or when another process wrote through a different cache.
package cache
