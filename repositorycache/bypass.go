package repositorycache

import (
	"context"
)

type cacheBypassContextKey struct{}

// WithoutCache marks ctx so that reads through a CachedRepository go straight to storage.
// Writes still invalidate. Use it for checks that must see committed data, such as the
// existence lookups that precede a write.
func WithoutCache(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, cacheBypassContextKey{}, true)
}

// CacheBypassed reports whether ctx was marked with WithoutCache.
func CacheBypassed(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	bypass, _ := ctx.Value(cacheBypassContextKey{}).(bool)
	return bypass
}
