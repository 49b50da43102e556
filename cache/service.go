package cache

import (
	"context"
	"errors"
	"fmt"
)

// ErrInvalidResultType is returned when a cache backend hands back a value that does not
// match the type declared by the fetch function.
var ErrInvalidResultType = errors.New("cache: invalid result type")

// KeySerializer builds a cache key from a method name + arbitrary args.
// It is responsible for producing stable keys across calls.
type KeySerializer interface {
	SerializeKey(method string, args ...any) string
}

// FetchFn is the function signature CacheService expects when fetching from the source of truth.
type FetchFn[T any] func(ctx context.Context) (T, error)

// CacheService exposes the read-through caching operations we need when decorating repositories.
// Backends receive fetchFn as a FetchFn[T] and may inspect its result type.
type CacheService interface {
	GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error)
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
	InvalidateKeys(ctx context.Context, keys []string) error
}

// UnavailableError reports that the cache itself failed, as opposed to the source of truth.
// Callers are expected to fall back to the source when they see it.
type UnavailableError struct {
	Key string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("cache unavailable for key %q: %v", e.Key, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// IsUnavailable reports whether err came from the cache backend rather than the fetch function.
func IsUnavailable(err error) bool {
	var target *UnavailableError
	return errors.As(err, &target)
}

// sourceError marks errors returned by the fetch function so they can be told apart from
// backend failures after a round trip through the cache.
type sourceError struct {
	err error
}

func (e *sourceError) Error() string { return e.err.Error() }
func (e *sourceError) Unwrap() error { return e.err }

// GetOrFetch is a type-safe wrapper function that provides generic support for CacheService.
//
// Errors returned by fetchFn are passed through unchanged. Any other error produced while
// talking to the backend is wrapped in an *UnavailableError.
func GetOrFetch[T any](ctx context.Context, service CacheService, key string, fetchFn FetchFn[T]) (T, error) {
	var zero T

	tagged := FetchFn[T](func(ctx context.Context) (T, error) {
		v, err := fetchFn(ctx)
		if err != nil {
			return v, &sourceError{err: err}
		}
		return v, nil
	})

	result, err := service.GetOrFetch(ctx, key, tagged)
	if err != nil {
		var src *sourceError
		if errors.As(err, &src) {
			return zero, src.err
		}
		return zero, &UnavailableError{Key: key, Err: err}
	}

	if result == nil {
		return zero, nil
	}

	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("%w: key %q holds %T", ErrInvalidResultType, key, result)
	}
	return typed, nil
}
