package cacheinfra

import (
	"context"
	"strings"

	"github.com/viccon/sturdyc"
)

// sturdycService is the in-process backend. Entries are boxed as any so one
// client serves every repository.
type sturdycService struct {
	client *sturdyc.Client[any]
}

// NewSturdycService validates cfg and builds a sturdyc client sized by it.
func NewSturdycService(cfg Config) (*sturdycService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &sturdycService{
		client: sturdyc.New[any](cfg.Capacity, cfg.NumShards, cfg.TTL, cfg.EvictionPercentage, cfg.sturdycOptions()...),
	}, nil
}

// GetOrFetch serves key from memory or runs fetchFn, a func(context.Context) (T, error).
// sturdyc collapses concurrent misses on one key into a single fetch, and an error
// leaves nothing behind.
func (s *sturdycService) GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error) {
	if err := validateFetchFn(fetchFn); err != nil {
		return nil, err
	}
	return s.client.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		return callFetch(ctx, fetchFn)
	})
}

func (s *sturdycService) Delete(_ context.Context, key string) error {
	s.client.Delete(key)
	return nil
}

// DeleteByPrefix scans the live keys, so its cost grows with the cache size.
func (s *sturdycService) DeleteByPrefix(ctx context.Context, prefix string) error {
	var matched []string
	for _, key := range s.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			matched = append(matched, key)
		}
	}
	return s.InvalidateKeys(ctx, matched)
}

func (s *sturdycService) InvalidateKeys(_ context.Context, keys []string) error {
	for _, key := range keys {
		s.client.Delete(key)
	}
	return nil
}
