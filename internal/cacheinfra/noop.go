package cacheinfra

import "context"

// noopService never stores anything: every read goes to the source.
type noopService struct{}

// NewNoopService returns a cache service that always misses.
func NewNoopService() *noopService {
	return &noopService{}
}

func (noopService) GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error) {
	if err := validateFetchFn(fetchFn); err != nil {
		return nil, err
	}
	return callFetch(ctx, fetchFn)
}

func (noopService) Delete(ctx context.Context, key string) error { return nil }

func (noopService) DeleteByPrefix(ctx context.Context, prefix string) error { return nil }

func (noopService) InvalidateKeys(ctx context.Context, keys []string) error { return nil }
