package cacheinfra

import "context"

// Service mirrors cache.CacheService so backends can be returned without an import cycle.
type Service interface {
	GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error)
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
	InvalidateKeys(ctx context.Context, keys []string) error
}

var (
	_ Service = (*sturdycService)(nil)
	_ Service = (*redisService)(nil)
	_ Service = (*noopService)(nil)
)

// New builds the backend selected by cfg.Backend. The returned close function releases
// any connection the backend owns and is never nil.
func New(cfg Config) (Service, func() error, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	noClose := func() error { return nil }

	switch cfg.Backend {
	case BackendNone:
		return NewNoopService(), noClose, nil
	case BackendRedis:
		client, err := NewRedisClient(*cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		svc, err := NewRedisService(client, cfg.TTL, cfg.Redis.OpTimeout)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		return svc, client.Close, nil
	default:
		svc, err := NewSturdycService(cfg)
		if err != nil {
			return nil, nil, err
		}
		return svc, noClose, nil
	}
}
