package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/baharkarakas/franchise-backend/internal/metrics"
)

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration)
	Delete(ctx context.Context, keys ...string)
}

// Loader fills a Cache on misses. Concurrent misses for one key share a single load.
type Loader struct {
	c     Cache
	ttl   time.Duration
	group singleflight.Group
}

func NewLoader(c Cache, ttl time.Duration) *Loader {
	return &Loader{c: c, ttl: ttl}
}

func (l *Loader) Invalidate(ctx context.Context, keys ...string) {
	l.c.Delete(ctx, keys...)
}

// GetOrLoad returns the cached JSON value for key or calls load and caches its result.
func GetOrLoad[T any](ctx context.Context, l *Loader, key string, load func(context.Context) (T, error)) (T, error) {
	var out T
	if raw, ok := l.c.Get(ctx, key); ok {
		if err := json.Unmarshal(raw, &out); err == nil {
			metrics.CacheRequests.WithLabelValues("hit").Inc()
			return out, nil
		}
		l.c.Delete(ctx, key)
	}
	metrics.CacheRequests.WithLabelValues("miss").Inc()

	v, err, _ := l.group.Do(key, func() (any, error) {
		val, err := load(ctx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(val)
		if err != nil {
			slog.WarnContext(ctx, "cache encode", "key", key, "err", err)
			return val, nil
		}
		l.c.Set(ctx, key, raw, l.ttl)
		return val, nil
	})
	if err != nil {
		return out, err
	}
	return v.(T), nil
}
