package cache

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/angelmondragon/shopster-storefront/pkg/logger"
	"github.com/angelmondragon/shopster-storefront/pkg/redis"
	"golang.org/x/sync/singleflight"
)

// Store is the redis surface used for cached reads.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CacheKey(parts ...string) string
}

// Loader coalesces concurrent loads of the same key and keeps results in Redis.
type Loader struct {
	store   Store
	logg    *logger.Logger
	enabled bool
	group   singleflight.Group
}

// New builds a loader. A nil store or enabled=false makes every Load go straight to fetch.
func New(store Store, logg *logger.Logger, enabled bool) *Loader {
	return &Loader{store: store, logg: logg, enabled: enabled && store != nil}
}

// Key builds a namespaced cache key.
func (l *Loader) Key(parts ...string) string {
	if l == nil || l.store == nil {
		return fmt.Sprint(parts)
	}
	return l.store.CacheKey(parts...)
}

// Load returns the value cached under key or calls fetch and caches its result for ttl.
// Cache failures are logged and never fail the read.
func Load[T any](ctx context.Context, l *Loader, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	if l == nil || !l.enabled || ttl <= 0 {
		return fetch(ctx)
	}

	if raw, err := l.store.Get(ctx, key); err == nil {
		var cached T
		if decodeErr := json.Unmarshal([]byte(raw), &cached); decodeErr == nil {
			return cached, nil
		}
		l.warn(ctx, key, "discarding undecodable cache entry")
	} else if !stdErrors.Is(err, redis.Nil) {
		l.warn(ctx, key, "cache read failed")
	}

	// The shared fetch outlives any single caller; a cancelled caller only stops waiting.
	ch := l.group.DoChan(key, func() (any, error) {
		fetchCtx := context.WithoutCancel(ctx)
		value, err := fetch(fetchCtx)
		if err != nil {
			return value, err
		}
		payload, err := json.Marshal(value)
		if err == nil {
			err = l.store.Set(fetchCtx, key, payload, ttl)
		}
		if err != nil {
			l.warn(fetchCtx, key, "cache write failed")
		}
		return value, nil
	})
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case res := <-ch:
		value, _ := res.Val.(T)
		return value, res.Err
	}
}

func (l *Loader) warn(ctx context.Context, key, msg string) {
	if l.logg == nil {
		return
	}
	l.logg.Warn(l.logg.WithField(ctx, "cache_key", key), msg)
}
