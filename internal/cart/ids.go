package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/shopster-storefront/pkg/redis"
)

// IDStore persists the only piece of cart state that survives between requests.
type IDStore interface {
	Load(ctx context.Context, visitorID string) (string, error)
	Save(ctx context.Context, visitorID, cartID string) error
	Forget(ctx context.Context, visitorID string) error
}

type idBackend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type idKeyer interface {
	CartIDKey(visitorID string) string
}

// RedisIDStore keeps cart ids under sf:cart:<visitorID>.
type RedisIDStore struct {
	store idBackend
	keyer idKeyer
	ttl   time.Duration
}

// NewRedisIDStore builds the Redis-backed id store.
func NewRedisIDStore(client *redis.Client, ttl time.Duration) (*RedisIDStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &RedisIDStore{store: client, keyer: client, ttl: ttl}, nil
}

// Load returns the stored cart id, or "" when there is none.
func (s *RedisIDStore) Load(ctx context.Context, visitorID string) (string, error) {
	if strings.TrimSpace(visitorID) == "" {
		return "", nil
	}
	value, err := s.store.Get(ctx, s.keyer.CartIDKey(visitorID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("load cart id: %w", err)
	}
	return strings.TrimSpace(value), nil
}

// Save stores the cart id and refreshes its TTL.
func (s *RedisIDStore) Save(ctx context.Context, visitorID, cartID string) error {
	if strings.TrimSpace(visitorID) == "" {
		return nil
	}
	if err := s.store.Set(ctx, s.keyer.CartIDKey(visitorID), cartID, s.ttl); err != nil {
		return fmt.Errorf("save cart id: %w", err)
	}
	return nil
}

// Forget drops the stored cart id.
func (s *RedisIDStore) Forget(ctx context.Context, visitorID string) error {
	if strings.TrimSpace(visitorID) == "" {
		return nil
	}
	if err := s.store.Del(ctx, s.keyer.CartIDKey(visitorID)); err != nil {
		return fmt.Errorf("forget cart id: %w", err)
	}
	return nil
}
