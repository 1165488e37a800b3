package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	pkgerrors "github.com/angelmondragon/shopster-storefront/pkg/errors"
	"github.com/angelmondragon/shopster-storefront/pkg/redis"
	"github.com/google/uuid"
)

const (
	defaultLockTTL  = 15 * time.Second
	defaultLockWait = 5 * time.Second
	lockPollEvery   = 50 * time.Millisecond
	lockSlack       = 2 * time.Second

	// maxBackendCallsPerMutation is the worst case of one AddItem: load, create, add,
	// recreate after a stale cart, add again, reload.
	maxBackendCallsPerMutation = 6
)

// LockTTLFor raises the configured lock TTL so it outlives the slowest mutation at the
// given per-call backend timeout.
func LockTTLFor(configured, backendTimeout time.Duration) time.Duration {
	if configured <= 0 {
		configured = defaultLockTTL
	}
	if backendTimeout <= 0 {
		return configured
	}
	floor := time.Duration(maxBackendCallsPerMutation)*backendTimeout + lockSlack
	if configured < floor {
		return floor
	}
	return configured
}

// Locker serializes cart mutations of one visitor across requests.
type Locker interface {
	Lock(ctx context.Context, visitorID string) (unlock func(), err error)
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type lockKeyer interface {
	LockKey(scope, id string) string
}

// RedisLocker implements Locker with SETNX + TTL. The TTL bounds how long a crashed
// holder can block the cart.
type RedisLocker struct {
	client lockStore
	keyer  lockKeyer
	ttl    time.Duration
	wait   time.Duration
}

// NewRedisLocker constructs a Redis-backed cart lock.
func NewRedisLocker(client *redis.Client, ttl, wait time.Duration) (*RedisLocker, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	return newRedisLocker(client, client, ttl, wait), nil
}

func newRedisLocker(client lockStore, keyer lockKeyer, ttl, wait time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if wait <= 0 {
		wait = defaultLockWait
	}
	return &RedisLocker{client: client, keyer: keyer, ttl: ttl, wait: wait}
}

// Lock waits up to the configured wait for the visitor's cart lock.
func (l *RedisLocker) Lock(ctx context.Context, visitorID string) (func(), error) {
	key := l.keyer.LockKey("cart", visitorID)
	owner := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, key, owner, l.ttl)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("setnx: %w", err), "cart lock unavailable")
		}
		if ok {
			return func() { l.release(key, owner) }, nil
		}
		if time.Now().After(deadline) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, MsgBusy)
		}
		timer := time.NewTimer(lockPollEvery)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, ctx.Err(), MsgBusy)
		case <-timer.C:
		}
	}
}

// release frees the lock only if the owner value still matches.
func (l *RedisLocker) release(key, owner string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	value, err := l.client.Get(ctx, key)
	if err != nil || value != owner {
		return
	}
	_ = l.client.Del(ctx, key)
}
