package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/shopster-storefront/pkg/errors"
	"github.com/angelmondragon/shopster-storefront/pkg/redis"
)

type memoryKV struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newMemoryKV() *memoryKV {
	return &memoryKV{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryKV) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value.(string)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryKV) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value.(string)
	m.ttls[key] = ttl
	return nil
}

func (m *memoryKV) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryKV) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

type testKeyer struct{}

func (testKeyer) LockKey(scope, id string) string   { return "sf:lock:" + scope + ":" + id }
func (testKeyer) CartIDKey(visitorID string) string { return "sf:cart:" + visitorID }

func TestRedisLockerExcludesSecondHolder(t *testing.T) {
	kv := newMemoryKV()
	locker := newRedisLocker(kv, testKeyer{}, time.Second, 120*time.Millisecond)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "v1")
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}
	if kv.ttls["sf:lock:cart:v1"] != time.Second {
		t.Fatalf("expected lock ttl to be applied")
	}

	_, err = locker.Lock(ctx, "v1")
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected busy conflict, got %v", err)
	}

	unlock()
	unlock2, err := locker.Lock(ctx, "v1")
	if err != nil {
		t.Fatalf("lock after release: %v", err)
	}
	unlock2()
}

func TestRedisLockerReleaseKeepsForeignOwner(t *testing.T) {
	kv := newMemoryKV()
	locker := newRedisLocker(kv, testKeyer{}, time.Second, 50*time.Millisecond)

	unlock, err := locker.Lock(context.Background(), "v1")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	// The TTL expired and another request took over.
	kv.data["sf:lock:cart:v1"] = "someone-else"
	unlock()

	if kv.data["sf:lock:cart:v1"] != "someone-else" {
		t.Fatal("release must not drop a lock held by another owner")
	}
}

func TestRedisLockerHonorsContext(t *testing.T) {
	kv := newMemoryKV()
	kv.data["sf:lock:cart:v1"] = "held"
	locker := newRedisLocker(kv, testKeyer{}, time.Second, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := locker.Lock(ctx, "v1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

func TestLockTTLCoversSlowestMutation(t *testing.T) {
	cases := []struct {
		name       string
		configured time.Duration
		timeout    time.Duration
		want       time.Duration
	}{
		{"default backend timeout raises ttl", 15 * time.Second, 10 * time.Second, 62 * time.Second},
		{"generous ttl is kept", 2 * time.Minute, 10 * time.Second, 2 * time.Minute},
		{"fast backend keeps configured ttl", 15 * time.Second, time.Second, 15 * time.Second},
		{"unset ttl falls back to default", 0, 0, defaultLockTTL},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := LockTTLFor(tc.configured, tc.timeout)
			if got != tc.want {
				t.Fatalf("got %v want %v", got, tc.want)
			}
			if tc.timeout > 0 && got < time.Duration(maxBackendCallsPerMutation)*tc.timeout {
				t.Fatalf("ttl %v expires before %d calls of %v", got, maxBackendCallsPerMutation, tc.timeout)
			}
		})
	}
}

func TestRedisLockerAppliesDerivedTTL(t *testing.T) {
	kv := newMemoryKV()
	locker := newRedisLocker(kv, testKeyer{}, LockTTLFor(15*time.Second, 10*time.Second), time.Second)
	unlock, err := locker.Lock(context.Background(), "v1")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	defer unlock()
	if got := kv.ttls["sf:lock:cart:v1"]; got != 62*time.Second {
		t.Fatalf("expected derived ttl on the lock key, got %v", got)
	}
}

func TestRedisIDStoreRoundTrip(t *testing.T) {
	kv := newMemoryKV()
	store := &RedisIDStore{store: kv, keyer: testKeyer{}, ttl: time.Hour}
	ctx := context.Background()

	id, err := store.Load(ctx, "v1")
	if err != nil || id != "" {
		t.Fatalf("expected empty id on miss, got %q (%v)", id, err)
	}
	if err := store.Save(ctx, "v1", "cart-9"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if kv.ttls["sf:cart:v1"] != time.Hour {
		t.Fatalf("expected ttl on cart id")
	}
	if id, _ := store.Load(ctx, "v1"); id != "cart-9" {
		t.Fatalf("unexpected id %q", id)
	}
	if err := store.Forget(ctx, "v1"); err != nil {
		t.Fatalf("forget: %v", err)
	}
	if id, _ := store.Load(ctx, "v1"); id != "" {
		t.Fatalf("expected id forgotten, got %q", id)
	}
}
