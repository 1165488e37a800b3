package cache

import (
	"context"
	stdErrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/angelmondragon/shopster-storefront/pkg/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	case string:
		m.data[key] = v
	}
	m.ttls[key] = ttl
	return nil
}

func (m *memoryStore) CacheKey(parts ...string) string {
	key := "sf:cache"
	for _, p := range parts {
		key += ":" + p
	}
	return key
}

type category struct {
	Slug string `json:"slug"`
}

func TestLoadCachesResult(t *testing.T) {
	store := newMemoryStore()
	loader := New(store, nil, true)
	calls := 0
	fetch := func(context.Context) ([]category, error) {
		calls++
		return []category{{Slug: "lamps"}}, nil
	}

	key := loader.Key("categories")
	first, err := Load(context.Background(), loader, key, time.Minute, fetch)
	require.NoError(t, err)
	second, err := Load(context.Background(), loader, key, time.Minute, fetch)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
	assert.Equal(t, time.Minute, store.ttls["sf:cache:categories"])
}

func TestLoadDoesNotCacheErrors(t *testing.T) {
	store := newMemoryStore()
	loader := New(store, nil, true)
	boom := stdErrors.New("boom")

	_, err := Load(context.Background(), loader, "k", time.Minute, func(context.Context) (int, error) {
		return 0, boom
	})
	require.ErrorIs(t, err, boom)
	assert.Empty(t, store.data)
}

func TestLoadDisabledAlwaysFetches(t *testing.T) {
	loader := New(newMemoryStore(), nil, false)
	calls := 0
	for i := 0; i < 3; i++ {
		_, err := Load(context.Background(), loader, "k", time.Minute, func(context.Context) (int, error) {
			calls++
			return calls, nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, calls)
}

func TestLoadCoalescesConcurrentMisses(t *testing.T) {
	loader := New(newMemoryStore(), nil, true)
	var calls atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := Load(context.Background(), loader, "facets", time.Minute, func(context.Context) (string, error) {
				calls.Add(1)
				<-release
				return "ok", nil
			})
			assert.NoError(t, err)
			assert.Equal(t, "ok", v)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, calls.Load(), int32(5))
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}

func TestLoadSurvivesFirstCallerCancellation(t *testing.T) {
	store := newMemoryStore()
	loader := New(store, nil, true)
	started := make(chan struct{})
	release := make(chan struct{})
	var fetchErr atomic.Value

	fetch := func(ctx context.Context) (string, error) {
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			fetchErr.Store(err)
			return "", err
		}
		return "catalog", nil
	}

	firstCtx, cancel := context.WithCancel(context.Background())
	firstDone := make(chan error, 1)
	go func() {
		_, err := Load(firstCtx, loader, "categories", time.Minute, fetch)
		firstDone <- err
	}()
	<-started

	secondDone := make(chan string, 1)
	go func() {
		v, err := Load(context.Background(), loader, "categories", time.Minute, func(context.Context) (string, error) {
			return "", stdErrors.New("second fetch must join the first")
		})
		assert.NoError(t, err)
		secondDone <- v
	}()

	cancel()
	require.ErrorIs(t, <-firstDone, context.Canceled)
	time.Sleep(20 * time.Millisecond)
	close(release)

	assert.Equal(t, "catalog", <-secondDone)
	assert.Nil(t, fetchErr.Load(), "shared fetch must not see the caller's cancellation")
	_, err := store.Get(context.Background(), "categories")
	assert.NoError(t, err, "shared result should still be cached")
}
