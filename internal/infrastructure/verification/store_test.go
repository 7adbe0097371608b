package verification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Ayan-Alam-07/VELoop-Backend/domain"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeFixture struct {
	store   domain.VerificationStore
	advance func(d time.Duration)
}

func newMemoryFixture(t *testing.T) storeFixture {
	t.Helper()
	var mu sync.Mutex
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	return storeFixture{
		store: NewMemoryStoreWithClock(clock),
		advance: func(d time.Duration) {
			mu.Lock()
			now = now.Add(d)
			mu.Unlock()
		},
	}
}

func newRedisFixture(t *testing.T) storeFixture {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return storeFixture{
		store:   NewRedisStore(client, "otp:"),
		advance: mr.FastForward,
	}
}

var fixtures = []struct {
	name string
	new  func(t *testing.T) storeFixture
}{
	{"memory", newMemoryFixture},
	{"redis", newRedisFixture},
}

func TestStore_GetSetDelete(t *testing.T) {
	for _, fx := range fixtures {
		t.Run(fx.name, func(t *testing.T) {
			f := fx.new(t)
			ctx := context.Background()

			data, version, err := f.store.Get(ctx, "missing")
			require.NoError(t, err)
			assert.Nil(t, data)
			assert.Zero(t, version)

			v1, err := f.store.Set(ctx, "k", []byte("one"), 0)
			require.NoError(t, err)
			assert.Positive(t, v1)

			data, version, err = f.store.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, []byte("one"), data)
			assert.Equal(t, v1, version)

			v2, err := f.store.Set(ctx, "k", []byte("two"), 0)
			require.NoError(t, err)
			assert.Greater(t, v2, v1)

			require.NoError(t, f.store.Delete(ctx, "k"))
			_, version, err = f.store.Get(ctx, "k")
			require.NoError(t, err)
			assert.Zero(t, version)

			// Versions are not reused after delete
			v3, err := f.store.Set(ctx, "k", []byte("three"), 0)
			require.NoError(t, err)
			assert.Greater(t, v3, v2)
		})
	}
}

func TestStore_Expiry(t *testing.T) {
	for _, fx := range fixtures {
		t.Run(fx.name, func(t *testing.T) {
			f := fx.new(t)
			ctx := context.Background()

			_, err := f.store.Set(ctx, "k", []byte("x"), time.Minute)
			require.NoError(t, err)

			f.advance(59 * time.Second)
			_, version, err := f.store.Get(ctx, "k")
			require.NoError(t, err)
			assert.Positive(t, version)

			f.advance(2 * time.Second)
			data, version, err := f.store.Get(ctx, "k")
			require.NoError(t, err)
			assert.Nil(t, data)
			assert.Zero(t, version)
		})
	}
}

func TestStore_CompareAndSwap(t *testing.T) {
	for _, fx := range fixtures {
		t.Run(fx.name, func(t *testing.T) {
			f := fx.new(t)
			ctx := context.Background()

			// Create-if-absent
			ok, v1, err := f.store.CompareAndSwap(ctx, "k", 0, []byte("a"), 0)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Positive(t, v1)

			// A second create-if-absent loses and learns the current version
			ok, current, err := f.store.CompareAndSwap(ctx, "k", 0, []byte("b"), 0)
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Equal(t, v1, current)

			ok, v2, err := f.store.CompareAndSwap(ctx, "k", v1, []byte("c"), 0)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Greater(t, v2, v1)

			// Stale version is refused
			ok, _, err = f.store.CompareAndSwap(ctx, "k", v1, []byte("d"), 0)
			require.NoError(t, err)
			assert.False(t, ok)

			data, _, err := f.store.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, []byte("c"), data)
		})
	}
}

func TestStore_CompareAndDelete(t *testing.T) {
	for _, fx := range fixtures {
		t.Run(fx.name, func(t *testing.T) {
			f := fx.new(t)
			ctx := context.Background()

			v1, err := f.store.Set(ctx, "k", []byte("a"), 0)
			require.NoError(t, err)
			v2, err := f.store.Set(ctx, "k", []byte("b"), 0)
			require.NoError(t, err)

			ok, err := f.store.CompareAndDelete(ctx, "k", v1)
			require.NoError(t, err)
			assert.False(t, ok)

			ok, err = f.store.CompareAndDelete(ctx, "k", v2)
			require.NoError(t, err)
			assert.True(t, ok)

			_, version, err := f.store.Get(ctx, "k")
			require.NoError(t, err)
			assert.Zero(t, version)
		})
	}
}

func TestStore_ConcurrentSwapSingleWinner(t *testing.T) {
	for _, fx := range fixtures {
		t.Run(fx.name, func(t *testing.T) {
			f := fx.new(t)
			ctx := context.Background()

			base, err := f.store.Set(ctx, "k", []byte("base"), 0)
			require.NoError(t, err)

			const n = 16
			var wg sync.WaitGroup
			wins := make(chan bool, n)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					ok, _, err := f.store.CompareAndSwap(ctx, "k", base, []byte("next"), 0)
					if err != nil {
						t.Errorf("unexpected error: %v", err)
					}
					wins <- ok
				}()
			}
			wg.Wait()
			close(wins)

			won := 0
			for ok := range wins {
				if ok {
					won++
				}
			}
			assert.Equal(t, 1, won)
		})
	}
}

func TestMemoryStore_Sweep(t *testing.T) {
	now := time.Now()
	store := NewMemoryStoreWithClock(func() time.Time { return now })
	ctx := context.Background()

	_, _ = store.Set(ctx, "short", []byte("x"), time.Second)
	_, _ = store.Set(ctx, "long", []byte("x"), time.Hour)
	_, _ = store.Set(ctx, "forever", []byte("x"), 0)

	now = now.Add(time.Minute)
	assert.Equal(t, 1, store.Sweep())

	_, version, _ := store.Get(ctx, "long")
	assert.Positive(t, version)
}
