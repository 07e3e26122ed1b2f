package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(opts Options) (*Cache, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	c := NewCache(opts)
	c.now = clock.now
	return c, clock
}

func TestCacheExpiration(t *testing.T) {
	c, clock := newTestCache(Options{DefaultExpiration: time.Minute})
	defer c.Close()

	c.Set("short", []byte("v"), time.Second)
	c.Set("long", []byte("v"), 0)
	clock.advance(2 * time.Second)

	_, ok := c.Get("short")
	assert.False(t, ok)
	v, ok := c.Get("long")
	assert.True(t, ok)
	assert.Equal(t, "v", string(v))

	clock.advance(time.Minute)
	_, ok = c.Get("long")
	assert.False(t, ok)

	c.purgeExpired()
	assert.Equal(t, 0, c.Len())
}

func TestCacheEvictsSoonestExpiring(t *testing.T) {
	c, _ := newTestCache(Options{MaxItems: 2})
	defer c.Close()

	c.Set("a", []byte("1"), time.Second)
	c.Set("b", []byte("2"), time.Hour)
	c.Set("c", []byte("3"), time.Hour)

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)

	// overwriting an existing key never evicts
	c.Set("c", []byte("4"), time.Hour)
	assert.Equal(t, 2, c.Len())
	_, ok = c.Get("b")
	assert.True(t, ok)
}

func TestCacheEvictsExpiredFirst(t *testing.T) {
	c, clock := newTestCache(Options{MaxItems: 2})
	defer c.Close()

	c.Set("forever", []byte("1"), 0)
	c.Set("stale", []byte("2"), time.Second)
	clock.advance(time.Minute)
	c.Set("fresh", []byte("3"), time.Hour)

	_, ok := c.Get("forever")
	assert.True(t, ok)
	_, ok = c.Get("fresh")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestCacheCopiesValues(t *testing.T) {
	c, _ := newTestCache(Options{})
	defer c.Close()

	value := []byte("hello")
	c.Set("k", value, 0)
	value[0] = 'j'

	got, ok := c.Get("k")
	require.True(t, ok)
	got[1] = 'a'

	again, _ := c.Get("k")
	assert.Equal(t, "hello", string(again))
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	c := NewCache(Options{DefaultExpiration: time.Minute})
	defer c.Close()
	store := NewMemoryStore(c)

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	value := []byte("hello")
	require.NoError(t, store.Set(ctx, "k", value, 0))
	value[0] = 'j'

	got, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hello", string(got))

	require.NoError(t, store.Delete(ctx, "k"))
	_, ok, _ = store.Get(ctx, "k")
	assert.False(t, ok)
}

func TestRedisOptions(t *testing.T) {
	opts, err := redisOptions("cache:6380", 2)
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)

	opts, err = redisOptions("redis://:pw@cache:6379/3", 0)
	require.NoError(t, err)
	assert.Equal(t, "cache:6379", opts.Addr)
	assert.Equal(t, 3, opts.DB)
	assert.Equal(t, "pw", opts.Password)
}
