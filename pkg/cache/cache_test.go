package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheUnboundedByDefault(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	for _, k := range []string{"a", "b", "c", "d"} {
		require.NoError(t, mc.Set(ctx, k, []byte(k), 0))
	}
	assert.Equal(t, 4, mc.Len())

	v, err := mc.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), v)
}

func TestMemoryCacheLRU(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, mc.Set(ctx, "b", []byte("2"), 0))
	_, err := mc.Get(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, mc.Set(ctx, "c", []byte("3"), 0))

	_, err = mc.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrCacheMiss)
	ok, _ := mc.Exists(ctx, "a", "c")
	assert.True(t, ok)

	// overwriting an existing key never evicts
	require.NoError(t, mc.Set(ctx, "c", []byte("4"), 0))
	assert.Equal(t, 2, mc.Len())
}

func TestMemoryCacheExpiration(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "k", []byte("v"), time.Nanosecond))
	time.Sleep(2 * time.Millisecond)
	_, err := mc.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheCopiesValues(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	buf := []byte("abc")
	require.NoError(t, mc.Set(ctx, "k", buf, 0))
	buf[0] = 'z'
	v, _ := mc.Get(ctx, "k")
	assert.Equal(t, "abc", string(v))
}

func TestLayeredCacheReadsThrough(t *testing.T) {
	ctx := context.Background()
	remote := NewMemoryCache()
	lc := NewLayeredCache(remote, WithLayeredMemorySize(10))
	defer lc.Close()

	require.NoError(t, remote.Set(ctx, "k", []byte("remote"), 0))
	v, err := lc.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "remote", string(v))

	// served from L1 after the remote copy is gone
	require.NoError(t, remote.Delete(ctx, "k"))
	v, err = lc.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "remote", string(v))

	require.NoError(t, lc.Set(ctx, "w", []byte("x"), 0))
	ok, err := remote.Exists(ctx, "w")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, lc.Delete(ctx, "k", "w"))
	_, err = lc.Get(ctx, "w")
	assert.ErrorIs(t, err, ErrCacheMiss)
}
