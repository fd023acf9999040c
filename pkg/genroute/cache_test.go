package genroute_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinexa/genroute/pkg/genroute"
)

func TestLRUResultCache_GetPut(t *testing.T) {
	cache := genroute.NewLRUResultCache(10, 0)

	_, ok := cache.Get("missing")
	assert.False(t, ok)

	cache.Put("k1", &genroute.Result{Text: "v1"})
	res, ok := cache.Get("k1")
	require.True(t, ok)
	assert.Equal(t, "v1", res.Text)

	// Overwrite under the same key.
	cache.Put("k1", &genroute.Result{Text: "v2"})
	res, ok = cache.Get("k1")
	require.True(t, ok)
	assert.Equal(t, "v2", res.Text)
}

func TestLRUResultCache_ReturnsCopies(t *testing.T) {
	cache := genroute.NewLRUResultCache(10, 0)

	original := &genroute.Result{Text: "t", URLs: []string{"a", "b"}}
	cache.Put("k", original)

	// Mutating the stored value after Put must not affect the cache.
	original.URLs[0] = "mutated"

	res, ok := cache.Get("k")
	require.True(t, ok)
	assert.Equal(t, "a", res.URLs[0])

	// Mutating a Get result must not affect later reads.
	res.URLs[1] = "mutated"
	res2, _ := cache.Get("k")
	assert.Equal(t, "b", res2.URLs[1])
}

func TestLRUResultCache_EvictsOldest(t *testing.T) {
	cache := genroute.NewLRUResultCache(3, 0)

	cache.Put("a", &genroute.Result{Text: "a"})
	cache.Put("b", &genroute.Result{Text: "b"})
	cache.Put("c", &genroute.Result{Text: "c"})

	// Touch "a" so "b" becomes the least recently used.
	_, ok := cache.Get("a")
	require.True(t, ok)

	cache.Put("d", &genroute.Result{Text: "d"})

	_, ok = cache.Get("b")
	assert.False(t, ok, "least recently used entry should be evicted")
	for _, k := range []string{"a", "c", "d"} {
		_, ok := cache.Get(k)
		assert.True(t, ok, "entry %q should survive", k)
	}

	stats := cache.Stats()
	assert.Equal(t, 3, stats.Size)
	assert.Equal(t, int64(1), stats.Evictions)
}

func TestLRUResultCache_SizeStaysBounded(t *testing.T) {
	cache := genroute.NewLRUResultCache(5, 0)

	for i := 0; i < 100; i++ {
		cache.Put(fmt.Sprintf("k%d", i), &genroute.Result{Text: "v"})
	}

	assert.Equal(t, 5, cache.Stats().Size)
}

func TestLRUResultCache_TTL(t *testing.T) {
	cache := genroute.NewLRUResultCache(10, 30*time.Millisecond)

	cache.Put("k", &genroute.Result{Text: "v"})
	_, ok := cache.Get("k")
	require.True(t, ok)

	time.Sleep(50 * time.Millisecond)

	_, ok = cache.Get("k")
	assert.False(t, ok, "entry should expire after TTL")
	assert.Equal(t, 0, cache.Stats().Size, "expired entry should be dropped on lookup")
}

func TestLRUResultCache_Clear(t *testing.T) {
	cache := genroute.NewLRUResultCache(10, 0)
	cache.Put("k", &genroute.Result{Text: "v"})

	cache.Clear()

	_, ok := cache.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Stats().Size)
}

func TestLRUResultCache_Stats(t *testing.T) {
	cache := genroute.NewLRUResultCache(10, 0)

	cache.Put("k", &genroute.Result{Text: "v"})
	cache.Get("k")
	cache.Get("k")
	cache.Get("missing")

	stats := cache.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Size)
}

func TestNoopCache(t *testing.T) {
	cache := genroute.NewNoopCache()

	cache.Put("k", &genroute.Result{Text: "v"})
	_, ok := cache.Get("k")
	assert.False(t, ok)
	assert.Equal(t, genroute.CacheStats{}, cache.Stats())
}
