package lrucache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type mockValue struct {
	data string
}

func TestCache_HitAndMiss(t *testing.T) {
	t.Parallel()

	cache := New[string, mockValue](10)

	// Cache miss
	value, ok := cache.Get("bogus")
	assert.False(t, ok)
	assert.Equal(t, mockValue{}, value)

	cache.Put("foo key", mockValue{"foo"})

	// Cache hit
	value, ok = cache.Get("foo key")
	assert.True(t, ok)
	assert.Equal(t, mockValue{"foo"}, value)

	// Overwrite keeps a single entry
	cache.Put("foo key", mockValue{"bar"})
	value, ok = cache.Get("foo key")
	assert.True(t, ok)
	assert.Equal(t, mockValue{"bar"}, value)
	assert.Equal(t, 1, cache.Len())
}

func TestCache_Eviction(t *testing.T) {
	t.Parallel()

	cache := New[string, mockValue](3)

	cache.Put("foo key", mockValue{"foo"})
	cache.Put("bar key", mockValue{"bar"})
	cache.Put("baz key", mockValue{"baz"})

	// A 4th item evicts the oldest one
	cache.Put("qux key", mockValue{"qux"})
	assert.Equal(t, 3, cache.Len())

	_, ok := cache.Get("foo key")
	assert.False(t, ok, "oldest entry should have been evicted")
	for _, key := range []string{"bar key", "baz key", "qux key"} {
		_, ok = cache.Get(key)
		assert.True(t, ok, key)
	}
}

func TestCache_Ordering(t *testing.T) {
	t.Parallel()

	cache := New[int, mockValue](3)

	// LRU order: 1 -> 2 -> 3
	cache.Put(1, mockValue{"foo"})
	cache.Put(2, mockValue{"bar"})
	cache.Put(3, mockValue{"baz"})

	// LRU order: 2 -> 3 -> 1
	_, ok := cache.Get(1)
	assert.True(t, ok)

	cache.Put(4, mockValue{"qux"})

	_, ok = cache.Get(2)
	assert.False(t, ok, "2 should have been evicted as LRU")
	for _, key := range []int{1, 3, 4} {
		_, ok = cache.Get(key)
		assert.True(t, ok, "%d should still be cached", key)
	}
}

func TestCache_ZeroSize(t *testing.T) {
	t.Parallel()

	cache := New[int, mockValue](0)
	cache.Put(1, mockValue{"foo"})

	_, ok := cache.Get(1)
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Len())
}

func TestCache_Concurrent(t *testing.T) {
	t.Parallel()

	var (
		cache = New[string, mockValue](100)
		wg    sync.WaitGroup
	)

	// Concurrent writes
	for i := range 50 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("foo%d", n)
			cache.Put(key, mockValue{fmt.Sprintf("value%d", n)})
		}(i)
	}

	// Concurrent reads
	for i := range 50 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			cache.Get(fmt.Sprintf("foo%d", n))
		}(i)
	}

	wg.Wait()

	for i := range 50 {
		key := fmt.Sprintf("foo%d", i)
		value, ok := cache.Get(key)
		assert.True(t, ok, "key %s should be in cache", key)
		assert.Equal(t, mockValue{fmt.Sprintf("value%d", i)}, value)
	}
}

func BenchmarkCache_Get(b *testing.B) {
	cache := New[int, mockValue](1000)
	for i := range 1000 {
		cache.Put(i, mockValue{fmt.Sprintf("value%d", i)})
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		cache.Get(i % 1000)
	}
}
