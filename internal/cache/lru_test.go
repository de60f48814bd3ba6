package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "least recently used entry should be evicted")
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Size())
}

func TestLRUCacheExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	now = now.Add(2 * time.Minute)

	assert.Equal(t, 1, c.CleanExpired())
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestLRUCacheDeletePrefix(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("owner:1:income", 1)
	c.Set("owner:1:outcome", 2)
	c.Set("owner:12:income", 3)

	assert.Equal(t, 2, c.DeletePrefix("owner:1:"))
	_, ok := c.Get("owner:12:income")
	assert.True(t, ok)

	s := c.Stats()
	assert.Equal(t, 1, s.Size)
	assert.Equal(t, uint64(1), s.Hits)
}
