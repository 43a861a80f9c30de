package secrets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newClockedCache(ttl time.Duration) (*Cache[string], *time.Time) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewCache[string](ttl)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestCache_PutGetExpire(t *testing.T) {
	c, now := newClockedCache(time.Minute)

	c.Put("graph", "token-1")
	v, ok := c.Get("graph")
	assert.True(t, ok)
	assert.Equal(t, "token-1", v)

	*now = now.Add(2 * time.Minute)
	_, ok = c.Get("graph")
	assert.False(t, ok)
}

func TestCache_PutIfAbsent(t *testing.T) {
	c, now := newClockedCache(time.Minute)

	assert.True(t, c.PutIfAbsent("wamid.1", "claimed"))
	assert.False(t, c.PutIfAbsent("wamid.1", "claimed"))

	*now = now.Add(61 * time.Second)
	assert.True(t, c.PutIfAbsent("wamid.1", "claimed"), "expired entries can be reclaimed")
}

func TestCache_BustAndCleanup(t *testing.T) {
	c, now := newClockedCache(time.Minute)

	c.Put("a", "1")
	c.Put("b", "2")
	c.Bust("a")
	assert.Equal(t, 1, c.Len())

	*now = now.Add(time.Hour)
	c.cleanupExpired()
	assert.Equal(t, 0, c.Len())
}
