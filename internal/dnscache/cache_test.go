package dnscache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheSetGetRoundtrip(t *testing.T) {
	c := New(Config{MaxEntries: 10, NegativeCaching: true})

	c.Set("example.com|A", []byte("1.2.3.4"), time.Minute, Positive)

	val, found, kind := c.Get("example.com|A")
	require.True(t, found)
	assert.Equal(t, []byte("1.2.3.4"), val)
	assert.Equal(t, Positive, kind)
}

func TestCacheMissIsCountedAndTyped(t *testing.T) {
	c := New(Config{MaxEntries: 10})

	_, found, kind := c.Get("nope.example.com|A")
	assert.False(t, found)
	assert.Equal(t, Positive, kind)

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, uint64(0), stats.Hits)
}

func TestCacheExpiryEvictsAndCountsMiss(t *testing.T) {
	c := New(Config{MaxEntries: 10, NegativeCaching: true})
	c.Set("x|A", []byte("1"), time.Millisecond, Positive)
	time.Sleep(5 * time.Millisecond)

	_, found, _ := c.Get("x|A")
	assert.False(t, found)

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Evictions)
}

func TestCacheLRUEvictsOldestOverCapacity(t *testing.T) {
	c := New(Config{MaxEntries: 2})
	c.Set("a", []byte("1"), time.Minute, Positive)
	c.Set("b", []byte("2"), time.Minute, Positive)
	c.Set("c", []byte("3"), time.Minute, Positive)

	_, found, _ := c.Get("a")
	assert.False(t, found, "oldest entry should have been evicted")

	stats := c.Stats()
	assert.Equal(t, 2, stats.Size)
	assert.Equal(t, uint64(1), stats.Evictions)
}

func TestCacheNegativeCachingDisabledDropsNegatives(t *testing.T) {
	c := New(Config{MaxEntries: 10, NegativeCaching: false})
	c.Set("nx|A", nil, time.Minute, NXDOMAIN)

	_, found, _ := c.Get("nx|A")
	assert.False(t, found)
}

func TestCacheServfailUsesShortTTLCap(t *testing.T) {
	c := New(Config{MaxEntries: 10, NegativeCaching: true, ServfailTTL: 10 * time.Millisecond})
	c.Set("up|A", nil, time.Hour, SERVFAIL)
	time.Sleep(20 * time.Millisecond)

	_, found, _ := c.Get("up|A")
	assert.False(t, found, "servfail entries must be capped far below requested TTL")
}

func TestCacheHitRateComputedCorrectly(t *testing.T) {
	c := New(Config{MaxEntries: 10})
	c.Set("a", []byte("1"), time.Minute, Positive)

	c.Get("a")
	c.Get("a")
	c.Get("missing")

	stats := c.Stats()
	assert.InDelta(t, 2.0/3.0, stats.HitRate, 1e-9)
}
