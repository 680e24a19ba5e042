package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMissBeforeSet(t *testing.T) {
	c := New(time.Hour)
	_, ok := c.Get("fp1")
	assert.False(t, ok)
}

func TestSetThenGetHit(t *testing.T) {
	c := New(time.Hour)
	c.Set("fp1", "result-a")

	v, ok := c.Get("fp1")
	require.True(t, ok)
	assert.Equal(t, "result-a", v)

	stats := c.Stats()
	assert.EqualValues(t, 1, stats.Hits)
	assert.EqualValues(t, 1, stats.Size)
}

func TestEntryExpiresAfterTTL(t *testing.T) {
	c := New(time.Minute)
	base := time.Now()
	c.now = func() time.Time { return base }

	c.Set("fp1", "result-a")

	c.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, ok := c.Get("fp1")
	assert.False(t, ok, "entry older than TTL must be treated as a miss")
}

func TestCacheHitSharedAcrossIdenticalContext(t *testing.T) {
	// Two items with identical normalized context share a cache slot:
	// the caller is responsible for fingerprinting identical contexts to
	// the same key, which this test simulates directly.
	c := New(time.Hour)
	c.Set("same-fp", "shared-result")

	v1, ok1 := c.Get("same-fp")
	v2, ok2 := c.Get("same-fp")
	require.True(t, ok1)
	require.True(t, ok2)
	assert.Equal(t, v1, v2)
}
