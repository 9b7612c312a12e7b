package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterBurstThenDeny(t *testing.T) {
	rl := NewRateLimiter(60, 2)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("anon_a"))
	assert.True(t, rl.Allow("anon_a"))
	assert.False(t, rl.Allow("anon_a"))

	// One token refills per second at 60/min.
	now = now.Add(time.Second)
	assert.True(t, rl.Allow("anon_a"))
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	assert.True(t, rl.Allow("anon_a"))
	assert.False(t, rl.Allow("anon_a"))
	assert.True(t, rl.Allow("anon_b"))
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(0, 0)
	for i := 0; i < 100; i++ {
		assert.True(t, rl.Allow("anon_a"))
	}
}

func TestRateLimiterEvictsIdleKeys(t *testing.T) {
	rl := NewRateLimiter(10, 1)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("old")
	now = now.Add(idleLimiterTTL)
	rl.Allow("fresh")

	assert.Equal(t, 1, rl.evict(now.Add(-time.Minute)))
	assert.Equal(t, 1, rl.Len())
}
