package relay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterAllowsBurst(t *testing.T) {
	rl := newRateLimiter(5, time.Second)

	for i := 0; i < 5; i++ {
		assert.Truef(t, rl.allow(), "call %d within burst should be allowed", i)
	}
	assert.False(t, rl.allow())
}

func TestRateLimiterRefills(t *testing.T) {
	rl := newRateLimiter(2, 100*time.Millisecond)

	assert.True(t, rl.allow())
	assert.True(t, rl.allow())
	assert.False(t, rl.allow())

	time.Sleep(120 * time.Millisecond)
	assert.True(t, rl.allow())
}

func TestRateLimiterDefendsAgainstBadParams(t *testing.T) {
	rl := newRateLimiter(0, 0)

	assert.True(t, rl.allow())
	assert.False(t, rl.allow())
}
