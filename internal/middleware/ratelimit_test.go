package middleware

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/ulya2402/Wisedebot/internal/config"
)

func newTestLimiter(enabled bool, rpm, burst int) RateLimiter {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewRateLimiter(&config.RateLimitConfig{
		Enabled:           enabled,
		RequestsPerMinute: rpm,
		Burst:             burst,
	}, logger)
}

func TestRateLimiterDisabledAllowsEverything(t *testing.T) {
	rl := newTestLimiter(false, 0, 0)
	for i := 0; i < 100; i++ {
		assert.True(t, rl.Allow(1))
	}
}

func TestRateLimiterBurstThenDeny(t *testing.T) {
	rl := newTestLimiter(true, 1, 2)

	assert.True(t, rl.Allow(1))
	assert.True(t, rl.Allow(1))
	assert.False(t, rl.Allow(1), "burst exhausted")
}

func TestRateLimiterPerUserIsolation(t *testing.T) {
	rl := newTestLimiter(true, 1, 1)

	assert.True(t, rl.Allow(1))
	assert.False(t, rl.Allow(1))
	assert.True(t, rl.Allow(2), "another user has their own bucket")
}

func TestRateLimiterReset(t *testing.T) {
	rl := newTestLimiter(true, 1, 1)

	assert.True(t, rl.Allow(1))
	assert.False(t, rl.Allow(1))

	rl.Reset(1)
	assert.True(t, rl.Allow(1))
}
