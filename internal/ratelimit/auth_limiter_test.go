package ratelimit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthLimiterDisabled(t *testing.T) {
	// No redis configured: the limiter is absent and everything passes.
	limiter := NewAuthLimiter(NewTokenBucket(nil))
	assert.False(t, limiter.Enabled())

	allowed, err := limiter.AllowLogin(context.Background(), "user@example.com|203.0.113.7")
	assert.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.AllowPasswordReset(context.Background(), "user@example.com")
	assert.NoError(t, err)
	assert.True(t, allowed)
}

func TestNilLimiterIsSafe(t *testing.T) {
	var limiter *AuthLimiter
	assert.False(t, limiter.Enabled())

	allowed, err := limiter.AllowLogin(context.Background(), "anyone")
	assert.NoError(t, err)
	assert.True(t, allowed)
}
