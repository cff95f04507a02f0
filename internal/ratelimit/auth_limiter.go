package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	keyLogin         = "auth:login:%s"
	keyPasswordReset = "auth:pwreset:%s"

	// Login allows short bursts; password reset is tighter because each
	// attempt sends an email.
	loginRate  = 10.0 / 60.0
	loginBurst = 10

	passwordResetRate  = 3.0 / float64(15*time.Minute/time.Second)
	passwordResetBurst = 3
)

// AuthLimiter throttles login and password reset attempts per subject
// (client IP or target email).
type AuthLimiter struct {
	enabled bool
	bucket  *TokenBucket
}

func NewAuthLimiter(bucket *TokenBucket) *AuthLimiter {
	if bucket == nil {
		return &AuthLimiter{}
	}
	return &AuthLimiter{enabled: true, bucket: bucket}
}

func (l *AuthLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *AuthLimiter) AllowLogin(ctx context.Context, subject string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyLogin, strings.TrimSpace(subject)), loginRate, loginBurst)
}

func (l *AuthLimiter) AllowPasswordReset(ctx context.Context, subject string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyPasswordReset, strings.TrimSpace(subject)), passwordResetRate, passwordResetBurst)
}
