package browser

import (
	"context"
	"crypto/rand"
	"errors"
	"math"
	"math/big"
	"time"
)

// launchRetry paces Chrome launch attempts with jittered exponential backoff.
type launchRetry struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

func newLaunchRetry(attempts int) launchRetry {
	if attempts <= 0 {
		attempts = 1
	}
	return launchRetry{
		maxAttempts: attempts,
		baseDelay:   500 * time.Millisecond,
		maxDelay:    10 * time.Second,
	}
}

// shouldRetry reports whether attempt (1-based) may be followed by another.
func (r launchRetry) shouldRetry(err error, attempt int) bool {
	if err == nil || attempt >= r.maxAttempts {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// backoff returns half the capped exponential delay plus up to half again in jitter.
func (r launchRetry) backoff(attempt int) time.Duration {
	delay := float64(r.baseDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(r.maxDelay) {
		delay = float64(r.maxDelay)
	}
	half := time.Duration(delay / 2)
	return half + jitter(half)
}

func jitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(limit)))
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}
