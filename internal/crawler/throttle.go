package crawler

import (
	"context"
	"time"
)

// pageThrottle spaces out consecutive page requests of one category.
type pageThrottle interface {
	Wait(ctx context.Context, delay time.Duration)
}

// timerThrottle sleeps for the delay or until ctx is done.
type timerThrottle struct{}

func (timerThrottle) Wait(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
