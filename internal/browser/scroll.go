package browser

import (
	"context"
	"fmt"
	"time"
)

type scrollPlan struct {
	step     int
	interval time.Duration
	maxSteps int
}

// scrollUntilEnd calls step until the accumulated distance covers the height
// it reports. It returns the number of steps taken.
func scrollUntilEnd(ctx context.Context, plan scrollPlan, step func(context.Context) (int64, error), wait func(context.Context, time.Duration)) (int, error) {
	total := 0
	for i := 1; i <= plan.maxSteps; i++ {
		height, err := step(ctx)
		if err != nil {
			return i, fmt.Errorf("step %d: %w", i, err)
		}
		total += plan.step
		if int64(total) >= height {
			return i, nil
		}
		wait(ctx, plan.interval)
		if err := ctx.Err(); err != nil {
			return i, err
		}
	}
	return plan.maxSteps, nil
}

func pause(ctx context.Context, delay time.Duration) {
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
