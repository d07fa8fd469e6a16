package sim

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// throttle sleeps share of every wall-clock second spent simulating.
type throttle struct {
	every *rate.Sometimes
	pause time.Duration
	armed bool
}

func newThrottle(share float64) *throttle {
	if share <= 0 {
		return nil
	}
	return &throttle{
		every: &rate.Sometimes{Interval: time.Duration((1 - share) * float64(time.Second))},
		pause: time.Duration(share * float64(time.Second)),
	}
}

func (t *throttle) wait(ctx context.Context) error {
	if t == nil {
		return nil
	}
	var err error
	t.every.Do(func() {
		// the first call only starts the span
		if !t.armed {
			t.armed = true
			return
		}
		err = sleep(ctx, t.pause)
	})
	return err
}

// newPacer limits the replay to perSecond trades per wall-clock second.
func newPacer(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
