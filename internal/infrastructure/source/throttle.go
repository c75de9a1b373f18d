package source

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Throttle serializes an adapter's outbound requests so that at least the
// minimum interval passes between them. Each adapter owns one Throttle;
// adapters never coordinate with each other. State is ephemeral: a restart
// resets the limiter.
type Throttle struct {
	limiter *rate.Limiter
	min     time.Duration
}

// NewThrottle builds a limiter with a burst of one so requests space out by
// exactly the floor.
func NewThrottle(minInterval time.Duration) *Throttle {
	if minInterval <= 0 {
		minInterval = time.Second
	}
	return &Throttle{
		limiter: rate.NewLimiter(rate.Every(minInterval), 1),
		min:     minInterval,
	}
}

// Wait blocks cooperatively until the next request may go out, or until the
// context is cancelled.
func (t *Throttle) Wait(ctx context.Context) error {
	return t.limiter.Wait(ctx)
}

// MinInterval reports the configured floor.
func (t *Throttle) MinInterval() time.Duration {
	return t.min
}
