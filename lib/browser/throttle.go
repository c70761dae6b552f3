package browser

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// ThrottledLauncher spaces out launches so that a burst of logins does not
// hit the portal all at once.
type ThrottledLauncher struct {
	inner   Launcher
	limiter *rate.Limiter
}

// Throttle allows one launch every interval with bursts of up to burst
// launches. A zero interval disables throttling.
func Throttle(inner Launcher, interval time.Duration, burst int) Launcher {
	if interval <= 0 {
		return inner
	}
	if burst < 1 {
		burst = 1
	}
	return ThrottledLauncher{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Every(interval), burst),
	}
}

func (l ThrottledLauncher) Launch(ctx context.Context) (Page, error) {
	err := l.limiter.Wait(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		// the deadline of ctx comes before the next free slot
		return nil, fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}
	return l.inner.Launch(ctx)
}
