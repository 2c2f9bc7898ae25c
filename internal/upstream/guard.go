package upstream

import (
	"context"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Guard bounds outbound provider calls with a token-bucket rate limit and a
// cap on calls in flight.
type Guard struct {
	limiter *rate.Limiter
	sem     *semaphore.Weighted
}

// NewGuard creates a guard allowing rps calls per second with the given
// burst and at most maxInFlight concurrent calls.
func NewGuard(rps float64, burst int, maxInFlight int64) *Guard {
	return &Guard{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		sem:     semaphore.NewWeighted(maxInFlight),
	}
}

// Acquire admits one call. It fails fast with ErrRateLimited when the rate
// limit is exhausted and otherwise waits for a concurrency slot. The
// returned release must be called when the call completes.
func (g *Guard) Acquire(ctx context.Context) (func(), error) {
	if !g.limiter.Allow() {
		return nil, ErrRateLimited
	}
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { g.sem.Release(1) }, nil
}
