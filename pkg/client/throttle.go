package client

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

var koladaThrottleWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "kolada_throttle_wait_seconds",
	Help:    "Time spent waiting for the request rate throttle",
	Buckets: []float64{0.01, 0.05, 0.1, 0.2, 0.5, 1, 2},
})

// throttle enforces a minimum spacing between outgoing requests. State is
// owned by one client instance; the limiter measures request start to
// request start, so a slow response does not earn back budget.
type throttle struct {
	limiter *rate.Limiter
}

// newThrottle builds a throttle allowing maxRequestsPerSecond dispatches
// with no burst headroom.
func newThrottle(maxRequestsPerSecond float64) *throttle {
	return &throttle{
		limiter: rate.NewLimiter(rate.Limit(maxRequestsPerSecond), 1),
	}
}

// waitTurn blocks until the next request may be dispatched. It fails only
// when the context is cancelled during the wait.
func (t *throttle) waitTurn(ctx context.Context) error {
	start := time.Now()
	err := t.limiter.Wait(ctx)
	koladaThrottleWaitSeconds.Observe(time.Since(start).Seconds())
	return err
}
