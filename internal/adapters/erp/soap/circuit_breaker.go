package soap

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrBreakerOpen is returned when the breaker rejects a call without
// touching the ERP.
var ErrBreakerOpen = errors.New("erp circuit breaker open")

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

// circuitBreaker shields the ERP endpoint from request storms while it is
// down. After maxFailures consecutive transport failures the breaker opens
// and calls fail fast until the cooldown elapses; the first call after the
// cooldown probes the endpoint in half-open state.
type circuitBreaker struct {
	maxFailures int
	cooldown    time.Duration

	mu          sync.Mutex
	state       breakerState
	failures    int
	lastFailure time.Time
}

func newCircuitBreaker(maxFailures int, cooldown time.Duration) *circuitBreaker {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &circuitBreaker{maxFailures: maxFailures, cooldown: cooldown}
}

// Execute runs fn under breaker protection. Only transport-level errors
// returned by fn count as failures; fn must map HTTP-level outcomes itself.
func (cb *circuitBreaker) Execute(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cb.mu.Lock()
	if cb.state == breakerOpen {
		if time.Since(cb.lastFailure) < cb.cooldown {
			cb.mu.Unlock()
			return ErrBreakerOpen
		}
		cb.state = breakerHalfOpen
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failures++
		cb.lastFailure = time.Now()
		if cb.state == breakerHalfOpen || cb.failures >= cb.maxFailures {
			cb.state = breakerOpen
		}
		return err
	}

	cb.state = breakerClosed
	cb.failures = 0
	return nil
}

func (cb *circuitBreaker) currentState() breakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
