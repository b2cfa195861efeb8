package rate

import (
	"context"
	"fmt"
	"time"
)

// Limiter gates outbound API calls so we respect Gmail and Telegram limits.
type Limiter interface {
	Wait(ctx context.Context) error
}

// TokenBucket implements a fixed-rate token bucket. Wait blocks the polling
// loop; Allow serves the control surface's non-blocking rate checks.
type TokenBucket struct {
	ticker   *time.Ticker
	tokens   chan struct{}
	stop     chan struct{}
	stopDone chan struct{}
}

// NewTokenBucket returns a limiter that releases one token per interval with
// the given burst capacity.
func NewTokenBucket(interval time.Duration, burst int) *TokenBucket {
	if interval <= 0 {
		interval = time.Second
	}
	if burst <= 0 {
		burst = 1
	}
	tb := &TokenBucket{
		ticker:   time.NewTicker(interval),
		tokens:   make(chan struct{}, burst),
		stop:     make(chan struct{}),
		stopDone: make(chan struct{}),
	}
	// allow the first burst to proceed immediately
	for i := 0; i < burst; i++ {
		tb.tokens <- struct{}{}
	}
	go tb.run()
	return tb
}

// PerSecond is the common case: rps tokens per second, burst of one second.
func PerSecond(rps int) *TokenBucket {
	if rps <= 0 {
		rps = 1
	}
	return NewTokenBucket(time.Second/time.Duration(rps), rps)
}

func (t *TokenBucket) run() {
	defer close(t.stopDone)
	for {
		select {
		case <-t.stop:
			return
		case <-t.ticker.C:
			select {
			case t.tokens <- struct{}{}:
			default:
			}
		}
	}
}

// Wait blocks until a token is available or the context is canceled.
func (t *TokenBucket) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("rate wait canceled: %w", ctx.Err())
	case <-t.tokens:
		return nil
	}
}

// Allow reports whether a token is immediately available, consuming it if so.
func (t *TokenBucket) Allow() bool {
	select {
	case <-t.tokens:
		return true
	default:
		return false
	}
}

// Stop releases resources held by the limiter. Safe to call once.
func (t *TokenBucket) Stop() {
	t.ticker.Stop()
	close(t.stop)
	<-t.stopDone
}

var _ Limiter = (*TokenBucket)(nil)
