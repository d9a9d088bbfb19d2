// Package scheduler provides the interval loop used by the scan and
// position-poll cycles. Unlike a bare time.Ticker consumer, a Loop never
// starts an iteration while the previous one is still running, and Stop
// waits for any in-flight iteration before returning.
package scheduler

import (
	"context"
	"sync"
	"time"

	"solana-sniper-bot/internal/logging"
)

// Loop runs a function at a fixed interval without overlap
type Loop struct {
	name     string
	interval time.Duration
	fn       func(ctx context.Context)
	logger   *logging.Logger

	mu      sync.Mutex
	running bool
	inFlight bool
	skipped int64
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewLoop creates a loop that invokes fn every interval
func NewLoop(name string, interval time.Duration, fn func(ctx context.Context), logger *logging.Logger) *Loop {
	return &Loop{
		name:     name,
		interval: interval,
		fn:       fn,
		logger:   logger.WithComponent(name),
	}
}

// Start begins ticking. The first iteration runs immediately. Calling Start
// on a running loop is a no-op.
func (l *Loop) Start(ctx context.Context) {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return
	}
	l.running = true
	l.stopCh = make(chan struct{})
	l.doneCh = make(chan struct{})
	l.mu.Unlock()

	go l.run(ctx)
}

func (l *Loop) run(ctx context.Context) {
	defer close(l.doneCh)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.iterate(ctx)

	for {
		select {
		case <-ticker.C:
			l.iterate(ctx)
		case <-l.stopCh:
			l.logger.Info("loop stopped")
			return
		case <-ctx.Done():
			l.logger.Info("loop context cancelled")
			return
		}
	}
}

// iterate runs one tick unless the previous tick is still in flight
func (l *Loop) iterate(ctx context.Context) {
	l.mu.Lock()
	if l.inFlight {
		l.skipped++
		skipped := l.skipped
		l.mu.Unlock()
		l.logger.Warn("iteration still in flight, skipping tick", "skipped_total", skipped)
		return
	}
	l.inFlight = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.inFlight = false
		l.mu.Unlock()
	}()

	l.fn(ctx)
}

// Stop halts the ticker and blocks until any in-flight iteration completes.
// Safe to call on a loop that was never started.
func (l *Loop) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	close(l.stopCh)
	done := l.doneCh
	l.mu.Unlock()

	<-done

	// The run goroutine exits between iterations, but an iteration started
	// just before Stop may still be draining; wait for the in-flight flag.
	for {
		l.mu.Lock()
		busy := l.inFlight
		l.mu.Unlock()
		if !busy {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// SkippedTicks returns how many ticks were dropped due to overlap
func (l *Loop) SkippedTicks() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.skipped
}
