package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"solana-sniper-bot/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.New(&logging.Config{Level: "ERROR", Output: "stdout"})
}

func TestLoopRunsImmediatelyAndStops(t *testing.T) {
	var count int64
	loop := NewLoop("test", 50*time.Millisecond, func(ctx context.Context) {
		atomic.AddInt64(&count, 1)
	}, testLogger())

	loop.Start(context.Background())
	time.Sleep(120 * time.Millisecond)
	loop.Stop()

	n := atomic.LoadInt64(&count)
	if n < 2 {
		t.Errorf("expected at least 2 iterations (immediate + ticks), got %d", n)
	}

	// No further iterations after Stop
	time.Sleep(120 * time.Millisecond)
	if atomic.LoadInt64(&count) != n {
		t.Error("loop kept running after Stop")
	}
}

func TestLoopSkipsOverlappingTicks(t *testing.T) {
	var count int64
	block := make(chan struct{})
	loop := NewLoop("slow", 20*time.Millisecond, func(ctx context.Context) {
		atomic.AddInt64(&count, 1)
		<-block
	}, testLogger())

	loop.Start(context.Background())
	time.Sleep(150 * time.Millisecond)

	if n := atomic.LoadInt64(&count); n != 1 {
		t.Errorf("expected exactly 1 in-flight iteration, got %d", n)
	}
	if loop.SkippedTicks() == 0 {
		t.Error("expected skipped ticks while iteration was in flight")
	}

	close(block)
	loop.Stop()
}

func TestLoopStopWaitsForInFlight(t *testing.T) {
	started := make(chan struct{})
	var finished atomic.Bool

	loop := NewLoop("draining", time.Hour, func(ctx context.Context) {
		close(started)
		time.Sleep(80 * time.Millisecond)
		finished.Store(true)
	}, testLogger())

	loop.Start(context.Background())
	<-started
	loop.Stop()

	if !finished.Load() {
		t.Error("Stop returned before the in-flight iteration completed")
	}
}

func TestLoopStopWithoutStart(t *testing.T) {
	loop := NewLoop("idle", time.Second, func(ctx context.Context) {}, testLogger())
	loop.Stop() // must not panic or block
}
