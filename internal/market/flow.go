package market

import (
	"sync"
	"time"
)

// flowSample is one observed trade
type flowSample struct {
	side      string
	solAmount float64
	at        time.Time
}

// FlowTracker accumulates trade events into per-token rolling windows so the
// position manager can read recent buy/sell pressure without a network call.
type FlowTracker struct {
	mu      sync.Mutex
	window  time.Duration
	samples map[string][]flowSample
	now     func() time.Time
}

// NewFlowTracker creates a tracker with the given rolling window
func NewFlowTracker(window time.Duration) *FlowTracker {
	return &FlowTracker{
		window:  window,
		samples: make(map[string][]flowSample),
		now:     time.Now,
	}
}

// Record adds a trade event to the token's window
func (ft *FlowTracker) Record(mint, side string, solAmount float64) {
	ft.mu.Lock()
	defer ft.mu.Unlock()

	cutoff := ft.now().Add(-ft.window)
	kept := trimBefore(ft.samples[mint], cutoff)
	kept = append(kept, flowSample{side: side, solAmount: solAmount, at: ft.now()})
	ft.samples[mint] = kept
}

// RecentFlow returns the buy/sell volume inside the rolling window
func (ft *FlowTracker) RecentFlow(mint string) OrderFlow {
	ft.mu.Lock()
	defer ft.mu.Unlock()

	cutoff := ft.now().Add(-ft.window)
	kept := trimBefore(ft.samples[mint], cutoff)
	if len(kept) == 0 {
		delete(ft.samples, mint)
	} else {
		ft.samples[mint] = kept
	}

	flow := OrderFlow{Window: ft.window}
	for _, s := range kept {
		flow.Trades++
		if s.side == "sell" {
			flow.SellVolumeSOL += s.solAmount
		} else {
			flow.BuyVolumeSOL += s.solAmount
		}
	}
	return flow
}

// Forget drops all samples for a token, e.g. after its position closes
func (ft *FlowTracker) Forget(mint string) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	delete(ft.samples, mint)
}

// trimBefore drops samples older than cutoff, preserving order
func trimBefore(samples []flowSample, cutoff time.Time) []flowSample {
	idx := 0
	for idx < len(samples) && samples[idx].at.Before(cutoff) {
		idx++
	}
	if idx == 0 {
		return samples
	}
	return append([]flowSample(nil), samples[idx:]...)
}
