package router

import (
	"sync"
	"time"
)

// FunnelSnapshot is a point-in-time copy of the evaluation funnel counters
type FunnelSnapshot struct {
	CandidatesSeen   int64            `json:"candidates_seen"`
	RejectedByStage  map[string]int64 `json:"rejected_by_stage"`
	SignalsEmitted   int64            `json:"signals_emitted"`
	WindowStartedAt  time.Time        `json:"window_started_at"`
	SnapshotTakenAt  time.Time        `json:"snapshot_taken_at"`
}

// Funnel counts candidates through each gate of the evaluation pipeline so
// operators can see where the flow is being cut off
type Funnel struct {
	mu              sync.Mutex
	candidatesSeen  int64
	rejectedByStage map[string]int64
	signalsEmitted  int64
	windowStartedAt time.Time
}

// NewFunnel creates an empty funnel
func NewFunnel() *Funnel {
	return &Funnel{
		rejectedByStage: make(map[string]int64),
		windowStartedAt: time.Now(),
	}
}

// CandidateSeen counts one evaluated candidate
func (f *Funnel) CandidateSeen() {
	f.mu.Lock()
	f.candidatesSeen++
	f.mu.Unlock()
}

// Rejected counts one rejection at the given stage
func (f *Funnel) Rejected(stage string) {
	f.mu.Lock()
	f.rejectedByStage[stage]++
	f.mu.Unlock()
}

// SignalEmitted counts one accepted candidate
func (f *Funnel) SignalEmitted() {
	f.mu.Lock()
	f.signalsEmitted++
	f.mu.Unlock()
}

// Snapshot returns a copy of the current counters
func (f *Funnel) Snapshot() FunnelSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	byStage := make(map[string]int64, len(f.rejectedByStage))
	for stage, count := range f.rejectedByStage {
		byStage[stage] = count
	}
	return FunnelSnapshot{
		CandidatesSeen:  f.candidatesSeen,
		RejectedByStage: byStage,
		SignalsEmitted:  f.signalsEmitted,
		WindowStartedAt: f.windowStartedAt,
		SnapshotTakenAt: time.Now(),
	}
}

// Reset zeroes the counters and starts a new window, returning the final
// snapshot of the old window
func (f *Funnel) Reset() FunnelSnapshot {
	snapshot := f.Snapshot()

	f.mu.Lock()
	f.candidatesSeen = 0
	f.signalsEmitted = 0
	f.rejectedByStage = make(map[string]int64)
	f.windowStartedAt = time.Now()
	f.mu.Unlock()

	return snapshot
}
