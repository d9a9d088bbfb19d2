package thresholds

import (
	"sync"
	"sync/atomic"
	"time"
)

// Change records one applied threshold adjustment
type Change struct {
	Factor    string    `json:"factor"`
	OldValue  float64   `json:"old_value"`
	NewValue  float64   `json:"new_value"`
	Reason    string    `json:"reason"`
	AppliedAt time.Time `json:"applied_at"`
}

// Store holds the live ThresholdSet behind an atomic pointer so the signal
// router can read it lock-free while the optimizer swaps in replacements.
// Every applied change is appended to an immutable history.
type Store struct {
	current atomic.Pointer[ThresholdSet]

	mu      sync.Mutex
	history []Change
}

// NewStore creates a store seeded with the given set
func NewStore(initial *ThresholdSet) *Store {
	if initial == nil {
		initial = DefaultThresholdSet()
	}
	s := &Store{}
	s.current.Store(initial)
	return s
}

// Current returns the live set. Callers must treat it as read-only.
func (s *Store) Current() *ThresholdSet {
	return s.current.Load()
}

// Apply builds a new set from the current one with the recommendations
// applied and swaps it in atomically. Readers see either the old set or the
// new set, never a mix.
func (s *Store) Apply(recommendations []Recommendation) *ThresholdSet {
	if len(recommendations) == 0 {
		return s.current.Load()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.current.Load()
	updated := *old
	now := time.Now()

	for _, rec := range recommendations {
		for _, f := range tunableFactors {
			if f.name != rec.Factor {
				continue
			}
			s.history = append(s.history, Change{
				Factor:    rec.Factor,
				OldValue:  f.value(old),
				NewValue:  rec.Recommended,
				Reason:    rec.Reason,
				AppliedAt: now,
			})
			f.apply(&updated, rec.Recommended)
		}
	}
	updated.UpdatedAt = now

	s.current.Store(&updated)
	return &updated
}

// History returns a copy of all applied changes, oldest first
func (s *Store) History() []Change {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Change, len(s.history))
	copy(out, s.history)
	return out
}
