package thresholds

import (
	"testing"
)

func TestStoreApplySwapsAtomically(t *testing.T) {
	store := NewStore(DefaultThresholdSet())
	before := store.Current()

	updated := store.Apply([]Recommendation{
		{Factor: "min_momentum", Current: before.MinMomentum, Recommended: 62, Reason: "test"},
		{Factor: "max_bundle_risk", Current: before.MaxBundleRisk, Recommended: 35, Reason: "test"},
	})

	if updated.MinMomentum != 62 {
		t.Errorf("MinMomentum = %.1f, want 62", updated.MinMomentum)
	}
	if updated.MaxBundleRisk != 35 {
		t.Errorf("MaxBundleRisk = %.1f, want 35", updated.MaxBundleRisk)
	}

	// The previously read set must be untouched
	if before.MinMomentum == 62 {
		t.Error("Apply mutated the old set in place")
	}

	if current := store.Current(); current != updated {
		t.Error("Current does not return the newly applied set")
	}
}

func TestStoreHistoryRecordsEveryChange(t *testing.T) {
	store := NewStore(DefaultThresholdSet())

	store.Apply([]Recommendation{{Factor: "min_safety", Recommended: 65, Reason: "first"}})
	store.Apply([]Recommendation{{Factor: "min_safety", Recommended: 70, Reason: "second"}})

	history := store.History()
	if len(history) != 2 {
		t.Fatalf("history has %d entries, want 2", len(history))
	}
	if history[0].NewValue != 65 || history[1].NewValue != 70 {
		t.Errorf("history values = %.1f, %.1f, want 65, 70", history[0].NewValue, history[1].NewValue)
	}
	if history[1].OldValue != 65 {
		t.Errorf("second change old value = %.1f, want 65", history[1].OldValue)
	}
}

func TestStoreApplyEmptyIsNoop(t *testing.T) {
	store := NewStore(DefaultThresholdSet())
	before := store.Current()

	after := store.Apply(nil)
	if after != before {
		t.Error("empty Apply replaced the set")
	}
	if len(store.History()) != 0 {
		t.Error("empty Apply wrote history")
	}
}

func TestStoreUnknownFactorIgnored(t *testing.T) {
	store := NewStore(DefaultThresholdSet())
	before := *store.Current()

	store.Apply([]Recommendation{{Factor: "min_galaxy_brain", Recommended: 99}})

	after := *store.Current()
	after.UpdatedAt = before.UpdatedAt
	if after != before {
		t.Error("unknown factor changed the set")
	}
}
