package market

import (
	"testing"
	"time"
)

func TestFlowTrackerAggregatesWindow(t *testing.T) {
	ft := NewFlowTracker(2 * time.Minute)

	ft.Record("mint1", "buy", 1.5)
	ft.Record("mint1", "buy", 0.5)
	ft.Record("mint1", "sell", 0.75)
	ft.Record("mint2", "buy", 3)

	flow := ft.RecentFlow("mint1")
	if flow.Trades != 3 {
		t.Errorf("Trades = %d, want 3", flow.Trades)
	}
	if flow.BuyVolumeSOL != 2.0 {
		t.Errorf("BuyVolumeSOL = %v, want 2.0", flow.BuyVolumeSOL)
	}
	if flow.SellVolumeSOL != 0.75 {
		t.Errorf("SellVolumeSOL = %v, want 0.75", flow.SellVolumeSOL)
	}

	other := ft.RecentFlow("mint2")
	if other.BuyVolumeSOL != 3 || other.Trades != 1 {
		t.Errorf("mint2 flow = %+v, want 1 trade of 3 SOL", other)
	}
}

func TestFlowTrackerDropsExpiredSamples(t *testing.T) {
	ft := NewFlowTracker(2 * time.Minute)

	base := time.Now()
	ft.now = func() time.Time { return base }
	ft.Record("mint1", "buy", 1)

	ft.now = func() time.Time { return base.Add(time.Minute) }
	ft.Record("mint1", "sell", 2)

	// Three minutes in, only the sell is inside the window
	ft.now = func() time.Time { return base.Add(3 * time.Minute) }
	flow := ft.RecentFlow("mint1")
	if flow.Trades != 1 {
		t.Fatalf("Trades = %d, want 1 after expiry", flow.Trades)
	}
	if flow.BuyVolumeSOL != 0 || flow.SellVolumeSOL != 2 {
		t.Errorf("flow = %+v, want only the sell sample", flow)
	}
}

func TestFlowTrackerForget(t *testing.T) {
	ft := NewFlowTracker(time.Minute)
	ft.Record("mint1", "buy", 1)
	ft.Forget("mint1")

	if flow := ft.RecentFlow("mint1"); flow.Trades != 0 {
		t.Errorf("Trades = %d after Forget, want 0", flow.Trades)
	}
}
