package positions

import (
	"testing"
	"time"
)

func newTestPosition() *Position {
	return &Position{
		ID:              "pos-1",
		Mint:            "mint-a",
		Status:          StatusOpen,
		EntryPrice:      1.00,
		CurrentPrice:    1.00,
		PeakPrice:       1.00,
		Quantity:        1000,
		InitialQuantity: 1000,
		EntrySOLAmount:  1.0,

		StopLossPercent:          -40,
		EffectiveStopLossPercent: -40,

		TakeProfit1: TakeProfitLevel{Price: 1.60, GainPercent: 60, SellPercent: 50},
		TakeProfit2: TakeProfitLevel{Price: 2.50, GainPercent: 150, SellPercent: 100},

		MaxHold:   2 * time.Hour,
		EnteredAt: time.Now(),
	}
}

func TestPeakPriceIsMonotonic(t *testing.T) {
	p := newTestPosition()

	prices := []float64{1.10, 1.50, 1.20, 1.45, 0.90, 1.49}
	peak := p.PeakPrice
	for _, price := range prices {
		p.UpdatePrice(price)
		if p.PeakPrice < peak {
			t.Fatalf("peak decreased from %.2f to %.2f after price %.2f", peak, p.PeakPrice, price)
		}
		if p.CurrentPrice > p.PeakPrice {
			t.Fatalf("current %.2f above peak %.2f", p.CurrentPrice, p.PeakPrice)
		}
		peak = p.PeakPrice
	}

	if p.PeakPrice != 1.50 {
		t.Errorf("final peak = %.2f, want 1.50", p.PeakPrice)
	}
}

func TestPnlCalculations(t *testing.T) {
	p := newTestPosition()
	p.UpdatePrice(1.45)
	p.UpdatePrice(1.30)

	if got := p.PnlPercent(); got < 29.99 || got > 30.01 {
		t.Errorf("pnl = %.2f%%, want 30%%", got)
	}
	if got := p.PeakPnlPercent(); got < 44.99 || got > 45.01 {
		t.Errorf("peak pnl = %.2f%%, want 45%%", got)
	}
}

func TestStopLossOnlyTightens(t *testing.T) {
	p := newTestPosition()

	if !p.TightenStopLoss(-20) {
		t.Error("tightening -40 to -20 should apply")
	}
	if p.EffectiveStopLossPercent != -20 {
		t.Errorf("effective stop = %.0f, want -20", p.EffectiveStopLossPercent)
	}

	if p.TightenStopLoss(-35) {
		t.Error("loosening -20 back to -35 must be ignored")
	}
	if p.EffectiveStopLossPercent != -20 {
		t.Errorf("effective stop = %.0f after loosen attempt, want -20", p.EffectiveStopLossPercent)
	}
}

func TestTP2RequiresTP1(t *testing.T) {
	p := newTestPosition()
	now := time.Now()

	p.MarkTP2Hit(now)
	if p.TakeProfit2.Hit {
		t.Fatal("TP2 hit flag set without TP1")
	}

	p.MarkTP1Hit(now)
	p.MarkTP2Hit(now)
	if !p.TakeProfit1.Hit || !p.TakeProfit2.Hit {
		t.Error("TP flags not set after ordered hits")
	}
}

func TestApplySellFill(t *testing.T) {
	p := newTestPosition()
	now := time.Now()

	p.ApplySellFill(500, 1.60, 0.8, false, ReasonTakeProfit1, now)
	if p.Status != StatusOpen {
		t.Error("partial sell must not close the position")
	}
	if p.Quantity != 500 {
		t.Errorf("quantity = %.0f after partial, want 500", p.Quantity)
	}

	p.ApplySellFill(500, 2.50, 1.25, true, ReasonTakeProfit2, now)
	if p.Status != StatusClosed {
		t.Error("full exit must close the position")
	}
	if p.Quantity != 0 {
		t.Errorf("quantity = %.0f after close, want 0", p.Quantity)
	}
	if p.ExitReason != ReasonTakeProfit2 {
		t.Errorf("exit reason = %s, want %s", p.ExitReason, ReasonTakeProfit2)
	}
	if p.ClosedAt == nil {
		t.Error("closed position has no ClosedAt")
	}
	if p.RealizedSOL != 2.05 {
		t.Errorf("realized = %.2f SOL, want 2.05", p.RealizedSOL)
	}
}
