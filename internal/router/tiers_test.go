package router

import "testing"

func TestTierForOrdersByMarketCap(t *testing.T) {
	tests := []struct {
		marketCap float64
		want      string
	}{
		{50, "micro"},
		{300, "micro"},
		{301, "small"},
		{1500, "small"},
		{5000, "mid"},
		{8000, "mid"},
		{50000, "large"},
	}

	for _, tt := range tests {
		if got := TierFor(tt.marketCap); got.Name != tt.want {
			t.Errorf("TierFor(%.0f) = %s, want %s", tt.marketCap, got.Name, tt.want)
		}
	}
}

func TestSmallerTiersHaveWiderStopsAndSmallerSize(t *testing.T) {
	for i := 1; i < len(valuationTiers); i++ {
		smaller, larger := valuationTiers[i-1], valuationTiers[i]
		if smaller.StopLossPercent > larger.StopLossPercent {
			t.Errorf("tier %s stop loss %.0f should be wider than %s's %.0f",
				smaller.Name, smaller.StopLossPercent, larger.Name, larger.StopLossPercent)
		}
		if smaller.MaxPositionPercent > larger.MaxPositionPercent {
			t.Errorf("tier %s size ceiling %.1f should not exceed %s's %.1f",
				smaller.Name, smaller.MaxPositionPercent, larger.Name, larger.MaxPositionPercent)
		}
	}
}

func TestTierExitLevelsAreConsistent(t *testing.T) {
	for _, tier := range valuationTiers {
		if tier.StopLossPercent >= 0 {
			t.Errorf("tier %s stop loss %.0f must be negative", tier.Name, tier.StopLossPercent)
		}
		if tier.TP2GainPercent <= tier.TP1GainPercent {
			t.Errorf("tier %s TP2 gain %.0f must exceed TP1 gain %.0f",
				tier.Name, tier.TP2GainPercent, tier.TP1GainPercent)
		}
		if tier.TP1SellPercent <= 0 || tier.TP1SellPercent >= 100 {
			t.Errorf("tier %s TP1 sell percent %.0f must be a partial sell", tier.Name, tier.TP1SellPercent)
		}
	}
}
