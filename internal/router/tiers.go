package router

import "time"

// ValuationTier groups tokens by market cap. Smaller tiers get wider
// stop-loss tolerance and smaller position-size ceilings since their variance
// is higher. Exit levels come from this lookup, not from fixed percentages.
type ValuationTier struct {
	Name               string        `json:"name"`
	MaxMarketCapSOL    float64       `json:"max_market_cap_sol"` // 0 = unbounded
	StopLossPercent    float64       `json:"stop_loss_percent"`  // negative
	TP1GainPercent     float64       `json:"tp1_gain_percent"`
	TP1SellPercent     float64       `json:"tp1_sell_percent"`
	TP2GainPercent     float64       `json:"tp2_gain_percent"`
	MaxPositionPercent float64       `json:"max_position_percent"` // of available capital
	MaxHold            time.Duration `json:"max_hold"`
}

// valuationTiers is ordered smallest cap first; TierFor walks it in order
var valuationTiers = []ValuationTier{
	{
		Name:               "micro",
		MaxMarketCapSOL:    300,
		StopLossPercent:    -40,
		TP1GainPercent:     60,
		TP1SellPercent:     50,
		TP2GainPercent:     150,
		MaxPositionPercent: 1.5,
		MaxHold:            2 * time.Hour,
	},
	{
		Name:               "small",
		MaxMarketCapSOL:    1500,
		StopLossPercent:    -32,
		TP1GainPercent:     45,
		TP1SellPercent:     50,
		TP2GainPercent:     110,
		MaxPositionPercent: 2.5,
		MaxHold:            4 * time.Hour,
	},
	{
		Name:               "mid",
		MaxMarketCapSOL:    8000,
		StopLossPercent:    -25,
		TP1GainPercent:     35,
		TP1SellPercent:     40,
		TP2GainPercent:     80,
		MaxPositionPercent: 4,
		MaxHold:            8 * time.Hour,
	},
	{
		Name:               "large",
		MaxMarketCapSOL:    0,
		StopLossPercent:    -18,
		TP1GainPercent:     25,
		TP1SellPercent:     40,
		TP2GainPercent:     55,
		MaxPositionPercent: 6,
		MaxHold:            24 * time.Hour,
	},
}

// TierFor returns the valuation tier for a market cap in SOL
func TierFor(marketCapSOL float64) ValuationTier {
	for _, tier := range valuationTiers {
		if tier.MaxMarketCapSOL == 0 || marketCapSOL <= tier.MaxMarketCapSOL {
			return tier
		}
	}
	return valuationTiers[len(valuationTiers)-1]
}
