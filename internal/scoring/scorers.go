package scoring

import (
	"solana-sniper-bot/internal/market"
)

// MomentumScorer scores recent buying pressure for a token
type MomentumScorer struct {
	flow market.FlowProvider
}

// NewMomentumScorer creates a scorer backed by the given flow provider
func NewMomentumScorer(flow market.FlowProvider) *MomentumScorer {
	return &MomentumScorer{flow: flow}
}

// Score rates momentum 0-100 from the buy/sell imbalance in the rolling
// window plus trade activity. With no observed trades it returns a neutral 50
// so a quiet token is neither boosted nor buried.
func (ms *MomentumScorer) Score(snapshot *market.MetricsSnapshot) float64 {
	flow := ms.flow.RecentFlow(snapshot.Mint)
	total := flow.BuyVolumeSOL + flow.SellVolumeSOL
	if flow.Trades == 0 || total <= 0 {
		return 50
	}

	// Buy share of volume maps [0,1] onto [0,80]
	buyShare := flow.BuyVolumeSOL / total
	score := buyShare * 80

	// Up to 20 points for activity depth
	activity := float64(flow.Trades)
	if activity > 40 {
		activity = 40
	}
	score += activity / 40 * 20

	return clampScore(score)
}

// MarketStructureScorer scores liquidity depth and holder distribution
type MarketStructureScorer struct{}

// NewMarketStructureScorer creates the default structure scorer
func NewMarketStructureScorer() *MarketStructureScorer {
	return &MarketStructureScorer{}
}

// Score rates market structure 0-100: liquidity relative to market cap,
// holder breadth and top-holder concentration
func (ss *MarketStructureScorer) Score(snapshot *market.MetricsSnapshot) float64 {
	score := 0.0

	// Liquidity depth: up to 40 points, full credit at 20% of market cap
	if snapshot.MarketCapSOL > 0 && snapshot.LiquiditySOL > 0 {
		ratio := snapshot.LiquiditySOL / snapshot.MarketCapSOL
		if ratio > 0.20 {
			ratio = 0.20
		}
		score += ratio / 0.20 * 40
	}

	// Holder breadth: up to 30 points, full credit at 200 holders
	holders := float64(snapshot.HolderCount)
	if holders > 200 {
		holders = 200
	}
	score += holders / 200 * 30

	// Concentration: up to 30 points, zero credit at 60%+ in the top 10
	concentration := snapshot.Top10HolderPercent
	if concentration <= 0 {
		score += 15 // unknown concentration gets half credit
	} else if concentration < 60 {
		score += (60 - concentration) / 60 * 30
	}

	return clampScore(score)
}
