package scoring

import (
	"fmt"
	"time"

	"solana-sniper-bot/internal/market"
)

// ComposerConfig holds the weights and bands used to fold component scores
// into one total. Weights must sum to 1.0.
type ComposerConfig struct {
	MomentumWeight        float64 `json:"momentum_weight"`
	SafetyWeight          float64 `json:"safety_weight"`
	BundleSafetyWeight    float64 `json:"bundle_safety_weight"`
	MarketStructureWeight float64 `json:"market_structure_weight"`
	TimingWeight          float64 `json:"timing_weight"`

	// Timing score shape: tokens younger than SweetSpotMinAge haven't proven
	// anything yet, tokens older than SweetSpotMaxAge have likely already run
	SweetSpotMinAgeMinutes float64 `json:"sweet_spot_min_age_minutes"`
	SweetSpotMaxAgeMinutes float64 `json:"sweet_spot_max_age_minutes"`
}

// DefaultComposerConfig returns weights where momentum and safety together
// carry the majority of the total
func DefaultComposerConfig() *ComposerConfig {
	return &ComposerConfig{
		MomentumWeight:         0.32,
		SafetyWeight:           0.28,
		BundleSafetyWeight:     0.18,
		MarketStructureWeight:  0.12,
		TimingWeight:           0.10,
		SweetSpotMinAgeMinutes: 5,
		SweetSpotMaxAgeMinutes: 120,
	}
}

// Composer folds component scores and a metrics snapshot into an OnChainScore
type Composer struct {
	config *ComposerConfig
}

// NewComposer creates a composer, validating that weights sum to 1.0
func NewComposer(config *ComposerConfig) (*Composer, error) {
	if config == nil {
		config = DefaultComposerConfig()
	}
	sum := config.MomentumWeight + config.SafetyWeight + config.BundleSafetyWeight +
		config.MarketStructureWeight + config.TimingWeight
	if sum < 0.999 || sum > 1.001 {
		return nil, fmt.Errorf("composer weights sum to %.4f, want 1.0", sum)
	}
	return &Composer{config: config}, nil
}

// Compose combines the four component scores with a timing score derived from
// token age into a single weighted total, recommendation and risk level
func (c *Composer) Compose(snapshot *market.MetricsSnapshot, components ComponentScores) *OnChainScore {
	momentum := clampScore(components.Momentum)
	safety := clampScore(components.Safety)
	bundleSafety := clampScore(components.BundleSafety)
	structure := clampScore(components.MarketStructure)
	timing := c.timingScore(snapshot.AgeMinutes)

	total := momentum*c.config.MomentumWeight +
		safety*c.config.SafetyWeight +
		bundleSafety*c.config.BundleSafetyWeight +
		structure*c.config.MarketStructureWeight +
		timing*c.config.TimingWeight
	total = clampScore(total)

	score := &OnChainScore{
		Mint:            snapshot.Mint,
		Total:           total,
		Momentum:        momentum,
		Safety:          safety,
		BundleSafety:    bundleSafety,
		MarketStructure: structure,
		Timing:          timing,
		Recommendation:  recommendationFor(total),
		RiskLevel:       riskLevelFor(safety, bundleSafety),
		Confidence:      confidenceFor(snapshot),
		ComputedAt:      time.Now(),
	}
	c.annotate(score, snapshot)
	return score
}

// timingScore peaks inside the sweet spot and decays outside it
func (c *Composer) timingScore(ageMinutes float64) float64 {
	min := c.config.SweetSpotMinAgeMinutes
	max := c.config.SweetSpotMaxAgeMinutes

	switch {
	case ageMinutes <= 0:
		return 0
	case ageMinutes < min:
		// Ramp up toward the sweet spot
		return clampScore(100 * ageMinutes / min * 0.5)
	case ageMinutes <= max:
		return 100
	default:
		// Linear decay after the window, floored at 20
		decayed := 100 - (ageMinutes-max)/max*60
		if decayed < 20 {
			return 20
		}
		return decayed
	}
}

// recommendationFor maps total score to its categorical band
func recommendationFor(total float64) Recommendation {
	switch {
	case total >= 80:
		return RecommendationStrongBuy
	case total >= 60:
		return RecommendationBuy
	case total >= 40:
		return RecommendationNeutral
	case total >= 25:
		return RecommendationAvoid
	default:
		return RecommendationStrongAvoid
	}
}

// riskLevelFor depends only on safety and bundle safety so a high-momentum
// token with weak safety never reads as low risk
func riskLevelFor(safety, bundleSafety float64) RiskLevel {
	worst := safety
	if bundleSafety < worst {
		worst = bundleSafety
	}
	switch {
	case worst < 25:
		return RiskCritical
	case worst < 45:
		return RiskHigh
	case worst < 70:
		return RiskMedium
	default:
		return RiskLow
	}
}

// confidenceFor reflects how complete the underlying data is
func confidenceFor(snapshot *market.MetricsSnapshot) float64 {
	confidence := 1.0
	if snapshot.HolderCount == 0 {
		confidence -= 0.25
	}
	if snapshot.LiquiditySOL <= 0 {
		confidence -= 0.25
	}
	if snapshot.Volume24hSOL <= 0 {
		confidence -= 0.15
	}
	if snapshot.Top10HolderPercent <= 0 {
		confidence -= 0.10
	}
	if confidence < 0.2 {
		confidence = 0.2
	}
	return confidence
}

// annotate fills the human-readable signal and warning lists
func (c *Composer) annotate(score *OnChainScore, snapshot *market.MetricsSnapshot) {
	if score.Momentum >= 70 {
		score.BullishSignals = append(score.BullishSignals, fmt.Sprintf("strong momentum (%.0f)", score.Momentum))
	}
	if score.Safety >= 80 {
		score.BullishSignals = append(score.BullishSignals, fmt.Sprintf("high safety score (%.0f)", score.Safety))
	}
	if score.BundleSafety >= 85 {
		score.BullishSignals = append(score.BullishSignals, "no bundle activity detected")
	}
	if snapshot.HolderCount >= 100 {
		score.BullishSignals = append(score.BullishSignals, fmt.Sprintf("%d holders", snapshot.HolderCount))
	}

	if score.Momentum < 40 {
		score.BearishSignals = append(score.BearishSignals, fmt.Sprintf("weak momentum (%.0f)", score.Momentum))
	}
	if score.MarketStructure < 40 {
		score.BearishSignals = append(score.BearishSignals, fmt.Sprintf("poor market structure (%.0f)", score.MarketStructure))
	}

	if score.Safety < 50 {
		score.Warnings = append(score.Warnings, fmt.Sprintf("safety score below 50 (%.0f)", score.Safety))
	}
	if score.BundleSafety < 60 {
		score.Warnings = append(score.Warnings, fmt.Sprintf("elevated bundle risk (safety %.0f)", score.BundleSafety))
	}
	if snapshot.Top10HolderPercent > 40 {
		score.Warnings = append(score.Warnings, fmt.Sprintf("top 10 holders own %.1f%%", snapshot.Top10HolderPercent))
	}
	if snapshot.LiquiditySOL > 0 && snapshot.LiquiditySOL < 10 {
		score.Warnings = append(score.Warnings, fmt.Sprintf("thin liquidity (%.1f SOL)", snapshot.LiquiditySOL))
	}
	if snapshot.HolderCount > 0 && snapshot.HolderCount < 20 {
		score.Warnings = append(score.Warnings, fmt.Sprintf("only %d holders", snapshot.HolderCount))
	}
}

// clampScore bounds a score to [0,100]
func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
