package scoring

import "time"

// Recommendation is the categorical trade recommendation derived from the
// composed total score
type Recommendation string

const (
	RecommendationStrongBuy   Recommendation = "STRONG_BUY"
	RecommendationBuy         Recommendation = "BUY"
	RecommendationNeutral     Recommendation = "NEUTRAL"
	RecommendationAvoid       Recommendation = "AVOID"
	RecommendationStrongAvoid Recommendation = "STRONG_AVOID"
)

// RiskLevel classifies how dangerous an asset is independently of how
// attractive its score is
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// ComponentScores are the independently computed 0-100 inputs to the composer
type ComponentScores struct {
	Momentum        float64 `json:"momentum"`
	Safety          float64 `json:"safety"`
	BundleSafety    float64 `json:"bundle_safety"` // 100 = no bundle/insider risk
	MarketStructure float64 `json:"market_structure"`
}

// OnChainScore is the composed evaluation of one token. It is recomputed on
// every evaluation and never treated as ground truth after the fact.
type OnChainScore struct {
	Mint            string         `json:"mint"`
	Total           float64        `json:"total"`
	Momentum        float64        `json:"momentum"`
	Safety          float64        `json:"safety"`
	BundleSafety    float64        `json:"bundle_safety"`
	MarketStructure float64        `json:"market_structure"`
	Timing          float64        `json:"timing"`
	Recommendation  Recommendation `json:"recommendation"`
	RiskLevel       RiskLevel      `json:"risk_level"`
	Confidence      float64        `json:"confidence"` // 0-1
	BullishSignals  []string       `json:"bullish_signals"`
	BearishSignals  []string       `json:"bearish_signals"`
	Warnings        []string       `json:"warnings"`
	ComputedAt      time.Time      `json:"computed_at"`
}
