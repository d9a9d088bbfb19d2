package predictor

import (
	"context"
)

// Features is the input vector for win prediction, assembled by the signal
// router from the composed score and the metrics snapshot
type Features struct {
	Mint               string  `json:"mint"`
	TotalScore         float64 `json:"total_score"`
	Momentum           float64 `json:"momentum"`
	Safety             float64 `json:"safety"`
	BundleSafety       float64 `json:"bundle_safety"`
	MarketStructure    float64 `json:"market_structure"`
	LiquiditySOL       float64 `json:"liquidity_sol"`
	HolderCount        int     `json:"holder_count"`
	Top10HolderPercent float64 `json:"top10_holder_percent"`
	AgeMinutes         float64 `json:"age_minutes"`
	WarningCount       int     `json:"warning_count"`
}

// Prediction is the predictor's output
type Prediction struct {
	Probability    float64  `json:"probability"`     // 0-1 win probability
	Confidence     float64  `json:"confidence"`      // 0-1 confidence in the estimate
	SizeMultiplier float64  `json:"size_multiplier"` // scales the base position size
	RiskFactors    []string `json:"risk_factors"`
}

// Predictor maps a feature vector to a win prediction
type Predictor interface {
	PredictWin(ctx context.Context, features Features) (*Prediction, error)
}

// HeuristicPredictor is the default rule-based predictor used until enough
// outcomes have accumulated to fit a real model
type HeuristicPredictor struct{}

// NewHeuristicPredictor creates the default predictor
func NewHeuristicPredictor() *HeuristicPredictor {
	return &HeuristicPredictor{}
}

// PredictWin estimates win probability from score components. The mapping is
// intentionally simple: total score anchors the estimate, momentum and safety
// shift it, and each warning subtracts a fixed penalty.
func (hp *HeuristicPredictor) PredictWin(ctx context.Context, features Features) (*Prediction, error) {
	probability := features.TotalScore / 100 * 0.7

	if features.Momentum >= 70 {
		probability += 0.08
	}
	if features.Safety >= 80 {
		probability += 0.05
	}
	probability -= float64(features.WarningCount) * 0.04

	if probability < 0.05 {
		probability = 0.05
	}
	if probability > 0.90 {
		probability = 0.90
	}

	prediction := &Prediction{
		Probability:    probability,
		Confidence:     hp.confidence(features),
		SizeMultiplier: hp.sizeMultiplier(probability),
	}

	if features.LiquiditySOL < 20 {
		prediction.RiskFactors = append(prediction.RiskFactors, "thin liquidity")
	}
	if features.Top10HolderPercent > 40 {
		prediction.RiskFactors = append(prediction.RiskFactors, "concentrated holders")
	}
	if features.AgeMinutes < 10 {
		prediction.RiskFactors = append(prediction.RiskFactors, "very young token")
	}
	return prediction, nil
}

// confidence is lower for young tokens and sparse data
func (hp *HeuristicPredictor) confidence(features Features) float64 {
	confidence := 0.75
	if features.AgeMinutes < 15 {
		confidence -= 0.20
	}
	if features.HolderCount < 50 {
		confidence -= 0.10
	}
	if confidence < 0.30 {
		confidence = 0.30
	}
	return confidence
}

// sizeMultiplier scales position size with conviction, bounded to [0.5, 1.5]
func (hp *HeuristicPredictor) sizeMultiplier(probability float64) float64 {
	multiplier := 0.5 + probability
	if multiplier > 1.5 {
		multiplier = 1.5
	}
	return multiplier
}
