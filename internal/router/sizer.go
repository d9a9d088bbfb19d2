package router

import (
	"solana-sniper-bot/internal/predictor"
	"solana-sniper-bot/internal/scoring"
)

// SizerConfig bounds position sizing
type SizerConfig struct {
	MinPositionPercent float64 `json:"min_position_percent"`
	MaxPositionPercent float64 `json:"max_position_percent"` // global ceiling on top of tier ceilings
}

// DefaultSizerConfig returns conservative sizing bounds
func DefaultSizerConfig() *SizerConfig {
	return &SizerConfig{
		MinPositionPercent: 0.25,
		MaxPositionPercent: 5,
	}
}

// Sizer converts signal quality and win prediction into a bounded capital
// allocation percentage
type Sizer struct {
	config *SizerConfig
}

// NewSizer creates a sizer
func NewSizer(config *SizerConfig) *Sizer {
	if config == nil {
		config = DefaultSizerConfig()
	}
	return &Sizer{config: config}
}

// Size computes the position size percent for a signal. The tier ceiling is
// scaled by score quality and the predictor's multiplier, then clamped to the
// configured bounds. A nil prediction sizes at half the quality-scaled value.
func (s *Sizer) Size(tier ValuationTier, score *scoring.OnChainScore, prediction *predictor.Prediction) float64 {
	// Score 60 maps to 0.6 of the ceiling, score 100 to 1.0
	quality := score.Total / 100
	if quality < 0.4 {
		quality = 0.4
	}

	size := tier.MaxPositionPercent * quality
	if prediction != nil {
		size *= prediction.SizeMultiplier
	} else {
		size *= 0.5
	}

	if size > tier.MaxPositionPercent {
		size = tier.MaxPositionPercent
	}
	if size > s.config.MaxPositionPercent {
		size = s.config.MaxPositionPercent
	}
	if size < s.config.MinPositionPercent {
		size = s.config.MinPositionPercent
	}
	return size
}
