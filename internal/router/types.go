package router

import (
	"time"

	"solana-sniper-bot/internal/predictor"
	"solana-sniper-bot/internal/scoring"
)

// Track is the trust track a candidate is routed through
type Track string

const (
	TrackProvenRunner Track = "PROVEN_RUNNER" // survived the initial volatility window
	TrackEarlyQuality Track = "EARLY_QUALITY" // young, needs an extra trust signal
)

// SignalType describes how the signal earned its acceptance
type SignalType string

const (
	SignalTypeBuy           SignalType = "BUY"
	SignalTypeDiscovery     SignalType = "DISCOVERY"      // early token accepted on-chain-first
	SignalTypeKOLValidation SignalType = "KOL_VALIDATION" // early token accepted via trusted endorsement
)

// TakeProfit is one profit-taking level on a signal
type TakeProfit struct {
	Price       float64 `json:"price"`
	GainPercent float64 `json:"gain_percent"`
	SellPercent float64 `json:"sell_percent"`
}

// Signal is an accepted trade decision. Immutable once created.
type Signal struct {
	ID                  string                `json:"id"`
	Mint                string                `json:"mint"`
	Symbol              string                `json:"symbol"`
	Track               Track                 `json:"track"`
	Type                SignalType            `json:"type"`
	Tier                string                `json:"tier"`
	EntryPriceLow       float64               `json:"entry_price_low"`
	EntryPriceHigh      float64               `json:"entry_price_high"`
	StopLossPrice       float64               `json:"stop_loss_price"`
	StopLossPercent     float64               `json:"stop_loss_percent"` // negative
	TakeProfits         []TakeProfit          `json:"take_profits"`
	PositionSizePercent float64               `json:"position_size_percent"`
	LiquiditySOL        float64               `json:"liquidity_sol"`
	Top10HolderPercent  float64               `json:"top10_holder_percent"`
	MaxHold             time.Duration         `json:"max_hold"`
	Score               *scoring.OnChainScore `json:"score"`
	Prediction          *predictor.Prediction `json:"prediction,omitempty"`
	GeneratedAt         time.Time             `json:"generated_at"`
	ExpiresAt           time.Time             `json:"expires_at"`
}

// Expired reports whether the signal is past its validity window
func (s *Signal) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Rejection explains why a candidate produced no signal
type Rejection struct {
	Mint   string `json:"mint"`
	Stage  string `json:"stage"`
	Reason string `json:"reason"`
}

// Rejection stages, in pipeline order
const (
	StagePreFilter  = "pre-filter"
	StageSafety     = "safety"
	StageRisk       = "risk"
	StageTrack      = "track"
	StageThresholds = "thresholds"
	StagePredictor  = "predictor"
	StageWarnings   = "warnings"
)

// ReasonUnvalidatedEarlyAsset rejects a young token with neither trust signal
const ReasonUnvalidatedEarlyAsset = "unvalidated-early-asset"

// OpenPositionChecker reports whether a token already has an open position
type OpenPositionChecker interface {
	HasOpenPosition(mint string) bool
}
