package router

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"solana-sniper-bot/internal/logging"
	"solana-sniper-bot/internal/market"
	"solana-sniper-bot/internal/predictor"
	"solana-sniper-bot/internal/safety"
	"solana-sniper-bot/internal/scoring"
	"solana-sniper-bot/internal/thresholds"
)

// Config holds the routing parameters for the dual-track trust model
type Config struct {
	// Track boundaries by token age. Between the two bounds is the
	// transition zone, routed to PROVEN_RUNNER with full requirements.
	ProvenRunnerMinAgeMinutes float64 `json:"proven_runner_min_age_minutes"`
	EarlyQualityMaxAgeMinutes float64 `json:"early_quality_max_age_minutes"`

	// On-chain-first minimums for the EARLY_QUALITY track, independent of
	// the learned global thresholds
	EarlyMinMomentum        float64 `json:"early_min_momentum"`
	EarlyMinSafety          float64 `json:"early_min_safety"`
	EarlyMinBundleSafety    float64 `json:"early_min_bundle_safety"`
	EarlyMinHolderCount     int     `json:"early_min_holder_count"`
	EarlyMinMarketStructure float64 `json:"early_min_market_structure"`

	// Extra hard gates applied only to EARLY_QUALITY on top of the
	// ThresholdSet, since the track lacks survivorship proof
	EarlyExtraMinSafety   float64 `json:"early_extra_min_safety"`
	EarlyExtraMaxBundleRisk float64 `json:"early_extra_max_bundle_risk"`

	// Predictor gates. PROVEN_RUNNER needs the higher bar since it has no
	// external validator either.
	ProvenMinWinProbability float64 `json:"proven_min_win_probability"`
	EarlyMinWinProbability  float64 `json:"early_min_win_probability"`
	MinPredictionConfidence float64 `json:"min_prediction_confidence"`
	DataCollectionMode      bool    `json:"data_collection_mode"`

	MaxWarnings      int           `json:"max_warnings"`
	SignalTTL        time.Duration `json:"signal_ttl"`
	EntryBandPercent float64       `json:"entry_band_percent"`
}

// DefaultConfig returns the default routing parameters
func DefaultConfig() *Config {
	return &Config{
		ProvenRunnerMinAgeMinutes: 60,
		EarlyQualityMaxAgeMinutes: 30,
		EarlyMinMomentum:          75,
		EarlyMinSafety:            80,
		EarlyMinBundleSafety:      85,
		EarlyMinHolderCount:       50,
		EarlyMinMarketStructure:   70,
		EarlyExtraMinSafety:       70,
		EarlyExtraMaxBundleRisk:   25,
		ProvenMinWinProbability:   0.60,
		EarlyMinWinProbability:    0.55,
		MinPredictionConfidence:   0.50,
		MaxWarnings:               4,
		SignalTTL:                 5 * time.Minute,
		EntryBandPercent:          2,
	}
}

// ComponentScorer computes one 0-100 component score from a snapshot
type ComponentScorer interface {
	Score(snapshot *market.MetricsSnapshot) float64
}

// Router is the dual-track decision engine. For each candidate it composes
// the on-chain score, assigns a trust track, applies the live thresholds and
// the predictor gate, and either emits a Signal or a Rejection.
type Router struct {
	config    *Config
	composer  *scoring.Composer
	momentum  ComponentScorer
	structure ComponentScorer
	checker   safety.Checker
	bundle    safety.BundleChecker
	predictor predictor.Predictor
	store     *thresholds.Store
	kols      *KOLRegistry
	positions OpenPositionChecker
	sizer     *Sizer
	funnel    *Funnel
	logger    *logging.Logger
}

// NewRouter wires the decision engine
func NewRouter(
	config *Config,
	composer *scoring.Composer,
	momentum ComponentScorer,
	structure ComponentScorer,
	checker safety.Checker,
	bundle safety.BundleChecker,
	winPredictor predictor.Predictor,
	store *thresholds.Store,
	kols *KOLRegistry,
	positions OpenPositionChecker,
	sizer *Sizer,
	logger *logging.Logger,
) *Router {
	if config == nil {
		config = DefaultConfig()
	}
	return &Router{
		config:    config,
		composer:  composer,
		momentum:  momentum,
		structure: structure,
		checker:   checker,
		bundle:    bundle,
		predictor: winPredictor,
		store:     store,
		kols:      kols,
		positions: positions,
		sizer:     sizer,
		funnel:    NewFunnel(),
		logger:    logger.WithComponent("signal-router"),
	}
}

// Funnel exposes the evaluation counters
func (r *Router) Funnel() *Funnel {
	return r.funnel
}

// Evaluate runs one candidate through the full pipeline. Exactly one of the
// return values is non-nil.
func (r *Router) Evaluate(ctx context.Context, snapshot *market.MetricsSnapshot) (*Signal, *Rejection) {
	r.funnel.CandidateSeen()

	if r.positions.HasOpenPosition(snapshot.Mint) {
		return nil, r.reject(snapshot.Mint, StagePreFilter, "open-position-exists")
	}

	// Safety and bundle analysis. A failed check blocks the candidate,
	// never defaults to safe.
	safetyResult, err := r.checker.CheckSafety(ctx, snapshot.Mint)
	if err != nil {
		r.logger.Warn("Safety check failed", "mint", snapshot.Mint, "error", err.Error())
		return nil, r.reject(snapshot.Mint, StageSafety, "safety-check-unavailable")
	}
	if safetyResult.Blocked() {
		return nil, r.reject(snapshot.Mint, StageSafety, fmt.Sprintf("blocking-flags: %v", safetyResult.BlockingFlags))
	}

	bundleResult, err := r.bundle.CheckBundleRisk(ctx, snapshot.Mint)
	if err != nil {
		r.logger.Warn("Bundle analysis failed", "mint", snapshot.Mint, "error", err.Error())
		return nil, r.reject(snapshot.Mint, StageSafety, "bundle-analysis-unavailable")
	}

	score := r.composer.Compose(snapshot, scoring.ComponentScores{
		Momentum:        r.momentum.Score(snapshot),
		Safety:          safetyResult.Score,
		BundleSafety:    bundleResult.SafetyScore(),
		MarketStructure: r.structure.Score(snapshot),
	})

	if score.RiskLevel == scoring.RiskCritical {
		return nil, r.reject(snapshot.Mint, StageRisk, "critical-risk-level")
	}

	track, signalType, rejection := r.assignTrack(snapshot, score)
	if rejection != nil {
		return nil, rejection
	}

	if rejection := r.applyThresholds(snapshot, score, bundleResult, track); rejection != nil {
		return nil, rejection
	}

	prediction, rejection := r.applyPredictorGate(ctx, snapshot, score, bundleResult, track)
	if rejection != nil {
		return nil, rejection
	}

	if len(score.Warnings) > r.config.MaxWarnings {
		return nil, r.reject(snapshot.Mint, StageWarnings,
			fmt.Sprintf("%d warnings exceed ceiling of %d", len(score.Warnings), r.config.MaxWarnings))
	}

	signal := r.buildSignal(snapshot, score, prediction, track, signalType)
	r.funnel.SignalEmitted()
	r.logger.Info("Signal generated",
		"mint", snapshot.Mint,
		"symbol", snapshot.Symbol,
		"track", string(track),
		"type", string(signalType),
		"total", fmt.Sprintf("%.1f", score.Total),
		"size_pct", fmt.Sprintf("%.2f", signal.PositionSizePercent))
	return signal, nil
}

// assignTrack routes the candidate by age. Young tokens need one of two
// trust signals; the transition zone rides the PROVEN_RUNNER requirements.
func (r *Router) assignTrack(snapshot *market.MetricsSnapshot, score *scoring.OnChainScore) (Track, SignalType, *Rejection) {
	age := snapshot.AgeMinutes

	if age >= r.config.ProvenRunnerMinAgeMinutes {
		return TrackProvenRunner, SignalTypeBuy, nil
	}

	if age < r.config.EarlyQualityMaxAgeMinutes {
		if r.passesOnChainFirst(snapshot, score) {
			return TrackEarlyQuality, SignalTypeDiscovery, nil
		}
		if r.kols != nil && r.kols.HasTrustedEndorsement(snapshot.Mint) {
			return TrackEarlyQuality, SignalTypeKOLValidation, nil
		}
		return "", "", r.reject(snapshot.Mint, StageTrack, ReasonUnvalidatedEarlyAsset)
	}

	// Transition zone: partial survival, full PROVEN_RUNNER requirements
	return TrackProvenRunner, SignalTypeBuy, nil
}

// passesOnChainFirst checks the track-specific minimums that let a young
// token through without any external validator
func (r *Router) passesOnChainFirst(snapshot *market.MetricsSnapshot, score *scoring.OnChainScore) bool {
	return score.Momentum >= r.config.EarlyMinMomentum &&
		score.Safety >= r.config.EarlyMinSafety &&
		score.BundleSafety >= r.config.EarlyMinBundleSafety &&
		snapshot.HolderCount >= r.config.EarlyMinHolderCount &&
		score.MarketStructure >= r.config.EarlyMinMarketStructure
}

// applyThresholds enforces the live ThresholdSet plus the EARLY_QUALITY
// extras
func (r *Router) applyThresholds(snapshot *market.MetricsSnapshot, score *scoring.OnChainScore, bundleResult *safety.BundleResult, track Track) *Rejection {
	gates := r.store.Current()

	switch {
	case score.Total < gates.MinTotalScore:
		return r.reject(snapshot.Mint, StageThresholds, fmt.Sprintf("total %.1f below %.1f", score.Total, gates.MinTotalScore))
	case score.Momentum < gates.MinMomentum:
		return r.reject(snapshot.Mint, StageThresholds, fmt.Sprintf("momentum %.1f below %.1f", score.Momentum, gates.MinMomentum))
	case score.Safety < gates.MinSafety:
		return r.reject(snapshot.Mint, StageThresholds, fmt.Sprintf("safety %.1f below %.1f", score.Safety, gates.MinSafety))
	case bundleResult.RiskScore > gates.MaxBundleRisk:
		return r.reject(snapshot.Mint, StageThresholds, fmt.Sprintf("bundle risk %.1f above %.1f", bundleResult.RiskScore, gates.MaxBundleRisk))
	case snapshot.LiquiditySOL < gates.MinLiquiditySOL:
		return r.reject(snapshot.Mint, StageThresholds, fmt.Sprintf("liquidity %.1f SOL below %.1f", snapshot.LiquiditySOL, gates.MinLiquiditySOL))
	case snapshot.Top10HolderPercent > gates.MaxTop10Percent:
		return r.reject(snapshot.Mint, StageThresholds, fmt.Sprintf("top10 concentration %.1f%% above %.1f%%", snapshot.Top10HolderPercent, gates.MaxTop10Percent))
	}

	if track == TrackEarlyQuality {
		if score.Safety < r.config.EarlyExtraMinSafety {
			return r.reject(snapshot.Mint, StageThresholds, fmt.Sprintf("early-track safety %.1f below %.1f", score.Safety, r.config.EarlyExtraMinSafety))
		}
		if bundleResult.RiskScore > r.config.EarlyExtraMaxBundleRisk {
			return r.reject(snapshot.Mint, StageThresholds, fmt.Sprintf("early-track bundle risk %.1f above %.1f", bundleResult.RiskScore, r.config.EarlyExtraMaxBundleRisk))
		}
	}
	return nil
}

// applyPredictorGate queries the win predictor and enforces the track bar.
// Data-collection mode bypasses the gate so the predictor keeps receiving
// training examples.
func (r *Router) applyPredictorGate(ctx context.Context, snapshot *market.MetricsSnapshot, score *scoring.OnChainScore, bundleResult *safety.BundleResult, track Track) (*predictor.Prediction, *Rejection) {
	features := predictor.Features{
		Mint:               snapshot.Mint,
		TotalScore:         score.Total,
		Momentum:           score.Momentum,
		Safety:             score.Safety,
		BundleSafety:       score.BundleSafety,
		MarketStructure:    score.MarketStructure,
		LiquiditySOL:       snapshot.LiquiditySOL,
		HolderCount:        snapshot.HolderCount,
		Top10HolderPercent: snapshot.Top10HolderPercent,
		AgeMinutes:         snapshot.AgeMinutes,
		WarningCount:       len(score.Warnings),
	}

	prediction, err := r.predictor.PredictWin(ctx, features)
	if err != nil {
		r.logger.Warn("Win prediction failed", "mint", snapshot.Mint, "error", err.Error())
		if r.config.DataCollectionMode {
			return nil, nil
		}
		return nil, r.reject(snapshot.Mint, StagePredictor, "prediction-unavailable")
	}

	if r.config.DataCollectionMode {
		return prediction, nil
	}

	minProbability := r.config.EarlyMinWinProbability
	if track == TrackProvenRunner {
		minProbability = r.config.ProvenMinWinProbability
	}
	if prediction.Probability < minProbability {
		return nil, r.reject(snapshot.Mint, StagePredictor,
			fmt.Sprintf("win probability %.2f below %.2f", prediction.Probability, minProbability))
	}
	if prediction.Confidence < r.config.MinPredictionConfidence {
		return nil, r.reject(snapshot.Mint, StagePredictor,
			fmt.Sprintf("prediction confidence %.2f below %.2f", prediction.Confidence, r.config.MinPredictionConfidence))
	}
	return prediction, nil
}

// buildSignal derives the trade parameters from the valuation tier lookup
func (r *Router) buildSignal(snapshot *market.MetricsSnapshot, score *scoring.OnChainScore, prediction *predictor.Prediction, track Track, signalType SignalType) *Signal {
	tier := TierFor(snapshot.MarketCapSOL)
	now := time.Now()
	band := snapshot.Price * r.config.EntryBandPercent / 100

	signal := &Signal{
		ID:              uuid.New().String(),
		Mint:            snapshot.Mint,
		Symbol:          snapshot.Symbol,
		Track:           track,
		Type:            signalType,
		Tier:            tier.Name,
		EntryPriceLow:   snapshot.Price - band,
		EntryPriceHigh:  snapshot.Price + band,
		StopLossPrice:   snapshot.Price * (1 + tier.StopLossPercent/100),
		StopLossPercent: tier.StopLossPercent,
		TakeProfits: []TakeProfit{
			{
				Price:       snapshot.Price * (1 + tier.TP1GainPercent/100),
				GainPercent: tier.TP1GainPercent,
				SellPercent: tier.TP1SellPercent,
			},
			{
				Price:       snapshot.Price * (1 + tier.TP2GainPercent/100),
				GainPercent: tier.TP2GainPercent,
				SellPercent: 100,
			},
		},
		PositionSizePercent: r.sizer.Size(tier, score, prediction),
		LiquiditySOL:        snapshot.LiquiditySOL,
		Top10HolderPercent:  snapshot.Top10HolderPercent,
		MaxHold:             tier.MaxHold,
		Score:               score,
		Prediction:          prediction,
		GeneratedAt:         now,
		ExpiresAt:           now.Add(r.config.SignalTTL),
	}
	return signal
}

// reject counts the rejection in the funnel and returns it
func (r *Router) reject(mint, stage, reason string) *Rejection {
	r.funnel.Rejected(stage)
	r.logger.Debug("Candidate rejected", "mint", mint, "stage", stage, "reason", reason)
	return &Rejection{Mint: mint, Stage: stage, Reason: reason}
}
