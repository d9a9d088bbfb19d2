package router

import (
	"context"
	"errors"
	"testing"
	"time"

	"solana-sniper-bot/internal/logging"
	"solana-sniper-bot/internal/market"
	"solana-sniper-bot/internal/predictor"
	"solana-sniper-bot/internal/safety"
	"solana-sniper-bot/internal/scoring"
	"solana-sniper-bot/internal/thresholds"
)

type stubScorer struct{ value float64 }

func (s stubScorer) Score(*market.MetricsSnapshot) float64 { return s.value }

type stubChecker struct {
	score float64
	flags []string
	err   error
}

func (s stubChecker) CheckSafety(ctx context.Context, mint string) (*safety.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &safety.Result{Mint: mint, Score: s.score, BlockingFlags: s.flags}, nil
}

type stubBundleChecker struct {
	risk float64
	err  error
}

func (s stubBundleChecker) CheckBundleRisk(ctx context.Context, mint string) (*safety.BundleResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &safety.BundleResult{Mint: mint, RiskScore: s.risk}, nil
}

type stubPredictor struct {
	probability float64
	confidence  float64
	err         error
}

func (s stubPredictor) PredictWin(ctx context.Context, f predictor.Features) (*predictor.Prediction, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &predictor.Prediction{Probability: s.probability, Confidence: s.confidence, SizeMultiplier: 1}, nil
}

type stubPositions struct{ open map[string]bool }

func (s stubPositions) HasOpenPosition(mint string) bool { return s.open[mint] }

type routerFixture struct {
	momentum  float64
	structure float64
	safety    stubChecker
	bundle    stubBundleChecker
	predictor predictor.Predictor
	store     *thresholds.Store
	positions stubPositions
	config    *Config
	kols      *KOLRegistry
}

func (f routerFixture) build(t *testing.T) *Router {
	t.Helper()

	composer, err := scoring.NewComposer(nil)
	if err != nil {
		t.Fatalf("NewComposer: %v", err)
	}
	if f.store == nil {
		f.store = thresholds.NewStore(thresholds.DefaultThresholdSet())
	}
	if f.predictor == nil {
		f.predictor = stubPredictor{probability: 0.75, confidence: 0.8}
	}
	if f.kols == nil {
		f.kols = NewKOLRegistry(30 * time.Minute)
	}
	logger := logging.New(&logging.Config{Level: "ERROR", Output: "stdout"})

	return NewRouter(
		f.config,
		composer,
		stubScorer{f.momentum},
		stubScorer{f.structure},
		f.safety,
		f.bundle,
		f.predictor,
		f.store,
		f.kols,
		f.positions,
		NewSizer(nil),
		logger,
	)
}

func earlySnapshot() *market.MetricsSnapshot {
	return &market.MetricsSnapshot{
		Mint:               "So11111111111111111111111111111111111111112",
		Symbol:             "EARLY",
		Price:              0.0002,
		MarketCapSOL:       250,
		Volume24hSOL:       120,
		LiquiditySOL:       80,
		HolderCount:        50,
		Top10HolderPercent: 25,
		AgeMinutes:         10,
	}
}

func TestEarlyTokenAcceptedOnChainFirst(t *testing.T) {
	r := routerFixture{
		momentum:  80,
		structure: 75,
		safety:    stubChecker{score: 85},
		bundle:    stubBundleChecker{risk: 10},
		predictor: predictor.NewHeuristicPredictor(),
	}.build(t)

	signal, rejection := r.Evaluate(context.Background(), earlySnapshot())
	if rejection != nil {
		t.Fatalf("rejected: stage=%s reason=%s", rejection.Stage, rejection.Reason)
	}
	if signal.Track != TrackEarlyQuality {
		t.Errorf("track = %s, want EARLY_QUALITY", signal.Track)
	}
	if signal.Type != SignalTypeDiscovery {
		t.Errorf("type = %s, want DISCOVERY for on-chain-first acceptance", signal.Type)
	}
	if signal.ID == "" {
		t.Error("signal has no ID")
	}
	if len(signal.TakeProfits) != 2 {
		t.Fatalf("got %d take profits, want 2", len(signal.TakeProfits))
	}
	if signal.StopLossPercent >= 0 {
		t.Errorf("stop loss percent = %.1f, want negative", signal.StopLossPercent)
	}
}

func TestEarlyTokenWithoutTrustSignalRejected(t *testing.T) {
	r := routerFixture{
		momentum:  40,
		structure: 60,
		safety:    stubChecker{score: 50},
		bundle:    stubBundleChecker{risk: 30},
	}.build(t)

	snapshot := earlySnapshot()
	snapshot.HolderCount = 30

	signal, rejection := r.Evaluate(context.Background(), snapshot)
	if signal != nil {
		t.Fatal("expected rejection for unvalidated early token")
	}
	if rejection.Reason != ReasonUnvalidatedEarlyAsset {
		t.Errorf("reason = %q, want %q", rejection.Reason, ReasonUnvalidatedEarlyAsset)
	}
	if rejection.Stage != StageTrack {
		t.Errorf("stage = %s, want %s", rejection.Stage, StageTrack)
	}
}

func TestEarlyTokenAcceptedViaKOLEndorsement(t *testing.T) {
	kols := NewKOLRegistry(30 * time.Minute)
	kols.AddWallet("kol-wallet-1", KOLTierS)
	kols.RecordBuy(earlySnapshot().Mint, "kol-wallet-1")

	r := routerFixture{
		momentum:  80,
		structure: 75,
		safety:    stubChecker{score: 85},
		bundle:    stubBundleChecker{risk: 10},
		kols:      kols,
	}.build(t)

	// Holder count below the on-chain-first minimum forces the KOL path
	snapshot := earlySnapshot()
	snapshot.HolderCount = 35

	signal, rejection := r.Evaluate(context.Background(), snapshot)
	if rejection != nil {
		t.Fatalf("rejected: stage=%s reason=%s", rejection.Stage, rejection.Reason)
	}
	if signal.Type != SignalTypeKOLValidation {
		t.Errorf("type = %s, want KOL_VALIDATION", signal.Type)
	}
}

func TestUntrustedKOLTierDoesNotValidate(t *testing.T) {
	kols := NewKOLRegistry(30 * time.Minute)
	kols.AddWallet("kol-wallet-2", KOLTierB)
	kols.RecordBuy(earlySnapshot().Mint, "kol-wallet-2")

	r := routerFixture{
		momentum:  80,
		structure: 75,
		safety:    stubChecker{score: 85},
		bundle:    stubBundleChecker{risk: 10},
		kols:      kols,
	}.build(t)

	snapshot := earlySnapshot()
	snapshot.HolderCount = 35

	_, rejection := r.Evaluate(context.Background(), snapshot)
	if rejection == nil || rejection.Reason != ReasonUnvalidatedEarlyAsset {
		t.Fatalf("tier B endorsement must not validate, got rejection=%v", rejection)
	}
}

func TestCriticalRiskRejectsRegardlessOfScore(t *testing.T) {
	r := routerFixture{
		momentum:  100,
		structure: 100,
		safety:    stubChecker{score: 20}, // forces CRITICAL
		bundle:    stubBundleChecker{risk: 5},
	}.build(t)

	snapshot := earlySnapshot()
	snapshot.AgeMinutes = 90 // proven runner age

	signal, rejection := r.Evaluate(context.Background(), snapshot)
	if signal != nil {
		t.Fatal("critical risk must reject regardless of total score")
	}
	if rejection.Stage != StageRisk {
		t.Errorf("stage = %s, want %s", rejection.Stage, StageRisk)
	}
}

func TestOpenPositionRejectsImmediately(t *testing.T) {
	snapshot := earlySnapshot()
	r := routerFixture{
		momentum:  80,
		structure: 75,
		safety:    stubChecker{score: 85},
		bundle:    stubBundleChecker{risk: 10},
		positions: stubPositions{open: map[string]bool{snapshot.Mint: true}},
	}.build(t)

	_, rejection := r.Evaluate(context.Background(), snapshot)
	if rejection == nil || rejection.Stage != StagePreFilter {
		t.Fatalf("expected pre-filter rejection, got %v", rejection)
	}
}

func TestSafetyCheckFailureBlocksConservatively(t *testing.T) {
	r := routerFixture{
		momentum:  80,
		structure: 75,
		safety:    stubChecker{err: errors.New("rpc timeout")},
		bundle:    stubBundleChecker{risk: 10},
	}.build(t)

	signal, rejection := r.Evaluate(context.Background(), earlySnapshot())
	if signal != nil {
		t.Fatal("failed safety check must block, not default to safe")
	}
	if rejection.Stage != StageSafety {
		t.Errorf("stage = %s, want %s", rejection.Stage, StageSafety)
	}
}

func TestTransitionZoneRoutedToProvenRunner(t *testing.T) {
	r := routerFixture{
		momentum:  80,
		structure: 75,
		safety:    stubChecker{score: 85},
		bundle:    stubBundleChecker{risk: 10},
		predictor: stubPredictor{probability: 0.70, confidence: 0.8},
	}.build(t)

	// Between the early max (30) and proven min (60)
	snapshot := earlySnapshot()
	snapshot.AgeMinutes = 45

	signal, rejection := r.Evaluate(context.Background(), snapshot)
	if rejection != nil {
		t.Fatalf("rejected: stage=%s reason=%s", rejection.Stage, rejection.Reason)
	}
	if signal.Track != TrackProvenRunner {
		t.Errorf("transition zone track = %s, want PROVEN_RUNNER", signal.Track)
	}
}

func TestProvenRunnerRequiresHigherWinProbability(t *testing.T) {
	// 0.58 clears the early bar (0.55) but not the proven bar (0.60)
	fixture := routerFixture{
		momentum:  80,
		structure: 75,
		safety:    stubChecker{score: 85},
		bundle:    stubBundleChecker{risk: 10},
		predictor: stubPredictor{probability: 0.58, confidence: 0.8},
	}

	r := fixture.build(t)
	snapshot := earlySnapshot()
	snapshot.AgeMinutes = 90

	_, rejection := r.Evaluate(context.Background(), snapshot)
	if rejection == nil || rejection.Stage != StagePredictor {
		t.Fatalf("expected predictor rejection on proven track, got %v", rejection)
	}

	r = fixture.build(t)
	signal, rejection := r.Evaluate(context.Background(), earlySnapshot())
	if rejection != nil {
		t.Fatalf("early track should accept 0.58: stage=%s reason=%s", rejection.Stage, rejection.Reason)
	}
	if signal.Track != TrackEarlyQuality {
		t.Errorf("track = %s, want EARLY_QUALITY", signal.Track)
	}
}

func TestDataCollectionModeBypassesPredictorGate(t *testing.T) {
	config := DefaultConfig()
	config.DataCollectionMode = true

	r := routerFixture{
		momentum:  80,
		structure: 75,
		safety:    stubChecker{score: 85},
		bundle:    stubBundleChecker{risk: 10},
		predictor: stubPredictor{probability: 0.10, confidence: 0.1},
		config:    config,
	}.build(t)

	signal, rejection := r.Evaluate(context.Background(), earlySnapshot())
	if rejection != nil {
		t.Fatalf("data-collection mode must bypass predictor gate: %v", rejection)
	}
	if signal == nil {
		t.Fatal("expected a signal")
	}
}

func TestWarningCeilingRejects(t *testing.T) {
	// Loose gates so only the warning ceiling can trip
	store := thresholds.NewStore(&thresholds.ThresholdSet{
		MinMomentum: 0, MinTotalScore: 0, MinSafety: 0,
		MaxBundleRisk: 100, MinLiquiditySOL: 0, MaxTop10Percent: 100,
	})

	r := routerFixture{
		momentum:  80,
		structure: 30,
		safety:    stubChecker{score: 46},
		bundle:    stubBundleChecker{risk: 45},
		store:     store,
	}.build(t)

	// Five warnings: low safety, bundle risk, concentration, thin liquidity, few holders
	snapshot := earlySnapshot()
	snapshot.AgeMinutes = 90
	snapshot.Top10HolderPercent = 42
	snapshot.LiquiditySOL = 5
	snapshot.HolderCount = 12

	_, rejection := r.Evaluate(context.Background(), snapshot)
	if rejection == nil || rejection.Stage != StageWarnings {
		t.Fatalf("expected warning-ceiling rejection, got %v", rejection)
	}
}

func TestThresholdGateRejects(t *testing.T) {
	store := thresholds.NewStore(&thresholds.ThresholdSet{
		MinMomentum: 90, MinTotalScore: 0, MinSafety: 0,
		MaxBundleRisk: 100, MinLiquiditySOL: 0, MaxTop10Percent: 100,
	})

	r := routerFixture{
		momentum:  80,
		structure: 75,
		safety:    stubChecker{score: 85},
		bundle:    stubBundleChecker{risk: 10},
		store:     store,
	}.build(t)

	_, rejection := r.Evaluate(context.Background(), earlySnapshot())
	if rejection == nil || rejection.Stage != StageThresholds {
		t.Fatalf("expected threshold rejection, got %v", rejection)
	}
}

func TestFunnelCountsEvaluations(t *testing.T) {
	r := routerFixture{
		momentum:  40,
		structure: 60,
		safety:    stubChecker{score: 50},
		bundle:    stubBundleChecker{risk: 30},
	}.build(t)

	snapshot := earlySnapshot()
	snapshot.HolderCount = 30
	r.Evaluate(context.Background(), snapshot)
	r.Evaluate(context.Background(), snapshot)

	funnel := r.Funnel().Snapshot()
	if funnel.CandidatesSeen != 2 {
		t.Errorf("candidates seen = %d, want 2", funnel.CandidatesSeen)
	}
	if funnel.RejectedByStage[StageTrack] != 2 {
		t.Errorf("track rejections = %d, want 2", funnel.RejectedByStage[StageTrack])
	}
	if funnel.SignalsEmitted != 0 {
		t.Errorf("signals emitted = %d, want 0", funnel.SignalsEmitted)
	}
}
