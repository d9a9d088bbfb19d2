package scoring

import (
	"testing"

	"solana-sniper-bot/internal/market"
)

func testSnapshot() *market.MetricsSnapshot {
	return &market.MetricsSnapshot{
		Mint:               "So11111111111111111111111111111111111111112",
		Symbol:             "TEST",
		Price:              0.0001,
		MarketCapSOL:       500,
		Volume24hSOL:       200,
		LiquiditySOL:       80,
		HolderCount:        150,
		Top10HolderPercent: 25,
		AgeMinutes:         30,
	}
}

func TestComposerWeightsMustSumToOne(t *testing.T) {
	_, err := NewComposer(&ComposerConfig{
		MomentumWeight:     0.5,
		SafetyWeight:       0.5,
		BundleSafetyWeight: 0.5,
	})
	if err == nil {
		t.Fatal("expected error for weights summing to 1.5")
	}

	if _, err := NewComposer(nil); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
}

func TestComposeTotalClampedAndBounded(t *testing.T) {
	composer, _ := NewComposer(nil)

	tests := []struct {
		name       string
		components ComponentScores
	}{
		{"all zero", ComponentScores{}},
		{"all max", ComponentScores{Momentum: 100, Safety: 100, BundleSafety: 100, MarketStructure: 100}},
		{"out of range inputs", ComponentScores{Momentum: 250, Safety: -40, BundleSafety: 180, MarketStructure: 90}},
		{"mixed", ComponentScores{Momentum: 72, Safety: 61, BundleSafety: 88, MarketStructure: 45}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := composer.Compose(testSnapshot(), tt.components)
			if score.Total < 0 || score.Total > 100 {
				t.Errorf("total %.2f outside [0,100]", score.Total)
			}
			for _, component := range []float64{score.Momentum, score.Safety, score.BundleSafety, score.MarketStructure, score.Timing} {
				if component < 0 || component > 100 {
					t.Errorf("component %.2f outside [0,100]", component)
				}
			}
		})
	}
}

func TestRecommendationBands(t *testing.T) {
	tests := []struct {
		total float64
		want  Recommendation
	}{
		{10, RecommendationStrongAvoid},
		{24.9, RecommendationStrongAvoid},
		{25, RecommendationAvoid},
		{39.9, RecommendationAvoid},
		{40, RecommendationNeutral},
		{59.9, RecommendationNeutral},
		{60, RecommendationBuy},
		{79.9, RecommendationBuy},
		{80, RecommendationStrongBuy},
		{100, RecommendationStrongBuy},
	}

	for _, tt := range tests {
		if got := recommendationFor(tt.total); got != tt.want {
			t.Errorf("recommendationFor(%.1f) = %s, want %s", tt.total, got, tt.want)
		}
	}
}

func TestRiskLevelIgnoresMomentum(t *testing.T) {
	composer, _ := NewComposer(nil)

	// Maximum momentum with terrible safety must still read as critical risk
	score := composer.Compose(testSnapshot(), ComponentScores{
		Momentum:        100,
		Safety:          20,
		BundleSafety:    90,
		MarketStructure: 100,
	})
	if score.RiskLevel != RiskCritical {
		t.Errorf("risk level = %s, want CRITICAL for safety=20", score.RiskLevel)
	}

	// Low bundle safety alone is enough for critical
	score = composer.Compose(testSnapshot(), ComponentScores{
		Momentum:        100,
		Safety:          95,
		BundleSafety:    10,
		MarketStructure: 100,
	})
	if score.RiskLevel != RiskCritical {
		t.Errorf("risk level = %s, want CRITICAL for bundleSafety=10", score.RiskLevel)
	}

	score = composer.Compose(testSnapshot(), ComponentScores{
		Momentum:        10,
		Safety:          90,
		BundleSafety:    85,
		MarketStructure: 10,
	})
	if score.RiskLevel != RiskLow {
		t.Errorf("risk level = %s, want LOW for safety=90 bundleSafety=85", score.RiskLevel)
	}
}

func TestComposeWarnings(t *testing.T) {
	composer, _ := NewComposer(nil)

	snapshot := testSnapshot()
	snapshot.Top10HolderPercent = 55
	snapshot.LiquiditySOL = 4
	snapshot.HolderCount = 12

	score := composer.Compose(snapshot, ComponentScores{
		Momentum: 70, Safety: 45, BundleSafety: 50, MarketStructure: 60,
	})

	if len(score.Warnings) < 4 {
		t.Errorf("expected warnings for low safety, bundle risk, concentration, liquidity and holders, got %v", score.Warnings)
	}
}

func TestTimingScore(t *testing.T) {
	composer, _ := NewComposer(nil)

	if got := composer.timingScore(0); got != 0 {
		t.Errorf("timing at age 0 = %.1f, want 0", got)
	}
	if got := composer.timingScore(30); got != 100 {
		t.Errorf("timing in sweet spot = %.1f, want 100", got)
	}
	if got := composer.timingScore(1000); got < 20 || got >= 100 {
		t.Errorf("timing for stale token = %.1f, want decayed value in [20,100)", got)
	}
}
