package thresholds

import (
	"errors"
	"math"
	"testing"
	"time"

	"solana-sniper-bot/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.New(&logging.Config{Level: "ERROR", Output: "stdout"})
}

// makeOutcomes builds wins then losses with fixed factor values
func makeOutcomes(wins, losses int, winFactors, lossFactors map[string]float64) []Outcome {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	var out []Outcome
	for i := 0; i < wins; i++ {
		out = append(out, Outcome{
			Mint:        "win",
			Won:         true,
			PnlPercent:  40,
			Factors:     winFactors,
			CompletedAt: base.Add(time.Duration(i) * time.Hour),
		})
	}
	for i := 0; i < losses; i++ {
		out = append(out, Outcome{
			Mint:        "loss",
			Won:         false,
			PnlPercent:  -30,
			Factors:     lossFactors,
			CompletedAt: base.Add(time.Duration(wins+i) * time.Hour),
		})
	}
	return out
}

func TestOptimizerBelowMinimumSampleLeavesSetUntouched(t *testing.T) {
	store := NewStore(DefaultThresholdSet())
	before := store.Current()
	opt := NewOptimizer(DefaultOptimizerConfig(), store, testLogger())

	outcomes := makeOutcomes(8, 7,
		map[string]float64{"momentum": 80},
		map[string]float64{"momentum": 50})

	recs, err := opt.Run(outcomes)
	if !errors.Is(err, ErrInsufficientSamples) {
		t.Fatalf("err = %v, want ErrInsufficientSamples", err)
	}
	if len(recs) != 0 {
		t.Errorf("got %d recommendations below minimum sample, want 0", len(recs))
	}
	if store.Current() != before {
		t.Error("threshold set changed despite insufficient samples")
	}
}

func TestOptimizerTightensOnLowWinRate(t *testing.T) {
	store := NewStore(DefaultThresholdSet())
	opt := NewOptimizer(DefaultOptimizerConfig(), store, testLogger())

	// 25% win rate, winners had much stronger momentum
	outcomes := makeOutcomes(6, 18,
		map[string]float64{"momentum": 80, "bundle_risk": 20},
		map[string]float64{"momentum": 50, "bundle_risk": 45})

	recs, err := opt.Recommend(outcomes)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}

	var momentumRec, bundleRec *Recommendation
	for i := range recs {
		switch recs[i].Factor {
		case "min_momentum":
			momentumRec = &recs[i]
		case "max_bundle_risk":
			bundleRec = &recs[i]
		}
	}

	if momentumRec == nil {
		t.Fatal("expected a min_momentum recommendation")
	}
	if momentumRec.Recommended <= momentumRec.Current {
		t.Errorf("min_momentum %.1f -> %.1f should tighten upward", momentumRec.Current, momentumRec.Recommended)
	}

	if bundleRec == nil {
		t.Fatal("expected a max_bundle_risk recommendation")
	}
	if bundleRec.Recommended >= bundleRec.Current {
		t.Errorf("max_bundle_risk %.1f -> %.1f should tighten downward", bundleRec.Current, bundleRec.Recommended)
	}
}

func TestOptimizerChangeNeverExceedsCap(t *testing.T) {
	config := DefaultOptimizerConfig()
	store := NewStore(DefaultThresholdSet())
	opt := NewOptimizer(config, store, testLogger())

	scenarios := [][]Outcome{
		// Low win rate: tighten
		makeOutcomes(5, 20,
			map[string]float64{"momentum": 95, "total_score": 90, "safety": 95, "bundle_risk": 5, "liquidity_sol": 200, "top10_percent": 10},
			map[string]float64{"momentum": 30, "total_score": 35, "safety": 40, "bundle_risk": 70, "liquidity_sol": 5, "top10_percent": 70}),
		// In-band win rate with strong separation: nudge
		makeOutcomes(11, 9,
			map[string]float64{"momentum": 85, "total_score": 80},
			map[string]float64{"momentum": 45, "total_score": 40}),
	}

	for _, outcomes := range scenarios {
		recs, err := opt.Recommend(outcomes)
		if err != nil {
			t.Fatalf("Recommend: %v", err)
		}
		for _, rec := range recs {
			limit := math.Abs(rec.Current)*config.MaxChangePercent/100 + 1e-9
			if math.Abs(rec.Recommended-rec.Current) > limit {
				t.Errorf("%s change %.2f -> %.2f exceeds %.0f%% cap",
					rec.Factor, rec.Current, rec.Recommended, config.MaxChangePercent)
			}
		}
	}
}

func TestOptimizerTighteningClampsAtWinningMean(t *testing.T) {
	store := NewStore(&ThresholdSet{
		MinMomentum: 55, MinTotalScore: 60, MinSafety: 60,
		MaxBundleRisk: 40, MinLiquiditySOL: 25, MaxTop10Percent: 45,
	})
	opt := NewOptimizer(DefaultOptimizerConfig(), store, testLogger())

	// Winning mean for momentum (57) is below the 15% tighten target (63.25),
	// so the recommendation must stop at the winning mean
	outcomes := makeOutcomes(6, 18,
		map[string]float64{"momentum": 57},
		map[string]float64{"momentum": 40})

	recs, err := opt.Recommend(outcomes)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	for _, rec := range recs {
		if rec.Factor == "min_momentum" && rec.Recommended > 57+1e-9 {
			t.Errorf("min_momentum tightened to %.2f, past winning mean 57", rec.Recommended)
		}
	}
}

func TestOptimizerRequiresBothPopulations(t *testing.T) {
	store := NewStore(DefaultThresholdSet())
	opt := NewOptimizer(DefaultOptimizerConfig(), store, testLogger())

	outcomes := makeOutcomes(25, 0, map[string]float64{"momentum": 80}, nil)
	if _, err := opt.Recommend(outcomes); !errors.Is(err, ErrInsufficientSamples) {
		t.Errorf("err = %v, want ErrInsufficientSamples for all-win history", err)
	}
}

func TestSeparationScore(t *testing.T) {
	win := factorStats{mean: 80, stddev: 10, count: 10}
	loss := factorStats{mean: 50, stddev: 10, count: 10}
	if got := separationScore(win, loss); math.Abs(got-3.0) > 1e-9 {
		t.Errorf("separation = %.2f, want 3.0", got)
	}

	// Identical populations separate nothing
	if got := separationScore(win, win); got != 0 {
		t.Errorf("separation of identical populations = %.2f, want 0", got)
	}
}
