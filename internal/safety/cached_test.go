package safety

import (
	"context"
	"errors"
	"testing"
	"time"
)

type countingChecker struct {
	calls int
	err   error
}

func (c *countingChecker) CheckSafety(ctx context.Context, mint string) (*Result, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &Result{Mint: mint, Score: 80, CheckedAt: time.Now()}, nil
}

type countingBundleChecker struct {
	calls int
}

func (c *countingBundleChecker) CheckBundleRisk(ctx context.Context, mint string) (*BundleResult, error) {
	c.calls++
	return &BundleResult{Mint: mint, RiskScore: 15, RiskLevel: "LOW", CheckedAt: time.Now()}, nil
}

func TestCachedCheckerReusesFreshResults(t *testing.T) {
	checker := &countingChecker{}
	bundle := &countingBundleChecker{}
	cached := NewCachedChecker(checker, bundle, time.Minute)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := cached.CheckSafety(ctx, "mint-a"); err != nil {
			t.Fatalf("CheckSafety: %v", err)
		}
		if _, err := cached.CheckBundleRisk(ctx, "mint-a"); err != nil {
			t.Fatalf("CheckBundleRisk: %v", err)
		}
	}

	if checker.calls != 1 {
		t.Errorf("safety checker called %d times, want 1", checker.calls)
	}
	if bundle.calls != 1 {
		t.Errorf("bundle checker called %d times, want 1", bundle.calls)
	}

	// A different mint is a miss
	if _, err := cached.CheckSafety(ctx, "mint-b"); err != nil {
		t.Fatalf("CheckSafety: %v", err)
	}
	if checker.calls != 2 {
		t.Errorf("safety checker called %d times after new mint, want 2", checker.calls)
	}
}

func TestCachedCheckerDoesNotCacheErrors(t *testing.T) {
	checker := &countingChecker{err: errors.New("rpc timeout")}
	cached := NewCachedChecker(checker, &countingBundleChecker{}, time.Minute)

	ctx := context.Background()
	if _, err := cached.CheckSafety(ctx, "mint-a"); err == nil {
		t.Fatal("expected error from failing checker")
	}

	checker.err = nil
	result, err := cached.CheckSafety(ctx, "mint-a")
	if err != nil {
		t.Fatalf("CheckSafety after recovery: %v", err)
	}
	if result.Score != 80 {
		t.Errorf("score = %.0f, want 80", result.Score)
	}
	if checker.calls != 2 {
		t.Errorf("checker called %d times, want 2 (error not cached)", checker.calls)
	}
}

func TestCachedCheckerInvalidate(t *testing.T) {
	checker := &countingChecker{}
	cached := NewCachedChecker(checker, &countingBundleChecker{}, time.Minute)

	ctx := context.Background()
	cached.CheckSafety(ctx, "mint-a")
	cached.Invalidate("mint-a")
	cached.CheckSafety(ctx, "mint-a")

	if checker.calls != 2 {
		t.Errorf("checker called %d times after invalidate, want 2", checker.calls)
	}
}

func TestBundleResultSafetyScore(t *testing.T) {
	tests := []struct {
		risk float64
		want float64
	}{
		{0, 100},
		{35, 65},
		{100, 0},
		{130, 0},
	}
	for _, tt := range tests {
		br := &BundleResult{RiskScore: tt.risk}
		if got := br.SafetyScore(); got != tt.want {
			t.Errorf("SafetyScore(risk=%.0f) = %.0f, want %.0f", tt.risk, got, tt.want)
		}
	}
}
