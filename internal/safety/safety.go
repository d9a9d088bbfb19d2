package safety

import (
	"context"
	"time"
)

// Result is the outcome of a token safety check. Score is 0-100 where higher
// is safer. BlockingFlags are hard findings (mint authority live, honeypot
// behavior) that veto a trade regardless of score.
type Result struct {
	Mint          string    `json:"mint"`
	Score         float64   `json:"score"`
	BlockingFlags []string  `json:"blocking_flags"`
	CheckedAt     time.Time `json:"checked_at"`
}

// Blocked reports whether any hard finding was raised
func (r *Result) Blocked() bool {
	return len(r.BlockingFlags) > 0
}

// BundleResult is the outcome of bundle/insider analysis. RiskScore is 0-100
// where higher means more coordinated-buying risk.
type BundleResult struct {
	Mint      string    `json:"mint"`
	RiskScore float64   `json:"risk_score"`
	RiskLevel string    `json:"risk_level"`
	CheckedAt time.Time `json:"checked_at"`
}

// SafetyScore converts bundle risk into the 0-100 safer-is-higher scale the
// scoring composer works in
func (br *BundleResult) SafetyScore() float64 {
	score := 100 - br.RiskScore
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Checker runs the token safety analysis
type Checker interface {
	CheckSafety(ctx context.Context, mint string) (*Result, error)
}

// BundleChecker runs bundle/insider risk analysis
type BundleChecker interface {
	CheckBundleRisk(ctx context.Context, mint string) (*BundleResult, error)
}
