package thresholds

import "time"

// ThresholdSet holds the live numeric gates the signal router applies to
// every candidate. Min gates must be met or exceeded, max gates must not be
// exceeded. The set is immutable once published; the optimizer publishes a
// replacement rather than mutating fields in place.
type ThresholdSet struct {
	MinMomentum     float64   `json:"min_momentum"`
	MinTotalScore   float64   `json:"min_total_score"`
	MinSafety       float64   `json:"min_safety"`
	MaxBundleRisk   float64   `json:"max_bundle_risk"`
	MinLiquiditySOL float64   `json:"min_liquidity_sol"`
	MaxTop10Percent float64   `json:"max_top10_percent"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DefaultThresholdSet returns the starting gates before any learning
func DefaultThresholdSet() *ThresholdSet {
	return &ThresholdSet{
		MinMomentum:     55,
		MinTotalScore:   60,
		MinSafety:       60,
		MaxBundleRisk:   40,
		MinLiquiditySOL: 25,
		MaxTop10Percent: 45,
		UpdatedAt:       time.Now(),
	}
}

// factor describes one tunable gate: where it lives on the set and which
// direction tightening moves it
type factor struct {
	name  string // threshold field name
	key   string // key into Outcome.Factors
	isMax bool   // true when tightening means lowering
}

// tunableFactors is the registry the optimizer iterates over
var tunableFactors = []factor{
	{name: "min_momentum", key: "momentum", isMax: false},
	{name: "min_total_score", key: "total_score", isMax: false},
	{name: "min_safety", key: "safety", isMax: false},
	{name: "max_bundle_risk", key: "bundle_risk", isMax: true},
	{name: "min_liquidity_sol", key: "liquidity_sol", isMax: false},
	{name: "max_top10_percent", key: "top10_percent", isMax: true},
}

// value reads the factor's current threshold from the set
func (f factor) value(set *ThresholdSet) float64 {
	switch f.name {
	case "min_momentum":
		return set.MinMomentum
	case "min_total_score":
		return set.MinTotalScore
	case "min_safety":
		return set.MinSafety
	case "max_bundle_risk":
		return set.MaxBundleRisk
	case "min_liquidity_sol":
		return set.MinLiquiditySOL
	case "max_top10_percent":
		return set.MaxTop10Percent
	}
	return 0
}

// apply writes a new threshold for the factor onto the set
func (f factor) apply(set *ThresholdSet, v float64) {
	switch f.name {
	case "min_momentum":
		set.MinMomentum = v
	case "min_total_score":
		set.MinTotalScore = v
	case "min_safety":
		set.MinSafety = v
	case "max_bundle_risk":
		set.MaxBundleRisk = v
	case "min_liquidity_sol":
		set.MinLiquiditySOL = v
	case "max_top10_percent":
		set.MaxTop10Percent = v
	}
}
