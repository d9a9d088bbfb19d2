package thresholds

import (
	"errors"
	"fmt"
	"math"
	"time"

	"solana-sniper-bot/internal/logging"
)

// ErrInsufficientSamples is returned when too few completed outcomes exist to
// recommend changes. The live set must be left untouched in that case.
var ErrInsufficientSamples = errors.New("insufficient completed outcomes for optimization")

// Outcome is one completed signal with the factor values observed at entry
type Outcome struct {
	Mint        string             `json:"mint"`
	Won         bool               `json:"won"`
	PnlPercent  float64            `json:"pnl_percent"`
	PnlSOL      float64            `json:"pnl_sol"`
	Factors     map[string]float64 `json:"factors"`
	CompletedAt time.Time          `json:"completed_at"`
}

// Recommendation is one proposed threshold change
type Recommendation struct {
	Factor      string  `json:"factor"`
	Current     float64 `json:"current"`
	Recommended float64 `json:"recommended"`
	Separation  float64 `json:"separation"`
	Reason      string  `json:"reason"`
}

// OptimizerConfig tunes the learning behavior
type OptimizerConfig struct {
	MinSampleSize      int     `json:"min_sample_size"`
	TargetWinRate      float64 `json:"target_win_rate"`
	WinRateBand        float64 `json:"win_rate_band"`         // dead zone around the target
	MaxChangePercent   float64 `json:"max_change_percent"`    // per-cycle cap on any factor
	MinSeparation      float64 `json:"min_separation"`        // below this a factor is not predictive
	NudgeFraction      float64 `json:"nudge_fraction"`        // move toward the optimal cut by this share
	LowVolumePerDay    float64 `json:"low_volume_per_day"`    // under this, high win rate triggers loosening
}

// DefaultOptimizerConfig returns conservative learning parameters
func DefaultOptimizerConfig() *OptimizerConfig {
	return &OptimizerConfig{
		MinSampleSize:    20,
		TargetWinRate:    0.55,
		WinRateBand:      0.05,
		MaxChangePercent: 15,
		MinSeparation:    0.8,
		NudgeFraction:    0.3,
		LowVolumePerDay:  5,
	}
}

// Optimizer periodically recomputes recommended thresholds from historical
// win/loss outcomes and applies them to the store
type Optimizer struct {
	config *OptimizerConfig
	store  *Store
	logger *logging.Logger
}

// NewOptimizer creates an optimizer bound to a store
func NewOptimizer(config *OptimizerConfig, store *Store, logger *logging.Logger) *Optimizer {
	if config == nil {
		config = DefaultOptimizerConfig()
	}
	return &Optimizer{
		config: config,
		store:  store,
		logger: logger.WithComponent("threshold-optimizer"),
	}
}

// factorStats summarizes one factor's distribution in a population
type factorStats struct {
	mean   float64
	stddev float64
	count  int
}

// Recommend computes proposed threshold changes from completed outcomes.
// Below the minimum sample size it returns ErrInsufficientSamples and no
// recommendations.
func (o *Optimizer) Recommend(outcomes []Outcome) ([]Recommendation, error) {
	if len(outcomes) < o.config.MinSampleSize {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientSamples, len(outcomes), o.config.MinSampleSize)
	}

	wins, losses := 0, 0
	for _, oc := range outcomes {
		if oc.Won {
			wins++
		} else {
			losses++
		}
	}
	if wins == 0 || losses == 0 {
		return nil, fmt.Errorf("%w: need both wins and losses (%d wins, %d losses)", ErrInsufficientSamples, wins, losses)
	}

	winRate := float64(wins) / float64(len(outcomes))
	current := o.store.Current()

	var recs []Recommendation
	for _, f := range tunableFactors {
		winStats := statsFor(outcomes, f.key, true)
		lossStats := statsFor(outcomes, f.key, false)
		if winStats.count == 0 || lossStats.count == 0 {
			continue
		}

		separation := separationScore(winStats, lossStats)
		cur := f.value(current)

		var proposed float64
		var reason string
		switch {
		case winRate < o.config.TargetWinRate-o.config.WinRateBand:
			// Losing too often: tighten toward the winning population
			proposed = o.tighten(f, cur, winStats.mean)
			reason = fmt.Sprintf("win rate %.0f%% below target, tightening toward winning mean %.1f", winRate*100, winStats.mean)

		case winRate > o.config.TargetWinRate+o.config.WinRateBand && o.volumePerDay(outcomes) < o.config.LowVolumePerDay:
			// Winning comfortably but starving for volume: loosen toward the
			// losing population
			proposed = o.loosen(f, cur, lossStats.mean)
			reason = fmt.Sprintf("win rate %.0f%% above target with low volume, loosening toward losing mean %.1f", winRate*100, lossStats.mean)

		case separation >= o.config.MinSeparation:
			// Win rate is fine: nudge highly predictive factors toward the
			// empirical cut point
			cut := (winStats.mean + lossStats.mean) / 2
			proposed = o.capChange(cur, cur+(cut-cur)*o.config.NudgeFraction)
			reason = fmt.Sprintf("separation %.2f, nudging toward cut point %.1f", separation, cut)

		default:
			continue
		}

		if math.Abs(proposed-cur) < 1e-9 {
			continue
		}
		recs = append(recs, Recommendation{
			Factor:      f.name,
			Current:     cur,
			Recommended: proposed,
			Separation:  separation,
			Reason:      reason,
		})
	}
	return recs, nil
}

// Run computes recommendations and applies them to the store. Insufficient
// data leaves the live set untouched.
func (o *Optimizer) Run(outcomes []Outcome) ([]Recommendation, error) {
	recs, err := o.Recommend(outcomes)
	if err != nil {
		if errors.Is(err, ErrInsufficientSamples) {
			o.logger.Info("Skipping threshold optimization", "reason", err.Error())
			return nil, err
		}
		return nil, err
	}
	if len(recs) == 0 {
		o.logger.Info("No threshold changes recommended", "outcomes", len(outcomes))
		return nil, nil
	}

	o.store.Apply(recs)
	for _, rec := range recs {
		o.logger.Info("Applied threshold change",
			"factor", rec.Factor,
			"old", fmt.Sprintf("%.2f", rec.Current),
			"new", fmt.Sprintf("%.2f", rec.Recommended),
			"reason", rec.Reason)
	}
	return recs, nil
}

// tighten moves a min up (or a max down) toward bound, capped per cycle and
// clamped so it never crosses the winning-population mean
func (o *Optimizer) tighten(f factor, cur, winMean float64) float64 {
	var target float64
	if f.isMax {
		target = cur * (1 - o.config.MaxChangePercent/100)
		if target < winMean {
			target = winMean
		}
		if target > cur {
			target = cur
		}
	} else {
		target = cur * (1 + o.config.MaxChangePercent/100)
		if target > winMean {
			target = winMean
		}
		if target < cur {
			target = cur
		}
	}
	return target
}

// loosen moves a min down (or a max up) toward bound, capped per cycle and
// clamped so it never crosses the losing-population mean
func (o *Optimizer) loosen(f factor, cur, lossMean float64) float64 {
	var target float64
	if f.isMax {
		target = cur * (1 + o.config.MaxChangePercent/100)
		if target > lossMean && lossMean > cur {
			target = lossMean
		}
		if target < cur {
			target = cur
		}
	} else {
		target = cur * (1 - o.config.MaxChangePercent/100)
		if target < lossMean && lossMean < cur {
			target = lossMean
		}
		if target > cur {
			target = cur
		}
	}
	return target
}

// capChange bounds proposed within MaxChangePercent of cur
func (o *Optimizer) capChange(cur, proposed float64) float64 {
	if cur == 0 {
		return proposed
	}
	limit := math.Abs(cur) * o.config.MaxChangePercent / 100
	if proposed > cur+limit {
		return cur + limit
	}
	if proposed < cur-limit {
		return cur - limit
	}
	return proposed
}

// volumePerDay estimates completed signals per day from outcome timestamps
func (o *Optimizer) volumePerDay(outcomes []Outcome) float64 {
	earliest, latest := outcomes[0].CompletedAt, outcomes[0].CompletedAt
	for _, oc := range outcomes[1:] {
		if oc.CompletedAt.Before(earliest) {
			earliest = oc.CompletedAt
		}
		if oc.CompletedAt.After(latest) {
			latest = oc.CompletedAt
		}
	}
	days := latest.Sub(earliest).Hours() / 24
	if days < 1 {
		days = 1
	}
	return float64(len(outcomes)) / days
}

// statsFor computes mean and stddev of a factor inside the won or lost
// population
func statsFor(outcomes []Outcome, key string, won bool) factorStats {
	var values []float64
	for _, oc := range outcomes {
		if oc.Won != won {
			continue
		}
		if v, ok := oc.Factors[key]; ok {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return factorStats{}
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))

	return factorStats{mean: mean, stddev: math.Sqrt(variance), count: len(values)}
}

// separationScore measures how well a factor separates wins from losses
func separationScore(win, loss factorStats) float64 {
	avgStd := (win.stddev + loss.stddev) / 2
	if avgStd < 1e-9 {
		avgStd = 1e-9
	}
	return math.Abs(win.mean-loss.mean) / avgStd
}
