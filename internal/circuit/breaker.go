package circuit

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// BreakerState represents the circuit breaker state
type BreakerState string

const (
	StateClosed   BreakerState = "closed"    // Normal operation
	StateOpen     BreakerState = "open"      // Trading halted
	StateHalfOpen BreakerState = "half_open" // Testing recovery
)

// BreakerConfig holds circuit breaker configuration. Losses are measured in
// SOL, not percent, since position sizes vary widely across tiers.
type BreakerConfig struct {
	Enabled              bool    `json:"enabled"`
	MaxHourlyLossSOL     float64 `json:"max_hourly_loss_sol"`
	MaxDailyLossSOL      float64 `json:"max_daily_loss_sol"`
	MaxConsecutiveLosses int     `json:"max_consecutive_losses"`
	CooldownMinutes      int     `json:"cooldown_minutes"`
	MaxEntriesPerMinute  int     `json:"max_entries_per_minute"`
	MaxDailyEntries      int     `json:"max_daily_entries"`
}

// DefaultBreakerConfig returns safe defaults
func DefaultBreakerConfig() *BreakerConfig {
	return &BreakerConfig{
		Enabled:              true,
		MaxHourlyLossSOL:     2.0,
		MaxDailyLossSOL:      5.0,
		MaxConsecutiveLosses: 5,
		CooldownMinutes:      30,
		MaxEntriesPerMinute:  3,
		MaxDailyEntries:      60,
	}
}

// Breaker halts new entries when recent results or trade rates breach the
// configured limits. Open positions are never touched; only new buys stop.
type Breaker struct {
	config            *BreakerConfig
	state             BreakerState
	consecutiveLosses int
	hourlyLossSOL     float64
	dailyLossSOL      float64
	entriesLastMinute int
	dailyEntries      int
	lastTripTime      time.Time
	hourlyResetTime   time.Time
	dailyResetTime    time.Time
	minuteResetTime   time.Time
	tripReason        string
	mu                sync.RWMutex
	onTrip            func(reason string)
	onReset           func()
}

// NewBreaker creates a circuit breaker
func NewBreaker(config *BreakerConfig) *Breaker {
	if config == nil {
		config = DefaultBreakerConfig()
	}

	now := time.Now()
	return &Breaker{
		config:          config,
		state:           StateClosed,
		hourlyResetTime: now.Add(time.Hour),
		dailyResetTime:  now.Truncate(24 * time.Hour).Add(24 * time.Hour),
		minuteResetTime: now.Add(time.Minute),
	}
}

// OnTrip sets the callback for when the breaker trips
func (b *Breaker) OnTrip(handler func(reason string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onTrip = handler
}

// OnReset sets the callback for when the breaker recovers
func (b *Breaker) OnReset(handler func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onReset = handler
}

// CanEnter checks whether a new position may be opened
func (b *Breaker) CanEnter() (bool, string) {
	if !b.config.Enabled {
		return true, ""
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.resetCountersIfNeeded()

	if b.state == StateOpen {
		elapsed := time.Since(b.lastTripTime)
		cooldown := time.Duration(b.config.CooldownMinutes) * time.Minute

		if elapsed < cooldown {
			remaining := cooldown - elapsed
			return false, fmt.Sprintf("circuit breaker open, cooldown remaining: %v (reason: %s)",
				remaining.Round(time.Second), b.tripReason)
		}

		// Cooldown passed, allow a probe trade
		b.state = StateHalfOpen
	}

	if b.hourlyLossSOL >= b.config.MaxHourlyLossSOL {
		return false, fmt.Sprintf("hourly loss limit reached: %.2f SOL >= %.2f SOL",
			b.hourlyLossSOL, b.config.MaxHourlyLossSOL)
	}
	if b.dailyLossSOL >= b.config.MaxDailyLossSOL {
		return false, fmt.Sprintf("daily loss limit reached: %.2f SOL >= %.2f SOL",
			b.dailyLossSOL, b.config.MaxDailyLossSOL)
	}
	if b.consecutiveLosses >= b.config.MaxConsecutiveLosses {
		return false, fmt.Sprintf("max consecutive losses reached: %d", b.consecutiveLosses)
	}
	if b.entriesLastMinute >= b.config.MaxEntriesPerMinute {
		return false, fmt.Sprintf("rate limit reached: %d entries/minute", b.entriesLastMinute)
	}
	if b.dailyEntries >= b.config.MaxDailyEntries {
		return false, fmt.Sprintf("daily entry limit reached: %d entries", b.dailyEntries)
	}

	return true, ""
}

// RecordEntry counts a newly opened position against the rate limits
func (b *Breaker) RecordEntry() {
	if !b.config.Enabled {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.resetCountersIfNeeded()
	b.entriesLastMinute++
	b.dailyEntries++
}

// RecordResult records a completed position's SOL result
func (b *Breaker) RecordResult(pnlSOL float64) {
	if !b.config.Enabled {
		return
	}
	if math.IsNaN(pnlSOL) || math.IsInf(pnlSOL, 0) {
		return
	}

	b.mu.Lock()

	b.resetCountersIfNeeded()

	var recovered bool
	if pnlSOL < 0 {
		b.consecutiveLosses++
		b.hourlyLossSOL += -pnlSOL
		b.dailyLossSOL += -pnlSOL
	} else {
		b.consecutiveLosses = 0
		if b.state == StateHalfOpen {
			b.state = StateClosed
			recovered = true
		}
	}

	b.checkAndTrip()

	onReset := b.onReset
	b.mu.Unlock()

	if recovered && onReset != nil {
		go onReset()
	}
}

// checkAndTrip trips the breaker when a limit is breached. Caller holds the
// lock.
func (b *Breaker) checkAndTrip() {
	var reason string

	if b.consecutiveLosses >= b.config.MaxConsecutiveLosses {
		reason = fmt.Sprintf("consecutive losses: %d", b.consecutiveLosses)
	} else if b.hourlyLossSOL >= b.config.MaxHourlyLossSOL {
		reason = fmt.Sprintf("hourly loss: %.2f SOL", b.hourlyLossSOL)
	} else if b.dailyLossSOL >= b.config.MaxDailyLossSOL {
		reason = fmt.Sprintf("daily loss: %.2f SOL", b.dailyLossSOL)
	}

	if reason == "" || b.state == StateOpen {
		return
	}

	b.state = StateOpen
	b.lastTripTime = time.Now()
	b.tripReason = reason

	if b.onTrip != nil {
		go b.onTrip(reason)
	}
}

// resetCountersIfNeeded resets time-based counters
func (b *Breaker) resetCountersIfNeeded() {
	now := time.Now()

	if now.After(b.minuteResetTime) {
		b.entriesLastMinute = 0
		b.minuteResetTime = now.Add(time.Minute)
	}
	if now.After(b.hourlyResetTime) {
		b.hourlyLossSOL = 0
		b.hourlyResetTime = now.Add(time.Hour)
	}
	if now.After(b.dailyResetTime) {
		b.dailyLossSOL = 0
		b.dailyEntries = 0
		b.dailyResetTime = now.Truncate(24 * time.Hour).Add(24 * time.Hour)
	}
}

// ForceReset manually resets the circuit breaker
func (b *Breaker) ForceReset() {
	b.mu.Lock()
	b.state = StateClosed
	b.consecutiveLosses = 0
	b.tripReason = ""
	onReset := b.onReset
	b.mu.Unlock()

	if onReset != nil {
		go onReset()
	}
}

// State returns the current breaker state
func (b *Breaker) State() BreakerState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Stats returns current statistics for the status API
func (b *Breaker) Stats() map[string]interface{} {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return map[string]interface{}{
		"state":               string(b.state),
		"consecutive_losses":  b.consecutiveLosses,
		"hourly_loss_sol":     b.hourlyLossSOL,
		"daily_loss_sol":      b.dailyLossSOL,
		"entries_last_minute": b.entriesLastMinute,
		"daily_entries":       b.dailyEntries,
		"trip_reason":         b.tripReason,
	}
}
