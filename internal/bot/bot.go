package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"solana-sniper-bot/config"
	"solana-sniper-bot/internal/circuit"
	"solana-sniper-bot/internal/database"
	"solana-sniper-bot/internal/logging"
	"solana-sniper-bot/internal/market"
	"solana-sniper-bot/internal/notification"
	"solana-sniper-bot/internal/positions"
	"solana-sniper-bot/internal/router"
	"solana-sniper-bot/internal/scheduler"
	"solana-sniper-bot/internal/thresholds"
)

// TokenFeed is the discovery stream surface the bot consumes
type TokenFeed interface {
	Start()
	Stop()
	Candidates() <-chan market.TokenEvent
	OnTrade(handler func(market.TokenEvent))
	Forget(mint string)
	Reconnects() int
}

// watchItem is one candidate mint under observation. Tokens stay on the
// watchlist across scan cycles so they can graduate from too-young to
// EARLY_QUALITY or PROVEN_RUNNER as they age.
type watchItem struct {
	mint      string
	symbol    string
	firstSeen time.Time
}

const (
	maxWatchlist     = 500
	watchlistTTL     = 3 * time.Hour
	maxRecentSignals = 100
	maxOutcomeBuffer = 500
)

// SniperBot wires the discovery feed, the signal router, the position manager
// and the threshold optimizer into one trading loop.
type SniperBot struct {
	config        *config.Config
	feed          TokenFeed
	data          market.MetricsProvider
	router        *router.Router
	manager       *positions.Manager
	breaker       *circuit.Breaker
	optimizer     *thresholds.Optimizer
	store         *thresholds.Store
	kols          *router.KOLRegistry
	repo          *database.Repository   // nil when the database is disabled
	notifications *notification.Manager
	logger        *logging.Logger

	mu            sync.RWMutex
	watchlist     map[string]*watchItem
	recentSignals []router.Signal
	outcomeBuffer []thresholds.Outcome
	running       bool
	startedAt     time.Time

	scanLoop      *scheduler.Loop
	pollLoop      *scheduler.Loop
	optimizerLoop *scheduler.Loop
	funnelLoop    *scheduler.Loop

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewSniperBot assembles the bot from already-constructed components
func NewSniperBot(
	cfg *config.Config,
	feed TokenFeed,
	data market.MetricsProvider,
	signalRouter *router.Router,
	manager *positions.Manager,
	breaker *circuit.Breaker,
	optimizer *thresholds.Optimizer,
	store *thresholds.Store,
	kols *router.KOLRegistry,
	repo *database.Repository,
	notifications *notification.Manager,
	logger *logging.Logger,
) *SniperBot {
	b := &SniperBot{
		config:        cfg,
		feed:          feed,
		data:          data,
		router:        signalRouter,
		manager:       manager,
		breaker:       breaker,
		optimizer:     optimizer,
		store:         store,
		kols:          kols,
		repo:          repo,
		notifications: notifications,
		logger:        logger.WithComponent("sniper-bot"),
		watchlist:     make(map[string]*watchItem),
		stopCh:        make(chan struct{}),
	}

	breaker.OnTrip(func(reason string) {
		b.logger.Warn("Circuit breaker tripped", "reason", reason)
		if b.notifications != nil {
			b.notifications.SendBreakerTripped(reason)
		}
	})
	breaker.OnReset(func() {
		b.logger.Info("Circuit breaker reset")
		if b.notifications != nil {
			b.notifications.SendBreakerReset()
		}
	})

	// KOL buys arrive on the feed read loop; RecordBuy only takes a mutex
	feed.OnTrade(func(ev market.TokenEvent) {
		if ev.Side == "buy" && ev.Trader != "" {
			kols.RecordBuy(ev.Mint, ev.Trader)
		}
	})

	return b
}

// RecordOutcome implements positions.OutcomeSink. Every completed position
// feeds the circuit breaker and the optimizer's sample buffer.
func (b *SniperBot) RecordOutcome(outcome thresholds.Outcome) {
	b.breaker.RecordResult(outcome.PnlSOL)

	b.mu.Lock()
	b.outcomeBuffer = append(b.outcomeBuffer, outcome)
	if len(b.outcomeBuffer) > maxOutcomeBuffer {
		b.outcomeBuffer = b.outcomeBuffer[len(b.outcomeBuffer)-maxOutcomeBuffer:]
	}
	b.mu.Unlock()

	b.feed.Forget(outcome.Mint)
	b.kols.Forget(outcome.Mint)
}

// Start launches the feed, the candidate intake and all periodic loops
func (b *SniperBot) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return fmt.Errorf("bot already running")
	}
	b.running = true
	b.startedAt = time.Now()
	b.stopCh = make(chan struct{})
	b.mu.Unlock()

	b.logger.Info("Sniper bot starting",
		"dry_run", b.config.TradingConfig.DryRun,
		"capital_sol", b.config.TradingConfig.CapitalSOL,
		"max_open_positions", b.config.TradingConfig.MaxOpenPositions)

	b.feed.Start()

	b.wg.Add(1)
	go b.consumeCandidates()

	scanInterval := time.Duration(b.config.TradingConfig.ScanIntervalSecs) * time.Second
	pollInterval := time.Duration(b.config.TradingConfig.PollIntervalSecs) * time.Second

	b.scanLoop = scheduler.NewLoop("scan-loop", scanInterval, b.scanWatchlist, b.logger)
	b.pollLoop = scheduler.NewLoop("poll-loop", pollInterval, b.manager.PollAll, b.logger)
	b.scanLoop.Start(ctx)
	b.pollLoop.Start(ctx)

	if b.config.OptimizerConfig.Enabled {
		interval := time.Duration(b.config.OptimizerConfig.IntervalMinutes) * time.Minute
		b.optimizerLoop = scheduler.NewLoop("optimizer-loop", interval, b.runOptimizer, b.logger)
		b.optimizerLoop.Start(ctx)
	}

	b.funnelLoop = scheduler.NewLoop("funnel-loop", time.Hour, b.flushFunnel, b.logger)
	b.funnelLoop.Start(ctx)

	return nil
}

// Stop shuts down the loops and the feed, waiting for in-flight work
func (b *SniperBot) Stop() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	b.running = false
	b.mu.Unlock()

	close(b.stopCh)
	b.feed.Stop()

	for _, loop := range []*scheduler.Loop{b.scanLoop, b.pollLoop, b.optimizerLoop, b.funnelLoop} {
		if loop != nil {
			loop.Stop()
		}
	}
	b.wg.Wait()
	b.logger.Info("Sniper bot stopped")
}

// RecoverPositions reloads open position snapshots after a restart
func (b *SniperBot) RecoverPositions(ctx context.Context, store *database.RedisPositionStore) {
	if store == nil {
		return
	}
	recovered, err := store.LoadOpenPositions(ctx)
	if err != nil {
		b.logger.Error("Position recovery failed", "error", err.Error())
		return
	}
	for _, p := range recovered {
		if err := b.manager.Restore(p); err != nil {
			b.logger.Warn("Skipping unrecoverable position", "mint", p.Mint, "error", err.Error())
			continue
		}
		b.logger.Info("Recovered open position", "mint", p.Mint, "symbol", p.Symbol,
			"entered_at", p.EnteredAt.Format(time.RFC3339))
	}
}

// consumeCandidates drains the feed's new-token channel into the watchlist
func (b *SniperBot) consumeCandidates() {
	defer b.wg.Done()

	for {
		select {
		case <-b.stopCh:
			return
		case ev, ok := <-b.feed.Candidates():
			if !ok {
				return
			}
			if err := market.ValidateMint(ev.Mint); err != nil {
				b.logger.Debug("Dropping candidate with invalid mint", "mint", ev.Mint)
				continue
			}
			b.addToWatchlist(ev)
		}
	}
}

// addToWatchlist registers a new candidate, evicting the oldest when full
func (b *SniperBot) addToWatchlist(ev market.TokenEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.watchlist[ev.Mint]; exists {
		return
	}
	if len(b.watchlist) >= maxWatchlist {
		var oldestMint string
		var oldestSeen time.Time
		for mint, item := range b.watchlist {
			if oldestMint == "" || item.firstSeen.Before(oldestSeen) {
				oldestMint = mint
				oldestSeen = item.firstSeen
			}
		}
		delete(b.watchlist, oldestMint)
	}
	b.watchlist[ev.Mint] = &watchItem{
		mint:      ev.Mint,
		symbol:    ev.Symbol,
		firstSeen: time.Now(),
	}
}

// dropFromWatchlist removes a candidate and releases its feed state
func (b *SniperBot) dropFromWatchlist(mint string) {
	b.mu.Lock()
	delete(b.watchlist, mint)
	b.mu.Unlock()
	if !b.manager.HasOpenPosition(mint) {
		b.feed.Forget(mint)
	}
}

// scanWatchlist evaluates every watched candidate once
func (b *SniperBot) scanWatchlist(ctx context.Context) {
	b.mu.RLock()
	items := make([]*watchItem, 0, len(b.watchlist))
	for _, item := range b.watchlist {
		items = append(items, item)
	}
	b.mu.RUnlock()

	for _, item := range items {
		if ctx.Err() != nil {
			return
		}
		b.evaluateCandidate(ctx, item)
	}
}

// evaluateCandidate runs one candidate through the router and opens a
// position when a signal survives the circuit breaker
func (b *SniperBot) evaluateCandidate(ctx context.Context, item *watchItem) {
	if time.Since(item.firstSeen) > watchlistTTL {
		b.dropFromWatchlist(item.mint)
		return
	}
	if b.manager.HasOpenPosition(item.mint) {
		return
	}
	if len(b.manager.OpenPositions()) >= b.config.TradingConfig.MaxOpenPositions {
		return
	}

	snapshot, err := b.data.FetchMetrics(ctx, item.mint)
	if err != nil {
		b.logger.Debug("Metrics fetch failed", "mint", item.mint, "error", err.Error())
		return
	}

	signal, rejection := b.router.Evaluate(ctx, snapshot)
	if rejection != nil {
		// Safety and risk rejections are final for a mint; the rest may
		// pass on a later scan as the token ages and its metrics move
		if rejection.Stage == router.StageSafety || rejection.Stage == router.StageRisk {
			b.dropFromWatchlist(item.mint)
		}
		return
	}
	if signal == nil {
		return
	}

	b.recordSignal(signal)

	if ok, reason := b.breaker.CanEnter(); !ok {
		b.logger.Warn("Signal blocked by circuit breaker", "mint", signal.Mint, "reason", reason)
		return
	}

	solAmount := b.config.TradingConfig.CapitalSOL * signal.PositionSizePercent / 100
	if _, err := b.manager.Open(ctx, signal, solAmount); err != nil {
		b.logger.Error("Failed to open position", "mint", signal.Mint, "error", err.Error())
		return
	}

	b.breaker.RecordEntry()
	b.dropFromWatchlist(signal.Mint)
	if b.notifications != nil {
		b.notifications.SendSignal(signal)
	}
}

// recordSignal keeps the signal in memory and persists it when possible
func (b *SniperBot) recordSignal(signal *router.Signal) {
	b.mu.Lock()
	b.recentSignals = append(b.recentSignals, *signal)
	if len(b.recentSignals) > maxRecentSignals {
		b.recentSignals = b.recentSignals[len(b.recentSignals)-maxRecentSignals:]
	}
	b.mu.Unlock()

	if b.repo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := b.repo.SaveSignal(ctx, signal); err != nil {
			b.logger.Warn("Failed to persist signal", "mint", signal.Mint, "error", err.Error())
		}
	}
}

// runOptimizer feeds completed outcomes into the threshold optimizer. The
// database history is preferred; without one the in-memory buffer serves.
func (b *SniperBot) runOptimizer(ctx context.Context) {
	var outcomes []thresholds.Outcome
	if b.repo != nil {
		loaded, err := b.repo.CompletedOutcomes(ctx, b.config.OptimizerConfig.OutcomeLookback)
		if err != nil {
			b.logger.Warn("Loading outcomes failed, using in-memory buffer", "error", err.Error())
		} else {
			outcomes = loaded
		}
	}
	if outcomes == nil {
		b.mu.RLock()
		outcomes = make([]thresholds.Outcome, len(b.outcomeBuffer))
		copy(outcomes, b.outcomeBuffer)
		b.mu.RUnlock()
	}

	recommendations, err := b.optimizer.Run(outcomes)
	if err != nil {
		if errors.Is(err, thresholds.ErrInsufficientSamples) {
			b.logger.Debug("Optimizer skipped", "outcomes", len(outcomes))
		} else {
			b.logger.Error("Optimizer run failed", "error", err.Error())
		}
		return
	}
	if len(recommendations) == 0 {
		return
	}

	now := time.Now()
	for _, rec := range recommendations {
		change := thresholds.Change{
			Factor:    rec.Factor,
			OldValue:  rec.Current,
			NewValue:  rec.Recommended,
			Reason:    rec.Reason,
			AppliedAt: now,
		}
		if b.notifications != nil {
			b.notifications.SendThresholdChange(change)
		}
		if b.repo != nil {
			if err := b.repo.SaveThresholdChange(ctx, change); err != nil {
				b.logger.Warn("Failed to persist threshold change", "factor", change.Factor, "error", err.Error())
			}
		}
	}
}

// flushFunnel closes the current funnel window and persists its counters
func (b *SniperBot) flushFunnel(ctx context.Context) {
	snapshot := b.router.Funnel().Reset()
	b.logger.Info("Funnel window closed",
		"candidates", snapshot.CandidatesSeen,
		"signals", snapshot.SignalsEmitted,
		"rejections", len(snapshot.RejectedByStage))

	if b.repo != nil {
		if err := b.repo.SaveFunnelCycle(ctx, snapshot); err != nil {
			b.logger.Warn("Failed to persist funnel cycle", "error", err.Error())
		}
	}
}

// ============================================================================
// OPERATOR API SURFACE (api.BotAPI)
// ============================================================================

// GetStatus returns the bot's operational status
func (b *SniperBot) GetStatus() map[string]interface{} {
	b.mu.RLock()
	running := b.running
	startedAt := b.startedAt
	watchlistSize := len(b.watchlist)
	signalCount := len(b.recentSignals)
	b.mu.RUnlock()

	uptime := time.Duration(0)
	if running {
		uptime = time.Since(startedAt)
	}

	return map[string]interface{}{
		"running":          running,
		"uptime_seconds":   int64(uptime.Seconds()),
		"dry_run":          b.config.TradingConfig.DryRun,
		"open_positions":   len(b.manager.OpenPositions()),
		"closed_positions": len(b.manager.ClosedPositions()),
		"watchlist_size":   watchlistSize,
		"recent_signals":   signalCount,
		"breaker_state":    string(b.breaker.State()),
		"feed_reconnects":  b.feed.Reconnects(),
		"thresholds":       b.store.Current(),
	}
}

// OpenPositions returns copies of all open positions
func (b *SniperBot) OpenPositions() []positions.Position {
	return b.manager.OpenPositions()
}

// ClosedPositions returns copies of recently closed positions
func (b *SniperBot) ClosedPositions() []positions.Position {
	return b.manager.ClosedPositions()
}

// RecentSignals returns the most recent accepted signals, oldest first
func (b *SniperBot) RecentSignals() []router.Signal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]router.Signal, len(b.recentSignals))
	copy(out, b.recentSignals)
	return out
}

// CurrentThresholds returns the live threshold set
func (b *SniperBot) CurrentThresholds() *thresholds.ThresholdSet {
	return b.store.Current()
}

// ThresholdHistory returns applied optimizer changes
func (b *SniperBot) ThresholdHistory() []thresholds.Change {
	return b.store.History()
}

// FunnelSnapshot returns the current funnel window counters without reset
func (b *SniperBot) FunnelSnapshot() router.FunnelSnapshot {
	return b.router.Funnel().Snapshot()
}

// BreakerStats returns circuit breaker state and counters
func (b *SniperBot) BreakerStats() map[string]interface{} {
	return b.breaker.Stats()
}

// ResetBreaker manually resets the circuit breaker
func (b *SniperBot) ResetBreaker() {
	b.breaker.ForceReset()
}

// ClosePosition force-exits an open position on operator request
func (b *SniperBot) ClosePosition(ctx context.Context, mint string) error {
	return b.manager.ForceExit(ctx, mint)
}

// AddKOLWallet registers a tracked wallet in the endorsement registry
func (b *SniperBot) AddKOLWallet(wallet, tier string) error {
	kolTier := router.KOLTier(tier)
	switch kolTier {
	case router.KOLTierS, router.KOLTierA, router.KOLTierB, router.KOLTierC:
	default:
		return fmt.Errorf("unknown KOL tier %q", tier)
	}
	b.kols.AddWallet(wallet, kolTier)
	b.logger.Info("KOL wallet registered", "wallet", wallet, "tier", tier)
	return nil
}
