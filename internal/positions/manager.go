package positions

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"solana-sniper-bot/internal/executor"
	"solana-sniper-bot/internal/logging"
	"solana-sniper-bot/internal/market"
	"solana-sniper-bot/internal/router"
	"solana-sniper-bot/internal/thresholds"
)

// StateStore persists position snapshots so an operator restart can recover
// open positions
type StateStore interface {
	SavePosition(ctx context.Context, p *Position) error
	DeletePosition(ctx context.Context, mint string) error
}

// OutcomeSink receives completed outcomes for threshold learning
type OutcomeSink interface {
	RecordOutcome(outcome thresholds.Outcome)
}

// Notifier receives lifecycle notifications. Fire and forget.
type Notifier interface {
	PositionOpened(p *Position)
	PositionExited(p *Position, reason string, sellPercent float64)
}

// Manager owns all open positions and their exit state machines. It is the
// only component allowed to mutate a Position; everything else reads copies.
type Manager struct {
	mu        sync.RWMutex
	positions map[string]*Position
	closed    []*Position // most recent last, bounded

	prices   market.PriceProvider
	flow     market.FlowProvider
	executor executor.Executor
	config   *ExitConfig
	state    StateStore
	outcomes OutcomeSink
	notifier Notifier
	events   *EventLogger
	logger   *logging.Logger

	maxClosedKept int
}

// NewManager wires the position manager. state, outcomes, notifier and
// events may all be nil.
func NewManager(
	prices market.PriceProvider,
	flow market.FlowProvider,
	exec executor.Executor,
	config *ExitConfig,
	state StateStore,
	outcomes OutcomeSink,
	notifier Notifier,
	events *EventLogger,
	logger *logging.Logger,
) *Manager {
	if config == nil {
		config = DefaultExitConfig()
	}
	return &Manager{
		positions:     make(map[string]*Position),
		prices:        prices,
		flow:          flow,
		executor:      exec,
		config:        config,
		state:         state,
		outcomes:      outcomes,
		notifier:      notifier,
		events:        events,
		logger:        logger.WithComponent("position-manager"),
		maxClosedKept: 200,
	}
}

// SetOutcomeSink installs the completed-outcome consumer. Call before Start;
// the sink is read without a lock on the exit path.
func (m *Manager) SetOutcomeSink(sink OutcomeSink) {
	m.outcomes = sink
}

// HasOpenPosition implements router.OpenPositionChecker
func (m *Manager) HasOpenPosition(mint string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.positions[mint]
	return ok
}

// Open executes the buy for an accepted signal and starts tracking the
// position. solAmount is the capital allocation resolved from the signal's
// size percent. Failure on both execution venues returns the error and
// creates no position record.
func (m *Manager) Open(ctx context.Context, signal *router.Signal, solAmount float64) (*Position, error) {
	m.mu.RLock()
	_, exists := m.positions[signal.Mint]
	m.mu.RUnlock()
	if exists {
		return nil, fmt.Errorf("position already open for %s", signal.Mint)
	}

	fill, err := m.executor.ExecuteBuy(ctx, signal.Mint, solAmount)
	if err != nil {
		return nil, fmt.Errorf("opening position for %s: %w", signal.Mint, err)
	}

	now := time.Now()
	p := &Position{
		ID:              uuid.New().String(),
		SignalID:        signal.ID,
		Mint:            signal.Mint,
		Symbol:          signal.Symbol,
		Track:           string(signal.Track),
		Tier:            signal.Tier,
		Status:          StatusOpen,
		EntryPrice:      fill.Price,
		CurrentPrice:    fill.Price,
		PeakPrice:       fill.Price,
		Quantity:        fill.Quantity,
		InitialQuantity: fill.Quantity,
		EntrySOLAmount:  fill.SolAmount,

		StopLossPercent:          signal.StopLossPercent,
		EffectiveStopLossPercent: signal.StopLossPercent,

		MaxHold:   signal.MaxHold,
		EnteredAt: now,
	}
	if signal.Score != nil {
		p.EntryFactors = map[string]float64{
			"momentum":      signal.Score.Momentum,
			"total_score":   signal.Score.Total,
			"safety":        signal.Score.Safety,
			"bundle_risk":   100 - signal.Score.BundleSafety,
			"liquidity_sol": signal.LiquiditySOL,
			"top10_percent": signal.Top10HolderPercent,
		}
	}
	if len(signal.TakeProfits) > 0 {
		tp := signal.TakeProfits[0]
		p.TakeProfit1 = TakeProfitLevel{Price: tp.Price, GainPercent: tp.GainPercent, SellPercent: tp.SellPercent}
	}
	if len(signal.TakeProfits) > 1 {
		tp := signal.TakeProfits[1]
		p.TakeProfit2 = TakeProfitLevel{Price: tp.Price, GainPercent: tp.GainPercent, SellPercent: tp.SellPercent}
	}

	m.mu.Lock()
	m.positions[p.Mint] = p
	m.mu.Unlock()

	m.persist(ctx, p)
	if m.events != nil {
		m.events.PositionOpened(p, fill)
	}
	if m.notifier != nil {
		m.notifier.PositionOpened(p)
	}
	m.logger.Info("Position opened",
		"mint", p.Mint, "symbol", p.Symbol, "tier", p.Tier,
		"entry", fmt.Sprintf("%.9f", p.EntryPrice),
		"sol", fmt.Sprintf("%.4f", p.EntrySOLAmount))
	return p, nil
}

// PollAll evaluates every open position once, sequentially. A price-fetch
// failure skips that position for this poll only.
func (m *Manager) PollAll(ctx context.Context) {
	m.mu.RLock()
	mints := make([]string, 0, len(m.positions))
	for mint := range m.positions {
		mints = append(mints, mint)
	}
	m.mu.RUnlock()

	for _, mint := range mints {
		if ctx.Err() != nil {
			return
		}
		m.pollOne(ctx, mint)
	}
}

// pollOne runs one exit evaluation for one position
func (m *Manager) pollOne(ctx context.Context, mint string) {
	m.mu.RLock()
	p, ok := m.positions[mint]
	m.mu.RUnlock()
	if !ok {
		return
	}

	price, err := m.prices.CurrentPrice(ctx, mint)
	if err != nil {
		m.logger.Warn("Price fetch failed, skipping poll", "mint", mint, "error", err.Error())
		if m.events != nil {
			m.events.PollSkipped(mint, err)
		}
		return
	}

	var flow market.OrderFlow
	if m.flow != nil {
		flow = m.flow.RecentFlow(mint)
	}

	m.mu.Lock()
	p.UpdatePrice(price)
	decision := EvaluateExit(p, flow, m.config, time.Now())
	m.mu.Unlock()

	if decision.Action == ActionHold {
		m.persist(ctx, p)
		return
	}
	m.executeExit(ctx, p, decision)
}

// executeExit submits the sell and applies the fill. A failed sell leaves
// the position open for retry on the next poll.
func (m *Manager) executeExit(ctx context.Context, p *Position, decision ExitDecision) {
	fill, err := m.executor.ExecuteSell(ctx, p.Mint, decision.SellPercent)
	if err != nil {
		m.logger.Error("Sell execution failed, will retry next poll",
			"mint", p.Mint, "reason", decision.Reason, "error", err.Error())
		return
	}

	now := time.Now()
	fullExit := decision.Action == ActionSellAll

	m.mu.Lock()
	switch decision.Reason {
	case ReasonTakeProfit1:
		p.MarkTP1Hit(now)
	case ReasonTakeProfit2:
		p.MarkTP2Hit(now)
	}
	p.ApplySellFill(fill.Quantity, fill.Price, fill.SolAmount, fullExit, decision.Reason, now)
	closed := p.Status == StatusClosed
	if closed {
		delete(m.positions, p.Mint)
		m.closed = append(m.closed, p)
		if len(m.closed) > m.maxClosedKept {
			m.closed = m.closed[len(m.closed)-m.maxClosedKept:]
		}
	}
	m.mu.Unlock()

	if m.events != nil {
		m.events.SellExecuted(p, decision, fill)
	}
	if m.notifier != nil {
		m.notifier.PositionExited(p, decision.Reason, decision.SellPercent)
	}
	m.logger.Info("Exit executed",
		"mint", p.Mint, "reason", decision.Reason,
		"percent", fmt.Sprintf("%.0f", decision.SellPercent),
		"pnl", fmt.Sprintf("%.1f%%", p.PnlPercent()))

	m.persist(ctx, p)
	if closed {
		m.finalize(ctx, p)
	}
}

// finalize releases per-position state and reports the outcome
func (m *Manager) finalize(ctx context.Context, p *Position) {
	if m.state != nil {
		if err := m.state.DeletePosition(ctx, p.Mint); err != nil {
			m.logger.Warn("Failed to delete position snapshot", "mint", p.Mint, "error", err.Error())
		}
	}
	if m.events != nil {
		m.events.PositionClosed(p)
	}
	if m.outcomes != nil {
		m.outcomes.RecordOutcome(thresholds.Outcome{
			Mint:        p.Mint,
			Won:         p.RealizedSOL > p.EntrySOLAmount,
			PnlPercent:  (p.RealizedSOL - p.EntrySOLAmount) / p.EntrySOLAmount * 100,
			PnlSOL:      p.RealizedSOL - p.EntrySOLAmount,
			Factors:     p.EntryFactors,
			CompletedAt: time.Now(),
		})
	}
}

// persist saves a snapshot, logging but never failing on store errors
func (m *Manager) persist(ctx context.Context, p *Position) {
	if m.state == nil {
		return
	}
	m.mu.RLock()
	snapshot := *p
	m.mu.RUnlock()
	if err := m.state.SavePosition(ctx, &snapshot); err != nil {
		m.logger.Warn("Failed to persist position snapshot", "mint", p.Mint, "error", err.Error())
	}
}

// OpenPositions returns copies of all open positions
func (m *Manager) OpenPositions() []Position {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Position, 0, len(m.positions))
	for _, p := range m.positions {
		out = append(out, *p)
	}
	return out
}

// ClosedPositions returns copies of recently closed positions, oldest first
func (m *Manager) ClosedPositions() []Position {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Position, 0, len(m.closed))
	for _, p := range m.closed {
		out = append(out, *p)
	}
	return out
}

// ForceExit sells an entire position on operator request, bypassing the exit
// state machine
func (m *Manager) ForceExit(ctx context.Context, mint string) error {
	m.mu.RLock()
	p, ok := m.positions[mint]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no open position for %s", mint)
	}

	if price, err := m.prices.CurrentPrice(ctx, mint); err == nil {
		m.mu.Lock()
		p.UpdatePrice(price)
		m.mu.Unlock()
	}

	m.executeExit(ctx, p, ExitDecision{
		Action:      ActionSellAll,
		Reason:      ReasonManualClose,
		SellPercent: 100,
		Detail:      "operator close",
	})

	if m.HasOpenPosition(mint) {
		return fmt.Errorf("sell execution failed for %s, position still open", mint)
	}
	return nil
}

// Restore re-registers a position recovered from the state store
func (m *Manager) Restore(p *Position) error {
	if p.Status != StatusOpen {
		return fmt.Errorf("cannot restore %s position %s", p.Status, p.Mint)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.positions[p.Mint]; exists {
		return fmt.Errorf("position already open for %s", p.Mint)
	}
	m.positions[p.Mint] = p
	return nil
}
