package positions

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"solana-sniper-bot/internal/executor"
	"solana-sniper-bot/internal/logging"
	"solana-sniper-bot/internal/market"
	"solana-sniper-bot/internal/router"
	"solana-sniper-bot/internal/thresholds"
)

// fakeMarket is a price provider and executor in one, so fills always happen
// at the current fake price
type fakeMarket struct {
	mu       sync.Mutex
	price    float64
	priceErr error
	sellErr  error
	holdings map[string]float64
}

func newFakeMarket(price float64) *fakeMarket {
	return &fakeMarket{price: price, holdings: make(map[string]float64)}
}

func (f *fakeMarket) setPrice(p float64) {
	f.mu.Lock()
	f.price = p
	f.mu.Unlock()
}

func (f *fakeMarket) CurrentPrice(ctx context.Context, mint string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.priceErr != nil {
		return 0, f.priceErr
	}
	return f.price, nil
}

func (f *fakeMarket) Name() string { return "fake" }

func (f *fakeMarket) ExecuteBuy(ctx context.Context, mint string, solAmount float64) (*executor.Fill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	quantity := solAmount / f.price
	f.holdings[mint] += quantity
	return &executor.Fill{
		Mint: mint, Side: "buy", Price: f.price,
		Quantity: quantity, SolAmount: solAmount,
		Venue: "fake", ExecutedAt: time.Now(),
	}, nil
}

func (f *fakeMarket) ExecuteSell(ctx context.Context, mint string, percent float64) (*executor.Fill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sellErr != nil {
		return nil, f.sellErr
	}
	quantity := f.holdings[mint] * percent / 100
	f.holdings[mint] -= quantity
	return &executor.Fill{
		Mint: mint, Side: "sell", Price: f.price,
		Quantity: quantity, SolAmount: quantity * f.price,
		Venue: "fake", ExecutedAt: time.Now(),
	}, nil
}

type fakeFlow struct{ flow market.OrderFlow }

func (f fakeFlow) RecentFlow(mint string) market.OrderFlow { return f.flow }

type recordingStateStore struct {
	mu      sync.Mutex
	saves   int
	deletes []string
}

func (r *recordingStateStore) SavePosition(ctx context.Context, p *Position) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	return nil
}

func (r *recordingStateStore) DeletePosition(ctx context.Context, mint string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletes = append(r.deletes, mint)
	return nil
}

type recordingOutcomes struct {
	mu       sync.Mutex
	outcomes []thresholds.Outcome
}

func (r *recordingOutcomes) RecordOutcome(o thresholds.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
}

func testSignal() *router.Signal {
	return &router.Signal{
		ID:              "sig-1",
		Mint:            "mint-a",
		Symbol:          "TEST",
		Track:           router.TrackProvenRunner,
		Tier:            "micro",
		StopLossPercent: -40,
		TakeProfits: []router.TakeProfit{
			{Price: 0.0016, GainPercent: 60, SellPercent: 50},
			{Price: 0.0025, GainPercent: 150, SellPercent: 100},
		},
		MaxHold: 2 * time.Hour,
	}
}

func newTestManager(fake *fakeMarket, state StateStore, outcomes OutcomeSink) *Manager {
	logger := logging.New(&logging.Config{Level: "ERROR", Output: "stdout"})
	return NewManager(fake, fakeFlow{}, fake, DefaultExitConfig(), state, outcomes, nil, nil, logger)
}

func TestManagerLifecycleTP1ThenTP2(t *testing.T) {
	fake := newFakeMarket(0.001)
	state := &recordingStateStore{}
	outcomes := &recordingOutcomes{}
	m := newTestManager(fake, state, outcomes)
	ctx := context.Background()

	p, err := m.Open(ctx, testSignal(), 1.0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !m.HasOpenPosition("mint-a") {
		t.Fatal("position not tracked after open")
	}
	if p.Quantity != 1000 {
		t.Fatalf("quantity = %.0f, want 1000", p.Quantity)
	}

	// Price reaches TP1: partial exit, position stays open
	fake.setPrice(0.0016)
	m.PollAll(ctx)

	open := m.OpenPositions()
	if len(open) != 1 {
		t.Fatalf("open positions = %d after TP1, want 1", len(open))
	}
	if !open[0].TakeProfit1.Hit {
		t.Error("TP1 hit flag not set")
	}
	if open[0].TakeProfit2.Hit {
		t.Error("TP2 hit flag set prematurely")
	}
	if open[0].Quantity != 500 {
		t.Errorf("quantity = %.0f after 50%% sell, want 500", open[0].Quantity)
	}

	// Price reaches TP2: remainder sold, position closed
	fake.setPrice(0.0026)
	m.PollAll(ctx)

	if m.HasOpenPosition("mint-a") {
		t.Fatal("position still open after TP2")
	}
	closed := m.ClosedPositions()
	if len(closed) != 1 {
		t.Fatalf("closed positions = %d, want 1", len(closed))
	}
	if closed[0].ExitReason != ReasonTakeProfit2 {
		t.Errorf("exit reason = %s, want TAKE_PROFIT_2", closed[0].ExitReason)
	}

	outcomes.mu.Lock()
	defer outcomes.mu.Unlock()
	if len(outcomes.outcomes) != 1 {
		t.Fatalf("recorded outcomes = %d, want 1", len(outcomes.outcomes))
	}
	// 0.8 SOL at TP1 plus 1.3 SOL at TP2 against 1.0 SOL in
	if !outcomes.outcomes[0].Won {
		t.Error("outcome should be a win")
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	if len(state.deletes) != 1 || state.deletes[0] != "mint-a" {
		t.Errorf("state deletes = %v, want [mint-a]", state.deletes)
	}
}

func TestManagerStopLossRecordsLoss(t *testing.T) {
	fake := newFakeMarket(0.001)
	outcomes := &recordingOutcomes{}
	m := newTestManager(fake, nil, outcomes)
	ctx := context.Background()

	if _, err := m.Open(ctx, testSignal(), 1.0); err != nil {
		t.Fatalf("Open: %v", err)
	}

	fake.setPrice(0.00059) // -41%
	m.PollAll(ctx)

	if m.HasOpenPosition("mint-a") {
		t.Fatal("position still open after stop loss")
	}
	closed := m.ClosedPositions()
	if closed[0].ExitReason != ReasonStopLoss {
		t.Errorf("exit reason = %s, want STOP_LOSS", closed[0].ExitReason)
	}

	outcomes.mu.Lock()
	defer outcomes.mu.Unlock()
	if len(outcomes.outcomes) != 1 || outcomes.outcomes[0].Won {
		t.Errorf("expected one losing outcome, got %+v", outcomes.outcomes)
	}
}

func TestManagerPriceFailureSkipsPollOnly(t *testing.T) {
	fake := newFakeMarket(0.001)
	m := newTestManager(fake, nil, nil)
	ctx := context.Background()

	if _, err := m.Open(ctx, testSignal(), 1.0); err != nil {
		t.Fatalf("Open: %v", err)
	}

	fake.mu.Lock()
	fake.priceErr = errors.New("rpc unavailable")
	fake.mu.Unlock()
	m.PollAll(ctx)

	if !m.HasOpenPosition("mint-a") {
		t.Fatal("a missed poll must never close the position")
	}

	// Recovery: next poll works again
	fake.mu.Lock()
	fake.priceErr = nil
	fake.price = 0.00059
	fake.mu.Unlock()
	m.PollAll(ctx)

	if m.HasOpenPosition("mint-a") {
		t.Error("position should close once polling recovers past the stop")
	}
}

func TestManagerSellFailureRetriesNextPoll(t *testing.T) {
	fake := newFakeMarket(0.001)
	m := newTestManager(fake, nil, nil)
	ctx := context.Background()

	if _, err := m.Open(ctx, testSignal(), 1.0); err != nil {
		t.Fatalf("Open: %v", err)
	}

	fake.mu.Lock()
	fake.sellErr = errors.New("both venues failed")
	fake.price = 0.00059
	fake.mu.Unlock()
	m.PollAll(ctx)

	if !m.HasOpenPosition("mint-a") {
		t.Fatal("failed sell must leave the position open for retry")
	}

	fake.mu.Lock()
	fake.sellErr = nil
	fake.mu.Unlock()
	m.PollAll(ctx)

	if m.HasOpenPosition("mint-a") {
		t.Error("position should close once the sell succeeds")
	}
}

func TestManagerRejectsDuplicateOpen(t *testing.T) {
	fake := newFakeMarket(0.001)
	m := newTestManager(fake, nil, nil)
	ctx := context.Background()

	if _, err := m.Open(ctx, testSignal(), 1.0); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := m.Open(ctx, testSignal(), 1.0); err == nil {
		t.Fatal("second open for the same mint must fail")
	}
}

func TestManagerRestore(t *testing.T) {
	fake := newFakeMarket(0.001)
	m := newTestManager(fake, nil, nil)

	p := newTestPosition()
	if err := m.Restore(p); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if !m.HasOpenPosition(p.Mint) {
		t.Error("restored position not tracked")
	}

	closed := newTestPosition()
	closed.Mint = "mint-b"
	closed.Status = StatusClosed
	if err := m.Restore(closed); err == nil {
		t.Error("restoring a closed position must fail")
	}
}

func TestManagerForceExit(t *testing.T) {
	fake := newFakeMarket(0.001)
	outcomes := &recordingOutcomes{}
	m := newTestManager(fake, nil, outcomes)
	ctx := context.Background()

	if _, err := m.Open(ctx, testSignal(), 1.0); err != nil {
		t.Fatalf("Open: %v", err)
	}

	fake.setPrice(0.0012)
	if err := m.ForceExit(ctx, "mint-a"); err != nil {
		t.Fatalf("ForceExit: %v", err)
	}

	if m.HasOpenPosition("mint-a") {
		t.Fatal("position still open after forced exit")
	}
	closed := m.ClosedPositions()
	if len(closed) != 1 || closed[0].ExitReason != ReasonManualClose {
		t.Errorf("closed = %+v, want one MANUAL_CLOSE exit", closed)
	}

	outcomes.mu.Lock()
	defer outcomes.mu.Unlock()
	if len(outcomes.outcomes) != 1 || !outcomes.outcomes[0].Won {
		t.Errorf("expected one winning outcome, got %+v", outcomes.outcomes)
	}
}

func TestManagerForceExitUnknownMint(t *testing.T) {
	fake := newFakeMarket(0.001)
	m := newTestManager(fake, nil, nil)

	if err := m.ForceExit(context.Background(), "missing"); err == nil {
		t.Error("forced exit of an untracked mint must fail")
	}
}
