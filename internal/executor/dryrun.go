package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"solana-sniper-bot/internal/logging"
	"solana-sniper-bot/internal/market"
)

// DryRunExecutor simulates fills at the current market price without touching
// the chain. It tracks simulated holdings so sell percentages resolve against
// a real quantity.
type DryRunExecutor struct {
	prices market.PriceProvider
	logger *logging.Logger

	mu       sync.Mutex
	holdings map[string]float64
}

// NewDryRunExecutor creates a paper-trading executor
func NewDryRunExecutor(prices market.PriceProvider, logger *logging.Logger) *DryRunExecutor {
	return &DryRunExecutor{
		prices:   prices,
		logger:   logger.WithComponent("dry-run-executor"),
		holdings: make(map[string]float64),
	}
}

// Name identifies the executor
func (de *DryRunExecutor) Name() string {
	return "dry-run"
}

// ExecuteBuy simulates a buy at the current price
func (de *DryRunExecutor) ExecuteBuy(ctx context.Context, mint string, solAmount float64) (*Fill, error) {
	price, err := de.prices.CurrentPrice(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("dry-run buy for %s: %w", mint, err)
	}
	quantity := solAmount / price

	de.mu.Lock()
	de.holdings[mint] += quantity
	de.mu.Unlock()

	de.logger.Info("Simulated buy",
		"mint", mint, "sol", fmt.Sprintf("%.4f", solAmount), "price", fmt.Sprintf("%.9f", price))

	return &Fill{
		Mint:       mint,
		Side:       "buy",
		Price:      price,
		Quantity:   quantity,
		SolAmount:  solAmount,
		Signature:  "dryrun-" + uuid.New().String(),
		Venue:      de.Name(),
		ExecutedAt: time.Now(),
	}, nil
}

// ExecuteSell simulates selling a percentage of the simulated holding
func (de *DryRunExecutor) ExecuteSell(ctx context.Context, mint string, percent float64) (*Fill, error) {
	if percent <= 0 || percent > 100 {
		return nil, fmt.Errorf("dry-run sell for %s: invalid percent %.1f", mint, percent)
	}

	price, err := de.prices.CurrentPrice(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("dry-run sell for %s: %w", mint, err)
	}

	de.mu.Lock()
	held := de.holdings[mint]
	if held <= 0 {
		de.mu.Unlock()
		return nil, fmt.Errorf("dry-run sell for %s: no simulated holding", mint)
	}
	quantity := held * percent / 100
	if percent >= 100 {
		delete(de.holdings, mint)
	} else {
		de.holdings[mint] = held - quantity
	}
	de.mu.Unlock()

	de.logger.Info("Simulated sell",
		"mint", mint, "percent", fmt.Sprintf("%.0f", percent), "price", fmt.Sprintf("%.9f", price))

	return &Fill{
		Mint:       mint,
		Side:       "sell",
		Price:      price,
		Quantity:   quantity,
		SolAmount:  quantity * price,
		Signature:  "dryrun-" + uuid.New().String(),
		Venue:      de.Name(),
		ExecutedAt: time.Now(),
	}, nil
}
