package executor

import (
	"context"
	"fmt"

	"solana-sniper-bot/internal/logging"
)

// FallbackExecutor tries the primary venue first and falls back to the
// secondary on failure. If both fail, the combined error is surfaced and no
// fill is reported.
type FallbackExecutor struct {
	primary   Executor
	secondary Executor
	logger    *logging.Logger
}

// NewFallbackExecutor wraps two executors
func NewFallbackExecutor(primary, secondary Executor, logger *logging.Logger) *FallbackExecutor {
	return &FallbackExecutor{
		primary:   primary,
		secondary: secondary,
		logger:    logger.WithComponent("executor"),
	}
}

// Name identifies the composite executor
func (fe *FallbackExecutor) Name() string {
	return fmt.Sprintf("%s+%s", fe.primary.Name(), fe.secondary.Name())
}

// ExecuteBuy tries the primary, then the secondary
func (fe *FallbackExecutor) ExecuteBuy(ctx context.Context, mint string, solAmount float64) (*Fill, error) {
	fill, primaryErr := fe.primary.ExecuteBuy(ctx, mint, solAmount)
	if primaryErr == nil {
		return fill, nil
	}
	fe.logger.Warn("Primary buy failed, trying fallback",
		"mint", mint, "venue", fe.primary.Name(), "error", primaryErr.Error())

	fill, secondaryErr := fe.secondary.ExecuteBuy(ctx, mint, solAmount)
	if secondaryErr == nil {
		return fill, nil
	}
	return nil, fmt.Errorf("buy failed on both venues: %s: %v; %s: %v",
		fe.primary.Name(), primaryErr, fe.secondary.Name(), secondaryErr)
}

// ExecuteSell tries the primary, then the secondary
func (fe *FallbackExecutor) ExecuteSell(ctx context.Context, mint string, percent float64) (*Fill, error) {
	fill, primaryErr := fe.primary.ExecuteSell(ctx, mint, percent)
	if primaryErr == nil {
		return fill, nil
	}
	fe.logger.Warn("Primary sell failed, trying fallback",
		"mint", mint, "venue", fe.primary.Name(), "error", primaryErr.Error())

	fill, secondaryErr := fe.secondary.ExecuteSell(ctx, mint, percent)
	if secondaryErr == nil {
		return fill, nil
	}
	return nil, fmt.Errorf("sell failed on both venues: %s: %v; %s: %v",
		fe.primary.Name(), primaryErr, fe.secondary.Name(), secondaryErr)
}
