package executor

import (
	"context"
	"time"
)

// Fill reports an executed trade
type Fill struct {
	Mint       string    `json:"mint"`
	Side       string    `json:"side"` // "buy" or "sell"
	Price      float64   `json:"price"`
	Quantity   float64   `json:"quantity"`
	SolAmount  float64   `json:"sol_amount"`
	Signature  string    `json:"signature"`
	Venue      string    `json:"venue"`
	ExecutedAt time.Time `json:"executed_at"`
}

// Executor performs swaps. ExecuteSell sells a percentage of the currently
// held quantity; 100 closes the position.
type Executor interface {
	Name() string
	ExecuteBuy(ctx context.Context, mint string, solAmount float64) (*Fill, error)
	ExecuteSell(ctx context.Context, mint string, percent float64) (*Fill, error)
}
