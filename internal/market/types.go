package market

import (
	"context"
	"fmt"
	"time"

	"github.com/mr-tron/base58"
)

// MetricsSnapshot holds point-in-time market data for one token. Snapshots
// are immutable; a fresh fetch replaces the whole value.
type MetricsSnapshot struct {
	Mint               string    `json:"mint"`
	Symbol             string    `json:"symbol"`
	Price              float64   `json:"price"`              // SOL per token
	MarketCapSOL       float64   `json:"market_cap_sol"`
	Volume24hSOL       float64   `json:"volume_24h_sol"`
	LiquiditySOL       float64   `json:"liquidity_sol"`
	HolderCount        int       `json:"holder_count"`
	Top10HolderPercent float64   `json:"top10_holder_percent"`
	AgeMinutes         float64   `json:"age_minutes"` // since first on-chain activity
	FetchedAt          time.Time `json:"fetched_at"`
}

// MetricsProvider fetches a full metrics snapshot for a token
type MetricsProvider interface {
	FetchMetrics(ctx context.Context, mint string) (*MetricsSnapshot, error)
}

// PriceProvider fetches the current price for a token
type PriceProvider interface {
	CurrentPrice(ctx context.Context, mint string) (float64, error)
}

// OrderFlow summarizes recent buy/sell pressure for a token
type OrderFlow struct {
	BuyVolumeSOL  float64       `json:"buy_volume_sol"`
	SellVolumeSOL float64       `json:"sell_volume_sol"`
	Trades        int           `json:"trades"`
	Window        time.Duration `json:"window"`
}

// FlowProvider reports recent order flow for a token. Implementations may
// return a zero-value OrderFlow when no trades were observed.
type FlowProvider interface {
	RecentFlow(mint string) OrderFlow
}

// TokenEvent is a new-token or trade event from the discovery stream
type TokenEvent struct {
	Type          string    `json:"type"` // "create" or "trade"
	Mint          string    `json:"mint"`
	Symbol        string    `json:"symbol"`
	Side          string    `json:"side"` // "buy" or "sell" for trade events
	SolAmount     float64   `json:"sol_amount"`
	PriceSOL      float64   `json:"price_sol"`
	MarketCapSOL  float64   `json:"market_cap_sol"`
	Trader        string    `json:"trader"`
	Timestamp     time.Time `json:"timestamp"`
}

// ValidateMint checks that mint is a plausible Solana address: base58,
// decoding to 32 bytes.
func ValidateMint(mint string) error {
	raw, err := base58.Decode(mint)
	if err != nil {
		return fmt.Errorf("invalid mint address %q: %w", mint, err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("invalid mint address %q: decoded to %d bytes, want 32", mint, len(raw))
	}
	return nil
}
