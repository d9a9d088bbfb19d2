package positions

import (
	"time"
)

// Status is the position lifecycle state. CLOSED is terminal.
type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusClosed Status = "CLOSED"
)

// TakeProfitLevel is one profit target on a position
type TakeProfitLevel struct {
	Price       float64    `json:"price"`
	GainPercent float64    `json:"gain_percent"`
	SellPercent float64    `json:"sell_percent"`
	Hit         bool       `json:"hit"`
	HitAt       *time.Time `json:"hit_at,omitempty"`
}

// Position is one open or closed trade. The peak price is a first-class
// monotonic field, not a side cache, so it can never desynchronize from the
// record. The effective stop loss only ever tightens.
type Position struct {
	ID              string  `json:"id"`
	SignalID        string  `json:"signal_id"`
	Mint            string  `json:"mint"`
	Symbol          string  `json:"symbol"`
	Track           string  `json:"track"`
	Tier            string  `json:"tier"`
	Status          Status  `json:"status"`
	EntryPrice      float64 `json:"entry_price"`
	CurrentPrice    float64 `json:"current_price"`
	PeakPrice       float64 `json:"peak_price"`
	Quantity        float64 `json:"quantity"`
	InitialQuantity float64 `json:"initial_quantity"`
	EntrySOLAmount  float64 `json:"entry_sol_amount"`
	RealizedSOL     float64 `json:"realized_sol"`

	StopLossPercent          float64 `json:"stop_loss_percent"`           // as set at entry, negative
	EffectiveStopLossPercent float64 `json:"effective_stop_loss_percent"` // may tighten, never loosen

	TakeProfit1 TakeProfitLevel `json:"take_profit_1"`
	TakeProfit2 TakeProfitLevel `json:"take_profit_2"`

	// Factor values observed at entry, keyed the way the threshold
	// optimizer expects them
	EntryFactors map[string]float64 `json:"entry_factors,omitempty"`

	MaxHold   time.Duration `json:"max_hold"`
	EnteredAt time.Time     `json:"entered_at"`
	ClosedAt  *time.Time    `json:"closed_at,omitempty"`
	ExitReason string       `json:"exit_reason,omitempty"`
}

// UpdatePrice sets the current price and advances the peak high-water mark
func (p *Position) UpdatePrice(price float64) {
	p.CurrentPrice = price
	if price > p.PeakPrice {
		p.PeakPrice = price
	}
}

// PnlPercent is the unrealized gain on the current price
func (p *Position) PnlPercent() float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	return (p.CurrentPrice - p.EntryPrice) / p.EntryPrice * 100
}

// PeakPnlPercent is the best gain the position has seen
func (p *Position) PeakPnlPercent() float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	return (p.PeakPrice - p.EntryPrice) / p.EntryPrice * 100
}

// HoldTime is the time since entry
func (p *Position) HoldTime(now time.Time) time.Duration {
	return now.Sub(p.EnteredAt)
}

// TightenStopLoss raises the effective stop loss if and only if the new value
// is tighter. A looser value is ignored.
func (p *Position) TightenStopLoss(percent float64) bool {
	if percent <= p.EffectiveStopLossPercent {
		return false
	}
	p.EffectiveStopLossPercent = percent
	return true
}

// ApplySellFill reduces quantity after a sell. fullExit closes the position.
func (p *Position) ApplySellFill(quantity, price, solReceived float64, fullExit bool, reason string, at time.Time) {
	p.RealizedSOL += solReceived
	if fullExit || quantity >= p.Quantity {
		p.Quantity = 0
		p.Status = StatusClosed
		p.ClosedAt = &at
		p.ExitReason = reason
		return
	}
	p.Quantity -= quantity
}

// MarkTP1Hit flags take-profit 1 as fired
func (p *Position) MarkTP1Hit(at time.Time) {
	p.TakeProfit1.Hit = true
	p.TakeProfit1.HitAt = &at
}

// MarkTP2Hit flags take-profit 2 as fired. It requires TP1 to have fired
// first; the evaluator never emits TP2 before TP1.
func (p *Position) MarkTP2Hit(at time.Time) {
	if !p.TakeProfit1.Hit {
		return
	}
	p.TakeProfit2.Hit = true
	p.TakeProfit2.HitAt = &at
}

// RealizedPnlSOL is the net SOL result so far, counting the remaining
// quantity at the current price
func (p *Position) RealizedPnlSOL() float64 {
	unrealized := p.Quantity * p.CurrentPrice
	return p.RealizedSOL + unrealized - p.EntrySOLAmount
}
