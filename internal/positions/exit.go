package positions

import (
	"fmt"
	"time"

	"solana-sniper-bot/internal/market"
)

// Action is what the evaluator wants done with the position
type Action string

const (
	ActionHold        Action = "HOLD"
	ActionSellPartial Action = "SELL_PARTIAL"
	ActionSellAll     Action = "SELL_ALL"
)

// Exit reasons, in evaluation priority order
const (
	ReasonStopLoss     = "STOP_LOSS"
	ReasonTrailingStop = "TRAILING_STOP"
	ReasonMomentumFade = "MOMENTUM_FADE"
	ReasonTakeProfit2  = "TAKE_PROFIT_2"
	ReasonTakeProfit1  = "TAKE_PROFIT_1"
	ReasonMaxHold      = "MAX_HOLD"

	// ReasonManualClose marks an operator-forced exit, outside the state machine
	ReasonManualClose = "MANUAL_CLOSE"
)

// ExitDecision is the outcome of one poll evaluation
type ExitDecision struct {
	Action      Action  `json:"action"`
	Reason      string  `json:"reason,omitempty"`
	SellPercent float64 `json:"sell_percent,omitempty"`
	Detail      string  `json:"detail,omitempty"`
}

// ExitConfig tunes the exit state machine
type ExitConfig struct {
	// Trailing stop arms once peak pnl exceeds the activation; a retrace of
	// more than the fraction of the peak gain then forces a full exit
	TrailingActivationPercent float64 `json:"trailing_activation_percent"`
	TrailingRetraceFraction   float64 `json:"trailing_retrace_fraction"`

	// Momentum fade takes a partial exit while still profitable
	FadeMinPnlPercent   float64 `json:"fade_min_pnl_percent"`
	FadeSellPercent     float64 `json:"fade_sell_percent"`
	FadeSellBuyRatio    float64 `json:"fade_sell_buy_ratio"`
	FadeMinTrades       int     `json:"fade_min_trades"`

	// Stop-loss time decay: once held past the fraction of max-hold while
	// underwater past the trigger, the stop tightens to the decayed value
	DecayAfterFractionOfMaxHold float64 `json:"decay_after_fraction_of_max_hold"`
	DecayUnderwaterPercent      float64 `json:"decay_underwater_percent"` // negative
	DecayStopLossPercent        float64 `json:"decay_stop_loss_percent"`  // negative, tighter than entry stops
}

// DefaultExitConfig returns the default exit parameters
func DefaultExitConfig() *ExitConfig {
	return &ExitConfig{
		TrailingActivationPercent:   40,
		TrailingRetraceFraction:     0.25,
		FadeMinPnlPercent:           10,
		FadeSellPercent:             50,
		FadeSellBuyRatio:            2.0,
		FadeMinTrades:               8,
		DecayAfterFractionOfMaxHold: 0.5,
		DecayUnderwaterPercent:      -15,
		DecayStopLossPercent:        -20,
	}
}

// maybeTightenStop applies the time-decay rule. The stop only ever tightens.
func maybeTightenStop(p *Position, cfg *ExitConfig, now time.Time) {
	if p.MaxHold <= 0 {
		return
	}
	decayAfter := time.Duration(float64(p.MaxHold) * cfg.DecayAfterFractionOfMaxHold)
	if p.HoldTime(now) < decayAfter {
		return
	}
	if p.PnlPercent() > cfg.DecayUnderwaterPercent {
		return
	}
	p.TightenStopLoss(cfg.DecayStopLossPercent)
}

// EvaluateExit runs the exit conditions in strict priority order and returns
// the first match. Stop loss dominates everything; the trailing stop
// dominates momentum fade and profit taking once armed. The function mutates
// only the effective stop loss (time decay), never quantities or hit flags.
func EvaluateExit(p *Position, flow market.OrderFlow, cfg *ExitConfig, now time.Time) ExitDecision {
	maybeTightenStop(p, cfg, now)

	pnl := p.PnlPercent()
	peakPnl := p.PeakPnlPercent()

	// a. Stop loss: always a full exit
	if pnl <= p.EffectiveStopLossPercent {
		return ExitDecision{
			Action:      ActionSellAll,
			Reason:      ReasonStopLoss,
			SellPercent: 100,
			Detail:      fmt.Sprintf("pnl %.1f%% breached stop %.1f%%", pnl, p.EffectiveStopLossPercent),
		}
	}

	// b. Trailing stop: armed once the position has been meaningfully
	// profitable, fires on a deep retrace from the peak
	if peakPnl >= cfg.TrailingActivationPercent && peakPnl > 0 {
		retrace := (peakPnl - pnl) / peakPnl
		if retrace >= cfg.TrailingRetraceFraction {
			return ExitDecision{
				Action:      ActionSellAll,
				Reason:      ReasonTrailingStop,
				SellPercent: 100,
				Detail:      fmt.Sprintf("retraced %.0f%% of peak gain %.1f%%", retrace*100, peakPnl),
			}
		}
	}

	// c. Momentum fade: partial exit while still in profit, before TP1
	if pnl >= cfg.FadeMinPnlPercent && !p.TakeProfit1.Hit && flow.Trades >= cfg.FadeMinTrades {
		if flow.SellVolumeSOL > flow.BuyVolumeSOL*cfg.FadeSellBuyRatio {
			return ExitDecision{
				Action:      ActionSellPartial,
				Reason:      ReasonMomentumFade,
				SellPercent: cfg.FadeSellPercent,
				Detail:      fmt.Sprintf("sell flow %.2f SOL vs buy flow %.2f SOL", flow.SellVolumeSOL, flow.BuyVolumeSOL),
			}
		}
	}

	// d. Take profit 2: only reachable after TP1
	if p.TakeProfit1.Hit && !p.TakeProfit2.Hit && p.CurrentPrice >= p.TakeProfit2.Price {
		return ExitDecision{
			Action:      ActionSellAll,
			Reason:      ReasonTakeProfit2,
			SellPercent: 100,
			Detail:      fmt.Sprintf("price %.9f reached TP2 %.9f", p.CurrentPrice, p.TakeProfit2.Price),
		}
	}

	// e. Take profit 1: partial exit at the tier's configured fraction
	if !p.TakeProfit1.Hit && p.CurrentPrice >= p.TakeProfit1.Price {
		return ExitDecision{
			Action:      ActionSellPartial,
			Reason:      ReasonTakeProfit1,
			SellPercent: p.TakeProfit1.SellPercent,
			Detail:      fmt.Sprintf("price %.9f reached TP1 %.9f", p.CurrentPrice, p.TakeProfit1.Price),
		}
	}

	// f. Max hold: stale positions are closed once past their window
	if p.MaxHold > 0 && p.HoldTime(now) >= p.MaxHold {
		return ExitDecision{
			Action:      ActionSellAll,
			Reason:      ReasonMaxHold,
			SellPercent: 100,
			Detail:      fmt.Sprintf("held %.1fh past limit %.1fh", p.HoldTime(now).Hours(), p.MaxHold.Hours()),
		}
	}

	return ExitDecision{Action: ActionHold}
}
