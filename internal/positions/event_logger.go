package positions

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"solana-sniper-bot/internal/executor"
)

// EventLogger writes an append-only JSON stream of position lifecycle events
// for later analysis and replay. It is separate from the operational logger:
// these records feed the learning pipeline, not humans tailing output.
type EventLogger struct {
	log    zerolog.Logger
	closer io.Closer
}

// NewEventLogger creates an event logger writing to the given sink
func NewEventLogger(w io.Writer) *EventLogger {
	return &EventLogger{
		log: zerolog.New(w).With().Timestamp().Logger(),
	}
}

// NewFileEventLogger opens or creates the event log file in append mode
func NewFileEventLogger(path string) (*EventLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	el := NewEventLogger(f)
	el.closer = f
	return el, nil
}

// Close releases the underlying file, if any
func (el *EventLogger) Close() error {
	if el.closer != nil {
		return el.closer.Close()
	}
	return nil
}

// PositionOpened records an entry fill
func (el *EventLogger) PositionOpened(p *Position, fill *executor.Fill) {
	el.log.Info().
		Str("event", "position_opened").
		Str("position_id", p.ID).
		Str("mint", p.Mint).
		Str("symbol", p.Symbol).
		Str("track", p.Track).
		Str("tier", p.Tier).
		Float64("entry_price", p.EntryPrice).
		Float64("quantity", p.Quantity).
		Float64("sol_amount", p.EntrySOLAmount).
		Str("venue", fill.Venue).
		Str("signature", fill.Signature).
		Msg("opened")
}

// SellExecuted records a partial or full exit fill
func (el *EventLogger) SellExecuted(p *Position, decision ExitDecision, fill *executor.Fill) {
	el.log.Info().
		Str("event", "sell_executed").
		Str("position_id", p.ID).
		Str("mint", p.Mint).
		Str("reason", decision.Reason).
		Str("action", string(decision.Action)).
		Float64("sell_percent", decision.SellPercent).
		Float64("fill_price", fill.Price).
		Float64("pnl_percent", p.PnlPercent()).
		Float64("peak_pnl_percent", p.PeakPnlPercent()).
		Str("detail", decision.Detail).
		Str("venue", fill.Venue).
		Str("signature", fill.Signature).
		Msg("sell")
}

// PositionClosed records the terminal transition with final numbers
func (el *EventLogger) PositionClosed(p *Position) {
	closedAt := time.Time{}
	if p.ClosedAt != nil {
		closedAt = *p.ClosedAt
	}
	el.log.Info().
		Str("event", "position_closed").
		Str("position_id", p.ID).
		Str("mint", p.Mint).
		Str("exit_reason", p.ExitReason).
		Float64("realized_sol", p.RealizedSOL).
		Float64("entry_sol", p.EntrySOLAmount).
		Float64("pnl_sol", p.RealizedSOL-p.EntrySOLAmount).
		Dur("hold_time", closedAt.Sub(p.EnteredAt)).
		Msg("closed")
}

// PollSkipped records a poll that failed to fetch a price
func (el *EventLogger) PollSkipped(mint string, err error) {
	el.log.Warn().
		Str("event", "poll_skipped").
		Str("mint", mint).
		Err(err).
		Msg("skipped")
}
