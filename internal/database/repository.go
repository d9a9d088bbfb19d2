package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"solana-sniper-bot/internal/positions"
	"solana-sniper-bot/internal/router"
	"solana-sniper-bot/internal/thresholds"
)

// Repository provides data access methods
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// HealthCheck performs a database health check
func (r *Repository) HealthCheck(ctx context.Context) error {
	return r.db.Pool.Ping(ctx)
}

// ============================================================================
// SIGNALS
// ============================================================================

// SaveSignal inserts an accepted signal record
func (r *Repository) SaveSignal(ctx context.Context, s *router.Signal) error {
	var winProbability float64
	if s.Prediction != nil {
		winProbability = s.Prediction.Probability
	}
	var totalScore float64
	if s.Score != nil {
		totalScore = s.Score.Total
	}

	query := `
		INSERT INTO signals (id, mint, symbol, track, signal_type, tier,
			entry_price_low, entry_price_high, stop_loss_price, stop_loss_percent,
			total_score, win_probability, position_size_percent, generated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := r.db.Pool.Exec(ctx, query,
		s.ID, s.Mint, s.Symbol, string(s.Track), string(s.Type), s.Tier,
		s.EntryPriceLow, s.EntryPriceHigh, s.StopLossPrice, s.StopLossPercent,
		totalScore, winProbability, s.PositionSizePercent, s.GeneratedAt, s.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("saving signal %s: %w", s.ID, err)
	}
	return nil
}

// CountSignalsSince counts signals generated after the cutoff
func (r *Repository) CountSignalsSince(ctx context.Context, cutoff time.Time) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM signals WHERE generated_at >= $1`, cutoff).Scan(&count)
	return count, err
}

// ============================================================================
// POSITIONS
// ============================================================================

// SavePosition inserts or updates a position record
func (r *Repository) SavePosition(ctx context.Context, p *positions.Position) error {
	factors, err := json.Marshal(p.EntryFactors)
	if err != nil {
		return fmt.Errorf("marshaling entry factors: %w", err)
	}

	query := `
		INSERT INTO positions (id, signal_id, mint, symbol, track, tier, status,
			entry_price, peak_price, quantity, initial_quantity, entry_sol_amount,
			realized_sol, stop_loss_percent, effective_stop_loss_percent,
			tp1_hit, tp2_hit, entry_factors, exit_reason, entered_at, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			peak_price = EXCLUDED.peak_price,
			quantity = EXCLUDED.quantity,
			realized_sol = EXCLUDED.realized_sol,
			effective_stop_loss_percent = EXCLUDED.effective_stop_loss_percent,
			tp1_hit = EXCLUDED.tp1_hit,
			tp2_hit = EXCLUDED.tp2_hit,
			exit_reason = EXCLUDED.exit_reason,
			closed_at = EXCLUDED.closed_at,
			updated_at = CURRENT_TIMESTAMP
	`
	_, err = r.db.Pool.Exec(ctx, query,
		p.ID, nullIfEmpty(p.SignalID), p.Mint, p.Symbol, p.Track, p.Tier, string(p.Status),
		p.EntryPrice, p.PeakPrice, p.Quantity, p.InitialQuantity, p.EntrySOLAmount,
		p.RealizedSOL, p.StopLossPercent, p.EffectiveStopLossPercent,
		p.TakeProfit1.Hit, p.TakeProfit2.Hit, factors, nullIfEmpty(p.ExitReason),
		p.EnteredAt, p.ClosedAt,
	)
	if err != nil {
		return fmt.Errorf("saving position %s: %w", p.ID, err)
	}
	return nil
}

// CompletedOutcomes loads closed positions as optimizer outcomes, most
// recent first
func (r *Repository) CompletedOutcomes(ctx context.Context, limit int) ([]thresholds.Outcome, error) {
	query := `
		SELECT mint, realized_sol, entry_sol_amount, entry_factors, closed_at
		FROM positions
		WHERE status = 'CLOSED' AND closed_at IS NOT NULL
		ORDER BY closed_at DESC
		LIMIT $1
	`
	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("loading completed outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []thresholds.Outcome
	for rows.Next() {
		var (
			mint        string
			realized    float64
			entrySOL    float64
			factorsJSON []byte
			closedAt    time.Time
		)
		if err := rows.Scan(&mint, &realized, &entrySOL, &factorsJSON, &closedAt); err != nil {
			return nil, fmt.Errorf("scanning outcome row: %w", err)
		}

		outcome := thresholds.Outcome{
			Mint:        mint,
			Won:         realized > entrySOL,
			PnlSOL:      realized - entrySOL,
			CompletedAt: closedAt,
		}
		if entrySOL > 0 {
			outcome.PnlPercent = (realized - entrySOL) / entrySOL * 100
		}
		if len(factorsJSON) > 0 {
			if err := json.Unmarshal(factorsJSON, &outcome.Factors); err != nil {
				return nil, fmt.Errorf("unmarshaling factors for %s: %w", mint, err)
			}
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, rows.Err()
}

// ============================================================================
// THRESHOLD HISTORY
// ============================================================================

// SaveThresholdChange appends one applied change to the history table
func (r *Repository) SaveThresholdChange(ctx context.Context, c thresholds.Change) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO threshold_changes (factor, old_value, new_value, reason, applied_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		c.Factor, c.OldValue, c.NewValue, c.Reason, c.AppliedAt,
	)
	if err != nil {
		return fmt.Errorf("saving threshold change for %s: %w", c.Factor, err)
	}
	return nil
}

// ThresholdHistory loads applied changes, oldest first
func (r *Repository) ThresholdHistory(ctx context.Context, limit int) ([]thresholds.Change, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT factor, old_value, new_value, reason, applied_at
		 FROM threshold_changes ORDER BY applied_at ASC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("loading threshold history: %w", err)
	}
	defer rows.Close()

	var changes []thresholds.Change
	for rows.Next() {
		var c thresholds.Change
		if err := rows.Scan(&c.Factor, &c.OldValue, &c.NewValue, &c.Reason, &c.AppliedAt); err != nil {
			return nil, fmt.Errorf("scanning threshold change: %w", err)
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

// ============================================================================
// FUNNEL CYCLES
// ============================================================================

// SaveFunnelCycle persists one completed funnel window
func (r *Repository) SaveFunnelCycle(ctx context.Context, snapshot router.FunnelSnapshot) error {
	byStage, err := json.Marshal(snapshot.RejectedByStage)
	if err != nil {
		return fmt.Errorf("marshaling funnel stages: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx,
		`INSERT INTO funnel_cycles (candidates_seen, rejected_by_stage, signals_emitted, window_started_at, window_ended_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		snapshot.CandidatesSeen, byStage, snapshot.SignalsEmitted,
		snapshot.WindowStartedAt, snapshot.SnapshotTakenAt,
	)
	if err != nil {
		return fmt.Errorf("saving funnel cycle: %w", err)
	}
	return nil
}

// nullIfEmpty maps "" to NULL for nullable text columns
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
