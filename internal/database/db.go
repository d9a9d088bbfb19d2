package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps the PostgreSQL connection pool
type DB struct {
	Pool *pgxpool.Pool
}

// Config holds database configuration
type Config struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"-"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

// NewDB creates a new database connection pool
func NewDB(cfg Config) (*DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	log.Printf("[DATABASE] Connected to PostgreSQL database: %s", cfg.Database)

	return &DB{Pool: pool}, nil
}

// Close closes the database connection
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		log.Println("[DATABASE] Connection closed")
	}
}

// RunMigrations executes database migrations
func (db *DB) RunMigrations(ctx context.Context) error {
	log.Println("[DATABASE] Running migrations...")

	migrations := []string{
		`CREATE TABLE IF NOT EXISTS signals (
			id UUID PRIMARY KEY,
			mint VARCHAR(64) NOT NULL,
			symbol VARCHAR(32),
			track VARCHAR(20) NOT NULL,
			signal_type VARCHAR(20) NOT NULL,
			tier VARCHAR(10) NOT NULL,
			entry_price_low DECIMAL(30, 15),
			entry_price_high DECIMAL(30, 15),
			stop_loss_price DECIMAL(30, 15),
			stop_loss_percent DECIMAL(10, 4),
			total_score DECIMAL(10, 4),
			win_probability DECIMAL(10, 4),
			position_size_percent DECIMAL(10, 4),
			generated_at TIMESTAMP NOT NULL,
			expires_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_mint ON signals(mint)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_generated_at ON signals(generated_at)`,

		`CREATE TABLE IF NOT EXISTS positions (
			id UUID PRIMARY KEY,
			signal_id UUID,
			mint VARCHAR(64) NOT NULL,
			symbol VARCHAR(32),
			track VARCHAR(20),
			tier VARCHAR(10),
			status VARCHAR(10) NOT NULL DEFAULT 'OPEN',
			entry_price DECIMAL(30, 15) NOT NULL,
			peak_price DECIMAL(30, 15),
			quantity DECIMAL(30, 10),
			initial_quantity DECIMAL(30, 10),
			entry_sol_amount DECIMAL(20, 9),
			realized_sol DECIMAL(20, 9),
			stop_loss_percent DECIMAL(10, 4),
			effective_stop_loss_percent DECIMAL(10, 4),
			tp1_hit BOOLEAN DEFAULT FALSE,
			tp2_hit BOOLEAN DEFAULT FALSE,
			entry_factors JSONB,
			exit_reason VARCHAR(30),
			entered_at TIMESTAMP NOT NULL,
			closed_at TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_positions_mint ON positions(mint)`,
		`CREATE INDEX IF NOT EXISTS idx_positions_status ON positions(status)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_positions_open_mint ON positions(mint) WHERE status = 'OPEN'`,

		`CREATE TABLE IF NOT EXISTS threshold_changes (
			id SERIAL PRIMARY KEY,
			factor VARCHAR(40) NOT NULL,
			old_value DECIMAL(20, 6) NOT NULL,
			new_value DECIMAL(20, 6) NOT NULL,
			reason TEXT,
			applied_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_threshold_changes_factor ON threshold_changes(factor)`,

		`CREATE TABLE IF NOT EXISTS funnel_cycles (
			id SERIAL PRIMARY KEY,
			candidates_seen BIGINT NOT NULL,
			rejected_by_stage JSONB,
			signals_emitted BIGINT NOT NULL,
			window_started_at TIMESTAMP NOT NULL,
			window_ended_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	log.Println("[DATABASE] Migrations completed")
	return nil
}
