package database

import (
	"context"

	"solana-sniper-bot/internal/positions"
)

// PostgresPositionStore adapts the repository to positions.StateStore so
// position snapshots land in the positions table alongside the Redis copy.
// Closed rows are kept for the optimizer, so DeletePosition is a no-op; the
// final snapshot has already been upserted with status CLOSED.
type PostgresPositionStore struct {
	repo *Repository
}

// NewPostgresPositionStore wraps a repository as a position state store
func NewPostgresPositionStore(repo *Repository) *PostgresPositionStore {
	return &PostgresPositionStore{repo: repo}
}

func (s *PostgresPositionStore) SavePosition(ctx context.Context, p *positions.Position) error {
	return s.repo.SavePosition(ctx, p)
}

func (s *PostgresPositionStore) DeletePosition(ctx context.Context, mint string) error {
	return nil
}
