package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/loyalty-pos/pkg/database"
)

// ProgressRepository provides data access for stamp-card counters using pgx.
type ProgressRepository struct {
	pool PoolInterface
}

// NewProgressRepository creates a new ProgressRepository with the given pool.
func NewProgressRepository(pool *pgxpool.Pool) *ProgressRepository {
	return &ProgressRepository{pool: pool}
}

// NewProgressRepositoryWithPool creates a new ProgressRepository with a custom pool interface.
// This is primarily used for testing.
func NewProgressRepositoryWithPool(pool PoolInterface) *ProgressRepository {
	return &ProgressRepository{pool: pool}
}

// Increment bumps the customer's counter for a campaign within a transaction and
// returns the new count. A missing counter is created at 1. The upsert serializes
// concurrent stamps on the (customer_id, campaign_id) unique key.
func (r *ProgressRepository) Increment(ctx context.Context, tx database.TxQuerier, customerID, campaignID uuid.UUID, target int) (int, error) {
	query := `
		INSERT INTO customer_campaign_progress (id, customer_id, campaign_id, current_count, target_count, updated_at)
		VALUES ($1, $2, $3, 1, $4, NOW())
		ON CONFLICT (customer_id, campaign_id) DO UPDATE
		SET current_count = customer_campaign_progress.current_count + 1,
		    target_count = EXCLUDED.target_count,
		    updated_at = NOW()
		RETURNING current_count`

	var count int
	if err := tx.QueryRow(ctx, query, uuid.New(), customerID, campaignID, target).Scan(&count); err != nil {
		return 0, fmt.Errorf("increment progress for customer %s campaign %s: %w", customerID, campaignID, err)
	}
	return count, nil
}

// Reset zeroes the customer's counter for a campaign after a completed card.
func (r *ProgressRepository) Reset(ctx context.Context, tx database.TxQuerier, customerID, campaignID uuid.UUID) error {
	query := `UPDATE customer_campaign_progress SET current_count = 0, updated_at = NOW()
		WHERE customer_id = $1 AND campaign_id = $2`

	if _, err := tx.Exec(ctx, query, customerID, campaignID); err != nil {
		return fmt.Errorf("reset progress for customer %s campaign %s: %w", customerID, campaignID, err)
	}
	return nil
}
