package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/loyalty-pos/internal/model"
	"github.com/fairyhunter13/loyalty-pos/pkg/database"
)

// TransactionRepository provides data access for sales using pgx.
type TransactionRepository struct {
	pool PoolInterface
}

// NewTransactionRepository creates a new TransactionRepository with the given pool.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

// NewTransactionRepositoryWithPool creates a new TransactionRepository with a custom pool interface.
// This is primarily used for testing.
func NewTransactionRepositoryWithPool(pool PoolInterface) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

// Insert stores a completed sale within a transaction.
func (r *TransactionRepository) Insert(ctx context.Context, tx database.TxQuerier, t *model.Transaction) error {
	query := `
		INSERT INTO transactions
		(id, customer_id, card_id, discount_id, amount_before, amount_after, payment_method, status, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.CustomerID, t.CardID, t.DiscountID, t.AmountBefore, t.AmountAfter,
		string(t.PaymentMethod), t.Status, t.Metadata, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert transaction %s: %w", t.ID, err)
	}
	return nil
}

// UpdateMetadata replaces a transaction's display metadata.
func (r *TransactionRepository) UpdateMetadata(ctx context.Context, tx database.TxQuerier, id uuid.UUID, metadata model.TransactionMetadata) error {
	if _, err := tx.Exec(ctx, `UPDATE transactions SET metadata = $2 WHERE id = $1`, id, metadata); err != nil {
		return fmt.Errorf("update metadata of transaction %s: %w", id, err)
	}
	return nil
}

// ListRecent returns up to limit transactions, newest first, optionally for one customer.
// On success, returns an empty slice (not nil) when nothing matches.
func (r *TransactionRepository) ListRecent(ctx context.Context, customerID *uuid.UUID, limit int) ([]model.TransactionView, error) {
	query := `
		SELECT t.id, t.customer_id, t.card_id, t.discount_id, t.amount_before, t.amount_after,
		       t.payment_method, t.status, t.metadata, t.created_at,
		       c.full_name, t.metadata->>'discount_name', t.metadata->>'campaign_name',
		       COALESCE((t.metadata->>'coupon_count')::int, 0), t.metadata->>'bundle_info'
		FROM transactions t
		LEFT JOIN customers c ON c.id = t.customer_id
		WHERE $1::uuid IS NULL OR t.customer_id = $1
		ORDER BY t.created_at DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, customerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	views := []model.TransactionView{}
	for rows.Next() {
		var (
			v      model.TransactionView
			method string
		)
		err := rows.Scan(
			&v.ID, &v.CustomerID, &v.CardID, &v.DiscountID, &v.AmountBefore, &v.AmountAfter,
			&method, &v.Status, &v.Metadata, &v.CreatedAt,
			&v.CustomerName, &v.DiscountName, &v.CampaignName, &v.CouponCount, &v.BundleInfo)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		v.PaymentMethod = model.PaymentMethod(method)
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return views, nil
}

// DeleteAll removes every transaction and returns how many rows went.
func (r *TransactionRepository) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM transactions`)
	if err != nil {
		return 0, fmt.Errorf("delete transactions: %w", err)
	}
	return tag.RowsAffected(), nil
}
