package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/loyalty-pos/internal/model"
	"github.com/fairyhunter13/loyalty-pos/pkg/database"
)

// ErrDuplicateCouponCode is returned when a minted coupon code is already taken.
var ErrDuplicateCouponCode = errors.New("coupon code already exists")

const couponColumns = `cc.id, cc.customer_id, cc.campaign_id, cc.code, cc.status, cc.expires_at, cc.used_at,
	cc.source, cc.source_transaction_id, cc.bundle_id, cc.part, cc.total_parts, cc.discount_value,
	cc.original_total, cc.bundle_label, cc.metadata, cc.created_at`

const selectCouponWithCampaign = `SELECT ` + couponColumns + `, ` + campaignColumns + `
	FROM customer_coupons cc
	JOIN campaigns k ON k.id = cc.campaign_id`

// CouponRepository provides data access for customer coupons using pgx.
type CouponRepository struct {
	pool PoolInterface
}

// NewCouponRepository creates a new CouponRepository with the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// NewCouponRepositoryWithPool creates a new CouponRepository with a custom pool interface.
// This is primarily used for testing.
func NewCouponRepositoryWithPool(pool PoolInterface) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// couponScan holds scan targets for one customer_coupons row.
type couponScan struct {
	c      model.CustomerCoupon
	status string
	source string
}

func (s *couponScan) dest() []any {
	return []any{
		&s.c.ID, &s.c.CustomerID, &s.c.CampaignID, &s.c.Code, &s.status, &s.c.ExpiresAt, &s.c.UsedAt,
		&s.source, &s.c.SourceTransactionID, &s.c.BundleID, &s.c.Part, &s.c.TotalParts, &s.c.DiscountValue,
		&s.c.OriginalTotal, &s.c.BundleLabel, &s.c.Metadata, &s.c.CreatedAt,
	}
}

func (s *couponScan) coupon() model.CustomerCoupon {
	c := s.c
	c.Status = model.CouponStatus(s.status)
	c.Source = model.CouponSource(s.source)
	if c.Metadata == nil {
		c.Metadata = map[string]any{}
	}
	return c
}

func scanCouponWithCampaign(row pgx.Row) (*model.CustomerCoupon, error) {
	var cs couponScan
	var ks campaignScan
	if err := row.Scan(append(cs.dest(), ks.dest()...)...); err != nil {
		return nil, err
	}
	c := cs.coupon()
	k := ks.campaign()
	c.Campaign = &k
	return &c, nil
}

// GetByID retrieves a coupon with its campaign.
// Returns nil, nil if the coupon is not found (service layer handles this).
func (r *CouponRepository) GetByID(ctx context.Context, q database.TxQuerier, id uuid.UUID) (*model.CustomerCoupon, error) {
	c, err := scanCouponWithCampaign(q.QueryRow(ctx, selectCouponWithCampaign+` WHERE cc.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get coupon %s: %w", id, err)
	}
	return c, nil
}

// GetForUpdate retrieves a coupon with a row lock (SELECT FOR UPDATE).
// Only the coupon row is locked, not its campaign.
// Returns nil, nil if the coupon is not found.
func (r *CouponRepository) GetForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.CustomerCoupon, error) {
	c, err := scanCouponWithCampaign(tx.QueryRow(ctx, selectCouponWithCampaign+` WHERE cc.id = $1 FOR UPDATE OF cc`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get coupon for update %s: %w", id, err)
	}
	return c, nil
}

// MarkUsed moves an ACTIVE coupon to USED.
// Returns false when the coupon was no longer ACTIVE.
func (r *CouponRepository) MarkUsed(ctx context.Context, tx database.TxQuerier, id uuid.UUID, at time.Time) (bool, error) {
	tag, err := tx.Exec(ctx,
		`UPDATE customer_coupons SET status = 'USED', used_at = $2 WHERE id = $1 AND status = 'ACTIVE'`,
		id, at)
	if err != nil {
		return false, fmt.Errorf("mark coupon %s used: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkExpired moves an ACTIVE coupon to EXPIRED.
func (r *CouponRepository) MarkExpired(ctx context.Context, tx database.TxQuerier, id uuid.UUID) error {
	_, err := tx.Exec(ctx,
		`UPDATE customer_coupons SET status = 'EXPIRED' WHERE id = $1 AND status = 'ACTIVE'`, id)
	if err != nil {
		return fmt.Errorf("mark coupon %s expired: %w", id, err)
	}
	return nil
}

// InsertBatch inserts coupons within a transaction.
// Returns ErrDuplicateCouponCode if a generated code collides.
func (r *CouponRepository) InsertBatch(ctx context.Context, tx database.TxQuerier, coupons []model.CustomerCoupon) error {
	query := `INSERT INTO customer_coupons
		(id, customer_id, campaign_id, code, status, expires_at, source, source_transaction_id,
		 bundle_id, part, total_parts, discount_value, original_total, bundle_label, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	for i := range coupons {
		c := &coupons[i]
		metadata := c.Metadata
		if metadata == nil {
			metadata = map[string]any{}
		}
		_, err := tx.Exec(ctx, query,
			c.ID, c.CustomerID, c.CampaignID, c.Code, string(c.Status), c.ExpiresAt, string(c.Source),
			c.SourceTransactionID, c.BundleID, c.Part, c.TotalParts, c.DiscountValue, c.OriginalTotal,
			c.BundleLabel, metadata, c.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("insert coupon %s: %w", c.Code, ErrDuplicateCouponCode)
			}
			return fmt.Errorf("insert coupon %s: %w", c.Code, err)
		}
	}
	return nil
}

// HasActiveForCampaign reports whether the customer holds any ACTIVE coupon of the campaign.
func (r *CouponRepository) HasActiveForCampaign(ctx context.Context, tx database.TxQuerier, customerID, campaignID uuid.UUID) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM customer_coupons WHERE customer_id = $1 AND campaign_id = $2 AND status = 'ACTIVE')`,
		customerID, campaignID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check active coupons: %w", err)
	}
	return exists, nil
}

// ListBundleForUpdate locks and returns every coupon of a bundle, parts in order, bonus last.
func (r *CouponRepository) ListBundleForUpdate(ctx context.Context, tx database.TxQuerier, bundleID uuid.UUID) ([]model.CustomerCoupon, error) {
	query := `SELECT ` + couponColumns + ` FROM customer_coupons cc
		WHERE cc.bundle_id = $1
		ORDER BY cc.part NULLS LAST
		FOR UPDATE`
	return r.listCoupons(ctx, tx, "list bundle", query, bundleID)
}

// ListBySourceTransactionForUpdate locks and returns a customer's coupons minted by one transaction.
func (r *CouponRepository) ListBySourceTransactionForUpdate(ctx context.Context, tx database.TxQuerier, customerID, sourceTransactionID uuid.UUID) ([]model.CustomerCoupon, error) {
	query := `SELECT ` + couponColumns + ` FROM customer_coupons cc
		WHERE cc.customer_id = $1 AND cc.source_transaction_id = $2
		ORDER BY cc.part NULLS LAST
		FOR UPDATE`
	return r.listCoupons(ctx, tx, "list coupons by transaction", query, customerID, sourceTransactionID)
}

// ReduceBonus sets a bonus coupon's value and merges stamps into its metadata.
func (r *CouponRepository) ReduceBonus(ctx context.Context, tx database.TxQuerier, id uuid.UUID, value decimal.Decimal, stamps map[string]any) error {
	_, err := tx.Exec(ctx,
		`UPDATE customer_coupons SET discount_value = $2, metadata = metadata || $3::jsonb WHERE id = $1`,
		id, value, stamps)
	if err != nil {
		return fmt.Errorf("reduce bonus %s: %w", id, err)
	}
	return nil
}

// ConsumeBonus zeroes a bonus coupon, marks it USED and merges stamps into its metadata.
func (r *CouponRepository) ConsumeBonus(ctx context.Context, tx database.TxQuerier, id uuid.UUID, at time.Time, stamps map[string]any) error {
	_, err := tx.Exec(ctx,
		`UPDATE customer_coupons
		SET status = 'USED', used_at = $2, discount_value = 0, metadata = metadata || $3::jsonb
		WHERE id = $1`,
		id, at, stamps)
	if err != nil {
		return fmt.Errorf("consume bonus %s: %w", id, err)
	}
	return nil
}

// ConsumeCoupons marks the ACTIVE coupons among ids USED and merges stamps into their metadata.
func (r *CouponRepository) ConsumeCoupons(ctx context.Context, tx database.TxQuerier, ids []uuid.UUID, at time.Time, stamps map[string]any) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}

	tag, err := tx.Exec(ctx,
		`UPDATE customer_coupons
		SET status = 'USED', used_at = $2, metadata = metadata || $3::jsonb
		WHERE id = ANY($1::uuid[]) AND status = 'ACTIVE'`,
		raw, at, stamps)
	if err != nil {
		return 0, fmt.Errorf("consume coupons: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListActiveByCustomer returns the customer's unexpired ACTIVE coupons with their campaigns, newest first.
func (r *CouponRepository) ListActiveByCustomer(ctx context.Context, customerID uuid.UUID) ([]model.CustomerCoupon, error) {
	query := selectCouponWithCampaign + `
		WHERE cc.customer_id = $1 AND cc.status = 'ACTIVE'
		  AND (cc.expires_at IS NULL OR cc.expires_at > NOW())
		ORDER BY cc.created_at DESC, cc.part NULLS LAST`

	rows, err := r.pool.Query(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("list active coupons for %s: %w", customerID, err)
	}
	defer rows.Close()

	coupons := []model.CustomerCoupon{}
	for rows.Next() {
		c, err := scanCouponWithCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scan coupon: %w", err)
		}
		coupons = append(coupons, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate coupon rows: %w", err)
	}
	return coupons, nil
}

// ExpireOverdue moves every ACTIVE coupon whose expiry lies before now to EXPIRED.
func (r *CouponRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE customer_coupons SET status = 'EXPIRED'
		WHERE status = 'ACTIVE' AND expires_at IS NOT NULL AND expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("expire overdue coupons: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *CouponRepository) listCoupons(ctx context.Context, q database.TxQuerier, op, query string, args ...any) ([]model.CustomerCoupon, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var coupons []model.CustomerCoupon
	for rows.Next() {
		var cs couponScan
		if err := rows.Scan(cs.dest()...); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		coupons = append(coupons, cs.coupon())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate: %w", op, err)
	}
	return coupons, nil
}
