package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/loyalty-pos/internal/model"
	"github.com/fairyhunter13/loyalty-pos/internal/service"
	"github.com/fairyhunter13/loyalty-pos/pkg/database"
)

const campaignColumns = `k.id, k.name, k.name_en, k.description, k.type, k.is_active, k.deleted_at,
	k.trigger_condition, k.reward_config, k.bundle_type, k.price, k.customer_type, k.usage_limit,
	k.validity_days, k.created_at`

const selectCampaign = `SELECT ` + campaignColumns + ` FROM campaigns k`

// CampaignRepository provides data access for campaigns using pgx.
type CampaignRepository struct {
	pool PoolInterface
}

// NewCampaignRepository creates a new CampaignRepository with the given pool.
func NewCampaignRepository(pool *pgxpool.Pool) *CampaignRepository {
	return &CampaignRepository{pool: pool}
}

// NewCampaignRepositoryWithPool creates a new CampaignRepository with a custom pool interface.
// This is primarily used for testing.
func NewCampaignRepositoryWithPool(pool PoolInterface) *CampaignRepository {
	return &CampaignRepository{pool: pool}
}

// campaignScan holds scan targets for one campaigns row.
type campaignScan struct {
	c            model.Campaign
	campaignType string
}

func (s *campaignScan) dest() []any {
	return []any{
		&s.c.ID, &s.c.Name, &s.c.NameEN, &s.c.Description, &s.campaignType, &s.c.IsActive, &s.c.DeletedAt,
		&s.c.TriggerCondition, &s.c.RewardConfig, &s.c.BundleType, &s.c.Price, &s.c.CustomerType, &s.c.UsageLimit,
		&s.c.ValidityDays, &s.c.CreatedAt,
	}
}

func (s *campaignScan) campaign() model.Campaign {
	c := s.c
	c.Type = model.CampaignType(s.campaignType)
	return c
}

// GetByID retrieves a campaign, deleted or not.
// Returns service.ErrCampaignNotFound if the campaign doesn't exist.
func (r *CampaignRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Campaign, error) {
	var cs campaignScan
	err := r.pool.QueryRow(ctx, selectCampaign+` WHERE k.id = $1`, id).Scan(cs.dest()...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrCampaignNotFound
		}
		return nil, fmt.Errorf("get campaign %s: %w", id, err)
	}
	c := cs.campaign()
	return &c, nil
}

// ListActiveByType returns active, non-deleted campaigns of one type, oldest first.
func (r *CampaignRepository) ListActiveByType(ctx context.Context, q database.TxQuerier, campaignType model.CampaignType) ([]model.Campaign, error) {
	query := selectCampaign + `
		WHERE k.type = $1 AND k.is_active AND k.deleted_at IS NULL
		ORDER BY k.created_at, k.id`
	return listCampaigns(ctx, q, query, string(campaignType))
}

// ListAvailable returns active, non-deleted campaigns offered to every customer or to customerType.
func (r *CampaignRepository) ListAvailable(ctx context.Context, customerType string) ([]model.Campaign, error) {
	query := selectCampaign + `
		WHERE k.is_active AND k.deleted_at IS NULL
		  AND (k.customer_type = 'ALL' OR k.customer_type = $1)
		ORDER BY k.created_at DESC`
	return listCampaigns(ctx, r.pool, query, customerType)
}

// List returns live campaigns, or only soft-deleted ones when deleted is true.
func (r *CampaignRepository) List(ctx context.Context, deleted bool) ([]model.Campaign, error) {
	query := selectCampaign + `
		WHERE (k.deleted_at IS NOT NULL) = $1
		ORDER BY k.created_at DESC`
	return listCampaigns(ctx, r.pool, query, deleted)
}

// Insert stores a new campaign.
func (r *CampaignRepository) Insert(ctx context.Context, c *model.Campaign) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO campaigns
		(id, name, name_en, description, type, is_active, trigger_condition, reward_config, bundle_type,
		 price, customer_type, usage_limit, validity_days, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		c.ID, c.Name, c.NameEN, c.Description, string(c.Type), c.IsActive, c.TriggerCondition, c.RewardConfig,
		c.BundleType, c.Price, c.CustomerType, c.UsageLimit, c.ValidityDays, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert campaign: %w", err)
	}
	return nil
}

// Update replaces a campaign's definition.
// Returns service.ErrCampaignNotFound if the campaign doesn't exist.
func (r *CampaignRepository) Update(ctx context.Context, c *model.Campaign) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE campaigns SET
		name = $2, name_en = $3, description = $4, type = $5, is_active = $6, trigger_condition = $7,
		reward_config = $8, bundle_type = $9, price = $10, customer_type = $11, usage_limit = $12,
		validity_days = $13
		WHERE id = $1`,
		c.ID, c.Name, c.NameEN, c.Description, string(c.Type), c.IsActive, c.TriggerCondition, c.RewardConfig,
		c.BundleType, c.Price, c.CustomerType, c.UsageLimit, c.ValidityDays)
	if err != nil {
		return fmt.Errorf("update campaign %s: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrCampaignNotFound
	}
	return nil
}

// SoftDelete hides a campaign from the engine and the terminal while keeping its coupons.
func (r *CampaignRepository) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE campaigns SET deleted_at = $2, is_active = FALSE WHERE id = $1 AND deleted_at IS NULL`, id, at)
	if err != nil {
		return fmt.Errorf("soft delete campaign %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrCampaignNotFound
	}
	return nil
}

// Delete removes a campaign; its coupons and stamp-card progress cascade.
func (r *CampaignRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM campaigns WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete campaign %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrCampaignNotFound
	}
	return nil
}

func listCampaigns(ctx context.Context, q database.TxQuerier, query string, args ...any) ([]model.Campaign, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	campaigns := []model.Campaign{}
	for rows.Next() {
		var cs campaignScan
		if err := rows.Scan(cs.dest()...); err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		campaigns = append(campaigns, cs.campaign())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate campaign rows: %w", err)
	}
	return campaigns, nil
}
