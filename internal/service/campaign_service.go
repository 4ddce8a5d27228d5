package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/loyalty-pos/internal/model"
)

// CampaignService administers campaign definitions.
type CampaignService struct {
	campaigns CampaignRepository
	now       func() time.Time
}

// NewCampaignService creates a new CampaignService.
func NewCampaignService(campaigns CampaignRepository) *CampaignService {
	return &CampaignService{campaigns: campaigns, now: time.Now}
}

// List returns live campaigns, or only soft-deleted ones when deleted is true.
func (s *CampaignService) List(ctx context.Context, deleted bool) ([]model.Campaign, error) {
	campaigns, err := s.campaigns.List(ctx, deleted)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	if campaigns == nil {
		campaigns = []model.Campaign{}
	}
	return campaigns, nil
}

// Create stores a new campaign built from req.
func (s *CampaignService) Create(ctx context.Context, req *model.CampaignRequest) (*model.Campaign, error) {
	c, err := campaignFromRequest(req)
	if err != nil {
		return nil, err
	}
	c.ID = uuid.New()
	c.CreatedAt = s.now().UTC()

	if err := s.campaigns.Insert(ctx, c); err != nil {
		return nil, fmt.Errorf("create campaign: %w", err)
	}
	log.Info().Str("campaign_id", c.ID.String()).Str("type", string(c.Type)).Msg("campaign created")
	return c, nil
}

// Update replaces the definition of campaign id with req.
func (s *CampaignService) Update(ctx context.Context, id string, req *model.CampaignRequest) (*model.Campaign, error) {
	cid, err := parseCampaignID(id)
	if err != nil {
		return nil, err
	}
	existing, err := s.campaigns.GetByID(ctx, cid)
	if err != nil {
		return nil, err
	}

	c, err := campaignFromRequest(req)
	if err != nil {
		return nil, err
	}
	c.ID = existing.ID
	c.CreatedAt = existing.CreatedAt
	c.DeletedAt = existing.DeletedAt

	if err := s.campaigns.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("update campaign: %w", err)
	}
	log.Info().Str("campaign_id", c.ID.String()).Msg("campaign updated")
	return c, nil
}

// Delete soft-deletes campaign id, or removes it with its coupons and progress when hard is true.
func (s *CampaignService) Delete(ctx context.Context, id string, hard bool) error {
	cid, err := parseCampaignID(id)
	if err != nil {
		return err
	}

	if hard {
		err = s.campaigns.Delete(ctx, cid)
	} else {
		err = s.campaigns.SoftDelete(ctx, cid, s.now().UTC())
	}
	if err != nil {
		return err
	}
	log.Info().Str("campaign_id", cid.String()).Bool("hard", hard).Msg("campaign deleted")
	return nil
}

func campaignFromRequest(req *model.CampaignRequest) (*model.Campaign, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidRequest)
	}
	if req.Price.IsNegative() || req.RewardConfig.Value.IsNegative() || req.TriggerCondition.MinSpend.IsNegative() {
		return nil, fmt.Errorf("%w: amounts must not be negative", ErrInvalidRequest)
	}
	for _, v := range req.RewardConfig.Splits {
		if !v.IsPositive() {
			return nil, fmt.Errorf("%w: reward_config.splits must be positive", ErrInvalidRequest)
		}
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	customerType := strings.TrimSpace(req.CustomerType)
	if customerType == "" {
		customerType = model.CustomerTypeAll
	}
	reward := req.RewardConfig
	if reward.Type == "" {
		reward.Type = model.AdjustmentPercentage
	}

	return &model.Campaign{
		Name:             name,
		NameEN:           strings.TrimSpace(req.NameEN),
		Description:      req.Description,
		Type:             req.Type,
		IsActive:         active,
		TriggerCondition: req.TriggerCondition,
		RewardConfig:     reward,
		BundleType:       strings.ToLower(strings.TrimSpace(req.BundleType)),
		Price:            req.Price.Round(2),
		CustomerType:     customerType,
		UsageLimit:       req.UsageLimit,
		ValidityDays:     req.ValidityDays,
	}, nil
}

func parseCampaignID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: campaign id is not a valid id", ErrInvalidRequest)
	}
	return id, nil
}
