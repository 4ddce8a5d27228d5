package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/loyalty-pos/internal/model"
)

// CampaignServiceInterface defines campaign administration.
type CampaignServiceInterface interface {
	List(ctx context.Context, deleted bool) ([]model.Campaign, error)
	Create(ctx context.Context, req *model.CampaignRequest) (*model.Campaign, error)
	Update(ctx context.Context, id string, req *model.CampaignRequest) (*model.Campaign, error)
	Delete(ctx context.Context, id string, hard bool) error
}

// CampaignHandler handles HTTP requests for campaign administration.
type CampaignHandler struct {
	service   CampaignServiceInterface
	validator *validator.Validate
}

// NewCampaignHandler creates a new CampaignHandler with the given service and validator.
func NewCampaignHandler(svc CampaignServiceInterface, v *validator.Validate) *CampaignHandler {
	return &CampaignHandler{service: svc, validator: v}
}

// List handles GET /api/campaigns?deleted=true|false.
func (h *CampaignHandler) List(c *fiber.Ctx) error {
	campaigns, err := h.service.List(c.UserContext(), c.QueryBool("deleted", false))
	if err != nil {
		return writeError(c, err, "list campaigns")
	}
	return c.JSON(campaigns)
}

// Create handles POST /api/campaigns.
func (h *CampaignHandler) Create(c *fiber.Ctx) error {
	req, msg := h.parse(c)
	if req == nil {
		return badRequest(c, CodeInvalidRequest, msg)
	}

	campaign, err := h.service.Create(c.UserContext(), req)
	if err != nil {
		return writeError(c, err, "create campaign")
	}

	log.Info().
		Str("campaign_id", campaign.ID.String()).
		Str("type", string(campaign.Type)).
		Msg("campaign created")
	return c.Status(fiber.StatusCreated).JSON(campaign)
}

// Update handles PUT /api/campaigns/:id.
func (h *CampaignHandler) Update(c *fiber.Ctx) error {
	req, msg := h.parse(c)
	if req == nil {
		return badRequest(c, CodeInvalidRequest, msg)
	}

	campaign, err := h.service.Update(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return writeError(c, err, "update campaign")
	}
	return c.JSON(campaign)
}

// Delete handles DELETE /api/campaigns/:id. Campaigns are soft deleted unless hard=true.
func (h *CampaignHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	hard := c.QueryBool("hard", false)

	if err := h.service.Delete(c.UserContext(), id, hard); err != nil {
		return writeError(c, err, "delete campaign")
	}

	log.Info().Str("campaign_id", id).Bool("hard", hard).Msg("campaign deleted")
	return c.JSON(fiber.Map{"message": "Campaign deleted", "hard": hard})
}

// parse decodes and validates a campaign body. A nil request comes with the
// message to send back.
func (h *CampaignHandler) parse(c *fiber.Ctx) (*model.CampaignRequest, string) {
	var req model.CampaignRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, "invalid request body"
	}
	if err := h.validator.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}
	return &req, ""
}
