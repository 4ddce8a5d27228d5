package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/loyalty-pos/internal/middleware"
	"github.com/fairyhunter13/loyalty-pos/internal/model"
	"github.com/fairyhunter13/loyalty-pos/internal/service"
	loyaltyvalidator "github.com/fairyhunter13/loyalty-pos/internal/validator"
)

// TransactionServiceInterface defines the sale, top-up and history operations.
type TransactionServiceInterface interface {
	Create(ctx context.Context, req *model.CreateTransactionRequest, actorID string) (*model.TransactionResult, error)
	TopUp(ctx context.Context, req *model.CreateTransactionRequest, actorID string) (*model.TopUpResult, error)
	List(ctx context.Context, customerID string) ([]model.TransactionView, error)
	Wipe(ctx context.Context) (int64, error)
}

// TransactionHandler handles HTTP requests for transactions.
type TransactionHandler struct {
	service   TransactionServiceInterface
	validator *validator.Validate
}

// NewTransactionHandler creates a new TransactionHandler with the given service and validator.
func NewTransactionHandler(svc TransactionServiceInterface, v *validator.Validate) *TransactionHandler {
	return &TransactionHandler{service: svc, validator: v}
}

// Create handles POST /api/transactions. Requests flagged is_topup credit the
// wallet instead of recording a sale.
func (h *TransactionHandler) Create(c *fiber.Ctx) error {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		return writeError(c, service.ErrUnauthorized, "create transaction")
	}

	var req model.CreateTransactionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, CodeInvalidRequest, "invalid request body")
	}
	dropPlaceholders(&req)

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, validationCode(err), formatValidationError(err))
	}

	if req.IsTopUp {
		result, err := h.service.TopUp(c.UserContext(), &req, session.ID)
		if err != nil {
			return writeError(c, err, "top up wallet")
		}
		return c.Status(fiber.StatusCreated).JSON(result)
	}

	result, err := h.service.Create(c.UserContext(), &req, session.ID)
	if err != nil {
		return writeError(c, err, "create transaction")
	}

	log.Info().
		Str("transaction_id", result.TransactionID.String()).
		Str("customer_id", req.CustomerID).
		Str("amount_after", result.AmountAfter.StringFixed(2)).
		Int("new_rewards", len(result.NewRewards)).
		Msg("transaction recorded")

	return c.Status(fiber.StatusCreated).JSON(result)
}

// List handles GET /api/transactions?customer_id=.
func (h *TransactionHandler) List(c *fiber.Ctx) error {
	views, err := h.service.List(c.UserContext(), c.Query("customer_id"))
	if err != nil {
		return writeError(c, err, "list transactions")
	}
	return c.JSON(views)
}

// Wipe handles DELETE /api/transactions. Routes must restrict it to admins.
func (h *TransactionHandler) Wipe(c *fiber.Ctx) error {
	n, err := h.service.Wipe(c.UserContext())
	if err != nil {
		return writeError(c, err, "wipe transactions")
	}
	return c.JSON(fiber.Map{"message": "Audit trail cleared", "deleted": n})
}

// dropPlaceholders clears optional ids that terminals send as "undefined" or "null".
func dropPlaceholders(req *model.CreateTransactionRequest) {
	for _, id := range []*string{&req.DiscountID, &req.CouponID, &req.CampaignID} {
		if loyaltyvalidator.IsPlaceholder(*id) {
			*id = ""
		}
	}
}
