package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/fairyhunter13/loyalty-pos/internal/model"
)

// ScanServiceInterface looks up what a terminal shows after a card scan.
type ScanServiceInterface interface {
	Scan(ctx context.Context, customerID string) (*model.ScanResult, error)
}

// ScanHandler handles card scan lookups.
type ScanHandler struct {
	service ScanServiceInterface
}

// NewScanHandler creates a new ScanHandler.
func NewScanHandler(svc ScanServiceInterface) *ScanHandler {
	return &ScanHandler{service: svc}
}

// Scan handles GET /api/scan?customer_id=.
func (h *ScanHandler) Scan(c *fiber.Ctx) error {
	result, err := h.service.Scan(c.UserContext(), c.Query("customer_id"))
	if err != nil {
		return writeError(c, err, "scan card")
	}
	return c.JSON(result)
}
