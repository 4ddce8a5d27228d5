package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

const healthPingTimeout = 2 * time.Second

// Pinger is an interface for health check ping operations.
type Pinger interface {
	Ping(ctx context.Context) error
}

// MaintenanceState reports whether maintenance mode is on.
type MaintenanceState interface {
	Enabled() bool
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	pool        Pinger
	maintenance MaintenanceState
}

// NewHealthHandler creates a new HealthHandler with the given database pool.
// maintenance may be nil.
func NewHealthHandler(pool Pinger, maintenance MaintenanceState) *HealthHandler {
	return &HealthHandler{pool: pool, maintenance: maintenance}
}

// Check pings the database within a short deadline.
// Returns 200 with {"status":"healthy","maintenance":bool} when the store is reachable
// and 503 with {"status":"unhealthy"} otherwise.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), healthPingTimeout)
	defer cancel()

	if err := h.pool.Ping(ctx); err != nil {
		log.Error().Err(err).Msg("health check failed: database unreachable")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy",
			"error":  "database connection failed",
		})
	}
	return c.JSON(fiber.Map{
		"status":      "healthy",
		"maintenance": h.maintenance != nil && h.maintenance.Enabled(),
	})
}
