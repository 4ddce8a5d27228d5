package middleware

import (
	"sync/atomic"

	"github.com/gofiber/fiber/v2"
)

// MaintenanceGate blocks non-admin writes while maintenance mode is on.
type MaintenanceGate struct {
	enabled atomic.Bool
}

// NewMaintenanceGate creates a gate in the given state.
func NewMaintenanceGate(enabled bool) *MaintenanceGate {
	g := &MaintenanceGate{}
	g.enabled.Store(enabled)
	return g
}

// Set switches maintenance mode on or off.
func (g *MaintenanceGate) Set(enabled bool) {
	g.enabled.Store(enabled)
}

// Enabled reports whether maintenance mode is on.
func (g *MaintenanceGate) Enabled() bool {
	return g.enabled.Load()
}

// Handler answers 503 to writes from non-admin sessions while the gate is on.
// Reads always pass.
func (g *MaintenanceGate) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !g.Enabled() || isRead(c.Method()) {
			return c.Next()
		}
		if session, ok := SessionFrom(c); ok && session.IsAdmin() {
			return c.Next()
		}
		return reject(c, fiber.StatusServiceUnavailable, "MAINTENANCE", "system is under maintenance, please try again later")
	}
}

func isRead(method string) bool {
	return method == fiber.MethodGet || method == fiber.MethodHead || method == fiber.MethodOptions
}
