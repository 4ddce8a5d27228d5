package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fairyhunter13/loyalty-pos/internal/middleware"
)

// Handlers groups the HTTP handlers served by the API.
type Handlers struct {
	Health       *HealthHandler
	Transactions *TransactionHandler
	Campaigns    *CampaignHandler
	Scan         *ScanHandler
}

// Guards are the middleware placed in front of every /api route, in order:
// authentication, then rate limiting, then the maintenance gate. A nil guard is skipped.
type Guards struct {
	Authenticate fiber.Handler
	RateLimit    fiber.Handler
	Maintenance  fiber.Handler
}

// Register mounts every route on app.
func Register(app *fiber.App, h Handlers, g Guards) {
	app.Get("/health", h.Health.Check)

	var chain []fiber.Handler
	for _, guard := range []fiber.Handler{g.Authenticate, g.RateLimit, g.Maintenance} {
		if guard != nil {
			chain = append(chain, guard)
		}
	}
	api := app.Group("/api", chain...)
	adminOnly := middleware.RequireRole(middleware.RoleAdmin)

	api.Get("/transactions", h.Transactions.List)
	api.Post("/transactions", h.Transactions.Create)
	api.Delete("/transactions", adminOnly, h.Transactions.Wipe)

	api.Get("/scan", h.Scan.Scan)

	api.Get("/campaigns", h.Campaigns.List)
	api.Post("/campaigns", adminOnly, h.Campaigns.Create)
	api.Put("/campaigns/:id", adminOnly, h.Campaigns.Update)
	api.Delete("/campaigns/:id", adminOnly, h.Campaigns.Delete)
}
