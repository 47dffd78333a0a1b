package handlers

import (
	"time"

	"supplymarket/internal/middleware"
	"supplymarket/internal/repositories"
	"supplymarket/internal/services"

	"github.com/gofiber/fiber/v2"
)

// Services bundles what the HTTP layer calls into.
type Services struct {
	Auth    *services.AuthService
	Catalog *services.CatalogService
	Company *services.CompanyService
	Product *services.ProductService
	Request *services.RequestService
	Offer   *services.OfferService
}

// Register mounts the health check and the /api/v1 routes on app.
func Register(app *fiber.App, store *repositories.Store, svc Services) {
	app.Get("/health", func(c *fiber.Ctx) error {
		if err := store.Ping(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "unhealthy",
				"error":  err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "connected",
		})
	})

	apiV1 := app.Group("/api/v1")
	auth := middleware.AuthRequired(svc.Auth)

	NewAuthHandler(svc.Auth).RegisterRoutes(apiV1)
	NewCatalogHandler(svc.Catalog).RegisterRoutes(apiV1, auth)

	protected := apiV1.Group("", auth)
	NewCompanyHandler(svc.Company).RegisterRoutes(protected)
	NewProductHandler(svc.Product).RegisterRoutes(protected)
	NewRequestHandler(svc.Request, svc.Offer).RegisterRoutes(protected)
	NewOfferHandler(svc.Offer).RegisterRoutes(protected)
}
