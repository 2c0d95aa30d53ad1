package routes

import (
	"app/handlers"
	"app/middleware"

	"github.com/gofiber/fiber/v2"
)

// SetupRoutes defines all the routes for the application.
func SetupRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	// --- Bootstrap & Authentication Routes ---
	api.Post("/init", handlers.HandleInitializeAdmin)
	auth := api.Group("/auth")
	auth.Post("/login", handlers.HandleLogin)

	// --- Analytics Routes ---
	analytics := api.Group("/analytics", middleware.JWTMiddleware)
	analytics.Get("/forecast", handlers.HandleGetForecast)
	analytics.Post("/forecast/batch", handlers.HandleBatchForecast)
	analytics.Post("/forecast/insight", handlers.HandleForecastInsight)
	analytics.Get("/top-products", handlers.HandleGetTopProducts)

	// Cache invalidation; the full sweep is admin-only.
	analytics.Post("/cache/invalidate", handlers.HandleInvalidateProducts)
	analytics.Post("/cache/invalidate-total", handlers.HandleInvalidateTotalSales)
	analytics.Post("/cache/invalidate-all", middleware.AdminRequired, handlers.HandleInvalidateAll)

	// --- Sales Routes ---
	sales := api.Group("/sales", middleware.JWTMiddleware)
	sales.Post("/", handlers.HandleCreateSale)
}
