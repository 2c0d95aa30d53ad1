package handlers

import (
	"errors"
	"log"

	"app/forecast"
	"app/utils"

	"github.com/gofiber/fiber/v2"
)

// HandleGetForecast computes (or serves from cache) a demand forecast.
// GET /api/v1/analytics/forecast?product_id=&days=&no_cache=
// Omitting product_id forecasts total store-wide sales.
func HandleGetForecast(c *fiber.Ctx) error {
	productID, err := utils.ParsePositiveInt(c.Query("product_id"), 0)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "Invalid product_id: " + err.Error()})
	}

	days, err := utils.ParsePositiveInt(c.Query("days"), 30)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "Invalid days: " + err.Error()})
	}

	// no_cache is parsed as a boolean, so no_cache=false and no_cache=0
	// keep the cache enabled; only a truthy value bypasses it.
	useCache := !c.QueryBool("no_cache")

	prediction, err := engine.Forecast(c.Context(), forecast.Scope(productID), days, useCache)
	if err != nil {
		return forecastErrorResponse(c, err)
	}

	return c.JSON(fiber.Map{"status": "success", "data": prediction})
}

// BatchForecastInput defines the expected input for a batch forecast run.

type BatchForecastInput struct {
	ProductIDs []int64 `json:"product_ids"`
	Days       int     `json:"days"`
	TopN       int     `json:"top_n"`
}

// HandleBatchForecast forecasts several products in one run with per-product
// outcomes; a failing product never aborts the batch.
// POST /api/v1/analytics/forecast/batch
func HandleBatchForecast(c *fiber.Ctx) error {
	var input BatchForecastInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "Invalid request body"})
	}

	if input.Days <= 0 {
		input.Days = 30
	}
	if len(input.ProductIDs) == 0 && input.TopN <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "Provide product_ids or a positive top_n"})
	}

	scopes := make([]forecast.Scope, 0, len(input.ProductIDs))
	for _, id := range input.ProductIDs {
		if id <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "Product IDs must be positive"})
		}
		scopes = append(scopes, forecast.Scope(id))
	}

	result, err := engine.ForecastBatch(c.Context(), scopes, input.Days, input.TopN)
	if err != nil {
		log.Printf("Batch forecast failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "error", "message": "Batch forecast failed"})
	}

	return c.JSON(fiber.Map{"status": "success", "data": result})
}

// InvalidateInput defines the expected input for product cache invalidation.

type InvalidateInput struct {
	ProductIDs []int64 `json:"product_ids"`
}

// HandleInvalidateProducts drops the cached forecast artifacts of the given
// products, typically after a sales backfill or correction.
// POST /api/v1/analytics/cache/invalidate
func HandleInvalidateProducts(c *fiber.Ctx) error {
	var input InvalidateInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "Invalid request body"})
	}
	if len(input.ProductIDs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "No product IDs given"})
	}

	deleted, err := engine.InvalidateProducts(c.Context(), input.ProductIDs)
	if err != nil {
		log.Printf("Product cache invalidation failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "error", "message": "Cache invalidation failed"})
	}

	return c.JSON(fiber.Map{"status": "success", "data": fiber.Map{"deleted": deleted}})
}

// HandleInvalidateTotalSales drops the cached aggregate forecast artifacts.
// POST /api/v1/analytics/cache/invalidate-total
func HandleInvalidateTotalSales(c *fiber.Ctx) error {
	deleted, err := engine.InvalidateTotalSales(c.Context())
	if err != nil {
		log.Printf("Total sales cache invalidation failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "error", "message": "Cache invalidation failed"})
	}

	return c.JSON(fiber.Map{"status": "success", "data": fiber.Map{"deleted": deleted}})
}

// HandleInvalidateAll drops every cached forecast artifact, best effort.
// When the cache backend cannot enumerate keys only the aggregate scope is
// cleared and the response says so via the degraded flag.
// POST /api/v1/analytics/cache/invalidate-all
func HandleInvalidateAll(c *fiber.Ctx) error {
	deleted, degraded, err := engine.InvalidateAll(c.Context())
	if err != nil {
		log.Printf("Full cache invalidation failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "error", "message": "Cache invalidation failed"})
	}
	if degraded {
		log.Printf("Cache backend does not support pattern deletes; only total-sales keys were invalidated")
	}

	return c.JSON(fiber.Map{"status": "success", "data": fiber.Map{"deleted": deleted, "degraded": degraded}})
}

// HandleGetTopProducts lists the best-selling products over the training
// window, the same ranking the batch top-N path uses.
// GET /api/v1/analytics/top-products?limit=
func HandleGetTopProducts(c *fiber.Ctx) error {
	limit, err := utils.ParsePositiveInt(c.Query("limit"), 10)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "Invalid limit: " + err.Error()})
	}

	volumes, err := engine.TopProducts(c.Context(), limit)
	if err != nil {
		log.Printf("Error fetching top products: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "error", "message": "Failed to fetch top products"})
	}

	return c.JSON(fiber.Map{"status": "success", "data": volumes})
}

func forecastErrorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, forecast.ErrInsufficientData):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"status": "error", "message": err.Error()})
	case errors.Is(err, forecast.ErrFitting):
		log.Printf("Forecast fitting error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "error", "message": err.Error()})
	default:
		log.Printf("Forecast error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "error", "message": "Forecast failed"})
	}
}
