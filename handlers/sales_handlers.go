package handlers

import (
	"log"

	"app/database"
	"app/models"

	"github.com/gofiber/fiber/v2"
)

// CreateSaleInput defines the expected input for creating a new sale.

type CreateSaleInput struct {
	PaymentType string            `json:"paymentType"`
	Notes       *string           `json:"notes"`
	Items       []models.SaleItem `json:"items"`
}

// HandleCreateSale records a new sale and invalidates the cached forecasts
// the new data makes stale: each sold product's scope plus the store-wide
// aggregate. The next forecast request for those scopes recomputes from
// fresh history.
// POST /api/v1/sales
func HandleCreateSale(c *fiber.Ctx) error {
	db := database.GetDB()
	ctx := c.Context()

	var input CreateSaleInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "Invalid request body"})
	}
	if len(input.Items) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "A sale needs at least one item"})
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		log.Printf("Error starting sale transaction: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "error", "message": "Failed to start transaction"})
	}
	defer tx.Rollback(ctx)

	// Calculate total amount
	var totalAmount float64
	for _, item := range input.Items {
		totalAmount += item.Subtotal
	}

	saleQuery := `
		INSERT INTO sales (total_amount, payment_type, notes)
		VALUES ($1, $2, $3)
		RETURNING id, sale_date, created_at, updated_at
	`
	var sale models.Sale
	sale.TotalAmount = totalAmount
	sale.PaymentType = input.PaymentType
	sale.Notes = input.Notes
	err = tx.QueryRow(ctx, saleQuery, totalAmount, input.PaymentType, input.Notes).Scan(
		&sale.ID, &sale.SaleDate, &sale.CreatedAt, &sale.UpdatedAt,
	)
	if err != nil {
		log.Printf("Error creating sale: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "error", "message": "Failed to create sale"})
	}

	itemQuery := `
		INSERT INTO sale_items (sale_id, inventory_item_id, quantity_sold, subtotal)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	productIDs := make([]int64, 0, len(input.Items))
	for i := range input.Items {
		item := &input.Items[i]
		item.SaleID = sale.ID
		err = tx.QueryRow(ctx, itemQuery, sale.ID, item.InventoryItemID, item.QuantitySold, item.Subtotal).Scan(&item.ID)
		if err != nil {
			log.Printf("Error creating sale item: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "error", "message": "Failed to create sale items"})
		}
		productIDs = append(productIDs, item.InventoryItemID)
	}
	sale.Items = input.Items

	if err := tx.Commit(ctx); err != nil {
		log.Printf("Error committing sale: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "error", "message": "Failed to commit sale"})
	}

	// Source data changed, so the affected forecasts are stale. Invalidation
	// failures are logged, not surfaced: the sale itself succeeded and the
	// cache entries expire on their own TTL anyway.
	if _, err := engine.InvalidateProducts(ctx, productIDs); err != nil {
		log.Printf("Error invalidating product forecasts after sale %d: %v", sale.ID, err)
	}
	if _, err := engine.InvalidateTotalSales(ctx); err != nil {
		log.Printf("Error invalidating total sales forecast after sale %d: %v", sale.ID, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "success", "data": sale})
}
