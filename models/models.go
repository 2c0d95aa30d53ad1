package models

import "time"

// Sale is a completed point-of-sale transaction.
type Sale struct {
	ID          int64      `json:"id"`
	SaleDate    time.Time  `json:"sale_date"`
	TotalAmount float64    `json:"total_amount"`
	PaymentType string     `json:"payment_type"`
	Notes       *string    `json:"notes,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Items       []SaleItem `json:"items,omitempty"`
}

// SaleItem is an individual item within a Sale.
type SaleItem struct {
	ID              int64   `json:"id"`
	SaleID          int64   `json:"sale_id"`
	InventoryItemID int64   `json:"inventory_item_id"`
	QuantitySold    int     `json:"quantity_sold"`
	Subtotal        float64 `json:"subtotal"`
}
