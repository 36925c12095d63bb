package models

import "time"

// Item represents an inventory-tracked product. Stock is an integer that is
// allowed to go negative; it is mutated only through atomic delta updates,
// never recomputed from history.
type Item struct {
	ID        int64     `json:"id" db:"id"`
	StoreID   int64     `json:"store_id" db:"store_id"`
	Name      string    `json:"name" db:"name" binding:"required"`
	SKU       *string   `json:"sku,omitempty" db:"sku"`
	Category  *string   `json:"category,omitempty" db:"category"`
	CostPrice float64   `json:"cost_price" db:"cost_price"`
	SalePrice float64   `json:"sale_price" db:"sale_price"`
	Stock     int       `json:"stock" db:"stock"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// StockAdjustment records a manual correction to an item's stock outside the
// receipt flow (breakage, recount, supplier delivery).
type StockAdjustment struct {
	ID        int64     `json:"id" db:"id"`
	ItemID    int64     `json:"item_id" db:"item_id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Delta     int       `json:"delta" db:"delta"`
	Reason    *string   `json:"reason,omitempty" db:"reason"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
