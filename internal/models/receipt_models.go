package models

import "time"

// Receipt is an immutable point-of-sale record. Number is the store-scoped
// sequential identifier (REC-NNN). Line items are never edited after
// creation; deletion reverses the stock decrement and removes the rows.
type Receipt struct {
	ID               int64     `json:"id" db:"id"`
	StoreID          int64     `json:"store_id" db:"store_id"`
	Number           string    `json:"number" db:"number"`
	UserID           int64     `json:"user_id" db:"user_id"`
	PaymentMethod    string    `json:"payment_method" db:"payment_method"` // cash, card, transfer, other
	Status           string    `json:"status" db:"status"`                 // pending, completed, cancelled
	Subtotal         float64   `json:"subtotal" db:"subtotal"`
	CommissionRate   float64   `json:"commission_rate" db:"commission_rate"`
	CommissionAmount float64   `json:"commission_amount" db:"commission_amount"`
	Total            float64   `json:"total" db:"total"`
	Notes            *string   `json:"notes,omitempty" db:"notes"`
	IsArchived       bool      `json:"is_archived" db:"is_archived"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`

	Items []ReceiptItem `json:"items,omitempty"`
}

// ReceiptItem is one line of a receipt. UnitPrice is snapshotted from the
// item at creation time and never re-read from the live item.
type ReceiptItem struct {
	ID        int64     `json:"id" db:"id"`
	ReceiptID int64     `json:"receipt_id" db:"receipt_id"`
	ItemID    int64     `json:"item_id" db:"item_id"`
	ItemName  string    `json:"item_name" db:"item_name"`
	Quantity  int       `json:"quantity" db:"quantity"`
	UnitPrice float64   `json:"unit_price" db:"unit_price"`
	LineTotal float64   `json:"line_total" db:"line_total"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ReceiptFilters defines the available filters for querying receipts.
type ReceiptFilters struct {
	UserID        *int64  `form:"user_id"`
	Status        *string `form:"status"`
	PaymentMethod *string `form:"payment_method"`
	Date          *string `form:"date"` // Expected format YYYY-MM-DD
	Page          int     `form:"page"`
	PageSize      int     `form:"page_size"`
}
