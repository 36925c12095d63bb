package models

import "time"

// WorkOrder is one repair ticket. Code is the store-scoped human readable
// identifier (OT-YYYYMMDD-NNN), immutable once assigned. Status is mutated
// only through the order state machine.
type WorkOrder struct {
	ID              int64      `json:"id" db:"id"`
	StoreID         int64      `json:"store_id" db:"store_id"`
	Code            string     `json:"code" db:"code"`
	ClientID        int64      `json:"client_id" db:"client_id"`
	TechnicianID    *int64     `json:"technician_id,omitempty" db:"technician_id"`
	CreatedByID     int64      `json:"created_by_id" db:"created_by_id"`
	Device          string     `json:"device" db:"device"`
	ReportedFault   string     `json:"reported_fault" db:"reported_fault"`
	FaultTags       []string   `json:"fault_tags" db:"fault_tags"`
	AgreedPrice     *float64   `json:"agreed_price,omitempty" db:"agreed_price"`
	PartsCost       float64    `json:"parts_cost" db:"parts_cost"`
	WarrantyDays    *int       `json:"warranty_days,omitempty" db:"warranty_days"`
	Status          string     `json:"status" db:"status"`
	WarrantyStatus  string     `json:"warranty_status" db:"warranty_status"` // none, active
	WarrantyExpires *time.Time `json:"warranty_expires,omitempty" db:"warranty_expires"`
	IsActive        bool       `json:"is_active" db:"is_active"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`

	Client     *Client          `json:"client,omitempty"`
	Technician *User            `json:"technician,omitempty"`
	StatusLog  []OrderStatusLog `json:"status_log,omitempty"`
	Notes      []OrderNote      `json:"order_notes,omitempty"`
	Rating     *OrderRating     `json:"rating,omitempty"`
}

// OrderStatusLog is an append-only audit row recording a single status
// transition. Rows are never updated or deleted.
type OrderStatusLog struct {
	ID         int64     `json:"id" db:"id"`
	OrderID    int64     `json:"order_id" db:"order_id"`
	FromStatus string    `json:"from_status" db:"from_status"`
	ToStatus   string    `json:"to_status" db:"to_status"`
	Message    *string   `json:"message,omitempty" db:"message"`
	UserID     int64     `json:"user_id" db:"user_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// OrderNote is a free-text internal note on a work order.
type OrderNote struct {
	ID        int64     `json:"id" db:"id"`
	OrderID   int64     `json:"order_id" db:"order_id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Body      string    `json:"body" db:"body"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// OrderRating is the customer's rating of a finished repair. At most one per
// work order.
type OrderRating struct {
	ID        int64     `json:"id" db:"id"`
	OrderID   int64     `json:"order_id" db:"order_id"`
	Score     int       `json:"score" db:"score"` // 1..5
	Comment   *string   `json:"comment,omitempty" db:"comment"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// OrderFilters defines the available filters for querying work orders.
// Used by both the service and repository layers.
type OrderFilters struct {
	ClientID     *int64  `form:"client_id"`
	TechnicianID *int64  `form:"technician_id"`
	Status       *string `form:"status"`
	Date         *string `form:"date"` // Expected format YYYY-MM-DD
	Page         int     `form:"page"`
	PageSize     int     `form:"page_size"`
}
