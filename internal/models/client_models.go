package models

import "time"

// Client represents a customer of a store. VisitCount and TotalSpent are
// monotonically non-decreasing; Tag is derived from them by the tier engine
// and is recalculated only when one of the client's orders is delivered.
type Client struct {
	ID         int64     `json:"id" db:"id"`
	StoreID    int64     `json:"store_id" db:"store_id"`
	FullName   string    `json:"full_name" db:"full_name" binding:"required"`
	Phone      *string   `json:"phone,omitempty" db:"phone"`
	Email      *string   `json:"email,omitempty" db:"email"`
	VisitCount int       `json:"visit_count" db:"visit_count"`
	TotalSpent float64   `json:"total_spent" db:"total_spent"`
	Tag        string    `json:"tag" db:"tag"` // new, recurring, frequent, vip
	Notes      *string   `json:"notes,omitempty" db:"notes"`
	IsActive   bool      `json:"is_active" db:"is_active"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}
