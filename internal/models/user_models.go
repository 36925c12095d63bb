package models

import "time"

// User represents a member of a store's staff. Every core operation that
// mutates data records the acting user.
type User struct {
	ID           int64     `json:"id" db:"id"`
	StoreID      int64     `json:"store_id" db:"store_id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Email        *string   `json:"email,omitempty" db:"email"`
	FullName     *string   `json:"full_name,omitempty" db:"full_name"`
	Role         string    `json:"role" db:"role"` // admin, technician
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Store is a tenant of the system. Every order, receipt, item and client is
// scoped to exactly one store.
type Store struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Phone     *string   `json:"phone,omitempty" db:"phone"`
	Address   *string   `json:"address,omitempty" db:"address"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Credentials for login request
type Credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegistrationPayload bootstraps a new store together with its first admin
// user, or adds a user to an existing store when StoreID is set.
type RegistrationPayload struct {
	Username  string  `json:"username" binding:"required"`
	Password  string  `json:"password" binding:"required"`
	Email     *string `json:"email,omitempty"`
	FullName  *string `json:"full_name,omitempty"`
	StoreID   *int64  `json:"store_id,omitempty"`
	StoreName *string `json:"store_name,omitempty"`
	Role      *string `json:"role,omitempty"` // defaults to technician for existing stores
}
