package models

import "time"

// Outbox message statuses.
const (
	OutboxPending = "pending"
	OutboxSent    = "sent"
	OutboxFailed  = "failed"
)

// OutboxMessage is a queued customer notification. Rows are enqueued after a
// core transaction commits and delivered asynchronously; delivery failure
// never affects the operation that produced the message.
type OutboxMessage struct {
	ID        string     `json:"id" db:"id"` // uuid
	StoreID   int64      `json:"store_id" db:"store_id"`
	Phone     string     `json:"phone" db:"phone"`
	Body      string     `json:"body" db:"body"`
	Status    string     `json:"status" db:"status"`
	Attempts  int        `json:"attempts" db:"attempts"`
	LastError *string    `json:"last_error,omitempty" db:"last_error"`
	SentAt    *time.Time `json:"sent_at,omitempty" db:"sent_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}
