package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"fixpoint_backend/internal/models"
)

// OutboxRepository queues outbound customer notifications. Messages are
// enqueued after the transaction that produced them commits and are drained
// asynchronously by the dispatcher, so these methods never join another
// transaction.
type OutboxRepository interface {
	Enqueue(msg *models.OutboxMessage) error
	// FetchPending returns up to limit undelivered messages, oldest first.
	FetchPending(limit int) ([]models.OutboxMessage, error)
	MarkSent(id string, sentAt time.Time) error
	MarkFailed(id string, lastError string) error
}

type outboxRepository struct {
	db *sql.DB
}

// NewOutboxRepository creates a new instance of OutboxRepository.
func NewOutboxRepository(db *sql.DB) OutboxRepository {
	return &outboxRepository{db: db}
}

func (r *outboxRepository) Enqueue(msg *models.OutboxMessage) error {
	query := `INSERT INTO notification_outbox (id, store_id, phone, body, status, attempts, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, 0, $6, $6)`
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	_, err := r.db.Exec(query, msg.ID, msg.StoreID, msg.Phone, msg.Body, models.OutboxPending, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: enqueueing notification %s: %v", ErrDatabaseError, msg.ID, err)
	}
	return nil
}

func (r *outboxRepository) FetchPending(limit int) ([]models.OutboxMessage, error) {
	messages := []models.OutboxMessage{}
	query := `SELECT id, store_id, phone, body, status, attempts, last_error, sent_at, created_at, updated_at
	          FROM notification_outbox
	          WHERE status = $1
	          ORDER BY created_at
	          LIMIT $2`
	rows, err := r.db.Query(query, models.OutboxPending, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching pending notifications: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var m models.OutboxMessage
		if err := rows.Scan(
			&m.ID, &m.StoreID, &m.Phone, &m.Body, &m.Status, &m.Attempts,
			&m.LastError, &m.SentAt, &m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: scanning pending notification: %v", ErrDatabaseError, err)
		}
		messages = append(messages, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating pending notification rows: %v", ErrDatabaseError, err)
	}
	return messages, nil
}

func (r *outboxRepository) MarkSent(id string, sentAt time.Time) error {
	query := `UPDATE notification_outbox
	          SET status = $1, attempts = attempts + 1, sent_at = $2, updated_at = $2
	          WHERE id = $3`
	_, err := r.db.Exec(query, models.OutboxSent, sentAt, id)
	if err != nil {
		return fmt.Errorf("%w: marking notification %s sent: %v", ErrDatabaseError, id, err)
	}
	return nil
}

func (r *outboxRepository) MarkFailed(id string, lastError string) error {
	query := `UPDATE notification_outbox
	          SET status = $1, attempts = attempts + 1, last_error = $2, updated_at = $3
	          WHERE id = $4`
	_, err := r.db.Exec(query, models.OutboxFailed, lastError, time.Now(), id)
	if err != nil {
		return fmt.Errorf("%w: marking notification %s failed: %v", ErrDatabaseError, id, err)
	}
	return nil
}
