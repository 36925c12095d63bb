package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"fixpoint_backend/internal/models"

	"github.com/lib/pq"
)

// ClientRepository defines the interface for client-related database operations.
//
// The visit/spend/tag triple is written from two entry points (order creation
// increments visits; delivery updates spend and tag), so both paths go through
// single-statement or row-locked updates here rather than read-modify-write in
// the service.
type ClientRepository interface {
	CreateClient(executor SQLExecutor, client *models.Client) (int64, error)
	GetClientByID(storeID, clientID int64) (*models.Client, error)
	GetClients(storeID int64, page, pageSize int, searchTerm *string) ([]models.Client, int, error)
	UpdateClient(executor SQLExecutor, client *models.Client) error
	DeactivateClient(executor SQLExecutor, storeID, clientID int64) error

	// IncrementVisitCount bumps visit_count by exactly one. Returns
	// ErrNotFound when the client does not exist, is inactive, or belongs to
	// another store, so order creation fails as a whole.
	IncrementVisitCount(executor SQLExecutor, storeID, clientID int64) error

	// GetClientForUpdate loads the client row with a row lock inside the
	// caller's transaction.
	GetClientForUpdate(executor SQLExecutor, storeID, clientID int64) (*models.Client, error)

	// UpdateSpendAndTag writes the new cumulative spend and derived tag in a
	// single statement.
	UpdateSpendAndTag(executor SQLExecutor, clientID int64, totalSpent float64, tag string) error
}

type clientRepository struct {
	db *sql.DB
}

// NewClientRepository creates a new instance of ClientRepository.
func NewClientRepository(db *sql.DB) ClientRepository {
	return &clientRepository{db: db}
}

const clientColumns = `id, store_id, full_name, phone, email, visit_count, total_spent, tag, notes, is_active, created_at, updated_at`

func scanClient(row interface{ Scan(...interface{}) error }, c *models.Client) error {
	return row.Scan(
		&c.ID, &c.StoreID, &c.FullName, &c.Phone, &c.Email, &c.VisitCount,
		&c.TotalSpent, &c.Tag, &c.Notes, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
	)
}

func (r *clientRepository) CreateClient(executor SQLExecutor, client *models.Client) (int64, error) {
	query := `INSERT INTO clients (store_id, full_name, phone, email, visit_count, total_spent, tag, notes, is_active, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, 0, 0, $5, $6, TRUE, $7, $7)
	          RETURNING id`
	err := executor.QueryRow(query,
		client.StoreID, client.FullName, client.Phone, client.Email, client.Tag, client.Notes, time.Now(),
	).Scan(&client.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return 0, fmt.Errorf("%w: client phone already registered (constraint: %s)", ErrDuplicateKey, pqErr.Constraint)
		}
		return 0, fmt.Errorf("%w: creating client: %v", ErrDatabaseError, err)
	}
	return client.ID, nil
}

func (r *clientRepository) GetClientByID(storeID, clientID int64) (*models.Client, error) {
	client := &models.Client{}
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1 AND store_id = $2 AND is_active = TRUE`
	err := scanClient(r.db.QueryRow(query, clientID, storeID), client)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting client by ID %d: %v", ErrDatabaseError, clientID, err)
	}
	return client, nil
}

func (r *clientRepository) GetClients(storeID int64, page, pageSize int, searchTerm *string) ([]models.Client, int, error) {
	clients := []models.Client{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + clientColumns + `, COUNT(*) OVER() AS total_count
	          FROM clients WHERE store_id = $1 AND is_active = TRUE`)

	args := []interface{}{storeID}
	argCounter := 2
	if searchTerm != nil && *searchTerm != "" {
		queryBuilder.WriteString(fmt.Sprintf(" AND (full_name ILIKE $%d OR phone ILIKE $%d)", argCounter, argCounter))
		args = append(args, "%"+*searchTerm+"%")
		argCounter++
	}
	queryBuilder.WriteString(" ORDER BY full_name")
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCounter, argCounter+1))
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.db.Query(queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: querying clients: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var c models.Client
		if err := rows.Scan(
			&c.ID, &c.StoreID, &c.FullName, &c.Phone, &c.Email, &c.VisitCount,
			&c.TotalSpent, &c.Tag, &c.Notes, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("%w: scanning client: %v", ErrDatabaseError, err)
		}
		clients = append(clients, c)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating client rows: %v", ErrDatabaseError, err)
	}
	return clients, totalCount, nil
}

func (r *clientRepository) UpdateClient(executor SQLExecutor, client *models.Client) error {
	query := `UPDATE clients SET full_name = $1, phone = $2, email = $3, notes = $4, updated_at = $5
	          WHERE id = $6 AND store_id = $7 AND is_active = TRUE`
	result, err := executor.Exec(query,
		client.FullName, client.Phone, client.Email, client.Notes, time.Now(), client.ID, client.StoreID,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return fmt.Errorf("%w: client phone already registered (constraint: %s)", ErrDuplicateKey, pqErr.Constraint)
		}
		return fmt.Errorf("%w: updating client ID %d: %v", ErrDatabaseError, client.ID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *clientRepository) DeactivateClient(executor SQLExecutor, storeID, clientID int64) error {
	query := `UPDATE clients SET is_active = FALSE, updated_at = $1 WHERE id = $2 AND store_id = $3 AND is_active = TRUE`
	result, err := executor.Exec(query, time.Now(), clientID, storeID)
	if err != nil {
		return fmt.Errorf("%w: deactivating client ID %d: %v", ErrDatabaseError, clientID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *clientRepository) IncrementVisitCount(executor SQLExecutor, storeID, clientID int64) error {
	query := `UPDATE clients SET visit_count = visit_count + 1, updated_at = $1
	          WHERE id = $2 AND store_id = $3 AND is_active = TRUE`
	result, err := executor.Exec(query, time.Now(), clientID, storeID)
	if err != nil {
		return fmt.Errorf("%w: incrementing visit count for client ID %d: %v", ErrDatabaseError, clientID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected for visit count of client ID %d: %v", ErrDatabaseError, clientID, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *clientRepository) GetClientForUpdate(executor SQLExecutor, storeID, clientID int64) (*models.Client, error) {
	client := &models.Client{}
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1 AND store_id = $2 AND is_active = TRUE FOR UPDATE`
	err := scanClient(executor.QueryRow(query, clientID, storeID), client)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: locking client ID %d: %v", ErrDatabaseError, clientID, err)
	}
	return client, nil
}

func (r *clientRepository) UpdateSpendAndTag(executor SQLExecutor, clientID int64, totalSpent float64, tag string) error {
	query := `UPDATE clients SET total_spent = $1, tag = $2, updated_at = $3 WHERE id = $4`
	result, err := executor.Exec(query, totalSpent, tag, time.Now(), clientID)
	if err != nil {
		return fmt.Errorf("%w: updating spend and tag for client ID %d: %v", ErrDatabaseError, clientID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
