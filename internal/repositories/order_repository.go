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

// OrderRepository defines the interface for work-order database operations.
type OrderRepository interface {
	CreateOrder(executor SQLExecutor, order *models.WorkOrder) (int64, error)
	GetOrderByID(storeID, orderID int64) (*models.WorkOrder, error)
	GetOrderForUpdate(executor SQLExecutor, storeID, orderID int64) (*models.WorkOrder, error)
	GetOrderByCode(code string) (*models.WorkOrder, error)
	GetOrders(storeID int64, filters models.OrderFilters) ([]models.WorkOrder, int, error)
	UpdateOrderFields(executor SQLExecutor, order *models.WorkOrder) error
	UpdateOrderStatus(executor SQLExecutor, orderID int64, newStatus string, warrantyStatus string, warrantyExpires *time.Time, updatedAt time.Time) error
	DeactivateOrder(executor SQLExecutor, storeID, orderID int64) error

	// Status log rows are append-only: created exactly once per transition,
	// never mutated or deleted.
	CreateStatusLog(executor SQLExecutor, entry *models.OrderStatusLog) (int64, error)
	GetStatusLogByOrderID(orderID int64) ([]models.OrderStatusLog, error)

	CreateNote(executor SQLExecutor, note *models.OrderNote) (int64, error)
	GetNotesByOrderID(orderID int64) ([]models.OrderNote, error)

	CreateRating(executor SQLExecutor, rating *models.OrderRating) (int64, error)
	GetRatingByOrderID(orderID int64) (*models.OrderRating, error)
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository.
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `id, store_id, code, client_id, technician_id, created_by_id, device, reported_fault,
	fault_tags, agreed_price, parts_cost, warranty_days, status, warranty_status, warranty_expires,
	is_active, created_at, updated_at`

func scanOrder(row interface{ Scan(...interface{}) error }, o *models.WorkOrder) error {
	return row.Scan(
		&o.ID, &o.StoreID, &o.Code, &o.ClientID, &o.TechnicianID, &o.CreatedByID, &o.Device, &o.ReportedFault,
		pq.Array(&o.FaultTags), &o.AgreedPrice, &o.PartsCost, &o.WarrantyDays, &o.Status, &o.WarrantyStatus,
		&o.WarrantyExpires, &o.IsActive, &o.CreatedAt, &o.UpdatedAt,
	)
}

// --- Order Methods ---

func (r *orderRepository) CreateOrder(executor SQLExecutor, order *models.WorkOrder) (int64, error) {
	query := `INSERT INTO work_orders
	            (store_id, code, client_id, technician_id, created_by_id, device, reported_fault,
	             fault_tags, agreed_price, parts_cost, warranty_days, status, warranty_status,
	             is_active, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, TRUE, $14, $14)
	          RETURNING id`

	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	err := executor.QueryRow(query,
		order.StoreID, order.Code, order.ClientID, order.TechnicianID, order.CreatedByID,
		order.Device, order.ReportedFault, pq.Array(order.FaultTags), order.AgreedPrice,
		order.PartsCost, order.WarrantyDays, order.Status, order.WarrantyStatus, order.CreatedAt,
	).Scan(&order.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			if pqErr.Code.Name() == "unique_violation" {
				return 0, fmt.Errorf("%w: order code '%s' already exists (constraint: %s)", ErrDuplicateKey, order.Code, pqErr.Constraint)
			}
			if pqErr.Code.Name() == "foreign_key_violation" {
				return 0, fmt.Errorf("%w: creating work order (constraint: %s): %v", ErrDatabaseError, pqErr.Constraint, err)
			}
		}
		return 0, fmt.Errorf("%w: creating work order: %v", ErrDatabaseError, err)
	}
	return order.ID, nil
}

func (r *orderRepository) GetOrderByID(storeID, orderID int64) (*models.WorkOrder, error) {
	order := &models.WorkOrder{}
	query := `SELECT ` + orderColumns + ` FROM work_orders
	          WHERE id = $1 AND store_id = $2 AND is_active = TRUE`
	err := scanOrder(r.db.QueryRow(query, orderID, storeID), order)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting work order by ID %d: %v", ErrDatabaseError, orderID, err)
	}
	return order, nil
}

// GetOrderForUpdate locks the order row for the rest of the enclosing
// transaction, so concurrent status transitions serialize instead of both
// passing validation against the same stale status.
func (r *orderRepository) GetOrderForUpdate(executor SQLExecutor, storeID, orderID int64) (*models.WorkOrder, error) {
	order := &models.WorkOrder{}
	query := `SELECT ` + orderColumns + ` FROM work_orders
	          WHERE id = $1 AND store_id = $2 AND is_active = TRUE
	          FOR UPDATE`
	err := scanOrder(executor.QueryRow(query, orderID, storeID), order)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: locking work order %d: %v", ErrDatabaseError, orderID, err)
	}
	return order, nil
}

// GetOrderByCode serves the public tracking page, so it is not store-scoped:
// the code itself carries the store's prefix sequence.
func (r *orderRepository) GetOrderByCode(code string) (*models.WorkOrder, error) {
	order := &models.WorkOrder{}
	query := `SELECT ` + orderColumns + ` FROM work_orders
	          WHERE code = $1 AND is_active = TRUE`
	err := scanOrder(r.db.QueryRow(query, code), order)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting work order by code %s: %v", ErrDatabaseError, code, err)
	}
	return order, nil
}

func (r *orderRepository) GetOrders(storeID int64, filters models.OrderFilters) ([]models.WorkOrder, int, error) {
	orders := []models.WorkOrder{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
        SELECT
            o.id, o.store_id, o.code, o.client_id, o.technician_id, o.created_by_id, o.device, o.reported_fault,
            o.fault_tags, o.agreed_price, o.parts_cost, o.warranty_days, o.status, o.warranty_status,
            o.warranty_expires, o.is_active, o.created_at, o.updated_at,
            c.full_name AS client_name, c.phone AS client_phone,
            u.full_name AS technician_name,
            COUNT(*) OVER() AS total_count
        FROM work_orders o
        LEFT JOIN clients c ON o.client_id = c.id
        LEFT JOIN users u ON o.technician_id = u.id
    `)

	conditions := []string{"o.store_id = $1", "o.is_active = TRUE"}
	args := []interface{}{storeID}
	argCounter := 2

	if filters.ClientID != nil {
		conditions = append(conditions, fmt.Sprintf("o.client_id = $%d", argCounter))
		args = append(args, *filters.ClientID)
		argCounter++
	}
	if filters.TechnicianID != nil {
		conditions = append(conditions, fmt.Sprintf("o.technician_id = $%d", argCounter))
		args = append(args, *filters.TechnicianID)
		argCounter++
	}
	if filters.Status != nil && *filters.Status != "" {
		conditions = append(conditions, fmt.Sprintf("o.status = $%d", argCounter))
		args = append(args, *filters.Status)
		argCounter++
	}
	if filters.Date != nil && *filters.Date != "" {
		parsedDate, err := time.Parse("2006-01-02", *filters.Date)
		if err == nil {
			startOfDay := time.Date(parsedDate.Year(), parsedDate.Month(), parsedDate.Day(), 0, 0, 0, 0, parsedDate.Location())
			endOfDay := startOfDay.AddDate(0, 0, 1).Add(-time.Nanosecond)
			conditions = append(conditions, fmt.Sprintf("o.created_at BETWEEN $%d AND $%d", argCounter, argCounter+1))
			args = append(args, startOfDay, endOfDay)
			argCounter += 2
		}
	}

	queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	queryBuilder.WriteString(" ORDER BY o.created_at DESC")

	if filters.PageSize > 0 {
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d", argCounter))
		args = append(args, filters.PageSize)
		argCounter++
		if filters.Page > 0 {
			offset := (filters.Page - 1) * filters.PageSize
			queryBuilder.WriteString(fmt.Sprintf(" OFFSET $%d", argCounter))
			args = append(args, offset)
		}
	}

	rows, err := r.db.Query(queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: querying work orders: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var o models.WorkOrder
		var clientName, clientPhone, technicianName sql.NullString

		err := rows.Scan(
			&o.ID, &o.StoreID, &o.Code, &o.ClientID, &o.TechnicianID, &o.CreatedByID, &o.Device, &o.ReportedFault,
			pq.Array(&o.FaultTags), &o.AgreedPrice, &o.PartsCost, &o.WarrantyDays, &o.Status, &o.WarrantyStatus,
			&o.WarrantyExpires, &o.IsActive, &o.CreatedAt, &o.UpdatedAt,
			&clientName, &clientPhone, &technicianName,
			&totalCount,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: scanning work order: %v", ErrDatabaseError, err)
		}

		client := models.Client{ID: o.ClientID}
		if clientName.Valid {
			client.FullName = clientName.String
		}
		if clientPhone.Valid {
			phone := clientPhone.String
			client.Phone = &phone
		}
		o.Client = &client

		if o.TechnicianID != nil {
			technician := models.User{ID: *o.TechnicianID}
			if technicianName.Valid {
				name := technicianName.String
				technician.FullName = &name
			}
			o.Technician = &technician
		}
		orders = append(orders, o)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating work order rows: %v", ErrDatabaseError, err)
	}
	return orders, totalCount, nil
}

func (r *orderRepository) UpdateOrderFields(executor SQLExecutor, order *models.WorkOrder) error {
	query := `UPDATE work_orders SET
	            device = $1, reported_fault = $2, fault_tags = $3, agreed_price = $4,
	            parts_cost = $5, warranty_days = $6, technician_id = $7, updated_at = $8
	          WHERE id = $9 AND store_id = $10 AND is_active = TRUE`
	result, err := executor.Exec(query,
		order.Device, order.ReportedFault, pq.Array(order.FaultTags), order.AgreedPrice,
		order.PartsCost, order.WarrantyDays, order.TechnicianID, time.Now(), order.ID, order.StoreID,
	)
	if err != nil {
		return fmt.Errorf("%w: updating work order ID %d: %v", ErrDatabaseError, order.ID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *orderRepository) UpdateOrderStatus(executor SQLExecutor, orderID int64, newStatus string, warrantyStatus string, warrantyExpires *time.Time, updatedAt time.Time) error {
	query := `UPDATE work_orders SET status = $1, warranty_status = $2, warranty_expires = $3, updated_at = $4 WHERE id = $5`
	result, err := executor.Exec(query, newStatus, warrantyStatus, warrantyExpires, updatedAt, orderID)
	if err != nil {
		return fmt.Errorf("%w: updating status for work order ID %d: %v", ErrDatabaseError, orderID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected for status update of work order ID %d: %v", ErrDatabaseError, orderID, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *orderRepository) DeactivateOrder(executor SQLExecutor, storeID, orderID int64) error {
	query := `UPDATE work_orders SET is_active = FALSE, updated_at = $1 WHERE id = $2 AND store_id = $3 AND is_active = TRUE`
	result, err := executor.Exec(query, time.Now(), orderID, storeID)
	if err != nil {
		return fmt.Errorf("%w: deactivating work order ID %d: %v", ErrDatabaseError, orderID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Status Log Methods ---

func (r *orderRepository) CreateStatusLog(executor SQLExecutor, entry *models.OrderStatusLog) (int64, error) {
	query := `INSERT INTO order_status_log (order_id, from_status, to_status, message, user_id, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING id`
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	err := executor.QueryRow(query,
		entry.OrderID, entry.FromStatus, entry.ToStatus, entry.Message, entry.UserID, entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: creating status log entry for order ID %d: %v", ErrDatabaseError, entry.OrderID, err)
	}
	return entry.ID, nil
}

func (r *orderRepository) GetStatusLogByOrderID(orderID int64) ([]models.OrderStatusLog, error) {
	entries := []models.OrderStatusLog{}
	query := `SELECT id, order_id, from_status, to_status, message, user_id, created_at
	          FROM order_status_log WHERE order_id = $1 ORDER BY id`
	rows, err := r.db.Query(query, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying status log for order ID %d: %v", ErrDatabaseError, orderID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var e models.OrderStatusLog
		if err := rows.Scan(&e.ID, &e.OrderID, &e.FromStatus, &e.ToStatus, &e.Message, &e.UserID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scanning status log entry for order ID %d: %v", ErrDatabaseError, orderID, err)
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating status log rows for order ID %d: %v", ErrDatabaseError, orderID, err)
	}
	return entries, nil
}

// --- Note Methods ---

func (r *orderRepository) CreateNote(executor SQLExecutor, note *models.OrderNote) (int64, error) {
	query := `INSERT INTO order_notes (order_id, user_id, body, created_at)
	          VALUES ($1, $2, $3, $4)
	          RETURNING id`
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now()
	}
	err := executor.QueryRow(query, note.OrderID, note.UserID, note.Body, note.CreatedAt).Scan(&note.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: creating note for order ID %d: %v", ErrDatabaseError, note.OrderID, err)
	}
	return note.ID, nil
}

func (r *orderRepository) GetNotesByOrderID(orderID int64) ([]models.OrderNote, error) {
	notes := []models.OrderNote{}
	query := `SELECT id, order_id, user_id, body, created_at FROM order_notes WHERE order_id = $1 ORDER BY id`
	rows, err := r.db.Query(query, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying notes for order ID %d: %v", ErrDatabaseError, orderID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var n models.OrderNote
		if err := rows.Scan(&n.ID, &n.OrderID, &n.UserID, &n.Body, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scanning note for order ID %d: %v", ErrDatabaseError, orderID, err)
		}
		notes = append(notes, n)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating note rows for order ID %d: %v", ErrDatabaseError, orderID, err)
	}
	return notes, nil
}

// --- Rating Methods ---

func (r *orderRepository) CreateRating(executor SQLExecutor, rating *models.OrderRating) (int64, error) {
	query := `INSERT INTO order_ratings (order_id, score, comment, created_at)
	          VALUES ($1, $2, $3, $4)
	          RETURNING id`
	if rating.CreatedAt.IsZero() {
		rating.CreatedAt = time.Now()
	}
	err := executor.QueryRow(query, rating.OrderID, rating.Score, rating.Comment, rating.CreatedAt).Scan(&rating.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return 0, fmt.Errorf("%w: order ID %d already rated (constraint: %s)", ErrDuplicateKey, rating.OrderID, pqErr.Constraint)
		}
		return 0, fmt.Errorf("%w: creating rating for order ID %d: %v", ErrDatabaseError, rating.OrderID, err)
	}
	return rating.ID, nil
}

func (r *orderRepository) GetRatingByOrderID(orderID int64) (*models.OrderRating, error) {
	rating := &models.OrderRating{}
	query := `SELECT id, order_id, score, comment, created_at FROM order_ratings WHERE order_id = $1`
	err := r.db.QueryRow(query, orderID).Scan(&rating.ID, &rating.OrderID, &rating.Score, &rating.Comment, &rating.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting rating for order ID %d: %v", ErrDatabaseError, orderID, err)
	}
	return rating, nil
}
