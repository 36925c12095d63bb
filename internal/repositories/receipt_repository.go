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

// ReceiptRepository defines the interface for receipt database operations.
// Receipts are written once, together with their items, and are never edited
// line by line afterwards.
type ReceiptRepository interface {
	CreateReceipt(executor SQLExecutor, receipt *models.Receipt) (int64, error)
	CreateReceiptItem(executor SQLExecutor, item *models.ReceiptItem) (int64, error)
	GetReceiptByID(storeID, receiptID int64) (*models.Receipt, error)
	GetReceiptItemsByReceiptID(receiptID int64) ([]models.ReceiptItem, error)
	GetReceipts(storeID int64, filters models.ReceiptFilters) ([]models.Receipt, int, error)
	UpdateReceiptStatus(executor SQLExecutor, storeID, receiptID int64, status string) error
	ArchiveReceipt(executor SQLExecutor, storeID, receiptID int64) error
	DeleteReceiptItemsByReceiptID(executor SQLExecutor, receiptID int64) (int64, error)
	DeleteReceipt(executor SQLExecutor, storeID, receiptID int64) (int64, error)
}

type receiptRepository struct {
	db *sql.DB
}

// NewReceiptRepository creates a new instance of ReceiptRepository.
func NewReceiptRepository(db *sql.DB) ReceiptRepository {
	return &receiptRepository{db: db}
}

const receiptColumns = `id, store_id, number, user_id, payment_method, status, subtotal,
	commission_rate, commission_amount, total, notes, is_archived, created_at, updated_at`

func scanReceipt(row interface{ Scan(...interface{}) error }, rc *models.Receipt) error {
	return row.Scan(
		&rc.ID, &rc.StoreID, &rc.Number, &rc.UserID, &rc.PaymentMethod, &rc.Status, &rc.Subtotal,
		&rc.CommissionRate, &rc.CommissionAmount, &rc.Total, &rc.Notes, &rc.IsArchived,
		&rc.CreatedAt, &rc.UpdatedAt,
	)
}

func (r *receiptRepository) CreateReceipt(executor SQLExecutor, receipt *models.Receipt) (int64, error) {
	query := `INSERT INTO receipts
	            (store_id, number, user_id, payment_method, status, subtotal,
	             commission_rate, commission_amount, total, notes, is_archived, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, FALSE, $11, $11)
	          RETURNING id`
	if receipt.CreatedAt.IsZero() {
		receipt.CreatedAt = time.Now()
	}
	err := executor.QueryRow(query,
		receipt.StoreID, receipt.Number, receipt.UserID, receipt.PaymentMethod, receipt.Status,
		receipt.Subtotal, receipt.CommissionRate, receipt.CommissionAmount, receipt.Total,
		receipt.Notes, receipt.CreatedAt,
	).Scan(&receipt.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return 0, fmt.Errorf("%w: receipt number '%s' already exists (constraint: %s)", ErrDuplicateKey, receipt.Number, pqErr.Constraint)
		}
		return 0, fmt.Errorf("%w: creating receipt: %v", ErrDatabaseError, err)
	}
	return receipt.ID, nil
}

func (r *receiptRepository) CreateReceiptItem(executor SQLExecutor, item *models.ReceiptItem) (int64, error) {
	query := `INSERT INTO receipt_items (receipt_id, item_id, item_name, quantity, unit_price, line_total, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          RETURNING id`
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	err := executor.QueryRow(query,
		item.ReceiptID, item.ItemID, item.ItemName, item.Quantity, item.UnitPrice, item.LineTotal, item.CreatedAt,
	).Scan(&item.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return 0, fmt.Errorf("%w: creating receipt item (constraint: %s): %v", ErrDatabaseError, pqErr.Constraint, err)
		}
		return 0, fmt.Errorf("%w: creating receipt item: %v", ErrDatabaseError, err)
	}
	return item.ID, nil
}

func (r *receiptRepository) GetReceiptByID(storeID, receiptID int64) (*models.Receipt, error) {
	receipt := &models.Receipt{}
	query := `SELECT ` + receiptColumns + ` FROM receipts WHERE id = $1 AND store_id = $2`
	err := scanReceipt(r.db.QueryRow(query, receiptID, storeID), receipt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting receipt by ID %d: %v", ErrDatabaseError, receiptID, err)
	}
	return receipt, nil
}

func (r *receiptRepository) GetReceiptItemsByReceiptID(receiptID int64) ([]models.ReceiptItem, error) {
	items := []models.ReceiptItem{}
	query := `SELECT id, receipt_id, item_id, item_name, quantity, unit_price, line_total, created_at
	          FROM receipt_items WHERE receipt_id = $1 ORDER BY id`
	rows, err := r.db.Query(query, receiptID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying receipt items for receipt ID %d: %v", ErrDatabaseError, receiptID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.ReceiptItem
		if err := rows.Scan(
			&item.ID, &item.ReceiptID, &item.ItemID, &item.ItemName,
			&item.Quantity, &item.UnitPrice, &item.LineTotal, &item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: scanning receipt item for receipt ID %d: %v", ErrDatabaseError, receiptID, err)
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating receipt item rows for receipt ID %d: %v", ErrDatabaseError, receiptID, err)
	}
	return items, nil
}

func (r *receiptRepository) GetReceipts(storeID int64, filters models.ReceiptFilters) ([]models.Receipt, int, error) {
	receipts := []models.Receipt{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + receiptColumns + `, COUNT(*) OVER() AS total_count
	          FROM receipts`)

	conditions := []string{"store_id = $1", "is_archived = FALSE"}
	args := []interface{}{storeID}
	argCounter := 2

	if filters.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argCounter))
		args = append(args, *filters.UserID)
		argCounter++
	}
	if filters.Status != nil && *filters.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argCounter))
		args = append(args, *filters.Status)
		argCounter++
	}
	if filters.PaymentMethod != nil && *filters.PaymentMethod != "" {
		conditions = append(conditions, fmt.Sprintf("payment_method = $%d", argCounter))
		args = append(args, *filters.PaymentMethod)
		argCounter++
	}
	if filters.Date != nil && *filters.Date != "" {
		parsedDate, err := time.Parse("2006-01-02", *filters.Date)
		if err == nil {
			startOfDay := time.Date(parsedDate.Year(), parsedDate.Month(), parsedDate.Day(), 0, 0, 0, 0, parsedDate.Location())
			endOfDay := startOfDay.AddDate(0, 0, 1).Add(-time.Nanosecond)
			conditions = append(conditions, fmt.Sprintf("created_at BETWEEN $%d AND $%d", argCounter, argCounter+1))
			args = append(args, startOfDay, endOfDay)
			argCounter += 2
		}
	}

	queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	queryBuilder.WriteString(" ORDER BY created_at DESC")

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
		return nil, 0, fmt.Errorf("%w: querying receipts: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var rc models.Receipt
		if err := rows.Scan(
			&rc.ID, &rc.StoreID, &rc.Number, &rc.UserID, &rc.PaymentMethod, &rc.Status, &rc.Subtotal,
			&rc.CommissionRate, &rc.CommissionAmount, &rc.Total, &rc.Notes, &rc.IsArchived,
			&rc.CreatedAt, &rc.UpdatedAt, &totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("%w: scanning receipt: %v", ErrDatabaseError, err)
		}
		receipts = append(receipts, rc)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating receipt rows: %v", ErrDatabaseError, err)
	}
	return receipts, totalCount, nil
}

func (r *receiptRepository) UpdateReceiptStatus(executor SQLExecutor, storeID, receiptID int64, status string) error {
	query := `UPDATE receipts SET status = $1, updated_at = $2 WHERE id = $3 AND store_id = $4`
	result, err := executor.Exec(query, status, time.Now(), receiptID, storeID)
	if err != nil {
		return fmt.Errorf("%w: updating status for receipt ID %d: %v", ErrDatabaseError, receiptID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *receiptRepository) ArchiveReceipt(executor SQLExecutor, storeID, receiptID int64) error {
	query := `UPDATE receipts SET is_archived = TRUE, updated_at = $1 WHERE id = $2 AND store_id = $3 AND is_archived = FALSE`
	result, err := executor.Exec(query, time.Now(), receiptID, storeID)
	if err != nil {
		return fmt.Errorf("%w: archiving receipt ID %d: %v", ErrDatabaseError, receiptID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *receiptRepository) DeleteReceiptItemsByReceiptID(executor SQLExecutor, receiptID int64) (int64, error) {
	query := `DELETE FROM receipt_items WHERE receipt_id = $1`
	result, err := executor.Exec(query, receiptID)
	if err != nil {
		return 0, fmt.Errorf("%w: deleting receipt items for receipt ID %d: %v", ErrDatabaseError, receiptID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: getting rows affected for deleting receipt items of receipt ID %d: %v", ErrDatabaseError, receiptID, err)
	}
	return rowsAffected, nil
}

func (r *receiptRepository) DeleteReceipt(executor SQLExecutor, storeID, receiptID int64) (int64, error) {
	query := `DELETE FROM receipts WHERE id = $1 AND store_id = $2`
	result, err := executor.Exec(query, receiptID, storeID)
	if err != nil {
		return 0, fmt.Errorf("%w: deleting receipt ID %d: %v", ErrDatabaseError, receiptID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: getting rows affected for deleting receipt ID %d: %v", ErrDatabaseError, receiptID, err)
	}
	if rowsAffected == 0 {
		return 0, ErrNotFound
	}
	return rowsAffected, nil
}
