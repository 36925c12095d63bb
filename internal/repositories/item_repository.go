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

// ItemRepository defines the interface for inventory item database operations.
//
// Stock is only ever changed through UpdateStock's atomic delta so concurrent
// receipt creation and deletion cannot lose updates. Negative stock is a
// permitted state, never rejected here.
type ItemRepository interface {
	CreateItem(executor SQLExecutor, item *models.Item) (int64, error)
	GetItemByID(storeID, itemID int64) (*models.Item, error)
	GetItems(storeID int64, category *string, page, pageSize int) ([]models.Item, int, error)
	UpdateItem(executor SQLExecutor, item *models.Item) error
	DeactivateItem(executor SQLExecutor, storeID, itemID int64) error

	// UpdateStock applies a signed delta and returns the new stock level.
	UpdateStock(executor SQLExecutor, itemID int64, delta int) (int, error)
	// GetItemForUpdate loads an active item with a row lock inside the
	// caller's transaction, used to snapshot the unit price.
	GetItemForUpdate(executor SQLExecutor, storeID, itemID int64) (*models.Item, error)

	CreateStockAdjustment(executor SQLExecutor, adj *models.StockAdjustment) (int64, error)
	GetStockAdjustmentsByItemID(itemID int64) ([]models.StockAdjustment, error)
}

type itemRepository struct {
	db *sql.DB
}

// NewItemRepository creates a new instance of ItemRepository.
func NewItemRepository(db *sql.DB) ItemRepository {
	return &itemRepository{db: db}
}

const itemColumns = `id, store_id, name, sku, category, cost_price, sale_price, stock, is_active, created_at, updated_at`

func scanItem(row interface{ Scan(...interface{}) error }, i *models.Item) error {
	return row.Scan(
		&i.ID, &i.StoreID, &i.Name, &i.SKU, &i.Category, &i.CostPrice, &i.SalePrice,
		&i.Stock, &i.IsActive, &i.CreatedAt, &i.UpdatedAt,
	)
}

func (r *itemRepository) CreateItem(executor SQLExecutor, item *models.Item) (int64, error) {
	query := `INSERT INTO items (store_id, name, sku, category, cost_price, sale_price, stock, is_active, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, $8, $8)
	          RETURNING id`
	err := executor.QueryRow(query,
		item.StoreID, item.Name, item.SKU, item.Category, item.CostPrice, item.SalePrice, item.Stock, time.Now(),
	).Scan(&item.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return 0, fmt.Errorf("%w: item SKU already exists (constraint: %s)", ErrDuplicateKey, pqErr.Constraint)
		}
		return 0, fmt.Errorf("%w: creating item: %v", ErrDatabaseError, err)
	}
	return item.ID, nil
}

func (r *itemRepository) GetItemByID(storeID, itemID int64) (*models.Item, error) {
	item := &models.Item{}
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1 AND store_id = $2 AND is_active = TRUE`
	err := scanItem(r.db.QueryRow(query, itemID, storeID), item)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting item by ID %d: %v", ErrDatabaseError, itemID, err)
	}
	return item, nil
}

func (r *itemRepository) GetItems(storeID int64, category *string, page, pageSize int) ([]models.Item, int, error) {
	items := []models.Item{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + itemColumns + `, COUNT(*) OVER() AS total_count
	          FROM items WHERE store_id = $1 AND is_active = TRUE`)

	args := []interface{}{storeID}
	argCounter := 2
	if category != nil && *category != "" {
		queryBuilder.WriteString(fmt.Sprintf(" AND category = $%d", argCounter))
		args = append(args, *category)
		argCounter++
	}
	queryBuilder.WriteString(" ORDER BY name")
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCounter, argCounter+1))
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.db.Query(queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: querying items: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var i models.Item
		if err := rows.Scan(
			&i.ID, &i.StoreID, &i.Name, &i.SKU, &i.Category, &i.CostPrice, &i.SalePrice,
			&i.Stock, &i.IsActive, &i.CreatedAt, &i.UpdatedAt, &totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("%w: scanning item: %v", ErrDatabaseError, err)
		}
		items = append(items, i)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating item rows: %v", ErrDatabaseError, err)
	}
	return items, totalCount, nil
}

func (r *itemRepository) UpdateItem(executor SQLExecutor, item *models.Item) error {
	query := `UPDATE items SET name = $1, sku = $2, category = $3, cost_price = $4, sale_price = $5, updated_at = $6
	          WHERE id = $7 AND store_id = $8 AND is_active = TRUE`
	result, err := executor.Exec(query,
		item.Name, item.SKU, item.Category, item.CostPrice, item.SalePrice, time.Now(), item.ID, item.StoreID,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return fmt.Errorf("%w: item SKU already exists (constraint: %s)", ErrDuplicateKey, pqErr.Constraint)
		}
		return fmt.Errorf("%w: updating item ID %d: %v", ErrDatabaseError, item.ID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *itemRepository) DeactivateItem(executor SQLExecutor, storeID, itemID int64) error {
	query := `UPDATE items SET is_active = FALSE, updated_at = $1 WHERE id = $2 AND store_id = $3 AND is_active = TRUE`
	result, err := executor.Exec(query, time.Now(), itemID, storeID)
	if err != nil {
		return fmt.Errorf("%w: deactivating item ID %d: %v", ErrDatabaseError, itemID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *itemRepository) UpdateStock(executor SQLExecutor, itemID int64, delta int) (int, error) {
	var newStock int
	query := `UPDATE items SET stock = stock + $1, updated_at = $2 WHERE id = $3 RETURNING stock`
	err := executor.QueryRow(query, delta, time.Now(), itemID).Scan(&newStock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("%w: updating stock for item ID %d: %v", ErrDatabaseError, itemID, err)
	}
	return newStock, nil
}

func (r *itemRepository) GetItemForUpdate(executor SQLExecutor, storeID, itemID int64) (*models.Item, error) {
	item := &models.Item{}
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1 AND store_id = $2 AND is_active = TRUE FOR UPDATE`
	err := scanItem(executor.QueryRow(query, itemID, storeID), item)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: locking item ID %d: %v", ErrDatabaseError, itemID, err)
	}
	return item, nil
}

func (r *itemRepository) CreateStockAdjustment(executor SQLExecutor, adj *models.StockAdjustment) (int64, error) {
	query := `INSERT INTO stock_adjustments (item_id, user_id, delta, reason, created_at)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING id`
	if adj.CreatedAt.IsZero() {
		adj.CreatedAt = time.Now()
	}
	err := executor.QueryRow(query, adj.ItemID, adj.UserID, adj.Delta, adj.Reason, adj.CreatedAt).Scan(&adj.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: creating stock adjustment for item ID %d: %v", ErrDatabaseError, adj.ItemID, err)
	}
	return adj.ID, nil
}

func (r *itemRepository) GetStockAdjustmentsByItemID(itemID int64) ([]models.StockAdjustment, error) {
	adjustments := []models.StockAdjustment{}
	query := `SELECT id, item_id, user_id, delta, reason, created_at
	          FROM stock_adjustments WHERE item_id = $1 ORDER BY id DESC`
	rows, err := r.db.Query(query, itemID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying stock adjustments for item ID %d: %v", ErrDatabaseError, itemID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var a models.StockAdjustment
		if err := rows.Scan(&a.ID, &a.ItemID, &a.UserID, &a.Delta, &a.Reason, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scanning stock adjustment for item ID %d: %v", ErrDatabaseError, itemID, err)
		}
		adjustments = append(adjustments, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating stock adjustment rows for item ID %d: %v", ErrDatabaseError, itemID, err)
	}
	return adjustments, nil
}
