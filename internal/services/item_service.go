package services

import (
	"errors"
	"fmt"

	"fixpoint_backend/internal/models"
	"fixpoint_backend/internal/repositories"
)

var ErrSKUExists = errors.New("item SKU already exists")

// --- Item DTOs ---

type CreateItemRequest struct {
	Name      string  `json:"name" binding:"required"`
	SKU       *string `json:"sku"`
	Category  *string `json:"category"`
	CostPrice float64 `json:"cost_price"`
	SalePrice float64 `json:"sale_price" binding:"required,gt=0"`
	Stock     int     `json:"stock"`
}

type UpdateItemRequest struct {
	Name      *string  `json:"name"`
	SKU       *string  `json:"sku"`
	Category  *string  `json:"category"`
	CostPrice *float64 `json:"cost_price"`
	SalePrice *float64 `json:"sale_price"`
}

// AdjustStockRequest applies a manual signed stock correction.
type AdjustStockRequest struct {
	Delta  int     `json:"delta" binding:"required"`
	Reason *string `json:"reason"`
}

// --- ItemService Interface ---

type ItemService interface {
	CreateItem(storeID int64, req CreateItemRequest) (*models.Item, error)
	GetItemByID(storeID, itemID int64) (*models.Item, error)
	GetItems(storeID int64, category *string, page, pageSize int) ([]models.Item, int, error)
	UpdateItem(storeID, itemID int64, req UpdateItemRequest) (*models.Item, error)
	DeleteItem(storeID, itemID int64) error
	// AdjustStock applies a manual delta and records a stock adjustment row.
	// Both commit together. Negative resulting stock is permitted.
	AdjustStock(storeID, itemID, actingUserID int64, req AdjustStockRequest) (*models.Item, error)
	GetStockAdjustments(storeID, itemID int64) ([]models.StockAdjustment, error)
}

// --- itemService Implementation ---

type itemService struct {
	itemRepo repositories.ItemRepository
	tx       TxRunner
}

// NewItemService creates a new instance of ItemService.
func NewItemService(repo repositories.ItemRepository, tx TxRunner) ItemService {
	return &itemService{itemRepo: repo, tx: tx}
}

func (s *itemService) CreateItem(storeID int64, req CreateItemRequest) (*models.Item, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("%w: item name cannot be empty", ErrValidation)
	}
	if req.SalePrice <= 0 {
		return nil, fmt.Errorf("%w: sale price must be positive", ErrValidation)
	}

	item := &models.Item{
		StoreID:   storeID,
		Name:      req.Name,
		SKU:       req.SKU,
		Category:  req.Category,
		CostPrice: req.CostPrice,
		SalePrice: req.SalePrice,
		Stock:     req.Stock,
	}
	err := s.tx.WithinTx(func(tx repositories.SQLExecutor) error {
		_, err := s.itemRepo.CreateItem(tx, item)
		return err
	})
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrSKUExists
		}
		return nil, fmt.Errorf("failed to create item in repository: %w", err)
	}
	return s.itemRepo.GetItemByID(storeID, item.ID)
}

func (s *itemService) GetItemByID(storeID, itemID int64) (*models.Item, error) {
	item, err := s.itemRepo.GetItemByID(storeID, itemID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get item by ID: %w", err)
	}
	return item, nil
}

func (s *itemService) GetItems(storeID int64, category *string, page, pageSize int) ([]models.Item, int, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 10
	}
	items, totalCount, err := s.itemRepo.GetItems(storeID, category, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get items: %w", err)
	}
	return items, totalCount, nil
}

func (s *itemService) UpdateItem(storeID, itemID int64, req UpdateItemRequest) (*models.Item, error) {
	item, err := s.itemRepo.GetItemByID(storeID, itemID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to find item for update: %w", err)
	}

	if req.Name != nil {
		item.Name = *req.Name
	}
	if req.SKU != nil {
		item.SKU = req.SKU
	}
	if req.Category != nil {
		item.Category = req.Category
	}
	if req.CostPrice != nil {
		item.CostPrice = *req.CostPrice
	}
	if req.SalePrice != nil {
		if *req.SalePrice <= 0 {
			return nil, fmt.Errorf("%w: sale price must be positive", ErrValidation)
		}
		item.SalePrice = *req.SalePrice
	}

	err = s.tx.WithinTx(func(tx repositories.SQLExecutor) error {
		return s.itemRepo.UpdateItem(tx, item)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrSKUExists
		}
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to update item in repository: %w", err)
	}
	return s.itemRepo.GetItemByID(storeID, itemID)
}

func (s *itemService) DeleteItem(storeID, itemID int64) error {
	err := s.tx.WithinTx(func(tx repositories.SQLExecutor) error {
		return s.itemRepo.DeactivateItem(tx, storeID, itemID)
	})
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrItemNotFound
	}
	return err
}

func (s *itemService) AdjustStock(storeID, itemID, actingUserID int64, req AdjustStockRequest) (*models.Item, error) {
	if req.Delta == 0 {
		return nil, fmt.Errorf("%w: stock delta cannot be zero", ErrValidation)
	}

	err := s.tx.WithinTx(func(tx repositories.SQLExecutor) error {
		if _, err := s.itemRepo.GetItemForUpdate(tx, storeID, itemID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrItemNotFound
			}
			return fmt.Errorf("failed to lock item for adjustment: %w", err)
		}
		if _, err := s.itemRepo.UpdateStock(tx, itemID, req.Delta); err != nil {
			return fmt.Errorf("failed to adjust stock: %w", err)
		}
		adj := &models.StockAdjustment{ItemID: itemID, UserID: actingUserID, Delta: req.Delta, Reason: req.Reason}
		if _, err := s.itemRepo.CreateStockAdjustment(tx, adj); err != nil {
			return fmt.Errorf("failed to record stock adjustment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.itemRepo.GetItemByID(storeID, itemID)
}

func (s *itemService) GetStockAdjustments(storeID, itemID int64) ([]models.StockAdjustment, error) {
	if _, err := s.itemRepo.GetItemByID(storeID, itemID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to find item: %w", err)
	}
	adjustments, err := s.itemRepo.GetStockAdjustmentsByItemID(itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get stock adjustments: %w", err)
	}
	return adjustments, nil
}
