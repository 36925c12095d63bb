package services

import (
	"errors"
	"fmt"

	"fixpoint_backend/internal/models"
	"fixpoint_backend/internal/repositories"
)

// Custom Errors
var (
	ErrReceiptNotFound      = errors.New("receipt not found")
	ErrItemNotFound         = errors.New("item not found or not available")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrInvalidReceiptStatus = errors.New("invalid receipt status")
)

// Payment methods and receipt statuses, persisted verbatim.
const (
	PaymentCash     = "cash"
	PaymentCard     = "card"
	PaymentTransfer = "transfer"
	PaymentOther    = "other"

	ReceiptPending   = "pending"
	ReceiptCompleted = "completed"
	ReceiptCancelled = "cancelled"
)

// --- Data Transfer Objects (DTOs) ---

// ReceiptLineRequest is one line of a new receipt.
type ReceiptLineRequest struct {
	ItemID   int64 `json:"item_id" binding:"required"`
	Quantity int   `json:"quantity" binding:"required,gt=0"`
}

// CreateReceiptRequest is used for creating a new sales receipt.
type CreateReceiptRequest struct {
	PaymentMethod  string               `json:"payment_method" binding:"required"`
	Lines          []ReceiptLineRequest `json:"lines" binding:"required,dive"`
	CommissionRate float64              `json:"commission_rate"`
	Notes          *string              `json:"notes"`
}

// UpdateReceiptStatusRequest moves a receipt between its soft statuses.
type UpdateReceiptStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// StockWarning flags a line whose committed quantity drove the item's stock
// negative. Advisory only: the receipt still commits.
type StockWarning struct {
	ItemID   int64  `json:"item_id"`
	ItemName string `json:"item_name"`
	NewStock int    `json:"new_stock"`
}

// --- ReceiptService Interface ---

type ReceiptService interface {
	CreateReceipt(storeID, userID int64, req CreateReceiptRequest) (*models.Receipt, []StockWarning, error)
	GetReceipts(storeID int64, filters models.ReceiptFilters) ([]models.Receipt, int, error)
	GetReceiptByID(storeID, receiptID int64) (*models.Receipt, error)
	UpdateReceiptStatus(storeID, receiptID int64, req UpdateReceiptStatusRequest) (*models.Receipt, error)
	ArchiveReceipt(storeID, receiptID int64) error
	DeleteReceipt(storeID, receiptID int64) error
}

// --- receiptService Implementation ---

type receiptService struct {
	receiptRepo repositories.ReceiptRepository
	itemRepo    repositories.ItemRepository
	userRepo    repositories.UserRepository
	seqRepo     repositories.SequenceRepository
	tx          TxRunner
}

// NewReceiptService creates a new instance of ReceiptService.
func NewReceiptService(
	rr repositories.ReceiptRepository,
	ir repositories.ItemRepository,
	ur repositories.UserRepository,
	sr repositories.SequenceRepository,
	tx TxRunner,
) ReceiptService {
	return &receiptService{
		receiptRepo: rr,
		itemRepo:    ir,
		userRepo:    ur,
		seqRepo:     sr,
		tx:          tx,
	}
}

func isValidPaymentMethod(m string) bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentTransfer, PaymentOther:
		return true
	default:
		return false
	}
}

func isValidReceiptStatus(s string) bool {
	switch s {
	case ReceiptPending, ReceiptCompleted, ReceiptCancelled:
		return true
	default:
		return false
	}
}

// formatReceiptNumber builds the store-scoped sequential receipt number.
func formatReceiptNumber(seq int64) string {
	return fmt.Sprintf("REC-%03d", seq)
}

// calcReceiptTotals derives the receipt's money fields from its line totals
// and the commission rate (a percentage).
func calcReceiptTotals(lineTotals []float64, commissionRate float64) (subtotal, commission, total float64) {
	for _, lt := range lineTotals {
		subtotal += lt
	}
	commission = subtotal * commissionRate / 100
	total = subtotal - commission
	return subtotal, commission, total
}

// --- Method Implementations ---

// CreateReceipt creates the receipt, its line rows and the stock decrement of
// every referenced item as a single all-or-nothing unit. Unit prices are
// snapshotted from the live item at submission time. Stock is allowed to go
// negative; such lines come back as advisory warnings.
func (s *receiptService) CreateReceipt(storeID, userID int64, req CreateReceiptRequest) (*models.Receipt, []StockWarning, error) {
	if len(req.Lines) == 0 {
		return nil, nil, fmt.Errorf("%w: receipt must have at least one line item", ErrValidation)
	}
	if !isValidPaymentMethod(req.PaymentMethod) {
		return nil, nil, fmt.Errorf("%w: %s", ErrInvalidPaymentMethod, req.PaymentMethod)
	}
	if req.CommissionRate < 0 || req.CommissionRate > 100 {
		return nil, nil, fmt.Errorf("%w: commission rate must be between 0 and 100", ErrValidation)
	}
	for _, line := range req.Lines {
		if line.Quantity < 1 {
			return nil, nil, fmt.Errorf("%w: quantity for item ID %d must be at least 1", ErrValidation, line.ItemID)
		}
	}

	var receipt *models.Receipt
	var warnings []StockWarning

	err := s.tx.WithinTx(func(tx repositories.SQLExecutor) error {
		ok, err := s.userRepo.IsActiveStoreMember(tx, userID, storeID)
		if err != nil {
			return fmt.Errorf("failed to verify acting user: %w", err)
		}
		if !ok {
			return ErrUnknownActor
		}

		seq, err := s.seqRepo.NextValue(tx, storeID, repositories.SequenceReceipt, "")
		if err != nil {
			return fmt.Errorf("failed to generate receipt number: %w", err)
		}

		itemsToCreate := make([]models.ReceiptItem, 0, len(req.Lines))
		lineTotals := make([]float64, 0, len(req.Lines))

		for _, line := range req.Lines {
			item, err := s.itemRepo.GetItemForUpdate(tx, storeID, line.ItemID)
			if err != nil {
				if errors.Is(err, repositories.ErrNotFound) {
					return fmt.Errorf("%w: item ID %d", ErrItemNotFound, line.ItemID)
				}
				return fmt.Errorf("failed to fetch item %d: %w", line.ItemID, err)
			}

			newStock, err := s.itemRepo.UpdateStock(tx, line.ItemID, -line.Quantity)
			if err != nil {
				return fmt.Errorf("failed to decrement stock for item %s (ID: %d): %w", item.Name, line.ItemID, err)
			}
			if newStock < 0 {
				warnings = append(warnings, StockWarning{ItemID: item.ID, ItemName: item.Name, NewStock: newStock})
			}

			lineTotal := item.SalePrice * float64(line.Quantity)
			lineTotals = append(lineTotals, lineTotal)
			itemsToCreate = append(itemsToCreate, models.ReceiptItem{
				ItemID:    item.ID,
				ItemName:  item.Name,
				Quantity:  line.Quantity,
				UnitPrice: item.SalePrice,
				LineTotal: lineTotal,
			})
		}

		subtotal, commission, total := calcReceiptTotals(lineTotals, req.CommissionRate)
		receipt = &models.Receipt{
			StoreID:          storeID,
			Number:           formatReceiptNumber(seq),
			UserID:           userID,
			PaymentMethod:    req.PaymentMethod,
			Status:           ReceiptPending,
			Subtotal:         subtotal,
			CommissionRate:   req.CommissionRate,
			CommissionAmount: commission,
			Total:            total,
			Notes:            req.Notes,
		}
		if _, err := s.receiptRepo.CreateReceipt(tx, receipt); err != nil {
			return fmt.Errorf("failed to create receipt record: %w", err)
		}

		for i := range itemsToCreate {
			itemsToCreate[i].ReceiptID = receipt.ID
			if _, err := s.receiptRepo.CreateReceiptItem(tx, &itemsToCreate[i]); err != nil {
				return fmt.Errorf("failed to create receipt item (item_id: %d): %w", itemsToCreate[i].ItemID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	full, err := s.GetReceiptByID(storeID, receipt.ID)
	if err != nil {
		return nil, nil, err
	}
	return full, warnings, nil
}

func (s *receiptService) GetReceipts(storeID int64, filters models.ReceiptFilters) ([]models.Receipt, int, error) {
	receipts, totalCount, err := s.receiptRepo.GetReceipts(storeID, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get receipts: %w", err)
	}
	return receipts, totalCount, nil
}

func (s *receiptService) GetReceiptByID(storeID, receiptID int64) (*models.Receipt, error) {
	receipt, err := s.receiptRepo.GetReceiptByID(storeID, receiptID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrReceiptNotFound
		}
		return nil, fmt.Errorf("failed to get receipt from repository: %w", err)
	}
	items, err := s.receiptRepo.GetReceiptItemsByReceiptID(receiptID)
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt items: %w", err)
	}
	receipt.Items = items
	return receipt, nil
}

// UpdateReceiptStatus moves a pending receipt to completed or cancelled.
// Completed and cancelled are final.
func (s *receiptService) UpdateReceiptStatus(storeID, receiptID int64, req UpdateReceiptStatusRequest) (*models.Receipt, error) {
	if !isValidReceiptStatus(req.Status) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidReceiptStatus, req.Status)
	}

	receipt, err := s.receiptRepo.GetReceiptByID(storeID, receiptID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrReceiptNotFound
		}
		return nil, fmt.Errorf("failed to fetch receipt for status update: %w", err)
	}
	if receipt.Status != ReceiptPending {
		return nil, fmt.Errorf("%w: receipt is already %s", ErrInvalidReceiptStatus, receipt.Status)
	}
	if req.Status == ReceiptPending {
		return nil, fmt.Errorf("%w: receipt is already pending", ErrInvalidReceiptStatus)
	}

	err = s.tx.WithinTx(func(tx repositories.SQLExecutor) error {
		return s.receiptRepo.UpdateReceiptStatus(tx, storeID, receiptID, req.Status)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrReceiptNotFound
		}
		return nil, err
	}
	return s.GetReceiptByID(storeID, receiptID)
}

// ArchiveReceipt hides a receipt from listings without reversing its stock
// effect.
func (s *receiptService) ArchiveReceipt(storeID, receiptID int64) error {
	err := s.tx.WithinTx(func(tx repositories.SQLExecutor) error {
		return s.receiptRepo.ArchiveReceipt(tx, storeID, receiptID)
	})
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrReceiptNotFound
	}
	return err
}

// DeleteReceipt reverses the receipt's effect: stock for every line is
// incremented back by the original quantity and the receipt with its items is
// removed, all in one atomic unit.
func (s *receiptService) DeleteReceipt(storeID, receiptID int64) error {
	receipt, err := s.receiptRepo.GetReceiptByID(storeID, receiptID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrReceiptNotFound
		}
		return fmt.Errorf("failed to fetch receipt for deletion: %w", err)
	}

	items, err := s.receiptRepo.GetReceiptItemsByReceiptID(receipt.ID)
	if err != nil {
		return fmt.Errorf("failed to fetch receipt items for deletion: %w", err)
	}

	return s.tx.WithinTx(func(tx repositories.SQLExecutor) error {
		for _, item := range items {
			if _, err := s.itemRepo.UpdateStock(tx, item.ItemID, item.Quantity); err != nil {
				return fmt.Errorf("failed to return stock for item ID %d: %w", item.ItemID, err)
			}
		}
		if _, err := s.receiptRepo.DeleteReceiptItemsByReceiptID(tx, receipt.ID); err != nil {
			return fmt.Errorf("failed to delete receipt items: %w", err)
		}
		if _, err := s.receiptRepo.DeleteReceipt(tx, storeID, receipt.ID); err != nil {
			return fmt.Errorf("failed to delete receipt: %w", err)
		}
		return nil
	})
}
