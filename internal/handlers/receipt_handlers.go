package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"fixpoint_backend/internal/models"
	"fixpoint_backend/internal/services"
	"fixpoint_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// ReceiptHandler holds the receipt service.
type ReceiptHandler struct {
	receiptService services.ReceiptService
}

// NewReceiptHandler creates a new ReceiptHandler.
func NewReceiptHandler(rs services.ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{receiptService: rs}
}

// CreateReceipt handles creation of a new sales receipt. Stock warnings are
// advisory and returned alongside the created receipt.
func (h *ReceiptHandler) CreateReceipt(c *gin.Context) {
	userID, storeID, ok := requestActor(c)
	if !ok {
		return
	}

	var req services.CreateReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "CreateReceipt: Failed to bind JSON")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	receipt, warnings, err := h.receiptService.CreateReceipt(storeID, userID, req)
	if err != nil {
		utils.LogError(err, "CreateReceipt: Error from receiptService.CreateReceipt")
		if errors.Is(err, services.ErrItemNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "One or more items not found or unavailable.", err.Error()))
		} else if errors.Is(err, services.ErrInvalidPaymentMethod) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid payment method.", err.Error()))
		} else if errors.Is(err, services.ErrUnknownActor) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusForbidden, utils.ErrCodeForbidden, "Acting user is not an active member of this store.", err.Error()))
		} else if errors.Is(err, services.ErrValidation) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Validation failed: "+err.Error(), err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to create receipt.", "Internal error"))
		}
		return
	}

	if warnings == nil {
		warnings = []services.StockWarning{}
	}
	c.JSON(http.StatusCreated, gin.H{
		"receipt":        receipt,
		"stock_warnings": warnings,
	})
}

// GetReceipts handles fetching receipts with filters.
func (h *ReceiptHandler) GetReceipts(c *gin.Context) {
	_, storeID, ok := requestActor(c)
	if !ok {
		return
	}

	var filters models.ReceiptFilters
	if userIDStr := c.Query("user_id"); userIDStr != "" {
		userID, err := strconv.ParseInt(userIDStr, 10, 64)
		if err != nil {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid user_id format.", err.Error()))
			return
		}
		filters.UserID = &userID
	}
	if status := c.Query("status"); status != "" {
		filters.Status = &status
	}
	if method := c.Query("payment_method"); method != "" {
		filters.PaymentMethod = &method
	}
	if date := c.Query("date"); date != "" {
		filters.Date = &date
	}
	filters.Page = 1
	if pageStr := c.Query("page"); pageStr != "" {
		page, err := strconv.Atoi(pageStr)
		if err != nil || page <= 0 {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid page format.", "page must be a positive integer"))
			return
		}
		filters.Page = page
	}
	filters.PageSize = 10
	if pageSizeStr := c.Query("page_size"); pageSizeStr != "" {
		pageSize, err := strconv.Atoi(pageSizeStr)
		if err != nil || pageSize <= 0 {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid page_size format.", "page_size must be a positive integer"))
			return
		}
		filters.PageSize = pageSize
	}

	receipts, totalCount, err := h.receiptService.GetReceipts(storeID, filters)
	if err != nil {
		utils.LogError(err, "GetReceipts: Error from receiptService.GetReceipts")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch receipts.", "Internal error"))
		return
	}

	if receipts == nil {
		receipts = []models.Receipt{}
	}
	c.JSON(http.StatusOK, gin.H{
		"data":      receipts,
		"total":     totalCount,
		"page":      filters.Page,
		"page_size": filters.PageSize,
	})
}

// GetReceiptByID handles fetching a single receipt with its line items.
func (h *ReceiptHandler) GetReceiptByID(c *gin.Context) {
	_, storeID, ok := requestActor(c)
	if !ok {
		return
	}
	receiptID, ok := pathID(c, "id")
	if !ok {
		return
	}

	receipt, err := h.receiptService.GetReceiptByID(storeID, receiptID)
	if err != nil {
		utils.LogError(err, "GetReceiptByID: Error from receiptService.GetReceiptByID for ID "+utils.Int64ToStr(receiptID))
		if errors.Is(err, services.ErrReceiptNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Receipt not found.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch receipt.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, receipt)
}

// UpdateReceiptStatus moves a pending receipt to completed or cancelled.
func (h *ReceiptHandler) UpdateReceiptStatus(c *gin.Context) {
	_, storeID, ok := requestActor(c)
	if !ok {
		return
	}
	receiptID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req services.UpdateReceiptStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "UpdateReceiptStatus: Failed to bind JSON for ID "+utils.Int64ToStr(receiptID))
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	receipt, err := h.receiptService.UpdateReceiptStatus(storeID, receiptID, req)
	if err != nil {
		utils.LogError(err, "UpdateReceiptStatus: Error from receiptService.UpdateReceiptStatus for ID "+utils.Int64ToStr(receiptID))
		if errors.Is(err, services.ErrReceiptNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Receipt not found.", err.Error()))
		} else if errors.Is(err, services.ErrInvalidReceiptStatus) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "Receipt status change not allowed.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to update receipt status.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, receipt)
}

// ArchiveReceipt hides a receipt from listings without reversing stock.
func (h *ReceiptHandler) ArchiveReceipt(c *gin.Context) {
	_, storeID, ok := requestActor(c)
	if !ok {
		return
	}
	receiptID, ok := pathID(c, "id")
	if !ok {
		return
	}

	err := h.receiptService.ArchiveReceipt(storeID, receiptID)
	if err != nil {
		utils.LogError(err, "ArchiveReceipt: Error from receiptService.ArchiveReceipt for ID "+utils.Int64ToStr(receiptID))
		if errors.Is(err, services.ErrReceiptNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Receipt not found to archive.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to archive receipt.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Receipt archived successfully"})
}

// DeleteReceipt removes a receipt and returns its stock.
func (h *ReceiptHandler) DeleteReceipt(c *gin.Context) {
	_, storeID, ok := requestActor(c)
	if !ok {
		return
	}
	receiptID, ok := pathID(c, "id")
	if !ok {
		return
	}

	err := h.receiptService.DeleteReceipt(storeID, receiptID)
	if err != nil {
		utils.LogError(err, "DeleteReceipt: Error from receiptService.DeleteReceipt for ID "+utils.Int64ToStr(receiptID))
		if errors.Is(err, services.ErrReceiptNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Receipt not found to delete.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to delete receipt.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Receipt deleted and stock returned successfully"})
}
