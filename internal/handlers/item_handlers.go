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

// ItemHandler holds the inventory item service.
type ItemHandler struct {
	itemService services.ItemService
}

// NewItemHandler creates a new ItemHandler.
func NewItemHandler(is services.ItemService) *ItemHandler {
	return &ItemHandler{itemService: is}
}

// CreateItem handles creation of a new inventory item.
func (h *ItemHandler) CreateItem(c *gin.Context) {
	_, storeID, ok := requestActor(c)
	if !ok {
		return
	}

	var req services.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "CreateItem: Failed to bind JSON")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	item, err := h.itemService.CreateItem(storeID, req)
	if err != nil {
		utils.LogError(err, "CreateItem: Error from itemService.CreateItem")
		if errors.Is(err, services.ErrSKUExists) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "Item SKU already exists.", err.Error()))
		} else if errors.Is(err, services.ErrValidation) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Validation failed: "+err.Error(), err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to create item.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusCreated, item)
}

// GetItems handles fetching inventory items with pagination and category filter.
func (h *ItemHandler) GetItems(c *gin.Context) {
	_, storeID, ok := requestActor(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 10
	}

	var pCategory *string
	if category := c.Query("category"); category != "" {
		pCategory = &category
	}

	items, totalCount, err := h.itemService.GetItems(storeID, pCategory, page, pageSize)
	if err != nil {
		utils.LogError(err, "GetItems: Error from itemService.GetItems")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch items.", "Internal error"))
		return
	}

	if items == nil {
		items = []models.Item{}
	}
	c.JSON(http.StatusOK, gin.H{
		"data":      items,
		"total":     totalCount,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetItemByID handles fetching a single item by ID.
func (h *ItemHandler) GetItemByID(c *gin.Context) {
	_, storeID, ok := requestActor(c)
	if !ok {
		return
	}
	itemID, ok := pathID(c, "id")
	if !ok {
		return
	}

	item, err := h.itemService.GetItemByID(storeID, itemID)
	if err != nil {
		utils.LogError(err, "GetItemByID: Error from itemService.GetItemByID for ID "+utils.Int64ToStr(itemID))
		if errors.Is(err, services.ErrItemNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Item not found.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch item.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, item)
}

// UpdateItem handles updating an inventory item.
func (h *ItemHandler) UpdateItem(c *gin.Context) {
	_, storeID, ok := requestActor(c)
	if !ok {
		return
	}
	itemID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req services.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "UpdateItem: Failed to bind JSON for ID "+utils.Int64ToStr(itemID))
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	item, err := h.itemService.UpdateItem(storeID, itemID, req)
	if err != nil {
		utils.LogError(err, "UpdateItem: Error from itemService.UpdateItem for ID "+utils.Int64ToStr(itemID))
		if errors.Is(err, services.ErrItemNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Item not found to update.", err.Error()))
		} else if errors.Is(err, services.ErrSKUExists) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "Item SKU already exists.", err.Error()))
		} else if errors.Is(err, services.ErrValidation) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Validation failed: "+err.Error(), err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to update item.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, item)
}

// DeleteItem handles deactivating an inventory item.
func (h *ItemHandler) DeleteItem(c *gin.Context) {
	_, storeID, ok := requestActor(c)
	if !ok {
		return
	}
	itemID, ok := pathID(c, "id")
	if !ok {
		return
	}

	err := h.itemService.DeleteItem(storeID, itemID)
	if err != nil {
		utils.LogError(err, "DeleteItem: Error from itemService.DeleteItem for ID "+utils.Int64ToStr(itemID))
		if errors.Is(err, services.ErrItemNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Item not found to delete.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to delete item.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item deleted successfully"})
}

// AdjustStock handles a manual signed stock correction.
func (h *ItemHandler) AdjustStock(c *gin.Context) {
	userID, storeID, ok := requestActor(c)
	if !ok {
		return
	}
	itemID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req services.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "AdjustStock: Failed to bind JSON for ID "+utils.Int64ToStr(itemID))
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	item, err := h.itemService.AdjustStock(storeID, itemID, userID, req)
	if err != nil {
		utils.LogError(err, "AdjustStock: Error from itemService.AdjustStock for ID "+utils.Int64ToStr(itemID))
		if errors.Is(err, services.ErrItemNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Item not found.", err.Error()))
		} else if errors.Is(err, services.ErrValidation) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Validation failed: "+err.Error(), err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to adjust stock.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, item)
}

// GetStockAdjustments handles fetching an item's manual adjustment history.
func (h *ItemHandler) GetStockAdjustments(c *gin.Context) {
	_, storeID, ok := requestActor(c)
	if !ok {
		return
	}
	itemID, ok := pathID(c, "id")
	if !ok {
		return
	}

	adjustments, err := h.itemService.GetStockAdjustments(storeID, itemID)
	if err != nil {
		utils.LogError(err, "GetStockAdjustments: Error from itemService.GetStockAdjustments for ID "+utils.Int64ToStr(itemID))
		if errors.Is(err, services.ErrItemNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Item not found.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch stock adjustments.", "Internal error"))
		}
		return
	}

	if adjustments == nil {
		adjustments = []models.StockAdjustment{}
	}
	c.JSON(http.StatusOK, gin.H{"data": adjustments})
}
