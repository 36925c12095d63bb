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

// OrderHandler holds the work order service.
type OrderHandler struct {
	orderService services.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(os services.OrderService) *OrderHandler {
	return &OrderHandler{orderService: os}
}

// CreateOrder handles intake of a new work order.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	userID, storeID, ok := requestActor(c)
	if !ok {
		return
	}

	var req services.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "CreateOrder: Failed to bind JSON")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	order, err := h.orderService.CreateOrder(storeID, userID, req)
	if err != nil {
		utils.LogError(err, "CreateOrder: Error from orderService.CreateOrder")
		if errors.Is(err, services.ErrClientNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Client not found.", err.Error()))
		} else if errors.Is(err, services.ErrUnknownActor) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusForbidden, utils.ErrCodeForbidden, "Acting user is not an active member of this store.", err.Error()))
		} else if errors.Is(err, services.ErrValidation) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Validation failed: "+err.Error(), err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to create work order.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusCreated, order)
}

// GetOrders handles fetching all work orders with filters.
func (h *OrderHandler) GetOrders(c *gin.Context) {
	_, storeID, ok := requestActor(c)
	if !ok {
		return
	}

	var filters models.OrderFilters
	if clientIDStr := c.Query("client_id"); clientIDStr != "" {
		clientID, err := strconv.ParseInt(clientIDStr, 10, 64)
		if err != nil {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid client_id format.", err.Error()))
			return
		}
		filters.ClientID = &clientID
	}
	if technicianIDStr := c.Query("technician_id"); technicianIDStr != "" {
		technicianID, err := strconv.ParseInt(technicianIDStr, 10, 64)
		if err != nil {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid technician_id format.", err.Error()))
			return
		}
		filters.TechnicianID = &technicianID
	}
	if status := c.Query("status"); status != "" {
		if !services.IsValidOrderStatus(status) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Unknown order status filter.", status))
			return
		}
		filters.Status = &status
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

	orders, totalCount, err := h.orderService.GetOrders(storeID, filters)
	if err != nil {
		utils.LogError(err, "GetOrders: Error from orderService.GetOrders")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch work orders.", "Internal error"))
		return
	}

	if orders == nil {
		orders = []models.WorkOrder{}
	}
	c.JSON(http.StatusOK, gin.H{
		"data":      orders,
		"total":     totalCount,
		"page":      filters.Page,
		"page_size": filters.PageSize,
	})
}

// GetOrderByID handles fetching a single work order with its log, notes and rating.
func (h *OrderHandler) GetOrderByID(c *gin.Context) {
	_, storeID, ok := requestActor(c)
	if !ok {
		return
	}
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	order, err := h.orderService.GetOrderByID(storeID, orderID)
	if err != nil {
		utils.LogError(err, "GetOrderByID: Error from orderService.GetOrderByID for ID "+utils.Int64ToStr(orderID))
		if errors.Is(err, services.ErrOrderNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Work order not found.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch work order.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, order)
}

// TrackOrder serves the public, unauthenticated tracking endpoint. It exposes
// the order's current status and history by its human-readable code.
func (h *OrderHandler) TrackOrder(c *gin.Context) {
	code := c.Param("code")
	if utils.IsEmpty(code) {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Order code is required.", "empty code"))
		return
	}

	order, err := h.orderService.TrackOrderByCode(code)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Work order not found.", err.Error()))
		} else {
			utils.LogError(err, "TrackOrder: Error from orderService.TrackOrderByCode for code "+code)
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch work order.", "Internal error"))
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":             order.Code,
		"device":           order.Device,
		"status":           order.Status,
		"warranty_status":  order.WarrantyStatus,
		"warranty_expires": order.WarrantyExpires,
		"status_log":       order.StatusLog,
	})
}

// UpdateOrder handles direct field edits on a work order.
func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	userID, storeID, ok := requestActor(c)
	if !ok {
		return
	}
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req services.UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "UpdateOrder: Failed to bind JSON for ID "+utils.Int64ToStr(orderID))
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	order, err := h.orderService.UpdateOrder(storeID, orderID, userID, req)
	if err != nil {
		utils.LogError(err, "UpdateOrder: Error from orderService.UpdateOrder for ID "+utils.Int64ToStr(orderID))
		if errors.Is(err, services.ErrOrderNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Work order not found to update.", err.Error()))
		} else if errors.Is(err, services.ErrWarrantyLocked) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "Warranty length cannot be edited on a delivered order.", err.Error()))
		} else if errors.Is(err, services.ErrUnknownActor) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusForbidden, utils.ErrCodeForbidden, "Acting user is not an active member of this store.", err.Error()))
		} else if errors.Is(err, services.ErrValidation) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Validation failed: "+err.Error(), err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to update work order.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, order)
}

// TransitionOrder handles a status transition request.
func (h *OrderHandler) TransitionOrder(c *gin.Context) {
	userID, storeID, ok := requestActor(c)
	if !ok {
		return
	}
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req services.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "TransitionOrder: Failed to bind JSON for ID "+utils.Int64ToStr(orderID))
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	order, err := h.orderService.TransitionOrder(storeID, orderID, userID, req)
	if err != nil {
		utils.LogError(err, "TransitionOrder: Error from orderService.TransitionOrder for ID "+utils.Int64ToStr(orderID))
		if errors.Is(err, services.ErrOrderNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Work order not found.", err.Error()))
		} else if errors.Is(err, services.ErrInvalidTransition) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "Status transition not allowed.", err.Error()))
		} else if errors.Is(err, services.ErrUnknownActor) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusForbidden, utils.ErrCodeForbidden, "Acting user is not an active member of this store.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to transition work order.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, order)
}

// DeleteOrder handles soft-deleting a work order.
func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	_, storeID, ok := requestActor(c)
	if !ok {
		return
	}
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	err := h.orderService.DeleteOrder(storeID, orderID)
	if err != nil {
		utils.LogError(err, "DeleteOrder: Error from orderService.DeleteOrder for ID "+utils.Int64ToStr(orderID))
		if errors.Is(err, services.ErrOrderNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Work order not found to delete.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to delete work order.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Work order deleted successfully"})
}

// AddNote appends an internal note to a work order.
func (h *OrderHandler) AddNote(c *gin.Context) {
	userID, storeID, ok := requestActor(c)
	if !ok {
		return
	}
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req services.AddNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	note, err := h.orderService.AddNote(storeID, orderID, userID, req)
	if err != nil {
		utils.LogError(err, "AddNote: Error from orderService.AddNote for ID "+utils.Int64ToStr(orderID))
		if errors.Is(err, services.ErrOrderNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Work order not found.", err.Error()))
		} else if errors.Is(err, services.ErrUnknownActor) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusForbidden, utils.ErrCodeForbidden, "Acting user is not an active member of this store.", err.Error()))
		} else if errors.Is(err, services.ErrValidation) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Validation failed: "+err.Error(), err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to add note.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusCreated, note)
}

// RateOrder records the customer's rating of a delivered repair.
func (h *OrderHandler) RateOrder(c *gin.Context) {
	_, storeID, ok := requestActor(c)
	if !ok {
		return
	}
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req services.RateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	rating, err := h.orderService.RateOrder(storeID, orderID, req)
	if err != nil {
		utils.LogError(err, "RateOrder: Error from orderService.RateOrder for ID "+utils.Int64ToStr(orderID))
		if errors.Is(err, services.ErrOrderNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Work order not found.", err.Error()))
		} else if errors.Is(err, services.ErrAlreadyRated) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "Work order has already been rated.", err.Error()))
		} else if errors.Is(err, services.ErrValidation) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Validation failed: "+err.Error(), err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to rate work order.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusCreated, rating)
}
