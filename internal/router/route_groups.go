package router

import (
	"fixpoint_backend/internal/handlers"
	"fixpoint_backend/internal/middleware"
	"fixpoint_backend/internal/services"

	"github.com/gin-gonic/gin"
)

// SetupClientRoutes sets up the client routes.
func SetupClientRoutes(authenticatedGroup *gin.RouterGroup, clientHandler *handlers.ClientHandler) {
	clientRoutes := authenticatedGroup.Group("/clients")
	clientRoutes.Use(middleware.RoleAuthMiddleware(services.RoleAdmin, services.RoleTechnician))
	{
		clientRoutes.POST("", clientHandler.CreateClient)
		clientRoutes.GET("", clientHandler.GetClients)
		clientRoutes.GET("/:id", clientHandler.GetClientByID)
		clientRoutes.PUT("/:id", clientHandler.UpdateClient)
		clientRoutes.DELETE("/:id", clientHandler.DeleteClient)
	}
}

// SetupOrderRoutes sets up the work order routes.
func SetupOrderRoutes(authenticatedGroup *gin.RouterGroup, orderHandler *handlers.OrderHandler) {
	orderRoutes := authenticatedGroup.Group("/orders")
	orderRoutes.Use(middleware.RoleAuthMiddleware(services.RoleAdmin, services.RoleTechnician))
	{
		orderRoutes.POST("", orderHandler.CreateOrder)
		orderRoutes.GET("", orderHandler.GetOrders)
		orderRoutes.GET("/:id", orderHandler.GetOrderByID)
		orderRoutes.PUT("/:id", orderHandler.UpdateOrder)
		orderRoutes.PATCH("/:id/status", orderHandler.TransitionOrder)
		orderRoutes.POST("/:id/notes", orderHandler.AddNote)
		orderRoutes.POST("/:id/rating", orderHandler.RateOrder)
	}

	// Soft delete is admin only.
	authenticatedGroup.DELETE("/orders/:id", middleware.RoleAuthMiddleware(services.RoleAdmin), orderHandler.DeleteOrder)
}

// SetupItemRoutes sets up the inventory item routes.
func SetupItemRoutes(authenticatedGroup *gin.RouterGroup, itemHandler *handlers.ItemHandler) {
	itemRoutes := authenticatedGroup.Group("/items")
	itemRoutes.Use(middleware.RoleAuthMiddleware(services.RoleAdmin, services.RoleTechnician))
	{
		itemRoutes.POST("", itemHandler.CreateItem)
		itemRoutes.GET("", itemHandler.GetItems)
		itemRoutes.GET("/:id", itemHandler.GetItemByID)
		itemRoutes.PUT("/:id", itemHandler.UpdateItem)
		itemRoutes.POST("/:id/stock-adjustments", itemHandler.AdjustStock)
		itemRoutes.GET("/:id/stock-adjustments", itemHandler.GetStockAdjustments)
	}

	authenticatedGroup.DELETE("/items/:id", middleware.RoleAuthMiddleware(services.RoleAdmin), itemHandler.DeleteItem)
}

// SetupReceiptRoutes sets up the receipt routes.
func SetupReceiptRoutes(authenticatedGroup *gin.RouterGroup, receiptHandler *handlers.ReceiptHandler) {
	receiptRoutes := authenticatedGroup.Group("/receipts")
	receiptRoutes.Use(middleware.RoleAuthMiddleware(services.RoleAdmin, services.RoleTechnician))
	{
		receiptRoutes.POST("", receiptHandler.CreateReceipt)
		receiptRoutes.GET("", receiptHandler.GetReceipts)
		receiptRoutes.GET("/:id", receiptHandler.GetReceiptByID)
		receiptRoutes.PATCH("/:id/status", receiptHandler.UpdateReceiptStatus)
	}

	// Destructive receipt operations are admin only.
	authenticatedGroup.POST("/receipts/:id/archive", middleware.RoleAuthMiddleware(services.RoleAdmin), receiptHandler.ArchiveReceipt)
	authenticatedGroup.DELETE("/receipts/:id", middleware.RoleAuthMiddleware(services.RoleAdmin), receiptHandler.DeleteReceipt)
}
