package router

import (
	"database/sql"

	"fixpoint_backend/internal/database"
	"fixpoint_backend/internal/handlers"
	"fixpoint_backend/internal/middleware"
	"fixpoint_backend/internal/repositories"
	"fixpoint_backend/internal/services"

	"github.com/gin-gonic/gin"
)

// Setup initializes the routing for the application.
func Setup(engine *gin.Engine, db *sql.DB) {
	// Repositories
	userRepo := repositories.NewUserRepository(db)
	clientRepo := repositories.NewClientRepository(db)
	orderRepo := repositories.NewOrderRepository(db)
	itemRepo := repositories.NewItemRepository(db)
	receiptRepo := repositories.NewReceiptRepository(db)
	seqRepo := repositories.NewSequenceRepository()
	outboxRepo := repositories.NewOutboxRepository(db)

	txManager := database.NewTxManager(db)

	// Services
	authService := services.NewAuthService(userRepo, txManager)
	clientService := services.NewClientService(clientRepo, txManager)
	orderService := services.NewOrderService(orderRepo, clientRepo, userRepo, seqRepo, outboxRepo, txManager)
	itemService := services.NewItemService(itemRepo, txManager)
	receiptService := services.NewReceiptService(receiptRepo, itemRepo, userRepo, seqRepo, txManager)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	clientHandler := handlers.NewClientHandler(clientService)
	orderHandler := handlers.NewOrderHandler(orderService)
	itemHandler := handlers.NewItemHandler(itemService)
	receiptHandler := handlers.NewReceiptHandler(receiptService)

	apiV1 := engine.Group("/api/v1")

	// Public routes: registration, login, token refresh and the customer
	// tracking page. Everything else requires a valid token.
	SetupPublicAuthRoutes(apiV1.Group("/auth"), authHandler)
	apiV1.GET("/track/:code", orderHandler.TrackOrder)

	authenticated := apiV1.Group("")
	authenticated.Use(middleware.AuthMiddleware())
	{
		SetupAuthenticatedAuthRoutes(authenticated.Group("/auth"), authHandler)
		SetupClientRoutes(authenticated, clientHandler)
		SetupOrderRoutes(authenticated, orderHandler)
		SetupItemRoutes(authenticated, itemHandler)
		SetupReceiptRoutes(authenticated, receiptHandler)
	}
}

// SetupPublicAuthRoutes sets up the unauthenticated auth routes.
func SetupPublicAuthRoutes(group *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	group.POST("/register", authHandler.RegisterUser)
	group.POST("/login", authHandler.LoginUser)
	group.POST("/refresh-token", authHandler.RefreshToken)
}

// SetupAuthenticatedAuthRoutes sets up the auth routes behind the middleware.
func SetupAuthenticatedAuthRoutes(group *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	group.POST("/logout", authHandler.LogoutUser)
	group.GET("/me", authHandler.GetCurrentUser)
}
