package main

import (
	"log"
	"net/http"
	"strings"

	"fixpoint_backend/internal/config"
	"fixpoint_backend/internal/database"
	"fixpoint_backend/internal/notifier"
	"fixpoint_backend/internal/repositories"
	"fixpoint_backend/internal/router"
	"fixpoint_backend/pkg/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	utils.InitLogger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	utils.SetJWTSecret(cfg.JWT.Secret)

	database.InitDB(cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.SSLMode, cfg.DB.SchemaPath)
	utils.LogInfo("Database initialized", map[string]interface{}{"host": cfg.DB.Host, "name": cfg.DB.Name})

	engine := gin.Default()
	engine.Use(utils.GinLogger())

	// CORS configuration
	var allowedOrigins []string
	if cfg.CORS.AllowedOrigins != "" {
		allowedOrigins = strings.Split(cfg.CORS.AllowedOrigins, ",")
	} else {
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:3001"}
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = allowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	corsConfig.AllowCredentials = true
	engine.Use(cors.New(corsConfig))

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	dbConn := database.GetDB()
	router.Setup(engine, dbConn)

	// Notification dispatcher drains the outbox in the background. Without a
	// configured gateway it logs messages instead of delivering them.
	var gateway notifier.Notifier
	if cfg.Notifier.GatewayURL != "" {
		gateway = notifier.NewHTTPGatewayNotifier(cfg.Notifier.GatewayURL)
	} else {
		gateway = notifier.NewLogNotifier()
	}
	dispatcher := notifier.NewDispatcher(repositories.NewOutboxRepository(dbConn), gateway, cfg.Notifier.PollInterval, cfg.Notifier.BatchSize)
	dispatcher.Start()

	utils.LogInfo("Server starting", map[string]interface{}{"port": cfg.App.Port})
	if err := engine.Run(":" + cfg.App.Port); err != nil {
		dispatcher.Stop()
		utils.LogError(err, "Failed to start server")
		log.Fatalf("Failed to start server: %v", err)
	}
}
