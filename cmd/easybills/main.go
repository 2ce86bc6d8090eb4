package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"easybills/internal/api"
	"easybills/internal/api/handlers"
	"easybills/internal/realtime"
	"easybills/internal/repository"
	"easybills/internal/service"
	"easybills/pkg/auth"
	"easybills/pkg/config"
	"easybills/pkg/logger"
	"easybills/pkg/postgres"

	"go.uber.org/zap"
)

// @title EasyBills API
// @version 1.0
// @description Expense-claim submission and approval portal

// @contact.name API Support
// @contact.email support@easybills.local

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	if err := logger.Init(cfg.Logger.Level); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting EasyBills service")

	// Initialize database
	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Initialize repositories
	userRepo := repository.NewUserRepository(db, appLogger)
	claimRepo := repository.NewClaimRepository(db, appLogger)

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Expiration, cfg.JWT.RefreshExp)

	// Initialize services
	authService := service.NewAuthService(userRepo, jwtManager, appLogger)

	sender, err := service.NewSMTPSender(&cfg.SMTP)
	if err != nil {
		appLogger.Fatal("Failed to initialize mail client", zap.Error(err))
	}
	notifier := service.NewNotificationDispatcher(sender, appLogger)

	fileStore, err := service.NewS3FileStore(ctx, &cfg.Storage, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize object storage", zap.Error(err))
	}

	hub := realtime.NewHub(appLogger)

	claimService := service.NewClaimService(claimRepo, userRepo, notifier, hub, fileStore, appLogger)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, appLogger)
	claimHandler := handlers.NewClaimHandler(claimService, appLogger)

	// Setup router
	app := api.SetupRouter(authHandler, claimHandler, hub, jwtManager, appLogger)

	// Start server
	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	if err := app.Shutdown(); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
}
