package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fintrack/internal/api"
	"fintrack/internal/api/handlers"
	"fintrack/internal/cache"
	"fintrack/internal/repository"
	"fintrack/internal/service"
	"fintrack/pkg/auth"
	"fintrack/pkg/config"
	"fintrack/pkg/logger"
	"fintrack/pkg/postgres"

	"go.uber.org/zap"
)

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
	appLogger.Info("Starting fintrack service")

	// Apply schema migrations before opening the pool
	if err := postgres.RunMigrations(&cfg.Database); err != nil {
		appLogger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Initialize database
	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Aggregation cache
	aggCache, err := cache.New(cfg.Cache.NumCounters, cfg.Cache.MaxCost)
	if err != nil {
		appLogger.Fatal("Failed to initialize cache", zap.Error(err))
	}
	defer aggCache.Close()

	// Initialize repositories
	userRepo := repository.NewUserRepository(db, appLogger)
	accountRepo := repository.NewAccountRepository(db, appLogger)
	categoryRepo := repository.NewCategoryRepository(db, appLogger)
	txRepo := repository.NewTransactionRepository(db, appLogger)
	repairRepo := repository.NewRepairRepository(db, appLogger)

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Expiration, cfg.JWT.RefreshExp)

	// Initialize services
	authService := service.NewAuthService(userRepo, jwtManager, appLogger)
	maintainer := service.NewBalanceMaintainer(accountRepo, categoryRepo, txRepo, repairRepo, appLogger)
	aggregateService := service.NewAggregateService(txRepo, categoryRepo, aggCache, appLogger)
	accountService := service.NewAccountService(accountRepo, appLogger)
	categoryService := service.NewCategoryService(categoryRepo, maintainer, appLogger)
	transactionService := service.NewTransactionService(txRepo, accountRepo, categoryRepo, maintainer, aggCache, appLogger)
	syncService := service.NewSyncService(accountRepo, categoryRepo, txRepo, maintainer, aggCache, appLogger)

	// Background balance repair
	repairWorker := service.NewRepairWorker(repairRepo, maintainer, &cfg.Repair, appLogger)
	repairWorker.Start()
	defer repairWorker.Stop()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, appLogger)
	accountHandler := handlers.NewAccountHandler(accountService, aggregateService, appLogger)
	categoryHandler := handlers.NewCategoryHandler(categoryService, aggregateService, appLogger)
	transactionHandler := handlers.NewTransactionHandler(transactionService, appLogger)
	syncHandler := handlers.NewSyncHandler(syncService, appLogger)

	// Setup router
	app := api.SetupRouter(
		&cfg.Server,
		authHandler,
		accountHandler,
		categoryHandler,
		transactionHandler,
		syncHandler,
		jwtManager,
		appLogger,
	)

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
