package main

import (
	"context"
	"log"
	"time"

	"fintrack/internal/models"
	"fintrack/internal/repository"
	"fintrack/internal/service"
	"fintrack/pkg/config"
	"fintrack/pkg/logger"
	"fintrack/pkg/postgres"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Seeds a demo dataset: two accounts, a small category tree, and a month of
// transactions, with maintained balances applied the same way the server
// applies them.
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logger.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLogger := logger.Get()

	if err := postgres.RunMigrations(&cfg.Database); err != nil {
		appLogger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Connect to database
	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	accountRepo := repository.NewAccountRepository(db, appLogger)
	categoryRepo := repository.NewCategoryRepository(db, appLogger)
	txRepo := repository.NewTransactionRepository(db, appLogger)
	repairRepo := repository.NewRepairRepository(db, appLogger)
	maintainer := service.NewBalanceMaintainer(accountRepo, categoryRepo, txRepo, repairRepo, appLogger)

	appLogger.Info("Starting database seeding...")

	now := time.Now().UnixMilli()

	checking := seedAccount(ctx, accountRepo, appLogger, &models.Account{
		ID:             uuid.New(),
		Name:           "Checking",
		Description:    "Everyday spending account",
		Type:           models.AccountTypeDebit,
		Icon:           "wallet",
		Color:          "#1E88E5",
		IncludeInTotal: true,
		UpdatedAt:      now,
		SyncVersion:    1,
		LastModifiedBy: "seed",
		CreatedAt:      time.Now(),
	})
	savings := seedAccount(ctx, accountRepo, appLogger, &models.Account{
		ID:             uuid.New(),
		Name:           "Savings",
		Description:    "Long term savings",
		Type:           models.AccountTypeDebit,
		Icon:           "piggy-bank",
		Color:          "#43A047",
		IncludeInTotal: true,
		UpdatedAt:      now,
		SyncVersion:    1,
		LastModifiedBy: "seed",
		CreatedAt:      time.Now(),
	})

	salary := seedCategory(ctx, categoryRepo, appLogger, "Salary", models.CategoryTypeIncome, nil, 0)
	food := seedCategory(ctx, categoryRepo, appLogger, "Food", models.CategoryTypeExpense, nil, 1)
	groceries := seedCategory(ctx, categoryRepo, appLogger, "Groceries", models.CategoryTypeExpense, &food.ID, 0)
	eatingOut := seedCategory(ctx, categoryRepo, appLogger, "Eating out", models.CategoryTypeExpense, &food.ID, 1)

	base := time.Now().AddDate(0, -1, 0)
	seedTransaction(ctx, txRepo, maintainer, appLogger, &models.Transaction{
		ID:              uuid.New(),
		TransactionDate: base,
		FromAccountID:   checking.ID,
		CategoryID:      &salary.ID,
		Amount:          3200,
		Description:     "Monthly salary",
		Type:            models.TransactionTypeIncome,
	})
	seedTransaction(ctx, txRepo, maintainer, appLogger, &models.Transaction{
		ID:              uuid.New(),
		TransactionDate: base.AddDate(0, 0, 2),
		FromAccountID:   checking.ID,
		CategoryID:      &groceries.ID,
		Amount:          84.50,
		Description:     "Weekly groceries",
		Type:            models.TransactionTypeExpense,
	})
	seedTransaction(ctx, txRepo, maintainer, appLogger, &models.Transaction{
		ID:              uuid.New(),
		TransactionDate: base.AddDate(0, 0, 5),
		FromAccountID:   checking.ID,
		CategoryID:      &eatingOut.ID,
		Amount:          32.00,
		Description:     "Dinner",
		Type:            models.TransactionTypeExpense,
	})
	seedTransaction(ctx, txRepo, maintainer, appLogger, &models.Transaction{
		ID:              uuid.New(),
		TransactionDate: base.AddDate(0, 0, 7),
		FromAccountID:   checking.ID,
		ToAccountID:     &savings.ID,
		Amount:          500,
		Description:     "Monthly savings transfer",
		Type:            models.TransactionTypeTransfer,
	})

	appLogger.Info("Database seeding completed successfully!")
}

func seedAccount(ctx context.Context, repo repository.AccountRepository, logger *zap.Logger, account *models.Account) *models.Account {
	if err := repo.Create(ctx, account); err != nil {
		logger.Fatal("Failed to seed account", zap.String("name", account.Name), zap.Error(err))
	}
	logger.Info("Seeded account", zap.String("name", account.Name))
	return account
}

func seedCategory(ctx context.Context, repo repository.CategoryRepository, logger *zap.Logger, name string, categoryType models.CategoryType, parentID *uuid.UUID, order int64) *models.Category {
	category := &models.Category{
		ID:             uuid.New(),
		Name:           name,
		Type:           categoryType,
		ParentID:       parentID,
		SortOrder:      order,
		UpdatedAt:      time.Now().UnixMilli(),
		SyncVersion:    1,
		LastModifiedBy: "seed",
		CreatedAt:      time.Now(),
	}
	if err := repo.Create(ctx, category); err != nil {
		logger.Fatal("Failed to seed category", zap.String("name", name), zap.Error(err))
	}
	logger.Info("Seeded category", zap.String("name", name))
	return category
}

func seedTransaction(ctx context.Context, repo repository.TransactionRepository, maintainer *service.BalanceMaintainer, logger *zap.Logger, tx *models.Transaction) {
	tx.UpdatedAt = time.Now().UnixMilli()
	tx.SyncVersion = 1
	tx.LastModifiedBy = "seed"
	tx.CreatedAt = time.Now()
	if err := repo.Create(ctx, tx); err != nil {
		logger.Fatal("Failed to seed transaction", zap.String("description", tx.Description), zap.Error(err))
	}
	maintainer.OnTransactionCreated(ctx, tx)
	logger.Info("Seeded transaction", zap.String("description", tx.Description), zap.Float64("amount", tx.Amount))
}
