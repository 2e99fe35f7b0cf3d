package api

import (
	"fintrack/internal/api/handlers"
	"fintrack/pkg/auth"
	"fintrack/pkg/config"
	"fintrack/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

func SetupRouter(
	cfg *config.ServerConfig,
	authHandler *handlers.AuthHandler,
	accountHandler *handlers.AccountHandler,
	categoryHandler *handlers.CategoryHandler,
	transactionHandler *handlers.TransactionHandler,
	syncHandler *handlers.SyncHandler,
	jwtManager *auth.JWTManager,
	appLogger *zap.Logger,
) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	app.Use(logger.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Auth routes (public)
	authGroup := app.Group("/user/auth")
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)
	authGroup.Post("/refresh", authHandler.RefreshToken)

	// Protected routes
	protected := app.Group("/api/v1", middleware.AuthMiddleware(jwtManager, appLogger))

	accounts := protected.Group("/accounts")
	accounts.Post("", accountHandler.Create)
	accounts.Get("", accountHandler.List)
	accounts.Get("/:id", accountHandler.Get)
	accounts.Put("/:id", accountHandler.Update)
	accounts.Delete("/:id", accountHandler.Delete)
	accounts.Get("/:id/balance", accountHandler.Balance)
	accounts.Post("/sync/pull", syncHandler.PullAccounts)
	accounts.Post("/sync/push", syncHandler.PushAccounts)

	categories := protected.Group("/categories")
	categories.Post("", categoryHandler.Create)
	categories.Get("", categoryHandler.List)
	categories.Get("/:id", categoryHandler.Get)
	categories.Put("/:id", categoryHandler.Update)
	categories.Delete("/:id", categoryHandler.Delete)
	categories.Get("/:id/transactions", categoryHandler.Transactions)
	categories.Post("/sync/pull", syncHandler.PullCategories)
	categories.Post("/sync/push", syncHandler.PushCategories)

	transactions := protected.Group("/transactions")
	transactions.Post("", transactionHandler.Create)
	transactions.Get("", transactionHandler.List)
	transactions.Get("/:id", transactionHandler.Get)
	transactions.Put("/:id", transactionHandler.Update)
	transactions.Delete("/:id", transactionHandler.Delete)
	transactions.Post("/:id/restore", transactionHandler.Restore)
	transactions.Post("/sync/pull", syncHandler.PullTransactions)
	transactions.Post("/sync/push", syncHandler.PushTransactions)

	sync := protected.Group("/sync")
	sync.Post("/push", syncHandler.Operations)
	sync.Get("/changes", syncHandler.Changes)
	sync.Get("/status", syncHandler.Status)

	return app
}
