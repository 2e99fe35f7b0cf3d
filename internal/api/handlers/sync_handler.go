package handlers

import (
	"strconv"

	"fintrack/internal/dto"
	"fintrack/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type SyncHandler struct {
	syncService *service.SyncService
	logger      *zap.Logger
}

func NewSyncHandler(syncService *service.SyncService, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{
		syncService: syncService,
		logger:      logger,
	}
}

func (h *SyncHandler) PullAccounts(c *fiber.Ctx) error {
	var req dto.SyncPullRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.syncService.PullAccounts(c.Context(), &req)
	if err != nil {
		h.logger.Error("Account pull failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Sync pull failed"})
	}
	return c.JSON(resp)
}

func (h *SyncHandler) PushAccounts(c *fiber.Ctx) error {
	var req dto.AccountPushRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.syncService.PushAccounts(c.Context(), &req)
	if err != nil {
		h.logger.Error("Account push failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Sync push failed"})
	}
	return c.JSON(resp)
}

func (h *SyncHandler) PullCategories(c *fiber.Ctx) error {
	var req dto.SyncPullRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.syncService.PullCategories(c.Context(), &req)
	if err != nil {
		h.logger.Error("Category pull failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Sync pull failed"})
	}
	return c.JSON(resp)
}

func (h *SyncHandler) PushCategories(c *fiber.Ctx) error {
	var req dto.CategoryPushRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.syncService.PushCategories(c.Context(), &req)
	if err != nil {
		h.logger.Error("Category push failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Sync push failed"})
	}
	return c.JSON(resp)
}

func (h *SyncHandler) PullTransactions(c *fiber.Ctx) error {
	var req dto.SyncPullRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.syncService.PullTransactions(c.Context(), &req)
	if err != nil {
		h.logger.Error("Transaction pull failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Sync pull failed"})
	}
	return c.JSON(resp)
}

func (h *SyncHandler) PushTransactions(c *fiber.Ctx) error {
	var req dto.TransactionPushRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.syncService.PushTransactions(c.Context(), &req)
	if err != nil {
		h.logger.Error("Transaction push failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Sync push failed"})
	}
	return c.JSON(resp)
}

// Operations applies a mixed CREATE/UPDATE/DELETE batch. The response is
// always 200: conflicts and rejections are payload, not transport errors.
func (h *SyncHandler) Operations(c *fiber.Ctx) error {
	var req dto.SyncOperationsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	return c.JSON(h.syncService.PushOperations(c.Context(), &req))
}

func (h *SyncHandler) Changes(c *fiber.Ctx) error {
	since, err := strconv.ParseInt(c.Query("since", "0"), 10, 64)
	if err != nil {
		return badRequest(c, "Invalid since timestamp")
	}

	resp, err := h.syncService.Changes(c.Context(), since)
	if err != nil {
		h.logger.Error("Changes feed failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to collect changes"})
	}
	return c.JSON(resp)
}

func (h *SyncHandler) Status(c *fiber.Ctx) error {
	resp, err := h.syncService.Status(c.Context())
	if err != nil {
		h.logger.Error("Sync status failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to collect status"})
	}
	return c.JSON(resp)
}
