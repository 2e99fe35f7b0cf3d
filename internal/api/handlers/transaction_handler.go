package handlers

import (
	"fintrack/internal/dto"
	"fintrack/internal/repository"
	"fintrack/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TransactionHandler struct {
	transactionService *service.TransactionService
	logger             *zap.Logger
}

func NewTransactionHandler(transactionService *service.TransactionService, logger *zap.Logger) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		logger:             logger,
	}
}

func (h *TransactionHandler) Create(c *fiber.Ctx) error {
	var req dto.TransactionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.transactionService.Create(c.Context(), &req)
	if err != nil {
		return respondServiceError(c, h.logger, err, "Failed to create transaction")
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// List supports filtering by ?fromAccount=, ?toAccount=, ?category=,
// ?from=/?to= dates, and ?includeDeleted=true.
func (h *TransactionHandler) List(c *fiber.Ctx) error {
	filter, err := h.buildFilter(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	resp, err := h.transactionService.List(c.Context(), filter)
	if err != nil {
		return respondServiceError(c, h.logger, err, "Failed to list transactions")
	}
	return c.JSON(resp)
}

func (h *TransactionHandler) Get(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	resp, err := h.transactionService.Get(c.Context(), id)
	if err != nil {
		return respondServiceError(c, h.logger, err, "Failed to get transaction")
	}
	return c.JSON(resp)
}

func (h *TransactionHandler) Update(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	var req dto.TransactionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.transactionService.Update(c.Context(), id, &req)
	if err != nil {
		return respondServiceError(c, h.logger, err, "Failed to update transaction")
	}
	return c.JSON(resp)
}

// Delete soft-deletes by default; ?permanent=true removes the row for good.
func (h *TransactionHandler) Delete(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	permanent := c.Query("permanent") == "true"

	if err := h.transactionService.Delete(c.Context(), id, permanent); err != nil {
		return respondServiceError(c, h.logger, err, "Failed to delete transaction")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *TransactionHandler) Restore(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	resp, err := h.transactionService.Restore(c.Context(), id)
	if err != nil {
		return respondServiceError(c, h.logger, err, "Failed to restore transaction")
	}
	return c.JSON(resp)
}

func (h *TransactionHandler) buildFilter(c *fiber.Ctx) (repository.TransactionFilter, error) {
	var filter repository.TransactionFilter

	for _, q := range []struct {
		name   string
		target **uuid.UUID
	}{
		{"fromAccount", &filter.FromAccountID},
		{"toAccount", &filter.ToAccountID},
		{"category", &filter.CategoryID},
	} {
		value := c.Query(q.name)
		if value == "" {
			continue
		}
		id, err := uuid.Parse(value)
		if err != nil {
			return filter, err
		}
		*q.target = &id
	}

	from, to, err := parseDateRange(c)
	if err != nil {
		return filter, err
	}
	filter.FromDate = from
	filter.ToDate = to
	filter.IncludeDeleted = c.Query("includeDeleted") == "true"
	return filter, nil
}
