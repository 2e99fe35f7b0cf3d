package handlers

import (
	"fintrack/internal/dto"
	"fintrack/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type CategoryHandler struct {
	categoryService  *service.CategoryService
	aggregateService *service.AggregateService
	logger           *zap.Logger
}

func NewCategoryHandler(categoryService *service.CategoryService, aggregateService *service.AggregateService, logger *zap.Logger) *CategoryHandler {
	return &CategoryHandler{
		categoryService:  categoryService,
		aggregateService: aggregateService,
		logger:           logger,
	}
}

func (h *CategoryHandler) Create(c *fiber.Ctx) error {
	var req dto.CategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.categoryService.Create(c.Context(), &req)
	if err != nil {
		return respondServiceError(c, h.logger, err, "Failed to create category")
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *CategoryHandler) List(c *fiber.Ctx) error {
	resp, err := h.categoryService.List(c.Context())
	if err != nil {
		return respondServiceError(c, h.logger, err, "Failed to list categories")
	}
	return c.JSON(resp)
}

func (h *CategoryHandler) Get(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	resp, err := h.categoryService.Get(c.Context(), id)
	if err != nil {
		return respondServiceError(c, h.logger, err, "Failed to get category")
	}
	return c.JSON(resp)
}

func (h *CategoryHandler) Update(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	var req dto.CategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.categoryService.Update(c.Context(), id, &req)
	if err != nil {
		return respondServiceError(c, h.logger, err, "Failed to update category")
	}
	return c.JSON(resp)
}

func (h *CategoryHandler) Delete(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.categoryService.Delete(c.Context(), id); err != nil {
		return respondServiceError(c, h.logger, err, "Failed to delete category")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Transactions aggregates direct, subtree, and combined totals for one
// category over an optional ?from=/?to= window.
func (h *CategoryHandler) Transactions(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	from, to, err := parseDateRange(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	resp, err := h.aggregateService.CategoryTransactions(c.Context(), id, from, to)
	if err != nil {
		return respondServiceError(c, h.logger, err, "Failed to aggregate category transactions")
	}
	return c.JSON(resp)
}
