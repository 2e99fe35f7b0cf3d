package handlers

import (
	"fintrack/internal/dto"
	"fintrack/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AccountHandler struct {
	accountService   *service.AccountService
	aggregateService *service.AggregateService
	logger           *zap.Logger
}

func NewAccountHandler(accountService *service.AccountService, aggregateService *service.AggregateService, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{
		accountService:   accountService,
		aggregateService: aggregateService,
		logger:           logger,
	}
}

func (h *AccountHandler) Create(c *fiber.Ctx) error {
	var req dto.AccountRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.accountService.Create(c.Context(), &req)
	if err != nil {
		return respondServiceError(c, h.logger, err, "Failed to create account")
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *AccountHandler) List(c *fiber.Ctx) error {
	resp, err := h.accountService.List(c.Context())
	if err != nil {
		return respondServiceError(c, h.logger, err, "Failed to list accounts")
	}
	return c.JSON(resp)
}

func (h *AccountHandler) Get(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	resp, err := h.accountService.Get(c.Context(), id)
	if err != nil {
		return respondServiceError(c, h.logger, err, "Failed to get account")
	}
	return c.JSON(resp)
}

func (h *AccountHandler) Update(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	var req dto.AccountRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.accountService.Update(c.Context(), id, &req)
	if err != nil {
		return respondServiceError(c, h.logger, err, "Failed to update account")
	}
	return c.JSON(resp)
}

func (h *AccountHandler) Delete(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.accountService.Delete(c.Context(), id); err != nil {
		return respondServiceError(c, h.logger, err, "Failed to delete account")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Balance recomputes the account's turnover from the transaction log,
// optionally bounded by ?from= and ?to= dates.
func (h *AccountHandler) Balance(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	from, to, err := parseDateRange(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	resp, err := h.aggregateService.SumByAccount(c.Context(), id, from, to)
	if err != nil {
		return respondServiceError(c, h.logger, err, "Failed to compute account balance")
	}
	return c.JSON(resp)
}
