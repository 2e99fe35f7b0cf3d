package handlers

import (
	"errors"
	"fmt"
	"time"

	"fintrack/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	dateTimeLayout = "2006-01-02 15:04"
	dateLayout     = "2006-01-02"
)

// parseDateQuery accepts "YYYY-MM-DD HH:MM" or "YYYY-MM-DD". A date-only
// upper bound is pushed to the end of that day so the range is inclusive.
func parseDateQuery(value string, endOfDay bool) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(dateTimeLayout, value); err == nil {
		return &t, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD or YYYY-MM-DD HH:MM", value)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Millisecond)
	}
	return &t, nil
}

// parseDateRange reads the fromDate/toDate filter params; the short forms
// from/to are accepted as aliases.
func parseDateRange(c *fiber.Ctx) (from, to *time.Time, err error) {
	from, err = parseDateQuery(firstQuery(c, "fromDate", "from"), false)
	if err != nil {
		return nil, nil, err
	}
	to, err = parseDateQuery(firstQuery(c, "toDate", "to"), true)
	if err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

func firstQuery(c *fiber.Ctx, names ...string) string {
	for _, name := range names {
		if value := c.Query(name); value != "" {
			return value
		}
	}
	return ""
}

func parseIDParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

// respondServiceError maps service sentinels to HTTP statuses; anything
// unrecognized is logged and reported as a 500 with the fallback message.
func respondServiceError(c *fiber.Ctx, logger *zap.Logger, err error, fallback string) error {
	switch {
	case errors.Is(err, service.ErrAccountNotFound),
		errors.Is(err, service.ErrCategoryNotFound),
		errors.Is(err, service.ErrTransactionNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrParentNotFound),
		errors.Is(err, service.ErrCategoryCycle),
		errors.Is(err, service.ErrInvalidType),
		errors.Is(err, service.ErrNegativeAmount),
		errors.Is(err, service.ErrTargetAccountNeeded),
		errors.Is(err, service.ErrNameRequired):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrAlreadyExists):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	default:
		logger.Error(fallback, zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": fallback})
	}
}
