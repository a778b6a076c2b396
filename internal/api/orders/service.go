package orders

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/cbasnet001/order-matching-system/internal/engine"
	"github.com/cbasnet001/order-matching-system/internal/helper"
)

// PlaceOrderHandler implements POST /v1/symbols/:symbol/orders, the SUBMIT
// command of the upstream command interface (spec §6).
func PlaceOrderHandler(ctx context.Context, registry *engine.Registry) fiber.Handler {
	return func(c fiber.Ctx) error {
		symbol := c.Params("symbol")
		if symbol == "" {
			return fiber.ErrBadRequest
		}

		var req PlaceOrderSchema
		if err := c.Bind().Body(&req); err != nil {
			return fiber.ErrBadRequest
		}
		if err := helper.ValidateInput(&req); err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		order := &engine.Order{
			OrderID:  req.OrderID,
			TraderID: req.TraderID,
			Symbol:   symbol,
			Side:     req.Side,
			Type:     req.Type,
			Quantity: req.Quantity,
			Price:    req.Price,
		}

		result, err := registry.Submit(ctx, symbol, order)
		if err != nil {
			return mapEngineError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(newSubmitResponse(result))
	}
}

// CancelOrderHandler implements POST /v1/symbols/:symbol/orders/:id/cancel,
// the CANCEL command of the upstream command interface (spec §6).
func CancelOrderHandler(ctx context.Context, registry *engine.Registry) fiber.Handler {
	return func(c fiber.Ctx) error {
		symbol := c.Params("symbol")
		orderID := c.Params("id")
		if symbol == "" || orderID == "" {
			return fiber.ErrBadRequest
		}

		result, err := registry.Cancel(ctx, symbol, orderID)
		if err != nil {
			return mapEngineError(c, err)
		}
		return c.JSON(newCancelResponse(result))
	}
}

// GetOrderBookHandler implements GET /v1/symbols/:symbol/book, the snapshot
// read of the upstream command interface (spec §4.3, §6).
func GetOrderBookHandler(registry *engine.Registry) fiber.Handler {
	return func(c fiber.Ctx) error {
		symbol := c.Params("symbol")
		if symbol == "" {
			return fiber.ErrBadRequest
		}
		depth, err := strconv.Atoi(c.Query("depth", "10"))
		if err != nil || depth <= 0 {
			depth = 10
		}

		result, err := registry.Snapshot(symbol, depth)
		if err != nil {
			return mapEngineError(c, err)
		}
		return c.JSON(newSnapshotResponse(result))
	}
}

func mapEngineError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "order not found"})
	case errors.Is(err, engine.ErrNotCancellable):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, engine.ErrInvalidOrder):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, engine.ErrDepthExceedsMax):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, engine.ErrSymbolHalted):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	default:
		return err
	}
}
