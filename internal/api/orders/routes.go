package orders

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"github.com/cbasnet001/order-matching-system/internal/engine"
)

// InitializeRoutes mounts the upstream command interface of spec §6 onto app.
func InitializeRoutes(app *fiber.App, registry *engine.Registry) {
	app.Get("/v1/symbols/:symbol/book", GetOrderBookHandler(registry))
	app.Post("/v1/symbols/:symbol/orders", PlaceOrderHandler(context.Background(), registry))
	app.Post("/v1/symbols/:symbol/orders/:id/cancel", CancelOrderHandler(context.Background(), registry))
}
