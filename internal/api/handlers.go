package api

import (
	"github.com/gofiber/fiber/v3"

	"github.com/cbasnet001/order-matching-system/internal/api/orders"
	"github.com/cbasnet001/order-matching-system/internal/engine"
)

// InitializeRoutes mounts every resource's routes onto app.
func InitializeRoutes(app *fiber.App, registry *engine.Registry) {
	orders.InitializeRoutes(app, registry)
}
