package orderRoutes

import (
	controllers "coursemart/controllers/order"
	"coursemart/middleware"
	validators "coursemart/validators/order"

	"github.com/gofiber/fiber/v2"
)

// SetupOrderRoutes sets up order creation and listing routes
func SetupOrderRoutes(app *fiber.App) {
	orderGroup := app.Group("/orders")

	orderGroup.Post("/", middleware.JWTMiddleware, validators.CreateOrder(), controllers.CreateOrder)
	orderGroup.Get("/my-orders", middleware.JWTMiddleware, validators.MyOrders(), controllers.GetMyOrders)
}
