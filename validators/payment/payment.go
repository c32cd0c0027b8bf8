package paymentValidator

import (
	"strconv"
	"strings"

	"coursemart/middleware"

	"github.com/gofiber/fiber/v2"
)

func VerifyPayment() fiber.Handler {
	return func(c *fiber.Ctx) error {
		orderIDStr := strings.TrimSpace(c.Params("orderId"))
		if orderIDStr == "" {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Order ID is required!", nil)
		}

		// Validate OrderID is a valid integer
		orderID, err := strconv.Atoi(orderIDStr)
		if err != nil || orderID <= 0 {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Order ID!", nil)
		}

		c.Locals("orderID", uint(orderID))
		return c.Next()
	}
}
