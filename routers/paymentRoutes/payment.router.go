package paymentRoutes

import (
	controllers "coursemart/controllers/payment"
	"coursemart/middleware"
	validators "coursemart/validators/payment"

	"github.com/gofiber/fiber/v2"
)

// SetupPaymentRoutes sets up the gateway webhook and the client polling route.
// The webhook carries no JWT; the signature header is the authentication.
func SetupPaymentRoutes(app *fiber.App) {
	paymentGroup := app.Group("/payment")

	paymentGroup.Post("/webhook", controllers.HandleWebhook)
	paymentGroup.Get("/verify/:orderId", middleware.JWTMiddleware, validators.VerifyPayment(), controllers.VerifyPayment)
}
