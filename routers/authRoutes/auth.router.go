package authRoutes

import (
	controllers "coursemart/controllers/auth"

	"github.com/gofiber/fiber/v2"
)

// SetupAuthRoutes sets up signup and login routes
func SetupAuthRoutes(app *fiber.App) {
	authGroup := app.Group("/auth")

	authGroup.Post("/signup", controllers.Signup)
	authGroup.Post("/login", controllers.Login)
}
