package courseRoutes

import (
	controllers "coursemart/controllers/course"
	"coursemart/middleware"
	validators "coursemart/validators/course"

	"github.com/gofiber/fiber/v2"
)

// SetupCourseRoutes sets up the read-only course catalog routes
func SetupCourseRoutes(app *fiber.App) {
	courseGroup := app.Group("/course")

	courseGroup.Get("/list", middleware.JWTMiddleware, validators.CourseList(), controllers.GetAllCourses)
	courseGroup.Get("/:id", middleware.JWTMiddleware, validators.GetCourseDetail(), controllers.GetCourseDetails)
}
