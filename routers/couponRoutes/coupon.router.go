package couponRoutes

import (
	controllers "coursemart/controllers/coupon"
	"coursemart/middleware"
	validators "coursemart/validators/coupon"

	"github.com/gofiber/fiber/v2"
)

// SetupCouponRoutes sets up admin-only coupon management routes
func SetupCouponRoutes(app *fiber.App) {
	adminGroup := app.Group("/coupon/admin")

	adminGroup.Post("/create", middleware.JWTMiddleware, middleware.RequireRole("ADMIN"), validators.CreateCoupon(), controllers.CreateCoupon)
	adminGroup.Get("/list", middleware.JWTMiddleware, middleware.RequireRole("ADMIN"), validators.CouponList(), controllers.ListCoupons)
}
