package orderValidator

import (
	"strings"

	"coursemart/middleware"

	"github.com/gofiber/fiber/v2"
)

func CreateOrder() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			CourseID   uint   `json:"courseId"`
			CouponCode string `json:"couponCode"`
		})

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)

		if reqData.CourseID == 0 {
			errors["courseId"] = "Course ID is required!"
		}

		reqData.CouponCode = strings.TrimSpace(reqData.CouponCode)

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedOrder", reqData)
		return c.Next()
	}
}

func MyOrders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			Page  *int `json:"page"`
			Limit *int `json:"limit"`
		})

		if err := c.QueryParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid query parameters!", nil)
		}

		// Default pagination when not supplied
		if reqData.Page == nil {
			page := 1
			reqData.Page = &page
		}
		if reqData.Limit == nil {
			limit := 10
			reqData.Limit = &limit
		}

		errors := make(map[string]string)

		if *reqData.Page < 1 {
			errors["page"] = "Page must be greater than 0!"
		}
		if *reqData.Limit < 1 || *reqData.Limit > 100 {
			errors["limit"] = "Limit must be between 1 and 100!"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedOrderList", reqData)
		return c.Next()
	}
}
