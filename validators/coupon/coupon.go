package couponValidator

import (
	"strings"
	"time"

	"coursemart/middleware"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// CreateCouponRequest is the validated admin coupon payload
type CreateCouponRequest struct {
	Code                 string     `json:"code" validate:"required,min=3,max=30"`
	DiscountType         string     `json:"discountType" validate:"required,oneof=PERCENT FIXED"`
	DiscountValue        float64    `json:"discountValue" validate:"required,gt=0"`
	MaxDiscount          float64    `json:"maxDiscount" validate:"gte=0"`
	MinPurchase          float64    `json:"minPurchase" validate:"gte=0"`
	ApplicableCourses    []uint     `json:"applicableCourses"`
	ApplicableCategories []string   `json:"applicableCategories"`
	StartDate            *time.Time `json:"startDate"`
	ExpiryDate           *time.Time `json:"expiryDate"`
	UsageLimit           int        `json:"usageLimit" validate:"gte=0"`
}

func CreateCoupon() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(CreateCouponRequest)

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		reqData.Code = strings.ToUpper(strings.TrimSpace(reqData.Code))

		errors := make(map[string]string)

		if err := validate.Struct(reqData); err != nil {
			for _, fieldErr := range err.(validator.ValidationErrors) {
				errors[fieldErr.Field()] = "Invalid value for " + fieldErr.Field() + " (" + fieldErr.Tag() + ")"
			}
		}

		if reqData.DiscountType == "PERCENT" && reqData.DiscountValue > 100 {
			errors["DiscountValue"] = "Percentage discount cannot exceed 100!"
		}
		if reqData.ExpiryDate != nil && reqData.StartDate != nil && reqData.ExpiryDate.Before(*reqData.StartDate) {
			errors["ExpiryDate"] = "Expiry date must be after the start date!"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedCoupon", reqData)
		return c.Next()
	}
}

func CouponList() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			Page  *int `json:"page"`
			Limit *int `json:"limit"`
		})

		if err := c.QueryParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid query parameters!", nil)
		}

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

		c.Locals("validatedCouponList", reqData)
		return c.Next()
	}
}
