package couponController

import (
	"encoding/json"
	"errors"
	"time"

	"coursemart/database"
	"coursemart/middleware"
	"coursemart/models"
	couponValidator "coursemart/validators/coupon"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CreateCoupon handles POST /coupon/admin/create
func CreateCoupon(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedCoupon").(*couponValidator.CreateCouponRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	startDate := time.Now()
	if reqData.StartDate != nil {
		startDate = *reqData.StartDate
	}

	coupon := models.Coupon{
		Code:          reqData.Code,
		DiscountType:  models.CouponDiscountType(reqData.DiscountType),
		DiscountValue: reqData.DiscountValue,
		MaxDiscount:   reqData.MaxDiscount,
		MinPurchase:   reqData.MinPurchase,
		StartDate:     startDate,
		ExpiryDate:    reqData.ExpiryDate,
		UsageLimit:    reqData.UsageLimit,
		IsActive:      true,
	}

	if len(reqData.ApplicableCourses) > 0 {
		raw, _ := json.Marshal(reqData.ApplicableCourses)
		coupon.ApplicableCourses = datatypes.JSON(raw)
	}
	if len(reqData.ApplicableCategories) > 0 {
		raw, _ := json.Marshal(reqData.ApplicableCategories)
		coupon.ApplicableCategories = datatypes.JSON(raw)
	}

	if err := database.Database.Db.Create(&coupon).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return middleware.JsonResponse(c, fiber.StatusConflict, false, "Coupon code already exists!", nil)
		}
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create coupon!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Coupon created successfully!", coupon)
}

// ListCoupons handles GET /coupon/admin/list
func ListCoupons(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedCouponList").(*struct {
		Page  *int `json:"page"`
		Limit *int `json:"limit"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid query parameters!", nil)
	}

	page := *reqData.Page
	limit := *reqData.Limit
	offset := (page - 1) * limit

	var coupons []models.Coupon
	db := database.Database.Db.Model(&models.Coupon{}).Where("is_deleted = ?", false)

	var total int64
	db.Count(&total)

	if err := db.Offset(offset).Limit(limit).Order("created_at desc").Find(&coupons).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch coupons!", nil)
	}

	response := map[string]interface{}{
		"coupons": coupons,
		"pagination": map[string]interface{}{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Coupons fetched successfully!", response)
}
