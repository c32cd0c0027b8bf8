package orderController

import (
	"errors"
	"log"

	"coursemart/config"
	"coursemart/database"
	"coursemart/middleware"
	"coursemart/models"
	"coursemart/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// errAlreadyEnrolled aborts the free-path transaction when the unique index
// reports a concurrent enrollment for the same (user, course)
var errAlreadyEnrolled = errors.New("already enrolled")

// CreateOrder handles POST /orders: evaluates pricing, runs the free path
// inline for zero-cost purchases, otherwise creates a pending order and opens
// a payment intent with the gateway.
func CreateOrder(c *fiber.Ctx) error {
	// Retrieve userId from JWT middleware
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	db := database.Database.Db

	// Check if user exists
	var user models.User
	if err := db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	// Retrieve validated request data
	reqData, ok := c.Locals("validatedOrder").(*struct {
		CourseID   uint   `json:"courseId"`
		CouponCode string `json:"couponCode"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	// Course must exist and be purchasable
	var course models.Course
	if err := db.Where("id = ? AND is_deleted = ?", reqData.CourseID, false).First(&course).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}
	if course.Status != "ACTIVE" || !course.IsApproved {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Course is not available for purchase!", nil)
	}
	if course.MaxStudents > 0 && course.EnrollmentCount >= course.MaxStudents {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Course has reached its enrollment cap!", nil)
	}

	// Fast-path guard; the unique index on enrollments is the authoritative one
	var existingEnrollment models.Enrollment
	if err := db.Where("user_id = ? AND course_id = ? AND is_deleted = ?", userID, course.ID, false).
		First(&existingEnrollment).Error; err == nil {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "User already enrolled in this course!", nil)
	}

	pricing, err := utils.EvaluatePricing(db, &course, reqData.CouponCode)
	if err != nil {
		if errors.Is(err, utils.ErrInvalidCoupon) || errors.Is(err, utils.ErrCouponMinPurchaseNotMet) || errors.Is(err, utils.ErrCouponNotApplicable) {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, err.Error(), nil)
		}
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to evaluate pricing!", nil)
	}

	var couponID *uint
	if pricing.Coupon != nil {
		couponID = &pricing.Coupon.ID
	}

	if pricing.FinalAmount <= 0 {
		return createFreeOrder(c, db, &user, &course, pricing, couponID)
	}
	return createPaidOrder(c, db, &user, &course, pricing, couponID)
}

// createFreeOrder runs the free-path shortcut: a completed order plus the
// enrollment, materialized synchronously in a single transaction, without
// ever touching the payment gateway.
func createFreeOrder(c *fiber.Ctx, db *gorm.DB, user *models.User, course *models.Course, pricing *utils.PricingResult, couponID *uint) error {
	order := models.NewOrder(user.ID, course.ID, 0, course.SellingPrice(), pricing.Discount,
		couponID, models.OrderStatusCompleted, models.OrderGatewayFree, config.AppConfig.DefaultCurrency)

	var enrollment *models.Enrollment
	txErr := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		if couponID != nil {
			if err := utils.RedeemCoupon(tx, *couponID); err != nil {
				return err
			}
		}
		created, alreadyEnrolled, err := utils.MaterializeEnrollment(tx, order)
		if err != nil {
			return err
		}
		if alreadyEnrolled {
			return errAlreadyEnrolled
		}
		enrollment = created
		return nil
	})

	if errors.Is(txErr, errAlreadyEnrolled) {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "User already enrolled in this course!", nil)
	}
	if errors.Is(txErr, utils.ErrInvalidCoupon) {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, txErr.Error(), nil)
	}
	if txErr != nil {
		log.Printf("[ORDER] free enrollment failed for user %d course %d: %v", user.ID, course.ID, txErr)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to enroll in course!", nil)
	}

	go utils.SendEnrollmentEmail(user.Email, user.Name, course.Title)

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Enrolled in course successfully!", fiber.Map{
		"order":      order,
		"enrollment": enrollment,
	})
}

// createPaidOrder creates a pending order (redeeming the coupon in the same
// transaction) and opens a gateway payment intent for it
func createPaidOrder(c *fiber.Ctx, db *gorm.DB, user *models.User, course *models.Course, pricing *utils.PricingResult, couponID *uint) error {
	order := models.NewOrder(user.ID, course.ID, pricing.FinalAmount, course.SellingPrice(), pricing.Discount,
		couponID, models.OrderStatusPending, models.OrderGatewayStripe, config.AppConfig.DefaultCurrency)

	txErr := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		if couponID != nil {
			return utils.RedeemCoupon(tx, *couponID)
		}
		return nil
	})
	if errors.Is(txErr, utils.ErrInvalidCoupon) {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, txErr.Error(), nil)
	}
	if txErr != nil {
		log.Printf("[ORDER] order creation failed for user %d course %d: %v", user.ID, course.ID, txErr)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create order!", nil)
	}

	intentID, clientSecret, err := utils.CreatePaymentIntent(order, user)
	if err != nil {
		// The order stays pending with no intent id; the client may retry
		log.Printf("[ORDER] payment intent creation failed for order %d: %v", order.ID, err)
		return middleware.JsonResponse(c, fiber.StatusBadGateway, false, "Payment gateway is unavailable, please try again!", nil)
	}

	if err := db.Model(order).Update("payment_gateway_transaction_id", intentID).Error; err != nil {
		// Recoverable: the webhook falls back to the order id in gateway metadata
		log.Printf("[ORDER] failed to persist intent id %s on order %d: %v", intentID, order.ID, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Order created successfully!", fiber.Map{
		"order":        order,
		"clientSecret": clientSecret,
	})
}

// GetMyOrders returns the caller's orders, newest first, paginated
func GetMyOrders(c *fiber.Ctx) error {
	// Retrieve userId from JWT middleware
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	// Check if user exists
	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	// Retrieve validated pagination request
	reqData, ok := c.Locals("validatedOrderList").(*struct {
		Page  *int `json:"page"`
		Limit *int `json:"limit"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid query parameters!", nil)
	}

	page := *reqData.Page
	limit := *reqData.Limit
	offset := (page - 1) * limit

	var orders []models.Order
	db := database.Database.Db.Model(&models.Order{}).Where("user_id = ? AND is_deleted = ?", userID, false)

	// Get total count
	var total int64
	db.Count(&total)

	// Fetch paginated data
	if err := db.Offset(offset).Limit(limit).Order("created_at desc").Find(&orders).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch orders!", nil)
	}

	response := map[string]interface{}{
		"orders": orders,
		"pagination": map[string]interface{}{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Orders fetched successfully!", response)
}
