package paymentController

import (
	"errors"
	"fmt"
	"log"

	"coursemart/database"
	"coursemart/middleware"
	"coursemart/models"
	"coursemart/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// HandleWebhook handles POST /payment/webhook. It must stay safe under
// concurrent and duplicate delivery: every decision rests on the unique
// indexes on payments.gateway_transaction_id and enrollments.(user, course),
// never on in-process state.
func HandleWebhook(c *fiber.Ctx) error {
	event, err := utils.VerifyWebhookSignature(c.Body(), c.Get("Stripe-Signature"))
	if err != nil {
		// No state change on a bad signature; the gateway will retry
		log.Printf("[WEBHOOK] signature verification failed: %v", err)
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Webhook signature verification failed!", nil)
	}

	db := database.Database.Db

	switch event.Type {
	case utils.GatewayEventSucceeded:
		return handleSucceeded(c, db, event)
	case utils.GatewayEventFailed:
		return handleFailed(c, db, event)
	}

	// Event types outside the reconciliation contract are acknowledged
	return c.JSON(fiber.Map{"received": true})
}

// handleSucceeded drives a succeeded gateway event through the order state
// machine: dedupe on the payment row, persist the audit record, complete the
// order, materialize the enrollment.
func handleSucceeded(c *fiber.Ctx, db *gorm.DB, event *utils.NormalizedEvent) error {
	// Idempotency check: this intent was already processed successfully
	var processed models.Payment
	if err := db.Where("gateway_transaction_id = ? AND status = ?", event.IntentID, models.PaymentStatusSuccess).
		First(&processed).Error; err == nil {
		log.Printf("[WEBHOOK] duplicate delivery for intent %s, already processed", event.IntentID)
		return c.JSON(fiber.Map{"received": true})
	}

	order, err := resolveOrder(db, event)
	if err != nil {
		// The order may not exist yet if the event raced its creation; the
		// gateway retry will find it once the local commit lands
		log.Printf("[WEBHOOK] no order found for intent %s (metadata order id %d)", event.IntentID, event.OrderID)
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Order not found for gateway event!", nil)
	}

	// Append the audit record; the unique index resolves concurrent duplicates
	payment := models.Payment{
		OrderID:              order.ID,
		GatewayTransactionID: event.IntentID,
		Status:               models.PaymentStatusSuccess,
		Amount:               event.Amount,
	}
	if err := db.Create(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			log.Printf("[WEBHOOK] payment row for intent %s already exists", event.IntentID)
		} else {
			// Nothing persisted yet, so do not acknowledge; the retry is safe
			log.Printf("[WEBHOOK] failed to record payment for intent %s: %v", event.IntentID, err)
			return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to record payment!", nil)
		}
	}

	if order.Status == models.OrderStatusFailed || order.Status == models.OrderStatusRefunded {
		// The gateway charged after a failure was recorded on this order
		// (a card retry on the same intent). Access is never granted off a
		// failed order; the charge is flagged for manual review instead.
		utils.SendOpsAlert("Reconciliation inconsistency",
			fmt.Sprintf("succeeded event for intent %s but order %d is already %s; enrollment withheld", event.IntentID, order.ID, order.Status))
		return c.JSON(fiber.Map{"received": true})
	}

	if err := utils.CompleteOrder(db, order, event.IntentID); err != nil {
		// Payment is persisted: acknowledge and flag instead of retry-looping
		utils.SendOpsAlert("Reconciliation inconsistency",
			fmt.Sprintf("payment %s recorded but order %d completion failed: %v", event.IntentID, order.ID, err))
		return c.JSON(fiber.Map{"received": true})
	}

	enrollment, alreadyEnrolled, err := utils.MaterializeEnrollment(db, order)
	if err != nil {
		// Same policy: acknowledged, flagged, repaired by the sweep
		utils.SendOpsAlert("Reconciliation inconsistency",
			fmt.Sprintf("payment %s recorded and order %d completed but enrollment failed: %v", event.IntentID, order.ID, err))
		return c.JSON(fiber.Map{"received": true})
	}

	if alreadyEnrolled {
		log.Printf("[WEBHOOK] order %d already enrolled as %d, no new enrollment", order.ID, enrollment.ID)
	} else {
		sendEnrollmentEmail(db, order)
	}

	return c.JSON(fiber.Map{"received": true})
}

// handleFailed records the failure for audit and transitions the order; a
// failed event never touches enrollments
func handleFailed(c *fiber.Ctx, db *gorm.DB, event *utils.NormalizedEvent) error {
	order, err := resolveOrder(db, event)
	if err != nil {
		log.Printf("[WEBHOOK] no order found for failed intent %s (metadata order id %d)", event.IntentID, event.OrderID)
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Order not found for gateway event!", nil)
	}

	payment := models.Payment{
		OrderID:              order.ID,
		GatewayTransactionID: event.IntentID,
		Status:               models.PaymentStatusFailed,
		Amount:               event.Amount,
		FailureReason:        event.FailureMessage,
	}
	if err := db.Create(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			log.Printf("[WEBHOOK] payment row for failed intent %s already exists", event.IntentID)
		} else {
			log.Printf("[WEBHOOK] failed to record failed payment for intent %s: %v", event.IntentID, err)
			return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to record payment!", nil)
		}
	}

	if err := utils.FailOrder(db, order, event.FailureMessage); err != nil {
		utils.SendOpsAlert("Reconciliation inconsistency",
			fmt.Sprintf("failed payment %s recorded but order %d transition failed: %v", event.IntentID, order.ID, err))
	}

	return c.JSON(fiber.Map{"received": true})
}

// resolveOrder maps a gateway event to its order: first by the stored intent
// id, then by the order id carried in gateway metadata (covers the window
// where the intent id was never persisted locally)
func resolveOrder(db *gorm.DB, event *utils.NormalizedEvent) (*models.Order, error) {
	var order models.Order
	if err := db.Where("payment_gateway_transaction_id = ? AND is_deleted = ?", event.IntentID, false).
		First(&order).Error; err == nil {
		return &order, nil
	}

	if event.OrderID != 0 {
		if err := db.Where("id = ? AND is_deleted = ?", event.OrderID, false).First(&order).Error; err == nil {
			return &order, nil
		}
	}

	return nil, gorm.ErrRecordNotFound
}

func sendEnrollmentEmail(db *gorm.DB, order *models.Order) {
	var user models.User
	var course models.Course
	if err := db.First(&user, order.UserID).Error; err != nil {
		return
	}
	if err := db.First(&course, order.CourseID).Error; err != nil {
		return
	}
	go utils.SendEnrollmentEmail(user.Email, user.Name, course.Title)
}

// VerifyPayment handles GET /payment/verify/:orderId for client-side polling
// after a redirect-based payment flow
func VerifyPayment(c *fiber.Ctx) error {
	// Retrieve userId from JWT middleware
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	orderID, ok := c.Locals("orderID").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Order ID!", nil)
	}

	db := database.Database.Db

	var order models.Order
	if err := db.Where("id = ? AND user_id = ? AND is_deleted = ?", orderID, userID, false).
		First(&order).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Order not found!", nil)
	}

	var enrollmentCount int64
	db.Model(&models.Enrollment{}).
		Where("user_id = ? AND course_id = ? AND is_deleted = ?", order.UserID, order.CourseID, false).
		Count(&enrollmentCount)

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Order status fetched successfully!", fiber.Map{
		"orderStatus": order.Status,
		"isEnrolled":  enrollmentCount > 0,
	})
}
