package utils

import (
	"fmt"
	"log"
	"time"

	"coursemart/database"
	"coursemart/models"

	"github.com/robfig/cron/v3"
)

// logSweep logs reconciliation sweep events with timestamp
func logSweep(message string) {
	log.Printf("[RECONCILE-SWEEP %s] %s", time.Now().Format(time.RFC3339), message)
}

// StartReconcileSweep schedules the repair jobs for orders the webhook left
// inconsistent: completed orders with no enrollment, and pending orders whose
// success payment landed but whose completion update did not. This is the
// out-of-band recovery path; the webhook handler never retries on its own.
func StartReconcileSweep() *cron.Cron {
	c := cron.New()
	if _, err := c.AddFunc("@every 10m", func() {
		RepairStuckPendingOrders()
		RepairMissingEnrollments()
	}); err != nil {
		log.Fatalf("Failed to schedule reconcile sweep: %v", err)
	}
	c.Start()
	logSweep("Scheduled: repair of inconsistent orders every 10m")
	return c
}

// RepairStuckPendingOrders completes pending orders that already have a
// success payment row. The completion UPDATE can fail after the payment row
// was persisted; a redelivery short-circuits at the idempotency check, so
// only the sweep can finish the transition.
func RepairStuckPendingOrders() {
	db := database.Database.Db

	var orders []models.Order
	err := db.Where("status = ? AND is_deleted = false", models.OrderStatusPending).
		Where("EXISTS (SELECT 1 FROM payments WHERE payments.order_id = orders.id AND payments.status = ? AND payments.deleted_at IS NULL)", models.PaymentStatusSuccess).
		Limit(100).
		Find(&orders).Error
	if err != nil {
		logSweep("Error fetching pending orders with success payment: " + err.Error())
		return
	}

	if len(orders) == 0 {
		return
	}
	logSweep(fmt.Sprintf("Found %d pending order(s) with a success payment", len(orders)))

	for i := range orders {
		order := orders[i]
		if err := CompleteOrder(db, &order, ""); err != nil {
			logSweep(fmt.Sprintf("Completion repair failed for order %d: %v", order.ID, err))
			SendOpsAlert("Order completion repair failed",
				fmt.Sprintf("order %d (user %d, course %d): %v", order.ID, order.UserID, order.CourseID, err))
			continue
		}
		logSweep(fmt.Sprintf("Repaired order %d: completed from stuck pending", order.ID))
	}
}

// RepairMissingEnrollments re-drives the enrollment materializer for
// completed orders whose (user, course) has no enrollment row
func RepairMissingEnrollments() {
	db := database.Database.Db

	var orders []models.Order
	err := db.Where("status = ? AND is_deleted = false", models.OrderStatusCompleted).
		Where("NOT EXISTS (SELECT 1 FROM enrollments WHERE enrollments.user_id = orders.user_id AND enrollments.course_id = orders.course_id AND enrollments.deleted_at IS NULL)").
		Limit(100).
		Find(&orders).Error
	if err != nil {
		logSweep("Error fetching completed orders without enrollment: " + err.Error())
		return
	}

	if len(orders) == 0 {
		return
	}
	logSweep(fmt.Sprintf("Found %d completed order(s) without enrollment", len(orders)))

	for i := range orders {
		order := orders[i]
		enrollment, alreadyEnrolled, err := MaterializeEnrollment(db, &order)
		if err != nil {
			logSweep(fmt.Sprintf("Repair failed for order %d: %v", order.ID, err))
			SendOpsAlert("Enrollment repair failed",
				fmt.Sprintf("order %d (user %d, course %d): %v", order.ID, order.UserID, order.CourseID, err))
			continue
		}
		if alreadyEnrolled {
			logSweep(fmt.Sprintf("Order %d already had enrollment %d", order.ID, enrollment.ID))
			continue
		}
		logSweep(fmt.Sprintf("Repaired order %d with enrollment %d", order.ID, enrollment.ID))
	}
}
