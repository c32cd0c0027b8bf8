package paymentController

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"coursemart/config"
	"coursemart/database"
	"coursemart/middleware"
	"coursemart/models"
	paymentValidator "coursemart/validators/payment"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testWebhookSecret = "whsec_test_secret"

func setupWebhookTest(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Course{}, &models.Coupon{},
		&models.Order{}, &models.Payment{}, &models.Enrollment{}, &models.Progress{},
	))
	database.Database = database.DbInstance{Db: db}

	config.AppConfig = &config.Config{
		JWTKey:              "test-jwt-secret",
		StripeWebhookSecret: testWebhookSecret,
		DefaultCurrency:     "usd",
	}

	app := fiber.New()
	app.Post("/payment/webhook", HandleWebhook)
	app.Get("/payment/verify/:orderId", middleware.JWTMiddleware, paymentValidator.VerifyPayment(), VerifyPayment)

	return app, db
}

func seedPendingOrder(t *testing.T, db *gorm.DB, intentID string) (*models.User, *models.Course, *models.Order) {
	t.Helper()

	instructor := &models.User{Email: "teach@example.com", Password: "x", Role: "INSTRUCTOR"}
	require.NoError(t, db.Create(instructor).Error)
	student := &models.User{Email: "buyer@example.com", Name: "Buyer", Password: "x"}
	require.NoError(t, db.Create(student).Error)

	course := &models.Course{
		Title: "Swing Trading", Price: 95, Status: "ACTIVE", IsApproved: true,
		InstructorID: instructor.ID, AccessDuration: "lifetime",
	}
	require.NoError(t, db.Create(course).Error)

	order := models.NewOrder(student.ID, course.ID, 95, 95, 0, nil,
		models.OrderStatusPending, models.OrderGatewayStripe, "usd")
	order.PaymentGatewayTransactionID = intentID
	require.NoError(t, db.Create(order).Error)

	return student, course, order
}

// signStripePayload produces the documented signature header scheme:
// t=<unix>,v1=hex(hmac-sha256(secret, "<unix>.<payload>"))
func signStripePayload(payload []byte, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func intentEventPayload(eventType, intentID string, amount int64, orderID uint, failureMessage string) []byte {
	object := map[string]interface{}{
		"id":     intentID,
		"object": "payment_intent",
		"amount": amount,
		"metadata": map[string]string{
			"order_id": fmt.Sprintf("%d", orderID),
		},
	}
	if failureMessage != "" {
		object["last_payment_error"] = map[string]interface{}{"message": failureMessage}
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"id":          "evt_" + intentID,
		"object":      "event",
		"api_version": "2024-04-10",
		"type":        eventType,
		"data":        map[string]interface{}{"object": object},
	})
	return payload
}

func postWebhook(t *testing.T, app *fiber.App, payload []byte, signature string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/payment/webhook", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", signature)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestWebhookSucceededIsIdempotent(t *testing.T) {
	app, db := setupWebhookTest(t)
	student, course, order := seedPendingOrder(t, db, "pi_success_1")

	payload := intentEventPayload("payment_intent.succeeded", "pi_success_1", 9500, order.ID, "")

	// At-least-once delivery: the same event lands three times
	for i := 0; i < 3; i++ {
		resp := postWebhook(t, app, payload, signStripePayload(payload, testWebhookSecret))
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body, _ := io.ReadAll(resp.Body)
		assert.JSONEq(t, `{"received":true}`, string(body))
	}

	var paymentCount int64
	db.Model(&models.Payment{}).Where("gateway_transaction_id = ?", "pi_success_1").Count(&paymentCount)
	assert.EqualValues(t, 1, paymentCount)

	var enrollmentCount int64
	db.Model(&models.Enrollment{}).Where("user_id = ? AND course_id = ?", student.ID, course.ID).Count(&enrollmentCount)
	assert.EqualValues(t, 1, enrollmentCount)

	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, order.ID).Error)
	assert.Equal(t, models.OrderStatusCompleted, reloaded.Status)

	var payment models.Payment
	require.NoError(t, db.Where("gateway_transaction_id = ?", "pi_success_1").First(&payment).Error)
	assert.Equal(t, models.PaymentStatusSuccess, payment.Status)
	assert.Equal(t, 95.0, payment.Amount)
}

func TestWebhookFailedEvent(t *testing.T) {
	app, db := setupWebhookTest(t)
	student, course, order := seedPendingOrder(t, db, "pi_fail_1")

	payload := intentEventPayload("payment_intent.payment_failed", "pi_fail_1", 9500, order.ID, "Your card was declined.")
	resp := postWebhook(t, app, payload, signStripePayload(payload, testWebhookSecret))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, order.ID).Error)
	assert.Equal(t, models.OrderStatusFailed, reloaded.Status)

	var payment models.Payment
	require.NoError(t, db.Where("gateway_transaction_id = ?", "pi_fail_1").First(&payment).Error)
	assert.Equal(t, models.PaymentStatusFailed, payment.Status)
	assert.Equal(t, "Your card was declined.", payment.FailureReason)

	// A failed event never touches enrollments
	var enrollmentCount int64
	db.Model(&models.Enrollment{}).Where("user_id = ? AND course_id = ?", student.ID, course.ID).Count(&enrollmentCount)
	assert.EqualValues(t, 0, enrollmentCount)
}

func TestWebhookAcceptsDifferentApiVersion(t *testing.T) {
	app, db := setupWebhookTest(t)
	_, _, order := seedPendingOrder(t, db, "pi_old_pin")

	// Endpoints pinned to an older API version than the SDK still reconcile
	payload, _ := json.Marshal(map[string]interface{}{
		"id":          "evt_pi_old_pin",
		"object":      "event",
		"api_version": "2023-10-16",
		"type":        "payment_intent.succeeded",
		"data": map[string]interface{}{"object": map[string]interface{}{
			"id":     "pi_old_pin",
			"object": "payment_intent",
			"amount": 9500,
			"metadata": map[string]string{
				"order_id": fmt.Sprintf("%d", order.ID),
			},
		}},
	})
	resp := postWebhook(t, app, payload, signStripePayload(payload, testWebhookSecret))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, order.ID).Error)
	assert.Equal(t, models.OrderStatusCompleted, reloaded.Status)
}

func TestWebhookSucceededAfterFailedWithholdsEnrollment(t *testing.T) {
	app, db := setupWebhookTest(t)
	student, course, order := seedPendingOrder(t, db, "pi_mixed")

	failed := intentEventPayload("payment_intent.payment_failed", "pi_mixed", 9500, order.ID, "Your card was declined.")
	resp := postWebhook(t, app, failed, signStripePayload(failed, testWebhookSecret))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// A later charge on the same intent must not grant access off a failed order
	succeeded := intentEventPayload("payment_intent.succeeded", "pi_mixed", 9500, order.ID, "")
	resp = postWebhook(t, app, succeeded, signStripePayload(succeeded, testWebhookSecret))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, order.ID).Error)
	assert.Equal(t, models.OrderStatusFailed, reloaded.Status)

	var enrollmentCount int64
	db.Model(&models.Enrollment{}).Where("user_id = ? AND course_id = ?", student.ID, course.ID).Count(&enrollmentCount)
	assert.EqualValues(t, 0, enrollmentCount)

	var payments []models.Payment
	require.NoError(t, db.Where("gateway_transaction_id = ?", "pi_mixed").Find(&payments).Error)
	require.Len(t, payments, 1)
	assert.Equal(t, models.PaymentStatusFailed, payments[0].Status)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	app, db := setupWebhookTest(t)
	_, _, order := seedPendingOrder(t, db, "pi_forged")

	payload := intentEventPayload("payment_intent.succeeded", "pi_forged", 9500, order.ID, "")
	resp := postWebhook(t, app, payload, signStripePayload(payload, "whsec_wrong_secret"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// No state change of any kind
	var paymentCount, enrollmentCount int64
	db.Model(&models.Payment{}).Count(&paymentCount)
	db.Model(&models.Enrollment{}).Count(&enrollmentCount)
	assert.EqualValues(t, 0, paymentCount)
	assert.EqualValues(t, 0, enrollmentCount)

	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, order.ID).Error)
	assert.Equal(t, models.OrderStatusPending, reloaded.Status)
}

func TestWebhookUnknownEventTypeIsAcknowledged(t *testing.T) {
	app, db := setupWebhookTest(t)

	payload, _ := json.Marshal(map[string]interface{}{
		"id":          "evt_other",
		"object":      "event",
		"api_version": "2024-04-10",
		"type":        "charge.refund.updated",
		"data":        map[string]interface{}{"object": map[string]interface{}{}},
	})
	resp := postWebhook(t, app, payload, signStripePayload(payload, testWebhookSecret))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var paymentCount int64
	db.Model(&models.Payment{}).Count(&paymentCount)
	assert.EqualValues(t, 0, paymentCount)
}

func TestWebhookMissingOrderReturns404(t *testing.T) {
	app, db := setupWebhookTest(t)

	payload := intentEventPayload("payment_intent.succeeded", "pi_orphan", 9500, 9999, "")
	resp := postWebhook(t, app, payload, signStripePayload(payload, testWebhookSecret))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var paymentCount int64
	db.Model(&models.Payment{}).Count(&paymentCount)
	assert.EqualValues(t, 0, paymentCount)
}

func TestWebhookRaceWithExistingEnrollment(t *testing.T) {
	app, db := setupWebhookTest(t)
	student, course, order := seedPendingOrder(t, db, "pi_race")

	// The synchronous path already enrolled this (user, course)
	require.NoError(t, db.Create(&models.Enrollment{
		UserID: student.ID, CourseID: course.ID, OrderID: order.ID,
	}).Error)

	payload := intentEventPayload("payment_intent.succeeded", "pi_race", 9500, order.ID, "")
	resp := postWebhook(t, app, payload, signStripePayload(payload, testWebhookSecret))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Order is completed, but no second enrollment appears
	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, order.ID).Error)
	assert.Equal(t, models.OrderStatusCompleted, reloaded.Status)

	var enrollmentCount int64
	db.Model(&models.Enrollment{}).Where("user_id = ? AND course_id = ?", student.ID, course.ID).Count(&enrollmentCount)
	assert.EqualValues(t, 1, enrollmentCount)
}

func TestWebhookResolvesOrderFromMetadataFallback(t *testing.T) {
	app, db := setupWebhookTest(t)
	student, course, order := seedPendingOrder(t, db, "")

	// The intent id was never persisted locally; metadata carries the order id
	payload := intentEventPayload("payment_intent.succeeded", "pi_meta_only", 9500, order.ID, "")
	resp := postWebhook(t, app, payload, signStripePayload(payload, testWebhookSecret))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, order.ID).Error)
	assert.Equal(t, models.OrderStatusCompleted, reloaded.Status)
	assert.Equal(t, "pi_meta_only", reloaded.PaymentGatewayTransactionID)

	var enrollmentCount int64
	db.Model(&models.Enrollment{}).Where("user_id = ? AND course_id = ?", student.ID, course.ID).Count(&enrollmentCount)
	assert.EqualValues(t, 1, enrollmentCount)
}

func TestVerifyPaymentEndpoint(t *testing.T) {
	app, db := setupWebhookTest(t)
	student, _, order := seedPendingOrder(t, db, "pi_verify")

	token, err := middleware.GenerateJWT(student.ID, student.Name, student.Role, student.Email)
	require.NoError(t, err)

	// Before any payment event: pending and not enrolled
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/payment/verify/%d", order.ID), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var envelope struct {
		Status bool `json:"status"`
		Data   struct {
			OrderStatus string `json:"orderStatus"`
			IsEnrolled  bool   `json:"isEnrolled"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.True(t, envelope.Status)
	assert.Equal(t, "PENDING", envelope.Data.OrderStatus)
	assert.False(t, envelope.Data.IsEnrolled)

	// After the gateway confirms: completed and enrolled
	payload := intentEventPayload("payment_intent.succeeded", "pi_verify", 9500, order.ID, "")
	postWebhook(t, app, payload, signStripePayload(payload, testWebhookSecret))

	req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/payment/verify/%d", order.ID), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, "COMPLETED", envelope.Data.OrderStatus)
	assert.True(t, envelope.Data.IsEnrolled)
}
