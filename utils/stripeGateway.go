package utils

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"coursemart/config"
	"coursemart/models"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/paymentintent"
	"github.com/stripe/stripe-go/v78/webhook"
)

// Normalized webhook event types
const (
	GatewayEventSucceeded = "succeeded"
	GatewayEventFailed    = "failed"
	GatewayEventIgnored   = "ignored"
)

// NormalizedEvent is the gateway-neutral view of one webhook notification
type NormalizedEvent struct {
	Type           string
	IntentID       string
	Amount         float64
	OrderID        uint // from gateway metadata, 0 if absent
	FailureMessage string
}

// InitGateway configures the Stripe client. The custom HTTP client bounds
// every gateway call so a slow provider surfaces as a retryable error
// instead of a hung request.
func InitGateway() {
	stripe.Key = config.AppConfig.StripeSecretKey
	stripe.SetBackend(stripe.APIBackend, stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}))
}

// CreatePaymentIntent opens a payment intent for a pending order and returns
// the gateway intent id and the client secret for the frontend. Order and
// user ids travel as gateway metadata so an event can still be reconciled if
// the local intent id was never persisted.
func CreatePaymentIntent(order *models.Order, user *models.User) (string, string, error) {
	if user.Email == "" {
		return "", "", fmt.Errorf("user %d has no email address for payment receipts", user.ID)
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(toMinorUnits(order.Amount)),
		Currency: stripe.String(order.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		ReceiptEmail: stripe.String(user.Email),
	}
	params.AddMetadata("order_id", strconv.FormatUint(uint64(order.ID), 10))
	params.AddMetadata("user_id", strconv.FormatUint(uint64(user.ID), 10))
	params.AddMetadata("invoice_number", order.InvoiceNumber)
	params.SetIdempotencyKey(order.InvoiceNumber)

	intent, err := paymentintent.New(params)
	if err != nil {
		return "", "", err
	}

	return intent.ID, intent.ClientSecret, nil
}

// VerifyWebhookSignature validates the signature header against the shared
// webhook secret and normalizes the event. A verification failure must be
// answered with 400 and no state change; the gateway will retry. The endpoint
// may be pinned to a different API version than the SDK, so a version
// mismatch alone does not reject the event.
func VerifyWebhookSignature(payload []byte, signatureHeader string) (*NormalizedEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, config.AppConfig.StripeWebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, err
	}

	switch event.Type {
	case "payment_intent.succeeded":
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return nil, fmt.Errorf("malformed payment intent payload: %w", err)
		}
		return &NormalizedEvent{
			Type:     GatewayEventSucceeded,
			IntentID: intent.ID,
			Amount:   fromMinorUnits(intent.Amount),
			OrderID:  metadataOrderID(intent.Metadata),
		}, nil

	case "payment_intent.payment_failed":
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return nil, fmt.Errorf("malformed payment intent payload: %w", err)
		}
		failureMessage := "payment failed"
		if intent.LastPaymentError != nil && intent.LastPaymentError.Msg != "" {
			failureMessage = intent.LastPaymentError.Msg
		}
		return &NormalizedEvent{
			Type:           GatewayEventFailed,
			IntentID:       intent.ID,
			Amount:         fromMinorUnits(intent.Amount),
			OrderID:        metadataOrderID(intent.Metadata),
			FailureMessage: failureMessage,
		}, nil
	}

	// Event types outside the reconciliation contract are acknowledged as-is
	return &NormalizedEvent{Type: GatewayEventIgnored}, nil
}

func metadataOrderID(metadata map[string]string) uint {
	raw, ok := metadata["order_id"]
	if !ok {
		return 0
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}

func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func fromMinorUnits(amount int64) float64 {
	return float64(amount) / 100
}
