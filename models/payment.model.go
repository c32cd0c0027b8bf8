package models

import "gorm.io/gorm"

// PaymentStatus is the outcome reported by the gateway
type PaymentStatus string

const (
	PaymentStatusSuccess PaymentStatus = "SUCCESS"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

// Payment is an append-only audit record of one gateway notification. The
// unique index on GatewayTransactionID is the idempotency anchor for
// at-least-once webhook delivery: rows are created once, never updated.
type Payment struct {
	gorm.Model
	OrderID              uint          `gorm:"not null;index" json:"orderId"`
	GatewayTransactionID string        `gorm:"type:varchar(100);uniqueIndex;not null" json:"gatewayTransactionId"`
	Status               PaymentStatus `gorm:"type:varchar(20);not null" json:"status"`
	Amount               float64       `gorm:"not null" json:"amount"`
	FailureReason        string        `gorm:"type:text" json:"failureReason"`
}
