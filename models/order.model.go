package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderStatus defines the order state machine: PENDING -> COMPLETED/FAILED.
// REFUNDED is reachable only from COMPLETED via admin action.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusFailed    OrderStatus = "FAILED"
	OrderStatusRefunded  OrderStatus = "REFUNDED"
)

// OrderGateway identifies which path settled the order
const (
	OrderGatewayStripe = "STRIPE"
	OrderGatewayFree   = "FREE"
)

// Order is a purchase attempt. Amount, prices and coupon are immutable after
// creation; only Status and PaymentGatewayTransactionID are ever updated.
type Order struct {
	gorm.Model
	UserID        uint        `gorm:"not null;index" json:"userId"`
	CourseID      uint        `gorm:"not null;index" json:"courseId"`
	Amount        float64     `gorm:"not null" json:"amount"` // charged amount = max(0, originalPrice - discount)
	OriginalPrice float64     `gorm:"not null" json:"originalPrice"`
	Discount      float64     `gorm:"default:0" json:"discount"`
	CouponID      *uint       `json:"couponId"`
	Status        OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	Gateway       string      `gorm:"type:varchar(20);not null" json:"gateway"` // STRIPE, FREE
	Currency      string      `gorm:"type:varchar(10);not null" json:"currency"`
	InvoiceNumber string      `gorm:"type:varchar(40);uniqueIndex" json:"invoiceNumber"`

	// Gateway intent id; empty until the gateway responds, unique per order
	PaymentGatewayTransactionID string `gorm:"type:varchar(100);index" json:"paymentGatewayTransactionId"`

	IsDeleted bool `gorm:"default:false" json:"-"`
}

// NewOrder builds an order with a generated invoice number. Invoice numbering
// is done here, explicitly, rather than in a save hook so the reconciliation
// flow has no hidden side effects.
func NewOrder(userID, courseID uint, amount, originalPrice, discount float64, couponID *uint, status OrderStatus, gateway, currency string) *Order {
	return &Order{
		UserID:        userID,
		CourseID:      courseID,
		Amount:        amount,
		OriginalPrice: originalPrice,
		Discount:      discount,
		CouponID:      couponID,
		Status:        status,
		Gateway:       gateway,
		Currency:      currency,
		InvoiceNumber: generateInvoiceNumber(),
	}
}

func generateInvoiceNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
	return fmt.Sprintf("INV-%s-%s", time.Now().Format("20060102"), suffix)
}
