package utils

import (
	"log"

	"coursemart/models"

	"gorm.io/gorm"
)

// CompleteOrder performs the single PENDING -> COMPLETED transition. Calling
// it on an already-terminal order is a logged no-op: the gateway is allowed
// to redeliver terminal notifications.
func CompleteOrder(db *gorm.DB, order *models.Order, gatewayTxnID string) error {
	if order.Status != models.OrderStatusPending {
		log.Printf("[ORDER] completion ignored for order %d: status is already %s", order.ID, order.Status)
		return nil
	}

	updates := map[string]interface{}{"status": models.OrderStatusCompleted}
	if gatewayTxnID != "" && order.PaymentGatewayTransactionID == "" {
		updates["payment_gateway_transaction_id"] = gatewayTxnID
	}

	return db.Model(order).Updates(updates).Error
}

// FailOrder performs the single PENDING -> FAILED transition, same no-op
// rule as CompleteOrder for terminal orders.
func FailOrder(db *gorm.DB, order *models.Order, reason string) error {
	if order.Status != models.OrderStatusPending {
		log.Printf("[ORDER] failure ignored for order %d: status is already %s", order.ID, order.Status)
		return nil
	}

	log.Printf("[ORDER] order %d failed: %s", order.ID, reason)
	return db.Model(order).Update("status", models.OrderStatusFailed).Error
}
