package utils

import (
	"log"
	"time"

	"coursemart/config"

	"github.com/go-resty/resty/v2"
)

var alertClient = resty.New().SetTimeout(5 * time.Second)

// SendOpsAlert pushes a high-severity reconciliation alert to the ops
// webhook channel. Fire-and-forget: alerting must never block or fail the
// payment acknowledgement that triggered it.
func SendOpsAlert(subject, detail string) {
	log.Printf("[ALERT] %s: %s", subject, detail)

	if config.AppConfig == nil || config.AppConfig.AlertWebhookURL == "" {
		return
	}

	_, err := alertClient.R().
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{
			"service": "coursemart",
			"subject": subject,
			"detail":  detail,
		}).
		Post(config.AppConfig.AlertWebhookURL)
	if err != nil {
		log.Printf("[ALERT] Failed to deliver ops alert: %v", err)
	}
}
