package utils

import (
	"fmt"
	"log"

	"coursemart/config"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendEnrollmentEmail sends the enrollment confirmation through SendGrid.
// It is invoked fire-and-forget after a successful enrollment; a delivery
// failure is logged and must never affect the enrollment itself.
func SendEnrollmentEmail(email, userName, courseTitle string) {
	if config.AppConfig == nil || config.AppConfig.SendGridKey == "" {
		log.Printf("[EMAIL] SendGrid not configured, skipping enrollment email to %s", email)
		return
	}

	from := mail.NewEmail("CourseMart", config.AppConfig.EmailSender)
	to := mail.NewEmail(userName, email)
	subject := "Course Enrollment Confirmation - CourseMart"

	plain := fmt.Sprintf("Dear %s, you have successfully enrolled in %s. Happy learning!", userName, courseTitle)
	html := fmt.Sprintf(`
		<html>
			<body style="font-family: Arial, sans-serif; background-color: #f4f4f4; padding: 20px;">
				<div style="max-width: 600px; margin: auto; background-color: #ffffff; border-radius: 8px; padding: 30px; box-shadow: 0 2px 8px rgba(0, 0, 0, 0.1);">
					<h2 style="color: #333333; text-align: center;">🎉 Enrollment Successful!</h2>
					<p style="font-size: 16px; color: #555555;">Dear %s,</p>
					<p style="font-size: 16px; color: #555555;">Congratulations! You have successfully enrolled in:</p>
					<h3 style="text-align: center; color: #4CAF50; margin: 20px 0;">%s</h3>
					<p style="font-size: 14px; color: #666666;">You can now access all the course content and start learning at your own pace.</p>
					<p style="font-size: 14px; color: #999999; text-align: center; margin-top: 30px;">Happy Learning!</p>
					<p style="text-align: center; font-size: 12px; color: #bbbbbb; margin-top: 20px;">CourseMart Team</p>
				</div>
			</body>
		</html>
	`, userName, courseTitle)

	message := mail.NewSingleEmail(from, subject, to, plain, html)
	client := sendgrid.NewSendClient(config.AppConfig.SendGridKey)

	response, err := client.Send(message)
	if err != nil {
		log.Printf("[EMAIL] Error sending enrollment email to %s: %v", email, err)
		return
	}
	if response.StatusCode >= 300 {
		log.Printf("[EMAIL] SendGrid rejected enrollment email to %s: %d %s", email, response.StatusCode, response.Body)
		return
	}

	log.Printf("[EMAIL] Enrollment email sent to %s", email)
}
