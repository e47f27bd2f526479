package utils

import (
	"fmt"
	"net/smtp"
	"os"

	"flexkazi/freelancer-service/logging"
)

// SendEmail sends an email to the given address using the configured SMTP
// account.
func SendEmail(to, subject, body string) error {
	from := os.Getenv("EMAIL_FROM")
	password := os.Getenv("EMAIL_PASSWORD")

	smtpHost := os.Getenv("SMTP_HOST")
	smtpPort := os.Getenv("SMTP_PORT")
	if smtpHost == "" {
		smtpHost = "smtp.gmail.com"
	}
	if smtpPort == "" {
		smtpPort = "587"
	}

	if password == "" {
		return fmt.Errorf("EMAIL_PASSWORD is not set")
	}

	message := []byte("Subject: " + subject + "\r\n" +
		"From: " + from + "\r\n" +
		"To: " + to + "\r\n" +
		"Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n" +
		body + "\r\n")

	auth := smtp.PlainAuth("", from, password, smtpHost)

	err := smtp.SendMail(smtpHost+":"+smtpPort, auth, from, []string{to}, message)
	if err != nil {
		logging.Logger.Errorf("Event ID: SEND_EMAIL_FAILED, Description: Failed to send email to '%s' with subject '%s': %v", to, subject, err)
		return fmt.Errorf("failed to send email: %v", err)
	}

	logging.Logger.Infof("Event ID: SEND_EMAIL_SUCCESS, Description: Email sent to '%s' with subject: '%s'", to, subject)
	return nil
}

// SendPasswordResetEmail sends the reset link containing the one-time token.
func SendPasswordResetEmail(to, token string) error {
	baseURL := os.Getenv("FRONTEND_URL")
	if baseURL == "" {
		baseURL = "http://localhost:4200"
	}

	subject := "Reset your FlexKazi password"
	body := fmt.Sprintf(
		"We received a request to reset your password.<br>"+
			"<a href=\"%s/reset-password?token=%s\">Click here to choose a new one.</a><br>"+
			"If you did not request this, you can ignore this email.", baseURL, token)

	return SendEmail(to, subject, body)
}
