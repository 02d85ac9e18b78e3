// Package email sends transactional mail through the Resend API.
package email

import (
	"fmt"
	"os"

	"github.com/resendlabs/resend-go"
)

// Service defines the interface for sending emails, allowing for mock
// implementations in tests.
type Service interface {
	SendOTPEmail(toEmail, name, otp string, expireMinutes int) error
	SendPasswordResetEmail(toEmail, name, resetURL string) error
}

// ResendClient is the concrete implementation of the email Service
// using the Resend API.
type ResendClient struct {
	client    *resend.Client
	fromEmail string
	fromName  string
}

// NewService creates a new email service client, returning the Service
// interface.
func NewService() (Service, error) {
	apiKey := os.Getenv("RESEND_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("RESEND_API_KEY environment variable is required")
	}

	fromEmail := os.Getenv("EMAIL_FROM")
	if fromEmail == "" {
		fromEmail = "noreply@krishibandhu.app"
	}

	fromName := os.Getenv("EMAIL_FROM_NAME")
	if fromName == "" {
		fromName = "KrishiBandhu"
	}

	return &ResendClient{
		client:    resend.NewClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
	}, nil
}

// SendOTPEmail sends the verification code used to complete
// registration.
func (c *ResendClient) SendOTPEmail(toEmail, name, otp string, expireMinutes int) error {
	html := fmt.Sprintf(`
	<div style="max-width:600px;margin:0 auto;font-family:Arial,sans-serif;color:#333">
	  <div style="background:#10b981;color:white;padding:20px;text-align:center">
	    <h1>KrishiBandhu</h1>
	  </div>
	  <div style="background:#f9f9f9;padding:30px">
	    <h2>Hello %s,</h2>
	    <p>Thank you for registering with KrishiBandhu! To complete your registration, please verify your email address using the OTP below:</p>
	    <div style="background:white;padding:20px;text-align:center;margin:20px 0;border:2px dashed #10b981">
	      <span style="font-size:32px;font-weight:bold;color:#10b981;letter-spacing:5px">%s</span>
	    </div>
	    <p><strong>This OTP will expire in %d minutes.</strong></p>
	    <p>If you didn't request this verification, please ignore this email.</p>
	  </div>
	</div>`, name, otp, expireMinutes)

	return c.send(toEmail, "Email Verification - OTP", html)
}

// SendPasswordResetEmail sends the reset link for a forgotten
// password.
func (c *ResendClient) SendPasswordResetEmail(toEmail, name, resetURL string) error {
	html := fmt.Sprintf(`
	<div style="max-width:600px;margin:0 auto;font-family:Arial,sans-serif;color:#333">
	  <div style="background:#10b981;color:white;padding:20px;text-align:center">
	    <h1>KrishiBandhu</h1>
	  </div>
	  <div style="background:#f9f9f9;padding:30px">
	    <h2>Hello %s,</h2>
	    <p>We received a request to reset your password for your KrishiBandhu account.</p>
	    <div style="text-align:center">
	      <a href="%s" style="display:inline-block;background:#10b981;color:white;padding:15px 30px;text-decoration:none;font-weight:bold">Reset Password</a>
	    </div>
	    <p><strong>This link will expire in 1 hour.</strong> If you didn't request a password reset, please ignore this email.</p>
	    <p style="word-break:break-all;color:#10b981">%s</p>
	  </div>
	</div>`, name, resetURL, resetURL)

	return c.send(toEmail, "Password Reset Request", html)
}

func (c *ResendClient) send(toEmail, subject, html string) error {
	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", c.fromName, c.fromEmail),
		To:      []string{toEmail},
		Subject: subject,
		Html:    html,
	}

	_, err := c.client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send email via Resend: %w", err)
	}

	return nil
}
