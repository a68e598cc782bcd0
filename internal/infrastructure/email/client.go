// Package email provides the email client for sending transactional emails.
package email

import (
	"fmt"

	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/email/templates"
	"github.com/AtRiskMedia/pulsetrack-go/pkg/config"
	"github.com/resendlabs/resend-go"
)

// Service defines the interface for sending emails, allowing for mock implementations in tests.
type Service interface {
	SendWelcomeEmail(toEmail string) error
}

// ResendClient is the concrete implementation of the email Service using the Resend API.
type ResendClient struct {
	client    *resend.Client
	fromEmail string
	fromName  string
}

// NewService creates a new email service client, returning the Service interface.
func NewService() (Service, error) {
	if config.ResendAPIKey == "" {
		return nil, fmt.Errorf("RESEND_API_KEY environment variable is required")
	}

	return &ResendClient{
		client:    resend.NewClient(config.ResendAPIKey),
		fromEmail: config.EmailFrom,
		fromName:  config.EmailFromName,
	}, nil
}

// SendWelcomeEmail composes and sends the subscriber welcome email.
func (c *ResendClient) SendWelcomeEmail(toEmail string) error {
	htmlContent := templates.GetWelcomeEmailContent(templates.WelcomeEmailProps{
		SiteName: c.fromName,
	})

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", c.fromName, c.fromEmail),
		To:      []string{toEmail},
		Subject: fmt.Sprintf("Welcome to %s", c.fromName),
		Html:    htmlContent,
	}

	_, err := c.client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send welcome email via Resend: %w", err)
	}

	return nil
}
