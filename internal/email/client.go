package email

import (
	"context"

	"github.com/fitclub/billing/internal/config"
	ierr "github.com/fitclub/billing/internal/errors"
	"github.com/resend/resend-go/v2"
)

// EmailClient wraps the resend API
type EmailClient struct {
	client      *resend.Client
	enabled     bool
	fromAddress string
	replyTo     string
}

func NewEmailClient(cfg *config.Configuration) *EmailClient {
	enabled := cfg.Email.Enabled && cfg.Email.APIKey != ""

	var c *resend.Client
	if enabled {
		c = resend.NewClient(cfg.Email.APIKey)
	}

	return &EmailClient{
		client:      c,
		enabled:     enabled,
		fromAddress: cfg.Email.FromAddress,
		replyTo:     cfg.Email.ReplyTo,
	}
}

func (c *EmailClient) IsEnabled() bool {
	return c.enabled
}

func (c *EmailClient) GetFromAddress() string {
	return c.fromAddress
}

// SendEmail sends one message and returns the provider message id
func (c *EmailClient) SendEmail(ctx context.Context, from, to, subject, html, text string) (string, error) {
	if !c.enabled {
		return "", ierr.NewError("email client is disabled").
			Mark(ierr.ErrInvalidOperation)
	}

	params := &resend.SendEmailRequest{
		From:    from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
		Text:    text,
		ReplyTo: c.replyTo,
	}

	sent, err := c.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to send email").
			WithReportableDetails(map[string]any{"subject": subject}).
			Mark(ierr.ErrHTTPClient)
	}

	return sent.Id, nil
}
