package notification

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridMailer sends mail through the SendGrid v3 API.
type SendGridMailer struct {
	apiKey  string
	from    string
	baseURL string
	log     zerolog.Logger
}

// NewSendGridMailer builds a mailer authenticated with apiKey.
func NewSendGridMailer(apiKey, from string, baseLogger zerolog.Logger) *SendGridMailer {
	return &SendGridMailer{
		apiKey: apiKey,
		from:   from,
		log:    baseLogger.With().Str("component", "mailer").Str("provider", "sendgrid").Logger(),
	}
}

// Send posts the message to SendGrid. Any non-2xx response is an error.
func (m *SendGridMailer) Send(ctx context.Context, message Message) error {
	from := message.From
	if from == "" {
		from = m.from
	}
	email := mail.NewSingleEmail(mail.NewEmail("", from), message.Subject, mail.NewEmail("", message.To), "", message.HTML)

	// Client carries the request body, so it is not shared between sends.
	client := sendgrid.NewSendClient(m.apiKey)
	if m.baseURL != "" {
		client.BaseURL = m.baseURL
	}
	resp, err := client.SendWithContext(ctx, email)
	if err != nil {
		m.log.Error().Err(err).Str("to", message.To).Msg("sendgrid request failed")
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		m.log.Error().Int("status", resp.StatusCode).Str("to", message.To).Msg("sendgrid rejected message")
		return fmt.Errorf("sendgrid send: status %d", resp.StatusCode)
	}
	m.log.Debug().Str("to", message.To).Str("subject", message.Subject).Msg("email sent")
	return nil
}
