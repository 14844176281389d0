// Package notification delivers transactional email.
package notification

import (
	"context"

	"github.com/rs/zerolog"
)

// Message is a single HTML email. From may be empty to use the mailer's default sender.
type Message struct {
	To      string
	From    string
	Subject string
	HTML    string
}

// Mailer delivers email to downstream providers.
type Mailer interface {
	Send(ctx context.Context, message Message) error
}

// LoggerMailer is a development mailer that records deliveries in the log.
// Bodies are not logged since they carry passcodes.
type LoggerMailer struct {
	log zerolog.Logger
}

// NewLoggerMailer constructs a logging mailer.
func NewLoggerMailer(baseLogger zerolog.Logger) *LoggerMailer {
	return &LoggerMailer{log: baseLogger.With().Str("component", "mailer").Logger()}
}

// Send writes the recipient and subject to the log.
func (m *LoggerMailer) Send(_ context.Context, message Message) error {
	m.log.Info().Str("to", message.To).Str("subject", message.Subject).Msg("email dispatched")
	return nil
}
