package notification

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// SMTPConfig holds relay settings for SMTPMailer.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends HTML mail through an SMTP relay.
type SMTPMailer struct {
	cfg      SMTPConfig
	log      zerolog.Logger
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPMailer builds an SMTP mailer. Auth is used only when a username is set.
func NewSMTPMailer(cfg SMTPConfig, baseLogger zerolog.Logger) *SMTPMailer {
	return &SMTPMailer{
		cfg:      cfg,
		log:      baseLogger.With().Str("component", "mailer").Str("provider", "smtp").Logger(),
		sendMail: smtp.SendMail,
	}
}

// Send delivers message. net/smtp has no context support, so ctx is only
// checked before dialing.
func (m *SMTPMailer) Send(ctx context.Context, message Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	from := message.From
	if from == "" {
		from = m.cfg.From
	}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	if err := m.sendMail(addr, auth, from, []string{message.To}, buildMIME(from, message)); err != nil {
		m.log.Error().Err(err).Str("to", message.To).Msg("smtp delivery failed")
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func buildMIME(from string, message Message) []byte {
	headers := []string{
		"From: " + from,
		"To: " + message.To,
		"Subject: " + mime.QEncoding.Encode("utf-8", message.Subject),
		"MIME-Version: 1.0",
		`Content-Type: text/html; charset="UTF-8"`,
		"",
		message.HTML,
	}
	return []byte(strings.Join(headers, "\r\n"))
}
