package payments

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vaultline/vaultline/internal/apperr"
	"github.com/vaultline/vaultline/internal/notification"
)

const MsgReceiptSendFailed = "Failed to send receipt"

var errNoRecipient = errors.New("receipt recipient is not configured")

// methods maps the lower-cased payment method to its display name.
var methods = map[string]string{
	"zelle":   "Zelle",
	"cashapp": "CashApp",
	"chime":   "Chime",
}

// Receipt is a customer's proof of an off-platform payment.
type Receipt struct {
	UserName   string
	UserEmail  string
	Method     string
	ReceiptURL string
}

// Service forwards payment receipts to the operations mailbox. Nothing is persisted.
type Service struct {
	mailer    notification.Mailer
	recipient string
	log       zerolog.Logger
	now       func() time.Time
}

// NewService constructs a receipt service delivering to recipient.
func NewService(mailer notification.Mailer, recipient string, baseLogger zerolog.Logger) *Service {
	return &Service{
		mailer:    mailer,
		recipient: recipient,
		log:       baseLogger.With().Str("component", "receipts").Logger(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Submit validates r and emails a summary to the operations mailbox.
func (s *Service) Submit(ctx context.Context, r Receipt) error {
	method, ok := methods[strings.ToLower(strings.TrimSpace(r.Method))]
	if !ok {
		return apperr.Validation("Payment method must be one of Zelle, CashApp or Chime")
	}
	u, err := url.Parse(strings.TrimSpace(r.ReceiptURL))
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return apperr.Validation("Receipt URL must be an https link")
	}
	if s.recipient == "" {
		return apperr.Wrap(apperr.KindDeliveryFailure, MsgReceiptSendFailed, errNoRecipient)
	}

	msg, err := notification.ReceiptEmail(s.recipient, notification.Receipt{
		UserName:    r.UserName,
		UserEmail:   r.UserEmail,
		Method:      method,
		ReceiptURL:  u.String(),
		SubmittedAt: s.now(),
	})
	if err != nil {
		return apperr.Unexpected(err)
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.log.Error().Err(err).Str("user_email", r.UserEmail).Msg("receipt delivery failed")
		return apperr.Wrap(apperr.KindDeliveryFailure, MsgReceiptSendFailed, err)
	}
	s.log.Info().Str("user_email", r.UserEmail).Str("method", method).Msg("receipt forwarded")
	return nil
}
