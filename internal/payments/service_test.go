package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vaultline/vaultline/internal/apperr"
	"github.com/vaultline/vaultline/internal/logging"
	"github.com/vaultline/vaultline/internal/notification"
)

type testMailer struct {
	sent []notification.Message
	err  error
}

func (m *testMailer) Send(_ context.Context, msg notification.Message) error {
	m.sent = append(m.sent, msg)
	return m.err
}

func validReceipt() Receipt {
	return Receipt{
		UserName:   "Roberto Sanchez",
		UserEmail:  "rvsanchez255@gmail.com",
		Method:     "cashapp",
		ReceiptURL: "https://cdn.example.com/receipts/1.png",
	}
}

func TestSubmitSendsToRecipient(t *testing.T) {
	mailer := &testMailer{}
	svc := NewService(mailer, "ops@vaultline.io", logging.Discard())

	require.NoError(t, svc.Submit(context.Background(), validReceipt()))
	require.Len(t, mailer.sent, 1)
	msg := mailer.sent[0]
	require.Equal(t, "ops@vaultline.io", msg.To)
	require.Equal(t, "New Payment Receipt from Roberto Sanchez", msg.Subject)
	require.Contains(t, msg.HTML, "CashApp")
	require.Contains(t, msg.HTML, "rvsanchez255@gmail.com")
}

func TestSubmitValidation(t *testing.T) {
	mailer := &testMailer{}
	svc := NewService(mailer, "ops@vaultline.io", logging.Discard())

	badMethod := validReceipt()
	badMethod.Method = "Venmo"
	plainHTTP := validReceipt()
	plainHTTP.ReceiptURL = "http://cdn.example.com/r.png"
	relative := validReceipt()
	relative.ReceiptURL = "/uploads/r.png"

	for name, r := range map[string]Receipt{"method": badMethod, "http": plainHTTP, "relative": relative} {
		t.Run(name, func(t *testing.T) {
			err := svc.Submit(context.Background(), r)
			require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}
	require.Empty(t, mailer.sent)
}

func TestSubmitDeliveryFailure(t *testing.T) {
	svc := NewService(&testMailer{err: errors.New("boom")}, "ops@vaultline.io", logging.Discard())

	err := svc.Submit(context.Background(), validReceipt())
	require.Equal(t, apperr.KindDeliveryFailure, apperr.KindOf(err))

	unconfigured := NewService(&testMailer{}, "", logging.Discard())
	err = unconfigured.Submit(context.Background(), validReceipt())
	require.Equal(t, apperr.KindDeliveryFailure, apperr.KindOf(err))
}
