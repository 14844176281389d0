package notification

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vaultline/vaultline/internal/logging"
)

func TestPasscodeEmail(t *testing.T) {
	msg, err := PasscodeEmail("user@example.com", "012345", 10*time.Minute)
	require.NoError(t, err)
	require.Equal(t, "user@example.com", msg.To)
	require.Equal(t, SubjectPasscode, msg.Subject)
	require.Contains(t, msg.HTML, "<strong>012345</strong>")
	require.Contains(t, msg.HTML, "10 minutes")
}

func TestPasswordResetEmail(t *testing.T) {
	msg, err := PasswordResetEmail("user@example.com", "987654", 30*time.Second)
	require.NoError(t, err)
	require.Equal(t, SubjectPasswordReset, msg.Subject)
	require.Contains(t, msg.HTML, "987654")
	require.Contains(t, msg.HTML, "1 minutes")
}

func TestReceiptEmailEscapesInput(t *testing.T) {
	msg, err := ReceiptEmail("ops@example.com", Receipt{
		UserName:    "<b>Roberto</b>",
		UserEmail:   "rvsanchez255@gmail.com",
		Method:      "Zelle",
		ReceiptURL:  "https://cdn.example.com/r.png",
		SubmittedAt: time.Date(2025, 1, 2, 3, 4, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Equal(t, "New Payment Receipt from <b>Roberto</b>", msg.Subject)
	require.Contains(t, msg.HTML, "&lt;b&gt;Roberto&lt;/b&gt;")
	require.Contains(t, msg.HTML, `href="https://cdn.example.com/r.png"`)
	require.Contains(t, msg.HTML, "2025-01-02 03:04 UTC")
}

func TestSMTPMailerBuildsHTMLMessage(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Port: 587, Username: "bot", Password: "pw", From: "noreply@example.com"}, logging.Discard())

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	m.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		require.NotNil(t, a)
		return nil
	}

	err := m.Send(context.Background(), Message{To: "user@example.com", Subject: SubjectPasscode, HTML: "<p>hi</p>"})
	require.NoError(t, err)
	require.Equal(t, "smtp.example.com:587", gotAddr)
	require.Equal(t, "noreply@example.com", gotFrom)
	require.Equal(t, []string{"user@example.com"}, gotTo)

	raw := string(gotMsg)
	require.Contains(t, raw, "Subject: Your OTP Code\r\n")
	require.Contains(t, raw, "Content-Type: text/html")
	require.True(t, strings.HasSuffix(raw, "\r\n\r\n<p>hi</p>"))
}

func TestSMTPMailerHonorsCancelledContext(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Port: 25, From: "noreply@example.com"}, logging.Discard())
	m.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("must not dial")
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, m.Send(ctx, Message{To: "user@example.com"}), context.Canceled)
}

func TestSendGridMailer(t *testing.T) {
	var body map[string]any
	status := http.StatusAccepted
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer sg-key", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		w.WriteHeader(status)
	}))
	defer srv.Close()

	m := NewSendGridMailer("sg-key", "noreply@example.com", logging.Discard())
	m.baseURL = srv.URL

	err := m.Send(context.Background(), Message{To: "user@example.com", Subject: SubjectPasscode, HTML: "<p>123456</p>"})
	require.NoError(t, err)
	require.Equal(t, SubjectPasscode, body["subject"])
	require.Equal(t, "noreply@example.com", body["from"].(map[string]any)["email"])

	status = http.StatusUnauthorized
	err = m.Send(context.Background(), Message{To: "user@example.com", Subject: SubjectPasscode, HTML: "<p>1</p>"})
	require.ErrorContains(t, err, "status 401")
}
