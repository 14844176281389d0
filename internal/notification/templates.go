package notification

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

const (
	SubjectPasscode      = "Your OTP Code"
	SubjectPasswordReset = "Password Reset OTP"
)

var templates = template.Must(template.New("mail").Parse(`
{{define "passcode"}}<p>Your OTP code is: <strong>{{.Code}}</strong></p>
<p>It expires in {{.Minutes}} minutes. If you did not try to sign in, you can ignore this email.</p>{{end}}
{{define "reset"}}<p>Your OTP code is: <strong>{{.Code}}</strong></p>
<p>Use it within {{.Minutes}} minutes to choose a new password. If you did not ask for a reset, you can ignore this email.</p>{{end}}
{{define "receipt"}}<h2>New payment receipt</h2>
<p><strong>Name:</strong> {{.UserName}}</p>
<p><strong>Email:</strong> {{.UserEmail}}</p>
<p><strong>Payment method:</strong> {{.Method}}</p>
<p><strong>Submitted:</strong> {{.SubmittedAt.Format "2006-01-02 15:04 MST"}}</p>
<p><a href="{{.ReceiptURL}}">View receipt</a></p>{{end}}
`))

type codeData struct {
	Code    string
	Minutes int
}

// Receipt describes a submitted proof of payment.
type Receipt struct {
	UserName    string
	UserEmail   string
	Method      string
	ReceiptURL  string
	SubmittedAt time.Time
}

// PasscodeEmail renders the sign-in passcode email.
func PasscodeEmail(to, code string, ttl time.Duration) (Message, error) {
	return render(to, SubjectPasscode, "passcode", codeData{Code: code, Minutes: minutes(ttl)})
}

// PasswordResetEmail renders the password reset passcode email.
func PasswordResetEmail(to, code string, ttl time.Duration) (Message, error) {
	return render(to, SubjectPasswordReset, "reset", codeData{Code: code, Minutes: minutes(ttl)})
}

// ReceiptEmail renders the operator notification for a submitted receipt.
func ReceiptEmail(to string, r Receipt) (Message, error) {
	return render(to, fmt.Sprintf("New Payment Receipt from %s", r.UserName), "receipt", r)
}

func render(to, subject, name string, data any) (Message, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return Message{}, fmt.Errorf("render %s email: %w", name, err)
	}
	return Message{To: to, Subject: subject, HTML: buf.String()}, nil
}

func minutes(d time.Duration) int {
	m := int(d.Round(time.Minute) / time.Minute)
	if m < 1 {
		return 1
	}
	return m
}
