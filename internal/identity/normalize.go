package identity

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	ssnPattern   = regexp.MustCompile(`^\d{3}-?\d{2}-?\d{4}$`)
)

const (
	minPhoneDigits = 7
	maxPhoneDigits = 15

	phoneSeparators = " -.()/"
)

// NormalizeEmail lower-cases and trims an email so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether email is syntactically plausible.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// NormalizePhone reduces a phone number to an optional leading "+" and its
// digits. Values with too few or too many digits, or with characters other
// than digits and the usual separators, normalize to "".
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	var b strings.Builder
	if strings.HasPrefix(phone, "+") {
		b.WriteByte('+')
		phone = phone[1:]
	}
	digits := 0
	for _, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			digits++
		case strings.ContainsRune(phoneSeparators, r):
		default:
			return ""
		}
	}
	if digits < minPhoneDigits || digits > maxPhoneDigits {
		return ""
	}
	return b.String()
}

func validImageURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "https" || u.Scheme == "http"
}
