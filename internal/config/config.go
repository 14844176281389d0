package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultAppName        = "Vaultline"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultShutdownDelay  = "10s"
	defaultIdempotencyTTL = "24h"
	defaultSessionTTL     = "30m"
	defaultPasscodeTTL    = "10m"
	defaultPayoutCacheTTL = "5m"
	defaultMailProvider   = MailProviderLog

	minSessionSecretLen = 32
	encryptionKeyHexLen = 64
)

// Mail providers accepted by MAIL_PROVIDER.
const (
	MailProviderLog      = "log"
	MailProviderSendGrid = "sendgrid"
	MailProviderSMTP     = "smtp"
)

// bindings maps viper keys to the environment variables feeding them.
var bindings = map[string]string{
	"app.name":              "APP_NAME",
	"app.env":               "APP_ENV",
	"http.port":             "PORT",
	"log.level":             "LOG_LEVEL",
	"database.url":          "DATABASE_URL",
	"redis.url":             "REDIS_URL",
	"http.shutdown_timeout": "SHUTDOWN_TIMEOUT",
	"http.idempotency_ttl":  "IDEMPOTENCY_TTL",
	"session.secret":        "SESSION_SECRET",
	"session.ttl":           "SESSION_TTL",
	"passcode.ttl":          "PASSCODE_TTL",
	"passcode.max_attempts": "PASSCODE_MAX_ATTEMPTS",
	"signin.rate_limit":     "SIGNIN_RATE_LIMIT",
	"passcode.rate_limit":   "PASSCODE_RATE_LIMIT",
	"encryption.key":        "ENCRYPTION_KEY",
	"mail.provider":         "MAIL_PROVIDER",
	"mail.from":             "MAIL_FROM",
	"mail.sendgrid_api_key": "SENDGRID_API_KEY",
	"mail.smtp_host":        "SMTP_HOST",
	"mail.smtp_port":        "SMTP_PORT",
	"mail.smtp_username":    "SMTP_USERNAME",
	"mail.smtp_password":    "SMTP_PASSWORD",
	"receipts.recipient":    "RECEIPT_RECIPIENT",
	"payout.cache_ttl":      "PAYOUT_CACHE_TTL",
}

// Config captures application runtime configuration loaded from the environment.
type Config struct {
	AppName             string
	Env                 string
	Port                string
	LogLevel            string
	DatabaseURL         string
	RedisURL            string
	ShutdownPeriod      time.Duration
	IdempotencyTTL      time.Duration
	SessionSecret       string
	SessionTTL          time.Duration
	PasscodeTTL         time.Duration
	PasscodeMaxAttempts int
	SignInRateLimit     int
	PasscodeRateLimit   int
	EncryptionKey       []byte
	Mail                MailConfig
	ReceiptRecipient    string
	PayoutCacheTTL      time.Duration
}

// MailConfig selects and configures the outbound email provider.
type MailConfig struct {
	Provider       string
	From           string
	SendGridAPIKey string
	SMTPHost       string
	SMTPPort       int
	SMTPUsername   string
	SMTPPassword   string
}

// Load reads a .env file when present, then populates a Config from the
// environment. Missing secrets are generated in development only.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", env, err)
		}
	}
	v.SetDefault("app.name", defaultAppName)
	v.SetDefault("app.env", defaultAppEnv)
	v.SetDefault("http.port", defaultPort)
	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("http.shutdown_timeout", defaultShutdownDelay)
	v.SetDefault("http.idempotency_ttl", defaultIdempotencyTTL)
	v.SetDefault("session.ttl", defaultSessionTTL)
	v.SetDefault("passcode.ttl", defaultPasscodeTTL)
	v.SetDefault("passcode.max_attempts", 5)
	v.SetDefault("signin.rate_limit", 5)
	v.SetDefault("passcode.rate_limit", 3)
	v.SetDefault("mail.provider", defaultMailProvider)
	v.SetDefault("mail.smtp_port", 587)
	v.SetDefault("payout.cache_ttl", defaultPayoutCacheTTL)

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		AppName:             v.GetString("app.name"),
		Env:                 strings.ToLower(v.GetString("app.env")),
		Port:                v.GetString("http.port"),
		LogLevel:            strings.ToLower(v.GetString("log.level")),
		DatabaseURL:         v.GetString("database.url"),
		RedisURL:            v.GetString("redis.url"),
		SessionSecret:       v.GetString("session.secret"),
		PasscodeMaxAttempts: v.GetInt("passcode.max_attempts"),
		SignInRateLimit:     v.GetInt("signin.rate_limit"),
		PasscodeRateLimit:   v.GetInt("passcode.rate_limit"),
		ReceiptRecipient:    strings.TrimSpace(v.GetString("receipts.recipient")),
		Mail: MailConfig{
			Provider:       strings.ToLower(v.GetString("mail.provider")),
			From:           v.GetString("mail.from"),
			SendGridAPIKey: v.GetString("mail.sendgrid_api_key"),
			SMTPHost:       v.GetString("mail.smtp_host"),
			SMTPPort:       v.GetInt("mail.smtp_port"),
			SMTPUsername:   v.GetString("mail.smtp_username"),
			SMTPPassword:   v.GetString("mail.smtp_password"),
		},
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"http.shutdown_timeout", &cfg.ShutdownPeriod},
		{"http.idempotency_ttl", &cfg.IdempotencyTTL},
		{"session.ttl", &cfg.SessionTTL},
		{"passcode.ttl", &cfg.PasscodeTTL},
		{"payout.cache_ttl", &cfg.PayoutCacheTTL},
	}
	for _, d := range durations {
		parsed, err := time.ParseDuration(v.GetString(d.key))
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", bindings[d.key], err)
		}
		if parsed <= 0 {
			return Config{}, fmt.Errorf("%s must be positive", bindings[d.key])
		}
		*d.dst = parsed
	}

	if cfg.PasscodeMaxAttempts <= 0 {
		return Config{}, fmt.Errorf("PASSCODE_MAX_ATTEMPTS must be positive")
	}

	if raw := v.GetString("encryption.key"); raw != "" {
		if len(raw) != encryptionKeyHexLen {
			return Config{}, fmt.Errorf("ENCRYPTION_KEY must be a %d-character hex string, got %d chars", encryptionKeyHexLen, len(raw))
		}
		key, err := hex.DecodeString(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid ENCRYPTION_KEY: %w", err)
		}
		cfg.EncryptionKey = key
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.IsDev() {
		if c.SessionSecret == "" {
			c.SessionSecret = randomHex(minSessionSecretLen)
		}
		// A generated key would make data encrypted by a previous process unreadable.
		if c.EncryptionKey == nil && c.DatabaseURL != "" {
			return fmt.Errorf("ENCRYPTION_KEY must be set when DATABASE_URL is set")
		}
		if c.EncryptionKey == nil {
			key, _ := hex.DecodeString(randomHex(encryptionKeyHexLen / 2))
			c.EncryptionKey = key
		}
	} else {
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set")
		}
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL must be set")
		}
		if c.EncryptionKey == nil {
			return fmt.Errorf("ENCRYPTION_KEY must be set")
		}
	}
	if len(c.SessionSecret) < minSessionSecretLen {
		return fmt.Errorf("SESSION_SECRET must be at least %d bytes", minSessionSecretLen)
	}

	switch c.Mail.Provider {
	case MailProviderLog:
	case MailProviderSendGrid:
		if c.Mail.SendGridAPIKey == "" || c.Mail.From == "" {
			return fmt.Errorf("MAIL_PROVIDER=sendgrid requires SENDGRID_API_KEY and MAIL_FROM")
		}
	case MailProviderSMTP:
		if c.Mail.SMTPHost == "" || c.Mail.From == "" {
			return fmt.Errorf("MAIL_PROVIDER=smtp requires SMTP_HOST and MAIL_FROM")
		}
	default:
		return fmt.Errorf("unknown MAIL_PROVIDER %q", c.Mail.Provider)
	}
	return nil
}

// IsDev reports whether the service runs in a local development environment.
func (c Config) IsDev() bool {
	switch c.Env {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("read random bytes: %v", err))
	}
	return hex.EncodeToString(buf)
}
