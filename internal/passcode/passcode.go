// Package passcode issues and verifies the short-lived numeric codes emailed
// during sign-in and password reset.
package passcode

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// Purpose scopes a passcode to the flow that issued it.
type Purpose string

const (
	PurposeSignIn        Purpose = "sign_in"
	PurposePasswordReset Purpose = "password_reset"
)

const (
	codeDigits = 6
	codeSpace  = 1_000_000
)

var (
	// ErrInvalid covers a missing record, a purpose mismatch and a wrong code.
	ErrInvalid         = errors.New("passcode: invalid")
	ErrExpired         = errors.New("passcode: expired")
	ErrTooManyAttempts = errors.New("passcode: too many attempts")
)

// Record is the stored form of a live passcode. Only the hash is kept.
type Record struct {
	Hash      []byte    `json:"hash"`
	Purpose   Purpose   `json:"purpose"`
	Attempts  int       `json:"-"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store persists at most one record per canonical email.
//
// IncrAttempts atomically bumps the attempt counter of the live record and
// returns the new count, or ErrNoRecord. Delete reports whether a record was
// removed so that only one caller can consume a code.
type Store interface {
	Put(ctx context.Context, email string, rec Record) error
	Get(ctx context.Context, email string) (Record, error)
	IncrAttempts(ctx context.Context, email string) (int, error)
	Delete(ctx context.Context, email string) (bool, error)
}

// ErrNoRecord is returned by Store.Get when no passcode is live for the email.
var ErrNoRecord = errors.New("passcode: no record")

// Generate returns a uniformly random six-digit code, leading zeros kept.
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpace))
	if err != nil {
		return "", fmt.Errorf("generate passcode: %w", err)
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}

// Options tunes an Issuer.
type Options struct {
	TTL         time.Duration
	MaxAttempts int
	// HashCost is the bcrypt cost; zero means bcrypt.DefaultCost.
	HashCost int
}

// Issuer creates and checks passcodes against a Store.
type Issuer struct {
	store Store
	opts  Options
	log   zerolog.Logger
	now   func() time.Time
}

// NewIssuer builds an Issuer.
func NewIssuer(store Store, opts Options, baseLogger zerolog.Logger) *Issuer {
	if opts.TTL <= 0 {
		opts.TTL = 10 * time.Minute
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.HashCost == 0 {
		opts.HashCost = bcrypt.DefaultCost
	}
	return &Issuer{
		store: store,
		opts:  opts,
		log:   baseLogger.With().Str("component", "passcode").Logger(),
		now:   time.Now,
	}
}

// Issue generates a new code for email, replacing any live one, and returns
// the plain code for delivery.
func (i *Issuer) Issue(ctx context.Context, email string, purpose Purpose) (string, error) {
	code, err := Generate()
	if err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), i.opts.HashCost)
	if err != nil {
		return "", fmt.Errorf("hash passcode: %w", err)
	}
	now := i.now().UTC()
	rec := Record{
		Hash:      hash,
		Purpose:   purpose,
		IssuedAt:  now,
		ExpiresAt: now.Add(i.opts.TTL),
	}
	if err := i.store.Put(ctx, email, rec); err != nil {
		return "", fmt.Errorf("store passcode: %w", err)
	}
	i.log.Debug().Str("purpose", string(purpose)).Time("expires_at", rec.ExpiresAt).Msg("passcode issued")
	return code, nil
}

// Verify checks code against the live record for email. Every attempt is
// counted before the code is compared; the attempt that reaches MaxAttempts
// without a match drops the record. A match consumes the record.
func (i *Issuer) Verify(ctx context.Context, email string, purpose Purpose, code string) error {
	rec, err := i.store.Get(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNoRecord) {
			return ErrInvalid
		}
		return fmt.Errorf("load passcode: %w", err)
	}
	if rec.Purpose != purpose {
		return ErrInvalid
	}
	if !i.now().Before(rec.ExpiresAt) {
		if _, err := i.store.Delete(ctx, email); err != nil {
			i.log.Warn().Err(err).Msg("failed to drop expired passcode")
		}
		return ErrExpired
	}

	attempts, err := i.store.IncrAttempts(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNoRecord) {
			return ErrInvalid
		}
		return fmt.Errorf("count passcode attempt: %w", err)
	}
	if attempts > i.opts.MaxAttempts {
		return ErrTooManyAttempts
	}

	if bcrypt.CompareHashAndPassword(rec.Hash, []byte(code)) != nil {
		if attempts == i.opts.MaxAttempts {
			if _, err := i.store.Delete(ctx, email); err != nil {
				return fmt.Errorf("drop passcode: %w", err)
			}
			i.log.Info().Str("purpose", string(purpose)).Msg("passcode dropped after max attempts")
			return ErrTooManyAttempts
		}
		return ErrInvalid
	}

	consumed, err := i.store.Delete(ctx, email)
	if err != nil {
		return fmt.Errorf("consume passcode: %w", err)
	}
	if !consumed {
		return ErrInvalid
	}
	return nil
}

// Clear drops any live passcode for email.
func (i *Issuer) Clear(ctx context.Context, email string) error {
	_, err := i.store.Delete(ctx, email)
	return err
}
