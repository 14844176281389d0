package auth

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/vaultline/vaultline/internal/apperr"
	"github.com/vaultline/vaultline/internal/identity"
	"github.com/vaultline/vaultline/internal/notification"
	"github.com/vaultline/vaultline/internal/passcode"
	"github.com/vaultline/vaultline/internal/session"
)

// User-facing messages.
const (
	MsgOTPSent          = "OTP sent successfully"
	MsgOTPSendFailed    = "Failed to send OTP"
	MsgEmailNotFound    = "Email not found"
	MsgInvalidOTP       = "Invalid OTP"
	MsgExpiredOTP       = "OTP expired"
	MsgTooManyAttempts  = "Too many failed attempts, request a new OTP"
	MsgPasswordUpdated  = "Password updated successfully"
	MsgVerifyFieldsMiss = "Email and OTP are required"
	MsgSessionInvalid   = "Session is invalid or expired"
)

// Service runs the sign-in, passcode and password reset flows.
type Service struct {
	users       *identity.Service
	passcodes   *passcode.Issuer
	mailer      notification.Mailer
	sessions    *session.Issuer
	passcodeTTL time.Duration
	log         zerolog.Logger
}

// NewService wires the sign-in flow.
func NewService(users *identity.Service, passcodes *passcode.Issuer, mailer notification.Mailer, sessions *session.Issuer, passcodeTTL time.Duration, baseLogger zerolog.Logger) *Service {
	return &Service{
		users:       users,
		passcodes:   passcodes,
		mailer:      mailer,
		sessions:    sessions,
		passcodeTTL: passcodeTTL,
		log:         baseLogger.With().Str("component", "auth").Logger(),
	}
}

// SignInResult reports a successful credential check. The passcode itself is
// only ever delivered by email.
type SignInResult struct {
	Email string        `json:"email"`
	Stage session.Stage `json:"stage"`
}

// SessionResult is the credential issued after passcode verification.
type SessionResult struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	Stage     session.Stage `json:"stage"`
	User      identity.User `json:"-"`
}

// SignIn checks the password for identifier and emails a sign-in passcode to
// the account's address.
func (s *Service) SignIn(ctx context.Context, identifier, password string) (SignInResult, error) {
	user, err := s.users.Authenticate(ctx, identifier, password)
	if err != nil {
		return SignInResult{}, err
	}
	stage, err := session.Next(session.StageUnauthenticated, session.EventCredentialsAccepted)
	if err != nil {
		return SignInResult{}, apperr.Unexpected(err)
	}

	code, err := s.passcodes.Issue(ctx, user.Email, passcode.PurposeSignIn)
	if err != nil {
		return SignInResult{}, apperr.Unexpected(err)
	}
	msg, err := notification.PasscodeEmail(user.Email, code, s.passcodeTTL)
	if err != nil {
		return SignInResult{}, apperr.Unexpected(err)
	}
	if err := s.deliver(ctx, user, msg); err != nil {
		return SignInResult{}, err
	}

	s.log.Info().Str("user_id", user.ID).Msg("sign-in passcode sent")
	return SignInResult{Email: user.Email, Stage: stage}, nil
}

// VerifyPasscode consumes the sign-in passcode for email and issues a session.
func (s *Service) VerifyPasscode(ctx context.Context, email, code string) (SessionResult, error) {
	user, err := s.lookup(ctx, email, code)
	if err != nil {
		return SessionResult{}, err
	}
	if err := s.checkPasscode(ctx, user, passcode.PurposeSignIn, code); err != nil {
		return SessionResult{}, err
	}

	stage, err := session.Next(session.StagePasscodePending, session.EventPasscodeVerified)
	if err != nil {
		return SessionResult{}, apperr.Unexpected(err)
	}
	token, exp, err := s.sessions.Issue(session.Principal{
		UserID:       user.ID,
		Email:        user.Email,
		Role:         user.Role,
		TokenVersion: user.TokenVersion,
	}, stage)
	if err != nil {
		return SessionResult{}, apperr.Unexpected(err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("session issued")
	return SessionResult{Token: token, ExpiresAt: exp, Stage: stage, User: user}, nil
}

// RequestPasswordReset emails a reset passcode to a known account.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	if identity.NormalizeEmail(email) == "" {
		return apperr.Validation(identity.MsgEmailRequired)
	}
	user, err := s.findUser(ctx, email)
	if err != nil {
		return err
	}

	code, err := s.passcodes.Issue(ctx, user.Email, passcode.PurposePasswordReset)
	if err != nil {
		return apperr.Unexpected(err)
	}
	msg, err := notification.PasswordResetEmail(user.Email, code, s.passcodeTTL)
	if err != nil {
		return apperr.Unexpected(err)
	}
	if err := s.deliver(ctx, user, msg); err != nil {
		return err
	}
	s.log.Info().Str("user_id", user.ID).Msg("password reset passcode sent")
	return nil
}

// ResetPassword checks the reset passcode and replaces the password. Existing
// sessions stop validating.
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if err := identity.ValidatePassword(newPassword); err != nil {
		return err
	}
	user, err := s.lookup(ctx, email, code)
	if err != nil {
		return err
	}
	if err := s.checkPasscode(ctx, user, passcode.PurposePasswordReset, code); err != nil {
		return err
	}
	if err := s.users.SetPassword(ctx, user.Email, newPassword); err != nil {
		return err
	}
	if err := s.passcodes.Clear(ctx, user.Email); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to clear passcode after reset")
	}
	s.log.Info().Str("user_id", user.ID).Msg("password reset")
	return nil
}

// SignOut revokes every session issued to the user.
func (s *Service) SignOut(ctx context.Context, userID string) error {
	if err := s.users.RevokeSessions(ctx, userID); err != nil {
		return err
	}
	s.log.Info().Str("user_id", userID).Msg("signed out")
	return nil
}

// Resolve maps a bearer credential to its account. Only authenticated-stage
// credentials whose token version is current are accepted.
func (s *Service) Resolve(ctx context.Context, token string) (identity.User, error) {
	claims, err := s.sessions.Parse(token)
	if err != nil || claims.Stage != session.StageAuthenticated {
		return identity.User{}, apperr.New(apperr.KindUnauthorized, MsgSessionInvalid)
	}
	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return identity.User{}, apperr.New(apperr.KindUnauthorized, MsgSessionInvalid)
		}
		return identity.User{}, err
	}
	if user.TokenVersion != claims.Version {
		return identity.User{}, apperr.New(apperr.KindUnauthorized, MsgSessionInvalid)
	}
	return user, nil
}

func (s *Service) lookup(ctx context.Context, email, code string) (identity.User, error) {
	if identity.NormalizeEmail(email) == "" || code == "" {
		return identity.User{}, apperr.Validation(MsgVerifyFieldsMiss)
	}
	return s.findUser(ctx, email)
}

func (s *Service) findUser(ctx context.Context, email string) (identity.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return identity.User{}, apperr.NotFound(MsgEmailNotFound)
		}
		return identity.User{}, err
	}
	return user, nil
}

func (s *Service) checkPasscode(ctx context.Context, user identity.User, purpose passcode.Purpose, code string) error {
	err := s.passcodes.Verify(ctx, user.Email, purpose, code)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, passcode.ErrInvalid):
		s.log.Info().Str("user_id", user.ID).Str("purpose", string(purpose)).Msg("passcode rejected")
		return apperr.InvalidCredentials(MsgInvalidOTP)
	case errors.Is(err, passcode.ErrExpired):
		return apperr.InvalidCredentials(MsgExpiredOTP)
	case errors.Is(err, passcode.ErrTooManyAttempts):
		s.log.Warn().Str("user_id", user.ID).Str("purpose", string(purpose)).Msg("passcode locked after repeated failures")
		return apperr.InvalidCredentials(MsgTooManyAttempts)
	default:
		return apperr.Unexpected(err)
	}
}

func (s *Service) deliver(ctx context.Context, user identity.User, msg notification.Message) error {
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Str("subject", msg.Subject).Msg("passcode delivery failed")
		if clearErr := s.passcodes.Clear(ctx, user.Email); clearErr != nil {
			s.log.Warn().Err(clearErr).Str("user_id", user.ID).Msg("failed to clear undelivered passcode")
		}
		return apperr.Wrap(apperr.KindDeliveryFailure, MsgOTPSendFailed, err)
	}
	return nil
}
