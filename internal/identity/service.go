package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vaultline/vaultline/internal/apperr"
	"github.com/vaultline/vaultline/internal/secure"
)

// User-facing messages.
const (
	MsgInvalidLogin     = "Invalid email/phone or password"
	MsgMissingLogin     = "Please enter both email/phone and password"
	MsgEmailRequired    = "Email is required"
	MsgUserNotFound     = "User not found"
	MsgNothingToUpdate  = "Nothing to update"
	MsgPasswordTooShort = "Password must be at least 8 characters"
)

const (
	minPasswordLen  = 8
	defaultCurrency = "USD"
)

// Service manages the account lifecycle and the credential check of sign-in.
type Service struct {
	repo      Repository
	log       zerolog.Logger
	dummyHash string
	now       func() time.Time
}

// NewService creates a new identity service.
func NewService(repo Repository, baseLogger zerolog.Logger) *Service {
	// Verified against unknown identifiers so both failure paths cost one KDF run.
	dummy, err := secure.HashPassword(uuid.NewString())
	if err != nil {
		panic(err)
	}
	return &Service{
		repo:      repo,
		log:       baseLogger.With().Str("component", "identity").Logger(),
		dummyHash: dummy,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a customer account with a hashed password.
func (s *Service) Register(ctx context.Context, in NewUser) (User, error) {
	user, err := s.build(in)
	if err != nil {
		return User{}, err
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, ErrExists) {
			return User{}, apperr.Validation("An account with this email or phone already exists")
		}
		return User{}, apperr.Unexpected(err)
	}
	return user, nil
}

// Upsert creates the account or replaces the profile of the account with the same email.
func (s *Service) Upsert(ctx context.Context, in NewUser) (User, error) {
	user, err := s.build(in)
	if err != nil {
		return User{}, err
	}
	saved, err := s.repo.Upsert(ctx, user)
	if err != nil {
		if errors.Is(err, ErrExists) {
			return User{}, apperr.Validation("Phone number already in use")
		}
		return User{}, apperr.Unexpected(err)
	}
	return saved, nil
}

func (s *Service) build(in NewUser) (User, error) {
	email := NormalizeEmail(in.Email)
	if !ValidEmail(email) {
		return User{}, apperr.Validation("A valid email is required")
	}
	if err := ValidatePassword(in.Password); err != nil {
		return User{}, err
	}
	hash, err := secure.HashPassword(in.Password)
	if err != nil {
		return User{}, apperr.Unexpected(err)
	}

	role := in.Role
	if role == "" {
		role = RoleCustomer
	}
	currency := in.Currency
	if currency == "" {
		currency = defaultCurrency
	}
	now := s.now()
	return User{
		ID:              uuid.NewString(),
		Email:           email,
		Phone:           NormalizePhone(in.Phone),
		PasswordHash:    hash,
		Role:            role,
		FirstName:       strings.TrimSpace(in.FirstName),
		MiddleName:      strings.TrimSpace(in.MiddleName),
		LastName:        strings.TrimSpace(in.LastName),
		Address:         in.Address,
		City:            in.City,
		State:           in.State,
		Country:         in.Country,
		DateOfBirth:     in.DateOfBirth,
		Gender:          in.Gender,
		SSN:             in.SSN,
		AccountNumber:   in.AccountNumber,
		AccountType:     in.AccountType,
		BalanceCents:    in.BalanceCents,
		Currency:        currency,
		IsVerified:      in.IsVerified,
		KYCLevel:        in.KYCLevel,
		ProfileImageURL: in.ProfileImage,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Authenticate resolves identifier (email or phone) and checks the password.
// Unknown identifiers and wrong passwords yield the same error.
func (s *Service) Authenticate(ctx context.Context, identifier, password string) (User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return User{}, apperr.Validation(MsgMissingLogin)
	}

	user, err := s.repo.FindByIdentifier(ctx, identifier)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return User{}, apperr.Unexpected(err)
		}
		_ = secure.VerifyPassword(s.dummyHash, password)
		return User{}, apperr.InvalidCredentials(MsgInvalidLogin)
	}

	if err := secure.VerifyPassword(user.PasswordHash, password); err != nil {
		if errors.Is(err, secure.ErrMalformedHash) {
			s.log.Warn().Str("user_id", user.ID).Msg("stored password hash is malformed")
		}
		return User{}, apperr.InvalidCredentials(MsgInvalidLogin)
	}
	return user, nil
}

// GetByEmail returns the full record for email.
func (s *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return User{}, apperr.Validation(MsgEmailRequired)
	}
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, apperr.NotFound(MsgUserNotFound)
		}
		return User{}, apperr.Unexpected(err)
	}
	return user, nil
}

// GetByID returns the full record for a user id.
func (s *Service) GetByID(ctx context.Context, id string) (User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, apperr.NotFound(MsgUserNotFound)
		}
		return User{}, apperr.Unexpected(err)
	}
	return user, nil
}

// UpdateProfile applies a partial update of the customer-editable fields.
func (s *Service) UpdateProfile(ctx context.Context, email string, upd ProfileUpdate) (User, error) {
	if NormalizeEmail(email) == "" {
		return User{}, apperr.Validation(MsgEmailRequired)
	}
	if err := validateProfile(upd); err != nil {
		return User{}, err
	}
	user, err := s.GetByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}

	setString(&user.FirstName, upd.FirstName)
	setString(&user.MiddleName, upd.MiddleName)
	setString(&user.LastName, upd.LastName)
	if upd.Phone != nil {
		user.Phone = NormalizePhone(*upd.Phone)
	}
	setString(&user.Address, upd.Address)
	setString(&user.City, upd.City)
	setString(&user.State, upd.State)
	setString(&user.Country, upd.Country)
	if upd.DateOfBirth != nil {
		dob := upd.DateOfBirth.UTC()
		user.DateOfBirth = &dob
	}
	setString(&user.Gender, upd.Gender)
	setString(&user.Occupation, upd.Occupation)
	setString(&user.Employer, upd.Employer)
	setString(&user.MaritalStatus, upd.MaritalStatus)
	setString(&user.SSN, upd.SSN)
	setString(&user.ProfileImageURL, upd.ProfileImageURL)

	return s.save(ctx, user)
}

func validateProfile(upd ProfileUpdate) error {
	if upd == (ProfileUpdate{}) {
		return apperr.Validation(MsgNothingToUpdate)
	}
	if upd.FirstName != nil && strings.TrimSpace(*upd.FirstName) == "" {
		return apperr.Validation("First name cannot be empty")
	}
	if upd.LastName != nil && strings.TrimSpace(*upd.LastName) == "" {
		return apperr.Validation("Last name cannot be empty")
	}
	if upd.Phone != nil && strings.TrimSpace(*upd.Phone) != "" && NormalizePhone(*upd.Phone) == "" {
		return apperr.Validation("Phone number is not valid")
	}
	if upd.SSN != nil && *upd.SSN != "" && !ssnPattern.MatchString(*upd.SSN) {
		return apperr.Validation("SSN must have 9 digits")
	}
	if upd.ProfileImageURL != nil && *upd.ProfileImageURL != "" && !validImageURL(*upd.ProfileImageURL) {
		return apperr.Validation("Profile image must be an http(s) URL")
	}
	if upd.DateOfBirth != nil && upd.DateOfBirth.After(time.Now()) {
		return apperr.Validation("Date of birth cannot be in the future")
	}
	return nil
}

// UpdateAccount applies a partial update of the operator-managed fields.
func (s *Service) UpdateAccount(ctx context.Context, email string, upd AccountUpdate) (User, error) {
	if upd == (AccountUpdate{}) {
		return User{}, apperr.Validation(MsgNothingToUpdate)
	}
	user, err := s.GetByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	setString(&user.AccountNumber, upd.AccountNumber)
	setString(&user.AccountType, upd.AccountType)
	setString(&user.KYCLevel, upd.KYCLevel)
	if upd.HasPaidTransferFee != nil {
		user.HasPaidTransferFee = *upd.HasPaidTransferFee
	}
	if upd.IsVerified != nil {
		user.IsVerified = *upd.IsVerified
	}
	return s.save(ctx, user)
}

// SetPassword stores a new password hash and invalidates existing sessions.
func (s *Service) SetPassword(ctx context.Context, email, password string) error {
	if err := ValidatePassword(password); err != nil {
		return err
	}
	user, err := s.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	hash, err := secure.HashPassword(password)
	if err != nil {
		return apperr.Unexpected(err)
	}
	user.PasswordHash = hash
	user.TokenVersion++
	_, err = s.save(ctx, user)
	return err
}

// RevokeSessions bumps the token version so every issued session stops validating.
func (s *Service) RevokeSessions(ctx context.Context, userID string) error {
	if err := s.repo.IncrementTokenVersion(ctx, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperr.NotFound(MsgUserNotFound)
		}
		return apperr.Unexpected(err)
	}
	return nil
}

func (s *Service) save(ctx context.Context, user User) (User, error) {
	user.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, ErrExists):
			return User{}, apperr.Validation("Phone number already in use")
		case errors.Is(err, ErrNotFound):
			return User{}, apperr.NotFound(MsgUserNotFound)
		default:
			return User{}, apperr.Unexpected(err)
		}
	}
	return user, nil
}

// ValidatePassword enforces the password policy.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLen {
		return apperr.Validation(MsgPasswordTooShort)
	}
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}
