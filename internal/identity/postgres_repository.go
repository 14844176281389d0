package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/vaultline/vaultline/internal/secure"
)

const uniqueViolation = "23505"

const selectUser = `SELECT id::text AS id, email, phone, password_hash, role, token_version,
        first_name, middle_name, last_name, address, city, state, country, date_of_birth,
        gender, occupation, employer, marital_status, ssn_encrypted AS ssn, account_number,
        account_type, balance_cents, currency, is_verified, kyc_level, has_paid_transfer_fee,
        profile_image_url, created_at, updated_at
    FROM users`

// PostgresRepository implements Repository using PostgreSQL. The government
// id column is encrypted at rest with the provided cipher.
type PostgresRepository struct {
	db     *pgxpool.Pool
	cipher *secure.Cipher
	log    zerolog.Logger
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool, cipher *secure.Cipher, baseLogger zerolog.Logger) *PostgresRepository {
	return &PostgresRepository{db: db, cipher: cipher, log: baseLogger.With().Str("component", "user_repo").Logger()}
}

// Create inserts a new user.
func (r *PostgresRepository) Create(ctx context.Context, user User) error {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return err
	}
	ssn, err := r.cipher.EncryptString(user.SSN)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO users (id, email, phone, password_hash, role, token_version,
            first_name, middle_name, last_name, address, city, state, country, date_of_birth,
            gender, occupation, employer, marital_status, ssn_encrypted, account_number,
            account_type, balance_cents, currency, is_verified, kyc_level, has_paid_transfer_fee,
            profile_image_url, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
            $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29)`,
		userID, user.Email, user.Phone, user.PasswordHash, user.Role, user.TokenVersion,
		user.FirstName, user.MiddleName, user.LastName, user.Address, user.City, user.State, user.Country, user.DateOfBirth,
		user.Gender, user.Occupation, user.Employer, user.MaritalStatus, ssn, user.AccountNumber,
		user.AccountType, user.BalanceCents, user.Currency, user.IsVerified, user.KYCLevel, user.HasPaidTransferFee,
		user.ProfileImageURL, user.CreatedAt.UTC(), user.UpdatedAt.UTC())
	return r.translate(err)
}

// Upsert inserts the user or replaces the profile of the user holding the same email.
func (r *PostgresRepository) Upsert(ctx context.Context, user User) (User, error) {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return User{}, err
	}
	ssn, err := r.cipher.EncryptString(user.SSN)
	if err != nil {
		return User{}, err
	}

	var saved User
	err = pgxscan.Get(ctx, r.db, &saved, `INSERT INTO users (id, email, phone, password_hash, role,
            first_name, middle_name, last_name, address, city, state, country, date_of_birth,
            gender, ssn_encrypted, account_number, account_type, balance_cents, currency,
            is_verified, kyc_level, profile_image_url, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
            $19, $20, $21, $22, $23, $23)
        ON CONFLICT (email) DO UPDATE SET
            phone = EXCLUDED.phone, password_hash = EXCLUDED.password_hash, role = EXCLUDED.role,
            first_name = EXCLUDED.first_name, middle_name = EXCLUDED.middle_name,
            last_name = EXCLUDED.last_name, address = EXCLUDED.address, city = EXCLUDED.city,
            state = EXCLUDED.state, country = EXCLUDED.country, date_of_birth = EXCLUDED.date_of_birth,
            gender = EXCLUDED.gender, ssn_encrypted = EXCLUDED.ssn_encrypted,
            account_number = EXCLUDED.account_number, account_type = EXCLUDED.account_type,
            balance_cents = EXCLUDED.balance_cents, currency = EXCLUDED.currency,
            is_verified = EXCLUDED.is_verified, kyc_level = EXCLUDED.kyc_level,
            profile_image_url = EXCLUDED.profile_image_url, updated_at = EXCLUDED.updated_at
        RETURNING id::text AS id, email, phone, password_hash, role, token_version,
            first_name, middle_name, last_name, address, city, state, country, date_of_birth,
            gender, occupation, employer, marital_status, ssn_encrypted AS ssn, account_number,
            account_type, balance_cents, currency, is_verified, kyc_level, has_paid_transfer_fee,
            profile_image_url, created_at, updated_at`,
		userID, user.Email, user.Phone, user.PasswordHash, user.Role,
		user.FirstName, user.MiddleName, user.LastName, user.Address, user.City, user.State, user.Country, user.DateOfBirth,
		user.Gender, ssn, user.AccountNumber, user.AccountType, user.BalanceCents, user.Currency,
		user.IsVerified, user.KYCLevel, user.ProfileImageURL, user.UpdatedAt.UTC())
	if err != nil {
		return User{}, r.translate(err)
	}
	return r.decrypt(saved)
}

// FindByID fetches a user by primary key.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, ErrNotFound
	}
	return r.getOne(ctx, selectUser+` WHERE id = $1`, userID)
}

// FindByEmail fetches a user by canonical email.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	return r.getOne(ctx, selectUser+` WHERE email = $1`, NormalizeEmail(email))
}

// FindByIdentifier matches an email (case-insensitive) or a normalized phone
// number in one query, preferring the email match.
func (r *PostgresRepository) FindByIdentifier(ctx context.Context, identifier string) (User, error) {
	return r.getOne(ctx, selectUser+` WHERE email = $1 OR (phone <> '' AND phone = $2)
        ORDER BY (email = $1) DESC LIMIT 1`, NormalizeEmail(identifier), NormalizePhone(identifier))
}

// Update overwrites the mutable columns of an existing user.
func (r *PostgresRepository) Update(ctx context.Context, user User) error {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return ErrNotFound
	}
	ssn, err := r.cipher.EncryptString(user.SSN)
	if err != nil {
		return err
	}
	cmd, err := r.db.Exec(ctx, `UPDATE users SET phone = $2, password_hash = $3, role = $4,
            token_version = $5, first_name = $6, middle_name = $7, last_name = $8, address = $9,
            city = $10, state = $11, country = $12, date_of_birth = $13, gender = $14,
            occupation = $15, employer = $16, marital_status = $17, ssn_encrypted = $18,
            account_number = $19, account_type = $20, balance_cents = $21, currency = $22,
            is_verified = $23, kyc_level = $24, has_paid_transfer_fee = $25,
            profile_image_url = $26, updated_at = $27
        WHERE id = $1`,
		userID, user.Phone, user.PasswordHash, user.Role,
		user.TokenVersion, user.FirstName, user.MiddleName, user.LastName, user.Address,
		user.City, user.State, user.Country, user.DateOfBirth, user.Gender,
		user.Occupation, user.Employer, user.MaritalStatus, ssn,
		user.AccountNumber, user.AccountType, user.BalanceCents, user.Currency,
		user.IsVerified, user.KYCLevel, user.HasPaidTransferFee,
		user.ProfileImageURL, user.UpdatedAt.UTC())
	if err != nil {
		return r.translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementTokenVersion invalidates every session issued to the user.
func (r *PostgresRepository) IncrementTokenVersion(ctx context.Context, id string) error {
	userID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE users SET token_version = token_version + 1, updated_at = now() WHERE id = $1`, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (User, error) {
	var user User
	if err := pgxscan.Get(ctx, r.db, &user, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return User{}, ErrNotFound
		}
		r.log.Error().Err(err).Msg("failed to load user")
		return User{}, err
	}
	return r.decrypt(user)
}

func (r *PostgresRepository) decrypt(user User) (User, error) {
	ssn, err := r.cipher.DecryptString(user.SSN)
	if err != nil {
		r.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to decrypt government id")
		return User{}, fmt.Errorf("decrypt government id: %w", err)
	}
	user.SSN = ssn
	return user, nil
}

func (r *PostgresRepository) translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrExists
	}
	return err
}
