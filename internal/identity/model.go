package identity

import "time"

// Roles.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// User represents an account holder. Email is the canonical account key.
type User struct {
	ID                 string     `db:"id"`
	Email              string     `db:"email"`
	Phone              string     `db:"phone"`
	PasswordHash       string     `db:"password_hash"`
	Role               string     `db:"role"`
	TokenVersion       int        `db:"token_version"`
	FirstName          string     `db:"first_name"`
	MiddleName         string     `db:"middle_name"`
	LastName           string     `db:"last_name"`
	Address            string     `db:"address"`
	City               string     `db:"city"`
	State              string     `db:"state"`
	Country            string     `db:"country"`
	DateOfBirth        *time.Time `db:"date_of_birth"`
	Gender             string     `db:"gender"`
	Occupation         string     `db:"occupation"`
	Employer           string     `db:"employer"`
	MaritalStatus      string     `db:"marital_status"`
	SSN                string     `db:"ssn"`
	AccountNumber      string     `db:"account_number"`
	AccountType        string     `db:"account_type"`
	BalanceCents       int64      `db:"balance_cents"`
	Currency           string     `db:"currency"`
	IsVerified         bool       `db:"is_verified"`
	KYCLevel           string     `db:"kyc_level"`
	HasPaidTransferFee bool       `db:"has_paid_transfer_fee"`
	ProfileImageURL    string     `db:"profile_image_url"`
	CreatedAt          time.Time  `db:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at"`
}

// DisplayName joins the non-empty name parts.
func (u User) DisplayName() string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		return u.Email
	}
	return name
}

// MaskedSSN reveals only the last four characters of the government id.
func (u User) MaskedSSN() string {
	if len(u.SSN) < 4 {
		return ""
	}
	return "***-**-" + u.SSN[len(u.SSN)-4:]
}

// ProfileUpdate carries the customer-editable fields. Nil fields are left unchanged.
type ProfileUpdate struct {
	FirstName       *string    `json:"first_name"`
	MiddleName      *string    `json:"middle_name"`
	LastName        *string    `json:"last_name"`
	Phone           *string    `json:"phone"`
	Address         *string    `json:"address"`
	City            *string    `json:"city"`
	State           *string    `json:"state"`
	Country         *string    `json:"country"`
	DateOfBirth     *time.Time `json:"date_of_birth"`
	Gender          *string    `json:"gender"`
	Occupation      *string    `json:"occupation"`
	Employer        *string    `json:"employer"`
	MaritalStatus   *string    `json:"marital_status"`
	SSN             *string    `json:"ssn"`
	ProfileImageURL *string    `json:"profile_image_url"`
}

// AccountUpdate carries the operator-managed fields. Nil fields are left unchanged.
type AccountUpdate struct {
	AccountNumber      *string `json:"account_number"`
	AccountType        *string `json:"account_type"`
	HasPaidTransferFee *bool   `json:"has_paid_transfer_fee"`
	KYCLevel           *string `json:"kyc_level"`
	IsVerified         *bool   `json:"is_verified"`
}

// NewUser describes an account to create or upsert.
type NewUser struct {
	Email         string
	Phone         string
	Password      string
	Role          string
	FirstName     string
	MiddleName    string
	LastName      string
	Address       string
	City          string
	State         string
	Country       string
	DateOfBirth   *time.Time
	Gender        string
	SSN           string
	AccountNumber string
	AccountType   string
	BalanceCents  int64
	Currency      string
	IsVerified    bool
	KYCLevel      string
	ProfileImage  string
}
