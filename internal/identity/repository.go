package identity

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when no user matches a lookup.
	ErrNotFound = errors.New("user not found")
	// ErrExists is returned when an email or phone is already taken.
	ErrExists = errors.New("user exists")
)

// Repository persists users. Email arguments are expected in canonical form.
type Repository interface {
	Create(ctx context.Context, user User) error
	Upsert(ctx context.Context, user User) (User, error)
	FindByID(ctx context.Context, id string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	// FindByIdentifier matches identifier against the email or the phone column.
	FindByIdentifier(ctx context.Context, identifier string) (User, error)
	Update(ctx context.Context, user User) error
	IncrementTokenVersion(ctx context.Context, id string) error
}
