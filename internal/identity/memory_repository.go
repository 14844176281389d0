package identity

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewMemoryRepository builds an in-memory user store for tests and local development.
func NewMemoryRepository() Repository {
	return &memoryRepository{users: make(map[string]User)}
}

func (r *memoryRepository) Create(_ context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conflicts(user) {
		return ErrExists
	}
	r.users[user.ID] = user
	return nil
}

func (r *memoryRepository) Upsert(_ context.Context, user User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, existing := range r.users {
		if existing.Email == user.Email {
			user.ID = id
			user.CreatedAt = existing.CreatedAt
			user.TokenVersion = existing.TokenVersion
			r.users[id] = user
			return user, nil
		}
	}
	if r.conflicts(user) {
		return User{}, ErrExists
	}
	r.users[user.ID] = user
	return user, nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (r *memoryRepository) FindByEmail(_ context.Context, email string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *memoryRepository) FindByIdentifier(_ context.Context, identifier string) (User, error) {
	email := NormalizeEmail(identifier)
	phone := NormalizePhone(identifier)

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	if phone == "" {
		return User{}, ErrNotFound
	}
	for _, user := range r.users {
		if user.Phone == phone {
			return user, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *memoryRepository) Update(_ context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return ErrNotFound
	}
	if r.conflicts(user) {
		return ErrExists
	}
	r.users[user.ID] = user
	return nil
}

func (r *memoryRepository) IncrementTokenVersion(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	user.TokenVersion++
	r.users[id] = user
	return nil
}

// conflicts reports whether another user already holds user's email or phone.
func (r *memoryRepository) conflicts(user User) bool {
	for id, existing := range r.users {
		if id == user.ID {
			continue
		}
		if existing.Email == user.Email || (user.Phone != "" && existing.Phone == user.Phone) {
			return true
		}
	}
	return false
}
