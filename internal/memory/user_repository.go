// Package memory provides mutex-guarded in-memory implementations of the
// domain repositories. They back the memory store mode and give tests a real
// store without external dependencies.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/kalpintel/authd/domain"
	apierrors "github.com/kalpintel/authd/errors"
)

// UserRepository is an in-memory domain.UserRepository.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User // keyed by ID
}

// NewUserRepository creates an empty in-memory user repository.
func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]*domain.User)}
}

func (r *UserRepository) CreateUser(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == user.Email {
			return apierrors.ErrEmailTaken
		}
	}
	if user.ID == "" {
		user.ID = domain.NewID()
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *UserRepository) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, apierrors.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepository) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apierrors.ErrUserNotFound
}

func (r *UserRepository) GetUserByVerificationToken(_ context.Context, token string, now time.Time) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if token != "" && u.VerificationToken == token &&
			u.VerificationTokenExpiry != nil && u.VerificationTokenExpiry.After(now) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apierrors.ErrUserNotFound
}

func (r *UserRepository) GetUserByResetToken(_ context.Context, token string, now time.Time) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if token != "" && u.ResetToken == token &&
			u.ResetTokenExpiry != nil && u.ResetTokenExpiry.After(now) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apierrors.ErrUserNotFound
}

func (r *UserRepository) UpdateUser(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; !ok {
		return apierrors.ErrUserNotFound
	}
	user.UpdatedAt = time.Now()
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

var _ domain.UserRepository = (*UserRepository)(nil)
