package domain

import (
	"context"
	"time"
)

// UserRepository defines persistence for user accounts.
type UserRepository interface {
	// CreateUser inserts a new user. Returns errors.ErrEmailTaken when the
	// email is already registered (exact, case-sensitive match).
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	// GetUserByVerificationToken finds a user whose verification token
	// matches and has not expired at the given instant.
	GetUserByVerificationToken(ctx context.Context, token string, now time.Time) (*User, error)
	// GetUserByResetToken finds a user whose reset token matches and has not
	// expired at the given instant.
	GetUserByResetToken(ctx context.Context, token string, now time.Time) (*User, error)
	UpdateUser(ctx context.Context, user *User) error
}

// SessionRepository defines persistence for device sessions. Implementations
// must enforce at most one session per (user, device, browser, os) tuple and
// a globally unique JTI.
type SessionRepository interface {
	// UpsertByDevice atomically creates or refreshes the session matching the
	// user and device identity of sess, taking sess.JTI, sess.IP and
	// sess.LastActive as the new values. Two concurrent logins from the same
	// device identity must converge to a single row; the last write owns the
	// JTI. The stored row is returned.
	UpsertByDevice(ctx context.Context, sess *Session) (*Session, error)
	// GetByJTI returns the session holding the given JTI for the given user.
	// Returns errors.ErrSessionNotFound when no such session exists.
	GetByJTI(ctx context.Context, jti, userID string) (*Session, error)
	// TouchLastActive updates the session's last activity timestamp.
	TouchLastActive(ctx context.Context, id string, at time.Time) error
	// ListByUser returns all sessions for a user, most recently active first.
	ListByUser(ctx context.Context, userID string) ([]*Session, error)
	// Delete removes the session with the given ID if it belongs to userID.
	// Returns errors.ErrSessionNotFound otherwise.
	Delete(ctx context.Context, id, userID string) error
	// DeleteByJTI removes the session holding the given JTI for the user and
	// reports whether a session was removed. Deleting an already-deleted
	// session is a no-op, not an error.
	DeleteByJTI(ctx context.Context, jti, userID string) (bool, error)
	// DeleteAllForUser removes every session for the user and reports how
	// many were deleted.
	DeleteAllForUser(ctx context.Context, userID string) (int64, error)
}
