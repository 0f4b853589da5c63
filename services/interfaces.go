package services

import "context"

// PasswordHasher abstracts password hashing so the hashing scheme can be
// swapped (e.g. for a cheap fake in tests).
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Verify returns nil when password matches hashedPassword.
	Verify(hashedPassword, password string) error
}

// EmailSender delivers transactional email. Implementations must treat the
// html body as already rendered.
type EmailSender interface {
	Send(ctx context.Context, to, subject, html string) error
}
