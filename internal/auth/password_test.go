package auth_test

import (
	"crypto/rand"
	"testing"

	"github.com/kalpintel/authd/internal/auth"
	"github.com/kalpintel/authd/services"
)

// Ensure it implements the interface. The assertion lives here rather than in
// the auth package itself so auth does not import services.
var _ services.PasswordHasher = (*auth.BcryptPasswordHasher)(nil)

func TestPasswordHasher(t *testing.T) {
	hasher := auth.NewBcryptPasswordHasher(0)

	hash, err := hasher.Hash("password")
	if err != nil {
		t.Errorf("Hash failed: %v", err)
	}
	if err := hasher.Verify(hash, "password"); err != nil {
		t.Errorf("Verify failed: %v", err)
	}
	if err := hasher.Verify(hash, "not-the-password"); err == nil {
		t.Errorf("Verify should have failed for wrong password")
	}

	t.Run("TestTooLongPassword", func(t *testing.T) {
		tooLongPass := make([]byte, 73)
		rand.Read(tooLongPass)

		_, err := hasher.Hash(string(tooLongPass))
		if err == nil {
			t.Errorf("Hash should have failed")
		}
	})
}

func TestGenerateSecureToken(t *testing.T) {
	a, err := auth.GenerateSecureToken(32)
	if err != nil {
		t.Fatalf("GenerateSecureToken failed: %v", err)
	}
	b, err := auth.GenerateSecureToken(32)
	if err != nil {
		t.Fatalf("GenerateSecureToken failed: %v", err)
	}
	if a == b {
		t.Error("two generated tokens should not be equal")
	}
	if len(a) < 40 {
		t.Errorf("token unexpectedly short: %d chars", len(a))
	}
}
