package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "github.com/kalpintel/authd/errors"
)

func TestTokenServiceSignVerify(t *testing.T) {
	ts := NewTokenService([]byte("test-secret"), "authd", 7*24*time.Hour)

	token, err := ts.Sign("user-1", "jti-abc")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ts.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "jti-abc", claims.JTI)
}

func TestTokenServiceRejectsExpired(t *testing.T) {
	ts := NewTokenService([]byte("test-secret"), "authd", -time.Minute)

	token, err := ts.Sign("user-1", "jti-abc")
	require.NoError(t, err)

	_, err = ts.Verify(token)
	assert.ErrorIs(t, err, apierrors.ErrInvalidToken)
}

func TestTokenServiceRejectsWrongSecret(t *testing.T) {
	ts := NewTokenService([]byte("secret-a"), "authd", time.Hour)
	other := NewTokenService([]byte("secret-b"), "authd", time.Hour)

	token, err := ts.Sign("user-1", "jti-abc")
	require.NoError(t, err)

	_, err = other.Verify(token)
	assert.ErrorIs(t, err, apierrors.ErrInvalidToken)
}

func TestTokenServiceRejectsMalformed(t *testing.T) {
	ts := NewTokenService([]byte("test-secret"), "authd", time.Hour)

	for _, tok := range []string{"", "garbage", "a.b.c"} {
		_, err := ts.Verify(tok)
		assert.ErrorIs(t, err, apierrors.ErrInvalidToken, "token %q", tok)
	}
}

func TestTokenServiceRejectsMissingJTI(t *testing.T) {
	ts := NewTokenService([]byte("test-secret"), "authd", time.Hour)

	token, err := ts.Sign("user-1", "")
	require.NoError(t, err)

	_, err = ts.Verify(token)
	assert.ErrorIs(t, err, apierrors.ErrInvalidToken)
}
