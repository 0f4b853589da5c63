package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apierrors "github.com/kalpintel/authd/errors"
)

// TokenClaims is the payload carried by a bearer token: the user it was
// issued to and the jti binding it to a session row.
type TokenClaims struct {
	UserID string
	JTI    string
}

// TokenService signs and verifies compact bearer tokens. It is pure and
// stateless: validity beyond the signature is decided by the session lookup
// in the authentication middleware, not here.
type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewTokenService creates a TokenService signing HS256 tokens with the given
// secret and validity window.
func NewTokenService(secret []byte, issuer string, ttl time.Duration) *TokenService {
	return &TokenService{
		secret: secret,
		issuer: issuer,
		ttl:    ttl,
	}
}

// TTL returns the configured token validity window.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Sign produces a signed token binding userID and jti, expiring after the
// configured TTL.
func (s *TokenService) Sign(userID, jti string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   userID,
		ID:        jti,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify checks the token's signature and expiry and returns its claims.
// Any malformed, forged or expired token yields errors.ErrInvalidToken.
func (s *TokenService) Verify(tokenString string) (*TokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{},
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return s.secret, nil
		},
	)
	if err != nil || !parsed.Valid {
		return nil, apierrors.ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" || claims.ID == "" {
		return nil, apierrors.ErrInvalidToken
	}

	return &TokenClaims{UserID: claims.Subject, JTI: claims.ID}, nil
}
