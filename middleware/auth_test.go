package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalpintel/authd/domain"
	"github.com/kalpintel/authd/internal/memory"
	"github.com/kalpintel/authd/services"
)

func newTestAuthenticator(t *testing.T) (*Authenticator, *services.TokenService, *memory.SessionRepository) {
	t.Helper()
	tokens := services.NewTokenService([]byte("test-secret"), "authd", time.Hour)
	sessions := memory.NewSessionRepository()
	cookie := CookieSettings{Name: "token", Secure: false, MaxAge: time.Hour}
	return NewAuthenticator(tokens, sessions, cookie), tokens, sessions
}

func protected(a *Authenticator, captured **domain.Identity) *echo.Echo {
	e := echo.New()
	handler := func(c echo.Context) error {
		if id, ok := domain.IdentityFromContext(c.Request().Context()); ok && captured != nil {
			*captured = id
		}
		return c.NoContent(http.StatusOK)
	}
	e.GET("/protected", handler, a.Middleware())
	return e
}

func seed(t *testing.T, sessions *memory.SessionRepository, userID, jti string) *domain.Session {
	t.Helper()
	sess, err := sessions.UpsertByDevice(context.Background(), &domain.Session{
		UserID:     userID,
		JTI:        jti,
		Device:     "Desktop",
		Browser:    "Chrome",
		OS:         "Linux",
		LastActive: time.Now().Add(-time.Minute),
	})
	require.NoError(t, err)
	return sess
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	a, _, _ := newTestAuthenticator(t)
	e := protected(a, nil)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Authentication required")
}

func TestMiddlewareRejectsGarbageToken(t *testing.T) {
	a, _, _ := newTestAuthenticator(t)
	e := protected(a, nil)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer not-a-token")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid or expired token")
	assertCookieCleared(t, rec)
}

func TestMiddlewareRejectsRevokedSession(t *testing.T) {
	a, tokens, _ := newTestAuthenticator(t)
	e := protected(a, nil)

	// Signed token whose session row never existed (or was deleted).
	token, err := tokens.Sign("u1", "jti-revoked")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Session expired or revoked")
	assertCookieCleared(t, rec)
}

func TestMiddlewareAcceptsHeaderToken(t *testing.T) {
	a, tokens, sessions := newTestAuthenticator(t)

	var identity *domain.Identity
	e := protected(a, &identity)

	sess := seed(t, sessions, "u1", "jti-1")
	token, err := tokens.Sign("u1", "jti-1")
	require.NoError(t, err)

	before := sess.LastActive

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, identity)
	assert.Equal(t, "u1", identity.UserID)
	assert.Equal(t, "jti-1", identity.JTI)
	assert.Equal(t, sess.ID, identity.SessionID)

	// Activity timestamp was refreshed by the request.
	refreshed, err := sessions.GetByJTI(context.Background(), "jti-1", "u1")
	require.NoError(t, err)
	assert.True(t, refreshed.LastActive.After(before))
}

func TestMiddlewareAcceptsCookieToken(t *testing.T) {
	a, tokens, sessions := newTestAuthenticator(t)

	var identity *domain.Identity
	e := protected(a, &identity)

	seed(t, sessions, "u1", "jti-1")
	token, err := tokens.Sign("u1", "jti-1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: token})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, identity)
	assert.Equal(t, "u1", identity.UserID)
}

func TestMiddlewarePrefersHeaderOverCookie(t *testing.T) {
	a, tokens, sessions := newTestAuthenticator(t)

	var identity *domain.Identity
	e := protected(a, &identity)

	seed(t, sessions, "u-header", "jti-header")
	headerToken, err := tokens.Sign("u-header", "jti-header")
	require.NoError(t, err)
	cookieToken, err := tokens.Sign("u-cookie", "jti-cookie")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+headerToken)
	req.AddCookie(&http.Cookie{Name: "token", Value: cookieToken})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, identity)
	assert.Equal(t, "u-header", identity.UserID)
}

func assertCookieCleared(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	res := rec.Result()
	for _, c := range res.Cookies() {
		if c.Name == "token" {
			assert.Empty(t, c.Value)
			assert.Less(t, c.MaxAge, 0, "cookie should be expired")
			return
		}
	}
	t.Error("expected a cleared token cookie on the response")
}
