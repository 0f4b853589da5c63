package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/kalpintel/authd/domain"
	apierrors "github.com/kalpintel/authd/errors"
	"github.com/kalpintel/authd/services"
)

// CookieSettings describes how the token cookie is written and cleared.
type CookieSettings struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

// Set writes the token cookie on the response.
func (cs CookieSettings) Set(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     cs.Name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(cs.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cs.Secure,
		SameSite: http.SameSiteNoneMode,
	})
}

// Clear expires the token cookie on the response.
func (cs CookieSettings) Clear(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     cs.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cs.Secure,
		SameSite: http.SameSiteNoneMode,
	})
}

// Authenticator is the per-request authentication middleware: it extracts the
// bearer token, verifies its signature, confirms the session it references
// still exists, refreshes the session's activity timestamp and attaches the
// caller's identity to the request context.
type Authenticator struct {
	tokens      *services.TokenService
	sessionRepo domain.SessionRepository
	cookie      CookieSettings
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(tokens *services.TokenService, sessionRepo domain.SessionRepository, cookie CookieSettings) *Authenticator {
	return &Authenticator{
		tokens:      tokens,
		sessionRepo: sessionRepo,
		cookie:      cookie,
	}
}

// extractToken prefers the Authorization header, falling back to the cookie.
func (a *Authenticator) extractToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}
	if cookie, err := c.Cookie(a.cookie.Name); err == nil {
		return cookie.Value
	}
	return ""
}

// Middleware returns the echo middleware function guarding protected routes.
func (a *Authenticator) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := a.extractToken(c)
			if token == "" {
				apiErr := apierrors.NewAuthRequired()
				return c.JSON(apiErr.Status, apiErr)
			}

			claims, err := a.tokens.Verify(token)
			if err != nil {
				a.cookie.Clear(c)
				apiErr := apierrors.NewInvalidToken()
				return c.JSON(apiErr.Status, apiErr)
			}

			ctx := c.Request().Context()

			// The token may still be cryptographically valid while its
			// session has been deleted. This lookup is the server-side
			// revocation check.
			sess, err := a.sessionRepo.GetByJTI(ctx, claims.JTI, claims.UserID)
			if err != nil {
				if !apierrors.Is(err, apierrors.ErrSessionNotFound) {
					log.Error().Err(err).Msg("Session lookup failed")
					apiErr := apierrors.MapToAPIError(err)
					return c.JSON(apiErr.Status, apiErr)
				}
				a.cookie.Clear(c)
				apiErr := apierrors.NewSessionRevoked()
				return c.JSON(apiErr.Status, apiErr)
			}

			if err := a.sessionRepo.TouchLastActive(ctx, sess.ID, time.Now()); err != nil {
				log.Warn().Err(err).Str("sessionID", sess.ID).Msg("Failed to update session activity")
			}

			identity := &domain.Identity{
				UserID:    claims.UserID,
				JTI:       claims.JTI,
				SessionID: sess.ID,
			}
			c.SetRequest(c.Request().WithContext(domain.WithIdentity(ctx, identity)))

			return next(c)
		}
	}
}
