package echo

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kalpintel/authd/domain"
	apierrors "github.com/kalpintel/authd/errors"
)

func identityOr401(c echo.Context) (*domain.Identity, error) {
	identity, ok := domain.IdentityFromContext(c.Request().Context())
	if !ok {
		apiErr := apierrors.NewAuthRequired()
		return nil, c.JSON(apiErr.Status, apiErr)
	}
	return identity, nil
}

// LogoutHandler ends the caller's own session and clears the cookie.
func (a *API) LogoutHandler(c echo.Context) error {
	identity, err := identityOr401(c)
	if identity == nil {
		return err
	}

	if err := a.sessions.Logout(c.Request().Context(), identity.UserID, identity.JTI); err != nil {
		return writeError(c, err)
	}

	a.cookie.Clear(c)
	return c.JSON(http.StatusOK, messageResponse{Message: "Logged out successfully"})
}

// LogoutAllHandler ends every session for the caller and clears the cookie.
func (a *API) LogoutAllHandler(c echo.Context) error {
	identity, err := identityOr401(c)
	if identity == nil {
		return err
	}

	if err := a.sessions.LogoutAll(c.Request().Context(), identity.UserID); err != nil {
		return writeError(c, err)
	}

	a.cookie.Clear(c)
	return c.JSON(http.StatusOK, messageResponse{Message: "Logged out from all devices"})
}

// ListDevicesHandler returns the caller's sessions, most recently active
// first, with the current session tagged.
func (a *API) ListDevicesHandler(c echo.Context) error {
	identity, err := identityOr401(c)
	if identity == nil {
		return err
	}

	sessions, err := a.sessions.ListSessions(c.Request().Context(), identity.UserID, identity.SessionID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string][]*domain.SessionInfo{"sessions": sessions})
}

// RevokeSessionHandler deletes one of the caller's other sessions by ID.
func (a *API) RevokeSessionHandler(c echo.Context) error {
	identity, err := identityOr401(c)
	if identity == nil {
		return err
	}

	sessionID := c.Param("sessionId")
	if !domain.ValidID(sessionID) {
		return writeError(c, apierrors.NewValidation("Invalid session id"))
	}

	if err := a.sessions.RevokeSession(c.Request().Context(), identity.UserID, sessionID, identity.SessionID); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, messageResponse{Message: "Session revoked"})
}
