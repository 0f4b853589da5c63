// Package echo wires the authentication service onto an Echo router.
package echo

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	apierrors "github.com/kalpintel/authd/errors"
	"github.com/kalpintel/authd/middleware"
	"github.com/kalpintel/authd/services"
)

// API holds the handler dependencies.
type API struct {
	auth     *services.AuthService
	sessions *services.SessionService
	authn    *middleware.Authenticator
	cookie   middleware.CookieSettings

	// storePing reports the health of the backing store; nil means the
	// health endpoint only reports process liveness.
	storePing func(ctx context.Context) error
}

// NewAPI initializes the HTTP API.
func NewAPI(
	auth *services.AuthService,
	sessions *services.SessionService,
	authn *middleware.Authenticator,
	cookie middleware.CookieSettings,
	storePing func(ctx context.Context) error,
) *API {
	return &API{
		auth:      auth,
		sessions:  sessions,
		authn:     authn,
		cookie:    cookie,
		storePing: storePing,
	}
}

// RegisterRoutes registers all routes under /api.
func (a *API) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api")
	api.GET("/health", a.HealthHandler)

	auth := api.Group("/auth")
	auth.POST("/register", a.RegisterHandler)
	auth.GET("/verify-email/:token", a.VerifyEmailHandler)
	auth.POST("/login", a.LoginHandler)
	auth.GET("/me", a.MeHandler, a.authn.Middleware())
	auth.POST("/forgot-password", a.ForgotPasswordHandler)
	auth.POST("/reset-password/:token", a.ResetPasswordHandler)

	session := api.Group("/session", a.authn.Middleware())
	session.POST("/logout", a.LogoutHandler)
	session.POST("/logout-all", a.LogoutAllHandler)
	session.GET("/devices", a.ListDevicesHandler)
	session.DELETE("/:sessionId", a.RevokeSessionHandler)

	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, messageResponse{Message: "Route not found"})
	})
}

// HealthHandler reports service and store health.
func (a *API) HealthHandler(c echo.Context) error {
	if a.storePing != nil {
		if err := a.storePing(c.Request().Context()); err != nil {
			log.Error().Err(err).Msg("Health check: store unreachable")
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type messageResponse struct {
	Message string `json:"message"`
}

// writeError maps a service error onto its HTTP response. Unexpected errors
// are logged with their cause and reported as a generic 500.
func writeError(c echo.Context, err error) error {
	apiErr := apierrors.MapToAPIError(err)
	if apiErr.Status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg("Unhandled error")
	}
	return c.JSON(apiErr.Status, apiErr)
}
