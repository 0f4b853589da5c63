package echo

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/kalpintel/authd/domain"
	apierrors "github.com/kalpintel/authd/errors"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Message string             `json:"message"`
	Token   string             `json:"token"`
	User    *domain.PublicUser `json:"user"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

// RegisterHandler creates a new unverified account.
func (a *API) RegisterHandler(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, apierrors.NewValidation("Invalid request body"))
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return writeError(c, apierrors.NewValidation("All fields are required"))
	}

	if err := a.auth.Register(c.Request().Context(), req.Name, req.Email, req.Password); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, messageResponse{
		Message: "Registration successful. Please check your email to verify your account.",
	})
}

// VerifyEmailHandler consumes an email verification token.
func (a *API) VerifyEmailHandler(c echo.Context) error {
	token := c.Param("token")
	if err := a.auth.VerifyEmail(c.Request().Context(), token); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Email verified successfully"})
}

// LoginHandler authenticates credentials and issues the session token, both
// in the response body and as an http-only cookie.
func (a *API) LoginHandler(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, apierrors.NewValidation("Invalid request body"))
	}
	if req.Email == "" || req.Password == "" {
		return writeError(c, apierrors.NewValidation("Email and password are required"))
	}

	result, err := a.auth.Login(
		c.Request().Context(),
		req.Email,
		req.Password,
		c.Request().UserAgent(),
		clientIP(c),
	)
	if err != nil {
		return writeError(c, err)
	}

	a.cookie.Set(c, result.Token)
	return c.JSON(http.StatusOK, loginResponse{
		Message: "Login successful",
		Token:   result.Token,
		User:    result.User,
	})
}

// MeHandler returns the authenticated user's profile.
func (a *API) MeHandler(c echo.Context) error {
	identity, ok := domain.IdentityFromContext(c.Request().Context())
	if !ok {
		apiErr := apierrors.NewAuthRequired()
		return c.JSON(apiErr.Status, apiErr)
	}

	user, err := a.auth.Me(c.Request().Context(), identity.UserID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]*domain.PublicUser{"user": user})
}

// ForgotPasswordHandler starts the password reset flow. The response is the
// same whether or not the email is registered.
func (a *API) ForgotPasswordHandler(c echo.Context) error {
	var req forgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, apierrors.NewValidation("Invalid request body"))
	}
	if req.Email == "" {
		return writeError(c, apierrors.NewValidation("Email is required"))
	}

	if err := a.auth.ForgotPassword(c.Request().Context(), req.Email); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, messageResponse{
		Message: "If an account with that email exists, a reset link has been sent.",
	})
}

// ResetPasswordHandler consumes a reset token and sets the new password.
func (a *API) ResetPasswordHandler(c echo.Context) error {
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, apierrors.NewValidation("Invalid request body"))
	}

	token := c.Param("token")
	if err := a.auth.ResetPassword(c.Request().Context(), token, req.Password); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, messageResponse{
		Message: "Password reset successful. Please log in with your new password.",
	})
}

// clientIP takes the forwarded-for header when present, else the connection
// address.
func clientIP(c echo.Context) string {
	if fwd := c.Request().Header.Get("X-Forwarded-For"); fwd != "" {
		// First hop is the originating client.
		return strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0])
	}
	if addr := c.Request().RemoteAddr; addr != "" {
		return addr
	}
	return domain.DefaultIP
}
