package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kalpintel/authd/domain"
	apierrors "github.com/kalpintel/authd/errors"
	"github.com/kalpintel/authd/internal/audit"
	"github.com/kalpintel/authd/internal/auth"
	"github.com/kalpintel/authd/internal/metrics"
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const (
	minNameLen     = 2
	minPasswordLen = 8
	linkTokenBytes = 32
)

// AuthService implements registration, email verification, credential login
// and the password reset flow.
type AuthService struct {
	userRepo    domain.UserRepository
	sessionRepo domain.SessionRepository
	tokens      *TokenService
	hasher      PasswordHasher
	email       *EmailService
	parseUA     func(string) domain.DeviceInfo

	verificationTTL time.Duration
	resetTTL        time.Duration
}

// NewAuthService creates an AuthService. parseUA maps a user-agent string to
// a device identity; it is injected so the session upsert protocol can be
// tested with a deterministic parser.
func NewAuthService(
	userRepo domain.UserRepository,
	sessionRepo domain.SessionRepository,
	tokens *TokenService,
	hasher PasswordHasher,
	email *EmailService,
	parseUA func(string) domain.DeviceInfo,
	verificationTTL time.Duration,
	resetTTL time.Duration,
) *AuthService {
	return &AuthService{
		userRepo:        userRepo,
		sessionRepo:     sessionRepo,
		tokens:          tokens,
		hasher:          hasher,
		email:           email,
		parseUA:         parseUA,
		verificationTTL: verificationTTL,
		resetTTL:        resetTTL,
	}
}

// Register creates an unverified user and sends the verification email.
// Email delivery is best-effort: a send failure is logged and registration
// still succeeds, since verification can be retried later.
func (s *AuthService) Register(ctx context.Context, name, email, password string) error {
	name = strings.TrimSpace(name)
	if len(name) < minNameLen {
		return apierrors.NewValidation("Name must be at least 2 characters")
	}
	if !emailRegex.MatchString(email) {
		return apierrors.NewValidation("Please enter a valid email address")
	}
	if len(password) < minPasswordLen {
		return apierrors.NewValidation("Password must be at least 8 characters")
	}

	if _, err := s.userRepo.GetUserByEmail(ctx, email); err == nil {
		return apierrors.ErrEmailTaken
	} else if !apierrors.Is(err, apierrors.ErrUserNotFound) {
		return fmt.Errorf("checking existing email: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	verificationToken, err := auth.GenerateSecureToken(linkTokenBytes)
	if err != nil {
		return fmt.Errorf("generating verification token: %w", err)
	}

	now := time.Now()
	expiry := now.Add(s.verificationTTL)
	user := &domain.User{
		ID:                      domain.NewID(),
		Name:                    name,
		Email:                   email,
		PasswordHash:            hash,
		VerificationToken:       verificationToken,
		VerificationTokenExpiry: &expiry,
		CreatedAt:               now,
		UpdatedAt:               now,
	}

	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		return err
	}

	if err := s.email.SendVerificationEmail(ctx, user.Email, verificationToken); err != nil {
		log.Error().Err(err).Str("userID", user.ID).Msg("Verification email send failed")
	}

	audit.Record(audit.ActionRegister, user.ID, user.Email, true, nil)
	metrics.UsersRegisteredTotal.Inc()
	log.Info().Str("userID", user.ID).Msg("User registered")
	return nil
}

// VerifyEmail consumes a verification token. The token is single-use: on
// success both token fields are cleared, so a second attempt with the same
// token fails.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	user, err := s.userRepo.GetUserByVerificationToken(ctx, token, time.Now())
	if err != nil {
		if apierrors.Is(err, apierrors.ErrUserNotFound) {
			return apierrors.ErrInvalidOrExpired
		}
		return fmt.Errorf("looking up verification token: %w", err)
	}

	user.IsVerified = true
	user.ClearVerificationToken()
	if err := s.userRepo.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("marking user verified: %w", err)
	}

	audit.Record(audit.ActionVerifyEmail, user.ID, "", true, nil)
	metrics.EmailsVerifiedTotal.Inc()
	log.Info().Str("userID", user.ID).Msg("Email verified")
	return nil
}

// LoginResult is what a successful login hands back to the transport layer.
type LoginResult struct {
	Token   string
	User    *domain.PublicUser
	Session *domain.Session
}

// Login authenticates credentials, reconciles the device session and signs a
// bearer token bound to it. Unknown email and wrong password produce the same
// error so a caller cannot probe which one failed.
func (s *AuthService) Login(ctx context.Context, email, password, userAgent, ip string) (*LoginResult, error) {
	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if apierrors.Is(err, apierrors.ErrUserNotFound) {
			audit.Record(audit.ActionLogin, "", email, false, apierrors.ErrInvalidCredentials)
			metrics.LoginFailureTotal.Inc()
			return nil, apierrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	if err := s.hasher.Verify(user.PasswordHash, password); err != nil {
		log.Warn().Str("userID", user.ID).Msg("Login: incorrect password")
		audit.Record(audit.ActionLogin, user.ID, "", false, apierrors.ErrInvalidCredentials)
		metrics.LoginFailureTotal.Inc()
		return nil, apierrors.ErrInvalidCredentials
	}

	if !user.IsVerified {
		audit.Record(audit.ActionLogin, user.ID, "", false, apierrors.ErrEmailNotVerified)
		metrics.LoginFailureTotal.Inc()
		return nil, apierrors.ErrEmailNotVerified
	}

	info := s.parseUA(userAgent)
	if ip == "" {
		ip = domain.DefaultIP
	}
	jti := uuid.NewString()

	sess, err := s.sessionRepo.UpsertByDevice(ctx, &domain.Session{
		UserID:     user.ID,
		JTI:        jti,
		Device:     info.Device,
		Browser:    info.Browser,
		OS:         info.OS,
		IP:         ip,
		LastActive: time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("upserting session: %w", err)
	}

	token, err := s.tokens.Sign(user.ID, jti)
	if err != nil {
		return nil, fmt.Errorf("signing token: %w", err)
	}

	audit.Record(audit.ActionLogin, user.ID, sess.ID, true, nil)
	metrics.LoginSuccessTotal.Inc()
	log.Info().
		Str("userID", user.ID).
		Str("sessionID", sess.ID).
		Str("device", sess.Device).
		Str("browser", sess.Browser).
		Str("os", sess.OS).
		Msg("Login successful")

	return &LoginResult{Token: token, User: user.Public(), Session: sess}, nil
}

// Me returns the sanitized profile of the given user.
func (s *AuthService) Me(ctx context.Context, userID string) (*domain.PublicUser, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Public(), nil
}

// ForgotPassword starts the reset flow. It succeeds silently for unknown
// emails so the endpoint cannot be used for account enumeration. A failure to
// deliver the reset email is returned as an error: unlike the verification
// email there is no other way for the user to obtain the link.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	if !emailRegex.MatchString(email) {
		return apierrors.NewValidation("Please enter a valid email address")
	}

	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if apierrors.Is(err, apierrors.ErrUserNotFound) {
			log.Debug().Msg("Password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("looking up user: %w", err)
	}

	resetToken, err := auth.GenerateSecureToken(linkTokenBytes)
	if err != nil {
		return fmt.Errorf("generating reset token: %w", err)
	}

	expiry := time.Now().Add(s.resetTTL)
	user.ResetToken = resetToken
	user.ResetTokenExpiry = &expiry
	if err := s.userRepo.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("storing reset token: %w", err)
	}

	if err := s.email.SendResetEmail(ctx, user.Email, resetToken); err != nil {
		return fmt.Errorf("sending reset email: %w", err)
	}

	audit.Record(audit.ActionResetRequest, user.ID, "", true, nil)
	log.Info().Str("userID", user.ID).Msg("Password reset requested")
	return nil
}

// ResetPassword consumes a reset token, replaces the password hash and
// deletes every session for the user, forcing re-login on all devices.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < minPasswordLen {
		return apierrors.NewValidation("Password must be at least 8 characters")
	}

	user, err := s.userRepo.GetUserByResetToken(ctx, token, time.Now())
	if err != nil {
		if apierrors.Is(err, apierrors.ErrUserNotFound) {
			return apierrors.ErrInvalidOrExpired
		}
		return fmt.Errorf("looking up reset token: %w", err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	user.PasswordHash = hash
	user.ClearResetToken()
	if err := s.userRepo.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("updating password: %w", err)
	}

	deleted, err := s.sessionRepo.DeleteAllForUser(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("revoking sessions after password reset: %w", err)
	}

	audit.Record(audit.ActionResetComplete, user.ID, "", true, nil)
	metrics.PasswordResetsTotal.Inc()
	log.Info().Str("userID", user.ID).Int64("sessionsRevoked", deleted).Msg("Password reset")
	return nil
}
