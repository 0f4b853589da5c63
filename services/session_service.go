package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/kalpintel/authd/domain"
	apierrors "github.com/kalpintel/authd/errors"
	"github.com/kalpintel/authd/internal/audit"
	"github.com/kalpintel/authd/internal/metrics"
)

// SessionService implements device listing, revocation and logout.
type SessionService struct {
	sessionRepo domain.SessionRepository
}

// NewSessionService creates a SessionService.
func NewSessionService(sessionRepo domain.SessionRepository) *SessionService {
	return &SessionService{sessionRepo: sessionRepo}
}

// ListSessions returns the user's sessions, most recently active first, each
// tagged with whether it is the caller's own session.
func (s *SessionService) ListSessions(ctx context.Context, userID, currentSessionID string) ([]*domain.SessionInfo, error) {
	sessions, err := s.sessionRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}

	infos := make([]*domain.SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		infos = append(infos, &domain.SessionInfo{
			Session:   *sess,
			IsCurrent: sess.ID == currentSessionID,
		})
	}
	return infos, nil
}

// RevokeSession deletes one of the user's sessions by ID. The caller's own
// session is refused; ending it goes through Logout so the cookie is cleared
// with it.
func (s *SessionService) RevokeSession(ctx context.Context, userID, sessionID, currentSessionID string) error {
	if sessionID == currentSessionID {
		return apierrors.ErrCurrentSession
	}

	if err := s.sessionRepo.Delete(ctx, sessionID, userID); err != nil {
		return err
	}

	audit.Record(audit.ActionRevokeSession, userID, sessionID, true, nil)
	metrics.SessionsRevokedTotal.Inc()
	log.Info().Str("userID", userID).Str("sessionID", sessionID).Msg("Session revoked")
	return nil
}

// Logout deletes the caller's own session. Logging out an already-deleted
// session is a no-op.
func (s *SessionService) Logout(ctx context.Context, userID, jti string) error {
	deleted, err := s.sessionRepo.DeleteByJTI(ctx, jti, userID)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	if deleted {
		audit.Record(audit.ActionLogout, userID, "", true, nil)
		metrics.SessionsRevokedTotal.Inc()
	}
	log.Info().Str("userID", userID).Msg("Logged out")
	return nil
}

// LogoutAll deletes every session for the user.
func (s *SessionService) LogoutAll(ctx context.Context, userID string) error {
	deleted, err := s.sessionRepo.DeleteAllForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("deleting sessions: %w", err)
	}
	audit.Record(audit.ActionLogoutAll, userID, "", true, nil)
	metrics.SessionsRevokedTotal.Add(float64(deleted))
	log.Info().Str("userID", userID).Int64("sessions", deleted).Msg("Logged out everywhere")
	return nil
}
