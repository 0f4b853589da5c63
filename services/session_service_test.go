package services

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalpintel/authd/domain"
	apierrors "github.com/kalpintel/authd/errors"
	"github.com/kalpintel/authd/internal/memory"
	"github.com/kalpintel/authd/internal/metrics"
)

func seedSession(t *testing.T, repo *memory.SessionRepository, userID, jti, browser string, lastActive time.Time) *domain.Session {
	t.Helper()
	sess, err := repo.UpsertByDevice(context.Background(), &domain.Session{
		UserID:     userID,
		JTI:        jti,
		Device:     "Desktop",
		Browser:    browser,
		OS:         "Linux",
		IP:         "1.2.3.4",
		LastActive: lastActive,
	})
	require.NoError(t, err)
	return sess
}

func TestListSessionsOrderAndCurrentFlag(t *testing.T) {
	repo := memory.NewSessionRepository()
	svc := NewSessionService(repo)
	ctx := context.Background()

	now := time.Now()
	old := seedSession(t, repo, "u1", "jti-old", "Firefox", now.Add(-time.Hour))
	cur := seedSession(t, repo, "u1", "jti-cur", "Chrome", now)
	seedSession(t, repo, "u2", "jti-other-user", "Chrome", now)

	infos, err := svc.ListSessions(ctx, "u1", cur.ID)
	require.NoError(t, err)
	require.Len(t, infos, 2)

	assert.Equal(t, cur.ID, infos[0].ID, "most recently active first")
	assert.True(t, infos[0].IsCurrent)
	assert.Equal(t, old.ID, infos[1].ID)
	assert.False(t, infos[1].IsCurrent)
}

func TestRevokeSessionRefusesCurrent(t *testing.T) {
	repo := memory.NewSessionRepository()
	svc := NewSessionService(repo)
	ctx := context.Background()

	cur := seedSession(t, repo, "u1", "jti-cur", "Chrome", time.Now())

	err := svc.RevokeSession(ctx, "u1", cur.ID, cur.ID)
	assert.ErrorIs(t, err, apierrors.ErrCurrentSession)

	// The session is untouched.
	_, err = repo.GetByJTI(ctx, "jti-cur", "u1")
	assert.NoError(t, err)
}

func TestRevokeSessionDeletesOtherDevice(t *testing.T) {
	repo := memory.NewSessionRepository()
	svc := NewSessionService(repo)
	ctx := context.Background()

	cur := seedSession(t, repo, "u1", "jti-cur", "Chrome", time.Now())
	other := seedSession(t, repo, "u1", "jti-other", "Firefox", time.Now())

	require.NoError(t, svc.RevokeSession(ctx, "u1", other.ID, cur.ID))

	_, err := repo.GetByJTI(ctx, "jti-other", "u1")
	assert.ErrorIs(t, err, apierrors.ErrSessionNotFound)
	_, err = repo.GetByJTI(ctx, "jti-cur", "u1")
	assert.NoError(t, err)
}

func TestRevokeSessionNotFoundAndForeignSessions(t *testing.T) {
	repo := memory.NewSessionRepository()
	svc := NewSessionService(repo)
	ctx := context.Background()

	cur := seedSession(t, repo, "u1", "jti-cur", "Chrome", time.Now())
	foreign := seedSession(t, repo, "u2", "jti-foreign", "Chrome", time.Now())

	err := svc.RevokeSession(ctx, "u1", domain.NewID(), cur.ID)
	assert.ErrorIs(t, err, apierrors.ErrSessionNotFound)

	// Another user's session looks like it does not exist.
	err = svc.RevokeSession(ctx, "u1", foreign.ID, cur.ID)
	assert.ErrorIs(t, err, apierrors.ErrSessionNotFound)
	_, err = repo.GetByJTI(ctx, "jti-foreign", "u2")
	assert.NoError(t, err)
}

func TestLogoutIsIdempotent(t *testing.T) {
	repo := memory.NewSessionRepository()
	svc := NewSessionService(repo)
	ctx := context.Background()

	seedSession(t, repo, "u1", "jti-1", "Chrome", time.Now())

	before := testutil.ToFloat64(metrics.SessionsRevokedTotal)

	require.NoError(t, svc.Logout(ctx, "u1", "jti-1"))
	// Double logout is a no-op, not an error.
	assert.NoError(t, svc.Logout(ctx, "u1", "jti-1"))

	_, err := repo.GetByJTI(ctx, "jti-1", "u1")
	assert.ErrorIs(t, err, apierrors.ErrSessionNotFound)

	// Only the logout that deleted a session counts as a revocation.
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.SessionsRevokedTotal))
}

func TestLogoutAll(t *testing.T) {
	repo := memory.NewSessionRepository()
	svc := NewSessionService(repo)
	ctx := context.Background()

	seedSession(t, repo, "u1", "jti-1", "Chrome", time.Now())
	seedSession(t, repo, "u1", "jti-2", "Firefox", time.Now())
	seedSession(t, repo, "u2", "jti-3", "Chrome", time.Now())

	require.NoError(t, svc.LogoutAll(ctx, "u1"))

	u1, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, u1)

	u2, err := repo.ListByUser(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, u2, 1)
}
