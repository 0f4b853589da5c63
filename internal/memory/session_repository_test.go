package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalpintel/authd/domain"
	apierrors "github.com/kalpintel/authd/errors"
)

func newSession(userID, jti string) *domain.Session {
	return &domain.Session{
		UserID:     userID,
		JTI:        jti,
		Device:     "Desktop",
		Browser:    "Chrome",
		OS:         "Linux",
		IP:         "1.2.3.4",
		LastActive: time.Now(),
	}
}

func TestUpsertByDeviceCreatesThenRefreshes(t *testing.T) {
	repo := NewSessionRepository()
	ctx := context.Background()

	first, err := repo.UpsertByDevice(ctx, newSession("u1", "jti-1"))
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	second, err := repo.UpsertByDevice(ctx, newSession("u1", "jti-2"))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "same device identity refreshes the row")
	assert.Equal(t, "jti-2", second.JTI)

	list, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	// The replaced jti no longer resolves.
	_, err = repo.GetByJTI(ctx, "jti-1", "u1")
	assert.ErrorIs(t, err, apierrors.ErrSessionNotFound)
	_, err = repo.GetByJTI(ctx, "jti-2", "u1")
	assert.NoError(t, err)
}

func TestUpsertByDeviceConcurrent(t *testing.T) {
	repo := NewSessionRepository()
	ctx := context.Background()

	const n = 64
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.UpsertByDevice(ctx, newSession("u1", fmt.Sprintf("jti-%d", i)))
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		require.NoError(t, err, "upsert %d", i)
	}

	list, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1, "concurrent upserts for one device identity must converge")

	// The surviving jti resolves; it is whichever write landed last.
	_, err = repo.GetByJTI(ctx, list[0].JTI, "u1")
	assert.NoError(t, err)
}

func TestTouchLastActive(t *testing.T) {
	repo := NewSessionRepository()
	ctx := context.Background()

	sess, err := repo.UpsertByDevice(ctx, newSession("u1", "jti-1"))
	require.NoError(t, err)

	at := time.Now().Add(time.Minute)
	require.NoError(t, repo.TouchLastActive(ctx, sess.ID, at))

	got, err := repo.GetByJTI(ctx, "jti-1", "u1")
	require.NoError(t, err)
	assert.True(t, got.LastActive.Equal(at))

	assert.ErrorIs(t, repo.TouchLastActive(ctx, domain.NewID(), at), apierrors.ErrSessionNotFound)
}

func TestDeleteScopedToUser(t *testing.T) {
	repo := NewSessionRepository()
	ctx := context.Background()

	sess, err := repo.UpsertByDevice(ctx, newSession("u1", "jti-1"))
	require.NoError(t, err)

	assert.ErrorIs(t, repo.Delete(ctx, sess.ID, "u2"), apierrors.ErrSessionNotFound)
	assert.NoError(t, repo.Delete(ctx, sess.ID, "u1"))
	assert.ErrorIs(t, repo.Delete(ctx, sess.ID, "u1"), apierrors.ErrSessionNotFound)
}

func TestDeleteAllForUser(t *testing.T) {
	repo := NewSessionRepository()
	ctx := context.Background()

	_, err := repo.UpsertByDevice(ctx, newSession("u1", "jti-1"))
	require.NoError(t, err)
	s2 := newSession("u1", "jti-2")
	s2.Browser = "Firefox"
	_, err = repo.UpsertByDevice(ctx, s2)
	require.NoError(t, err)
	_, err = repo.UpsertByDevice(ctx, newSession("u2", "jti-3"))
	require.NoError(t, err)

	deleted, err := repo.DeleteAllForUser(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	remaining, err := repo.ListByUser(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}
