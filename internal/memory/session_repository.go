package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kalpintel/authd/domain"
	apierrors "github.com/kalpintel/authd/errors"
)

// SessionRepository is an in-memory domain.SessionRepository. The upsert is
// atomic under the mutex, so the duplicate-key retry that the Mongo backend
// needs never arises here.
type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session // keyed by ID
}

// NewSessionRepository creates an empty in-memory session repository.
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{sessions: make(map[string]*domain.Session)}
}

func deviceMatch(s *domain.Session, other *domain.Session) bool {
	return s.UserID == other.UserID &&
		s.Device == other.Device &&
		s.Browser == other.Browser &&
		s.OS == other.OS
}

func (r *SessionRepository) UpsertByDevice(_ context.Context, sess *domain.Session) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.sessions {
		if deviceMatch(existing, sess) {
			existing.JTI = sess.JTI
			existing.IP = sess.IP
			existing.LastActive = sess.LastActive
			cp := *existing
			return &cp, nil
		}
	}

	created := *sess
	if created.ID == "" {
		created.ID = domain.NewID()
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now()
	}
	r.sessions[created.ID] = &created
	cp := created
	return &cp, nil
}

func (r *SessionRepository) GetByJTI(_ context.Context, jti, userID string) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.sessions {
		if s.JTI == jti && s.UserID == userID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, apierrors.ErrSessionNotFound
}

func (r *SessionRepository) TouchLastActive(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return apierrors.ErrSessionNotFound
	}
	s.LastActive = at
	return nil
}

func (r *SessionRepository) ListByUser(_ context.Context, userID string) ([]*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Session
	for _, s := range r.sessions {
		if s.UserID == userID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActive.After(out[j].LastActive)
	})
	return out, nil
}

func (r *SessionRepository) Delete(_ context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok || s.UserID != userID {
		return apierrors.ErrSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}

func (r *SessionRepository) DeleteByJTI(_ context.Context, jti, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, s := range r.sessions {
		if s.JTI == jti && s.UserID == userID {
			delete(r.sessions, id)
			return true, nil
		}
	}
	return false, nil // already gone, logout is idempotent
}

func (r *SessionRepository) DeleteAllForUser(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, s := range r.sessions {
		if s.UserID == userID {
			delete(r.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}

var _ domain.SessionRepository = (*SessionRepository)(nil)
