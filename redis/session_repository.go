// Package redis provides a Redis-backed domain.SessionRepository. Session
// identity is encoded in the key itself: the session ID is derived from the
// (user, device, browser, os) tuple, so a login from a known device identity
// overwrites the existing entry and the compound-uniqueness guarantee holds
// without a conditional insert.
package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/kalpintel/authd/domain"
	apierrors "github.com/kalpintel/authd/errors"
)

// SessionRepository implements domain.SessionRepository on Redis.
type SessionRepository struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewSessionRepository creates a SessionRepository. Entries expire after ttl,
// which should match the bearer token validity: a session that outlives every
// token referencing it is unreachable anyway.
func NewSessionRepository(client *redis.Client, prefix string, ttl time.Duration) *SessionRepository {
	return &SessionRepository{client: client, prefix: prefix, ttl: ttl}
}

func (r *SessionRepository) sessionKey(id string) string {
	return fmt.Sprintf("%s:sess:%s", r.prefix, id)
}

func (r *SessionRepository) jtiKey(jti string) string {
	return fmt.Sprintf("%s:jti:%s", r.prefix, jti)
}

func (r *SessionRepository) userKey(userID string) string {
	return fmt.Sprintf("%s:user:%s", r.prefix, userID)
}

// deviceID derives the session ID from the device identity tuple. Truncated
// to 12 bytes so the hex form matches the ID shape the other backends use.
func deviceID(userID string, device, browser, os string) string {
	sum := sha256.Sum256([]byte(userID + "\x00" + device + "\x00" + browser + "\x00" + os))
	return hex.EncodeToString(sum[:12])
}

func (r *SessionRepository) UpsertByDevice(ctx context.Context, sess *domain.Session) (*domain.Session, error) {
	id := deviceID(sess.UserID, sess.Device, sess.Browser, sess.OS)

	stored := *sess
	stored.ID = id
	stored.CreatedAt = time.Now().UTC()

	// Preserve the original creation time when refreshing an existing entry.
	if prev, err := r.getSession(ctx, id); err == nil && prev.UserID == sess.UserID {
		stored.CreatedAt = prev.CreatedAt
	}

	payload, err := json.Marshal(&stored)
	if err != nil {
		return nil, fmt.Errorf("marshaling session: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.sessionKey(id), payload, r.ttl)
	pipe.Set(ctx, r.jtiKey(stored.JTI), id, r.ttl)
	pipe.SAdd(ctx, r.userKey(stored.UserID), id)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Error().Err(err).Str("userID", sess.UserID).Msg("Error upserting session in Redis")
		return nil, err
	}

	cp := stored
	return &cp, nil
}

func (r *SessionRepository) getSession(ctx context.Context, id string) (*domain.Session, error) {
	raw, err := r.client.Get(ctx, r.sessionKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apierrors.ErrSessionNotFound
		}
		return nil, err
	}
	var sess domain.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, fmt.Errorf("unmarshaling session: %w", err)
	}
	return &sess, nil
}

// GetByJTI resolves the jti index entry and verifies it against the stored
// session. A stale index entry left behind by a later login from the same
// device fails the jti comparison, which is exactly the replaced-token
// semantics the login protocol promises.
func (r *SessionRepository) GetByJTI(ctx context.Context, jti, userID string) (*domain.Session, error) {
	id, err := r.client.Get(ctx, r.jtiKey(jti)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apierrors.ErrSessionNotFound
		}
		return nil, err
	}

	sess, err := r.getSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.JTI != jti || sess.UserID != userID {
		return nil, apierrors.ErrSessionNotFound
	}
	return sess, nil
}

func (r *SessionRepository) TouchLastActive(ctx context.Context, id string, at time.Time) error {
	sess, err := r.getSession(ctx, id)
	if err != nil {
		return err
	}
	sess.LastActive = at

	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}
	return r.client.Set(ctx, r.sessionKey(id), payload, redis.KeepTTL).Err()
}

func (r *SessionRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	ids, err := r.client.SMembers(ctx, r.userKey(userID)).Result()
	if err != nil {
		return nil, err
	}

	var sessions []*domain.Session
	for _, id := range ids {
		sess, err := r.getSession(ctx, id)
		if err != nil {
			if apierrors.Is(err, apierrors.ErrSessionNotFound) {
				// Entry expired; drop the stale set member.
				r.client.SRem(ctx, r.userKey(userID), id)
				continue
			}
			return nil, err
		}
		sessions = append(sessions, sess)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].LastActive.After(sessions[j].LastActive)
	})
	return sessions, nil
}

func (r *SessionRepository) Delete(ctx context.Context, id, userID string) error {
	sess, err := r.getSession(ctx, id)
	if err != nil {
		return err
	}
	if sess.UserID != userID {
		return apierrors.ErrSessionNotFound
	}
	return r.remove(ctx, sess)
}

func (r *SessionRepository) DeleteByJTI(ctx context.Context, jti, userID string) (bool, error) {
	sess, err := r.GetByJTI(ctx, jti, userID)
	if err != nil {
		if apierrors.Is(err, apierrors.ErrSessionNotFound) {
			return false, nil // already gone, logout is idempotent
		}
		return false, err
	}
	if err := r.remove(ctx, sess); err != nil {
		return false, err
	}
	return true, nil
}

func (r *SessionRepository) remove(ctx context.Context, sess *domain.Session) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.sessionKey(sess.ID))
	pipe.Del(ctx, r.jtiKey(sess.JTI))
	pipe.SRem(ctx, r.userKey(sess.UserID), sess.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Error().Err(err).Str("sessionID", sess.ID).Msg("Error deleting session from Redis")
		return err
	}
	return nil
}

func (r *SessionRepository) DeleteAllForUser(ctx context.Context, userID string) (int64, error) {
	ids, err := r.client.SMembers(ctx, r.userKey(userID)).Result()
	if err != nil {
		return 0, err
	}

	var deleted int64
	for _, id := range ids {
		sess, err := r.getSession(ctx, id)
		if err != nil {
			if apierrors.Is(err, apierrors.ErrSessionNotFound) {
				continue
			}
			return deleted, err
		}
		if err := r.remove(ctx, sess); err != nil {
			return deleted, err
		}
		deleted++
	}

	if err := r.client.Del(ctx, r.userKey(userID)).Err(); err != nil {
		return deleted, err
	}
	return deleted, nil
}

var _ domain.SessionRepository = (*SessionRepository)(nil)
