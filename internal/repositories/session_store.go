package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tradejournal/backend/internal/models"
	"go.uber.org/zap"
)

const (
	sessionKeyPrefix   = "session:"
	userSessionsPrefix = "user_sessions:"
)

// ErrSessionExpired is returned by Save when the session is already past its expiry
var ErrSessionExpired = errors.New("session is expired")

// sessionStore keeps sessions in Redis.
// Each session lives under session:<id> with a TTL matching its expiry, and its id is
// indexed in the set user_sessions:<userID> so every session of a user can be revoked.
type sessionStore struct {
	client redis.UniversalClient
	logger *zap.Logger
}

// NewSessionStore creates a new Redis-backed session store
func NewSessionStore(client redis.UniversalClient, logger *zap.Logger) *sessionStore {
	return &sessionStore{
		client: client,
		logger: logger,
	}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func userSessionsKey(userID int) string {
	return userSessionsPrefix + strconv.Itoa(userID)
}

// Save persists a session until its ExpiresAt
func (s *sessionStore) Save(ctx context.Context, sess *models.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}

	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return ErrSessionExpired
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	indexKey := userSessionsKey(sess.UserID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(sess.ID), data, ttl)
		pipe.SAdd(ctx, indexKey, sess.ID)
		// sessions share one lifetime, so the newest one bounds the index
		pipe.Expire(ctx, indexKey, ttl)
		return nil
	})
	if err != nil {
		s.logger.Error("failed to save session", zap.Error(err), zap.Int("userID", sess.UserID))
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// Get loads a session by id. Missing or expired sessions yield models.ErrNotFound.
func (s *sessionStore) Get(ctx context.Context, id string) (*models.Session, error) {
	if id == "" {
		return nil, models.ErrNotFound
	}

	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		s.logger.Error("failed to get session", zap.Error(err))
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var sess models.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	// Redis TTL normally removes the key first; clock skew can leave a stale entry
	if sess.Expired(time.Now()) {
		if err := s.Delete(ctx, id); err != nil {
			return nil, fmt.Errorf("failed to clean up expired session: %w", err)
		}
		return nil, models.ErrNotFound
	}

	return &sess, nil
}

// Delete removes a session. Deleting an unknown or empty id is not an error.
func (s *sessionStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}

	key := sessionKey(id)
	data, err := s.client.GetDel(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		s.logger.Error("failed to delete session", zap.Error(err))
		return fmt.Errorf("failed to delete session: %w", err)
	}

	var sess models.Session
	if err := json.Unmarshal(data, &sess); err == nil {
		if err := s.client.SRem(ctx, userSessionsKey(sess.UserID), id).Err(); err != nil {
			s.logger.Warn("failed to remove session from user index", zap.Error(err), zap.Int("userID", sess.UserID))
		}
	}

	return nil
}

// DeleteByUser removes every session of a user and returns how many were removed
func (s *sessionStore) DeleteByUser(ctx context.Context, userID int) (int, error) {
	indexKey := userSessionsKey(userID)

	ids, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		s.logger.Error("failed to read user sessions", zap.Error(err), zap.Int("userID", userID))
		return 0, fmt.Errorf("failed to read user sessions: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionKey(id))
	}

	var removed *redis.IntCmd
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(keys) > 0 {
			removed = pipe.Del(ctx, keys...)
		}
		pipe.Del(ctx, indexKey)
		return nil
	})
	if err != nil {
		s.logger.Error("failed to delete user sessions", zap.Error(err), zap.Int("userID", userID))
		return 0, fmt.Errorf("failed to delete user sessions: %w", err)
	}

	if removed == nil {
		return 0, nil
	}
	return int(removed.Val()), nil
}

// PruneIndexes drops ids of expired sessions from every per-user index.
// It returns the number of stale ids removed.
func (s *sessionStore) PruneIndexes(ctx context.Context) (int, error) {
	pruned := 0
	iter := s.client.Scan(ctx, 0, userSessionsPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		indexKey := iter.Val()
		n, err := s.pruneIndex(ctx, indexKey)
		if err != nil {
			return pruned, err
		}
		pruned += n
	}
	if err := iter.Err(); err != nil {
		s.logger.Error("failed to scan session indexes", zap.Error(err))
		return pruned, fmt.Errorf("failed to scan session indexes: %w", err)
	}

	return pruned, nil
}

func (s *sessionStore) pruneIndex(ctx context.Context, indexKey string) (int, error) {
	ids, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", indexKey, err)
	}

	stale := make([]any, 0)
	for _, id := range ids {
		exists, err := s.client.Exists(ctx, sessionKey(id)).Result()
		if err != nil {
			return 0, fmt.Errorf("failed to check session: %w", err)
		}
		if exists == 0 {
			stale = append(stale, id)
		}
	}

	if len(stale) == 0 {
		return 0, nil
	}

	if err := s.client.SRem(ctx, indexKey, stale...).Err(); err != nil {
		return 0, fmt.Errorf("failed to prune %s: %w", indexKey, err)
	}

	s.logger.Debug("pruned session index",
		zap.String("index", strings.TrimPrefix(indexKey, userSessionsPrefix)),
		zap.Int("removed", len(stale)),
	)
	return len(stale), nil
}
