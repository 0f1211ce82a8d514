// internal/session/redis.go
package session

import (
	"context"
	"encoding/json"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"loan-desk/internal/common/database"
	"loan-desk/internal/common/errors"
	"loan-desk/internal/models"
)

const sessionKeyPrefix = "loan-desk:session:"

// RedisStore keeps records in Redis as JSON with a sliding TTL, for
// deployments where the conversation service runs more than one
// replica behind a sticky-session balancer. Locking is in-process per
// key, matching the single-owner-per-session model.
type RedisStore struct {
	client *database.RedisClient
	ttl    time.Duration
	locks  keyLocker
}

func NewRedisStore(client *database.RedisClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Create(ctx context.Context, rec *models.ApplicationRecord) error {
	return s.write(ctx, rec)
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (*models.ApplicationRecord, error) {
	raw, err := s.client.Get(ctx, sessionKeyPrefix+sessionID)
	if err == goredis.Nil {
		return nil, errors.NewSessionNotFoundError(sessionID)
	}
	if err != nil {
		return nil, errors.NewSessionStoreFailedError("get", err)
	}

	var rec models.ApplicationRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, errors.NewSessionStoreFailedError("decode", err)
	}
	return &rec, nil
}

func (s *RedisStore) Replace(ctx context.Context, rec *models.ApplicationRecord) error {
	// Existence check keeps Replace semantics aligned with the memory
	// store: replacing an expired or unknown session is an error.
	if _, err := s.Get(ctx, rec.SessionID); err != nil {
		return err
	}
	return s.write(ctx, rec)
}

func (s *RedisStore) write(ctx context.Context, rec *models.ApplicationRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return errors.NewSessionStoreFailedError("encode", err)
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+rec.SessionID, payload, s.ttl); err != nil {
		return errors.NewSessionStoreFailedError("set", err)
	}
	return nil
}

func (s *RedisStore) Lock(sessionID string)   { s.locks.Lock(sessionID) }
func (s *RedisStore) Unlock(sessionID string) { s.locks.Unlock(sessionID) }
