package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"secaware-training-service/internal/domain"
)

// SessionStore keeps sessions as JSON values so any instance can continue a session.
// Saves are optimistic: WATCH the key, compare versions, write in MULTI.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Create(ctx context.Context, session domain.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	ok, err := s.client.SetNX(ctx, s.key(session.CorrelationID), payload, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s exists", domain.ErrSessionConflict, session.CorrelationID)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, correlationID string) (domain.Session, error) {
	data, err := s.client.Get(ctx, s.key(correlationID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("get session: %w", err)
	}
	return decodeSession(data)
}

// Save replaces the stored session only if it is the direct predecessor of session.
// The remaining TTL is kept.
func (s *SessionStore) Save(ctx context.Context, session domain.Session) error {
	key := s.key(session.CorrelationID)
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return domain.ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		stored, err := decodeSession(data)
		if err != nil {
			return err
		}
		if stored.Version != session.Version-1 {
			return fmt.Errorf("%w: stored version %d, saving %d", domain.ErrSessionConflict, stored.Version, session.Version)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, redis.KeepTTL)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("%w: %s changed concurrently", domain.ErrSessionConflict, session.CorrelationID)
	}
	return err
}

func (s *SessionStore) key(correlationID string) string {
	return "training:session:" + correlationID
}

func decodeSession(data []byte) (domain.Session, error) {
	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return domain.Session{}, fmt.Errorf("decode session: %w", err)
	}
	return session, nil
}
