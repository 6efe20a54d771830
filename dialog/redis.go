package dialog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "bookagent:dialog:"

// RedisStore keeps dialogue state in Redis so multiple agent instances can
// serve the same session.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ StateStore = (*RedisStore)(nil)

// RedisStoreOptions configure a RedisStore.
type RedisStoreOptions struct {
	// TTL expires idle sessions. Zero keeps state until deleted.
	TTL time.Duration
}

// NewRedisStore creates a state store backed by the given Redis client.
func NewRedisStore(client *redis.Client, optFns ...func(o *RedisStoreOptions)) *RedisStore {
	opts := RedisStoreOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &RedisStore{client: client, ttl: opts.TTL}
}

// Get implements StateStore.
func (s *RedisStore) Get(ctx context.Context, sessionID string) (*SessionState, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return NewSessionState(sessionID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("dialog: redis get: %w", err)
	}
	var st SessionState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("dialog: decode state: %w", err)
	}
	return &st, nil
}

// Save implements StateStore.
func (s *RedisStore) Save(ctx context.Context, st *SessionState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("dialog: encode state: %w", err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+st.SessionID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("dialog: redis set: %w", err)
	}
	return nil
}

// Delete implements StateStore.
func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("dialog: redis del: %w", err)
	}
	return nil
}
