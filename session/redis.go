package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tripmesh/tripmesh/core"
)

// RedisStore persists sessions as JSON blobs in Redis so conversations
// survive gateway restarts. Mutations load, modify and rewrite the whole
// session under a single key; the engine serializes writes per invocation so
// no cross-process locking is attempted.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

var _ core.SessionStore = (*RedisStore)(nil)

// RedisStoreOptions configure the store.
type RedisStoreOptions struct {
	// TTL after which idle sessions expire. Zero keeps them forever.
	TTL time.Duration
	// Prefix namespaces keys, default "tripmesh:session:".
	Prefix string
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(client redis.UniversalClient, optFns ...func(o *RedisStoreOptions)) *RedisStore {
	opts := RedisStoreOptions{TTL: 24 * time.Hour, Prefix: "tripmesh:session:"}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &RedisStore{client: client, ttl: opts.TTL, prefix: opts.Prefix}
}

func (s *RedisStore) key(id string) string { return s.prefix + id }

// Get loads a session or lazily creates one.
func (s *RedisStore) Get(sessionID string) (*core.Session, error) {
	ctx := context.Background()
	raw, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if err == redis.Nil {
		return s.Create(sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("session load: %w", err)
	}
	var sess core.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("session decode: %w", err)
	}
	return &sess, nil
}

// Create writes a fresh session, overwriting any existing one.
func (s *RedisStore) Create(sessionID string) (*core.Session, error) {
	sess := core.NewSession(sessionID)
	if err := s.save(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// AppendEvent loads, appends and rewrites the session.
func (s *RedisStore) AppendEvent(sessionID string, ev core.Event) error {
	sess, err := s.Get(sessionID)
	if err != nil {
		return err
	}
	sess.AddEvent(ev)
	return s.save(sess)
}

// ApplyDelta merges a state delta and rewrites the session.
func (s *RedisStore) ApplyDelta(sessionID string, delta map[string]any) error {
	sess, err := s.Get(sessionID)
	if err != nil {
		return err
	}
	sess.MergeState(delta)
	return s.save(sess)
}

func (s *RedisStore) save(sess *core.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session encode: %w", err)
	}
	ctx := context.Background()
	if err := s.client.Set(ctx, s.key(sess.ID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("session save: %w", err)
	}
	return nil
}
