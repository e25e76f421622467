// Package session caches the acting user behind each issued access token so
// that logout can revoke a token before it expires.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"proposaldesk/internal/proposal"
)

var ErrNotFound = errors.New("session not found or expired")

// Store is implemented by RedisStore and MemoryStore.
type Store interface {
	Save(ctx context.Context, jti string, user proposal.ActingUser, expiresAt time.Time) error
	Lookup(ctx context.Context, jti string) (proposal.ActingUser, error)
	Revoke(ctx context.Context, jti string) error
}

type sessionData struct {
	User      proposal.ActingUser `json:"user"`
	CreatedAt time.Time           `json:"created_at"`
}

type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisStoreWithClient(client), nil
}

func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "session:"}
}

func (s *RedisStore) key(jti string) string {
	return s.prefix + jti
}

func (s *RedisStore) Save(ctx context.Context, jti string, user proposal.ActingUser, expiresAt time.Time) error {
	payload, err := json.Marshal(sessionData{User: user, CreatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return fmt.Errorf("save session: already expired")
	}
	if err := s.client.Set(ctx, s.key(jti), payload, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *RedisStore) Lookup(ctx context.Context, jti string) (proposal.ActingUser, error) {
	payload, err := s.client.Get(ctx, s.key(jti)).Bytes()
	if errors.Is(err, redis.Nil) {
		return proposal.ActingUser{}, ErrNotFound
	}
	if err != nil {
		return proposal.ActingUser{}, fmt.Errorf("lookup session: %w", err)
	}
	var data sessionData
	if err := json.Unmarshal(payload, &data); err != nil {
		return proposal.ActingUser{}, fmt.Errorf("unmarshal session: %w", err)
	}
	return data.User, nil
}

func (s *RedisStore) Revoke(ctx context.Context, jti string) error {
	if err := s.client.Del(ctx, s.key(jti)).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// MemoryStore is the single-process fallback when Redis is not configured.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]memorySession
	now      func() time.Time
}

type memorySession struct {
	user      proposal.ActingUser
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]memorySession), now: time.Now}
}

func (s *MemoryStore) Save(_ context.Context, jti string, user proposal.ActingUser, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[jti] = memorySession{user: user, expiresAt: expiresAt}
	return nil
}

func (s *MemoryStore) Lookup(_ context.Context, jti string) (proposal.ActingUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[jti]
	if !ok {
		return proposal.ActingUser{}, ErrNotFound
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.sessions, jti)
		return proposal.ActingUser{}, ErrNotFound
	}
	return entry.user, nil
}

func (s *MemoryStore) Revoke(_ context.Context, jti string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, jti)
	return nil
}
