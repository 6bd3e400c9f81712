// Package session persists short-lived per-user navigation context: the
// "came from /start" and "came from settings" flags that span two
// consecutive messages. They are stored with a TTL instead of process
// memory so a restart between the two messages loses nothing.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Flag names one navigation context marker.
type Flag string

const (
	// FlagFirstSurvey marks a user who invoked /start and should get a
	// survey right after picking a timezone, bypassing the cadence gate.
	FlagFirstSurvey Flag = "first_survey"

	// FlagFromSettings marks a user changing timezone from the settings
	// menu; they return to the menu instead of a survey.
	FlagFromSettings Flag = "from_settings"
)

// DefaultTTL bounds how long a navigation flag stays meaningful.
const DefaultTTL = 10 * time.Minute

// Store sets and consumes navigation flags.
type Store interface {
	// Set raises the flag for the user with the given TTL.
	Set(ctx context.Context, userID int64, flag Flag, ttl time.Duration) error

	// Consume reports whether the flag was raised and clears it.
	Consume(ctx context.Context, userID int64, flag Flag) (bool, error)
}

// RedisStore keeps flags in redis so they survive restarts and extra
// processes.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a redis-backed store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func flagKey(userID int64, flag Flag) string {
	return fmt.Sprintf("moodpulse:flag:%s:%d", flag, userID)
}

func (s *RedisStore) Set(ctx context.Context, userID int64, flag Flag, ttl time.Duration) error {
	return s.client.Set(ctx, flagKey(userID, flag), "1", ttl).Err()
}

func (s *RedisStore) Consume(ctx context.Context, userID int64, flag Flag) (bool, error) {
	err := s.client.GetDel(ctx, flagKey(userID, flag)).Err()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MemoryStore keeps flags in process memory with expiry. Used directly when
// redis is not configured and as the failover fallback when it is.
type MemoryStore struct {
	mu    sync.Mutex
	flags map[string]time.Time // key -> expiry
	now   func() time.Time
}

// NewMemoryStore creates an in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		flags: make(map[string]time.Time),
		now:   time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) Set(_ context.Context, userID int64, flag Flag, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[flagKey(userID, flag)] = s.now().Add(ttl)
	return nil
}

func (s *MemoryStore) Consume(_ context.Context, userID int64, flag Flag) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := flagKey(userID, flag)
	expiry, ok := s.flags[key]
	if !ok {
		return false, nil
	}
	delete(s.flags, key)
	if s.now().After(expiry) {
		return false, nil
	}
	return true, nil
}
