package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// recoveryInterval is how long the failover store waits before probing the
// primary again after a failure.
const recoveryInterval = time.Minute

// FailoverStore serves flags from the primary store and falls back to the
// secondary while the primary is unhealthy, probing for recovery
// periodically. Flags written during an outage live only in the fallback;
// that is acceptable for short-TTL navigation context.
type FailoverStore struct {
	primary   Store
	fallback  Store
	logger    *zerolog.Logger
	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
}

// NewFailoverStore wraps primary with a fallback.
func NewFailoverStore(primary, fallback Store, logger *zerolog.Logger) *FailoverStore {
	return &FailoverStore{primary: primary, fallback: fallback, logger: logger}
}

func (s *FailoverStore) Set(ctx context.Context, userID int64, flag Flag, ttl time.Duration) error {
	if s.usePrimary() {
		if err := s.primary.Set(ctx, userID, flag, ttl); err == nil {
			s.markUp()
			return nil
		} else {
			s.markDown(err)
		}
	}
	return s.fallback.Set(ctx, userID, flag, ttl)
}

func (s *FailoverStore) Consume(ctx context.Context, userID int64, flag Flag) (bool, error) {
	if s.usePrimary() {
		if set, err := s.primary.Consume(ctx, userID, flag); err == nil {
			s.markUp()
			return set, nil
		} else {
			s.markDown(err)
		}
	}
	return s.fallback.Consume(ctx, userID, flag)
}

// usePrimary reports whether the primary should be tried: it is either
// healthy or due for a recovery probe.
func (s *FailoverStore) usePrimary() bool {
	if !s.isDown.Load() {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if time.Since(s.lastCheck) >= recoveryInterval {
		s.lastCheck = time.Now()
		return true
	}
	return false
}

func (s *FailoverStore) markUp() {
	if s.isDown.Swap(false) {
		s.logger.Info().Msg("session primary store recovered")
	}
}

func (s *FailoverStore) markDown(err error) {
	if !s.isDown.Swap(true) {
		s.logger.Warn().Err(err).Msg("session primary store down, using fallback")
	}
	s.mu.Lock()
	s.lastCheck = time.Now()
	s.mu.Unlock()
}
