package session

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSetConsume(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, 100, FlagFirstSurvey, time.Minute))

	set, err := store.Consume(ctx, 100, FlagFirstSurvey)
	require.NoError(t, err)
	assert.True(t, set)

	// Consuming clears the flag.
	set, err = store.Consume(ctx, 100, FlagFirstSurvey)
	require.NoError(t, err)
	assert.False(t, set)
}

func TestMemoryStoreFlagsAreIndependent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, 100, FlagFirstSurvey, time.Minute))

	set, err := store.Consume(ctx, 100, FlagFromSettings)
	require.NoError(t, err)
	assert.False(t, set)

	set, err = store.Consume(ctx, 200, FlagFirstSurvey)
	require.NoError(t, err)
	assert.False(t, set)

	set, err = store.Consume(ctx, 100, FlagFirstSurvey)
	require.NoError(t, err)
	assert.True(t, set)
}

func TestMemoryStoreExpiry(t *testing.T) {
	now := time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore().WithClock(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, 100, FlagFirstSurvey, 10*time.Minute))

	now = now.Add(11 * time.Minute)
	set, err := store.Consume(ctx, 100, FlagFirstSurvey)
	require.NoError(t, err)
	assert.False(t, set)
}

func TestRedisStoreSetConsume(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, 100, FlagFromSettings, time.Minute))

	set, err := store.Consume(ctx, 100, FlagFromSettings)
	require.NoError(t, err)
	assert.True(t, set)

	set, err = store.Consume(ctx, 100, FlagFromSettings)
	require.NoError(t, err)
	assert.False(t, set)
}

func TestRedisStoreTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, 100, FlagFirstSurvey, 10*time.Minute))
	mr.FastForward(11 * time.Minute)

	set, err := store.Consume(ctx, 100, FlagFirstSurvey)
	require.NoError(t, err)
	assert.False(t, set)
}

type brokenStore struct{}

func (brokenStore) Set(context.Context, int64, Flag, time.Duration) error {
	return errors.New("connection refused")
}

func (brokenStore) Consume(context.Context, int64, Flag) (bool, error) {
	return false, errors.New("connection refused")
}

func TestFailoverFallsBackWhenPrimaryDown(t *testing.T) {
	logger := zerolog.New(io.Discard)
	fallback := NewMemoryStore()
	store := NewFailoverStore(brokenStore{}, fallback, &logger)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, 100, FlagFirstSurvey, time.Minute))

	set, err := store.Consume(ctx, 100, FlagFirstSurvey)
	require.NoError(t, err)
	assert.True(t, set)
}

func TestFailoverStaysOnFallbackBetweenProbes(t *testing.T) {
	logger := zerolog.New(io.Discard)
	store := NewFailoverStore(brokenStore{}, NewMemoryStore(), &logger)
	ctx := context.Background()

	// The first call marks the primary down; follow-ups inside the probe
	// window go straight to the fallback.
	require.NoError(t, store.Set(ctx, 100, FlagFirstSurvey, time.Minute))
	require.NoError(t, store.Set(ctx, 100, FlagFromSettings, time.Minute))
	assert.True(t, store.isDown.Load())
}

func TestFailoverUsesHealthyPrimary(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	logger := zerolog.New(io.Discard)
	store := NewFailoverStore(NewRedisStore(client), NewMemoryStore(), &logger)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, 100, FlagFirstSurvey, time.Minute))
	assert.True(t, mr.Exists("moodpulse:flag:first_survey:100"))

	set, err := store.Consume(ctx, 100, FlagFirstSurvey)
	require.NoError(t, err)
	assert.True(t, set)
	assert.False(t, store.isDown.Load())
}
