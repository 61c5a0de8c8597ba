package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/sketchers/internal/game/session"
)

func newTestRedisStore(t *testing.T, historySize int) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client, historySize), mr
}

func round(tag string, n int, points map[string]int) session.RoundResult {
	return session.RoundResult{
		Tag:     tag,
		Round:   n,
		Word:    "apple",
		Drawer:  "D",
		Points:  points,
		EndedAt: time.Date(2024, 1, 1, 12, 0, n, 0, time.UTC),
	}
}

func TestRedisStore_RecordRoundAccumulatesLeaderboard(t *testing.T) {
	t.Parallel()

	store, _ := newTestRedisStore(t, 10)
	ctx := context.Background()

	require.NoError(t, store.RecordRound(ctx, round("main", 1, map[string]int{"G": 100, "D": 100})))
	require.NoError(t, store.RecordRound(ctx, round("main", 2, map[string]int{"G": 30, "X": 0})))

	top, err := store.Top(ctx, "main", 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "G", top[0].Nick)
	assert.Equal(t, int64(130), top[0].Score)
	assert.Equal(t, 1, top[0].Rank)
	assert.Equal(t, "D", top[1].Nick)
	assert.Equal(t, 2, top[1].Rank)
}

func TestRedisStore_TagsAreIsolated(t *testing.T) {
	t.Parallel()

	store, _ := newTestRedisStore(t, 10)
	ctx := context.Background()

	require.NoError(t, store.RecordRound(ctx, round("main", 1, map[string]int{"G": 50})))
	require.NoError(t, store.RecordRound(ctx, round("kids", 1, map[string]int{"K": 20})))

	top, err := store.Top(ctx, "kids", 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "K", top[0].Nick)
}

func TestRedisStore_HistoryTrimmed(t *testing.T) {
	t.Parallel()

	store, _ := newTestRedisStore(t, 3)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		require.NoError(t, store.RecordRound(ctx, round("main", i, nil)))
	}

	rounds, err := store.RecentRounds(ctx, "main", 10)
	require.NoError(t, err)
	require.Len(t, rounds, 3)
	assert.Equal(t, 3, rounds[0].Round)
	assert.Equal(t, 5, rounds[2].Round)
	assert.True(t, rounds[2].EndedAt.Equal(time.Date(2024, 1, 1, 12, 0, 5, 0, time.UTC)))

	rounds, err = store.RecentRounds(ctx, "main", 1)
	require.NoError(t, err)
	require.Len(t, rounds, 1)
	assert.Equal(t, 5, rounds[0].Round)
}

func TestRedisStore_TopLimits(t *testing.T) {
	t.Parallel()

	store, _ := newTestRedisStore(t, 10)
	ctx := context.Background()
	require.NoError(t, store.RecordRound(ctx, round("main", 1, map[string]int{"A": 3, "B": 2, "C": 1})))

	top, err := store.Top(ctx, "main", 2)
	require.NoError(t, err)
	assert.Len(t, top, 2)

	top, err = store.Top(ctx, "main", 0)
	require.NoError(t, err)
	assert.Empty(t, top)

	top, err = store.Top(ctx, "missing", 5)
	require.NoError(t, err)
	assert.Empty(t, top)
}

func TestRedisStore_Unavailable(t *testing.T) {
	t.Parallel()

	store, mr := newTestRedisStore(t, 10)
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	assert.Error(t, store.RecordRound(ctx, round("main", 1, map[string]int{"G": 1})))
	_, err := store.Top(ctx, "main", 5)
	assert.Error(t, err)
	assert.Error(t, store.Ping(ctx))
}
