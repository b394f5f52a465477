package assistant

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHistory(t *testing.T, limit int) (*HistoryStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewHistoryStore(client, limit, time.Hour), mr
}

func TestHistoryAppendAndRecent(t *testing.T) {
	store, _ := newTestHistory(t, 10)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "user-1", Message{Role: RoleUser, Content: "I have a headache"}))
	require.NoError(t, store.Append(ctx, "user-1", Message{Role: RoleAssistant, Content: "How long has it lasted?"}))

	recent, err := store.Recent(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, RoleUser, recent[0].Role)
	assert.Equal(t, "I have a headache", recent[0].Content)
	assert.Equal(t, RoleAssistant, recent[1].Role)
}

func TestHistoryIsolatedPerUser(t *testing.T) {
	store, _ := newTestHistory(t, 10)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "user-1", Message{Role: RoleUser, Content: "mine"}))

	recent, err := store.Recent(ctx, "user-2")
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestHistoryRecentLimited(t *testing.T) {
	store, _ := newTestHistory(t, 3)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, store.Append(ctx, "user-1", Message{Role: RoleUser, Content: fmt.Sprintf("turn %d", i)}))
	}

	recent, err := store.Recent(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "turn 9", recent[2].Content)
	assert.Equal(t, "turn 7", recent[0].Content)
}

func TestHistoryExpires(t *testing.T) {
	store, mr := newTestHistory(t, 10)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "user-1", Message{Role: RoleUser, Content: "hello"}))
	mr.FastForward(2 * time.Hour)

	recent, err := store.Recent(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestHistoryClear(t *testing.T) {
	store, _ := newTestHistory(t, 10)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "user-1", Message{Role: RoleUser, Content: "hello"}))
	require.NoError(t, store.Clear(ctx, "user-1"))

	recent, err := store.Recent(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, recent)
}
