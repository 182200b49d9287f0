package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)

	session, err := store.Load(ctx, "tab-1")
	require.NoError(t, err)
	assert.Equal(t, 0, session.Len())

	require.NoError(t, store.AppendTurn(ctx, "tab-1", NewUserTurn("q1")))
	require.NoError(t, store.AppendTurn(ctx, "tab-1", NewAssistantTurn("a1")))
	require.NoError(t, store.SaveContext(ctx, "tab-1", map[string]string{ContextLocation: "location Berlin"}))

	session, err = store.Load(ctx, "tab-1")
	require.NoError(t, err)
	turns := session.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, "q1", turns[0].Text)
	assert.Equal(t, "a1", turns[1].Text)
	assert.Equal(t, "location Berlin", session.Context()[ContextLocation])
}

func TestMemoryStoreIsolatesSessions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	require.NoError(t, store.AppendTurn(ctx, "a", NewUserTurn("from a")))

	other, err := store.Load(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 0, other.Len())
}

func TestMemoryStoreLoadReturnsSnapshot(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	require.NoError(t, store.AppendTurn(ctx, "a", NewUserTurn("one")))

	snapshot, err := store.Load(ctx, "a")
	require.NoError(t, err)
	snapshot.Append(NewUserTurn("local only"))

	fresh, err := store.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.Len())
}

func TestMemoryStoreExpiresIdleSessions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.AppendTurn(ctx, "a", NewUserTurn("one")))
	require.NoError(t, store.AppendTurn(ctx, "b", NewUserTurn("two")))

	now = now.Add(30 * time.Second)
	require.NoError(t, store.AppendTurn(ctx, "b", NewUserTurn("three")))

	now = now.Add(45 * time.Second)
	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 1, store.Len())

	expired, err := store.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 0, expired.Len())

	alive, err := store.Load(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 2, alive.Len())
}

func TestMemoryStoreDeleteAndValidation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	require.NoError(t, store.AppendTurn(ctx, "a", NewUserTurn("one")))
	require.NoError(t, store.Delete(ctx, "a"))
	assert.Equal(t, 0, store.Len())

	_, err := store.Load(ctx, "")
	assert.ErrorIs(t, err, ErrSessionIDRequired)
	assert.ErrorIs(t, store.AppendTurn(ctx, "", NewUserTurn("x")), ErrSessionIDRequired)
	assert.ErrorIs(t, store.SaveContext(ctx, "", map[string]string{"k": "v"}), ErrSessionIDRequired)
	assert.ErrorIs(t, store.Delete(ctx, ""), ErrSessionIDRequired)

	assert.ErrorIs(t, store.AppendTurn(ctx, "b", Turn{Role: "system", Text: "x"}), ErrUnknownRole)
	assert.Equal(t, 0, store.Len())
}
