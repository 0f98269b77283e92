package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lisa-chat/lisa/core"
)

func TestInMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	id, err := store.CreateSession(ctx, "alice", "tag", "My chat")
	require.NoError(t, err)

	msg := core.NewMessage(core.RoleUser, "hello")
	require.NoError(t, store.AppendMessage(ctx, id, msg))

	msgs, err := store.LoadMessages(ctx, id)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Content)

	sessions, err := store.ListSessions(ctx, "alice", "tag")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "My chat", sessions[0].Title)
	assert.Equal(t, 1, sessions[0].MessageCount)

	require.NoError(t, store.DeleteSession(ctx, id))
	_, err = store.LoadMessages(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInMemoryStoreScopesByOwnerAndTag(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	_, err := store.CreateSession(ctx, "alice", "tag", "a")
	require.NoError(t, err)
	_, err = store.CreateSession(ctx, "bob", "tag", "b")
	require.NoError(t, err)
	_, err = store.CreateSession(ctx, "alice", "other", "c")
	require.NoError(t, err)

	sessions, err := store.ListSessions(ctx, "alice", "tag")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "a", sessions[0].Title)
}

func TestInMemoryStoreUnknownSession(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	assert.ErrorIs(t, store.DeleteSession(ctx, "missing"), ErrNotFound)
	assert.ErrorIs(t, store.AppendMessage(ctx, "missing", core.NewMessage(core.RoleUser, "x")), ErrNotFound)
}

func TestInMemoryStoreClonesMessages(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	id, err := store.CreateSession(ctx, "alice", "tag", "t")
	require.NoError(t, err)

	msg := core.NewMessage(core.RoleAssistant, "reply")
	msg.Charts = []core.ChartPayload{{Kind: core.ChartMetricVsTime, Metric: "views"}}
	require.NoError(t, store.AppendMessage(ctx, id, msg))

	loaded, err := store.LoadMessages(ctx, id)
	require.NoError(t, err)
	loaded[0].Charts[0].Metric = "mutated"

	again, err := store.LoadMessages(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "views", again[0].Charts[0].Metric)
}
