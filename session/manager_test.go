package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lisa-chat/lisa/core"
)

func newTestManager(t *testing.T) (*Manager, *InMemoryStore) {
	t.Helper()
	store := NewInMemoryStore()
	mgr := NewManager(store, "owner-1", "channel-chat", func(o *ManagerOptions) {
		o.Now = func() time.Time { return time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC) }
	})
	return mgr, store
}

func TestManagerStartsUnsaved(t *testing.T) {
	mgr, _ := newTestManager(t)
	assert.Equal(t, UnsavedID, mgr.Current())
	assert.True(t, mgr.IsUnsaved())
}

func TestEnsureActiveMaterializesOnce(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestManager(t)

	id, err := mgr.EnsureActive(ctx, "")
	require.NoError(t, err)
	assert.NotEqual(t, UnsavedID, id)

	again, err := mgr.EnsureActive(ctx, "ignored")
	require.NoError(t, err)
	assert.Equal(t, id, again)

	sessions, err := mgr.List(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "Chat 2024-05-01 09:30", sessions[0].Title)
}

func TestRepeatedNewChatCreatesNothing(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestManager(t)

	mgr.NewChat()
	mgr.NewChat()
	mgr.NewChat()

	sessions, err := mgr.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	// only the first send materializes
	_, err = mgr.EnsureActive(ctx, "")
	require.NoError(t, err)
	mgr.NewChat()
	mgr.NewChat()

	sessions, err = mgr.List(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestAppendRequiresActiveSession(t *testing.T) {
	mgr, _ := newTestManager(t)
	err := mgr.Append(context.Background(), core.NewMessage(core.RoleUser, "hi"))
	assert.Error(t, err)
}

func TestAppendAndSelect(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestManager(t)

	id, err := mgr.EnsureActive(ctx, "first")
	require.NoError(t, err)
	require.NoError(t, mgr.Append(ctx, core.NewMessage(core.RoleUser, "hello")))
	require.NoError(t, mgr.Append(ctx, core.NewMessage(core.RoleAssistant, "hi there")))

	mgr.NewChat()
	msgs, err := mgr.Select(ctx, id)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, core.RoleUser, msgs[0].Role)
	assert.Equal(t, "hi there", msgs[1].Content)
	assert.Equal(t, id, mgr.Current())
}

func TestDeleteActiveFallsBackToMostRecent(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	mgr := NewManager(store, "owner-1", "tag")

	older, err := store.CreateSession(ctx, "owner-1", "tag", "older")
	require.NoError(t, err)
	// ensure distinct creation times
	time.Sleep(5 * time.Millisecond)

	active, err := mgr.EnsureActive(ctx, "active")
	require.NoError(t, err)

	next, err := mgr.Delete(ctx, active)
	require.NoError(t, err)
	assert.Equal(t, older, next)
	assert.Equal(t, older, mgr.Current())
}

func TestDeleteLastSessionFallsBackToUnsaved(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestManager(t)

	id, err := mgr.EnsureActive(ctx, "")
	require.NoError(t, err)

	next, err := mgr.Delete(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, UnsavedID, next)
	assert.True(t, mgr.IsUnsaved())
}

func TestDeleteInactiveKeepsCurrent(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	mgr := NewManager(store, "owner-1", "tag")

	other, err := store.CreateSession(ctx, "owner-1", "tag", "other")
	require.NoError(t, err)
	active, err := mgr.EnsureActive(ctx, "active")
	require.NoError(t, err)

	next, err := mgr.Delete(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, active, next)
}

func TestDeleteUnknownSession(t *testing.T) {
	mgr, _ := newTestManager(t)
	_, err := mgr.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
