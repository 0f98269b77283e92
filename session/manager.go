package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lisa-chat/lisa/core"
	"github.com/lisa-chat/lisa/logging"
)

// ManagerOptions configure a Manager.
type ManagerOptions struct {
	Logger logging.Logger
	// Now supplies timestamps for generated titles. Overridable in tests.
	Now func() time.Time
}

// Manager drives the conversation lifecycle over a Store: the active
// conversation starts unsaved, materializes lazily on the first append, and
// on deletion falls back to the most recent remaining session. Safe for
// concurrent use.
type Manager struct {
	mu       sync.Mutex
	store    Store
	owner    string
	agentTag string
	current  string
	opts     ManagerOptions
}

// NewManager creates a Manager scoped to one owner and agent tag. The
// initial conversation is unsaved.
func NewManager(store Store, owner, agentTag string, optFns ...func(o *ManagerOptions)) *Manager {
	opts := ManagerOptions{Logger: logging.NoOpLogger{}, Now: time.Now}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	return &Manager{
		store:    store,
		owner:    owner,
		agentTag: agentTag,
		current:  UnsavedID,
		opts:     opts,
	}
}

// Current returns the active session id, UnsavedID when none is materialized.
func (m *Manager) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// IsUnsaved reports whether the active conversation has no stored session.
func (m *Manager) IsUnsaved() bool { return m.Current() == UnsavedID }

// NewChat switches to a fresh unsaved conversation. It never touches the
// store, so repeated calls create nothing; a session appears only when the
// first message is sent.
func (m *Manager) NewChat() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = UnsavedID
}

// EnsureActive returns the active session id, materializing the session on
// first use. An empty title gets a timestamp default.
func (m *Manager) EnsureActive(ctx context.Context, title string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != UnsavedID {
		return m.current, nil
	}
	if title == "" {
		title = "Chat " + m.opts.Now().Format("2006-01-02 15:04")
	}
	id, err := m.store.CreateSession(ctx, m.owner, m.agentTag, title)
	if err != nil {
		return "", fmt.Errorf("materialize session: %w", err)
	}
	m.current = id
	m.opts.Logger.Info("session.created", "session_id", id, "title", title)
	return id, nil
}

// Append adds a message to the active session. The session must be
// materialized first via EnsureActive.
func (m *Manager) Append(ctx context.Context, msg core.Message) error {
	m.mu.Lock()
	id := m.current
	m.mu.Unlock()
	if id == UnsavedID {
		return fmt.Errorf("append message: conversation is unsaved")
	}
	return m.store.AppendMessage(ctx, id, msg)
}

// Select switches to a stored session and returns its transcript.
func (m *Manager) Select(ctx context.Context, id string) ([]core.Message, error) {
	msgs, err := m.store.LoadMessages(ctx, id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.current = id
	m.mu.Unlock()
	return msgs, nil
}

// List returns the owner's sessions, newest first.
func (m *Manager) List(ctx context.Context) ([]Summary, error) {
	return m.store.ListSessions(ctx, m.owner, m.agentTag)
}

// Delete removes a session. When the active session is deleted the manager
// falls back to the most recent remaining one, or to a fresh unsaved
// conversation when none remains. It returns the new active id.
func (m *Manager) Delete(ctx context.Context, id string) (string, error) {
	if err := m.store.DeleteSession(ctx, id); err != nil {
		return "", err
	}
	m.opts.Logger.Info("session.deleted", "session_id", id)

	m.mu.Lock()
	wasCurrent := m.current == id
	m.mu.Unlock()
	if !wasCurrent {
		return m.Current(), nil
	}

	remaining, err := m.store.ListSessions(ctx, m.owner, m.agentTag)
	if err != nil || len(remaining) == 0 {
		m.mu.Lock()
		m.current = UnsavedID
		m.mu.Unlock()
		return UnsavedID, nil
	}
	m.mu.Lock()
	m.current = remaining[0].ID
	m.mu.Unlock()
	return remaining[0].ID, nil
}
