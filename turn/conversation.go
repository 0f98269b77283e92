package turn

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/lisa-chat/lisa/catalog"
	"github.com/lisa-chat/lisa/core"
	"github.com/lisa-chat/lisa/dataset"
	"github.com/lisa-chat/lisa/session"
)

// Conversation is the per-chat mutable state: the session lifecycle, the
// in-memory transcript used as model context, and the resident datasets a
// turn can address. All methods are safe for concurrent use, but a single
// conversation processes one turn at a time.
type Conversation struct {
	mu       sync.Mutex
	sessions *session.Manager

	history []core.Message

	table        *dataset.Table
	tableSummary string
	tableSlim    string
	freshTable   bool

	catalog *catalog.Channel
}

// UploadCSV parses the reader as a tabular dataset and makes it resident.
// The table is enriched with a derived engagement column and summarized for
// prompt injection. The turn right after the upload treats the table as
// fresh; it becomes tool-addressable from the turn after that.
func (c *Conversation) UploadCSV(r io.Reader) error {
	t, err := dataset.ParseCSV(r)
	if err != nil {
		return &ValidationError{Reason: fmt.Sprintf("could not parse dataset: %v", err)}
	}
	t.EnrichEngagement()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.table = t
	c.tableSummary = t.Summary()
	c.tableSlim = t.SlimProjection()
	c.freshTable = true
	return nil
}

// LoadCatalog makes an ingested video catalog resident. Catalog turns take
// precedence over every other mode until a tabular dataset arrives.
func (c *Conversation) LoadCatalog(ch *catalog.Channel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.catalog = ch
}

// Catalog returns the resident catalog, nil when none is loaded.
func (c *Conversation) Catalog() *catalog.Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.catalog
}

// Table returns the resident tabular dataset, nil when none is loaded.
func (c *Conversation) Table() *dataset.Table {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.table
}

// History returns a copy of the in-memory transcript.
func (c *Conversation) History() []core.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]core.Message(nil), c.history...)
}

// SessionID returns the active session id, session.UnsavedID before the
// first send.
func (c *Conversation) SessionID() string { return c.sessions.Current() }

// NewChat switches to a fresh unsaved conversation. Resident datasets stay
// loaded; only the transcript resets. Idempotent: no session is created
// until the next send.
func (c *Conversation) NewChat() {
	c.sessions.NewChat()
	c.mu.Lock()
	c.history = nil
	c.mu.Unlock()
}

// SelectSession switches to a stored session and reloads its transcript.
func (c *Conversation) SelectSession(ctx context.Context, id string) ([]core.Message, error) {
	msgs, err := c.sessions.Select(ctx, id)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.history = append([]core.Message(nil), msgs...)
	c.mu.Unlock()
	return msgs, nil
}

// ListSessions returns the stored sessions, newest first.
func (c *Conversation) ListSessions(ctx context.Context) ([]session.Summary, error) {
	return c.sessions.List(ctx)
}

// DeleteSession removes a stored session. Deleting the active one falls back
// to the most recent remaining session (reloading its transcript) or to a
// fresh unsaved conversation.
func (c *Conversation) DeleteSession(ctx context.Context, id string) (string, error) {
	next, err := c.sessions.Delete(ctx, id)
	if err != nil {
		return "", err
	}
	if next == session.UnsavedID {
		c.mu.Lock()
		c.history = nil
		c.mu.Unlock()
		return next, nil
	}
	if _, err := c.SelectSession(ctx, next); err != nil {
		return "", err
	}
	return next, nil
}

// snapshot copies the routing-relevant state under lock.
func (c *Conversation) snapshot() (table *dataset.Table, summary, slim string, fresh bool, ch *catalog.Channel, history []core.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.table, c.tableSummary, c.tableSlim, c.freshTable, c.catalog, append([]core.Message(nil), c.history...)
}

func (c *Conversation) finishTurn(userMsg, asstMsg core.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, userMsg, asstMsg)
	c.freshTable = false
}
