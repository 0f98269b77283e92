// Package lisa provides a high-level façade over the chat core: turn
// orchestration, session persistence, catalog ingestion, and dataset
// handling. Most applications interact with this package by:
//  1. Creating a Lisa via New() (optionally overriding the store, the model,
//     and the logger)
//  2. Optionally ingesting a video catalog with LoadChannel()
//  3. Opening a conversation with NewConversation() and calling Send()
//
// The façade delegates turn execution to turn.Engine while keeping setup
// ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply a durable session store,
// a real provider model, and a structured logger.
package lisa

import (
	"context"
	"fmt"
	"io"

	"github.com/lisa-chat/lisa/catalog"
	"github.com/lisa-chat/lisa/core"
	"github.com/lisa-chat/lisa/ingest"
	"github.com/lisa-chat/lisa/logging"
	"github.com/lisa-chat/lisa/model"
	"github.com/lisa-chat/lisa/session"
	"github.com/lisa-chat/lisa/turn"
)

// Options configures a Lisa instance.
type Options struct {
	// Model runs generations. Defaults to a deterministic mock so examples
	// and tests work without credentials.
	Model model.Model

	// SessionStore persists conversations. Defaults to in-memory.
	SessionStore session.Store

	// CatalogAPI serves channel ingestion. Optional; LoadChannel fails
	// without one.
	CatalogAPI ingest.CatalogAPI

	// Instructions override the default system instructions.
	Instructions string

	// Logger defaults to NoOp.
	Logger logging.Logger
}

// Lisa is the high-level façade aggregating the turn engine and services.
type Lisa struct {
	opts   Options
	engine *turn.Engine
}

// New creates a Lisa instance with optional overrides. Any unset service is
// initialized with an in-memory or mock implementation.
func New(optFns ...func(o *Options)) *Lisa {
	opts := Options{
		Model:        model.NewMockModel("mock"),
		SessionStore: session.NewInMemoryStore(),
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	engine := turn.NewEngine(opts.Model, opts.SessionStore, func(o *turn.Options) {
		o.Logger = opts.Logger
		if opts.Instructions != "" {
			o.Instructions = opts.Instructions
		}
	})
	return &Lisa{opts: opts, engine: engine}
}

// NewConversation opens a conversation for an owner and agent tag. It starts
// unsaved; a session materializes on the first send.
func (l *Lisa) NewConversation(owner, agentTag string) *Conversation {
	return &Conversation{inner: l.engine.NewConversation(owner, agentTag), engine: l.engine}
}

// LoadChannel ingests up to limit videos of the channel behind handle and
// returns the catalog snapshot. progress may be nil.
func (l *Lisa) LoadChannel(ctx context.Context, handle string, limit int, progress ingest.Progress) (*catalog.Channel, *ingest.Report, error) {
	if l.opts.CatalogAPI == nil {
		return nil, nil, fmt.Errorf("no catalog API configured")
	}
	pipeline := ingest.NewPipeline(l.opts.CatalogAPI, func(o *ingest.Options) {
		o.Logger = l.opts.Logger
	})
	return pipeline.Fetch(ctx, handle, limit, progress)
}

// Conversation wraps turn.Conversation with the engine bound, so callers
// send turns without carrying both around.
type Conversation struct {
	inner  *turn.Conversation
	engine *turn.Engine
}

// Send runs one turn.
func (c *Conversation) Send(ctx context.Context, in turn.Input) (*turn.Result, error) {
	return c.engine.Send(ctx, c.inner, in)
}

// UploadCSV makes a tabular dataset resident in the conversation.
func (c *Conversation) UploadCSV(r io.Reader) error { return c.inner.UploadCSV(r) }

// LoadCatalog makes an ingested catalog resident in the conversation.
func (c *Conversation) LoadCatalog(ch *catalog.Channel) { c.inner.LoadCatalog(ch) }

// NewChat switches to a fresh unsaved conversation.
func (c *Conversation) NewChat() { c.inner.NewChat() }

// SessionID returns the active session id, session.UnsavedID before the
// first send.
func (c *Conversation) SessionID() string { return c.inner.SessionID() }

// SelectSession switches to a stored session and returns its transcript.
func (c *Conversation) SelectSession(ctx context.Context, id string) ([]core.Message, error) {
	return c.inner.SelectSession(ctx, id)
}

// ListSessions returns stored sessions, newest first.
func (c *Conversation) ListSessions(ctx context.Context) ([]session.Summary, error) {
	return c.inner.ListSessions(ctx)
}

// DeleteSession removes a stored session and returns the new active id.
func (c *Conversation) DeleteSession(ctx context.Context, id string) (string, error) {
	return c.inner.DeleteSession(ctx, id)
}
