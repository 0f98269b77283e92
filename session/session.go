// Package session provides conversation persistence and the chat lifecycle
// state machine. A conversation starts unsaved and is materialized in the
// store lazily, on the first message send; deleting the active conversation
// falls back to the most recent remaining one.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/lisa-chat/lisa/core"
)

// UnsavedID is the sentinel identifier of a conversation that has not been
// materialized in the store yet.
const UnsavedID = "unsaved"

// ErrNotFound is returned when a session id does not exist in the store.
var ErrNotFound = errors.New("session not found")

// Summary is the listing projection of a stored session.
type Summary struct {
	ID           string    `json:"id"`
	Owner        string    `json:"owner"`
	AgentTag     string    `json:"agentTag"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"createdAt"`
	MessageCount int       `json:"messageCount"`
}

// Store persists sessions and their message transcripts. Implementations
// must be safe for concurrent use.
type Store interface {
	// CreateSession materializes a new session and returns its id.
	CreateSession(ctx context.Context, owner, agentTag, title string) (string, error)

	// ListSessions returns the owner's sessions for the agent tag, newest
	// first.
	ListSessions(ctx context.Context, owner, agentTag string) ([]Summary, error)

	// DeleteSession removes a session and its messages.
	DeleteSession(ctx context.Context, id string) error

	// AppendMessage appends one message to a session's transcript.
	AppendMessage(ctx context.Context, sessionID string, msg core.Message) error

	// LoadMessages returns a session's transcript in append order.
	LoadMessages(ctx context.Context, sessionID string) ([]core.Message, error)
}
