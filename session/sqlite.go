package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lisa-chat/lisa/core"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	owner      TEXT NOT NULL,
	agent_tag  TEXT NOT NULL,
	title      TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
	id          TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	role        TEXT NOT NULL,
	content     TEXT NOT NULL,
	grounding   TEXT,
	created_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_owner ON sessions(owner, agent_tag, created_at);
CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, created_at);
`

// SQLiteStore is a durable Store implementation on a local SQLite database.
// Messages are persisted in their reduced text form: structured parts are
// collapsed to display text before they reach the store, so only content,
// role, and grounding survive a reload.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if needed initializes) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// CreateSession implements Store.
func (s *SQLiteStore) CreateSession(ctx context.Context, owner, agentTag, title string) (string, error) {
	id := core.NewID()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO sessions (id, owner, agent_tag, title, created_at) VALUES (?, ?, ?, ?, ?)",
		id, owner, agentTag, title, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return id, nil
}

// ListSessions implements Store; newest first.
func (s *SQLiteStore) ListSessions(ctx context.Context, owner, agentTag string) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.owner, s.agent_tag, s.title, s.created_at,
		       (SELECT COUNT(*) FROM messages m WHERE m.session_id = s.id)
		FROM sessions s
		WHERE s.owner = ? AND s.agent_tag = ?
		ORDER BY s.created_at DESC`,
		owner, agentTag,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sm Summary
		if err := rows.Scan(&sm.ID, &sm.Owner, &sm.AgentTag, &sm.Title, &sm.CreatedAt, &sm.MessageCount); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}

// DeleteSession implements Store.
func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendMessage implements Store. The message is reduced to its plain text
// before insertion.
func (s *SQLiteStore) AppendMessage(ctx context.Context, sessionID string, msg core.Message) error {
	var grounding any
	if msg.Grounding != nil {
		encoded, err := json.Marshal(msg.Grounding)
		if err != nil {
			return fmt.Errorf("encode grounding: %w", err)
		}
		grounding = string(encoded)
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO messages (id, session_id, role, content, grounding, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		msg.ID, sessionID, string(msg.Role), msg.PlainText(), grounding, msg.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// LoadMessages implements Store.
func (s *SQLiteStore) LoadMessages(ctx context.Context, sessionID string) ([]core.Message, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM sessions WHERE id = ?)", sessionID,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, role, content, grounding, created_at FROM messages WHERE session_id = ? ORDER BY created_at, id",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	defer rows.Close()

	var out []core.Message
	for rows.Next() {
		var (
			msg       core.Message
			role      string
			grounding sql.NullString
		)
		if err := rows.Scan(&msg.ID, &role, &msg.Content, &grounding, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Role = core.Role(role)
		if grounding.Valid && grounding.String != "" {
			var g core.Grounding
			if err := json.Unmarshal([]byte(grounding.String), &g); err == nil {
				msg.Grounding = &g
			}
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

var _ Store = (*SQLiteStore)(nil)
var _ Store = (*InMemoryStore)(nil)
