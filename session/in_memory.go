package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lisa-chat/lisa/core"
)

// InMemoryStore is a volatile Store implementation keeping sessions in a
// process local map. It is safe for concurrent access and best suited for
// tests or ephemeral demo servers. Messages are cloned on the way in and out
// to prevent external mutation of internal state.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memSession
}

type memSession struct {
	summary  Summary
	messages []core.Message
}

// NewInMemoryStore constructs an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*memSession)}
}

// CreateSession implements Store.
func (s *InMemoryStore) CreateSession(_ context.Context, owner, agentTag, title string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := core.NewID()
	s.sessions[id] = &memSession{summary: Summary{
		ID:        id,
		Owner:     owner,
		AgentTag:  agentTag,
		Title:     title,
		CreatedAt: time.Now(),
	}}
	return id, nil
}

// ListSessions implements Store; newest first.
func (s *InMemoryStore) ListSessions(_ context.Context, owner, agentTag string) ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Summary
	for _, sess := range s.sessions {
		if sess.summary.Owner != owner || sess.summary.AgentTag != agentTag {
			continue
		}
		summary := sess.summary
		summary.MessageCount = len(sess.messages)
		out = append(out, summary)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// DeleteSession implements Store.
func (s *InMemoryStore) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

// AppendMessage implements Store.
func (s *InMemoryStore) AppendMessage(_ context.Context, sessionID string, msg core.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	sess.messages = append(sess.messages, cloneMessage(msg))
	return nil
}

// LoadMessages implements Store.
func (s *InMemoryStore) LoadMessages(_ context.Context, sessionID string) ([]core.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]core.Message, len(sess.messages))
	for i, m := range sess.messages {
		out[i] = cloneMessage(m)
	}
	return out, nil
}

func cloneMessage(m core.Message) core.Message {
	out := m
	out.Parts = append([]core.Part(nil), m.Parts...)
	out.Images = append([]core.ImageAttachment(nil), m.Images...)
	out.Charts = append([]core.ChartPayload(nil), m.Charts...)
	out.ToolCalls = append([]core.ToolCallRecord(nil), m.ToolCalls...)
	if m.Grounding != nil {
		g := *m.Grounding
		out.Grounding = &g
	}
	return out
}
