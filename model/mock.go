package model

import (
	"context"
	"fmt"

	"github.com/lisa-chat/lisa/core"
)

// MockCall is a scripted tool invocation replayed by a MockModel during
// GenerateWithTools.
type MockCall struct {
	Name string
	Args map[string]any
}

// MockModel is a lightweight in-memory Model useful for tests and examples.
// Responses are scripted per prompt; unscripted prompts get a deterministic
// echo so wiring code stays testable without any provider credentials.
type MockModel struct {
	info    Info
	scripts map[string][]Event
	calls   map[string][]MockCall
	finals  map[string]string
}

// NewMockModel constructs a MockModel with basic tool support enabled.
func NewMockModel(name string) *MockModel {
	return &MockModel{
		info:    Info{Name: name, Provider: "mock", SupportsTools: true},
		scripts: map[string][]Event{},
		calls:   map[string][]MockCall{},
		finals:  map[string]string{},
	}
}

// Script registers the exact event sequence to emit for a prompt.
func (m *MockModel) Script(prompt string, events ...Event) { m.scripts[prompt] = events }

// ScriptCalls registers tool calls to replay for a prompt during
// GenerateWithTools, followed by the final text.
func (m *MockModel) ScriptCalls(prompt string, final string, calls ...MockCall) {
	m.calls[prompt] = calls
	m.finals[prompt] = final
}

// Generate implements Model; replays the scripted events for the prompt,
// checking for cancellation between events.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Event, <-chan error) {
	out := make(chan Event)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		events, ok := m.scripts[req.Prompt]
		if !ok {
			events = []Event{TextDelta{Text: fmt.Sprintf("Mock response to: %s", req.Prompt)}}
		}
		for _, ev := range events {
			if err := ctx.Err(); err != nil {
				errCh <- err
				return
			}
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case out <- ev:
			}
		}
	}()
	return out, errCh
}

// GenerateWithTools implements Model; replays the scripted tool calls through
// the callback and returns the scripted final text.
func (m *MockModel) GenerateWithTools(ctx context.Context, req Request, cb ToolCallback) (string, error) {
	for _, call := range m.calls[req.Prompt] {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		cb(call.Name, call.Args)
	}
	if final, ok := m.finals[req.Prompt]; ok {
		return final, nil
	}
	return fmt.Sprintf("Mock response to: %s", req.Prompt), nil
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }

// TextEvents is a convenience for scripting a streamed response: one
// TextDelta per chunk.
func TextEvents(chunks ...string) []Event {
	out := make([]Event, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, TextDelta{Text: c})
	}
	return out
}

var _ Model = (*MockModel)(nil)

// PartsOf is a small helper for building a FullResponse in tests.
func PartsOf(parts ...core.Part) FullResponse { return FullResponse{Parts: parts} }
