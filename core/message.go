package core

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a message.
type Role string

const (
	// RoleUser marks a message authored by the user.
	RoleUser Role = "user"
	// RoleAssistant marks a message authored by the assistant.
	RoleAssistant Role = "assistant"
)

// ImageAttachment is a binary image carried by a message.
type ImageAttachment struct {
	Data     []byte `json:"data"`
	MimeType string `json:"mime_type"`
	Name     string `json:"name,omitempty"`
}

// ToolCallRecord is the name/args/result triple retained on a message for
// audit and re-render. The result is the model-facing payload of the tool
// result, a small structured value.
type ToolCallRecord struct {
	Name   string         `json:"name"`
	Args   map[string]any `json:"args,omitempty"`
	Result map[string]any `json:"result,omitempty"`
}

// Message is one entry in a session's ordered conversation. It is immutable
// once created. Content holds display text only; dataset payloads never end
// up here. Parts is set instead of Content when a structured full response
// (interleaved text/code/result/image segments) replaced incremental text.
type Message struct {
	ID        string            `json:"id"`
	Role      Role              `json:"role"`
	Content   string            `json:"content"`
	Parts     []Part            `json:"parts,omitempty"`
	Images    []ImageAttachment `json:"images,omitempty"`
	Charts    []ChartPayload    `json:"charts,omitempty"`
	ToolCalls []ToolCallRecord  `json:"tool_calls,omitempty"`
	Grounding *Grounding        `json:"grounding,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// NewMessage creates a message with a fresh id and UTC timestamp.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        NewID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// PlainText returns the persistable text of the message: Content when no
// structured parts are present, otherwise the concatenation of the text
// parts only.
func (m Message) PlainText() string {
	if len(m.Parts) == 0 {
		return m.Content
	}
	var out string
	for _, p := range m.Parts {
		if tp, ok := p.(TextPart); ok {
			if out != "" {
				out += "\n"
			}
			out += tp.Text
		}
	}
	return out
}

// NewID generates a new unique identifier for messages and sessions.
func NewID() string { return uuid.NewString() }
