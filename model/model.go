// Package model defines the interface between the chat core and completion
// providers. Providers translate the normalized Request into their native
// wire format and surface output as a stream of events; the core never sees
// provider SDK types.
package model

import (
	"context"

	"github.com/lisa-chat/lisa/core"
)

// Definition declaratively exposes a callable function to the model.
// Parameters is a minimal JSON Schema object.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Turn is one prior conversation turn, flattened to plain text. Structured
// parts of past assistant turns are collapsed before they reach a provider.
type Turn struct {
	Role core.Role `json:"role"`
	Text string    `json:"text"`
}

// Request captures the normalized model input for one generation.
type Request struct {
	Instructions string                 `json:"instructions"`
	Turns        []Turn                 `json:"turns"`
	Prompt       string                 `json:"prompt"`
	Images       []core.ImageAttachment `json:"images,omitempty"`
	Tools        []Definition           `json:"tools,omitempty"`
	EnableSearch bool                   `json:"enable_search,omitempty"`
	EnableCode   bool                   `json:"enable_code,omitempty"`
}

// Event is the discriminated union of generation output events.
//
// A provider emits any number of TextDelta events, optionally interleaved
// with GroundingEvent, and may finish with a FullResponse whose parts
// supersede every text delta emitted before it.
type Event interface{ isEvent() }

// TextDelta is an incremental chunk of assistant text.
type TextDelta struct {
	Text string `json:"text"`
}

func (TextDelta) isEvent() {}

// FullResponse is a complete structured response. Its parts replace all
// accumulated text deltas; use it when output carries more than plain text.
type FullResponse struct {
	Parts []core.Part `json:"parts"`
}

func (FullResponse) isEvent() {}

// GroundingEvent carries source attribution discovered during generation.
// It travels out of band and does not affect text accumulation.
type GroundingEvent struct {
	Grounding core.Grounding `json:"grounding"`
}

func (GroundingEvent) isEvent() {}

// ToolCallback executes one requested tool call and returns the structured
// payload to feed back to the model. It must not fail; contained tool errors
// come back as an error-shaped payload.
type ToolCallback func(name string, args map[string]any) map[string]any

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"`
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the provider interface driven by the turn engine.
type Model interface {
	// Generate streams events for a free-form or search-grounded turn. Both
	// channels are closed when generation ends; a value on the error channel
	// means generation failed upstream after zero or more events.
	Generate(ctx context.Context, req Request) (<-chan Event, <-chan error)

	// GenerateWithTools runs a non-streaming completion loop: the model may
	// request tool calls, the callback executes each one, and the loop
	// continues until the model produces its final text.
	GenerateWithTools(ctx context.Context, req Request, cb ToolCallback) (string, error)

	// Info returns information about the model implementation.
	Info() Info
}
