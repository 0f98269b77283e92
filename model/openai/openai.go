// Package openai provides a model.Model implementation on the OpenAI Chat
// Completions API, with streaming text generation and a non-streaming
// function/tool calling loop. Image attachments and search grounding are not
// supported by this provider; images are dropped and grounding is never
// emitted.
package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/lisa-chat/lisa/core"
	"github.com/lisa-chat/lisa/model"
)

const maxToolRounds = 8

// Options configure the OpenAI model adapter.
// Fields mirror a subset of Chat Completion parameters intentionally kept
// minimal; extend via functional options without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Model wraps the OpenAI Chat Completions API behind the generic model.Model interface.
type Model struct {
	client *openai.Client
	opts   Options
}

// NewModel creates a new OpenAI model using the official client.
func NewModel(optFns ...func(o *Options)) *Model {
	client := openai.NewClient()
	return NewModelFromClient(&client, optFns...)
}

// NewModelFromClient creates a new OpenAI model from an existing client.
func NewModelFromClient(client *openai.Client, optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Model{client: client, opts: opts}
}

// Generate implements streamed text generation. The provider has no search
// grounding or server-side code execution, so the event stream carries text
// deltas only.
func (m *Model) Generate(ctx context.Context, req model.Request) (<-chan model.Event, <-chan error) {
	out := make(chan model.Event, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		params := m.buildParams(req, nil)
		stream := m.client.Chat.Completions.NewStreaming(ctx, params)
		for stream.Next() {
			if err := ctx.Err(); err != nil {
				errCh <- err
				return
			}
			ck := stream.Current()
			for _, ch := range ck.Choices {
				if ch.Delta.Content == "" {
					continue
				}
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case out <- model.TextDelta{Text: ch.Delta.Content}:
				}
			}
		}
		if err := stream.Err(); err != nil {
			errCh <- fmt.Errorf("openai streaming error: %w", err)
		}
	}()
	return out, errCh
}

// GenerateWithTools implements the non-streaming function-calling loop:
// requested calls run through the callback and their payloads are appended
// as tool messages until the model produces plain text.
func (m *Model) GenerateWithTools(ctx context.Context, req model.Request, cb model.ToolCallback) (string, error) {
	params := m.buildParams(req, req.Tools)

	for round := 0; round < maxToolRounds; round++ {
		resp, err := m.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return "", fmt.Errorf("openai api error: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("openai api error: no choices returned")
		}
		msg := resp.Choices[0].Message
		if len(msg.ToolCalls) == 0 {
			return msg.Content, nil
		}

		toolCalls := make([]openai.ChatCompletionMessageToolCallParam, 0, len(msg.ToolCalls))
		for _, tc := range msg.ToolCalls {
			toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallParam{
				ID:   tc.ID,
				Type: "function",
				Function: openai.ChatCompletionMessageToolCallFunctionParam{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
		params.Messages = append(params.Messages,
			openai.ChatCompletionMessageParamUnion{OfAssistant: &openai.ChatCompletionAssistantMessageParam{
				Role:      "assistant",
				ToolCalls: toolCalls,
			}},
		)
		for _, tc := range msg.ToolCalls {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			var args map[string]any
			if tc.Function.Arguments != "" {
				if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
					args = map[string]any{}
				}
			}
			payload := cb(tc.Function.Name, args)
			encoded, err := json.Marshal(payload)
			if err != nil {
				encoded = []byte(fmt.Sprintf("%v", payload))
			}
			params.Messages = append(params.Messages, openai.ToolMessage(string(encoded), tc.ID))
		}
	}
	return "", fmt.Errorf("openai tool loop exceeded %d rounds", maxToolRounds)
}

// Info returns metadata describing this OpenAI model implementation.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.opts.Model, Provider: "openai", SupportsTools: true}
}

// buildParams assembles the chat completion request from the normalized
// input, including tool definitions when present.
func (m *Model) buildParams(req model.Request, tools []model.Definition) openai.ChatCompletionNewParams {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.Instructions != "" {
		messages = append(messages, openai.SystemMessage(req.Instructions))
	}
	for _, t := range req.Turns {
		if t.Role == core.RoleAssistant {
			messages = append(messages, openai.AssistantMessage(t.Text))
			continue
		}
		messages = append(messages, openai.UserMessage(t.Text))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               m.opts.Model,
		Temperature:         openai.Float(m.opts.Temperature),
		MaxCompletionTokens: openai.Int(m.opts.MaxCompletionTokens),
	}
	if len(tools) == 0 {
		return params
	}
	converted := make([]openai.ChatCompletionToolParam, len(tools))
	for i, def := range tools {
		converted[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        def.Name,
				Description: openai.String(def.Description),
				Parameters:  def.Parameters,
			},
		}
	}
	params.Tools = converted
	return params
}
