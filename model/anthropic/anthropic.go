// Package anthropic provides a model.Model implementation on the Anthropic
// Messages API. Generation is non-streaming; Generate emits the complete
// text as a single terminal delta so the adapter still satisfies the
// streaming contract.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/lisa-chat/lisa/core"
	"github.com/lisa-chat/lisa/model"
)

const maxToolRounds = 8

// Options configure the Anthropic model adapter (temperature, model id,
// max tokens, API key). Extend via functional options to preserve stability.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Model wraps the Anthropic Messages API behind the generic model.Model interface.
type Model struct {
	client *anthropic.Client
	opts   Options
}

// NewModel creates a new Anthropic model using the official client.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := defaultOptions(optFns)

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Model{client: &client, opts: opts}
}

// NewModelFromClient creates a new Anthropic model from an existing client.
func NewModelFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Model {
	return &Model{client: client, opts: defaultOptions(optFns)}
}

func defaultOptions(optFns []func(o *Options)) Options {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return opts
}

// Generate implements model.Model. The full completion is produced in one
// call and emitted as a single text delta.
func (m *Model) Generate(ctx context.Context, req model.Request) (<-chan model.Event, <-chan error) {
	out := make(chan model.Event, 1)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		params := m.buildParams(req, nil)
		resp, err := m.client.Messages.New(ctx, params)
		if err != nil {
			errCh <- fmt.Errorf("anthropic api error: %w", err)
			return
		}
		text := textOf(resp)
		if text == "" {
			return
		}
		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
		case out <- model.TextDelta{Text: text}:
		}
	}()
	return out, errCh
}

// GenerateWithTools implements the non-streaming function-calling loop.
func (m *Model) GenerateWithTools(ctx context.Context, req model.Request, cb model.ToolCallback) (string, error) {
	params := m.buildParams(req, req.Tools)

	for round := 0; round < maxToolRounds; round++ {
		resp, err := m.client.Messages.New(ctx, params)
		if err != nil {
			return "", fmt.Errorf("anthropic api error: %w", err)
		}

		var (
			assistantBlocks []anthropic.ContentBlockParamUnion
			resultBlocks    []anthropic.ContentBlockParamUnion
		)
		for _, block := range resp.Content {
			switch block.Type {
			case "text":
				if tb := block.AsText(); tb.Text != "" {
					assistantBlocks = append(assistantBlocks, anthropic.NewTextBlock(tb.Text))
				}
			case "tool_use":
				tb := block.AsToolUse()
				if err := ctx.Err(); err != nil {
					return "", err
				}
				payload := cb(tb.Name, decodeArgs(tb.Input))
				encoded, err := json.Marshal(payload)
				if err != nil {
					encoded = []byte(fmt.Sprintf("%v", payload))
				}
				assistantBlocks = append(assistantBlocks, anthropic.NewToolUseBlock(tb.ID, tb.Input, tb.Name))
				resultBlocks = append(resultBlocks, anthropic.NewToolResultBlock(tb.ID, string(encoded), false))
			}
		}
		if len(resultBlocks) == 0 {
			return textOf(resp), nil
		}
		params.Messages = append(params.Messages,
			anthropic.NewAssistantMessage(assistantBlocks...),
			anthropic.NewUserMessage(resultBlocks...),
		)
	}
	return "", fmt.Errorf("anthropic tool loop exceeded %d rounds", maxToolRounds)
}

// Info returns metadata describing this Anthropic model implementation.
func (m *Model) Info() model.Info {
	return model.Info{Name: string(m.opts.Model), Provider: "anthropic", SupportsTools: true}
}

func (m *Model) buildParams(req model.Request, tools []model.Definition) anthropic.MessageNewParams {
	var messages []anthropic.MessageParam
	for _, t := range req.Turns {
		if t.Role == core.RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(t.Text)))
			continue
		}
		messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(t.Text)))
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)))

	params := anthropic.MessageNewParams{
		Model:       m.opts.Model,
		Messages:    messages,
		MaxTokens:   m.opts.MaxTokens,
		Temperature: anthropic.Float(m.opts.Temperature),
	}
	if req.Instructions != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.Instructions}}
	}
	if len(tools) > 0 {
		params.Tools = buildTools(tools)
	}
	return params
}

func textOf(resp *anthropic.Message) string {
	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.AsText().Text
		}
	}
	return text
}

func decodeArgs(input json.RawMessage) map[string]any {
	var args map[string]any
	if len(input) > 0 {
		if err := json.Unmarshal(input, &args); err != nil {
			args = map[string]any{}
		}
	}
	return args
}

// buildTools converts normalized tool definitions to Anthropic tool format.
func buildTools(tools []model.Definition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, len(tools))
	for i, def := range tools {
		inputSchema := anthropic.ToolInputSchemaParam{
			Type: constant.Object("object"),
		}
		if def.Parameters != nil {
			if properties, exists := def.Parameters["properties"]; exists {
				inputSchema.Properties = properties
			}
			switch req := def.Parameters["required"].(type) {
			case []string:
				inputSchema.Required = req
			case []any:
				var reqStrings []string
				for _, r := range req {
					if s, ok := r.(string); ok {
						reqStrings = append(reqStrings, s)
					}
				}
				inputSchema.Required = reqStrings
			}
		}
		out[i] = anthropic.ToolUnionParamOfTool(inputSchema, def.Name)
	}
	return out
}
