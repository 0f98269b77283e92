// Package gemini provides the primary model.Model implementation on the
// Google GenAI API. It supports streamed text generation with search
// grounding, server-side code execution, and function/tool calling.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/lisa-chat/lisa/core"
	"github.com/lisa-chat/lisa/model"
)

// maxToolRounds bounds the tool-calling loop so a misbehaving completion
// cannot spin forever.
const maxToolRounds = 8

// Options configure the Gemini model adapter.
type Options struct {
	Model       string
	Temperature float64
	APIKey      string
}

// Model wraps the GenAI API behind the generic model.Model interface.
type Model struct {
	client *genai.Client
	opts   Options
}

// NewModel creates a new Gemini model, building a client from the options.
func NewModel(ctx context.Context, optFns ...func(o *Options)) (*Model, error) {
	opts := applyOptions(optFns)
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Model{client: client, opts: opts}, nil
}

// NewModelFromClient creates a new Gemini model from an existing client.
func NewModelFromClient(client *genai.Client, optFns ...func(o *Options)) *Model {
	return &Model{client: client, opts: applyOptions(optFns)}
}

func applyOptions(optFns []func(o *Options)) Options {
	opts := Options{
		Model:       "gemini-2.5-flash",
		Temperature: 0.7,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return opts
}

// Generate implements streamed generation. Text arrives as deltas; when the
// response carries structured parts (executable code, execution results,
// inline images) a final full response supersedes the deltas. Grounding
// metadata is forwarded out of band.
func (m *Model) Generate(ctx context.Context, req model.Request) (<-chan model.Event, <-chan error) {
	out := make(chan model.Event, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		contents := buildContents(req)
		config := m.buildConfig(req)

		var (
			parts      []core.Part
			structured bool
			grounding  core.Grounding
			seenURI    = map[string]bool{}
		)

		for resp, err := range m.client.Models.GenerateContentStream(ctx, m.opts.Model, contents, config) {
			if err != nil {
				errCh <- fmt.Errorf("gemini streaming error: %w", err)
				return
			}
			if err := ctx.Err(); err != nil {
				errCh <- err
				return
			}
			if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
				continue
			}
			cand := resp.Candidates[0]
			for _, p := range cand.Content.Parts {
				switch {
				case p.ExecutableCode != nil:
					structured = true
					parts = append(parts, core.CodePart{
						Language: strings.ToLower(string(p.ExecutableCode.Language)),
						Code:     p.ExecutableCode.Code,
					})
				case p.CodeExecutionResult != nil:
					structured = true
					parts = append(parts, core.CodeResultPart{
						Output: p.CodeExecutionResult.Output,
						OK:     p.CodeExecutionResult.Outcome == genai.OutcomeOK,
					})
				case p.InlineData != nil:
					structured = true
					parts = append(parts, core.ImagePart{
						Data:     p.InlineData.Data,
						MimeType: p.InlineData.MIMEType,
					})
				case p.Text != "":
					parts = appendText(parts, p.Text)
					select {
					case <-ctx.Done():
						errCh <- ctx.Err()
						return
					case out <- model.TextDelta{Text: p.Text}:
					}
				}
			}
			collectGrounding(cand.GroundingMetadata, &grounding, seenURI)
		}

		if structured {
			out <- model.FullResponse{Parts: parts}
		}
		if len(grounding.Sources) > 0 || len(grounding.Queries) > 0 {
			out <- model.GroundingEvent{Grounding: grounding}
		}
	}()
	return out, errCh
}

// GenerateWithTools implements the non-streaming function-calling loop.
func (m *Model) GenerateWithTools(ctx context.Context, req model.Request, cb model.ToolCallback) (string, error) {
	contents := buildContents(req)
	config := m.buildConfig(req)

	for round := 0; round < maxToolRounds; round++ {
		resp, err := m.client.Models.GenerateContent(ctx, m.opts.Model, contents, config)
		if err != nil {
			return "", fmt.Errorf("gemini api error: %w", err)
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return "", fmt.Errorf("gemini api error: no candidates returned")
		}
		content := resp.Candidates[0].Content

		var calls []*genai.FunctionCall
		var text strings.Builder
		for _, p := range content.Parts {
			if p.FunctionCall != nil {
				calls = append(calls, p.FunctionCall)
			}
			if p.Text != "" {
				text.WriteString(p.Text)
			}
		}
		if len(calls) == 0 {
			return text.String(), nil
		}

		contents = append(contents, content)
		responseParts := make([]*genai.Part, 0, len(calls))
		for _, call := range calls {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			payload := cb(call.Name, call.Args)
			responseParts = append(responseParts, &genai.Part{
				FunctionResponse: &genai.FunctionResponse{Name: call.Name, Response: payload},
			})
		}
		contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: responseParts})
	}
	return "", fmt.Errorf("gemini tool loop exceeded %d rounds", maxToolRounds)
}

// Info returns metadata describing this Gemini model implementation.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.opts.Model, Provider: "gemini", SupportsTools: true}
}

func buildContents(req model.Request) []*genai.Content {
	var contents []*genai.Content
	for _, t := range req.Turns {
		role := genai.Role(genai.RoleUser)
		if t.Role == core.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Text, role))
	}

	parts := []*genai.Part{{Text: req.Prompt}}
	for _, img := range req.Images {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: img.MimeType, Data: img.Data},
		})
	}
	contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: parts})
	return contents
}

func (m *Model) buildConfig(req model.Request) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(m.opts.Temperature)),
	}
	if req.Instructions != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.Instructions}},
		}
	}
	if req.EnableSearch {
		config.Tools = append(config.Tools, &genai.Tool{GoogleSearch: &genai.GoogleSearch{}})
	}
	if req.EnableCode {
		config.Tools = append(config.Tools, &genai.Tool{CodeExecution: &genai.ToolCodeExecution{}})
	}
	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, def := range req.Tools {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  toSchema(def.Parameters),
			})
		}
		config.Tools = append(config.Tools, &genai.Tool{FunctionDeclarations: decls})
	}
	return config
}

// toSchema converts a minimal JSON schema map into the SDK's schema type.
// Only the subset produced by the tool declarations is handled.
func toSchema(schema map[string]any) *genai.Schema {
	if schema == nil {
		return &genai.Schema{Type: genai.TypeObject}
	}
	out := &genai.Schema{Type: schemaType(schema["type"])}
	if desc, ok := schema["description"].(string); ok {
		out.Description = desc
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		out.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if sub, ok := raw.(map[string]any); ok {
				out.Properties[name] = toSchema(sub)
			}
		}
	}
	switch req := schema["required"].(type) {
	case []string:
		out.Required = req
	case []any:
		for _, r := range req {
			if s, ok := r.(string); ok {
				out.Required = append(out.Required, s)
			}
		}
	}
	return out
}

func schemaType(v any) genai.Type {
	s, _ := v.(string)
	switch s {
	case "string":
		return genai.TypeString
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object", "":
		return genai.TypeObject
	default:
		return genai.TypeObject
	}
}

// appendText merges consecutive text chunks into a single part so the final
// full response mirrors the rendered order of the stream.
func appendText(parts []core.Part, text string) []core.Part {
	if n := len(parts); n > 0 {
		if tp, ok := parts[n-1].(core.TextPart); ok {
			parts[n-1] = core.TextPart{Text: tp.Text + text}
			return parts
		}
	}
	return append(parts, core.TextPart{Text: text})
}

func collectGrounding(md *genai.GroundingMetadata, g *core.Grounding, seen map[string]bool) {
	if md == nil {
		return
	}
	for _, chunk := range md.GroundingChunks {
		if chunk.Web == nil || chunk.Web.URI == "" || seen[chunk.Web.URI] {
			continue
		}
		seen[chunk.Web.URI] = true
		g.Sources = append(g.Sources, core.GroundingSource{URI: chunk.Web.URI, Title: chunk.Web.Title})
	}
	for _, q := range md.WebSearchQueries {
		g.Queries = append(g.Queries, q)
	}
}
