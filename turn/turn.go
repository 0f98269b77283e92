// Package turn orchestrates one chat turn end to end: validate the input,
// materialize the session lazily, absorb attachments, route the turn to a
// capability path, run the model, and persist both sides of the exchange.
package turn

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lisa-chat/lisa/catalog"
	"github.com/lisa-chat/lisa/core"
	"github.com/lisa-chat/lisa/logging"
	"github.com/lisa-chat/lisa/model"
	"github.com/lisa-chat/lisa/router"
	"github.com/lisa-chat/lisa/session"
	"github.com/lisa-chat/lisa/stream"
	"github.com/lisa-chat/lisa/tool"
)

// ValidationError rejects a turn before any side effect happens.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "invalid input: " + e.Reason }

// UpstreamError wraps a provider failure. The turn still completes: a
// visible error message is persisted as the assistant reply.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string { return "upstream failure: " + e.Err.Error() }

func (e *UpstreamError) Unwrap() error { return e.Err }

const defaultInstructions = "You are a helpful assistant for exploring a video channel and uploaded datasets. " +
	"Answer concisely. Use the provided tools when they apply, and never invent numbers a tool can compute."

// prompt used when a message carries images but no text.
const imageOnlyPrompt = "Describe the attached image(s)."

// historyWindow bounds how many prior messages are replayed to the model.
const historyWindow = 20

// Input is one user turn.
type Input struct {
	Text   string
	Images []core.ImageAttachment
	// OnDelta receives streamed text chunks as they arrive. Optional.
	OnDelta func(delta string)
}

// Result is the completed turn.
type Result struct {
	Message   core.Message
	Mode      router.Mode
	Card      *catalog.Card
	Cancelled bool
	// Err is set when the assistant message is a visible upstream failure.
	Err error
}

// Options configure an Engine.
type Options struct {
	Logger       logging.Logger
	Instructions string
}

// Engine runs turns against one model for any number of conversations.
type Engine struct {
	model model.Model
	store session.Store
	opts  Options
}

// NewEngine creates an Engine.
func NewEngine(m model.Model, store session.Store, optFns ...func(o *Options)) *Engine {
	opts := Options{
		Logger:       logging.NoOpLogger{},
		Instructions: defaultInstructions,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	return &Engine{model: m, store: store, opts: opts}
}

// NewConversation starts a conversation scoped to an owner and agent tag.
// The conversation begins unsaved; a session materializes on the first send.
func (e *Engine) NewConversation(owner, agentTag string) *Conversation {
	return &Conversation{
		sessions: session.NewManager(e.store, owner, agentTag, func(o *session.ManagerOptions) {
			o.Logger = e.opts.Logger
		}),
	}
}

// Send runs one turn. Validation failures return an error and leave no
// trace; every other outcome, including upstream failures and cancellation,
// completes the turn and persists what was produced.
func (e *Engine) Send(ctx context.Context, conv *Conversation, in Input) (*Result, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" && len(in.Images) == 0 {
		return nil, &ValidationError{Reason: "message is empty"}
	}
	if text == "" {
		text = imageOnlyPrompt
	}

	table, summary, slim, fresh, cat, history := conv.snapshot()
	mode := router.Classify(router.Request{
		Text:          text,
		FreshTable:    fresh,
		ResidentTable: table != nil,
		Catalog:       cat != nil,
		HasImages:     len(in.Images) > 0,
	})
	e.opts.Logger.Debug("turn.routed", "mode", string(mode), "session_id", conv.SessionID())

	if _, err := conv.sessions.EnsureActive(ctx, ""); err != nil {
		return nil, err
	}

	userMsg := core.NewMessage(core.RoleUser, text)
	userMsg.Images = in.Images
	if err := conv.sessions.Append(ctx, userMsg); err != nil {
		// the turn proceeds on transcript write failures
		e.opts.Logger.Warn("turn.persist_user_failed", "error", err.Error())
	}

	req := model.Request{
		Instructions: e.opts.Instructions,
		Turns:        modelTurns(history),
		Prompt:       buildPrompt(mode, text, summary, slim, fresh, cat),
		Images:       in.Images,
	}

	start := time.Now()
	var result *Result
	switch mode {
	case router.ModeCatalogTools:
		result = e.runTools(ctx, req, tool.CatalogSet(cat, e.opts.Logger))
	case router.ModeTabularTools:
		result = e.runTools(ctx, req, tool.TabularSet(table, e.opts.Logger))
	case router.ModeCodeExecution:
		req.EnableCode = true
		result = e.runStreaming(ctx, req, in.OnDelta)
	default:
		req.EnableSearch = true
		result = e.runStreaming(ctx, req, in.OnDelta)
	}
	result.Mode = mode

	if err := conv.sessions.Append(ctx, result.Message); err != nil {
		e.opts.Logger.Warn("turn.persist_assistant_failed", "error", err.Error())
	}
	conv.finishTurn(userMsg, result.Message)

	logging.LogModelCall(e.opts.Logger, e.model.Info().Name, time.Since(start), result.Err == nil, result.Err)
	return result, nil
}

// runTools executes a non-streaming tool turn: the callback collects charts,
// cards, generated images, and the audit records while feeding the model its
// payloads.
func (e *Engine) runTools(ctx context.Context, req model.Request, set *tool.Set) *Result {
	defs := make([]model.Definition, 0, len(set.Tools()))
	for _, t := range set.Tools() {
		defs = append(defs, model.Definition{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		})
	}
	req.Tools = defs

	var (
		charts  []core.ChartPayload
		records []core.ToolCallRecord
		card    *catalog.Card
		images  []core.ImageAttachment
	)
	cb := func(name string, args map[string]any) map[string]any {
		res := set.Execute(name, args)
		payload := res.ModelPayload()
		records = append(records, core.ToolCallRecord{Name: name, Args: args, Result: payload})
		switch r := res.(type) {
		case tool.Series:
			charts = append(charts, r.Chart)
		case tool.Selection:
			if r.Card != nil {
				card = r.Card
			}
		case tool.Image:
			images = append(images, core.ImageAttachment{Data: r.Data, MimeType: r.MimeType, Name: "generated"})
		}
		return payload
	}

	final, err := e.model.GenerateWithTools(ctx, req, cb)
	if err != nil {
		return e.upstreamFailure(err)
	}
	msg := core.NewMessage(core.RoleAssistant, final)
	msg.Charts = charts
	msg.ToolCalls = records
	msg.Images = images
	return &Result{Message: msg, Card: card}
}

// runStreaming executes a streamed turn through the aggregator. Cancellation
// keeps the partial text; an upstream error becomes a visible reply.
func (e *Engine) runStreaming(ctx context.Context, req model.Request, onDelta func(string)) *Result {
	agg := stream.New(func(o *stream.Options) {
		o.Logger = e.opts.Logger
		o.OnDelta = onDelta
	})
	events, errs := e.model.Generate(ctx, req)
	outcome := agg.Consume(ctx, events, errs)

	if outcome.Err != nil {
		return e.upstreamFailure(outcome.Err)
	}
	msg := core.NewMessage(core.RoleAssistant, outcome.Text)
	msg.Parts = outcome.Parts
	msg.Grounding = outcome.Grounding
	return &Result{Message: msg, Cancelled: outcome.Cancelled}
}

func (e *Engine) upstreamFailure(err error) *Result {
	wrapped := &UpstreamError{Err: err}
	msg := core.NewMessage(core.RoleAssistant,
		fmt.Sprintf("Sorry, something went wrong while generating a response: %v", err))
	return &Result{Message: msg, Err: wrapped}
}

// modelTurns flattens the transcript for replay, keeping the last
// historyWindow messages in their reduced text form.
func modelTurns(history []core.Message) []model.Turn {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	turns := make([]model.Turn, 0, len(history))
	for _, m := range history {
		text := m.PlainText()
		if text == "" {
			continue
		}
		turns = append(turns, model.Turn{Role: m.Role, Text: text})
	}
	return turns
}

// buildPrompt applies the mode's prompt prefix. A freshly uploaded table is
// injected inline (summary plus slim projection) so the model can discuss it
// before it becomes tool-addressable; a resident table contributes its
// summary only, the tools do the computing.
func buildPrompt(mode router.Mode, text, summary, slim string, fresh bool, cat *catalog.Channel) string {
	var b strings.Builder
	switch {
	case fresh && summary != "":
		b.WriteString("The user just uploaded a dataset.\n")
		b.WriteString(summary)
		b.WriteString("\n\nData (reduced columns):\n")
		b.WriteString(slim)
		b.WriteString("\n\nUser message: ")
	case mode == router.ModeTabularTools && summary != "":
		b.WriteString(summary)
		b.WriteString("\nUse the provided tools for any computation over this dataset.\n\nUser message: ")
	case mode == router.ModeCatalogTools && cat != nil:
		fmt.Fprintf(&b, "Loaded channel %s with %d videos. Use the provided tools to compute statistics, plot metrics, select videos, or generate images.\n\nUser message: ",
			cat.Handle, cat.VideoCount)
	}
	b.WriteString(text)
	return b.String()
}
