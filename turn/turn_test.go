package turn

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lisa-chat/lisa/catalog"
	"github.com/lisa-chat/lisa/core"
	"github.com/lisa-chat/lisa/model"
	"github.com/lisa-chat/lisa/router"
	"github.com/lisa-chat/lisa/session"
)

func testCatalog() *catalog.Channel {
	day := func(d int) *time.Time {
		ts := time.Date(2024, 2, d, 0, 0, 0, 0, time.UTC)
		return &ts
	}
	return &catalog.Channel{
		Handle:     "@test",
		VideoCount: 2,
		Videos: []catalog.Video{
			{ID: "v1", Title: "First", PublishedAt: day(2), ViewCount: 10},
			{ID: "v2", Title: "Second", PublishedAt: day(1), ViewCount: 50},
		},
	}
}

func newTestEngine(m model.Model) (*Engine, *session.InMemoryStore) {
	store := session.NewInMemoryStore()
	return NewEngine(m, store), store
}

func TestSendRejectsEmptyInput(t *testing.T) {
	engine, store := newTestEngine(model.NewMockModel("m"))
	conv := engine.NewConversation("u", "tag")

	_, err := engine.Send(context.Background(), conv, Input{Text: "   "})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	// no side effects: nothing materialized
	assert.Equal(t, session.UnsavedID, conv.SessionID())
	sessions, _ := store.ListSessions(context.Background(), "u", "tag")
	assert.Empty(t, sessions)
}

func TestSendStreamingSearchTurn(t *testing.T) {
	ctx := context.Background()
	mock := model.NewMockModel("m")
	mock.Script("what is new in go?", append(model.TextEvents("Go 1.", "24 shipped."),
		model.GroundingEvent{Grounding: core.Grounding{
			Sources: []core.GroundingSource{{URI: "https://go.dev", Title: "go.dev"}},
		}})...)

	engine, store := newTestEngine(mock)
	conv := engine.NewConversation("u", "tag")

	var deltas []string
	res, err := engine.Send(ctx, conv, Input{
		Text:    "what is new in go?",
		OnDelta: func(d string) { deltas = append(deltas, d) },
	})
	require.NoError(t, err)
	assert.Equal(t, router.ModeStreamingSearch, res.Mode)
	assert.Equal(t, "Go 1.24 shipped.", res.Message.Content)
	assert.Equal(t, []string{"Go 1.", "24 shipped."}, deltas)
	require.NotNil(t, res.Message.Grounding)
	assert.Equal(t, "https://go.dev", res.Message.Grounding.Sources[0].URI)

	// session materialized lazily and both sides persisted
	id := conv.SessionID()
	assert.NotEqual(t, session.UnsavedID, id)
	msgs, err := store.LoadMessages(ctx, id)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, core.RoleUser, msgs[0].Role)
	assert.Equal(t, core.RoleAssistant, msgs[1].Role)
}

func TestSendCatalogToolTurn(t *testing.T) {
	ctx := context.Background()
	cat := testCatalog()
	prompt := buildPrompt(router.ModeCatalogTools, "play the most viewed video", "", "", false, cat)

	mock := model.NewMockModel("m")
	mock.ScriptCalls(prompt, "Now playing Second.",
		model.MockCall{Name: "play_video", Args: map[string]any{"sortBy": "most_viewed"}},
	)

	engine, _ := newTestEngine(mock)
	conv := engine.NewConversation("u", "tag")
	conv.LoadCatalog(cat)

	res, err := engine.Send(ctx, conv, Input{Text: "play the most viewed video"})
	require.NoError(t, err)
	assert.Equal(t, router.ModeCatalogTools, res.Mode)
	assert.Equal(t, "Now playing Second.", res.Message.Content)
	require.NotNil(t, res.Card)
	assert.Equal(t, "v2", res.Card.ID)

	require.Len(t, res.Message.ToolCalls, 1)
	assert.Equal(t, "play_video", res.Message.ToolCalls[0].Name)
	assert.Equal(t, "v2", res.Message.ToolCalls[0].Result["videoId"])
}

func TestSendCatalogChartTurn(t *testing.T) {
	ctx := context.Background()
	cat := testCatalog()
	prompt := buildPrompt(router.ModeCatalogTools, "plot views over time", "", "", false, cat)

	mock := model.NewMockModel("m")
	mock.ScriptCalls(prompt, "Here is the chart.",
		model.MockCall{Name: "plot_metric_vs_time", Args: map[string]any{"metric": "views"}},
	)

	engine, _ := newTestEngine(mock)
	conv := engine.NewConversation("u", "tag")
	conv.LoadCatalog(cat)

	res, err := engine.Send(ctx, conv, Input{Text: "plot views over time"})
	require.NoError(t, err)
	require.Len(t, res.Message.Charts, 1)
	assert.Equal(t, core.ChartMetricVsTime, res.Message.Charts[0].Kind)
	assert.Equal(t, "viewCount", res.Message.Charts[0].Metric)
}

func TestSendTabularFlow(t *testing.T) {
	ctx := context.Background()
	mock := model.NewMockModel("m")
	engine, _ := newTestEngine(mock)
	conv := engine.NewConversation("u", "tag")

	csv := "title,date,likes\nA,2024-01-01,1\nB,2024-01-08,3\n"
	require.NoError(t, conv.UploadCSV(strings.NewReader(csv)))

	// first turn after upload: prompt-injected, streamed
	res, err := engine.Send(ctx, conv, Input{Text: "what do you see?"})
	require.NoError(t, err)
	assert.Equal(t, router.ModeStreamingSearch, res.Mode)

	// next turn: the table is resident and tool-routed
	table, summary, _, fresh, _, _ := conv.snapshot()
	require.NotNil(t, table)
	assert.False(t, fresh)

	prompt := buildPrompt(router.ModeTabularTools, "average likes?", summary, "", false, nil)
	mock.ScriptCalls(prompt, "The mean is 2.",
		model.MockCall{Name: "compute_stats", Args: map[string]any{"column": "likes"}},
	)
	res, err = engine.Send(ctx, conv, Input{Text: "average likes?"})
	require.NoError(t, err)
	assert.Equal(t, router.ModeTabularTools, res.Mode)
	assert.Equal(t, "The mean is 2.", res.Message.Content)
	require.Len(t, res.Message.ToolCalls, 1)
	assert.Equal(t, 2.0, res.Message.ToolCalls[0].Result["mean"])
}

func TestSendImageOnlyGetsDefaultPrompt(t *testing.T) {
	ctx := context.Background()
	mock := model.NewMockModel("m")
	mock.Script(imageOnlyPrompt, model.TextEvents("A chart screenshot.")...)

	engine, _ := newTestEngine(mock)
	conv := engine.NewConversation("u", "tag")

	res, err := engine.Send(ctx, conv, Input{
		Images: []core.ImageAttachment{{Data: []byte{1}, MimeType: "image/png"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "A chart screenshot.", res.Message.Content)
}

// failingModel always reports an upstream failure.
type failingModel struct{ err error }

func (f *failingModel) Generate(context.Context, model.Request) (<-chan model.Event, <-chan error) {
	out := make(chan model.Event)
	errCh := make(chan error, 1)
	errCh <- f.err
	close(out)
	close(errCh)
	return out, errCh
}

func (f *failingModel) GenerateWithTools(context.Context, model.Request, model.ToolCallback) (string, error) {
	return "", f.err
}

func (f *failingModel) Info() model.Info { return model.Info{Name: "failing", Provider: "test"} }

func TestSendUpstreamErrorCompletesTurn(t *testing.T) {
	ctx := context.Background()
	upstream := errors.New("backend on fire")
	engine, store := newTestEngine(&failingModel{err: upstream})
	conv := engine.NewConversation("u", "tag")

	res, err := engine.Send(ctx, conv, Input{Text: "hello there"})
	require.NoError(t, err) // the turn completes

	var uerr *UpstreamError
	require.ErrorAs(t, res.Err, &uerr)
	assert.Contains(t, res.Message.Content, "backend on fire")

	// the visible failure is persisted like any assistant reply
	msgs, err := store.LoadMessages(ctx, conv.SessionID())
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[1].Content, "Sorry, something went wrong")
}

// slowModel emits two deltas then blocks until the context is cancelled.
type slowModel struct{ released chan struct{} }

func (s *slowModel) Generate(ctx context.Context, _ model.Request) (<-chan model.Event, <-chan error) {
	out := make(chan model.Event)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errCh)
		out <- model.TextDelta{Text: "first "}
		out <- model.TextDelta{Text: "second"}
		close(s.released)
		<-ctx.Done()
	}()
	return out, errCh
}

func (s *slowModel) GenerateWithTools(context.Context, model.Request, model.ToolCallback) (string, error) {
	return "", nil
}

func (s *slowModel) Info() model.Info { return model.Info{Name: "slow", Provider: "test"} }

func TestSendCancellationKeepsPartialReply(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := &slowModel{released: make(chan struct{})}
	engine, store := newTestEngine(m)
	conv := engine.NewConversation("u", "tag")

	go func() {
		<-m.released
		cancel()
	}()

	res, err := engine.Send(ctx, conv, Input{Text: "long question"})
	require.NoError(t, err)
	assert.True(t, res.Cancelled)
	assert.Equal(t, "first second", res.Message.Content)

	msgs, err := store.LoadMessages(context.Background(), conv.SessionID())
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "first second", msgs[1].Content)
}

func TestNewChatKeepsResidentData(t *testing.T) {
	engine, _ := newTestEngine(model.NewMockModel("m"))
	conv := engine.NewConversation("u", "tag")
	conv.LoadCatalog(testCatalog())

	_, err := engine.Send(context.Background(), conv, Input{Text: "regression analysis please"})
	require.NoError(t, err)
	require.NotEmpty(t, conv.History())

	conv.NewChat()
	assert.Empty(t, conv.History())
	assert.Equal(t, session.UnsavedID, conv.SessionID())
	assert.NotNil(t, conv.Catalog())
}

func TestHistoryIsReplayedToModel(t *testing.T) {
	ctx := context.Background()
	mock := model.NewMockModel("m")
	engine, _ := newTestEngine(mock)
	conv := engine.NewConversation("u", "tag")

	_, err := engine.Send(ctx, conv, Input{Text: "first question"})
	require.NoError(t, err)
	_, err = engine.Send(ctx, conv, Input{Text: "second question"})
	require.NoError(t, err)

	history := conv.History()
	require.Len(t, history, 4)
	turns := modelTurns(history[:2])
	require.Len(t, turns, 2)
	assert.Equal(t, core.RoleUser, turns[0].Role)
	assert.Equal(t, "first question", turns[0].Text)
}
