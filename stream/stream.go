// Package stream aggregates model generation events into a finished turn
// outcome. The aggregator concatenates text deltas in arrival order, lets a
// full structured response supersede the accumulated text, collects
// grounding out of band, and honors cooperative cancellation: a cancelled
// context stops consumption and preserves whatever was accumulated.
package stream

import (
	"context"
	"errors"
	"strings"

	"github.com/lisa-chat/lisa/core"
	"github.com/lisa-chat/lisa/logging"
	"github.com/lisa-chat/lisa/model"
)

// Outcome is the aggregate of one generation.
type Outcome struct {
	// Text is the assistant text: the delta concatenation, or the text parts
	// of the full response when one superseded the stream.
	Text string
	// Parts is non-nil only when a full structured response arrived.
	Parts []core.Part
	// Grounding holds source attribution when the provider emitted any.
	Grounding *core.Grounding
	// Cancelled reports that consumption stopped on context cancellation.
	// The partial accumulation above is still valid.
	Cancelled bool
	// Err is the upstream failure, nil on success or cancellation.
	Err error
}

// Options configure an Aggregator.
type Options struct {
	Logger logging.Logger
	// OnDelta is invoked for every text delta as it arrives, before it is
	// appended to the accumulation. Optional.
	OnDelta func(delta string)
}

// Aggregator consumes one generation's event stream at a time. It holds no
// per-run state; a single Aggregator may serve sequential runs.
type Aggregator struct {
	opts Options
}

// New creates an Aggregator.
func New(optFns ...func(o *Options)) *Aggregator {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	return &Aggregator{opts: opts}
}

// Consume drains the event and error channels until generation ends, the
// context is cancelled, or an upstream error arrives. It always returns a
// usable Outcome; on cancellation the partial text is kept and Err stays nil.
func (a *Aggregator) Consume(ctx context.Context, events <-chan model.Event, errs <-chan error) Outcome {
	var (
		b       strings.Builder
		outcome Outcome
		deltas  int
	)

	for events != nil || errs != nil {
		select {
		case <-ctx.Done():
			outcome.Cancelled = true
			outcome.Text = finalText(&b, outcome.Parts)
			a.opts.Logger.Debug("stream.cancelled", "deltas", deltas, "chars", b.Len())
			return outcome

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			switch e := ev.(type) {
			case model.TextDelta:
				deltas++
				if a.opts.OnDelta != nil {
					a.opts.OnDelta(e.Text)
				}
				b.WriteString(e.Text)
			case model.FullResponse:
				outcome.Parts = e.Parts
			case model.GroundingEvent:
				g := e.Grounding
				outcome.Grounding = &g
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err == nil {
				continue
			}
			outcome.Text = finalText(&b, outcome.Parts)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				outcome.Cancelled = true
				return outcome
			}
			outcome.Err = err
			a.opts.Logger.Warn("stream.upstream_error", "error", err.Error(), "deltas", deltas)
			return outcome
		}
	}

	outcome.Text = finalText(&b, outcome.Parts)
	a.opts.Logger.Debug("stream.complete", "deltas", deltas, "chars", len(outcome.Text),
		"structured", outcome.Parts != nil)
	return outcome
}

// finalText prefers the text carried by a superseding full response over the
// delta accumulation.
func finalText(b *strings.Builder, parts []core.Part) string {
	if parts == nil {
		return b.String()
	}
	var texts []string
	for _, p := range parts {
		if tp, ok := p.(core.TextPart); ok && tp.Text != "" {
			texts = append(texts, tp.Text)
		}
	}
	return strings.Join(texts, "\n")
}
