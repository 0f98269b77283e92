// Package ingest builds a video catalog snapshot from an upstream catalog
// API: resolve the channel handle, page through its uploads, batch-fetch
// metadata, then enrich each record with a transcript on a best-effort
// basis. Primary fetch failures abort the run; transcript failures only
// degrade it.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/lisa-chat/lisa/catalog"
	"github.com/lisa-chat/lisa/logging"
)

// CatalogAPI is the upstream surface the pipeline consumes. Implementations
// perform the actual network I/O.
type CatalogAPI interface {
	// ResolveHandle maps a channel handle to its id, uploads playlist id, and
	// display title.
	ResolveHandle(ctx context.Context, handle string) (channelID, uploadsID, title string, err error)

	// PlaylistPage returns up to pageSize video ids of the playlist starting
	// at pageToken, plus the token of the next page ("" when exhausted).
	PlaylistPage(ctx context.Context, playlistID, pageToken string, pageSize int) (ids []string, next string, err error)

	// VideoBatch fetches full metadata for the given video ids.
	VideoBatch(ctx context.Context, ids []string) ([]catalog.Video, error)

	// Transcript fetches the transcript text of one video.
	Transcript(ctx context.Context, videoID string) (string, error)
}

// FatalError marks a primary fetch failure: the run produced no usable
// catalog.
type FatalError struct {
	Stage string
	Err   error
}

func (e *FatalError) Error() string { return fmt.Sprintf("ingest %s: %v", e.Stage, e.Err) }

func (e *FatalError) Unwrap() error { return e.Err }

// Report summarizes one pipeline run. TranscriptFailures counts records that
// stayed without a transcript; the run is still considered successful.
type Report struct {
	Requested          int
	Fetched            int
	TranscriptFailures int
}

// Progress receives monotone percentage updates in [0,100] with a stage tag.
type Progress func(percent int, stage string)

// Options configure a Pipeline.
type Options struct {
	Logger logging.Logger
	// MaxVideos caps how many videos one run ingests.
	MaxVideos int
	// PageSize caps ids per playlist page and per metadata batch.
	PageSize int
	// EnrichTranscripts disables the best-effort transcript stage when false.
	EnrichTranscripts bool
}

// Pipeline runs catalog ingestion over a CatalogAPI.
type Pipeline struct {
	api  CatalogAPI
	opts Options
}

// NewPipeline creates a Pipeline with default bounds (100 videos, 50 per
// page).
func NewPipeline(api CatalogAPI, optFns ...func(o *Options)) *Pipeline {
	opts := Options{
		Logger:            logging.NoOpLogger{},
		MaxVideos:         100,
		PageSize:          50,
		EnrichTranscripts: true,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	return &Pipeline{api: api, opts: opts}
}

// Fetch ingests up to limit videos of the channel behind handle. A limit of
// zero or less falls back to the configured maximum. progress may be nil.
func (p *Pipeline) Fetch(ctx context.Context, handle string, limit int, progress Progress) (*catalog.Channel, *Report, error) {
	if limit <= 0 || limit > p.opts.MaxVideos {
		limit = p.opts.MaxVideos
	}
	report := &Report{Requested: limit}
	emit := func(pct int, stage string) {
		if progress != nil {
			progress(pct, stage)
		}
	}

	emit(0, "resolve")
	channelID, uploadsID, title, err := p.api.ResolveHandle(ctx, handle)
	if err != nil {
		return nil, report, &FatalError{Stage: "resolve handle", Err: err}
	}
	emit(5, "resolve")
	p.opts.Logger.Info("ingest.resolved", "handle", handle, "channel_id", channelID)

	ids, err := p.listVideoIDs(ctx, uploadsID, limit, emit)
	if err != nil {
		return nil, report, &FatalError{Stage: "list uploads", Err: err}
	}

	videos, err := p.fetchMetadata(ctx, ids, emit)
	if err != nil {
		return nil, report, &FatalError{Stage: "fetch metadata", Err: err}
	}
	report.Fetched = len(videos)

	if p.opts.EnrichTranscripts {
		report.TranscriptFailures = p.enrichTranscripts(ctx, videos, emit)
	}
	emit(100, "done")

	for i := range videos {
		if videos[i].ChannelTitle == "" {
			videos[i].ChannelTitle = title
		}
	}
	ch := &catalog.Channel{
		Handle:     handle,
		ID:         channelID,
		FetchedAt:  time.Now().UTC(),
		VideoCount: len(videos),
		Videos:     catalog.ByPublishedDesc(videos),
	}
	p.opts.Logger.Info("ingest.complete", "handle", handle,
		"videos", len(videos), "transcript_failures", report.TranscriptFailures)
	return ch, report, nil
}

// listVideoIDs pages through the uploads playlist until limit ids are
// collected or the playlist is exhausted. Duplicate ids are dropped.
func (p *Pipeline) listVideoIDs(ctx context.Context, uploadsID string, limit int, emit Progress) ([]string, error) {
	var (
		ids   []string
		seen  = map[string]bool{}
		token string
	)
	for len(ids) < limit {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pageSize := p.opts.PageSize
		if remaining := limit - len(ids); remaining < pageSize {
			pageSize = remaining
		}
		pageIDs, next, err := p.api.PlaylistPage(ctx, uploadsID, token, pageSize)
		if err != nil {
			return nil, err
		}
		for _, id := range pageIDs {
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
			if len(ids) == limit {
				break
			}
		}
		emit(5+35*len(ids)/limit, "list")
		if next == "" {
			break
		}
		token = next
	}
	return ids, nil
}

// fetchMetadata resolves ids to full records in batches of at most PageSize.
func (p *Pipeline) fetchMetadata(ctx context.Context, ids []string, emit Progress) ([]catalog.Video, error) {
	videos := make([]catalog.Video, 0, len(ids))
	for start := 0; start < len(ids); start += p.opts.PageSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := start + p.opts.PageSize
		if end > len(ids) {
			end = len(ids)
		}
		batch, err := p.api.VideoBatch(ctx, ids[start:end])
		if err != nil {
			return nil, err
		}
		videos = append(videos, batch...)
		emit(40+30*end/len(ids), "metadata")
	}
	return videos, nil
}

// enrichTranscripts attaches transcripts where available. A failed or empty
// transcript leaves the record's Transcript nil and counts as a degradation;
// it never fails the run.
func (p *Pipeline) enrichTranscripts(ctx context.Context, videos []catalog.Video, emit Progress) int {
	failures := 0
	for i := range videos {
		if err := ctx.Err(); err != nil {
			failures += len(videos) - i
			return failures
		}
		text, err := p.api.Transcript(ctx, videos[i].ID)
		if err != nil || text == "" {
			failures++
			if err != nil {
				p.opts.Logger.Debug("ingest.transcript_failed", "video_id", videos[i].ID, "error", err.Error())
			}
		} else {
			videos[i].Transcript = &text
		}
		emit(70+30*(i+1)/len(videos), "transcripts")
	}
	return failures
}
