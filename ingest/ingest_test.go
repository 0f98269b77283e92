package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lisa-chat/lisa/catalog"
)

// fakeAPI serves a synthetic channel and records call counts.
type fakeAPI struct {
	videoIDs []string

	resolveErr    error
	batchErr      error
	transcriptErr map[string]error

	pageCalls  int
	batchCalls int
}

func newFakeAPI(n int) *fakeAPI {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("vid-%03d", i)
	}
	return &fakeAPI{videoIDs: ids, transcriptErr: map[string]error{}}
}

func (f *fakeAPI) ResolveHandle(context.Context, string) (string, string, string, error) {
	if f.resolveErr != nil {
		return "", "", "", f.resolveErr
	}
	return "channel-1", "uploads-1", "Fake Channel", nil
}

func (f *fakeAPI) PlaylistPage(_ context.Context, _, pageToken string, pageSize int) ([]string, string, error) {
	f.pageCalls++
	start := 0
	if pageToken != "" {
		fmt.Sscanf(pageToken, "page-%d", &start)
	}
	end := start + pageSize
	if end >= len(f.videoIDs) {
		return f.videoIDs[start:], "", nil
	}
	return f.videoIDs[start:end], fmt.Sprintf("page-%d", end), nil
}

func (f *fakeAPI) VideoBatch(_ context.Context, ids []string) ([]catalog.Video, error) {
	f.batchCalls++
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	videos := make([]catalog.Video, 0, len(ids))
	for i, id := range ids {
		ts := base.AddDate(0, 0, i)
		videos = append(videos, catalog.Video{ID: id, Title: "Video " + id, PublishedAt: &ts})
	}
	return videos, nil
}

func (f *fakeAPI) Transcript(_ context.Context, videoID string) (string, error) {
	if err, ok := f.transcriptErr[videoID]; ok {
		return "", err
	}
	return "transcript of " + videoID, nil
}

func TestFetchRespectsLimitWithSinglePage(t *testing.T) {
	api := newFakeAPI(50)
	p := NewPipeline(api)

	ch, report, err := p.Fetch(context.Background(), "@test", 10, nil)
	require.NoError(t, err)
	assert.Len(t, ch.Videos, 10)
	assert.Equal(t, 10, ch.VideoCount)
	assert.Equal(t, 10, report.Fetched)

	// 10 of 50 needs exactly one page and one metadata batch
	assert.Equal(t, 1, api.pageCalls)
	assert.Equal(t, 1, api.batchCalls)

	seen := map[string]bool{}
	for _, v := range ch.Videos {
		assert.False(t, seen[v.ID], "duplicate id %s", v.ID)
		seen[v.ID] = true
	}
}

func TestFetchPagesUntilLimit(t *testing.T) {
	api := newFakeAPI(120)
	p := NewPipeline(api)

	ch, _, err := p.Fetch(context.Background(), "@test", 0, nil)
	require.NoError(t, err)
	assert.Len(t, ch.Videos, 100) // default cap
	assert.Equal(t, 2, api.pageCalls)
	assert.Equal(t, 2, api.batchCalls)
}

func TestFetchStopsOnExhaustedPlaylist(t *testing.T) {
	api := newFakeAPI(7)
	p := NewPipeline(api)

	ch, _, err := p.Fetch(context.Background(), "@test", 50, nil)
	require.NoError(t, err)
	assert.Len(t, ch.Videos, 7)
	assert.Equal(t, 1, api.pageCalls)
}

func TestFetchTranscriptFailureIsBestEffort(t *testing.T) {
	api := newFakeAPI(5)
	api.transcriptErr["vid-002"] = errors.New("no captions")
	p := NewPipeline(api)

	ch, report, err := p.Fetch(context.Background(), "@test", 5, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.TranscriptFailures)

	withTranscript := 0
	for _, v := range ch.Videos {
		if v.Transcript != nil {
			withTranscript++
		} else {
			assert.Equal(t, "vid-002", v.ID)
		}
	}
	assert.Equal(t, 4, withTranscript)
}

func TestFetchResolveFailureIsFatal(t *testing.T) {
	api := newFakeAPI(5)
	api.resolveErr = errors.New("quota exceeded")
	p := NewPipeline(api)

	_, _, err := p.Fetch(context.Background(), "@test", 5, nil)
	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, "resolve handle", fatal.Stage)
	assert.ErrorIs(t, err, api.resolveErr)
}

func TestFetchMetadataFailureIsFatal(t *testing.T) {
	api := newFakeAPI(5)
	api.batchErr = errors.New("backend unavailable")
	p := NewPipeline(api)

	_, _, err := p.Fetch(context.Background(), "@test", 5, nil)
	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, "fetch metadata", fatal.Stage)
}

func TestFetchProgressIsMonotone(t *testing.T) {
	api := newFakeAPI(30)
	p := NewPipeline(api)

	var percents []int
	_, _, err := p.Fetch(context.Background(), "@test", 30, func(pct int, _ string) {
		percents = append(percents, pct)
	})
	require.NoError(t, err)
	require.NotEmpty(t, percents)
	assert.Equal(t, 0, percents[0])
	assert.Equal(t, 100, percents[len(percents)-1])
	for i := 1; i < len(percents); i++ {
		assert.GreaterOrEqual(t, percents[i], percents[i-1])
	}
}

func TestFetchSortsNewestFirst(t *testing.T) {
	api := newFakeAPI(5)
	p := NewPipeline(api)

	ch, _, err := p.Fetch(context.Background(), "@test", 5, nil)
	require.NoError(t, err)
	for i := 1; i < len(ch.Videos); i++ {
		prev, cur := ch.Videos[i-1].PublishedAt, ch.Videos[i].PublishedAt
		require.NotNil(t, prev)
		require.NotNil(t, cur)
		assert.False(t, cur.After(*prev))
	}
}
