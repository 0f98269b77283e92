package catalog

import (
	"sort"
	"time"
)

// Video is one catalog record. Transcript is nil when the per-record
// enrichment fetch failed; the record remains valid.
type Video struct {
	ID              string     `json:"videoId"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Duration        string     `json:"duration,omitempty"`
	DurationSeconds int        `json:"durationSeconds"`
	PublishedAt     *time.Time `json:"publishedAt,omitempty"`
	ViewCount       int64      `json:"viewCount"`
	LikeCount       int64      `json:"likeCount"`
	CommentCount    int64      `json:"commentCount"`
	URL             string     `json:"url"`
	ThumbnailURL    string     `json:"thumbnailUrl,omitempty"`
	ChannelTitle    string     `json:"channelTitle,omitempty"`
	Transcript      *string    `json:"transcript"`
}

// PublishedDay returns the publish date truncated to a YYYY-MM-DD string, or
// "" when the record has no publish timestamp.
func (v Video) PublishedDay() string {
	if v.PublishedAt == nil {
		return ""
	}
	return v.PublishedAt.UTC().Format("2006-01-02")
}

// Channel is the ingestion output: the ordered record collection plus its
// origin and fetch metadata.
type Channel struct {
	Handle     string    `json:"channelHandle"`
	ID         string    `json:"channelId"`
	FetchedAt  time.Time `json:"fetchedAt"`
	VideoCount int       `json:"videoCount"`
	Videos     []Video   `json:"videos"`
}

// Card is the compact selection payload handed to renderers when a video is
// picked by a tool call.
type Card struct {
	ID           string `json:"videoId"`
	Title        string `json:"title"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
}

// CardFor builds a Card for the given video.
func CardFor(v Video) Card {
	return Card{ID: v.ID, Title: v.Title, URL: v.URL, ThumbnailURL: v.ThumbnailURL}
}

// ByPublishedDesc returns the videos sorted newest first. Records without a
// publish timestamp sort last. The input slice is not modified.
func ByPublishedDesc(videos []Video) []Video {
	sorted := append([]Video(nil), videos...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].PublishedAt, sorted[j].PublishedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
	return sorted
}
