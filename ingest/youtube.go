package ingest

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lisa-chat/lisa/catalog"
)

const (
	// DataAPIBase is the base URL of the YouTube Data API.
	DataAPIBase = "https://www.googleapis.com/youtube/v3"
	// TimedTextBase serves caption tracks used for transcript enrichment.
	TimedTextBase = "https://video.google.com/timedtext"
)

// YouTubeClient implements CatalogAPI against the YouTube Data API v3 plus
// the timedtext endpoint for transcripts.
type YouTubeClient struct {
	apiKey     string
	baseURL    string
	timedText  string
	httpClient *http.Client
}

// YouTubeOptions configure a YouTubeClient.
type YouTubeOptions struct {
	BaseURL      string
	TimedTextURL string
	HTTPClient   *http.Client
}

// NewYouTubeClient creates a client. The API key is required.
func NewYouTubeClient(apiKey string, optFns ...func(o *YouTubeOptions)) (*YouTubeClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("youtube api key is required")
	}
	opts := YouTubeOptions{
		BaseURL:      DataAPIBase,
		TimedTextURL: TimedTextBase,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &YouTubeClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		timedText:  opts.TimedTextURL,
		httpClient: opts.HTTPClient,
	}, nil
}

type channelListResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title string `json:"title"`
		} `json:"snippet"`
		ContentDetails struct {
			RelatedPlaylists struct {
				Uploads string `json:"uploads"`
			} `json:"relatedPlaylists"`
		} `json:"contentDetails"`
	} `json:"items"`
}

// ResolveHandle implements CatalogAPI.
func (c *YouTubeClient) ResolveHandle(ctx context.Context, handle string) (string, string, string, error) {
	q := url.Values{
		"part":      {"snippet,contentDetails"},
		"forHandle": {handle},
	}
	var resp channelListResponse
	if err := c.get(ctx, "/channels", q, &resp); err != nil {
		return "", "", "", err
	}
	if len(resp.Items) == 0 {
		return "", "", "", fmt.Errorf("channel not found for handle %q", handle)
	}
	item := resp.Items[0]
	uploads := item.ContentDetails.RelatedPlaylists.Uploads
	if uploads == "" {
		return "", "", "", fmt.Errorf("channel %q has no uploads playlist", handle)
	}
	return item.ID, uploads, item.Snippet.Title, nil
}

type playlistItemsResponse struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		ContentDetails struct {
			VideoID string `json:"videoId"`
		} `json:"contentDetails"`
	} `json:"items"`
}

// PlaylistPage implements CatalogAPI.
func (c *YouTubeClient) PlaylistPage(ctx context.Context, playlistID, pageToken string, pageSize int) ([]string, string, error) {
	q := url.Values{
		"part":       {"contentDetails"},
		"playlistId": {playlistID},
		"maxResults": {strconv.Itoa(pageSize)},
	}
	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}
	var resp playlistItemsResponse
	if err := c.get(ctx, "/playlistItems", q, &resp); err != nil {
		return nil, "", err
	}
	ids := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		ids = append(ids, item.ContentDetails.VideoID)
	}
	return ids, resp.NextPageToken, nil
}

type videoListResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title        string            `json:"title"`
			Description  string            `json:"description"`
			PublishedAt  string            `json:"publishedAt"`
			ChannelTitle string            `json:"channelTitle"`
			Thumbnails   map[string]struct {
				URL string `json:"url"`
			} `json:"thumbnails"`
		} `json:"snippet"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
		Statistics struct {
			ViewCount    string `json:"viewCount"`
			LikeCount    string `json:"likeCount"`
			CommentCount string `json:"commentCount"`
		} `json:"statistics"`
	} `json:"items"`
}

// thumbnail sizes in preference order.
var thumbnailPreference = []string{"maxres", "standard", "high", "medium", "default"}

// VideoBatch implements CatalogAPI.
func (c *YouTubeClient) VideoBatch(ctx context.Context, ids []string) ([]catalog.Video, error) {
	q := url.Values{
		"part": {"snippet,contentDetails,statistics"},
		"id":   {strings.Join(ids, ",")},
	}
	var resp videoListResponse
	if err := c.get(ctx, "/videos", q, &resp); err != nil {
		return nil, err
	}

	videos := make([]catalog.Video, 0, len(resp.Items))
	for _, item := range resp.Items {
		v := catalog.Video{
			ID:           item.ID,
			Title:        item.Snippet.Title,
			Description:  item.Snippet.Description,
			ChannelTitle: item.Snippet.ChannelTitle,
			Duration:     item.ContentDetails.Duration,
			URL:          "https://www.youtube.com/watch?v=" + item.ID,
			ViewCount:    parseCount(item.Statistics.ViewCount),
			LikeCount:    parseCount(item.Statistics.LikeCount),
			CommentCount: parseCount(item.Statistics.CommentCount),
		}
		if secs, ok := catalog.ParseDuration(item.ContentDetails.Duration); ok {
			v.DurationSeconds = secs
		}
		if ts, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt); err == nil {
			v.PublishedAt = &ts
		}
		for _, size := range thumbnailPreference {
			if thumb, ok := item.Snippet.Thumbnails[size]; ok && thumb.URL != "" {
				v.ThumbnailURL = thumb.URL
				break
			}
		}
		videos = append(videos, v)
	}
	return videos, nil
}

type timedTextResponse struct {
	Texts []struct {
		Value string `xml:",chardata"`
	} `xml:"text"`
}

// Transcript implements CatalogAPI via the timedtext caption endpoint. Many
// videos have no caption track; callers treat failures as best-effort.
func (c *YouTubeClient) Transcript(ctx context.Context, videoID string) (string, error) {
	q := url.Values{"lang": {"en"}, "v": {videoID}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.timedText+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch transcript: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch transcript: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read transcript: %w", err)
	}

	var tt timedTextResponse
	if err := xml.Unmarshal(body, &tt); err != nil {
		return "", fmt.Errorf("parse transcript: %w", err)
	}
	parts := make([]string, 0, len(tt.Texts))
	for _, t := range tt.Texts {
		if s := strings.TrimSpace(html.UnescapeString(t.Value)); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " "), nil
}

// get performs one Data API request and decodes the JSON body into out.
func (c *YouTubeClient) get(ctx context.Context, path string, q url.Values, out any) error {
	q.Set("key", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("request %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// parseCount tolerates the API's string-typed counters; absent or malformed
// values come back as zero.
func parseCount(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

var _ CatalogAPI = (*YouTubeClient)(nil)
