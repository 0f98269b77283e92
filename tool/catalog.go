package tool

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/lisa-chat/lisa/catalog"
	"github.com/lisa-chat/lisa/core"
	"github.com/lisa-chat/lisa/internal/util"
	"github.com/lisa-chat/lisa/logging"
)

// Canonical numeric fields of a catalog record.
const (
	FieldViewCount       = "viewCount"
	FieldLikeCount       = "likeCount"
	FieldCommentCount    = "commentCount"
	FieldDurationSeconds = "durationSeconds"
)

func catalogFieldTable() *FieldTable {
	t, err := NewFieldTable(
		[]string{FieldViewCount, FieldLikeCount, FieldCommentCount, FieldDurationSeconds},
		map[string]string{
			"views":    FieldViewCount,
			"likes":    FieldLikeCount,
			"comments": FieldCommentCount,
			"duration": FieldDurationSeconds,
			"length":   FieldDurationSeconds,
		},
	)
	if err != nil {
		panic(err) // fixed table, validated at startup
	}
	return t
}

// catalogValue extracts the numeric value of a canonical field from a record.
// Duration in seconds falls back to parsing the ISO duration string when the
// direct field is absent.
func catalogValue(v catalog.Video, field string) float64 {
	switch field {
	case FieldViewCount:
		return float64(v.ViewCount)
	case FieldLikeCount:
		return float64(v.LikeCount)
	case FieldCommentCount:
		return float64(v.CommentCount)
	case FieldDurationSeconds:
		if v.DurationSeconds > 0 {
			return float64(v.DurationSeconds)
		}
		if secs, ok := catalog.ParseDuration(v.Duration); ok {
			return float64(secs)
		}
		return 0
	default:
		return 0
	}
}

type catalogStatsArgs struct {
	Field string `json:"field" description:"Numeric field name: viewCount, likeCount, commentCount, or durationSeconds."`
}

type catalogPlotArgs struct {
	Metric string `json:"metric" description:"Numeric field to plot over publish time: viewCount, likeCount, commentCount, or durationSeconds."`
}

type playVideoArgs struct {
	VideoTitle *string  `json:"videoTitle,omitempty" description:"Exact or partial video title to match."`
	Ordinal    *float64 `json:"ordinal,omitempty" description:"Ordinal position (1=first, 2=second, ...) when sorted by publish date, newest first."`
	SortBy     *string  `json:"sortBy,omitempty" description:"Sort criterion: most_viewed, most_liked, or most_commented picks the top video."`
}

type generateImageArgs struct {
	Prompt      string  `json:"prompt" description:"Detailed text description of the image to generate."`
	AnchorTitle *string `json:"anchorTitle,omitempty" description:"Optional title of a video to use as style reference."`
}

// CatalogSet builds the fixed tool set over a video catalog. The set holds
// the catalog read-only; records are never mutated.
func CatalogSet(ch *catalog.Channel, logger logging.Logger) *Set {
	fields := catalogFieldTable()
	var videos []catalog.Video
	if ch != nil {
		videos = ch.Videos
	}

	return newSet(logger,
		Tool{
			Name:        "compute_stats_json",
			Description: "Compute mean, median, std, min, and max for a numeric field of the channel videos. Use for statistics, averages, or summaries of viewCount, likeCount, commentCount, or durationSeconds.",
			Parameters:  util.CreateSchema(catalogStatsArgs{}),
			run: func(args map[string]any) Result {
				return catalogStats(videos, fields, stringArg(args, "field"))
			},
		},
		Tool{
			Name:        "plot_metric_vs_time",
			Description: "Plot a numeric metric (views, likes, comments, duration) against publish time for the channel videos. Use when asked to plot, graph, or visualize a metric over time.",
			Parameters:  util.CreateSchema(catalogPlotArgs{}),
			run: func(args map[string]any) Result {
				return catalogSeries(videos, fields, stringArg(args, "metric"))
			},
		},
		Tool{
			Name:        "play_video",
			Description: "Select and display one video from the loaded channel. The user can specify a title fragment, an ordinal (first, second, ...), or most_viewed / most_liked / most_commented.",
			Parameters:  util.CreateSchema(playVideoArgs{}),
			run: func(args map[string]any) Result {
				return playVideo(videos, args)
			},
		},
		Tool{
			Name:        "generateImage",
			Description: "Generate an image from a text prompt, optionally anchored to a video title for style. Use for thumbnails, banners, or visual concepts.",
			Parameters:  util.CreateSchema(generateImageArgs{}),
			run: func(args map[string]any) Result {
				return generateImage(videos, stringArg(args, "prompt"), stringArg(args, "anchorTitle"))
			},
		},
	)
}

func catalogStats(videos []catalog.Video, fields *FieldTable, name string) Result {
	field, ok := fields.Resolve(name)
	if !ok {
		return ErrorResult{Err: NewError("compute_stats_json",
			fmt.Sprintf("unknown numeric field %q", name), CodeNoMatch)}
	}
	values := make([]float64, 0, len(videos))
	for _, v := range videos {
		values = append(values, catalogValue(v, field))
	}
	if len(values) == 0 {
		return ErrorResult{Err: NewError("compute_stats_json",
			fmt.Sprintf("no numeric values for field %q", field), CodeNoNumericData)}
	}
	return computeStats(field, values)
}

func catalogSeries(videos []catalog.Video, fields *FieldTable, name string) Result {
	metric, ok := fields.Resolve(name)
	if !ok {
		return ErrorResult{Err: NewError("plot_metric_vs_time",
			fmt.Sprintf("unknown numeric field %q", name), CodeNoMatch)}
	}
	points := make([]core.ChartPoint, 0, len(videos))
	for _, v := range videos {
		day := v.PublishedDay()
		if day == "" {
			continue
		}
		points = append(points, core.ChartPoint{
			Date:  day,
			Value: catalogValue(v, metric),
			Label: truncateLabel(v.Title, 30),
		})
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return Series{Chart: core.ChartPayload{Kind: core.ChartMetricVsTime, Metric: metric, Points: points}}
}

var sortByFields = map[string]string{
	"most_viewed":    FieldViewCount,
	"most_liked":     FieldLikeCount,
	"most_commented": FieldCommentCount,
}

// playVideo applies the selection precedence: sortBy, then ordinal into the
// newest-first ordering, then fuzzy title containment in both directions.
func playVideo(videos []catalog.Video, args map[string]any) Result {
	var selected *catalog.Video

	if sortBy := stringArg(args, "sortBy"); sortBy != "" && len(videos) > 0 {
		field, ok := sortByFields[strings.ToLower(sortBy)]
		if !ok {
			field = FieldViewCount
		}
		best := 0
		for i := range videos {
			if catalogValue(videos[i], field) > catalogValue(videos[best], field) {
				best = i
			}
		}
		selected = &videos[best]
	} else if ord, ok := numberArg(args, "ordinal"); ok {
		idx := int(math.Floor(ord)) - 1
		if idx < 0 {
			idx = 0
		}
		byDate := catalog.ByPublishedDesc(videos)
		if idx < len(byDate) {
			selected = &byDate[idx]
		}
	} else if q := strings.ToLower(stringArg(args, "videoTitle")); q != "" {
		for i := range videos {
			if strings.Contains(strings.ToLower(videos[i].Title), q) {
				selected = &videos[i]
				break
			}
		}
		if selected == nil {
			for i := range videos {
				prefix := truncateLabel(strings.ToLower(videos[i].Title), 20)
				if prefix != "" && strings.Contains(q, prefix) {
					selected = &videos[i]
					break
				}
			}
		}
	}

	if selected == nil {
		return ErrorResult{Err: NewError("play_video", "no matching video found", CodeNoMatch)}
	}
	card := catalog.CardFor(*selected)
	return Selection{Card: &card}
}
