package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	cases := map[string]int{
		"PT15M33S": 933,
		"PT1H2M3S": 3723,
		"PT45S":    45,
		"PT2H":     7200,
		"pt1m":     60,
		"PT0S":     0,
	}
	for input, want := range cases {
		got, ok := ParseDuration(input)
		require.True(t, ok, input)
		assert.Equal(t, want, got, input)
	}
}

func TestParseDurationRejectsMalformed(t *testing.T) {
	for _, input := range []string{"", "15:33", "P1DT1H", "PT", "minutes"} {
		_, ok := ParseDuration(input)
		assert.False(t, ok, input)
	}
}

func TestByPublishedDesc(t *testing.T) {
	day := func(d int) *time.Time {
		ts := time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
		return &ts
	}
	videos := []Video{
		{ID: "a", PublishedAt: day(1)},
		{ID: "b"}, // no timestamp sorts last
		{ID: "c", PublishedAt: day(9)},
		{ID: "d", PublishedAt: day(5)},
	}
	sorted := ByPublishedDesc(videos)
	ids := []string{sorted[0].ID, sorted[1].ID, sorted[2].ID, sorted[3].ID}
	assert.Equal(t, []string{"c", "d", "a", "b"}, ids)
	// input untouched
	assert.Equal(t, "a", videos[0].ID)
}

func TestPublishedDay(t *testing.T) {
	ts := time.Date(2024, 6, 30, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "2024-06-30", Video{PublishedAt: &ts}.PublishedDay())
	assert.Equal(t, "", Video{}.PublishedDay())
}

func TestCardFor(t *testing.T) {
	v := Video{ID: "x", Title: "T", URL: "u", ThumbnailURL: "thumb"}
	card := CardFor(v)
	assert.Equal(t, Card{ID: "x", Title: "T", URL: "u", ThumbnailURL: "thumb"}, card)
}
