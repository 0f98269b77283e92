package dataset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `title,date,likes,comments,notes
First post,2024-01-02,10,2,hello
Second post,2024-01-09,20,4,"with, comma"
Third post,2024-01-16,30,6,
`

func parseSample(t *testing.T) *Table {
	t.Helper()
	table, err := ParseCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	return table
}

func TestParseCSV(t *testing.T) {
	table := parseSample(t)
	assert.Equal(t, []string{"title", "date", "likes", "comments", "notes"}, table.Headers)
	require.Len(t, table.Rows, 3)
	assert.Equal(t, "with, comma", table.Rows[1]["notes"])
}

func TestParseCSVShortRowsArePadded(t *testing.T) {
	table, err := ParseCSV(strings.NewReader("a,b,c\n1,2\n"))
	require.NoError(t, err)
	assert.Equal(t, "", table.Rows[0]["c"])
}

func TestParseCSVRejectsDuplicateHeader(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("a,a\n1,2\n"))
	assert.Error(t, err)
}

func TestParseCSVRejectsEmptyInput(t *testing.T) {
	_, err := ParseCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestNumericColumn(t *testing.T) {
	table := parseSample(t)
	assert.Equal(t, []float64{10, 20, 30}, table.NumericColumn("likes"))
	assert.True(t, table.IsNumericColumn("likes"))
	assert.False(t, table.IsNumericColumn("title"))
}

func TestDateColumn(t *testing.T) {
	table := parseSample(t)
	assert.Equal(t, "date", table.DateColumn())
}

func TestParseDay(t *testing.T) {
	for input, want := range map[string]string{
		"2024-01-02":           "2024-01-02",
		"2024-01-02T10:30:00Z": "2024-01-02",
		"2024/01/02":           "2024-01-02",
		"01/02/2024":           "2024-01-02",
	} {
		got, ok := ParseDay(input)
		assert.True(t, ok, input)
		assert.Equal(t, want, got, input)
	}
	_, ok := ParseDay("not a date")
	assert.False(t, ok)
}

func TestEnrichEngagement(t *testing.T) {
	table := parseSample(t)
	table.EnrichEngagement()
	require.True(t, table.HasColumn("engagement"))
	assert.Equal(t, "12", table.Rows[0]["engagement"])
	assert.Equal(t, "36", table.Rows[2]["engagement"])
}

func TestEnrichEngagementIsIdempotent(t *testing.T) {
	table := parseSample(t)
	table.EnrichEngagement()
	cols := len(table.Headers)
	table.EnrichEngagement()
	assert.Len(t, table.Headers, cols)
}

func TestEnrichEngagementNoInteractionColumns(t *testing.T) {
	table, err := ParseCSV(strings.NewReader("name,notes\nx,y\n"))
	require.NoError(t, err)
	table.EnrichEngagement()
	assert.False(t, table.HasColumn("engagement"))
}

func TestSummary(t *testing.T) {
	table := parseSample(t)
	summary := table.Summary()
	assert.Contains(t, summary, "3 rows, 5 columns")
	assert.Contains(t, summary, "likes (numeric): count=3 min=10 max=30 mean=20.00")
	assert.Contains(t, summary, "title (text): count=3 distinct=3")
}

func TestSlimProjection(t *testing.T) {
	table := parseSample(t)
	slim := table.SlimProjection()
	lines := strings.Split(slim, "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "title,date,likes,comments", lines[0])
	assert.NotContains(t, lines[0], "notes")
	assert.Contains(t, lines[1], "First post")
}
