package dataset

import (
	"fmt"
	"sort"
	"strings"
)

// interaction columns that contribute to the derived engagement column,
// keyed by normalized header name.
var engagementColumns = map[string]bool{
	"likes": true, "likecount": true, "favorites": true,
	"comments": true, "commentcount": true, "replies": true,
	"shares": true, "retweets": true, "quotes": true,
	"views": true, "viewcount": true,
}

// key columns preferred by the slim projection, by normalized header name.
var slimColumns = map[string]bool{
	"text": true, "title": true, "content": true, "name": true,
	"date": true, "createdat": true, "publishedat": true, "timestamp": true,
	"type": true, "category": true, "engagement": true,
}

func normalizeHeader(h string) string {
	h = strings.ToLower(h)
	h = strings.ReplaceAll(h, "_", "")
	h = strings.ReplaceAll(h, " ", "")
	return h
}

// EnrichEngagement appends a derived "engagement" column summing the row's
// interaction metrics (likes, comments, shares, views and their synonyms).
// The table is returned unchanged when no interaction column exists or the
// column is already present.
func (t *Table) EnrichEngagement() *Table {
	if t.HasColumn("engagement") {
		return t
	}
	var metrics []string
	for _, h := range t.Headers {
		if engagementColumns[normalizeHeader(h)] && t.IsNumericColumn(h) {
			metrics = append(metrics, h)
		}
	}
	if len(metrics) == 0 {
		return t
	}
	t.Headers = append(t.Headers, "engagement")
	for _, row := range t.Rows {
		var total float64
		for _, m := range metrics {
			if v, ok := parseNumber(row[m]); ok {
				total += v
			}
		}
		row["engagement"] = formatNumber(total)
	}
	return t
}

func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}

// Summary derives a compact per-column description (count, type, basic
// statistics) meant for prompt injection, not display.
func (t *Table) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dataset summary: %d rows, %d columns.\n", len(t.Rows), len(t.Headers))
	for _, h := range t.Headers {
		if t.IsNumericColumn(h) {
			vals := t.NumericColumn(h)
			sorted := append([]float64(nil), vals...)
			sort.Float64s(sorted)
			var sum float64
			for _, v := range sorted {
				sum += v
			}
			mean := sum / float64(len(sorted))
			fmt.Fprintf(&b, "- %s (numeric): count=%d min=%g max=%g mean=%.2f\n",
				h, len(sorted), sorted[0], sorted[len(sorted)-1], mean)
			continue
		}
		distinct := map[string]bool{}
		nonEmpty := 0
		for _, row := range t.Rows {
			if cell := row[h]; cell != "" {
				nonEmpty++
				distinct[cell] = true
			}
		}
		fmt.Fprintf(&b, "- %s (text): count=%d distinct=%d\n", h, nonEmpty, len(distinct))
	}
	return strings.TrimRight(b.String(), "\n")
}

// SlimProjection renders a reduced CSV restricted to key columns: named key
// columns plus every numeric column. Header order follows the table.
func (t *Table) SlimProjection() string {
	var cols []string
	for _, h := range t.Headers {
		if slimColumns[normalizeHeader(h)] || t.IsNumericColumn(h) {
			cols = append(cols, h)
		}
	}
	if len(cols) == 0 {
		cols = t.Headers
	}
	var b strings.Builder
	b.WriteString(strings.Join(cols, ","))
	for _, row := range t.Rows {
		b.WriteByte('\n')
		cells := make([]string, len(cols))
		for i, c := range cols {
			cells[i] = csvEscape(row[c])
		}
		b.WriteString(strings.Join(cells, ","))
	}
	return b.String()
}

func csvEscape(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}
