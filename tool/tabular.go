package tool

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/lisa-chat/lisa/core"
	"github.com/lisa-chat/lisa/dataset"
	"github.com/lisa-chat/lisa/internal/util"
	"github.com/lisa-chat/lisa/logging"
)

type tabularStatsArgs struct {
	Column string `json:"column" description:"Name of the numeric column to summarize."`
}

type tabularPlotArgs struct {
	Metric string `json:"metric" description:"Numeric column to plot against the dataset's date column."`
}

type topRowsArgs struct {
	SortBy string   `json:"sortBy" description:"Numeric column to rank rows by, descending."`
	Limit  *float64 `json:"limit,omitempty" description:"Maximum number of rows to return (default 5)."`
}

// TabularSet builds the fixed tool set over an uploaded tabular dataset. Column
// references resolve case and separator insensitively against the table's
// headers; the table itself is never mutated by execution.
func TabularSet(t *dataset.Table, logger logging.Logger) *Set {
	fields := tableFieldTable(t)

	return newSet(logger,
		Tool{
			Name:        "compute_stats",
			Description: "Compute count, mean, median, std, min, and max for a numeric column of the uploaded dataset.",
			Parameters:  util.CreateSchema(tabularStatsArgs{}),
			run: func(args map[string]any) Result {
				return tabularStats(t, fields, stringArg(args, "column"))
			},
		},
		Tool{
			Name:        "plot_metric_vs_time",
			Description: "Plot a numeric column of the uploaded dataset against its date column. Use when asked to chart or visualize a metric over time.",
			Parameters:  util.CreateSchema(tabularPlotArgs{}),
			run: func(args map[string]any) Result {
				return tabularSeries(t, fields, stringArg(args, "metric"))
			},
		},
		Tool{
			Name:        "engagement_chart",
			Description: "Plot the derived engagement column (sum of likes, comments, shares, views) of the uploaded dataset over time.",
			Parameters:  util.CreateSchema(struct{}{}),
			run: func(map[string]any) Result {
				return engagementChart(t)
			},
		},
		Tool{
			Name:        "top_rows",
			Description: "Return the top rows of the uploaded dataset ranked by a numeric column, descending.",
			Parameters:  util.CreateSchema(topRowsArgs{}),
			run: func(args map[string]any) Result {
				limit := 5
				if v, ok := numberArg(args, "limit"); ok && v > 0 {
					limit = int(math.Floor(v))
				}
				return topRows(t, fields, stringArg(args, "sortBy"), limit)
			},
		},
	)
}

// tableFieldTable indexes the table's headers for loose resolution. Headers
// are arbitrary user data, so no synonyms apply.
func tableFieldTable(t *dataset.Table) *FieldTable {
	ft, err := NewFieldTable(t.Headers, nil)
	if err != nil {
		// unreachable with a nil synonym map
		panic(err)
	}
	return ft
}

func tabularStats(t *dataset.Table, fields *FieldTable, name string) Result {
	col, ok := fields.Resolve(name)
	if !ok {
		return ErrorResult{Err: NewError("compute_stats",
			fmt.Sprintf("no column named %q", name), CodeNoMatch)}
	}
	values := t.NumericColumn(col)
	if len(values) == 0 {
		return ErrorResult{Err: NewError("compute_stats",
			fmt.Sprintf("column %q has no numeric values", col), CodeNoNumericData)}
	}
	return computeStats(col, values)
}

func tabularSeries(t *dataset.Table, fields *FieldTable, name string) Result {
	metric, ok := fields.Resolve(name)
	if !ok {
		return ErrorResult{Err: NewError("plot_metric_vs_time",
			fmt.Sprintf("no column named %q", name), CodeNoMatch)}
	}
	points, err := seriesPoints(t, metric)
	if err != nil {
		return ErrorResult{Err: err}
	}
	return Series{Chart: core.ChartPayload{Kind: core.ChartMetricVsTime, Metric: metric, Points: points}}
}

func engagementChart(t *dataset.Table) Result {
	t.EnrichEngagement()
	if !t.HasColumn("engagement") {
		return ErrorResult{Err: NewError("engagement_chart",
			"dataset has no interaction columns to derive engagement from", CodeNoNumericData)}
	}
	points, err := seriesPoints(t, "engagement")
	if err != nil {
		err.Tool = "engagement_chart"
		return ErrorResult{Err: err}
	}
	return Series{Chart: core.ChartPayload{Kind: core.ChartEngagement, Metric: "engagement", Points: points}}
}

// seriesPoints pairs the metric column with the table's date column, dropping
// rows whose date or value does not parse, sorted by day ascending.
func seriesPoints(t *dataset.Table, metric string) ([]core.ChartPoint, *Error) {
	dateCol := t.DateColumn()
	if dateCol == "" {
		return nil, NewError("plot_metric_vs_time", "dataset has no date column", CodeNoMatch)
	}
	labelCol := labelColumn(t)

	var points []core.ChartPoint
	for _, row := range t.Rows {
		day, ok := dataset.ParseDay(row[dateCol])
		if !ok {
			continue
		}
		v, ok := numberCell(row[metric])
		if !ok {
			continue
		}
		p := core.ChartPoint{Date: day, Value: v}
		if labelCol != "" {
			p.Label = truncateLabel(row[labelCol], 30)
		}
		points = append(points, p)
	}
	if len(points) == 0 {
		return nil, NewError("plot_metric_vs_time",
			fmt.Sprintf("no plottable values for %q", metric), CodeNoNumericData)
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points, nil
}

func labelColumn(t *dataset.Table) string {
	for _, h := range t.Headers {
		switch strings.ToLower(h) {
		case "title", "text", "name", "content":
			return h
		}
	}
	return ""
}

func topRows(t *dataset.Table, fields *FieldTable, sortBy string, limit int) Result {
	col, ok := fields.Resolve(sortBy)
	if !ok {
		return ErrorResult{Err: NewError("top_rows",
			fmt.Sprintf("no column named %q", sortBy), CodeNoMatch)}
	}
	type ranked struct {
		row map[string]string
		val float64
	}
	var candidates []ranked
	for _, row := range t.Rows {
		if v, ok := numberCell(row[col]); ok {
			candidates = append(candidates, ranked{row: row, val: v})
		}
	}
	if len(candidates) == 0 {
		return ErrorResult{Err: NewError("top_rows",
			fmt.Sprintf("column %q has no numeric values", col), CodeNoNumericData)}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].val > candidates[j].val })
	if limit > len(candidates) {
		limit = len(candidates)
	}
	rows := make([]map[string]string, 0, limit)
	for _, c := range candidates[:limit] {
		rows = append(rows, c.row)
	}
	return Selection{Rows: rows}
}

func numberCell(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
