package core

// ChartKind tags a chart payload so consumers can pick a renderer without
// inspecting the producing tool.
type ChartKind string

const (
	// ChartMetricVsTime is an ordered date/value series.
	ChartMetricVsTime ChartKind = "metric_vs_time"
	// ChartEngagement is a per-row engagement bar series.
	ChartEngagement ChartKind = "engagement"
)

// ChartPoint is one entry of a chart series. Date is a YYYY-MM-DD string so
// lexicographic order equals chronological order.
type ChartPoint struct {
	Date  string  `json:"date,omitempty"`
	Value float64 `json:"value"`
	Label string  `json:"label,omitempty"`
}

// ChartPayload is a renderable chart produced by a tool call. It is small and
// structured, and may be persisted alongside message text.
type ChartPayload struct {
	Kind   ChartKind    `json:"kind"`
	Metric string       `json:"metric"`
	Points []ChartPoint `json:"points"`
}

// Grounding is search-attribution metadata associated with a generated
// answer. It arrives at most once per turn, out-of-band from content.
type Grounding struct {
	Sources []GroundingSource `json:"sources,omitempty"`
	Queries []string          `json:"queries,omitempty"`
}

// GroundingSource is one attributed web source.
type GroundingSource struct {
	URI   string `json:"uri"`
	Title string `json:"title,omitempty"`
}
