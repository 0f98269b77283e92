package tool

import (
	"encoding/base64"

	"github.com/lisa-chat/lisa/catalog"
	"github.com/lisa-chat/lisa/core"
)

// Result is the discriminated union of tool outputs: one variant per output
// kind so downstream code can distinguish renderable charts from plain values
// without inspecting the tool name.
type Result interface {
	isResult()
	// ModelPayload renders the result as the small structured value sent back
	// to the completion collaborator and retained in the tool-call log.
	ModelPayload() map[string]any
}

// Stats is the scalar/statistics variant.
type Stats struct {
	Field  string  `json:"field"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

func (Stats) isResult() {}

// ModelPayload implements Result.
func (r Stats) ModelPayload() map[string]any {
	return map[string]any{
		"field": r.Field, "count": r.Count, "mean": r.Mean, "median": r.Median,
		"std": r.Std, "min": r.Min, "max": r.Max,
	}
}

// Series is the chart variant.
type Series struct {
	Chart core.ChartPayload `json:"chart"`
}

func (Series) isResult() {}

// ModelPayload implements Result. Points are summarized by count so the
// model response stays small; the full series travels on the chart payload.
func (r Series) ModelPayload() map[string]any {
	return map[string]any{
		"chart_kind": string(r.Chart.Kind),
		"metric":     r.Chart.Metric,
		"points":     len(r.Chart.Points),
	}
}

// Selection is the selected-record variant: a video card for catalog
// datasets, row mappings for tabular ones.
type Selection struct {
	Card *catalog.Card       `json:"card,omitempty"`
	Rows []map[string]string `json:"rows,omitempty"`
}

func (Selection) isResult() {}

// ModelPayload implements Result.
func (r Selection) ModelPayload() map[string]any {
	if r.Card != nil {
		return map[string]any{
			"videoId": r.Card.ID, "title": r.Card.Title, "url": r.Card.URL,
		}
	}
	rows := make([]any, 0, len(r.Rows))
	for _, row := range r.Rows {
		m := make(map[string]any, len(row))
		for k, v := range row {
			m[k] = v
		}
		rows = append(rows, m)
	}
	return map[string]any{"rows": rows}
}

// Image is the synthesized-image variant.
type Image struct {
	Prompt   string `json:"prompt"`
	Data     []byte `json:"data"`
	MimeType string `json:"mime_type"`
}

func (Image) isResult() {}

// ModelPayload implements Result. Image bytes are elided from the model
// payload; only their presence is reported.
func (r Image) ModelPayload() map[string]any {
	return map[string]any{
		"prompt": r.Prompt, "mime_type": r.MimeType,
		"bytes": base64.StdEncoding.EncodedLen(len(r.Data)),
	}
}

// ErrorResult is the error variant.
type ErrorResult struct {
	Err *Error `json:"error"`
}

func (ErrorResult) isResult() {}

// ModelPayload implements Result.
func (r ErrorResult) ModelPayload() map[string]any {
	return map[string]any{"error": r.Err.Message, "code": r.Err.Code}
}
