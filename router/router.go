package router

import "regexp"

// Mode is the capability path selected for a turn.
type Mode string

const (
	// ModeCatalogTools routes the turn to the catalog tool set.
	ModeCatalogTools Mode = "catalog-tools"
	// ModeTabularTools routes the turn to the tabular tool set.
	ModeTabularTools Mode = "tabular-tools"
	// ModeCodeExecution routes the turn to remote code execution.
	ModeCodeExecution Mode = "code-execution"
	// ModeStreamingSearch routes the turn to search-grounded streaming.
	ModeStreamingSearch Mode = "streaming-search"
)

// statVizPattern matches requests that genuinely need statistical or plotting
// capability the client tools cannot produce.
var statVizPattern = regexp.MustCompile(`(?i)\b(regression|scatter|histogram|seaborn|matplotlib|numpy|time.?series|heatmap|box.?plot|violin|distribut|linear.?model|logistic|forecast|trend.?line)\b`)

// codePattern matches general write/run code requests.
var codePattern = regexp.MustCompile(`(?i)\b(write|run|execute|debug)\b.{0,40}\b(code|script|python|program|function)\b|\bpython\b|\bcode\b`)

// Request captures the routing-relevant facts about a turn. ResidentTable
// means a tabular dataset parsed in a prior turn of the same session;
// FreshTable means one attached this turn.
type Request struct {
	Text          string
	FreshTable    bool
	ResidentTable bool
	Catalog       bool
	HasImages     bool
}

// Classify selects exactly one mode for the turn.
//
// Precedence: catalog presence wins outright; statistical-visualization
// keywords force code execution regardless of datasets; general code
// keywords force code execution unless a tabular dataset is resident; a
// resident (not freshly attached) tabular dataset routes to tabular tools;
// everything else streams with search grounding. A freshly attached table is
// deliberately not tool-routed: it is summarized via prompt injection first
// and becomes tool-addressable on the next turn.
func Classify(req Request) Mode {
	switch {
	case req.Catalog && !req.ResidentTable:
		return ModeCatalogTools
	case statVizPattern.MatchString(req.Text):
		return ModeCodeExecution
	case codePattern.MatchString(req.Text) && !req.ResidentTable:
		return ModeCodeExecution
	case req.ResidentTable && !req.FreshTable:
		return ModeTabularTools
	default:
		return ModeStreamingSearch
	}
}
