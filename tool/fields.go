package tool

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// FieldTable resolves loosely-specified field names (case and separator
// insensitive, with domain synonyms) to canonical field identifiers. It is
// validated at construction against the dataset's declared fields so a bad
// synonym table fails fast instead of at query time.
type FieldTable struct {
	byNormalized map[string]string
}

// NewFieldTable builds a table over the canonical fields. Synonym targets
// must name a canonical field.
func NewFieldTable(fields []string, synonyms map[string]string) (*FieldTable, error) {
	t := &FieldTable{byNormalized: make(map[string]string, len(fields)+len(synonyms))}
	known := map[string]bool{}
	for _, f := range fields {
		known[f] = true
		t.byNormalized[normalizeField(f)] = f
	}
	for syn, target := range synonyms {
		if !known[target] {
			return nil, fmt.Errorf("field table: synonym %q targets unknown field %q", syn, target)
		}
		t.byNormalized[normalizeField(syn)] = target
	}
	return t, nil
}

// Resolve maps a user- or model-supplied name to its canonical field.
func (t *FieldTable) Resolve(name string) (string, bool) {
	f, ok := t.byNormalized[normalizeField(name)]
	return f, ok
}

func normalizeField(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "_", "")
	name = strings.ReplaceAll(name, " ", "")
	return name
}

// computeStats derives count, mean, median, population standard deviation
// (rounded to 2 decimals) plus min and max over the values.
func computeStats(field string, values []float64) Stats {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(n)

	var variance float64
	for _, v := range sorted {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(n)

	var median float64
	if n%2 == 0 {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	} else {
		median = sorted[n/2]
	}

	return Stats{
		Field:  field,
		Count:  n,
		Mean:   round2(mean),
		Median: round2(median),
		Std:    round2(math.Sqrt(variance)),
		Min:    sorted[0],
		Max:    sorted[n-1],
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func truncateLabel(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
