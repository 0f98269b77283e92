package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Table is an ordered set of column headers plus an ordered sequence of row
// mappings (header -> cell value). Headers are unique and order-significant.
type Table struct {
	Headers []string
	Rows    []map[string]string
}

// ParseCSV reads comma separated values into a Table. The first record is the
// header row. Rows shorter than the header are padded with empty cells.
func ParseCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("parse csv: empty input")
	}

	headers := make([]string, 0, len(records[0]))
	seen := map[string]bool{}
	for _, h := range records[0] {
		h = strings.TrimSpace(h)
		if h == "" || seen[h] {
			return nil, fmt.Errorf("parse csv: blank or duplicate header %q", h)
		}
		seen[h] = true
		headers = append(headers, h)
	}

	rows := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(rec) {
				row[h] = strings.TrimSpace(rec[i])
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}

	return &Table{Headers: headers, Rows: rows}, nil
}

// HasColumn reports whether the table declares the given header.
func (t *Table) HasColumn(name string) bool {
	for _, h := range t.Headers {
		if h == name {
			return true
		}
	}
	return false
}

// NumericColumn coerces the named column to float64 values, skipping cells
// that do not parse. The returned slice preserves row order of the cells
// that did parse.
func (t *Table) NumericColumn(name string) []float64 {
	var vals []float64
	for _, row := range t.Rows {
		if v, ok := parseNumber(row[name]); ok {
			vals = append(vals, v)
		}
	}
	return vals
}

// IsNumericColumn reports whether at least half of the non-empty cells of the
// column parse as numbers.
func (t *Table) IsNumericColumn(name string) bool {
	nonEmpty, numeric := 0, 0
	for _, row := range t.Rows {
		cell := row[name]
		if cell == "" {
			continue
		}
		nonEmpty++
		if _, ok := parseNumber(cell); ok {
			numeric++
		}
	}
	return nonEmpty > 0 && numeric*2 >= nonEmpty
}

// DateColumn returns the first column whose non-empty cells mostly parse as
// dates, or "" when none qualifies.
func (t *Table) DateColumn() string {
	for _, h := range t.Headers {
		nonEmpty, dated := 0, 0
		for _, row := range t.Rows {
			cell := row[h]
			if cell == "" {
				continue
			}
			nonEmpty++
			if _, ok := ParseDay(cell); ok {
				dated++
			}
		}
		if nonEmpty > 0 && dated*2 >= nonEmpty {
			return h
		}
	}
	return ""
}

// ParseDay parses common timestamp shapes and truncates to a YYYY-MM-DD
// string suitable for lexicographic ordering.
func ParseDay(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02",
		"2006/01/02",
		"01/02/2006",
	}
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.Format("2006-01-02"), true
		}
	}
	return "", false
}

func parseNumber(s string) (float64, bool) {
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
