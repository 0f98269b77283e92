// Package dataset holds the in-memory tabular dataset attached to a turn:
// ordered column headers, ordered row mappings, a derived per-column summary,
// and a slim projection of key columns for direct prompt inclusion. The
// dataset lives only in the active session's turn context and is never
// persisted in full.
package dataset
