// Package catalog defines the video catalog dataset: an ordered collection of
// enriched video records produced by the ingestion pipeline and consumed
// read-only by the tool execution engine.
package catalog
