// Package core defines the shared domain types of the assistant: messages and
// their attachments, the closed union of structured response parts, chart and
// tool-call payloads, and grounding metadata. All other packages depend on
// core; core depends on nothing but the standard library and uuid.
package core
