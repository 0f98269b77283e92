// Package tool implements the tool execution engine: fixed, versioned sets of
// deterministic operations executed synchronously against an in-memory
// dataset. Execution never performs network I/O and never mutates the
// dataset. Failures are contained: Execute always returns a Result, using the
// error variant for unresolvable references or invalid arguments.
package tool

import (
	"fmt"
	"time"

	"github.com/lisa-chat/lisa/internal/util"
	"github.com/lisa-chat/lisa/logging"
)

// Error represents a contained tool failure with a stable code.
type Error struct {
	Tool    string `json:"tool"`    // Name of the tool that failed
	Message string `json:"message"` // Error message
	Code    string `json:"code"`    // Error code for categorization
}

// Stable error codes.
const (
	CodeNoNumericData   = "NO_NUMERIC_DATA"
	CodeNoMatch         = "NO_MATCH"
	CodeUnknownTool     = "UNKNOWN_TOOL"
	CodeValidationError = "VALIDATION_ERROR"
	CodeExecutionError  = "EXECUTION_ERROR"
)

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewError creates a new Error with the specified details.
func NewError(tool, message, code string) *Error {
	return &Error{Tool: tool, Message: message, Code: code}
}

// Tool is one named operation of a set: its model-facing declaration plus the
// implementation. Parameters is a minimal JSON schema.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
	run         func(args map[string]any) Result
}

// Set is a fixed catalog of tools bound to one resident dataset. A Set has no
// mutable state after construction and is safe for concurrent use.
type Set struct {
	tools  map[string]Tool
	order  []string
	logger logging.Logger
}

func newSet(logger logging.Logger, tools ...Tool) *Set {
	s := &Set{tools: map[string]Tool{}, logger: logging.OrNoOp(logger)}
	for _, t := range tools {
		s.tools[t.Name] = t
		s.order = append(s.order, t.Name)
	}
	return s
}

// Tools returns the declarations of the set in registration order.
func (s *Set) Tools() []Tool {
	out := make([]Tool, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.tools[name])
	}
	return out
}

// Execute validates args against the tool's schema and runs it. Unknown
// tools, invalid arguments and unresolvable references all come back as the
// error result variant, never as a Go error; the turn still completes.
func (s *Set) Execute(name string, args map[string]any) Result {
	t, ok := s.tools[name]
	if !ok {
		return ErrorResult{Err: NewError(name, "unknown tool", CodeUnknownTool)}
	}
	if args == nil {
		args = map[string]any{}
	}
	if err := util.ValidateParameters(args, t.Parameters); err != nil {
		s.logger.Warn("tool.call.validation_failed", "tool", name, "error", err.Error())
		return ErrorResult{Err: NewError(name, err.Error(), CodeValidationError)}
	}

	start := time.Now()
	res := t.run(args)
	if er, ok := res.(ErrorResult); ok {
		logging.LogToolCall(s.logger, name, time.Since(start), false, er.Err)
		return res
	}
	logging.LogToolCall(s.logger, name, time.Since(start), true, nil)
	return res
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func numberArg(args map[string]any, key string) (float64, bool) {
	switch v := args[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
