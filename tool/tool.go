// Package tool implements the function calling subsystem that lets agents
// invoke structured capabilities with schema-validated arguments and
// consistent error handling.
package tool

import (
	"fmt"

	"github.com/tripmesh/tripmesh/core"
	"github.com/tripmesh/tripmesh/internal/util"
)

// Tool is a callable capability registered with an agent. Implementations
// receive a ToolContext giving access to session state, handoff signals,
// memory and artifacts.
//
// Implementations should use snake_case names, define a JSON schema for
// their parameters and be safe for concurrent use.
type Tool interface {
	// Name returns the unique identifier used in function call declarations.
	Name() string

	// Description is shown to the model to guide tool selection.
	Description() string

	// Parameters returns a JSON schema describing the expected arguments.
	Parameters() map[string]any

	// Call executes the tool with validated arguments.
	Call(toolCtx *core.ToolContext, args map[string]any) (any, error)
}

// ValidationError reports a schema/argument mismatch.
type ValidationError = util.ValidationError

// ToolError is the uniform error type surfaced by tool execution.
// Codes: VALIDATION_ERROR for schema mismatches, EXECUTION_ERROR for
// failures inside the tool. Custom codes pass through unchanged.
type ToolError struct {
	Tool    string `json:"tool"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a ToolError with the given details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}
