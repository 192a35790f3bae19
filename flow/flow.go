// Package flow implements the execution pipeline that turns an agent's
// configuration (instructions, tools, sub-agents) into model turns. A flow
// assembles the model request through pluggable processors, streams model
// output as events, executes requested tool calls and surfaces handoff
// signals for the engine to act on.
package flow

import (
	"github.com/tripmesh/tripmesh/core"
	"github.com/tripmesh/tripmesh/model"
	"github.com/tripmesh/tripmesh/tool"
)

// Flow drives the complete model interaction for one agent activation.
type Flow interface {
	// Execute runs the flow asynchronously. Events stream on the first
	// channel; unrecoverable errors arrive on the second. Both channels are
	// closed when the flow terminates.
	Execute(runCtx *core.RunContext) (<-chan core.Event, <-chan error, error)
}

// FlowAgent is the view of an agent that flows operate against. It exposes
// configuration and capabilities without leaking the full agent type.
type FlowAgent interface {
	// GetName returns the agent's display name.
	GetName() string

	// GetDescription returns the agent's purpose, shown to sibling agents
	// when routing.
	GetDescription() string

	// GetLLM returns the language model instance.
	GetLLM() model.Model

	// ResolveInstructions produces the system prompt for the current run.
	ResolveInstructions(runCtx *core.RunContext) (string, error)

	// GetTools returns the registered tools for function calling.
	GetTools() map[string]tool.Tool

	// GetSubAgents returns the child agents available as handoff targets.
	GetSubAgents() []FlowAgent

	// IsFunctionCallingEnabled reports whether tools are exposed to the model.
	IsFunctionCallingEnabled() bool

	// IsStreamingEnabled reports whether partial responses are requested.
	IsStreamingEnabled() bool

	// IsTransferEnabled reports whether the agent may hand off to sub-agents.
	IsTransferEnabled() bool

	// GetOutputKey returns the session state key for the final response, or
	// "" when the response should not be saved to state.
	GetOutputKey() string

	// MaxHistoryMessages returns the conversation history cap per request.
	MaxHistoryMessages() int
}

// RequestProcessor mutates the model request before generation.
type RequestProcessor interface {
	// Name identifies the processor in logs and error messages.
	Name() string
	// ProcessRequest modifies the request before it is sent to the model.
	ProcessRequest(runCtx *core.RunContext, req *model.Request, agent FlowAgent) error
}

// ResponseProcessor inspects each model response chunk before it is emitted.
type ResponseProcessor interface {
	// Name identifies the processor in logs and error messages.
	Name() string
	// ProcessResponse handles a model response chunk.
	ProcessResponse(runCtx *core.RunContext, resp *model.Response, agent FlowAgent) error
}
