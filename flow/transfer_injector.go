package flow

import (
	"strings"

	"github.com/tripmesh/tripmesh/core"
	"github.com/tripmesh/tripmesh/model"
)

// TransferToolName is the function name the model calls to request a handoff.
const TransferToolName = "transfer_to_agent"

// TransferToolInjector exposes the transfer_to_agent function to the model
// when the agent has sub-agents and transfers enabled. The definition lists
// the available targets so the model can route by name and purpose.
type TransferToolInjector struct{}

// NewTransferToolInjector creates a new transfer tool injector.
func NewTransferToolInjector() *TransferToolInjector { return &TransferToolInjector{} }

// Name returns the processor's identifier.
func (p *TransferToolInjector) Name() string { return "transfer_tool_injector" }

// ProcessRequest appends the transfer tool definition once per request.
func (p *TransferToolInjector) ProcessRequest(runCtx *core.RunContext, req *model.Request, agent FlowAgent) error {
	if !agent.IsTransferEnabled() {
		return nil
	}
	subAgents := agent.GetSubAgents()
	if len(subAgents) == 0 {
		return nil
	}
	for _, td := range req.Tools {
		if td.Function.Name == TransferToolName {
			return nil
		}
	}

	names := make([]string, 0, len(subAgents))
	var desc strings.Builder
	desc.WriteString("Hand the conversation to a specialist agent. Available agents:\n")
	for _, sub := range subAgents {
		names = append(names, sub.GetName())
		desc.WriteString("- ")
		desc.WriteString(sub.GetName())
		if d := sub.GetDescription(); d != "" {
			desc.WriteString(": ")
			desc.WriteString(d)
		}
		desc.WriteString("\n")
	}

	req.Tools = append(req.Tools, model.ToolDefinition{
		Type: "function",
		Function: model.FunctionDefinition{
			Name:        TransferToolName,
			Description: desc.String(),
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"agent": map[string]any{
						"type":        "string",
						"enum":        names,
						"description": "Target agent name",
					},
				},
				"required": []string{"agent"},
			},
		},
	})

	runCtx.LogDebug("flow.transfer_tool.injected", "agent", agent.GetName(), "targets", len(names))
	return nil
}
