package flow

// SingleAgentFlow executes a standalone agent: no transfers, no sub-agent
// delegation. It wires the default processors for instruction resolution and
// content assembly.
type SingleAgentFlow struct{ *BaseFlow }

// NewSingleAgentFlow creates a basic single-agent flow.
func NewSingleAgentFlow(agent FlowAgent) *SingleAgentFlow {
	baseFlow := NewBaseFlow(agent)
	baseFlow.AddRequestProcessor(NewInstructionsProcessor())
	baseFlow.AddRequestProcessor(NewContentsProcessor())
	return &SingleAgentFlow{BaseFlow: baseFlow}
}
