package flow

// MultiAgentFlow executes an agent that may call tools and hand the
// conversation off to sub-agents. It extends the single-agent processor set
// with the transfer tool injector.
type MultiAgentFlow struct{ *BaseFlow }

// NewMultiAgentFlow creates a flow with handoff support.
func NewMultiAgentFlow(agent FlowAgent) *MultiAgentFlow {
	baseFlow := NewBaseFlow(agent)
	baseFlow.AddRequestProcessor(NewInstructionsProcessor())
	baseFlow.AddRequestProcessor(NewContentsProcessor())
	baseFlow.AddRequestProcessor(NewTransferToolInjector())
	return &MultiAgentFlow{BaseFlow: baseFlow}
}
