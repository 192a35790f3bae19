package core

import "context"

// Agent is the interface every TripMesh agent implements, from the
// controller down to the single-purpose specialists.
//
// Agents receive input through a RunContext, process it and emit events to
// communicate results and state changes back to the engine. The sub-agent
// methods support hierarchical setups where a controller routes requests to
// specialists.
//
// Implementations must respect context cancellation, emit events only via the
// provided RunContext and manage resources through Start/Stop.
type Agent interface {
	Name() string
	Description() string
	Start(runCtx *RunContext) error
	Stop(runCtx *RunContext) error
	Run(runCtx *RunContext) error
	SetSubAgents(children ...Agent) error
	SubAgents() []Agent
	Parent() Agent
	FindAgent(name string) Agent
}

// AgentInfo identifies an agent in contexts and events. Name is the external
// identifier; Type categorizes the implementation ("controller", "specialist").
type AgentInfo struct{ Name, Type string }

// Engine coordinates agent execution and event delivery.
//
// Implementations must close the returned channels when a run terminates,
// propagate context cancellation into agent Run calls, and preserve
// per-invocation event ordering.
type Engine interface {
	// Register makes an agent invokable by name.
	Register(a Agent)

	// Invoke starts an asynchronous run of the named agent within a session.
	// It returns the invocation ID, a stream of ordered events (closed on
	// completion) and a terminal error channel of capacity one. The immediate
	// error covers startup failures such as a session load error.
	Invoke(ctx context.Context, sessionID, agentName string, userContent Content) (string, <-chan Event, <-chan error, error)

	// InvokeSync drains Invoke to completion, returning the invocation ID and
	// all emitted events.
	InvokeSync(ctx context.Context, sessionID, agentName string, userContent Content) (string, []Event, error)

	// Cancel requests cooperative termination of an in-flight invocation.
	Cancel(invocationID string) error
}
