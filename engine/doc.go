// Package engine coordinates agent execution for TripMesh.
//
// The Engine holds the agent registry and the backing stores, starts an agent
// run per invocation and pumps the resulting event stream: every non-partial
// event is persisted to the session, its state delta applied, and the agent
// resumed before the next turn. Handoffs requested via a TransferToAgent
// action are resolved against the invoked agent's hierarchy and dispatched to
// the target agent within the same invocation, bounded by a transfer depth
// limit.
//
// Callbacks hook into the invocation lifecycle (before/after agent, on error,
// on state change). A before-agent callback can return a Refusal to
// short-circuit the run with a canned reply, which is how input guardrails
// are wired in.
package engine
