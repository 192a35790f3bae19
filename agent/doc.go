// Package agent contains the agent implementations TripMesh composes into a
// travel assistant: lifecycle and hierarchy plumbing (BaseAgent), the
// model-backed conversational agent (ModelAgent) and workflow coordinators
// (SequentialAgent, ParallelAgent, LoopAgent).
//
// Execution model:
//   - An agent's Run receives a *core.RunContext scoped to one invocation
//   - ModelAgent drives the flow package to stream model turns and tool calls
//   - Coordinators orchestrate child Runs, sharing session state
//   - Handoffs surface as TransferToAgent actions which the engine resolves
//     against the agent hierarchy
//
// Persistence, model specifics and tool abstractions live in their own
// packages to avoid cyclic dependencies.
package agent
