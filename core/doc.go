// Package core holds the foundational types shared by every layer of
// TripMesh: agents, sessions, events, execution contexts and the small store
// interfaces they depend on.
//
//   - Agent: a unit of orchestrated work (controller or specialist)
//   - Session: stateful conversational container with an event history
//   - Event: immutable record of messages, tool calls and handoff signals
//   - RunContext / ToolContext: scoped execution surfaces for agents and tools
//   - SessionStore / ArtifactStore / MemoryStore: pluggable persistence
//
// Concrete orchestration, model adapters and travel domain logic live in
// sibling packages; core stays free of implementation concerns so backends
// can be swapped.
package core
