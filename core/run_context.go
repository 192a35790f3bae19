package core

import (
	"context"
	"fmt"
	"maps"

	"github.com/tripmesh/tripmesh/logging"
)

// RunContext is the per-invocation execution scope handed to an Agent's Run
// method. It aggregates:
//
//   - the ambient cancellation Context
//   - identifiers (SessionID, InvocationID, agent info)
//   - the input user Content
//   - the Emit / Resume coordination channels
//   - backing stores (session, artifact, memory)
//   - a working Session snapshot plus a pending StateDelta buffer
//   - TransferDepth, incremented on every handoff to bound routing loops
//
// State set via SetState accumulates in StateDelta until CommitStateDelta or
// EmitEvent applies it. Forking (ForAgent) produces fresh buffers while
// sharing stores, channels and the model-call limiter.
type RunContext struct {
	Context       context.Context
	SessionID     string
	InvocationID  string
	Agent         AgentInfo
	UserContent   Content
	Emit          chan<- Event
	Resume        <-chan struct{}
	SessionStore  SessionStore
	ArtifactStore ArtifactStore
	MemoryStore   MemoryStore
	Limiter       *ModelLimiter
	Session       *Session
	StateDelta    map[string]any
	Artifacts     []string
	TransferDepth int
	Branch        string

	*loggerAdapter
}

// RunContextParams bundles the construction inputs for NewRunContext.
type RunContextParams struct {
	Context       context.Context
	SessionID     string
	InvocationID  string
	Agent         AgentInfo
	UserContent   Content
	MaxModelCalls int
	Emit          chan<- Event
	Resume        <-chan struct{}
	Session       *Session
	SessionStore  SessionStore
	ArtifactStore ArtifactStore
	MemoryStore   MemoryStore
	Logger        logging.Logger
}

// NewRunContext constructs a RunContext with empty delta buffers.
func NewRunContext(p RunContextParams) *RunContext {
	return &RunContext{
		Context:       p.Context,
		SessionID:     p.SessionID,
		InvocationID:  p.InvocationID,
		Agent:         p.Agent,
		UserContent:   p.UserContent,
		Emit:          p.Emit,
		Resume:        p.Resume,
		Session:       p.Session,
		SessionStore:  p.SessionStore,
		ArtifactStore: p.ArtifactStore,
		MemoryStore:   p.MemoryStore,
		Limiter:       NewModelLimiter(p.MaxModelCalls),
		StateDelta:    map[string]any{},
		Artifacts:     []string{},
		loggerAdapter: newLoggerAdapter(p.Logger),
	}
}

// Done returns a channel closed when the underlying context is cancelled.
func (rc *RunContext) Done() <-chan struct{} { return rc.Context.Done() }

// Err returns the cancellation error, if any.
func (rc *RunContext) Err() error { return rc.Context.Err() }

// GetState returns a staged delta value if present, else the session value.
func (rc *RunContext) GetState(k string) (any, bool) {
	if v, ok := rc.StateDelta[k]; ok {
		return v, true
	}
	if rc.Session != nil {
		return rc.Session.GetState(k)
	}
	return nil, false
}

// SetState stages a state mutation in the delta buffer.
func (rc *RunContext) SetState(k string, v any) { rc.StateDelta[k] = v }

// ApplyStateDelta merges all pairs from d into the staged delta.
func (rc *RunContext) ApplyStateDelta(d map[string]any) { maps.Copy(rc.StateDelta, d) }

// SaveArtifact stores bytes in the ArtifactStore and stages the id for the
// next emitted event.
func (rc *RunContext) SaveArtifact(id string, data []byte) error {
	if rc.ArtifactStore == nil {
		return fmt.Errorf("artifact store not configured")
	}
	if err := rc.ArtifactStore.Save(rc.SessionID, id, data); err != nil {
		return err
	}
	rc.Artifacts = append(rc.Artifacts, id)
	return nil
}

// GetArtifact retrieves previously saved artifact bytes.
func (rc *RunContext) GetArtifact(id string) ([]byte, error) {
	if rc.ArtifactStore == nil {
		return nil, fmt.Errorf("artifact store not configured")
	}
	return rc.ArtifactStore.Get(rc.SessionID, id)
}

// ListArtifacts returns artifact IDs stored for the session.
func (rc *RunContext) ListArtifacts() ([]string, error) {
	if rc.ArtifactStore == nil {
		return []string{}, nil
	}
	return rc.ArtifactStore.List(rc.SessionID)
}

// SearchMemory queries the MemoryStore for relevant traveler context.
func (rc *RunContext) SearchMemory(q string, limit int) ([]SearchResult, error) {
	if rc.MemoryStore == nil {
		return []SearchResult{}, nil
	}
	return rc.MemoryStore.Search(rc.SessionID, q, limit)
}

// StoreMemory appends content plus metadata to the MemoryStore.
func (rc *RunContext) StoreMemory(content string, md map[string]any) error {
	if rc.MemoryStore == nil {
		return fmt.Errorf("memory store not configured")
	}
	return rc.MemoryStore.Store(rc.SessionID, content, md)
}

// RefreshSession reloads the session snapshot from the SessionStore.
func (rc *RunContext) RefreshSession() error {
	if rc.SessionStore == nil {
		return fmt.Errorf("session store not configured")
	}
	s, err := rc.SessionStore.Get(rc.SessionID)
	if err != nil {
		return err
	}
	rc.Session = s
	return nil
}

// CommitStateDelta persists the accumulated delta then clears the buffer.
func (rc *RunContext) CommitStateDelta() error {
	if len(rc.StateDelta) == 0 {
		return nil
	}
	if rc.SessionStore == nil {
		return fmt.Errorf("session store not configured")
	}
	if err := rc.SessionStore.ApplyDelta(rc.SessionID, rc.StateDelta); err != nil {
		return err
	}
	rc.StateDelta = map[string]any{}
	return nil
}

// GetSessionHistory returns all historical events for the session.
func (rc *RunContext) GetSessionHistory() []Event {
	if rc.Session == nil {
		return []Event{}
	}
	return rc.Session.GetEvents()
}

// ForAgent forks the context for a handoff target: fresh delta buffers, same
// stores, channels and limiter, with the transfer depth incremented.
func (rc *RunContext) ForAgent(agent AgentInfo) *RunContext {
	return &RunContext{
		Context:       rc.Context,
		SessionID:     rc.SessionID,
		InvocationID:  rc.InvocationID,
		Agent:         agent,
		UserContent:   rc.UserContent,
		Emit:          rc.Emit,
		Resume:        rc.Resume,
		SessionStore:  rc.SessionStore,
		ArtifactStore: rc.ArtifactStore,
		MemoryStore:   rc.MemoryStore,
		Limiter:       rc.Limiter,
		Session:       rc.Session,
		StateDelta:    map[string]any{},
		Artifacts:     []string{},
		TransferDepth: rc.TransferDepth + 1,
		loggerAdapter: rc.loggerAdapter,
	}
}

// ForBranch forks the context for an isolated concurrent branch: fresh delta
// buffers, same stores and channels, with the branch path recorded.
func (rc *RunContext) ForBranch(branch string) *RunContext {
	forked := rc.ForAgent(rc.Agent)
	forked.TransferDepth = rc.TransferDepth
	forked.Branch = branch
	return forked
}

// WithChannels rebinds the emit/resume pair, used by coordinators that
// intercept child events before forwarding them upstream.
func (rc *RunContext) WithChannels(emit chan<- Event, resume <-chan struct{}) *RunContext {
	forked := rc.ForAgent(rc.Agent)
	forked.TransferDepth = rc.TransferDepth
	forked.Branch = rc.Branch
	forked.Emit = emit
	forked.Resume = resume
	return forked
}

// EmitEvent merges the pending StateDelta and staged artifacts into the event
// and sends it, then resets the buffers.
func (rc *RunContext) EmitEvent(ev Event) error {
	if len(rc.StateDelta) > 0 {
		if ev.Actions.StateDelta == nil {
			ev.Actions.StateDelta = map[string]any{}
		}
		for k, v := range rc.StateDelta {
			ev.Actions.StateDelta[k] = v
		}
	}

	if len(rc.Artifacts) > 0 {
		if ev.Actions.ArtifactDelta == nil {
			ev.Actions.ArtifactDelta = map[string]int{}
		}
		for _, id := range rc.Artifacts {
			ev.Actions.ArtifactDelta[id] = 1
		}
	}

	select {
	case <-rc.Context.Done():
		return rc.Context.Err()
	case rc.Emit <- ev:
	}

	rc.StateDelta = map[string]any{}
	rc.Artifacts = []string{}

	return nil
}

// WaitForResume blocks until the engine signals the last non-partial event
// was persisted, or the context is cancelled.
func (rc *RunContext) WaitForResume() error {
	if rc.Resume == nil {
		return nil
	}
	select {
	case <-rc.Resume:
		return nil
	case <-rc.Context.Done():
		return rc.Context.Err()
	}
}
