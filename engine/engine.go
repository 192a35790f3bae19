package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tripmesh/tripmesh/artifact"
	"github.com/tripmesh/tripmesh/core"
	"github.com/tripmesh/tripmesh/logging"
	"github.com/tripmesh/tripmesh/memory"
	"github.com/tripmesh/tripmesh/session"
)

// Config tunes engine-wide execution limits.
type Config struct {
	// MaxConcurrentInvocations bounds the number of in-flight invocations.
	// Invoke blocks until a slot frees up or the context is cancelled.
	MaxConcurrentInvocations int

	// EventBufferSize sizes the per-invocation event channels.
	EventBufferSize int

	// MaxModelCalls caps model calls per invocation, guarding against
	// tool-call loops. Zero means unlimited.
	MaxModelCalls int

	// MaxTransferDepth caps chained handoffs within one invocation.
	MaxTransferDepth int
}

// DefaultConfig returns the limits used when no Config option is given.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentInvocations: 10,
		EventBufferSize:          100,
		MaxModelCalls:            50,
		MaxTransferDepth:         5,
	}
}

// Option customizes an Engine during construction.
type Option func(*Engine)

// WithConfig replaces the default Config.
func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.config = cfg }
}

// WithSessionStore sets the session persistence backend.
func WithSessionStore(s core.SessionStore) Option {
	return func(e *Engine) { e.sessionStore = s }
}

// WithArtifactStore sets the itinerary archive backend.
func WithArtifactStore(s core.ArtifactStore) Option {
	return func(e *Engine) { e.artifactStore = s }
}

// WithMemoryStore sets the traveler memory backend.
func WithMemoryStore(s core.MemoryStore) Option {
	return func(e *Engine) { e.memoryStore = s }
}

// WithLogger sets the engine logger.
func WithLogger(l logging.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithCallbacks sets the callback manager consulted during invocations.
func WithCallbacks(cm *CallbackManager) Option {
	return func(e *Engine) { e.callbacks = cm }
}

// Engine is the default core.Engine implementation. It owns the agent
// registry, persists events and state as they are emitted, and resolves
// agent handoffs.
type Engine struct {
	config        Config
	sessionStore  core.SessionStore
	artifactStore core.ArtifactStore
	memoryStore   core.MemoryStore
	logger        logging.Logger
	callbacks     *CallbackManager

	mu     sync.RWMutex
	agents map[string]core.Agent

	invMu  sync.Mutex
	active map[string]context.CancelFunc

	slots chan struct{}
}

var _ core.Engine = (*Engine)(nil)

// New constructs an Engine with in-memory stores and a no-op logger unless
// overridden by options.
func New(opts ...Option) *Engine {
	e := &Engine{
		config:        DefaultConfig(),
		sessionStore:  session.NewInMemoryStore(),
		artifactStore: artifact.NewInMemoryStore(),
		memoryStore:   memory.NewInMemoryStore(),
		logger:        logging.NoOpLogger{},
		callbacks:     NewCallbackManager(),
		agents:        map[string]core.Agent{},
		active:        map[string]context.CancelFunc{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.config.MaxConcurrentInvocations <= 0 {
		e.config.MaxConcurrentInvocations = DefaultConfig().MaxConcurrentInvocations
	}
	if e.config.EventBufferSize <= 0 {
		e.config.EventBufferSize = DefaultConfig().EventBufferSize
	}
	e.slots = make(chan struct{}, e.config.MaxConcurrentInvocations)
	return e
}

// Register makes an agent invokable by name. Re-registering a name replaces
// the previous agent.
func (e *Engine) Register(a core.Agent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.agents[a.Name()] = a
	e.logger.Info("engine.agent.registered", "agent", a.Name())
}

// GetAgent returns a registered agent by name.
func (e *Engine) GetAgent(name string) (core.Agent, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	a, ok := e.agents[name]
	return a, ok
}

// Agents returns the names of all registered agents.
func (e *Engine) Agents() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.agents))
	for name := range e.agents {
		names = append(names, name)
	}
	return names
}

// ArtifactStore exposes the configured artifact store, e.g. for surfaces
// that list stored itineraries.
func (e *Engine) ArtifactStore() core.ArtifactStore { return e.artifactStore }

// Callbacks exposes the callback manager for registering lifecycle hooks
// such as guardrails.
func (e *Engine) Callbacks() *CallbackManager { return e.callbacks }

// GetSession returns the session with the given id, creating it when absent.
func (e *Engine) GetSession(sessionID string) (*core.Session, error) {
	return e.sessionStore.Get(sessionID)
}

// Invoke starts an asynchronous run of the named agent within a session. The
// user content is appended to the session before the agent sees it. Events
// arrive on the returned channel in emission order and the channel closes when
// the run terminates; a terminal failure is delivered on the error channel.
func (e *Engine) Invoke(ctx context.Context, sessionID, agentName string, userContent core.Content) (string, <-chan core.Event, <-chan error, error) {
	root, ok := e.GetAgent(agentName)
	if !ok {
		return "", nil, nil, fmt.Errorf("agent %q not registered", agentName)
	}

	select {
	case e.slots <- struct{}{}:
	case <-ctx.Done():
		return "", nil, nil, ctx.Err()
	}

	invocationID := core.NewID()

	userEvent := core.NewUserContentEvent(invocationID, &userContent)
	if err := e.sessionStore.AppendEvent(sessionID, userEvent); err != nil {
		<-e.slots
		return "", nil, nil, fmt.Errorf("append user event: %w", err)
	}
	sess, err := e.sessionStore.Get(sessionID)
	if err != nil {
		<-e.slots
		return "", nil, nil, fmt.Errorf("load session: %w", err)
	}

	runCtxCtx, cancel := context.WithCancel(ctx)
	e.invMu.Lock()
	e.active[invocationID] = cancel
	e.invMu.Unlock()

	agentEmit := make(chan core.Event, e.config.EventBufferSize)
	resumeCh := make(chan struct{}, 1)
	transferCh := make(chan string, 1)
	eventsCh := make(chan core.Event, e.config.EventBufferSize)
	errorsCh := make(chan error, 1)

	runCtx := core.NewRunContext(core.RunContextParams{
		Context:       runCtxCtx,
		SessionID:     sessionID,
		InvocationID:  invocationID,
		Agent:         core.AgentInfo{Name: root.Name(), Type: "controller"},
		UserContent:   userContent,
		MaxModelCalls: e.config.MaxModelCalls,
		Emit:          agentEmit,
		Resume:        resumeCh,
		Session:       sess,
		SessionStore:  e.sessionStore,
		ArtifactStore: e.artifactStore,
		MemoryStore:   e.memoryStore,
		Logger:        e.logger,
	})

	e.logger.Info("engine.invoke",
		"invocation_id", invocationID,
		"session_id", sessionID,
		"agent", agentName,
	)

	go e.runAgents(runCtx, root, agentEmit, errorsCh, transferCh)
	go e.pumpEvents(runCtx, agentEmit, eventsCh, errorsCh, resumeCh, transferCh)

	return invocationID, eventsCh, errorsCh, nil
}

// InvokeSync runs an invocation to completion and returns all emitted events.
func (e *Engine) InvokeSync(ctx context.Context, sessionID, agentName string, userContent core.Content) (string, []core.Event, error) {
	invocationID, eventsCh, errorsCh, err := e.Invoke(ctx, sessionID, agentName, userContent)
	if err != nil {
		return "", nil, err
	}

	var events []core.Event
	for ev := range eventsCh {
		events = append(events, ev)
	}
	if err := <-errorsCh; err != nil {
		return invocationID, events, err
	}
	return invocationID, events, nil
}

// Cancel requests cooperative termination of an in-flight invocation.
func (e *Engine) Cancel(invocationID string) error {
	e.invMu.Lock()
	defer e.invMu.Unlock()
	cancel, ok := e.active[invocationID]
	if !ok {
		return fmt.Errorf("invocation %q not active", invocationID)
	}
	cancel()
	e.logger.Info("engine.invoke.cancelled", "invocation_id", invocationID)
	return nil
}

// runAgents drives the agent side of an invocation: the before-agent
// callbacks, the root agent's run, and any handoffs requested along the way.
// Agents wait for the engine's resume signal after every non-partial event,
// so by the time Run returns a pending handoff is already visible on
// transferCh.
func (e *Engine) runAgents(runCtx *core.RunContext, root core.Agent, agentEmit chan core.Event, errorsCh chan<- error, transferCh <-chan string) {
	defer func() {
		close(agentEmit)
		e.release(runCtx.InvocationID)
	}()

	cc := &CallbackContext{RunContext: runCtx, AgentName: root.Name()}
	if err := e.callbacks.Execute(runCtx.Context, CallbackBeforeAgent, cc); err != nil {
		var refusal *Refusal
		if errors.As(err, &refusal) {
			e.emitRefusal(runCtx, root.Name(), refusal.Message)
			return
		}
		errorsCh <- fmt.Errorf("before-agent callback: %w", err)
		return
	}

	current := root
	ctx := runCtx
	for {
		if err := e.runOne(ctx, current); err != nil {
			cc := &CallbackContext{RunContext: ctx, AgentName: current.Name(), Err: err}
			_ = e.callbacks.Execute(ctx.Context, CallbackOnError, cc)
			errorsCh <- fmt.Errorf("agent %s: %w", current.Name(), err)
			return
		}

		select {
		case target := <-transferCh:
			next := e.resolveTransfer(root, target)
			if next == nil {
				errorsCh <- fmt.Errorf("handoff target %q not found", target)
				return
			}
			if ctx.TransferDepth+1 > e.config.MaxTransferDepth {
				errorsCh <- fmt.Errorf("handoff depth limit %d reached transferring to %s", e.config.MaxTransferDepth, target)
				return
			}
			ctx = ctx.ForAgent(core.AgentInfo{Name: next.Name(), Type: "specialist"})
			ctx.LogInfo("engine.handoff",
				"from", current.Name(),
				"to", next.Name(),
				"depth", ctx.TransferDepth,
			)
			current = next
		default:
			cc := &CallbackContext{RunContext: ctx, AgentName: current.Name()}
			_ = e.callbacks.Execute(ctx.Context, CallbackAfterAgent, cc)
			return
		}
	}
}

// runOne executes a single agent's lifecycle within the invocation.
func (e *Engine) runOne(runCtx *core.RunContext, a core.Agent) error {
	if err := a.Start(runCtx); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	defer func() {
		if err := a.Stop(runCtx); err != nil {
			runCtx.LogWarn("engine.agent.stop_failed", "agent", a.Name(), "error", err)
		}
	}()
	return a.Run(runCtx)
}

// resolveTransfer locates a handoff target: the invoked root itself, any
// agent in the root's subtree, or a separately registered agent.
func (e *Engine) resolveTransfer(root core.Agent, target string) core.Agent {
	if root.Name() == target {
		return root
	}
	if found := root.FindAgent(target); found != nil {
		return found
	}
	if a, ok := e.GetAgent(target); ok {
		return a
	}
	return nil
}

// emitRefusal delivers a canned final reply in place of an agent run.
func (e *Engine) emitRefusal(runCtx *core.RunContext, author, message string) {
	ev := core.NewMessageEvent(author, message)
	ev.InvocationID = runCtx.InvocationID
	complete := true
	ev.TurnComplete = &complete
	if err := runCtx.EmitEvent(ev); err != nil {
		runCtx.LogWarn("engine.refusal.emit_failed", "error", err)
		return
	}
	if err := runCtx.WaitForResume(); err != nil {
		runCtx.LogWarn("engine.refusal.resume_failed", "error", err)
	}
}

// pumpEvents is the persistence side of an invocation. For every non-partial
// event it applies the state delta, appends the event to the session, and
// only then forwards it to the client and resumes the agent. Handoff targets
// are relayed to runAgents before the resume signal so ordering is preserved.
func (e *Engine) pumpEvents(runCtx *core.RunContext, agentEmit <-chan core.Event, eventsCh chan<- core.Event, errorsCh chan error, resumeCh chan<- struct{}, transferCh chan<- string) {
	defer func() {
		close(eventsCh)
		close(errorsCh)
	}()

	forward := true
	for ev := range agentEmit {
		if !ev.IsPartial() {
			e.applyEventActions(runCtx, ev)
			if err := e.sessionStore.AppendEvent(runCtx.SessionID, ev); err != nil {
				runCtx.LogError("engine.event.persist_failed", "event_id", ev.ID, "error", err)
			}
		}

		if forward {
			select {
			case eventsCh <- ev:
			case <-runCtx.Context.Done():
				forward = false
			}
		}

		if !ev.IsPartial() {
			if ev.Actions.TransferToAgent != nil {
				select {
				case transferCh <- *ev.Actions.TransferToAgent:
				default:
					runCtx.LogWarn("engine.handoff.dropped", "target", *ev.Actions.TransferToAgent)
				}
			}
			select {
			case resumeCh <- struct{}{}:
			default:
			}
		}
	}
}

// applyEventActions interprets the side effects carried by a persisted event.
// Artifact deltas need no handling here: artifacts are written to the store
// at save time and the delta only announces them.
func (e *Engine) applyEventActions(runCtx *core.RunContext, ev core.Event) {
	if len(ev.Actions.StateDelta) > 0 {
		if err := e.sessionStore.ApplyDelta(runCtx.SessionID, ev.Actions.StateDelta); err != nil {
			runCtx.LogError("engine.state.apply_failed", "event_id", ev.ID, "error", err)
		} else {
			cc := &CallbackContext{RunContext: runCtx, AgentName: ev.Author, Event: &ev}
			if err := e.callbacks.Execute(runCtx.Context, CallbackOnStateChange, cc); err != nil {
				runCtx.LogWarn("engine.callback.state_change_failed", "error", err)
			}
		}
	}

	if ev.Actions.Escalate != nil && *ev.Actions.Escalate {
		runCtx.LogInfo("engine.escalation", "author", ev.Author, "event_id", ev.ID)
	}
}

// release frees the invocation's concurrency slot and cancels its context.
func (e *Engine) release(invocationID string) {
	e.invMu.Lock()
	cancel, ok := e.active[invocationID]
	delete(e.active, invocationID)
	e.invMu.Unlock()
	if ok {
		cancel()
	}
	<-e.slots
}
