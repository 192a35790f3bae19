package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/tripmesh/tripmesh/core"
)

// CallbackType identifies a lifecycle point callbacks can hook into.
type CallbackType string

const (
	// CallbackBeforeAgent fires before the root agent runs. Returning an
	// error aborts the invocation; returning a Refusal replaces the run
	// with a canned reply.
	CallbackBeforeAgent CallbackType = "before_agent"

	// CallbackAfterAgent fires after an invocation completes without error.
	CallbackAfterAgent CallbackType = "after_agent"

	// CallbackOnError fires when an agent run fails.
	CallbackOnError CallbackType = "on_error"

	// CallbackOnStateChange fires after a state delta is applied.
	CallbackOnStateChange CallbackType = "on_state_change"
)

// CallbackContext carries invocation details into a callback. Event and Err
// are populated only for the lifecycle points where they apply.
type CallbackContext struct {
	RunContext *core.RunContext
	AgentName  string
	Event      *core.Event
	Err        error
}

// Callback is a named hook executed at a lifecycle point.
type Callback interface {
	Name() string
	Execute(ctx context.Context, cc *CallbackContext) error
}

// CallbackFunc adapts a plain function to the Callback interface.
type CallbackFunc struct {
	name string
	fn   func(ctx context.Context, cc *CallbackContext) error
}

// NewCallback wraps fn as a named Callback.
func NewCallback(name string, fn func(ctx context.Context, cc *CallbackContext) error) *CallbackFunc {
	return &CallbackFunc{name: name, fn: fn}
}

func (c *CallbackFunc) Name() string { return c.name }

func (c *CallbackFunc) Execute(ctx context.Context, cc *CallbackContext) error {
	return c.fn(ctx, cc)
}

// Refusal is returned by a before-agent callback to short-circuit the
// invocation. The engine emits Message as the final assistant reply instead
// of running the agent.
type Refusal struct {
	Message string
}

func (r *Refusal) Error() string { return r.Message }

// CallbackManager registers callbacks per lifecycle point and executes them
// in registration order. Safe for concurrent use.
type CallbackManager struct {
	mu        sync.RWMutex
	callbacks map[CallbackType][]Callback
}

// NewCallbackManager returns an empty manager.
func NewCallbackManager() *CallbackManager {
	return &CallbackManager{callbacks: map[CallbackType][]Callback{}}
}

// Register appends a callback for the given lifecycle point.
func (m *CallbackManager) Register(t CallbackType, cb Callback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks[t] = append(m.callbacks[t], cb)
}

// Execute runs all callbacks for the lifecycle point. The first error stops
// the chain and is returned wrapped with the callback's name, except a
// Refusal which passes through unchanged so callers can match on it.
func (m *CallbackManager) Execute(ctx context.Context, t CallbackType, cc *CallbackContext) error {
	m.mu.RLock()
	cbs := make([]Callback, len(m.callbacks[t]))
	copy(cbs, m.callbacks[t])
	m.mu.RUnlock()

	for _, cb := range cbs {
		if err := cb.Execute(ctx, cc); err != nil {
			if _, ok := err.(*Refusal); ok {
				return err
			}
			return fmt.Errorf("callback %s: %w", cb.Name(), err)
		}
	}
	return nil
}
