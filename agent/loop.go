package agent

import (
	"errors"
	"fmt"
	"time"

	"github.com/tripmesh/tripmesh/core"
)

// ErrEscalated is returned internally when a child agent signals escalation.
var ErrEscalated = errors.New("child agent escalated")

// LoopAgent executes a child agent repeatedly with configurable termination:
// maximum iterations, an interval between runs, a predicate over the child's
// final text, and escalation monitoring. It suits refine-until-good cycles
// such as re-planning an itinerary until the forecast-constrained dates fit.
type LoopAgent struct {
	BaseAgent
	child       core.Agent
	maxIters    int
	interval    time.Duration
	stopOnError bool
	predicate   func(string) bool
}

// LoopOption configures LoopAgent behavior.
type LoopOption func(*LoopAgent)

// WithMaxIters caps the number of iterations. Default 100.
func WithMaxIters(n int) LoopOption {
	return func(l *LoopAgent) { l.maxIters = n }
}

// WithInterval sets the delay between iterations. Default none.
func WithInterval(d time.Duration) LoopOption {
	return func(l *LoopAgent) { l.interval = d }
}

// WithPredicate terminates the loop early when the predicate returns true for
// the child's final response text of an iteration.
func WithPredicate(pred func(string) bool) LoopOption {
	return func(l *LoopAgent) { l.predicate = pred }
}

// WithContinueOnError keeps looping when an iteration fails instead of
// returning the error.
func WithContinueOnError() LoopOption {
	return func(l *LoopAgent) { l.stopOnError = false }
}

// NewLoopAgent constructs a looping coordinator around a child agent.
// Defaults: 100 iterations, no interval, stop on first error.
func NewLoopAgent(name string, child core.Agent, opts ...LoopOption) *LoopAgent {
	la := &LoopAgent{
		BaseAgent:   NewBaseAgent(name),
		child:       child,
		maxIters:    100,
		stopOnError: true,
	}

	for _, o := range opts {
		o(la)
	}

	return la
}

// Run implements core.Agent. It executes the child up to maxIters times with
// shared session state. An event carrying Escalate=true ends the loop early
// without error; the predicate is evaluated against each iteration's last
// final response text.
func (l *LoopAgent) Run(runCtx *core.RunContext) error {
	for i := 0; i < l.maxIters; i++ {
		select {
		case <-runCtx.Done():
			return runCtx.Err()
		default:
		}

		runCtx.LogDebug("loop.iteration.start", "agent", l.Name(), "iteration", i+1)

		lastText, childErr := l.runChildIntercepted(runCtx)
		if errors.Is(childErr, ErrEscalated) {
			runCtx.LogInfo("loop.escalated", "agent", l.Name(), "iteration", i+1)
			return nil
		}
		if childErr != nil {
			if l.stopOnError {
				return fmt.Errorf("loop iteration %d failed for agent %s: %w", i+1, l.child.Name(), childErr)
			}
			runCtx.LogWarn("loop.iteration.failed", "agent", l.Name(), "iteration", i+1, "error", childErr.Error())
		}

		if l.predicate != nil && l.predicate(lastText) {
			runCtx.LogDebug("loop.predicate.satisfied", "agent", l.Name(), "iteration", i+1)
			return nil
		}

		if l.interval > 0 && i < l.maxIters-1 {
			select {
			case <-runCtx.Done():
				return runCtx.Err()
			case <-time.After(l.interval):
			}
		}
	}

	return nil
}

// NewEscalationEvent builds an event that signals enclosing coordinators to
// stop looping, optionally carrying content explaining why.
func NewEscalationEvent(invocationID, author string, content *core.Content) core.Event {
	escalate := true
	ev := core.NewEvent(invocationID, author)
	ev.Actions.Escalate = &escalate
	ev.Content = content
	return ev
}

// runChildIntercepted executes the child while relaying its events upstream,
// watching for escalation flags and capturing the last final response text.
func (l *LoopAgent) runChildIntercepted(runCtx *core.RunContext) (string, error) {
	interceptCh := make(chan core.Event, 16)
	resumeCh := make(chan struct{}, 16)
	childCtx := runCtx.WithChannels(interceptCh, resumeCh)

	done := make(chan error, 1)
	go func() {
		done <- l.child.Run(childCtx)
		close(interceptCh)
	}()

	var lastText string
	escalated := false

	forward := func(ev core.Event) error {
		select {
		case runCtx.Emit <- ev:
		case <-runCtx.Done():
			return runCtx.Err()
		}
		// Propagate the engine's persistence signal to the waiting child.
		if !ev.IsPartial() {
			if err := runCtx.WaitForResume(); err != nil {
				return err
			}
			select {
			case resumeCh <- struct{}{}:
			case <-runCtx.Done():
				return runCtx.Err()
			}
		}
		return nil
	}

	for ev := range interceptCh {
		if ev.Actions.Escalate != nil && *ev.Actions.Escalate {
			escalated = true
		}
		if ev.IsFinalResponse() && ev.Text() != "" {
			lastText = ev.Text()
		}
		if err := forward(ev); err != nil {
			<-done
			return lastText, err
		}
	}

	err := <-done
	if err != nil {
		return lastText, err
	}
	if escalated {
		return lastText, ErrEscalated
	}
	return lastText, nil
}
