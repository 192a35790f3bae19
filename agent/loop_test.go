package agent

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripmesh/tripmesh/core"
	"github.com/tripmesh/tripmesh/session"
)

func TestLoopAgentStopsOnPredicate(t *testing.T) {
	iter := 0
	child := newStubAgent("planner", func(rc *core.RunContext) error {
		iter++
		text := "revising"
		if iter == 3 {
			text = "itinerary complete"
		}
		ev := core.NewMessageEvent("planner", text)
		complete := true
		ev.TurnComplete = &complete
		return rc.EmitEvent(ev)
	})

	loop := NewLoopAgent("Refine", child,
		WithMaxIters(10),
		WithPredicate(func(out string) bool { return out == "itinerary complete" }),
	)

	store := session.NewInMemoryStore()
	runCtx, emitCh, resumeCh := newAgentRunContext(t, store, "plan")
	events := runAgent(t, loop, runCtx, store, emitCh, resumeCh)

	assert.Equal(t, 3, iter)
	require.NotEmpty(t, events)
	assert.Equal(t, "itinerary complete", events[len(events)-1].Text())
}

func TestLoopAgentStopsOnEscalation(t *testing.T) {
	iter := 0
	child := newStubAgent("planner", func(rc *core.RunContext) error {
		iter++
		content := &core.Content{Role: "assistant", Parts: []core.Part{core.TextPart{Text: "no viable dates"}}}
		return rc.EmitEvent(NewEscalationEvent(rc.InvocationID, "planner", content))
	})

	loop := NewLoopAgent("Refine", child, WithMaxIters(10))

	store := session.NewInMemoryStore()
	runCtx, emitCh, resumeCh := newAgentRunContext(t, store, "plan")
	events := runAgent(t, loop, runCtx, store, emitCh, resumeCh)

	assert.Equal(t, 1, iter)
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	require.NotNil(t, last.Actions.Escalate)
	assert.True(t, *last.Actions.Escalate)
}

func TestLoopAgentMaxIters(t *testing.T) {
	iter := 0
	child := newStubAgent("poller", func(rc *core.RunContext) error {
		iter++
		return rc.EmitEvent(core.NewMessageEvent("poller", fmt.Sprintf("attempt %d", iter)))
	})

	loop := NewLoopAgent("Poll", child, WithMaxIters(4))

	store := session.NewInMemoryStore()
	runCtx, emitCh, resumeCh := newAgentRunContext(t, store, "poll")
	runAgent(t, loop, runCtx, store, emitCh, resumeCh)

	assert.Equal(t, 4, iter)
}

func TestLoopAgentContinueOnError(t *testing.T) {
	iter := 0
	child := newStubAgent("flaky", func(rc *core.RunContext) error {
		iter++
		if iter == 1 {
			return fmt.Errorf("transient")
		}
		return rc.EmitEvent(core.NewMessageEvent("flaky", "recovered"))
	})

	loop := NewLoopAgent("Retry", child, WithMaxIters(2), WithContinueOnError())

	store := session.NewInMemoryStore()
	runCtx, emitCh, resumeCh := newAgentRunContext(t, store, "go")
	runAgent(t, loop, runCtx, store, emitCh, resumeCh)

	assert.Equal(t, 2, iter)
}
