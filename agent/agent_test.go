package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripmesh/tripmesh/core"
	"github.com/tripmesh/tripmesh/model"
	"github.com/tripmesh/tripmesh/session"
)

// stubAgent is a minimal core.Agent whose behavior is supplied per test.
type stubAgent struct {
	BaseAgent
	run func(runCtx *core.RunContext) error
}

func newStubAgent(name string, run func(runCtx *core.RunContext) error) *stubAgent {
	return &stubAgent{BaseAgent: NewBaseAgent(name), run: run}
}

func (s *stubAgent) Run(runCtx *core.RunContext) error {
	if s.run == nil {
		return nil
	}
	return s.run(runCtx)
}

// newAgentRunContext seeds a session with the user text and returns a run
// context plus the emit channel the agent writes to.
func newAgentRunContext(t *testing.T, store core.SessionStore, userText string) (*core.RunContext, chan core.Event, chan struct{}) {
	t.Helper()
	sess, err := store.Create("sess-1")
	require.NoError(t, err)
	require.NoError(t, store.AppendEvent("sess-1", core.NewUserMessageEvent("inv-1", userText)))
	sess, err = store.Get("sess-1")
	require.NoError(t, err)

	emitCh := make(chan core.Event, 100)
	resumeCh := make(chan struct{}, 100)
	runCtx := core.NewRunContext(core.RunContextParams{
		Context:      context.Background(),
		SessionID:    "sess-1",
		InvocationID: "inv-1",
		Agent:        core.AgentInfo{Name: "TestAgent", Type: "model"},
		UserContent:  core.NewUserContent(userText),
		Emit:         emitCh,
		Resume:       resumeCh,
		Session:      sess,
		SessionStore: store,
	})
	return runCtx, emitCh, resumeCh
}

// runAgent executes the agent while playing the engine's role: persisting
// non-partial events and signaling resume. It returns all emitted events.
func runAgent(t *testing.T, a core.Agent, runCtx *core.RunContext, store core.SessionStore, emitCh chan core.Event, resumeCh chan struct{}) []core.Event {
	t.Helper()

	done := make(chan error, 1)
	go func() { done <- a.Run(runCtx) }()

	var events []core.Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev := <-emitCh:
			events = append(events, ev)
			if !ev.IsPartial() {
				require.NoError(t, store.AppendEvent(runCtx.SessionID, ev))
				if len(ev.Actions.StateDelta) > 0 {
					require.NoError(t, store.ApplyDelta(runCtx.SessionID, ev.Actions.StateDelta))
				}
				resumeCh <- struct{}{}
			}
		case err := <-done:
			require.NoError(t, err)
			for {
				select {
				case ev := <-emitCh:
					events = append(events, ev)
				default:
					return events
				}
			}
		case <-timeout:
			t.Fatal("timeout waiting for agent run")
		}
	}
}

func TestBaseAgentHierarchy(t *testing.T) {
	root := newStubAgent("Controller", nil)
	weather := newStubAgent("WeatherAgent", nil)
	booking := newStubAgent("BookingAgent", nil)

	require.NoError(t, root.SetSubAgents(weather, booking))

	subs := root.SubAgents()
	require.Len(t, subs, 2)
	assert.Equal(t, "WeatherAgent", subs[0].Name())
	require.NotNil(t, weather.Parent())
	assert.Equal(t, "Controller", weather.Parent().Name())

	found := root.FindAgent("BookingAgent")
	require.NotNil(t, found)
	assert.Equal(t, "BookingAgent", found.Name())
	assert.Nil(t, root.FindAgent("PlacesAgent"))

	// Reassigning children detaches previous parents.
	require.NoError(t, root.SetSubAgents(weather))
	assert.Nil(t, booking.Parent())
}

func TestBaseAgentLifecycle(t *testing.T) {
	a := newStubAgent("A", nil)
	store := session.NewInMemoryStore()
	runCtx, _, _ := newAgentRunContext(t, store, "hi")

	require.NoError(t, a.Start(runCtx))
	assert.Error(t, a.Start(runCtx))
	require.NoError(t, a.Stop(runCtx))
	assert.Error(t, a.Stop(runCtx))
}

func TestModelAgentRunFinalResponse(t *testing.T) {
	llm := model.NewMockModel("test-model", "mock")
	llm.AddResponse("where should I go in May?", "Lisbon is lovely in May.")

	a := NewModelAgent("TripAgent", llm, func(o *ModelAgentOptions) {
		o.EnableStreaming = false
		o.AllowTransfer = false
	})

	store := session.NewInMemoryStore()
	runCtx, emitCh, resumeCh := newAgentRunContext(t, store, "where should I go in May?")
	events := runAgent(t, a, runCtx, store, emitCh, resumeCh)

	require.NotEmpty(t, events)
	final := events[len(events)-1]
	assert.Equal(t, "Lisbon is lovely in May.", final.Text())
	assert.True(t, final.IsFinalResponse())
}

func TestModelAgentOutputKeyInDelta(t *testing.T) {
	llm := model.NewMockModel("test-model", "mock")
	llm.AddResponse("hello", "Hi there, traveler.")

	a := NewModelAgent("TripAgent", llm, func(o *ModelAgentOptions) {
		o.EnableStreaming = false
		o.AllowTransfer = false
		o.OutputKey = "last_reply"
	})

	store := session.NewInMemoryStore()
	runCtx, emitCh, resumeCh := newAgentRunContext(t, store, "hello")
	events := runAgent(t, a, runCtx, store, emitCh, resumeCh)

	final := events[len(events)-1]
	assert.Equal(t, "Hi there, traveler.", final.Actions.StateDelta["last_reply"])

	sess, err := store.Get("sess-1")
	require.NoError(t, err)
	v, ok := sess.GetState("last_reply")
	require.True(t, ok)
	assert.Equal(t, "Hi there, traveler.", v)
}
