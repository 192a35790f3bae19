package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripmesh/tripmesh/logging"
)

type stubSessionStore struct {
	sessions map[string]*Session
}

func newStubSessionStore() *stubSessionStore {
	return &stubSessionStore{sessions: map[string]*Session{}}
}

func (s *stubSessionStore) Create(id string) (*Session, error) {
	sess := NewSession(id)
	s.sessions[id] = sess
	return sess.Clone(), nil
}

func (s *stubSessionStore) Get(id string) (*Session, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return s.Create(id)
	}
	return sess.Clone(), nil
}

func (s *stubSessionStore) AppendEvent(id string, ev Event) error {
	if _, ok := s.sessions[id]; !ok {
		s.sessions[id] = NewSession(id)
	}
	s.sessions[id].AddEvent(ev)
	return nil
}

func (s *stubSessionStore) ApplyDelta(id string, delta map[string]any) error {
	if _, ok := s.sessions[id]; !ok {
		s.sessions[id] = NewSession(id)
	}
	s.sessions[id].MergeState(delta)
	return nil
}

func newTestRunContext(emit chan Event) *RunContext {
	store := newStubSessionStore()
	sess, _ := store.Create("sess-1")
	return NewRunContext(RunContextParams{
		Context:      context.Background(),
		SessionID:    "sess-1",
		InvocationID: "inv-1",
		Agent:        AgentInfo{Name: "TravelController", Type: "controller"},
		UserContent:  NewUserContent("What's the weather in Lisbon?"),
		Emit:         emit,
		Session:      sess,
		SessionStore: store,
		Logger:       logging.NoOpLogger{},
	})
}

func TestEventFinalResponse(t *testing.T) {
	ev := NewMessageEvent("WeatherAgent", "Sunny, 24 degrees.")
	assert.True(t, ev.IsFinalResponse())
	assert.Equal(t, "Sunny, 24 degrees.", ev.Text())

	call := NewFunctionCallEvent("WeatherAgent", "get_forecast", `{"location":"Lisbon"}`)
	assert.False(t, call.IsFinalResponse())
	require.Len(t, call.GetFunctionCalls(), 1)
	assert.Equal(t, "get_forecast", call.GetFunctionCalls()[0].Name)

	resp := NewFunctionResponseEvent("WeatherAgent", "fc1", "get_forecast", map[string]any{"temp": 24.0}, nil)
	assert.False(t, resp.IsFinalResponse())
	require.Len(t, resp.GetFunctionResponses(), 1)
	assert.Empty(t, resp.GetFunctionResponses()[0].Error)

	failed := NewFunctionResponseEvent("WeatherAgent", "fc2", "get_forecast", nil, errors.New("upstream down"))
	assert.Equal(t, "upstream down", failed.GetFunctionResponses()[0].Error)
}

func TestEventPartialFiltering(t *testing.T) {
	sess := NewSession("sess-1")
	partial := true
	frag := NewMessageEvent("WeatherAgent", "Sun")
	frag.Partial = &partial
	sess.AddEvent(frag)
	sess.AddEvent(NewMessageEvent("WeatherAgent", "Sunny, 24 degrees."))
	sess.AddEvent(NewEvent("inv-1", "engine")) // control event, no content

	hist := sess.GetConversationHistory()
	require.Len(t, hist, 1)
	assert.Equal(t, "Sunny, 24 degrees.", hist[0].Text())
}

func TestSessionClone(t *testing.T) {
	sess := NewSession("sess-1")
	sess.SetState("destination", "Lisbon")

	clone := sess.Clone()
	clone.SetState("destination", "Porto")

	v, ok := sess.GetState("destination")
	require.True(t, ok)
	assert.Equal(t, "Lisbon", v)
}

func TestRunContextStateStaging(t *testing.T) {
	emit := make(chan Event, 4)
	rc := newTestRunContext(emit)

	rc.SetState("destination", "Lisbon")
	v, ok := rc.GetState("destination")
	require.True(t, ok)
	assert.Equal(t, "Lisbon", v)

	// Not yet persisted
	sess, err := rc.SessionStore.Get("sess-1")
	require.NoError(t, err)
	_, ok = sess.GetState("destination")
	assert.False(t, ok)

	require.NoError(t, rc.CommitStateDelta())
	assert.Empty(t, rc.StateDelta)

	sess, err = rc.SessionStore.Get("sess-1")
	require.NoError(t, err)
	v, ok = sess.GetState("destination")
	require.True(t, ok)
	assert.Equal(t, "Lisbon", v)
}

func TestRunContextEmitMergesDelta(t *testing.T) {
	emit := make(chan Event, 4)
	rc := newTestRunContext(emit)

	rc.SetState("trip_style", "relaxed")
	require.NoError(t, rc.EmitEvent(NewMessageEvent("TravelController", "Got it.")))

	ev := <-emit
	assert.Equal(t, "relaxed", ev.Actions.StateDelta["trip_style"])
	assert.Empty(t, rc.StateDelta)
}

func TestRunContextForAgent(t *testing.T) {
	emit := make(chan Event, 4)
	rc := newTestRunContext(emit)
	rc.SetState("pending", true)

	child := rc.ForAgent(AgentInfo{Name: "WeatherAgent", Type: "specialist"})
	assert.Equal(t, 1, child.TransferDepth)
	assert.Equal(t, "WeatherAgent", child.Agent.Name)
	assert.Empty(t, child.StateDelta)
	assert.Same(t, rc.Limiter, child.Limiter)
}

func TestToolContextTransfer(t *testing.T) {
	emit := make(chan Event, 4)
	rc := newTestRunContext(emit)
	tc := NewToolContext(rc, "fc-1")

	tc.TransferToAgent("BookingAgent")
	tc.SetState("last_request", "hotel in Lisbon")

	ev := NewEvent("inv-1", "TravelController")
	tc.InternalApplyActions(&ev)

	require.NotNil(t, ev.Actions.TransferToAgent)
	assert.Equal(t, "BookingAgent", *ev.Actions.TransferToAgent)
	assert.Equal(t, "hotel in Lisbon", ev.Actions.StateDelta["last_request"])
}

func TestModelLimiter(t *testing.T) {
	ml := NewModelLimiter(2)
	require.NoError(t, ml.Increment())
	require.NoError(t, ml.Increment())
	assert.Error(t, ml.Increment())
	assert.Equal(t, 3, ml.Count())

	unlimited := NewModelLimiter(0)
	for i := 0; i < 10; i++ {
		require.NoError(t, unlimited.Increment())
	}
	assert.Equal(t, -1, unlimited.Remaining())
}
