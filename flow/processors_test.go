package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripmesh/tripmesh/core"
	"github.com/tripmesh/tripmesh/model"
	"github.com/tripmesh/tripmesh/session"
)

type templatedAgent struct{ mockFlowAgent }

func (a *templatedAgent) ResolveInstructions(*core.RunContext) (string, error) {
	return "Plan trips to {{.destination}}.", nil
}

func TestInstructionsProcessorRendersState(t *testing.T) {
	store := session.NewInMemoryStore()
	resume := make(chan struct{})
	runCtx := newFlowRunContext(t, store, "hi", resume)
	runCtx.Session.SetState("destination", "Lisbon")

	req := &model.Request{}
	agent := &templatedAgent{mockFlowAgent{name: "TripAgent"}}
	require.NoError(t, NewInstructionsProcessor().ProcessRequest(runCtx, req, agent))
	assert.Equal(t, "Plan trips to Lisbon.", req.Instructions)
}

func TestContentsProcessorCapsHistory(t *testing.T) {
	store := session.NewInMemoryStore()
	resume := make(chan struct{})
	runCtx := newFlowRunContext(t, store, "first message", resume)

	for i := 0; i < 30; i++ {
		require.NoError(t, store.AppendEvent("sess-1", core.NewMessageEvent("TripAgent", "reply")))
	}
	require.NoError(t, runCtx.RefreshSession())

	req := &model.Request{}
	agent := &mockFlowAgent{name: "TripAgent"} // MaxHistoryMessages is 20
	require.NoError(t, NewContentsProcessor().ProcessRequest(runCtx, req, agent))
	assert.Len(t, req.Contents, 20)
}

func TestContentsProcessorFallsBackToUserContent(t *testing.T) {
	store := session.NewInMemoryStore()
	sess, err := store.Create("sess-empty")
	require.NoError(t, err)

	runCtx := core.NewRunContext(core.RunContextParams{
		Context:      t.Context(),
		SessionID:    "sess-empty",
		InvocationID: "inv-1",
		Agent:        core.AgentInfo{Name: "TripAgent", Type: "model"},
		UserContent:  core.NewUserContent("hello there"),
		Emit:         make(chan core.Event, 1),
		Session:      sess,
		SessionStore: store,
	})

	req := &model.Request{}
	require.NoError(t, NewContentsProcessor().ProcessRequest(runCtx, req, &mockFlowAgent{name: "TripAgent"}))
	require.Len(t, req.Contents, 1)
	assert.Equal(t, "hello there", req.Contents[0].Text())
}
