package flow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripmesh/tripmesh/core"
	"github.com/tripmesh/tripmesh/session"
	"github.com/tripmesh/tripmesh/tool"
)

// feMockTool is a scriptable tool for executor tests.
type feMockTool struct {
	name        string
	delay       time.Duration
	result      any
	err         error
	panics      bool
	actionState map[string]any
	transferTo  string
}

func (t *feMockTool) Name() string                { return t.name }
func (t *feMockTool) Description() string         { return "test tool " + t.name }
func (t *feMockTool) Parameters() map[string]any  { return map[string]any{"type": "object"} }
func (t *feMockTool) Call(tc *core.ToolContext, _ map[string]any) (any, error) {
	if t.delay > 0 {
		time.Sleep(t.delay)
	}
	if t.panics {
		panic("boom")
	}
	for k, v := range t.actionState {
		tc.SetState(k, v)
	}
	if t.transferTo != "" {
		tc.TransferToAgent(t.transferTo)
	}
	return t.result, t.err
}

func newExecutorRunContext(t *testing.T) *core.RunContext {
	t.Helper()
	store := session.NewInMemoryStore()
	sess, err := store.Create("sess-1")
	require.NoError(t, err)
	return core.NewRunContext(core.RunContextParams{
		Context:      context.Background(),
		SessionID:    "sess-1",
		InvocationID: "inv-1",
		Agent:        core.AgentInfo{Name: "TestAgent", Type: "model"},
		UserContent:  core.NewUserContent("hi"),
		Emit:         make(chan core.Event, 10),
		Session:      sess,
		SessionStore: store,
	})
}

func TestExecutorMergesResponsesInCallOrder(t *testing.T) {
	tools := map[string]tool.Tool{
		"slow": &feMockTool{name: "slow", delay: 30 * time.Millisecond, result: "r1", actionState: map[string]any{"a": 1}},
		"fast": &feMockTool{name: "fast", delay: 5 * time.Millisecond, result: "r2", transferTo: "PlacesAgent"},
	}
	agent := &mockFlowAgent{name: "TestAgent", tools: tools}
	exec := NewParallelFunctionExecutor(FunctionExecutorConfig{})

	calls := []core.FunctionCall{
		{ID: "fc1", Name: "slow", Arguments: "{}"},
		{ID: "fc2", Name: "fast", Arguments: "{}"},
	}
	ev := exec.Execute(newExecutorRunContext(t), agent, tools, calls)

	responses := ev.GetFunctionResponses()
	require.Len(t, responses, 2)
	assert.Equal(t, "slow", responses[0].Name)
	assert.Equal(t, "fast", responses[1].Name)
	assert.Equal(t, "r1", responses[0].Response)
	assert.Equal(t, "r2", responses[1].Response)

	assert.Equal(t, 1, ev.Actions.StateDelta["a"])
	require.NotNil(t, ev.Actions.TransferToAgent)
	assert.Equal(t, "PlacesAgent", *ev.Actions.TransferToAgent)
}

func TestExecutorRecoversPanic(t *testing.T) {
	tools := map[string]tool.Tool{
		"bad": &feMockTool{name: "bad", panics: true},
	}
	agent := &mockFlowAgent{name: "TestAgent", tools: tools}
	exec := NewParallelFunctionExecutor(FunctionExecutorConfig{})

	ev := exec.Execute(newExecutorRunContext(t), agent, tools, []core.FunctionCall{{ID: "fc1", Name: "bad", Arguments: "{}"}})

	responses := ev.GetFunctionResponses()
	require.Len(t, responses, 1)
	assert.Contains(t, responses[0].Error, "panic recovered")
}

func TestExecutorUnknownTool(t *testing.T) {
	agent := &mockFlowAgent{name: "TestAgent"}
	exec := NewParallelFunctionExecutor(FunctionExecutorConfig{})

	ev := exec.Execute(newExecutorRunContext(t), agent, map[string]tool.Tool{}, []core.FunctionCall{{ID: "fc1", Name: "missing", Arguments: "{}"}})

	responses := ev.GetFunctionResponses()
	require.Len(t, responses, 1)
	assert.Contains(t, responses[0].Error, "not found")
}

func TestExecutorResolvesTransferImplicitly(t *testing.T) {
	agent := &mockFlowAgent{name: "Controller", transfer: true}
	exec := NewParallelFunctionExecutor(FunctionExecutorConfig{})

	calls := []core.FunctionCall{{ID: "fc1", Name: TransferToolName, Arguments: `{"agent":"BookingAgent"}`}}
	ev := exec.Execute(newExecutorRunContext(t), agent, map[string]tool.Tool{}, calls)

	responses := ev.GetFunctionResponses()
	require.Len(t, responses, 1)
	assert.Empty(t, responses[0].Error)
	require.NotNil(t, ev.Actions.TransferToAgent)
	assert.Equal(t, "BookingAgent", *ev.Actions.TransferToAgent)
}

func TestExecutorRespectsMaxParallel(t *testing.T) {
	tools := map[string]tool.Tool{
		"t1": &feMockTool{name: "t1", delay: 10 * time.Millisecond, result: "r1"},
		"t2": &feMockTool{name: "t2", delay: 10 * time.Millisecond, result: "r2"},
		"t3": &feMockTool{name: "t3", delay: 10 * time.Millisecond, result: "r3"},
	}
	agent := &mockFlowAgent{name: "TestAgent", tools: tools}
	exec := NewParallelFunctionExecutor(FunctionExecutorConfig{MaxParallel: 1})

	calls := []core.FunctionCall{
		{ID: "fc1", Name: "t1", Arguments: "{}"},
		{ID: "fc2", Name: "t2", Arguments: "{}"},
		{ID: "fc3", Name: "t3", Arguments: "{}"},
	}
	ev := exec.Execute(newExecutorRunContext(t), agent, tools, calls)
	require.Len(t, ev.GetFunctionResponses(), 3)
}
