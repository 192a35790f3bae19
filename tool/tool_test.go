package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripmesh/tripmesh/core"
	"github.com/tripmesh/tripmesh/internal/util"
	"github.com/tripmesh/tripmesh/logging"
	"github.com/tripmesh/tripmesh/memory"
	"github.com/tripmesh/tripmesh/session"
)

type forecastArgs struct {
	Location string `json:"location" description:"City or place name"`
	Days     *int   `json:"days" description:"Forecast days"`
	Units    string `json:"units,omitempty" description:"Unit system"`
}

func TestCreateSchemaFromStruct(t *testing.T) {
	schema := util.CreateSchema(forecastArgs{})
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "location")
	assert.Contains(t, props, "days")
	assert.Contains(t, props, "units")

	req, _ := schema["required"].([]string)
	assert.ElementsMatch(t, []string{"location"}, req)
}

func testToolContext(t *testing.T, fcID string) *core.ToolContext {
	t.Helper()
	store := session.NewInMemoryStore()
	sess, err := store.Create("sess-1")
	require.NoError(t, err)

	emit := make(chan core.Event, 10)
	rc := core.NewRunContext(core.RunContextParams{
		Context:      context.Background(),
		SessionID:    "sess-1",
		InvocationID: "inv-1",
		Agent:        core.AgentInfo{Name: "WeatherAgent", Type: "specialist"},
		UserContent:  core.NewUserContent("forecast for Lisbon"),
		Emit:         emit,
		Session:      sess,
		SessionStore: store,
		MemoryStore:  memory.NewInMemoryStore(),
		Logger:       logging.NoOpLogger{},
	})
	return core.NewToolContext(rc, fcID)
}

func TestFunctionToolSuccess(t *testing.T) {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "number"},
			"b": map[string]any{"type": "number"},
		},
		"required": []string{"a", "b"},
	}
	sum := NewFunctionTool("sum", "Add numbers", params, func(_ *core.ToolContext, args map[string]any) (any, error) {
		return args["a"].(float64) + args["b"].(float64), nil
	})

	result, err := sum.Call(testToolContext(t, "fc1"), map[string]any{"a": 2.0, "b": 3.0})
	require.NoError(t, err)
	assert.Equal(t, 5.0, result)
}

func TestFunctionToolValidationError(t *testing.T) {
	tl := NewFunctionToolFromStruct("probe", "Probe", forecastArgs{}, func(_ *core.ToolContext, _ map[string]any) (any, error) {
		return nil, nil
	})

	_, err := tl.Call(testToolContext(t, "fc2"), map[string]any{})
	require.Error(t, err)
	toolErr, ok := err.(*ToolError)
	require.True(t, ok)
	assert.Equal(t, "VALIDATION_ERROR", toolErr.Code)
}

func TestFunctionToolExecutionError(t *testing.T) {
	params := map[string]any{"type": "object", "properties": map[string]any{}}
	failing := NewFunctionTool("fail", "Fails", params, func(_ *core.ToolContext, _ map[string]any) (any, error) {
		return nil, errors.New("upstream down")
	})

	_, err := failing.Call(testToolContext(t, "fc3"), map[string]any{})
	require.Error(t, err)
	toolErr, ok := err.(*ToolError)
	require.True(t, ok)
	assert.Equal(t, "EXECUTION_ERROR", toolErr.Code)
}

func TestFunctionToolForwardsToolError(t *testing.T) {
	params := map[string]any{"type": "object", "properties": map[string]any{}}
	custom := NewFunctionTool("custom", "Custom code", params, func(_ *core.ToolContext, _ map[string]any) (any, error) {
		return nil, NewToolError("custom", "rate limited", "RATE_LIMITED")
	})

	_, err := custom.Call(testToolContext(t, "fc4"), map[string]any{})
	toolErr, ok := err.(*ToolError)
	require.True(t, ok)
	assert.Equal(t, "RATE_LIMITED", toolErr.Code)
}

func TestTransferToAgentTool(t *testing.T) {
	transfer := NewTransferToAgentTool()
	tc := testToolContext(t, "fc5")

	result, err := transfer.Call(tc, map[string]any{"agent": "BookingAgent"})
	require.NoError(t, err)
	m := result.(map[string]any)
	assert.Equal(t, "BookingAgent", m["agent"])

	require.NotNil(t, tc.Actions().TransferToAgent)
	assert.Equal(t, "BookingAgent", *tc.Actions().TransferToAgent)

	_, err = transfer.Call(testToolContext(t, "fc6"), map[string]any{"agent": ""})
	assert.Error(t, err)
}

func TestPreferenceToolRememberRecall(t *testing.T) {
	pref := NewPreferenceTool()
	tc := testToolContext(t, "fc7")

	_, err := pref.Call(tc, map[string]any{"operation": "remember", "note": "prefers boutique hotels"})
	require.NoError(t, err)

	result, err := pref.Call(tc, map[string]any{"operation": "recall", "query": "hotels"})
	require.NoError(t, err)
	m := result.(map[string]any)
	assert.Contains(t, m["preferences"].([]string), "prefers boutique hotels")

	_, err = pref.Call(tc, map[string]any{"operation": "forget"})
	assert.Error(t, err)
}

func TestToolErrorFormatting(t *testing.T) {
	err := NewToolError("demo", "something failed", "E123")
	assert.Contains(t, err.Error(), "E123")
	assert.Contains(t, err.Error(), "demo")
}
