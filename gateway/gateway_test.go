package gateway

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripmesh/tripmesh/agent"
	"github.com/tripmesh/tripmesh/engine"
	"github.com/tripmesh/tripmesh/flow"
	"github.com/tripmesh/tripmesh/model"
)

func newTestGateway(t *testing.T) (*Gateway, *engine.Engine) {
	t.Helper()
	llm := model.NewMockModel("test-model", "mock")
	llm.AddResponse("plan a trip to Lisbon", "Here is your Lisbon plan.")

	root := agent.NewModelAgent("ControllerAgent", llm, func(o *agent.ModelAgentOptions) {
		o.EnableStreaming = false
		o.AllowTransfer = false
	})

	eng := engine.New()
	eng.Register(root)
	return New(eng, "ControllerAgent"), eng
}

func postChat(t *testing.T, g *Gateway, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/chat", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := g.App().Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestChatEndpoint(t *testing.T) {
	g, _ := newTestGateway(t)

	resp := postChat(t, g, `{"session_id":"sess-1","message":"plan a trip to Lisbon"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out chatResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "sess-1", out.SessionID)
	assert.NotEmpty(t, out.RunID)
	assert.Equal(t, "Here is your Lisbon plan.", out.Reply)
}

func TestChatGeneratesSessionID(t *testing.T) {
	g, _ := newTestGateway(t)

	resp := postChat(t, g, `{"message":"plan a trip to Lisbon"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out chatResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.NotEmpty(t, out.SessionID)
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	g, _ := newTestGateway(t)
	resp := postChat(t, g, `{"session_id":"sess-1"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChatRejectsBadJSON(t *testing.T) {
	g, _ := newTestGateway(t)
	resp := postChat(t, g, `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChatUnknownAgentIsUpstreamError(t *testing.T) {
	eng := engine.New()
	g := New(eng, "MissingAgent")

	resp := postChat(t, g, `{"session_id":"s","message":"hi"}`)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestChatPicksFinalEventOverStreamedFragments(t *testing.T) {
	llm := model.NewMockModel("test-model", "mock")
	llm.AddResponse("plan a trip to Lisbon", "Here is your Lisbon plan.")

	root := agent.NewModelAgent("ControllerAgent", llm, func(o *agent.ModelAgentOptions) {
		o.AllowTransfer = false
	})

	eng := engine.New()
	eng.Register(root)
	g := New(eng, "ControllerAgent")

	resp := postChat(t, g, `{"session_id":"sess-stream","message":"plan a trip to Lisbon"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out chatResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "Here is your Lisbon plan.", out.Reply)
}

func TestChatSurvivesHandoffControlEvents(t *testing.T) {
	llm := model.NewMockModel("test-model", "mock")
	llm.AddToolCall("which days are sunny in Porto?", "call-1", flow.TransferToolName, `{"agent":"WeatherAgent"}`)
	llm.AddResponse("map[agent:WeatherAgent transferred:true]", "Saturday looks sunny in Porto.")

	root := agent.NewModelAgent("ControllerAgent", llm, func(o *agent.ModelAgentOptions) {
		o.EnableStreaming = false
	})
	weather := agent.NewModelAgent("WeatherAgent", llm, func(o *agent.ModelAgentOptions) {
		o.EnableStreaming = false
	})
	require.NoError(t, root.SetSubAgents(weather))

	eng := engine.New()
	eng.Register(root)
	g := New(eng, "ControllerAgent")

	resp := postChat(t, g, `{"session_id":"sess-handoff","message":"which days are sunny in Porto?"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out chatResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "Saturday looks sunny in Porto.", out.Reply)
}

func TestSessionHistory(t *testing.T) {
	g, _ := newTestGateway(t)
	postChat(t, g, `{"session_id":"sess-2","message":"plan a trip to Lisbon"}`)

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/sess-2", nil)
	resp, err := g.App().Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		SessionID string         `json:"session_id"`
		History   []historyEntry `json:"history"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.History, 2)
	assert.Equal(t, "user", out.History[0].Author)
	assert.Equal(t, "plan a trip to Lisbon", out.History[0].Text)
	assert.Equal(t, "ControllerAgent", out.History[1].Author)
}

func TestItinerariesListing(t *testing.T) {
	g, eng := newTestGateway(t)
	require.NoError(t, eng.ArtifactStore().Save("sess-3", "itinerary-1", []byte(`{"destination":"Lisbon"}`)))

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/sess-3/itineraries", nil)
	resp, err := g.App().Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Itineraries []string `json:"itineraries"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, []string{"itinerary-1"}, out.Itineraries)

	req = httptest.NewRequest(http.MethodGet, "/v1/sessions/sess-3/itineraries/itinerary-1", nil)
	resp, err = g.App().Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"destination":"Lisbon"}`, string(body))

	req = httptest.NewRequest(http.MethodGet, "/v1/sessions/sess-3/itineraries/missing", nil)
	resp, err = g.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	g, _ := newTestGateway(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, err := g.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	g, _ := newTestGateway(t)
	postChat(t, g, `{"session_id":"sess-m","message":"plan a trip to Lisbon"}`)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := g.App().Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "tripmesh_gateway_requests_total")
	assert.Contains(t, string(body), "tripmesh_gateway_chat_duration_seconds")
}
