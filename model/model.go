// Package model defines the normalized request/response contract between
// TripMesh flows and LLM providers, plus a deterministic MockModel for tests.
package model

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tripmesh/tripmesh/core"
)

// ToolCall is a provider-agnostic function call request surfaced by a model.
type ToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"` // "function"
	Function ToolCallFunction `json:"function"`
}

// ToolCallFunction names the concrete function target of a tool call.
type ToolCallFunction struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes one tool exposed to the model. Parameters is a
// minimal JSON Schema object.
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request is the normalized model input produced by flows. Instructions are
// delivered to the provider as the system prompt.
type Request struct {
	Instructions string           `json:"instructions"`
	Contents     []core.Content   `json:"contents"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
	Stream       bool             `json:"stream,omitempty"`
}

// TokenUsage captures token accounting for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a partial or final chunk emitted by a model.
type Response struct {
	ID           string       `json:"id"`
	Partial      bool         `json:"partial"`
	Content      core.Content `json:"content"`
	FinishReason string       `json:"finish_reason"` // "stop", "length", "tool_calls", ...
	Usage        *TokenUsage  `json:"usage,omitempty"`
}

// Info describes a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"`
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface flows need to drive generation.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)
	Info() Info
}

// mockTurn is one canned reply: either text or a function call.
type mockTurn struct {
	text string
	call *core.FunctionCall
}

// MockModel is an in-memory Model with canned completions keyed by the last
// user/tool text in the request. Unknown prompts get an echo reply. Register
// a function call reply to exercise tool and handoff paths deterministically.
type MockModel struct {
	info  Info
	turns map[string]mockTurn
}

// NewMockModel constructs a MockModel with tool support enabled.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info:  Info{Name: name, Provider: provider, SupportsTools: true},
		turns: make(map[string]mockTurn),
	}
}

// AddResponse registers a canned text completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) {
	m.turns[prompt] = mockTurn{text: response}
}

// AddToolCall registers a canned function call for an input prompt.
func (m *MockModel) AddToolCall(prompt, callID, name, args string) {
	m.turns[prompt] = mockTurn{call: &core.FunctionCall{ID: callID, Name: name, Arguments: args}}
}

// Generate implements Model. In streaming mode it emits per-rune text
// fragments before the final response, mirroring real providers.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)

		if len(req.Contents) == 0 {
			errCh <- fmt.Errorf("no contents provided")
			return
		}

		inputText := lastTurnText(req.Contents)
		turn, ok := m.turns[inputText]
		if !ok {
			turn = mockTurn{text: fmt.Sprintf("Mock response to: %s", inputText)}
		}

		if turn.call != nil {
			respCh <- Response{
				Partial: false,
				Content: core.Content{
					Role:  "assistant",
					Parts: []core.Part{core.FunctionCallPart{FunctionCall: *turn.call}},
				},
				FinishReason: "tool_calls",
			}
			return
		}

		if req.Stream {
			for _, r := range turn.text {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case respCh <- Response{
					Partial: true,
					Content: core.Content{Role: "assistant", Parts: []core.Part{core.TextPart{Text: string(r)}}},
				}:
				}
			}
		}

		respCh <- Response{
			Partial:      false,
			Content:      core.Content{Role: "assistant", Parts: []core.Part{core.TextPart{Text: turn.text}}},
			FinishReason: "stop",
		}
	}()

	return respCh, errCh
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }

// lastTurnText returns the text of the last content entry, or for tool turns
// the stringified last function response. This keys canned mock replies.
func lastTurnText(contents []core.Content) string {
	last := contents[len(contents)-1]
	var text string
	for _, p := range last.Parts {
		switch part := p.(type) {
		case core.TextPart:
			text += part.Text
		case core.FunctionResponsePart:
			text += fmt.Sprintf("%v", part.FunctionResponse.Response)
		}
	}
	return text
}
