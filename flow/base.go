package flow

import (
	"fmt"

	"github.com/tripmesh/tripmesh/core"
	"github.com/tripmesh/tripmesh/model"
	"github.com/tripmesh/tripmesh/tool"
)

// BaseFlow implements the request -> model -> tool loop cycle with pluggable
// request/response processors. SingleAgentFlow and MultiAgentFlow compose it
// with different processor sets.
type BaseFlow struct {
	agent              FlowAgent
	requestProcessors  []RequestProcessor
	responseProcessors []ResponseProcessor
	executor           FunctionExecutor
}

// NewBaseFlow creates a flow for the agent with no processors registered.
func NewBaseFlow(agent FlowAgent) *BaseFlow {
	return &BaseFlow{
		agent:    agent,
		executor: NewParallelFunctionExecutor(FunctionExecutorConfig{}),
	}
}

// AddRequestProcessor appends a request processor; registration order defines
// execution order.
func (f *BaseFlow) AddRequestProcessor(p RequestProcessor) {
	f.requestProcessors = append(f.requestProcessors, p)
}

// AddResponseProcessor appends a response processor executed per model chunk.
func (f *BaseFlow) AddResponseProcessor(p ResponseProcessor) {
	f.responseProcessors = append(f.responseProcessors, p)
}

// SetFunctionExecutor overrides the default parallel tool executor.
func (f *BaseFlow) SetFunctionExecutor(e FunctionExecutor) { f.executor = e }

// Execute launches the flow asynchronously. The flow runs model turns until a
// final response is produced, a handoff is requested or an error occurs.
func (f *BaseFlow) Execute(runCtx *core.RunContext) (<-chan core.Event, <-chan error, error) {
	eventCh := make(chan core.Event, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(eventCh)
		defer close(errCh)

		emit := func(ev core.Event) error {
			select {
			case <-runCtx.Context.Done():
				return runCtx.Context.Err()
			case eventCh <- ev:
				return nil
			}
		}

		for {
			last, err := f.runOnce(runCtx, emit)
			if err != nil {
				errCh <- err
				return
			}
			if last == nil {
				return
			}
			if last.Actions.TransferToAgent != nil {
				// Turn ends here; the engine resumes with the target agent.
				return
			}
			if len(last.GetFunctionResponses()) > 0 {
				// Tool results feed the next model turn.
				continue
			}
			return
		}
	}()

	return eventCh, errCh, nil
}

// runOnce performs one model turn including any tool executions and returns
// the last emitted event. A nil event signals termination without output.
func (f *BaseFlow) runOnce(runCtx *core.RunContext, emit func(core.Event) error) (*core.Event, error) {
	// Pick up events persisted since the previous turn (tool responses in
	// particular) so processors see the full conversation.
	if err := runCtx.RefreshSession(); err != nil {
		runCtx.LogWarn("flow.session.refresh_failed", "session_id", runCtx.SessionID, "error", err.Error())
	}

	req := &model.Request{Stream: f.agent.IsStreamingEnabled()}

	for _, p := range f.requestProcessors {
		if err := p.ProcessRequest(runCtx, req, f.agent); err != nil {
			return nil, fmt.Errorf("request processor %s: %w", p.Name(), err)
		}
	}

	if f.agent.IsFunctionCallingEnabled() {
		req.Tools = appendToolDefinitions(req.Tools, f.agent.GetTools())
	}

	if err := runCtx.Limiter.Increment(); err != nil {
		return nil, err
	}

	respCh, modelErrCh := f.agent.GetLLM().Generate(runCtx.Context, *req)

	var last *core.Event

	for respCh != nil || modelErrCh != nil {
		select {
		case resp, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}

			for _, p := range f.responseProcessors {
				if err := p.ProcessResponse(runCtx, &resp, f.agent); err != nil {
					return nil, fmt.Errorf("response processor %s: %w", p.Name(), err)
				}
			}

			ev := core.NewEvent(runCtx.InvocationID, f.agent.GetName())
			content := resp.Content
			partial := resp.Partial
			ev.Content = &content
			ev.Partial = &partial

			if !partial && len(ev.GetFunctionCalls()) == 0 {
				complete := true
				ev.TurnComplete = &complete
				if key := f.agent.GetOutputKey(); key != "" {
					runCtx.SetState(key, content.Text())
				}
			}

			last = &ev
			if err := emit(ev); err != nil {
				return last, err
			}

			if !partial {
				if err := runCtx.WaitForResume(); err != nil {
					return last, err
				}
			}

			if fnCalls := ev.GetFunctionCalls(); len(fnCalls) > 0 {
				merged := f.executor.Execute(runCtx, f.agent, f.agent.GetTools(), fnCalls)
				last = &merged
				if err := emit(merged); err != nil {
					return last, err
				}
				if err := runCtx.WaitForResume(); err != nil {
					return last, err
				}
			}

		case err, ok := <-modelErrCh:
			if !ok {
				modelErrCh = nil
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("model generation: %w", err)
			}
		}
	}

	return last, nil
}

// appendToolDefinitions converts the registry to wire definitions, skipping
// names already present (e.g. an injected transfer definition).
func appendToolDefinitions(defs []model.ToolDefinition, registry map[string]tool.Tool) []model.ToolDefinition {
	seen := make(map[string]bool, len(defs))
	for _, d := range defs {
		seen[d.Function.Name] = true
	}
	for _, t := range registry {
		if seen[t.Name()] {
			continue
		}
		seen[t.Name()] = true
		defs = append(defs, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}
