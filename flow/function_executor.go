package flow

import (
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/tripmesh/tripmesh/core"
	"github.com/tripmesh/tripmesh/tool"
)

// FunctionExecutor executes a batch of tool calls requested in a single model
// turn and merges the results into one function response event.
// Implementations must:
//   - Respect runCtx.Context cancellation
//   - Never panic (recover internally and report an error response)
//   - Produce exactly one FunctionResponse part per incoming FunctionCall,
//     in the original call order
//   - Merge accumulated ToolContext actions into the returned event
type FunctionExecutor interface {
	Execute(runCtx *core.RunContext, agent FlowAgent, registry map[string]tool.Tool, fnCalls []core.FunctionCall) core.Event
}

// FunctionExecutorConfig configures the default parallel executor.
type FunctionExecutorConfig struct {
	MaxParallel    int  // 0 or <1 means no explicit limit
	LogStartEvents bool // log a start line per function
}

// parallelFunctionExecutor is the default implementation.
type parallelFunctionExecutor struct {
	cfg FunctionExecutorConfig
}

// NewParallelFunctionExecutor constructs an executor with the given config.
func NewParallelFunctionExecutor(cfg FunctionExecutorConfig) FunctionExecutor {
	return &parallelFunctionExecutor{cfg: cfg}
}

type fnResult struct {
	part    core.FunctionResponsePart
	toolCtx *core.ToolContext
}

func (e *parallelFunctionExecutor) Execute(
	runCtx *core.RunContext,
	agent FlowAgent,
	registry map[string]tool.Tool,
	fnCalls []core.FunctionCall,
) core.Event {
	n := len(fnCalls)
	results := make([]fnResult, n)

	if n == 1 {
		results[0] = e.runOne(runCtx, agent, registry, fnCalls[0])
		return mergeResults(runCtx, agent, results)
	}

	maxPar := e.cfg.MaxParallel
	if maxPar <= 0 || maxPar > n {
		maxPar = n
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, maxPar)

	batchStart := time.Now()
	for i := range fnCalls {
		if runCtx.Context.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, fc core.FunctionCall) {
			defer wg.Done()
			defer func() { <-sem }()
			results[idx] = e.runOne(runCtx, agent, registry, fc)
		}(i, fnCalls[i])
	}
	wg.Wait()

	runCtx.LogDebug(
		"flow.functions.batch.complete",
		"agent", agent.GetName(),
		"count", n,
		"parallelism", maxPar,
		"duration_ms", time.Since(batchStart).Milliseconds(),
	)

	return mergeResults(runCtx, agent, results)
}

// runOne executes a single call with panic safety and returns its response
// part plus the tool context carrying accumulated actions.
func (e *parallelFunctionExecutor) runOne(
	runCtx *core.RunContext,
	agent FlowAgent,
	registry map[string]tool.Tool,
	fc core.FunctionCall,
) fnResult {
	toolCtx := core.NewToolContext(runCtx, fc.ID)
	if e.cfg.LogStartEvents {
		runCtx.LogInfo("flow.function.start", "agent", agent.GetName(), "function", fc.Name, "function_call_id", fc.ID)
	}

	start := time.Now()
	var (
		result any
		err    error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = panicError(r)
				runCtx.LogError("flow.function.panic", "agent", agent.GetName(), "function", fc.Name, "recover", r)
			}
		}()
		result, err = executeTool(registry, agent, toolCtx, fc.Name, fc.Arguments)
	}()

	runCtx.LogInfo(
		"flow.function.executed",
		"agent", agent.GetName(),
		"function", fc.Name,
		"duration_ms", time.Since(start).Milliseconds(),
		"error", err != nil,
	)

	fr := core.FunctionResponse{ID: fc.ID, Name: fc.Name, Response: result}
	if err != nil {
		fr.Error = err.Error()
	}
	return fnResult{part: core.FunctionResponsePart{FunctionResponse: fr}, toolCtx: toolCtx}
}

// mergeResults folds all response parts and tool actions into one event.
func mergeResults(runCtx *core.RunContext, agent FlowAgent, results []fnResult) core.Event {
	ev := core.NewEvent(runCtx.InvocationID, agent.GetName())
	parts := make([]core.Part, 0, len(results))
	for _, r := range results {
		if r.toolCtx == nil { // cancelled before start
			continue
		}
		parts = append(parts, r.part)
	}
	ev.Content = &core.Content{Role: "tool", Parts: parts}
	for _, r := range results {
		if r.toolCtx != nil {
			r.toolCtx.InternalApplyActions(&ev)
		}
	}
	return ev
}

// panicError converts a recovered panic value to an error.
func panicError(r any) error { return &panicErr{val: r, stack: debug.Stack()} }

type panicErr struct {
	val   any
	stack []byte
}

func (p *panicErr) Error() string { return fmt.Sprintf("panic recovered: %v", p.val) }

// executeTool resolves the tool from the registry and invokes it. The
// transfer tool is resolved implicitly for transfer-enabled agents since its
// definition is injected rather than registered.
func executeTool(registry map[string]tool.Tool, agent FlowAgent, toolCtx *core.ToolContext, toolName, args string) (any, error) {
	impl, ok := registry[toolName]
	if !ok {
		if toolName == TransferToolName && agent.IsTransferEnabled() {
			impl = tool.NewTransferToAgentTool()
		} else {
			return nil, fmt.Errorf("tool %s not found", toolName)
		}
	}

	var argMap map[string]any
	if args == "" {
		argMap = map[string]any{}
	} else if err := json.Unmarshal([]byte(args), &argMap); err != nil {
		return nil, fmt.Errorf("unmarshal args: %w", err)
	}

	return impl.Call(toolCtx, argMap)
}
