package agent

import (
	"fmt"
	"sync"

	"github.com/tripmesh/tripmesh/core"
)

// ParallelAgent runs child agents concurrently, each in an isolated branch
// context so pending state deltas do not interleave. Useful for independent
// lookups that feed one reply, like fetching weather and nearby places for
// the same destination at once.
type ParallelAgent struct {
	BaseAgent
	children []core.Agent
}

// NewParallelAgent creates a concurrent execution coordinator over the given
// children.
func NewParallelAgent(name string, children ...core.Agent) *ParallelAgent {
	return &ParallelAgent{
		BaseAgent: NewBaseAgent(name),
		children:  children,
	}
}

// branchCtxFor forks the run context with a hierarchical branch path
// ("Parent.Child") so each child accumulates deltas independently.
func (p *ParallelAgent) branchCtxFor(runCtx *core.RunContext, subAgent core.Agent) *core.RunContext {
	suffix := fmt.Sprintf("%s.%s", p.Name(), subAgent.Name())
	return runCtx.ForBranch(buildBranchPath(runCtx.Branch, suffix))
}

// Run implements core.Agent. All children run concurrently; siblings continue
// even if one fails and the first error is returned after all complete.
func (p *ParallelAgent) Run(runCtx *core.RunContext) error {
	var wg sync.WaitGroup
	errCh := make(chan error, len(p.children))

	for _, child := range p.children {
		wg.Add(1)
		go func(c core.Agent) {
			defer wg.Done()

			branchCtx := p.branchCtxFor(runCtx, c)
			if err := c.Run(branchCtx); err != nil {
				errCh <- fmt.Errorf("parallel execution failed for agent %s: %w", c.Name(), err)
			}
		}(child)
	}

	wg.Wait()
	close(errCh)

	if len(errCh) > 0 {
		return <-errCh
	}

	return nil
}
