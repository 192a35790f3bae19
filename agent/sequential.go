package agent

import (
	"fmt"

	"github.com/tripmesh/tripmesh/core"
)

// SequentialAgent executes child agents in order, passing the accumulated
// session state between them. Each agent's output (via its output key)
// becomes available to subsequent agents, which suits staged travel planning
// pipelines: gather forecast, then places, then assemble the itinerary.
type SequentialAgent struct {
	BaseAgent
	children []core.Agent
}

// NewSequentialAgent creates a sequential execution coordinator over the
// given children.
func NewSequentialAgent(name string, children ...core.Agent) *SequentialAgent {
	return &SequentialAgent{
		BaseAgent: NewBaseAgent(name),
		children:  children,
	}
}

// Run implements core.Agent. It executes each child in order with the shared
// run context; the first error stops further processing.
func (s *SequentialAgent) Run(runCtx *core.RunContext) error {
	for _, child := range s.children {
		select {
		case <-runCtx.Done():
			return runCtx.Err()
		default:
		}

		if err := child.Run(runCtx); err != nil {
			return fmt.Errorf("sequential execution failed at agent %s: %w", child.Name(), err)
		}
	}

	return nil
}
