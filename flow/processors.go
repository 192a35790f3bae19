package flow

import (
	"fmt"

	"github.com/tripmesh/tripmesh/core"
	internalutil "github.com/tripmesh/tripmesh/internal/util"
	"github.com/tripmesh/tripmesh/model"
)

// InstructionsProcessor resolves the agent's instruction source into the
// request's system prompt, applying template substitution against session
// state so prompts can reference keys like {{.destination}}.
type InstructionsProcessor struct{}

// NewInstructionsProcessor creates a new instructions processor.
func NewInstructionsProcessor() *InstructionsProcessor { return &InstructionsProcessor{} }

// Name returns the processor's identifier.
func (p *InstructionsProcessor) Name() string { return "instructions" }

// ProcessRequest sets req.Instructions from the agent's resolved prompt.
func (p *InstructionsProcessor) ProcessRequest(runCtx *core.RunContext, req *model.Request, agent FlowAgent) error {
	instructions, err := agent.ResolveInstructions(runCtx)
	if err != nil {
		return fmt.Errorf("resolve instructions: %w", err)
	}

	runCtx.LogDebug("flow.instructions.resolved", "agent", agent.GetName(), "length", len(instructions))

	if runCtx.Session != nil {
		rendered, err := internalutil.RenderTemplate(instructions, runCtx.Session.Clone().State)
		if err != nil {
			return fmt.Errorf("render instructions template: %w", err)
		}
		req.Instructions = rendered
		return nil
	}

	req.Instructions = instructions
	return nil
}

// ContentsProcessor assembles the conversation contents for the request from
// session history, capped at the agent's history limit. When no history
// exists yet (e.g. isolated flow execution) the run's user content is used.
type ContentsProcessor struct{}

// NewContentsProcessor creates a new contents processor.
func NewContentsProcessor() *ContentsProcessor { return &ContentsProcessor{} }

// Name returns the processor's identifier.
func (p *ContentsProcessor) Name() string { return "contents" }

// ProcessRequest fills req.Contents with the capped conversation history.
func (p *ContentsProcessor) ProcessRequest(runCtx *core.RunContext, req *model.Request, agent FlowAgent) error {
	var events []core.Event
	if runCtx.Session != nil {
		events = runCtx.Session.GetConversationHistory()
	}
	if max := agent.MaxHistoryMessages(); max > 0 && len(events) > max {
		events = events[len(events)-max:]
	}

	contents := make([]core.Content, 0, len(events)+1)
	for _, ev := range events {
		if ev.Content != nil && len(ev.Content.Parts) > 0 {
			contents = append(contents, *ev.Content)
		}
	}

	if len(contents) == 0 && len(runCtx.UserContent.Parts) > 0 {
		contents = append(contents, runCtx.UserContent)
	}

	req.Contents = contents
	return nil
}
