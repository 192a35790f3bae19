package tool

import (
	"fmt"

	"github.com/tripmesh/tripmesh/core"
)

// preferenceTool lets agents remember and recall traveler preferences
// (favorite destinations, budget, dietary constraints) across turns via the
// session MemoryStore.
type preferenceTool struct{}

// NewPreferenceTool constructs the traveler preference tool.
func NewPreferenceTool() Tool { return &preferenceTool{} }

func (t *preferenceTool) Name() string { return "traveler_preferences" }

func (t *preferenceTool) Description() string {
	return "Remember or recall traveler preferences such as budget, trip style or favorite destinations. Operations: remember, recall."
}

func (t *preferenceTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"operation": map[string]any{"type": "string", "description": "remember or recall"},
			"note":      map[string]any{"type": "string", "description": "Preference to remember (for remember)"},
			"query":     map[string]any{"type": "string", "description": "What to recall (for recall)"},
		},
		"required": []string{"operation"},
	}
}

func (t *preferenceTool) Call(tc *core.ToolContext, args map[string]any) (any, error) {
	op, _ := args["operation"].(string)
	switch op {
	case "remember":
		note, _ := args["note"].(string)
		if note == "" {
			return nil, fmt.Errorf("missing 'note' for remember operation")
		}
		if err := tc.StoreMemory(note, map[string]any{"kind": "preference"}); err != nil {
			return nil, err
		}
		return map[string]any{"remembered": true}, nil
	case "recall":
		query, _ := args["query"].(string)
		results, err := tc.SearchMemory(query, 10)
		if err != nil {
			return nil, err
		}
		notes := make([]string, 0, len(results))
		for _, r := range results {
			notes = append(notes, r.Content)
		}
		return map[string]any{"preferences": notes}, nil
	default:
		return nil, fmt.Errorf("unknown operation %q", op)
	}
}
