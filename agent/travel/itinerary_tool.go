package travel

import (
	"fmt"
	"strings"
	"time"

	"github.com/tripmesh/tripmesh/core"
	"github.com/tripmesh/tripmesh/tool"
)

// newSaveItineraryTool archives a rendered itinerary as a session artifact so
// the gateway can list and serve it after the conversation moves on.
func newSaveItineraryTool() tool.Tool {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"destination": map[string]any{
				"type":        "string",
				"description": "Destination the itinerary covers",
			},
			"itinerary": map[string]any{
				"type":        "string",
				"description": "The full rendered itinerary text",
			},
		},
		"required": []string{"destination", "itinerary"},
	}

	return tool.NewFunctionTool(
		"save_itinerary",
		"Archive a finished itinerary so the traveler can retrieve it later.",
		params,
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			destination, _ := args["destination"].(string)
			itinerary, _ := args["itinerary"].(string)
			if strings.TrimSpace(itinerary) == "" {
				return nil, fmt.Errorf("missing 'itinerary' text")
			}

			id := fmt.Sprintf("itinerary-%s-%s", slugify(destination), time.Now().UTC().Format("20060102T150405"))
			if err := tc.SaveArtifact(id, []byte(itinerary)); err != nil {
				return nil, err
			}
			return map[string]any{"saved": true, "artifact_id": id}, nil
		},
	)
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	if b.Len() == 0 {
		return "trip"
	}
	return b.String()
}
