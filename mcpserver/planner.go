package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tripmesh/tripmesh/travel/planner"
)

type planTripInput struct {
	Destination string `json:"destination" jsonschema:"city or place name"`
	Duration    string `json:"duration,omitempty" jsonschema:"day count (1-30) or preset: weekend, short, week, extended, month"`
	Style       string `json:"style,omitempty" jsonschema:"trip style: relaxed, balanced, adventure, cultural or food_focused"`
	Budget      string `json:"budget,omitempty" jsonschema:"budget tier: budget, mid_range or luxury"`
}

type optimalDatesInput struct {
	Destination string `json:"destination" jsonschema:"city or place name"`
	Duration    string `json:"duration,omitempty" jsonschema:"day count (1-30) or preset name"`
}

// NewPlannerServer exposes the trip planner as MCP tools. The planner
// composes the weather, places and booking services in-process.
func NewPlannerServer(svc *planner.Service, opts Options) *Server {
	s := newServer("tripmesh-planner", DefaultPlannerPort, opts)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "plan_trip",
		Description: "Build a day-by-day itinerary with weather-optimal dates, places and an accommodation suggestion",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in planTripInput) (*mcp.CallToolResult, struct{}, error) {
		plan, err := svc.PlanTrip(ctx, planner.PlanRequest{
			Destination: in.Destination,
			Duration:    in.Duration,
			Style:       in.Style,
			Budget:      in.Budget,
		})
		if err != nil {
			return errResult(err), struct{}{}, nil
		}
		res, err := jsonResult(plan)
		return res, struct{}{}, err
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "select_optimal_dates",
		Description: "Best consecutive travel dates within the 14-day forecast window",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in optimalDatesInput) (*mcp.CallToolResult, struct{}, error) {
		duration, err := planner.ParseDuration(in.Duration)
		if err != nil {
			return errResult(err), struct{}{}, nil
		}
		loc, err := svc.Geocode(ctx, in.Destination)
		if err != nil {
			return errResult(err), struct{}{}, nil
		}
		days, err := svc.SelectOptimalDates(ctx, loc.Latitude, loc.Longitude, duration)
		if err != nil {
			return errResult(err), struct{}{}, nil
		}
		res, err := jsonResult(days)
		return res, struct{}{}, err
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_trip_options",
		Description: "Available trip styles and budget tiers",
	}, func(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, struct{}, error) {
		res, err := jsonResult(map[string]any{
			"styles":  planner.Styles(),
			"budgets": planner.Budgets(),
		})
		return res, struct{}{}, err
	})

	return s
}
