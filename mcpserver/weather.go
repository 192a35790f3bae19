package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tripmesh/tripmesh/travel/weather"
)

type weatherLocationInput struct {
	Location string `json:"location" jsonschema:"city or place name"`
}

type weatherForecastInput struct {
	Location string `json:"location" jsonschema:"city or place name"`
	Days     int    `json:"days,omitempty" jsonschema:"forecast days, 1-16, default 3"`
}

// NewWeatherServer exposes the weather service as MCP tools.
func NewWeatherServer(svc *weather.Service, opts Options) *Server {
	s := newServer("tripmesh-weather", DefaultWeatherPort, opts)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_current_weather",
		Description: "Current conditions and a short outlook for a location",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in weatherLocationInput) (*mcp.CallToolResult, struct{}, error) {
		report, err := svc.Current(ctx, in.Location)
		if err != nil {
			return errResult(err), struct{}{}, nil
		}
		res, err := jsonResult(report)
		return res, struct{}{}, err
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_forecast",
		Description: "Daily weather forecast for a location",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in weatherForecastInput) (*mcp.CallToolResult, struct{}, error) {
		days, err := svc.Forecast(ctx, in.Location, in.Days)
		if err != nil {
			return errResult(err), struct{}{}, nil
		}
		res, err := jsonResult(days)
		return res, struct{}{}, err
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_travel_recommendation",
		Description: "Forecast days scored for travel suitability, best first",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in weatherForecastInput) (*mcp.CallToolResult, struct{}, error) {
		ranked, err := svc.TripRecommendation(ctx, in.Location, in.Days)
		if err != nil {
			return errResult(err), struct{}{}, nil
		}
		res, err := jsonResult(ranked)
		return res, struct{}{}, err
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_severe_weather",
		Description: "Hazardous hours (heavy rain, strong wind, thunderstorms, snow) in the forecast",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in weatherForecastInput) (*mcp.CallToolResult, struct{}, error) {
		events, err := svc.SevereEvents(ctx, in.Location, in.Days)
		if err != nil {
			return errResult(err), struct{}{}, nil
		}
		res, err := jsonResult(events)
		return res, struct{}{}, err
	})

	return s
}
