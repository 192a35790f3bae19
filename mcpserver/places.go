package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tripmesh/tripmesh/travel/places"
)

type placesSearchInput struct {
	Location     string `json:"location" jsonschema:"city or place name"`
	Category     string `json:"category,omitempty" jsonschema:"place category, see list_categories"`
	RadiusMeters int    `json:"radius_meters,omitempty" jsonschema:"search radius in meters, 100-50000, default 10000"`
	Limit        int    `json:"limit,omitempty" jsonschema:"maximum results, 1-500, default 20"`
}

type placesWeatherInput struct {
	Location  string `json:"location" jsonschema:"city or place name"`
	Condition string `json:"condition" jsonschema:"weather condition: sunny, rainy, cloudy, snowy or windy"`
}

type placesDetailsInput struct {
	XID string `json:"xid" jsonschema:"place identifier from a previous search"`
}

// NewPlacesServer exposes the places service as MCP tools.
func NewPlacesServer(svc *places.Service, opts Options) *Server {
	s := newServer("tripmesh-places", DefaultPlacesPort, opts)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_places",
		Description: "Points of interest around a location, nearest first",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in placesSearchInput) (*mcp.CallToolResult, struct{}, error) {
		found, err := svc.Search(ctx, in.Location, places.SearchOptions{
			Category:     in.Category,
			RadiusMeters: in.RadiusMeters,
			Limit:        in.Limit,
		})
		if err != nil {
			return errResult(err), struct{}{}, nil
		}
		res, err := jsonResult(found)
		return res, struct{}{}, err
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "recommend_places_by_weather",
		Description: "Places that suit the given weather condition",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in placesWeatherInput) (*mcp.CallToolResult, struct{}, error) {
		found, err := svc.RecommendByWeather(ctx, in.Location, in.Condition)
		if err != nil {
			return errResult(err), struct{}{}, nil
		}
		res, err := jsonResult(found)
		return res, struct{}{}, err
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_place_details",
		Description: "Full record for one place",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in placesDetailsInput) (*mcp.CallToolResult, struct{}, error) {
		details, err := svc.Describe(ctx, in.XID)
		if err != nil {
			return errResult(err), struct{}{}, nil
		}
		res, err := jsonResult(details)
		return res, struct{}{}, err
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_categories",
		Description: "Searchable place categories",
	}, func(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, struct{}, error) {
		res, err := jsonResult(places.Categories())
		return res, struct{}{}, err
	})

	return s
}
