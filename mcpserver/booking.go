package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tripmesh/tripmesh/travel/booking"
)

type bookingSearchInput struct {
	City     string  `json:"city,omitempty" jsonschema:"city name, resolved via search_cities when city_id is absent"`
	CityID   int     `json:"city_id,omitempty" jsonschema:"Booking.com city id"`
	Checkin  string  `json:"checkin" jsonschema:"check-in date, YYYY-MM-DD"`
	Checkout string  `json:"checkout,omitempty" jsonschema:"check-out date, YYYY-MM-DD, defaults to one night"`
	Adults   int     `json:"adults,omitempty" jsonschema:"number of adults, default 2"`
	Rooms    int     `json:"rooms,omitempty" jsonschema:"number of rooms, default 1"`
	Rows     int     `json:"rows,omitempty" jsonschema:"results to return, 10-100, default 20"`
	MinStars int     `json:"min_stars,omitempty" jsonschema:"minimum star rating, 1-5"`
	MaxStars int     `json:"max_stars,omitempty" jsonschema:"maximum star rating, 1-5"`
	MinPrice float64 `json:"min_price,omitempty" jsonschema:"minimum total price"`
	MaxPrice float64 `json:"max_price,omitempty" jsonschema:"maximum total price, up to 10000"`
	Type     string  `json:"type,omitempty" jsonschema:"accommodation type: hotel, apartment, resort, villa, hostel, bed_and_breakfast or guesthouse"`
}

type bookingAvailabilityInput struct {
	IDs      []int  `json:"accommodation_ids" jsonschema:"accommodation ids from a previous search"`
	Checkin  string `json:"checkin" jsonschema:"check-in date, YYYY-MM-DD"`
	Checkout string `json:"checkout" jsonschema:"check-out date, YYYY-MM-DD"`
}

type bookingDetailsInput struct {
	IDs []int `json:"accommodation_ids" jsonschema:"accommodation ids from a previous search"`
}

type bookingReviewsInput struct {
	ID   int `json:"accommodation_id" jsonschema:"accommodation id"`
	Rows int `json:"rows,omitempty" jsonschema:"reviews to return, default 20"`
}

type bookingCitiesInput struct {
	Name    string `json:"name" jsonschema:"city name"`
	Country string `json:"country,omitempty" jsonschema:"two-letter country code"`
}

// NewBookingServer exposes the booking service as MCP tools.
func NewBookingServer(svc *booking.Service, opts Options) *Server {
	s := newServer("tripmesh-booking", DefaultBookingPort, opts)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_accommodations",
		Description: "Accommodations for a stay, with star/price/type filters",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in bookingSearchInput) (*mcp.CallToolResult, struct{}, error) {
		cityID := in.CityID
		if cityID == 0 && in.City != "" {
			cities, err := svc.SearchCities(ctx, in.City, "")
			if err != nil {
				return errResult(err), struct{}{}, nil
			}
			if len(cities) > 0 {
				cityID = cities[0].ID
			}
		}
		found, err := svc.Search(ctx, booking.SearchParams{
			CityID:   cityID,
			Checkin:  in.Checkin,
			Checkout: in.Checkout,
			Adults:   in.Adults,
			Rooms:    in.Rooms,
			Rows:     in.Rows,
			MinStars: in.MinStars,
			MaxStars: in.MaxStars,
			MinPrice: in.MinPrice,
			MaxPrice: in.MaxPrice,
			Type:     in.Type,
		})
		if err != nil {
			return errResult(err), struct{}{}, nil
		}
		res, err := jsonResult(found)
		return res, struct{}{}, err
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "check_availability",
		Description: "Live availability for specific accommodations",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in bookingAvailabilityInput) (*mcp.CallToolResult, struct{}, error) {
		data, err := svc.Availability(ctx, in.IDs, in.Checkin, in.Checkout)
		if err != nil {
			return errResult(err), struct{}{}, nil
		}
		res, err := jsonResult(data)
		return res, struct{}{}, err
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_accommodation_details",
		Description: "Full records (description, facilities, photos) for accommodations",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in bookingDetailsInput) (*mcp.CallToolResult, struct{}, error) {
		data, err := svc.Details(ctx, in.IDs)
		if err != nil {
			return errResult(err), struct{}{}, nil
		}
		res, err := jsonResult(data)
		return res, struct{}{}, err
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_reviews",
		Description: "Guest reviews for one accommodation",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in bookingReviewsInput) (*mcp.CallToolResult, struct{}, error) {
		data, err := svc.Reviews(ctx, in.ID, in.Rows)
		if err != nil {
			return errResult(err), struct{}{}, nil
		}
		res, err := jsonResult(data)
		return res, struct{}{}, err
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_cities",
		Description: "Resolve a city name to Booking.com city ids",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in bookingCitiesInput) (*mcp.CallToolResult, struct{}, error) {
		cities, err := svc.SearchCities(ctx, in.Name, in.Country)
		if err != nil {
			return errResult(err), struct{}{}, nil
		}
		res, err := jsonResult(cities)
		return res, struct{}{}, err
	})

	return s
}
