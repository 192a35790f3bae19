// Package travel assembles the TripMesh agent team: a controller that routes
// user requests and four specialists (weather, booking, places, planner)
// whose tools are discovered from their MCP servers.
package travel

import (
	"github.com/tripmesh/tripmesh/agent"
	"github.com/tripmesh/tripmesh/model"
	"github.com/tripmesh/tripmesh/tool"
)

// Canonical agent names used in handoffs.
const (
	ControllerName = "ControllerAgent"
	WeatherName    = "WeatherAgent"
	BookingName    = "BookingAgent"
	PlacesName     = "PlacesAgent"
	PlannerName    = "PlannerAgent"
)

const transferPhrase = `When handing off, tell the user: "I'll transfer you to the [agent name] agent who can help with [specific request]."`

const controllerInstruction = `You are the central controller agent for a travel assistant system.

Analyze each user query and route it to the most appropriate specialist:

- Weather conditions, forecasts or weather events: transfer to "` + WeatherName + `".
- Accommodation bookings, availability or hotel details: transfer to "` + BookingName + `".
- Places, attractions or local activities: transfer to "` + PlacesName + `".
- Full trip planning, itineraries or travel coordination: transfer to "` + PlannerName + `".

Only respond directly when the query is general or unclear; in that case ask
politely for clarification. Keep responses concise and name the specialist you
are transferring to.

` + transferPhrase

const weatherInstruction = `You are a knowledgeable weather assistant. Always invoke a relevant tool to
gather accurate, real-time information before answering:

- Current conditions: get_current_weather(location)
- Multi-day forecast: get_forecast(location, days)
- Best days to travel: get_travel_recommendation(location, days)
- Severe weather alerts: get_severe_weather(location, days)

Use the conversation history to resolve follow-up questions ("and tomorrow?")
without asking the user to repeat the location. Summarize tool output clearly
and concisely. Only hand off when the question is clearly unrelated to
weather: accommodations go to "` + BookingName + `", attractions to
"` + PlacesName + `", full trip plans to "` + PlannerName + `".

` + transferPhrase

const bookingInstruction = `You are an accommodation booking assistant. Always use the tools to answer:

- Find stays: search_accommodations(city, checkin, checkout, filters)
- Resolve city names first: search_cities(name)
- Live availability: check_availability(accommodation_ids, checkin, checkout)
- Full records: get_accommodation_details(accommodation_ids)
- Guest reviews: get_reviews(accommodation_id)

Dates must be YYYY-MM-DD; ask when the user has not given dates. Use the
conversation history for context on dates and destinations already mentioned.
Only hand off when the question is clearly unrelated to accommodation:
weather goes to "` + WeatherName + `", attractions to "` + PlacesName + `",
full trip plans to "` + PlannerName + `".

` + transferPhrase

const placesInstruction = `You are a local discovery assistant. Always use the tools to answer:

- Find points of interest: search_places(location, category, radius_meters)
- Weather-appropriate ideas: recommend_places_by_weather(location, condition)
- More about one place: get_place_details(xid)
- Valid categories: list_categories()

Present results nearest first and mention the distance category. Use the
conversation history for the destination when the user does not repeat it.
Only hand off when the question is clearly unrelated to places: weather goes
to "` + WeatherName + `", accommodations to "` + BookingName + `", full trip
plans to "` + PlannerName + `".

` + transferPhrase

const plannerInstruction = `You are a trip planning assistant. Always use the tools to answer:

- Full itinerary: plan_trip(destination, duration, style, budget)
- Best travel dates: select_optimal_dates(destination, duration)
- Available styles and budgets: list_trip_options()
- Archive a finished plan: save_itinerary(destination, itinerary)
- Remember or recall the traveler's style and budget: traveler_preferences

Durations accept a day count (1-30) or a preset (weekend, short, week,
extended, month). Recall stored preferences before asking the user to restate
style or budget, and archive every completed itinerary with save_itinerary.
Walk the user through the returned plan day by day. Only
hand off for isolated questions a specialist answers better: pure weather to
"` + WeatherName + `", a single accommodation search to "` + BookingName + `",
attraction lookups to "` + PlacesName + `".

` + transferPhrase

// TeamOptions carries the per-specialist tool sets, typically discovered from
// the MCP servers at startup.
type TeamOptions struct {
	WeatherTools []tool.Tool
	BookingTools []tool.Tool
	PlacesTools  []tool.Tool
	PlannerTools []tool.Tool
}

// NewTeam builds the controller with its four specialists attached.
func NewTeam(llm model.Model, optFns ...func(o *TeamOptions)) (*agent.ModelAgent, error) {
	opts := TeamOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	controller := NewController(llm)
	err := controller.SetSubAgents(
		NewWeatherAgent(llm, opts.WeatherTools...),
		NewBookingAgent(llm, opts.BookingTools...),
		NewPlacesAgent(llm, opts.PlacesTools...),
		NewPlannerAgent(llm, opts.PlannerTools...),
	)
	if err != nil {
		return nil, err
	}
	return controller, nil
}

// NewController builds the routing agent. It carries no domain tools; its
// only action is answering directly or handing off.
func NewController(llm model.Model) *agent.ModelAgent {
	return agent.NewModelAgent(ControllerName, llm, func(o *agent.ModelAgentOptions) {
		o.Description = "Routes travel requests to the weather, booking, places and planner specialists."
		o.Instruction = agent.NewInstructionFromText(controllerInstruction)
	})
}

// NewWeatherAgent builds the weather specialist.
func NewWeatherAgent(llm model.Model, tools ...tool.Tool) *agent.ModelAgent {
	return newSpecialist(llm, WeatherName,
		"Answers weather, forecast and travel-day questions.", weatherInstruction, tools)
}

// NewBookingAgent builds the accommodation specialist.
func NewBookingAgent(llm model.Model, tools ...tool.Tool) *agent.ModelAgent {
	return newSpecialist(llm, BookingName,
		"Searches accommodations, availability, details and reviews.", bookingInstruction, tools)
}

// NewPlacesAgent builds the local discovery specialist.
func NewPlacesAgent(llm model.Model, tools ...tool.Tool) *agent.ModelAgent {
	return newSpecialist(llm, PlacesName,
		"Finds attractions and points of interest around a destination.", placesInstruction, tools)
}

// NewPlannerAgent builds the itinerary specialist. Beyond the MCP tools it
// carries the itinerary archive and traveler preference tools, which work
// against the session stores.
func NewPlannerAgent(llm model.Model, tools ...tool.Tool) *agent.ModelAgent {
	tools = append(tools, newSaveItineraryTool(), tool.NewPreferenceTool())
	return newSpecialist(llm, PlannerName,
		"Builds day-by-day itineraries with dates, places and accommodation.", plannerInstruction, tools)
}

func newSpecialist(llm model.Model, name, description, instruction string, tools []tool.Tool) *agent.ModelAgent {
	return agent.NewModelAgent(name, llm, func(o *agent.ModelAgentOptions) {
		o.Description = description
		o.Instruction = agent.NewInstructionFromText(instruction)
		for _, t := range tools {
			o.Tools[t.Name()] = t
		}
	})
}
